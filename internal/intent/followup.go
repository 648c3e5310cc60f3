package intent

import (
	"github.com/ashureev/pickleai/internal/domain"
	"github.com/ashureev/pickleai/internal/knowledge"
	"github.com/ashureev/pickleai/internal/shared"
)

// MaxFollowUps is the most questions asked in one turn.
const MaxFollowUps = 2

// FollowUpGenerator picks natural follow-up questions for missing slots.
type FollowUpGenerator struct {
	rand shared.Rand
}

// NewFollowUpGenerator creates a generator drawing from r.
func NewFollowUpGenerator(r shared.Rand) *FollowUpGenerator {
	if r == nil {
		r = shared.NewTimeSeededRand()
	}
	return &FollowUpGenerator{rand: r}
}

// Generate returns at most MaxFollowUps questions, one per leading missing
// slot. Slots without registered questions, or that uc already answers,
// contribute nothing.
func (g *FollowUpGenerator) Generate(cat knowledge.Category, missing []domain.Slot, uc domain.UserContext) []string {
	if len(missing) > MaxFollowUps {
		missing = missing[:MaxFollowUps]
	}
	var questions []string
	for _, s := range missing {
		if uc.Has(s) {
			continue
		}
		if q := shared.Pick(g.rand, cat.Questions(s)); q != "" {
			questions = append(questions, q)
		}
	}
	return questions
}
