package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashureev/pickleai/internal/domain"
	"github.com/ashureev/pickleai/internal/knowledge"
	"github.com/ashureev/pickleai/internal/security"
)

func mustCategory(t *testing.T, name string) *knowledge.Category {
	t.Helper()
	c, ok := knowledge.Default().Lookup(name)
	require.True(t, ok, name)
	return &c
}

func TestCompose_GenericWhenNothingToAsk(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Generic, Compose(nil, []domain.Slot{domain.SlotBudget}, domain.UserContext{}, nil))

	cat := mustCategory(t, knowledge.CategoryPaddleRecommendation)
	assert.Equal(t, Generic, Compose(cat, nil, domain.UserContext{Budget: "premium"}, []string{"q"}))
}

func TestCompose_Sections(t *testing.T) {
	t.Parallel()

	cat := mustCategory(t, knowledge.CategoryPaddleRecommendation)
	uc := domain.UserContext{
		Experience: domain.ExperienceBeginner,
		Budget:     "under $75",
		PlayStyle:  domain.Unknown,
	}
	got := Compose(cat, []domain.Slot{domain.SlotPlayFrequency}, uc, []string{"How often do you play?"})

	assert.True(t, strings.HasPrefix(got, preamble))
	assert.Contains(t, got, "CURRENT TOPIC: Paddle Recommendation")
	assert.Contains(t, got, "\n- How often do you play?")
	assert.Contains(t, got, "\n- Experience: beginner")
	assert.Contains(t, got, "\n- Budget: under $75")
	assert.NotContains(t, got, "Play style")
	assert.NotContains(t, got, noneYet)
	for _, d := range styleDirectives {
		assert.Contains(t, got, d)
	}
	g, ok := Guidance(knowledge.CategoryPaddleRecommendation)
	require.True(t, ok)
	assert.True(t, strings.HasSuffix(got, g))
}

func TestCompose_NoneYetAndNoGuidance(t *testing.T) {
	t.Parallel()

	cat := mustCategory(t, knowledge.CategorySkills)
	got := Compose(cat, []domain.Slot{domain.SlotExperience}, domain.UserContext{}, []string{"How long have you played?"})

	assert.Contains(t, got, "WHAT YOU KNOW ABOUT THE USER:\n- None yet")
	_, ok := Guidance(knowledge.CategorySkills)
	assert.False(t, ok)
	assert.True(t, strings.HasSuffix(got, styleDirectives[len(styleDirectives)-1]))
}

func TestContextOnly(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Generic, ContextOnly(domain.UserContext{}))

	got := ContextOnly(domain.UserContext{PlayerName: "John Smith", DuprIntent: domain.DuprLookup})
	assert.True(t, strings.HasPrefix(got, Generic))
	assert.Contains(t, got, "- DUPR question type: lookup")
	assert.Contains(t, got, "- Player to look up: John Smith")
}

func TestCompose_OutputPassesValidation(t *testing.T) {
	t.Parallel()

	score := 4.25
	uc := domain.UserContext{
		Experience: domain.ExperienceAdvanced,
		Goals:      []string{"win a medal"},
		Location:   &domain.Location{City: "Austin", State: "TX"},
		DuprScore:  &score,
	}
	for _, cat := range knowledge.Default().Categories() {
		slots := append(append([]domain.Slot{}, cat.RequiredInfo...), cat.OptionalInfo...)
		if len(slots) == 0 {
			slots = []domain.Slot{domain.SlotGoals}
		}
		p := Compose(&cat, slots, uc, []string{"Anything else?"})
		assert.True(t, security.ValidateSystemPrompt(p), "category %s", cat.Name)
	}
	assert.True(t, security.ValidateSystemPrompt(Generic))
	assert.True(t, security.ValidateSystemPrompt(ContextOnly(uc)))
}

func TestLabel(t *testing.T) {
	t.Parallel()

	for _, s := range domain.Slots {
		assert.NotEqual(t, string(s), Label(s), "slot %s has no label", s)
	}
	assert.Equal(t, "mystery", Label("mystery"))
}
