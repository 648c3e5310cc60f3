package chat

import (
	"github.com/ashureev/pickleai/internal/domain"
	"github.com/ashureev/pickleai/internal/extract"
	"github.com/ashureev/pickleai/internal/intent"
	"github.com/ashureev/pickleai/internal/knowledge"
	"github.com/ashureev/pickleai/internal/prompt"
	"github.com/ashureev/pickleai/internal/shared"
)

// followUpThreshold is the classifier confidence above which the assistant
// asks for missing context instead of answering generically.
const followUpThreshold = 0.3

// Plan is everything decided about one message before the model is called.
type Plan struct {
	// Extracted holds only what this message revealed.
	Extracted domain.UserContext
	// Context is the stored context merged with Extracted.
	Context   domain.UserContext
	Analysis  intent.Analysis
	FollowUps []string
	Prompt    string
}

// Planner runs extraction, classification, follow-up selection and prompt
// composition. It holds no conversation state.
type Planner struct {
	registry   *knowledge.Registry
	classifier *intent.Classifier
	followUps  *intent.FollowUpGenerator
}

// NewPlanner creates a planner over registry. A nil rnd uses a time seeded source.
func NewPlanner(registry *knowledge.Registry, rnd shared.Rand) *Planner {
	return &Planner{
		registry:   registry,
		classifier: intent.NewClassifier(registry),
		followUps:  intent.NewFollowUpGenerator(rnd),
	}
}

// Registry returns the knowledge base the planner routes on.
func (p *Planner) Registry() *knowledge.Registry {
	return p.registry
}

// Plan analyzes message against the current context.
func (p *Planner) Plan(message string, current domain.UserContext) Plan {
	extracted := extract.Extract(message)
	merged := current.Merge(extracted)
	analysis := p.classifier.Analyze(message, merged)

	plan := Plan{
		Extracted: extracted,
		Context:   merged,
		Analysis:  analysis,
	}

	// MissingInfo only lists optional slots once every required one is
	// known, so those still produce follow-ups.
	if analysis.Category != nil && len(analysis.MissingInfo) > 0 && analysis.Confidence > followUpThreshold {
		plan.FollowUps = p.followUps.Generate(*analysis.Category, analysis.MissingInfo, merged)
	}
	if len(plan.FollowUps) > 0 {
		plan.Prompt = prompt.Compose(analysis.Category, analysis.MissingInfo, merged, plan.FollowUps)
	} else {
		plan.Prompt = prompt.ContextOnly(merged)
	}
	return plan
}
