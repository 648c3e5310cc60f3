package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashureev/pickleai/internal/domain"
	"github.com/ashureev/pickleai/internal/knowledge"
	"github.com/ashureev/pickleai/internal/prompt"
)

func TestPlan_AsksForMissingInfo(t *testing.T) {
	t.Parallel()

	plan := newPlanner().Plan("What paddle should I buy, I'm a beginner with a budget of $75", domain.UserContext{})

	require.NotNil(t, plan.Analysis.Category)
	assert.Equal(t, knowledge.CategoryPaddleRecommendation, plan.Analysis.Category.Name)
	assert.Equal(t, domain.ExperienceBeginner, plan.Extracted.Experience)
	assert.Equal(t, "under $75", plan.Context.Budget)
	// Every required slot is known; the questions cover optional ones.
	assert.Equal(t, []domain.Slot{domain.SlotPlayFrequency, domain.SlotPlayStyle}, plan.Analysis.MissingInfo)
	assert.NotEmpty(t, plan.FollowUps)
	assert.LessOrEqual(t, len(plan.FollowUps), 2)
	for _, q := range plan.FollowUps {
		assert.Contains(t, plan.Prompt, "- "+q)
	}
}

func TestPlan_LowConfidenceUsesContextOnlyPrompt(t *testing.T) {
	t.Parallel()

	// "lob" scores 3, which is exactly the threshold and not above it.
	uc := domain.UserContext{Budget: "premium"}
	plan := newPlanner().Plan("lob?", uc)

	require.NotNil(t, plan.Analysis.Category)
	assert.InDelta(t, 0.3, plan.Analysis.Confidence, 1e-9)
	assert.Empty(t, plan.FollowUps)
	assert.Equal(t, prompt.ContextOnly(plan.Context), plan.Prompt)
}

func TestPlan_NoMatchUsesGenericPrompt(t *testing.T) {
	t.Parallel()

	plan := newPlanner().Plan("thanks so much", domain.UserContext{})

	assert.Nil(t, plan.Analysis.Category)
	assert.Equal(t, prompt.Generic, plan.Prompt)
}

func TestPlan_DoesNotMutateCurrent(t *testing.T) {
	t.Parallel()

	current := domain.UserContext{Goals: []string{"win a medal"}}
	plan := newPlanner().Plan("I'm advanced and want to improve my serve", current)

	assert.Empty(t, current.Experience)
	assert.Equal(t, []string{"win a medal"}, current.Goals)
	assert.Equal(t, domain.ExperienceAdvanced, plan.Context.Experience)
}

func TestPlan_NewLocationReplacesOld(t *testing.T) {
	t.Parallel()

	current := domain.UserContext{Location: &domain.Location{City: "Austin", State: "TX"}}
	plan := newPlanner().Plan("actually I moved, find courts near Portland", current)

	require.NotNil(t, plan.Context.Location)
	assert.Equal(t, "Portland", plan.Context.Location.String())
	assert.Empty(t, plan.Context.Location.State)
}
