// Package intent matches messages to knowledge base categories and decides
// which context is still missing.
package intent

import (
	"regexp"
	"strings"

	"github.com/ashureev/pickleai/internal/domain"
	"github.com/ashureev/pickleai/internal/extract"
	"github.com/ashureev/pickleai/internal/knowledge"
)

// maxOptionalChecks bounds how many optional slots are considered once all
// required slots are satisfied.
const maxOptionalChecks = 2

// Analysis is the classifier verdict for one message.
type Analysis struct {
	// Category is nil when no keyword matched.
	Category    *knowledge.Category
	MissingInfo []domain.Slot
	// Confidence is min(score/10, 1). It is a relative strength, not a
	// probability.
	Confidence float64
	Score      int
}

// CategoryName returns the matched category name or "".
func (a Analysis) CategoryName() string {
	if a.Category == nil {
		return ""
	}
	return a.Category.Name
}

// Classifier scores messages against a knowledge base registry.
type Classifier struct {
	registry *knowledge.Registry
}

// NewClassifier creates a classifier over registry.
func NewClassifier(registry *knowledge.Registry) *Classifier {
	return &Classifier{registry: registry}
}

// Analyze picks the best matching category for message and lists the slots
// neither uc nor the message itself supplies.
func (c *Classifier) Analyze(message string, uc domain.UserContext) Analysis {
	lower := strings.ToLower(message)

	var (
		best      *knowledge.Category
		bestScore int
	)
	for _, cat := range c.registry.Categories() {
		score := Score(lower, cat)
		// Strict comparison: on an exact tie the earlier registered category
		// keeps the win. This ordering is relied on and tested.
		if score > bestScore {
			best, bestScore = &cat, score
		}
	}
	if best == nil {
		return Analysis{}
	}

	return Analysis{
		Category:    best,
		MissingInfo: missingInfo(*best, message, uc),
		Confidence:  min(float64(bestScore)/10, 1),
		Score:       bestScore,
	}
}

// Score sums the byte length of every keyword of cat found in the
// lowercased message. Longer, more specific keywords weigh more.
func Score(lowerMessage string, cat knowledge.Category) int {
	score := 0
	for _, kw := range cat.Keywords {
		if strings.Contains(lowerMessage, kw) {
			score += len(kw)
		}
	}
	return score
}

func missingInfo(cat knowledge.Category, message string, uc domain.UserContext) []domain.Slot {
	lower := strings.ToLower(message)
	detected := extract.Extract(message)
	present := func(s domain.Slot) bool {
		return uc.Has(s) || detected.Has(s) || hasEvidence(s, lower)
	}

	var missing []domain.Slot
	for _, s := range cat.RequiredInfo {
		if !present(s) {
			missing = append(missing, s)
		}
	}
	if len(missing) > 0 {
		return missing
	}
	for i, s := range cat.OptionalInfo {
		if i == maxOptionalChecks {
			break
		}
		if !present(s) {
			missing = append(missing, s)
		}
	}
	return missing
}

// evidence holds cues that show the user has addressed a slot even when no
// concrete value could be extracted, e.g. "I've played for two years".
var evidence = map[domain.Slot]*regexp.Regexp{
	domain.SlotExperience:             regexp.MustCompile(`\b(beginner|new to|(?:i'?m|i am) new|never played|first time|intermediate|advanced|expert|experienced|been playing|played for|just started|years?|months?)\b`),
	domain.SlotBudget:                 regexp.MustCompile(`\$\s?\d|\b(budget|cheap|afford\w*|expensive|premium|price|cost|dollars?|bucks|spend)\b`),
	domain.SlotPlayFrequency:          regexp.MustCompile(`\b(daily|every day|times a (?:week|month)|weekly|weekends?|occasionally|rarely|once a)\b`),
	domain.SlotPlayStyle:              regexp.MustCompile(`\b(power|control|finesse|all[- ]around|defensive|aggressive|banger|soft game)\b`),
	domain.SlotPhysicalConsiderations: regexp.MustCompile(`\b(elbow|wrist|shoulder|knees?|back pain|arthritis|injur\w*|pain|surgery)\b`),
	domain.SlotGoals:                  regexp.MustCompile(`\b(want to|goal|trying to|hoping to|work on|get better at)\b`),
	domain.SlotLocation:               regexp.MustCompile(`\b(near me|nearby|live in|located in|zip)\b|\b\d{5}\b`),
	domain.SlotTravelDistance:         regexp.MustCompile(`\b(miles?|travel|drive|driving|local|nearby)\b`),
	domain.SlotSkillLevel:             regexp.MustCompile(`\b[1-8]\.\d\b|\b(division|bracket|skill level)\b`),
	domain.SlotTournamentPreference:   regexp.MustCompile(`\b(singles|doubles|mixed)\b`),
	domain.SlotDatePreference:         regexp.MustCompile(`\b(weekend|next week|this month|next month|today|tomorrow|flexible|any ?time)\b`),
	domain.SlotCurrentEquipment:       regexp.MustCompile(`\b(currently (?:use|using|play with)|my (?:current|old) paddle|i (?:use|have|own) an? )`),
	domain.SlotComparisonCriteria:     regexp.MustCompile(`\b(power|control|spin|weight|price|durability|grip|sweet spot|feel)\b`),
	domain.SlotDuprScore:              regexp.MustCompile(`\b[1-8](?:\.\d+)?\s*(?:dupr|rating)\b`),
	domain.SlotDuprGoals:              regexp.MustCompile(`\b(reach|get to|break|improve my (?:dupr|rating))\b`),
	domain.SlotDuprIntent:             regexp.MustCompile(`\b(my (?:dupr|rating)|look up|lookup|how does (?:dupr|rating)|what is (?:a |the )?(?:dupr|rating))\b`),
	domain.SlotPlayerName:             regexp.MustCompile(`\b[a-z]+'s (?:dupr|rating)\b`),
}

func hasEvidence(s domain.Slot, lower string) bool {
	re, ok := evidence[s]
	return ok && re.MatchString(lower)
}
