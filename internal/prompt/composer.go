// Package prompt builds the system prompt handed to the language model.
package prompt

import (
	"strings"

	"github.com/ashureev/pickleai/internal/domain"
	"github.com/ashureev/pickleai/internal/knowledge"
)

// Generic is used when no category matched or nothing is missing.
const Generic = "You are PickleAI, a concise pickleball assistant. Answer the user's question directly and practically."

const preamble = "You are PickleAI, a friendly and knowledgeable pickleball assistant. " +
	"You help players of every level with equipment, technique, rules, ratings, and finding places to play. " +
	"Keep a warm, conversational tone and tailor advice to what you know about the player."

const noneYet = "None yet"

var styleDirectives = []string{
	"Briefly acknowledge what the user has shared.",
	"Ask 1-2 of the questions above, woven naturally into your reply.",
	"Offer useful general guidance now instead of waiting for every detail.",
	"Stay encouraging and keep the answer concise.",
}

// guidance adds one closing sentence for categories that need steering.
var guidance = map[string]string{
	knowledge.CategoryPaddleRecommendation: "Recommend two or three specific paddle types or weight ranges that fit the player's level and budget, and explain the tradeoff between power and control.",
	knowledge.CategoryPaddleComparison:     "Compare the options side by side on the criteria the user cares about, and say which player each one suits.",
	knowledge.CategoryDuprRating:           "Explain DUPR plainly; you cannot look up live ratings, so point the user to mydupr.com for an official number.",
	knowledge.CategoryTournamentFinder:     "Suggest where to search for sanctioned events, such as pickleballtournaments.com, and how to pick the right skill division.",
	knowledge.CategorySkillDevelopment:     "Propose a short, concrete practice plan with drills matched to the player's level.",
	knowledge.CategoryStrategyAdvice:       "Focus on positioning and shot selection the player can apply in their next game.",
	knowledge.CategoryRulesAndRegulations:  "Quote the relevant rule in plain language and mention that official rules come from USA Pickleball.",
}

// Guidance returns the closing sentence for a category, if any.
func Guidance(category string) (string, bool) {
	g, ok := guidance[category]
	return g, ok
}

// Compose returns the category-aware system prompt. It falls back to
// Generic when cat is nil or nothing is missing.
func Compose(cat *knowledge.Category, missing []domain.Slot, uc domain.UserContext, followUps []string) string {
	if cat == nil || len(missing) == 0 {
		return Generic
	}

	var b strings.Builder
	b.WriteString(preamble)

	b.WriteString("\n\nCURRENT TOPIC: ")
	b.WriteString(cat.Title())

	if len(followUps) > 0 {
		b.WriteString("\n\nQUESTIONS TO ASK NATURALLY:")
		writeBullets(&b, followUps)
	}

	b.WriteString("\n\nWHAT YOU KNOW ABOUT THE USER:")
	if known := knownLines(uc); len(known) > 0 {
		writeBullets(&b, known)
	} else {
		writeBullets(&b, []string{noneYet})
	}

	b.WriteString("\n\nRESPONSE STYLE:")
	writeBullets(&b, styleDirectives)

	if g, ok := guidance[cat.Name]; ok {
		b.WriteString("\n\n")
		b.WriteString(g)
	}
	return b.String()
}

// ContextOnly returns Generic followed by whatever is known about the user.
func ContextOnly(uc domain.UserContext) string {
	known := knownLines(uc)
	if len(known) == 0 {
		return Generic
	}
	var b strings.Builder
	b.WriteString(Generic)
	b.WriteString("\n\nWhat you know about the user:")
	writeBullets(&b, known)
	return b.String()
}

func writeBullets(b *strings.Builder, lines []string) {
	for _, l := range lines {
		b.WriteString("\n- ")
		b.WriteString(l)
	}
}

func knownLines(uc domain.UserContext) []string {
	fields := uc.Known()
	lines := make([]string, 0, len(fields))
	for _, f := range fields {
		lines = append(lines, Label(f.Slot)+": "+f.Value)
	}
	return lines
}

var labels = map[domain.Slot]string{
	domain.SlotExperience:             "Experience",
	domain.SlotBudget:                 "Budget",
	domain.SlotPlayFrequency:          "Play frequency",
	domain.SlotPlayStyle:              "Play style",
	domain.SlotPhysicalConsiderations: "Physical considerations",
	domain.SlotGoals:                  "Goals",
	domain.SlotLocation:               "Location",
	domain.SlotTravelDistance:         "Travel distance",
	domain.SlotSkillLevel:             "Skill level",
	domain.SlotTournamentPreference:   "Tournament format",
	domain.SlotDatePreference:         "Dates",
	domain.SlotCurrentEquipment:       "Current equipment",
	domain.SlotComparisonCriteria:     "Comparison criteria",
	domain.SlotDuprScore:              "DUPR score",
	domain.SlotDuprGoals:              "DUPR goals",
	domain.SlotDuprIntent:             "DUPR question type",
	domain.SlotPlayerName:             "Player to look up",
}

// Label returns the human readable name of a slot.
func Label(s domain.Slot) string {
	if l, ok := labels[s]; ok {
		return l
	}
	return string(s)
}
