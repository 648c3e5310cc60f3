package security

import (
	"fmt"
	"regexp"
	"strings"
)

// blockedPatterns cover gamification exploits, business probing, data
// exfiltration, security probing and requests for confidential material.
// They are matched against the lowercased message.
var blockedPatterns = []*regexp.Regexp{
	// gamification
	regexp.MustCompile(`\b(hack|cheat|exploit|farm|glitch|spoof|fake)\w*\b.{0,40}\b(xp|leaderboards?|badges?|achievements?|streaks?)\b`),
	regexp.MustCompile(`\b(xp|leaderboards?|badges?|achievements?|streaks?)\b.{0,40}\b(hack|cheat|exploit|farm|glitch|spoof)\w*`),
	regexp.MustCompile(`\bboost\w*\b.{0,40}\b(xp|leaderboards?)\b`),
	regexp.MustCompile(`\b(xp|leaderboards?)\b.{0,40}\bboost\w*`),

	// business model
	regexp.MustCompile(`\b(revenue|business model|monetiz\w*|investors?|valuation|profit margins?|pricing strategy|funding round)\b`),
	regexp.MustCompile(`\bhow (?:does|do) (?:the app|this app|pickleai|you(?: guys)?) make money\b`),

	// exfiltration
	regexp.MustCompile(`\b(scrape|scraping|dump|export all|download all)\b.{0,40}\b(users?|data|database|profiles?|emails?|messages?)\b`),
	regexp.MustCompile(`\b(database|db)\s+(schema|dump|password|credentials|tables?)\b`),
	regexp.MustCompile(`\b(api[ _-]?keys?|secret keys?|access tokens?|admin (?:panel|access|password|dashboard)|credentials)\b`),
	regexp.MustCompile(`\bother users'? (?:data|info|information|emails?|messages?|locations?)\b`),

	// security probing
	regexp.MustCompile(`\b(vulnerabilit\w*|jailbreak\w*|prompt injection|sql injection|xss|system prompt|bypass\w*)\b`),
	regexp.MustCompile(`\bignore (?:all |your |the |previous |prior )+(?:instructions|rules)\b`),

	// confidential
	regexp.MustCompile(`\b(confidential|internal (?:docs?|documents?|documentation|memos?|roadmap)|proprietary|nda|trade secrets?|source code)\b`),
}

// MatchesBlockedPattern reports whether the message hits the denylist.
func MatchesBlockedPattern(message string) bool {
	lower := strings.ToLower(message)
	for _, re := range blockedPatterns {
		if re.MatchString(lower) {
			return true
		}
	}
	return false
}

// refusals steer the user back to topics the assistant covers.
var refusals = []string{
	"I'm here to help with all things pickleball! Want tips on your third shot drop or help choosing a paddle?",
	"That's outside what I can help with, but I'd love to talk pickleball. Ask me about rules, strategy, or gear!",
	"I can't help with that one. How about we work on your game instead? I can suggest drills for your level.",
	"Let's keep it on the court! I can explain a rule, recommend equipment, or help you understand DUPR ratings.",
	"I'm not able to go there, but I'm happy to help you find tournaments or improve your dinking game.",
}

// Refusals returns a copy of the refusal pool.
func Refusals() []string {
	return append([]string(nil), refusals...)
}

// Intent is a topic family the gate recognizes.
type Intent string

const (
	IntentAppHelp                 Intent = "appHelp"
	IntentKnowledgeBase           Intent = "knowledgeBase"
	IntentBasicTips               Intent = "basicTips"
	IntentPersonalRating          Intent = "personalRating"
	IntentSkillsAdvice            Intent = "skillsAdvice"
	IntentRulesExplanation        Intent = "rulesExplanation"
	IntentEquipmentRecommendation Intent = "equipmentRecommendation"
	IntentGeneralPickleball       Intent = "generalPickleball"
)

// AllIntents lists every recognized intent. The default allow-list.
var AllIntents = []Intent{
	IntentAppHelp,
	IntentKnowledgeBase,
	IntentBasicTips,
	IntentPersonalRating,
	IntentSkillsAdvice,
	IntentRulesExplanation,
	IntentEquipmentRecommendation,
	IntentGeneralPickleball,
}

var intentFamilies = []struct {
	intent Intent
	re     *regexp.Regexp
}{
	{IntentAppHelp, regexp.MustCompile(`\b(app|account|profile|settings|notifications?|log ?in|sign ?up|password reset|how do i use)\b`)},
	{IntentKnowledgeBase, regexp.MustCompile(`\b(what is|what are|explain|tell me about|history of|define|meaning of)\b`)},
	{IntentBasicTips, regexp.MustCompile(`\b(tips?|advice|beginners?|how to play|getting started|basics?)\b`)},
	{IntentPersonalRating, regexp.MustCompile(`\b(dupr|rating|rated|my level|skill level)\b`)},
	{IntentSkillsAdvice, regexp.MustCompile(`\b(technique|drills?|dink\w*|serve|volley|footwork|third shot|improve|practice|strateg\w*)\b`)},
	{IntentRulesExplanation, regexp.MustCompile(`\b(rules?|kitchen|fault|scoring|non-volley|out of bounds|line calls?)\b`)},
	{IntentEquipmentRecommendation, regexp.MustCompile(`\b(paddles?|balls?|shoes|gear|equipment|grips?|nets?)\b`)},
	{IntentGeneralPickleball, regexp.MustCompile(`\b(pickleball|courts?|tournaments?|clubs?|partners?|open play|games?)\b`)},
}

// ParseIntent validates an intent name.
func ParseIntent(s string) (Intent, error) {
	for _, i := range AllIntents {
		if string(i) == s {
			return i, nil
		}
	}
	return "", fmt.Errorf("unknown intent %q", s)
}

// DetectIntents returns every intent family the message touches, in
// declaration order.
func DetectIntents(message string) []Intent {
	lower := strings.ToLower(message)
	var out []Intent
	for _, f := range intentFamilies {
		if f.re.MatchString(lower) {
			out = append(out, f.intent)
		}
	}
	return out
}

var injectionPhrases = []string{
	"ignore previous instructions",
	"ignore all previous",
	"disregard previous",
	"bypass security",
	"pretend to be",
	"you are now",
	"forget your instructions",
	"jailbreak",
	"developer mode",
}

// ValidateSystemPrompt reports whether a composed prompt is free of
// injection-style phrases.
func ValidateSystemPrompt(prompt string) bool {
	lower := strings.ToLower(prompt)
	for _, p := range injectionPhrases {
		if strings.Contains(lower, p) {
			return false
		}
	}
	return true
}
