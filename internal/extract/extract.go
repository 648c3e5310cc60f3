// Package extract infers user context fields from a single chat message.
//
// Extraction is pure: the same message always yields the same partial
// context, and nothing outside the returned value is touched. Merging the
// result into a conversation is the caller's job.
package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/ashureev/pickleai/internal/domain"
)

// message carries the raw text alongside normalized forms so detectors
// don't re-derive them.
type message struct {
	raw   string // apostrophes normalized, original casing
	lower string
}

func newMessage(s string) message {
	raw := strings.NewReplacer("’", "'", "‘", "'").Replace(s)
	return message{raw: raw, lower: strings.ToLower(raw)}
}

// detector populates at most one field of out.
type detector func(m message, out *domain.UserContext)

// detectors run in order. They are independent of each other.
var detectors = []detector{
	detectExperience,
	detectBudget,
	detectPlayFrequency,
	detectPlayStyle,
	detectPhysical,
	detectGoals,
	detectCurrentEquipment,
	detectComparisonCriteria,
	detectDuprGoals,
	detectDuprScore,
	detectDuprIntent,
	detectLocation,
	detectTravelDistance,
	detectDatePreference,
	detectSkillLevel,
	detectTournamentPreference,
}

// Extract returns the context fields explicitly detected in msg.
func Extract(msg string) domain.UserContext {
	m := newMessage(msg)
	var out domain.UserContext
	for _, d := range detectors {
		d(m, &out)
	}
	return out
}

type rule[T any] struct {
	re    *regexp.Regexp
	value T
}

// firstRule returns the value of the first rule whose pattern matches s.
func firstRule[T any](rules []rule[T], s string) (T, bool) {
	for _, r := range rules {
		if r.re.MatchString(s) {
			return r.value, true
		}
	}
	var zero T
	return zero, false
}

// Beginner is checked before intermediate and advanced, so a message
// matching several groups resolves to the earliest. "new" and "tournament"
// only count when they describe the player, not a paddle or an event.
var experienceRules = []rule[domain.ExperienceLevel]{
	{regexp.MustCompile(`\b(beginner|newbie|new to (?:pickleball|the game|playing)|new (?:player|here)|(?:i'?m|i am) (?:still |fairly |pretty |totally |completely |really )?new|just (?:started|starting|learning)|first time|never played)\b`), domain.ExperienceBeginner},
	{regexp.MustCompile(`\b(intermediate|some experience|played before|been playing for a (?:while|bit|few))\b`), domain.ExperienceIntermediate},
	{regexp.MustCompile(`\b(advanced|expert|experienced|competitive|tournament player|play (?:in )?tournaments)\b`), domain.ExperienceAdvanced},
}

func detectExperience(m message, out *domain.UserContext) {
	if v, ok := firstRule(experienceRules, m.lower); ok {
		out.Experience = v
	}
}

var (
	budgetAmountRe  = regexp.MustCompile(`\$\s?(\d+(?:\.\d{2})?)(?:\s*(?:-|to)\s*\$?\s?(\d+(?:\.\d{2})?))?`)
	budgetDollarsRe = regexp.MustCompile(`\b(\d+)\s*(?:dollars|bucks)\b`)
	budgetRules     = []rule[string]{
		{regexp.MustCompile(`\b(cheap|budget|affordable|inexpensive|low[- ]cost)\b`), "budget-friendly"},
		{regexp.MustCompile(`\bmid[- ]range\b`), "mid-range"},
		{regexp.MustCompile(`\b(expensive|premium|high[- ]end|top of the line)\b`), "premium"},
	}
)

func detectBudget(m message, out *domain.UserContext) {
	if sm := budgetAmountRe.FindStringSubmatch(m.lower); sm != nil {
		if sm[2] != "" {
			out.Budget = "$" + sm[1] + "-$" + sm[2]
		} else {
			out.Budget = "under $" + sm[1]
		}
		return
	}
	if sm := budgetDollarsRe.FindStringSubmatch(m.lower); sm != nil {
		out.Budget = "under $" + sm[1]
		return
	}
	if v, ok := firstRule(budgetRules, m.lower); ok {
		out.Budget = v
	}
}

var frequencyRules = []rule[domain.PlayFrequency]{
	{regexp.MustCompile(`\b(every day|everyday|daily)\b`), domain.FrequencyDaily},
	{regexp.MustCompile(`\b(\d|two|three|four|five|a few|few|several|couple(?: of)?)\s+times\s+(?:a|per)\s+week\b`), domain.FrequencySeveralWeek},
	{regexp.MustCompile(`\b(once a week|weekly|every week|on weekends|every weekend)\b`), domain.FrequencyWeekly},
	{regexp.MustCompile(`\b(occasionally|rarely|once a month|casually|now and then|every so often)\b`), domain.FrequencyOccasionally},
}

func detectPlayFrequency(m message, out *domain.UserContext) {
	if v, ok := firstRule(frequencyRules, m.lower); ok {
		out.PlayFrequency = v
	}
}

var styleRules = []rule[domain.PlayStyle]{
	{regexp.MustCompile(`\b(power|hard hitter|banger|bang)\b`), domain.StylePower},
	{regexp.MustCompile(`\b(control|finesse|soft game|touch)\b`), domain.StyleControl},
	{regexp.MustCompile(`\b(all[- ]around|balanced|versatile|hybrid)\b`), domain.StyleAllAround},
	{regexp.MustCompile(`\b(defensive|defense)\b`), domain.StyleDefensive},
	{regexp.MustCompile(`\baggressive\b`), domain.StyleAggressive},
}

func detectPlayStyle(m message, out *domain.UserContext) {
	if v, ok := firstRule(styleRules, m.lower); ok {
		out.PlayStyle = v
	}
}

var physicalRe = regexp.MustCompile(`\b(tennis elbow|golfer'?s elbow|arthritis|bad (?:knees?|back|shoulder|wrist|elbow)|(?:wrist|elbow|shoulder|knee|back) (?:pain|issues?|problems?|injury)|injur(?:y|ed|ies)|surgery)\b`)

func detectPhysical(m message, out *domain.UserContext) {
	if sm := physicalRe.FindStringSubmatch(m.lower); sm != nil {
		out.PhysicalConsiderations = sm[1]
	}
}

var (
	goalRe     = regexp.MustCompile(`\b(?:i want to|i'd like to|i would like to|my goal is to|i'm trying to|im trying to|i am trying to|hoping to|i hope to)\s+([^.!?,;]+)`)
	goalSkipRe = regexp.MustCompile(`^(?:buy|purchase|get an? |know|ask|find out|compare|look up|check)`)
)

func detectGoals(m message, out *domain.UserContext) {
	var goals []string
	for _, sm := range goalRe.FindAllStringSubmatch(m.lower, -1) {
		g := strings.TrimSpace(sm[1])
		if g == "" || goalSkipRe.MatchString(g) {
			continue
		}
		if len(g) > 80 {
			g = strings.TrimSpace(g[:80])
		}
		goals = append(goals, g)
	}
	if len(goals) > 0 {
		out.Goals = goals
	}
}

var equipmentRe = regexp.MustCompile(`(?i)\b(?:i (?:currently )?(?:use|have|own|play with)|currently (?:using|playing with)|my current paddle is)\s+(?:an?\s+|the\s+|my\s+)?([a-z0-9][a-z0-9 .'-]{0,40}?\s?paddle)\b`)

func detectCurrentEquipment(m message, out *domain.UserContext) {
	if sm := equipmentRe.FindStringSubmatch(m.raw); sm != nil {
		out.CurrentEquipment = strings.TrimSpace(sm[1])
	}
}

var (
	comparisonCueRe = regexp.MustCompile(`\b(compare|comparison|comparing|vs\.?|versus|difference|better)\b`)
	criteriaTerms   = []string{"power", "control", "spin", "weight", "price", "durability", "grip", "sweet spot", "feel", "pop", "maneuverability"}
	criteriaRes     = func() []*regexp.Regexp {
		out := make([]*regexp.Regexp, len(criteriaTerms))
		for i, t := range criteriaTerms {
			out[i] = regexp.MustCompile(`\b` + regexp.QuoteMeta(t) + `\b`)
		}
		return out
	}()
)

func detectComparisonCriteria(m message, out *domain.UserContext) {
	if !comparisonCueRe.MatchString(m.lower) {
		return
	}
	var criteria []string
	for i, re := range criteriaRes {
		if re.MatchString(m.lower) {
			criteria = append(criteria, criteriaTerms[i])
		}
	}
	if len(criteria) > 0 {
		out.ComparisonCriteria = criteria
	}
}

var duprGoalRe = regexp.MustCompile(`\b(?:reach|get to|hit|break|climb to|become)\s+(?:an?\s+)?(\d\.\d{1,2})(?:\s*(?:dupr|rating))?`)

func detectDuprGoals(m message, out *domain.UserContext) {
	var goals []string
	for _, sm := range duprGoalRe.FindAllStringSubmatch(m.lower, -1) {
		goals = append(goals, sm[1])
	}
	if len(goals) > 0 {
		out.DuprGoals = goals
	}
}

var duprScoreRes = []*regexp.Regexp{
	regexp.MustCompile(`\b(\d(?:\.\d{1,3})?)\s*(?:dupr|rating)\b`),
	regexp.MustCompile(`\b(?:dupr|rating)(?:\s+(?:score|rating))?(?:\s+(?:is|of))?\s+(?:a\s+)?(\d(?:\.\d{1,3})?)\b`),
}

func detectDuprScore(m message, out *domain.UserContext) {
	// Numbers that are stated as goals are not the current score.
	text := duprGoalRe.ReplaceAllString(m.lower, " ")
	for _, re := range duprScoreRes {
		sm := re.FindStringSubmatch(text)
		if sm == nil {
			continue
		}
		v, err := strconv.ParseFloat(sm[1], 64)
		if err != nil || v < 1 || v > 8 {
			continue
		}
		out.DuprScore = &v
		return
	}
}

var (
	whatIsRe       = regexp.MustCompile(`(?i)\bwhat'?s\b`)
	duprLookupRe   = regexp.MustCompile(`(?i)\b([a-z][a-z.-]*(?:\s+[a-z][a-z.-]*){0,3})'s\s+(?:dupr|rating)\b`)
	duprPersonalRe = regexp.MustCompile(`\b(?:my|get|how do i|how can i|how would i)\b.*\b(?:dupr|rating)\b`)
	duprGeneralRe  = regexp.MustCompile(`\b(?:what is|what are|how does|how do|how is|explain|tell me about)\b.*\b(?:dupr|ratings?)\b`)

	nameStopwords = map[string]bool{
		"what": true, "is": true, "the": true, "tell": true, "me": true, "about": true,
		"check": true, "find": true, "look": true, "up": true, "show": true, "get": true,
		"for": true, "of": true, "can": true, "you": true, "please": true, "do": true,
		"know": true, "does": true, "how": true, "and": true, "hey": true, "hi": true,
		"whats": true, "pull": true,
	}
	pronouns = map[string]bool{
		"my": true, "i": true, "me": true, "mine": true, "your": true, "his": true,
		"her": true, "their": true, "our": true, "its": true, "us": true, "it": true,
		"he": true, "she": true, "they": true, "we": true,
	}
)

// lookupName extracts the player named in "<name>'s dupr". Leading filler
// words are stripped; pronoun-like names are rejected.
func lookupName(raw string) (string, bool) {
	sm := duprLookupRe.FindStringSubmatch(whatIsRe.ReplaceAllString(raw, "what is"))
	if sm == nil {
		return "", false
	}
	words := strings.Fields(sm[1])
	for len(words) > 0 && nameStopwords[strings.ToLower(words[0])] {
		words = words[1:]
	}
	if len(words) == 0 || pronouns[strings.ToLower(words[0])] {
		return "", false
	}
	return strings.Join(words, " "), true
}

func detectDuprIntent(m message, out *domain.UserContext) {
	if name, ok := lookupName(m.raw); ok {
		out.DuprIntent = domain.DuprLookup
		out.PlayerName = name
		return
	}
	lower := whatIsRe.ReplaceAllString(m.lower, "what is")
	switch {
	case duprPersonalRe.MatchString(lower):
		out.DuprIntent = domain.DuprPersonal
	case duprGeneralRe.MatchString(lower):
		out.DuprIntent = domain.DuprGeneral
	}
}

var (
	placeWord       = `[A-Z][a-zA-Z.'-]+`
	placeNear       = regexp.MustCompile(`\b(?:in|near|around)\s+(` + placeWord + `(?:\s+` + placeWord + `){0,3})(?:,\s*([A-Z]{2})\b)?`)
	placeCityState  = regexp.MustCompile(`\b(` + placeWord + `(?:\s+` + placeWord + `){0,3}),\s*([A-Z]{2})\b`)
	placeZip        = regexp.MustCompile(`\b(\d{5})(?:-\d{4})?\b`)
	notPlaceStrings = map[string]bool{
		"January": true, "February": true, "March": true, "April": true, "May": true, "June": true,
		"July": true, "August": true, "September": true, "October": true, "November": true, "December": true,
		"Monday": true, "Tuesday": true, "Wednesday": true, "Thursday": true, "Friday": true,
		"Saturday": true, "Sunday": true, "I": true, "Me": true,
	}
)

func plausiblePlace(s string) bool {
	first := strings.Fields(s)[0]
	if notPlaceStrings[first] {
		return false
	}
	return s != strings.ToUpper(s)
}

// detectLocation tries "in/near/around <Place>", then "<City>, <ST>",
// then a bare ZIP code. The first form that matches wins.
func detectLocation(m message, out *domain.UserContext) {
	if sm := placeNear.FindStringSubmatch(m.raw); sm != nil && plausiblePlace(sm[1]) {
		out.Location = &domain.Location{City: sm[1], State: sm[2]}
		return
	}
	if sm := placeCityState.FindStringSubmatch(m.raw); sm != nil && plausiblePlace(sm[1]) {
		out.Location = &domain.Location{City: sm[1], State: sm[2]}
		return
	}
	if sm := placeZip.FindStringSubmatch(m.raw); sm != nil {
		out.Location = &domain.Location{Zip: sm[1]}
	}
}

var (
	travelMilesRe = regexp.MustCompile(`\bwithin\s+(\d+)\s*(?:miles|mi)\b`)
	travelRules   = []rule[domain.TravelDistance]{
		{regexp.MustCompile(`\b(nearby|close to home|close by|locally|local)\b`), domain.TravelLocal},
		{regexp.MustCompile(`\b(within (?:my|the) (?:state|region)|few hours away|regional)\b`), domain.TravelRegional},
		{regexp.MustCompile(`\b(willing to travel|travel anywhere|road trip|any distance|don't mind driving)\b`), domain.TravelAnywhere},
	}
)

func detectTravelDistance(m message, out *domain.UserContext) {
	if sm := travelMilesRe.FindStringSubmatch(m.lower); sm != nil {
		miles, _ := strconv.Atoi(sm[1])
		switch {
		case miles <= 15:
			out.TravelDistance = domain.TravelLocal
		case miles <= 75:
			out.TravelDistance = domain.TravelRegional
		default:
			out.TravelDistance = domain.TravelAnywhere
		}
		return
	}
	if v, ok := firstRule(travelRules, m.lower); ok {
		out.TravelDistance = v
	}
}

var dateRules = []rule[domain.DatePreference]{
	{regexp.MustCompile(`\bthis weekend\b`), domain.DateThisWeekend},
	{regexp.MustCompile(`\bnext (?:week|weekend)\b`), domain.DateNextWeek},
	{regexp.MustCompile(`\bthis month\b`), domain.DateThisMonth},
	{regexp.MustCompile(`\bnext month\b`), domain.DateNextMonth},
	{regexp.MustCompile(`\b(any ?time|flexible|whenever)\b`), domain.DateFlexible},
}

func detectDatePreference(m message, out *domain.UserContext) {
	if v, ok := firstRule(dateRules, m.lower); ok {
		out.DatePreference = v
	}
}

var (
	skillNumberRe = regexp.MustCompile(`(?:^|[^$\d.])([1-8]\.\d{1,2})\b`)
	skillBucketRe = regexp.MustCompile(`\b(beginner|intermediate|advanced|open|pro)\s+(?:division|bracket|level|skill level)\b`)
)

func detectSkillLevel(m message, out *domain.UserContext) {
	if sm := skillNumberRe.FindStringSubmatch(m.lower); sm != nil {
		out.SkillLevel = sm[1]
		return
	}
	if sm := skillBucketRe.FindStringSubmatch(m.lower); sm != nil {
		out.SkillLevel = sm[1]
	}
}

var tournamentRules = []rule[domain.TournamentPreference]{
	{regexp.MustCompile(`\bmixed(?: doubles)?\b`), domain.TournamentMixedDoubles},
	{regexp.MustCompile(`\bdoubles\b`), domain.TournamentDoubles},
	{regexp.MustCompile(`\bsingles\b`), domain.TournamentSingles},
}

func detectTournamentPreference(m message, out *domain.UserContext) {
	if v, ok := firstRule(tournamentRules, m.lower); ok {
		out.TournamentPreference = v
	}
}
