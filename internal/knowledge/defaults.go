package knowledge

import "github.com/ashureev/pickleai/internal/domain"

// Category identifiers of the built-in knowledge base.
const (
	CategorySkills               = "skills"
	CategoryRules                = "rules"
	CategoryEquipment            = "equipment"
	CategoryGeneral              = "general"
	CategoryPaddleRecommendation = "paddleRecommendation"
	CategoryPaddleComparison     = "paddleComparison"
	CategoryDuprRating           = "duprRating"
	CategoryTournamentFinder     = "tournamentFinder"
	CategorySkillDevelopment     = "skillDevelopment"
	CategoryStrategyAdvice       = "strategyAdvice"
	CategoryEquipmentGeneral     = "equipmentGeneral"
	CategoryRulesAndRegulations  = "rulesAndRegulations"
)

// questionBank holds the default follow-up wording per slot.
var questionBank = map[domain.Slot][]string{
	domain.SlotExperience: {
		"How long have you been playing pickleball?",
		"Would you call yourself a beginner, intermediate, or advanced player?",
	},
	domain.SlotBudget: {
		"What's your budget for this?",
		"Do you have a price range in mind?",
	},
	domain.SlotPlayFrequency: {
		"How often do you play?",
		"How many times a week do you usually get on the court?",
	},
	domain.SlotPlayStyle: {
		"Do you lean toward a power game or a control game?",
		"How would you describe your playing style?",
	},
	domain.SlotPhysicalConsiderations: {
		"Do you have any arm, wrist, or elbow issues I should keep in mind?",
		"Any injuries or physical considerations that affect how you play?",
	},
	domain.SlotGoals: {
		"What would you most like to improve right now?",
		"What are your main goals with pickleball?",
	},
	domain.SlotLocation: {
		"What city or zip code are you in?",
		"Where are you located?",
	},
	domain.SlotTravelDistance: {
		"How far are you willing to travel?",
		"Are you looking for something local, or would you travel for it?",
	},
	domain.SlotSkillLevel: {
		"What skill level or rating do you usually play at?",
		"Which skill division would you enter, like 3.0, 3.5, or 4.0?",
	},
	domain.SlotTournamentPreference: {
		"Do you prefer singles, doubles, or mixed doubles?",
		"Which format do you like to play?",
	},
	domain.SlotDatePreference: {
		"When are you hoping to play?",
		"Are you looking at this weekend, or further out?",
	},
	domain.SlotCurrentEquipment: {
		"What paddle are you using right now?",
		"What gear do you currently play with?",
	},
	domain.SlotComparisonCriteria: {
		"What matters most to you when comparing them: power, control, spin, or price?",
		"Which qualities are you trying to compare?",
	},
	domain.SlotDuprScore: {
		"Do you already have a DUPR rating? If so, what is it?",
		"What's your current DUPR?",
	},
	domain.SlotDuprGoals: {
		"Is there a DUPR rating you're working toward?",
		"What rating would you like to reach?",
	},
	domain.SlotDuprIntent: {
		"Are you asking about your own DUPR, looking up another player, or curious how DUPR works?",
	},
	domain.SlotPlayerName: {
		"Which player would you like to look up?",
	},
}

// ask builds a follow-up table from the question bank.
func ask(slots ...domain.Slot) map[domain.Slot][]string {
	out := make(map[domain.Slot][]string, len(slots))
	for _, s := range slots {
		out[s] = questionBank[s]
	}
	return out
}

// DefaultCategories is the built-in knowledge base in registration order.
var DefaultCategories = []Category{
	{
		Name:        CategorySkills,
		DisplayName: "Skills & Technique",
		Keywords: []string{
			"technique", "drill", "dink", "third shot", "drop shot", "serve",
			"volley", "footwork", "backhand", "forehand", "lob", "erne", "reset",
		},
		RequiredInfo:      []domain.Slot{domain.SlotExperience},
		OptionalInfo:      []domain.Slot{domain.SlotGoals, domain.SlotPlayFrequency},
		FollowUpQuestions: ask(domain.SlotExperience, domain.SlotGoals, domain.SlotPlayFrequency),
	},
	{
		Name:        CategoryRules,
		DisplayName: "Rules",
		Keywords: []string{
			"rule", "kitchen", "non-volley zone", "fault", "scoring", "score",
			"double bounce", "two-bounce", "out of bounds", "line call",
		},
		Resources: []string{"https://usapickleball.org/what-is-pickleball/official-rules/"},
	},
	{
		Name:              CategoryEquipment,
		DisplayName:       "Equipment",
		Keywords:          []string{"paddle", "ball", "gear", "equipment", "grip"},
		RequiredInfo:      []domain.Slot{domain.SlotExperience},
		OptionalInfo:      []domain.Slot{domain.SlotBudget, domain.SlotPlayStyle},
		FollowUpQuestions: ask(domain.SlotExperience, domain.SlotBudget, domain.SlotPlayStyle),
	},
	{
		Name:        CategoryGeneral,
		DisplayName: "General Pickleball",
		Keywords:    []string{"pickleball", "court", "game", "play", "partner", "club", "open play"},
	},
	{
		Name:        CategoryPaddleRecommendation,
		DisplayName: "Paddle Recommendation",
		Keywords: []string{
			"paddle", "recommend", "which paddle", "what paddle", "best paddle",
			"new paddle", "first paddle", "paddle for", "buy", "purchase",
			"budget", "should i get", "upgrade",
		},
		RequiredInfo: []domain.Slot{domain.SlotExperience, domain.SlotBudget},
		OptionalInfo: []domain.Slot{
			domain.SlotPlayFrequency, domain.SlotPlayStyle,
			domain.SlotPhysicalConsiderations, domain.SlotCurrentEquipment,
		},
		FollowUpQuestions: map[domain.Slot][]string{
			domain.SlotExperience: {
				"How long have you been playing pickleball?",
				"Are you just starting out, or have you been playing for a while?",
			},
			domain.SlotBudget: {
				"What's your budget for a new paddle?",
				"Are you looking for something budget-friendly, mid-range, or premium?",
			},
			domain.SlotPlayFrequency:          questionBank[domain.SlotPlayFrequency],
			domain.SlotPlayStyle:              questionBank[domain.SlotPlayStyle],
			domain.SlotPhysicalConsiderations: questionBank[domain.SlotPhysicalConsiderations],
			domain.SlotCurrentEquipment:       questionBank[domain.SlotCurrentEquipment],
		},
	},
	{
		Name:        CategoryPaddleComparison,
		DisplayName: "Paddle Comparison",
		Keywords: []string{
			"compare", "comparison", "versus", " vs ", "difference between",
			"better than", "which is better",
		},
		RequiredInfo:      []domain.Slot{domain.SlotComparisonCriteria},
		OptionalInfo:      []domain.Slot{domain.SlotExperience, domain.SlotPlayStyle},
		FollowUpQuestions: ask(domain.SlotComparisonCriteria, domain.SlotExperience, domain.SlotPlayStyle),
	},
	{
		Name:              CategoryDuprRating,
		DisplayName:       "DUPR Rating",
		Keywords:          []string{"dupr", "rating", "rated", "skill rating"},
		RequiredInfo:      []domain.Slot{domain.SlotDuprIntent},
		OptionalInfo:      []domain.Slot{domain.SlotDuprScore, domain.SlotDuprGoals},
		FollowUpQuestions: ask(domain.SlotDuprIntent, domain.SlotDuprScore, domain.SlotDuprGoals, domain.SlotPlayerName),
		Resources:         []string{"https://www.mydupr.com"},
	},
	{
		Name:        CategoryTournamentFinder,
		DisplayName: "Tournament Finder",
		Keywords: []string{
			"tournament", "compete", "competition", "bracket", "events near",
			"sign up for", "register for",
		},
		RequiredInfo: []domain.Slot{domain.SlotLocation, domain.SlotSkillLevel},
		OptionalInfo: []domain.Slot{
			domain.SlotTravelDistance, domain.SlotDatePreference, domain.SlotTournamentPreference,
		},
		FollowUpQuestions: ask(
			domain.SlotLocation, domain.SlotSkillLevel, domain.SlotTravelDistance,
			domain.SlotDatePreference, domain.SlotTournamentPreference,
		),
		Resources: []string{"https://pickleballtournaments.com"},
	},
	{
		Name:        CategorySkillDevelopment,
		DisplayName: "Skill Development",
		Keywords: []string{
			"improve", "get better", "level up", "practice plan", "training",
			"coach", "lesson", "progress", "next level",
		},
		RequiredInfo:      []domain.Slot{domain.SlotExperience, domain.SlotGoals},
		OptionalInfo:      []domain.Slot{domain.SlotPlayFrequency, domain.SlotPhysicalConsiderations},
		FollowUpQuestions: ask(domain.SlotExperience, domain.SlotGoals, domain.SlotPlayFrequency, domain.SlotPhysicalConsiderations),
	},
	{
		Name:        CategoryStrategyAdvice,
		DisplayName: "Strategy Advice",
		Keywords: []string{
			"strategy", "strategies", "tactic", "doubles", "singles", "positioning",
			"stacking", "shot selection", "game plan", "opponent",
		},
		RequiredInfo:      []domain.Slot{domain.SlotExperience},
		OptionalInfo:      []domain.Slot{domain.SlotTournamentPreference, domain.SlotPlayStyle},
		FollowUpQuestions: ask(domain.SlotExperience, domain.SlotTournamentPreference, domain.SlotPlayStyle),
	},
	{
		Name:        CategoryEquipmentGeneral,
		DisplayName: "Equipment & Gear",
		Keywords: []string{
			"shoes", "court shoes", "bag", "overgrip", "eyewear", "apparel",
			"clothing", "portable net", "outdoor ball", "indoor ball",
		},
		OptionalInfo:      []domain.Slot{domain.SlotBudget, domain.SlotExperience},
		FollowUpQuestions: ask(domain.SlotBudget, domain.SlotExperience),
	},
	{
		Name:        CategoryRulesAndRegulations,
		DisplayName: "Rules & Regulations",
		Keywords: []string{
			"regulation", "official rule", "rulebook", "usa pickleball",
			"sanctioned", "legal", "illegal", "approved paddle",
		},
		OptionalInfo:      []domain.Slot{domain.SlotTournamentPreference},
		FollowUpQuestions: ask(domain.SlotTournamentPreference),
		Resources:         []string{"https://usapickleball.org/what-is-pickleball/official-rules/"},
	},
}

// Default returns a registry of the built-in categories.
func Default() *Registry {
	r, err := NewRegistry(DefaultCategories...)
	if err != nil {
		panic("knowledge: invalid default categories: " + err.Error())
	}
	return r
}
