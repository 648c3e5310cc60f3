package domain

import (
	"slices"
	"strconv"
	"strings"
)

// Unknown is the placeholder value treated the same as an unset field.
const Unknown = "unknown"

// Slot names a single piece of accumulated user knowledge.
type Slot string

const (
	SlotExperience             Slot = "experience"
	SlotBudget                 Slot = "budget"
	SlotPlayFrequency          Slot = "playFrequency"
	SlotPlayStyle              Slot = "playStyle"
	SlotPhysicalConsiderations Slot = "physicalConsiderations"
	SlotGoals                  Slot = "goals"
	SlotLocation               Slot = "location"
	SlotTravelDistance         Slot = "travelDistance"
	SlotSkillLevel             Slot = "skillLevel"
	SlotTournamentPreference   Slot = "tournamentPreference"
	SlotDatePreference         Slot = "datePreference"
	SlotCurrentEquipment       Slot = "currentEquipment"
	SlotComparisonCriteria     Slot = "comparisonCriteria"
	SlotDuprScore              Slot = "duprScore"
	SlotDuprGoals              Slot = "duprGoals"
	SlotDuprIntent             Slot = "duprIntent"
	SlotPlayerName             Slot = "playerName"
)

// Slots lists every context slot in display order.
var Slots = []Slot{
	SlotExperience,
	SlotBudget,
	SlotPlayFrequency,
	SlotPlayStyle,
	SlotPhysicalConsiderations,
	SlotGoals,
	SlotLocation,
	SlotTravelDistance,
	SlotSkillLevel,
	SlotTournamentPreference,
	SlotDatePreference,
	SlotCurrentEquipment,
	SlotComparisonCriteria,
	SlotDuprScore,
	SlotDuprGoals,
	SlotDuprIntent,
	SlotPlayerName,
}

// IsValidSlot reports whether s names a known slot.
func IsValidSlot(s Slot) bool {
	return slices.Contains(Slots, s)
}

// ExperienceLevel is the user's self-described playing experience.
type ExperienceLevel string

const (
	ExperienceBeginner     ExperienceLevel = "beginner"
	ExperienceIntermediate ExperienceLevel = "intermediate"
	ExperienceAdvanced     ExperienceLevel = "advanced"
)

// PlayFrequency buckets how often the user plays.
type PlayFrequency string

const (
	FrequencyDaily        PlayFrequency = "daily"
	FrequencySeveralWeek  PlayFrequency = "several-times-a-week"
	FrequencyWeekly       PlayFrequency = "weekly"
	FrequencyOccasionally PlayFrequency = "occasionally"
)

// PlayStyle is the user's preferred style of play.
type PlayStyle string

const (
	StylePower      PlayStyle = "power"
	StyleControl    PlayStyle = "control"
	StyleAllAround  PlayStyle = "all-around"
	StyleDefensive  PlayStyle = "defensive"
	StyleAggressive PlayStyle = "aggressive"
)

// TravelDistance is how far the user is willing to travel to play.
type TravelDistance string

const (
	TravelLocal    TravelDistance = "local"
	TravelRegional TravelDistance = "regional"
	TravelAnywhere TravelDistance = "willing-to-travel"
)

// TournamentPreference is the event format the user prefers.
type TournamentPreference string

const (
	TournamentSingles      TournamentPreference = "singles"
	TournamentDoubles      TournamentPreference = "doubles"
	TournamentMixedDoubles TournamentPreference = "mixed-doubles"
)

// DatePreference is when the user wants to play or compete.
type DatePreference string

const (
	DateThisWeekend DatePreference = "this-weekend"
	DateNextWeek    DatePreference = "next-week"
	DateThisMonth   DatePreference = "this-month"
	DateNextMonth   DatePreference = "next-month"
	DateFlexible    DatePreference = "flexible"
)

// DuprIntent is what the user wants to do with a DUPR rating.
type DuprIntent string

const (
	DuprPersonal DuprIntent = "personal"
	DuprLookup   DuprIntent = "lookup"
	DuprGeneral  DuprIntent = "general"
)

// Location is a partially known place. Any field may be empty.
type Location struct {
	City      string   `json:"city,omitempty" yaml:"city,omitempty"`
	State     string   `json:"state,omitempty" yaml:"state,omitempty"`
	Zip       string   `json:"zip,omitempty" yaml:"zip,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty" yaml:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty" yaml:"longitude,omitempty"`
}

func (l *Location) isZero() bool {
	return l == nil || (l.City == "" && l.State == "" && l.Zip == "" && l.Latitude == nil && l.Longitude == nil)
}

// String renders the known parts, e.g. "Austin, TX 78701".
func (l *Location) String() string {
	if l.isZero() {
		return ""
	}
	var b strings.Builder
	b.WriteString(l.City)
	if l.State != "" {
		if b.Len() > 0 {
			b.WriteString(", ")
		}
		b.WriteString(l.State)
	}
	if l.Zip != "" {
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		b.WriteString(l.Zip)
	}
	if b.Len() == 0 && l.Latitude != nil && l.Longitude != nil {
		b.WriteString(strconv.FormatFloat(*l.Latitude, 'f', 4, 64))
		b.WriteString(",")
		b.WriteString(strconv.FormatFloat(*l.Longitude, 'f', 4, 64))
	}
	return b.String()
}

// UserContext is the accumulated session knowledge about the user.
// Empty values and the literal "unknown" both mean the field is not known.
type UserContext struct {
	Experience             ExperienceLevel      `json:"experience,omitempty" yaml:"experience,omitempty"`
	Budget                 string               `json:"budget,omitempty" yaml:"budget,omitempty"`
	PlayFrequency          PlayFrequency        `json:"playFrequency,omitempty" yaml:"playFrequency,omitempty"`
	PlayStyle              PlayStyle            `json:"playStyle,omitempty" yaml:"playStyle,omitempty"`
	PhysicalConsiderations string               `json:"physicalConsiderations,omitempty" yaml:"physicalConsiderations,omitempty"`
	Goals                  []string             `json:"goals,omitempty" yaml:"goals,omitempty"`
	Location               *Location            `json:"location,omitempty" yaml:"location,omitempty"`
	TravelDistance         TravelDistance       `json:"travelDistance,omitempty" yaml:"travelDistance,omitempty"`
	SkillLevel             string               `json:"skillLevel,omitempty" yaml:"skillLevel,omitempty"`
	TournamentPreference   TournamentPreference `json:"tournamentPreference,omitempty" yaml:"tournamentPreference,omitempty"`
	DatePreference         DatePreference       `json:"datePreference,omitempty" yaml:"datePreference,omitempty"`
	CurrentEquipment       string               `json:"currentEquipment,omitempty" yaml:"currentEquipment,omitempty"`
	ComparisonCriteria     []string             `json:"comparisonCriteria,omitempty" yaml:"comparisonCriteria,omitempty"`
	DuprScore              *float64             `json:"duprScore,omitempty" yaml:"duprScore,omitempty"`
	DuprGoals              []string             `json:"duprGoals,omitempty" yaml:"duprGoals,omitempty"`
	DuprIntent             DuprIntent           `json:"duprIntent,omitempty" yaml:"duprIntent,omitempty"`
	PlayerName             string               `json:"playerName,omitempty" yaml:"playerName,omitempty"`
}

func known(s string) bool {
	return s != "" && !strings.EqualFold(s, Unknown)
}

// Merge returns a copy of c with every field that is known in update
// overwritten. Fields update leaves unset are never cleared.
func (c UserContext) Merge(update UserContext) UserContext {
	out := c.Clone()
	if known(string(update.Experience)) {
		out.Experience = update.Experience
	}
	if known(update.Budget) {
		out.Budget = update.Budget
	}
	if known(string(update.PlayFrequency)) {
		out.PlayFrequency = update.PlayFrequency
	}
	if known(string(update.PlayStyle)) {
		out.PlayStyle = update.PlayStyle
	}
	if known(update.PhysicalConsiderations) {
		out.PhysicalConsiderations = update.PhysicalConsiderations
	}
	if len(update.Goals) > 0 {
		out.Goals = slices.Clone(update.Goals)
	}
	if !update.Location.isZero() {
		out.Location = update.Location.clone()
	}
	if known(string(update.TravelDistance)) {
		out.TravelDistance = update.TravelDistance
	}
	if known(update.SkillLevel) {
		out.SkillLevel = update.SkillLevel
	}
	if known(string(update.TournamentPreference)) {
		out.TournamentPreference = update.TournamentPreference
	}
	if known(string(update.DatePreference)) {
		out.DatePreference = update.DatePreference
	}
	if known(update.CurrentEquipment) {
		out.CurrentEquipment = update.CurrentEquipment
	}
	if len(update.ComparisonCriteria) > 0 {
		out.ComparisonCriteria = slices.Clone(update.ComparisonCriteria)
	}
	if update.DuprScore != nil {
		v := *update.DuprScore
		out.DuprScore = &v
	}
	if len(update.DuprGoals) > 0 {
		out.DuprGoals = slices.Clone(update.DuprGoals)
	}
	if known(string(update.DuprIntent)) {
		out.DuprIntent = update.DuprIntent
	}
	if known(update.PlayerName) {
		out.PlayerName = update.PlayerName
	}
	return out
}

// clone copies l including its coordinates.
func (l *Location) clone() *Location {
	out := *l
	if l.Latitude != nil {
		lat := *l.Latitude
		out.Latitude = &lat
	}
	if l.Longitude != nil {
		lng := *l.Longitude
		out.Longitude = &lng
	}
	return &out
}

// Clone returns a deep copy so snapshots never share slices or pointers.
func (c UserContext) Clone() UserContext {
	out := c
	out.Goals = slices.Clone(c.Goals)
	out.ComparisonCriteria = slices.Clone(c.ComparisonCriteria)
	out.DuprGoals = slices.Clone(c.DuprGoals)
	if c.Location != nil {
		out.Location = c.Location.clone()
	}
	if c.DuprScore != nil {
		v := *c.DuprScore
		out.DuprScore = &v
	}
	return out
}

// Value renders the slot as display text and reports whether it is known.
func (c UserContext) Value(slot Slot) (string, bool) {
	var v string
	switch slot {
	case SlotExperience:
		v = string(c.Experience)
	case SlotBudget:
		v = c.Budget
	case SlotPlayFrequency:
		v = string(c.PlayFrequency)
	case SlotPlayStyle:
		v = string(c.PlayStyle)
	case SlotPhysicalConsiderations:
		v = c.PhysicalConsiderations
	case SlotGoals:
		v = strings.Join(c.Goals, ", ")
	case SlotLocation:
		v = c.Location.String()
	case SlotTravelDistance:
		v = string(c.TravelDistance)
	case SlotSkillLevel:
		v = c.SkillLevel
	case SlotTournamentPreference:
		v = string(c.TournamentPreference)
	case SlotDatePreference:
		v = string(c.DatePreference)
	case SlotCurrentEquipment:
		v = c.CurrentEquipment
	case SlotComparisonCriteria:
		v = strings.Join(c.ComparisonCriteria, ", ")
	case SlotDuprScore:
		if c.DuprScore != nil {
			v = strconv.FormatFloat(*c.DuprScore, 'f', -1, 64)
		}
	case SlotDuprGoals:
		v = strings.Join(c.DuprGoals, ", ")
	case SlotDuprIntent:
		v = string(c.DuprIntent)
	case SlotPlayerName:
		v = c.PlayerName
	}
	if !known(v) {
		return "", false
	}
	return v, true
}

// Has reports whether the slot holds a known value.
func (c UserContext) Has(slot Slot) bool {
	_, ok := c.Value(slot)
	return ok
}

// Field is one known slot rendered for display.
type Field struct {
	Slot  Slot
	Value string
}

// Known returns every known slot in display order.
func (c UserContext) Known() []Field {
	var fields []Field
	for _, s := range Slots {
		if v, ok := c.Value(s); ok {
			fields = append(fields, Field{Slot: s, Value: v})
		}
	}
	return fields
}

// IsZero reports whether nothing is known yet.
func (c UserContext) IsZero() bool {
	return len(c.Known()) == 0
}
