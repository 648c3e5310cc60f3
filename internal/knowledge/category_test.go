package knowledge

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ashureev/pickleai/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_RegistrationOrder(t *testing.T) {
	t.Parallel()

	r := Default()
	assert.Equal(t, []string{
		CategorySkills,
		CategoryRules,
		CategoryEquipment,
		CategoryGeneral,
		CategoryPaddleRecommendation,
		CategoryPaddleComparison,
		CategoryDuprRating,
		CategoryTournamentFinder,
		CategorySkillDevelopment,
		CategoryStrategyAdvice,
		CategoryEquipmentGeneral,
		CategoryRulesAndRegulations,
	}, r.Names())
}

func TestDefault_EveryRequiredSlotHasQuestions(t *testing.T) {
	t.Parallel()

	for _, c := range Default().Categories() {
		for _, s := range c.RequiredInfo {
			assert.NotEmpty(t, c.Questions(s), "%s/%s", c.Name, s)
		}
	}
}

func TestNewRegistry_RejectsDuplicates(t *testing.T) {
	t.Parallel()

	c := Category{Name: "a", Keywords: []string{"x"}}
	_, err := NewRegistry(c, c)
	require.ErrorIs(t, err, ErrDuplicateCategory)
}

func TestNewRegistry_RejectsUnknownSlot(t *testing.T) {
	t.Parallel()

	_, err := NewRegistry(Category{
		Name:         "a",
		Keywords:     []string{"x"},
		RequiredInfo: []domain.Slot{"shoeSize"},
	})
	require.ErrorIs(t, err, ErrInvalidCategory)
}

func TestNewRegistry_RejectsUppercaseKeyword(t *testing.T) {
	t.Parallel()

	_, err := NewRegistry(Category{Name: "a", Keywords: []string{"DUPR"}})
	require.ErrorIs(t, err, ErrInvalidCategory)
}

func TestRegistry_Lookup(t *testing.T) {
	t.Parallel()

	c, ok := Default().Lookup(CategoryDuprRating)
	require.True(t, ok)
	assert.Equal(t, "DUPR Rating", c.Title())

	_, ok = Default().Lookup("croquet")
	assert.False(t, ok)
}

func TestRegistry_OverlayReplacesInPlaceAndAppends(t *testing.T) {
	t.Parallel()

	base := Default()
	next, err := base.Overlay([]Category{
		{Name: CategoryRules, Keywords: []string{"kitchen"}},
		{Name: "courtFinder", Keywords: []string{"find a court"}},
	})
	require.NoError(t, err)

	names := next.Names()
	assert.Equal(t, CategoryRules, names[1])
	assert.Equal(t, "courtFinder", names[len(names)-1])

	rules, _ := next.Lookup(CategoryRules)
	assert.Equal(t, []string{"kitchen"}, rules.Keywords)
	// Base stays untouched.
	orig, _ := base.Lookup(CategoryRules)
	assert.Greater(t, len(orig.Keywords), 1)
}

func TestLoadYAML(t *testing.T) {
	t.Parallel()

	doc := `
categories:
  - name: courtFinder
    display_name: Court Finder
    keywords: ["find a court", "courts near"]
    required_info: [location]
    optional_info: [travelDistance]
    follow_up_questions:
      location: ["Where should I look for courts?"]
`
	path := filepath.Join(t.TempDir(), "kb.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	r, err := LoadYAML(Default(), path)
	require.NoError(t, err)

	c, ok := r.Lookup("courtFinder")
	require.True(t, ok)
	assert.Equal(t, "Court Finder", c.Title())
	assert.Equal(t, []domain.Slot{domain.SlotLocation}, c.RequiredInfo)
	assert.Equal(t, []string{"Where should I look for courts?"}, c.Questions(domain.SlotLocation))
}

func TestParseYAML_RejectsUnknownFields(t *testing.T) {
	t.Parallel()

	_, err := ParseYAML(strings.NewReader("categories:\n  - name: a\n    keywordz: [x]\n"))
	require.Error(t, err)
}

func TestLoadYAML_EmptyPathReturnsBase(t *testing.T) {
	t.Parallel()

	base := Default()
	r, err := LoadYAML(base, "")
	require.NoError(t, err)
	assert.Same(t, base, r)
}
