// Package knowledge holds the topic knowledge base the assistant routes on.
//
// Categories are plain table rows. Registration order matters: the intent
// classifier breaks exact score ties in favour of the earlier category.
package knowledge

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/ashureev/pickleai/internal/domain"
)

var (
	// ErrDuplicateCategory is returned when two categories share a name.
	ErrDuplicateCategory = errors.New("duplicate category")
	// ErrUnknownCategory is returned when a name is not registered.
	ErrUnknownCategory = errors.New("unknown category")
	// ErrInvalidCategory is returned for malformed category definitions.
	ErrInvalidCategory = errors.New("invalid category")
)

// Category is one topical bucket the assistant can specialize around.
type Category struct {
	Name              string                   `yaml:"name" json:"name"`
	DisplayName       string                   `yaml:"display_name" json:"display_name"`
	Keywords          []string                 `yaml:"keywords" json:"keywords"`
	RequiredInfo      []domain.Slot            `yaml:"required_info" json:"required_info"`
	OptionalInfo      []domain.Slot            `yaml:"optional_info" json:"optional_info"`
	FollowUpQuestions map[domain.Slot][]string `yaml:"follow_up_questions" json:"follow_up_questions,omitempty"`
	Resources         []string                 `yaml:"resources,omitempty" json:"resources,omitempty"`
}

// Title returns the display name, falling back to the identifier.
func (c Category) Title() string {
	if c.DisplayName != "" {
		return c.DisplayName
	}
	return c.Name
}

// Questions returns the candidate follow-up questions for a slot.
func (c Category) Questions(slot domain.Slot) []string {
	return c.FollowUpQuestions[slot]
}

func (c Category) validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidCategory)
	}
	if len(c.Keywords) == 0 {
		return fmt.Errorf("%w: %s has no keywords", ErrInvalidCategory, c.Name)
	}
	for _, kw := range c.Keywords {
		if kw == "" || kw != strings.ToLower(kw) {
			return fmt.Errorf("%w: %s keyword %q must be non-empty lowercase", ErrInvalidCategory, c.Name, kw)
		}
	}
	for _, s := range slices.Concat(c.RequiredInfo, c.OptionalInfo) {
		if !domain.IsValidSlot(s) {
			return fmt.Errorf("%w: %s references unknown slot %q", ErrInvalidCategory, c.Name, s)
		}
	}
	for s := range c.FollowUpQuestions {
		if !domain.IsValidSlot(s) {
			return fmt.Errorf("%w: %s has questions for unknown slot %q", ErrInvalidCategory, c.Name, s)
		}
	}
	return nil
}

// Registry is an ordered, immutable set of categories.
type Registry struct {
	categories []Category
	index      map[string]int
}

// NewRegistry validates and registers categories in the given order.
func NewRegistry(categories ...Category) (*Registry, error) {
	r := &Registry{
		categories: make([]Category, 0, len(categories)),
		index:      make(map[string]int, len(categories)),
	}
	for _, c := range categories {
		if err := c.validate(); err != nil {
			return nil, err
		}
		if _, exists := r.index[c.Name]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateCategory, c.Name)
		}
		r.index[c.Name] = len(r.categories)
		r.categories = append(r.categories, c)
	}
	return r, nil
}

// Categories returns the categories in registration order.
func (r *Registry) Categories() []Category {
	return slices.Clone(r.categories)
}

// Names returns the category names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.categories))
	for i, c := range r.categories {
		names[i] = c.Name
	}
	return names
}

// Lookup finds a category by name.
func (r *Registry) Lookup(name string) (Category, bool) {
	i, ok := r.index[name]
	if !ok {
		return Category{}, false
	}
	return r.categories[i], true
}

// Len returns the number of registered categories.
func (r *Registry) Len() int {
	return len(r.categories)
}

// Overlay returns a new registry where categories with an existing name
// replace the original in place and new names are appended at the end.
func (r *Registry) Overlay(extra []Category) (*Registry, error) {
	merged := r.Categories()
	for _, c := range extra {
		if i, ok := r.index[c.Name]; ok {
			merged[i] = c
			continue
		}
		merged = append(merged, c)
	}
	return NewRegistry(merged...)
}
