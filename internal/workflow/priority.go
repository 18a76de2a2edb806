package workflow

import (
	"strings"

	"github.com/samber/lo"

	"github.com/harentsoaR/armline-api/internal/models"
)

// DefaultCategories is the category list seeded into a fresh database and
// consulted when a report names a category that is not stored.
var DefaultCategories = []models.Category{
	{Name: "Bullying", Priority: models.PriorityMedium},
	{Name: "Discrimination", Priority: models.PriorityMedium},
	{Name: "Harassment", Priority: models.PriorityMedium},
	{Name: "Mental Health Concern", Priority: models.PriorityHigh},
	{Name: "Other", Priority: models.PriorityLow},
	{Name: "Physical Violence", Priority: models.PriorityHigh},
}

func ValidPriority(p string) bool {
	return p == models.PriorityHigh || p == models.PriorityMedium || p == models.PriorityLow
}

// PriorityFor derives a report's priority from its category, preferring the
// stored category list over the defaults.
func PriorityFor(category string, stored []models.Category) string {
	match := func(c models.Category) bool { return strings.EqualFold(c.Name, category) }
	if c, ok := lo.Find(stored, match); ok && ValidPriority(c.Priority) {
		return c.Priority
	}
	if c, ok := lo.Find(DefaultCategories, match); ok {
		return c.Priority
	}
	return models.PriorityMedium
}
