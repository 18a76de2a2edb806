package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/harentsoaR/armline-api/internal/models"
)

func TestNextStatuses(t *testing.T) {
	t.Parallel()

	cases := map[string][]string{
		models.StatusSubmitted:   {models.StatusUnderReview},
		models.StatusUnderReview: {models.StatusActionTaken, models.StatusResolved},
		models.StatusActionTaken: {models.StatusResolved},
		models.StatusResolved:    {},
		"Archived":               {},
	}
	for from, want := range cases {
		assert.Equal(t, want, NextStatuses(from), from)
	}
}

func TestNextStatuses_ReturnsCopy(t *testing.T) {
	t.Parallel()

	next := NextStatuses(models.StatusUnderReview)
	next[0] = "mutated"
	assert.Equal(t, models.StatusActionTaken, NextStatuses(models.StatusUnderReview)[0])
}

func TestCanTransition(t *testing.T) {
	t.Parallel()

	t.Run("allowed", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, CanTransition(models.StatusSubmitted, models.StatusUnderReview))
		assert.NoError(t, CanTransition(models.StatusUnderReview, models.StatusActionTaken))
		assert.NoError(t, CanTransition(models.StatusUnderReview, models.StatusResolved))
		assert.NoError(t, CanTransition(models.StatusActionTaken, models.StatusResolved))
	})

	t.Run("skipping a step", func(t *testing.T) {
		t.Parallel()
		assert.ErrorIs(t, CanTransition(models.StatusSubmitted, models.StatusResolved), ErrNotAllowed)
		assert.ErrorIs(t, CanTransition(models.StatusSubmitted, models.StatusActionTaken), ErrNotAllowed)
	})

	t.Run("going back", func(t *testing.T) {
		t.Parallel()
		assert.ErrorIs(t, CanTransition(models.StatusResolved, models.StatusUnderReview), ErrNotAllowed)
		assert.ErrorIs(t, CanTransition(models.StatusActionTaken, models.StatusUnderReview), ErrNotAllowed)
	})

	t.Run("no-op", func(t *testing.T) {
		t.Parallel()
		for _, s := range Statuses() {
			assert.ErrorIs(t, CanTransition(s, s), ErrNoChange)
		}
	})

	t.Run("unknown", func(t *testing.T) {
		t.Parallel()
		assert.ErrorIs(t, CanTransition("Closed", models.StatusResolved), ErrUnknownStatus)
		assert.ErrorIs(t, CanTransition(models.StatusSubmitted, "Closed"), ErrUnknownStatus)
	})
}

func TestIsFinal(t *testing.T) {
	t.Parallel()

	assert.True(t, IsFinal(models.StatusResolved))
	assert.False(t, IsFinal(models.StatusSubmitted))
	assert.False(t, IsFinal("Closed"))
}

func TestTransitionMessage(t *testing.T) {
	t.Parallel()
	assert.Equal(t, `Status changed from "Submitted" to "Under Review"`,
		TransitionMessage(models.StatusSubmitted, models.StatusUnderReview))
}

func TestPriorityFor(t *testing.T) {
	t.Parallel()

	stored := []models.Category{
		{Name: "Bullying", Priority: models.PriorityHigh},
		{Name: "Vandalism", Priority: models.PriorityLow},
		{Name: "Broken", Priority: "Urgent"},
	}

	assert.Equal(t, models.PriorityHigh, PriorityFor("Bullying", stored), "stored value wins over default")
	assert.Equal(t, models.PriorityLow, PriorityFor("vandalism", stored), "case-insensitive")
	assert.Equal(t, models.PriorityHigh, PriorityFor("Physical Violence", stored), "falls back to defaults")
	assert.Equal(t, models.PriorityMedium, PriorityFor("Broken", stored), "invalid stored priority ignored")
	assert.Equal(t, models.PriorityMedium, PriorityFor("Something else", nil))
	assert.Equal(t, models.PriorityLow, PriorityFor("Other", nil))
}
