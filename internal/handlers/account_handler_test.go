package handlers

import (
	"net/http"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harentsoaR/armline-api/internal/events"
	"github.com/harentsoaR/armline-api/internal/models"
)

func at(hours int) *time.Time {
	t := now.Add(time.Duration(hours) * time.Hour)
	return &t
}

func TestSortAccounts(t *testing.T) {
	t.Parallel()

	mk := func(name string, created int, decided *time.Time) *models.User {
		return &models.User{FullName: name, CreatedAt: now.Add(time.Duration(created) * time.Hour), StatusUpdatedAt: decided}
	}
	names := func(users []*models.User) []string {
		return lo.Map(users, func(u *models.User, _ int) string { return u.FullName })
	}

	t.Run("pending by creation", func(t *testing.T) {
		t.Parallel()
		users := []*models.User{mk("old", 1, nil), mk("new", 3, nil), mk("mid", 2, at(10))}
		SortAccounts(users, models.AccountPending)
		assert.Equal(t, []string{"new", "mid", "old"}, names(users))
	})

	t.Run("decided first", func(t *testing.T) {
		t.Parallel()
		users := []*models.User{
			mk("undecided-new", 9, nil),
			mk("decided-early", 1, at(2)),
			mk("undecided-old", 0, nil),
			mk("decided-late", 1, at(5)),
			mk("tie-newer", 4, at(5)),
		}
		SortAccounts(users, "all")
		assert.Equal(t, []string{"tie-newer", "decided-late", "decided-early", "undecided-new", "undecided-old"}, names(users))
	})
}

func TestGetAccounts(t *testing.T) {
	t.Parallel()
	hs := newHarness(t)
	super := hs.user(t, "super", models.RoleSuperAdmin, models.AccountApproved)
	hs.user(t, "ana", models.RoleStudent, models.AccountPending)
	hs.user(t, "ben", models.RoleParent, models.AccountPending)
	hs.user(t, "carl", models.RoleAdmin, models.AccountApproved)
	r := hs.engine(super)

	w := doJSON(t, r, http.MethodGet, "/admin/accounts", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.User](t, w), 2)

	w = doJSON(t, r, http.MethodGet, "/admin/accounts?status=all", nil)
	require.Equal(t, http.StatusOK, w.Code)
	all := decode[[]models.User](t, w)
	assert.Len(t, all, 3)
	assert.NotContains(t, lo.Map(all, func(u models.User, _ int) string { return u.FullName }), "super")

	w = doJSON(t, r, http.MethodGet, "/admin/accounts?status=all&q=BEN@", nil)
	require.Equal(t, http.StatusOK, w.Code)
	found := decode[[]models.User](t, w)
	require.Len(t, found, 1)
	assert.Equal(t, "ben", found[0].FullName)

	w = doJSON(t, r, http.MethodGet, "/admin/accounts?status=deleted", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateAccountStatus(t *testing.T) {
	t.Parallel()
	hs := newHarness(t)
	super := hs.user(t, "super", models.RoleSuperAdmin, models.AccountApproved)
	ana := hs.user(t, "ana", models.RoleStudent, models.AccountPending)
	r := hs.engine(super)

	sub := hs.hub.Subscribe(10, events.UserStatusChanged)
	defer hs.hub.Unsubscribe(sub)

	w := doJSON(t, r, http.MethodPatch, "/admin/accounts/"+ana.ID.Hex()+"/status", map[string]string{"status": "pending"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPatch, "/admin/accounts/"+super.ID.Hex()+"/status", map[string]string{"status": "rejected"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPatch, "/admin/accounts/"+ana.ID.Hex()+"/status", map[string]string{"status": "approved"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got := decode[models.User](t, w)
	assert.Equal(t, models.AccountApproved, got.Status)
	require.NotNil(t, got.StatusUpdatedBy)
	assert.Equal(t, super.ID, *got.StatusUpdatedBy)

	select {
	case msg := <-sub.Receiver:
		u, ok := events.UserOf(msg)
		require.True(t, ok)
		assert.Equal(t, ana.ID, u.ID)
	case <-time.After(time.Second):
		t.Fatal("no account event")
	}

	w = doJSON(t, r, http.MethodGet, "/admin/accounts/"+ana.ID.Hex(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.AccountApproved, decode[models.User](t, w).Status)
}

func TestReferenceData(t *testing.T) {
	t.Parallel()
	hs := newHarness(t)
	super := hs.user(t, "super", models.RoleSuperAdmin, models.AccountApproved)
	r := hs.engine(super)

	w := doJSON(t, r, http.MethodPost, "/schools", map[string]string{"name": school})
	require.Equal(t, http.StatusCreated, w.Code)
	w = doJSON(t, r, http.MethodPost, "/schools", map[string]string{"name": school})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, r, http.MethodPost, "/categories", map[string]string{"name": "Cyberbullying", "priority": "Urgent"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = doJSON(t, r, http.MethodPost, "/categories", map[string]string{"name": "Cyberbullying", "priority": models.PriorityHigh})
	require.Equal(t, http.StatusCreated, w.Code)
	w = doJSON(t, r, http.MethodPost, "/categories", map[string]string{"name": "Vandalism"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, models.PriorityMedium, decode[models.Category](t, w).Priority)

	w = doJSON(t, r, http.MethodGet, "/categories", nil)
	require.Equal(t, http.StatusOK, w.Code)
	cats := decode[[]models.Category](t, w)
	assert.Equal(t, []string{"Cyberbullying", "Vandalism"}, lo.Map(cats, func(c models.Category, _ int) string { return c.Name }))

	w = doJSON(t, r, http.MethodGet, "/schools", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.School](t, w), 1)
}
