package handlers

import (
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/harentsoaR/armline-api/internal/events"
	"github.com/harentsoaR/armline-api/internal/middleware"
	"github.com/harentsoaR/armline-api/internal/models"
	"github.com/harentsoaR/armline-api/internal/repository"
)

const accountsAll = "all"

// GetAccounts lists the accounts of the superAdmin's school for one approval
// tab (pending by default), optionally searched by name or email.
func (h *Handler) GetAccounts(c *gin.Context) {
	admin := middleware.CurrentUser(c)
	status := c.DefaultQuery("status", models.AccountPending)
	if status != accountsAll && !models.ValidAccountStatus(status) {
		badRequest(c, "Unknown status filter.")
		return
	}

	filter := repository.UserFilter{School: admin.School}
	if status != accountsAll {
		filter.Status = status
	}
	users, err := h.Repo.ListUsers(c.Request.Context(), filter)
	if err != nil {
		h.storeError(c, err, "Account")
		return
	}

	q := strings.ToLower(strings.TrimSpace(c.Query("q")))
	users = lo.Filter(users, func(u *models.User, _ int) bool {
		if u.ID == admin.ID {
			return false
		}
		return q == "" ||
			strings.Contains(strings.ToLower(u.FullName), q) ||
			strings.Contains(strings.ToLower(u.Email), q)
	})
	SortAccounts(users, status)

	c.JSON(http.StatusOK, lo.Map(users, func(u *models.User, _ int) *models.User { return profile(u) }))
}

// SortAccounts orders an account tab. Pending accounts are newest first.
// Every other tab puts accounts with a status decision first, latest decision
// first, then the rest by creation date, newest first.
func SortAccounts(users []*models.User, status string) {
	if status == models.AccountPending {
		sort.SliceStable(users, func(i, j int) bool { return users[i].CreatedAt.After(users[j].CreatedAt) })
		return
	}
	sort.SliceStable(users, func(i, j int) bool {
		a, b := users[i], users[j]
		switch {
		case a.StatusUpdatedAt != nil && b.StatusUpdatedAt != nil:
			if !a.StatusUpdatedAt.Equal(*b.StatusUpdatedAt) {
				return a.StatusUpdatedAt.After(*b.StatusUpdatedAt)
			}
		case a.StatusUpdatedAt != nil:
			return true
		case b.StatusUpdatedAt != nil:
			return false
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
}

// schoolAccount loads the :id account if it belongs to the superAdmin's school.
func (h *Handler) schoolAccount(c *gin.Context) (*models.User, *models.User, bool) {
	admin := middleware.CurrentUser(c)
	id, ok := pathID(c, "Account")
	if !ok {
		return nil, nil, false
	}
	user, err := h.Repo.GetUserByID(c.Request.Context(), id)
	if err != nil {
		h.storeError(c, err, "Account")
		return nil, nil, false
	}
	if user.School != admin.School {
		c.JSON(http.StatusNotFound, gin.H{"error": "Account not found"})
		return nil, nil, false
	}
	return user, admin, true
}

// GetAccount returns one account, verification document included.
func (h *Handler) GetAccount(c *gin.Context) {
	user, _, ok := h.schoolAccount(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, user)
}

// UpdateAccountStatus approves or rejects an account.
func (h *Handler) UpdateAccountStatus(c *gin.Context) {
	user, admin, ok := h.schoolAccount(c)
	if !ok {
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	if req.Status != models.AccountApproved && req.Status != models.AccountRejected {
		badRequest(c, "Status must be approved or rejected.")
		return
	}
	if user.ID == admin.ID {
		badRequest(c, "You cannot change the status of your own account.")
		return
	}

	updated, err := h.Repo.UpdateUserStatus(c.Request.Context(), user.ID, req.Status, admin.ID, h.now())
	if err != nil {
		h.storeError(c, err, "Account")
		return
	}
	events.PublishUserStatus(h.Hub, updated)
	h.log(c).Info("account status changed",
		zap.String("userId", updated.ID.Hex()),
		zap.String("status", updated.Status),
		zap.String("by", admin.ID.Hex()),
	)
	c.JSON(http.StatusOK, profile(updated))
}
