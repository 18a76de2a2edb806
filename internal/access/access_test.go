package access

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/harentsoaR/armline-api/internal/models"
)

func user(role, status string, verified bool) *models.User {
	return &models.User{Role: role, Status: status, EmailVerified: verified}
}

func TestEvaluate(t *testing.T) {
	t.Parallel()

	student := user(models.RoleStudent, models.AccountApproved, true)
	unverified := user(models.RoleParent, models.AccountApproved, false)
	pending := user(models.RoleStudent, models.AccountPending, true)
	admin := user(models.RoleAdmin, models.AccountApproved, false)
	rejectedAdmin := user(models.RoleAdmin, models.AccountRejected, true)
	super := user(models.RoleSuperAdmin, models.AccountApproved, true)

	tests := []struct {
		name  string
		level Level
		user  *models.User
		want  Decision
	}{
		{"public anonymous", Public, nil, Decision{Allowed: true, Status: http.StatusOK}},
		{"member anonymous", Member, nil, Decision{Status: http.StatusUnauthorized, Redirect: "/login"}},
		{"member ok", Member, student, Decision{Allowed: true, Status: http.StatusOK}},
		{"member unverified", Member, unverified, Decision{Status: http.StatusForbidden, Redirect: "/login"}},
		{"member pending", Member, pending, Decision{Status: http.StatusForbidden, Redirect: "/login"}},
		{"admin anonymous", Admin, nil, Decision{Status: http.StatusUnauthorized, Redirect: "/admin/login"}},
		{"admin as student", Admin, student, Decision{Status: http.StatusForbidden, Redirect: "/admin/login"}},
		{"admin ok", Admin, admin, Decision{Allowed: true, Status: http.StatusOK}},
		{"admin rejected", Admin, rejectedAdmin, Decision{Status: http.StatusForbidden, Redirect: "/admin/login"}},
		{"admin as super", Admin, super, Decision{Allowed: true, Status: http.StatusOK}},
		{"super as admin", SuperAdmin, admin, Decision{Status: http.StatusForbidden, Redirect: "/admin/login"}},
		{"super as student", SuperAdmin, student, Decision{Status: http.StatusForbidden, Redirect: "/admin/login"}},
		{"super ok", SuperAdmin, super, Decision{Allowed: true, Status: http.StatusOK}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Evaluate(tt.level, tt.user))
		})
	}
}

func TestHomeFor(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "/admin/accounts", HomeFor(&models.User{Role: models.RoleSuperAdmin}))
	assert.Equal(t, "/admin/reports", HomeFor(&models.User{Role: models.RoleAdmin}))
	assert.Equal(t, "/dashboard", HomeFor(&models.User{Role: models.RoleStudent}))
}
