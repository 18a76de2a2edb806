// Package access decides whether a user may reach a page or endpoint of a
// given protection level, and where to send them when they may not.
package access

import (
	"net/http"

	"github.com/harentsoaR/armline-api/internal/models"
)

type Level int

const (
	Public Level = iota
	// Member is any signed-in student or parent whose email is verified and whose account is approved.
	Member
	// Admin is an approved admin or superAdmin.
	Admin
	SuperAdmin
)

const (
	MemberLogin = "/login"
	AdminLogin  = "/admin/login"
)

func (l Level) String() string {
	switch l {
	case Public:
		return "public"
	case Member:
		return "member"
	case Admin:
		return "admin"
	case SuperAdmin:
		return "superAdmin"
	}
	return "unknown"
}

// LoginPath is where a visitor rejected at level l is sent.
func (l Level) LoginPath() string {
	if l == Member {
		return MemberLogin
	}
	return AdminLogin
}

type Decision struct {
	Allowed  bool
	Status   int
	Redirect string
}

var allow = Decision{Allowed: true, Status: http.StatusOK}

// Evaluate returns the guard decision for user at level. A nil user means nobody is signed in.
func Evaluate(level Level, user *models.User) Decision {
	if level == Public {
		return allow
	}
	if user == nil {
		return Decision{Status: http.StatusUnauthorized, Redirect: level.LoginPath()}
	}
	if satisfies(level, user) {
		return allow
	}
	return Decision{Status: http.StatusForbidden, Redirect: level.LoginPath()}
}

func satisfies(level Level, u *models.User) bool {
	if !u.IsApproved() {
		return false
	}
	switch level {
	case Member:
		return u.EmailVerified
	case Admin:
		return u.IsAdmin()
	case SuperAdmin:
		return u.Role == models.RoleSuperAdmin
	}
	return false
}

// HomeFor is the landing page of a signed-in user.
func HomeFor(u *models.User) string {
	switch u.Role {
	case models.RoleSuperAdmin:
		return "/admin/accounts"
	case models.RoleAdmin:
		return "/admin/reports"
	}
	return "/dashboard"
}
