package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	RoleStudent    = "student"
	RoleParent     = "parent"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "superAdmin"
)

const (
	AccountPending  = "pending"
	AccountApproved = "approved"
	AccountRejected = "rejected"
)

type User struct {
	ID                primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	FullName          string              `bson:"fullName" json:"fullName"`
	Email             string              `bson:"email" json:"email"`
	Password          string              `bson:"password" json:"-"` // Hide from JSON responses
	Role              string              `bson:"role" json:"role"`
	UserType          string              `bson:"userType" json:"userType"`
	School            string              `bson:"school" json:"school"`
	Department        string              `bson:"department,omitempty" json:"department,omitempty"`
	Status            string              `bson:"status" json:"status"`
	EmailVerified     bool                `bson:"emailVerified" json:"emailVerified"`
	VerificationImage string              `bson:"verificationImage,omitempty" json:"verificationImage,omitempty"`
	CreatedAt         time.Time           `bson:"createdAt" json:"createdAt"`
	StatusUpdatedAt   *time.Time          `bson:"statusUpdatedAt,omitempty" json:"statusUpdatedAt,omitempty"`
	StatusUpdatedBy   *primitive.ObjectID `bson:"statusUpdatedBy,omitempty" json:"statusUpdatedBy,omitempty"`
}

// IsAdmin reports whether the user holds an administrator role of any level.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin || u.Role == RoleSuperAdmin
}

func (u *User) IsApproved() bool {
	return u.Status == AccountApproved
}

// UserTypeLabel returns the label shown next to an account for the given role.
func UserTypeLabel(role string) string {
	switch role {
	case RoleStudent:
		return "Student"
	case RoleParent:
		return "Parent or Legal Guardian"
	case RoleAdmin:
		return "Administrator"
	case RoleSuperAdmin:
		return "Super Administrator"
	}
	return ""
}

// ValidAccountStatus reports whether s is one of the account approval states.
func ValidAccountStatus(s string) bool {
	return s == AccountPending || s == AccountApproved || s == AccountRejected
}
