package validator

import (
	"errors"
	"strings"

	vd "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/harentsoaR/armline-api/internal/models"
)

const MinPasswordLength = 8

// Departments an administrator can register under.
var Departments = []string{"Preschool", "Elementary", "Junior High School", "Senior High School"}

var passwordRules = []vd.Rule{
	vd.Required.Error("Password is required."),
	vd.RuneLength(MinPasswordLength, 128).Error("Password must be at least 8 characters."),
}

// SignUp is the student / parent registration form.
type SignUp struct {
	FullName          string `json:"fullName"`
	Email             string `json:"email"`
	Password          string `json:"password"`
	ConfirmPassword   string `json:"confirmPassword"`
	UserType          string `json:"userType"`
	School            string `json:"school"`
	VerificationImage string `json:"verificationImage"`
}

// Role maps the form's user type, either a role name or its display label, to a role.
func (s SignUp) Role() string {
	switch strings.ToLower(strings.TrimSpace(s.UserType)) {
	case models.RoleStudent:
		return models.RoleStudent
	case models.RoleParent, "parent or legal guardian", "guardian":
		return models.RoleParent
	}
	return ""
}

func (s SignUp) Validate() error {
	return vd.ValidateStruct(&s,
		vd.Field(&s.FullName, NotBlank("Full name is required.")),
		vd.Field(&s.Email, vd.Required.Error("Email is required."), is.EmailFormat.Error("Please enter a valid email address.")),
		vd.Field(&s.Password, passwordRules...),
		vd.Field(&s.ConfirmPassword, vd.By(matches(s.Password))),
		vd.Field(&s.UserType, vd.By(func(interface{}) error {
			if s.Role() == "" {
				return errors.New("Please choose Student or Parent or Legal Guardian.")
			}
			return nil
		})),
		vd.Field(&s.School, NotBlank("Please choose a school.")),
		vd.Field(&s.VerificationImage, vd.Required.Error("Please upload a verification document.")),
	)
}

// AdminRegistration is the administrator registration form.
type AdminRegistration struct {
	FullName        string `json:"fullName"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	School          string `json:"school"`
	Department      string `json:"department"`
}

func (a AdminRegistration) Validate() error {
	depts := make([]interface{}, len(Departments))
	for i, d := range Departments {
		depts[i] = d
	}
	return vd.ValidateStruct(&a,
		vd.Field(&a.FullName, NotBlank("Full name is required.")),
		vd.Field(&a.Email, vd.Required.Error("Email is required."), is.EmailFormat.Error("Please enter a valid email address.")),
		vd.Field(&a.Password, passwordRules...),
		vd.Field(&a.ConfirmPassword, vd.By(matches(a.Password))),
		vd.Field(&a.School, NotBlank("Please choose a school.")),
		vd.Field(&a.Department, vd.Required.Error("Please choose a department."), vd.In(depts...).Error("Please choose a department.")),
	)
}

// PasswordReset is the reset form submitted with a reset token.
type PasswordReset struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

func (p PasswordReset) Validate() error {
	return vd.ValidateStruct(&p,
		vd.Field(&p.Token, vd.Required.Error("Reset token is required.")),
		vd.Field(&p.Password, passwordRules...),
	)
}

func matches(password string) func(interface{}) error {
	return func(value interface{}) error {
		s, _ := value.(string)
		if s != password {
			return errors.New("Passwords do not match.")
		}
		return nil
	}
}
