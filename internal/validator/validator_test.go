package validator

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/harentsoaR/armline-api/internal/models"
)

var now = time.Date(2025, time.June, 10, 14, 30, 0, 0, time.UTC)

func validSubmission() ReportSubmission {
	return ReportSubmission{
		School:      "Rizal High School",
		Category:    "Bullying",
		Description: "A group of students keeps taking my lunch.",
	}
}

func images(n int) []EvidenceFile {
	out := make([]EvidenceFile, n)
	for i := range out {
		out[i] = EvidenceFile{Name: "photo.png", ContentType: "image/png", Size: 1024}
	}
	return out
}

func TestReportSubmission_Validate(t *testing.T) {
	t.Parallel()

	t.Run("valid", func(t *testing.T) {
		t.Parallel()
		s := validSubmission()
		s.Images = images(MaxImages)
		s.VideoURL = "https://youtube.com/watch?v=abc"
		s.Incident = models.IncidentDetails{Date: "2025-06-10", Time: "08:15", Location: "Canteen"}
		assert.NoError(t, s.Validate(now))
	})

	t.Run("short description", func(t *testing.T) {
		t.Parallel()
		s := validSubmission()
		s.Description = "   too short   "
		err := s.Validate(now)
		assert.Equal(t, "Please provide a description of at least 10 characters.", FieldErrors(err)["description"])
	})

	t.Run("exactly ten characters", func(t *testing.T) {
		t.Parallel()
		s := validSubmission()
		s.Description = " 0123456789 "
		assert.NoError(t, s.Validate(now))
	})

	t.Run("placeholder category", func(t *testing.T) {
		t.Parallel()
		s := validSubmission()
		s.Category = CategoryPlaceholder
		assert.Contains(t, FieldErrors(s.Validate(now)), "category")
	})

	t.Run("missing school", func(t *testing.T) {
		t.Parallel()
		s := validSubmission()
		s.School = ""
		assert.Contains(t, FieldErrors(s.Validate(now)), "school")
	})

	t.Run("too many images", func(t *testing.T) {
		t.Parallel()
		s := validSubmission()
		s.Images = images(MaxImages + 1)
		assert.Equal(t, "Maximum 10 images allowed per report", FieldErrors(s.Validate(now))["images"])
	})

	t.Run("oversized image", func(t *testing.T) {
		t.Parallel()
		s := validSubmission()
		s.Images = []EvidenceFile{
			{Name: "ok.png", ContentType: "image/png", Size: MaxImageSize},
			{Name: "big.jpg", ContentType: "image/jpeg", Size: MaxImageSize + 1},
		}
		assert.Equal(t, "Some files exceed 5MB limit: big.jpg", FieldErrors(s.Validate(now))["images"])
	})

	t.Run("unsupported image type", func(t *testing.T) {
		t.Parallel()
		s := validSubmission()
		s.Images = []EvidenceFile{{Name: "clip.gif", ContentType: "image/gif", Size: 10}}
		assert.Contains(t, FieldErrors(s.Validate(now))["images"], "clip.gif")
	})

	t.Run("bad video url", func(t *testing.T) {
		t.Parallel()
		s := validSubmission()
		s.VideoURL = "not a link"
		assert.Contains(t, FieldErrors(s.Validate(now)), "videoUrl")
	})

	t.Run("incident in the future", func(t *testing.T) {
		t.Parallel()
		s := validSubmission()
		s.Incident = models.IncidentDetails{Date: "2025-06-10", Time: "14:31"}
		assert.Equal(t, "The incident date and time cannot be in the future.", FieldErrors(s.Validate(now))["incident"])

		s.Incident = models.IncidentDetails{Date: "2025-06-11"}
		assert.Contains(t, FieldErrors(s.Validate(now)), "incident")
	})

	t.Run("incident formats", func(t *testing.T) {
		t.Parallel()
		s := validSubmission()
		s.Incident = models.IncidentDetails{Date: "10/06/2025"}
		assert.Contains(t, FieldErrors(s.Validate(now))["incident"], "YYYY-MM-DD")

		s.Incident = models.IncidentDetails{Date: "2025-06-01", Time: "8pm"}
		assert.Contains(t, FieldErrors(s.Validate(now))["incident"], "HH:MM")

		s.Incident = models.IncidentDetails{Time: "08:00"}
		assert.Contains(t, FieldErrors(s.Validate(now)), "incident")
	})
}

func TestMessage_Validate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, Message{Message: "Thank you, we are looking into it."}.Validate())
	assert.Error(t, Message{Message: "   "}.Validate())
	assert.Error(t, Message{Message: strings.Repeat("x", MaxMessageLength+1)}.Validate())
}

func TestEscalation_Validate(t *testing.T) {
	t.Parallel()

	agencies := []string{"DSWD", "PNP", "DepEd"}
	assert.NoError(t, Escalation{Agency: "PNP", Notes: "Physical assault reported."}.Validate(agencies))

	fields := FieldErrors(Escalation{Agency: "FBI", Notes: " "}.Validate(agencies))
	assert.Equal(t, "Unknown authority.", fields["agency"])
	assert.Equal(t, "Escalation notes are required.", fields["notes"])
}

func TestSignUp_Validate(t *testing.T) {
	t.Parallel()

	valid := SignUp{
		FullName:          "Juan Dela Cruz",
		Email:             "juan@example.com",
		Password:          "correcthorse",
		ConfirmPassword:   "correcthorse",
		UserType:          "Parent or Legal Guardian",
		School:            "Rizal High School",
		VerificationImage: "data:image/png;base64,AAAA",
	}
	assert.NoError(t, valid.Validate())
	assert.Equal(t, models.RoleParent, valid.Role())

	s := valid
	s.ConfirmPassword = "different"
	assert.Equal(t, "Passwords do not match.", FieldErrors(s.Validate())["confirmPassword"])

	s = valid
	s.Password, s.ConfirmPassword = "short", "short"
	assert.Contains(t, FieldErrors(s.Validate()), "password")

	s = valid
	s.UserType = "admin"
	assert.Contains(t, FieldErrors(s.Validate()), "userType")

	s = valid
	s.VerificationImage = ""
	assert.Contains(t, FieldErrors(s.Validate()), "verificationImage")

	s = valid
	s.Email = "juan"
	assert.Contains(t, FieldErrors(s.Validate()), "email")
}

func TestAdminRegistration_Validate(t *testing.T) {
	t.Parallel()

	a := AdminRegistration{
		FullName:        "Maria Santos",
		Email:           "maria@school.edu",
		Password:        "longenough",
		ConfirmPassword: "longenough",
		School:          "Rizal High School",
		Department:      "Elementary",
	}
	assert.NoError(t, a.Validate())

	a.Department = "Kitchen"
	assert.Contains(t, FieldErrors(a.Validate()), "department")
}

func TestErrorMessagePicksPreferredField(t *testing.T) {
	t.Parallel()

	s := ReportSubmission{Category: "Bullying"}
	err := s.Validate(now)
	assert.Equal(t, "Please provide a description of at least 10 characters.", ErrorMessage(err, "description", "school"))
	assert.Equal(t, "", ErrorMessage(nil))
}
