package validator

import (
	"errors"
	"fmt"
	"strings"
	"time"

	vd "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/samber/lo"

	"github.com/harentsoaR/armline-api/internal/models"
)

const (
	MinDescriptionLength = 10
	MaxImages            = 10
	MaxImageSize         = 5 << 20
	MaxMessageLength     = 5000

	// CategoryPlaceholder is the unselected value of the category menu.
	CategoryPlaceholder = "Choose a Category"

	IncidentDateLayout = "2006-01-02"
	IncidentTimeLayout = "15:04"
)

var AllowedImageTypes = []string{"image/png", "image/jpeg", "image/jpg"}

// EvidenceFile describes an uploaded image before it is sent anywhere.
type EvidenceFile struct {
	Name        string
	ContentType string
	Size        int64
}

// ReportSubmission is the validated shape of both the signed-in and the anonymous report forms.
type ReportSubmission struct {
	School      string                 `json:"school"`
	Category    string                 `json:"category"`
	Description string                 `json:"description"`
	VideoURL    string                 `json:"videoUrl"`
	Incident    models.IncidentDetails `json:"incident"`
	Images      []EvidenceFile         `json:"images"`
}

// Validate checks the submission against the form rules. now is the reference
// time for the incident-in-the-future check, interpreted in now's location.
func (s ReportSubmission) Validate(now time.Time) error {
	return vd.ValidateStruct(&s,
		vd.Field(&s.School, NotBlank("School information is not available. Please try again.")),
		vd.Field(&s.Category,
			NotBlank("Please select a category."),
			vd.NotIn(CategoryPlaceholder).Error("Please select a category."),
		),
		vd.Field(&s.Description,
			MinTrimmedLength(MinDescriptionLength, fmt.Sprintf("Please provide a description of at least %d characters.", MinDescriptionLength)),
		),
		vd.Field(&s.VideoURL, is.URL.Error("Please provide a valid video link.")),
		vd.Field(&s.Incident, vd.By(incidentRule(now))),
		vd.Field(&s.Images, vd.By(imagesRule)),
	)
}

func imagesRule(value interface{}) error {
	files, _ := value.([]EvidenceFile)
	if len(files) > MaxImages {
		return fmt.Errorf("Maximum %d images allowed per report", MaxImages)
	}
	oversized := lo.FilterMap(files, func(f EvidenceFile, _ int) (string, bool) {
		return f.Name, f.Size > MaxImageSize
	})
	if len(oversized) > 0 {
		return fmt.Errorf("Some files exceed 5MB limit: %s", strings.Join(oversized, ", "))
	}
	badType := lo.FilterMap(files, func(f EvidenceFile, _ int) (string, bool) {
		return f.Name, !lo.Contains(AllowedImageTypes, strings.ToLower(f.ContentType))
	})
	if len(badType) > 0 {
		return fmt.Errorf("Unsupported image format (PNG, JPEG, JPG only): %s", strings.Join(badType, ", "))
	}
	return nil
}

func incidentRule(now time.Time) func(value interface{}) error {
	return func(value interface{}) error {
		d, _ := value.(models.IncidentDetails)
		if d.Date == "" {
			if d.Time != "" {
				return errors.New("Please provide the incident date.")
			}
			return nil
		}
		when, err := time.ParseInLocation(IncidentDateLayout, d.Date, now.Location())
		if err != nil {
			return errors.New("Incident date must be in YYYY-MM-DD format.")
		}
		if d.Time != "" {
			t, err := time.ParseInLocation(IncidentTimeLayout, d.Time, now.Location())
			if err != nil {
				return errors.New("Incident time must be in HH:MM format.")
			}
			when = when.Add(time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute)
		}
		if when.After(now) {
			return errors.New("The incident date and time cannot be in the future.")
		}
		return nil
	}
}

// Message is a post on a report's communication log.
type Message struct {
	Message string `json:"message"`
}

func (m Message) Validate() error {
	return vd.ValidateStruct(&m,
		vd.Field(&m.Message,
			NotBlank("Message cannot be empty."),
			vd.RuneLength(0, MaxMessageLength).Error(fmt.Sprintf("Message must be at most %d characters.", MaxMessageLength)),
		),
	)
}

// Escalation is the admin's escalation form.
type Escalation struct {
	Agency string `json:"agency"`
	Notes  string `json:"notes"`
}

// Validate checks the form; agencies is the list of configured agency codes.
func (e Escalation) Validate(agencies []string) error {
	return vd.ValidateStruct(&e,
		vd.Field(&e.Agency,
			vd.Required.Error("Please choose an authority."),
			vd.In(lo.ToAnySlice(agencies)...).Error("Unknown authority."),
		),
		vd.Field(&e.Notes, NotBlank("Escalation notes are required.")),
	)
}
