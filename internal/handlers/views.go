package handlers

import (
	"time"

	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/harentsoaR/armline-api/internal/models"
	"github.com/harentsoaR/armline-api/internal/workflow"
)

// verifiedDisplayName is how report lists show a named submitter.
const verifiedDisplayName = "Verified User"

type ReportSummary struct {
	ID          string    `json:"id"`
	CaseID      string    `json:"caseId"`
	School      string    `json:"school"`
	Category    string    `json:"category"`
	Priority    string    `json:"priority"`
	Status      string    `json:"status"`
	IsAnonymous bool      `json:"isAnonymous"`
	SubmittedBy string    `json:"submittedBy"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type LogEntryView struct {
	Message    string    `json:"message"`
	AuthorName string    `json:"authorName,omitempty"`
	AuthorRole string    `json:"authorRole"`
	Timestamp  time.Time `json:"timestamp"`
}

type ReportDetail struct {
	ReportSummary
	Description      string                 `json:"description"`
	Incident         models.IncidentDetails `json:"incident"`
	ImageURLs        []string               `json:"imageUrls"`
	VideoURL         string                 `json:"videoUrl,omitempty"`
	CommunicationLog []LogEntryView         `json:"communicationLog"`
}

type AdminReportDetail struct {
	ReportDetail
	Escalations     []models.Escalation `json:"escalations"`
	AllowedStatuses []string            `json:"allowedStatuses"`
}

// StatusView is the case tracking page. It carries no identities.
type StatusView struct {
	CaseID           string         `json:"caseId"`
	School           string         `json:"school"`
	Category         string         `json:"category"`
	Status           string         `json:"status"`
	Description      string         `json:"description"`
	ImageURLs        []string       `json:"imageUrls"`
	VideoURL         string         `json:"videoUrl,omitempty"`
	CreatedAt        time.Time      `json:"createdAt"`
	UpdatedAt        time.Time      `json:"updatedAt"`
	CommunicationLog []LogEntryView `json:"communicationLog"`
}

func summaryOf(r *models.Report, submittedBy string) ReportSummary {
	if r.IsAnonymous || r.AuthorID == nil {
		submittedBy = models.AnonymousDisplayName
	}
	return ReportSummary{
		ID:          r.ID.Hex(),
		CaseID:      r.CaseID,
		School:      r.School,
		Category:    r.Category,
		Priority:    r.Priority,
		Status:      r.Status,
		IsAnonymous: r.IsAnonymous,
		SubmittedBy: submittedBy,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

// adminSummaries is the admin report table: submitters are only ever
// "Anonymous User" or "Verified User" there.
func adminSummaries(reports []*models.Report) []ReportSummary {
	return lo.Map(reports, func(r *models.Report, _ int) ReportSummary {
		return summaryOf(r, verifiedDisplayName)
	})
}

func detailOf(r *models.Report, submittedBy string, names map[primitive.ObjectID]*models.User) ReportDetail {
	return ReportDetail{
		ReportSummary:    summaryOf(r, submittedBy),
		Description:      r.Description,
		Incident:         r.Incident,
		ImageURLs:        r.Images(),
		VideoURL:         r.VideoURL,
		CommunicationLog: logView(r, names),
	}
}

// logView renders the communication log. Authors found in names are shown by
// their current full name; user entries on anonymous reports never are.
func logView(r *models.Report, names map[primitive.ObjectID]*models.User) []LogEntryView {
	return lo.Map(r.Log, func(e models.CommunicationEntry, _ int) LogEntryView {
		v := LogEntryView{
			Message:    e.Message,
			AuthorName: e.AuthorName,
			AuthorRole: e.AuthorRole,
			Timestamp:  e.Timestamp,
		}
		switch {
		case e.AuthorRole == models.AuthorUser && r.IsAnonymous:
			v.AuthorName = models.AnonymousDisplayName
		case e.AuthorID != nil:
			if u, ok := names[*e.AuthorID]; ok {
				v.AuthorName = u.FullName
			}
		}
		return v
	})
}

func statusViewOf(r *models.Report) StatusView {
	return StatusView{
		CaseID:      r.CaseID,
		School:      r.School,
		Category:    r.Category,
		Status:      r.Status,
		Description: r.Description,
		ImageURLs:   r.Images(),
		VideoURL:    r.VideoURL,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
		CommunicationLog: lo.Map(r.Log, func(e models.CommunicationEntry, _ int) LogEntryView {
			return LogEntryView{Message: e.Message, AuthorRole: e.AuthorRole, Timestamp: e.Timestamp}
		}),
	}
}

func adminDetailOf(r *models.Report, submittedBy string, names map[primitive.ObjectID]*models.User) AdminReportDetail {
	esc := r.Escalations
	if esc == nil {
		esc = []models.Escalation{}
	}
	return AdminReportDetail{
		ReportDetail:    detailOf(r, submittedBy, names),
		Escalations:     esc,
		AllowedStatuses: workflow.NextStatuses(r.Status),
	}
}

// authorIDs collects every account referenced by r that a view may name.
func authorIDs(r *models.Report) []primitive.ObjectID {
	ids := lo.FilterMap(r.Log, func(e models.CommunicationEntry, _ int) (primitive.ObjectID, bool) {
		if e.AuthorID == nil {
			return primitive.NilObjectID, false
		}
		return *e.AuthorID, true
	})
	if r.AuthorID != nil && !r.IsAnonymous {
		ids = append(ids, *r.AuthorID)
	}
	return lo.Uniq(ids)
}

// profile is a user as returned to its owner or an administrator, without
// the verification document.
func profile(u *models.User) *models.User {
	p := *u
	p.VerificationImage = ""
	return &p
}
