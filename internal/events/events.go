package events

import (
	"github.com/leandro-lugaresi/hub"

	"github.com/harentsoaR/armline-api/internal/models"
)

// PublishReport publishes topic for r. extra is merged into the fields.
func PublishReport(h *hub.Hub, topic string, r *models.Report, extra hub.Fields) {
	fields := hub.Fields{"report": r}
	for k, v := range extra {
		fields[k] = v
	}
	h.Publish(hub.Message{Name: topic, Fields: fields})
}

func PublishUserStatus(h *hub.Hub, u *models.User) {
	h.Publish(hub.Message{Name: UserStatusChanged, Fields: hub.Fields{"user": u}})
}

// ReportUpdate is what the admin live stream sends for a report event.
// It carries no submitter identity.
type ReportUpdate struct {
	Type     string `json:"type"`
	ReportID string `json:"reportId"`
	CaseID   string `json:"caseId"`
	Status   string `json:"status"`
	Category string `json:"category"`
	Priority string `json:"priority"`
	Agency   string `json:"agency,omitempty"`
}

// ReportOf returns the report carried by a report.* message.
func ReportOf(m hub.Message) (*models.Report, bool) {
	r, ok := m.Fields["report"].(*models.Report)
	return r, ok && r != nil
}

// UserOf returns the user carried by a user.* message.
func UserOf(m hub.Message) (*models.User, bool) {
	u, ok := m.Fields["user"].(*models.User)
	return u, ok && u != nil
}

// Update converts a report.* message into its stream payload.
func Update(m hub.Message) (ReportUpdate, bool) {
	r, ok := ReportOf(m)
	if !ok {
		return ReportUpdate{}, false
	}
	agency, _ := m.Fields["agency"].(string)
	return ReportUpdate{
		Type:     m.Name,
		ReportID: r.ID.Hex(),
		CaseID:   r.CaseID,
		Status:   r.Status,
		Category: r.Category,
		Priority: r.Priority,
		Agency:   agency,
	}, true
}
