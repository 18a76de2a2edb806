package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/leandro-lugaresi/hub"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/harentsoaR/armline-api/internal/events"
	"github.com/harentsoaR/armline-api/internal/middleware"
	"github.com/harentsoaR/armline-api/internal/models"
	"github.com/harentsoaR/armline-api/internal/repository"
	"github.com/harentsoaR/armline-api/internal/validator"
	"github.com/harentsoaR/armline-api/internal/workflow"
)

const (
	systemAuthorName = "System"

	streamBuffer       = 32
	streamPingInterval = 25 * time.Second
)

// GetSchoolReports lists the reports of the administrator's school, newest first.
func (h *Handler) GetSchoolReports(c *gin.Context) {
	admin := middleware.CurrentUser(c)
	filter := repository.ReportFilter{
		School:   admin.School,
		Status:   c.Query("status"),
		Category: c.Query("category"),
		Priority: c.Query("priority"),
	}
	if filter.Status != "" && !workflow.ValidStatus(filter.Status) {
		badRequest(c, "Unknown status filter.")
		return
	}
	if filter.Priority != "" && !workflow.ValidPriority(filter.Priority) {
		badRequest(c, "Unknown priority filter.")
		return
	}

	reports, err := h.Repo.ListReports(c.Request.Context(), filter)
	if err != nil {
		h.storeError(c, err, "Report")
		return
	}
	c.JSON(http.StatusOK, adminSummaries(reports))
}

// schoolReport loads the :id report if it belongs to the administrator's
// school. Reports of other schools are reported as not found.
func (h *Handler) schoolReport(c *gin.Context) (*models.Report, *models.User, bool) {
	admin := middleware.CurrentUser(c)
	id, ok := pathID(c, "Report")
	if !ok {
		return nil, nil, false
	}
	report, err := h.Repo.GetReportByID(c.Request.Context(), id)
	if err != nil {
		h.storeError(c, err, "Report")
		return nil, nil, false
	}
	if report.School != admin.School {
		c.JSON(http.StatusNotFound, gin.H{"error": "Report not found"})
		return nil, nil, false
	}
	return report, admin, true
}

// adminDetail resolves the names shown on the admin detail page.
func (h *Handler) adminDetail(ctx context.Context, r *models.Report) (AdminReportDetail, error) {
	names, err := h.Repo.GetUsersByIDs(ctx, authorIDs(r))
	if err != nil {
		return AdminReportDetail{}, err
	}
	submittedBy := verifiedDisplayName
	if r.AuthorID != nil {
		if u, ok := names[*r.AuthorID]; ok {
			submittedBy = u.FullName
		}
	}
	return adminDetailOf(r, submittedBy, names), nil
}

func (h *Handler) respondAdminDetail(c *gin.Context, status int, r *models.Report) {
	detail, err := h.adminDetail(c.Request.Context(), r)
	if err != nil {
		h.storeError(c, err, "Report")
		return
	}
	c.JSON(status, detail)
}

func (h *Handler) GetSchoolReport(c *gin.Context) {
	report, _, ok := h.schoolReport(c)
	if !ok {
		return
	}
	h.respondAdminDetail(c, http.StatusOK, report)
}

// UpdateReportStatus moves a report along the workflow. The change is
// rejected with 409 when someone else changed the status first.
func (h *Handler) UpdateReportStatus(c *gin.Context) {
	report, admin, ok := h.schoolReport(c)
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

	if err := workflow.CanTransition(report.Status, req.Status); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":           transitionMessage(err, report.Status, req.Status),
			"allowedStatuses": workflow.NextStatuses(report.Status),
		})
		return
	}

	entry := models.CommunicationEntry{
		Message:    workflow.TransitionMessage(report.Status, req.Status),
		AuthorName: systemAuthorName,
		AuthorRole: models.AuthorSystem,
		Timestamp:  h.now(),
	}
	updated, err := h.Repo.UpdateReportStatus(c.Request.Context(), report.ID, report.Status, req.Status, entry)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			c.JSON(http.StatusConflict, gin.H{"error": "The report status was changed by someone else. Please reload and try again."})
			return
		}
		h.storeError(c, err, "Report")
		return
	}

	events.PublishReport(h.Hub, events.ReportStatusChanged, updated, nil)
	h.log(c).Info("report status changed",
		zap.String("caseId", updated.CaseID),
		zap.String("from", report.Status),
		zap.String("to", updated.Status),
		zap.String("adminId", admin.ID.Hex()),
	)
	h.respondAdminDetail(c, http.StatusOK, updated)
}

func transitionMessage(err error, from, to string) string {
	switch {
	case errors.Is(err, workflow.ErrNoChange):
		return "The report already has this status."
	case errors.Is(err, workflow.ErrNotAllowed):
		return fmt.Sprintf("A report cannot move from %q to %q.", from, to)
	}
	return "Please choose a valid status."
}

// PostAdminMessage adds an administrator's message to a report's log.
func (h *Handler) PostAdminMessage(c *gin.Context) {
	report, admin, ok := h.schoolReport(c)
	if !ok {
		return
	}
	var req validator.Message
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		validationError(c, err)
		return
	}

	id := admin.ID
	entry := models.CommunicationEntry{
		Message:    strings.TrimSpace(req.Message),
		AuthorName: admin.FullName,
		AuthorRole: models.AuthorAdmin,
		AuthorID:   &id,
		Timestamp:  h.now(),
	}
	updated, err := h.Repo.AppendCommunication(c.Request.Context(), report.ID, entry)
	if err != nil {
		h.storeError(c, err, "Report")
		return
	}
	events.PublishReport(h.Hub, events.ReportMessagePosted, updated, nil)
	h.respondAdminDetail(c, http.StatusCreated, updated)
}

// EscalateReport emails an external agency about the report and records the
// escalation. Nothing is recorded if the email could not be sent.
func (h *Handler) EscalateReport(c *gin.Context) {
	report, admin, ok := h.schoolReport(c)
	if !ok {
		return
	}
	var req validator.Escalation
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	reachable := h.reachableAgencies()
	codes := lo.Map(reachable, func(a models.Agency, _ int) string { return a.Code })
	if err := req.Validate(codes); err != nil {
		validationError(c, err)
		return
	}
	agency, _ := lo.Find(reachable, func(a models.Agency) bool { return a.Code == req.Agency })
	notes := strings.TrimSpace(req.Notes)

	if err := h.NotificationSvc.SendEscalation(c.Request.Context(), agency, report, notes, admin.FullName); err != nil {
		h.log(c).Error("escalation email failed", zap.String("caseId", report.CaseID), zap.String("agency", agency.Code), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": fmt.Sprintf("Could not notify %s. Please try again.", agency.Label)})
		return
	}

	now := h.now()
	esc := models.Escalation{
		Agency:      agency.Code,
		Notes:       notes,
		EscalatedBy: admin.ID,
		EscalatedAt: now,
	}
	entry := models.CommunicationEntry{
		Message:    fmt.Sprintf("Report escalated to %s.", agency.Label),
		AuthorName: systemAuthorName,
		AuthorRole: models.AuthorSystem,
		Timestamp:  now,
	}
	updated, err := h.Repo.AddEscalation(c.Request.Context(), report.ID, esc, entry)
	if err != nil {
		h.storeError(c, err, "Report")
		return
	}

	middleware.RecordEscalation(agency.Code)
	events.PublishReport(h.Hub, events.ReportEscalated, updated, hub.Fields{"agency": agency.Code})
	h.log(c).Info("report escalated", zap.String("caseId", updated.CaseID), zap.String("agency", agency.Code))
	h.respondAdminDetail(c, http.StatusOK, updated)
}

// GetAgencies lists the authorities a report can be escalated to.
func (h *Handler) GetAgencies(c *gin.Context) {
	c.JSON(http.StatusOK, h.reachableAgencies())
}

// reachableAgencies are the configured agencies that have an email address.
func (h *Handler) reachableAgencies() []models.Agency {
	return lo.Filter(h.Options.Agencies, func(a models.Agency, _ int) bool { return a.Email != "" })
}

// StreamReports pushes report events of the administrator's school as
// Server-Sent Events until the client goes away.
func (h *Handler) StreamReports(c *gin.Context) {
	admin := middleware.CurrentUser(c)
	sub := h.Hub.NonBlockingSubscribe(streamBuffer, events.ReportAll)
	defer h.Hub.Unsubscribe(sub)

	ping := time.NewTicker(streamPingInterval)
	defer ping.Stop()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent("ready", gin.H{"school": admin.School})
	c.Writer.Flush()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case msg, ok := <-sub.Receiver:
			if !ok {
				return false
			}
			if r, ok := events.ReportOf(msg); !ok || r.School != admin.School {
				return true
			}
			if update, ok := events.Update(msg); ok {
				c.SSEvent("report", update)
			}
			return true
		case t := <-ping.C:
			c.SSEvent("ping", t.Unix())
			return true
		}
	})
}
