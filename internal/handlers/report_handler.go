package handlers

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/harentsoaR/armline-api/internal/events"
	"github.com/harentsoaR/armline-api/internal/middleware"
	"github.com/harentsoaR/armline-api/internal/models"
	"github.com/harentsoaR/armline-api/internal/repository"
	"github.com/harentsoaR/armline-api/internal/services"
	"github.com/harentsoaR/armline-api/internal/validator"
	"github.com/harentsoaR/armline-api/internal/workflow"
)

const formImages = "images"

// readSubmission collects the report form. Image files are only described
// here; their contents are read after validation.
func readSubmission(c *gin.Context) (validator.ReportSubmission, []*multipart.FileHeader) {
	sub := validator.ReportSubmission{
		School:      strings.TrimSpace(c.PostForm("school")),
		Category:    strings.TrimSpace(c.PostForm("category")),
		Description: c.PostForm("description"),
		VideoURL:    strings.TrimSpace(c.PostForm("videoUrl")),
		Incident: models.IncidentDetails{
			Date:            strings.TrimSpace(c.PostForm("incidentDate")),
			Time:            strings.TrimSpace(c.PostForm("incidentTime")),
			Location:        strings.TrimSpace(c.PostForm("location")),
			PartiesInvolved: strings.TrimSpace(c.PostForm("partiesInvolved")),
			Witnesses:       strings.TrimSpace(c.PostForm("witnesses")),
			DesiredOutcome:  strings.TrimSpace(c.PostForm("desiredOutcome")),
		},
	}

	var files []*multipart.FileHeader
	if form, err := c.MultipartForm(); err == nil {
		files = form.File[formImages]
	}
	sub.Images = lo.Map(files, func(f *multipart.FileHeader, _ int) validator.EvidenceFile {
		return validator.EvidenceFile{Name: f.Filename, ContentType: f.Header.Get("Content-Type"), Size: f.Size}
	})
	return sub, files
}

func readImages(files []*multipart.FileHeader) ([]services.Image, error) {
	images := make([]services.Image, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, err
		}
		images = append(images, services.Image{Name: fh.Filename, ContentType: fh.Header.Get("Content-Type"), Data: data})
	}
	return images, nil
}

// submitReport validates, uploads the evidence and stores the report.
// submitter is nil for the public anonymous form.
func (h *Handler) submitReport(c *gin.Context, sub validator.ReportSubmission, files []*multipart.FileHeader, anonymous bool, submitter *models.User) {
	ctx := c.Request.Context()
	if err := sub.Validate(h.now()); err != nil {
		validationError(c, err)
		return
	}

	images, err := readImages(files)
	if err != nil {
		badRequest(c, "Could not read the uploaded images.")
		return
	}

	categories, err := h.Repo.ListCategories(ctx)
	if err != nil {
		h.log(c).Warn("category list unavailable, using default priorities", zap.Error(err))
	}

	urls, err := h.Evidence.UploadAll(ctx, images)
	if err != nil {
		h.log(c).Error("evidence upload failed", zap.Int("images", len(images)), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to upload images. Please try again."})
		return
	}

	now := h.now()
	report := &models.Report{
		School:      sub.School,
		Category:    sub.Category,
		Description: strings.TrimSpace(sub.Description),
		Incident:    sub.Incident,
		Priority:    workflow.PriorityFor(sub.Category, lo.FromSlicePtr(categories)),
		Status:      models.StatusSubmitted,
		ImageURLs:   urls,
		VideoURL:    sub.VideoURL,
		IsAnonymous: anonymous,
		CreatedAt:   now,
		UpdatedAt:   now,
		Log:         []models.CommunicationEntry{},
	}
	if submitter != nil {
		id := submitter.ID
		report.SubmittedByID = &id
		if !anonymous {
			report.AuthorID = &id
		}
	}

	if err := h.Repo.CreateReport(ctx, report); err != nil {
		h.storeError(c, err, "Report")
		return
	}
	events.PublishReport(h.Hub, events.ReportCreated, report, nil)
	middleware.RecordReportSubmitted(report.Category, report.Priority, anonymous)
	h.log(c).Info("report submitted",
		zap.String("caseId", report.CaseID),
		zap.String("school", report.School),
		zap.Bool("anonymous", anonymous),
	)

	c.JSON(http.StatusCreated, gin.H{
		"id":      report.ID.Hex(),
		"caseId":  report.CaseID,
		"message": "Report submitted successfully. Keep your Case ID to check its status.",
	})
}

// CreateReport is the signed-in report form. The school comes from the profile.
func (h *Handler) CreateReport(c *gin.Context) {
	user := middleware.CurrentUser(c)
	sub, files := readSubmission(c)
	sub.School = user.School
	anonymous, _ := strconv.ParseBool(c.PostForm("isAnonymous"))
	h.submitReport(c, sub, files, anonymous, user)
}

// CreateAnonymousReport is the public form. It is always anonymous and the
// school is chosen from the list.
func (h *Handler) CreateAnonymousReport(c *gin.Context) {
	sub, files := readSubmission(c)
	h.submitReport(c, sub, files, true, nil)
}

// GetMyReports lists the signed-in user's submissions, anonymous ones included.
func (h *Handler) GetMyReports(c *gin.Context) {
	user := middleware.CurrentUser(c)
	reports, err := h.Repo.ListReports(c.Request.Context(), repository.ReportFilter{SubmittedBy: &user.ID})
	if err != nil {
		h.storeError(c, err, "Report")
		return
	}
	c.JSON(http.StatusOK, lo.Map(reports, func(r *models.Report, _ int) ReportSummary {
		return summaryOf(r, user.FullName)
	}))
}

// ownReport loads the :id report if the signed-in user submitted it.
func (h *Handler) ownReport(c *gin.Context) (*models.Report, *models.User, bool) {
	user := middleware.CurrentUser(c)
	id, ok := pathID(c, "Report")
	if !ok {
		return nil, nil, false
	}
	report, err := h.Repo.GetReportByID(c.Request.Context(), id)
	if err != nil {
		h.storeError(c, err, "Report")
		return nil, nil, false
	}
	if !sameAccount(report.SubmittedByID, user) && !sameAccount(report.AuthorID, user) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Report not found"})
		return nil, nil, false
	}
	return report, user, true
}

func (h *Handler) GetMyReport(c *gin.Context) {
	report, user, ok := h.ownReport(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, detailOf(report, user.FullName, nil))
}

// PostMessage adds the submitter's message to their report. On an anonymous
// report the message is stored without the author's identity.
func (h *Handler) PostMessage(c *gin.Context) {
	report, user, ok := h.ownReport(c)
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

	entry := models.CommunicationEntry{
		Message:    strings.TrimSpace(req.Message),
		AuthorName: models.AnonymousDisplayName,
		AuthorRole: models.AuthorUser,
		Timestamp:  h.now(),
	}
	if !report.IsAnonymous {
		id := user.ID
		entry.AuthorName = user.FullName
		entry.AuthorID = &id
	}

	updated, err := h.Repo.AppendCommunication(c.Request.Context(), report.ID, entry)
	if err != nil {
		h.storeError(c, err, "Report")
		return
	}
	events.PublishReport(h.Hub, events.ReportMessagePosted, updated, nil)
	c.JSON(http.StatusCreated, detailOf(updated, user.FullName, nil))
}

// GetReportStatus is the public case tracking lookup.
func (h *Handler) GetReportStatus(c *gin.Context) {
	caseID := models.NormalizeCaseID(c.Param("caseId"))
	if caseID == "" {
		badRequest(c, "Please enter a Case ID.")
		return
	}
	report, err := h.Repo.GetReportByCaseID(c.Request.Context(), caseID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "No report found with this Case ID. Please check the ID and try again."})
			return
		}
		h.storeError(c, err, "Report")
		return
	}
	c.JSON(http.StatusOK, statusViewOf(report))
}

func sameAccount(id *primitive.ObjectID, u *models.User) bool {
	return id != nil && *id == u.ID
}
