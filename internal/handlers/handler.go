package handlers

import (
	"context"
	"time"

	"github.com/leandro-lugaresi/hub"
	"go.uber.org/zap"

	"github.com/harentsoaR/armline-api/internal/models"
	"github.com/harentsoaR/armline-api/internal/repository"
	"github.com/harentsoaR/armline-api/internal/services"
)

// Notifier sends the emails a handler triggers directly.
type Notifier interface {
	SendEscalation(ctx context.Context, agency models.Agency, report *models.Report, notes, adminName string) error
	SendVerificationEmail(u *models.User, link string)
	SendPasswordReset(u *models.User, link string)
}

// Uploader stores the evidence images of one submission.
type Uploader interface {
	UploadAll(ctx context.Context, images []services.Image) ([]string, error)
}

type Options struct {
	JWTSecret []byte
	TokenTTL  time.Duration
	// PublicBaseURL is the web client's origin; emailed links point there.
	PublicBaseURL string
	Agencies      []models.Agency
}

type Handler struct {
	Repo            repository.Repository
	NotificationSvc Notifier
	Evidence        Uploader
	Hub             *hub.Hub
	Logger          *zap.Logger
	Options         Options
	// Now is the clock used for timestamps and the incident date check.
	Now func() time.Time
}

func NewHandler(repo repository.Repository, notifier Notifier, evidence Uploader, h *hub.Hub, logger *zap.Logger, opts Options) *Handler {
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 24 * time.Hour
	}
	return &Handler{
		Repo:            repo,
		NotificationSvc: notifier,
		Evidence:        evidence,
		Hub:             h,
		Logger:          logger.Named("handlers"),
		Options:         opts,
		Now:             time.Now,
	}
}

func (h *Handler) now() time.Time {
	return h.Now()
}
