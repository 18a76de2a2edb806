package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/leandro-lugaresi/hub"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/harentsoaR/armline-api/internal/events"
	"github.com/harentsoaR/armline-api/internal/models"
)

const DefaultEmailEndpoint = "https://api.emailjs.com/api/v1.0/email/send"

var ErrEmailNotConfigured = errors.New("email service is not configured")

// EmailTemplates holds one template id per kind of email.
type EmailTemplates struct {
	Escalation string
	Verify     string
	Reset      string
	Account    string
	Report     string
}

type EmailConfig struct {
	Endpoint   string
	ServiceID  string
	PublicKey  string
	PrivateKey string
	Templates  EmailTemplates
}

// UserLookup is the part of the store the notifier reads.
type UserLookup interface {
	GetUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

// NotificationService sends transactional email through an EmailJS-compatible API.
type NotificationService struct {
	cfg    EmailConfig
	client *http.Client
	logger *zap.Logger
}

func NewNotificationService(cfg EmailConfig, client *http.Client, logger *zap.Logger) *NotificationService {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEmailEndpoint
	}
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &NotificationService{cfg: cfg, client: client, logger: logger.Named("notification")}
}

type emailRequest struct {
	ServiceID      string            `json:"service_id"`
	TemplateID     string            `json:"template_id"`
	UserID         string            `json:"user_id"`
	AccessToken    string            `json:"accessToken,omitempty"`
	TemplateParams map[string]string `json:"template_params"`
}

// Send posts one templated email and waits for the provider's answer.
func (s *NotificationService) Send(ctx context.Context, templateID string, params map[string]string) error {
	if s.cfg.ServiceID == "" || templateID == "" {
		return ErrEmailNotConfigured
	}
	body, err := json.Marshal(emailRequest{
		ServiceID:      s.cfg.ServiceID,
		TemplateID:     templateID,
		UserID:         s.cfg.PublicKey,
		AccessToken:    s.cfg.PrivateKey,
		TemplateParams: params,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("email request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("email provider returned %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}
	return nil
}

// sendAsync sends in a goroutine so it doesn't block the API response. Failures are only logged.
func (s *NotificationService) sendAsync(kind, templateID, to string, params map[string]string) {
	if to == "" {
		s.logger.Debug("email not sent: no recipient", zap.String("kind", kind))
		return
	}
	params["to_email"] = to
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.Send(ctx, templateID, params); err != nil {
			if errors.Is(err, ErrEmailNotConfigured) {
				s.logger.Debug("email not sent: not configured", zap.String("kind", kind))
				return
			}
			s.logger.Warn("failed to send email", zap.String("kind", kind), zap.String("to", to), zap.Error(err))
			return
		}
		s.logger.Info("email sent", zap.String("kind", kind), zap.String("to", to))
	}()
}

// SendEscalation emails the agency about report. Unlike the other emails it is
// synchronous: the administrator is told whether it went out.
func (s *NotificationService) SendEscalation(ctx context.Context, agency models.Agency, report *models.Report, notes, adminName string) error {
	if agency.Email == "" {
		return fmt.Errorf("agency %s has no email address: %w", agency.Code, ErrEmailNotConfigured)
	}
	return s.Send(ctx, s.cfg.Templates.Escalation, map[string]string{
		"to_email":     agency.Email,
		"agency":       agency.Label,
		"case_id":      report.CaseID,
		"school":       report.School,
		"category":     report.Category,
		"priority":     report.Priority,
		"status":       report.Status,
		"description":  report.Description,
		"location":     report.Incident.Location,
		"notes":        notes,
		"escalated_by": adminName,
		"report_date":  report.CreatedAt.Format("January 2, 2006"),
	})
}

func (s *NotificationService) SendVerificationEmail(u *models.User, link string) {
	s.sendAsync("verify", s.cfg.Templates.Verify, u.Email, map[string]string{
		"to_name":     u.FullName,
		"verify_link": link,
	})
}

func (s *NotificationService) SendPasswordReset(u *models.User, link string) {
	s.sendAsync("reset", s.cfg.Templates.Reset, u.Email, map[string]string{
		"to_name":    u.FullName,
		"reset_link": link,
	})
}

func (s *NotificationService) NotifyAccountStatus(u *models.User) {
	s.sendAsync("account", s.cfg.Templates.Account, u.Email, map[string]string{
		"to_name": u.FullName,
		"status":  u.Status,
	})
}

func (s *NotificationService) NotifyReportStatus(u *models.User, r *models.Report) {
	s.sendAsync("report", s.cfg.Templates.Report, u.Email, map[string]string{
		"to_name": u.FullName,
		"case_id": r.CaseID,
		"status":  r.Status,
	})
}

// Start subscribes to account and report status changes and emails whoever
// they concern. It stops when the returned subscription is unsubscribed.
func (s *NotificationService) Start(h *hub.Hub, users UserLookup) hub.Subscription {
	sub := h.Subscribe(100, events.UserStatusChanged, events.ReportStatusChanged)
	go func() {
		for msg := range sub.Receiver {
			switch msg.Name {
			case events.UserStatusChanged:
				if u, ok := events.UserOf(msg); ok {
					s.NotifyAccountStatus(u)
				}
			case events.ReportStatusChanged:
				if r, ok := events.ReportOf(msg); ok {
					s.notifySubmitter(users, r)
				}
			}
		}
	}()
	return sub
}

func (s *NotificationService) notifySubmitter(users UserLookup, r *models.Report) {
	id := r.SubmittedByID
	if id == nil {
		id = r.AuthorID
	}
	if id == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	u, err := users.GetUserByID(ctx, *id)
	if err != nil {
		s.logger.Warn("status email: submitter lookup failed", zap.String("caseId", r.CaseID), zap.Error(err))
		return
	}
	s.NotifyReportStatus(u, r)
}
