package handlers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image/color"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"
	"github.com/leandro-lugaresi/hub"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"

	"github.com/harentsoaR/armline-api/internal/middleware"
	"github.com/harentsoaR/armline-api/internal/models"
	"github.com/harentsoaR/armline-api/internal/repository"
	"github.com/harentsoaR/armline-api/internal/services"
	"github.com/harentsoaR/armline-api/internal/utils"
)

const school = "Rizal High School"

var repositoryAll = repository.ReportFilter{}

var (
	secret   = []byte("test-secret")
	now      = time.Date(2025, time.June, 10, 14, 30, 0, 0, time.UTC)
	agencies = []models.Agency{
		{Code: "PNP", Label: "Philippine National Police", Email: "desk@pnp.test"},
		{Code: "DSWD", Label: "Department of Social Welfare and Development"},
	}
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	utils.BcryptCost = bcrypt.MinCost
	os.Exit(m.Run())
}

type fakeNotifier struct {
	mu            sync.Mutex
	escalationErr error
	escalations   []string
	verifyLinks   []string
	resetLinks    []string
}

func (f *fakeNotifier) SendEscalation(_ context.Context, agency models.Agency, r *models.Report, _, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.escalationErr != nil {
		return f.escalationErr
	}
	f.escalations = append(f.escalations, agency.Code+":"+r.CaseID)
	return nil
}

func (f *fakeNotifier) SendVerificationEmail(_ *models.User, link string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verifyLinks = append(f.verifyLinks, link)
}

func (f *fakeNotifier) SendPasswordReset(_ *models.User, link string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resetLinks = append(f.resetLinks, link)
}

type fakeUploader struct {
	calls atomic.Int32
	err   error
}

func (f *fakeUploader) UploadAll(_ context.Context, images []services.Image) ([]string, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return lo.Map(images, func(img services.Image, _ int) string { return "https://img.test/" + img.Name }), nil
}

type harness struct {
	repo     *repository.InMemoryRepository
	notifier *fakeNotifier
	uploader *fakeUploader
	hub      *hub.Hub
	h        *Handler
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	hs := &harness{
		repo:     repository.NewInMemoryRepository(),
		notifier: &fakeNotifier{},
		uploader: &fakeUploader{},
		hub:      hub.New(),
	}
	hs.h = NewHandler(hs.repo, hs.notifier, hs.uploader, hs.hub, zaptest.NewLogger(t), Options{
		JWTSecret:     secret,
		TokenTTL:      time.Hour,
		PublicBaseURL: "https://armline.test/",
		Agencies:      agencies,
	})
	hs.h.Now = func() time.Time { return now }
	return hs
}

// engine routes every handler, acting as user when user is not nil.
func (hs *harness) engine(user *models.User) *gin.Engine {
	r := gin.New()
	if user != nil {
		r.Use(func(c *gin.Context) {
			c.Set(middleware.CurrentUserKey, user)
			c.Next()
		})
	}
	h := hs.h
	r.POST("/auth/signup", h.SignUp)
	r.POST("/auth/admin/register", h.AdminRegister)
	r.POST("/auth/login", h.Login)
	r.POST("/auth/admin/login", h.AdminLogin)
	r.GET("/auth/verify-email", h.VerifyEmail)
	r.POST("/auth/forgot-password", h.ForgotPassword)
	r.POST("/auth/reset-password", h.ResetPassword)
	r.GET("/me", h.GetCurrentUser)
	r.PUT("/me", h.UpdateCurrentUser)
	r.POST("/reports", h.CreateReport)
	r.POST("/reports/anonymous", h.CreateAnonymousReport)
	r.GET("/reports", h.GetMyReports)
	r.GET("/reports/:id", h.GetMyReport)
	r.POST("/reports/:id/messages", h.PostMessage)
	r.GET("/status/:caseId", h.GetReportStatus)
	r.GET("/admin/reports", h.GetSchoolReports)
	r.GET("/admin/reports/:id", h.GetSchoolReport)
	r.PATCH("/admin/reports/:id/status", h.UpdateReportStatus)
	r.POST("/admin/reports/:id/messages", h.PostAdminMessage)
	r.POST("/admin/reports/:id/escalate", h.EscalateReport)
	r.GET("/admin/agencies", h.GetAgencies)
	r.GET("/admin/accounts", h.GetAccounts)
	r.GET("/admin/accounts/:id", h.GetAccount)
	r.PATCH("/admin/accounts/:id/status", h.UpdateAccountStatus)
	r.GET("/schools", h.GetSchools)
	r.POST("/schools", h.CreateSchool)
	r.GET("/categories", h.GetCategories)
	r.POST("/categories", h.CreateCategory)
	return r
}

func (hs *harness) user(t *testing.T, name, role, status string) *models.User {
	t.Helper()
	hash, err := utils.HashPassword("password123")
	require.NoError(t, err)
	u := &models.User{
		FullName:      name,
		Email:         name + "@example.com",
		Password:      hash,
		Role:          role,
		UserType:      models.UserTypeLabel(role),
		School:        school,
		Status:        status,
		EmailVerified: true,
		CreatedAt:     now,
	}
	require.NoError(t, hs.repo.CreateUser(context.Background(), u))
	return u
}

func (hs *harness) report(t *testing.T, schoolName string, author *models.User, anonymous bool) *models.Report {
	t.Helper()
	r := &models.Report{
		School:      schoolName,
		Category:    "Bullying",
		Description: "Someone keeps pushing me in the hallway.",
		Priority:    models.PriorityMedium,
		Status:      models.StatusSubmitted,
		IsAnonymous: anonymous,
		CreatedAt:   now,
		UpdatedAt:   now,
		Log:         []models.CommunicationEntry{},
	}
	if author != nil {
		id := author.ID
		r.SubmittedByID = &id
		if !anonymous {
			r.AuthorID = &id
		}
	}
	require.NoError(t, hs.repo.CreateReport(context.Background(), r))
	return r
}

func doJSON(t *testing.T, r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// reportForm builds a multipart report form with n PNG attachments.
func reportForm(t *testing.T, fields map[string]string, n int) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for i := 0; i < n; i++ {
		hdr := textproto.MIMEHeader{}
		hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="images"; filename="photo%d.png"`, i))
		hdr.Set("Content-Type", "image/png")
		part, err := w.CreatePart(hdr)
		require.NoError(t, err)
		_, err = part.Write([]byte("png bytes"))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &body, w.FormDataContentType()
}

func postForm(t *testing.T, r http.Handler, path string, fields map[string]string, images int) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := reportForm(t, fields, images)
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func pngDataURL(t *testing.T) string {
	t.Helper()
	var b bytes.Buffer
	require.NoError(t, imaging.Encode(&b, imaging.New(4, 4, color.White), imaging.PNG))
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(b.Bytes())
}
