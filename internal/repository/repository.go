// Package repository is the document store of reports, accounts and reference data.
package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/harentsoaR/armline-api/internal/models"
)

var (
	// ErrNotFound the document does not exist
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists a unique key is already taken
	ErrAlreadyExists = errors.New("already exists")
	// ErrConflict the document changed since it was read
	ErrConflict = errors.New("conflict")
)

// Repository is the whole store.
type Repository interface {
	ReportRepository
	UserRepository
	ReferenceRepository
}

// ReportFilter narrows ListReports. Zero fields match everything.
type ReportFilter struct {
	School string
	// SubmittedBy matches reports the account submitted, anonymous ones included.
	SubmittedBy *primitive.ObjectID
	Status      string
	Category    string
	Priority    string
}

type ReportRepository interface {
	// CreateReport assigns r a fresh ID and case ID and inserts it. A case ID
	// collision regenerates both, up to maxCaseIDAttempts times.
	CreateReport(ctx context.Context, r *models.Report) error
	GetReportByID(ctx context.Context, id primitive.ObjectID) (*models.Report, error)
	GetReportByCaseID(ctx context.Context, caseID string) (*models.Report, error)
	// ListReports returns matching reports, newest first.
	ListReports(ctx context.Context, f ReportFilter) ([]*models.Report, error)
	// UpdateReportStatus moves the report from status `from` to `to` and appends
	// entry to its log in one write. It fails with ErrConflict when the stored
	// status is no longer `from`.
	UpdateReportStatus(ctx context.Context, id primitive.ObjectID, from, to string, entry models.CommunicationEntry) (*models.Report, error)
	AppendCommunication(ctx context.Context, id primitive.ObjectID, entry models.CommunicationEntry) (*models.Report, error)
	AddEscalation(ctx context.Context, id primitive.ObjectID, esc models.Escalation, entry models.CommunicationEntry) (*models.Report, error)
}

// UserFilter narrows ListUsers. Zero fields match everything.
type UserFilter struct {
	School string
	Status string
}

type UserRepository interface {
	// CreateUser inserts u with its email lower-cased. ErrAlreadyExists when the email is taken.
	CreateUser(ctx context.Context, u *models.User) error
	GetUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	// GetUsersByIDs returns the users that exist among ids, keyed by id.
	GetUsersByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*models.User, error)
	// ListUsers returns matching users, newest first.
	ListUsers(ctx context.Context, f UserFilter) ([]*models.User, error)
	UpdateUserStatus(ctx context.Context, id primitive.ObjectID, status string, by primitive.ObjectID, at time.Time) (*models.User, error)
	UpdateUserProfile(ctx context.Context, id primitive.ObjectID, fullName string) (*models.User, error)
	MarkEmailVerified(ctx context.Context, id primitive.ObjectID) error
	UpdatePassword(ctx context.Context, id primitive.ObjectID, hash string) error
}

type ReferenceRepository interface {
	ListSchools(ctx context.Context) ([]*models.School, error)
	CreateSchool(ctx context.Context, s *models.School) error
	ListCategories(ctx context.Context) ([]*models.Category, error)
	CreateCategory(ctx context.Context, c *models.Category) error
}

const maxCaseIDAttempts = 3

func assignIdentity(r *models.Report) {
	r.ID = primitive.NewObjectID()
	r.CaseID = models.NewCaseID(r.ID, r.CreatedAt)
}

func cloneUser(u *models.User) *models.User {
	c := *u
	if u.StatusUpdatedAt != nil {
		t := *u.StatusUpdatedAt
		c.StatusUpdatedAt = &t
	}
	if u.StatusUpdatedBy != nil {
		id := *u.StatusUpdatedBy
		c.StatusUpdatedBy = &id
	}
	return &c
}
