package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/harentsoaR/armline-api/internal/models"
)

// InMemoryRepository keeps everything in process memory. It is used by
// `serve` with STORE_DRIVER=memory and by handler tests. Returned documents
// are copies.
type InMemoryRepository struct {
	mu         sync.RWMutex
	reports    map[primitive.ObjectID]*models.Report
	caseIDs    map[string]primitive.ObjectID
	users      map[primitive.ObjectID]*models.User
	emails     map[string]primitive.ObjectID
	schools    map[string]*models.School
	categories map[string]*models.Category
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		reports:    map[primitive.ObjectID]*models.Report{},
		caseIDs:    map[string]primitive.ObjectID{},
		users:      map[primitive.ObjectID]*models.User{},
		emails:     map[string]primitive.ObjectID{},
		schools:    map[string]*models.School{},
		categories: map[string]*models.Category{},
	}
}

// --- reports ---

func (r *InMemoryRepository) CreateReport(_ context.Context, report *models.Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for attempt := 0; attempt < maxCaseIDAttempts; attempt++ {
		assignIdentity(report)
		if _, taken := r.caseIDs[report.CaseID]; taken {
			continue
		}
		r.reports[report.ID] = report.Clone()
		r.caseIDs[report.CaseID] = report.ID
		return nil
	}
	return ErrAlreadyExists
}

func (r *InMemoryRepository) GetReportByID(_ context.Context, id primitive.ObjectID) (*models.Report, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	report, ok := r.reports[id]
	if !ok {
		return nil, ErrNotFound
	}
	return report.Clone(), nil
}

func (r *InMemoryRepository) GetReportByCaseID(ctx context.Context, caseID string) (*models.Report, error) {
	r.mu.RLock()
	id, ok := r.caseIDs[models.NormalizeCaseID(caseID)]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return r.GetReportByID(ctx, id)
}

func (r *InMemoryRepository) ListReports(_ context.Context, f ReportFilter) ([]*models.Report, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*models.Report, 0)
	for _, report := range r.reports {
		if matchReport(report, f) {
			out = append(out, report.Clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func matchReport(report *models.Report, f ReportFilter) bool {
	if f.School != "" && report.School != f.School {
		return false
	}
	if f.SubmittedBy != nil && !sameID(report.SubmittedByID, *f.SubmittedBy) && !sameID(report.AuthorID, *f.SubmittedBy) {
		return false
	}
	if f.Status != "" && report.Status != f.Status {
		return false
	}
	if f.Category != "" && report.Category != f.Category {
		return false
	}
	if f.Priority != "" && report.Priority != f.Priority {
		return false
	}
	return true
}

func sameID(p *primitive.ObjectID, id primitive.ObjectID) bool {
	return p != nil && *p == id
}

func (r *InMemoryRepository) UpdateReportStatus(_ context.Context, id primitive.ObjectID, from, to string, entry models.CommunicationEntry) (*models.Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	report, ok := r.reports[id]
	if !ok {
		return nil, ErrNotFound
	}
	if report.Status != from {
		return nil, ErrConflict
	}
	report.Status = to
	report.UpdatedAt = entry.Timestamp
	report.Log = append(report.Log, entry.Clone())
	return report.Clone(), nil
}

func (r *InMemoryRepository) AppendCommunication(_ context.Context, id primitive.ObjectID, entry models.CommunicationEntry) (*models.Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	report, ok := r.reports[id]
	if !ok {
		return nil, ErrNotFound
	}
	report.UpdatedAt = entry.Timestamp
	report.Log = append(report.Log, entry.Clone())
	return report.Clone(), nil
}

func (r *InMemoryRepository) AddEscalation(_ context.Context, id primitive.ObjectID, esc models.Escalation, entry models.CommunicationEntry) (*models.Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	report, ok := r.reports[id]
	if !ok {
		return nil, ErrNotFound
	}
	report.UpdatedAt = entry.Timestamp
	report.Log = append(report.Log, entry.Clone())
	report.Escalations = append(report.Escalations, esc)
	return report.Clone(), nil
}

// --- users ---

func (r *InMemoryRepository) CreateUser(_ context.Context, u *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if _, taken := r.emails[u.Email]; taken {
		return ErrAlreadyExists
	}
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	r.users[u.ID] = cloneUser(u)
	r.emails[u.Email] = u.ID
	return nil
}

func (r *InMemoryRepository) GetUserByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneUser(u), nil
}

func (r *InMemoryRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.RLock()
	id, ok := r.emails[strings.ToLower(strings.TrimSpace(email))]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return r.GetUserByID(ctx, id)
}

func (r *InMemoryRepository) GetUsersByIDs(_ context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[primitive.ObjectID]*models.User, len(ids))
	for _, id := range ids {
		if u, ok := r.users[id]; ok {
			out[id] = cloneUser(u)
		}
	}
	return out, nil
}

func (r *InMemoryRepository) ListUsers(_ context.Context, f UserFilter) ([]*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := lo.FilterMap(lo.Values(r.users), func(u *models.User, _ int) (*models.User, bool) {
		if f.School != "" && u.School != f.School {
			return nil, false
		}
		if f.Status != "" && u.Status != f.Status {
			return nil, false
		}
		return cloneUser(u), true
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *InMemoryRepository) UpdateUserStatus(_ context.Context, id primitive.ObjectID, status string, by primitive.ObjectID, at time.Time) (*models.User, error) {
	return r.updateUser(id, func(u *models.User) {
		u.Status = status
		u.StatusUpdatedAt = &at
		u.StatusUpdatedBy = &by
	})
}

func (r *InMemoryRepository) UpdateUserProfile(_ context.Context, id primitive.ObjectID, fullName string) (*models.User, error) {
	return r.updateUser(id, func(u *models.User) { u.FullName = fullName })
}

func (r *InMemoryRepository) MarkEmailVerified(_ context.Context, id primitive.ObjectID) error {
	_, err := r.updateUser(id, func(u *models.User) { u.EmailVerified = true })
	return err
}

func (r *InMemoryRepository) UpdatePassword(_ context.Context, id primitive.ObjectID, hash string) error {
	_, err := r.updateUser(id, func(u *models.User) { u.Password = hash })
	return err
}

func (r *InMemoryRepository) updateUser(id primitive.ObjectID, mutate func(*models.User)) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	mutate(u)
	return cloneUser(u), nil
}

// --- reference data ---

func (r *InMemoryRepository) ListSchools(_ context.Context) ([]*models.School, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := lo.Map(lo.Values(r.schools), func(s *models.School, _ int) *models.School {
		c := *s
		return &c
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *InMemoryRepository) CreateSchool(_ context.Context, s *models.School) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.schools[s.Name]; taken {
		return ErrAlreadyExists
	}
	if s.ID.IsZero() {
		s.ID = primitive.NewObjectID()
	}
	c := *s
	r.schools[s.Name] = &c
	return nil
}

func (r *InMemoryRepository) ListCategories(_ context.Context) ([]*models.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := lo.Map(lo.Values(r.categories), func(c *models.Category, _ int) *models.Category {
		cp := *c
		return &cp
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *InMemoryRepository) CreateCategory(_ context.Context, c *models.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.categories[c.Name]; taken {
		return ErrAlreadyExists
	}
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	cp := *c
	r.categories[c.Name] = &cp
	return nil
}

var (
	_ Repository = (*InMemoryRepository)(nil)
	_ Repository = (*MongoRepository)(nil)
)
