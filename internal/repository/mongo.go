package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/harentsoaR/armline-api/internal/models"
)

const (
	reportsCollection    = "reports"
	usersCollection      = "users"
	schoolsCollection    = "schools"
	categoriesCollection = "categories"

	defaultTimeout = 5 * time.Second
)

// MongoRepository is the MongoDB implementation of Repository.
type MongoRepository struct {
	db      *mongo.Database
	timeout time.Duration
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{db: db, timeout: defaultTimeout}
}

// EnsureIndexes creates the unique and lookup indexes the store relies on.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	indexes := map[string][]mongo.IndexModel{
		reportsCollection: {
			{Keys: bson.D{{Key: "caseId", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "school", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "submittedById", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
		usersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "school", Value: 1}, {Key: "status", Value: 1}}},
		},
		schoolsCollection: {
			{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		categoriesCollection: {
			{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
	}
	var errs []string
	for name, idx := range indexes {
		if _, err := r.db.Collection(name).Indexes().CreateMany(ctx, idx); err != nil {
			errs = append(errs, name+": "+err.Error())
		}
	}
	if len(errs) > 0 {
		return errors.New("create indexes: " + strings.Join(errs, "; "))
	}
	return nil
}

func (r *MongoRepository) ctx(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, r.timeout)
}

func (r *MongoRepository) reports() *mongo.Collection { return r.db.Collection(reportsCollection) }
func (r *MongoRepository) users() *mongo.Collection   { return r.db.Collection(usersCollection) }

func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}

var returnAfter = options.FindOneAndUpdate().SetReturnDocument(options.After)

// --- reports ---

func (r *MongoRepository) CreateReport(ctx context.Context, report *models.Report) error {
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	var err error
	for attempt := 0; attempt < maxCaseIDAttempts; attempt++ {
		assignIdentity(report)
		if _, err = r.reports().InsertOne(ctx, report); err == nil {
			return nil
		}
		if !mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("insert report: %w", err)
		}
	}
	return fmt.Errorf("insert report: case id collided %d times: %w", maxCaseIDAttempts, ErrAlreadyExists)
}

func (r *MongoRepository) GetReportByID(ctx context.Context, id primitive.ObjectID) (*models.Report, error) {
	return r.findReport(ctx, bson.M{"_id": id})
}

func (r *MongoRepository) GetReportByCaseID(ctx context.Context, caseID string) (*models.Report, error) {
	return r.findReport(ctx, bson.M{"caseId": models.NormalizeCaseID(caseID)})
}

func (r *MongoRepository) findReport(ctx context.Context, filter bson.M) (*models.Report, error) {
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	var report models.Report
	if err := r.reports().FindOne(ctx, filter).Decode(&report); err != nil {
		return nil, notFound(err)
	}
	return &report, nil
}

func (r *MongoRepository) ListReports(ctx context.Context, f ReportFilter) ([]*models.Report, error) {
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	filter := bson.M{}
	if f.School != "" {
		filter["school"] = f.School
	}
	if f.SubmittedBy != nil {
		// documents written before submittedById only carry authorId
		filter["$or"] = bson.A{
			bson.M{"submittedById": *f.SubmittedBy},
			bson.M{"authorId": *f.SubmittedBy},
		}
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.Category != "" {
		filter["category"] = f.Category
	}
	if f.Priority != "" {
		filter["priority"] = f.Priority
	}

	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.reports().Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	reports := make([]*models.Report, 0)
	if err := cursor.All(ctx, &reports); err != nil {
		return nil, err
	}
	return reports, nil
}

func (r *MongoRepository) UpdateReportStatus(ctx context.Context, id primitive.ObjectID, from, to string, entry models.CommunicationEntry) (*models.Report, error) {
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	update := bson.M{
		"$set":  bson.M{"status": to, "updatedAt": entry.Timestamp},
		"$push": bson.M{"communicationLog": entry},
	}
	var report models.Report
	err := r.reports().FindOneAndUpdate(ctx, bson.M{"_id": id, "status": from}, update, returnAfter).Decode(&report)
	if errors.Is(err, mongo.ErrNoDocuments) {
		n, cerr := r.reports().CountDocuments(ctx, bson.M{"_id": id})
		if cerr != nil {
			return nil, cerr
		}
		if n == 0 {
			return nil, ErrNotFound
		}
		return nil, ErrConflict
	}
	if err != nil {
		return nil, err
	}
	return &report, nil
}

func (r *MongoRepository) AppendCommunication(ctx context.Context, id primitive.ObjectID, entry models.CommunicationEntry) (*models.Report, error) {
	return r.updateReport(ctx, id, bson.M{
		"$set":  bson.M{"updatedAt": entry.Timestamp},
		"$push": bson.M{"communicationLog": entry},
	})
}

func (r *MongoRepository) AddEscalation(ctx context.Context, id primitive.ObjectID, esc models.Escalation, entry models.CommunicationEntry) (*models.Report, error) {
	return r.updateReport(ctx, id, bson.M{
		"$set":  bson.M{"updatedAt": entry.Timestamp},
		"$push": bson.M{"communicationLog": entry, "escalations": esc},
	})
}

func (r *MongoRepository) updateReport(ctx context.Context, id primitive.ObjectID, update bson.M) (*models.Report, error) {
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	var report models.Report
	if err := r.reports().FindOneAndUpdate(ctx, bson.M{"_id": id}, update, returnAfter).Decode(&report); err != nil {
		return nil, notFound(err)
	}
	return &report, nil
}

// --- users ---

func (r *MongoRepository) CreateUser(ctx context.Context, u *models.User) error {
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if _, err := r.users().InsertOne(ctx, u); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *MongoRepository) GetUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return r.findUser(ctx, bson.M{"_id": id})
}

func (r *MongoRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findUser(ctx, bson.M{"email": strings.ToLower(strings.TrimSpace(email))})
}

func (r *MongoRepository) findUser(ctx context.Context, filter bson.M) (*models.User, error) {
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	var user models.User
	if err := r.users().FindOne(ctx, filter).Decode(&user); err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (r *MongoRepository) GetUsersByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*models.User, error) {
	out := make(map[primitive.ObjectID]*models.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	users, err := r.findUsers(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

func (r *MongoRepository) ListUsers(ctx context.Context, f UserFilter) ([]*models.User, error) {
	filter := bson.M{}
	if f.School != "" {
		filter["school"] = f.School
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	return r.findUsers(ctx, filter)
}

func (r *MongoRepository) findUsers(ctx context.Context, filter bson.M) ([]*models.User, error) {
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	cursor, err := r.users().Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	users := make([]*models.User, 0)
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (r *MongoRepository) UpdateUserStatus(ctx context.Context, id primitive.ObjectID, status string, by primitive.ObjectID, at time.Time) (*models.User, error) {
	return r.updateUser(ctx, id, bson.M{"$set": bson.M{
		"status":          status,
		"statusUpdatedAt": at,
		"statusUpdatedBy": by,
	}})
}

func (r *MongoRepository) UpdateUserProfile(ctx context.Context, id primitive.ObjectID, fullName string) (*models.User, error) {
	return r.updateUser(ctx, id, bson.M{"$set": bson.M{"fullName": fullName}})
}

func (r *MongoRepository) MarkEmailVerified(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.updateUser(ctx, id, bson.M{"$set": bson.M{"emailVerified": true}})
	return err
}

func (r *MongoRepository) UpdatePassword(ctx context.Context, id primitive.ObjectID, hash string) error {
	_, err := r.updateUser(ctx, id, bson.M{"$set": bson.M{"password": hash}})
	return err
}

func (r *MongoRepository) updateUser(ctx context.Context, id primitive.ObjectID, update bson.M) (*models.User, error) {
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	var user models.User
	if err := r.users().FindOneAndUpdate(ctx, bson.M{"_id": id}, update, returnAfter).Decode(&user); err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// --- reference data ---

func (r *MongoRepository) ListSchools(ctx context.Context) ([]*models.School, error) {
	schools := make([]*models.School, 0)
	if err := r.listByName(ctx, schoolsCollection, &schools); err != nil {
		return nil, err
	}
	return schools, nil
}

func (r *MongoRepository) CreateSchool(ctx context.Context, s *models.School) error {
	if s.ID.IsZero() {
		s.ID = primitive.NewObjectID()
	}
	return r.insertReference(ctx, schoolsCollection, s)
}

func (r *MongoRepository) ListCategories(ctx context.Context) ([]*models.Category, error) {
	categories := make([]*models.Category, 0)
	if err := r.listByName(ctx, categoriesCollection, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *MongoRepository) CreateCategory(ctx context.Context, c *models.Category) error {
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	return r.insertReference(ctx, categoriesCollection, c)
}

func (r *MongoRepository) listByName(ctx context.Context, collection string, out interface{}) error {
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	cursor, err := r.db.Collection(collection).Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)
	return cursor.All(ctx, out)
}

func (r *MongoRepository) insertReference(ctx context.Context, collection string, doc interface{}) error {
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	if _, err := r.db.Collection(collection).InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("insert into %s: %w", collection, err)
	}
	return nil
}
