package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Mnrljan/report-backend/config"
	"github.com/Mnrljan/report-backend/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	reportsCollection = "reports"
	usersCollection   = "users"
)

// MongoStore persists reports and users as MongoDB documents.
type MongoStore struct {
	client  *mongo.Client
	reports *mongo.Collection
	users   *mongo.Collection
	now     func() time.Time
}

type reportDocument struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	model.Report `bson:",inline"`
}

func (d *reportDocument) toModel() *model.Report {
	r := d.Report
	r.ID = d.ID.Hex()
	return &r
}

type userDocument struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	model.User `bson:",inline"`
}

func (d *userDocument) toModel() *model.User {
	u := d.User
	u.ID = d.ID.Hex()
	return &u
}

// OpenMongo connects to cfg.URI, verifies the connection and ensures the
// indexes the store relies on.
func OpenMongo(ctx context.Context, cfg *config.StoreConfig) (*MongoStore, error) {
	opts := options.Client().
		ApplyURI(cfg.URI).
		SetBSONOptions(&options.BSONOptions{DefaultDocumentM: true})

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	db := client.Database(cfg.Database)
	s := &MongoStore{
		client:  client,
		reports: db.Collection(reportsCollection),
		users:   db.Collection(usersCollection),
		now:     time.Now,
	}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	_, err := s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create users index: %w", err)
	}
	_, err = s.reports.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "createdAt", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create reports index: %w", err)
	}
	return nil
}

// objectID parses a hex id. Ids that cannot be ObjectIDs cannot match any
// document, so they are reported as not found.
func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, ErrNotFound
	}
	return oid, nil
}

func (s *MongoStore) CreateReport(ctx context.Context, report *model.Report) error {
	now := s.now().UTC()
	if report.CreatedAt.IsZero() {
		report.CreatedAt = now
	}
	report.UpdatedAt = now
	if report.FormData == nil {
		report.FormData = map[string]any{}
	}

	doc := reportDocument{ID: primitive.NewObjectID(), Report: *report}
	if _, err := s.reports.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to insert report: %w", err)
	}
	report.ID = doc.ID.Hex()
	return nil
}

func (s *MongoStore) FindReport(ctx context.Context, id string) (*model.Report, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	var doc reportDocument
	err = s.reports.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load report: %w", err)
	}
	return doc.toModel(), nil
}

func (s *MongoStore) ListReports(ctx context.Context, offset, limit int) ([]*model.Report, int64, error) {
	total, err := s.reports.CountDocuments(ctx, bson.D{})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count reports: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))
	cursor, err := s.reports.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list reports: %w", err)
	}

	var docs []reportDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("failed to decode reports: %w", err)
	}

	reports := make([]*model.Report, 0, len(docs))
	for i := range docs {
		reports = append(reports, docs[i].toModel())
	}
	return reports, total, nil
}

func (s *MongoStore) SubmitReport(ctx context.Context, id string, version int64, formData map[string]any, submittedAt time.Time) (*model.Report, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	if formData == nil {
		formData = map[string]any{}
	}

	update := bson.M{
		"$set": bson.M{
			"formData":       formData,
			"status":         model.StatusSubmitted,
			"submissionDate": submittedAt.UTC(),
			"updatedAt":      s.now().UTC(),
		},
		"$inc": bson.M{"__v": 1},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc reportDocument
	err = s.reports.FindOneAndUpdate(ctx, bson.M{"_id": oid, "__v": version}, update, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		if _, err := s.FindReport(ctx, id); err != nil {
			return nil, err
		}
		return nil, ErrVersionConflict
	}
	if err != nil {
		return nil, fmt.Errorf("failed to submit report: %w", err)
	}
	return doc.toModel(), nil
}

func (s *MongoStore) DeleteReport(ctx context.Context, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}

	res, err := s.reports.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("failed to delete report: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) DeleteAllReports(ctx context.Context) (int64, error) {
	res, err := s.reports.DeleteMany(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("failed to delete reports: %w", err)
	}
	return res.DeletedCount, nil
}

func (s *MongoStore) CreateUser(ctx context.Context, user *model.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = s.now().UTC()
	}

	doc := userDocument{ID: primitive.NewObjectID(), User: *user}
	_, err := s.users.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	user.ID = doc.ID.Hex()
	return nil
}

func (s *MongoStore) FindUserByID(ctx context.Context, id string) (*model.User, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	return s.findUser(ctx, bson.M{"_id": oid})
}

func (s *MongoStore) FindUserByUsername(ctx context.Context, username string) (*model.User, error) {
	return s.findUser(ctx, bson.M{"username": username})
}

func (s *MongoStore) findUser(ctx context.Context, filter bson.M) (*model.User, error) {
	var doc userDocument
	err := s.users.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return doc.toModel(), nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
