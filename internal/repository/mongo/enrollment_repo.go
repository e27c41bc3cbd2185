package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"fitcoach/backend/internal/domain"
	"fitcoach/backend/internal/repository"
)

const enrollmentCollectionName = "enrollments"

// mongoEnrollmentRepository implements repository.EnrollmentRepository
type mongoEnrollmentRepository struct {
	collection *mongo.Collection
}

// NewMongoEnrollmentRepository creates a new Enrollment repository.
func NewMongoEnrollmentRepository(db *mongo.Database) repository.EnrollmentRepository {
	return &mongoEnrollmentRepository{
		collection: db.Collection(enrollmentCollectionName),
	}
}

// Create inserts a new enrollment. The unique (userId, programId) index rejects duplicates.
func (r *mongoEnrollmentRepository) Create(ctx context.Context, e *domain.Enrollment) error {
	if e.UserID == "" || e.ProgramID == "" {
		return errors.New("enrollment requires userId and programId")
	}
	if e.JoinedAt.IsZero() {
		e.JoinedAt = time.Now().UTC()
	}
	if e.CurrentDay < 1 {
		e.CurrentDay = 1
	}

	if _, err := r.collection.InsertOne(ctx, e); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrConflict
		}
		return err
	}
	return nil
}

// Get retrieves the enrollment of a user in a program.
func (r *mongoEnrollmentRepository) Get(ctx context.Context, userID, programID string) (*domain.Enrollment, error) {
	var e domain.Enrollment
	err := r.collection.FindOne(ctx, bson.M{"userId": userID, "programId": programID}).Decode(&e)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

// ListByUser returns the user's enrollments, earliest joined first.
func (r *mongoEnrollmentRepository) ListByUser(ctx context.Context, userID string) ([]domain.Enrollment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "joinedAt", Value: 1}, {Key: "programId", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	enrollments := []domain.Enrollment{}
	if err = cursor.All(ctx, &enrollments); err != nil {
		return nil, err
	}
	return enrollments, nil
}

// Delete removes the enrollment if present.
func (r *mongoEnrollmentRepository) Delete(ctx context.Context, userID, programID string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"userId": userID, "programId": programID})
	return err
}

// DeleteByProgram removes every enrollment in the program.
func (r *mongoEnrollmentRepository) DeleteByProgram(ctx context.Context, programID string) error {
	_, err := r.collection.DeleteMany(ctx, bson.M{"programId": programID})
	return err
}

// EnsureEnrollmentIndexes creates necessary indexes. Call during startup.
func EnsureEnrollmentIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "programId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "programId", Value: 1}},
			Options: options.Index(),
		},
	}
	if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("create indexes for %s: %w", collection.Name(), err)
	}
	return nil
}
