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

const personalizationCollectionName = "program_personalizations"

// mongoPersonalizationRepository implements repository.PersonalizationRepository.
// The document payload is kept as opaque bytes.
type mongoPersonalizationRepository struct {
	collection *mongo.Collection
}

// NewMongoPersonalizationRepository creates a new personalization repository.
func NewMongoPersonalizationRepository(db *mongo.Database) repository.PersonalizationRepository {
	return &mongoPersonalizationRepository{
		collection: db.Collection(personalizationCollectionName),
	}
}

func (r *mongoPersonalizationRepository) Create(ctx context.Context, p *domain.ProgramPersonalization) (string, error) {
	p.ID = domain.NewID()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	if _, err := r.collection.InsertOne(ctx, p); err != nil {
		return "", err
	}
	return p.ID, nil
}

// LatestForWeek sorts on createdAt, then on the time-ordered id for rows created in the same millisecond.
func (r *mongoPersonalizationRepository) LatestForWeek(ctx context.Context, userID string, weekNumber int) (*domain.ProgramPersonalization, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})

	var p domain.ProgramPersonalization
	err := r.collection.FindOne(ctx, bson.M{"userId": userID, "weekNumber": weekNumber}, opts).Decode(&p)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *mongoPersonalizationRepository) DeleteByType(ctx context.Context, userID string, kind domain.PersonalizationType) (int64, error) {
	result, err := r.collection.DeleteMany(ctx, bson.M{"userId": userID, "personalizationType": kind})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

func (r *mongoPersonalizationRepository) DeleteByProgram(ctx context.Context, programID string) error {
	_, err := r.collection.DeleteMany(ctx, bson.M{"originalProgramId": programID})
	return err
}

// EnsurePersonalizationIndexes creates necessary indexes. Call during startup.
func EnsurePersonalizationIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "userId", Value: 1}, {Key: "weekNumber", Value: 1}, {Key: "createdAt", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "originalProgramId", Value: 1}},
		},
	}
	if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("create indexes for %s: %w", collection.Name(), err)
	}
	return nil
}
