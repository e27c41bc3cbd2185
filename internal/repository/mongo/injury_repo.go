package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"fitcoach/backend/internal/domain"
	"fitcoach/backend/internal/repository"
)

const injuryCollectionName = "athlete_injuries"

// mongoInjuryRepository implements the repository.InjuryRepository interface.
type mongoInjuryRepository struct {
	collection *mongo.Collection
}

// NewMongoInjuryRepository creates a new injury repository.
func NewMongoInjuryRepository(db *mongo.Database) repository.InjuryRepository {
	return &mongoInjuryRepository{
		collection: db.Collection(injuryCollectionName),
	}
}

// Create inserts a new injury. Every report becomes its own document.
func (r *mongoInjuryRepository) Create(ctx context.Context, injury *domain.AthleteInjury) (string, error) {
	injury.ID = domain.NewID()
	if injury.CreatedAt.IsZero() {
		injury.CreatedAt = time.Now().UTC()
	}
	if injury.AffectedBodyParts == nil {
		injury.AffectedBodyParts = []string{}
	}
	if _, err := r.collection.InsertOne(ctx, injury); err != nil {
		return "", err
	}
	return injury.ID, nil
}

// ListActive returns the user's active injuries, oldest first.
func (r *mongoInjuryRepository) ListActive(ctx context.Context, userID string) ([]domain.AthleteInjury, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"userId": userID, "isActive": true}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	injuries := []domain.AthleteInjury{}
	if err = cursor.All(ctx, &injuries); err != nil {
		return nil, err
	}
	return injuries, nil
}

// ResolveActive marks every active injury of the user as resolved at the given time.
func (r *mongoInjuryRepository) ResolveActive(ctx context.Context, userID string, at time.Time) (int64, error) {
	update := bson.M{"$set": bson.M{"isActive": false, "resolvedAt": at.UTC()}}
	result, err := r.collection.UpdateMany(ctx, bson.M{"userId": userID, "isActive": true}, update)
	if err != nil {
		return 0, err
	}
	return result.ModifiedCount, nil
}

// EnsureInjuryIndexes creates necessary indexes. Call during startup.
func EnsureInjuryIndexes(ctx context.Context, collection *mongo.Collection) error {
	model := mongo.IndexModel{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "isActive", Value: 1}}}
	if _, err := collection.Indexes().CreateOne(ctx, model); err != nil {
		return fmt.Errorf("create indexes for %s: %w", collection.Name(), err)
	}
	return nil
}
