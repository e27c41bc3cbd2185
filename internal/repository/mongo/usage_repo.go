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

const usageCollectionName = "ai_usage"

// mongoUsageRepository implements repository.UsageRepository on a single document.
type mongoUsageRepository struct {
	collection *mongo.Collection
}

// NewMongoUsageRepository creates a new usage repository.
func NewMongoUsageRepository(db *mongo.Database) repository.UsageRepository {
	return &mongoUsageRepository{
		collection: db.Collection(usageCollectionName),
	}
}

func (r *mongoUsageRepository) Get(ctx context.Context) (*domain.AIUsage, error) {
	var usage domain.AIUsage
	err := r.collection.FindOne(ctx, bson.M{"_id": domain.GlobalUsageID}).Decode(&usage)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return &domain.AIUsage{ID: domain.GlobalUsageID}, nil
		}
		return nil, err
	}
	return &usage, nil
}

// Add seeds the singleton document when missing, then increments it with the budget
// condition evaluated by the server in the same update. The seed filters on _id alone,
// so concurrent first writers converge on one document.
func (r *mongoUsageRepository) Add(ctx context.Context, tokens int64, costUSD, limitUSD float64) (*domain.AIUsage, error) {
	now := time.Now().UTC()

	seed := bson.M{"$setOnInsert": bson.M{"totalTokens": int64(0), "totalCostUsd": 0.0, "updatedAt": now}}
	if _, err := r.collection.UpdateOne(ctx, bson.M{"_id": domain.GlobalUsageID}, seed, options.Update().SetUpsert(true)); err != nil {
		// A racing seed already created the document.
		if !mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("seed usage: %w", err)
		}
	}

	filter := bson.M{
		"_id":          domain.GlobalUsageID,
		"totalCostUsd": bson.M{"$lt": limitUSD},
	}
	update := bson.M{
		"$inc": bson.M{"totalTokens": tokens, "totalCostUsd": costUSD},
		"$set": bson.M{"updatedAt": now},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var usage domain.AIUsage
	if err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&usage); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrBudgetExceeded
		}
		return nil, fmt.Errorf("increment usage: %w", err)
	}
	return &usage, nil
}

func (r *mongoUsageRepository) Reset(ctx context.Context) error {
	update := bson.M{"$set": bson.M{"totalTokens": int64(0), "totalCostUsd": 0.0, "updatedAt": time.Now().UTC()}}
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": domain.GlobalUsageID}, update, options.Update().SetUpsert(true))
	return err
}
