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

const programCollectionName = "programs"

// mongoProgramRepository implements repository.ProgramRepository
type mongoProgramRepository struct {
	collection *mongo.Collection
}

// NewMongoProgramRepository creates a new Program repository.
func NewMongoProgramRepository(db *mongo.Database) repository.ProgramRepository {
	return &mongoProgramRepository{
		collection: db.Collection(programCollectionName),
	}
}

// Create inserts a new program.
func (r *mongoProgramRepository) Create(ctx context.Context, program *domain.Program) (string, error) {
	if program.CreatorID == "" || program.Title == "" {
		return "", errors.New("program requires creatorId and title")
	}
	program.ID = domain.NewID()
	now := time.Now().UTC()
	program.CreatedAt = now
	program.UpdatedAt = now

	if _, err := r.collection.InsertOne(ctx, program); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", fmt.Errorf("program %q: %w", program.Title, repository.ErrConflict)
		}
		return "", err
	}
	return program.ID, nil
}

// GetByID retrieves a single program by its ID.
func (r *mongoProgramRepository) GetByID(ctx context.Context, id string) (*domain.Program, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

// GetByCreatorAndTitle finds the creator's program with exactly this title.
func (r *mongoProgramRepository) GetByCreatorAndTitle(ctx context.Context, creatorID, title string) (*domain.Program, error) {
	return r.findOne(ctx, bson.M{"creatorId": creatorID, "title": title})
}

func (r *mongoProgramRepository) findOne(ctx context.Context, filter bson.M) (*domain.Program, error) {
	var program domain.Program
	if err := r.collection.FindOne(ctx, filter).Decode(&program); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &program, nil
}

// ListByCreator retrieves the creator's programs, most recently edited first.
func (r *mongoProgramRepository) ListByCreator(ctx context.Context, creatorID string) ([]domain.Program, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "updatedAt", Value: -1}, {Key: "_id", Value: 1}})

	cursor, err := r.collection.Find(ctx, bson.M{"creatorId": creatorID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	programs := []domain.Program{}
	if err = cursor.All(ctx, &programs); err != nil {
		return nil, err
	}
	return programs, nil
}

// Update replaces the program metadata. CreatorID and CreatedAt never change.
func (r *mongoProgramRepository) Update(ctx context.Context, program *domain.Program) error {
	program.UpdatedAt = time.Now().UTC()
	update := bson.M{
		"$set": bson.M{
			"title":       program.Title,
			"description": program.Description,
			"updatedAt":   program.UpdatedAt,
		},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": program.ID}, update)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("program %q: %w", program.Title, repository.ErrConflict)
		}
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Delete removes the program document only; callers clear dependents first.
func (r *mongoProgramRepository) Delete(ctx context.Context, id string) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// EnsureProgramIndexes creates necessary indexes. Call during startup.
func EnsureProgramIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			// Titles are unique per creator.
			Keys:    bson.D{{Key: "creatorId", Value: 1}, {Key: "title", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "creatorId", Value: 1}, {Key: "updatedAt", Value: -1}},
			Options: options.Index(),
		},
	}
	if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("create indexes for %s: %w", collection.Name(), err)
	}
	return nil
}
