package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"fitcoach/backend/internal/domain"
	"fitcoach/backend/internal/repository"
)

const (
	dayPlanCollectionName  = "day_plans"
	blockCollectionName    = "wod_blocs"
	exerciseCollectionName = "exercises"
)

// blockDocument stores a block together with its day link.
type blockDocument struct {
	ID        string           `bson:"_id"`
	DayPlanID string           `bson:"dayPlanId"`
	Order     int              `bson:"order"`
	Title     string           `bson:"title"`
	Type      domain.BlockType `bson:"type"`
}

// exerciseDocument stores an exercise together with its block link.
type exerciseDocument struct {
	BlockID         string `bson:"blockId"`
	domain.Exercise `bson:",inline"`
}

// mongoScheduleRepository implements repository.ScheduleRepository
type mongoScheduleRepository struct {
	days      *mongo.Collection
	blocks    *mongo.Collection
	exercises *mongo.Collection
}

// NewMongoScheduleRepository creates a new schedule repository.
func NewMongoScheduleRepository(db *mongo.Database) repository.ScheduleRepository {
	return &mongoScheduleRepository{
		days:      db.Collection(dayPlanCollectionName),
		blocks:    db.Collection(blockCollectionName),
		exercises: db.Collection(exerciseCollectionName),
	}
}

func (r *mongoScheduleRepository) CreateDayPlan(ctx context.Context, day *domain.DayPlan) (string, error) {
	day.ID = domain.NewID()
	if _, err := r.days.InsertOne(ctx, day); err != nil {
		return "", err
	}
	return day.ID, nil
}

func (r *mongoScheduleRepository) CreateBlock(ctx context.Context, dayPlanID string, order int, block *domain.WodBloc) (string, error) {
	block.ID = domain.NewID()
	doc := blockDocument{ID: block.ID, DayPlanID: dayPlanID, Order: order, Title: block.Title, Type: block.Type}
	if _, err := r.blocks.InsertOne(ctx, doc); err != nil {
		return "", err
	}
	return block.ID, nil
}

func (r *mongoScheduleRepository) CreateExercise(ctx context.Context, blockID string, exercise *domain.Exercise) (string, error) {
	exercise.ID = domain.NewID()
	if _, err := r.exercises.InsertOne(ctx, exerciseDocument{BlockID: blockID, Exercise: *exercise}); err != nil {
		return "", err
	}
	return exercise.ID, nil
}

func (r *mongoScheduleRepository) ListDayPlans(ctx context.Context, programID string, fromDay, toDay int) ([]domain.DayPlan, error) {
	filter := bson.M{
		"programId": programID,
		"dayNumber": bson.M{"$gte": fromDay, "$lte": toDay},
	}
	return r.findDays(ctx, filter)
}

func (r *mongoScheduleRepository) ListAllDayPlans(ctx context.Context, programID string) ([]domain.DayPlan, error) {
	return r.findDays(ctx, bson.M{"programId": programID})
}

func (r *mongoScheduleRepository) findDays(ctx context.Context, filter bson.M) ([]domain.DayPlan, error) {
	opts := options.Find().SetSort(bson.D{{Key: "dayNumber", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := r.days.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	days := []domain.DayPlan{}
	if err = cursor.All(ctx, &days); err != nil {
		return nil, err
	}
	return days, nil
}

func (r *mongoScheduleRepository) ListDayBlocks(ctx context.Context, dayPlanIDs []string) ([]domain.DayBlock, error) {
	if len(dayPlanIDs) == 0 {
		return []domain.DayBlock{}, nil
	}
	opts := options.Find().SetSort(bson.D{{Key: "order", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := r.blocks.Find(ctx, bson.M{"dayPlanId": bson.M{"$in": dayPlanIDs}}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []blockDocument
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]domain.DayBlock, 0, len(docs))
	for _, d := range docs {
		out = append(out, domain.DayBlock{
			DayPlanID: d.DayPlanID,
			Order:     d.Order,
			Block:     domain.WodBloc{ID: d.ID, Title: d.Title, Type: d.Type},
		})
	}
	return out, nil
}

func (r *mongoScheduleRepository) ListBlockExercises(ctx context.Context, blockIDs []string) ([]domain.BlockExercise, error) {
	if len(blockIDs) == 0 {
		return []domain.BlockExercise{}, nil
	}
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cursor, err := r.exercises.Find(ctx, bson.M{"blockId": bson.M{"$in": blockIDs}}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []exerciseDocument
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]domain.BlockExercise, 0, len(docs))
	for _, d := range docs {
		out = append(out, domain.BlockExercise{BlockID: d.BlockID, Exercise: d.Exercise})
	}
	return out, nil
}

// DeleteByProgram walks days -> blocks -> exercises and removes them bottom-up.
func (r *mongoScheduleRepository) DeleteByProgram(ctx context.Context, programID string) error {
	days, err := r.ListAllDayPlans(ctx, programID)
	if err != nil {
		return err
	}
	if len(days) == 0 {
		return nil
	}
	dayIDs := make([]string, 0, len(days))
	for _, d := range days {
		dayIDs = append(dayIDs, d.ID)
	}

	blocks, err := r.ListDayBlocks(ctx, dayIDs)
	if err != nil {
		return err
	}
	blockIDs := make([]string, 0, len(blocks))
	for _, b := range blocks {
		blockIDs = append(blockIDs, b.Block.ID)
	}

	if len(blockIDs) > 0 {
		if _, err := r.exercises.DeleteMany(ctx, bson.M{"blockId": bson.M{"$in": blockIDs}}); err != nil {
			return fmt.Errorf("delete exercises: %w", err)
		}
		if _, err := r.blocks.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": blockIDs}}); err != nil {
			return fmt.Errorf("delete blocks: %w", err)
		}
	}
	if _, err := r.days.DeleteMany(ctx, bson.M{"programId": programID}); err != nil {
		return fmt.Errorf("delete day plans: %w", err)
	}
	return nil
}

// EnsureScheduleIndexes creates the indexes of the day, block and exercise collections.
func EnsureScheduleIndexes(ctx context.Context, db *mongo.Database) error {
	targets := []struct {
		collection *mongo.Collection
		keys       bson.D
	}{
		{db.Collection(dayPlanCollectionName), bson.D{{Key: "programId", Value: 1}, {Key: "dayNumber", Value: 1}}},
		{db.Collection(blockCollectionName), bson.D{{Key: "dayPlanId", Value: 1}, {Key: "order", Value: 1}}},
		{db.Collection(exerciseCollectionName), bson.D{{Key: "blockId", Value: 1}}},
	}
	for _, target := range targets {
		if _, err := target.collection.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: target.keys}); err != nil {
			return fmt.Errorf("create indexes for %s: %w", target.collection.Name(), err)
		}
	}
	return nil
}
