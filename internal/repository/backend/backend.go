// Package backend assembles the repositories for the configured storage driver.
package backend

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	mongodriver "go.mongodb.org/mongo-driver/mongo"

	"fitcoach/backend/internal/config"
	"fitcoach/backend/internal/repository"
	"fitcoach/backend/internal/repository/mongo"
	"fitcoach/backend/internal/repository/sqlstore"
)

// Store groups every repository of one backend together with its transactor.
type Store struct {
	Users            repository.UserRepository
	Programs         repository.ProgramRepository
	Schedules        repository.ScheduleRepository
	Enrollments      repository.EnrollmentRepository
	Injuries         repository.InjuryRepository
	Personalizations repository.PersonalizationRepository
	Usage            repository.UsageRepository
	Transactor       repository.Transactor

	close func() error
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// Open connects to the database selected by cfg.Driver and prepares its schema or indexes.
func Open(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (*Store, error) {
	switch cfg.Driver {
	case "mongo":
		client, err := mongo.ConnectDB(ctx, cfg.URI)
		if err != nil {
			return nil, fmt.Errorf("connect to mongo: %w", err)
		}
		if err := mongo.RequireReplicaSet(ctx, client); err != nil {
			_ = mongo.DisconnectDB(client)
			return nil, err
		}
		db := client.Database(cfg.Name)
		if err := mongo.EnsureIndexes(ctx, db); err != nil {
			// Startup continues; duplicate checks in the services still apply.
			logger.Warn("Failed to ensure mongo indexes", "error", err)
		}
		logger.Info("Connected to MongoDB", "database", cfg.Name)
		return newMongoStore(client, db), nil

	case sqlstore.DriverSQLite, sqlstore.DriverPostgres:
		db, err := sqlstore.Open(ctx, cfg.Driver, cfg.URI)
		if err != nil {
			return nil, err
		}
		logger.Info("Connected to SQL database", "driver", cfg.Driver)
		return NewSQLStore(db), nil

	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// NewSQLStore wires the sqlstore repositories on an open database.
func NewSQLStore(db *sqlx.DB) *Store {
	return &Store{
		Users:            sqlstore.NewUserRepository(db),
		Programs:         sqlstore.NewProgramRepository(db),
		Schedules:        sqlstore.NewScheduleRepository(db),
		Enrollments:      sqlstore.NewEnrollmentRepository(db),
		Injuries:         sqlstore.NewInjuryRepository(db),
		Personalizations: sqlstore.NewPersonalizationRepository(db),
		Usage:            sqlstore.NewUsageRepository(db),
		Transactor:       sqlstore.NewTransactor(db),
		close:            db.Close,
	}
}

func newMongoStore(client *mongodriver.Client, db *mongodriver.Database) *Store {
	return &Store{
		Users:            mongo.NewMongoUserRepository(db),
		Programs:         mongo.NewMongoProgramRepository(db),
		Schedules:        mongo.NewMongoScheduleRepository(db),
		Enrollments:      mongo.NewMongoEnrollmentRepository(db),
		Injuries:         mongo.NewMongoInjuryRepository(db),
		Personalizations: mongo.NewMongoPersonalizationRepository(db),
		Usage:            mongo.NewMongoUsageRepository(db),
		Transactor:       mongo.NewTransactor(client),
		close:            func() error { return mongo.DisconnectDB(client) },
	}
}
