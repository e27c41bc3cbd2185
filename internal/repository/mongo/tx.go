package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"

	"fitcoach/backend/internal/repository"
)

// mongoTransactor runs units of work in a multi-document transaction.
// Transactions need a replica set or sharded cluster.
type mongoTransactor struct {
	client *mongo.Client
}

// NewTransactor creates a repository.Transactor on client.
func NewTransactor(client *mongo.Client) repository.Transactor {
	return &mongoTransactor{client: client}
}

// WithinTransaction passes the session context to fn, so repository calls made with it
// join the transaction. Calls nested inside an existing session reuse it.
func (t *mongoTransactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if mongo.SessionFromContext(ctx) != nil {
		return fn(ctx)
	}

	session, err := t.client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		return nil, fn(sessCtx)
	})
	return err
}
