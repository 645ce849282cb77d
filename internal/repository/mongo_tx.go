package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
)

type mongoTransactor struct {
	client  *mongo.Client
	enabled bool
}

// NewMongoTransactor creates a Transactor backed by MongoDB sessions.
// Multi-document transactions need a replica set; with enabled false fn runs
// directly and each repository write stands on its own.
func NewMongoTransactor(client *mongo.Client, enabled bool) Transactor {
	return &mongoTransactor{client: client, enabled: enabled}
}

func (t *mongoTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if !t.enabled || mongo.SessionFromContext(ctx) != nil {
		return fn(ctx)
	}

	session, err := t.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		return nil, fn(sessCtx)
	})
	return err
}
