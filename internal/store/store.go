package store

import (
	"context"
)

// Store defines the interface for user preference persistence.
// Every method returns a *Error when the backing storage fails.
type Store interface {
	// Init creates the schema. It is idempotent and runs once at start.
	Init(ctx context.Context) error

	// Subscription operations
	ListSubscriptions(ctx context.Context, userID string) ([]string, error)
	AddSubscription(ctx context.Context, userID, topic string) error
	RemoveSubscription(ctx context.Context, userID, topic string) error

	// Push preference operations
	ListPushTopics(ctx context.Context, userID string) (map[string]bool, error)
	SetPushChoice(ctx context.Context, userID, topic string, enabled bool) error
	SetPushTime(ctx context.Context, userID string, pushTime *string) error
	GetPushTime(ctx context.Context, userID string) (*string, error)
	ListAllPushSchedules(ctx context.Context) (map[string]string, error)

	// Health check
	Ping(ctx context.Context) error
	Close() error
}
