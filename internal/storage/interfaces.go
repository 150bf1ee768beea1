package storage

import (
	"context"
	"io"

	"github.com/adeelqureshi/solana-pool-gateway/internal/models"
)

// CreationCache caches recent creation events for fast dashboard reads
type CreationCache interface {
	// AddRecentCreation pushes a creation event onto the recent list
	AddRecentCreation(ctx context.Context, event *models.PoolCreationEvent) error

	// GetRecentCreations retrieves the most recent creation events
	GetRecentCreations(ctx context.Context, limit int64) ([]*models.PoolCreationEvent, error)

	// Ping checks if the cache is reachable
	Ping(ctx context.Context) error

	// Close closes the cache connection
	io.Closer
}

// CreationStore defines the interface for persistent creation history
type CreationStore interface {
	// InsertCreation inserts a creation event into the store
	InsertCreation(ctx context.Context, event *models.PoolCreationEvent) error

	// Ping checks if the store is reachable
	Ping(ctx context.Context) error

	// Close closes the store connection
	io.Closer
}
