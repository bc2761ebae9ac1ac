package repository

import (
	"context"
	"fmt"

	"github.com/devmatch/backend/internal/config"
	"github.com/devmatch/backend/internal/domain"
)

// Store is a persistence backend for users and connection requests
type Store interface {
	domain.UserRepository
	domain.ConnectionRepository

	// Ping reports whether the backend is reachable
	Ping(ctx context.Context) error
	// Migrate creates the indexes and tables the store relies on,
	// including the pair uniqueness constraint. It is idempotent.
	Migrate(ctx context.Context) error
	Close(ctx context.Context) error
}

// Open connects to the backend named by cfg.Driver
func Open(ctx context.Context, cfg config.DatabaseConfig) (Store, error) {
	switch cfg.Driver {
	case "mongo":
		return NewMongoRepository(ctx, cfg)
	case "postgres":
		return NewPostgresRepository(ctx, cfg)
	case "memory":
		return NewMemoryRepository(), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}
