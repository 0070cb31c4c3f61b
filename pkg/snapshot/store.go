package snapshot

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

// Store is the persistence contract for execution snapshots. Any backend
// providing get/set/expire semantics suffices; the engine's logic does not
// change across backends.
type Store interface {
	Save(ctx context.Context, snap *Snapshot, ttl time.Duration) error
	Load(ctx context.Context, executionID string) (*Snapshot, error)
	Delete(ctx context.Context, executionID string) error
	Close(ctx context.Context) error
}

var supportedStoreProviders = []string{"memory", "redis", "postgres", "postgresql"}

// NewStore builds a snapshot store from a connection URL. The scheme selects
// the backend: memory://, redis://host:port, postgres://....
func NewStore(ctx context.Context, logger *slog.Logger, storeURL string) (Store, error) {
	switch parseStoreProvider(storeURL) {
	case "redis":
		return NewRedisStore(ctx, logger, storeURL)
	case "postgres", "postgresql":
		return NewPostgresStore(ctx, logger, storeURL)
	default:
		return NewMemoryStore(logger), nil
	}
}

func parseStoreProvider(storeURL string) string {
	provider, _, found := strings.Cut(storeURL, "://")
	if !found {
		return "memory"
	}

	for _, supported := range supportedStoreProviders {
		if provider == supported {
			return provider
		}
	}

	return "memory"
}

func saveError(executionID string, err error) error {
	return &SnapshotError{Op: "Save", ExecutionID: executionID, Err: err}
}

func loadError(executionID string, err error) error {
	return &SnapshotError{Op: "Load", ExecutionID: executionID, Err: err}
}
