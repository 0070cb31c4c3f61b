package snapshot

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultTTL is the retention window for snapshots after their last save.
const DefaultTTL = 24 * time.Hour

// Manager wraps a Store with per-execution save serialization so concurrent
// branch completions never interleave partial snapshots, and applies the
// retention TTL uniformly.
type Manager struct {
	store  Store
	ttl    time.Duration
	logger *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewManager(store Store, ttl time.Duration, logger *slog.Logger) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &Manager{
		store:  store,
		ttl:    ttl,
		logger: logger.With("module", "snapshot_manager"),
		locks:  make(map[string]*sync.Mutex),
	}
}

// Save persists a snapshot. Saves for the same execution are serialized.
func (m *Manager) Save(ctx context.Context, snap *Snapshot) error {
	lock := m.executionLock(snap.ExecutionID)
	lock.Lock()
	defer lock.Unlock()

	snap.SavedAt = time.Now().UTC()

	return m.store.Save(ctx, snap, m.ttl)
}

// Load fetches the latest snapshot for an execution.
func (m *Manager) Load(ctx context.Context, executionID string) (*Snapshot, error) {
	return m.store.Load(ctx, executionID)
}

// Forget drops an execution's snapshot and its save lock.
func (m *Manager) Forget(ctx context.Context, executionID string) error {
	m.mu.Lock()
	delete(m.locks, executionID)
	m.mu.Unlock()

	return m.store.Delete(ctx, executionID)
}

func (m *Manager) executionLock(executionID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()

	lock, ok := m.locks[executionID]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[executionID] = lock
	}

	return lock
}
