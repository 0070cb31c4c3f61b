package snapshot

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

type memoryEntry struct {
	payload   []byte
	expiresAt time.Time
}

// MemoryStore keeps snapshots in process memory with TTL expiry. Intended
// for tests and single-process deployments.
type MemoryStore struct {
	mu      sync.RWMutex
	logger  *slog.Logger
	entries map[string]memoryEntry
}

func NewMemoryStore(logger *slog.Logger) *MemoryStore {
	return &MemoryStore{
		logger:  logger,
		entries: make(map[string]memoryEntry),
	}
}

func (s *MemoryStore) Save(_ context.Context, snap *Snapshot, ttl time.Duration) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return saveError(snap.ExecutionID, err)
	}

	entry := memoryEntry{payload: payload}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}

	s.mu.Lock()
	s.entries[snap.ExecutionID] = entry
	s.sweepLocked()
	s.mu.Unlock()

	return nil
}

func (s *MemoryStore) Load(_ context.Context, executionID string) (*Snapshot, error) {
	s.mu.RLock()
	entry, ok := s.entries[executionID]
	s.mu.RUnlock()

	if !ok || (!entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt)) {
		return nil, loadError(executionID, ErrSnapshotNotFound)
	}

	var snap Snapshot
	if err := json.Unmarshal(entry.payload, &snap); err != nil {
		return nil, loadError(executionID, err)
	}

	return &snap, nil
}

func (s *MemoryStore) Delete(_ context.Context, executionID string) error {
	s.mu.Lock()
	delete(s.entries, executionID)
	s.mu.Unlock()

	return nil
}

func (s *MemoryStore) Close(_ context.Context) error {
	return nil
}

// sweepLocked drops expired entries. Called under the write lock.
func (s *MemoryStore) sweepLocked() {
	now := time.Now()

	for id, entry := range s.entries {
		if !entry.expiresAt.IsZero() && now.After(entry.expiresAt) {
			delete(s.entries, id)
		}
	}
}
