package snapshot

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq" // postgres driver
)

const createSnapshotsTable = `
CREATE TABLE IF NOT EXISTS execution_snapshots (
	execution_id TEXT PRIMARY KEY,
	workflow_id  TEXT NOT NULL,
	status       TEXT NOT NULL,
	payload      JSONB NOT NULL,
	saved_at     TIMESTAMPTZ NOT NULL,
	expires_at   TIMESTAMPTZ
)`

// PostgresStore persists snapshots durably. Expiry is enforced on read and
// lazily cleaned on write, which keeps the store dependency-free of a
// background job runner.
type PostgresStore struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewPostgresStore(ctx context.Context, logger *slog.Logger, databaseURL string) (*PostgresStore, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	if err := database.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := database.ExecContext(ctx, createSnapshotsTable); err != nil {
		return nil, fmt.Errorf("failed to run snapshot migration: %w", err)
	}

	return &PostgresStore{
		db:     database,
		logger: logger.With("module", "snapshot_postgres"),
	}, nil
}

func (s *PostgresStore) Save(ctx context.Context, snap *Snapshot, ttl time.Duration) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return saveError(snap.ExecutionID, err)
	}

	var expiresAt sql.NullTime
	if ttl > 0 {
		expiresAt = sql.NullTime{Time: time.Now().Add(ttl), Valid: true}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO execution_snapshots (execution_id, workflow_id, status, payload, saved_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (execution_id) DO UPDATE
		SET workflow_id = EXCLUDED.workflow_id,
		    status = EXCLUDED.status,
		    payload = EXCLUDED.payload,
		    saved_at = EXCLUDED.saved_at,
		    expires_at = EXCLUDED.expires_at`,
		snap.ExecutionID, snap.WorkflowID, string(snap.Status), payload, time.Now().UTC(), expiresAt,
	)
	if err != nil {
		return saveError(snap.ExecutionID, err)
	}

	// Opportunistic cleanup of expired rows.
	if _, err := s.db.ExecContext(ctx, `DELETE FROM execution_snapshots WHERE expires_at IS NOT NULL AND expires_at < NOW()`); err != nil {
		s.logger.WarnContext(ctx, "Failed to clean expired snapshots", "error", err)
	}

	return nil
}

func (s *PostgresStore) Load(ctx context.Context, executionID string) (*Snapshot, error) {
	var payload []byte

	err := s.db.QueryRowContext(ctx, `
		SELECT payload FROM execution_snapshots
		WHERE execution_id = $1 AND (expires_at IS NULL OR expires_at >= NOW())`,
		executionID,
	).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, loadError(executionID, ErrSnapshotNotFound)
		}

		return nil, loadError(executionID, err)
	}

	var snap Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, loadError(executionID, err)
	}

	return &snap, nil
}

func (s *PostgresStore) Delete(ctx context.Context, executionID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM execution_snapshots WHERE execution_id = $1`, executionID); err != nil {
		return &SnapshotError{Op: "Delete", ExecutionID: executionID, Err: err}
	}

	return nil
}

func (s *PostgresStore) Close(_ context.Context) error {
	return s.db.Close()
}
