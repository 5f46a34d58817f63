// Package storage persists the latest published snapshot to SQLite so a
// restarted service exposes data before its first live refresh. Only the
// latest snapshot is kept; no history accumulates.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"walletmon/internal/coordinator"

	_ "modernc.org/sqlite"
)

// SnapshotStore holds the single latest snapshot.
type SnapshotStore struct {
	db *sql.DB
}

// NewSnapshotStore opens (creating if needed) the snapshot database at dbPath
// and runs migrations.
func NewSnapshotStore(dbPath string) (*SnapshotStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SnapshotStore{db: db}, nil
}

func (s *SnapshotStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Save replaces the stored snapshot.
func (s *SnapshotStore) Save(ctx context.Context, snap coordinator.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO latest_snapshot (id, payload, saved_at)
		VALUES (1, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET payload = excluded.payload, saved_at = excluded.saved_at`,
		string(payload))
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}

	return nil
}

// Load returns the stored snapshot, or ok=false when none has been saved yet.
func (s *SnapshotStore) Load(ctx context.Context) (coordinator.Snapshot, bool, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM latest_snapshot WHERE id = 1`).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return coordinator.Snapshot{}, false, nil
	}
	if err != nil {
		return coordinator.Snapshot{}, false, fmt.Errorf("load snapshot: %w", err)
	}

	var snap coordinator.Snapshot
	if err := json.Unmarshal([]byte(payload), &snap); err != nil {
		return coordinator.Snapshot{}, false, fmt.Errorf("unmarshal snapshot: %w", err)
	}

	return snap, true, nil
}

// SnapshotPublished implements scheduler.Notifier by persisting each newly
// published snapshot.
func (s *SnapshotStore) SnapshotPublished(ctx context.Context, snap coordinator.Snapshot) error {
	if err := s.Save(ctx, snap); err != nil {
		return err
	}

	slog.DebugContext(ctx, "Snapshot persisted",
		"transactions", snap.TotalTransactions,
		"updated_at", snap.UpdatedAt)
	return nil
}
