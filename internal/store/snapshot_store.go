package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/vigilops/claude-vigil/pkg/models"
)

// SnapshotStore provides snapshot-history database operations.
type SnapshotStore struct {
	store *Store
}

// NewSnapshotStore creates a new snapshot store.
func NewSnapshotStore(store *Store) *SnapshotStore {
	return &SnapshotStore{store: store}
}

// Insert archives one snapshot.
func (s *SnapshotStore) Insert(ctx context.Context, snap *models.MonitoringSnapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	const query = `
		INSERT INTO snapshots (taken_at, taken_at_epoch, total_sessions, total_cost, max_tokens, payload)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err = s.store.db.ExecContext(ctx, query,
		snap.LastUpdate.Format(time.RFC3339), snap.LastUpdate.UnixMilli(),
		snap.TotalSessionsThisMonth, snap.TotalCostThisMonth, snap.MaxTokensPerSession,
		string(payload),
	)
	return err
}

// Latest returns the most recent archived snapshot, or nil if none exist.
func (s *SnapshotStore) Latest(ctx context.Context) (*models.MonitoringSnapshot, error) {
	const query = `SELECT payload FROM snapshots ORDER BY taken_at_epoch DESC LIMIT 1`

	var payload string
	err := s.store.db.QueryRowContext(ctx, query).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var snap models.MonitoringSnapshot
	if err := json.Unmarshal([]byte(payload), &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}

// Range returns archived snapshots taken within [from, to], oldest first.
func (s *SnapshotStore) Range(ctx context.Context, from, to time.Time) ([]models.MonitoringSnapshot, error) {
	const query = `
		SELECT payload FROM snapshots
		WHERE taken_at_epoch >= ? AND taken_at_epoch <= ?
		ORDER BY taken_at_epoch ASC
	`

	rows, err := s.store.db.QueryContext(ctx, query, from.UnixMilli(), to.UnixMilli())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snaps []models.MonitoringSnapshot
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var snap models.MonitoringSnapshot
		if err := json.Unmarshal([]byte(payload), &snap); err != nil {
			return nil, fmt.Errorf("decode snapshot: %w", err)
		}
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

// Prune deletes snapshots taken before the cutoff and returns the count removed.
func (s *SnapshotStore) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	const query = `DELETE FROM snapshots WHERE taken_at_epoch < ?`

	result, err := s.store.db.ExecContext(ctx, query, olderThan.UnixMilli())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
