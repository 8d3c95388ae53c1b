package store

import (
	"context"
	"fmt"
	"time"
)

// RecentDeletes returns path -> deleted_at for deletions inside the window.
// A window <= 0 means deletions are kept as persistent tombstones and all
// of them are returned.
func (s *Store) RecentDeletes(ctx context.Context, folderID string, window time.Duration) (map[string]time.Time, error) {
	type row struct {
		Path      string    `db:"path"`
		DeletedAt time.Time `db:"deleted_at"`
	}

	var rows []row
	var err error
	if window > 0 {
		cutoff := time.Now().UTC().Add(-window)
		err = s.db.SelectContext(ctx, &rows,
			`SELECT path, deleted_at FROM recent_deletes WHERE folder_id = ? AND deleted_at >= ?`,
			folderID, cutoff)
	} else {
		err = s.db.SelectContext(ctx, &rows,
			`SELECT path, deleted_at FROM recent_deletes WHERE folder_id = ?`, folderID)
	}
	if err != nil {
		return nil, fmt.Errorf("query recent deletes: %w", err)
	}

	deletes := make(map[string]time.Time, len(rows))
	for _, r := range rows {
		deletes[r.Path] = r.DeletedAt
	}
	return deletes, nil
}

// PruneRecentDeletes drops tombstones older than the window. No-op when the
// window is <= 0 (persistent tombstones).
func (s *Store) PruneRecentDeletes(ctx context.Context, window time.Duration) (int64, error) {
	if window <= 0 {
		return 0, nil
	}
	cutoff := time.Now().UTC().Add(-window)
	res, err := s.db.ExecContext(ctx, `DELETE FROM recent_deletes WHERE deleted_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune recent deletes: %w", err)
	}
	return res.RowsAffected()
}
