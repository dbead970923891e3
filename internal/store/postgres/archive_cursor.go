package postgres

import (
	"context"
	"fmt"
	"time"
)

// ArchiveCursor returns the archiver's completed_at watermark. The
// tasks_archive_cursor table always holds exactly one row, seeded at the
// Unix epoch by the schema migration.
func (s *Store) ArchiveCursor(ctx context.Context) (time.Time, error) {
	var watermark time.Time
	err := s.pool.QueryRow(ctx, `SELECT completed_at FROM tasks_archive_cursor`).Scan(&watermark)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read archive cursor: %w", err)
	}
	return watermark, nil
}

// SetArchiveCursor advances the archiver's watermark.
func (s *Store) SetArchiveCursor(ctx context.Context, watermark time.Time) error {
	_, err := s.pool.Exec(ctx, `UPDATE tasks_archive_cursor SET completed_at = $1`, watermark)
	if err != nil {
		return fmt.Errorf("failed to update archive cursor: %w", err)
	}
	return nil
}
