package manifest

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/starford/kenaz-export/internal/apperr"
	"github.com/starford/kenaz-export/internal/models"
)

// BeginRun inserts a new run and returns it with a fresh ID.
func (db *DB) BeginRun(source, destination string) (*models.Run, error) {
	run := &models.Run{
		ID:          uuid.NewString(),
		Source:      source,
		Destination: destination,
		StartedAt:   time.Now().UTC(),
	}
	_, err := db.conn.Exec(`
		INSERT INTO runs (id, source, destination, started_at)
		VALUES (?, ?, ?, ?)
	`, run.ID, run.Source, run.Destination, run.StartedAt)
	if err != nil {
		return nil, fmt.Errorf("manifest: begin run: %w", err)
	}
	return run, nil
}

// RecordFile stores the outcome of one note and its unresolved links within
// a transaction. Recording the same path twice replaces the earlier row.
func (db *DB) RecordFile(rec models.FileRecord, unresolved []string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("manifest: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	_, err = tx.Exec(`
		INSERT INTO files (run_id, path, destination, status, error, checksum)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, path) DO UPDATE SET
			destination = excluded.destination,
			status      = excluded.status,
			error       = excluded.error,
			checksum    = excluded.checksum
	`, rec.RunID, rec.Path, rec.Destination, rec.Status, rec.Error, rec.Checksum)
	if err != nil {
		return fmt.Errorf("manifest: record file: %w", err)
	}

	if len(unresolved) > 0 {
		stmt, err := tx.Prepare(`INSERT OR IGNORE INTO unresolved (run_id, source, target) VALUES (?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("manifest: prepare unresolved insert: %w", err)
		}
		defer stmt.Close()
		for _, target := range unresolved {
			if _, err := stmt.Exec(rec.RunID, rec.Path, target); err != nil {
				return fmt.Errorf("manifest: insert unresolved: %w", err)
			}
		}
	}

	return tx.Commit()
}

// FinishRun stores the final counts of run and marks it finished.
func (db *DB) FinishRun(run *models.Run) error {
	now := time.Now().UTC()
	run.FinishedAt = &now
	res, err := db.conn.Exec(`
		UPDATE runs SET finished_at = ?, exported = ?, skipped = ?, failed = ?, assets = ?, error = ?
		WHERE id = ?
	`, now, run.Exported, run.Skipped, run.Failed, run.Assets, run.Error, run.ID)
	if err != nil {
		return fmt.Errorf("manifest: finish run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("manifest: finish run %s: %w", run.ID, apperr.ErrNotFound)
	}
	return nil
}

// LatestRun returns the most recently started run.
func (db *DB) LatestRun() (*models.Run, error) {
	var (
		run      models.Run
		finished sql.NullTime
	)
	err := db.conn.QueryRow(`
		SELECT id, source, destination, started_at, finished_at, exported, skipped, failed, assets, error
		FROM runs ORDER BY started_at DESC, rowid DESC LIMIT 1
	`).Scan(&run.ID, &run.Source, &run.Destination, &run.StartedAt, &finished,
		&run.Exported, &run.Skipped, &run.Failed, &run.Assets, &run.Error)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("manifest: latest run: %w", err)
	}
	if finished.Valid {
		run.FinishedAt = &finished.Time
	}
	return &run, nil
}

// Files returns the file records of a run ordered by path. A non-empty
// status filters the result.
func (db *DB) Files(runID, status string) ([]models.FileRecord, error) {
	query := `SELECT run_id, path, destination, status, error, checksum FROM files WHERE run_id = ?`
	args := []any{runID}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY path`

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("manifest: files: %w", err)
	}
	defer rows.Close()

	out := []models.FileRecord{}
	for rows.Next() {
		var rec models.FileRecord
		if err := rows.Scan(&rec.RunID, &rec.Path, &rec.Destination, &rec.Status, &rec.Error, &rec.Checksum); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// UnresolvedLinks returns the unresolved links recorded for a run.
func (db *DB) UnresolvedLinks(runID string) ([]models.UnresolvedLink, error) {
	rows, err := db.conn.Query(`
		SELECT run_id, source, target FROM unresolved WHERE run_id = ? ORDER BY source, target
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("manifest: unresolved: %w", err)
	}
	defer rows.Close()

	out := []models.UnresolvedLink{}
	for rows.Next() {
		var l models.UnresolvedLink
		if err := rows.Scan(&l.RunID, &l.Source, &l.Target); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
