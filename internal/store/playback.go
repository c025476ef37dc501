package store

import (
	"context"
	"fmt"
	"time"

	"jvsview/internal/models"
)

const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 500
)

const playbackColumns = `id, session_id, stream_id, manifest, started_at, ended_at, reached_active, outcome, error_code`

// RecordPlayback stores a finished playback session.
func (s *Store) RecordPlayback(ctx context.Context, rec models.PlaybackRecord) error {
	_, err := s.InsertPlayback(ctx, &rec)
	return err
}

// InsertPlayback stores rec and sets its ID.
func (s *Store) InsertPlayback(ctx context.Context, rec *models.PlaybackRecord) (int64, error) {
	if rec.SessionID == "" || rec.StreamID == "" {
		return 0, fmt.Errorf("playback record: session and stream ids are required")
	}
	if rec.Outcome == "" {
		return 0, fmt.Errorf("playback record: outcome is required")
	}
	reached := 0
	if rec.Reached {
		reached = 1
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO playback_history (session_id, stream_id, manifest, started_at, ended_at, reached_active, outcome, error_code)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.SessionID, rec.StreamID, rec.Manifest,
		formatSQLiteTime(rec.StartedAt), formatSQLiteTime(rec.EndedAt),
		reached, string(rec.Outcome), rec.ErrorCode,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting playback record: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	rec.ID = id
	return id, nil
}

// ListPlayback returns the most recently ended sessions first. limit is
// clamped to [1, MaxHistoryLimit]; zero selects DefaultHistoryLimit.
func (s *Store) ListPlayback(ctx context.Context, limit int) ([]models.PlaybackRecord, error) {
	switch {
	case limit <= 0:
		limit = DefaultHistoryLimit
	case limit > MaxHistoryLimit:
		limit = MaxHistoryLimit
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+playbackColumns+` FROM playback_history ORDER BY ended_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing playback history: %w", err)
	}
	defer rows.Close()

	records := []models.PlaybackRecord{}
	for rows.Next() {
		rec, err := scanPlayback(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// CountPlayback returns the number of stored sessions with the given outcome,
// or all sessions when outcome is empty.
func (s *Store) CountPlayback(ctx context.Context, outcome models.PlaybackOutcome) (int, error) {
	var n int
	var err error
	if outcome == "" {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM playback_history`).Scan(&n)
	} else {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM playback_history WHERE outcome = ?`, string(outcome)).Scan(&n)
	}
	if err != nil {
		return 0, fmt.Errorf("counting playback history: %w", err)
	}
	return n, nil
}

// PrunePlayback deletes sessions that ended before cutoff.
func (s *Store) PrunePlayback(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM playback_history WHERE ended_at < ?`, formatSQLiteTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("pruning playback history: %w", err)
	}
	return res.RowsAffected()
}

func scanPlayback(scanner interface{ Scan(...any) error }) (models.PlaybackRecord, error) {
	var rec models.PlaybackRecord
	var started, ended, outcome string
	var reached int
	if err := scanner.Scan(&rec.ID, &rec.SessionID, &rec.StreamID, &rec.Manifest,
		&started, &ended, &reached, &outcome, &rec.ErrorCode); err != nil {
		return rec, fmt.Errorf("scanning playback record: %w", err)
	}
	var err error
	if rec.StartedAt, err = parseSQLiteTime(started); err != nil {
		return rec, err
	}
	if rec.EndedAt, err = parseSQLiteTime(ended); err != nil {
		return rec, err
	}
	rec.Reached = reached != 0
	rec.Outcome = models.PlaybackOutcome(outcome)
	return rec, nil
}
