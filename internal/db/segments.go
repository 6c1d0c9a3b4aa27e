package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/bobarin/podforge/internal/models"
	"github.com/google/uuid"
)

func (db *DB) CreateSegment(ctx context.Context, segment *models.Segment) error {
	query := `
		INSERT INTO segments (
			id, episode_id, segment_index, kind, speaker,
			raw_text, planned_start_ms, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`

	return db.QueryRowContext(
		ctx, query,
		segment.ID, segment.EpisodeID, segment.SegmentIndex, segment.Kind,
		segment.Speaker, segment.RawText, segment.PlannedStartMs, segment.Status,
	).Scan(&segment.CreatedAt, &segment.UpdatedAt)
}

func (db *DB) GetSegment(ctx context.Context, id uuid.UUID) (*models.Segment, error) {
	query := `
		SELECT
			id, episode_id, segment_index, kind, speaker, raw_text, clean_text,
			planned_start_ms, actual_start_ms, duration_ms, voice_id,
			used_fallback, status, audio_asset_id, error_message,
			created_at, updated_at
		FROM segments
		WHERE id = $1
	`

	segment := &models.Segment{}
	err := db.QueryRowContext(ctx, query, id).Scan(
		&segment.ID, &segment.EpisodeID, &segment.SegmentIndex, &segment.Kind,
		&segment.Speaker, &segment.RawText, &segment.CleanText,
		&segment.PlannedStartMs, &segment.ActualStartMs, &segment.DurationMs,
		&segment.VoiceID, &segment.UsedFallback, &segment.Status,
		&segment.AudioAssetID, &segment.ErrorMessage,
		&segment.CreatedAt, &segment.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("segment not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get segment: %w", err)
	}

	return segment, nil
}

func (db *DB) GetEpisodeSegments(ctx context.Context, episodeID uuid.UUID) ([]models.Segment, error) {
	query := `
		SELECT
			id, episode_id, segment_index, kind, speaker, raw_text, clean_text,
			planned_start_ms, actual_start_ms, duration_ms, voice_id,
			used_fallback, status, audio_asset_id, error_message,
			created_at, updated_at
		FROM segments
		WHERE episode_id = $1
		ORDER BY segment_index
	`

	rows, err := db.QueryContext(ctx, query, episodeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query segments: %w", err)
	}
	defer rows.Close()

	var segments []models.Segment
	for rows.Next() {
		var s models.Segment
		err := rows.Scan(
			&s.ID, &s.EpisodeID, &s.SegmentIndex, &s.Kind,
			&s.Speaker, &s.RawText, &s.CleanText,
			&s.PlannedStartMs, &s.ActualStartMs, &s.DurationMs,
			&s.VoiceID, &s.UsedFallback, &s.Status,
			&s.AudioAssetID, &s.ErrorMessage,
			&s.CreatedAt, &s.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan segment: %w", err)
		}
		segments = append(segments, s)
	}

	return segments, nil
}

func (db *DB) UpdateSegmentStatus(ctx context.Context, id uuid.UUID, status models.SegmentStatus) error {
	query := `UPDATE segments SET status = $1, updated_at = NOW() WHERE id = $2`
	_, err := db.ExecContext(ctx, query, status, id)
	return err
}

// UpdateSegmentAudio records the synthesized clip: which voice spoke it, the
// marker-stripped text that was sent, whether the fallback path produced it,
// and the stored asset with its measured duration.
func (db *DB) UpdateSegmentAudio(ctx context.Context, id, assetID uuid.UUID, cleanText, voiceID string, durationMs int, usedFallback bool) error {
	query := `
		UPDATE segments
		SET audio_asset_id = $1, clean_text = $2, voice_id = $3,
		    duration_ms = $4, used_fallback = $5, status = $6, updated_at = NOW()
		WHERE id = $7
	`
	_, err := db.ExecContext(ctx, query, assetID, cleanText, voiceID, durationMs, usedFallback, models.SegmentStatusVoiced, id)
	return err
}

// UpdateSegmentPlacement records where the compositor actually placed the clip.
func (db *DB) UpdateSegmentPlacement(ctx context.Context, id uuid.UUID, actualStartMs int) error {
	query := `
		UPDATE segments
		SET actual_start_ms = $1, status = $2, updated_at = NOW()
		WHERE id = $3
	`
	_, err := db.ExecContext(ctx, query, actualStartMs, models.SegmentStatusPlaced, id)
	return err
}

func (db *DB) UpdateSegmentSkipped(ctx context.Context, id uuid.UUID, reason string) error {
	query := `
		UPDATE segments
		SET status = $1, error_message = $2, updated_at = NOW()
		WHERE id = $3
	`
	_, err := db.ExecContext(ctx, query, models.SegmentStatusSkipped, reason, id)
	return err
}

func (db *DB) UpdateSegmentError(ctx context.Context, id uuid.UUID, errorMessage string) error {
	query := `
		UPDATE segments
		SET status = $1, error_message = $2, updated_at = NOW()
		WHERE id = $3
	`
	_, err := db.ExecContext(ctx, query, models.SegmentStatusFailed, errorMessage, id)
	return err
}

// GetEpisodeSegmentCount returns the number of segments for an episode.
func (db *DB) GetEpisodeSegmentCount(ctx context.Context, episodeID uuid.UUID) (int, error) {
	var count int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM segments WHERE episode_id = $1`, episodeID).Scan(&count)
	return count, err
}
