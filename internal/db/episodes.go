package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/bobarin/podforge/internal/models"
	"github.com/google/uuid"
)

func (db *DB) CreateEpisode(ctx context.Context, episode *models.Episode) error {
	query := `
		INSERT INTO episodes (
			id, topic, target_duration_seconds, status, language
		) VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`

	return db.QueryRowContext(
		ctx, query,
		episode.ID, episode.Topic, episode.TargetDurationSeconds,
		episode.Status, episode.Language,
	).Scan(&episode.CreatedAt, &episode.UpdatedAt)
}

func (db *DB) GetEpisode(ctx context.Context, id uuid.UUID) (*models.Episode, error) {
	query := `
		SELECT
			id, topic, title, target_duration_seconds, status, script,
			final_audio_asset_id, transcript_asset_id, duration_ms, language,
			error_code, error_message, created_at, updated_at
		FROM episodes
		WHERE id = $1
	`

	episode := &models.Episode{}
	err := db.QueryRowContext(ctx, query, id).Scan(
		&episode.ID, &episode.Topic, &episode.Title, &episode.TargetDurationSeconds,
		&episode.Status, &episode.Script, &episode.FinalAudioAssetID,
		&episode.TranscriptAssetID, &episode.DurationMs, &episode.Language,
		&episode.ErrorCode, &episode.ErrorMessage,
		&episode.CreatedAt, &episode.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("episode not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get episode: %w", err)
	}

	return episode, nil
}

// ListEpisodes returns episodes ordered by creation date (newest first).
// Supports optional status filter, limit, and offset for pagination.
func (db *DB) ListEpisodes(ctx context.Context, status string, limit, offset int) ([]models.Episode, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseSelect := `
		SELECT
			id, topic, title, target_duration_seconds, status, script,
			final_audio_asset_id, transcript_asset_id, duration_ms, language,
			error_code, error_message, created_at, updated_at
		FROM episodes
	`

	if status != "" {
		query := baseSelect + ` WHERE status = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
		rows, err = db.QueryContext(ctx, query, status, limit, offset)
	} else {
		query := baseSelect + ` ORDER BY created_at DESC LIMIT $1 OFFSET $2`
		rows, err = db.QueryContext(ctx, query, limit, offset)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to list episodes: %w", err)
	}
	defer rows.Close()

	var episodes []models.Episode
	for rows.Next() {
		var e models.Episode
		if err := rows.Scan(
			&e.ID, &e.Topic, &e.Title, &e.TargetDurationSeconds,
			&e.Status, &e.Script, &e.FinalAudioAssetID,
			&e.TranscriptAssetID, &e.DurationMs, &e.Language,
			&e.ErrorCode, &e.ErrorMessage,
			&e.CreatedAt, &e.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan episode: %w", err)
		}
		episodes = append(episodes, e)
	}

	return episodes, nil
}

// CountEpisodes returns the total number of episodes, optionally filtered by status.
func (db *DB) CountEpisodes(ctx context.Context, status string) (int, error) {
	var count int
	if status != "" {
		err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM episodes WHERE status = $1`, status).Scan(&count)
		return count, err
	}
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM episodes`).Scan(&count)
	return count, err
}

func (db *DB) UpdateEpisodeStatus(ctx context.Context, id uuid.UUID, status models.EpisodeStatus) error {
	query := `UPDATE episodes SET status = $1, updated_at = NOW() WHERE id = $2`
	_, err := db.ExecContext(ctx, query, status, id)
	return err
}

func (db *DB) UpdateEpisodeError(ctx context.Context, id uuid.UUID, errorCode, errorMessage string) error {
	query := `
		UPDATE episodes
		SET status = $1, error_code = $2, error_message = $3, updated_at = NOW()
		WHERE id = $4
	`
	_, err := db.ExecContext(ctx, query, models.EpisodeStatusFailed, errorCode, errorMessage, id)
	return err
}

// SetEpisodeScript stores the generated script and the title it carried.
func (db *DB) SetEpisodeScript(ctx context.Context, id uuid.UUID, title string, script models.JSONB) error {
	query := `
		UPDATE episodes
		SET title = $1, script = $2, updated_at = NOW()
		WHERE id = $3
	`
	_, err := db.ExecContext(ctx, query, title, script, id)
	return err
}

func (db *DB) SetEpisodeFinalAudio(ctx context.Context, episodeID, assetID uuid.UUID, durationMs int) error {
	query := `
		UPDATE episodes
		SET final_audio_asset_id = $1, duration_ms = $2, status = $3, updated_at = NOW()
		WHERE id = $4
	`
	_, err := db.ExecContext(ctx, query, assetID, durationMs, models.EpisodeStatusCompleted, episodeID)
	return err
}

func (db *DB) SetEpisodeTranscript(ctx context.Context, episodeID, assetID uuid.UUID) error {
	query := `
		UPDATE episodes
		SET transcript_asset_id = $1, updated_at = NOW()
		WHERE id = $2
	`
	_, err := db.ExecContext(ctx, query, assetID, episodeID)
	return err
}
