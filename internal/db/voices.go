package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/bobarin/podforge/internal/models"
)

// GetVoiceBySpeaker retrieves the voice mapping for a script speaker label
// (e.g. "host").
func (db *DB) GetVoiceBySpeaker(ctx context.Context, speaker string) (*models.Voice, error) {
	query := `
		SELECT id, speaker, voice_id, created_at, updated_at
		FROM voices
		WHERE speaker = $1
	`

	voice := &models.Voice{}
	err := db.QueryRowContext(ctx, query, speaker).Scan(
		&voice.ID, &voice.Speaker, &voice.VoiceID,
		&voice.CreatedAt, &voice.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("voice not found for speaker: %s", speaker)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get voice by speaker: %w", err)
	}

	return voice, nil
}

// ListVoices returns all speaker-to-voice mappings ordered by speaker.
func (db *DB) ListVoices(ctx context.Context) ([]models.Voice, error) {
	query := `
		SELECT id, speaker, voice_id, created_at, updated_at
		FROM voices
		ORDER BY speaker
	`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list voices: %w", err)
	}
	defer rows.Close()

	var voices []models.Voice
	for rows.Next() {
		var v models.Voice
		if err := rows.Scan(
			&v.ID, &v.Speaker, &v.VoiceID,
			&v.CreatedAt, &v.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan voice: %w", err)
		}
		voices = append(voices, v)
	}

	return voices, nil
}

// UpsertVoice inserts or updates the mapping for a speaker label.
func (db *DB) UpsertVoice(ctx context.Context, voice *models.Voice) error {
	query := `
		INSERT INTO voices (id, speaker, voice_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (speaker) DO UPDATE SET voice_id = $3, updated_at = NOW()
		RETURNING created_at, updated_at
	`

	return db.QueryRowContext(
		ctx, query,
		voice.ID, voice.Speaker, voice.VoiceID,
	).Scan(&voice.CreatedAt, &voice.UpdatedAt)
}

// VoiceMap loads all mappings as a speaker -> voice_id lookup table.
func (db *DB) VoiceMap(ctx context.Context) (map[string]string, error) {
	voices, err := db.ListVoices(ctx)
	if err != nil {
		return nil, err
	}

	m := make(map[string]string, len(voices))
	for _, v := range voices {
		m[v.Speaker] = v.VoiceID
	}
	return m, nil
}
