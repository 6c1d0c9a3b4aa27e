package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Enums
type EpisodeStatus string

const (
	EpisodeStatusQueued    EpisodeStatus = "queued"
	EpisodeStatusScripting EpisodeStatus = "scripting"
	EpisodeStatusVoicing   EpisodeStatus = "voicing"
	EpisodeStatusMixing    EpisodeStatus = "mixing"
	EpisodeStatusCompleted EpisodeStatus = "completed"
	EpisodeStatusFailed    EpisodeStatus = "failed"
)

type SegmentStatus string

const (
	SegmentStatusPending SegmentStatus = "pending"
	SegmentStatusVoiced  SegmentStatus = "voiced"
	SegmentStatusPlaced  SegmentStatus = "placed"
	SegmentStatusSkipped SegmentStatus = "skipped"
	SegmentStatusFailed  SegmentStatus = "failed"
)

type AssetType string

const (
	AssetTypeScriptJSON   AssetType = "script_json"
	AssetTypeSegmentAudio AssetType = "segment_audio"
	AssetTypeFinalAudio   AssetType = "final_audio"
	AssetTypeTranscript   AssetType = "transcript"
)

type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
)

// JSONB is a custom type for PostgreSQL JSONB columns
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, j)
}

// ---------------------------------------------------------------------------
// Script types — the shape the script generator produces and the assembler
// consumes. Segments are read-only input to the audio pipeline.
// ---------------------------------------------------------------------------

const SegmentKindDialogue = "dialogue"

// ScriptSegment is one line of the generated script. StartTime is in seconds
// from the start of the episode.
type ScriptSegment struct {
	Type      string `json:"type"` // "dialogue" or an effect kind
	Speaker   string `json:"speaker"`
	Text      string `json:"text"`
	StartTime int    `json:"start_time"`
}

// PodcastScript is the full generated script for one episode.
type PodcastScript struct {
	Title                string          `json:"title"`
	TotalDurationSeconds int             `json:"total_duration_seconds"`
	Segments             []ScriptSegment `json:"segments"`
}

// Models

type Episode struct {
	ID                    uuid.UUID     `json:"id"`
	Topic                 string        `json:"topic"`
	Title                 *string       `json:"title,omitempty"` // From the generated script
	TargetDurationSeconds int           `json:"target_duration_seconds"`
	Status                EpisodeStatus `json:"status"`
	Script                JSONB         `json:"script,omitempty"` // Raw generated script JSON
	FinalAudioAssetID     *uuid.UUID    `json:"final_audio_asset_id,omitempty"`
	TranscriptAssetID     *uuid.UUID    `json:"transcript_asset_id,omitempty"`
	DurationMs            *int          `json:"duration_ms,omitempty"` // Final mix length
	Language              *string       `json:"language,omitempty"`    // ISO 639-1, for transcription
	ErrorCode             *string       `json:"error_code,omitempty"`
	ErrorMessage          *string       `json:"error_message,omitempty"`
	CreatedAt             time.Time     `json:"created_at"`
	UpdatedAt             time.Time     `json:"updated_at"`
}

// Segment is the bookkeeping row for one script segment as it moves through
// synthesis and placement. PlannedStartMs comes from the script; ActualStartMs
// is assigned by the timeline compositor.
type Segment struct {
	ID             uuid.UUID     `json:"id"`
	EpisodeID      uuid.UUID     `json:"episode_id"`
	SegmentIndex   int           `json:"segment_index"`
	Kind           string        `json:"kind"`
	Speaker        string        `json:"speaker"`
	RawText        string        `json:"raw_text"`
	CleanText      *string       `json:"clean_text,omitempty"`
	PlannedStartMs int           `json:"planned_start_ms"`
	ActualStartMs  *int          `json:"actual_start_ms,omitempty"`
	DurationMs     *int          `json:"duration_ms,omitempty"`
	VoiceID        *string       `json:"voice_id,omitempty"`
	UsedFallback   bool          `json:"used_fallback"`
	Status         SegmentStatus `json:"status"`
	AudioAssetID   *uuid.UUID    `json:"audio_asset_id,omitempty"`
	ErrorMessage   *string       `json:"error_message,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// Voice maps a script speaker label to a synthesis provider voice ID.
type Voice struct {
	ID        uuid.UUID `json:"id"`
	Speaker   string    `json:"speaker"`
	VoiceID   string    `json:"voice_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Asset struct {
	ID            uuid.UUID  `json:"id"`
	EpisodeID     uuid.UUID  `json:"episode_id"`
	SegmentID     *uuid.UUID `json:"segment_id,omitempty"`
	Type          AssetType  `json:"type"`
	StorageBucket string     `json:"storage_bucket"`
	StoragePath   string     `json:"storage_path"`
	ContentType   *string    `json:"content_type,omitempty"`
	ByteSize      *int64     `json:"byte_size,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

type Job struct {
	ID           uuid.UUID  `json:"id"`
	EpisodeID    uuid.UUID  `json:"episode_id"`
	Type         string     `json:"type"`
	Status       JobStatus  `json:"status"`
	Attempts     int        `json:"attempts"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
	ErrorMessage *string    `json:"error_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// DTOs for API responses

type EpisodeResponse struct {
	Episode
	Segments      []SegmentResponse `json:"segments,omitempty"`
	FinalAudioURL *string           `json:"final_audio_url,omitempty"`
	TranscriptURL *string           `json:"transcript_url,omitempty"`
}

type SegmentResponse struct {
	Segment
	AudioURL *string `json:"audio_url,omitempty"`
}

// EpisodeSummary is a lightweight DTO for the list endpoint — no segments
// array, just core episode fields.
type EpisodeSummary struct {
	ID                    uuid.UUID     `json:"id"`
	Topic                 string        `json:"topic"`
	Title                 *string       `json:"title,omitempty"`
	TargetDurationSeconds int           `json:"target_duration_seconds"`
	Status                EpisodeStatus `json:"status"`
	DurationMs            *int          `json:"duration_ms,omitempty"`
	FinalAudioURL         *string       `json:"final_audio_url,omitempty"`
	SegmentCount          int           `json:"segment_count"`
	ErrorCode             *string       `json:"error_code,omitempty"`
	ErrorMessage          *string       `json:"error_message,omitempty"`
	CreatedAt             time.Time     `json:"created_at"`
	UpdatedAt             time.Time     `json:"updated_at"`
}

type ListEpisodesResponse struct {
	Episodes []EpisodeSummary `json:"episodes"`
	Total    int              `json:"total"`
	Limit    int              `json:"limit"`
	Offset   int              `json:"offset"`
}

type CreateEpisodeRequest struct {
	Topic                 string  `json:"topic"`
	TargetDurationSeconds *int    `json:"target_duration_seconds,omitempty"` // Default: 120
	Language              *string `json:"language,omitempty"`                // Default: "en"
}

type CreateEpisodeResponse struct {
	EpisodeID uuid.UUID     `json:"episode_id"`
	Status    EpisodeStatus `json:"status"`
}
