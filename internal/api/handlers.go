package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/bobarin/podforge/internal/db"
	"github.com/bobarin/podforge/internal/models"
	"github.com/bobarin/podforge/internal/queue"
	"github.com/bobarin/podforge/internal/storage"
)

type Handler struct {
	db      *db.DB
	queue   *queue.Queue
	storage *storage.Storage

	defaultDuration int
	defaultLanguage string
}

func NewHandler(database *db.DB, q *queue.Queue, stor *storage.Storage, defaultDuration int, defaultLanguage string) *Handler {
	return &Handler{
		db:              database,
		queue:           q,
		storage:         stor,
		defaultDuration: defaultDuration,
		defaultLanguage: defaultLanguage,
	}
}

// CreateEpisode handles POST /v1/episodes
func (h *Handler) CreateEpisode(w http.ResponseWriter, r *http.Request) {
	var req models.CreateEpisodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	// Validate
	if req.Topic == "" {
		respondError(w, http.StatusBadRequest, "Topic is required")
		return
	}

	// Set defaults
	targetDuration := h.defaultDuration
	if req.TargetDurationSeconds != nil {
		if *req.TargetDurationSeconds <= 0 {
			respondError(w, http.StatusBadRequest, "target_duration_seconds must be positive")
			return
		}
		targetDuration = *req.TargetDurationSeconds
	}

	language := h.defaultLanguage
	if req.Language != nil && *req.Language != "" {
		language = *req.Language
	}

	// Create episode
	episode := &models.Episode{
		ID:                    uuid.New(),
		Topic:                 req.Topic,
		TargetDurationSeconds: targetDuration,
		Status:                models.EpisodeStatusQueued,
		Language:              &language,
	}

	if err := h.db.CreateEpisode(r.Context(), episode); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to create episode")
		return
	}

	// Create and enqueue job
	jobID := uuid.New()
	job := &models.Job{
		ID:        jobID,
		EpisodeID: episode.ID,
		Type:      "generate_script",
		Status:    models.JobStatusQueued,
	}

	if err := h.db.CreateJob(r.Context(), job); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to create job")
		return
	}

	if err := h.queue.EnqueueGenerateScript(r.Context(), episode.ID, jobID); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to enqueue job")
		return
	}

	respondJSON(w, http.StatusCreated, models.CreateEpisodeResponse{
		EpisodeID: episode.ID,
		Status:    episode.Status,
	})
}

// ListEpisodes handles GET /v1/episodes
// Query params:
//   - status: filter by episode status (queued, scripting, voicing, mixing, completed, failed)
//   - limit:  max results per page (default 20, max 100)
//   - offset: number of results to skip (default 0)
func (h *Handler) ListEpisodes(w http.ResponseWriter, r *http.Request) {
	// Parse query params
	statusFilter := r.URL.Query().Get("status")
	if statusFilter != "" {
		// Validate status value
		switch models.EpisodeStatus(statusFilter) {
		case models.EpisodeStatusQueued, models.EpisodeStatusScripting,
			models.EpisodeStatusVoicing, models.EpisodeStatusMixing,
			models.EpisodeStatusCompleted, models.EpisodeStatusFailed:
			// valid
		default:
			respondError(w, http.StatusBadRequest, "Invalid status filter. Allowed: queued, scripting, voicing, mixing, completed, failed")
			return
		}
	}

	limit := 20
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > 100 {
		limit = 100
	}

	offset := 0
	if o := r.URL.Query().Get("offset"); o != "" {
		if parsed, err := strconv.Atoi(o); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	// Get total count
	total, err := h.db.CountEpisodes(r.Context(), statusFilter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to count episodes")
		return
	}

	// Get episodes
	episodes, err := h.db.ListEpisodes(r.Context(), statusFilter, limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to list episodes")
		return
	}

	// Build lightweight summaries — no segments array, just core fields + audio URL
	summaries := make([]models.EpisodeSummary, 0, len(episodes))
	for _, episode := range episodes {
		summary := models.EpisodeSummary{
			ID:                    episode.ID,
			Topic:                 episode.Topic,
			Title:                 episode.Title,
			TargetDurationSeconds: episode.TargetDurationSeconds,
			Status:                episode.Status,
			DurationMs:            episode.DurationMs,
			ErrorCode:             episode.ErrorCode,
			ErrorMessage:          episode.ErrorMessage,
			CreatedAt:             episode.CreatedAt,
			UpdatedAt:             episode.UpdatedAt,
		}

		// Segment count
		if count, err := h.db.GetEpisodeSegmentCount(r.Context(), episode.ID); err == nil {
			summary.SegmentCount = count
		}

		// Final audio URL
		if episode.FinalAudioAssetID != nil {
			if asset, err := h.db.GetAsset(r.Context(), *episode.FinalAudioAssetID); err == nil {
				url := h.storage.GetPublicURL(asset.StoragePath)
				summary.FinalAudioURL = &url
			}
		}

		summaries = append(summaries, summary)
	}

	respondJSON(w, http.StatusOK, models.ListEpisodesResponse{
		Episodes: summaries,
		Total:    total,
		Limit:    limit,
		Offset:   offset,
	})
}

// GetEpisode handles GET /v1/episodes/{id}
func (h *Handler) GetEpisode(w http.ResponseWriter, r *http.Request) {
	episodeID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid episode ID")
		return
	}

	episode, err := h.db.GetEpisode(r.Context(), episodeID)
	if err != nil {
		respondError(w, http.StatusNotFound, "Episode not found")
		return
	}

	// Get segments
	segments, err := h.db.GetEpisodeSegments(r.Context(), episodeID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to get segments")
		return
	}

	// Build response
	response := models.EpisodeResponse{
		Episode:  *episode,
		Segments: h.buildSegmentResponses(r.Context(), segments),
	}

	// Add final audio URL if available
	if episode.FinalAudioAssetID != nil {
		if asset, err := h.db.GetAsset(r.Context(), *episode.FinalAudioAssetID); err == nil {
			url := h.storage.GetPublicURL(asset.StoragePath)
			response.FinalAudioURL = &url
		}
	}

	// Add transcript URL if available
	if episode.TranscriptAssetID != nil {
		if asset, err := h.db.GetAsset(r.Context(), *episode.TranscriptAssetID); err == nil {
			url := h.storage.GetPublicURL(asset.StoragePath)
			response.TranscriptURL = &url
		}
	}

	respondJSON(w, http.StatusOK, response)
}

// GetEpisodeDownload handles GET /v1/episodes/{id}/download
func (h *Handler) GetEpisodeDownload(w http.ResponseWriter, r *http.Request) {
	episodeID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid episode ID")
		return
	}

	episode, err := h.db.GetEpisode(r.Context(), episodeID)
	if err != nil {
		respondError(w, http.StatusNotFound, "Episode not found")
		return
	}

	if episode.FinalAudioAssetID == nil {
		respondError(w, http.StatusNotFound, "Audio not ready")
		return
	}

	asset, err := h.db.GetAsset(r.Context(), *episode.FinalAudioAssetID)
	if err != nil {
		respondError(w, http.StatusNotFound, "Asset not found")
		return
	}

	// Get signed URL (valid for 1 hour)
	signedURL, err := h.storage.GetSignedURL(r.Context(), asset.StoragePath, 3600)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to generate download URL")
		return
	}

	http.Redirect(w, r, signedURL, http.StatusTemporaryRedirect)
}

// GetEpisodeJobs handles GET /v1/episodes/{id}/debug/jobs
func (h *Handler) GetEpisodeJobs(w http.ResponseWriter, r *http.Request) {
	episodeID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid episode ID")
		return
	}

	jobs, err := h.db.GetEpisodeJobs(r.Context(), episodeID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to get jobs")
		return
	}

	respondJSON(w, http.StatusOK, jobs)
}

// GetSegment handles GET /v1/episodes/{episodeId}/segments/{segmentId}
func (h *Handler) GetSegment(w http.ResponseWriter, r *http.Request) {
	segmentID, err := uuid.Parse(chi.URLParam(r, "segmentId"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid segment ID")
		return
	}

	segment, err := h.db.GetSegment(r.Context(), segmentID)
	if err != nil {
		respondError(w, http.StatusNotFound, "Segment not found")
		return
	}

	response := h.buildSegmentResponse(r.Context(), *segment)
	respondJSON(w, http.StatusOK, response)
}

// ListVoices handles GET /v1/voices
func (h *Handler) ListVoices(w http.ResponseWriter, r *http.Request) {
	voices, err := h.db.ListVoices(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to list voices")
		return
	}

	respondJSON(w, http.StatusOK, voices)
}

// Helper methods
func (h *Handler) buildSegmentResponses(ctx context.Context, segments []models.Segment) []models.SegmentResponse {
	responses := make([]models.SegmentResponse, len(segments))
	for i, segment := range segments {
		responses[i] = h.buildSegmentResponse(ctx, segment)
	}
	return responses
}

func (h *Handler) buildSegmentResponse(ctx context.Context, segment models.Segment) models.SegmentResponse {
	response := models.SegmentResponse{
		Segment: segment,
	}

	if segment.AudioAssetID != nil {
		if asset, err := h.db.GetAsset(ctx, *segment.AudioAssetID); err == nil {
			url := h.storage.GetPublicURL(asset.StoragePath)
			response.AudioURL = &url
		}
	}

	return response
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// Health check
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
