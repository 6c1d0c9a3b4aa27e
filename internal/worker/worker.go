package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/bobarin/podforge/internal/db"
	"github.com/bobarin/podforge/internal/models"
	"github.com/bobarin/podforge/internal/queue"
	"github.com/bobarin/podforge/internal/services"
	"github.com/bobarin/podforge/internal/storage"
	"github.com/bobarin/podforge/internal/timeline"
)

// Worker drives episodes through the pipeline: script generation, per-segment
// speech synthesis, timeline placement, and the final mix.
type Worker struct {
	db       *db.DB
	queue    *queue.Queue
	storage  *storage.Storage
	gemini   *services.GeminiService
	dialogue services.DialogueSynthesizer
	fallback services.TTSService
	openai   *services.OpenAIService // Optional: nil skips transcript generation
	ffmpeg   *services.FFmpegService

	uploadSem chan struct{} // Limits concurrent Supabase uploads to prevent congestion
}

func New(
	database *db.DB,
	q *queue.Queue,
	stor *storage.Storage,
	geminiSvc *services.GeminiService,
	dialogueSvc services.DialogueSynthesizer,
	fallbackSvc services.TTSService,
	openaiSvc *services.OpenAIService,
	ffmpegSvc *services.FFmpegService,
) *Worker {
	return &Worker{
		db:        database,
		queue:     q,
		storage:   stor,
		gemini:    geminiSvc,
		dialogue:  dialogueSvc,
		fallback:  fallbackSvc,
		openai:    openaiSvc,
		ffmpeg:    ffmpegSvc,
		uploadSem: make(chan struct{}, 4),
	}
}

// uploadWithLimit wraps an upload call with a semaphore to prevent Supabase congestion.
func (w *Worker) uploadWithLimit(ctx context.Context, label string, fn func() error) error {
	select {
	case w.uploadSem <- struct{}{}:
		// Acquired slot
	case <-ctx.Done():
		return fmt.Errorf("upload cancelled while waiting for slot: %w", ctx.Err())
	}
	defer func() { <-w.uploadSem }()

	log.Printf("[Upload] %s uploading...", label)
	return fn()
}

// Start begins processing jobs from all queues
func (w *Worker) Start(ctx context.Context, concurrency int) {
	log.Printf("Worker started with concurrency: %d", concurrency)

	for i := 0; i < concurrency; i++ {
		go w.processQueue(ctx, queue.QueueGenerateScript, w.handleGenerateScript)
		go w.processQueue(ctx, queue.QueueAssembleAudio, w.handleAssembleAudio)
	}

	<-ctx.Done()
	log.Println("Worker shutting down...")
}

func (w *Worker) processQueue(ctx context.Context, queueName string, handler func(context.Context, *queue.Job) error) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
			job, err := w.queue.Dequeue(ctx, queueName, 5*time.Second)
			if err != nil {
				log.Printf("Error dequeuing from %s: %v", queueName, err)
				continue
			}

			if job == nil {
				continue // No job available, retry
			}

			log.Printf("Processing job %s (type: %s, episode: %s)", job.ID, job.Type, job.EpisodeID)

			if err := w.db.UpdateJobStatus(ctx, job.ID, models.JobStatusRunning); err != nil {
				log.Printf("Failed to update job status: %v", err)
			}

			if err := handler(ctx, job); err != nil {
				log.Printf("Job %s failed: %v", job.ID, err)
				w.db.UpdateJobError(ctx, job.ID, err.Error())
			} else {
				log.Printf("Job %s completed successfully", job.ID)
				w.db.UpdateJobStatus(ctx, job.ID, models.JobStatusSucceeded)
			}
		}
	}
}

// handleGenerateScript generates the episode script, stores it, creates the
// segment rows, and enqueues the audio assembly job.
func (w *Worker) handleGenerateScript(ctx context.Context, job *queue.Job) error {
	log.Printf("Generating script for episode %s", job.EpisodeID)

	if err := w.db.UpdateEpisodeStatus(ctx, job.EpisodeID, models.EpisodeStatusScripting); err != nil {
		return fmt.Errorf("failed to update episode status: %w", err)
	}

	episode, err := w.db.GetEpisode(ctx, job.EpisodeID)
	if err != nil {
		return fmt.Errorf("failed to get episode: %w", err)
	}

	language := "en"
	if episode.Language != nil && *episode.Language != "" {
		language = *episode.Language
	}

	script, err := w.gemini.GenerateScript(ctx, episode.Topic, episode.TargetDurationSeconds, language)
	if err != nil {
		w.db.UpdateEpisodeError(ctx, job.EpisodeID, "script_generation_failed", err.Error())
		return fmt.Errorf("failed to generate script: %w", err)
	}

	scriptJSON, err := json.MarshalIndent(script, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal script: %w", err)
	}

	var scriptJSONB models.JSONB
	if err := json.Unmarshal(scriptJSON, &scriptJSONB); err != nil {
		return fmt.Errorf("failed to convert script: %w", err)
	}

	if err := w.db.SetEpisodeScript(ctx, job.EpisodeID, script.Title, scriptJSONB); err != nil {
		return fmt.Errorf("failed to store script: %w", err)
	}

	// Store the raw script as an asset alongside the DB copy
	scriptAsset := &models.Asset{
		ID:            uuid.New(),
		EpisodeID:     job.EpisodeID,
		Type:          models.AssetTypeScriptJSON,
		StorageBucket: w.storage.Bucket,
		StoragePath:   w.storage.GenerateStoragePath(job.EpisodeID, "script.json"),
		ContentType:   strPtr("application/json"),
		ByteSize:      int64Ptr(int64(len(scriptJSON))),
	}

	if err := w.uploadWithLimit(ctx, "script.json", func() error {
		return w.storage.Upload(ctx, scriptAsset.StoragePath, scriptJSON, "application/json")
	}); err != nil {
		return fmt.Errorf("failed to upload script: %w", err)
	}

	if err := w.db.CreateAsset(ctx, scriptAsset); err != nil {
		return fmt.Errorf("failed to save script asset: %w", err)
	}

	// One bookkeeping row per script segment, in script order
	for i, seg := range script.Segments {
		segment := &models.Segment{
			ID:             uuid.New(),
			EpisodeID:      job.EpisodeID,
			SegmentIndex:   i,
			Kind:           seg.Type,
			Speaker:        seg.Speaker,
			RawText:        seg.Text,
			PlannedStartMs: seg.StartTime * 1000,
			Status:         models.SegmentStatusPending,
		}

		if err := w.db.CreateSegment(ctx, segment); err != nil {
			return fmt.Errorf("failed to create segment: %w", err)
		}
	}

	assembleJobID := uuid.New()
	assembleJob := &models.Job{
		ID:        assembleJobID,
		EpisodeID: job.EpisodeID,
		Type:      "assemble_audio",
		Status:    models.JobStatusQueued,
	}

	if err := w.db.CreateJob(ctx, assembleJob); err != nil {
		return fmt.Errorf("failed to create assembly job: %w", err)
	}

	if err := w.queue.EnqueueAssembleAudio(ctx, job.EpisodeID, assembleJobID); err != nil {
		return fmt.Errorf("failed to enqueue assembly job: %w", err)
	}

	log.Printf("Script ready for episode %s: %q (%d segments)", job.EpisodeID, script.Title, len(script.Segments))
	return nil
}

// handleAssembleAudio synthesizes every dialogue segment, places the clips on
// the timeline, mixes the episode, and uploads the final artifacts.
//
// Segments are processed strictly in script order: each placement depends on
// where the previous clip ended. A failed segment is recorded and skipped —
// one bad line never aborts the episode.
func (w *Worker) handleAssembleAudio(ctx context.Context, job *queue.Job) error {
	log.Printf("Assembling audio for episode %s", job.EpisodeID)

	if err := w.db.UpdateEpisodeStatus(ctx, job.EpisodeID, models.EpisodeStatusVoicing); err != nil {
		return fmt.Errorf("failed to update episode status: %w", err)
	}

	episode, err := w.db.GetEpisode(ctx, job.EpisodeID)
	if err != nil {
		return fmt.Errorf("failed to get episode: %w", err)
	}

	segments, err := w.db.GetEpisodeSegments(ctx, job.EpisodeID)
	if err != nil {
		return fmt.Errorf("failed to get segments: %w", err)
	}
	if len(segments) == 0 {
		w.db.UpdateEpisodeError(ctx, job.EpisodeID, "no_segments", "episode has no segments")
		return fmt.Errorf("episode has no segments")
	}

	voiceMap, err := w.db.VoiceMap(ctx)
	if err != nil {
		return fmt.Errorf("failed to load voice mappings: %w", err)
	}

	compositor := timeline.NewCompositor()
	var tempFiles []string
	defer func() { w.ffmpeg.Cleanup(tempFiles...) }()

	for _, segment := range segments {
		clipPath, err := w.processSegment(ctx, &segment, voiceMap, compositor)
		if err != nil {
			// Recorded against the segment already; keep going.
			log.Printf("Segment %d: %v (skipping)", segment.SegmentIndex, err)
			continue
		}
		if clipPath != "" {
			tempFiles = append(tempFiles, clipPath)
		}
	}

	if compositor.Len() == 0 {
		w.db.UpdateEpisodeError(ctx, job.EpisodeID, "no_audio", "no segment produced audio")
		return fmt.Errorf("no segment produced audio")
	}

	log.Printf("Episode %s: %d/%d segments placed, total %dms",
		job.EpisodeID, compositor.Len(), len(segments), compositor.TotalDurationMs())

	if err := w.db.UpdateEpisodeStatus(ctx, job.EpisodeID, models.EpisodeStatusMixing); err != nil {
		return fmt.Errorf("failed to update episode status: %w", err)
	}

	outputPath := w.ffmpeg.CreateTempFile(fmt.Sprintf("final_%s.mp3", job.EpisodeID.String()))
	tempFiles = append(tempFiles, outputPath)

	if err := w.ffmpeg.MixTimeline(ctx, compositor.Placements(), outputPath); err != nil {
		w.db.UpdateEpisodeError(ctx, job.EpisodeID, "mix_failed", err.Error())
		return fmt.Errorf("failed to mix timeline: %w", err)
	}

	finalData, err := os.ReadFile(outputPath)
	if err != nil {
		return fmt.Errorf("failed to read final mix: %w", err)
	}

	return w.publishEpisode(ctx, episode, finalData, compositor.TotalDurationMs())
}

// processSegment runs one segment through parsing, synthesis, and placement.
// Returns the temp clip path for later cleanup; an empty path with nil error
// means the segment was legitimately skipped.
func (w *Worker) processSegment(ctx context.Context, segment *models.Segment, voiceMap map[string]string, compositor *timeline.Compositor) (string, error) {
	if segment.Kind != models.SegmentKindDialogue {
		w.db.UpdateSegmentSkipped(ctx, segment.ID, fmt.Sprintf("non-dialogue segment kind %q", segment.Kind))
		return "", nil
	}

	markers, cleanText := services.ParseEmotions(segment.RawText)
	if cleanText == "" {
		w.db.UpdateSegmentSkipped(ctx, segment.ID, "no speakable text after removing emotion markers")
		return "", nil
	}

	voiceID, ok := voiceMap[segment.Speaker]
	if !ok {
		log.Printf("WARNING: no voice mapped for speaker %q, skipping segment %d", segment.Speaker, segment.SegmentIndex)
		w.db.UpdateSegmentSkipped(ctx, segment.ID, fmt.Sprintf("no voice mapped for speaker %q", segment.Speaker))
		return "", nil
	}

	log.Printf("Segment %d: synthesizing %q line (%d chars, markers=%v)",
		segment.SegmentIndex, segment.Speaker, len(cleanText), markers)

	usedFallback := false
	resp, err := w.dialogue.SynthesizeDialogue(ctx, cleanText, voiceID, markers)
	if err != nil {
		var authErr *services.AuthError
		if errors.As(err, &authErr) {
			// No token: the fallback provider cannot help, fail the segment.
			w.db.UpdateSegmentError(ctx, segment.ID, err.Error())
			return "", fmt.Errorf("dialogue synthesis auth failed: %w", err)
		}

		log.Printf("Segment %d: dialogue synthesis failed (%v), trying fallback", segment.SegmentIndex, err)
		resp, err = w.fallback.GenerateSpeech(ctx, cleanText, voiceID)
		if err != nil {
			w.db.UpdateSegmentError(ctx, segment.ID, err.Error())
			return "", fmt.Errorf("fallback synthesis failed: %w", err)
		}
		usedFallback = true
	}

	clipPath := w.ffmpeg.CreateTempFile(fmt.Sprintf("segment_%s.mp3", segment.ID.String()))
	if err := os.WriteFile(clipPath, resp.AudioData, 0644); err != nil {
		w.db.UpdateSegmentError(ctx, segment.ID, err.Error())
		return "", fmt.Errorf("failed to write clip: %w", err)
	}

	durationMs, err := w.ffmpeg.GetAudioDuration(ctx, clipPath)
	if err != nil {
		log.Printf("Segment %d: could not probe duration, using estimate %dms: %v",
			segment.SegmentIndex, resp.DurationMs, err)
		durationMs = resp.DurationMs
	}

	audioAsset := &models.Asset{
		ID:            uuid.New(),
		EpisodeID:     segment.EpisodeID,
		SegmentID:     &segment.ID,
		Type:          models.AssetTypeSegmentAudio,
		StorageBucket: w.storage.Bucket,
		StoragePath:   w.storage.GenerateStoragePath(segment.EpisodeID, fmt.Sprintf("segment_%d.mp3", segment.SegmentIndex)),
		ContentType:   strPtr("audio/mpeg"),
		ByteSize:      int64Ptr(int64(len(resp.AudioData))),
	}

	if err := w.uploadWithLimit(ctx, fmt.Sprintf("segment_%d_audio", segment.SegmentIndex), func() error {
		return w.storage.Upload(ctx, audioAsset.StoragePath, resp.AudioData, "audio/mpeg")
	}); err != nil {
		w.db.UpdateSegmentError(ctx, segment.ID, err.Error())
		return clipPath, fmt.Errorf("failed to upload segment audio: %w", err)
	}

	if err := w.db.CreateAsset(ctx, audioAsset); err != nil {
		return clipPath, fmt.Errorf("failed to save segment asset: %w", err)
	}
	if err := w.db.UpdateSegmentAudio(ctx, segment.ID, audioAsset.ID, cleanText, voiceID, durationMs, usedFallback); err != nil {
		return clipPath, fmt.Errorf("failed to update segment audio: %w", err)
	}

	actualStartMs := compositor.Place(timeline.Clip{
		AudioPath:      clipPath,
		DurationMs:     durationMs,
		PlannedStartMs: segment.PlannedStartMs,
	})

	if err := w.db.UpdateSegmentPlacement(ctx, segment.ID, actualStartMs); err != nil {
		return clipPath, fmt.Errorf("failed to update segment placement: %w", err)
	}

	log.Printf("Segment %d: placed at %dms (planned %dms, %dms long, fallback=%v)",
		segment.SegmentIndex, actualStartMs, segment.PlannedStartMs, durationMs, usedFallback)
	return clipPath, nil
}

// publishEpisode uploads the final mix and, when transcription is configured,
// the SRT transcript. The two uploads run concurrently; a transcript failure
// is logged but never fails the episode.
func (w *Worker) publishEpisode(ctx context.Context, episode *models.Episode, finalData []byte, durationMs int) error {
	finalAsset := &models.Asset{
		ID:            uuid.New(),
		EpisodeID:     episode.ID,
		Type:          models.AssetTypeFinalAudio,
		StorageBucket: w.storage.Bucket,
		StoragePath:   w.storage.GenerateStoragePath(episode.ID, episodeFilename(episode)),
		ContentType:   strPtr("audio/mpeg"),
		ByteSize:      int64Ptr(int64(len(finalData))),
	}

	var transcriptAsset *models.Asset

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := w.uploadWithLimit(gctx, "final_audio", func() error {
			return w.storage.Upload(gctx, finalAsset.StoragePath, finalData, "audio/mpeg")
		}); err != nil {
			return fmt.Errorf("failed to upload final audio: %w", err)
		}
		return w.db.CreateAsset(gctx, finalAsset)
	})

	g.Go(func() error {
		if w.openai == nil {
			return nil
		}

		language := "en"
		if episode.Language != nil && *episode.Language != "" {
			language = *episode.Language
		}

		words, err := w.openai.TranscribeAudio(gctx, finalData, language)
		if err != nil {
			log.Printf("WARNING: transcription failed for episode %s: %v", episode.ID, err)
			return nil
		}

		srt, err := services.GenerateSRTTranscript(words)
		if err != nil {
			log.Printf("WARNING: transcript generation failed for episode %s: %v", episode.ID, err)
			return nil
		}

		asset := &models.Asset{
			ID:            uuid.New(),
			EpisodeID:     episode.ID,
			Type:          models.AssetTypeTranscript,
			StorageBucket: w.storage.Bucket,
			StoragePath:   w.storage.GenerateStoragePath(episode.ID, "transcript.srt"),
			ContentType:   strPtr("application/x-subrip"),
			ByteSize:      int64Ptr(int64(len(srt))),
		}

		if err := w.uploadWithLimit(gctx, "transcript", func() error {
			return w.storage.Upload(gctx, asset.StoragePath, []byte(srt), "application/x-subrip")
		}); err != nil {
			log.Printf("WARNING: transcript upload failed for episode %s: %v", episode.ID, err)
			return nil
		}
		if err := w.db.CreateAsset(gctx, asset); err != nil {
			log.Printf("WARNING: transcript asset save failed for episode %s: %v", episode.ID, err)
			return nil
		}

		transcriptAsset = asset
		return nil
	})

	if err := g.Wait(); err != nil {
		w.db.UpdateEpisodeError(ctx, episode.ID, "upload_failed", err.Error())
		return err
	}

	if transcriptAsset != nil {
		if err := w.db.SetEpisodeTranscript(ctx, episode.ID, transcriptAsset.ID); err != nil {
			log.Printf("WARNING: could not record transcript asset: %v", err)
		}
	}

	if err := w.db.SetEpisodeFinalAudio(ctx, episode.ID, finalAsset.ID, durationMs); err != nil {
		return fmt.Errorf("failed to finalize episode: %w", err)
	}

	log.Printf("Episode %s published: %s (%dms)", episode.ID, finalAsset.StoragePath, durationMs)
	return nil
}

// episodeFilename derives the output file name from the script title, with
// spaces replaced by underscores. Falls back to the episode ID when no title
// was generated.
func episodeFilename(episode *models.Episode) string {
	if episode.Title != nil && *episode.Title != "" {
		return strings.ReplaceAll(*episode.Title, " ", "_") + ".mp3"
	}
	return episode.ID.String() + ".mp3"
}

// Helper functions
func strPtr(s string) *string {
	return &s
}

func int64Ptr(i int64) *int64 {
	return &i
}
