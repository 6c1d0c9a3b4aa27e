package services

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/bobarin/podforge/internal/timeline"
)

// ---------------------------------------------------------------------------
// FFmpegService — audio probing and timeline mixing
// The compositor decides where each clip goes; this service resolves those
// placements into a single MP3 by delaying each clip to its offset and
// mixing everything down with ffmpeg.
// ---------------------------------------------------------------------------

const (
	// Output encoding for the final episode
	outputAudioCodec   = "libmp3lame"
	outputAudioBitrate = "192k"
)

type FFmpegService struct {
	tempDir string
}

func NewFFmpegService(tempDir string) *FFmpegService {
	// Create temp directory if it doesn't exist
	if err := os.MkdirAll(tempDir, 0755); err != nil {
		panic(fmt.Sprintf("failed to create temp dir: %v", err))
	}

	return &FFmpegService{
		tempDir: tempDir,
	}
}

// MixTimeline renders placed clips into one MP3 file. Each clip is delayed to
// its actual start offset and all clips are mixed onto a shared track, so the
// output length is the end of the last clip — no fixed-length canvas.
func (s *FFmpegService) MixTimeline(ctx context.Context, placements []timeline.Placement, outputPath string) error {
	if len(placements) == 0 {
		return fmt.Errorf("no placements to mix")
	}

	args := []string{}
	for _, p := range placements {
		args = append(args, "-i", p.Clip.AudioPath)
	}

	filterComplex := buildMixFilter(placements)

	args = append(args,
		"-filter_complex", filterComplex,
		"-map", "[aout]",
		"-c:a", outputAudioCodec,
		"-b:a", outputAudioBitrate,
		"-y",
		outputPath,
	)

	log.Printf("[FFmpeg] Mixing %d clips into %s", len(placements), outputPath)

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg mix failed: %w", err)
	}

	return nil
}

// buildMixFilter constructs the filter_complex string for MixTimeline.
//
// Each input is delayed to its placement offset with adelay, then all delayed
// streams are combined with amix. duration=longest keeps the mix running to
// the end of the last clip; normalize=0 preserves each clip's level instead
// of dividing by the input count.
//
// Example for two clips at 500ms and 4200ms:
//
//	[0:a]adelay=500|500[a0];[1:a]adelay=4200|4200[a1];[a0][a1]amix=inputs=2:duration=longest:normalize=0[aout]
func buildMixFilter(placements []timeline.Placement) string {
	var sb strings.Builder
	for i, p := range placements {
		delay := p.ActualStartMs
		sb.WriteString(fmt.Sprintf("[%d:a]adelay=%d|%d[a%d];", i, delay, delay, i))
	}
	for i := range placements {
		sb.WriteString(fmt.Sprintf("[a%d]", i))
	}
	sb.WriteString(fmt.Sprintf("amix=inputs=%d:duration=longest:normalize=0[aout]", len(placements)))
	return sb.String()
}

// GetAudioDuration returns the duration of an audio file in milliseconds
func (s *FFmpegService) GetAudioDuration(ctx context.Context, audioPath string) (int, error) {
	// Use ffprobe to get duration
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		audioPath,
	}

	cmd := exec.CommandContext(ctx, "ffprobe", args...)
	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed: %w", err)
	}

	var durationSec float64
	if _, err := fmt.Sscanf(strings.TrimSpace(string(output)), "%f", &durationSec); err != nil {
		return 0, fmt.Errorf("failed to parse duration: %w", err)
	}

	return int(durationSec * 1000), nil
}

// CreateTempFile creates a temporary file path in the service's temp directory
func (s *FFmpegService) CreateTempFile(filename string) string {
	return filepath.Join(s.tempDir, filename)
}

// Cleanup removes temporary files
func (s *FFmpegService) Cleanup(paths ...string) {
	for _, path := range paths {
		os.Remove(path)
	}
}
