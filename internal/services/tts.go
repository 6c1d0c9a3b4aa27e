package services

import (
	"context"
	"fmt"
)

// ---------------------------------------------------------------------------
// Speech synthesis interfaces
// The primary path is the emotion-aware dialogue endpoint (DialogueSynthesizer,
// implemented by DialogueClient). When it fails, the worker falls back to a
// plain TTSService provider, which ElevenLabs and Cartesia both implement.
// ---------------------------------------------------------------------------

// TTSResponse is the common response type from any speech provider.
type TTSResponse struct {
	AudioData  []byte
	DurationMs int
	Format     string // "mp3", "wav", etc.
}

// TTSService is the interface any plain text-to-speech provider must
// implement. Providers use their own fixed voice settings.
type TTSService interface {
	// GenerateSpeech converts text to audio with the given provider voice ID.
	GenerateSpeech(ctx context.Context, text, voiceID string) (*TTSResponse, error)
}

// DialogueSynthesizer produces emotion-aware speech for a single dialogue
// line. Emotion markers influence delivery but are never spoken.
type DialogueSynthesizer interface {
	SynthesizeDialogue(ctx context.Context, text, voiceID string, markers []string) (*TTSResponse, error)
}

// AuthError marks a synthesis failure caused by authentication rather than
// the synthesis backend. Falling back to another provider cannot help when
// the token itself is unavailable, so callers treat it as fatal for the
// segment.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed: %v", e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}
