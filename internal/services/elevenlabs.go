package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/bobarin/podforge/internal/auth"
	"github.com/bobarin/podforge/internal/retry"
)

// ---------------------------------------------------------------------------
// ElevenLabs speech synthesis
// Two paths against the same provider:
//   - DialogueClient: the v3 text-to-dialogue streaming endpoint, which
//     honors emotion-driven stability settings. Authenticated with a Firebase
//     bearer token from the rotating account session.
//   - ElevenLabsService: the plain convert endpoint with fixed voice
//     settings, authenticated with an API key. Used as the fallback when
//     dialogue synthesis exhausts its retries.
// ---------------------------------------------------------------------------

const (
	elevenLabsBaseURL      = "https://api.elevenlabs.io"
	dialogueBaseURL        = "https://api.us.elevenlabs.io"
	dialogueModelID        = "eleven_v3"
	fallbackModelID        = "eleven_multilingual_v2"
	elevenLabsOutputFormat = "mp3_44100_128"
)

// The dialogue endpoint sits behind the same edge as the web app and rejects
// requests without browser-looking headers.
const (
	elevenLabsOrigin    = "https://elevenlabs.io"
	elevenLabsUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36"
)

// DialogueClient synthesizes emotion-aware speech via the v3 text-to-dialogue
// streaming endpoint.
type DialogueClient struct {
	session *auth.Session
	baseURL string
	client  *http.Client
	policy  retry.Policy
}

var _ DialogueSynthesizer = (*DialogueClient)(nil)

func NewDialogueClient(session *auth.Session) *DialogueClient {
	return &DialogueClient{
		session: session,
		baseURL: dialogueBaseURL,
		client:  &http.Client{Timeout: 120 * time.Second},
		policy:  retry.Fixed(5, 15*time.Second),
	}
}

type dialogueInput struct {
	Text    string `json:"text"`
	VoiceID string `json:"voice_id"`
}

type dialogueSettings struct {
	Stability       float64 `json:"stability"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
}

type dialogueRequest struct {
	Inputs   []dialogueInput  `json:"inputs"`
	ModelID  string           `json:"model_id"`
	Settings dialogueSettings `json:"settings"`
}

// SynthesizeDialogue converts one dialogue line to speech. The session is
// consulted first: the account rotates when due, and the cached token is
// reused when still valid. A token failure is returned as *AuthError without
// touching the synthesis endpoint. The request counter increments before the
// request is issued, so failed calls still count toward rotation.
func (c *DialogueClient) SynthesizeDialogue(ctx context.Context, text, voiceID string, markers []string) (*TTSResponse, error) {
	c.session.RotateIfNeeded()

	token, err := c.session.Token(ctx)
	if err != nil {
		return nil, &AuthError{Err: err}
	}

	stability := StabilityForMarkers(markers)
	c.session.BeginRequest()

	reqBody := dialogueRequest{
		Inputs:  []dialogueInput{{Text: text, VoiceID: voiceID}},
		ModelID: dialogueModelID,
		Settings: dialogueSettings{
			Stability:       stability,
			UseSpeakerBoost: true,
		},
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal dialogue request: %w", err)
	}

	log.Printf("[ElevenLabs] Synthesizing dialogue (voiceID=%s, stability=%.1f, textLen=%d)",
		voiceID, stability, len(text))

	url := c.baseURL + "/v1/text-to-dialogue/stream"

	var audioData []byte
	err = c.policy.Do(ctx, "ElevenLabs dialogue", func() error {
		req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonData))
		if err != nil {
			return retry.Permanent(fmt.Errorf("failed to create dialogue request: %w", err))
		}
		req.Header.Set("Accept", "audio/mpeg")
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Origin", elevenLabsOrigin)
		req.Header.Set("Referer", elevenLabsOrigin+"/")
		req.Header.Set("User-Agent", elevenLabsUserAgent)
		req.Header.Set("Authorization", "Bearer "+token)

		resp, err := c.client.Do(req)
		if err != nil {
			return fmt.Errorf("dialogue request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			return fmt.Errorf("dialogue endpoint returned status %d: %s", resp.StatusCode, string(body))
		}

		// The response streams audio/mpeg chunks; concatenate them all.
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read dialogue audio stream: %w", err)
		}
		if len(data) == 0 {
			return fmt.Errorf("dialogue endpoint returned empty audio")
		}

		audioData = data
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("dialogue synthesis failed: %w", err)
	}

	log.Printf("[ElevenLabs] Dialogue synthesized (%d bytes)", len(audioData))

	return &TTSResponse{
		AudioData:  audioData,
		DurationMs: estimateAudioDuration(text, 1.0),
		Format:     "mp3",
	}, nil
}

// ---------------------------------------------------------------------------
// Fallback convert endpoint
// ---------------------------------------------------------------------------

// ElevenLabsService handles plain text-to-speech via the convert endpoint.
// Voice settings are fixed and emotion markers are ignored; this path exists
// so a segment still gets audio when dialogue synthesis fails. It performs a
// single attempt with no retry.
type ElevenLabsService struct {
	apiKey  string
	baseURL string
	modelID string
	client  *http.Client
}

var _ TTSService = (*ElevenLabsService)(nil)

func NewElevenLabsService(apiKey string) *ElevenLabsService {
	return &ElevenLabsService{
		apiKey:  apiKey,
		baseURL: elevenLabsBaseURL,
		modelID: fallbackModelID,
		client:  &http.Client{Timeout: 90 * time.Second},
	}
}

type elevenLabsRequest struct {
	Text          string                   `json:"text"`
	ModelID       string                   `json:"model_id"`
	VoiceSettings *elevenLabsVoiceSettings `json:"voice_settings,omitempty"`
}

type elevenLabsVoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
}

// GenerateSpeech converts text to speech with fixed default voice settings.
// Implements the TTSService interface.
func (s *ElevenLabsService) GenerateSpeech(ctx context.Context, text, voiceID string) (*TTSResponse, error) {
	reqBody := elevenLabsRequest{
		Text:    text,
		ModelID: s.modelID,
		VoiceSettings: &elevenLabsVoiceSettings{
			Stability:       0.5,
			SimilarityBoost: 0.75,
			Style:           0.0,
			UseSpeakerBoost: true,
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal ElevenLabs request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/text-to-speech/%s?output_format=%s",
		s.baseURL, voiceID, elevenLabsOutputFormat)

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create ElevenLabs request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", s.apiKey)

	log.Printf("[ElevenLabs] Fallback synthesis (voiceID=%s, model=%s, textLen=%d)",
		voiceID, s.modelID, len(text))

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ElevenLabs request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ElevenLabs returned status %d: %s", resp.StatusCode, string(body))
	}

	// The response body IS the audio file.
	audioData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read ElevenLabs audio response: %w", err)
	}
	if len(audioData) == 0 {
		return nil, fmt.Errorf("ElevenLabs returned empty audio")
	}

	log.Printf("[ElevenLabs] Fallback speech generated (%d bytes)", len(audioData))

	return &TTSResponse{
		AudioData:  audioData,
		DurationMs: estimateAudioDuration(text, 1.0),
		Format:     "mp3",
	}, nil
}
