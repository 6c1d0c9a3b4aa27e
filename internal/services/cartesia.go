package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ---------------------------------------------------------------------------
// Cartesia Text-to-Speech Service
// Alternate fallback provider. Like the ElevenLabs fallback path it ignores
// emotion markers and performs a single attempt with no retry.
// ---------------------------------------------------------------------------

const (
	// Default Cartesia API version
	CartesiaAPIVersion = "2024-06-10"
)

type CartesiaService struct {
	apiKey     string
	apiURL     string
	apiVersion string
	client     *http.Client
}

func NewCartesiaService(apiKey, apiURL string) *CartesiaService {
	return &CartesiaService{
		apiKey:     apiKey,
		apiURL:     apiURL,
		apiVersion: CartesiaAPIVersion,
		client:     &http.Client{Timeout: 60 * time.Second},
	}
}

// CartesiaRequest matches the actual Cartesia API specification
type CartesiaRequest struct {
	ModelID      string                    `json:"model_id"`
	Transcript   string                    `json:"transcript"`
	Voice        CartesiaVoiceSpecifier    `json:"voice"`
	Language     *string                   `json:"language,omitempty"`
	OutputFormat CartesiaOutputFormat      `json:"output_format"`
	Config       *CartesiaGenerationConfig `json:"generation_config,omitempty"`
}

type CartesiaVoiceSpecifier struct {
	Mode string `json:"mode"`
	ID   string `json:"id"`
}

type CartesiaOutputFormat struct {
	Container  string `json:"container"`
	Encoding   string `json:"encoding,omitempty"`
	SampleRate int    `json:"sample_rate"`
	BitRate    int    `json:"bit_rate,omitempty"`
}

type CartesiaGenerationConfig struct {
	Volume  *float64 `json:"volume,omitempty"`  // 0.5 to 2.0
	Speed   *float64 `json:"speed,omitempty"`   // 0.6 to 1.5
	Emotion *string  `json:"emotion,omitempty"` // e.g., "neutral", "excited", "calm"
}

// Ensure CartesiaService implements TTSService at compile time.
var _ TTSService = (*CartesiaService)(nil)

// GenerateSpeechOptions provides configuration for speech generation
type GenerateSpeechOptions struct {
	VoiceID  string
	Language string
	Speed    float64
	Volume   float64
}

// GenerateSpeech generates audio from text using Cartesia TTS with neutral
// conversational settings. Implements the TTSService interface.
func (s *CartesiaService) GenerateSpeech(ctx context.Context, text, voiceID string) (*TTSResponse, error) {
	opts := GenerateSpeechOptions{
		VoiceID:  voiceID,
		Language: "en",
		Speed:    1.0,
		Volume:   1.0,
	}
	return s.GenerateSpeechWithOptions(ctx, text, opts)
}

// GenerateSpeechWithOptions generates audio with detailed Cartesia-specific configuration.
func (s *CartesiaService) GenerateSpeechWithOptions(ctx context.Context, text string, opts GenerateSpeechOptions) (*TTSResponse, error) {
	reqBody := CartesiaRequest{
		ModelID:    "sonic-english",
		Transcript: text,
		Voice: CartesiaVoiceSpecifier{
			Mode: "id",
			ID:   opts.VoiceID,
		},
		OutputFormat: CartesiaOutputFormat{
			Container:  "mp3",
			SampleRate: 44100,
			BitRate:    192000,
		},
	}

	if opts.Language != "" {
		reqBody.Language = &opts.Language
	}

	if opts.Speed != 1.0 || opts.Volume != 1.0 {
		config := &CartesiaGenerationConfig{}
		if opts.Speed != 1.0 {
			speed := opts.Speed
			config.Speed = &speed
		}
		if opts.Volume != 1.0 {
			volume := opts.Volume
			config.Volume = &volume
		}
		reqBody.Config = config
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/tts/bytes", s.apiURL)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Cartesia-Version", s.apiVersion)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("cartesia returned status %d: %s", resp.StatusCode, string(body))
	}

	audioData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio: %w", err)
	}

	durationMs := estimateAudioDuration(text, opts.Speed)

	return &TTSResponse{
		AudioData:  audioData,
		DurationMs: durationMs,
		Format:     "mp3",
	}, nil
}

// estimateAudioDuration estimates duration based on text length and speed.
// Average conversational speaking rate is ~140 words per minute.
func estimateAudioDuration(text string, speed float64) int {
	words := len(bytes.Fields([]byte(text)))
	baseWPM := 140.0

	// Lower speed = fewer WPM = longer duration
	actualWPM := baseWPM * speed

	minutes := float64(words) / actualWPM
	return int(minutes * 60 * 1000)
}
