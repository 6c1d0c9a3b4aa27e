package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"google.golang.org/genai"

	"github.com/bobarin/podforge/internal/models"
)

// ---------------------------------------------------------------------------
// Gemini Script Generation
// Produces the podcast dialogue script: a titled list of timed segments with
// inline emotion markers the synthesis layer understands.
// ---------------------------------------------------------------------------

const geminiModel = "gemini-2.5-pro"

// Speaker roles the script is allowed to use. These are the keys of the
// voice mapping; anything else has no voice and would be skipped at
// synthesis time.
var allowedSpeakers = map[string]bool{
	"host":         true,
	"guest_male":   true,
	"guest_female": true,
}

type GeminiService struct {
	apiKey string
	model  string
}

func NewGeminiService(apiKey string) *GeminiService {
	return &GeminiService{
		apiKey: apiKey,
		model:  geminiModel,
	}
}

// GenerateScript generates a podcast script for the topic. targetDuration is
// the desired episode length in seconds; language is an ISO 639-1 code.
func (s *GeminiService) GenerateScript(ctx context.Context, topic string, targetDuration int, language string) (*models.PodcastScript, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  s.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	prompt := buildScriptPrompt(topic, targetDuration, language)

	log.Printf("[Gemini] Generating script (model=%s, topic=%q, targetDuration=%ds)", s.model, topic, targetDuration)

	resp, err := client.Models.GenerateContent(ctx, s.model, genai.Text(prompt), nil)
	if err != nil {
		return nil, fmt.Errorf("gemini request failed: %w", err)
	}

	rawText := resp.Text()
	if rawText == "" {
		return nil, fmt.Errorf("gemini returned empty response")
	}

	script, err := parseScriptJSON(rawText)
	if err != nil {
		const maxLogLen = 2000
		if len(rawText) > maxLogLen {
			log.Printf("[Gemini] raw response (truncated): %s...", rawText[:maxLogLen])
		} else {
			log.Printf("[Gemini] raw response: %s", rawText)
		}
		return nil, err
	}

	log.Printf("[Gemini] Script generated: %q (%d segments, total_duration_seconds=%d)",
		script.Title, len(script.Segments), script.TotalDurationSeconds)

	return script, nil
}

// parseScriptJSON extracts and validates the script JSON from a model
// response that may wrap it in prose or markdown code fences.
func parseScriptJSON(raw string) (*models.PodcastScript, error) {
	jsonText := extractJSONObject(raw)
	if jsonText == "" {
		return nil, fmt.Errorf("no JSON object found in gemini response")
	}

	var script models.PodcastScript
	if err := json.Unmarshal([]byte(jsonText), &script); err != nil {
		return nil, fmt.Errorf("failed to parse script: %w", err)
	}

	if script.Title == "" {
		return nil, fmt.Errorf("script has no title")
	}
	if len(script.Segments) == 0 {
		return nil, fmt.Errorf("script has no segments")
	}

	for i, seg := range script.Segments {
		var missing []string
		if seg.Type == "" {
			missing = append(missing, "type")
		}
		if seg.Text == "" {
			missing = append(missing, "text")
		}
		if seg.Type == models.SegmentKindDialogue && seg.Speaker == "" {
			missing = append(missing, "speaker")
		}
		if len(missing) > 0 {
			return nil, fmt.Errorf("segment %d missing required fields: %v", i, missing)
		}
		if seg.StartTime < 0 {
			return nil, fmt.Errorf("segment %d has negative start_time %d", i, seg.StartTime)
		}
		if seg.Type == models.SegmentKindDialogue && !allowedSpeakers[seg.Speaker] {
			log.Printf("[Gemini] WARNING: segment %d uses unknown speaker %q", i, seg.Speaker)
		}
	}

	return &script, nil
}

// extractJSONObject strips markdown code fences and slices from the first
// '{' to the last '}' so stray prose around the object does not break
// parsing.
func extractJSONObject(raw string) string {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.ReplaceAll(cleaned, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start == -1 || end == -1 || end < start {
		return ""
	}
	return cleaned[start : end+1]
}

func buildScriptPrompt(topic string, targetDuration int, language string) string {
	if language == "" {
		language = "en"
	}

	return fmt.Sprintf(`You are a professional writer of short audio podcast scripts.
Write an engaging script about the given topic, at most %d seconds long.

Topic: "%s"

Requirements:
1. Use a host and guest format with two or three speakers.
2. Only the speakers "host", "guest_male" and "guest_female" may appear. No other speaker names are allowed. Use at least two roles, always including "host".
3. Give every line an exact start time (start_time) in whole seconds from the beginning of the episode.
4. Use inline emotion markers in square brackets to shape the delivery, e.g. [excited], [whispers], [sarcastically], [giggles], [dramatic], [confused], [cheerful], [mysterious], [nervous], [confident], [thoughtful], [surprised], [worried], [amused], [serious].
5. Place emotion markers naturally at the start or middle of a line, matching the flow of the conversation. One or two per line at most.
6. Write all spoken text in the "%s" language.
7. Return ONLY a JSON object in exactly this shape:

{
  "title": "Episode title",
  "total_duration_seconds": %d,
  "segments": [
    {
      "type": "dialogue",
      "speaker": "host",
      "text": "[cheerful] Welcome back to the show where technology meets everyday life!",
      "start_time": 2
    },
    {
      "type": "dialogue",
      "speaker": "guest_female",
      "text": "[confident] Thanks for having me. [giggles] I have been looking forward to this.",
      "start_time": 8
    }
  ]
}

Notes:
- Space the start times so each line has room to be spoken before the next begins.
- Keep the conversation flowing naturally; lines should respond to each other.
- Pick emotions that fit the context; do not overuse them.`, targetDuration, topic, language, targetDuration)
}
