package services

import (
	"regexp"
	"strings"
)

// ---------------------------------------------------------------------------
// Emotion annotation parsing
// Dialogue lines carry inline bracketed markers like "[excited] Hello!" that
// steer synthesis but must not be spoken. ParseEmotions splits a raw line
// into its markers and the clean text to synthesize.
// ---------------------------------------------------------------------------

var (
	emotionPattern    = regexp.MustCompile(`\[([^\]]*)\]`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// ParseEmotions extracts bracketed emotion markers from raw dialogue text.
// Markers are returned in order of appearance, duplicates preserved. The
// clean text has every marker removed, runs of whitespace collapsed to a
// single space, and surrounding whitespace trimmed. Never fails: text with
// no markers yields a nil marker slice and the trimmed input.
func ParseEmotions(raw string) ([]string, string) {
	var markers []string
	for _, m := range emotionPattern.FindAllStringSubmatch(raw, -1) {
		markers = append(markers, m[1])
	}

	clean := emotionPattern.ReplaceAllString(raw, "")
	clean = whitespacePattern.ReplaceAllString(clean, " ")
	clean = strings.TrimSpace(clean)

	return markers, clean
}

// Dialogue stability is quantized: the backend accepts only 0.0 (dynamic),
// 0.5 (natural) and 1.0 (robust).
const (
	StabilityDynamic = 0.0
	StabilityNatural = 0.5
	StabilityRobust  = 1.0
)

var (
	highEnergyMarkers = map[string]bool{"excited": true, "dramatic": true, "nervous": true}
	composedMarkers   = map[string]bool{"whispers": true, "serious": true, "thoughtful": true}
)

// StabilityForMarkers maps emotion markers to a dialogue stability value.
// Any high-energy marker wins over any composed marker; with neither, the
// natural default applies.
func StabilityForMarkers(markers []string) float64 {
	for _, m := range markers {
		if highEnergyMarkers[m] {
			return StabilityDynamic
		}
	}
	for _, m := range markers {
		if composedMarkers[m] {
			return StabilityRobust
		}
	}
	return StabilityNatural
}
