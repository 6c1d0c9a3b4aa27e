package services

import (
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// SRT Transcript Generator
//
// Builds a SubRip transcript of the final mixed episode from Whisper
// word-level timestamps. Words are grouped into caption lines that break at
// sentence boundaries so the transcript reads naturally.
// ---------------------------------------------------------------------------

const (
	// How many words per caption line before forcing a break
	wordsPerCaption = 10

	// Minimum words before a sentence-ending word may close a caption
	minWordsPerCaption = 3
)

// GenerateSRTTranscript renders word timestamps as an SRT document. Timings
// come from the mixed episode audio, so no offset is applied.
func GenerateSRTTranscript(words []WordTimestamp) (string, error) {
	if len(words) == 0 {
		return "", fmt.Errorf("no words to generate transcript from")
	}

	captions := groupWordsIntoCaptions(words, wordsPerCaption)

	var sb strings.Builder
	for i, caption := range captions {
		texts := make([]string, 0, len(caption))
		for _, w := range caption {
			if w.Word != "" {
				texts = append(texts, w.Word)
			}
		}
		if len(texts) == 0 {
			continue
		}

		sb.WriteString(fmt.Sprintf("%d\n", i+1))
		sb.WriteString(fmt.Sprintf("%s --> %s\n",
			formatSRTTime(caption[0].Start),
			formatSRTTime(caption[len(caption)-1].End)))
		sb.WriteString(strings.Join(texts, " "))
		sb.WriteString("\n\n")
	}

	return sb.String(), nil
}

// groupWordsIntoCaptions groups words into caption lines of the given size,
// breaking early at sentence-ending punctuation to keep lines natural.
func groupWordsIntoCaptions(words []WordTimestamp, size int) [][]WordTimestamp {
	var captions [][]WordTimestamp
	var current []WordTimestamp

	for _, word := range words {
		current = append(current, word)

		isSentenceEnd := strings.ContainsAny(word.Word, ".!?")
		if len(current) >= size || (isSentenceEnd && len(current) >= minWordsPerCaption) {
			captions = append(captions, current)
			current = nil
		}
	}

	if len(current) > 0 {
		captions = append(captions, current)
	}

	return captions
}

// formatSRTTime converts seconds to SRT timestamp format: HH:MM:SS,mmm
func formatSRTTime(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}

	hours := int(seconds) / 3600
	minutes := (int(seconds) % 3600) / 60
	secs := int(seconds) % 60
	millis := int((seconds - float64(int(seconds))) * 1000)

	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, secs, millis)
}
