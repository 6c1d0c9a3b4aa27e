package services

import (
	"strings"
	"testing"
)

func TestGenerateSRTTranscript(t *testing.T) {
	words := []WordTimestamp{
		{Word: "Welcome", Start: 0.5, End: 0.9},
		{Word: "back", Start: 0.9, End: 1.2},
		{Word: "everyone.", Start: 1.2, End: 1.8},
		{Word: "Today", Start: 2.5, End: 2.9},
		{Word: "we", Start: 2.9, End: 3.0},
		{Word: "talk", Start: 3.0, End: 3.4},
		{Word: "bees.", Start: 3.4, End: 3.9},
	}

	srt, err := GenerateSRTTranscript(words)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	// Sentence boundaries split the words into two captions.
	if !strings.Contains(srt, "1\n00:00:00,500 --> 00:00:01,800\nWelcome back everyone.") {
		t.Errorf("missing first caption, got:\n%s", srt)
	}
	if !strings.Contains(srt, "2\n00:00:02,500 --> 00:00:03,900\nToday we talk bees.") {
		t.Errorf("missing second caption, got:\n%s", srt)
	}
}

func TestGenerateSRTTranscriptEmpty(t *testing.T) {
	if _, err := GenerateSRTTranscript(nil); err == nil {
		t.Fatal("expected error for empty word list")
	}
}

func TestFormatSRTTime(t *testing.T) {
	tests := []struct {
		seconds float64
		want    string
	}{
		{0, "00:00:00,000"},
		{0.5, "00:00:00,500"},
		{61.25, "00:01:01,250"},
		{3725.5, "01:02:05,500"},
		{-1, "00:00:00,000"},
	}
	for _, tt := range tests {
		if got := formatSRTTime(tt.seconds); got != tt.want {
			t.Errorf("formatSRTTime(%v) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}

func TestGroupWordsBreaksLongRuns(t *testing.T) {
	var words []WordTimestamp
	for i := 0; i < 25; i++ {
		words = append(words, WordTimestamp{Word: "word", Start: float64(i), End: float64(i) + 0.5})
	}

	captions := groupWordsIntoCaptions(words, wordsPerCaption)
	if len(captions) != 3 {
		t.Fatalf("expected 3 captions, got %d", len(captions))
	}
	for i, c := range captions[:2] {
		if len(c) != wordsPerCaption {
			t.Errorf("caption %d has %d words, want %d", i, len(c), wordsPerCaption)
		}
	}
	if len(captions[2]) != 5 {
		t.Errorf("last caption has %d words, want 5", len(captions[2]))
	}
}
