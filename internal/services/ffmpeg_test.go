package services

import (
	"testing"

	"github.com/bobarin/podforge/internal/timeline"
)

func TestBuildMixFilter(t *testing.T) {
	placements := []timeline.Placement{
		{Clip: timeline.Clip{AudioPath: "a.mp3", DurationMs: 3000}, ActualStartMs: 500},
		{Clip: timeline.Clip{AudioPath: "b.mp3", DurationMs: 2000}, ActualStartMs: 4200},
	}

	got := buildMixFilter(placements)
	want := "[0:a]adelay=500|500[a0];[1:a]adelay=4200|4200[a1];[a0][a1]amix=inputs=2:duration=longest:normalize=0[aout]"
	if got != want {
		t.Errorf("unexpected filter:\ngot  %s\nwant %s", got, want)
	}
}

func TestBuildMixFilterSingleClip(t *testing.T) {
	placements := []timeline.Placement{
		{Clip: timeline.Clip{AudioPath: "a.mp3", DurationMs: 3000}, ActualStartMs: 0},
	}

	got := buildMixFilter(placements)
	want := "[0:a]adelay=0|0[a0];[a0]amix=inputs=1:duration=longest:normalize=0[aout]"
	if got != want {
		t.Errorf("unexpected filter:\ngot  %s\nwant %s", got, want)
	}
}

func TestEstimateAudioDuration(t *testing.T) {
	// 140 words at 140 WPM is one minute.
	words := make([]string, 140)
	for i := range words {
		words[i] = "word"
	}
	text := ""
	for i, w := range words {
		if i > 0 {
			text += " "
		}
		text += w
	}

	if got := estimateAudioDuration(text, 1.0); got != 60000 {
		t.Errorf("expected 60000ms, got %d", got)
	}

	// Slower speech takes longer.
	if got := estimateAudioDuration(text, 0.5); got != 120000 {
		t.Errorf("expected 120000ms at half speed, got %d", got)
	}
}
