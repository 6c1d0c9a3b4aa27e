package models

import (
	"encoding/json"
	"testing"
)

func TestJSONBMarshal(t *testing.T) {
	j := JSONB{
		"title":    "Late Night Stories",
		"segments": []string{"intro", "outro"},
	}

	data, err := j.Value()
	if err != nil {
		t.Fatalf("failed to marshal JSONB: %v", err)
	}

	if data == nil {
		t.Fatal("expected non-nil data")
	}

	// Verify it's valid JSON
	var result map[string]interface{}
	if err := json.Unmarshal(data.([]byte), &result); err != nil {
		t.Fatalf("failed to unmarshal result: %v", err)
	}

	if result["title"] != "Late Night Stories" {
		t.Errorf("expected title=Late Night Stories, got %v", result["title"])
	}
}

func TestJSONBScan(t *testing.T) {
	jsonData := []byte(`{"title": "First Love", "total_duration_seconds": 110}`)

	var j JSONB
	if err := j.Scan(jsonData); err != nil {
		t.Fatalf("failed to scan: %v", err)
	}

	if j["title"] != "First Love" {
		t.Errorf("expected title=First Love, got %v", j["title"])
	}

	if j["total_duration_seconds"].(float64) != 110 {
		t.Errorf("expected total_duration_seconds=110, got %v", j["total_duration_seconds"])
	}
}

func TestPodcastScriptRoundTrip(t *testing.T) {
	raw := []byte(`{
		"title": "The AI Show",
		"total_duration_seconds": 110,
		"segments": [
			{"type": "dialogue", "speaker": "host", "text": "[cheerful] Welcome back!", "start_time": 2},
			{"type": "dialogue", "speaker": "guest_female", "text": "[nervous] Thanks for having me.", "start_time": 8}
		]
	}`)

	var script PodcastScript
	if err := json.Unmarshal(raw, &script); err != nil {
		t.Fatalf("failed to unmarshal script: %v", err)
	}

	if script.Title != "The AI Show" {
		t.Errorf("expected title=The AI Show, got %q", script.Title)
	}
	if len(script.Segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(script.Segments))
	}
	if script.Segments[0].Type != SegmentKindDialogue {
		t.Errorf("expected dialogue segment, got %q", script.Segments[0].Type)
	}
	if script.Segments[1].StartTime != 8 {
		t.Errorf("expected start_time=8, got %d", script.Segments[1].StartTime)
	}
}

func TestEpisodeStatus(t *testing.T) {
	statuses := []EpisodeStatus{
		EpisodeStatusQueued,
		EpisodeStatusScripting,
		EpisodeStatusVoicing,
		EpisodeStatusMixing,
		EpisodeStatusCompleted,
		EpisodeStatusFailed,
	}

	for _, status := range statuses {
		if status == "" {
			t.Errorf("empty status found")
		}
	}
}

func TestSegmentStatus(t *testing.T) {
	statuses := []SegmentStatus{
		SegmentStatusPending,
		SegmentStatusVoiced,
		SegmentStatusPlaced,
		SegmentStatusSkipped,
		SegmentStatusFailed,
	}

	for _, status := range statuses {
		if status == "" {
			t.Errorf("empty status found")
		}
	}
}
