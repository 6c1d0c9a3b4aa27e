package services

import (
	"reflect"
	"testing"
)

func TestParseEmotionsExtractsMarkersInOrder(t *testing.T) {
	markers, clean := ParseEmotions("[excited] hi [whispers] there")

	if want := []string{"excited", "whispers"}; !reflect.DeepEqual(markers, want) {
		t.Errorf("expected markers %v, got %v", want, markers)
	}
	if clean != "hi there" {
		t.Errorf("expected clean text %q, got %q", "hi there", clean)
	}
}

func TestParseEmotionsNoMarkers(t *testing.T) {
	markers, clean := ParseEmotions("no markers here")

	if len(markers) != 0 {
		t.Errorf("expected no markers, got %v", markers)
	}
	if clean != "no markers here" {
		t.Errorf("unexpected clean text %q", clean)
	}
}

func TestParseEmotionsCollapsesWhitespace(t *testing.T) {
	markers, clean := ParseEmotions("  [serious]   Welcome back   to the show.  ")

	if len(markers) != 1 || markers[0] != "serious" {
		t.Errorf("expected [serious], got %v", markers)
	}
	if clean != "Welcome back to the show." {
		t.Errorf("unexpected clean text %q", clean)
	}
}

func TestParseEmotionsMarkerOnly(t *testing.T) {
	markers, clean := ParseEmotions("[laughs]")

	if len(markers) != 1 || markers[0] != "laughs" {
		t.Errorf("expected [laughs], got %v", markers)
	}
	if clean != "" {
		t.Errorf("expected empty clean text, got %q", clean)
	}
}

func TestParseEmotionsAdjacentMarkers(t *testing.T) {
	markers, clean := ParseEmotions("[excited][dramatic] Big news today!")

	if want := []string{"excited", "dramatic"}; !reflect.DeepEqual(markers, want) {
		t.Errorf("expected markers %v, got %v", want, markers)
	}
	if clean != "Big news today!" {
		t.Errorf("unexpected clean text %q", clean)
	}
}

func TestParseEmotionsKeepsDuplicates(t *testing.T) {
	markers, _ := ParseEmotions("[excited] one [excited] two")

	if want := []string{"excited", "excited"}; !reflect.DeepEqual(markers, want) {
		t.Errorf("expected duplicate markers preserved, got %v", markers)
	}
}

func TestStabilityForMarkers(t *testing.T) {
	tests := []struct {
		name    string
		markers []string
		want    float64
	}{
		{"no markers", nil, StabilityNatural},
		{"unknown marker", []string{"laughs"}, StabilityNatural},
		{"high energy", []string{"excited"}, StabilityDynamic},
		{"composed", []string{"whispers"}, StabilityRobust},
		{"high energy beats composed", []string{"whispers", "excited"}, StabilityDynamic},
		{"composed beats unknown", []string{"laughs", "thoughtful"}, StabilityRobust},
		{"dramatic", []string{"dramatic"}, StabilityDynamic},
		{"nervous", []string{"nervous"}, StabilityDynamic},
		{"serious", []string{"serious"}, StabilityRobust},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StabilityForMarkers(tt.markers); got != tt.want {
				t.Errorf("StabilityForMarkers(%v) = %v, want %v", tt.markers, got, tt.want)
			}
		})
	}
}
