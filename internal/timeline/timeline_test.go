package timeline

import "testing"

func TestPlaceHonorsPlannedStart(t *testing.T) {
	c := NewCompositor()

	// First clip with a comfortable planned start lands exactly there.
	got := c.Place(Clip{DurationMs: 3000, PlannedStartMs: 2000})
	if got != 2000 {
		t.Errorf("expected placement at 2000, got %d", got)
	}

	// Next clip planned well past the previous end also lands as planned.
	got = c.Place(Clip{DurationMs: 2000, PlannedStartMs: 10000})
	if got != 10000 {
		t.Errorf("expected placement at 10000, got %d", got)
	}

	if c.TotalDurationMs() != 12000 {
		t.Errorf("expected total duration 12000, got %d", c.TotalDurationMs())
	}
}

func TestPlacePushesLateClips(t *testing.T) {
	c := NewCompositor()

	c.Place(Clip{DurationMs: 8000, PlannedStartMs: 2000}) // ends at 10000

	// Planned at 5000, but the previous clip runs until 10000 — the clip
	// must be pushed to 10500 (previous end + minimum gap).
	got := c.Place(Clip{DurationMs: 1000, PlannedStartMs: 5000})
	if got != 10500 {
		t.Errorf("expected placement at 10500, got %d", got)
	}
}

func TestNoOverlapInvariant(t *testing.T) {
	c := NewCompositor()

	// Adversarial sequence: long clips with planned starts that all collide.
	clips := []Clip{
		{DurationMs: 5000, PlannedStartMs: 0},
		{DurationMs: 4000, PlannedStartMs: 1000},
		{DurationMs: 100, PlannedStartMs: 2000},
		{DurationMs: 9000, PlannedStartMs: 2000},
		{DurationMs: 250, PlannedStartMs: 30000},
		{DurationMs: 3000, PlannedStartMs: 0},
	}
	for _, clip := range clips {
		c.Place(clip)
	}

	placements := c.Placements()
	if len(placements) != len(clips) {
		t.Fatalf("expected %d placements, got %d", len(clips), len(placements))
	}

	for n := 1; n < len(placements); n++ {
		prev := placements[n-1]
		cur := placements[n]
		floor := prev.ActualStartMs + prev.Clip.DurationMs + MinGapMs
		if cur.ActualStartMs < floor {
			t.Errorf("placement %d at %dms violates no-overlap floor %dms", n, cur.ActualStartMs, floor)
		}
		if cur.ActualStartMs < prev.ActualStartMs {
			t.Errorf("placement %d reordered before placement %d", n, n-1)
		}
	}
}

func TestFirstClipAtZero(t *testing.T) {
	c := NewCompositor()

	// previousClipEnd starts at 0, so the earliest first placement is the gap.
	got := c.Place(Clip{DurationMs: 1000, PlannedStartMs: 0})
	if got != MinGapMs {
		t.Errorf("expected first clip pushed to %d, got %d", MinGapMs, got)
	}
}

func TestEmptyTimeline(t *testing.T) {
	c := NewCompositor()

	if c.Len() != 0 {
		t.Errorf("expected empty compositor, got %d placements", c.Len())
	}
	if c.TotalDurationMs() != 0 {
		t.Errorf("expected zero duration, got %d", c.TotalDurationMs())
	}
}
