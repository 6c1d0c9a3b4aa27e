package timeline

import "log"

// MinGapMs is the minimum silence between two consecutive clips. Even when a
// clip's planned start has already passed, the next clip never begins sooner
// than this after the previous one ends.
const MinGapMs = 500

// Clip is one synthesized speech segment ready for placement.
type Clip struct {
	AudioPath      string // Local path to the clip's audio file
	DurationMs     int
	PlannedStartMs int
}

// Placement records where a clip actually landed on the timeline.
type Placement struct {
	Clip          Clip
	ActualStartMs int
}

// Compositor places clips onto a shared timeline in call order, guaranteeing
// that no two clips overlap. Rather than pre-allocating a fixed silent
// canvas, it keeps the list of (clip, offset) placements; the mixer resolves
// them into a single buffer at export time, so episode length is unbounded.
//
// Placement is inherently sequential: each offset depends on where the
// previous clip ended. A caller synthesizing clips concurrently must still
// call Place in segment order.
type Compositor struct {
	gapMs             int
	previousClipEndMs int
	placements        []Placement
}

func NewCompositor() *Compositor {
	return &Compositor{gapMs: MinGapMs}
}

// Place computes the clip's actual start, records the placement, and returns
// the start in milliseconds. The actual start is the planned start pushed
// forward as needed so the clip begins at least gapMs after the previous clip
// ended:
//
//	actual = max(planned, previousClipEnd + gap)
func (c *Compositor) Place(clip Clip) int {
	actual := clip.PlannedStartMs
	if floor := c.previousClipEndMs + c.gapMs; actual < floor {
		actual = floor
	}

	c.placements = append(c.placements, Placement{Clip: clip, ActualStartMs: actual})
	c.previousClipEndMs = actual + clip.DurationMs

	if actual != clip.PlannedStartMs {
		log.Printf("[Timeline] Clip pushed from %dms to %dms to avoid overlap", clip.PlannedStartMs, actual)
	}
	return actual
}

// Placements returns the recorded placements in placement order. The slice is
// shared; callers must not modify it.
func (c *Compositor) Placements() []Placement {
	return c.placements
}

// Len returns the number of placed clips.
func (c *Compositor) Len() int {
	return len(c.placements)
}

// TotalDurationMs returns the timeline length: the end of the last clip.
// Zero when nothing has been placed.
func (c *Compositor) TotalDurationMs() int {
	return c.previousClipEndMs
}
