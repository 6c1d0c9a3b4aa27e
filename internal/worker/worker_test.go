package worker

import (
	"testing"

	"github.com/google/uuid"

	"github.com/bobarin/podforge/internal/models"
)

func TestEpisodeFilename(t *testing.T) {
	title := "The Future of Space Travel"
	ep := &models.Episode{ID: uuid.New(), Title: &title}

	if got := episodeFilename(ep); got != "The_Future_of_Space_Travel.mp3" {
		t.Errorf("episodeFilename() = %q", got)
	}
}

func TestEpisodeFilenameNoTitle(t *testing.T) {
	ep := &models.Episode{ID: uuid.New()}

	want := ep.ID.String() + ".mp3"
	if got := episodeFilename(ep); got != want {
		t.Errorf("episodeFilename() = %q, want %q", got, want)
	}

	empty := ""
	ep.Title = &empty
	if got := episodeFilename(ep); got != want {
		t.Errorf("episodeFilename() with empty title = %q, want %q", got, want)
	}
}
