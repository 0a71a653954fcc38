package manage

import (
	"fmt"
	"testing"

	"github.com/khoatrg/songboard/src/infra/picker"
	"github.com/khoatrg/songboard/src/music"
)

func TestSessionStartsClean(t *testing.T) {
	song := &music.Song{ID: "1", Title: "My Way", Artist: "Frank Sinatra"}
	session := newSession(song)

	if session.State() != SessionOpenClean {
		t.Errorf("expected open/clean, got %s", session.State())
	}
	if session.Draft().Title != "My Way" || session.Draft().Artist != "Frank Sinatra" {
		t.Errorf("expected draft prefilled from the record, got %+v", session.Draft())
	}

	// The session edits a copy, not the live record.
	draft := session.Draft()
	draft.Title = "Changed"
	session.SetDraft(draft)
	if song.Title != "My Way" {
		t.Error("expected the original record untouched while editing")
	}
}

func TestSessionDirtyTransitions(t *testing.T) {
	session := newSession(&music.Song{ID: "1", Title: "My Way"})

	// Setting an identical draft keeps the session clean.
	session.SetDraft(session.Draft())
	if session.State() != SessionOpenClean {
		t.Errorf("expected still clean after a no-op edit, got %s", session.State())
	}

	draft := session.Draft()
	draft.Genre = "Ballad"
	session.SetDraft(draft)
	if session.State() != SessionOpenDirty {
		t.Errorf("expected dirty after a field change, got %s", session.State())
	}
}

func TestSessionAttachMarksDirty(t *testing.T) {
	session := newSession(&music.Song{ID: "1", Title: "My Way"})
	session.AttachAudio(&picker.File{Name: "a.mp3"})
	if session.State() != SessionOpenDirty {
		t.Errorf("expected dirty after attaching audio, got %s", session.State())
	}

	session = newSession(&music.Song{ID: "1", Title: "My Way"})
	session.AttachImage(&picker.File{Name: "c.jpg"})
	if session.State() != SessionOpenDirty {
		t.Errorf("expected dirty after attaching an image, got %s", session.State())
	}
}

func TestSessionSaveLifecycle(t *testing.T) {
	session := newSession(&music.Song{ID: "1", Title: "My Way"})

	if err := session.beginSave(); err == nil {
		t.Error("expected beginSave to fail on a clean session")
	}

	draft := session.Draft()
	draft.Title = "My Way (Live)"
	session.SetDraft(draft)
	if err := session.beginSave(); err != nil {
		t.Fatalf("beginSave failed: %v", err)
	}
	if session.State() != SessionSaving {
		t.Errorf("expected saving, got %s", session.State())
	}

	// No edits or attachments land while a save is in flight.
	if err := session.SetDraft(Draft{Title: "x"}); err == nil {
		t.Error("expected SetDraft to fail while saving")
	}
	if err := session.AttachAudio(&picker.File{}); err == nil {
		t.Error("expected AttachAudio to fail while saving")
	}

	session.finishSave(nil, "")
	if session.State() != SessionClosed {
		t.Errorf("expected closed after a successful save, got %s", session.State())
	}
	if session.Progress() != 100 {
		t.Errorf("expected progress 100 after success, got %d", session.Progress())
	}
}

func TestSessionFailedSaveReopensDirty(t *testing.T) {
	session := newSession(&music.Song{ID: "1", Title: "My Way"})
	draft := session.Draft()
	draft.Title = "My Way (Live)"
	session.SetDraft(draft)
	session.beginSave()

	session.finishSave(fmt.Errorf("upload failed"), "The upload failed. Please try again.")
	if session.State() != SessionOpenDirty {
		t.Errorf("expected dirty after a failed save, got %s", session.State())
	}
	if session.LastError() != "The upload failed. Please try again." {
		t.Errorf("expected the failure message retained, got %q", session.LastError())
	}
	if session.Draft().Title != "My Way (Live)" {
		t.Error("expected the draft retained for a retry")
	}

	// A retry is possible straight away.
	if err := session.beginSave(); err != nil {
		t.Errorf("expected a retry to be possible, got %v", err)
	}
	if session.LastError() != "" {
		t.Error("expected the previous error cleared on retry")
	}
}

func TestSessionProgressClamped(t *testing.T) {
	session := newSession(&music.Song{ID: "1"})
	session.setProgress(-10)
	if session.Progress() != 0 {
		t.Errorf("expected progress clamped to 0, got %d", session.Progress())
	}
	session.setProgress(250)
	if session.Progress() != 100 {
		t.Errorf("expected progress clamped to 100, got %d", session.Progress())
	}
}
