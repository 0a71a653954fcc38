package manage

import (
	"fmt"

	"github.com/khoatrg/songboard/src/infra/picker"
	"github.com/khoatrg/songboard/src/music"
)

// SessionState is the lifecycle state of an edit session. Holding it as
// a single value keeps combinations like "saving while closed"
// unrepresentable.
type SessionState int

const (
	SessionClosed SessionState = iota
	SessionOpenClean
	SessionOpenDirty
	SessionSaving
)

func (s SessionState) String() string {
	switch s {
	case SessionClosed:
		return "closed"
	case SessionOpenClean:
		return "open/clean"
	case SessionOpenDirty:
		return "open/dirty"
	case SessionSaving:
		return "saving"
	}
	return "unknown"
}

// Draft holds the editable form fields of the record under edit.
type Draft struct {
	Title       string
	Artist      string
	Album       string
	Genre       string
	ReleaseYear string
}

func draftFromSong(s *music.Song) Draft {
	return Draft{
		Title:       s.Title,
		Artist:      s.Artist,
		Album:       s.Album,
		Genre:       s.Genre,
		ReleaseYear: s.ReleaseYear,
	}
}

// Session is the transient per-record edit state. It is discarded on
// cancel or successful save and kept open with the error on failure.
type Session struct {
	state        SessionState
	song         *music.Song
	draft        Draft
	pendingAudio *picker.File
	pendingImage *picker.File
	progress     int
	lastError    string
}

func newSession(song *music.Song) *Session {
	copied := *song
	return &Session{
		state: SessionOpenClean,
		song:  &copied,
		draft: draftFromSong(song),
	}
}

func (s *Session) State() SessionState { return s.state }
func (s *Session) Song() *music.Song   { return s.song }
func (s *Session) Draft() Draft        { return s.draft }
func (s *Session) Progress() int       { return s.progress }
func (s *Session) LastError() string   { return s.lastError }

// SetDraft replaces the draft fields, marking the session dirty when
// anything differs from the record under edit.
func (s *Session) SetDraft(d Draft) error {
	if s.state == SessionSaving {
		return fmt.Errorf("cannot edit fields while a save is in flight")
	}
	s.draft = d
	if s.state == SessionOpenClean && d != draftFromSong(s.song) {
		s.state = SessionOpenDirty
	}
	return nil
}

// AttachAudio stages a replacement audio file.
func (s *Session) AttachAudio(f *picker.File) error {
	if s.state == SessionSaving {
		return fmt.Errorf("cannot attach media while a save is in flight")
	}
	s.pendingAudio = f
	s.state = SessionOpenDirty
	return nil
}

// AttachImage stages a replacement cover image.
func (s *Session) AttachImage(f *picker.File) error {
	if s.state == SessionSaving {
		return fmt.Errorf("cannot attach media while a save is in flight")
	}
	s.pendingImage = f
	s.state = SessionOpenDirty
	return nil
}

// beginSave locks the session for the save pipeline. Only a dirty
// session has anything to save.
func (s *Session) beginSave() error {
	if s.state != SessionOpenDirty {
		return fmt.Errorf("nothing to save in state %s", s.state)
	}
	s.state = SessionSaving
	s.progress = 0
	s.lastError = ""
	return nil
}

// finishSave closes the session on success or reopens it dirty with
// the error so the user can retry without re-entering data.
func (s *Session) finishSave(err error, message string) {
	if err == nil {
		s.state = SessionClosed
		s.progress = 100
		return
	}
	s.state = SessionOpenDirty
	s.lastError = message
}

func (s *Session) setProgress(p int) {
	if p < 0 {
		p = 0
	}
	if p > 100 {
		p = 100
	}
	s.progress = p
}
