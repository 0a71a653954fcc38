package manage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/khoatrg/songboard/src/features/config"
	"github.com/khoatrg/songboard/src/features/metrics"
	"github.com/khoatrg/songboard/src/infra/mediahost"
	"github.com/khoatrg/songboard/src/infra/picker"
	"github.com/khoatrg/songboard/src/infra/tag"
	"github.com/khoatrg/songboard/src/music"
)

// Notifier receives admin notifications after successful operations.
type Notifier interface {
	SongSaved(song *music.Song)
	SongDeleted(title string)
}

// Service is the domain service for the manage feature. It owns the
// in-memory mirror of the catalog and the single edit session.
type Service struct {
	catalog       music.Catalog
	uploader      mediahost.Uploader
	intake        *picker.Intake
	tagReader     *tag.Reader
	tagWriter     *tag.Writer
	configManager *config.Manager
	recorder      *metrics.Recorder
	notifier      Notifier

	mu      sync.RWMutex
	mirror  []*music.Song
	sortKey music.SortKey
	session *Session
}

// NewService creates a new manage service.
func NewService(catalog music.Catalog, uploader mediahost.Uploader, intake *picker.Intake,
	tagReader *tag.Reader, tagWriter *tag.Writer,
	cfgManager *config.Manager, recorder *metrics.Recorder) *Service {
	return &Service{
		catalog:       catalog,
		uploader:      uploader,
		intake:        intake,
		tagReader:     tagReader,
		tagWriter:     tagWriter,
		configManager: cfgManager,
		recorder:      recorder,
		sortKey:       music.SortByName,
	}
}

// SetNotifier attaches an optional notifier.
func (s *Service) SetNotifier(n Notifier) {
	s.notifier = n
}

// Refresh fetches the full collection ordered by the current sort key
// and replaces the mirror wholesale. On failure the previous mirror is
// left untouched.
func (s *Service) Refresh(ctx context.Context) error {
	slog.Debug("Refresh service called", "sort", s.SortKey())
	songs, err := s.catalog.GetSongs(ctx, s.SortKey())
	if s.recorder != nil {
		s.recorder.Fetch(err)
	}
	if err != nil {
		slog.Error("Refresh failed, keeping previous mirror", "error", err)
		return err
	}

	s.mu.Lock()
	s.mirror = songs
	s.mu.Unlock()
	slog.Debug("Refresh completed", "count", len(songs))
	return nil
}

// SetSortKey changes the server-side ordering and re-fetches.
func (s *Service) SetSortKey(ctx context.Context, key music.SortKey) error {
	s.mu.Lock()
	s.sortKey = key
	s.mu.Unlock()
	return s.Refresh(ctx)
}

// SortKey returns the current sort key.
func (s *Service) SortKey() music.SortKey {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortKey
}

// Songs returns the mirror filtered by the query: case-insensitive
// substring match on title, artist or album. An empty query returns
// the mirror unchanged in order.
func (s *Service) Songs(query string) []*music.Song {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query = strings.ToLower(strings.TrimSpace(query))
	result := make([]*music.Song, 0, len(s.mirror))
	for _, song := range s.mirror {
		if query == "" || matchesQuery(song, query) {
			result = append(result, song)
		}
	}
	return result
}

func matchesQuery(song *music.Song, query string) bool {
	return strings.Contains(strings.ToLower(song.Title), query) ||
		strings.Contains(strings.ToLower(song.Artist), query) ||
		strings.Contains(strings.ToLower(song.Album), query)
}

// Count returns the size of the unfiltered mirror.
func (s *Service) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.mirror)
}

// AddSong creates a new record and refreshes the mirror.
func (s *Service) AddSong(ctx context.Context, song *music.Song) error {
	slog.Debug("AddSong service called", "title", song.Title)
	if err := s.catalog.AddSong(ctx, song); err != nil {
		slog.Error("AddSong failed", "title", song.Title, "error", err)
		return err
	}
	return s.Refresh(ctx)
}

// SessionView is a read-only snapshot of the edit session for handlers.
type SessionView struct {
	State     SessionState
	SongID    string
	SongTitle string
	Draft     Draft
	HasAudio  bool
	HasImage  bool
	Progress  int
	LastError string
}

// SessionView snapshots the current edit session.
func (s *Service) SessionView() SessionView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil {
		return SessionView{State: SessionClosed}
	}
	return SessionView{
		State:     s.session.State(),
		SongID:    s.session.Song().ID,
		SongTitle: s.session.Song().Title,
		Draft:     s.session.Draft(),
		HasAudio:  s.session.pendingAudio != nil,
		HasImage:  s.session.pendingImage != nil,
		Progress:  s.session.Progress(),
		LastError: s.session.LastError(),
	}
}

// OpenEdit starts an edit session for the given record, pre-populated
// from the mirror. Only one session exists at a time.
func (s *Service) OpenEdit(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session != nil && s.session.State() == SessionSaving {
		return fmt.Errorf("a save is already in flight")
	}

	var target *music.Song
	for _, song := range s.mirror {
		if song.ID == id {
			target = song
			break
		}
	}
	if target == nil {
		song, err := s.catalog.GetSong(ctx, id)
		if err != nil {
			slog.Error("OpenEdit failed", "id", id, "error", err)
			return err
		}
		target = song
	}

	s.session = newSession(target)
	slog.Debug("OpenEdit completed", "id", id, "title", target.Title)
	return nil
}

// UpdateDraft replaces the session's draft fields.
func (s *Service) UpdateDraft(d Draft) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil || s.session.State() == SessionClosed {
		return fmt.Errorf("no open edit session")
	}
	return s.session.SetDraft(d)
}

// AttachAudio validates a picked audio file and stages it for upload.
// When the file carries readable tags, empty draft fields are
// prefilled from them.
func (s *Service) AttachAudio(f *picker.File) error {
	if err := s.intake.CheckAudio(f); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil || s.session.State() == SessionClosed {
		return fmt.Errorf("no open edit session")
	}
	if err := s.session.AttachAudio(f); err != nil {
		return err
	}

	if s.tagReader != nil {
		if tags, err := s.tagReader.ReadTags(f.Data); err == nil {
			draft := s.session.Draft()
			if draft.Artist == "" {
				draft.Artist = tags.Artist
			}
			if draft.Album == "" {
				draft.Album = tags.Album
			}
			if draft.Genre == "" {
				draft.Genre = tags.Genre
			}
			if draft.ReleaseYear == "" {
				draft.ReleaseYear = tags.Year
			}
			s.session.SetDraft(draft)
		} else {
			slog.Debug("No readable tags in picked audio", "name", f.Name, "error", err)
		}
	}
	return nil
}

// AttachImage validates a picked cover image, squares it and stages it
// for upload.
func (s *Service) AttachImage(f *picker.File) error {
	if err := s.intake.CheckImage(f); err != nil {
		return err
	}
	if err := s.intake.SquareCover(f); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil || s.session.State() == SessionClosed {
		return fmt.Errorf("no open edit session")
	}
	return s.session.AttachImage(f)
}

// CancelEdit discards the session.
func (s *Service) CancelEdit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil
	}
	if s.session.State() == SessionSaving {
		return fmt.Errorf("cannot cancel while a save is in flight")
	}
	s.session = nil
	return nil
}

// Save runs the ordered save pipeline: validate, upload replaced
// media, build the merge payload, persist it and reconcile the mirror.
// Any upload failure aborts before the store is touched.
func (s *Service) Save(ctx context.Context) error {
	s.mu.Lock()
	session := s.session
	if session == nil {
		s.mu.Unlock()
		return fmt.Errorf("no open edit session")
	}
	if err := session.beginSave(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	err := s.runSavePipeline(ctx, session)

	s.mu.Lock()
	session.finishSave(err, errorMessage(err))
	if err == nil {
		s.session = nil
	}
	s.mu.Unlock()

	if s.recorder != nil {
		s.recorder.Save(err)
	}
	if err != nil {
		slog.Error("Save failed", "id", session.Song().ID, "error", err)
		return err
	}
	slog.Info("Save completed", "id", session.Song().ID, "title", session.Draft().Title)
	return nil
}

func (s *Service) runSavePipeline(ctx context.Context, session *Session) error {
	orig := session.Song()
	draft := session.Draft()
	pendingAudio := session.pendingAudio
	pendingImage := session.pendingImage

	var audioURL, imageURL string
	var patch music.Patch

	stages := []stage{{
		name: stageValidate,
		run: func(ctx context.Context, _ func(float64)) error {
			if strings.TrimSpace(draft.Title) == "" {
				return fmt.Errorf("song title cannot be empty")
			}
			return nil
		},
	}}

	if pendingAudio != nil {
		stages = append(stages, stage{
			name:   stageUploadAudio,
			weight: 50,
			run: func(ctx context.Context, report func(float64)) error {
				data := s.prepareAudio(pendingAudio, draft, pendingImage)
				start := time.Now()
				url, err := s.uploader.Upload(ctx, mediahost.KindAudio, mediahost.PublicID(draft.Title), data, func(f float64) { report(f) })
				if s.recorder != nil {
					s.recorder.Upload(string(mediahost.KindAudio), time.Since(start), err)
				}
				if err != nil {
					return err
				}
				audioURL = url
				return nil
			},
		})
	}

	if pendingImage != nil {
		stages = append(stages, stage{
			name:   stageUploadImage,
			weight: 50,
			run: func(ctx context.Context, report func(float64)) error {
				start := time.Now()
				url, err := s.uploader.Upload(ctx, mediahost.KindImage, mediahost.PublicID(draft.Title), pendingImage.Data, func(f float64) { report(f) })
				if s.recorder != nil {
					s.recorder.Upload(string(mediahost.KindImage), time.Since(start), err)
				}
				if err != nil {
					return err
				}
				imageURL = url
				return nil
			},
		})
	}

	stages = append(stages,
		stage{
			name: stageMerge,
			run: func(ctx context.Context, _ func(float64)) error {
				patch = buildPatch(orig, draft, audioURL, imageURL, time.Now())
				return nil
			},
		},
		stage{
			name: stagePersist,
			run: func(ctx context.Context, _ func(float64)) error {
				return s.catalog.UpdateSong(ctx, orig.ID, patch)
			},
		},
		stage{
			name: stageReconcile,
			run: func(ctx context.Context, _ func(float64)) error {
				s.patchMirror(orig.ID, patch)
				return nil
			},
		},
	)

	p := &pipeline{
		stages: stages,
		onUpdate: func(percent int, stageName string) {
			s.mu.Lock()
			session.setProgress(percent)
			s.mu.Unlock()
			slog.Debug("Save progress", "stage", stageName, "percent", percent)
		},
	}
	if err := p.run(ctx); err != nil {
		return err
	}

	if s.notifier != nil {
		if saved, lookupErr := s.catalog.GetSong(ctx, orig.ID); lookupErr == nil {
			s.notifier.SongSaved(saved)
		}
	}
	return nil
}

// prepareAudio retags the picked audio with the draft fields so the
// hosted file carries the corrected metadata. Tagging failures fall
// back to the original bytes.
func (s *Service) prepareAudio(f *picker.File, draft Draft, cover *picker.File) []byte {
	if s.tagWriter == nil || s.configManager == nil || !s.configManager.Get().Uploads.RetagBeforeUpload {
		return f.Data
	}
	tags := &tag.Tags{
		Title:  strings.TrimSpace(draft.Title),
		Artist: strings.TrimSpace(draft.Artist),
		Album:  strings.TrimSpace(draft.Album),
		Genre:  strings.TrimSpace(draft.Genre),
		Year:   strings.TrimSpace(draft.ReleaseYear),
	}
	if cover != nil {
		tags.Cover = cover.Data
	}
	tagged, err := s.tagWriter.WriteTags(f.Data, tags)
	if err != nil {
		slog.Warn("Failed to retag audio before upload, uploading as picked", "name", f.Name, "error", err)
		return f.Data
	}
	return tagged
}

// patchMirror applies the persisted payload to the matching mirror
// entry, avoiding a re-fetch.
func (s *Service) patchMirror(id string, patch music.Patch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, song := range s.mirror {
		if song.ID == id {
			patch.Apply(song)
			return
		}
	}
}

// Delete removes a record from the store, then from the mirror. The
// remaining mirror order is unchanged.
func (s *Service) Delete(ctx context.Context, id string) error {
	slog.Debug("Delete service called", "id", id)

	s.mu.RLock()
	title := id
	for _, song := range s.mirror {
		if song.ID == id {
			title = song.Title
			break
		}
	}
	s.mu.RUnlock()

	err := s.catalog.DeleteSong(ctx, id)
	if s.recorder != nil {
		s.recorder.Delete(err)
	}
	if err != nil {
		slog.Error("Delete failed", "id", id, "error", err)
		return err
	}

	s.mu.Lock()
	for i, song := range s.mirror {
		if song.ID == id {
			s.mirror = append(s.mirror[:i], s.mirror[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	if s.notifier != nil {
		s.notifier.SongDeleted(title)
	}
	slog.Debug("Delete completed", "id", id)
	return nil
}

// errorMessage maps a save failure to the message shown to the admin.
func errorMessage(err error) string {
	if err == nil {
		return ""
	}
	var uploadErr *mediahost.Error
	switch {
	case errors.As(err, &uploadErr):
		switch uploadErr.Reason {
		case mediahost.ErrTooLarge:
			return "The file is too large for the upload service."
		case mediahost.ErrUnauthorized:
			return "Upload authentication failed. Check the upload preset."
		case mediahost.ErrMalformed:
			return "The upload was rejected. The file or preset was not accepted."
		case mediahost.ErrTimeout:
			return "The upload timed out. Try again on a better connection."
		}
		return "The upload failed. Please try again."
	case strings.Contains(err.Error(), "title cannot be empty"):
		return "A song needs a title before it can be saved."
	}
	return "Failed to save the song. Please try again."
}
