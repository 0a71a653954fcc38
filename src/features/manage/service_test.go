package manage

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"strings"
	"testing"

	"github.com/khoatrg/songboard/src/features/config"
	"github.com/khoatrg/songboard/src/infra/mediahost"
	"github.com/khoatrg/songboard/src/infra/picker"
	"github.com/khoatrg/songboard/src/music"
)

// MockCatalog is a mock implementation of the music.Catalog interface.
type MockCatalog struct {
	songs       []*music.Song
	getErr      error
	updateCalls int
	deleteCalls int
	lastPatch   music.Patch
	lastPatchID string
}

func (m *MockCatalog) AddSong(ctx context.Context, song *music.Song) error {
	m.songs = append(m.songs, song)
	return nil
}

func (m *MockCatalog) GetSong(ctx context.Context, id string) (*music.Song, error) {
	for _, s := range m.songs {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, fmt.Errorf("song %s not found", id)
}

func (m *MockCatalog) GetSongs(ctx context.Context, sort music.SortKey) ([]*music.Song, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.songs, nil
}

func (m *MockCatalog) UpdateSong(ctx context.Context, id string, patch music.Patch) error {
	m.updateCalls++
	m.lastPatch = patch
	m.lastPatchID = id
	for _, s := range m.songs {
		if s.ID == id {
			patch.Apply(s)
			return nil
		}
	}
	return fmt.Errorf("song %s not found", id)
}

func (m *MockCatalog) DeleteSong(ctx context.Context, id string) error {
	m.deleteCalls++
	for i, s := range m.songs {
		if s.ID == id {
			m.songs = append(m.songs[:i], m.songs[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("song %s not found", id)
}

func (m *MockCatalog) GetSongsCount(ctx context.Context) (int, error) {
	return len(m.songs), nil
}

// MockUploader is a mock implementation of the mediahost.Uploader interface.
type MockUploader struct {
	calls   []mediahost.Kind
	failOn  mediahost.Kind
	failErr error
}

func (m *MockUploader) Upload(ctx context.Context, kind mediahost.Kind, name string, data []byte, progress mediahost.Progress) (string, error) {
	m.calls = append(m.calls, kind)
	if m.failOn == kind && m.failErr != nil {
		return "", m.failErr
	}
	if progress != nil {
		progress(1)
	}
	return fmt.Sprintf("https://cdn.example.com/%s/%s", kind, name), nil
}

func testSongs() []*music.Song {
	return []*music.Song{
		{ID: "1", Title: "Bohemian Rhapsody", Artist: "Queen", Album: "A Night at the Opera", Genre: "Rock", Views: 900},
		{ID: "2", Title: "Lose Yourself", Artist: "Eminem", Album: "8 Mile", Genre: "Rap", Views: 500},
		{ID: "3", Title: "My Way", Artist: "Frank Sinatra", Album: "My Way", Genre: "Ballad", Views: 700},
	}
}

func newTestService(catalog *MockCatalog, uploader *MockUploader) *Service {
	cfg := config.NewManager(&config.Config{
		Uploads: config.Uploads{MaxAudioMB: 50, MaxImageMB: 10, CoverSize: 100},
	})
	return NewService(catalog, uploader, picker.NewIntake(cfg), nil, nil, cfg, nil)
}

func jpegBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h)), nil); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

func TestSongsFilter(t *testing.T) {
	service := newTestService(&MockCatalog{songs: testSongs()}, &MockUploader{})
	if err := service.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	all := service.Songs("")
	if len(all) != 3 {
		t.Fatalf("expected 3 songs for empty query, got %d", len(all))
	}
	if all[0].ID != "1" || all[1].ID != "2" || all[2].ID != "3" {
		t.Error("empty query changed the mirror order")
	}

	byTitle := service.Songs("RHAPSODY")
	if len(byTitle) != 1 || byTitle[0].ID != "1" {
		t.Errorf("expected case-insensitive title match, got %v", byTitle)
	}

	byArtist := service.Songs("eminem")
	if len(byArtist) != 1 || byArtist[0].ID != "2" {
		t.Errorf("expected artist match, got %v", byArtist)
	}

	byAlbum := service.Songs("my way")
	if len(byAlbum) != 1 || byAlbum[0].ID != "3" {
		t.Errorf("expected album match, got %v", byAlbum)
	}

	if got := service.Songs("no such song"); len(got) != 0 {
		t.Errorf("expected no matches, got %d", len(got))
	}
}

func TestRefreshFailureKeepsMirror(t *testing.T) {
	catalog := &MockCatalog{songs: testSongs()}
	service := newTestService(catalog, &MockUploader{})
	if err := service.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	catalog.getErr = fmt.Errorf("store unavailable")
	if err := service.Refresh(context.Background()); err == nil {
		t.Fatal("expected Refresh to fail")
	}
	if service.Count() != 3 {
		t.Errorf("expected mirror to survive a failed refresh, got %d songs", service.Count())
	}
}

func TestSaveEmptyTitleMakesNoCalls(t *testing.T) {
	catalog := &MockCatalog{songs: testSongs()}
	uploader := &MockUploader{}
	service := newTestService(catalog, uploader)
	service.Refresh(context.Background())

	if err := service.OpenEdit(context.Background(), "1"); err != nil {
		t.Fatalf("OpenEdit failed: %v", err)
	}
	draft := service.SessionView().Draft
	draft.Title = "   "
	if err := service.UpdateDraft(draft); err != nil {
		t.Fatalf("UpdateDraft failed: %v", err)
	}

	err := service.Save(context.Background())
	if err == nil {
		t.Fatal("expected Save to reject an empty title")
	}
	if len(uploader.calls) != 0 {
		t.Errorf("expected no uploads for an invalid draft, got %d", len(uploader.calls))
	}
	if catalog.updateCalls != 0 {
		t.Errorf("expected no store writes for an invalid draft, got %d", catalog.updateCalls)
	}

	view := service.SessionView()
	if view.State != SessionOpenDirty {
		t.Errorf("expected session to reopen dirty, got %s", view.State)
	}
	if view.LastError == "" {
		t.Error("expected a user-facing error message on the session")
	}
}

func TestSaveTitleOnlyPatch(t *testing.T) {
	catalog := &MockCatalog{songs: testSongs()}
	service := newTestService(catalog, &MockUploader{})
	service.Refresh(context.Background())

	service.OpenEdit(context.Background(), "2")
	draft := service.SessionView().Draft
	draft.Title = "Lose Yourself (Remastered)"
	service.UpdateDraft(draft)

	if err := service.Save(context.Background()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if catalog.updateCalls != 1 {
		t.Fatalf("expected exactly one store write, got %d", catalog.updateCalls)
	}
	patch := catalog.lastPatch
	if patch.Title == nil || *patch.Title != "Lose Yourself (Remastered)" {
		t.Errorf("expected title in patch, got %v", patch.Title)
	}
	if patch.Artist != nil || patch.Album != nil || patch.Genre != nil ||
		patch.ReleaseYear != nil || patch.AudioURL != nil || patch.ImageURL != nil {
		t.Error("expected only the title and timestamp in the patch")
	}
	if patch.UpdatedAt.IsZero() {
		t.Error("expected the patch timestamp to be set")
	}

	for _, s := range service.Songs("") {
		if s.ID == "2" && s.Title != "Lose Yourself (Remastered)" {
			t.Errorf("expected mirror to reflect the save, got %q", s.Title)
		}
	}
	if service.SessionView().State != SessionClosed {
		t.Errorf("expected session closed after save, got %s", service.SessionView().State)
	}
}

func TestSaveUploadFailureAbortsPersist(t *testing.T) {
	catalog := &MockCatalog{songs: testSongs()}
	uploader := &MockUploader{
		failOn: mediahost.KindImage,
		failErr: &mediahost.Error{
			Kind:   mediahost.KindImage,
			Status: 413,
			Reason: mediahost.ErrTooLarge,
		},
	}
	service := newTestService(catalog, uploader)
	service.Refresh(context.Background())

	service.OpenEdit(context.Background(), "1")
	if err := service.AttachAudio(&picker.File{Name: "song.mp3", MIME: "audio/mpeg", Data: []byte("not really audio")}); err != nil {
		t.Fatalf("AttachAudio failed: %v", err)
	}
	if err := service.AttachImage(&picker.File{Name: "cover.jpg", MIME: "image/jpeg", Data: jpegBytes(t, 200, 200)}); err != nil {
		t.Fatalf("AttachImage failed: %v", err)
	}

	err := service.Save(context.Background())
	if err == nil {
		t.Fatal("expected Save to fail on the image upload")
	}
	if len(uploader.calls) != 2 {
		t.Fatalf("expected audio then image upload attempts, got %v", uploader.calls)
	}
	if catalog.updateCalls != 0 {
		t.Errorf("expected no store write after a failed upload, got %d", catalog.updateCalls)
	}
	for _, s := range service.Songs("") {
		if s.ID == "1" && s.AudioURL != "" {
			t.Error("expected mirror unchanged after a failed save")
		}
	}

	view := service.SessionView()
	if view.State != SessionOpenDirty {
		t.Errorf("expected session to reopen dirty, got %s", view.State)
	}
	if !strings.Contains(view.LastError, "too large") {
		t.Errorf("expected a size-specific message, got %q", view.LastError)
	}
}

func TestSaveWithMediaSetsURLs(t *testing.T) {
	catalog := &MockCatalog{songs: testSongs()}
	uploader := &MockUploader{}
	service := newTestService(catalog, uploader)
	service.Refresh(context.Background())

	service.OpenEdit(context.Background(), "3")
	if err := service.AttachAudio(&picker.File{Name: "song.mp3", MIME: "audio/mpeg", Data: []byte("bytes")}); err != nil {
		t.Fatalf("AttachAudio failed: %v", err)
	}

	if err := service.Save(context.Background()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if len(uploader.calls) != 1 || uploader.calls[0] != mediahost.KindAudio {
		t.Fatalf("expected a single audio upload, got %v", uploader.calls)
	}
	patch := catalog.lastPatch
	if patch.AudioURL == nil || !strings.HasPrefix(*patch.AudioURL, "https://cdn.example.com/audio/") {
		t.Errorf("expected the uploaded audio URL in the patch, got %v", patch.AudioURL)
	}
	if patch.ImageURL != nil {
		t.Error("expected no image URL when no image was picked")
	}
}

func TestDeleteRemovesExactlyOne(t *testing.T) {
	catalog := &MockCatalog{songs: testSongs()}
	service := newTestService(catalog, &MockUploader{})
	service.Refresh(context.Background())

	if err := service.Delete(context.Background(), "2"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if catalog.deleteCalls != 1 {
		t.Errorf("expected exactly one store delete, got %d", catalog.deleteCalls)
	}

	remaining := service.Songs("")
	if len(remaining) != 2 {
		t.Fatalf("expected 2 songs after delete, got %d", len(remaining))
	}
	if remaining[0].ID != "1" || remaining[1].ID != "3" {
		t.Error("expected delete to preserve the order of the remaining songs")
	}

	if err := service.Delete(context.Background(), "2"); err == nil {
		t.Error("expected deleting a missing song to fail")
	}
	if service.Count() != 2 {
		t.Errorf("expected mirror unchanged after a failed delete, got %d", service.Count())
	}
}

func TestOpenEditFallsBackToStore(t *testing.T) {
	catalog := &MockCatalog{songs: testSongs()}
	service := newTestService(catalog, &MockUploader{})

	// Mirror is empty: the lookup must go to the store.
	if err := service.OpenEdit(context.Background(), "3"); err != nil {
		t.Fatalf("OpenEdit failed: %v", err)
	}
	view := service.SessionView()
	if view.SongID != "3" || view.Draft.Title != "My Way" {
		t.Errorf("expected the draft prefilled from the store, got %+v", view.Draft)
	}

	if err := service.OpenEdit(context.Background(), "missing"); err == nil {
		t.Error("expected OpenEdit on an unknown id to fail")
	}
}

func TestCancelEditDiscardsSession(t *testing.T) {
	service := newTestService(&MockCatalog{songs: testSongs()}, &MockUploader{})
	service.Refresh(context.Background())

	service.OpenEdit(context.Background(), "1")
	draft := service.SessionView().Draft
	draft.Artist = "Someone Else"
	service.UpdateDraft(draft)

	if err := service.CancelEdit(); err != nil {
		t.Fatalf("CancelEdit failed: %v", err)
	}
	if service.SessionView().State != SessionClosed {
		t.Error("expected no session after cancel")
	}

	if s, _ := service.catalog.GetSong(context.Background(), "1"); s.Artist != "Queen" {
		t.Errorf("expected the record untouched after cancel, got %q", s.Artist)
	}
}

func TestSaveProgressReaches100(t *testing.T) {
	service := newTestService(&MockCatalog{songs: testSongs()}, &MockUploader{})
	service.Refresh(context.Background())

	service.OpenEdit(context.Background(), "1")
	service.AttachAudio(&picker.File{Name: "song.mp3", MIME: "audio/mpeg", Data: []byte("bytes")})
	if err := service.Save(context.Background()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	// The session closed on success, so the view reports the terminal state.
	if got := service.SessionView().State; got != SessionClosed {
		t.Errorf("expected session closed, got %s", got)
	}
}
