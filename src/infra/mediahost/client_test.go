package mediahost

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/khoatrg/songboard/src/features/config"
)

func newTestManager(baseURL string) *config.Manager {
	return config.NewManager(&config.Config{
		MediaHost: config.MediaHost{
			BaseURL:             baseURL,
			CloudName:           "testcloud",
			UploadPreset:        "mp3_unsigned",
			AudioTimeoutSeconds: 5,
			ImageTimeoutSeconds: 5,
		},
	})
}

func TestUpload_SendsPresetAndResourceType(t *testing.T) {
	var gotPreset, gotResource, gotFilename string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			t.Fatalf("failed to parse multipart form: %v", err)
		}
		gotPreset = r.FormValue("upload_preset")
		gotResource = r.FormValue("resource_type")
		_, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("missing file part: %v", err)
		}
		gotFilename = header.Filename
		w.Write([]byte(`{"secure_url":"https://cdn.example/x.mp3"}`))
	}))
	defer server.Close()

	client := NewClient(newTestManager(server.URL))
	url, err := client.Upload(context.Background(), KindAudio, "my_song_1", []byte("audio-bytes"), nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if url != "https://cdn.example/x.mp3" {
		t.Errorf("unexpected URL %q", url)
	}
	if gotPreset != "mp3_unsigned" {
		t.Errorf("expected preset mp3_unsigned, got %q", gotPreset)
	}
	if gotResource != "auto" {
		t.Errorf("expected resource_type auto for audio, got %q", gotResource)
	}
	if gotFilename != "my_song_1" {
		t.Errorf("expected filename my_song_1, got %q", gotFilename)
	}
}

func TestUpload_ImageResourceType(t *testing.T) {
	var gotResource string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseMultipartForm(32 << 20)
		gotResource = r.FormValue("resource_type")
		w.Write([]byte(`{"secure_url":"https://cdn.example/x.jpg"}`))
	}))
	defer server.Close()

	client := NewClient(newTestManager(server.URL))
	if _, err := client.Upload(context.Background(), KindImage, "cover", []byte("img"), nil); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if gotResource != "image" {
		t.Errorf("expected resource_type image, got %q", gotResource)
	}
}

func TestUpload_ClassifiesFailures(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{http.StatusBadRequest, ErrMalformed},
		{http.StatusUnauthorized, ErrUnauthorized},
		{http.StatusRequestEntityTooLarge, ErrTooLarge},
	}
	for _, c := range cases {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(c.status)
		}))
		client := NewClient(newTestManager(server.URL))
		_, err := client.Upload(context.Background(), KindAudio, "x", []byte("data"), nil)
		server.Close()
		if err == nil {
			t.Fatalf("status %d: expected error", c.status)
		}
		if !errors.Is(err, c.want) {
			t.Errorf("status %d: expected %v, got %v", c.status, c.want, err)
		}
		var uploadErr *Error
		if !errors.As(err, &uploadErr) {
			t.Errorf("status %d: expected *Error, got %T", c.status, err)
		} else if uploadErr.Status != c.status {
			t.Errorf("expected status %d in error, got %d", c.status, uploadErr.Status)
		}
	}
}

func TestUpload_ReportsProgress(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"secure_url":"https://cdn.example/x.mp3"}`))
	}))
	defer server.Close()

	var last float64
	client := NewClient(newTestManager(server.URL))
	_, err := client.Upload(context.Background(), KindAudio, "x", []byte(strings.Repeat("a", 4096)), func(f float64) {
		last = f
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if last != 1 {
		t.Errorf("expected final progress 1, got %f", last)
	}
}

func TestPublicID_SanitizesTitle(t *testing.T) {
	id := PublicID("Büeno: mi canción!")
	if strings.ContainsAny(id, ":!ü ") {
		t.Errorf("unsafe characters left in public ID %q", id)
	}
	if !strings.HasPrefix(id, "Bueno__mi_cancion_") {
		t.Errorf("unexpected public ID %q", id)
	}
}

func TestPublicID_EmptyTitleFallsBack(t *testing.T) {
	id := PublicID("   ")
	if !strings.HasPrefix(id, "song_") {
		t.Errorf("expected fallback prefix, got %q", id)
	}
}
