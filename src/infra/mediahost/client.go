package mediahost

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gosimple/unidecode"
	"github.com/khoatrg/songboard/src/features/config"
)

// Kind distinguishes the media resource being uploaded.
type Kind string

const (
	KindAudio Kind = "audio"
	KindImage Kind = "image"
)

// Classified upload failures. Callers branch on these to pick a user message.
var (
	ErrMalformed    = errors.New("malformed upload request or unknown preset")
	ErrUnauthorized = errors.New("upload authentication failed")
	ErrTooLarge     = errors.New("file too large for upload service")
	ErrTimeout      = errors.New("upload timed out")
)

// Error wraps a classified upload failure with its context.
type Error struct {
	Kind   Kind
	Status int
	Reason error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s upload failed (status %d): %v", e.Kind, e.Status, e.Reason)
}

func (e *Error) Unwrap() error { return e.Reason }

// Progress receives the transfer fraction in [0, 1].
type Progress func(fraction float64)

// Uploader ingests a media file and returns a durable public URL.
type Uploader interface {
	Upload(ctx context.Context, kind Kind, name string, data []byte, progress Progress) (string, error)
}

// Client uploads media via unsigned multipart POSTs to the configured host.
type Client struct {
	config     *config.Manager
	httpClient *http.Client
}

// NewClient creates a new media host client.
func NewClient(cfg *config.Manager) *Client {
	return &Client{
		config:     cfg,
		httpClient: &http.Client{},
	}
}

type uploadResponse struct {
	SecureURL string `json:"secure_url"`
	URL       string `json:"url"`
}

// Upload sends the file and returns the durable URL the host assigned.
// The request is bounded by the per-kind timeout from config.
func (c *Client) Upload(ctx context.Context, kind Kind, name string, data []byte, progress Progress) (string, error) {
	cfg := c.config.Get().MediaHost

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", name)
	if err != nil {
		return "", fmt.Errorf("failed to build multipart body: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("failed to write file part: %w", err)
	}
	writer.WriteField("upload_preset", cfg.UploadPreset)
	switch kind {
	case KindImage:
		writer.WriteField("resource_type", "image")
		writer.WriteField("quality", "auto")
		writer.WriteField("fetch_format", "auto")
	default:
		writer.WriteField("resource_type", "auto")
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeoutFor(kind))
	defer cancel()

	total := int64(body.Len())
	reader := &progressReader{reader: &body, total: total, progress: progress}

	url := fmt.Sprintf("%s/%s/upload", strings.TrimRight(cfg.BaseURL, "/"), cfg.CloudName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, reader)
	if err != nil {
		return "", fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.ContentLength = total

	slog.Debug("Uploading media", "kind", kind, "name", name, "bytes", total)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", &Error{Kind: kind, Reason: ErrTimeout}
		}
		return "", fmt.Errorf("upload request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		io.Copy(io.Discard, resp.Body)
		return "", classifyStatus(kind, resp.StatusCode)
	}

	var parsed uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode upload response: %w", err)
	}
	result := parsed.SecureURL
	if result == "" {
		result = parsed.URL
	}
	if result == "" {
		return "", fmt.Errorf("upload response carried no URL")
	}
	if progress != nil {
		progress(1)
	}

	slog.Debug("Media uploaded", "kind", kind, "url", result)
	return result, nil
}

func (c *Client) timeoutFor(kind Kind) time.Duration {
	cfg := c.config.Get().MediaHost
	secs := cfg.AudioTimeoutSeconds
	if kind == KindImage {
		secs = cfg.ImageTimeoutSeconds
	}
	if secs <= 0 {
		if kind == KindImage {
			secs = 60
		} else {
			secs = 120
		}
	}
	return time.Duration(secs) * time.Second
}

func classifyStatus(kind Kind, status int) error {
	var reason error
	switch status {
	case http.StatusBadRequest:
		reason = ErrMalformed
	case http.StatusUnauthorized:
		reason = ErrUnauthorized
	case http.StatusRequestEntityTooLarge:
		reason = ErrTooLarge
	default:
		reason = fmt.Errorf("unexpected status")
	}
	return &Error{Kind: kind, Status: status, Reason: reason}
}

// progressReader counts bytes as the request body drains.
type progressReader struct {
	reader   io.Reader
	total    int64
	read     int64
	progress Progress
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.reader.Read(b)
	p.read += int64(n)
	if p.progress != nil && p.total > 0 {
		p.progress(float64(p.read) / float64(p.total))
	}
	return n, err
}

var safeNamePattern = regexp.MustCompile(`[^a-zA-Z0-9_\-]`)

// PublicID derives a host-safe upload name from a song title.
// Non-ASCII characters are transliterated and a timestamp suffix keeps
// repeated uploads of the same title distinct.
func PublicID(title string) string {
	base := unidecode.Unidecode(strings.TrimSpace(title))
	base = safeNamePattern.ReplaceAllString(base, "_")
	if base == "" {
		base = "song"
	}
	return fmt.Sprintf("%s_%d", base, time.Now().UnixMilli())
}
