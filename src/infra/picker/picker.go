package picker

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/nfnt/resize"

	_ "golang.org/x/image/webp"
	_ "image/gif"
	_ "image/png"

	"github.com/khoatrg/songboard/src/features/config"
)

// File is a picked local media file held in memory until upload.
type File struct {
	Name string
	MIME string
	Data []byte
}

// Size returns the file size in bytes.
func (f *File) Size() int64 {
	return int64(len(f.Data))
}

var audioMIMEs = map[string]bool{
	"audio/mpeg":  true,
	"audio/mp3":   true,
	"audio/flac":  true,
	"audio/x-flac": true,
	"audio/wav":   true,
	"audio/ogg":   true,
	"audio/mp4":   true,
	"audio/aac":   true,
}

var imageMIMEs = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
}

// Intake validates picked files against MIME allowlists and the
// configured size caps before anything touches the network.
type Intake struct {
	config *config.Manager
}

// NewIntake creates a new picker intake.
func NewIntake(cfg *config.Manager) *Intake {
	return &Intake{config: cfg}
}

// CheckAudio rejects non-audio files and files over the audio cap.
func (i *Intake) CheckAudio(f *File) error {
	if !audioMIMEs[normalizeMIME(f.MIME)] && !hasAudioExt(f.Name) {
		return fmt.Errorf("unsupported audio type %q", f.MIME)
	}
	maxMB := i.config.Get().Uploads.MaxAudioMB
	if maxMB <= 0 {
		maxMB = 50
	}
	if f.Size() > int64(maxMB)<<20 {
		return fmt.Errorf("audio file exceeds %dMB limit, got %d bytes", maxMB, f.Size())
	}
	return nil
}

// CheckImage rejects non-image files and files over the image cap.
func (i *Intake) CheckImage(f *File) error {
	if !imageMIMEs[normalizeMIME(f.MIME)] && !hasImageExt(f.Name) {
		return fmt.Errorf("unsupported image type %q", f.MIME)
	}
	maxMB := i.config.Get().Uploads.MaxImageMB
	if maxMB <= 0 {
		maxMB = 10
	}
	if f.Size() > int64(maxMB)<<20 {
		return fmt.Errorf("image file exceeds %dMB limit, got %d bytes", maxMB, f.Size())
	}
	return nil
}

// SquareCover center-crops the picked image to a square, resizes it to
// the configured cover size and re-encodes it as JPEG.
func (i *Intake) SquareCover(f *File) error {
	img, _, err := image.Decode(bytes.NewReader(f.Data))
	if err != nil {
		return fmt.Errorf("failed to decode cover image: %w", err)
	}

	bounds := img.Bounds()
	side := bounds.Dx()
	if bounds.Dy() < side {
		side = bounds.Dy()
	}
	x0 := bounds.Min.X + (bounds.Dx()-side)/2
	y0 := bounds.Min.Y + (bounds.Dy()-side)/2
	square := image.Rect(x0, y0, x0+side, y0+side)

	type subImager interface {
		SubImage(r image.Rectangle) image.Image
	}
	if s, ok := img.(subImager); ok {
		img = s.SubImage(square)
	}

	size := i.config.Get().Uploads.CoverSize
	if size <= 0 {
		size = 1000
	}
	resized := resize.Resize(uint(size), uint(size), img, resize.Lanczos3)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, resized, &jpeg.Options{Quality: 85}); err != nil {
		return fmt.Errorf("failed to encode cover image: %w", err)
	}

	slog.Debug("Cover image squared", "name", f.Name, "side", side, "size", size, "bytes", buf.Len())
	f.Data = buf.Bytes()
	f.MIME = "image/jpeg"
	return nil
}

func normalizeMIME(mime string) string {
	mime = strings.ToLower(strings.TrimSpace(mime))
	if idx := strings.Index(mime, ";"); idx >= 0 {
		mime = strings.TrimSpace(mime[:idx])
	}
	return mime
}

func hasAudioExt(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".mp3", ".flac", ".wav", ".ogg", ".m4a", ".aac":
		return true
	}
	return false
}

func hasImageExt(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg", ".png", ".webp", ".gif":
		return true
	}
	return false
}
