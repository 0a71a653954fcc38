package music

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Genres are the genre choices offered by the edit form.
var Genres = []string{"Rap", "Ballad", "Pop", "Rock", "Jazz", "EDM"}

// Song represents a single catalog record.
type Song struct {
	ID          string
	Title       string
	Artist      string
	Album       string
	Genre       string
	ReleaseYear string
	ImageURL    string
	AudioURL    string
	Views       int64
	UpdatedAt   time.Time
	Attributes  map[string]string
}

// Validate validates the song fields.
func (s *Song) Validate() error {
	if strings.TrimSpace(s.Title) == "" {
		return fmt.Errorf("song title cannot be empty")
	}
	if len(s.Title) > 500 {
		return fmt.Errorf("title cannot exceed 500 characters, got %d: title -> %s", len(s.Title), s.Title)
	}
	if len(s.Artist) > 500 {
		return fmt.Errorf("artist cannot exceed 500 characters, got %d: artist -> %s", len(s.Artist), s.Artist)
	}
	if len(s.Album) > 500 {
		return fmt.Errorf("album cannot exceed 500 characters, got %d: album -> %s", len(s.Album), s.Album)
	}
	if s.Genre != "" && len(s.Genre) > 100 {
		s.Genre = s.Genre[:100]
	}
	if s.ImageURL != "" && len(s.ImageURL) > 500 {
		return fmt.Errorf("image URL cannot exceed 500 characters, got %d", len(s.ImageURL))
	}
	if s.AudioURL != "" && len(s.AudioURL) > 500 {
		return fmt.Errorf("audio URL cannot exceed 500 characters, got %d", len(s.AudioURL))
	}
	if s.Views < 0 {
		return fmt.Errorf("views cannot be negative, got %d", s.Views)
	}
	return nil
}

// FormatViewCount renders a view count with K/M/B suffixes.
// Values under 1000 are printed exactly; above that one decimal is
// kept and a trailing ".0" is stripped (1500 -> "1.5K", 1000000 -> "1M").
func FormatViewCount(views int64) string {
	if views < 0 {
		views = 0
	}
	switch {
	case views >= 1_000_000_000:
		return trimTrailingZero(float64(views)/1_000_000_000) + "B"
	case views >= 1_000_000:
		return trimTrailingZero(float64(views)/1_000_000) + "M"
	case views >= 1_000:
		return trimTrailingZero(float64(views)/1_000) + "K"
	}
	return strconv.FormatInt(views, 10)
}

func trimTrailingZero(v float64) string {
	s := strconv.FormatFloat(v, 'f', 1, 64)
	return strings.TrimSuffix(s, ".0")
}
