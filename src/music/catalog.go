package music

import (
	"context"
	"time"
)

// SortKey names a server-side ordering of the catalog.
type SortKey string

const (
	SortByName   SortKey = "name"
	SortByArtist SortKey = "artist"
	SortByGenre  SortKey = "genre"
	SortByViews  SortKey = "views"
)

// ParseSortKey maps a request value to a known sort key, defaulting to name.
func ParseSortKey(s string) SortKey {
	switch SortKey(s) {
	case SortByArtist, SortByGenre, SortByViews:
		return SortKey(s)
	default:
		return SortByName
	}
}

// Patch is a partial update of a song. Only non-nil fields are written;
// UpdatedAt is stamped on every patch.
type Patch struct {
	Title       *string
	Artist      *string
	Album       *string
	Genre       *string
	ReleaseYear *string
	ImageURL    *string
	AudioURL    *string
	UpdatedAt   time.Time
}

// IsEmpty reports whether the patch carries no field changes.
func (p *Patch) IsEmpty() bool {
	return p.Title == nil && p.Artist == nil && p.Album == nil &&
		p.Genre == nil && p.ReleaseYear == nil &&
		p.ImageURL == nil && p.AudioURL == nil
}

// Apply writes the patch's set fields onto a song in place.
func (p *Patch) Apply(s *Song) {
	if p.Title != nil {
		s.Title = *p.Title
	}
	if p.Artist != nil {
		s.Artist = *p.Artist
	}
	if p.Album != nil {
		s.Album = *p.Album
	}
	if p.Genre != nil {
		s.Genre = *p.Genre
	}
	if p.ReleaseYear != nil {
		s.ReleaseYear = *p.ReleaseYear
	}
	if p.ImageURL != nil {
		s.ImageURL = *p.ImageURL
	}
	if p.AudioURL != nil {
		s.AudioURL = *p.AudioURL
	}
	s.UpdatedAt = p.UpdatedAt
}

// Catalog is the interface for the song record store.
// It's our primary repository interface for the catalog domain.
type Catalog interface {
	AddSong(ctx context.Context, song *Song) error
	GetSong(ctx context.Context, id string) (*Song, error)
	GetSongs(ctx context.Context, sort SortKey) ([]*Song, error)
	UpdateSong(ctx context.Context, id string, patch Patch) error
	DeleteSong(ctx context.Context, id string) error
	GetSongsCount(ctx context.Context) (int, error)
}
