package tag

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/dhowden/tag"
)

// Tags carries the editable metadata fields of an audio file.
type Tags struct {
	Title  string
	Artist string
	Album  string
	Genre  string
	Year   string
	Cover  []byte
}

// Reader extracts tags from picked audio files, used to prefill the
// edit form when a replacement file is chosen.
type Reader struct{}

// NewReader creates a new Reader.
func NewReader() *Reader {
	return &Reader{}
}

// ReadTags reads metadata from in-memory audio data.
func (r *Reader) ReadTags(data []byte) (*Tags, error) {
	meta, err := tag.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to read tags: %w", err)
	}

	out := &Tags{
		Title:  meta.Title(),
		Artist: meta.Artist(),
		Album:  meta.Album(),
		Genre:  meta.Genre(),
	}
	if year := meta.Year(); year > 0 {
		out.Year = strconv.Itoa(year)
	}
	if pic := meta.Picture(); pic != nil {
		out.Cover = pic.Data
	}
	return out, nil
}
