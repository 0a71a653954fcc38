package tag

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"

	"github.com/bogem/id3v2/v2"
	"github.com/go-flac/flacpicture"
	"github.com/go-flac/flacvorbis"
	goflac "github.com/go-flac/go-flac"
)

// Writer rewrites tags in picked audio so the hosted file carries the
// corrected metadata after an edit.
type Writer struct{}

// NewWriter creates a new Writer.
func NewWriter() *Writer {
	return &Writer{}
}

// WriteTags tags audio data in memory and returns the tagged data.
func (w *Writer) WriteTags(audioData []byte, tags *Tags) ([]byte, error) {
	switch detectFormat(audioData) {
	case "mp3":
		return w.tagMP3Data(audioData, tags)
	case "flac":
		return w.tagFLACData(audioData, tags)
	default:
		return audioData, fmt.Errorf("unsupported audio format for tagging")
	}
}

func detectFormat(data []byte) string {
	if len(data) >= 4 && string(data[:4]) == "fLaC" {
		return "flac"
	}
	if len(data) >= 3 && string(data[:3]) == "ID3" {
		return "mp3"
	}
	if len(data) >= 2 && data[0] == 0xFF && (data[1]&0xE0) == 0xE0 {
		return "mp3"
	}
	return ""
}

// tagMP3Data prepends a fresh ID3 tag to the audio data.
func (w *Writer) tagMP3Data(audioData []byte, tags *Tags) ([]byte, error) {
	tag := id3v2.NewEmptyTag()

	tag.SetTitle(tags.Title)
	if tags.Artist != "" {
		tag.SetArtist(tags.Artist)
	}
	if tags.Album != "" {
		tag.SetAlbum(tags.Album)
	}
	if tags.Year != "" {
		tag.SetYear(tags.Year)
	}
	if tags.Genre != "" {
		tag.SetGenre(tags.Genre)
	}

	if len(tags.Cover) > 0 {
		pic := id3v2.PictureFrame{
			Encoding:    id3v2.EncodingUTF8,
			MimeType:    detectImageMIME(tags.Cover),
			PictureType: id3v2.PTFrontCover,
			Description: "",
			Picture:     tags.Cover,
		}
		tag.AddAttachedPicture(pic)
	}

	// Strip any existing ID3v2 header so we don't stack two tags
	body := audioData
	if len(body) >= 10 && string(body[:3]) == "ID3" {
		size := int(body[6])<<21 | int(body[7])<<14 | int(body[8])<<7 | int(body[9])
		if 10+size <= len(body) {
			body = body[10+size:]
		}
	}

	var buf bytes.Buffer
	if _, err := tag.WriteTo(&buf); err != nil {
		return audioData, fmt.Errorf("failed to write tag to buffer: %w", err)
	}
	taggedData := append(buf.Bytes(), body...)

	slog.Debug("Tagged MP3 data in memory", "title", tags.Title, "originalSize", len(audioData), "taggedSize", len(taggedData))
	return taggedData, nil
}

// tagFLACData writes the data to a temp file, tags it and reads it back.
func (w *Writer) tagFLACData(audioData []byte, tags *Tags) ([]byte, error) {
	tempFile, err := os.CreateTemp("", "flac_tag_*.flac")
	if err != nil {
		return audioData, fmt.Errorf("failed to create temp file: %w", err)
	}
	tempPath := tempFile.Name()
	defer os.Remove(tempPath)

	if _, err := tempFile.Write(audioData); err != nil {
		tempFile.Close()
		return audioData, fmt.Errorf("failed to write audio data to temp file: %w", err)
	}
	tempFile.Close()

	if err := w.tagFLAC(tempPath, tags); err != nil {
		return audioData, err
	}

	taggedData, err := os.ReadFile(tempPath)
	if err != nil {
		return audioData, fmt.Errorf("failed to read tagged FLAC data: %w", err)
	}

	slog.Debug("Tagged FLAC data in memory", "title", tags.Title, "originalSize", len(audioData), "taggedSize", len(taggedData))
	return taggedData, nil
}

func (w *Writer) tagFLAC(filePath string, tags *Tags) error {
	f, err := goflac.ParseFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to parse FLAC file: %w", err)
	}

	// Find existing Vorbis comment block
	var vorbisComment *flacvorbis.MetaDataBlockVorbisComment
	var commentIndex = -1

	for idx, meta := range f.Meta {
		if meta.Type == goflac.VorbisComment {
			vorbisComment, err = flacvorbis.ParseFromMetaDataBlock(*meta)
			if err != nil {
				return fmt.Errorf("failed to parse Vorbis comment: %w", err)
			}
			commentIndex = idx
			break
		}
	}

	if vorbisComment == nil {
		vorbisComment = flacvorbis.New()
	}

	vorbisComment.Add(flacvorbis.FIELD_TITLE, tags.Title)
	if tags.Artist != "" {
		vorbisComment.Add(flacvorbis.FIELD_ARTIST, tags.Artist)
	}
	if tags.Album != "" {
		vorbisComment.Add(flacvorbis.FIELD_ALBUM, tags.Album)
	}
	if tags.Year != "" {
		vorbisComment.Add(flacvorbis.FIELD_DATE, tags.Year)
	}
	if tags.Genre != "" {
		vorbisComment.Add(flacvorbis.FIELD_GENRE, tags.Genre)
	}

	commentMeta := vorbisComment.Marshal()
	if commentIndex >= 0 {
		f.Meta[commentIndex] = &commentMeta
	} else {
		f.Meta = append(f.Meta, &commentMeta)
	}

	if len(tags.Cover) > 0 {
		pic, _ := flacpicture.NewFromImageData(flacpicture.PictureTypeFrontCover, "Cover", tags.Cover, detectImageMIME(tags.Cover))
		marshaled := pic.Marshal()
		pictureBlock := &goflac.MetaDataBlock{
			Type: goflac.Picture,
			Data: marshaled.Data,
		}
		f.Meta = append(f.Meta, pictureBlock)
	}

	if err := f.Save(filePath); err != nil {
		return fmt.Errorf("failed to save FLAC file: %w", err)
	}
	return nil
}

func detectImageMIME(data []byte) string {
	if len(data) >= 4 && string(data[:4]) == "\x89PNG" {
		return "image/png"
	}
	return "image/jpeg"
}
