package manage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/khoatrg/songboard/src/music"
)

// Stage names of the save pipeline, in order.
const (
	stageValidate    = "validate"
	stageUploadAudio = "upload-audio"
	stageUploadImage = "upload-image"
	stageMerge       = "merge"
	stagePersist     = "persist"
	stageReconcile   = "reconcile-mirror"
)

// stage is one named step of a save. Upload stages carry weight so the
// overall percentage tracks the transfers; bookkeeping stages are free.
type stage struct {
	name   string
	weight int
	run    func(ctx context.Context, report func(fraction float64)) error
}

type pipeline struct {
	stages   []stage
	onUpdate func(percent int, stageName string)
}

// run executes the stages in order. The first failure aborts the rest,
// so a failed upload never reaches the persist stage.
func (p *pipeline) run(ctx context.Context) error {
	total := 0
	for _, st := range p.stages {
		total += st.weight
	}

	done := 0
	for _, st := range p.stages {
		st := st
		report := func(fraction float64) {
			if p.onUpdate == nil || total == 0 {
				return
			}
			if fraction < 0 {
				fraction = 0
			}
			if fraction > 1 {
				fraction = 1
			}
			percent := (float64(done) + fraction*float64(st.weight)) / float64(total) * 100
			p.onUpdate(int(percent), st.name)
		}
		if err := st.run(ctx, report); err != nil {
			return fmt.Errorf("%s: %w", st.name, err)
		}
		done += st.weight
		if p.onUpdate != nil && total > 0 {
			p.onUpdate(done*100/total, st.name)
		}
	}
	return nil
}

// buildPatch computes the merge payload for a save: only trimmed,
// non-empty fields that differ from the stored record, plus the media
// URLs produced by this save's uploads. The timestamp is always set.
func buildPatch(orig *music.Song, d Draft, audioURL, imageURL string, now time.Time) music.Patch {
	patch := music.Patch{UpdatedAt: now}

	setIfChanged := func(dst **string, newValue, oldValue string) {
		trimmed := strings.TrimSpace(newValue)
		if trimmed != "" && trimmed != oldValue {
			*dst = &trimmed
		}
	}
	setIfChanged(&patch.Title, d.Title, orig.Title)
	setIfChanged(&patch.Artist, d.Artist, orig.Artist)
	setIfChanged(&patch.Album, d.Album, orig.Album)
	setIfChanged(&patch.Genre, d.Genre, orig.Genre)
	setIfChanged(&patch.ReleaseYear, d.ReleaseYear, orig.ReleaseYear)

	if audioURL != "" {
		patch.AudioURL = &audioURL
	}
	if imageURL != "" {
		patch.ImageURL = &imageURL
	}
	return patch
}
