// Package format holds the per-format behaviour of an export: how the
// manifest is named, which transcoder filter is built and what happens once
// the encoder is done.
package format

import (
	"errors"
	"fmt"
	"path"

	"github.com/eleven-am/streampack/internal/domain"
	"github.com/eleven-am/streampack/internal/ffmpeg"
	"github.com/eleven-am/streampack/internal/playlist"
	"github.com/eleven-am/streampack/internal/rendition"
	"github.com/eleven-am/streampack/internal/workspace"
)

const DefaultSegmentDuration = 10

var ErrCloudSubDirectory = errors.New("segment sub-directories cannot be published to an object store")

// Params carries everything a variant needs about one save.
type Params struct {
	Builder         *ffmpeg.CommandBuilder
	Dir             string
	Filename        string
	Representations []domain.Representation
	Strict          string
	Audio           bool
}

type Variant interface {
	Format() domain.Format
	// ResolveSuffix returns the manifest file name the transcoder writes.
	ResolveSuffix(filename string, reps []domain.Representation) (string, error)
	BuildFilter(p Params) domain.Filter
	// PreEncode prepares the output directory layout. The transcoder does
	// not create directories.
	PreEncode(p Params) error
	// PostEncode runs only after the transcoder has finished successfully,
	// so the HLS master playlist does not exist while segments are written.
	PostEncode(p Params) error
	// CloudPublishable reports whether the output layout can be uploaded
	// as flat object names.
	CloudPublishable() error
}

type HLSOptions struct {
	SegmentDuration int
	SegmentSubDir   string
	SegmentType     ffmpeg.SegmentType
	PlaylistType    string
}

type HLS struct {
	Options HLSOptions
}

func NewHLS(opts HLSOptions) *HLS {
	if opts.SegmentDuration <= 0 {
		opts.SegmentDuration = DefaultSegmentDuration
	}
	return &HLS{Options: opts}
}

func (h *HLS) Format() domain.Format { return domain.FormatHLS }

// ResolveSuffix names the top-level playlist after the highest
// representation, which must be the last one.
func (h *HLS) ResolveSuffix(filename string, reps []domain.Representation) (string, error) {
	if err := rendition.Validate(reps); err != nil {
		return "", err
	}
	return playlist.VariantName(filename, reps[len(reps)-1]), nil
}

func (h *HLS) BuildFilter(p Params) domain.Filter {
	return p.Builder.HLS(ffmpeg.HLSParams{
		Representations: p.Representations,
		Dir:             p.Dir,
		Filename:        p.Filename,
		SegmentDuration: h.Options.SegmentDuration,
		SegmentSubDir:   h.Options.SegmentSubDir,
		SegmentType:     h.Options.SegmentType,
		PlaylistType:    h.Options.PlaylistType,
		Strict:          p.Strict,
		Audio:           p.Audio,
	})
}

// PreEncode creates the segment sub-directory when one is configured.
func (h *HLS) PreEncode(p Params) error {
	if h.Options.SegmentSubDir == "" {
		return nil
	}
	return workspace.MakeDir(path.Join(p.Dir, h.Options.SegmentSubDir))
}

// PostEncode writes the master playlist referencing every variant playlist.
func (h *HLS) PostEncode(p Params) error {
	if _, err := playlist.WriteMaster(p.Dir, p.Filename, p.Representations, p.Audio); err != nil {
		return fmt.Errorf("hls post-encode: %w", err)
	}
	return nil
}

func (h *HLS) CloudPublishable() error {
	if h.Options.SegmentSubDir != "" {
		return fmt.Errorf("%w: %q", ErrCloudSubDirectory, h.Options.SegmentSubDir)
	}
	return nil
}

type DASHOptions struct {
	SegmentDuration int
	UseTimeline     bool
	UseTemplate     bool
}

type DASH struct {
	Options DASHOptions
}

func NewDASH(opts DASHOptions) *DASH {
	if opts.SegmentDuration <= 0 {
		opts.SegmentDuration = DefaultSegmentDuration
	}
	return &DASH{Options: opts}
}

func (d *DASH) Format() domain.Format { return domain.FormatDASH }

func (d *DASH) ResolveSuffix(filename string, reps []domain.Representation) (string, error) {
	if err := rendition.Validate(reps); err != nil {
		return "", err
	}
	return filename + ".mpd", nil
}

func (d *DASH) BuildFilter(p Params) domain.Filter {
	return p.Builder.DASH(ffmpeg.DASHParams{
		Representations: p.Representations,
		Filename:        p.Filename,
		SegmentDuration: d.Options.SegmentDuration,
		UseTimeline:     d.Options.UseTimeline,
		UseTemplate:     d.Options.UseTemplate,
		Strict:          p.Strict,
		Audio:           p.Audio,
	})
}

func (d *DASH) PreEncode(Params) error { return nil }

// PostEncode is a no-op: the manifest written by the encoder is complete.
func (d *DASH) PostEncode(Params) error { return nil }

func (d *DASH) CloudPublishable() error { return nil }
