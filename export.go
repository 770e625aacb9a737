package streampack

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/eleven-am/streampack/internal/ffmpeg"
	"github.com/eleven-am/streampack/internal/format"
	"github.com/eleven-am/streampack/internal/metrics"
	"github.com/eleven-am/streampack/internal/pathres"
	"github.com/eleven-am/streampack/internal/rendition"
	"github.com/eleven-am/streampack/internal/transcode"
)

// Result is what Save and Publish return: the report when analysis was
// requested, otherwise only the export itself.
type Result struct {
	Export *Export
	Report *Report
}

// Export packages one Media into one format. An Export is not safe for
// concurrent saves.
type Export struct {
	media    *Media
	variant  format.Variant
	resolver *pathres.Resolver
	logger   hclog.Logger

	mu       sync.Mutex
	reps     []Representation
	strict   string
	pathInfo PathInfo
	manifest string
}

func NewHLS(m *Media, opts HLSOptions) *Export {
	return newExport(m, format.NewHLS(opts))
}

func NewDASH(m *Media, opts DASHOptions) *Export {
	return newExport(m, format.NewDASH(opts))
}

func newExport(m *Media, v format.Variant) *Export {
	e := &Export{
		media:    m,
		variant:  v,
		logger:   m.packager.logger.Named("export").With("format", v.Format()),
		strict:   ffmpeg.DefaultStrict,
		pathInfo: pathres.Normalize(pathres.Split(m.path)),
	}
	e.resolver = pathres.New(func(string) error { return m.remove() })
	return e
}

// SetStrict sets the value passed to ffmpeg's -strict option.
func (e *Export) SetStrict(strict string) *Export {
	e.mu.Lock()
	e.strict = strict
	e.mu.Unlock()
	return e
}

func (e *Export) Strict() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.strict
}

// SetRepresentations replaces the ladder. It must be sorted by ascending
// height; Save rejects it otherwise.
func (e *Export) SetRepresentations(reps ...Representation) *Export {
	e.mu.Lock()
	e.reps = append([]Representation(nil), reps...)
	e.mu.Unlock()
	return e
}

func (e *Export) Representations() []Representation {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Representation(nil), e.reps...)
}

// AutoGenerateRepresentations probes the source and builds a ladder for the
// given heights, or the default heights when none are given.
func (e *Export) AutoGenerateRepresentations(ctx context.Context, heights ...int) error {
	meta, err := e.media.Metadata(ctx)
	if err != nil {
		return fmt.Errorf("auto generate representations: %w", err)
	}
	reps := rendition.Generate(meta.Video, heights...)
	if len(reps) == 0 {
		return fmt.Errorf("auto generate representations: %w", ErrEmptyLadder)
	}
	e.SetRepresentations(reps...)
	return nil
}

func (e *Export) PathInfo() PathInfo {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pathInfo
}

func (e *Export) Media() *Media { return e.media }

func (e *Export) Format() Format { return e.variant.Format() }

func (e *Export) SourcePath() string { return e.media.path }

// ManifestPath is the manifest written by the last save, empty before it.
func (e *Export) ManifestPath() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.manifest
}

// Save encodes the media to p, or next to the source when p is empty. With
// analyse set the result carries a Report of the produced files.
func (e *Export) Save(ctx context.Context, p string, analyse bool) (*Result, error) {
	packager := e.media.packager
	f := e.variant.Format()

	res, err := e.save(ctx, p, analyse)
	packager.metrics.Exports.WithLabelValues(string(f), metrics.Result(err)).Inc()
	if err != nil {
		e.logger.Error("save failed", "path", p, "error", err)
		return nil, err
	}
	return res, nil
}

func (e *Export) save(ctx context.Context, p string, analyse bool) (*Result, error) {
	packager := e.media.packager
	reps := e.Representations()

	info, manifest, err := e.resolver.Resolve(e.PathInfo(), p, e.media, func(filename string) (string, error) {
		return e.variant.ResolveSuffix(filename, reps)
	})
	if err != nil {
		return nil, newExportError("resolve", err)
	}

	e.mu.Lock()
	e.pathInfo = info
	e.manifest = manifest
	e.mu.Unlock()

	params := format.Params{
		Builder:         packager.builder,
		Dir:             info.Dir,
		Filename:        info.Filename,
		Representations: reps,
		Strict:          e.Strict(),
		Audio:           e.hasAudio(ctx),
	}
	e.media.setFilter(e.variant.BuildFilter(params))
	if err := e.variant.PreEncode(params); err != nil {
		return nil, newExportError("resolve", err)
	}

	e.logger.Info("encoding", "source", e.media.path, "manifest", manifest, "representations", len(reps))
	start := time.Now()
	if err := e.media.encode(ctx, e.variant.Format(), manifest); err != nil {
		return nil, encodeError(err)
	}
	packager.metrics.EncodeDuration.WithLabelValues(string(e.variant.Format())).Observe(time.Since(start).Seconds())

	if err := e.variant.PostEncode(params); err != nil {
		return nil, newExportError("playlist", err)
	}

	res := &Result{Export: e}
	if analyse {
		report, err := packager.opts.Analyzer.Analyze(ctx, e)
		if err != nil {
			return nil, newExportError("analyse", err)
		}
		res.Report = report
	}

	if e.media.tmp {
		e.media.remove()
	}
	return res, nil
}

// hasAudio reports whether the source carries audio. When the source cannot
// be probed audio is assumed; the encoder maps it optionally.
func (e *Export) hasAudio(ctx context.Context) bool {
	meta, err := e.media.Metadata(ctx)
	if err != nil {
		e.logger.Debug("probe failed, assuming audio", "error", err)
		return true
	}
	return meta.HasAudio()
}

func encodeError(err error) *ExportError {
	ee := &ExportError{
		Op:      "encode",
		Message: fmt.Sprintf("there was an error saving files: %v", err),
		Err:     err,
	}
	var terr *transcode.Error
	if errors.As(err, &terr) {
		ee.Code = terr.Code
	}
	return ee
}

// relocate points the export at dir after its files were moved there.
func (e *Export) relocate(dir string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pathInfo.Dir = pathres.ToSlash(dir)
	if e.manifest != "" {
		e.manifest = path.Join(e.pathInfo.Dir, path.Base(e.manifest))
	}
}

// detach clears the location of files that no longer exist locally.
func (e *Export) detach(res *Result) {
	e.mu.Lock()
	e.pathInfo.Dir = ""
	e.manifest = ""
	e.mu.Unlock()
	if res.Report != nil {
		res.Report.ManifestPath = ""
	}
}
