// Package streampack packages video files into adaptive bitrate HLS or DASH
// streams with ffmpeg and publishes the result locally or to object storage.
//
// # Basic Usage
//
//	packager, err := streampack.New(ctx, streampack.Options{HWAccel: "auto"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	media, err := packager.Open("/videos/movie.mkv", false)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	export := streampack.NewHLS(media, streampack.HLSOptions{})
//	if err := export.AutoGenerateRepresentations(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	// writes /out/movie.m3u8, /out/movie_{height}p.m3u8 and the segments
//	result, err := export.Save(ctx, "/out/movie", true)
//
// # Publishing
//
// Publish and the SaveTo* helpers encode into a private temporary workspace,
// upload it to the destination and then either move it next to the given
// path or delete it. The workspace never outlives the call.
//
// # Temporary sources
//
// Media opened with tmp set, or downloaded without a target path, is owned
// by its exports: a successful save deletes it, and saving it without an
// output path deletes it and fails with ErrPathRequired.
package streampack

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/go-hclog"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/eleven-am/streampack/internal/domain"
	"github.com/eleven-am/streampack/internal/ffmpeg"
	"github.com/eleven-am/streampack/internal/format"
	"github.com/eleven-am/streampack/internal/hwaccel"
	"github.com/eleven-am/streampack/internal/metrics"
	"github.com/eleven-am/streampack/internal/probe"
	"github.com/eleven-am/streampack/internal/store"
	"github.com/eleven-am/streampack/internal/transcode"
	"github.com/eleven-am/streampack/internal/workspace"
)

type (
	// Representation is one rung of the bitrate ladder.
	Representation = domain.Representation

	// PathInfo is where an export writes its manifest.
	PathInfo = domain.PathInfo

	Metadata = domain.Metadata

	// Report is produced when a save is asked to analyse its output.
	Report = domain.Report

	Format = domain.Format

	// Transcoder runs the encoder. Encode must not return until every
	// output file is closed.
	Transcoder = domain.Transcoder

	Prober = domain.Prober

	Analyzer = domain.Analyzer

	// ObjectStore uploads a finished artifact directory.
	ObjectStore = domain.ObjectStore

	HLSOptions  = format.HLSOptions
	DASHOptions = format.DASHOptions
	SegmentType = ffmpeg.SegmentType

	S3Config  = store.S3Config
	GCSConfig = store.GCSConfig

	StableOptions = workspace.StableOptions

	Metrics = metrics.Metrics
)

const (
	FormatHLS  = domain.FormatHLS
	FormatDASH = domain.FormatDASH

	SegmentMPEGTS = ffmpeg.SegmentMPEGTS
	SegmentFMP4   = ffmpeg.SegmentFMP4
)

// Options configures a Packager. Every collaborator is optional and falls
// back to the ffmpeg based implementation.
type Options struct {
	// FFmpegPath and FFprobePath default to the binaries on PATH.
	FFmpegPath  string
	FFprobePath string

	// HWAccel names the encoder profile: "" or "none" for software, "auto"
	// to probe ffmpeg, or an accelerator such as "cuda" or "videotoolbox".
	HWAccel string

	Transcoder Transcoder
	Prober     Prober
	Analyzer   Analyzer

	// Logger defaults to a null logger.
	Logger hclog.Logger

	// Metrics, when nil, is created on Registerer. A nil Registerer keeps
	// the collectors unregistered.
	Metrics    *Metrics
	Registerer prometheus.Registerer

	// CleanupHook is told about every best-effort cleanup that failed.
	CleanupHook CleanupHook

	// Stable controls how long a publish waits for the workspace to stop
	// changing before uploading it.
	Stable StableOptions
}

func (o *Options) setDefaults() {
	if o.Logger == nil {
		o.Logger = hclog.NewNullLogger()
	}
	if o.Metrics == nil {
		o.Metrics = metrics.New(o.Registerer)
	}
	if o.Transcoder == nil {
		o.Transcoder = transcode.NewFFmpeg(o.FFmpegPath, o.Logger)
	}
	if o.Prober == nil {
		o.Prober = probe.NewProber(o.FFprobePath)
	}
	if o.Analyzer == nil {
		o.Analyzer = probe.NewAnalyzer(o.Prober, o.Logger)
	}
}

func (o *Options) validate() error {
	if o.Stable.Interval < 0 || o.Stable.Timeout < 0 {
		return errors.New("stable interval and timeout must not be negative")
	}
	return nil
}

// Packager opens media and carries the collaborators shared by every
// export created from it.
type Packager struct {
	opts    Options
	builder *ffmpeg.CommandBuilder
	logger  hclog.Logger
	metrics *Metrics
}

// New resolves the encoder profile and returns a Packager.
func New(ctx context.Context, opts Options) (*Packager, error) {
	if err := opts.validate(); err != nil {
		return nil, fmt.Errorf("streampack: %w", err)
	}
	opts.setDefaults()

	hw, err := hwaccel.Resolve(ctx, opts.HWAccel)
	if err != nil {
		return nil, fmt.Errorf("streampack: %w", err)
	}
	opts.Logger.Debug("encoder selected", "accelerator", hw.Accelerator, "encoder", hw.Encoder)

	return &Packager{
		opts:    opts,
		builder: ffmpeg.NewCommandBuilder(hw),
		logger:  opts.Logger,
		metrics: opts.Metrics,
	}, nil
}

// reportCleanup records a best-effort cleanup that failed. The failure is
// never returned to the caller.
func (p *Packager) reportCleanup(op, path string, err error) {
	p.logger.Warn("cleanup failed", "op", op, "path", path, "error", err)
	p.metrics.CleanupFailures.WithLabelValues(op).Inc()
	if p.opts.CleanupHook != nil {
		p.opts.CleanupHook(op, path, err)
	}
}
