package main

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-hclog"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/eleven-am/streampack"
	"github.com/eleven-am/streampack/internal/config"
)

// output is what the command prints once the job is done.
type output struct {
	Format       streampack.Format  `json:"format"`
	ManifestPath string             `json:"manifest_path"`
	Published    string             `json:"published,omitempty"`
	Report       *streampack.Report `json:"report,omitempty"`
}

func runJob(ctx context.Context, cfg *config.Config, logger hclog.Logger, reg prometheus.Registerer) (*output, error) {
	packager, err := streampack.New(ctx, streampack.Options{
		FFmpegPath:  cfg.FFmpeg.FFmpegPath,
		FFprobePath: cfg.FFmpeg.FFprobePath,
		HWAccel:     cfg.FFmpeg.HWAccel,
		Logger:      logger,
		Registerer:  reg,
		Stable:      streampack.StableOptions{Timeout: cfg.Publish.StableTimeout},
	})
	if err != nil {
		return nil, err
	}

	media, err := openSource(ctx, packager, cfg)
	if err != nil {
		return nil, fmt.Errorf("open source: %w", err)
	}
	defer media.Close()

	export, err := newExport(ctx, media, cfg.Export)
	if err != nil {
		return nil, err
	}

	res, err := save(ctx, export, cfg)
	if err != nil {
		return nil, err
	}

	return &output{
		Format:       export.Format(),
		ManifestPath: export.ManifestPath(),
		Published:    destination(cfg.Publish),
		Report:       res.Report,
	}, nil
}

func openSource(ctx context.Context, p *streampack.Packager, cfg *config.Config) (*streampack.Media, error) {
	src := cfg.Source
	switch {
	case src.URL != "":
		return p.FromURL(ctx, src.URL, src.SaveTo, src.Header)
	case src.S3 != nil:
		return p.FromS3(ctx, s3Config(cfg.Publish.S3), src.S3.Bucket, src.S3.Key, src.SaveTo)
	case src.GCS != nil:
		gcs := gcsConfig(cfg.Publish.GCS)
		gcs.Bucket = src.GCS.Bucket
		return p.FromGCS(ctx, gcs, src.GCS.Name, src.SaveTo)
	default:
		return p.Open(src.Path, src.Tmp)
	}
}

func newExport(ctx context.Context, media *streampack.Media, cfg config.ExportConfig) (*streampack.Export, error) {
	var export *streampack.Export
	if cfg.Format == string(streampack.FormatDASH) {
		export = streampack.NewDASH(media, streampack.DASHOptions{
			SegmentDuration: cfg.DASH.SegmentDuration,
			UseTimeline:     cfg.DASH.UseTimeline,
			UseTemplate:     cfg.DASH.UseTemplate,
		})
	} else {
		export = streampack.NewHLS(media, streampack.HLSOptions{
			SegmentDuration: cfg.HLS.SegmentDuration,
			SegmentSubDir:   cfg.HLS.SegmentSubDir,
			SegmentType:     streampack.SegmentType(cfg.HLS.SegmentType),
			PlaylistType:    cfg.HLS.PlaylistType,
		})
	}
	if cfg.Strict != "" {
		export.SetStrict(cfg.Strict)
	}

	if len(cfg.Representations) == 0 {
		if err := export.AutoGenerateRepresentations(ctx, cfg.Heights...); err != nil {
			return nil, err
		}
		return export, nil
	}

	reps := make([]streampack.Representation, 0, len(cfg.Representations))
	for _, r := range cfg.Representations {
		reps = append(reps, streampack.Representation{
			Width:        r.Width,
			Height:       r.Height,
			Bitrate:      r.Bitrate,
			AudioBitrate: r.AudioBitrate,
			MaxRate:      r.MaxRate,
			BufSize:      r.BufSize,
		})
	}
	return export.SetRepresentations(reps...), nil
}

func save(ctx context.Context, export *streampack.Export, cfg *config.Config) (*streampack.Result, error) {
	out, analyse := cfg.Export.Output, cfg.Export.Analyse
	pub := cfg.Publish

	switch pub.Target {
	case config.TargetHTTP:
		return export.SaveToCloud(ctx, streampack.CloudConfig{
			URL:     pub.HTTP.URL,
			Method:  pub.HTTP.Method,
			Field:   pub.HTTP.Field,
			Headers: pub.HTTP.Headers,
		}, out, analyse)
	case config.TargetS3:
		return export.SaveToS3(ctx, s3Config(pub.S3), pub.S3.Prefix, out, analyse)
	case config.TargetGCS:
		return export.SaveToGCS(ctx, gcsConfig(pub.GCS), pub.GCS.Prefix, out, analyse)
	default:
		return export.Save(ctx, out, analyse)
	}
}

func destination(pub config.PublishConfig) string {
	switch pub.Target {
	case config.TargetHTTP:
		return pub.HTTP.URL
	case config.TargetS3:
		return "s3://" + pub.S3.Bucket + "/" + pub.S3.Prefix
	case config.TargetGCS:
		return "gs://" + pub.GCS.Bucket + "/" + pub.GCS.Prefix
	}
	return ""
}

func s3Config(c config.S3Config) streampack.S3Config {
	return streampack.S3Config{
		Region:          c.Region,
		Bucket:          c.Bucket,
		Endpoint:        c.Endpoint,
		AccessKeyID:     c.AccessKeyID,
		SecretAccessKey: c.SecretAccessKey,
		UsePathStyle:    c.UsePathStyle,
	}
}

func gcsConfig(c config.GCSConfig) streampack.GCSConfig {
	return streampack.GCSConfig{
		Bucket:          c.Bucket,
		CredentialsFile: c.CredentialsFile,
		UserProject:     c.UserProject,
	}
}
