// Package config loads the job file driving the streampack command.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is one packaging job.
type Config struct {
	Log     LogConfig     `yaml:"log"`
	FFmpeg  FFmpegConfig  `yaml:"ffmpeg"`
	Source  SourceConfig  `yaml:"source"`
	Export  ExportConfig  `yaml:"export"`
	Publish PublishConfig `yaml:"publish"`
	Metrics MetricsConfig `yaml:"metrics"`
}

type LogConfig struct {
	Level string `yaml:"level" env:"STREAMPACK_LOG_LEVEL"`
	JSON  bool   `yaml:"json" env:"STREAMPACK_LOG_JSON"`
}

type FFmpegConfig struct {
	FFmpegPath  string `yaml:"ffmpeg_path" env:"STREAMPACK_FFMPEG_PATH"`
	FFprobePath string `yaml:"ffprobe_path" env:"STREAMPACK_FFPROBE_PATH"`
	HWAccel     string `yaml:"hwaccel" env:"STREAMPACK_HWACCEL"`
}

// SourceConfig names exactly one of Path, URL, S3 or GCS.
type SourceConfig struct {
	Path   string            `yaml:"path"`
	Tmp    bool              `yaml:"tmp"`
	URL    string            `yaml:"url"`
	Header map[string]string `yaml:"headers"`
	S3     *S3Object         `yaml:"s3"`
	GCS    *GCSObject        `yaml:"gcs"`
	// SaveTo keeps a downloaded source at this path instead of a
	// temporary file.
	SaveTo string `yaml:"save_to"`
}

type S3Object struct {
	Bucket string `yaml:"bucket"`
	Key    string `yaml:"key"`
}

type GCSObject struct {
	Bucket string `yaml:"bucket"`
	Name   string `yaml:"name"`
}

type ExportConfig struct {
	Format          string                 `yaml:"format"`
	Output          string                 `yaml:"output"`
	Analyse         bool                   `yaml:"analyse"`
	Strict          string                 `yaml:"strict"`
	Heights         []int                  `yaml:"heights"`
	Representations []RepresentationConfig `yaml:"representations"`
	HLS             HLSConfig              `yaml:"hls"`
	DASH            DASHConfig             `yaml:"dash"`
}

type RepresentationConfig struct {
	Width        int `yaml:"width"`
	Height       int `yaml:"height"`
	Bitrate      int `yaml:"bitrate"`
	AudioBitrate int `yaml:"audio_bitrate"`
	MaxRate      int `yaml:"max_rate"`
	BufSize      int `yaml:"buf_size"`
}

type HLSConfig struct {
	SegmentDuration int    `yaml:"segment_duration"`
	SegmentSubDir   string `yaml:"segment_sub_dir"`
	SegmentType     string `yaml:"segment_type"`
	PlaylistType    string `yaml:"playlist_type"`
}

type DASHConfig struct {
	SegmentDuration int  `yaml:"segment_duration"`
	UseTimeline     bool `yaml:"use_timeline"`
	UseTemplate     bool `yaml:"use_template"`
}

const (
	TargetNone = ""
	TargetHTTP = "http"
	TargetS3   = "s3"
	TargetGCS  = "gcs"
)

type PublishConfig struct {
	Target        string        `yaml:"target"`
	StableTimeout time.Duration `yaml:"stable_timeout" env:"STREAMPACK_STABLE_TIMEOUT"`
	HTTP          HTTPConfig    `yaml:"http"`
	S3            S3Config      `yaml:"s3"`
	GCS           GCSConfig     `yaml:"gcs"`
}

type HTTPConfig struct {
	URL     string            `yaml:"url"`
	Method  string            `yaml:"method"`
	Field   string            `yaml:"field"`
	Headers map[string]string `yaml:"headers"`
}

type S3Config struct {
	Region          string `yaml:"region" env:"AWS_REGION"`
	Bucket          string `yaml:"bucket"`
	Prefix          string `yaml:"prefix"`
	Endpoint        string `yaml:"endpoint" env:"AWS_ENDPOINT_URL_S3"`
	AccessKeyID     string `yaml:"access_key_id" env:"AWS_ACCESS_KEY_ID"`
	SecretAccessKey string `yaml:"secret_access_key" env:"AWS_SECRET_ACCESS_KEY"`
	UsePathStyle    bool   `yaml:"use_path_style"`
}

type GCSConfig struct {
	Bucket          string `yaml:"bucket"`
	Prefix          string `yaml:"prefix"`
	CredentialsFile string `yaml:"credentials_file" env:"GOOGLE_APPLICATION_CREDENTIALS"`
	UserProject     string `yaml:"user_project"`
}

type MetricsConfig struct {
	// Textfile receives the job's metrics in the node_exporter textfile
	// format once the job is done.
	Textfile string `yaml:"textfile" env:"STREAMPACK_METRICS_TEXTFILE"`
}

func Default() *Config {
	return &Config{
		Log:    LogConfig{Level: "info"},
		FFmpeg: FFmpegConfig{HWAccel: "none"},
		Export: ExportConfig{Format: "hls", Analyse: true},
	}
}

// Load reads the YAML job at path over the defaults and then applies the
// environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := applyEnv(cfg); err != nil {
		return nil, fmt.Errorf("config environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	sources := 0
	for _, set := range []bool{c.Source.Path != "", c.Source.URL != "", c.Source.S3 != nil, c.Source.GCS != nil} {
		if set {
			sources++
		}
	}
	if sources != 1 {
		errs = append(errs, errors.New("source: exactly one of path, url, s3 or gcs is required"))
	}

	switch c.Export.Format {
	case "hls", "dash":
	default:
		errs = append(errs, fmt.Errorf("export.format: unknown format %q", c.Export.Format))
	}

	switch c.Publish.Target {
	case TargetNone:
	case TargetHTTP:
		if c.Publish.HTTP.URL == "" {
			errs = append(errs, errors.New("publish.http.url is required"))
		}
	case TargetS3:
		if c.Publish.S3.Bucket == "" {
			errs = append(errs, errors.New("publish.s3.bucket is required"))
		}
	case TargetGCS:
		if c.Publish.GCS.Bucket == "" {
			errs = append(errs, errors.New("publish.gcs.bucket is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("publish.target: unknown target %q", c.Publish.Target))
	}

	if len(c.Export.Heights) > 0 && len(c.Export.Representations) > 0 {
		errs = append(errs, errors.New("export: heights and representations are mutually exclusive"))
	}

	return errors.Join(errs...)
}
