package domain

import (
	"context"
	"time"
)

// Transcoder encodes input into output using the given filter. Encode must
// not return before every output file has been closed by the encoder.
type Transcoder interface {
	Encode(ctx context.Context, input string, format Format, filter Filter, output string) error
}

type Prober interface {
	Probe(ctx context.Context, path string) (*Metadata, error)
}

// Target is the view of a finished export handed to an Analyzer.
type Target interface {
	SourcePath() string
	PathInfo() PathInfo
	ManifestPath() string
	Format() Format
	Representations() []Representation
}

type Analyzer interface {
	Analyze(ctx context.Context, target Target) (*Report, error)
}

type ArtifactFile struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

type Report struct {
	Format          Format           `json:"format"`
	ManifestPath    string           `json:"manifest_path"`
	Source          *Metadata        `json:"source"`
	Representations []Representation `json:"representations"`
	Files           []ArtifactFile   `json:"files"`
	TotalSize       int64            `json:"total_size"`
	CreatedAt       time.Time        `json:"created_at"`
}
