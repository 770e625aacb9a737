package probe

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/eleven-am/streampack/internal/domain"
)

// Analyzer builds a report for a finished export: source metadata plus the
// files the export produced.
type Analyzer struct {
	prober domain.Prober
	logger hclog.Logger
	now    func() time.Time
}

func NewAnalyzer(prober domain.Prober, logger hclog.Logger) *Analyzer {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Analyzer{prober: prober, logger: logger.Named("analyzer"), now: time.Now}
}

func (a *Analyzer) Analyze(ctx context.Context, target domain.Target) (*domain.Report, error) {
	source, err := a.prober.Probe(ctx, target.SourcePath())
	if err != nil {
		return nil, fmt.Errorf("probe source: %w", err)
	}

	info := target.PathInfo()
	files, total, err := Artifacts(info.Dir, info.Filename)
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}

	a.logger.Debug("analysed export", "manifest", target.ManifestPath(), "files", len(files), "bytes", total)

	return &domain.Report{
		Format:          target.Format(),
		ManifestPath:    target.ManifestPath(),
		Source:          source,
		Representations: target.Representations(),
		Files:           files,
		TotalSize:       total,
		CreatedAt:       a.now().UTC(),
	}, nil
}

// Artifacts lists the files under dir whose name starts with filename
// followed by "." or "_". Names are relative to dir with forward slashes.
func Artifacts(dir, filename string) ([]domain.ArtifactFile, int64, error) {
	var (
		files []domain.ArtifactFile
		total int64
	)

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !belongs(d.Name(), filename) {
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}

		files = append(files, domain.ArtifactFile{Name: filepath.ToSlash(rel), Size: fi.Size()})
		total += fi.Size()
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, total, nil
}

func belongs(name, filename string) bool {
	rest, ok := strings.CutPrefix(name, filename)
	return ok && (strings.HasPrefix(rest, ".") || strings.HasPrefix(rest, "_"))
}
