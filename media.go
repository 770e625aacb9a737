package streampack

import (
	"context"
	"fmt"
	"os"
	"path"
	"sync"

	"github.com/eleven-am/streampack/internal/domain"
	"github.com/eleven-am/streampack/internal/store"
	"github.com/eleven-am/streampack/internal/workspace"
)

// Media is an opened source file.
type Media struct {
	packager *Packager
	path     string
	tmp      bool

	mu       sync.Mutex
	filter   domain.Filter
	metadata *Metadata

	removeOnce sync.Once
	removeErr  error
}

// Open returns the media at p. A tmp media is deleted once an export has
// consumed it.
func (p *Packager) Open(file string, tmp bool) (*Media, error) {
	fi, err := os.Stat(file)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", file, err)
	}
	if !fi.Mode().IsRegular() {
		return nil, fmt.Errorf("open %s: %w", file, ErrNotFile)
	}

	return &Media{packager: p, path: file, tmp: tmp}, nil
}

// FromURL downloads url to saveTo, or to a temporary file when saveTo is
// empty, and opens it.
func (p *Packager) FromURL(ctx context.Context, url, saveTo string, headers map[string]string) (*Media, error) {
	h := store.NewHTTP("", "GET", headers, p.logger)
	return p.download(ctx, h, url, path.Ext(store.FilenameFromURL(url)), saveTo)
}

// FromS3 downloads bucket/key and opens it.
func (p *Packager) FromS3(ctx context.Context, cfg S3Config, bucket, key, saveTo string) (*Media, error) {
	s, err := store.NewS3(ctx, cfg, p.logger)
	if err != nil {
		return nil, err
	}
	return p.download(ctx, s, "s3://"+bucket+"/"+key, path.Ext(key), saveTo)
}

// FromGCS downloads the object name from cfg.Bucket and opens it.
func (p *Packager) FromGCS(ctx context.Context, cfg GCSConfig, name, saveTo string) (*Media, error) {
	g, err := store.NewGCS(ctx, cfg, p.logger)
	if err != nil {
		return nil, err
	}
	defer g.Close()

	return p.download(ctx, g, name, path.Ext(name), saveTo)
}

func (p *Packager) download(ctx context.Context, d domain.Downloader, src, ext, saveTo string) (*Media, error) {
	dst, tmp := saveTo, false
	if dst == "" {
		f, err := workspace.TempFile(ext)
		if err != nil {
			return nil, err
		}
		dst, tmp = f, true
	}

	if err := d.Download(ctx, src, dst); err != nil {
		if tmp {
			if rmErr := workspace.RemoveFile(dst); rmErr != nil {
				p.reportCleanup(CleanupSource, dst, rmErr)
			}
		}
		return nil, err
	}
	p.logger.Debug("source downloaded", "src", src, "path", dst, "tmp", tmp)

	return p.Open(dst, tmp)
}

func (m *Media) Path() string { return m.path }

func (m *Media) IsTemp() bool { return m.tmp }

// Filter returns the filter attached by the most recent save.
func (m *Media) Filter() domain.Filter {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.filter
}

// setFilter replaces any previously attached filter.
func (m *Media) setFilter(f domain.Filter) {
	m.mu.Lock()
	m.filter = f
	m.mu.Unlock()
}

// Metadata probes the source once and caches the result.
func (m *Media) Metadata(ctx context.Context) (*Metadata, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.metadata != nil {
		return m.metadata, nil
	}
	meta, err := m.packager.opts.Prober.Probe(ctx, m.path)
	if err != nil {
		return nil, err
	}
	m.metadata = meta
	return meta, nil
}

func (m *Media) encode(ctx context.Context, f Format, output string) error {
	return m.packager.opts.Transcoder.Encode(ctx, m.path, f, m.Filter(), output)
}

// Close deletes a temporary source that no export consumed. It is a no-op
// for other media and after the source is already gone.
func (m *Media) Close() error {
	if !m.tmp {
		return nil
	}
	return m.remove()
}

// remove deletes the source at most once and reports a failure.
func (m *Media) remove() error {
	m.removeOnce.Do(func() {
		m.removeErr = workspace.RemoveFile(m.path)
		if m.removeErr != nil {
			m.packager.reportCleanup(CleanupSource, m.path, m.removeErr)
		}
	})
	return m.removeErr
}
