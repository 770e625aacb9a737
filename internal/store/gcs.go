package store

import (
	"context"
	"fmt"
	"io"
	"os"

	"cloud.google.com/go/storage"
	"github.com/hashicorp/go-hclog"
	"google.golang.org/api/option"
)

type GCSConfig struct {
	Bucket          string
	CredentialsFile string
	UserProject     string
}

type objectWriterFunc func(ctx context.Context, object string, contentType string) io.WriteCloser

type objectReaderFunc func(ctx context.Context, object string) (io.ReadCloser, error)

// GCS publishes artifact directories to a Google Cloud Storage bucket. The
// destination of UploadDirectory is an object name prefix.
type GCS struct {
	bucket    string
	newWriter objectWriterFunc
	newReader objectReaderFunc
	close     func() error
	logger    hclog.Logger
}

func NewGCS(ctx context.Context, cfg GCSConfig, logger hclog.Logger) (*GCS, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}

	handle := client.Bucket(cfg.Bucket)
	if cfg.UserProject != "" {
		handle = handle.UserProject(cfg.UserProject)
	}

	g := newGCS(cfg.Bucket,
		func(ctx context.Context, object, ct string) io.WriteCloser {
			w := handle.Object(object).NewWriter(ctx)
			w.ContentType = ct
			return w
		},
		func(ctx context.Context, object string) (io.ReadCloser, error) {
			return handle.Object(object).NewReader(ctx)
		},
		logger,
	)
	g.close = client.Close
	return g, nil
}

func newGCS(bucket string, w objectWriterFunc, r objectReaderFunc, logger hclog.Logger) *GCS {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &GCS{
		bucket:    bucket,
		newWriter: w,
		newReader: r,
		close:     func() error { return nil },
		logger:    logger.Named("gcs-store"),
	}
}

func (g *GCS) UploadDirectory(ctx context.Context, localDir string, dest string) error {
	files, err := walkFiles(localDir)
	if err != nil {
		return err
	}

	for _, f := range files {
		object := objectKey(dest, f.rel)
		if err := g.put(ctx, object, f); err != nil {
			return err
		}
		g.logger.Debug("uploaded object", "bucket", g.bucket, "object", object, "bytes", f.size)
	}
	return nil
}

func (g *GCS) put(ctx context.Context, object string, f localFile) error {
	file, err := os.Open(f.path)
	if err != nil {
		return fmt.Errorf("open %s: %w", f.rel, err)
	}
	defer file.Close()

	w := g.newWriter(ctx, object, contentType(f.rel))
	if _, err := io.Copy(w, file); err != nil {
		w.Close()
		return fmt.Errorf("write gs://%s/%s: %w", g.bucket, object, err)
	}
	// the object is only committed on Close
	if err := w.Close(); err != nil {
		return fmt.Errorf("write gs://%s/%s: %w", g.bucket, object, err)
	}
	return nil
}

func (g *GCS) Download(ctx context.Context, src string, dst string) error {
	r, err := g.newReader(ctx, src)
	if err != nil {
		return fmt.Errorf("read gs://%s/%s: %w", g.bucket, src, err)
	}
	defer r.Close()

	return writeFile(dst, r)
}

func (g *GCS) Close() error {
	return g.close()
}
