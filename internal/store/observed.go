package store

import (
	"context"
	"time"

	"github.com/eleven-am/streampack/internal/domain"
	"github.com/eleven-am/streampack/internal/metrics"
	"github.com/hashicorp/go-hclog"
)

// Observed wraps an ObjectStore and reports every upload to the logger and
// the upload collectors.
type Observed struct {
	store   domain.ObjectStore
	name    string
	metrics *metrics.Metrics
	logger  hclog.Logger
}

func NewObserved(store domain.ObjectStore, name string, m *metrics.Metrics, logger hclog.Logger) *Observed {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	if m == nil {
		m = metrics.New(nil)
	}
	return &Observed{
		store:   store,
		name:    name,
		metrics: m,
		logger:  logger,
	}
}

func (o *Observed) UploadDirectory(ctx context.Context, localDir string, dest string) error {
	start := time.Now()
	err := o.store.UploadDirectory(ctx, localDir, dest)
	elapsed := time.Since(start)

	o.metrics.Uploads.WithLabelValues(o.name, metrics.Result(err)).Inc()
	o.metrics.UploadDuration.WithLabelValues(o.name).Observe(elapsed.Seconds())

	if err != nil {
		o.logger.Error("upload failed", "store", o.name, "dir", localDir, "dest", dest, "error", err)
		return err
	}

	o.logger.Info("upload complete", "store", o.name, "dest", dest, "elapsed", elapsed)
	return nil
}
