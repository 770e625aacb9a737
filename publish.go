package streampack

import (
	"context"
	"errors"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/eleven-am/streampack/internal/store"
	"github.com/eleven-am/streampack/internal/workspace"
)

// Destination receives the artifact directory of a publish.
type Destination interface {
	Upload(ctx context.Context, localDir string) error
}

// StoreDestination uploads to Target on an ObjectStore.
type StoreDestination struct {
	Store  ObjectStore
	Target string
}

func (d StoreDestination) Upload(ctx context.Context, localDir string) error {
	return d.Store.UploadDirectory(ctx, localDir, d.Target)
}

// CloudConfig describes a generic HTTP upload endpoint. Every file is sent
// as a multipart form part named Field.
type CloudConfig struct {
	URL     string
	Method  string
	Field   string
	Headers map[string]string
}

// Publish saves into a fresh temporary workspace, uploads the workspace to
// dest and then moves it into the directory of p, or deletes it when p is
// empty. The move or delete happens whether or not the upload succeeded. The
// returned error joins the upload error with a failed move. When no local
// copy is left the export's directory and manifest path are cleared.
func (e *Export) Publish(ctx context.Context, dest Destination, p string, analyse bool) (*Result, error) {
	if err := e.variant.CloudPublishable(); err != nil {
		return nil, newExportError("publish", err)
	}

	packager := e.media.packager

	basename := uuid.NewString()
	if p != "" {
		basename = filepath.Base(p)
	}

	ws, err := workspace.TempDir()
	if err != nil {
		return nil, newExportError("publish", err)
	}
	logger := e.logger.With("workspace", ws)

	res, err := e.Save(ctx, filepath.Join(ws, basename), analyse)
	if err != nil {
		e.discard(ws)
		return nil, err
	}

	if err := workspace.WaitStable(ctx, ws, packager.opts.Stable); err != nil {
		logger.Warn("workspace did not settle before upload", "error", err)
	}

	uploadErr := dest.Upload(ctx, ws)
	if uploadErr != nil {
		logger.Error("upload failed", "error", uploadErr)
	}

	var moveErr error
	if p != "" {
		dir := filepath.Dir(p)
		if moveErr = workspace.MoveDir(ws, dir); moveErr != nil {
			logger.Error("move to local copy failed", "dir", dir, "error", moveErr)
			e.discard(ws)
			e.detach(res)
		} else {
			e.relocate(dir)
			if res.Report != nil {
				res.Report.ManifestPath = e.ManifestPath()
			}
			logger.Info("local copy kept", "dir", dir)
		}
	} else {
		e.discard(ws)
		e.detach(res)
	}

	return res, errors.Join(uploadErr, moveErr)
}

// SaveToCloud publishes to a generic HTTP endpoint.
func (e *Export) SaveToCloud(ctx context.Context, cfg CloudConfig, p string, analyse bool) (*Result, error) {
	h := store.NewHTTP(cfg.URL, cfg.Method, cfg.Headers, e.media.packager.logger)
	return e.Publish(ctx, e.observed(h, "http", cfg.Field), p, analyse)
}

// SaveToS3 publishes under dest, a key prefix in cfg.Bucket or an
// s3://bucket/prefix URI. Every uploaded object is verified.
func (e *Export) SaveToS3(ctx context.Context, cfg S3Config, dest, p string, analyse bool) (*Result, error) {
	if err := e.variant.CloudPublishable(); err != nil {
		return nil, newExportError("publish", err)
	}
	s, err := store.NewS3(ctx, cfg, e.media.packager.logger)
	if err != nil {
		return nil, newExportError("publish", err)
	}
	return e.Publish(ctx, e.observed(s.Verifying(), "s3", dest), p, analyse)
}

// SaveToGCS publishes under the object prefix in cfg.Bucket.
func (e *Export) SaveToGCS(ctx context.Context, cfg GCSConfig, prefix, p string, analyse bool) (*Result, error) {
	if err := e.variant.CloudPublishable(); err != nil {
		return nil, newExportError("publish", err)
	}
	g, err := store.NewGCS(ctx, cfg, e.media.packager.logger)
	if err != nil {
		return nil, newExportError("publish", err)
	}
	defer g.Close()

	return e.Publish(ctx, e.observed(g, "gcs", prefix), p, analyse)
}

func (e *Export) observed(s ObjectStore, name, target string) StoreDestination {
	packager := e.media.packager
	return StoreDestination{
		Store:  store.NewObserved(s, name, packager.metrics, packager.logger),
		Target: target,
	}
}

func (e *Export) discard(ws string) {
	if err := workspace.RemoveDir(ws); err != nil {
		e.media.packager.reportCleanup(CleanupWorkspace, ws, err)
	}
}
