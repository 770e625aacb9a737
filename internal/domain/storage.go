package domain

import "context"

// ObjectStore moves a finished artifact directory to a remote location.
type ObjectStore interface {
	UploadDirectory(ctx context.Context, localDir string, dest string) error
}

// Downloader fetches a remote object into a local file.
type Downloader interface {
	Download(ctx context.Context, src string, dst string) error
}
