package streampack

import (
	"errors"
	"fmt"

	"github.com/eleven-am/streampack/internal/format"
	"github.com/eleven-am/streampack/internal/pathres"
	"github.com/eleven-am/streampack/internal/rendition"
)

var (
	// ErrPathRequired is returned when a temporary source is saved without
	// an output path. The source has been deleted by then.
	ErrPathRequired = pathres.ErrPathRequired

	// ErrLadderOrder is returned for a ladder that is not sorted strictly
	// ascending by height.
	ErrLadderOrder = rendition.ErrLadderOrder

	ErrEmptyLadder = rendition.ErrEmptyLadder

	// ErrCloudSubDirectory is returned when an HLS export with a segment
	// sub-directory is published.
	ErrCloudSubDirectory = format.ErrCloudSubDirectory

	ErrNotFile = errors.New("source is not a regular file")
)

// Cleanup operations passed to a CleanupHook.
const (
	CleanupSource    = "remove_source"
	CleanupWorkspace = "remove_workspace"
)

// CleanupHook observes best-effort cleanups that failed.
type CleanupHook func(op, path string, err error)

// ExportError is returned when a save or publish stage fails. Op names the
// stage and Code carries the encoder exit code when there is one.
type ExportError struct {
	Op      string
	Code    int
	Message string
	Err     error
}

func (e *ExportError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("streampack: %s (code %d): %s", e.Op, e.Code, e.Message)
	}
	return fmt.Sprintf("streampack: %s: %s", e.Op, e.Message)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}

func newExportError(op string, err error) *ExportError {
	return &ExportError{Op: op, Message: err.Error(), Err: err}
}
