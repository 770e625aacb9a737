package workspace

import (
	"context"
	"fmt"
	"io/fs"
	"maps"
	"path/filepath"
	"time"
)

type fileState struct {
	size    int64
	modTime time.Time
}

// Snapshot records size and modification time of every file under dir.
type Snapshot map[string]fileState

func Take(dir string) (Snapshot, error) {
	snap := make(Snapshot)
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		snap[path] = fileState{size: fi.Size(), modTime: fi.ModTime()}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", dir, err)
	}
	return snap, nil
}

func (s Snapshot) Equal(other Snapshot) bool {
	return maps.Equal(s, other)
}

// StableOptions tunes WaitStable. Zero values use the defaults.
type StableOptions struct {
	Interval time.Duration
	Timeout  time.Duration
}

const (
	DefaultStableInterval = 100 * time.Millisecond
	DefaultStableTimeout  = 10 * time.Second
)

// WaitStable polls dir until two consecutive snapshots are identical, the
// timeout elapses, or ctx is done.
func WaitStable(ctx context.Context, dir string, opts StableOptions) error {
	if opts.Interval <= 0 {
		opts.Interval = DefaultStableInterval
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultStableTimeout
	}

	prev, err := Take(dir)
	if err != nil {
		return err
	}

	deadline := time.NewTimer(opts.Timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return fmt.Errorf("%s still changing after %s", dir, opts.Timeout)
		case <-ticker.C:
		}

		next, err := Take(dir)
		if err != nil {
			return err
		}
		if next.Equal(prev) {
			return nil
		}
		prev = next
	}
}
