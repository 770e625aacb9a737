// Package logging builds the root hclog logger of the command.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/hashicorp/go-hclog"
)

// New returns a logger named streampack at level. An empty level is info.
func New(level string, json bool, w io.Writer) (hclog.Logger, error) {
	lvl := hclog.Info
	if level != "" {
		lvl = hclog.LevelFromString(level)
		if lvl == hclog.NoLevel {
			return nil, fmt.Errorf("unknown log level %q", level)
		}
	}
	if w == nil {
		w = os.Stderr
	}

	return hclog.New(&hclog.LoggerOptions{
		Name:       "streampack",
		Level:      lvl,
		Output:     w,
		JSONFormat: json,
	}), nil
}
