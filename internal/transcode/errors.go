package transcode

import (
	"fmt"
	"strings"
)

// Error is returned when the encoder exits unsuccessfully. Code is the
// process exit code, or -1 when the process never ran.
type Error struct {
	Code    int
	Message string
	Stderr  string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("ffmpeg exited with code %d: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// lastLine picks the most useful line of ffmpeg's stderr, which is normally
// the final non-empty one.
func lastLine(stderr string) string {
	lines := strings.Split(strings.TrimSpace(stderr), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}
