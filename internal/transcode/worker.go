// Package transcode runs ffmpeg for an export.
package transcode

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/eleven-am/streampack/internal/domain"
)

const maxStderr = 64 * 1024

// FFmpeg implements domain.Transcoder. Encode blocks until the process has
// exited, so every output file is closed by the time it returns.
type FFmpeg struct {
	binary string
	logger hclog.Logger
}

func NewFFmpeg(binary string, logger hclog.Logger) *FFmpeg {
	if binary == "" {
		binary = "ffmpeg"
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &FFmpeg{binary: binary, logger: logger.Named("ffmpeg")}
}

func (f *FFmpeg) Args(input string, filter domain.Filter, output string) []string {
	args := []string{"-y", "-nostdin", "-hide_banner", "-loglevel", "warning"}
	args = append(args, filter.InputArgs...)
	args = append(args, "-i", input)
	args = append(args, filter.Args...)
	return append(args, output)
}

func (f *FFmpeg) Encode(ctx context.Context, input string, format domain.Format, filter domain.Filter, output string) error {
	args := f.Args(input, filter, output)

	cmd := exec.CommandContext(ctx, f.binary, args...)
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return &Error{Code: -1, Message: err.Error(), Err: err}
	}

	f.logger.Debug("starting encode", "format", format, "input", input, "output", output)
	start := time.Now()

	if err := cmd.Start(); err != nil {
		return &Error{Code: -1, Message: err.Error(), Err: err}
	}

	var buf tailBuffer
	f.drain(stderr, &buf)
	waitErr := cmd.Wait()

	if waitErr != nil {
		code := -1
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			code = exitErr.ExitCode()
		}
		if ctx.Err() != nil {
			waitErr = fmt.Errorf("%w: %w", ctx.Err(), waitErr)
		}

		message := lastLine(buf.String())
		if message == "" {
			message = waitErr.Error()
		}
		return &Error{Code: code, Message: message, Stderr: buf.String(), Err: waitErr}
	}

	f.logger.Debug("encode finished", "output", output, "elapsed", time.Since(start))
	return nil
}

func (f *FFmpeg) drain(r io.Reader, buf *tailBuffer) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		buf.WriteLine(line)
		if strings.TrimSpace(line) != "" {
			f.logger.Trace(line)
		}
	}
	if err := scanner.Err(); err != nil {
		f.logger.Debug("stderr scan stopped", "error", err)
	}
	// keep the pipe empty so the encoder never blocks on a full stderr
	_, _ = io.Copy(io.Discard, r)
}

// tailBuffer keeps the last maxStderr bytes of output.
type tailBuffer struct {
	b strings.Builder
}

func (t *tailBuffer) WriteLine(line string) {
	t.b.WriteString(line)
	t.b.WriteByte('\n')
	if t.b.Len() > maxStderr {
		s := t.b.String()
		t.b.Reset()
		t.b.WriteString(s[len(s)-maxStderr/2:])
	}
}

func (t *tailBuffer) String() string {
	return t.b.String()
}
