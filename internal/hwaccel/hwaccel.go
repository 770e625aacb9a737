// Package hwaccel picks the video encoder profile used for every
// representation of an export.
package hwaccel

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/eleven-am/streampack/internal/domain"
)

// Auto asks Resolve to probe the local ffmpeg build.
const Auto = "auto"

var priority = []domain.Accelerator{
	domain.AccelCUDA,
	domain.AccelQSV,
	domain.AccelVideoToolbox,
	domain.AccelVAAPI,
}

var encoders = map[domain.Accelerator]string{
	domain.AccelCUDA:         "h264_nvenc",
	domain.AccelQSV:          "h264_qsv",
	domain.AccelVideoToolbox: "h264_videotoolbox",
	domain.AccelVAAPI:        "h264_vaapi",
	domain.AccelNone:         "libx264",
}

// Resolve returns the profile for name, which is either an accelerator
// name or Auto. Detection failures fall back to software encoding.
func Resolve(ctx context.Context, name string) (*domain.HWAccelConfig, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", string(domain.AccelNone):
		return NewConfig(domain.AccelNone), nil
	case Auto:
		available, err := Detect(ctx)
		if err != nil {
			return NewConfig(domain.AccelNone), nil
		}
		return NewConfig(Select(available)), nil
	}

	accel := domain.Accelerator(strings.ToLower(name))
	if _, ok := encoders[accel]; !ok {
		return nil, fmt.Errorf("unknown accelerator %q", name)
	}
	return NewConfig(accel), nil
}

// Detect lists the accelerators for which ffmpeg reports both the hwaccel
// method and the matching h264 encoder. AccelNone is always last.
func Detect(ctx context.Context) ([]domain.Accelerator, error) {
	methods, err := ffmpegList(ctx, "-hwaccels")
	if err != nil {
		return nil, err
	}

	encoderList, err := ffmpegList(ctx, "-encoders")
	if err != nil {
		return nil, err
	}

	var available []domain.Accelerator
	for _, accel := range priority {
		if !methods[string(accel)] {
			continue
		}
		if !encoderList[encoders[accel]] {
			continue
		}
		available = append(available, accel)
	}

	return append(available, domain.AccelNone), nil
}

func Select(available []domain.Accelerator) domain.Accelerator {
	for _, accel := range priority {
		for _, a := range available {
			if a == accel {
				return accel
			}
		}
	}
	return domain.AccelNone
}

func NewConfig(accel domain.Accelerator) *domain.HWAccelConfig {
	cfg := &domain.HWAccelConfig{
		Accelerator: accel,
		Encoder:     encoders[accel],
		ScaleFilter: "scale=%d:%d",
	}

	switch accel {
	case domain.AccelCUDA:
		cfg.DecodeFlags = []string{"-hwaccel", "cuda", "-hwaccel_output_format", "cuda"}
		cfg.EncoderArgs = []string{"-preset", "p4"}
		cfg.ScaleFilter = "scale_cuda=%d:%d:format=nv12"
	case domain.AccelQSV:
		cfg.DecodeFlags = []string{"-hwaccel", "qsv", "-hwaccel_output_format", "qsv"}
		cfg.EncoderArgs = []string{"-preset", "medium"}
		cfg.ScaleFilter = "scale_qsv=%d:%d:format=nv12"
	case domain.AccelVideoToolbox:
		cfg.DecodeFlags = []string{"-hwaccel", "videotoolbox"}
	case domain.AccelVAAPI:
		cfg.DecodeFlags = []string{"-hwaccel", "vaapi", "-hwaccel_output_format", "vaapi", "-vaapi_device", "/dev/dri/renderD128"}
		cfg.ScaleFilter = "scale_vaapi=%d:%d:format=nv12"
	default:
		cfg.Accelerator = domain.AccelNone
		cfg.Encoder = encoders[domain.AccelNone]
		cfg.EncoderArgs = []string{"-preset", "medium", "-profile:v", "high"}
	}

	return cfg
}

// ffmpegList runs ffmpeg with a listing flag and collects every token that
// looks like a method or encoder name.
func ffmpegList(ctx context.Context, flag string) (map[string]bool, error) {
	out, err := exec.CommandContext(ctx, "ffmpeg", "-hide_banner", flag).Output()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg %s: %w", flag, err)
	}

	result := make(map[string]bool)
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		for _, field := range strings.Fields(scanner.Text()) {
			result[field] = true
		}
	}
	return result, nil
}
