package rendition

import (
	"errors"
	"fmt"
	"sort"

	"github.com/eleven-am/streampack/internal/domain"
)

var (
	ErrEmptyLadder = errors.New("representation ladder is empty")
	ErrLadderOrder = errors.New("representations must be sorted by ascending height")
)

type bounds struct {
	min int
	max int
}

// DefaultHeights is the ladder used when the caller does not pick heights.
var DefaultHeights = []int{360, 480, 720, 1080, 1440, 2160}

var bitrateBounds = map[int]bounds{
	2160: {min: 8000000, max: 20000000},
	1440: {min: 4000000, max: 12000000},
	1080: {min: 2000000, max: 8000000},
	720:  {min: 1000000, max: 4000000},
	480:  {min: 500000, max: 2000000},
	360:  {min: 300000, max: 1000000},
}

// Validate checks the ladder contract relied on when naming the HLS
// top-level playlist after the last representation.
func Validate(reps []domain.Representation) error {
	if len(reps) == 0 {
		return ErrEmptyLadder
	}

	for i, r := range reps {
		if r.Width <= 0 || r.Height <= 0 {
			return fmt.Errorf("representation %d: invalid resolution %s", i, r.Resolution())
		}
		if r.Bitrate <= 0 {
			return fmt.Errorf("representation %s: bitrate must be positive", r.Name())
		}
		if i > 0 && r.Height <= reps[i-1].Height {
			return fmt.Errorf("%w: %s follows %s", ErrLadderOrder, r.Name(), reps[i-1].Name())
		}
	}
	return nil
}

// Generate derives an ascending ladder from the source video stream. Heights
// above the source are skipped; a source smaller than every requested
// height yields a single representation at the source resolution.
func Generate(video domain.VideoStream, heights ...int) []domain.Representation {
	if len(heights) == 0 {
		heights = DefaultHeights
	}
	if video.Width <= 0 || video.Height <= 0 {
		return nil
	}

	targets := append([]int(nil), heights...)
	sort.Ints(targets)

	srcBitrate := video.Bitrate
	if srcBitrate <= 0 {
		srcBitrate = estimateBitrate(video.Height)
	}
	srcPixels := video.Width * video.Height

	var reps []domain.Representation
	seen := make(map[int]bool)
	for _, h := range targets {
		if h > video.Height || h <= 0 || seen[h] {
			continue
		}
		seen[h] = true
		reps = append(reps, build(video, h, srcBitrate, srcPixels))
	}

	if len(reps) == 0 {
		reps = append(reps, build(video, video.Height, srcBitrate, srcPixels))
	}

	return reps
}

func build(video domain.VideoStream, height, srcBitrate, srcPixels int) domain.Representation {
	width := calculateWidth(video.Width, video.Height, height)
	ratio := float64(width*height) / float64(srcPixels)
	bitrate := clampBitrate(height, int(float64(srcBitrate)*ratio))

	return domain.Representation{
		Width:        width,
		Height:       height,
		Bitrate:      bitrate,
		AudioBitrate: audioBitrate(height),
		MaxRate:      int(float64(bitrate) * 1.5),
		BufSize:      bitrate * 2,
	}
}

func calculateWidth(srcWidth, srcHeight, targetHeight int) int {
	aspectRatio := float64(srcWidth) / float64(srcHeight)
	width := int(float64(targetHeight) * aspectRatio)
	if width%2 != 0 {
		width++
	}
	return width
}

func clampBitrate(height, bitrate int) int {
	b, ok := bitrateBounds[height]
	if !ok {
		return bitrate
	}
	if bitrate < b.min {
		return b.min
	}
	if bitrate > b.max {
		return b.max
	}
	return bitrate
}

func estimateBitrate(height int) int {
	switch {
	case height >= 2160:
		return 15000000
	case height >= 1080:
		return 5000000
	case height >= 720:
		return 2500000
	case height >= 480:
		return 1200000
	default:
		return 800000
	}
}

func audioBitrate(height int) int {
	switch {
	case height >= 1080:
		return 192000
	case height >= 480:
		return 128000
	default:
		return 96000
	}
}
