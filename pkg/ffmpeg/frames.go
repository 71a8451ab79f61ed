package ffmpeg

import (
	"context"
	"regexp"
	"sort"
	"strconv"
	"time"
)

// FrameCommand extracts a single JPEG frame at offset, scaled to width.
func FrameCommand(input, output string, at time.Duration, width int) *Command {
	if width <= 0 {
		width = 512
	}
	return NewCommand(input, output,
		LogLevel("error"),
		Seek(at),
		Frames(1),
		Quality(4),
		ScaleWidth(width),
	)
}

// ExtractFrame writes one frame at offset to output.
func ExtractFrame(ctx context.Context, input, output string, at time.Duration, width int) error {
	return FrameCommand(input, output, at, width).Run(ctx)
}

// SceneCommand runs scene-change detection, discarding output. The detected
// timestamps are printed by showinfo on stderr.
func SceneCommand(input string, threshold float64) *Command {
	return NewCommand(input, "-",
		LogLevel("info"),
		NoAudio,
		Filter(SceneSelectFilter(threshold)),
		Format("null"),
	)
}

// DetectScenes returns the timestamps, in seconds, where the picture changes by
// more than threshold (0..1).
func DetectScenes(ctx context.Context, input string, threshold float64) ([]float64, error) {
	stderr, err := SceneCommand(input, threshold).RunCapture(ctx)
	if err != nil {
		return nil, err
	}
	return ParseSceneTimes(stderr), nil
}

var ptsTimeRe = regexp.MustCompile(`pts_time:\s*([0-9]+(?:\.[0-9]+)?)`)

// ParseSceneTimes extracts sorted, unique pts_time values from showinfo output.
func ParseSceneTimes(stderr string) []float64 {
	seen := map[float64]bool{}
	var out []float64
	for _, m := range ptsTimeRe.FindAllStringSubmatch(stderr, -1) {
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	sort.Float64s(out)
	return out
}
