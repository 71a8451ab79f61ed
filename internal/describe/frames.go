package describe

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"
	"thirdcoast.systems/gifmoments/pkg/ffmpeg"
	"thirdcoast.systems/gifmoments/pkg/utils/markdown"
)

const (
	// MaxFrames bounds how many frames are sent for description.
	MaxFrames = 12

	// PlaceholderDescription stands in for a frame the vision service could not describe.
	PlaceholderDescription = "A scene from the video"

	frameWidth        = 512
	maxInteriorFrames = 8
	longVideoSeconds  = 60.0
	longVideoStep     = 30.0
	maxDescription    = 240

	frameInstruction = "Describe what is happening in this video frame in one short sentence. " +
		"Mention people, actions, objects and any visible text. Plain text only."
)

// FrameTimestamps picks the seconds at which frames are sampled: the first and
// last second, up to eight proportional interior points, and one point every
// 30s for videos longer than a minute. The result is sorted, unique and holds
// at most MaxFrames entries.
func FrameTimestamps(duration float64) []float64 {
	if !validDuration(duration) {
		return []float64{0}
	}

	points := []float64{0, math.Max(0, duration-1)}
	n := int(math.Min(maxInteriorFrames, math.Floor(duration/10)))
	for i := 1; i <= n; i++ {
		points = append(points, duration*float64(i)/float64(n+1))
	}
	if duration > longVideoSeconds {
		for t := longVideoStep; t < duration; t += longVideoStep {
			points = append(points, t)
		}
	}

	sort.Float64s(points)
	uniq := points[:0]
	for _, p := range points {
		p = math.Round(p*100) / 100
		if len(uniq) == 0 || p-uniq[len(uniq)-1] >= 0.05 {
			uniq = append(uniq, p)
		}
	}
	return capEvenly(uniq, MaxFrames)
}

// capEvenly keeps max points spread across pts, always keeping both ends.
func capEvenly(pts []float64, max int) []float64 {
	if len(pts) <= max {
		return pts
	}
	out := make([]float64, 0, max)
	step := float64(len(pts)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		out = append(out, pts[int(math.Round(float64(i)*step))])
	}
	return out
}

type frameDescription struct {
	At   float64
	Text string
}

// describeFrames extracts and describes frames in a bounded worker pool. Frames
// that cannot be extracted are dropped; frames that cannot be described get
// PlaceholderDescription. It fails only if no frame could be extracted.
func (d *Describer) describeFrames(ctx context.Context, path, scratch string, timestamps []float64, instruction string) ([]frameDescription, error) {
	dir := filepath.Join(scratch, "frames")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	results := make([]*frameDescription, len(timestamps))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.workers)
	for i, at := range timestamps {
		g.Go(func() error {
			fctx, cancel := context.WithTimeout(gctx, d.frameTimeout)
			defer cancel()
			out := filepath.Join(dir, fmt.Sprintf("frame_%03d.jpg", i))
			if err := d.tools.ExtractFrame(fctx, path, out, ffmpeg.Seconds(at), frameWidth); err != nil {
				slog.DebugContext(fctx, "frame extraction failed", "at", at, "error", err)
				return nil
			}
			results[i] = &frameDescription{At: at, Text: d.describeFrame(fctx, out, at, instruction)}
			return nil
		})
	}
	_ = g.Wait()

	var frames []frameDescription
	for _, r := range results {
		if r != nil {
			frames = append(frames, *r)
		}
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("no frames could be extracted from %s", filepath.Base(path))
	}
	return frames, nil
}

func (d *Describer) describeFrame(ctx context.Context, framePath string, at float64, instruction string) string {
	if d.vision == nil {
		return PlaceholderDescription
	}
	data, err := os.ReadFile(framePath)
	if err != nil || len(data) == 0 {
		return PlaceholderDescription
	}
	text, err := d.vision.DescribeImage(ctx, data, instruction)
	if err != nil {
		slog.WarnContext(ctx, "frame description failed, using placeholder", "at", at, "error", err)
		return PlaceholderDescription
	}
	text = truncate(markdown.PlainText(text), maxDescription)
	if text == "" {
		return PlaceholderDescription
	}
	return text
}

// frameInstructionFor tells the vision service what the user is looking for.
func frameInstructionFor(prompt string) string {
	if p := strings.TrimSpace(prompt); p != "" {
		return frameInstruction + " The viewer is looking for: " + truncate(p, 200)
	}
	return frameInstruction
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max-1]) + "…"
}
