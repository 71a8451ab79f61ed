// Package describe produces a timestamped transcript for a video, preferring
// platform captions and falling back to frame-by-frame visual analysis.
package describe

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"thirdcoast.systems/gifmoments/internal/media"
	"thirdcoast.systems/gifmoments/pkg/ffmpeg"
	"thirdcoast.systems/gifmoments/pkg/utils/language"
)

const sceneThreshold = 0.3

// Default time limits for the external calls made while describing.
const (
	DefaultCaptionTimeout = time.Minute
	DefaultFrameTimeout   = 45 * time.Second
	DefaultSceneTimeout   = 2 * time.Minute
)

var errNoCaptions = errors.New("no captions available")

// CaptionFetcher downloads WebVTT subtitles and returns the written files.
type CaptionFetcher interface {
	WriteSubtitles(ctx context.Context, url string, destDir string, langs ...string) ([]string, error)
}

// Vision describes a single JPEG frame.
type Vision interface {
	DescribeImage(ctx context.Context, jpeg []byte, instruction string) (string, error)
}

// MediaTools extracts frames and detects scene changes.
type MediaTools interface {
	ExtractFrame(ctx context.Context, input, output string, at time.Duration, width int) error
	DetectScenes(ctx context.Context, input string, threshold float64) ([]float64, error)
}

// FFmpegTools implements MediaTools with the ffmpeg binary.
type FFmpegTools struct{}

func (FFmpegTools) ExtractFrame(ctx context.Context, input, output string, at time.Duration, width int) error {
	return ffmpeg.ExtractFrame(ctx, input, output, at, width)
}

func (FFmpegTools) DetectScenes(ctx context.Context, input string, threshold float64) ([]float64, error) {
	return ffmpeg.DetectScenes(ctx, input, threshold)
}

// Input is one description request.
type Input struct {
	Path      string
	Reference media.Reference
	Duration  float64
	Prompt    string
	// WorkDir holds scratch files; it defaults to the system temp dir.
	WorkDir string
}

type Describer struct {
	captions CaptionFetcher
	vision   Vision
	tools    MediaTools
	language language.Tag
	workers  int

	captionTimeout time.Duration
	frameTimeout   time.Duration
	sceneTimeout   time.Duration
}

type Option func(*Describer)

func WithCaptions(c CaptionFetcher) Option { return func(d *Describer) { d.captions = c } }

func WithVision(v Vision) Option { return func(d *Describer) { d.vision = v } }

func WithTools(t MediaTools) Option { return func(d *Describer) { d.tools = t } }

func WithLanguage(t language.Tag) Option { return func(d *Describer) { d.language = t } }

func WithWorkers(n int) Option {
	return func(d *Describer) {
		if n > 0 {
			d.workers = n
		}
	}
}

// WithCaptionTimeout bounds the caption download.
func WithCaptionTimeout(t time.Duration) Option {
	return func(d *Describer) {
		if t > 0 {
			d.captionTimeout = t
		}
	}
}

// WithFrameTimeout bounds extracting and describing one frame.
func WithFrameTimeout(t time.Duration) Option {
	return func(d *Describer) {
		if t > 0 {
			d.frameTimeout = t
		}
	}
}

// WithSceneTimeout bounds scene detection over the whole video.
func WithSceneTimeout(t time.Duration) Option {
	return func(d *Describer) {
		if t > 0 {
			d.sceneTimeout = t
		}
	}
}

func New(opts ...Option) *Describer {
	en, _ := language.Parse("en")
	d := &Describer{
		tools:          FFmpegTools{},
		language:       en,
		workers:        3,
		captionTimeout: DefaultCaptionTimeout,
		frameTimeout:   DefaultFrameTimeout,
		sceneTimeout:   DefaultSceneTimeout,
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Describe never fails: when captions and visual analysis both come up empty
// it returns FallbackTranscript(duration).
func (d *Describer) Describe(ctx context.Context, in Input) media.Transcript {
	duration := in.Duration
	if !validDuration(duration) {
		duration = media.DefaultVideoInfo().DurationSeconds
	}

	scratch, err := os.MkdirTemp(in.WorkDir, "describe-")
	if err != nil {
		slog.WarnContext(ctx, "cannot create describe scratch dir, using fallback transcript", "error", err)
		return FallbackTranscript(duration)
	}
	defer func() {
		if err := os.RemoveAll(scratch); err != nil {
			slog.WarnContext(ctx, "failed to remove describe scratch dir", "dir", scratch, "error", err)
		}
	}()

	if in.Reference.IsRemote() && d.captions != nil {
		t, err := d.fromCaptions(ctx, in.Reference.URL, scratch, duration)
		if err == nil {
			slog.InfoContext(ctx, "transcript from captions", "segments", len(t.Segments))
			return t
		}
		slog.InfoContext(ctx, "captions unavailable, analysing frames", "error", err)
	}

	if d.tools != nil && in.Path != "" {
		t, err := d.fromFrames(ctx, in.Path, scratch, duration, in.Prompt)
		if err == nil {
			slog.InfoContext(ctx, "transcript from visual analysis", "segments", len(t.Segments))
			return t
		}
		slog.WarnContext(ctx, "visual analysis failed, using fallback transcript", "error", err)
	}

	return FallbackTranscript(duration)
}

func (d *Describer) fromFrames(ctx context.Context, path, scratch string, duration float64, prompt string) (media.Transcript, error) {
	timestamps := FrameTimestamps(duration)
	frames, err := d.describeFrames(ctx, path, scratch, timestamps, frameInstructionFor(prompt))
	if err != nil {
		return media.Transcript{}, err
	}

	sceneCtx, cancel := context.WithTimeout(ctx, d.sceneTimeout)
	scenes, err := d.tools.DetectScenes(sceneCtx, path, sceneThreshold)
	cancel()
	if err != nil {
		slog.WarnContext(ctx, "scene detection failed, using frame boundaries only", "error", err)
		scenes = nil
	}

	segments := buildVisualSegments(duration, scenes, frames)
	slog.DebugContext(ctx, "visual segments built", "frames", len(frames), "scenes", len(scenes), "segments", len(segments))
	return media.NewTranscript(media.SourceVisualAnalysis, segments), nil
}
