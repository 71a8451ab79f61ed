// Package render encodes moments into captioned GIF artifacts.
package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/h2non/filetype"
	"thirdcoast.systems/gifmoments/internal/media"
	"thirdcoast.systems/gifmoments/pkg/ffmpeg"
)

var (
	ErrInvalidDuration = errors.New("moment duration must be within (0, 10] seconds")
	ErrSourceMissing   = errors.New("source video does not exist")
	ErrEmptyOutput     = errors.New("encoder produced no output")
	ErrNotGIF          = errors.New("encoder output is not a GIF")
)

// RenderError reports why one moment could not be rendered. Index is zero based.
type RenderError struct {
	Index  int
	Moment media.Moment
	Err    error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("moment %d (%.1fs-%.1fs): %v", e.Index+1, e.Moment.Start, e.Moment.End, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// Encoder turns a slice of the input into a GIF at output.
type Encoder interface {
	EncodeGIF(ctx context.Context, input, output string, opts ffmpeg.GIFOptions) error
}

// FFmpegEncoder implements Encoder with the ffmpeg binary.
type FFmpegEncoder struct{}

func (FFmpegEncoder) EncodeGIF(ctx context.Context, input, output string, opts ffmpeg.GIFOptions) error {
	return ffmpeg.EncodeGIF(ctx, input, output, opts)
}

// DefaultFontPaths are probed in order when no font is configured.
var DefaultFontPaths = []string{
	"/usr/share/fonts/truetype/dejavu/DejaVuSans-Bold.ttf",
	"/usr/share/fonts/TTF/DejaVuSans-Bold.ttf",
	"/usr/share/fonts/dejavu/DejaVuSans-Bold.ttf",
	"/usr/share/fonts/truetype/liberation/LiberationSans-Bold.ttf",
	"/usr/share/fonts/liberation/LiberationSans-Bold.ttf",
	"/Library/Fonts/Arial.ttf",
	"/System/Library/Fonts/Supplemental/Arial Bold.ttf",
	`C:\Windows\Fonts\arialbd.ttf`,
}

// ResolveFont returns configured if it is a readable file, otherwise the first
// existing candidate, otherwise "".
func ResolveFont(configured string, candidates []string) string {
	if configured != "" {
		if isFile(configured) {
			return configured
		}
		slog.Warn("configured caption font not found, probing system fonts", "font", configured)
	}
	for _, c := range candidates {
		if isFile(c) {
			return c
		}
	}
	return ""
}

func isFile(p string) bool {
	fi, err := os.Stat(p)
	return err == nil && fi.Mode().IsRegular()
}

// DefaultTimeout bounds a single encode.
const DefaultTimeout = 2 * time.Minute

type Renderer struct {
	encoder    Encoder
	outDir     string
	scratchDir string
	font       string
	width      int
	fps        float64
	timeout    time.Duration
}

type Option func(*Renderer)

func WithEncoder(e Encoder) Option { return func(r *Renderer) { r.encoder = e } }

// WithFont sets the caption font file. An empty path disables captions.
func WithFont(path string) Option { return func(r *Renderer) { r.font = path } }

// WithScratchDir sets where caption text files are written.
func WithScratchDir(dir string) Option { return func(r *Renderer) { r.scratchDir = dir } }

// WithTimeout bounds each encode. Non-positive values keep DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(r *Renderer) {
		if d > 0 {
			r.timeout = d
		}
	}
}

func WithSize(width int, fps float64) Option {
	return func(r *Renderer) {
		r.width, r.fps = width, fps
	}
}

// New returns a Renderer writing <uuid>.gif files to outDir. Without WithFont
// the font is resolved from DefaultFontPaths.
func New(outDir string, opts ...Option) *Renderer {
	r := &Renderer{
		encoder: FFmpegEncoder{},
		outDir:  outDir,
		font:    ResolveFont("", DefaultFontPaths),
		width:   480,
		fps:     10,
		timeout: DefaultTimeout,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// CaptionsEnabled reports whether a font is available for burned-in captions.
func (r *Renderer) CaptionsEnabled() bool { return r.font != "" }

// Render encodes one moment. index only labels errors and logs.
func (r *Renderer) Render(ctx context.Context, index int, source string, m media.Moment) (*media.Artifact, error) {
	fail := func(err error) (*media.Artifact, error) {
		return nil, &RenderError{Index: index, Moment: m, Err: err}
	}

	dur := m.Duration()
	if !(dur > 0 && dur <= media.MaxMomentSeconds) {
		return fail(fmt.Errorf("%w: got %.2fs", ErrInvalidDuration, dur))
	}
	if !isFile(source) {
		return fail(fmt.Errorf("%w: %s", ErrSourceMissing, source))
	}
	if err := os.MkdirAll(r.outDir, 0o755); err != nil {
		return fail(fmt.Errorf("create artifact dir: %w", err))
	}

	id := uuid.New()
	out := filepath.Join(r.outDir, id.String()+".gif")
	opts := ffmpeg.GIFOptions{
		Start:    ffmpeg.Seconds(m.Start),
		Duration: ffmpeg.Seconds(dur),
		Width:    r.width,
		FPS:      r.fps,
	}

	hasCaption := false
	if caption := strings.TrimSpace(m.Caption); caption != "" && r.font != "" {
		textFile, err := r.writeCaption(caption)
		if err != nil {
			slog.WarnContext(ctx, "cannot write caption file, rendering without caption", "index", index, "error", err)
		} else {
			defer os.Remove(textFile)
			opts.Caption = &ffmpeg.DrawTextFilter{
				TextFile: textFile,
				FontFile: r.font,
				FontSize: max(16, r.width/20),
			}
			hasCaption = true
		}
	}

	start := time.Now()
	slog.DebugContext(ctx, "rendering moment", "index", index, "start", m.Start, "end", m.End, "caption", hasCaption)
	encodeCtx, cancel := context.WithTimeout(ctx, r.timeout)
	err := r.encoder.EncodeGIF(encodeCtx, source, out, opts)
	cancel()
	if err != nil {
		_ = os.Remove(out)
		if errors.Is(encodeCtx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("encode timed out after %s: %w", r.timeout, err)
		}
		return fail(err)
	}

	fi, err := os.Stat(out)
	if err != nil || fi.Size() == 0 {
		_ = os.Remove(out)
		return fail(ErrEmptyOutput)
	}
	if kind, err := filetype.MatchFile(out); err != nil || kind.MIME.Value != "image/gif" {
		_ = os.Remove(out)
		return fail(ErrNotGIF)
	}

	slog.InfoContext(ctx, "rendered moment", "index", index, "id", id, "size", humanize.Bytes(uint64(fi.Size())), "elapsed", time.Since(start))
	return &media.Artifact{
		ID:         id,
		Path:       out,
		Caption:    m.Caption,
		Start:      m.Start,
		End:        m.End,
		SizeBytes:  fi.Size(),
		HasCaption: hasCaption,
		CreatedAt:  time.Now().UTC(),
	}, nil
}

func (r *Renderer) writeCaption(caption string) (string, error) {
	f, err := os.CreateTemp(r.scratchDir, "caption-*.txt")
	if err != nil {
		return "", err
	}
	if _, err := f.WriteString(wrapCaption(caption, 28)); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

// wrapCaption breaks text into lines of at most width runes at word
// boundaries. Words longer than width stay whole.
func wrapCaption(s string, width int) string {
	var lines []string
	var cur []rune
	for _, w := range strings.Fields(s) {
		wr := []rune(w)
		if len(cur) > 0 && len(cur)+1+len(wr) > width {
			lines = append(lines, string(cur))
			cur = nil
		}
		if len(cur) > 0 {
			cur = append(cur, ' ')
		}
		cur = append(cur, wr...)
	}
	if len(cur) > 0 {
		lines = append(lines, string(cur))
	}
	return strings.Join(lines, "\n")
}
