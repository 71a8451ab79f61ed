// Package acquire turns a video reference into a local media file, trying an
// ordered cascade of download strategies for remote sources.
package acquire

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"thirdcoast.systems/gifmoments/internal/media"
	"thirdcoast.systems/gifmoments/internal/videoid"
	"thirdcoast.systems/gifmoments/pkg/ffmpeg"
)

const (
	DefaultAttemptTimeout = 3 * time.Minute
	DefaultBackoffMin     = 500 * time.Millisecond
	DefaultBackoffMax     = 2 * time.Second

	probeTimeout = 30 * time.Second
)

// Attempt is everything a strategy needs for one try.
type Attempt struct {
	Source videoid.Source
	// Dir is a private scratch directory. It is removed if the attempt fails.
	Dir string
	// Cookies is Netscape cookie text, possibly empty.
	Cookies string
}

// Strategy downloads a remote source into Attempt.Dir and returns the path of
// the produced file, whose name must contain Attempt.Source.ID.
type Strategy interface {
	Name() string
	Attempt(ctx context.Context, a Attempt) (string, error)
}

// CookieSource yields Netscape cookie text for authenticated downloads.
type CookieSource interface {
	Cookies(ctx context.Context) (string, error)
}

// MetadataProber looks a remote video up without downloading it.
type MetadataProber interface {
	Probe(ctx context.Context, rawURL string) (*RemoteMetadata, error)
}

// Result is a successfully acquired file.
type Result struct {
	Path     string
	Info     media.VideoInfo
	Strategy string
}

type Acquirer struct {
	strategies     []Strategy
	cookies        CookieSource
	prober         MetadataProber
	probeFile      func(ctx context.Context, path string) (*ffmpeg.ProbeResult, error)
	attemptTimeout time.Duration
	backoffMin     time.Duration
	backoffMax     time.Duration
	sleep          func(ctx context.Context, d time.Duration) error
}

type Option func(*Acquirer)

func WithCookies(cs CookieSource) Option {
	return func(a *Acquirer) { a.cookies = cs }
}

func WithProber(p MetadataProber) Option {
	return func(a *Acquirer) { a.prober = p }
}

func WithAttemptTimeout(d time.Duration) Option {
	return func(a *Acquirer) {
		if d > 0 {
			a.attemptTimeout = d
		}
	}
}

// WithBackoff sets the randomized wait between failed strategies.
func WithBackoff(lo, hi time.Duration) Option {
	return func(a *Acquirer) {
		if lo >= 0 && hi >= lo {
			a.backoffMin, a.backoffMax = lo, hi
		}
	}
}

// WithFileProbe replaces ffprobe for local files.
func WithFileProbe(fn func(ctx context.Context, path string) (*ffmpeg.ProbeResult, error)) Option {
	return func(a *Acquirer) { a.probeFile = fn }
}

func New(strategies []Strategy, opts ...Option) *Acquirer {
	a := &Acquirer{
		strategies:     strategies,
		probeFile:      ffmpeg.Probe,
		attemptTimeout: DefaultAttemptTimeout,
		backoffMin:     DefaultBackoffMin,
		backoffMax:     DefaultBackoffMax,
		sleep:          sleepContext,
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Strategies returns the strategy names in cascade order.
func (a *Acquirer) Strategies() []string {
	names := make([]string, 0, len(a.strategies))
	for _, s := range a.strategies {
		names = append(names, s.Name())
	}
	return names
}

// Acquire resolves ref to a local file. Remote downloads are written below
// workDir, which the caller owns and removes.
func (a *Acquirer) Acquire(ctx context.Context, ref media.Reference, workDir string) (*Result, error) {
	if !ref.IsRemote() {
		return a.acquireUpload(ctx, ref.Path)
	}
	return a.acquireRemote(ctx, ref.URL, workDir)
}

func (a *Acquirer) acquireUpload(ctx context.Context, path string) (*Result, error) {
	fi, err := os.Stat(path)
	if err != nil || !fi.Mode().IsRegular() || fi.Size() == 0 {
		if err == nil {
			err = fmt.Errorf("%s is empty or not a regular file", path)
		}
		return nil, newAcquisitionError(path, "", ReasonUnknown, []AttemptFailure{{Strategy: "upload", Err: err}})
	}
	info := a.describeFile(ctx, path, fi.Size(), nil)
	slog.InfoContext(ctx, "using uploaded file", "path", path, "size", humanize.Bytes(uint64(fi.Size())), "duration", info.DurationSeconds)
	return &Result{Path: path, Info: info, Strategy: "upload"}, nil
}

func (a *Acquirer) acquireRemote(ctx context.Context, rawURL, workDir string) (*Result, error) {
	src, err := videoid.Identify(rawURL)
	if err != nil {
		return nil, newAcquisitionError(rawURL, "", ReasonUnknown, []AttemptFailure{{Strategy: "identify", Err: err}})
	}

	meta := a.probe(ctx, src.URL)
	title := ""
	if meta != nil {
		title = meta.Title
	}
	cookies := a.loadCookies(ctx)

	var failures []AttemptFailure
	for i, s := range a.strategies {
		if i > 0 {
			wait := a.backoff()
			slog.DebugContext(ctx, "backing off before next strategy", "strategy", s.Name(), "wait", wait)
			if err := a.sleep(ctx, wait); err != nil {
				failures = append(failures, AttemptFailure{Strategy: s.Name(), Err: err})
				break
			}
		}

		started := time.Now()
		path, err := a.attempt(ctx, s, src, cookies, workDir)
		elapsed := time.Since(started)
		if err == nil {
			slog.InfoContext(ctx, "acquisition succeeded", "strategy", s.Name(), "attempt", i+1, "path", path, "elapsed", elapsed)
			fi, _ := os.Stat(path)
			return &Result{Path: path, Info: a.describeFile(ctx, path, fi.Size(), meta), Strategy: s.Name()}, nil
		}

		slog.WarnContext(ctx, "acquisition strategy failed", "strategy", s.Name(), "attempt", i+1, "elapsed", elapsed, "reason", Classify(err), "error", err)
		failures = append(failures, AttemptFailure{Strategy: s.Name(), Err: err, Elapsed: elapsed})
		if ctx.Err() != nil {
			break
		}
	}

	if len(failures) == 0 {
		failures = append(failures, AttemptFailure{Strategy: "none", Err: errors.New("no acquisition strategies configured")})
	}
	aerr := NewAcquisitionError(src.URL, title, failures)
	slog.ErrorContext(ctx, "all acquisition strategies failed", "url", src.URL, "reason", aerr.Reason, "attempts", len(failures))
	return nil, aerr
}

// attempt runs one strategy in its own scratch dir with its own deadline.
func (a *Acquirer) attempt(ctx context.Context, s Strategy, src videoid.Source, cookies, workDir string) (path string, err error) {
	dir, err := os.MkdirTemp(workDir, "acquire-"+sanitizeName(s.Name())+"-")
	if err != nil {
		return "", fmt.Errorf("create scratch dir: %w", err)
	}
	defer func() {
		if err != nil {
			if rmErr := os.RemoveAll(dir); rmErr != nil {
				slog.WarnContext(ctx, "failed to remove scratch dir", "dir", dir, "error", rmErr)
			}
		}
	}()

	attemptCtx, cancel := context.WithTimeout(ctx, a.attemptTimeout)
	defer cancel()

	path, err = s.Attempt(attemptCtx, Attempt{Source: src, Dir: dir, Cookies: cookies})
	if err == nil {
		err = verifyOutput(path, src.ID)
	}
	if err != nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) && !errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("%w after %s: %w", context.DeadlineExceeded, a.attemptTimeout, err)
	}
	return path, err
}

func (a *Acquirer) probe(ctx context.Context, rawURL string) *RemoteMetadata {
	if a.prober == nil {
		return nil
	}
	pctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	meta, err := a.prober.Probe(pctx, rawURL)
	if err != nil {
		slog.InfoContext(ctx, "accessibility probe failed", "url", rawURL, "reason", Classify(err), "error", err)
		return nil
	}
	slog.InfoContext(ctx, "accessibility probe", "url", rawURL, "title", meta.Title, "duration", meta.DurationSeconds, "source", meta.Source)
	return meta
}

func (a *Acquirer) loadCookies(ctx context.Context) string {
	if a.cookies == nil {
		return ""
	}
	text, err := a.cookies.Cookies(ctx)
	if err != nil {
		slog.WarnContext(ctx, "failed to load cookies, continuing without", "error", err)
		return ""
	}
	return text
}

// describeFile probes a local file, falling back to remote metadata and then
// to defaults.
func (a *Acquirer) describeFile(ctx context.Context, path string, size int64, meta *RemoteMetadata) media.VideoInfo {
	var info media.VideoInfo
	if meta != nil {
		info = meta.VideoInfo()
	}
	if a.probeFile != nil {
		pr, err := a.probeFile(ctx, path)
		if err != nil {
			slog.WarnContext(ctx, "probe failed, using estimated video info", "path", path, "error", err)
		} else {
			if pr.Duration > 0 {
				info.DurationSeconds = pr.Duration
			}
			info.Width, info.Height = pr.Width, pr.Height
			info.Bitrate = pr.Bitrate
			if info.Title == "" {
				info.Title = pr.Title
			}
			if info.Description == "" {
				info.Description = pr.Comment
			}
		}
	}
	info.SizeBytes = size
	return info.WithDefaults()
}

func (a *Acquirer) backoff() time.Duration {
	span := int64(a.backoffMax - a.backoffMin)
	if span <= 0 {
		return a.backoffMin
	}
	return a.backoffMin + time.Duration(rand.Int64N(span+1))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// verifyOutput is the success check every strategy result must pass.
func verifyOutput(path, id string) error {
	if path == "" {
		return errors.New("strategy reported no output file")
	}
	fi, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("output missing: %w", err)
	}
	if !fi.Mode().IsRegular() {
		return fmt.Errorf("output %s is not a regular file", path)
	}
	if fi.Size() == 0 {
		return fmt.Errorf("output %s is empty", path)
	}
	if !strings.Contains(filepath.Base(path), id) {
		return fmt.Errorf("output %s does not match id %s", filepath.Base(path), id)
	}
	return nil
}

func sanitizeName(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, s)
}
