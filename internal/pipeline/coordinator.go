// Package pipeline runs one generation request through acquisition,
// description, selection and rendering.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"thirdcoast.systems/gifmoments/internal/acquire"
	"thirdcoast.systems/gifmoments/internal/artifacts"
	"thirdcoast.systems/gifmoments/internal/describe"
	"thirdcoast.systems/gifmoments/internal/media"
	"thirdcoast.systems/gifmoments/internal/quality"
	"thirdcoast.systems/gifmoments/internal/telemetry"
)

type State string

const (
	StateIdle       State = "idle"
	StateAcquiring  State = "acquiring"
	StateDescribing State = "describing"
	StateSelecting  State = "selecting"
	StateRendering  State = "rendering"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
)

type Acquirer interface {
	Acquire(ctx context.Context, ref media.Reference, workDir string) (*acquire.Result, error)
}

type Describer interface {
	Describe(ctx context.Context, in describe.Input) media.Transcript
}

type Selector interface {
	Select(ctx context.Context, t media.Transcript, prompt string, duration float64) []media.Moment
}

type Renderer interface {
	Render(ctx context.Context, index int, source string, m media.Moment) (*media.Artifact, error)
}

type ArtifactStore interface {
	Save(ctx context.Context, a *media.Artifact, p artifacts.Provenance) error
}

// Deps are the stage implementations a Coordinator drives.
type Deps struct {
	Acquirer  Acquirer
	Describer Describer
	Selector  Selector
	Renderer  Renderer
	Store     ArtifactStore
}

// Run is the working state of one request. It is discarded when the request
// ends.
type Run struct {
	ID         uuid.UUID
	State      State
	Reference  media.Reference
	Info       media.VideoInfo
	Transcript media.Transcript
	Moments    []media.Moment
	Artifacts  []media.Artifact
	Errors     []string
	Strategy   string

	cleanup []func() error
}

func (r *Run) onExit(fn func() error) { r.cleanup = append(r.cleanup, fn) }

// release runs the cleanup stack in reverse. Failures are logged only.
func (r *Run) release(ctx context.Context) {
	for i := len(r.cleanup) - 1; i >= 0; i-- {
		if err := r.cleanup[i](); err != nil && !errors.Is(err, os.ErrNotExist) {
			slog.WarnContext(ctx, "cleanup warning", "run", r.ID, "error", err)
		}
	}
	r.cleanup = nil
}

// Result is what a completed run reports.
type Result struct {
	RunID         uuid.UUID
	Artifacts     []media.Artifact
	Moments       []media.Moment
	Info          media.VideoInfo
	CaptionSource media.TranscriptSource
	Strategy      string
	Errors        []string
	Elapsed       time.Duration
	Quality       quality.Report
}

type Coordinator struct {
	deps        Deps
	workRoot    string
	concurrency int
	tracer      trace.Tracer
	observe     func(*Run)
}

type Option func(*Coordinator)

// WithWorkRoot sets the parent of per-run work dirs. It defaults to the system
// temp dir.
func WithWorkRoot(dir string) Option { return func(c *Coordinator) { c.workRoot = dir } }

func WithRenderConcurrency(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

func WithTracer(t trace.Tracer) Option { return func(c *Coordinator) { c.tracer = t } }

// WithObserver is called with the run state after every transition.
func WithObserver(fn func(*Run)) Option { return func(c *Coordinator) { c.observe = fn } }

func New(deps Deps, opts ...Option) *Coordinator {
	c := &Coordinator{deps: deps, concurrency: media.MomentCount, tracer: telemetry.Tracer()}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Coordinator) transition(ctx context.Context, run *Run, to State) {
	slog.InfoContext(ctx, "pipeline state", "run", run.ID, "from", run.State, "to", to)
	run.State = to
	if c.observe != nil {
		c.observe(run)
	}
}

// Run executes req. Errors are *InputError, *acquire.AcquisitionError,
// *RenderFailure or an internal error. Temporary files are removed on every
// path.
func (c *Coordinator) Run(ctx context.Context, req Request) (*Result, error) {
	started := time.Now()
	run := &Run{ID: uuid.New(), State: StateIdle, Reference: req.Reference}
	defer run.release(ctx)
	if req.OwnsUpload && req.Reference.Path != "" {
		path := req.Reference.Path
		run.onExit(func() error { return os.Remove(path) })
	}

	if err := req.Validate(); err != nil {
		return nil, err
	}
	prompt := strings.TrimSpace(req.Prompt)

	ctx, span := c.tracer.Start(ctx, "pipeline.run", trace.WithAttributes(
		attribute.String("run.id", run.ID.String()),
		attribute.String("source.kind", string(req.Reference.Kind)),
	))
	defer span.End()

	workDir, err := os.MkdirTemp(c.workRoot, "run-")
	if err != nil {
		return nil, c.fail(ctx, span, run, fmt.Errorf("create work dir: %w", err))
	}
	run.onExit(func() error { return os.RemoveAll(workDir) })

	// Acquiring
	c.transition(ctx, run, StateAcquiring)
	res, err := c.acquire(ctx, req.Reference, workDir)
	if err != nil {
		return nil, c.fail(ctx, span, run, err)
	}
	run.Info, run.Strategy = res.Info, res.Strategy
	duration := res.Info.WithDefaults().DurationSeconds

	// Describing
	c.transition(ctx, run, StateDescribing)
	run.Transcript = c.describe(ctx, describe.Input{
		Path:      res.Path,
		Reference: req.Reference,
		Duration:  duration,
		Prompt:    prompt,
		WorkDir:   workDir,
	})

	// Selecting
	c.transition(ctx, run, StateSelecting)
	run.Moments = c.selectMoments(ctx, run.Transcript, prompt, duration)

	// Rendering
	c.transition(ctx, run, StateRendering)
	run.Artifacts, run.Errors = c.renderAll(ctx, run, res.Path, artifacts.Provenance{
		Source: req.Reference.String(),
		Prompt: prompt,
	})
	if len(run.Artifacts) == 0 {
		return nil, c.fail(ctx, span, run, &RenderFailure{Errors: run.Errors})
	}

	c.transition(ctx, run, StateCompleted)
	result := &Result{
		RunID:         run.ID,
		Artifacts:     run.Artifacts,
		Moments:       run.Moments,
		Info:          run.Info,
		CaptionSource: run.Transcript.Source,
		Strategy:      run.Strategy,
		Errors:        run.Errors,
		Elapsed:       time.Since(started),
	}
	result.Quality = quality.Validate(quality.Input{
		Prompt:     prompt,
		Transcript: run.Transcript,
		Duration:   duration,
		Moments:    run.Moments,
		Artifacts:  run.Artifacts,
	})
	span.SetAttributes(attribute.Int("artifacts", len(run.Artifacts)), attribute.Int("quality", result.Quality.Overall))
	slog.InfoContext(ctx, "pipeline completed",
		"run", run.ID,
		"artifacts", len(run.Artifacts),
		"errors", len(run.Errors),
		"caption_source", run.Transcript.Source,
		"quality", result.Quality.Overall,
		"elapsed", result.Elapsed,
	)
	return result, nil
}

func (c *Coordinator) fail(ctx context.Context, span trace.Span, run *Run, err error) error {
	c.transition(ctx, run, StateFailed)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	slog.ErrorContext(ctx, "pipeline failed", "run", run.ID, "error", err)
	return err
}

func (c *Coordinator) acquire(ctx context.Context, ref media.Reference, workDir string) (*acquire.Result, error) {
	ctx, span := c.tracer.Start(ctx, "pipeline.acquire")
	defer span.End()
	res, err := c.deps.Acquirer.Acquire(ctx, ref, workDir)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "acquisition failed")
		return nil, err
	}
	span.SetAttributes(attribute.String("strategy", res.Strategy), attribute.Float64("duration", res.Info.DurationSeconds))
	return res, nil
}

func (c *Coordinator) describe(ctx context.Context, in describe.Input) media.Transcript {
	ctx, span := c.tracer.Start(ctx, "pipeline.describe")
	defer span.End()
	t := c.deps.Describer.Describe(ctx, in)
	span.SetAttributes(attribute.String("source", string(t.Source)), attribute.Int("segments", len(t.Segments)))
	return t
}

func (c *Coordinator) selectMoments(ctx context.Context, t media.Transcript, prompt string, duration float64) []media.Moment {
	ctx, span := c.tracer.Start(ctx, "pipeline.select")
	defer span.End()
	return c.deps.Selector.Select(ctx, t, prompt, duration)
}

// renderAll renders every moment independently. Artifacts and errors keep
// moment order.
func (c *Coordinator) renderAll(ctx context.Context, run *Run, source string, prov artifacts.Provenance) ([]media.Artifact, []string) {
	results := make([]*media.Artifact, len(run.Moments))
	failures := make([]error, len(run.Moments))

	var g errgroup.Group
	g.SetLimit(c.concurrency)
	for i, m := range run.Moments {
		g.Go(func() error {
			a, err := c.renderOne(ctx, i, source, m, prov)
			results[i], failures[i] = a, err
			return nil
		})
	}
	_ = g.Wait()

	var (
		out  []media.Artifact
		errs []string
	)
	for i := range run.Moments {
		if failures[i] != nil {
			slog.WarnContext(ctx, "render failed", "run", run.ID, "index", i, "error", failures[i])
			errs = append(errs, failures[i].Error())
			continue
		}
		out = append(out, *results[i])
	}
	return out, errs
}

func (c *Coordinator) renderOne(ctx context.Context, i int, source string, m media.Moment, prov artifacts.Provenance) (*media.Artifact, error) {
	ctx, span := c.tracer.Start(ctx, "pipeline.render", trace.WithAttributes(
		attribute.Int("moment", i),
		attribute.Float64("start", m.Start),
		attribute.Float64("end", m.End),
	))
	defer span.End()

	a, err := c.deps.Renderer.Render(ctx, i, source, m)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "render failed")
		return nil, err
	}
	if c.deps.Store != nil {
		if err := c.deps.Store.Save(ctx, a, prov); err != nil {
			_ = os.Remove(a.Path)
			span.RecordError(err)
			span.SetStatus(codes.Error, "save failed")
			return nil, fmt.Errorf("moment %d: %w", i+1, err)
		}
	}
	return a, nil
}
