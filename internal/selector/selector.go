// Package selector chooses the moments to render, asking a reasoning service
// first and falling back to a deterministic placement.
package selector

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"thirdcoast.systems/gifmoments/internal/media"
	"thirdcoast.systems/gifmoments/pkg/utils/markdown"
)

// Reasoner completes a text instruction.
type Reasoner interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// DefaultTimeout bounds one reasoning request.
const DefaultTimeout = time.Minute

type Selector struct {
	reasoner  Reasoner
	templates *Templates
	timeout   time.Duration
}

type Option func(*Selector)

// WithTemplates replaces the built-in fallback captions.
func WithTemplates(t *Templates) Option {
	return func(s *Selector) {
		if t != nil {
			s.templates = t
		}
	}
}

// WithTimeout bounds the reasoning request. When it expires the fallback set
// is used.
func WithTimeout(d time.Duration) Option {
	return func(s *Selector) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// New returns a Selector. A nil reasoner always yields the fallback set.
func New(r Reasoner, opts ...Option) *Selector {
	s := &Selector{reasoner: r, templates: DefaultTemplates(), timeout: DefaultTimeout}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Select always returns exactly media.MomentCount moments.
func (s *Selector) Select(ctx context.Context, t media.Transcript, prompt string, duration float64) []media.Moment {
	if duration <= 0 {
		duration = media.DefaultVideoInfo().DurationSeconds
	}
	if s.reasoner == nil {
		return s.templates.Fallback(prompt, duration)
	}

	reqCtx, cancel := context.WithTimeout(ctx, s.timeout)
	reply, err := s.reasoner.Complete(reqCtx, SystemInstruction, BuildPrompt(t, prompt, duration))
	timedOut := errors.Is(reqCtx.Err(), context.DeadlineExceeded)
	cancel()
	if err != nil {
		if timedOut {
			slog.WarnContext(ctx, "moment selection timed out, using fallback moments", "timeout", s.timeout)
		} else {
			slog.WarnContext(ctx, "moment selection request failed, using fallback moments", "error", err)
		}
		return s.templates.Fallback(prompt, duration)
	}

	candidates, err := ParseMoments(reply)
	if err != nil {
		slog.WarnContext(ctx, "could not parse moment selection reply, using fallback moments", "error", err)
		return s.templates.Fallback(prompt, duration)
	}

	moments := Validate(ctx, candidates, duration)
	if len(moments) < media.MomentCount {
		slog.WarnContext(ctx, "too few valid moments in reply, using fallback moments",
			"candidates", len(candidates), "valid", len(moments))
		return s.templates.Fallback(prompt, duration)
	}
	return moments
}

// Validate keeps, in reply order, up to media.MomentCount candidates that fit
// within [0, duration], last at most media.MaxMomentSeconds and carry a
// caption. Captions are reduced to plain text.
func Validate(ctx context.Context, candidates []Candidate, duration float64) []media.Moment {
	out := make([]media.Moment, 0, media.MomentCount)
	for i, c := range candidates {
		if len(out) == media.MomentCount {
			break
		}
		if c.Start == nil || c.End == nil {
			slog.DebugContext(ctx, "rejected moment without numeric times", "index", i)
			continue
		}
		m := media.Moment{
			Start:   *c.Start,
			End:     *c.End,
			Caption: markdown.StripTags(c.Caption),
			Reason:  strings.TrimSpace(c.Reason),
		}
		if err := m.Check(duration); err != nil {
			slog.DebugContext(ctx, "rejected moment", "index", i, "reason", err)
			continue
		}
		out = append(out, m)
	}
	return out
}
