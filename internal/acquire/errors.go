package acquire

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"thirdcoast.systems/gifmoments/pkg/ytdlp"
)

// Reason classifies why a source could not be acquired.
type Reason string

const (
	ReasonBotDetection Reason = "bot-detection"
	ReasonUnavailable  Reason = "unavailable"
	ReasonTimeout      Reason = "timeout"
	ReasonUnknown      Reason = "unknown"
)

type guidance struct {
	message     string
	suggestions []string
}

var guidanceByReason = map[Reason]guidance{
	ReasonBotDetection: {
		message: "The video host blocked the download and asked to confirm this is not a bot.",
		suggestions: []string{
			"Download the video yourself and upload the file instead",
			"Try again in a few minutes",
			"Ask an administrator to refresh the site cookies",
		},
	},
	ReasonUnavailable: {
		message: "The video is private, removed, region locked or age restricted.",
		suggestions: []string{
			"Check that the link opens in a private browser window",
			"Try a different, public video",
			"Upload the video file directly",
		},
	},
	ReasonTimeout: {
		message: "Downloading the video took too long.",
		suggestions: []string{
			"Try a shorter video",
			"Try again later",
			"Upload the video file directly",
		},
	},
	ReasonUnknown: {
		message: "The video could not be downloaded.",
		suggestions: []string{
			"Check that the URL is correct",
			"Upload the video file directly",
		},
	},
}

// AttemptFailure records one failed strategy.
type AttemptFailure struct {
	Strategy string
	Err      error
	Elapsed  time.Duration
}

// AcquisitionError is returned when no strategy produced a file.
type AcquisitionError struct {
	URL         string
	Title       string
	Reason      Reason
	Message     string
	Suggestions []string
	Attempts    []AttemptFailure
}

// NewAcquisitionError classifies the attempts and fills in user-facing text.
func NewAcquisitionError(url, title string, attempts []AttemptFailure) *AcquisitionError {
	reason := ReasonUnknown
	for _, a := range attempts {
		if r := Classify(a.Err); rank(r) > rank(reason) {
			reason = r
		}
	}
	return newAcquisitionError(url, title, reason, attempts)
}

func newAcquisitionError(url, title string, reason Reason, attempts []AttemptFailure) *AcquisitionError {
	g := guidanceByReason[reason]
	msg := g.message
	if title != "" {
		msg = fmt.Sprintf("%q: %s", title, msg)
	}
	return &AcquisitionError{
		URL:         url,
		Title:       title,
		Reason:      reason,
		Message:     msg,
		Suggestions: append([]string(nil), g.suggestions...),
		Attempts:    attempts,
	}
}

func (e *AcquisitionError) Error() string {
	if n := len(e.Attempts); n > 0 {
		return fmt.Sprintf("acquire %s: %s after %d attempts: %v", e.URL, e.Reason, n, e.Attempts[n-1].Err)
	}
	return fmt.Sprintf("acquire %s: %s", e.URL, e.Reason)
}

// Details lists each attempt as "strategy: error".
func (e *AcquisitionError) Details() []string {
	out := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		out = append(out, fmt.Sprintf("%s: %v", a.Strategy, a.Err))
	}
	return out
}

func (e *AcquisitionError) Unwrap() []error {
	errs := make([]error, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		errs = append(errs, a.Err)
	}
	return errs
}

// rank orders reasons by how much they tell the user.
func rank(r Reason) int {
	switch r {
	case ReasonUnavailable:
		return 3
	case ReasonBotDetection:
		return 2
	case ReasonTimeout:
		return 1
	}
	return 0
}

var (
	unavailableMarkers = []string{
		"private video",
		"video unavailable",
		"this video is unavailable",
		"has been removed",
		"account associated with this video has been terminated",
		"members-only",
		"join this channel",
		"age-restricted",
		"confirm your age",
		"inappropriate for some users",
		"not available in your country",
		"http error 403",
		"http error 404",
		"video not found",
		"does not exist",
	}
	botMarkers = []string{
		"sign in to confirm",
		"not a bot",
		"http error 429",
		"too many requests",
		"captcha",
		"unusual traffic",
	}
)

// Classify maps a strategy or probe error to a Reason. Tool stderr is
// inspected when available.
func Classify(err error) Reason {
	if err == nil {
		return ReasonUnknown
	}

	text := strings.ToLower(errorText(err))
	for _, m := range unavailableMarkers {
		if strings.Contains(text, m) {
			return ReasonUnavailable
		}
	}
	for _, m := range botMarkers {
		if strings.Contains(text, m) {
			return ReasonBotDetection
		}
	}
	if errors.Is(err, context.DeadlineExceeded) || strings.Contains(text, "timed out") {
		return ReasonTimeout
	}
	return ReasonUnknown
}

func errorText(err error) string {
	parts := []string{err.Error()}
	var ee *ytdlp.ExecError
	if errors.As(err, &ee) {
		parts = append(parts, ee.Stderr)
	}
	var te *ToolError
	if errors.As(err, &te) {
		parts = append(parts, te.Stderr)
	}
	return strings.Join(parts, "\n")
}

// ToolError is a failed invocation of an external downloader.
type ToolError struct {
	Tool   string
	Stderr string
	Err    error
}

func (e *ToolError) Error() string {
	lines := strings.Split(strings.TrimSpace(e.Stderr), "\n")
	if tail := strings.TrimSpace(lines[len(lines)-1]); tail != "" {
		return fmt.Sprintf("%s: %v: %s", e.Tool, e.Err, tail)
	}
	return fmt.Sprintf("%s: %v", e.Tool, e.Err)
}

func (e *ToolError) Unwrap() error { return e.Err }
