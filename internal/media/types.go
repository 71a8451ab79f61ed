// Package media holds the data model shared by every pipeline stage.
package media

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MomentCount is how many moments every run selects and renders.
const MomentCount = 3

// MaxMomentSeconds is the longest allowed moment.
const MaxMomentSeconds = 10.0

type ReferenceKind string

const (
	KindUpload ReferenceKind = "upload"
	KindRemote ReferenceKind = "remote"
)

// Reference points at the video a run works on. Values are never mutated after
// construction.
type Reference struct {
	Kind ReferenceKind
	Path string // set for KindUpload
	URL  string // set for KindRemote
}

func UploadReference(path string) Reference {
	return Reference{Kind: KindUpload, Path: path}
}

func RemoteReference(url string) Reference {
	return Reference{Kind: KindRemote, URL: strings.TrimSpace(url)}
}

func (r Reference) IsRemote() bool { return r.Kind == KindRemote }

func (r Reference) String() string {
	if r.IsRemote() {
		return r.URL
	}
	return r.Path
}

// VideoInfo describes the source. Fields may be estimates.
type VideoInfo struct {
	DurationSeconds float64 `json:"duration"`
	Width           int     `json:"width"`
	Height          int     `json:"height"`
	SizeBytes       int64   `json:"size"`
	Bitrate         int64   `json:"bitrate"`
	Title           string  `json:"title,omitempty"`
	Description     string  `json:"description,omitempty"`
}

// DefaultVideoInfo is used whenever probing yields nothing usable.
func DefaultVideoInfo() VideoInfo {
	return VideoInfo{DurationSeconds: 30, Width: 640, Height: 360}
}

// WithDefaults fills zero or invalid fields from DefaultVideoInfo.
func (v VideoInfo) WithDefaults() VideoInfo {
	d := DefaultVideoInfo()
	if v.DurationSeconds <= 0 {
		v.DurationSeconds = d.DurationSeconds
	}
	if v.Width <= 0 || v.Height <= 0 {
		v.Width, v.Height = d.Width, d.Height
	}
	return v
}

type TranscriptSource string

const (
	SourceCaptions       TranscriptSource = "captions"
	SourceVisualAnalysis TranscriptSource = "visual-analysis"
	SourceFallback       TranscriptSource = "fallback"
)

// Segment is one timed piece of a transcript. Segments are ordered by Start but
// may overlap.
type Segment struct {
	Start             float64 `json:"start"`
	End               float64 `json:"end"`
	Text              string  `json:"text"`
	VisualDescription string  `json:"visualDescription,omitempty"`
}

// EmptyTranscriptText stands in for FullText when there are no segments.
const EmptyTranscriptText = "[no transcript available]"

type Transcript struct {
	FullText string           `json:"fullText"`
	Segments []Segment        `json:"segments"`
	Source   TranscriptSource `json:"source"`
}

// NewTranscript derives FullText from the segment texts.
func NewTranscript(source TranscriptSource, segments []Segment) Transcript {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		if t := strings.TrimSpace(s.Text); t != "" {
			parts = append(parts, t)
		}
	}
	full := strings.Join(parts, " ")
	if full == "" {
		full = EmptyTranscriptText
	}
	return Transcript{FullText: full, Segments: segments, Source: source}
}

// Moment is a validated interval plus caption.
type Moment struct {
	Start   float64 `json:"startTime"`
	End     float64 `json:"endTime"`
	Caption string  `json:"caption"`
	Reason  string  `json:"reason,omitempty"`
}

func (m Moment) Duration() float64 { return m.End - m.Start }

// Check reports why m is not acceptable for a video of the given duration.
func (m Moment) Check(duration float64) error {
	switch {
	case m.Start < 0:
		return fmt.Errorf("start %.2f is negative", m.Start)
	case m.End > duration:
		return fmt.Errorf("end %.2f is past the video end %.2f", m.End, duration)
	case m.Start >= m.End:
		return fmt.Errorf("start %.2f is not before end %.2f", m.Start, m.End)
	case m.Duration() > MaxMomentSeconds:
		return fmt.Errorf("length %.2fs exceeds %.0fs", m.Duration(), MaxMomentSeconds)
	case strings.TrimSpace(m.Caption) == "":
		return fmt.Errorf("caption is empty")
	}
	return nil
}

// Overlaps reports whether the two intervals share any time.
func (m Moment) Overlaps(o Moment) bool {
	return m.Start < o.End && o.Start < m.End
}

// Artifact is one rendered GIF.
type Artifact struct {
	ID         uuid.UUID `json:"id"`
	Path       string    `json:"-"`
	Caption    string    `json:"caption"`
	Start      float64   `json:"startTime"`
	End        float64   `json:"endTime"`
	SizeBytes  int64     `json:"size"`
	HasCaption bool      `json:"hasCaption"`
	CreatedAt  time.Time `json:"createdAt"`
}
