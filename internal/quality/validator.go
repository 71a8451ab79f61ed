// Package quality scores a finished run. Reports are advisory and never
// change what a run returns.
package quality

import (
	"fmt"
	"math"
	"strings"
	"unicode"

	"github.com/dustin/go-humanize"
	"thirdcoast.systems/gifmoments/internal/media"
)

const (
	MinArtifactBytes = 20 << 10
	MaxArtifactBytes = 8 << 20
)

var stopwords = map[string]bool{
	"the": true, "and": true, "with": true, "that": true, "this": true, "from": true,
	"show": true, "find": true, "make": true, "some": true, "most": true, "best": true,
	"moments": true, "moment": true, "video": true, "gifs": true, "clip": true, "clips": true,
	"where": true, "when": true, "what": true, "into": true, "them": true, "there": true,
}

type Input struct {
	Prompt     string
	Transcript media.Transcript
	Duration   float64
	Moments    []media.Moment
	Artifacts  []media.Artifact
}

type Report struct {
	Overall             int      `json:"overall"`
	PromptSpecificity   int      `json:"promptSpecificity"`
	TranscriptRelevance int      `json:"transcriptRelevance"`
	MomentSpacing       int      `json:"momentSpacing"`
	ArtifactQuality     int      `json:"artifactQuality"`
	Overlaps            []string `json:"overlaps,omitempty"`
	Notes               []string `json:"notes,omitempty"`
}

func Validate(in Input) Report {
	var r Report
	r.PromptSpecificity = r.promptSpecificity(in.Prompt)
	r.TranscriptRelevance = r.transcriptRelevance(in.Prompt, in.Transcript)
	r.MomentSpacing = r.momentSpacing(in.Moments, in.Duration)
	r.ArtifactQuality = r.artifactQuality(in.Moments, in.Artifacts)
	r.Overall = int(math.Round(float64(r.PromptSpecificity+r.TranscriptRelevance+r.MomentSpacing+r.ArtifactQuality) / 4))
	return r
}

func (r *Report) note(format string, args ...any) {
	r.Notes = append(r.Notes, fmt.Sprintf(format, args...))
}

func (r *Report) promptSpecificity(prompt string) int {
	words := strings.Fields(prompt)
	switch {
	case len(words) == 0:
		r.note("prompt is empty")
		return 0
	case len(words) < 3:
		r.note("prompt is vague, describe the moments in more detail")
	}
	return min(100, len(words)*15)
}

// Keywords are the lowercase prompt words longer than three letters that are
// not stopwords.
func Keywords(prompt string) []string {
	seen := map[string]bool{}
	var out []string
	for _, w := range strings.FieldsFunc(strings.ToLower(prompt), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if len([]rune(w)) <= 3 || stopwords[w] || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	return out
}

func (r *Report) transcriptRelevance(prompt string, t media.Transcript) int {
	score := 50
	if kw := Keywords(prompt); len(kw) > 0 {
		text := strings.ToLower(t.FullText)
		hits := 0
		for _, k := range kw {
			if strings.Contains(text, k) {
				hits++
			}
		}
		score = int(math.Round(100 * float64(hits) / float64(len(kw))))
		if hits == 0 {
			r.note("no prompt keywords appear in the transcript")
		}
	}
	if t.Source == media.SourceFallback {
		r.note("transcript is synthetic, moments were not chosen from content")
		score = min(score, 30)
	}
	return score
}

func (r *Report) momentSpacing(moments []media.Moment, duration float64) int {
	if len(moments) == 0 {
		return 0
	}
	score := 100
	for i := 0; i < len(moments); i++ {
		for j := i + 1; j < len(moments); j++ {
			a, b := moments[i], moments[j]
			if !a.Overlaps(b) {
				continue
			}
			overlap := math.Min(a.End, b.End) - math.Max(a.Start, b.Start)
			r.Overlaps = append(r.Overlaps, fmt.Sprintf("moments %d and %d overlap by %.1fs", i+1, j+1, overlap))
			score -= 25
		}
	}

	if duration > 30 && len(moments) > 1 {
		lo, hi := moments[0].Start, moments[0].Start
		for _, m := range moments[1:] {
			lo, hi = math.Min(lo, m.Start), math.Max(hi, m.Start)
		}
		if (hi-lo)/duration < 0.2 {
			r.note("moments are clustered in %.0f%% of the video", 100*(hi-lo)/duration)
			score -= 20
		}
	}
	return max(0, score)
}

func (r *Report) artifactQuality(moments []media.Moment, artifacts []media.Artifact) int {
	if len(moments) == 0 {
		return 0
	}
	score := int(math.Round(100 * float64(len(artifacts)) / float64(len(moments))))
	if len(artifacts) < len(moments) {
		r.note("%d of %d moments failed to render", len(moments)-len(artifacts), len(moments))
	}
	for i, a := range artifacts {
		switch {
		case a.SizeBytes < MinArtifactBytes:
			r.note("gif %d is unusually small (%s)", i+1, humanize.Bytes(uint64(max(0, a.SizeBytes))))
			score -= 10
		case a.SizeBytes > MaxArtifactBytes:
			r.note("gif %d is large (%s) and may load slowly", i+1, humanize.Bytes(uint64(a.SizeBytes)))
			score -= 10
		}
		if !a.HasCaption {
			score -= 5
		}
	}
	return max(0, score)
}
