package selector

import (
	"fmt"
	"math"
	"strings"

	"thirdcoast.systems/gifmoments/internal/media"
)

const (
	maxTimelineSegments = 80
	maxOverviewRunes    = 1500
)

// SystemInstruction frames every selection request.
const SystemInstruction = `You pick short, shareable moments from videos for GIFs.
You always answer with a JSON array and nothing else.
Each element is an object: {"startTime": int, "endTime": int, "caption": string, "reason": string}.
Captions are short, punchy and meme-style, at most 8 words.`

// BuildPrompt describes the transcript and the user's request for the
// reasoning service.
func BuildPrompt(t media.Transcript, prompt string, duration float64) string {
	var b strings.Builder
	total := int(math.Floor(duration))

	fmt.Fprintf(&b, "Video length: %d seconds.\n", total)
	fmt.Fprintf(&b, "Transcript source: %s.\n\n", t.Source)

	b.WriteString("Overview:\n")
	b.WriteString(truncate(t.FullText, maxOverviewRunes))
	b.WriteString("\n\nTimeline:\n")
	timeline := sampleSegments(t.Segments, maxTimelineSegments)
	if len(timeline) < len(t.Segments) {
		fmt.Fprintf(&b, "(%d of %d segments, spread across the whole video)\n", len(timeline), len(t.Segments))
	}
	for _, s := range timeline {
		fmt.Fprintf(&b, "[%.1f-%.1fs] %s", s.Start, s.End, strings.TrimSpace(s.Text))
		if v := strings.TrimSpace(s.VisualDescription); v != "" && !strings.Contains(s.Text, v) {
			fmt.Fprintf(&b, " (visual: %s)", v)
		}
		b.WriteByte('\n')
	}

	fmt.Fprintf(&b, "\nUser request: %s\n\n", strings.TrimSpace(prompt))
	fmt.Fprintf(&b, "Pick exactly %d moments that best match the request.\n", media.MomentCount)
	b.WriteString("Rules:\n")
	fmt.Fprintf(&b, "- startTime and endTime are whole seconds with 0 <= startTime < endTime <= %d\n", total)
	fmt.Fprintf(&b, "- each moment lasts at most %.0f seconds\n", media.MaxMomentSeconds)
	b.WriteString("- avoid overlapping moments\n")
	b.WriteString("- reply with the JSON array only, no markdown\n")
	return b.String()
}

// sampleSegments picks at most max segments spaced evenly over segs, keeping
// the first and the last.
func sampleSegments(segs []media.Segment, max int) []media.Segment {
	if len(segs) <= max {
		return segs
	}
	out := make([]media.Segment, 0, max)
	step := float64(len(segs)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		out = append(out, segs[int(math.Round(float64(i)*step))])
	}
	return out
}
