package describe

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"thirdcoast.systems/gifmoments/internal/media"
)

const (
	// FallbackSegmentSeconds is the segment length of FallbackTranscript.
	FallbackSegmentSeconds = 5.0

	minSegmentSeconds = 0.5
	fallbackText      = "video content"
)

// Position names where in the video a point lies, by fraction of the duration.
func Position(fraction float64) string {
	switch {
	case fraction < 0.15:
		return "Opening"
	case fraction < 0.4:
		return "Early"
	case fraction < 0.6:
		return "Middle"
	case fraction < 0.85:
		return "Later"
	default:
		return "Closing"
	}
}

func formatSeconds(s float64) string {
	return strconv.FormatFloat(math.Round(s*10)/10, 'f', -1, 64) + "s"
}

// segmentText labels a segment by where it starts.
func segmentText(start, end, duration float64, description string) string {
	return fmt.Sprintf("%s: %s (%s-%s)", Position(start/duration), description, formatSeconds(start), formatSeconds(end))
}

func validDuration(d float64) bool {
	return d > 0 && !math.IsNaN(d) && !math.IsInf(d, 0)
}

// FallbackTranscript covers [0, duration] with fixed five second segments. It
// depends only on duration.
func FallbackTranscript(duration float64) media.Transcript {
	if !validDuration(duration) {
		duration = media.DefaultVideoInfo().DurationSeconds
	}
	n := int(math.Ceil(duration / FallbackSegmentSeconds))
	segments := make([]media.Segment, 0, n)
	for i := 0; i < n; i++ {
		start := float64(i) * FallbackSegmentSeconds
		end := math.Min(start+FallbackSegmentSeconds, duration)
		if end <= start {
			break
		}
		segments = append(segments, media.Segment{
			Start: start,
			End:   end,
			Text:  segmentText(start, end, duration, fallbackText),
		})
	}
	return media.NewTranscript(media.SourceFallback, segments)
}

// buildVisualSegments splits [0, duration] at scene changes and frame times
// and labels each piece with the nearest frame description.
func buildVisualSegments(duration float64, scenes []float64, frames []frameDescription) []media.Segment {
	bounds := []float64{0, duration}
	for _, t := range scenes {
		if t > 0 && t < duration {
			bounds = append(bounds, t)
		}
	}
	for _, f := range frames {
		if f.At > 0 && f.At < duration {
			bounds = append(bounds, f.At)
		}
	}
	bounds = mergeBoundaries(bounds, duration)

	segments := make([]media.Segment, 0, len(bounds)-1)
	for i := 0; i+1 < len(bounds); i++ {
		start, end := bounds[i], bounds[i+1]
		desc := nearestDescription(frames, (start+end)/2)
		segments = append(segments, media.Segment{
			Start:             start,
			End:               end,
			Text:              segmentText(start, end, duration, desc),
			VisualDescription: desc,
		})
	}
	return segments
}

// mergeBoundaries sorts and dedupes cut points and removes cuts that would
// leave a segment shorter than minSegmentSeconds. 0 and duration always stay.
func mergeBoundaries(bounds []float64, duration float64) []float64 {
	sort.Float64s(bounds)
	out := []float64{0}
	for _, b := range bounds {
		if b <= 0 || b >= duration {
			continue
		}
		if b-out[len(out)-1] < minSegmentSeconds {
			continue
		}
		out = append(out, b)
	}
	if len(out) > 1 && duration-out[len(out)-1] < minSegmentSeconds {
		out = out[:len(out)-1]
	}
	return append(out, duration)
}

func nearestDescription(frames []frameDescription, at float64) string {
	best, bestDist := PlaceholderDescription, math.Inf(1)
	for _, f := range frames {
		if d := math.Abs(f.At - at); d < bestDist {
			best, bestDist = f.Text, d
		}
	}
	return best
}
