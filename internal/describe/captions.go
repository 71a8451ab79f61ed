package describe

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"thirdcoast.systems/gifmoments/internal/media"
	"thirdcoast.systems/gifmoments/pkg/utils/language"
	"thirdcoast.systems/gifmoments/pkg/utils/markdown"
	"thirdcoast.systems/gifmoments/pkg/ytdlp"
)

var (
	cueTimingRe  = regexp.MustCompile(`^((?:\d+:)?\d{1,2}:\d{2}[.,]\d{3})\s+-->\s+((?:\d+:)?\d{1,2}:\d{2}[.,]\d{3})`)
	inlineTimeRe = regexp.MustCompile(`<\d{1,2}:\d{2}(?::\d{2})?[.,]\d{3}>`)
)

// fromCaptions downloads platform captions and parses the best matching track.
func (d *Describer) fromCaptions(ctx context.Context, url, scratch string, duration float64) (media.Transcript, error) {
	dir := filepath.Join(scratch, "captions")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return media.Transcript{}, err
	}

	fetchCtx, cancel := context.WithTimeout(ctx, d.captionTimeout)
	files, err := d.captions.WriteSubtitles(fetchCtx, url, dir, subtitlePatterns(d.language)...)
	cancel()
	if err != nil {
		return media.Transcript{}, fmt.Errorf("fetch captions: %w", err)
	}
	if len(files) == 0 {
		return media.Transcript{}, errNoCaptions
	}

	langs := make([]string, len(files))
	for i, f := range files {
		langs[i] = ytdlp.SubtitleLanguage(f)
	}
	idx := language.BestMatch(d.language, langs)
	if idx < 0 {
		idx = 0
	}

	data, err := os.ReadFile(files[idx])
	if err != nil {
		return media.Transcript{}, err
	}
	segments := ParseVTT(data, duration)
	if len(segments) == 0 {
		return media.Transcript{}, errNoCaptions
	}
	return media.NewTranscript(media.SourceCaptions, segments), nil
}

// subtitlePatterns builds yt-dlp --sub-langs patterns for the preferred
// language, with English as a last resort.
func subtitlePatterns(preferred language.Tag) []string {
	base := "en"
	if s := preferred.String(); s != "" && s != "und" {
		base = strings.SplitN(s, "-", 2)[0]
	}
	patterns := []string{base + ".*", base}
	if base != "en" {
		patterns = append(patterns, "en.*", "en")
	}
	return patterns
}

// ParseVTT turns WebVTT cues into segments. Inline markup is stripped and
// lines repeated from the previous cue, as in rolling auto-captions, are
// dropped. Cues beyond duration are discarded; duration <= 0 disables clamping.
func ParseVTT(data []byte, duration float64) []media.Segment {
	var (
		segments []media.Segment
		prev     map[string]bool
	)

	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		inCue      bool
		start, end float64
		lines      []string
	)
	flush := func() {
		if !inCue {
			return
		}
		inCue = false
		seen := map[string]bool{}
		var fresh []string
		for _, l := range lines {
			if l == "" || prev[l] || seen[l] {
				continue
			}
			seen[l] = true
			fresh = append(fresh, l)
		}
		if len(lines) > 0 {
			prev = map[string]bool{}
			for _, l := range lines {
				prev[l] = true
			}
		}
		lines = nil

		if duration > 0 {
			if start >= duration {
				return
			}
			if end > duration {
				end = duration
			}
		}
		if len(fresh) == 0 || end <= start {
			return
		}
		segments = append(segments, media.Segment{Start: start, End: end, Text: strings.Join(fresh, " ")})
	}

	for sc.Scan() {
		raw := strings.TrimSuffix(sc.Text(), "\r")
		if raw == "" {
			flush()
			continue
		}
		line := strings.TrimSpace(strings.TrimPrefix(raw, "\ufeff"))
		if m := cueTimingRe.FindStringSubmatch(line); m != nil {
			flush()
			s, err1 := parseVTTTime(m[1])
			e, err2 := parseVTTTime(m[2])
			if err1 != nil || err2 != nil {
				continue
			}
			inCue, start, end = true, s, e
			continue
		}
		if inCue {
			lines = append(lines, cleanCaptionLine(line))
		}
	}
	flush()
	return segments
}

func cleanCaptionLine(line string) string {
	return markdown.StripTags(inlineTimeRe.ReplaceAllString(line, ""))
}

// parseVTTTime parses hh:mm:ss.mmm or mm:ss.mmm.
func parseVTTTime(s string) (float64, error) {
	s = strings.Replace(s, ",", ".", 1)
	parts := strings.Split(s, ":")
	var total float64
	for _, p := range parts {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return 0, err
		}
		total = total*60 + v
	}
	return total, nil
}
