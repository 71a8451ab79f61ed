package selector

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"math"
	"strings"
	"sync"
	"unicode"

	"gopkg.in/yaml.v3"
	"thirdcoast.systems/gifmoments/internal/media"
)

//go:embed templates.yaml
var defaultTemplatesYAML []byte

const fallbackReason = "fallback"

type templateGroup struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
	Captions []string `yaml:"captions"`
}

// Templates maps prompt keywords to meme-style fallback captions.
type Templates struct {
	Groups  []templateGroup `yaml:"groups"`
	Default []string        `yaml:"default"`
}

// LoadTemplates decodes a template set. The default list must not be empty.
func LoadTemplates(r io.Reader) (*Templates, error) {
	var t Templates
	if err := yaml.NewDecoder(r).Decode(&t); err != nil {
		return nil, fmt.Errorf("decode caption templates: %w", err)
	}
	if len(t.Default) == 0 {
		return nil, fmt.Errorf("caption templates have no default captions")
	}
	for _, g := range t.Groups {
		if len(g.Captions) == 0 {
			return nil, fmt.Errorf("caption template group %q has no captions", g.Name)
		}
	}
	return &t, nil
}

var defaultTemplates = sync.OnceValue(func() *Templates {
	t, err := LoadTemplates(bytes.NewReader(defaultTemplatesYAML))
	if err != nil {
		panic(err)
	}
	return t
})

// DefaultTemplates returns the built-in caption set.
func DefaultTemplates() *Templates { return defaultTemplates() }

// Captions returns the caption list for the first group with a keyword in the
// prompt, or the default list.
func (t *Templates) Captions(prompt string) (group string, captions []string) {
	words := promptWords(prompt)
	lower := strings.ToLower(prompt)
	for _, g := range t.Groups {
		for _, k := range g.Keywords {
			k = strings.ToLower(k)
			if strings.Contains(k, " ") {
				if strings.Contains(lower, k) {
					return g.Name, g.Captions
				}
				continue
			}
			if words[k] {
				return g.Name, g.Captions
			}
		}
	}
	return "default", t.Default
}

func promptWords(prompt string) map[string]bool {
	words := map[string]bool{}
	for _, w := range strings.FieldsFunc(strings.ToLower(prompt), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		words[w] = true
	}
	return words
}

// Fallback returns the deterministic moment set using the built-in templates.
func Fallback(prompt string, duration float64) []media.Moment {
	return DefaultTemplates().Fallback(prompt, duration)
}

// Fallback places three moments by duration band and captions them from the
// matching template group. It makes no external calls.
func (t *Templates) Fallback(prompt string, duration float64) []media.Moment {
	d := duration
	if d <= 0 || math.IsNaN(d) || math.IsInf(d, 0) {
		d = media.DefaultVideoInfo().DurationSeconds
	}
	_, captions := t.Captions(prompt)

	intervals := fallbackIntervals(d)
	moments := make([]media.Moment, len(intervals))
	for i, iv := range intervals {
		moments[i] = media.Moment{
			Start:   iv[0],
			End:     iv[1],
			Caption: captions[i%len(captions)],
			Reason:  fallbackReason,
		}
	}
	return moments
}

func fallbackIntervals(d float64) [media.MomentCount][2]float64 {
	switch {
	case d >= 9:
		mid := math.Floor(d / 2)
		return [media.MomentCount][2]float64{
			{0, 3},
			{mid - 1, mid + 2},
			{d - 3, d},
		}
	case d >= 6:
		step := (d - 2) / 2
		return [media.MomentCount][2]float64{
			{0, 2},
			{step, step + 2},
			{d - 2, d},
		}
	default:
		length := math.Max(2, math.Floor(d/2))
		var out [media.MomentCount][2]float64
		for i := range out {
			start := float64(i) * d / 4
			out[i] = [2]float64{start, math.Min(start+length, d)}
		}
		return out
	}
}
