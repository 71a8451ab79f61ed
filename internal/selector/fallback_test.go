package selector

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"thirdcoast.systems/gifmoments/internal/media"
)

func TestFallback_AlwaysValid(t *testing.T) {
	durations := []float64{0.1, 0.5, 1, 1.9, 2, 3.3, 5, 5.99, 6, 7.5, 8.99, 9, 9.5, 10, 12.25, 20, 61, 3600}
	prompts := []string{"", "funny", "dance battle", "show me the cat", "???"}
	for _, d := range durations {
		for _, p := range prompts {
			moments := Fallback(p, d)
			require.Len(t, moments, media.MomentCount, "d=%v prompt=%q", d, p)
			for _, m := range moments {
				assert.NoError(t, m.Check(d), "d=%v prompt=%q moment=%+v", d, p, m)
				assert.LessOrEqual(t, m.Duration(), media.MaxMomentSeconds)
			}
		}
	}
}

func TestFallback_ShortVideo(t *testing.T) {
	moments := Fallback("funny", 5)
	require.Len(t, moments, 3)

	assert.Equal(t, []float64{0, 1.25, 2.5}, []float64{moments[0].Start, moments[1].Start, moments[2].Start})
	for _, m := range moments {
		assert.Equal(t, 2.0, m.Duration())
	}

	group, funny := DefaultTemplates().Captions("funny")
	assert.Equal(t, "funny", group)
	for _, m := range moments {
		assert.Contains(t, funny, m.Caption)
	}
}

func TestFallback_LongVideo(t *testing.T) {
	moments := Fallback("anything at all", 20)
	require.Len(t, moments, 3)
	assert.Equal(t, [2]float64{0, 3}, [2]float64{moments[0].Start, moments[0].End})
	assert.Equal(t, [2]float64{9, 12}, [2]float64{moments[1].Start, moments[1].End})
	assert.Equal(t, [2]float64{17, 20}, [2]float64{moments[2].Start, moments[2].End})
}

func TestFallback_MediumVideo(t *testing.T) {
	moments := Fallback("", 8)
	require.Len(t, moments, 3)
	assert.Equal(t, [2]float64{0, 2}, [2]float64{moments[0].Start, moments[0].End})
	assert.Equal(t, [2]float64{3, 5}, [2]float64{moments[1].Start, moments[1].End})
	assert.Equal(t, [2]float64{6, 8}, [2]float64{moments[2].Start, moments[2].End})
}

func TestFallback_IsDeterministic(t *testing.T) {
	assert.Equal(t, Fallback("my dog doing tricks", 42), Fallback("my dog doing tricks", 42))
}

func TestFallback_NonPositiveDurationUsesDefault(t *testing.T) {
	moments := Fallback("", 0)
	d := media.DefaultVideoInfo().DurationSeconds
	for _, m := range moments {
		assert.NoError(t, m.Check(d))
	}
}

func TestTemplates_KeywordMatching(t *testing.T) {
	tpl := DefaultTemplates()
	cases := map[string]string{
		"the DANCE part":          "dance",
		"Cat being weird":         "pet",
		"the game winner shot":    "sport",
		"epic fail compilation":   "fail",
		"guitar solo":             "music",
		"speedrun skip":           "gaming",
		"homemade pasta recipe":   "cooking",
		"something interesting":   "default",
		"catalog of things (cat)": "pet",
	}
	for prompt, want := range cases {
		group, captions := tpl.Captions(prompt)
		assert.Equal(t, want, group, prompt)
		assert.NotEmpty(t, captions)
	}

	// keywords match whole words only
	group, _ := tpl.Captions("catalog")
	assert.Equal(t, "default", group)
}

func TestFallback_DanceCaption(t *testing.T) {
	moments := Fallback("dance", 30)
	assert.Equal(t, "When the beat drops", moments[0].Caption)
}

func TestLoadTemplates_Validates(t *testing.T) {
	_, err := LoadTemplates(strings.NewReader("groups: []\ndefault: []\n"))
	require.Error(t, err)

	_, err = LoadTemplates(strings.NewReader("groups:\n  - name: x\n    keywords: [x]\n    captions: []\ndefault: [a]\n"))
	require.Error(t, err)

	tpl, err := LoadTemplates(strings.NewReader("default: [only]\n"))
	require.NoError(t, err)
	for _, m := range tpl.Fallback("", 12) {
		assert.Equal(t, "only", m.Caption)
	}
}
