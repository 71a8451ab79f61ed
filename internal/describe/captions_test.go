package describe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"thirdcoast.systems/gifmoments/pkg/utils/language"
)

// Rolling auto-captions repeat the previous line at the top of each cue and
// carry word-level timing tags.
const rollingVTT = "WEBVTT\nKind: captions\nLanguage: en\n\n" +
	"00:00:00.160 --> 00:00:02.070 align:start position:0%\n" +
	" \n" +
	"hello<00:00:00.480><c> there</c>\n" +
	"\n" +
	"00:00:02.070 --> 00:00:02.080 align:start position:0%\n" +
	"hello there\n" +
	" \n" +
	"\n" +
	"00:00:02.080 --> 00:00:04.000 align:start position:0%\n" +
	"hello there\n" +
	"how<00:00:02.400><c> are</c><c> you</c> &amp; me\n" +
	"\n"

func TestParseVTT_RollingCaptions(t *testing.T) {
	segs := ParseVTT([]byte(rollingVTT), 0)
	require.Len(t, segs, 2)
	assert.Equal(t, "hello there", segs[0].Text)
	assert.InDelta(t, 0.16, segs[0].Start, 1e-9)
	assert.InDelta(t, 2.07, segs[0].End, 1e-9)
	assert.Equal(t, "how are you & me", segs[1].Text)
	assert.InDelta(t, 2.08, segs[1].Start, 1e-9)
}

func TestParseVTT_ClampsToDuration(t *testing.T) {
	vtt := "WEBVTT\r\n\r\n1\r\n00:01.000 --> 00:03.000\r\nfirst\r\n\r\n2\r\n00:04.000 --> 00:09.000\r\nsecond\r\n\r\n3\r\n01:00:00.000 --> 01:00:01.000\r\nlate\r\n"
	segs := ParseVTT([]byte(vtt), 5)
	require.Len(t, segs, 2)
	assert.Equal(t, 1.0, segs[0].Start)
	assert.Equal(t, 5.0, segs[1].End)
}

func TestParseVTT_Empty(t *testing.T) {
	assert.Empty(t, ParseVTT([]byte("WEBVTT\n\n"), 10))
	assert.Empty(t, ParseVTT(nil, 10))
}

func TestParseVTTTime(t *testing.T) {
	v, err := parseVTTTime("01:02:03.500")
	require.NoError(t, err)
	assert.Equal(t, 3723.5, v)

	v, err = parseVTTTime("02:03,250")
	require.NoError(t, err)
	assert.Equal(t, 123.25, v)
}

func TestSubtitlePatterns(t *testing.T) {
	en, _ := language.Parse("en-US")
	assert.Equal(t, []string{"en.*", "en"}, subtitlePatterns(en))

	de, _ := language.Parse("de")
	assert.Equal(t, []string{"de.*", "de", "en.*", "en"}, subtitlePatterns(de))
}
