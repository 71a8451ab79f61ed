package ffmpeg

import (
	"fmt"
	"strings"
)

// ScaleFilter represents a scale filter.
type ScaleFilter struct {
	Width  int // -1 or -2 keeps aspect ratio; -2 also forces an even size
	Height int
	Flags  string
}

// String returns the ffmpeg filter string.
func (s ScaleFilter) String() string {
	if s.Flags != "" {
		return fmt.Sprintf("scale=%d:%d:flags=%s", s.Width, s.Height, s.Flags)
	}
	return fmt.Sprintf("scale=%d:%d", s.Width, s.Height)
}

// Scale adds a scale filter.
func Scale(width, height int) Option {
	return Filter(ScaleFilter{Width: width, Height: height}.String())
}

// ScaleWidth scales to a specific width, auto-calculating an even height.
func ScaleWidth(width int) Option {
	return Scale(width, -2)
}

// FPS adds an fps filter to change frame rate.
func FPS(rate float64) Option {
	return Filter(fmt.Sprintf("fps=%g", rate))
}

// DrawTextFilter overlays text read from a file. Reading from a file keeps
// arbitrary caption text out of the filtergraph syntax.
type DrawTextFilter struct {
	TextFile    string
	FontFile    string
	FontSize    int
	BorderWidth int
}

// String returns the ffmpeg filter string, bottom-centred white text with a black border.
func (d DrawTextFilter) String() string {
	size := d.FontSize
	if size <= 0 {
		size = 24
	}
	border := d.BorderWidth
	if border <= 0 {
		border = 2
	}
	opts := []string{
		"textfile=" + EscapeFilterValue(d.TextFile),
		"expansion=none",
		"fontcolor=white",
		fmt.Sprintf("fontsize=%d", size),
		"bordercolor=black",
		fmt.Sprintf("borderw=%d", border),
		"x=(w-text_w)/2",
		"y=h-text_h-12",
	}
	if d.FontFile != "" {
		opts = append([]string{"fontfile=" + EscapeFilterValue(d.FontFile)}, opts...)
	}
	return "drawtext=" + strings.Join(opts, ":")
}

// DrawText adds a caption overlay.
func DrawText(d DrawTextFilter) Option {
	return Filter(d.String())
}

// PaletteFilter is the two-pass GIF palette graph in a single chain. It must be
// the last element of a -vf chain because it splits the stream.
const PaletteFilter = "split[s0][s1];[s0]palettegen=stats_mode=diff[p];[s1][p]paletteuse=dither=bayer:bayer_scale=5"

// SceneSelectFilter keeps frames whose scene-change score exceeds threshold and
// logs their timestamps through showinfo.
func SceneSelectFilter(threshold float64) string {
	return fmt.Sprintf("select='gt(scene,%g)',showinfo", threshold)
}

// EscapeFilterValue escapes a value for use as a filter option inside -vf.
// It applies option-level escaping first, then filtergraph-level escaping.
func EscapeFilterValue(v string) string {
	opt := strings.NewReplacer(`\`, `\\`, `:`, `\:`, `'`, `\'`).Replace(v)
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`, `,`, `\,`, `;`, `\;`, `[`, `\[`, `]`, `\]`).Replace(opt)
}
