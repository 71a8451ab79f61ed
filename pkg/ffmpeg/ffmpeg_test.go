package ffmpeg

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandBuild(t *testing.T) {
	tests := []struct {
		name     string
		cmd      *Command
		wantArgs []string
	}{
		{
			name: "seek and duration",
			cmd:  NewCommand("input.mp4", "output.gif", Seek(10*time.Second), Duration(5*time.Second)),
			wantArgs: []string{
				"-hide_banner", "-y",
				"-ss", "10.000",
				"-t", "5.000",
				"-i", "input.mp4",
				"output.gif",
			},
		},
		{
			name: "seekto calculates duration",
			cmd:  NewCommand("input.mp4", "output.gif", SeekTo(1500*time.Millisecond, 4*time.Second)),
			wantArgs: []string{
				"-hide_banner", "-y",
				"-ss", "1.500",
				"-t", "2.500",
				"-i", "input.mp4",
				"output.gif",
			},
		},
		{
			name: "frame extraction",
			cmd:  FrameCommand("input.mp4", "frame.jpg", 3*time.Second, 0),
			wantArgs: []string{
				"-hide_banner", "-y",
				"-loglevel", "error",
				"-ss", "3.000",
				"-i", "input.mp4",
				"-frames:v", "1",
				"-q:v", "4",
				"-vf", "scale=512:-2",
				"frame.jpg",
			},
		},
		{
			name: "scene detection",
			cmd:  SceneCommand("input.mp4", 0.3),
			wantArgs: []string{
				"-hide_banner", "-y",
				"-loglevel", "info",
				"-i", "input.mp4",
				"-an",
				"-f", "null",
				"-vf", "select='gt(scene,0.3)',showinfo",
				"-",
			},
		},
		{
			name: "gif without caption",
			cmd:  GIFCommand("input.mp4", "out.gif", GIFOptions{Start: 2 * time.Second, Duration: 3 * time.Second}),
			wantArgs: []string{
				"-hide_banner", "-y",
				"-loglevel", "error",
				"-ss", "2.000",
				"-t", "3.000",
				"-i", "input.mp4",
				"-an",
				"-loop", "0",
				"-vf", "fps=10,scale=480:-1:flags=lanczos," + PaletteFilter,
				"out.gif",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantArgs, tt.cmd.Build())
		})
	}
}

func TestGIFCommand_CaptionComesBeforePalette(t *testing.T) {
	cmd := GIFCommand("in.mp4", "out.gif", GIFOptions{
		Duration: time.Second,
		Width:    320,
		Caption:  &DrawTextFilter{TextFile: "/tmp/caption.txt", FontFile: "/fonts/a.ttf"},
	})
	args := cmd.Build()

	var vf string
	for i, a := range args {
		if a == "-vf" {
			vf = args[i+1]
		}
	}
	require.NotEmpty(t, vf)
	assert.Contains(t, vf, "scale=320:-1:flags=lanczos,drawtext=fontfile=")
	assert.Contains(t, vf, "textfile=/tmp/caption.txt")
	assert.Contains(t, vf, "expansion=none")
	assert.Regexp(t, `drawtext=.*,split\[s0\]`, vf)
}

func TestEscapeFilterValue(t *testing.T) {
	assert.Equal(t, "/tmp/plain.txt", EscapeFilterValue("/tmp/plain.txt"))
	assert.Equal(t, `C\\:/fonts/a.ttf`, EscapeFilterValue(`C:/fonts/a.ttf`))
	assert.Equal(t, `a\,b`, EscapeFilterValue("a,b"))
}

func TestParseSceneTimes(t *testing.T) {
	stderr := `[Parsed_showinfo_1 @ 0x1] n:   0 pts:  12800 pts_time:1.0     duration: 512
[Parsed_showinfo_1 @ 0x1] n:   1 pts: 115200 pts_time:9.36    duration: 512
[Parsed_showinfo_1 @ 0x1] n:   2 pts:  64000 pts_time:5       duration: 512
[Parsed_showinfo_1 @ 0x1] n:   3 pts:  64000 pts_time:5       duration: 512`

	assert.Equal(t, []float64{1.0, 5, 9.36}, ParseSceneTimes(stderr))
	assert.Empty(t, ParseSceneTimes("no scenes here"))
}

func TestParseProbeOutput(t *testing.T) {
	raw := []byte(`{
		"streams": [
			{"codec_type":"video","codec_name":"vp9","width":1920,"height":1080,"r_frame_rate":"30000/1001","duration":"61.2"},
			{"codec_type":"audio","codec_name":"opus"}
		],
		"format": {"format_name":"matroska,webm","size":"1048576","bit_rate":"137000","tags":{"title":"clip"}}
	}`)

	res, err := ParseProbeOutput(raw)
	require.NoError(t, err)
	assert.Equal(t, 1920, res.Width)
	assert.Equal(t, 1080, res.Height)
	assert.InDelta(t, 29.97, res.FPS, 0.01)
	assert.Equal(t, 61.2, res.Duration)
	assert.Equal(t, int64(1048576), res.Size)
	assert.Equal(t, int64(137000), res.Bitrate)
	assert.Equal(t, "clip", res.Title)
	assert.Equal(t, 1, res.VideoStreams)
	assert.Equal(t, 1, res.AudioStreams)
}

func TestParseProbeOutput_Invalid(t *testing.T) {
	_, err := ParseProbeOutput([]byte("not json"))
	require.Error(t, err)
}
