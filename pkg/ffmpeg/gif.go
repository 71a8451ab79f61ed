package ffmpeg

import (
	"context"
	"time"
)

// GIFOptions controls a GIF encode.
type GIFOptions struct {
	Start    time.Duration
	Duration time.Duration
	Width    int     // 0 means 480
	FPS      float64 // 0 means 10
	// Caption, when non-nil, is burned in as an overlay.
	Caption *DrawTextFilter
}

// GIFCommand builds a single-pass palette GIF encode of [Start, Start+Duration).
func GIFCommand(input, output string, opts GIFOptions) *Command {
	width := opts.Width
	if width <= 0 {
		width = 480
	}
	fps := opts.FPS
	if fps <= 0 {
		fps = 10
	}

	cmdOpts := []Option{
		LogLevel("error"),
		Seek(opts.Start),
		Duration(opts.Duration),
		FPS(fps),
		Filter(ScaleFilter{Width: width, Height: -1, Flags: "lanczos"}.String()),
	}
	if opts.Caption != nil {
		cmdOpts = append(cmdOpts, DrawText(*opts.Caption))
	}
	cmdOpts = append(cmdOpts, Filter(PaletteFilter), NoAudio, Loop(0))

	return NewCommand(input, output, cmdOpts...)
}

// EncodeGIF runs GIFCommand.
func EncodeGIF(ctx context.Context, input, output string, opts GIFOptions) error {
	return GIFCommand(input, output, opts).Run(ctx)
}
