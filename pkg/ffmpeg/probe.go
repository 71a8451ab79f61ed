package ffmpeg

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
)

// ProbeResult contains media file metadata.
type ProbeResult struct {
	Width      int
	Height     int
	FPS        float64
	VideoCodec string

	Duration   float64 // seconds
	Bitrate    int64   // bits per second
	Size       int64   // bytes
	FormatName string
	Title      string
	Comment    string

	VideoStreams int
	AudioStreams int
}

type ffprobeOutput struct {
	Format struct {
		FormatName string            `json:"format_name"`
		Duration   string            `json:"duration"`
		Size       string            `json:"size"`
		BitRate    string            `json:"bit_rate"`
		Tags       map[string]string `json:"tags"`
	} `json:"format"`
	Streams []struct {
		CodecType  string `json:"codec_type"`
		CodecName  string `json:"codec_name"`
		Width      int    `json:"width"`
		Height     int    `json:"height"`
		RFrameRate string `json:"r_frame_rate"`
		Duration   string `json:"duration"`
	} `json:"streams"`
}

// Probe runs ffprobe on a file and returns metadata.
func Probe(ctx context.Context, path string) (*ProbeResult, error) {
	args := []string{
		"-hide_banner",
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	}

	cmd := exec.CommandContext(ctx, "ffprobe", args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffprobe: %w: %s", err, bytes.TrimSpace(stderr.Bytes()))
	}
	return ParseProbeOutput(stdout.Bytes())
}

// ParseProbeOutput decodes `ffprobe -print_format json -show_format -show_streams` output.
func ParseProbeOutput(raw []byte) (*ProbeResult, error) {
	var output ffprobeOutput
	if err := json.Unmarshal(raw, &output); err != nil {
		return nil, fmt.Errorf("ffprobe: failed to parse output: %w", err)
	}

	result := &ProbeResult{FormatName: output.Format.FormatName}
	result.Duration, _ = strconv.ParseFloat(output.Format.Duration, 64)
	result.Bitrate, _ = strconv.ParseInt(output.Format.BitRate, 10, 64)
	result.Size, _ = strconv.ParseInt(output.Format.Size, 10, 64)
	for k, v := range output.Format.Tags {
		switch k {
		case "title", "TITLE":
			result.Title = v
		case "comment", "COMMENT", "description", "DESCRIPTION":
			result.Comment = v
		}
	}

	for _, stream := range output.Streams {
		switch stream.CodecType {
		case "video":
			result.VideoStreams++
			if result.VideoCodec == "" {
				result.Width = stream.Width
				result.Height = stream.Height
				result.VideoCodec = stream.CodecName
				result.FPS = parseFrameRate(stream.RFrameRate)
				// Some containers (webm) only report duration per stream.
				if result.Duration <= 0 {
					result.Duration, _ = strconv.ParseFloat(stream.Duration, 64)
				}
			}
		case "audio":
			result.AudioStreams++
		}
	}

	return result, nil
}

// parseFrameRate parses ffprobe frame rate format (e.g., "30/1" or "30000/1001").
func parseFrameRate(rate string) float64 {
	var num, den int
	if _, err := fmt.Sscanf(rate, "%d/%d", &num, &den); err != nil || den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}
