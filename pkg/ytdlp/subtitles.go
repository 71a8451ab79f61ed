package ytdlp

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// WriteSubtitles downloads manual and automatic subtitles as WebVTT into destDir
// without fetching media, and returns the .vtt files that were written.
// langs are yt-dlp --sub-langs patterns; empty means "en.*,en".
// An empty result with a nil error means the video has no matching tracks.
func (c *Client) WriteSubtitles(ctx context.Context, url string, destDir string, langs ...string) ([]string, error) {
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("ytdlp: url is required")
	}
	if strings.TrimSpace(destDir) == "" {
		return nil, fmt.Errorf("ytdlp: destDir is required")
	}
	if len(langs) == 0 {
		langs = []string{"en.*", "en"}
	}

	args := []string{
		"--skip-download",
		"--write-subs",
		"--write-auto-subs",
		"--sub-format", "vtt",
		"--sub-langs", strings.Join(langs, ","),
		"--no-playlist",
		"-o", OutputTemplate(destDir, ""),
		url,
	}

	stdout, stderr, err := c.exec(ctx, args...)
	if err != nil {
		return nil, wrapExecError(c.PathOrDefault(), args, stdout, stderr, err)
	}

	files, err := filepath.Glob(filepath.Join(destDir, "*.vtt"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// SubtitleLanguage extracts the language code from a "<id>.<lang>.vtt" file name.
func SubtitleLanguage(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	idx := strings.LastIndexByte(base, '.')
	if idx < 0 {
		return ""
	}
	return base[idx+1:]
}
