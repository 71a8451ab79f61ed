package acquire

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"thirdcoast.systems/gifmoments/pkg/ytdlp"
)

// Strategy names accepted by Build.
const (
	NameLibrary    = "library"
	NameYoutubeDL  = "youtube-dl"
	NameGalleryDL  = "gallery-dl"
	NameStreamlink = "streamlink"
	ytdlpPrefix    = "ytdlp:"
)

// DefaultOrder is the cascade used when none is configured.
func DefaultOrder() []string {
	names := make([]string, 0, len(ytdlp.Profiles)+4)
	for _, p := range ytdlp.Profiles {
		names = append(names, ytdlpPrefix+string(p))
	}
	return append(names, NameLibrary, NameYoutubeDL, NameGalleryDL, NameStreamlink)
}

// Build turns strategy names into strategies. Unknown names are an error.
func Build(names []string, client *ytdlp.Client) ([]Strategy, error) {
	if len(names) == 0 {
		names = DefaultOrder()
	}
	out := make([]Strategy, 0, len(names))
	for _, n := range names {
		switch {
		case strings.HasPrefix(n, ytdlpPrefix):
			out = append(out, &YtdlpStrategy{Client: client, Profile: ytdlp.Profile(strings.TrimPrefix(n, ytdlpPrefix))})
		case n == NameLibrary:
			out = append(out, &LibraryStrategy{})
		case n == NameYoutubeDL:
			out = append(out, YoutubeDL(""))
		case n == NameGalleryDL:
			out = append(out, GalleryDL(""))
		case n == NameStreamlink:
			out = append(out, Streamlink(""))
		default:
			return nil, fmt.Errorf("unknown acquisition strategy %q", n)
		}
	}
	return out, nil
}

// YtdlpStrategy downloads with yt-dlp emulating one player client.
type YtdlpStrategy struct {
	Client  *ytdlp.Client
	Profile ytdlp.Profile
}

func (s *YtdlpStrategy) Name() string {
	p := s.Profile
	if p == "" {
		p = ytdlp.ProfileDefault
	}
	return ytdlpPrefix + string(p)
}

func (s *YtdlpStrategy) Attempt(ctx context.Context, a Attempt) (string, error) {
	client := ytdlp.New()
	if s.Client != nil {
		c := *s.Client
		client = &c
	}
	client.Cookies = a.Cookies
	client.CookieDir = a.Dir

	if err := client.Download(ctx, a.Source.URL, a.Dir, ytdlp.DownloadOptions{Profile: s.Profile, Name: a.Source.ID}); err != nil {
		return "", err
	}
	return findOutput(a.Dir, a.Source.ID)
}

type runFunc func(ctx context.Context, name string, args ...string) (stderr string, err error)

// CommandStrategy runs an external downloader that writes into Attempt.Dir.
type CommandStrategy struct {
	name string
	bin  string
	// args builds the argument list. cookieFile is empty when there are no cookies
	// or the tool cannot use them.
	args       func(a Attempt, cookieFile string) []string
	useCookies bool
	run        runFunc
}

func (s *CommandStrategy) Name() string { return s.name }

func (s *CommandStrategy) Attempt(ctx context.Context, a Attempt) (string, error) {
	cookieFile := ""
	if s.useCookies && strings.TrimSpace(a.Cookies) != "" {
		f, err := writeCookieFile(a.Dir, a.Cookies)
		if err != nil {
			return "", err
		}
		defer func() {
			if err := os.Remove(f); err != nil && !errors.Is(err, os.ErrNotExist) {
				slog.WarnContext(ctx, "failed to remove cookie file", "error", err)
			}
		}()
		cookieFile = f
	}

	run := s.run
	if run == nil {
		run = runTool
	}
	if _, err := run(ctx, s.bin, s.args(a, cookieFile)...); err != nil {
		return "", err
	}
	return findOutput(a.Dir, a.Source.ID)
}

func YoutubeDL(bin string) *CommandStrategy {
	if bin == "" {
		bin = "youtube-dl"
	}
	return &CommandStrategy{
		name:       NameYoutubeDL,
		bin:        bin,
		useCookies: true,
		args: func(a Attempt, cookieFile string) []string {
			args := []string{
				"--no-playlist",
				"--no-part",
				"-f", "best[ext=mp4][height<=720]/best[height<=720]/best",
				"-o", ytdlp.OutputTemplate(a.Dir, a.Source.ID),
			}
			if cookieFile != "" {
				args = append(args, "--cookies", cookieFile)
			}
			return append(args, a.Source.URL)
		},
	}
}

func GalleryDL(bin string) *CommandStrategy {
	if bin == "" {
		bin = "gallery-dl"
	}
	return &CommandStrategy{
		name:       NameGalleryDL,
		bin:        bin,
		useCookies: true,
		args: func(a Attempt, cookieFile string) []string {
			args := []string{
				"--directory", a.Dir,
				"--filename", a.Source.ID + ".{extension}",
			}
			if cookieFile != "" {
				args = append(args, "--cookies", cookieFile)
			}
			return append(args, a.Source.URL)
		},
	}
}

// Streamlink captures the best available stream to a .ts file.
func Streamlink(bin string) *CommandStrategy {
	if bin == "" {
		bin = "streamlink"
	}
	return &CommandStrategy{
		name: NameStreamlink,
		bin:  bin,
		args: func(a Attempt, _ string) []string {
			return []string{
				"--force",
				"--output", filepath.Join(a.Dir, a.Source.ID+".ts"),
				a.Source.URL,
				"best",
			}
		},
	}
}

func runTool(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			err = fmt.Errorf("%w: %w", ctx.Err(), err)
		}
		return stderr.String(), &ToolError{Tool: name, Stderr: stderr.String(), Err: err}
	}
	return stderr.String(), nil
}

// writeCookieFile materializes cookies for a single tool invocation.
func writeCookieFile(dir, content string) (string, error) {
	f, err := os.CreateTemp(dir, "cookies-*.txt")
	if err != nil {
		return "", fmt.Errorf("create cookie file: %w", err)
	}
	name := f.Name()
	if err := f.Chmod(0o600); err != nil {
		f.Close()
		os.Remove(name)
		return "", fmt.Errorf("chmod cookie file: %w", err)
	}
	if _, err := f.WriteString(content); err != nil {
		f.Close()
		os.Remove(name)
		return "", fmt.Errorf("write cookie file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(name)
		return "", fmt.Errorf("close cookie file: %w", err)
	}
	return name, nil
}

// ignoredSuffixes are side files downloaders leave next to the media.
var ignoredSuffixes = []string{".part", ".ytdl", ".json", ".vtt", ".srt", ".txt", ".jpg", ".webp", ".png", ".temp"}

// findOutput returns the largest media file in dir whose name contains id.
func findOutput(dir, id string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	var best string
	var bestSize int64 = -1
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.Contains(name, id) || hasIgnoredSuffix(name) {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		if fi.Size() > bestSize {
			best, bestSize = filepath.Join(dir, name), fi.Size()
		}
	}
	if best == "" {
		return "", fmt.Errorf("no output file for %s in %s", id, dir)
	}
	return best, nil
}

func hasIgnoredSuffix(name string) bool {
	lower := strings.ToLower(name)
	for _, s := range ignoredSuffixes {
		if strings.HasSuffix(lower, s) {
			return true
		}
	}
	return false
}
