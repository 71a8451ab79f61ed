package ytdlp

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// Profile selects which YouTube player client yt-dlp emulates. Different clients
// are served different stream manifests and trip different bot checks.
type Profile string

const (
	ProfileDefault    Profile = "default"
	ProfileAndroid    Profile = "android"
	ProfileIOS        Profile = "ios"
	ProfileTVEmbedded Profile = "tv_embedded"
	ProfileWebCreator Profile = "web_creator"
)

// Profiles is the order the acquisition cascade walks through.
var Profiles = []Profile{ProfileDefault, ProfileAndroid, ProfileIOS, ProfileTVEmbedded, ProfileWebCreator}

// Args returns the extractor arguments for the profile. The default profile adds none.
func (p Profile) Args() []string {
	if p == "" || p == ProfileDefault {
		return nil
	}
	return []string{"--extractor-args", "youtube:player_client=" + string(p)}
}

type DownloadOptions struct {
	Profile Profile
	// Name fixes the output base name. Empty uses the extractor id.
	Name string
	// MaxHeight caps the video height. Zero means 720.
	MaxHeight int
	// MaxFilesize is passed through as --max-filesize when non-empty (e.g. "500M").
	MaxFilesize string
	ExtraArgs   []string
}

// OutputTemplate names downloads <name>.<ext>, or <extractor id>.<ext> when name
// is empty, so callers can find the file by an identifier they already know.
func OutputTemplate(destDir, name string) string {
	if name == "" {
		return filepath.Join(destDir, "%(id)s.%(ext)s")
	}
	return filepath.Join(destDir, strings.ReplaceAll(name, "%", "%%")+".%(ext)s")
}

// Download fetches a single video into destDir as <id>.<ext>, preferring mp4.
func (c *Client) Download(ctx context.Context, url string, destDir string, opts DownloadOptions) error {
	if strings.TrimSpace(url) == "" {
		return fmt.Errorf("ytdlp: url is required")
	}
	if strings.TrimSpace(destDir) == "" {
		return fmt.Errorf("ytdlp: destDir is required")
	}

	height := opts.MaxHeight
	if height <= 0 {
		height = 720
	}
	h := strconv.Itoa(height)

	args := []string{
		"-o", OutputTemplate(destDir, opts.Name),
		"--format", "best[ext=mp4][height<=" + h + "]/bestvideo[height<=" + h + "]+bestaudio/best",
		"--merge-output-format", "mp4",
		"--no-playlist",
		"--no-part",
		"--no-colors",
		"--newline",
	}
	if opts.MaxFilesize != "" {
		args = append(args, "--max-filesize", opts.MaxFilesize)
	}
	args = append(args, opts.Profile.Args()...)
	args = append(args, opts.ExtraArgs...)
	args = append(args, url)

	stdout, stderr, err := c.exec(ctx, args...)
	if err != nil {
		return wrapExecError(c.PathOrDefault(), args, stdout, stderr, err)
	}
	return nil
}
