package acquire

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	stdcookiejar "net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/kkdai/youtube/v2"
	"thirdcoast.systems/gifmoments/internal/cookiejar"
)

const libraryMaxHeight = 720

var errNotYouTube = errors.New("library downloader only supports YouTube")

// LibraryStrategy downloads YouTube videos in-process, without an external tool.
type LibraryStrategy struct {
	// HTTPClient overrides the transport. Cookies are added to a copy of it.
	HTTPClient *http.Client
}

func (s *LibraryStrategy) Name() string { return NameLibrary }

func (s *LibraryStrategy) Attempt(ctx context.Context, a Attempt) (string, error) {
	if !a.Source.YouTube {
		return "", errNotYouTube
	}

	client := youtube.Client{HTTPClient: s.httpClient(a.Cookies)}
	video, err := client.GetVideoContext(ctx, a.Source.ID)
	if err != nil {
		return "", fmt.Errorf("fetch video metadata: %w", err)
	}

	format, err := pickMuxedFormat(video.Formats)
	if err != nil {
		return "", err
	}

	stream, _, err := client.GetStreamContext(ctx, video, format)
	if err != nil {
		return "", fmt.Errorf("open stream: %w", err)
	}
	defer stream.Close()

	out := filepath.Join(a.Dir, a.Source.ID+".mp4")
	f, err := os.Create(out)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, stream); err != nil {
		f.Close()
		return "", fmt.Errorf("copy stream: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return out, nil
}

func (s *LibraryStrategy) httpClient(cookies string) *http.Client {
	base := http.DefaultClient
	if s.HTTPClient != nil {
		base = s.HTTPClient
	}
	c := *base
	if jar := youtubeCookieJar(cookies); jar != nil {
		c.Jar = jar
	}
	return &c
}

// pickMuxedFormat chooses the tallest mp4 with both audio and video, capped at 720p.
func pickMuxedFormat(formats youtube.FormatList) (*youtube.Format, error) {
	var candidates []youtube.Format
	for _, f := range formats.WithAudioChannels() {
		if f.Height > 0 && f.Height <= libraryMaxHeight && strings.HasPrefix(f.MimeType, "video/mp4") {
			candidates = append(candidates, f)
		}
	}
	if len(candidates) == 0 {
		return nil, errors.New("no muxed mp4 format available")
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Height != candidates[j].Height {
			return candidates[i].Height > candidates[j].Height
		}
		return candidates[i].Bitrate > candidates[j].Bitrate
	})
	return &candidates[0], nil
}

// youtubeCookieJar loads the YouTube and Google cookies from Netscape text.
func youtubeCookieJar(content string) http.CookieJar {
	if strings.TrimSpace(content) == "" {
		return nil
	}
	parsed := cookiejar.Parse(content)
	if len(parsed.Cookies) == 0 {
		return nil
	}
	jar, err := stdcookiejar.New(nil)
	if err != nil {
		return nil
	}

	byHost := map[string][]*http.Cookie{}
	for _, c := range parsed.Cookies {
		host := strings.TrimPrefix(c.Domain, ".")
		if !strings.HasSuffix(host, "youtube.com") && !strings.HasSuffix(host, "google.com") {
			continue
		}
		hc := &http.Cookie{
			Name:   c.Name,
			Value:  c.Value,
			Path:   c.Path,
			Secure: strings.EqualFold(c.Secure, "TRUE"),
		}
		if strings.HasPrefix(c.Domain, ".") {
			hc.Domain = host
		}
		if c.Expiration > 0 {
			hc.Expires = time.Unix(c.Expiration, 0)
		}
		byHost[host] = append(byHost[host], hc)
	}
	for host, cookies := range byHost {
		jar.SetCookies(&url.URL{Scheme: "https", Host: host, Path: "/"}, cookies)
	}
	return jar
}
