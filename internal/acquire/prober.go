package acquire

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"google.golang.org/api/option"
	ytapi "google.golang.org/api/youtube/v3"
	"thirdcoast.systems/gifmoments/internal/media"
	"thirdcoast.systems/gifmoments/internal/videoid"
	"thirdcoast.systems/gifmoments/pkg/ytdlp"
)

// ErrVideoNotFound is returned by the Data API lookup when no video matches.
var ErrVideoNotFound = errors.New("video not found")

// RemoteMetadata is what a probe learned about a remote video.
type RemoteMetadata struct {
	Title           string  `json:"title"`
	Description     string  `json:"description,omitempty"`
	DurationSeconds float64 `json:"duration"`
	Width           int     `json:"width,omitempty"`
	Height          int     `json:"height,omitempty"`
	SizeBytes       int64   `json:"size,omitempty"`
	Availability    string  `json:"availability,omitempty"`
	LiveStatus      string  `json:"liveStatus,omitempty"`
	// Source is "ytdlp" or "youtube-api".
	Source string `json:"source"`
}

// VideoInfo converts the metadata into an estimated VideoInfo.
func (m *RemoteMetadata) VideoInfo() media.VideoInfo {
	return media.VideoInfo{
		DurationSeconds: m.DurationSeconds,
		Width:           m.Width,
		Height:          m.Height,
		SizeBytes:       m.SizeBytes,
		Title:           m.Title,
		Description:     m.Description,
	}
}

type infoFetcher interface {
	GetInfo(ctx context.Context, url string, extraArgs ...string) (*ytdlp.Info, error)
}

// Prober asks yt-dlp for metadata and falls back to the YouTube Data API.
type Prober struct {
	ytdlp  infoFetcher
	lookup func(ctx context.Context, id string) (*ytapi.Video, error)
}

// NewProber builds a prober. apiKey may be empty, which disables the Data API.
func NewProber(ctx context.Context, client *ytdlp.Client, apiKey string) (*Prober, error) {
	p := &Prober{}
	if client != nil {
		p.ytdlp = client
	}
	if apiKey == "" {
		return p, nil
	}
	svc, err := ytapi.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create youtube service: %w", err)
	}
	p.lookup = func(ctx context.Context, id string) (*ytapi.Video, error) {
		resp, err := svc.Videos.List([]string{"snippet", "contentDetails"}).Id(id).Context(ctx).Do()
		if err != nil {
			return nil, err
		}
		if len(resp.Items) == 0 {
			return nil, ErrVideoNotFound
		}
		return resp.Items[0], nil
	}
	return p, nil
}

// Probe returns metadata for rawURL. The yt-dlp error wins when both lookups fail.
func (p *Prober) Probe(ctx context.Context, rawURL string) (*RemoteMetadata, error) {
	src, err := videoid.Identify(rawURL)
	if err != nil {
		return nil, err
	}

	var firstErr error
	if p.ytdlp != nil {
		info, err := p.ytdlp.GetInfo(ctx, src.URL, "--no-playlist")
		if err == nil {
			return &RemoteMetadata{
				Title:           info.Title,
				Description:     info.Description,
				DurationSeconds: info.Duration,
				Width:           info.Width,
				Height:          info.Height,
				SizeBytes:       info.SizeBytes(),
				Availability:    info.Availability,
				LiveStatus:      info.LiveStatus,
				Source:          "ytdlp",
			}, nil
		}
		firstErr = err
	}

	if p.lookup != nil && src.YouTube {
		v, err := p.lookup(ctx, src.ID)
		if err == nil {
			return metadataFromAPI(v), nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}

	if firstErr == nil {
		firstErr = errors.New("no metadata source available")
	}
	return nil, firstErr
}

func metadataFromAPI(v *ytapi.Video) *RemoteMetadata {
	m := &RemoteMetadata{Source: "youtube-api"}
	if v.Snippet != nil {
		m.Title = v.Snippet.Title
		m.Description = v.Snippet.Description
		m.LiveStatus = v.Snippet.LiveBroadcastContent
	}
	if v.ContentDetails != nil {
		m.DurationSeconds, _ = ParseISODuration(v.ContentDetails.Duration)
	}
	return m
}

var isoDurationRe = regexp.MustCompile(`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+(?:\.\d+)?)S)?)?$`)

// ParseISODuration parses the ISO 8601 durations the Data API returns, such as
// "PT1H2M3S", into seconds.
func ParseISODuration(s string) (float64, error) {
	m := isoDurationRe.FindStringSubmatch(s)
	if m == nil || s == "P" || s == "PT" {
		return 0, fmt.Errorf("invalid ISO 8601 duration %q", s)
	}
	units := []float64{86400, 3600, 60, 1}
	var total float64
	for i, u := range units {
		if m[i+1] == "" {
			continue
		}
		v, err := strconv.ParseFloat(m[i+1], 64)
		if err != nil {
			return 0, err
		}
		total += v * u
	}
	return total, nil
}
