// Package videoid normalizes user-supplied video URLs and derives the stable
// identifier that downloaded files are named after.
package videoid

import (
	"errors"
	"net/url"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// Well-known host aliases. Key: input host. Value: canonical domain.
var canonicalDomainByHost = map[string]string{
	"youtube.com":              "youtube.com",
	"www.youtube.com":          "youtube.com",
	"m.youtube.com":            "youtube.com",
	"music.youtube.com":        "youtube.com",
	"youtube-nocookie.com":     "youtube.com",
	"www.youtube-nocookie.com": "youtube.com",
	"youtu.be":                 "youtube.com",

	"x.com":              "x.com",
	"www.x.com":          "x.com",
	"twitter.com":        "x.com",
	"www.twitter.com":    "x.com",
	"mobile.twitter.com": "x.com",

	"twitch.tv":     "twitch.tv",
	"www.twitch.tv": "twitch.tv",
	"m.twitch.tv":   "twitch.tv",
}

var youtubeIDRe = regexp.MustCompile(`^[A-Za-z0-9_-]{6,20}$`)

// ErrUnsupportedURL is returned for URLs that are not http(s).
var ErrUnsupportedURL = errors.New("unsupported url")

// Source is a normalized remote video reference.
type Source struct {
	URL     string // normalized URL handed to downloaders
	Domain  string // canonical domain
	ID      string // file-name-safe identifier; the YouTube video id when known
	YouTube bool
}

// Identify normalizes raw and derives the identifier downloads are named after.
// Non-YouTube sources get a deterministic id from VideoUUID over the normalized URL.
func Identify(raw string) (Source, error) {
	normalized, domain, err := NormalizeSourceURL(raw)
	if err != nil {
		return Source{}, err
	}
	u, _ := url.Parse(normalized)
	if u.Scheme != "https" || u.Host == "" {
		return Source{}, ErrUnsupportedURL
	}

	src := Source{URL: normalized, Domain: domain}
	if domain == "youtube.com" {
		if id, err := ExtractYouTubeVideoID(normalized); err == nil && youtubeIDRe.MatchString(id) {
			src.ID = id
			src.YouTube = true
			return src, nil
		}
	}
	src.ID = strings.ReplaceAll(VideoUUID(domain, normalized).String(), "-", "")[:16]
	return src, nil
}

// ResolveCanonicalDomain returns the canonical domain for host.
//
// host should be a hostname without port.
func ResolveCanonicalDomain(host string) string {
	h := normalizeHost(host)
	if h == "" {
		return ""
	}
	if c, ok := canonicalDomainByHost[h]; ok {
		return c
	}
	return h
}

// VideoUUID returns a deterministic UUIDv5 for a (domain, videoID) pair.
func VideoUUID(domain string, videoID string) uuid.UUID {
	d := strings.TrimSuffix(strings.TrimSpace(strings.ToLower(domain)), ".")
	ns := uuid.NewSHA1(uuid.NameSpaceDNS, []byte(d))
	return uuid.NewSHA1(ns, []byte(strings.TrimSpace(videoID)))
}

// NormalizeSourceURL canonicalizes the host, forces https and strips fragments,
// credentials and volatile query parameters. YouTube URLs collapse to
// https://youtube.com/watch?v={id}.
func NormalizeSourceURL(raw string) (string, string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", "", errors.New("missing url")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", "", err
	}
	if u.Scheme == "" {
		if u, err = url.Parse("https://" + raw); err != nil {
			return "", "", err
		}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", "", ErrUnsupportedURL
	}

	u.Fragment = ""
	u.User = nil
	u.Scheme = "https"

	canon := ResolveCanonicalDomain(u.Host)

	// Shortlinks carry the id in the path, so extract before rewriting the host.
	youtubeID := ""
	if canon == "youtube.com" {
		youtubeID, _ = ExtractYouTubeVideoID(u.String())
	}
	if canon != "" {
		u.Host = canon
	}
	if u.Path != "/" {
		u.Path = strings.TrimRight(u.Path, "/")
	}

	switch canon {
	case "youtube.com":
		if youtubeID != "" {
			u.Path = "/watch"
			u.RawQuery = "v=" + url.QueryEscape(youtubeID)
		}
	case "twitch.tv", "x.com":
		u.RawQuery = ""
	}

	return u.String(), canon, nil
}

// ExtractYouTubeVideoID extracts the YouTube video ID from a URL.
func ExtractYouTubeVideoID(urlStr string) (string, error) {
	urlStr = strings.TrimSpace(urlStr)
	if urlStr == "" {
		return "", errors.New("empty url")
	}

	u, err := url.Parse(urlStr)
	if err != nil {
		return "", err
	}

	host := normalizeHost(u.Host)
	if host == "youtu.be" {
		if id := firstPathSegment(u.Path); id != "" {
			return id, nil
		}
		return "", errors.New("not a youtube url or video id not found")
	}

	if ResolveCanonicalDomain(host) == "youtube.com" {
		if q := strings.TrimSpace(u.Query().Get("v")); q != "" {
			return q, nil
		}
		for _, prefix := range []string{"/embed/", "/v/", "/shorts/", "/live/"} {
			if strings.HasPrefix(u.Path, prefix) {
				if id := firstPathSegment(strings.TrimPrefix(u.Path, prefix)); id != "" {
					return id, nil
				}
			}
		}
	}

	return "", errors.New("not a youtube url or video id not found")
}

func normalizeHost(hostport string) string {
	h := strings.TrimSpace(strings.ToLower(hostport))
	if h == "" {
		return ""
	}
	if strings.Contains(h, ":") {
		if parsed, err := url.Parse("//" + h); err == nil && parsed.Hostname() != "" {
			h = parsed.Hostname()
		}
	}
	return strings.TrimSuffix(h, ".")
}

func firstPathSegment(p string) string {
	p = strings.TrimPrefix(strings.TrimSpace(p), "/")
	seg, _, _ := strings.Cut(p, "/")
	return strings.TrimSpace(seg)
}
