package acquire

import (
	"context"
	"os"
)

// FileCookies reads a Netscape cookie file on every call so edits take effect
// without a restart.
type FileCookies string

func (f FileCookies) Cookies(ctx context.Context) (string, error) {
	if f == "" {
		return "", nil
	}
	data, err := os.ReadFile(string(f))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// FirstCookies returns the first non-empty cookie text from its sources.
type FirstCookies []CookieSource

func (fc FirstCookies) Cookies(ctx context.Context) (string, error) {
	var firstErr error
	for _, s := range fc {
		text, err := s.Cookies(ctx)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if text != "" {
			return text, nil
		}
	}
	return "", firstErr
}
