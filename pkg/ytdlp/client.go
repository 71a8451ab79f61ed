package ytdlp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
)

type ExecError struct {
	Cmd      string
	Args     []string
	ExitCode int
	Stdout   string
	Stderr   string
	Cause    error
}

func (e *ExecError) Error() string {
	if e.ExitCode != 0 {
		return fmt.Sprintf("%s: exit %d: %s", e.Cmd, e.ExitCode, lastLine(e.Stderr))
	}
	if e.Stderr != "" {
		return fmt.Sprintf("%s: %s", e.Cmd, lastLine(e.Stderr))
	}
	return fmt.Sprintf("%s: %v", e.Cmd, e.Cause)
}

func (e *ExecError) Unwrap() error { return e.Cause }

// Client drives a yt-dlp compatible executable. The zero value runs "yt-dlp" from PATH.
type Client struct {
	// Path to the executable. Defaults to "yt-dlp". youtube-dl accepts the same flags
	// for everything this package uses.
	Path string

	// Cookies is Netscape cookies.txt content. When non-empty every command gets a
	// private temp cookie file that is removed as soon as the command returns.
	Cookies string

	// CookieDir is where temp cookie files are written. Defaults to os.TempDir().
	CookieDir string

	// ExtraArgs are prepended to every invocation.
	ExtraArgs []string

	// LogCallback receives each stdout/stderr line as it is produced.
	LogCallback func(stream string, line string)

	execFn func(ctx context.Context, name string, args ...string) (stdout []byte, stderr []byte, err error)
}

func New() *Client {
	return &Client{Path: "yt-dlp"}
}

// PathOrDefault returns the configured path or "yt-dlp" if unset.
func (c *Client) PathOrDefault() string {
	if strings.TrimSpace(c.Path) == "" {
		return "yt-dlp"
	}
	return c.Path
}

func (c *Client) exec(ctx context.Context, args ...string) ([]byte, []byte, error) {
	name := c.PathOrDefault()

	fullArgs := make([]string, 0, len(c.ExtraArgs)+len(args)+3)
	fullArgs = append(fullArgs, c.ExtraArgs...)

	if strings.TrimSpace(c.Cookies) != "" {
		cookiesFile, err := createTempCookiesFile(c.CookieDir, c.Cookies)
		if err != nil {
			return nil, nil, fmt.Errorf("ytdlp: create cookies file: %w", err)
		}
		defer func() {
			if err := os.Remove(cookiesFile); err != nil && !errors.Is(err, os.ErrNotExist) {
				slog.Warn("ytdlp: failed to remove cookies file", "path", cookiesFile, "error", err)
			}
		}()
		fullArgs = append(fullArgs, "--cookies", cookiesFile)
	}
	fullArgs = append(fullArgs, args...)

	if c.execFn != nil {
		return c.execFn(ctx, name, fullArgs...)
	}

	slog.Debug("ytdlp: executing", "cmd", name, "args", redactArgs(fullArgs))
	cmd := exec.CommandContext(ctx, name, fullArgs...)
	var outBuf, errBuf bytes.Buffer
	if c.LogCallback != nil {
		cmd.Stdout = &streamWriter{stream: "stdout", callback: c.LogCallback, buffer: &outBuf}
		cmd.Stderr = &streamWriter{stream: "stderr", callback: c.LogCallback, buffer: &errBuf}
	} else {
		cmd.Stdout = &outBuf
		cmd.Stderr = &errBuf
	}

	err := cmd.Run()
	if err != nil && ctx.Err() != nil {
		err = fmt.Errorf("%w: %w", ctx.Err(), err)
	}
	return outBuf.Bytes(), errBuf.Bytes(), err
}

// Version returns `yt-dlp --version`.
func (c *Client) Version(ctx context.Context) (string, error) {
	stdout, stderr, err := c.exec(ctx, "--version")
	if err != nil {
		return "", wrapExecError(c.PathOrDefault(), []string{"--version"}, stdout, stderr, err)
	}
	return strings.TrimSpace(string(stdout)), nil
}

// Info models the subset of --dump-single-json output the pipeline reads.
// The full document is kept in Raw.
type Info struct {
	ID             string          `json:"id"`
	Title          string          `json:"title"`
	Description    string          `json:"description"`
	WebpageURL     string          `json:"webpage_url"`
	Extractor      string          `json:"extractor"`
	Duration       float64         `json:"duration"`
	Width          int             `json:"width"`
	Height         int             `json:"height"`
	Filesize       int64           `json:"filesize"`
	FilesizeApprox int64           `json:"filesize_approx"`
	Availability   string          `json:"availability"`
	LiveStatus     string          `json:"live_status"`
	Raw            json.RawMessage `json:"-"`
}

// SizeBytes returns the exact size when yt-dlp knows it, else the estimate.
func (i *Info) SizeBytes() int64 {
	if i.Filesize > 0 {
		return i.Filesize
	}
	return i.FilesizeApprox
}

// GetInfo runs yt-dlp with --dump-single-json --skip-download.
func (c *Client) GetInfo(ctx context.Context, url string, extraArgs ...string) (*Info, error) {
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("ytdlp: url is required")
	}

	args := []string{"--dump-single-json", "--skip-download", "--no-warnings"}
	args = append(args, extraArgs...)
	args = append(args, url)

	stdout, stderr, err := c.exec(ctx, args...)
	if err != nil {
		return nil, wrapExecError(c.PathOrDefault(), args, stdout, stderr, err)
	}

	raw := bytes.TrimSpace(stdout)
	info := &Info{Raw: append([]byte(nil), raw...)}
	if err := json.Unmarshal(raw, info); err != nil {
		return nil, fmt.Errorf("ytdlp: parse json: %w", err)
	}
	return info, nil
}

func wrapExecError(cmd string, args []string, stdout []byte, stderr []byte, cause error) error {
	exitCode := 0
	var ee *exec.ExitError
	if errors.As(cause, &ee) {
		exitCode = ee.ExitCode()
	}

	return &ExecError{
		Cmd:      cmd,
		Args:     redactArgs(args),
		ExitCode: exitCode,
		Stdout:   strings.TrimSpace(string(stdout)),
		Stderr:   strings.TrimSpace(string(stderr)),
		Cause:    cause,
	}
}

func createTempCookiesFile(dir, content string) (string, error) {
	tmpFile, err := os.CreateTemp(dir, "ytdlp-cookies-*.txt")
	if err != nil {
		return "", err
	}
	defer tmpFile.Close()

	if err := tmpFile.Chmod(0o600); err != nil {
		os.Remove(tmpFile.Name())
		return "", err
	}
	if _, err := tmpFile.WriteString(content); err != nil {
		os.Remove(tmpFile.Name())
		return "", err
	}
	return tmpFile.Name(), nil
}

// redactArgs hides the cookie file path so it never lands in logs or errors.
func redactArgs(args []string) []string {
	out := make([]string, len(args))
	copy(out, args)
	for i := 0; i < len(out)-1; i++ {
		if out[i] == "--cookies" {
			out[i+1] = "<redacted>"
		}
	}
	return out
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.LastIndexByte(s, '\n'); idx >= 0 {
		return strings.TrimSpace(s[idx+1:])
	}
	return s
}
