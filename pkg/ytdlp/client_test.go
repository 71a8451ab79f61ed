package ytdlp

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetInfo_ParsesJSON(t *testing.T) {
	c := New()
	c.execFn = func(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
		return []byte(`{"id":"abc","title":"hello","duration":12.5,"width":1280,"height":720,"filesize_approx":4096}`), nil, nil
	}

	info, err := c.GetInfo(context.Background(), "https://www.youtube.com/watch?v=abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", info.ID)
	assert.Equal(t, "hello", info.Title)
	assert.Equal(t, 12.5, info.Duration)
	assert.Equal(t, int64(4096), info.SizeBytes())
	assert.NotEmpty(t, info.Raw)
}

func TestGetInfo_WrapsExecError(t *testing.T) {
	c := New()
	c.execFn = func(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
		return []byte("out"), []byte("WARNING: x\nERROR: Sign in to confirm you're not a bot"), errors.New("boom")
	}

	_, err := c.GetInfo(context.Background(), "https://example.com")
	require.Error(t, err)

	var ee *ExecError
	require.ErrorAs(t, err, &ee)
	assert.Contains(t, ee.Stderr, "not a bot")
	assert.Contains(t, ee.Error(), "ERROR: Sign in to confirm")
}

func TestGetInfo_RequiresURL(t *testing.T) {
	_, err := New().GetInfo(context.Background(), "  ")
	require.Error(t, err)
}

func TestVersion_TrimsOutput(t *testing.T) {
	c := New()
	c.execFn = func(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
		return []byte("2025.01.01\n"), nil, nil
	}

	v, err := c.Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2025.01.01", v)
}

func TestExec_CookiesFileIsScopedToCommand(t *testing.T) {
	dir := t.TempDir()
	c := &Client{Cookies: "# Netscape HTTP Cookie File\n.youtube.com\tTRUE\t/\tTRUE\t0\tSID\tsecret\n", CookieDir: dir}

	var seenPath string
	c.execFn = func(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
		for i, a := range args {
			if a == "--cookies" {
				seenPath = args[i+1]
			}
		}
		data, err := os.ReadFile(seenPath)
		require.NoError(t, err)
		assert.Contains(t, string(data), "secret")
		return nil, []byte("failed"), errors.New("exit 1")
	}

	_, err := c.GetInfo(context.Background(), "https://example.com/v")
	require.Error(t, err)
	require.NotEmpty(t, seenPath)

	_, statErr := os.Stat(seenPath)
	assert.True(t, os.IsNotExist(statErr), "cookie file should be removed after the command")

	var ee *ExecError
	require.ErrorAs(t, err, &ee)
	assert.NotContains(t, ee.Args, seenPath)
}

func TestDownload_BuildsArgs(t *testing.T) {
	c := New()
	var got []string
	c.execFn = func(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
		got = args
		return nil, nil, nil
	}

	err := c.Download(context.Background(), "https://youtu.be/abc", "/tmp/work", DownloadOptions{Profile: ProfileAndroid, Name: "abc"})
	require.NoError(t, err)
	assert.Contains(t, got, filepath.Join("/tmp/work", "abc.%(ext)s"))
	assert.Contains(t, got, "youtube:player_client=android")
	assert.Contains(t, got, "best[ext=mp4][height<=720]/bestvideo[height<=720]+bestaudio/best")
	assert.Equal(t, "https://youtu.be/abc", got[len(got)-1])
}

func TestDownload_DefaultProfileAddsNoExtractorArgs(t *testing.T) {
	c := New()
	var got []string
	c.execFn = func(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
		got = args
		return nil, nil, nil
	}

	require.NoError(t, c.Download(context.Background(), "https://youtu.be/abc", "/tmp/work", DownloadOptions{}))
	assert.NotContains(t, got, "--extractor-args")
	assert.Contains(t, got, filepath.Join("/tmp/work", "%(id)s.%(ext)s"))
}

func TestWriteSubtitles_ReturnsVTTFiles(t *testing.T) {
	dir := t.TempDir()
	c := New()
	c.execFn = func(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "abc.en.vtt"), []byte("WEBVTT\n"), 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "abc.info.json"), []byte("{}"), 0o644))
		return nil, nil, nil
	}

	files, err := c.WriteSubtitles(context.Background(), "https://youtu.be/abc", dir)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "en", SubtitleLanguage(files[0]))
}

func TestStreamWriter_SplitsOnCRAndLF(t *testing.T) {
	var buf bytes.Buffer
	var lines []string
	w := &streamWriter{
		stream: "stdout",
		callback: func(stream string, line string) {
			lines = append(lines, stream+":"+line)
		},
		buffer: &buf,
	}

	_, err := w.Write([]byte("a\rb\nc\r\nd"))
	require.NoError(t, err)
	require.Equal(t, []string{"stdout:a", "stdout:b", "stdout:c"}, lines)

	_, err = w.Write([]byte("\n"))
	require.NoError(t, err)
	require.Equal(t, []string{"stdout:a", "stdout:b", "stdout:c", "stdout:d"}, lines)
	require.Equal(t, "a\rb\nc\r\nd\n", buf.String())
}
