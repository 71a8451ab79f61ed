package acquire

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"thirdcoast.systems/gifmoments/internal/videoid"
)

func testAttempt(t *testing.T, cookies string) Attempt {
	t.Helper()
	src, err := videoid.Identify(testURL)
	require.NoError(t, err)
	return Attempt{Source: src, Dir: t.TempDir(), Cookies: cookies}
}

func TestAttempt_UsesNormalizedURL(t *testing.T) {
	a := testAttempt(t, "")
	assert.Equal(t, canonicalURL, a.Source.URL)
	assert.Equal(t, testID, a.Source.ID)
}

func TestBuild_DefaultOrder(t *testing.T) {
	strategies, err := Build(nil, nil)
	require.NoError(t, err)

	names := make([]string, 0, len(strategies))
	for _, s := range strategies {
		names = append(names, s.Name())
	}
	assert.Equal(t, []string{
		"ytdlp:default", "ytdlp:android", "ytdlp:ios", "ytdlp:tv_embedded", "ytdlp:web_creator",
		"library", "youtube-dl", "gallery-dl", "streamlink",
	}, names)
}

func TestBuild_UnknownName(t *testing.T) {
	_, err := Build([]string{"ytdlp:android", "wget"}, nil)
	require.Error(t, err)
}

func TestCommandStrategy_CookieFileIsScopedToAttempt(t *testing.T) {
	a := testAttempt(t, "# Netscape HTTP Cookie File\n.youtube.com\tTRUE\t/\tTRUE\t0\tSID\tv\n")
	s := YoutubeDL("")

	var cookiePath string
	s.run = func(ctx context.Context, name string, args ...string) (string, error) {
		assert.Equal(t, "youtube-dl", name)
		for i, arg := range args {
			if arg == "--cookies" {
				cookiePath = args[i+1]
			}
		}
		require.NotEmpty(t, cookiePath)
		data, err := os.ReadFile(cookiePath)
		require.NoError(t, err)
		assert.Contains(t, string(data), "SID")

		fi, err := os.Stat(cookiePath)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), fi.Mode().Perm())

		assert.Contains(t, args, filepath.Join(a.Dir, testID+".%(ext)s"))
		assert.Equal(t, canonicalURL, args[len(args)-1])
		return "", os.WriteFile(filepath.Join(a.Dir, testID+".mp4"), []byte("v"), 0o644)
	}

	path, err := s.Attempt(context.Background(), a)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(a.Dir, testID+".mp4"), path)

	_, statErr := os.Stat(cookiePath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestCommandStrategy_CookieFileRemovedOnFailure(t *testing.T) {
	a := testAttempt(t, "cookies")
	s := GalleryDL("")

	var cookiePath string
	s.run = func(ctx context.Context, name string, args ...string) (string, error) {
		for i, arg := range args {
			if arg == "--cookies" {
				cookiePath = args[i+1]
			}
		}
		return "boom", &ToolError{Tool: name, Stderr: "HTTP Error 404", Err: errors.New("exit status 1")}
	}

	_, err := s.Attempt(context.Background(), a)
	require.Error(t, err)
	assert.Equal(t, ReasonUnavailable, Classify(err))
	require.NotEmpty(t, cookiePath)
	_, statErr := os.Stat(cookiePath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestStreamlink_Args(t *testing.T) {
	a := testAttempt(t, "ignored")
	s := Streamlink("/usr/bin/streamlink")

	s.run = func(ctx context.Context, name string, args ...string) (string, error) {
		assert.Equal(t, "/usr/bin/streamlink", name)
		assert.NotContains(t, args, "--cookies")
		assert.Equal(t, []string{"--force", "--output", filepath.Join(a.Dir, testID+".ts"), canonicalURL, "best"}, args)
		return "", os.WriteFile(filepath.Join(a.Dir, testID+".ts"), []byte("ts"), 0o644)
	}
	path, err := s.Attempt(context.Background(), a)
	require.NoError(t, err)
	assert.Equal(t, testID+".ts", filepath.Base(path))
}

func TestFindOutput_SkipsSideFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "abc.info.json"), []byte("{}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "abc.mp4.part"), []byte("partial-but-bigger"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "abc.mp4"), []byte("v"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.mkv"), []byte("vvvv"), 0o644))

	path, err := findOutput(dir, "abc")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "abc.mp4"), path)

	_, err = findOutput(dir, "zzz")
	require.Error(t, err)
}

func TestLibraryStrategy_RejectsNonYouTube(t *testing.T) {
	src, err := videoid.Identify("https://example.com/video.mp4")
	require.NoError(t, err)
	_, err = (&LibraryStrategy{}).Attempt(context.Background(), Attempt{Source: src, Dir: t.TempDir()})
	require.ErrorIs(t, err, errNotYouTube)
}

func TestYoutubeCookieJar_OnlyGoogleDomains(t *testing.T) {
	jar := youtubeCookieJar(".youtube.com\tTRUE\t/\tTRUE\t0\tSID\ta\n.example.com\tTRUE\t/\tFALSE\t0\tX\tb\n")
	require.NotNil(t, jar)
	assert.Nil(t, youtubeCookieJar(""))
}

func TestFileCookies(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.txt")
	require.NoError(t, os.WriteFile(path, []byte("jar"), 0o600))

	text, err := FileCookies(path).Cookies(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "jar", text)

	text, err = FileCookies("").Cookies(context.Background())
	require.NoError(t, err)
	assert.Empty(t, text)

	first := FirstCookies{staticCookies(""), FileCookies(path)}
	text, err = first.Cookies(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "jar", text)
}

func TestSniffVideo(t *testing.T) {
	dir := t.TempDir()

	gif := filepath.Join(dir, "a.bin")
	require.NoError(t, os.WriteFile(gif, []byte("GIF89a\x01\x00\x01\x00\x00\x00\x00"), 0o644))
	mime, err := SniffVideo(gif)
	require.Error(t, err)
	assert.Equal(t, "image/gif", mime)

	avi := filepath.Join(dir, "b.bin")
	require.NoError(t, os.WriteFile(avi, []byte("RIFF\x00\x00\x00\x00AVI LIST\x00\x00\x00\x00"), 0o644))
	mime, err = SniffVideo(avi)
	require.NoError(t, err)
	assert.Equal(t, "video/x-msvideo", mime)

	unknown := filepath.Join(dir, "c.bin")
	require.NoError(t, os.WriteFile(unknown, []byte("just some bytes here"), 0o644))
	_, err = SniffVideo(unknown)
	require.NoError(t, err)
}
