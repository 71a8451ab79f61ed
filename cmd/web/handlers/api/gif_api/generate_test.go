package gif_api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"thirdcoast.systems/gifmoments/internal/acquire"
	"thirdcoast.systems/gifmoments/internal/media"
	"thirdcoast.systems/gifmoments/internal/pipeline"
)

// mp4Header is enough of an ftyp box for content sniffing.
var mp4Header = []byte("\x00\x00\x00\x18ftypmp42\x00\x00\x00\x00mp42isom")

type fakeRunner struct {
	got  *pipeline.Request
	res  *pipeline.Result
	err  error
	seen bool
}

func (f *fakeRunner) Run(ctx context.Context, req pipeline.Request) (*pipeline.Result, error) {
	f.got = &req
	if req.OwnsUpload && req.Reference.Path != "" {
		_, statErr := os.Stat(req.Reference.Path)
		f.seen = statErr == nil
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return f.res, f.err
}

func doJSON(t *testing.T, h echo.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/generate", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	require.NoError(t, h(e.NewContext(req, rec)))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHandleGenerate_JSONSuccess(t *testing.T) {
	id := uuid.New()
	runner := &fakeRunner{res: &pipeline.Result{
		Artifacts:     []media.Artifact{{ID: id, Caption: "Wait for it", Start: 0, End: 3, SizeBytes: 1024}},
		Info:          media.VideoInfo{DurationSeconds: 20},
		CaptionSource: media.SourceFallback,
	}}

	rec := doJSON(t, HandleGenerate(runner, GenerateOptions{}), `{"youtubeUrl":" https://youtu.be/dQw4w9WgXcQ ","prompt":"funny"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	require.NotNil(t, runner.got)
	assert.Equal(t, media.RemoteReference("https://youtu.be/dQw4w9WgXcQ"), runner.got.Reference)
	assert.Equal(t, "funny", runner.got.Prompt)

	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	gifs := body["gifs"].([]any)
	require.Len(t, gifs, 1)
	assert.Equal(t, "/api/gifs/"+id.String(), gifs[0].(map[string]any)["url"])
}

func TestHandleGenerate_ErrorStatuses(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"acquisition", acquire.NewAcquisitionError("https://youtu.be/x", "", []acquire.AttemptFailure{{Strategy: "ytdlp:default", Err: assert.AnError}}), http.StatusUnprocessableEntity},
		{"all renders failed", &pipeline.RenderFailure{Errors: []string{"a"}}, http.StatusInternalServerError},
		{"internal", assert.AnError, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(t, HandleGenerate(&fakeRunner{err: tc.err}, GenerateOptions{}), `{"youtubeUrl":"https://youtu.be/x","prompt":"p"}`)
			assert.Equal(t, tc.status, rec.Code)
			body := decode(t, rec)
			assert.Equal(t, false, body["success"])
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestHandleGenerate_MissingPrompt(t *testing.T) {
	rec := doJSON(t, HandleGenerate(&fakeRunner{}, GenerateOptions{}), `{"youtubeUrl":"https://youtu.be/x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode(t, rec)["error"], "prompt")
}

func multipartRequest(t *testing.T, fields map[string]string, file []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if file != nil {
		fw, err := w.CreateFormFile("video", "clip.mp4")
		require.NoError(t, err)
		_, err = fw.Write(file)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	req := httptest.NewRequest(http.MethodPost, "/api/generate", &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	return req
}

func TestHandleGenerate_Upload(t *testing.T) {
	dir := t.TempDir()
	runner := &fakeRunner{res: &pipeline.Result{}}
	e := echo.New()
	rec := httptest.NewRecorder()
	req := multipartRequest(t, map[string]string{"prompt": "dance"}, mp4Header)

	require.NoError(t, HandleGenerate(runner, GenerateOptions{UploadDir: dir})(e.NewContext(req, rec)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	require.NotNil(t, runner.got)
	assert.Equal(t, media.KindUpload, runner.got.Reference.Kind)
	assert.True(t, runner.got.OwnsUpload)
	assert.True(t, strings.HasSuffix(runner.got.Reference.Path, ".mp4"))
	assert.True(t, runner.seen, "upload must exist when the run starts")
}

func TestHandleGenerate_UploadRejectsNonVideo(t *testing.T) {
	dir := t.TempDir()
	runner := &fakeRunner{}
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	e := echo.New()
	rec := httptest.NewRecorder()
	req := multipartRequest(t, map[string]string{"prompt": "dance"}, png)

	require.NoError(t, HandleGenerate(runner, GenerateOptions{UploadDir: dir})(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, runner.got)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestHandleGenerate_UploadTooLarge(t *testing.T) {
	dir := t.TempDir()
	e := echo.New()
	rec := httptest.NewRecorder()
	req := multipartRequest(t, map[string]string{"prompt": "dance"}, mp4Header)

	require.NoError(t, HandleGenerate(&fakeRunner{}, GenerateOptions{UploadDir: dir, MaxUploadBytes: 4})(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode(t, rec)["error"], "larger than")
}

func TestHandleGenerate_BothSources(t *testing.T) {
	dir := t.TempDir()
	runner := &fakeRunner{}
	e := echo.New()
	rec := httptest.NewRecorder()
	req := multipartRequest(t, map[string]string{"prompt": "dance", "youtubeUrl": "https://youtu.be/x"}, mp4Header)

	require.NoError(t, HandleGenerate(runner, GenerateOptions{UploadDir: dir})(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode(t, rec)["error"], "not both")
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, StatusFor(&pipeline.InputError{Field: "prompt"}))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(context.Canceled))
}
