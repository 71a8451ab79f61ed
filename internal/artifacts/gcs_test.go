package artifacts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

// bucketServer answers JSON API uploads and counts the objects that were
// committed with a complete body.
type bucketServer struct {
	committed atomic.Int32
}

func (b *bucketServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost || !strings.Contains(r.URL.Path, "/upload/") {
		http.NotFound(w, r)
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil || !strings.Contains(string(body), "GIF89a-complete") {
		http.Error(w, "incomplete upload", http.StatusBadRequest)
		return
	}
	b.committed.Add(1)
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, `{"bucket":"gifs-bucket","name":"gifs/x.gif","size":"15","contentType":"image/gif"}`)
}

func newTestGCS(t *testing.T) (*GCSBlobs, *bucketServer) {
	t.Helper()
	srv := &bucketServer{}
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	g, err := NewGCSBlobs(context.Background(), "gifs-bucket", "gifs/",
		option.WithEndpoint(ts.URL+"/storage/v1/"),
		option.WithoutAuthentication(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = g.Close() })
	return g, srv
}

// brokenReader yields a prefix and then fails.
type brokenReader struct{ sent bool }

func (r *brokenReader) Read(p []byte) (int, error) {
	if !r.sent {
		r.sent = true
		return copy(p, "GIF89a"), nil
	}
	return 0, errors.New("read: input/output error")
}

func TestGCSBlobs_Put(t *testing.T) {
	g, srv := newTestGCS(t)
	local := filepath.Join(t.TempDir(), "x.gif")
	require.NoError(t, os.WriteFile(local, []byte("GIF89a-complete"), 0o644))

	require.NoError(t, g.Put(context.Background(), "x.gif", local))
	assert.Equal(t, int32(1), srv.committed.Load())

	_, err := os.Stat(local)
	assert.True(t, os.IsNotExist(err), "local render output is removed after upload")
}

func TestGCSBlobs_FailedReadCommitsNothing(t *testing.T) {
	g, srv := newTestGCS(t)

	err := g.upload(context.Background(), "x.gif", &brokenReader{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "input/output error")
	assert.Equal(t, int32(0), srv.committed.Load())
}

func TestGCSBlobs_RejectsBadKey(t *testing.T) {
	g, srv := newTestGCS(t)
	err := g.upload(context.Background(), "../x.gif", strings.NewReader("GIF89a-complete"))
	require.Error(t, err)
	assert.Equal(t, int32(0), srv.committed.Load())
}
