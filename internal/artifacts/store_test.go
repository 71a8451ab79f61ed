package artifacts

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"thirdcoast.systems/gifmoments/internal/media"
)

type failingMetadata struct{}

func (failingMetadata) Insert(ctx context.Context, m Meta) error { return errors.New("db down") }

func (failingMetadata) Get(ctx context.Context, id uuid.UUID) (*Meta, error) {
	return nil, ErrNotFound
}

func renderedArtifact(t *testing.T, dir string) *media.Artifact {
	t.Helper()
	id := uuid.New()
	p := filepath.Join(dir, Key(id))
	require.NoError(t, os.WriteFile(p, []byte("GIF89a-bytes"), 0o644))
	return &media.Artifact{ID: id, Path: p, Caption: "c", Start: 1, End: 3, SizeBytes: 12, HasCaption: true, CreatedAt: time.Now().UTC()}
}

func TestStore_SaveInPlaceAndRetrieve(t *testing.T) {
	blobs, err := NewDiskBlobs(t.TempDir())
	require.NoError(t, err)
	s := NewStore(NewMemoryMetadata(), blobs)

	a := renderedArtifact(t, blobs.Dir)
	require.NoError(t, s.Save(context.Background(), a, Provenance{Source: "https://youtu.be/x", Prompt: "funny"}))

	meta, err := s.Meta(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, "c", meta.Caption)
	assert.Equal(t, "funny", meta.Prompt)
	assert.Equal(t, "image/gif", meta.ContentType)
	assert.Equal(t, Key(a.ID), meta.StorageKey)

	rc, info, err := s.Open(context.Background(), a.ID)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "GIF89a-bytes", string(data))
	assert.Equal(t, int64(12), info.Size)

	p, ok := s.LocalPath(a.ID)
	assert.True(t, ok)
	assert.Equal(t, a.Path, p)
}

func TestStore_SaveCopiesFromElsewhere(t *testing.T) {
	blobs, err := NewDiskBlobs(t.TempDir())
	require.NoError(t, err)
	s := NewStore(NewMemoryMetadata(), blobs)

	a := renderedArtifact(t, t.TempDir())
	require.NoError(t, s.Save(context.Background(), a, Provenance{}))

	p, ok := s.LocalPath(a.ID)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(blobs.Dir, Key(a.ID)), p)

	entries, err := os.ReadDir(blobs.Dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary upload files must not remain")
}

func TestStore_MetadataFailureRemovesBlob(t *testing.T) {
	blobs, err := NewDiskBlobs(t.TempDir())
	require.NoError(t, err)
	s := NewStore(failingMetadata{}, blobs)

	a := renderedArtifact(t, blobs.Dir)
	require.Error(t, s.Save(context.Background(), a, Provenance{}))

	_, _, err = s.Open(context.Background(), a.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_UnknownArtifact(t *testing.T) {
	blobs, err := NewDiskBlobs(t.TempDir())
	require.NoError(t, err)
	s := NewStore(NewMemoryMetadata(), blobs)

	id := uuid.New()
	_, err = s.Meta(context.Background(), id)
	assert.ErrorIs(t, err, ErrNotFound)
	_, _, err = s.Open(context.Background(), id)
	assert.ErrorIs(t, err, ErrNotFound)
	_, ok := s.LocalPath(id)
	assert.False(t, ok)
}

func TestDiskBlobs_RejectsTraversal(t *testing.T) {
	blobs, err := NewDiskBlobs(t.TempDir())
	require.NoError(t, err)

	_, _, err = blobs.Open(context.Background(), "../etc/passwd")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Error(t, blobs.Put(context.Background(), "a/b.gif", "x"))
	_, ok := blobs.LocalPath("..")
	assert.False(t, ok)
}

func TestMemoryMetadata_DuplicateInsert(t *testing.T) {
	m := NewMemoryMetadata()
	id := uuid.New()
	require.NoError(t, m.Insert(context.Background(), Meta{ID: id}))
	assert.Error(t, m.Insert(context.Background(), Meta{ID: id}))

	got, err := m.Get(context.Background(), id)
	require.NoError(t, err)
	assert.False(t, got.CreatedAt.IsZero())
}
