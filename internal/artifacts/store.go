// Package artifacts persists rendered GIFs: metadata in Postgres (or memory)
// and bytes in a BlobStore.
package artifacts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"thirdcoast.systems/gifmoments/internal/db"
	"thirdcoast.systems/gifmoments/internal/media"
)

var ErrNotFound = errors.New("artifact not found")

// Meta is the stored description of an artifact.
type Meta struct {
	ID          uuid.UUID `json:"id"`
	Caption     string    `json:"caption"`
	Start       float64   `json:"startTime"`
	End         float64   `json:"endTime"`
	SizeBytes   int64     `json:"size"`
	HasCaption  bool      `json:"hasCaption"`
	ContentType string    `json:"contentType"`
	Source      string    `json:"source,omitempty"`
	Prompt      string    `json:"prompt,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	StorageKey  string    `json:"-"`
}

// MetadataStore records artifact metadata.
type MetadataStore interface {
	Insert(ctx context.Context, m Meta) error
	// Get returns ErrNotFound for unknown ids.
	Get(ctx context.Context, id uuid.UUID) (*Meta, error)
}

// Key is the blob key for an artifact id.
func Key(id uuid.UUID) string { return id.String() + ".gif" }

type Store struct {
	meta  MetadataStore
	blobs BlobStore
}

func NewStore(meta MetadataStore, blobs BlobStore) *Store {
	return &Store{meta: meta, blobs: blobs}
}

// Provenance is recorded alongside each artifact.
type Provenance struct {
	Source string
	Prompt string
}

// Save stores the artifact bytes, then its metadata. If the metadata write
// fails the blob is removed again.
func (s *Store) Save(ctx context.Context, a *media.Artifact, p Provenance) error {
	key := Key(a.ID)
	if err := s.blobs.Put(ctx, key, a.Path); err != nil {
		return fmt.Errorf("store artifact %s: %w", a.ID, err)
	}
	m := Meta{
		ID:          a.ID,
		Caption:     a.Caption,
		Start:       a.Start,
		End:         a.End,
		SizeBytes:   a.SizeBytes,
		HasCaption:  a.HasCaption,
		ContentType: gifContentType,
		Source:      p.Source,
		Prompt:      p.Prompt,
		CreatedAt:   a.CreatedAt,
		StorageKey:  key,
	}
	if err := s.meta.Insert(ctx, m); err != nil {
		if derr := s.blobs.Delete(ctx, key); derr != nil {
			slog.WarnContext(ctx, "failed to remove orphaned artifact", "id", a.ID, "error", derr)
		}
		return fmt.Errorf("record artifact %s: %w", a.ID, err)
	}
	return nil
}

func (s *Store) Meta(ctx context.Context, id uuid.UUID) (*Meta, error) {
	return s.meta.Get(ctx, id)
}

// Open streams the artifact bytes. It does not consult metadata, so files
// rendered before a restart of a memory-backed store stay retrievable.
func (s *Store) Open(ctx context.Context, id uuid.UUID) (io.ReadCloser, BlobInfo, error) {
	return s.blobs.Open(ctx, Key(id))
}

// LocalPath returns the on-disk path of the artifact when the blob store is
// disk backed.
func (s *Store) LocalPath(id uuid.UUID) (string, bool) {
	if l, ok := s.blobs.(LocalBlobs); ok {
		return l.LocalPath(Key(id))
	}
	return "", false
}

// PGMetadata keeps metadata in the artifacts table.
type PGMetadata struct {
	dbc *db.DatabaseConnection
}

func NewPGMetadata(dbc *db.DatabaseConnection) *PGMetadata { return &PGMetadata{dbc: dbc} }

func (p *PGMetadata) Insert(ctx context.Context, m Meta) error {
	_, err := p.dbc.Queries(ctx).InsertArtifact(ctx, &db.InsertArtifactParams{
		ID:           db.PgUUID(m.ID),
		Caption:      m.Caption,
		StartSeconds: m.Start,
		EndSeconds:   m.End,
		SizeBytes:    m.SizeBytes,
		HasCaption:   m.HasCaption,
		StorageKey:   m.StorageKey,
		ContentType:  m.ContentType,
		Source:       m.Source,
		Prompt:       m.Prompt,
	})
	return err
}

func (p *PGMetadata) Get(ctx context.Context, id uuid.UUID) (*Meta, error) {
	row, err := p.dbc.Queries(ctx).GetArtifact(ctx, db.PgUUID(id))
	if err != nil {
		if db.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return metaFromRow(row), nil
}

func metaFromRow(row *db.Artifact) *Meta {
	return &Meta{
		ID:          uuid.UUID(row.ID.Bytes),
		Caption:     row.Caption,
		Start:       row.StartSeconds,
		End:         row.EndSeconds,
		SizeBytes:   row.SizeBytes,
		HasCaption:  row.HasCaption,
		ContentType: row.ContentType,
		Source:      row.Source,
		Prompt:      row.Prompt,
		CreatedAt:   db.TimeOrZero(row.CreatedAt),
		StorageKey:  row.StorageKey,
	}
}

// MemoryMetadata keeps metadata for the life of the process. It is used when
// no database is configured.
type MemoryMetadata struct {
	mu    sync.RWMutex
	items map[uuid.UUID]Meta
}

func NewMemoryMetadata() *MemoryMetadata {
	return &MemoryMetadata{items: map[uuid.UUID]Meta{}}
}

func (m *MemoryMetadata) Insert(ctx context.Context, meta Meta) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[meta.ID]; ok {
		return fmt.Errorf("artifact %s already exists", meta.ID)
	}
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = time.Now().UTC()
	}
	m.items[meta.ID] = meta
	return nil
}

func (m *MemoryMetadata) Get(ctx context.Context, id uuid.UUID) (*Meta, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	meta, ok := m.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &meta, nil
}
