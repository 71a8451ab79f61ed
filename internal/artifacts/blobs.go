package artifacts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// CacheControl marks artifacts as immutable; an id never points at new bytes.
const CacheControl = "public, max-age=31536000, immutable"

const gifContentType = "image/gif"

// BlobInfo describes stored bytes.
type BlobInfo struct {
	Size        int64
	ContentType string
	ModTime     time.Time
}

// BlobStore holds artifact bytes by key.
type BlobStore interface {
	// Put stores the file at localPath under key.
	Put(ctx context.Context, key, localPath string) error
	// Open returns ErrNotFound when key does not exist.
	Open(ctx context.Context, key string) (io.ReadCloser, BlobInfo, error)
	Delete(ctx context.Context, key string) error
}

// LocalBlobs is implemented by stores that can hand out a path on disk.
type LocalBlobs interface {
	LocalPath(key string) (string, bool)
}

func validKey(key string) bool {
	return key != "" && key != "." && key != ".." && !strings.ContainsAny(key, `/\`)
}

// DiskBlobs stores artifacts as files in Dir.
type DiskBlobs struct {
	Dir string
}

func NewDiskBlobs(dir string) (*DiskBlobs, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	return &DiskBlobs{Dir: abs}, nil
}

func (d *DiskBlobs) path(key string) (string, error) {
	if !validKey(key) {
		return "", fmt.Errorf("invalid artifact key %q", key)
	}
	return filepath.Join(d.Dir, key), nil
}

// Put is a no-op when localPath already is the destination, which is the
// case when the renderer writes straight into Dir.
func (d *DiskBlobs) Put(ctx context.Context, key, localPath string) error {
	dst, err := d.path(key)
	if err != nil {
		return err
	}
	if src, err := filepath.Abs(localPath); err == nil && src == dst {
		return nil
	}

	in, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp, err := os.CreateTemp(d.Dir, ".upload-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dst)
}

func (d *DiskBlobs) Open(ctx context.Context, key string) (io.ReadCloser, BlobInfo, error) {
	p, err := d.path(key)
	if err != nil {
		return nil, BlobInfo{}, ErrNotFound
	}
	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, BlobInfo{}, ErrNotFound
		}
		return nil, BlobInfo{}, err
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, BlobInfo{}, err
	}
	return f, BlobInfo{Size: fi.Size(), ContentType: gifContentType, ModTime: fi.ModTime()}, nil
}

func (d *DiskBlobs) Delete(ctx context.Context, key string) error {
	p, err := d.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (d *DiskBlobs) LocalPath(key string) (string, bool) {
	p, err := d.path(key)
	if err != nil {
		return "", false
	}
	fi, err := os.Stat(p)
	if err != nil || !fi.Mode().IsRegular() {
		return "", false
	}
	return p, true
}

// GCSBlobs stores artifacts as objects in a Cloud Storage bucket. The local
// render output is removed once uploaded.
type GCSBlobs struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGCSBlobs uses application default credentials unless opts say otherwise.
func NewGCSBlobs(ctx context.Context, bucket, prefix string, opts ...option.ClientOption) (*GCSBlobs, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &GCSBlobs{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}, nil
}

func (g *GCSBlobs) object(key string) (*storage.ObjectHandle, error) {
	if !validKey(key) {
		return nil, fmt.Errorf("invalid artifact key %q", key)
	}
	name := key
	if g.prefix != "" {
		name = g.prefix + "/" + key
	}
	return g.client.Bucket(g.bucket).Object(name), nil
}

func (g *GCSBlobs) Put(ctx context.Context, key, localPath string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := g.upload(ctx, key, f); err != nil {
		return err
	}
	f.Close()
	_ = os.Remove(localPath)
	return nil
}

// upload writes r to the object for key. A failed read cancels the writer's
// context before Close so no partial object is committed.
func (g *GCSBlobs) upload(ctx context.Context, key string, r io.Reader) error {
	obj, err := g.object(key)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w := obj.NewWriter(ctx)
	w.ContentType = gifContentType
	w.CacheControl = CacheControl
	if _, err := io.Copy(w, r); err != nil {
		cancel()
		_ = w.Close()
		return fmt.Errorf("upload %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	return nil
}

func (g *GCSBlobs) Open(ctx context.Context, key string) (io.ReadCloser, BlobInfo, error) {
	obj, err := g.object(key)
	if err != nil {
		return nil, BlobInfo{}, ErrNotFound
	}
	r, err := obj.NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, BlobInfo{}, ErrNotFound
		}
		return nil, BlobInfo{}, err
	}
	ct := r.Attrs.ContentType
	if ct == "" {
		ct = gifContentType
	}
	return r, BlobInfo{Size: r.Attrs.Size, ContentType: ct, ModTime: r.Attrs.LastModified}, nil
}

func (g *GCSBlobs) Delete(ctx context.Context, key string) error {
	obj, err := g.object(key)
	if err != nil {
		return err
	}
	if err := obj.Delete(ctx); err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return err
	}
	return nil
}

func (g *GCSBlobs) Close() error { return g.client.Close() }
