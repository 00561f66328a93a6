package documents

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/ziadkadry99/docqa/internal/extract"
)

// Blobs stores uploaded files on disk as <dir>/<hash>.<type>. Files are
// content addressed, so a second Put of the same hash is a no-op.
type Blobs struct {
	dir string
}

// NewBlobs creates the blob directory if needed.
func NewBlobs(dir string) (*Blobs, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating uploads directory: %w", err)
	}
	return &Blobs{dir: dir}, nil
}

// Path returns where the blob for hash is stored.
func (b *Blobs) Path(hash string, t extract.Type) string {
	return filepath.Join(b.dir, hash+"."+string(t))
}

// Put writes r under hash unless it is already stored.
func (b *Blobs) Put(hash string, t extract.Type, r io.Reader) error {
	final := b.Path(hash, t)
	if _, err := os.Stat(final); err == nil {
		return nil
	}

	tmp := filepath.Join(b.dir, ".upload-"+uuid.NewString())
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("creating blob: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("writing blob: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("closing blob: %w", err)
	}
	if err := os.Rename(tmp, final); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("storing blob: %w", err)
	}
	return nil
}

// Open returns the stored blob. The caller closes it.
func (b *Blobs) Open(hash string, t extract.Type) (*os.File, error) {
	f, err := os.Open(b.Path(hash, t))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("opening blob: %w", err)
	}
	return f, nil
}

// Remove deletes the blob of hash. A missing blob is not an error.
func (b *Blobs) Remove(hash string, t extract.Type) error {
	if err := os.Remove(b.Path(hash, t)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing blob: %w", err)
	}
	return nil
}
