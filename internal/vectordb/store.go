package vectordb

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	chromem "github.com/philippgille/chromem-go"

	"github.com/ziadkadry99/docqa/internal/embeddings"
)

const (
	vectorsFile  = "chromem.gob.gz"
	manifestFile = "manifest.json"
)

// persist writes the index into dir, which must already exist.
func (ix *Index) persist(dir string) error {
	if err := ix.db.ExportToFile(filepath.Join(dir, vectorsFile), true, ""); err != nil {
		return fmt.Errorf("export vectors: %w", err)
	}
	return writeManifest(dir, ix.manifest)
}

// loadIndex restores an index persisted by persist. The caller checks the
// manifest against the current embedding model.
func loadIndex(dir string) (*Index, error) {
	m, err := readManifest(dir)
	if err != nil {
		return nil, err
	}

	db := chromem.NewDB()
	if err := db.ImportFromFile(filepath.Join(dir, vectorsFile), ""); err != nil {
		return nil, fmt.Errorf("import vectors: %w", err)
	}
	col := db.GetCollection(collectionName, embeddings.PrecomputedFunc())
	if col == nil {
		return nil, fmt.Errorf("collection %q not found after import", collectionName)
	}

	ix := &Index{db: db, collection: col, manifest: m}
	if ix.Len() != m.ChunkCount {
		return nil, fmt.Errorf("index holds %d chunks, manifest says %d", ix.Len(), m.ChunkCount)
	}
	return ix, nil
}

func readManifest(dir string) (Manifest, error) {
	var m Manifest
	data, err := os.ReadFile(filepath.Join(dir, manifestFile))
	if err != nil {
		return m, fmt.Errorf("read manifest: %w", err)
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("parse manifest: %w", err)
	}
	if m.Hash == "" {
		return m, errors.New("manifest has no content hash")
	}
	return m, nil
}

// writeManifest replaces the manifest through a rename so readers never
// see a partial file.
func writeManifest(dir string, m Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	tmp := filepath.Join(dir, manifestFile+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(dir, manifestFile)); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace manifest: %w", err)
	}
	return nil
}

func dirSize(dir string) int64 {
	var total int64
	filepath.WalkDir(dir, func(_ string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil {
			total += info.Size()
		}
		return nil
	})
	return total
}
