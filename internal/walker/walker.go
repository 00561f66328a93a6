// Package walker discovers documents to ingest under a directory.
package walker

import (
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/ziadkadry99/docqa/internal/extract"
)

// FileInfo describes one discovered document.
type FileInfo struct {
	Path    string       // Absolute path on disk.
	RelPath string       // Slash-separated path relative to the root.
	Size    int64        // File size in bytes.
	Type    extract.Type // Document type from the extension.
}

// WalkerConfig controls the behaviour of the Walk function.
type WalkerConfig struct {
	RootDir string   // Root directory to walk.
	Include []string // Glob patterns; only matching files are kept.
	Exclude []string // Glob patterns; matching files are dropped.
	// MaxFileSize skips larger files; 0 keeps every size.
	MaxFileSize int64
}

// Skipped is a file left out of a walk and why.
type Skipped struct {
	RelPath string
	Reason  string
}

// Result is the outcome of a walk, in lexical path order.
type Result struct {
	Files   []FileInfo
	Skipped []Skipped
}

// Walk traverses config.RootDir and returns every file of a supported
// document type that passes filtering. Directories excluded by default or
// by the root .gitignore are not descended into. Files of unsupported
// types are skipped silently; files dropped for size are reported.
func Walk(config WalkerConfig) (*Result, error) {
	root, err := filepath.Abs(config.RootDir)
	if err != nil {
		return nil, fmt.Errorf("walker: resolve root: %w", err)
	}

	ignore := loadGitignore(filepath.Join(root, ".gitignore"))
	res := &Result{}

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			// Skip entries we cannot read instead of aborting.
			return nil
		}
		if path == root {
			return nil
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		relPath = filepath.ToSlash(relPath)
		name := d.Name()

		if d.IsDir() {
			if shouldExcludeDir(name) || ignore.ignored(relPath, true) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || skipFile(name) || ignore.ignored(relPath, false) {
			return nil
		}

		t, ok := extract.TypeFromName(name)
		if !ok {
			return nil
		}
		if !MatchesInclude(relPath, config.Include) || MatchesExclude(relPath, config.Exclude) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		if config.MaxFileSize > 0 && info.Size() > config.MaxFileSize {
			res.Skipped = append(res.Skipped, Skipped{
				RelPath: relPath,
				Reason:  fmt.Sprintf("%d bytes exceeds the %d byte limit", info.Size(), config.MaxFileSize),
			})
			return nil
		}

		res.Files = append(res.Files, FileInfo{
			Path:    path,
			RelPath: relPath,
			Size:    info.Size(),
			Type:    t,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walker: traversal: %w", err)
	}

	return res, nil
}
