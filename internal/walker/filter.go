package walker

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultExcludes are directory names never descended into.
var DefaultExcludes = []string{
	".git",
	"node_modules",
	"vendor",
	"__pycache__",
	".docqa",
	".venv",
	".idea",
	".vscode",
}

// shouldExcludeDir reports whether a directory subtree is skipped. Hidden
// directories are skipped along with the defaults.
func shouldExcludeDir(name string) bool {
	if strings.HasPrefix(name, ".") && name != "." && name != ".." {
		return true
	}
	for _, excl := range DefaultExcludes {
		if strings.EqualFold(name, excl) {
			return true
		}
	}
	return false
}

// skipFile reports files that are never documents: hidden files and the
// lock files office suites leave next to open documents.
func skipFile(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, "~$")
}

// MatchesInclude reports whether relPath matches any include pattern. An
// empty pattern list includes everything.
func MatchesInclude(relPath string, patterns []string) bool {
	if len(patterns) == 0 {
		return true
	}
	return matchesAny(relPath, patterns)
}

// MatchesExclude reports whether relPath matches any exclude pattern.
func MatchesExclude(relPath string, patterns []string) bool {
	if len(patterns) == 0 {
		return false
	}
	return matchesAny(relPath, patterns)
}

// matchesAny matches doublestar patterns against the slash path and
// against its base name, so "*.pdf" matches at any depth.
func matchesAny(relPath string, patterns []string) bool {
	normalized := filepath.ToSlash(relPath)
	base := filepath.Base(normalized)

	for _, pattern := range patterns {
		pattern = filepath.ToSlash(pattern)
		if matched, err := doublestar.Match(pattern, normalized); err == nil && matched {
			return true
		}
		if matched, err := doublestar.Match(pattern, base); err == nil && matched {
			return true
		}
	}
	return false
}

// gitignore holds the simple subset of .gitignore syntax used for
// document folders: name globs, path globs and trailing-slash directory
// patterns. Negation is not supported.
type gitignore struct {
	patterns []string
}

func loadGitignore(path string) gitignore {
	data, err := os.ReadFile(path)
	if err != nil {
		return gitignore{}
	}

	var g gitignore
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "!") {
			continue
		}
		g.patterns = append(g.patterns, strings.TrimPrefix(line, "/"))
	}
	return g
}

// ignored reports whether the slash path relPath is ignored. isDir tells
// whether relPath names a directory.
func (g gitignore) ignored(relPath string, isDir bool) bool {
	for _, pattern := range g.patterns {
		dirOnly := strings.HasSuffix(pattern, "/")
		pattern = strings.TrimSuffix(pattern, "/")
		if dirOnly && !isDir {
			continue
		}

		if strings.Contains(pattern, "/") {
			if matched, _ := doublestar.Match(pattern, relPath); matched {
				return true
			}
			continue
		}
		if matched, _ := doublestar.Match(pattern, filepath.Base(relPath)); matched {
			return true
		}
	}
	return false
}
