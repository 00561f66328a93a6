package walker

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/ziadkadry99/docqa/internal/extract"
)

// testdataDir returns the absolute path to the testdata/library directory.
func testdataDir(t *testing.T) string {
	t.Helper()
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("unable to determine test file location")
	}
	root := filepath.Join(filepath.Dir(filename), "..", "..", "testdata", "library")
	abs, err := filepath.Abs(root)
	if err != nil {
		t.Fatalf("resolve testdata path: %v", err)
	}
	if _, err := os.Stat(abs); os.IsNotExist(err) {
		t.Fatalf("testdata dir does not exist: %s", abs)
	}
	return abs
}

func relPaths(files []FileInfo) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.RelPath
	}
	return out
}

func assertPaths(t *testing.T, got []FileInfo, want ...string) {
	t.Helper()
	paths := relPaths(got)
	if len(paths) != len(want) {
		t.Fatalf("got %v, want %v", paths, want)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Fatalf("got %v, want %v", paths, want)
		}
	}
}

func TestWalk_BasicTraversal(t *testing.T) {
	res, err := Walk(WalkerConfig{RootDir: testdataDir(t)})
	if err != nil {
		t.Fatalf("Walk() error: %v", err)
	}

	// Hidden, gitignored and unsupported files are left out; order is lexical.
	assertPaths(t, res.Files,
		"biology/mitochondria.txt",
		"biology/week1/cells.txt",
		"data/grades.csv",
	)
	if len(res.Skipped) != 0 {
		t.Errorf("unexpected skipped files: %v", res.Skipped)
	}
}

func TestWalk_FileInfo(t *testing.T) {
	dir := testdataDir(t)
	res, err := Walk(WalkerConfig{RootDir: dir})
	if err != nil {
		t.Fatalf("Walk() error: %v", err)
	}

	for _, f := range res.Files {
		if !filepath.IsAbs(f.Path) {
			t.Errorf("%s: path %q is not absolute", f.RelPath, f.Path)
		}
		info, err := os.Stat(f.Path)
		if err != nil {
			t.Fatalf("stat %s: %v", f.Path, err)
		}
		if info.Size() != f.Size {
			t.Errorf("%s: size %d, want %d", f.RelPath, f.Size, info.Size())
		}
	}
	if got := res.Files[2].Type; got != extract.TypeCSV {
		t.Errorf("grades.csv type = %q, want csv", got)
	}
	if got := res.Files[0].Type; got != extract.TypeTXT {
		t.Errorf("mitochondria.txt type = %q, want txt", got)
	}
}

func TestWalk_IncludeExclude(t *testing.T) {
	dir := testdataDir(t)

	tests := []struct {
		name    string
		include []string
		exclude []string
		want    []string
	}{
		{"path glob", []string{"**/*.csv"}, nil, []string{"data/grades.csv"}},
		{"base name glob", []string{"*.txt"}, nil, []string{"biology/mitochondria.txt", "biology/week1/cells.txt"}},
		{"exclude subtree", nil, []string{"biology/week1/**"}, []string{"biology/mitochondria.txt", "data/grades.csv"}},
		{"include and exclude", []string{"biology/**"}, []string{"cells.txt"}, []string{"biology/mitochondria.txt"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Walk(WalkerConfig{RootDir: dir, Include: tt.include, Exclude: tt.exclude})
			if err != nil {
				t.Fatalf("Walk() error: %v", err)
			}
			assertPaths(t, res.Files, tt.want...)
		})
	}
}

func TestWalk_MaxFileSize(t *testing.T) {
	res, err := Walk(WalkerConfig{RootDir: testdataDir(t), MaxFileSize: 40})
	if err != nil {
		t.Fatalf("Walk() error: %v", err)
	}
	assertPaths(t, res.Files, "data/grades.csv")
	if len(res.Skipped) != 2 {
		t.Fatalf("skipped = %v, want 2 entries", res.Skipped)
	}
	if res.Skipped[0].RelPath != "biology/mitochondria.txt" || res.Skipped[0].Reason == "" {
		t.Errorf("unexpected skip entry: %+v", res.Skipped[0])
	}
}

func TestWalk_SkipsOfficeLockFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"report.docx", "~$report.docx", "slides.PPTX", ".notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	res, err := Walk(WalkerConfig{RootDir: dir})
	if err != nil {
		t.Fatalf("Walk() error: %v", err)
	}
	assertPaths(t, res.Files, "report.docx", "slides.PPTX")
	if res.Files[1].Type != extract.TypePPTX {
		t.Errorf("extension matching should ignore case, got %q", res.Files[1].Type)
	}
}

func TestWalk_MissingRoot(t *testing.T) {
	if _, err := Walk(WalkerConfig{RootDir: filepath.Join(t.TempDir(), "missing")}); err == nil {
		t.Fatal("expected error for missing root")
	}
}

func TestMatchesInclude(t *testing.T) {
	tests := []struct {
		path     string
		patterns []string
		want     bool
	}{
		{"notes/lecture.pdf", nil, true},
		{"notes/lecture.pdf", []string{"*.pdf"}, true},
		{"notes/lecture.pdf", []string{"**/*.pdf"}, true},
		{"notes/lecture.pdf", []string{"notes/*.pdf"}, true},
		{"notes/week1/lecture.pdf", []string{"notes/*.pdf"}, false},
		{"notes/lecture.pdf", []string{"*.docx"}, false},
	}
	for _, tt := range tests {
		if got := MatchesInclude(tt.path, tt.patterns); got != tt.want {
			t.Errorf("MatchesInclude(%q, %v) = %v, want %v", tt.path, tt.patterns, got, tt.want)
		}
	}
}

func TestMatchesExclude(t *testing.T) {
	if MatchesExclude("a/b.pdf", nil) {
		t.Error("no patterns should exclude nothing")
	}
	if !MatchesExclude("archive/2019/b.pdf", []string{"archive/**"}) {
		t.Error("expected archive subtree to be excluded")
	}
}

func TestGitignore(t *testing.T) {
	g := gitignore{patterns: []string{"drafts/", "*.tmp", "notes/old.txt"}}

	tests := []struct {
		path  string
		isDir bool
		want  bool
	}{
		{"drafts", true, true},
		{"biology/drafts", true, true},
		{"drafts", false, false},
		{"scratch.tmp", false, true},
		{"a/b/scratch.tmp", false, true},
		{"notes/old.txt", false, true},
		{"old.txt", false, false},
		{"notes/new.txt", false, false},
	}
	for _, tt := range tests {
		if got := g.ignored(tt.path, tt.isDir); got != tt.want {
			t.Errorf("ignored(%q, %v) = %v, want %v", tt.path, tt.isDir, got, tt.want)
		}
	}
}

func TestLoadGitignore(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".gitignore")
	content := "# comment\n\n/build/\n!keep.pdf\n*.bak\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	g := loadGitignore(path)
	if len(g.patterns) != 2 || g.patterns[0] != "build/" || g.patterns[1] != "*.bak" {
		t.Errorf("patterns = %v", g.patterns)
	}
	if len(loadGitignore(filepath.Join(t.TempDir(), "none")).patterns) != 0 {
		t.Error("missing file should yield no patterns")
	}
}
