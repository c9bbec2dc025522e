package fs

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadMatchesIncludes(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.md"), "alpha")
	writeFile(t, filepath.Join(dir, "sub", "b.md"), "beta")
	writeFile(t, filepath.Join(dir, "c.txt"), "ignored")

	l := NewLoader([]string{"**/*.md"}, nil)
	docs, err := l.Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(docs))
	}

	bySource := make(map[string]string)
	for _, d := range docs {
		bySource[filepath.ToSlash(d.Source)] = d.Content
	}
	if bySource["a.md"] != "alpha" {
		t.Errorf("missing or wrong a.md: %q", bySource["a.md"])
	}
	if bySource["sub/b.md"] != "beta" {
		t.Errorf("missing or wrong sub/b.md: %q", bySource["sub/b.md"])
	}
}

func TestLoadExcludes(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "keep.md"), "keep")
	writeFile(t, filepath.Join(dir, ".git", "drop.md"), "drop")

	l := NewLoader([]string{"**/*.md"}, []string{"**/.git/**"})
	docs, err := l.Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 1 || filepath.ToSlash(docs[0].Source) != "keep.md" {
		t.Errorf("expected only keep.md, got %v", docs)
	}
}

func TestLoadMissingDir(t *testing.T) {
	l := NewLoader(nil, nil)
	_, err := l.Load(filepath.Join(t.TempDir(), "does-not-exist"))
	if err == nil {
		t.Fatal("expected error for missing directory")
	}
	if !os.IsNotExist(err) {
		t.Errorf("expected os.IsNotExist error, got %v", err)
	}
}

func TestLoadEmptyDir(t *testing.T) {
	l := NewLoader(nil, nil)
	docs, err := l.Load(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 0 {
		t.Errorf("expected no documents, got %d", len(docs))
	}
}
