package storage

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/starford/mdsite/internal/apperr"
)

func tempContent(t *testing.T, files map[string]string) *FS {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	fs, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestRead(t *testing.T) {
	s := tempContent(t, map[string]string{"note.md": "# Hello\nWorld\n", "a/b/c.css": "body{}"})

	got, err := s.Read("note.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "# Hello\nWorld\n" {
		t.Errorf("content mismatch: got %q", got)
	}

	got, err = s.Read("a/b/c.css")
	if err != nil {
		t.Fatalf("Read nested: %v", err)
	}
	if string(got) != "body{}" {
		t.Errorf("content = %q", got)
	}
}

func TestReadMissingIsNotFound(t *testing.T) {
	s := tempContent(t, nil)
	_, err := s.Read("nope.md")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestDirectoryIsNotFound(t *testing.T) {
	s := tempContent(t, map[string]string{"sub/x.md": "x"})
	if _, err := s.Read("sub"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Read(dir) err = %v, want ErrNotFound", err)
	}
	if _, err := s.Stat("sub"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Stat(dir) err = %v, want ErrNotFound", err)
	}
}

func TestStat(t *testing.T) {
	s := tempContent(t, map[string]string{"img/logo.png": "png"})
	info, err := s.Stat("img/logo.png")
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Size() != 3 {
		t.Errorf("size = %d, want 3", info.Size())
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempContent(t, map[string]string{"ok.md": "ok"})

	// A sibling of the root that a traversal would reach.
	outside := filepath.Join(filepath.Dir(s.Root()), "outside.md")
	_ = os.WriteFile(outside, []byte("secret"), 0o644)
	t.Cleanup(func() { os.Remove(outside) })

	cases := []string{
		"../../etc/passwd",
		"../outside.md",
		"sub/../../outside.md",
		"/etc/shadow",
	}
	for _, p := range cases {
		if _, err := s.Read(p); !errors.Is(err, apperr.ErrNotFound) {
			t.Errorf("Read(%q) err = %v, want ErrNotFound", p, err)
		}
		if _, err := s.Stat(p); !errors.Is(err, apperr.ErrNotFound) {
			t.Errorf("Stat(%q) err = %v, want ErrNotFound", p, err)
		}
	}
}

func TestListMarkdown_NonRecursive(t *testing.T) {
	s := tempContent(t, map[string]string{
		"blog/b.md":        "b",
		"blog/a.md":        "a",
		"blog/img.png":     "png",
		"blog/2023/old.md": "old",
		"index.md":         "i",
	})

	items, err := s.ListMarkdown("blog", false)
	if err != nil {
		t.Fatalf("ListMarkdown: %v", err)
	}
	want := []string{"blog/a.md", "blog/b.md"}
	if !slices.Equal(items, want) {
		t.Errorf("items = %v, want %v", items, want)
	}
}

func TestListMarkdown_Recursive(t *testing.T) {
	s := tempContent(t, map[string]string{
		"blog/a.md":        "a",
		"blog/2023/old.md": "old",
	})

	items, err := s.ListMarkdown("blog", true)
	if err != nil {
		t.Fatalf("ListMarkdown: %v", err)
	}
	want := []string{"blog/2023/old.md", "blog/a.md"}
	if !slices.Equal(items, want) {
		t.Errorf("items = %v, want %v", items, want)
	}
}

func TestListMarkdown_MissingDir(t *testing.T) {
	s := tempContent(t, nil)
	items, err := s.ListMarkdown("blog", false)
	if err != nil {
		t.Fatalf("ListMarkdown: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("items = %v, want none", items)
	}
}

func TestWalk(t *testing.T) {
	s := tempContent(t, map[string]string{
		"index.md":      "i",
		"blog/post1.md": "p",
		"css/site.css":  "c",
		"favicon.ico":   "f",
	})

	items, err := s.Walk()
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	want := []string{"blog/post1.md", "css/site.css", "favicon.ico", "index.md"}
	if !slices.Equal(items, want) {
		t.Errorf("items = %v, want %v", items, want)
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	_, err := NewFS(filepath.Join(t.TempDir(), "does-not-exist"))
	if err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp("", "mdsite-test-*")
	_ = f.Close()
	defer os.Remove(f.Name())
	_, err := NewFS(f.Name())
	if err == nil {
		t.Error("expected error when root is a file")
	}
}
