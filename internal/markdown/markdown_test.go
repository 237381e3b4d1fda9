package markdown

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"testing"
)

func TestRender_YAMLFrontmatter(t *testing.T) {
	input := []byte("---\ntitle: Hello\ndate: 2024-06-15\ntags:\n  - go\n  - web\n---\n# Heading\n\nBody text.\n")
	doc, err := New(Options{}).Render(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Title != "Hello" {
		t.Errorf("title = %q, want %q", doc.Title, "Hello")
	}
	if got := doc.Meta.Get("date"); got != "2024-06-15" {
		t.Errorf("date = %q, want 2024-06-15", got)
	}
	if !slices.Equal(doc.Meta["tags"], []string{"go", "web"}) {
		t.Errorf("tags = %v, want [go web]", doc.Meta["tags"])
	}
	if strings.Contains(doc.HTML, "title: Hello") {
		t.Errorf("front matter leaked into HTML: %s", doc.HTML)
	}
	if !strings.Contains(doc.HTML, "<p>Body text.</p>") {
		t.Errorf("html = %s", doc.HTML)
	}
}

func TestRender_TOMLFrontmatter(t *testing.T) {
	input := []byte("+++\ntitle = \"Toml Post\"\ndate = \"2023-12-31\"\n+++\nBody\n")
	doc, err := New(Options{}).Render(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Title != "Toml Post" {
		t.Errorf("title = %q", doc.Title)
	}
	if got := doc.Meta.Get("date"); got != "2023-12-31" {
		t.Errorf("date = %q, want 2023-12-31", got)
	}
}

func TestRender_HeaderMetadata(t *testing.T) {
	input := []byte("Title: My Post\nDate: 2024-01-01\nAuthors: Ann\n    Bob\n\nFirst paragraph.\n")
	doc, err := New(Options{}).Render(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Meta.Get("title") != "My Post" {
		t.Errorf("title = %q", doc.Meta.Get("title"))
	}
	if doc.Meta.Get("date") != "2024-01-01" {
		t.Errorf("date = %q", doc.Meta.Get("date"))
	}
	if !slices.Equal(doc.Meta["authors"], []string{"Ann", "Bob"}) {
		t.Errorf("authors = %v", doc.Meta["authors"])
	}
	if strings.Contains(doc.HTML, "Date:") {
		t.Errorf("header leaked into HTML: %s", doc.HTML)
	}
	if !strings.Contains(doc.HTML, "<p>First paragraph.</p>") {
		t.Errorf("html = %s", doc.HTML)
	}
}

func TestRender_NoMetadata(t *testing.T) {
	input := []byte("# Just a heading\n\nSome text.\n")
	doc, err := New(Options{}).Render(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Meta) != 0 {
		t.Errorf("expected empty metadata, got %v", doc.Meta)
	}
	if doc.Title != "Just a heading" {
		t.Errorf("title = %q, want %q", doc.Title, "Just a heading")
	}
}

func TestRender_MalformedFrontmatterIsNotFatal(t *testing.T) {
	input := []byte("---\ntitle: [unclosed\ndate: 2024-01-01\n---\nBody\n")
	doc, err := New(Options{}).Render(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := doc.Meta.Lookup("date"); ok {
		t.Errorf("expected no date on malformed front matter, got %v", doc.Meta)
	}
	if _, ok := doc.Meta.Lookup("title"); ok {
		t.Errorf("expected no title on malformed front matter, got %v", doc.Meta)
	}
}

func TestRender_FrontmatterTitleOverH1(t *testing.T) {
	input := []byte("---\ntitle: FM Title\n---\n# H1 Title\ntext\n")
	doc, err := New(Options{}).Render(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Title != "FM Title" {
		t.Errorf("title = %q, want %q", doc.Title, "FM Title")
	}
}

func TestRender_H1FallbackSkipsLowerHeadings(t *testing.T) {
	doc, err := New(Options{}).Render([]byte("## Sub\n\n# My *Heading*\n\nmore\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Title != "My Heading" {
		t.Errorf("title = %q, want %q", doc.Title, "My Heading")
	}
}

func TestRender_Deterministic(t *testing.T) {
	input := []byte("---\ntitle: Same\ndate: 2024-01-01\n---\n# A\n\n## B\n\n```go\nfunc main() {}\n```\n\n| a | b |\n|---|---|\n| 1 | 2 |\n\nNote[^1]\n\n[^1]: footnote\n")
	r := New(Options{})
	first, err := r.Render(input)
	if err != nil {
		t.Fatal(err)
	}
	second, err := r.Render(input)
	if err != nil {
		t.Fatal(err)
	}
	if first.HTML != second.HTML {
		t.Errorf("html differs between renders")
	}
	if first.Title != second.Title || first.Meta.Get("date") != second.Meta.Get("date") {
		t.Errorf("metadata differs between renders")
	}
}

func TestRender_Extensions(t *testing.T) {
	input := []byte("| a | b |\n|---|---|\n| 1 | 2 |\n\n~~gone~~\n\nTerm\n: Definition\n\n```python\nprint(1)\n```\n")
	doc, err := New(Options{HighlightStyle: "github"}).Render(input)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"<table>", "<del>gone</del>", "<dl>", "<pre"} {
		if !strings.Contains(doc.HTML, want) {
			t.Errorf("html missing %q: %s", want, doc.HTML)
		}
	}
}

func TestRender_ConcurrentDocumentsDoNotShareMetadata(t *testing.T) {
	r := New(Options{})
	var wg sync.WaitGroup
	errs := make(chan string, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			title := fmt.Sprintf("Post %d", i)
			doc, err := r.Render([]byte("---\ntitle: " + title + "\n---\nbody\n"))
			if err != nil {
				errs <- err.Error()
				return
			}
			if doc.Title != title {
				errs <- "got " + doc.Title + " want " + title
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for e := range errs {
		t.Error(e)
	}
}

func TestMetadataLookup(t *testing.T) {
	m := Metadata{"title": {"A", "B"}, "empty": {""}}
	if v, ok := m.Lookup("Title"); !ok || v != "A" {
		t.Errorf("Lookup(Title) = %q, %v", v, ok)
	}
	if _, ok := m.Lookup("empty"); ok {
		t.Error("empty value should not count as present")
	}
	if _, ok := m.Lookup("missing"); ok {
		t.Error("missing key should not be present")
	}
}
