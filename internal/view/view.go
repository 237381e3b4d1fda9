// Package view renders site pages from html/template layouts.
package view

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/starford/mdsite/internal/models"
)

//go:embed templates/*.html
var defaults embed.FS

const (
	baseTemplate      = "base.html"
	pageTemplate      = "page.html"
	blogIndexTemplate = "blog_index.html"
)

// Layout holds the values shared by every page skeleton.
type Layout struct {
	SiteTitle string
	// PreTitle is prepended to SiteTitle in the title banner, e.g. "About - ".
	PreTitle   string
	BlogTitle  string
	BlogPath   string
	LiveReload bool
	EventsPath string
}

// PageData is the input of the Markdown page template.
type PageData struct {
	Layout
	// Title is the document title. The embedded page.html only shows it in
	// the banner through PreTitle; override templates may render it directly.
	Title   string
	Content template.HTML
}

// BlogIndexData is the input of the blog index template.
type BlogIndexData struct {
	Layout
	Entries []models.BlogEntry
}

// Templates holds the parsed page skeletons.
type Templates struct {
	page      *template.Template
	blogIndex *template.Template
}

// Load parses the templates from dir. Files missing from dir, or every file
// when dir is empty, come from the embedded defaults.
func Load(dir string) (*Templates, error) {
	base, err := parse(dir, baseTemplate, nil)
	if err != nil {
		return nil, err
	}
	page, err := parse(dir, pageTemplate, base)
	if err != nil {
		return nil, err
	}
	blogIndex, err := parse(dir, blogIndexTemplate, base)
	if err != nil {
		return nil, err
	}
	return &Templates{page: page, blogIndex: blogIndex}, nil
}

// parse reads name and parses it into a clone of base, so each page
// template defines its own "content" block.
func parse(dir, name string, base *template.Template) (*template.Template, error) {
	src, err := readTemplate(dir, name)
	if err != nil {
		return nil, err
	}
	var t *template.Template
	if base == nil {
		t = template.New(name)
	} else {
		t, err = base.Clone()
		if err != nil {
			return nil, fmt.Errorf("view: clone base for %s: %w", name, err)
		}
		t = t.New(name)
	}
	if _, err := t.Parse(string(src)); err != nil {
		return nil, fmt.Errorf("view: parse %s: %w", name, err)
	}
	return t, nil
}

func readTemplate(dir, name string) ([]byte, error) {
	if dir != "" {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("view: read %s: %w", name, err)
		}
	}
	data, err := defaults.ReadFile("templates/" + name)
	if err != nil {
		return nil, fmt.Errorf("view: read default %s: %w", name, err)
	}
	return data, nil
}

// Page renders a Markdown page.
func (t *Templates) Page(data PageData) ([]byte, error) {
	return execute(t.page, data)
}

// BlogIndex renders the blog index page.
func (t *Templates) BlogIndex(data BlogIndexData) ([]byte, error) {
	return execute(t.blogIndex, data)
}

func execute(t *template.Template, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, baseTemplate, data); err != nil {
		return nil, fmt.Errorf("view: execute %s: %w", t.Name(), err)
	}
	return buf.Bytes(), nil
}
