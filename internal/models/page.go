// Package models defines the domain types for mdsite.
package models

import "time"

// Page is the response produced for a single request path.
type Page struct {
	Status      int
	ContentType string
	Body        []byte
	// Location is set for redirects.
	Location string
	// Name and ModTime describe the backing file for static passthrough.
	Name    string
	ModTime time.Time
}

// BlogEntry is one post's display metadata on the blog index.
type BlogEntry struct {
	Date  time.Time
	Title string
	Link  string // URL path of the rendered post, e.g. /blog/post1.html
	Path  string // content path of the source, e.g. blog/post1.md
}
