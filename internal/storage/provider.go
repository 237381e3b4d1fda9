// Package storage defines the read-only content file-system abstraction.
package storage

import "io/fs"

// Provider is the interface for content file access. Every path is a
// slash-separated path relative to the content root.
type Provider interface {
	// Root returns the absolute content root.
	Root() string
	// Read returns the raw bytes of the regular file at path.
	Read(path string) ([]byte, error)
	// Stat returns file info for the regular file at path.
	Stat(path string) (fs.FileInfo, error)
	// ListMarkdown returns the content paths of .md files in dir, sorted.
	ListMarkdown(dir string, recursive bool) ([]string, error)
	// Walk returns the content paths of every regular file under the root, sorted.
	Walk() ([]string, error)
}
