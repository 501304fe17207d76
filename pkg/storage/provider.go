// Package storage defines the read-only content store abstraction.
package storage

import "time"

// FileInfo describes a path on the content store.
type FileInfo struct {
	Name      string
	IsDir     bool
	IsRegular bool
	Size      int64
	ModTime   time.Time
}

// Provider is the filesystem capability the content engine reads through.
// All paths are slash-separated and relative to the provider's content root.
// Missing paths yield errors that wrap fs.ErrNotExist.
type Provider interface {
	// ReadFile returns the raw bytes of the file at path.
	ReadFile(path string) ([]byte, error)
	// ReadDir returns the entry names of the directory at path, sorted.
	ReadDir(path string) ([]string, error)
	// Stat describes the file or directory at path.
	Stat(path string) (FileInfo, error)
}
