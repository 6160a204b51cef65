// Package storage is the file-system abstraction used for share exports and
// the import inbox.
package storage

import "time"

// FileInfo describes one stored file.
type FileInfo struct {
	Path      string // relative to the provider root
	Checksum  string
	Size      int64
	UpdatedAt time.Time
}

// Provider is the interface for rooted file operations.
type Provider interface {
	// List returns every regular, non-hidden file under dir (relative to root).
	List(dir string) ([]FileInfo, error)
	// Read returns the raw bytes of the file at path (relative to root).
	Read(path string) ([]byte, error)
	// Write atomically writes content to path (relative to root).
	Write(path string, content []byte) error
	// Delete removes the file at path (relative to root).
	Delete(path string) error
	// Abs returns the absolute location of path.
	Abs(path string) (string, error)
}
