// Package storage writes export output below a destination root.
package storage

import "time"

// Provider is the interface the exporter writes through.
type Provider interface {
	// Root returns the absolute destination root.
	Root() string
	// Read returns the bytes of path (absolute, or relative to the root).
	Read(path string) ([]byte, error)
	// Write atomically writes content to path.
	Write(path string, content []byte) error
	// Copy atomically copies the file at src to dst.
	Copy(src, dst string) error
	// SetModTime sets the access and modification time of path.
	SetModTime(path string, t time.Time) error
}
