// Package storage defines the vault file-system abstraction.
package storage

import "github.com/starford/marginalia/internal/models"

// Provider is the interface for vault file operations.
type Provider interface {
	// List returns metadata for every Org document under dir (relative to vault root).
	List(dir string) ([]models.DocumentMetadata, error)
	// Read returns the raw bytes of the file at path (relative to vault root).
	Read(path string) ([]byte, error)
	// Write atomically writes content to path (relative to vault root).
	Write(path string, content []byte) error
	// IsDocument reports whether a file name carries a document extension.
	IsDocument(name string) bool
	// Exists reports whether path names a document the provider would list.
	Exists(path string) bool
}
