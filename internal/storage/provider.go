// Package storage defines the workspace file-system abstraction for board
// documents.
package storage

import "github.com/starford/kanboard/internal/models"

// DefaultPattern selects the files listed as board documents.
const DefaultPattern = "**/*.kanban.json"

// Provider is the interface for workspace file operations.
type Provider interface {
	// List returns a preview of every document under dir (relative to the workspace root).
	List(dir string) ([]models.DocumentMeta, error)
	// Read returns the raw bytes of the file at path (relative to the workspace root).
	Read(path string) ([]byte, error)
	// Write atomically writes content to path (relative to the workspace root).
	Write(path string, content []byte) error
	// Delete removes the file at path.
	Delete(path string) error
	// Move renames oldPath to newPath.
	Move(oldPath, newPath string) error
	// Matches reports whether a relative path is a board document.
	Matches(path string) bool
}
