package storage

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/starford/kanboard/internal/apperr"
	"github.com/starford/kanboard/internal/kanban"
)

// LoadDocument reads and decodes the document at path. Every failure is a
// *apperr.LoadError naming the path; a missing file also matches
// apperr.ErrNotFound.
func LoadDocument(p Provider, path string) (*kanban.Document, string, error) {
	data, err := p.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			err = errors.Join(err, apperr.ErrNotFound)
		}
		return nil, "", &apperr.LoadError{Path: path, Err: err}
	}
	doc, err := kanban.Unmarshal(data)
	if err != nil {
		var le *apperr.LoadError
		if errors.As(err, &le) {
			le.Path = path
			return nil, "", le
		}
		return nil, "", &apperr.LoadError{Path: path, Err: err}
	}
	return doc, Checksum(data), nil
}

// SaveDocument encodes doc and writes it atomically to path. It returns the
// checksum of the written bytes. Failures are *apperr.WriteError.
func SaveDocument(p Provider, path string, doc *kanban.Document) (string, error) {
	data, err := kanban.Marshal(doc)
	if err != nil {
		return "", &apperr.WriteError{Path: path, Err: err}
	}
	if err := p.Write(path, data); err != nil {
		return "", &apperr.WriteError{Path: path, Err: err}
	}
	return Checksum(data), nil
}

// OpenFile returns a provider rooted at the directory holding file, and
// the file's name relative to it. It serves commands that operate on a
// single document outside any configured workspace.
func OpenFile(file string) (*FS, string, error) {
	abs, err := filepath.Abs(file)
	if err != nil {
		return nil, "", err
	}
	fs, err := NewFS(filepath.Dir(abs), "**/*.json")
	if err != nil {
		return nil, "", err
	}
	return fs, filepath.Base(abs), nil
}
