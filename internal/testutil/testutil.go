// Package testutil provides shared test helpers for setting up workspaces,
// catalogs and editors.
package testutil

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/starford/kanboard/internal/editor"
	"github.com/starford/kanboard/internal/index"
	"github.com/starford/kanboard/internal/storage"
)

// Logger returns a logger that discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestDB creates a temporary SQLite catalog that is automatically closed.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	db, err := index.Open(filepath.Join(t.TempDir(), "kanboard-test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestWorkspace creates a temporary workspace directory with the default
// document pattern.
func TestWorkspace(t *testing.T) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir, "")
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// TestEditor returns an editor over store that is shut down with the test.
func TestEditor(t *testing.T, store storage.Provider, opts ...editor.Option) *editor.Editor {
	t.Helper()
	opts = append([]editor.Option{editor.WithLogger(Logger())}, opts...)
	ed := editor.New(store, opts...)
	t.Cleanup(ed.Shutdown)
	return ed
}
