package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/kanboard/internal/apperr"
	"github.com/starford/kanboard/internal/kanban"
)

func tempWorkspace(t *testing.T) *FS {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFS(dir, "")
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempWorkspace(t)
	content := []byte(`{"title":"a","description":"","boards":[]}`)
	if err := s.Write("plan.kanban.json", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("plan.kanban.json")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestWriteCreatesSubdirs(t *testing.T) {
	s := tempWorkspace(t)
	if err := s.Write("a/b/c.kanban.json", []byte("[]")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("a/b/c.kanban.json")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "[]" {
		t.Errorf("content = %q", got)
	}
}

func TestDelete(t *testing.T) {
	s := tempWorkspace(t)
	_ = s.Write("del.kanban.json", []byte("[]"))
	if err := s.Delete("del.kanban.json"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Read("del.kanban.json"); err == nil {
		t.Error("expected error reading deleted file")
	}
}

func TestMove(t *testing.T) {
	s := tempWorkspace(t)
	_ = s.Write("old.kanban.json", []byte("[]"))
	if err := s.Move("old.kanban.json", "sub/new.kanban.json"); err != nil {
		t.Fatalf("Move: %v", err)
	}
	if _, err := s.Read("sub/new.kanban.json"); err != nil {
		t.Fatalf("Read after move: %v", err)
	}
	if _, err := s.Read("old.kanban.json"); err == nil {
		t.Error("old path should not exist")
	}
}

func TestListPreviews(t *testing.T) {
	s := tempWorkspace(t)
	_ = s.Write("a.kanban.json", []byte(`{"title":"Alpha","description":"first","boards":[]}`))
	_ = s.Write("sub/b.kanban.json", []byte(`[{"title":"x","notes":[]}]`))
	_ = s.Write("broken.kanban.json", []byte(`{`))
	_ = s.Write("readme.json", []byte(`{"title":"not a board"}`))

	items, err := s.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("len = %d, want 3", len(items))
	}
	byPath := map[string]string{}
	for _, m := range items {
		byPath[m.Path] = m.Title
		if m.Checksum == "" {
			t.Errorf("%s: empty checksum", m.Path)
		}
	}
	if byPath["a.kanban.json"] != "Alpha" {
		t.Errorf("a title = %q", byPath["a.kanban.json"])
	}
	if byPath["sub/b.kanban.json"] != UntitledPreview {
		t.Errorf("legacy title = %q", byPath["sub/b.kanban.json"])
	}
	if byPath["broken.kanban.json"] != UntitledPreview {
		t.Errorf("broken title = %q", byPath["broken.kanban.json"])
	}
}

func TestMatches(t *testing.T) {
	s := tempWorkspace(t)
	cases := map[string]bool{
		"a.kanban.json":         true,
		"deep/er/b.kanban.json": true,
		"a.json":                false,
		"a.kanban.json.bak":     false,
	}
	for p, want := range cases {
		if got := s.Matches(p); got != want {
			t.Errorf("Matches(%q) = %v, want %v", p, got, want)
		}
	}
}

func TestNewFSInvalidPattern(t *testing.T) {
	if _, err := NewFS(t.TempDir(), "[a-"); err == nil {
		t.Error("expected error for invalid pattern")
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempWorkspace(t)

	cases := []string{
		"../../etc/passwd",
		"../outside.kanban.json",
		"/etc/shadow",
	}
	for _, p := range cases {
		if _, err := s.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
		if err := s.Write(p, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
	}
}

func TestAtomicWriteLeavesNoTemp(t *testing.T) {
	s := tempWorkspace(t)
	_ = s.Write("atomic.kanban.json", []byte("[]"))
	updated := []byte(`[{"title":"x","notes":[]}]`)
	if err := s.Write("atomic.kanban.json", updated); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := s.Read("atomic.kanban.json")
	if string(got) != string(updated) {
		t.Errorf("expected updated content, got %q", got)
	}
	matches, _ := filepath.Glob(filepath.Join(s.root, ".kanboard-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	if _, err := NewFS(filepath.Join(t.TempDir(), "missing"), ""); err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp(t.TempDir(), "kanboard-test-*")
	_ = f.Close()
	if _, err := NewFS(f.Name(), ""); err == nil {
		t.Error("expected error when root is a file")
	}
}

func TestSaveAndLoadDocument(t *testing.T) {
	s := tempWorkspace(t)
	doc := kanban.NewCard("Week", "sprint", kanban.DefaultTemplate())
	if _, err := doc.AddNote(doc.Boards[0].ID, "write", "tests"); err != nil {
		t.Fatal(err)
	}
	sum, err := SaveDocument(s, "week.kanban.json", doc)
	if err != nil {
		t.Fatalf("SaveDocument: %v", err)
	}
	got, loadedSum, err := LoadDocument(s, "week.kanban.json")
	if err != nil {
		t.Fatalf("LoadDocument: %v", err)
	}
	if sum != loadedSum {
		t.Errorf("checksum %s != %s", loadedSum, sum)
	}
	if got.Title != "Week" || len(got.Boards) != 3 || got.Boards[0].Notes[0].Title != "write" {
		t.Errorf("unexpected document: %+v", got)
	}
}

func TestLoadDocumentErrors(t *testing.T) {
	s := tempWorkspace(t)

	_, _, err := LoadDocument(s, "missing.kanban.json")
	var le *apperr.LoadError
	if !errors.As(err, &le) {
		t.Fatalf("missing file: err = %v, want LoadError", err)
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing file should match ErrNotFound: %v", err)
	}

	_ = s.Write("bad.kanban.json", []byte(`"text"`))
	_, _, err = LoadDocument(s, "bad.kanban.json")
	if !errors.As(err, &le) || le.Path != "bad.kanban.json" {
		t.Errorf("bad file: err = %v, want LoadError with path", err)
	}
}

func TestSaveDocumentWriteError(t *testing.T) {
	s := tempWorkspace(t)
	_, err := SaveDocument(s, "../escape.kanban.json", kanban.New(kanban.DefaultTemplate()))
	var we *apperr.WriteError
	if !errors.As(err, &we) {
		t.Errorf("err = %v, want WriteError", err)
	}
}
