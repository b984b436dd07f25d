package live

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/starford/kanboard/internal/editor"
	"github.com/starford/kanboard/internal/kanban"
	"github.com/starford/kanboard/internal/storage"
)

type reply struct {
	Command Command         `json:"command"`
	Data    json.RawMessage `json:"data"`
}

func setup(t *testing.T) (*editor.Editor, *httptest.Server) {
	t.Helper()
	store, err := storage.NewFS(t.TempDir(), "")
	if err != nil {
		t.Fatal(err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ed := editor.New(store, editor.WithLogger(logger))
	t.Cleanup(ed.Shutdown)
	if _, err := ed.Create(context.Background(), "live.kanban.json", "Live", ""); err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(NewHandler(ed, logger))
	t.Cleanup(srv.Close)
	return ed, srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { ws.Close() })
	return ws
}

func roundTrip(t *testing.T, ws *websocket.Conn, cmd Command, data any) reply {
	t.Helper()
	if err := ws.WriteJSON(Message{Command: cmd, Data: data}); err != nil {
		t.Fatalf("write: %v", err)
	}
	_ = ws.SetReadDeadline(time.Now().Add(5 * time.Second))
	var r reply
	if err := ws.ReadJSON(&r); err != nil {
		t.Fatalf("read: %v", err)
	}
	return r
}

// seed adds notes a and b to Doing and x to To do.
func seed(t *testing.T, ed *editor.Editor) (todo, doing kanban.BoardID, a, b, x kanban.NoteID) {
	t.Helper()
	err := ed.Do(context.Background(), "live.kanban.json", func(d *kanban.Document) error {
		todo, doing = d.Boards[0].ID, d.Boards[1].ID
		a, _ = d.AddNote(doing, "a", "")
		b, _ = d.AddNote(doing, "b", "")
		x, _ = d.AddNote(todo, "x", "")
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	return
}

func TestDragAndDrop(t *testing.T) {
	ed, srv := setup(t)
	todo, doing, a, b, x := seed(t, ed)
	ws := dial(t, srv)

	r := roundTrip(t, ws, CommandPointerDown, PointerDown{Path: "live.kanban.json", NoteID: x})
	var cand Candidate
	_ = json.Unmarshal(r.Data, &cand)
	if r.Command != CommandCandidate || cand.BoardID != todo || cand.Index != 0 {
		t.Fatalf("pointer down = %s %+v", r.Command, cand)
	}

	centers := []Center{{NoteID: a, Y: 10}, {NoteID: b, Y: 30}}
	r = roundTrip(t, ws, CommandPointerMove, Pointer{BoardID: doing, Y: 35, Centers: centers})
	_ = json.Unmarshal(r.Data, &cand)
	if cand.Index != 2 {
		t.Errorf("move candidate = %+v, want index 2", cand)
	}

	r = roundTrip(t, ws, CommandDrop, Pointer{BoardID: doing, Y: 20, Centers: centers})
	var res Result
	_ = json.Unmarshal(r.Data, &res)
	if r.Command != CommandCommitted || res.Index != 1 || res.NoteID != x {
		t.Fatalf("drop = %s %+v", r.Command, res)
	}

	doc, _, _ := ed.Snapshot(context.Background(), "live.kanban.json")
	notes := doc.Boards[1].Notes
	if len(notes) != 3 || notes[0].ID != a || notes[1].ID != x || notes[2].ID != b {
		t.Errorf("doing order wrong after drop")
	}
	if len(doc.Boards[0].Notes) != 0 {
		t.Errorf("to do should be empty")
	}
}

func TestCancelLeavesDocument(t *testing.T) {
	ed, srv := setup(t)
	_, doing, _, _, x := seed(t, ed)
	ws := dial(t, srv)

	roundTrip(t, ws, CommandPointerDown, PointerDown{Path: "live.kanban.json", NoteID: x})
	r := roundTrip(t, ws, CommandCancel, nil)
	if r.Command != CommandCancelled {
		t.Fatalf("cancel = %s", r.Command)
	}
	r = roundTrip(t, ws, CommandDrop, Pointer{BoardID: doing, Y: 0})
	if r.Command != CommandError {
		t.Errorf("drop after cancel = %s, want ERROR", r.Command)
	}
	doc, _, _ := ed.Snapshot(context.Background(), "live.kanban.json")
	if len(doc.Boards[0].Notes) != 1 || doc.Boards[0].Notes[0].ID != x {
		t.Error("cancel moved the note")
	}
}

func TestDropOnUnknownBoardCancels(t *testing.T) {
	ed, srv := setup(t)
	_, _, _, _, x := seed(t, ed)
	ws := dial(t, srv)

	roundTrip(t, ws, CommandPointerDown, PointerDown{Path: "live.kanban.json", NoteID: x})
	r := roundTrip(t, ws, CommandDrop, Pointer{BoardID: "nowhere", Y: 5})
	if r.Command != CommandCancelled {
		t.Errorf("drop on unknown board = %s, want CANCELLED", r.Command)
	}
}

func TestSessionsAreIndependent(t *testing.T) {
	ed, srv := setup(t)
	_, _, a, _, x := seed(t, ed)
	one, two := dial(t, srv), dial(t, srv)

	if r := roundTrip(t, one, CommandPointerDown, PointerDown{Path: "live.kanban.json", NoteID: x}); r.Command != CommandCandidate {
		t.Fatalf("first down = %s", r.Command)
	}
	if r := roundTrip(t, two, CommandPointerDown, PointerDown{Path: "live.kanban.json", NoteID: a}); r.Command != CommandCandidate {
		t.Fatalf("second connection should have its own session, got %s", r.Command)
	}
	if r := roundTrip(t, one, CommandPointerDown, PointerDown{Path: "live.kanban.json", NoteID: a}); r.Command != CommandError {
		t.Errorf("second down on the same connection = %s, want ERROR", r.Command)
	}
}

func TestErrors(t *testing.T) {
	_, srv := setup(t)
	ws := dial(t, srv)

	cases := []struct {
		cmd  Command
		data any
	}{
		{CommandPointerMove, Pointer{BoardID: "b"}},
		{CommandPointerDown, PointerDown{NoteID: "n"}},
		{CommandPointerDown, PointerDown{Path: "live.kanban.json", NoteID: "ghost"}},
		{CommandPointerDown, PointerDown{Path: "missing.kanban.json", NoteID: "n"}},
		{"BOGUS", nil},
	}
	for _, c := range cases {
		if r := roundTrip(t, ws, c.cmd, c.data); r.Command != CommandError {
			t.Errorf("%s %+v = %s, want ERROR", c.cmd, c.data, r.Command)
		}
	}
}
