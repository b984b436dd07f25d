package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/kanboard/internal/index"
	"github.com/starford/kanboard/internal/kanban"
	"github.com/starford/kanboard/internal/storage"
	"github.com/starford/kanboard/internal/testutil"
)

func testServer(t *testing.T) (*Server, storage.Provider, *index.DB) {
	t.Helper()
	_, store := testutil.TestWorkspace(t)
	db := testutil.TestDB(t)
	ed := testutil.TestEditor(t, store)
	return New(ed, store, db, testutil.Logger()), store, db
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	handlers := map[string]func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error){
		"list_documents":      srv.listDocuments,
		"search_documents":    srv.searchDocuments,
		"read_document":       srv.readDocument,
		"create_document":     srv.createDocument,
		"add_board":           srv.addBoard,
		"add_note":            srv.addNote,
		"move_note":           srv.moveNote,
		"interchange_board":   srv.interchangeBoard,
		"get_document_format": srv.getDocumentFormat,
	}
	h, ok := handlers[name]
	if !ok {
		t.Fatalf("unknown tool: %s", name)
	}
	result, err := h(ctx, req)
	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func readDoc(t *testing.T, srv *Server, path string) *kanban.Document {
	t.Helper()
	r := callTool(t, srv, "read_document", map[string]any{"path": path})
	if r.IsError {
		t.Fatalf("read_document: %s", resultText(r))
	}
	var doc kanban.Document
	if err := json.Unmarshal([]byte(resultText(r)), &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return &doc
}

func TestCreateAndReadDocument(t *testing.T) {
	srv, store, db := testServer(t)

	r := callTool(t, srv, "create_document", map[string]any{
		"path":  "week.kanban.json",
		"title": "Week",
	})
	if text := resultText(r); text != "created: week.kanban.json" {
		t.Errorf("create result = %q", text)
	}
	if _, err := store.Read("week.kanban.json"); err != nil {
		t.Errorf("file not written: %v", err)
	}
	if cs, _ := db.GetChecksum("week.kanban.json"); cs == "" {
		t.Error("document not catalogued")
	}

	doc := readDoc(t, srv, "week.kanban.json")
	if doc.Title != "Week" || len(doc.Boards) != 3 || doc.Boards[0].ID == "" {
		t.Errorf("doc = %+v", doc)
	}

	r = callTool(t, srv, "create_document", map[string]any{"path": "week.kanban.json", "title": "Again"})
	if !r.IsError {
		t.Error("expected error for existing document")
	}
	r = callTool(t, srv, "create_document", map[string]any{"path": "notes.md", "title": "Wrong"})
	if !r.IsError {
		t.Error("expected error for non-document path")
	}
}

func TestEditingToolsSave(t *testing.T) {
	srv, store, _ := testServer(t)
	callTool(t, srv, "create_document", map[string]any{"path": "a.kanban.json", "title": "A"})
	doc := readDoc(t, srv, "a.kanban.json")
	first, last := doc.Boards[0].ID, doc.Boards[2].ID

	r := callTool(t, srv, "add_note", map[string]any{
		"path": "a.kanban.json", "board_id": string(first), "title": "ship", "content": "#release",
	})
	if r.IsError {
		t.Fatalf("add_note: %s", resultText(r))
	}
	var added struct {
		NoteID kanban.NoteID `json:"note_id"`
	}
	_ = json.Unmarshal([]byte(resultText(r)), &added)

	r = callTool(t, srv, "move_note", map[string]any{
		"path": "a.kanban.json", "note_id": string(added.NoteID), "board_id": string(last),
	})
	if r.IsError {
		t.Fatalf("move_note: %s", resultText(r))
	}

	r = callTool(t, srv, "interchange_board", map[string]any{"path": "a.kanban.json", "board_id": string(last)})
	if r.IsError {
		t.Fatalf("interchange_board: %s", resultText(r))
	}

	data, _ := store.Read("a.kanban.json")
	saved, err := kanban.Unmarshal(data)
	if err != nil {
		t.Fatal(err)
	}
	// The last board wrapped to the front, taking the moved note along.
	if len(saved.Boards[0].Notes) != 1 || saved.Boards[0].Notes[0].Title != "ship" {
		t.Errorf("saved boards = %+v", saved.Boards)
	}

	r = callTool(t, srv, "search_documents", map[string]any{"query": "release"})
	if !strings.Contains(resultText(r), "a.kanban.json") {
		t.Errorf("search = %s", resultText(r))
	}
}

func TestEditingUnknownBoardFails(t *testing.T) {
	srv, store, _ := testServer(t)
	callTool(t, srv, "create_document", map[string]any{"path": "a.kanban.json", "title": "A"})
	before, _ := store.Read("a.kanban.json")

	r := callTool(t, srv, "add_note", map[string]any{"path": "a.kanban.json", "board_id": "nope", "title": "x"})
	if !r.IsError {
		t.Error("expected error for unknown board")
	}
	after, _ := store.Read("a.kanban.json")
	if string(before) != string(after) {
		t.Error("failed edit changed the file")
	}
}

func TestListDocuments(t *testing.T) {
	srv, _, _ := testServer(t)
	callTool(t, srv, "create_document", map[string]any{"path": "a.kanban.json", "title": "A"})
	callTool(t, srv, "create_document", map[string]any{"path": "b/b.kanban.json", "title": "B"})

	r := callTool(t, srv, "list_documents", map[string]any{})
	var out struct {
		Total int `json:"total"`
	}
	_ = json.Unmarshal([]byte(resultText(r)), &out)
	if out.Total != 2 {
		t.Errorf("total = %d, want 2", out.Total)
	}
}

func TestReadDocumentMissing(t *testing.T) {
	srv, _, _ := testServer(t)
	r := callTool(t, srv, "read_document", map[string]any{"path": "nope.kanban.json"})
	if !r.IsError {
		t.Error("expected error for missing document")
	}
}

func TestFormatResources(t *testing.T) {
	srv, _, _ := testServer(t)
	if !strings.Contains(resultText(callTool(t, srv, "get_document_format", nil)), ".kanban.json") {
		t.Error("format contract missing file suffix")
	}
	contents, err := srv.readSchemaResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil || len(contents) != 1 {
		t.Fatalf("schema resource = %v, %v", contents, err)
	}
	if tc, ok := contents[0].(mcp.TextResourceContents); !ok || !strings.Contains(tc.Text, "boards") {
		t.Error("schema resource does not describe boards")
	}
}
