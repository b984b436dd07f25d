// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes board documents to LLM clients via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/kanboard/internal/editor"
	"github.com/starford/kanboard/internal/index"
	"github.com/starford/kanboard/internal/kanban"
	"github.com/starford/kanboard/internal/schema"
	"github.com/starford/kanboard/internal/storage"
)

const (
	formatURI = "kanboard://document-format"
	schemaURI = "kanboard://document-schema"
)

// Server wraps the MCP server with the board tools.
type Server struct {
	mcp    *server.MCPServer
	editor *editor.Editor
	store  storage.Provider
	db     index.Catalog
	logger *slog.Logger
}

// New creates a new MCP server with all tools registered.
func New(ed *editor.Editor, store storage.Provider, db index.Catalog, logger *slog.Logger) *Server {
	s := &Server{editor: ed, store: store, db: db, logger: logger}

	s.mcp = server.NewMCPServer(
		"Kanboard",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_documents",
		mcp.WithDescription("List catalogued board documents with their board and note counts."),
		mcp.WithString("tag", mcp.Description("Only documents carrying this tag")),
	), s.listDocuments)

	s.mcp.AddTool(mcp.NewTool("search_documents",
		mcp.WithDescription("Full-text search through document titles, note text and tags."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchDocuments)

	s.mcp.AddTool(mcp.NewTool("read_document",
		mcp.WithDescription("Read a board document as JSON, including board and note ids."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path (e.g. plans/week.kanban.json)")),
	), s.readDocument)

	s.mcp.AddTool(mcp.NewTool("create_document",
		mcp.WithDescription("Create a board document with the default boards. "+
			"Read the kanboard://document-format resource first."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path ending with .kanban.json")),
		mcp.WithString("title", mcp.Required(), mcp.Description("Document title")),
		mcp.WithString("description", mcp.Description("Optional description")),
	), s.createDocument)

	s.mcp.AddTool(mcp.NewTool("add_board",
		mcp.WithDescription("Append a board to a document and save it."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Document path")),
		mcp.WithString("title", mcp.Required(), mcp.Description("Board title")),
	), s.addBoard)

	s.mcp.AddTool(mcp.NewTool("add_note",
		mcp.WithDescription("Append a note to a board and save the document."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Document path")),
		mcp.WithString("board_id", mcp.Required(), mcp.Description("Board id from read_document")),
		mcp.WithString("title", mcp.Required(), mcp.Description("Note title")),
		mcp.WithString("content", mcp.Description("Note text")),
	), s.addNote)

	s.mcp.AddTool(mcp.NewTool("move_note",
		mcp.WithDescription("Move a note to a position on a board and save the document."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Document path")),
		mcp.WithString("note_id", mcp.Required(), mcp.Description("Note id from read_document")),
		mcp.WithString("board_id", mcp.Required(), mcp.Description("Target board id")),
		mcp.WithNumber("index", mcp.Description("Target position, clamped to the board (default: end)")),
	), s.moveNote)

	s.mcp.AddTool(mcp.NewTool("interchange_board",
		mcp.WithDescription("Move a board one position right (the last board wraps to the front) and save."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Document path")),
		mcp.WithString("board_id", mcp.Required(), mcp.Description("Board id from read_document")),
	), s.interchangeBoard)

	s.mcp.AddTool(mcp.NewTool("get_document_format",
		mcp.WithDescription("Returns the board document format. Call this before editing documents."),
	), s.getDocumentFormat)

	s.mcp.AddResource(
		mcp.NewResource(formatURI, "Document Format",
			mcp.WithResourceDescription("Board document format that every file follows."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readFormatResource,
	)
	s.mcp.AddResource(
		mcp.NewResource(schemaURI, "Document Schema",
			mcp.WithResourceDescription("JSON Schema of a board document."),
			mcp.WithMIMEType("application/schema+json"),
		),
		s.readSchemaResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

// commit runs fn on the open document at path, saves it and refreshes
// its catalog row.
func (s *Server) commit(ctx context.Context, path string, fn func(*kanban.Document) error) error {
	if err := s.editor.Do(ctx, path, fn); err != nil {
		return err
	}
	if _, err := s.editor.Save(ctx, path, ""); err != nil {
		return err
	}
	s.reindex(path)
	return nil
}

func (s *Server) reindex(path string) {
	if err := index.Reindex(s.db, s.store, path, s.logger); err != nil {
		s.logger.Warn("mcp: reindex failed", slog.String("path", path), slog.String("error", err.Error()))
	}
}

func (s *Server) listDocuments(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tag := req.GetString("tag", "")
	rows, total, err := s.db.ListDocuments(200, 0, tag, "path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{"documents": rows, "total": total})
}

func (s *Server) searchDocuments(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.db.Search(query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(results)
}

func (s *Server) readDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	doc, _, err := s.editor.Snapshot(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(doc)
}

func (s *Server) createDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !s.store.Matches(path) {
		return mcp.NewToolResultError(fmt.Sprintf("not a board document path: %s", path)), nil
	}
	if _, err := s.editor.Create(ctx, path, title, req.GetString("description", "")); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	s.reindex(path)
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", path)), nil
}

func (s *Server) addBoard(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var id kanban.BoardID
	err = s.commit(ctx, path, func(d *kanban.Document) error {
		id = d.AddBoard(title, nil)
		return nil
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{"board_id": id})
}

func (s *Server) addNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	board, err := req.RequireString("board_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var id kanban.NoteID
	err = s.commit(ctx, path, func(d *kanban.Document) error {
		var err error
		id, err = d.AddNote(kanban.BoardID(board), title, req.GetString("content", ""))
		return err
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{"note_id": id})
}

func (s *Server) moveNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, err := req.RequireString("note_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	board, err := req.RequireString("board_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	pos := req.GetInt("index", -1)
	err = s.commit(ctx, path, func(d *kanban.Document) error {
		i := pos
		if i < 0 {
			b, ok := d.Board(kanban.BoardID(board))
			if !ok {
				return fmt.Errorf("board %s not found", board)
			}
			i = len(b.Notes)
		}
		return d.MoveNote(kanban.NoteID(note), kanban.BoardID(board), i)
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("moved: %s", note)), nil
}

func (s *Server) interchangeBoard(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	board, err := req.RequireString("board_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	err = s.commit(ctx, path, func(d *kanban.Document) error {
		return d.InterchangeRight(kanban.BoardID(board))
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("interchanged: %s", board)), nil
}

func (s *Server) getDocumentFormat(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(DocumentFormatContract), nil
}

func (s *Server) readFormatResource(context.Context, mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      formatURI,
			MIMEType: "text/markdown",
			Text:     DocumentFormatContract,
		},
	}, nil
}

func (s *Server) readSchemaResource(context.Context, mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      schemaURI,
			MIMEType: "application/schema+json",
			Text:     schema.Source(),
		},
	}, nil
}
