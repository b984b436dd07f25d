package api

import (
	"time"

	"github.com/starford/kanboard/internal/kanban"
)

// CreateDocumentRequest is the request body for creating a card document.
type CreateDocumentRequest struct {
	Path        string `json:"path" example:"work/week.kanban.json" validate:"required"`
	Title       string `json:"title" example:"Week 42"`
	Description string `json:"description" example:"Sprint board"`
}

// BoardRequest is the body for adding or patching a board. Nil fields are
// left unchanged on PATCH.
type BoardRequest struct {
	Title *string      `json:"title,omitempty" example:"Review"`
	Style kanban.Style `json:"style,omitempty"`
}

// NoteRequest is the body for adding or patching a note.
type NoteRequest struct {
	Title    *string `json:"title,omitempty" example:"Write tests"`
	Content  *string `json:"content,omitempty" example:"cover the drop path"`
	Expanded *bool   `json:"expanded,omitempty"`
}

// MoveRequest relocates a note.
type MoveRequest struct {
	BoardID kanban.BoardID `json:"board_id" validate:"required"`
	Index   int            `json:"index" example:"0"`
}

// Center is the vertical midpoint of a rendered note.
type Center struct {
	NoteID kanban.NoteID `json:"note_id"`
	Y      float64       `json:"y"`
}

// DropRequest runs a whole drag gesture: the note is picked up and dropped
// at y over board, whose rendered note centers are given.
type DropRequest struct {
	NoteID  kanban.NoteID  `json:"note_id" validate:"required"`
	BoardID kanban.BoardID `json:"board_id" validate:"required"`
	Y       float64        `json:"y"`
	Centers []Center       `json:"centers"`
}

// DocumentResponse is a document with the ids of its boards and notes.
type DocumentResponse struct {
	Path    string `json:"path" example:"work/week.kanban.json"`
	Version string `json:"version" example:"9f86d081..."`
	Dirty   bool   `json:"dirty"`
	Format  string `json:"format" example:"document" enums:"document,legacy"`
	*kanban.Document
}

// responseFields are the DocumentResponse members that are not part of the
// document itself.
var responseFields = []string{"path", "version", "dirty", "format"}

// DropResponse reports the outcome of a drop.
type DropResponse struct {
	Committed bool              `json:"committed"`
	Index     int               `json:"index"`
	Document  *DocumentResponse `json:"document"`
}

// DocumentListItem is a lightweight catalog entry.
type DocumentListItem struct {
	Path        string    `json:"path"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Checksum    string    `json:"checksum"`
	Boards      int       `json:"boards"`
	Notes       int       `json:"notes"`
	Tags        []string  `json:"tags"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// DocumentListResponse wraps paginated catalog listings.
type DocumentListResponse struct {
	Documents []DocumentListItem `json:"documents"`
	Total     int                `json:"total"`
}

// SaveResponse is returned after a document is written.
type SaveResponse struct {
	Path     string `json:"path"`
	Checksum string `json:"checksum"`
}

// SearchResult is a single search hit in the API response.
type SearchResult struct {
	Path    string `json:"path" example:"work/week.kanban.json"`
	Title   string `json:"title" example:"Week 42"`
	Snippet string `json:"snippet" example:"...matched text..."`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []SearchResult `json:"results"`
}

// ValidationResponse lists schema violations for a strict PUT.
type ValidationResponse struct {
	Error  string  `json:"error"`
	Issues []Issue `json:"issues"`
}

// Issue is one schema violation.
type Issue struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

func formatName(f kanban.Format) string {
	if f == kanban.FormatLegacy {
		return "legacy"
	}
	return "document"
}
