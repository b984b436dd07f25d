package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/kanboard/internal/apperr"
	"github.com/starford/kanboard/internal/editor"
	"github.com/starford/kanboard/internal/index"
	"github.com/starford/kanboard/internal/kanban"
	"github.com/starford/kanboard/internal/schema"
)

const maxBodyBytes = 10 << 20

// Handler holds API route handlers.
type Handler struct {
	editor   *editor.Editor
	catalog  index.Catalog
	matches  func(string) bool
	template kanban.Template
}

// NewHandler creates a new Handler.
func NewHandler(d Deps) *Handler {
	matches := d.Matches
	if matches == nil {
		matches = func(string) bool { return true }
	}
	return &Handler{editor: d.Editor, catalog: d.Catalog, matches: matches, template: d.Template}
}

// docPath extracts the workspace path of the document. Slashes may be
// escaped (work%2Fweek.kanban.json).
func docPath(r *http.Request) string {
	raw := chi.URLParam(r, "doc")
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

func ifMatch(r *http.Request) string {
	return strings.Trim(r.Header.Get("If-Match"), `"`)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return false
	}
	return true
}

func invalid(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
}

// respond writes the current state of path with its version as ETag.
func (h *Handler) respond(ctx context.Context, w http.ResponseWriter, path string, status int) {
	view, err := h.view(ctx, path)
	if err != nil {
		writeError(w, "snapshot", err)
		return
	}
	w.Header().Set("ETag", `"`+view.Version+`"`)
	writeJSON(w, status, view)
}

func (h *Handler) view(ctx context.Context, path string) (*DocumentResponse, error) {
	st, err := h.editor.State(ctx, path)
	if err != nil {
		return nil, err
	}
	return &DocumentResponse{
		Path:     path,
		Version:  st.Version,
		Dirty:    st.Dirty,
		Format:   formatName(st.Doc.Format),
		Document: st.Doc,
	}, nil
}

// mutate runs fn on the document and responds with the new state.
func (h *Handler) mutate(w http.ResponseWriter, r *http.Request, op string, status int, fn func(*kanban.Document) error) {
	path := docPath(r)
	if err := h.editor.Do(r.Context(), path, fn); err != nil {
		writeError(w, op, err)
		return
	}
	h.respond(r.Context(), w, path, status)
}

// ListDocuments handles GET /api/documents.
//
//	@Summary		List catalogued documents
//	@Tags			documents
//	@Produce		json
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Param			tag		query		string	false	"Filter by tag"
//	@Param			sort	query		string	false	"Sort field"	Enums(path, title, updated)
//	@Success		200		{object}	DocumentListResponse
//	@Security		BearerAuth
//	@Router			/documents [get]
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	rows, total, err := h.catalog.ListDocuments(limit, offset, q.Get("tag"), q.Get("sort"))
	if err != nil {
		writeError(w, "list documents", err)
		return
	}
	items := make([]DocumentListItem, len(rows))
	for i, row := range rows {
		tags := row.Tags
		if tags == nil {
			tags = []string{}
		}
		items[i] = DocumentListItem{
			Path:        row.Path,
			Title:       row.Title,
			Description: row.Description,
			Checksum:    row.Checksum,
			Boards:      row.Boards,
			Notes:       row.Notes,
			Tags:        tags,
			UpdatedAt:   row.UpdatedAt,
		}
	}
	writeJSON(w, http.StatusOK, DocumentListResponse{Documents: items, Total: total})
}

// CreateDocument handles POST /api/documents.
//
//	@Summary		Create a card document with the default boards
//	@Tags			documents
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateDocumentRequest	true	"Document to create"
//	@Success		201		{object}	DocumentResponse
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents [post]
func (h *Handler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	var req CreateDocumentRequest
	if !decodeBody(w, r, &req) {
		return
	}
	err := validation.ValidateStruct(&req,
		validation.Field(&req.Path, validation.Required, validation.By(func(any) error {
			if !h.matches(req.Path) {
				return errors.New("does not name a board document")
			}
			return nil
		})),
	)
	if err != nil {
		invalid(w, err)
		return
	}
	if _, err := h.editor.Create(r.Context(), req.Path, req.Title, req.Description); err != nil {
		writeError(w, "create document", err)
		return
	}
	h.respond(r.Context(), w, req.Path, http.StatusCreated)
}

// GetDocument handles GET /api/documents/{doc}.
//
//	@Summary		Get a document with board and note ids
//	@Tags			documents
//	@Produce		json
//	@Param			doc	path		string	true	"Document path (slashes may be escaped)"
//	@Success		200	{object}	DocumentResponse
//	@Failure		404	{object}	errResponse
//	@Failure		422	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{doc} [get]
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	h.respond(r.Context(), w, docPath(r), http.StatusOK)
}

// ReplaceDocument handles PUT /api/documents/{doc}. The body is the
// persisted JSON form. With ?strict=1 it must also satisfy the schema.
//
//	@Summary		Replace a whole document
//	@Tags			documents
//	@Accept			json
//	@Produce		json
//	@Param			doc			path		string	true	"Document path"
//	@Param			strict		query		bool	false	"Validate against the document schema"
//	@Param			If-Match	header		string	false	"Document version"
//	@Success		200			{object}	DocumentResponse
//	@Failure		409			{object}	errResponse
//	@Failure		422			{object}	ValidationResponse
//	@Security		BearerAuth
//	@Router			/documents/{doc} [put]
func (h *Handler) ReplaceDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read body"))
		return
	}
	if strict, _ := strconv.ParseBool(r.URL.Query().Get("strict")); strict {
		issues, err := schema.Validate(body)
		if err != nil {
			writeError(w, "validate", err)
			return
		}
		if len(issues) > 0 {
			resp := ValidationResponse{Error: "document does not match schema"}
			for _, i := range issues {
				resp.Issues = append(resp.Issues, Issue{Path: i.Path, Message: i.Message})
			}
			writeJSON(w, http.StatusUnprocessableEntity, resp)
			return
		}
	}
	doc, err := kanban.Unmarshal(body)
	if err != nil {
		writeError(w, "decode document", err)
		return
	}
	// A body fetched with GET carries the response fields too.
	doc.DropMembers(responseFields...)
	path := docPath(r)
	if _, err := h.editor.Replace(r.Context(), path, doc, ifMatch(r)); err != nil {
		writeError(w, "replace document", err)
		return
	}
	h.respond(r.Context(), w, path, http.StatusOK)
}

// DeleteDocument handles DELETE /api/documents/{doc}.
//
//	@Summary		Delete a document
//	@Tags			documents
//	@Param			doc	path	string	true	"Document path"
//	@Success		204	"Document deleted"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{doc} [delete]
func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := h.editor.Delete(r.Context(), docPath(r)); err != nil {
		writeError(w, "delete document", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SaveDocument handles POST /api/documents/{doc}/save. With ?as=<path> the
// document is written to a new file instead.
//
//	@Summary		Write a document to disk
//	@Tags			documents
//	@Produce		json
//	@Param			doc			path		string	true	"Document path"
//	@Param			as			query		string	false	"Save under a new path"
//	@Param			If-Match	header		string	false	"Document version"
//	@Success		200			{object}	SaveResponse
//	@Failure		409			{object}	errResponse
//	@Failure		500			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{doc}/save [post]
func (h *Handler) SaveDocument(w http.ResponseWriter, r *http.Request) {
	path := docPath(r)
	if as := r.URL.Query().Get("as"); as != "" {
		if !h.matches(as) {
			writeJSON(w, http.StatusBadRequest, errorBody("as: does not name a board document"))
			return
		}
		sum, err := h.editor.SaveAs(r.Context(), path, as)
		if err != nil {
			writeError(w, "save document", err)
			return
		}
		writeJSON(w, http.StatusOK, SaveResponse{Path: as, Checksum: sum})
		return
	}
	sum, err := h.editor.Save(r.Context(), path, ifMatch(r))
	if err != nil {
		writeError(w, "save document", err)
		return
	}
	writeJSON(w, http.StatusOK, SaveResponse{Path: path, Checksum: sum})
}

// ReloadDocument handles POST /api/documents/{doc}/reload.
func (h *Handler) ReloadDocument(w http.ResponseWriter, r *http.Request) {
	path := docPath(r)
	if err := h.editor.Reload(r.Context(), path); err != nil {
		writeError(w, "reload document", err)
		return
	}
	h.respond(r.Context(), w, path, http.StatusOK)
}

// AddBoard handles POST /api/documents/{doc}/boards.
func (h *Handler) AddBoard(w http.ResponseWriter, r *http.Request) {
	var req BoardRequest
	if !decodeBody(w, r, &req) {
		return
	}
	title := h.template.BoardTitle
	if req.Title != nil {
		title = *req.Title
	}
	style := h.template.BoardStyle
	if req.Style != nil {
		style = req.Style
	}
	h.mutate(w, r, "add board", http.StatusCreated, func(d *kanban.Document) error {
		d.AddBoard(title, style)
		return nil
	})
}

// UpdateBoard handles PATCH /api/documents/{doc}/boards/{board}.
func (h *Handler) UpdateBoard(w http.ResponseWriter, r *http.Request) {
	var req BoardRequest
	if !decodeBody(w, r, &req) {
		return
	}
	id := kanban.BoardID(chi.URLParam(r, "board"))
	h.mutate(w, r, "update board", http.StatusOK, func(d *kanban.Document) error {
		if _, ok := d.Board(id); !ok {
			return fmt.Errorf("board %s: %w", id, apperr.ErrNotFound)
		}
		if req.Title != nil {
			if err := d.RenameBoard(id, *req.Title); err != nil {
				return err
			}
		}
		if req.Style != nil {
			return d.SetBoardStyle(id, req.Style)
		}
		return nil
	})
}

// RemoveBoard handles DELETE /api/documents/{doc}/boards/{board}.
func (h *Handler) RemoveBoard(w http.ResponseWriter, r *http.Request) {
	id := kanban.BoardID(chi.URLParam(r, "board"))
	h.mutate(w, r, "remove board", http.StatusOK, func(d *kanban.Document) error {
		return d.RemoveBoard(id)
	})
}

// InterchangeBoard handles POST /api/documents/{doc}/boards/{board}/interchange.
func (h *Handler) InterchangeBoard(w http.ResponseWriter, r *http.Request) {
	id := kanban.BoardID(chi.URLParam(r, "board"))
	h.mutate(w, r, "interchange board", http.StatusOK, func(d *kanban.Document) error {
		return d.InterchangeRight(id)
	})
}

// AddNote handles POST /api/documents/{doc}/boards/{board}/notes. Missing
// fields take the configured defaults.
func (h *Handler) AddNote(w http.ResponseWriter, r *http.Request) {
	var req NoteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	title, content := h.template.NoteTitle, h.template.NoteContent
	if req.Title != nil {
		title = *req.Title
	}
	if req.Content != nil {
		content = *req.Content
	}
	id := kanban.BoardID(chi.URLParam(r, "board"))
	h.mutate(w, r, "add note", http.StatusCreated, func(d *kanban.Document) error {
		_, err := d.AddNote(id, title, content)
		return err
	})
}

// UpdateNote handles PATCH /api/documents/{doc}/notes/{note}.
func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	var req NoteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	id := kanban.NoteID(chi.URLParam(r, "note"))
	h.mutate(w, r, "update note", http.StatusOK, func(d *kanban.Document) error {
		b, i, ok := d.FindNote(id)
		if !ok {
			return fmt.Errorf("note %s: %w", id, apperr.ErrNotFound)
		}
		n := b.Notes[i]
		title, content := n.Title, n.Content
		if req.Title != nil {
			title = *req.Title
		}
		if req.Content != nil {
			content = *req.Content
		}
		if title != n.Title || content != n.Content {
			if err := d.EditNote(id, title, content); err != nil {
				return err
			}
		}
		if req.Expanded != nil && *req.Expanded != n.Expanded {
			_, err := d.ToggleNote(id)
			return err
		}
		return nil
	})
}

// RemoveNote handles DELETE /api/documents/{doc}/notes/{note}.
func (h *Handler) RemoveNote(w http.ResponseWriter, r *http.Request) {
	id := kanban.NoteID(chi.URLParam(r, "note"))
	h.mutate(w, r, "remove note", http.StatusOK, func(d *kanban.Document) error {
		return d.RemoveNote(id)
	})
}

// MoveNote handles POST /api/documents/{doc}/notes/{note}/move. The index
// is clamped to the target board.
func (h *Handler) MoveNote(w http.ResponseWriter, r *http.Request) {
	var req MoveRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := validation.ValidateStruct(&req, validation.Field(&req.BoardID, validation.Required)); err != nil {
		invalid(w, err)
		return
	}
	id := kanban.NoteID(chi.URLParam(r, "note"))
	h.mutate(w, r, "move note", http.StatusOK, func(d *kanban.Document) error {
		return d.MoveNote(id, req.BoardID, req.Index)
	})
}

// Drop handles POST /api/documents/{doc}/drop: one request carries a whole
// gesture, so the drag session lives only for its duration.
//
//	@Summary		Drop a dragged note over a board
//	@Tags			drag
//	@Accept			json
//	@Produce		json
//	@Param			doc		path		string		true	"Document path"
//	@Param			body	body		DropRequest	true	"Drop position"
//	@Success		200		{object}	DropResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{doc}/drop [post]
func (h *Handler) Drop(w http.ResponseWriter, r *http.Request) {
	var req DropRequest
	if !decodeBody(w, r, &req) {
		return
	}
	err := validation.ValidateStruct(&req,
		validation.Field(&req.NoteID, validation.Required),
		validation.Field(&req.BoardID, validation.Required),
	)
	if err != nil {
		invalid(w, err)
		return
	}
	centers := make([]kanban.NoteCenter, len(req.Centers))
	for i, c := range req.Centers {
		centers[i] = kanban.NoteCenter{NoteID: c.NoteID, Y: c.Y}
	}
	layout := kanban.StaticLayout{req.BoardID: centers}

	path := docPath(r)
	var out kanban.Outcome
	err = h.editor.Do(r.Context(), path, func(d *kanban.Document) error {
		var s kanban.DragSession
		if err := s.PointerDown(d, req.NoteID); err != nil {
			return err
		}
		var err error
		out, err = s.Drop(d, req.BoardID, req.Y, layout)
		return err
	})
	if err != nil {
		writeError(w, "drop", err)
		return
	}
	view, err := h.view(r.Context(), path)
	if err != nil {
		writeError(w, "snapshot", err)
		return
	}
	w.Header().Set("ETag", `"`+view.Version+`"`)
	writeJSON(w, http.StatusOK, DropResponse{Committed: out.Committed, Index: out.Index, Document: view})
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across board documents
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.catalog.Search(q, limit)
	if err != nil {
		slog.Error("search failed", slog.String("query", q), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	out := SearchResponse{Results: make([]SearchResult, len(results))}
	for i, res := range results {
		out.Results[i] = SearchResult{Path: res.Path, Title: res.Title, Snippet: res.Snippet}
	}
	writeJSON(w, http.StatusOK, out)
}
