// Package live serves drag gestures over a websocket. Every connection owns
// one drag session, so gestures from different clients never share state.
package live

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/starford/kanboard/internal/editor"
	"github.com/starford/kanboard/internal/kanban"
)

// Command names a message sent in either direction.
type Command string

const (
	CommandPointerDown Command = "POINTER_DOWN"
	CommandPointerMove Command = "POINTER_MOVE"
	CommandDrop        Command = "DROP"
	CommandCancel      Command = "CANCEL"

	CommandCandidate Command = "CANDIDATE"
	CommandCommitted Command = "COMMITTED"
	CommandCancelled Command = "CANCELLED"
	CommandError     Command = "ERROR"
)

// Message is the envelope for every frame.
type Message struct {
	Command Command `json:"command"`
	Data    any     `json:"data,omitempty"`
}

type inbound struct {
	Command Command         `json:"command"`
	Data    json.RawMessage `json:"data"`
}

// PointerDown picks up a note of the document at Path.
type PointerDown struct {
	Path   string        `json:"path"`
	NoteID kanban.NoteID `json:"note_id"`
}

// Center is the vertical midpoint of a rendered note.
type Center struct {
	NoteID kanban.NoteID `json:"note_id"`
	Y      float64       `json:"y"`
}

// Pointer is the position of a pointer over a board, with the centers of
// that board's rendered notes.
type Pointer struct {
	BoardID kanban.BoardID `json:"board_id"`
	Y       float64        `json:"y"`
	Centers []Center       `json:"centers"`
}

// Candidate is the reply to pointer events.
type Candidate struct {
	BoardID kanban.BoardID `json:"board_id"`
	Index   int            `json:"index"`
}

// Result reports how a gesture ended.
type Result struct {
	NoteID  kanban.NoteID  `json:"note_id"`
	BoardID kanban.BoardID `json:"board_id"`
	Index   int            `json:"index"`
}

// ErrorData carries a failure message.
type ErrorData struct {
	Message string `json:"message"`
}

// Handler upgrades requests and runs one session per connection.
type Handler struct {
	editor   *editor.Editor
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// NewHandler returns a websocket handler bound to ed.
func NewHandler(ed *editor.Editor, logger *slog.Logger) *Handler {
	return &Handler{editor: ed, logger: logger}
}

// conn is the per-connection state. Only the connection's goroutine and,
// while it waits inside editor.Do, the editor loop touch it.
type conn struct {
	ws      *websocket.Conn
	path    string
	session kanban.DragSession
}

// ServeHTTP handles GET /api/live.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("live: upgrade failed", slog.String("error", err.Error()))
		return
	}
	defer ws.Close()

	c := &conn{ws: ws}
	h.logger.Debug("live: connected", slog.String("remote", r.RemoteAddr))
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if c.session.State() == kanban.Dragging {
				c.session.Cancel()
			}
			h.logger.Debug("live: disconnected", slog.String("remote", r.RemoteAddr))
			return
		}
		reply := h.process(r.Context(), c, data)
		if err := send(ws, reply); err != nil {
			h.logger.Warn("live: write failed", slog.String("error", err.Error()))
			return
		}
	}
}

func send(ws *websocket.Conn, m Message) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return ws.WriteMessage(websocket.TextMessage, data)
}

func failure(err error) Message {
	return Message{Command: CommandError, Data: ErrorData{Message: err.Error()}}
}

func layoutOf(p Pointer) kanban.Layout {
	centers := make([]kanban.NoteCenter, len(p.Centers))
	for i, c := range p.Centers {
		centers[i] = kanban.NoteCenter{NoteID: c.NoteID, Y: c.Y}
	}
	return kanban.StaticLayout{p.BoardID: centers}
}

func (h *Handler) process(ctx context.Context, c *conn, data []byte) Message {
	var in inbound
	if err := json.Unmarshal(data, &in); err != nil {
		return failure(fmt.Errorf("invalid message: %w", err))
	}

	switch in.Command {
	case CommandPointerDown:
		var req PointerDown
		if err := json.Unmarshal(in.Data, &req); err != nil {
			return failure(err)
		}
		if req.Path == "" {
			return failure(errors.New("path is required"))
		}
		if c.session.State() == kanban.Dragging {
			return failure(kanban.ErrSessionBusy)
		}
		err := h.editor.Do(ctx, req.Path, func(d *kanban.Document) error {
			return c.session.PointerDown(d, req.NoteID)
		})
		if err != nil {
			return failure(err)
		}
		c.path = req.Path
		board, idx := c.session.Source()
		return Message{Command: CommandCandidate, Data: Candidate{BoardID: board, Index: idx}}

	case CommandPointerMove:
		var p Pointer
		if err := json.Unmarshal(in.Data, &p); err != nil {
			return failure(err)
		}
		idx, err := c.session.PointerMove(p.BoardID, p.Y, layoutOf(p))
		if err != nil {
			return failure(err)
		}
		return Message{Command: CommandCandidate, Data: Candidate{BoardID: p.BoardID, Index: idx}}

	case CommandDrop:
		var p Pointer
		if err := json.Unmarshal(in.Data, &p); err != nil {
			return failure(err)
		}
		if c.session.State() != kanban.Dragging {
			return failure(kanban.ErrNotDragging)
		}
		var out kanban.Outcome
		err := h.editor.Do(ctx, c.path, func(d *kanban.Document) error {
			var err error
			out, err = c.session.Drop(d, p.BoardID, p.Y, layoutOf(p))
			return err
		})
		if err != nil {
			// The session is idle again even when the move failed.
			c.session.Cancel()
			return failure(err)
		}
		res := Result{NoteID: out.NoteID, BoardID: out.BoardID, Index: out.Index}
		if !out.Committed {
			return Message{Command: CommandCancelled, Data: res}
		}
		return Message{Command: CommandCommitted, Data: res}

	case CommandCancel:
		out := c.session.Cancel()
		return Message{Command: CommandCancelled, Data: Result{NoteID: out.NoteID, BoardID: out.BoardID, Index: out.Index}}

	default:
		return failure(fmt.Errorf("command not supported: %q", in.Command))
	}
}
