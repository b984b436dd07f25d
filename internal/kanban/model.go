// Package kanban implements the board engine: an ordered document of boards
// holding ordered notes, the mutations applied to it, the drag session that
// turns pointer gestures into moves, and the JSON persistence codec.
//
// A Document is not safe for concurrent use. Callers confine every mutation
// to a single goroutine (see internal/editor).
package kanban

import (
	"encoding/json"
	"maps"
	"slices"

	"github.com/google/uuid"
)

// NoteID identifies a note for the lifetime of a loaded document.
type NoteID string

// BoardID identifies a board for the lifetime of a loaded document.
type BoardID string

func newNoteID() NoteID   { return NoteID(uuid.NewString()) }
func newBoardID() BoardID { return BoardID(uuid.NewString()) }

// Style is presentation metadata attached to a board. The engine never
// interprets it; it is stored and echoed back unchanged.
type Style map[string]string

// Clone returns an independent copy of s.
func (s Style) Clone() Style {
	if s == nil {
		return nil
	}
	return maps.Clone(s)
}

// Format records which on-disk shape a document was read from.
type Format int

const (
	// FormatDocument is the object form with title, description and boards.
	FormatDocument Format = iota
	// FormatLegacy is the older bare array of boards.
	FormatLegacy
)

// Note is a titled text entry, the unit moved between boards.
type Note struct {
	ID       NoteID `json:"id"`
	Title    string `json:"title"`
	Content  string `json:"content"`
	Expanded bool   `json:"expanded"`

	extra *rawObject
}

// Board is an ordered column of notes.
type Board struct {
	ID    BoardID `json:"id"`
	Title string  `json:"title"`
	Notes []*Note `json:"notes"`
	Style Style   `json:"style"`

	// rawStyle keeps style members that are not strings, or the whole
	// style value when it is not an object, so a save echoes them.
	rawStyle   json.RawMessage
	styleRaw   map[string]json.RawMessage
	styleOrder []string
	extra      *rawObject
}

// Document is the unit of persistence: an ordered sequence of boards.
type Document struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Boards      []*Board `json:"boards"`
	Format      Format   `json:"-"`

	extra     *rawObject
	observers []Observer
}

// Template carries the defaults used when boards and notes are created
// without explicit values.
type Template struct {
	StartupBoards []string
	BoardTitle    string
	BoardStyle    Style
	NoteTitle     string
	NoteContent   string
}

// DefaultTemplate mirrors the stock configuration: three boards and a green
// board style.
func DefaultTemplate() Template {
	return Template{
		StartupBoards: []string{"To do", "Doing", "Done"},
		BoardTitle:    "New board",
		BoardStyle: Style{
			"frame": "background-color: #e0f5e0; border: 2px solid #66cc66; padding: 5px; border-radius: 5px;",
			"title": "font-weight: bold; background-color: #ccffcc; color:#000000",
		},
		NoteTitle:   "Initial title",
		NoteContent: "Hi",
	}
}

// New returns a document populated with the template's startup boards.
func New(t Template) *Document {
	d := &Document{}
	for _, title := range t.StartupBoards {
		d.Boards = append(d.Boards, &Board{ID: newBoardID(), Title: title, Style: t.BoardStyle.Clone()})
	}
	return d
}

// NewCard returns a document with a title and description, as written for a
// fresh *.kanban.json card.
func NewCard(title, description string, t Template) *Document {
	d := New(t)
	d.Title = title
	d.Description = description
	return d
}

// Board returns the board with the given id.
func (d *Document) Board(id BoardID) (*Board, bool) {
	i := d.BoardIndex(id)
	if i < 0 {
		return nil, false
	}
	return d.Boards[i], true
}

// BoardIndex returns the position of the board, or -1.
func (d *Document) BoardIndex(id BoardID) int {
	for i, b := range d.Boards {
		if b.ID == id {
			return i
		}
	}
	return -1
}

// FindNote locates a note and reports its owning board and position.
func (d *Document) FindNote(id NoteID) (*Board, int, bool) {
	for _, b := range d.Boards {
		if i := b.index(id); i >= 0 {
			return b, i, true
		}
	}
	return nil, -1, false
}

// NoteCount returns the number of notes across all boards.
func (d *Document) NoteCount() int {
	n := 0
	for _, b := range d.Boards {
		n += len(b.Notes)
	}
	return n
}

func (b *Board) index(id NoteID) int {
	for i, n := range b.Notes {
		if n.ID == id {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy of the document. Ids are kept; observers are not.
func (d *Document) Clone() *Document {
	out := &Document{
		Title:       d.Title,
		Description: d.Description,
		Format:      d.Format,
		extra:       d.extra.clone(),
		Boards:      make([]*Board, len(d.Boards)),
	}
	for i, b := range d.Boards {
		nb := &Board{
			ID:         b.ID,
			Title:      b.Title,
			Style:      b.Style.Clone(),
			rawStyle:   append(json.RawMessage(nil), b.rawStyle...),
			styleRaw:   cloneRaw(b.styleRaw),
			styleOrder: slices.Clone(b.styleOrder),
			extra:      b.extra.clone(),
			Notes:      make([]*Note, len(b.Notes)),
		}
		for j, n := range b.Notes {
			cp := *n
			cp.extra = n.extra.clone()
			nb.Notes[j] = &cp
		}
		out.Boards[i] = nb
	}
	return out
}

func cloneRaw(m map[string]json.RawMessage) map[string]json.RawMessage {
	if m == nil {
		return nil
	}
	out := make(map[string]json.RawMessage, len(m))
	for k, v := range m {
		out[k] = append(json.RawMessage(nil), v...)
	}
	return out
}
