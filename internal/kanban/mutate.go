package kanban

import (
	"fmt"
	"slices"

	"github.com/starford/kanboard/internal/apperr"
)

// ChangeKind names the mutation that produced a Change.
type ChangeKind string

const (
	BoardAdded   ChangeKind = "board.added"
	BoardRemoved ChangeKind = "board.removed"
	BoardMoved   ChangeKind = "board.moved"
	BoardUpdated ChangeKind = "board.updated"
	NoteAdded    ChangeKind = "note.added"
	NoteRemoved  ChangeKind = "note.removed"
	NoteMoved    ChangeKind = "note.moved"
	NoteUpdated  ChangeKind = "note.updated"
)

// Change describes one applied mutation.
type Change struct {
	Kind    ChangeKind `json:"kind"`
	BoardID BoardID    `json:"board_id,omitempty"`
	NoteID  NoteID     `json:"note_id,omitempty"`
}

// Observer is called after every successful mutation.
type Observer func(Change)

// Observe registers fn to receive change notifications.
func (d *Document) Observe(fn Observer) {
	d.observers = append(d.observers, fn)
}

func (d *Document) emit(c Change) {
	for _, fn := range d.observers {
		fn(c)
	}
}

func boardNotFound(id BoardID) error {
	return fmt.Errorf("board %s: %w", id, apperr.ErrNotFound)
}

func noteNotFound(id NoteID) error {
	return fmt.Errorf("note %s: %w", id, apperr.ErrNotFound)
}

// AddBoard appends an empty board and returns its id.
func (d *Document) AddBoard(title string, style Style) BoardID {
	b := &Board{ID: newBoardID(), Title: title, Style: style.Clone()}
	d.Boards = append(d.Boards, b)
	d.emit(Change{Kind: BoardAdded, BoardID: b.ID})
	return b.ID
}

// RemoveBoard deletes a board together with all of its notes.
func (d *Document) RemoveBoard(id BoardID) error {
	i := d.BoardIndex(id)
	if i < 0 {
		return boardNotFound(id)
	}
	d.Boards = slices.Delete(d.Boards, i, i+1)
	d.emit(Change{Kind: BoardRemoved, BoardID: id})
	return nil
}

// InterchangeRight moves a board one position to the right. The rightmost
// board wraps around to the leftmost position and the others shift right
// by one, so applying it len(Boards) times to the same board restores the
// original order. With three or more boards this is a rotation, not a swap
// of the last and first boards. With fewer than two boards it does nothing.
func (d *Document) InterchangeRight(id BoardID) error {
	i := d.BoardIndex(id)
	if i < 0 {
		return boardNotFound(id)
	}
	n := len(d.Boards)
	if n < 2 {
		return nil
	}
	if i == n-1 {
		b := d.Boards[i]
		copy(d.Boards[1:], d.Boards[:n-1])
		d.Boards[0] = b
	} else {
		d.Boards[i], d.Boards[i+1] = d.Boards[i+1], d.Boards[i]
	}
	d.emit(Change{Kind: BoardMoved, BoardID: id})
	return nil
}

// RenameBoard sets a board's title.
func (d *Document) RenameBoard(id BoardID, title string) error {
	b, ok := d.Board(id)
	if !ok {
		return boardNotFound(id)
	}
	b.Title = title
	d.emit(Change{Kind: BoardUpdated, BoardID: id})
	return nil
}

// SetBoardStyle replaces a board's style. Style members previously kept
// verbatim from the file are dropped with it.
func (d *Document) SetBoardStyle(id BoardID, style Style) error {
	b, ok := d.Board(id)
	if !ok {
		return boardNotFound(id)
	}
	b.Style = style.Clone()
	b.rawStyle = nil
	b.styleRaw = nil
	d.emit(Change{Kind: BoardUpdated, BoardID: id})
	return nil
}

// AddNote appends a note to the end of a board.
func (d *Document) AddNote(boardID BoardID, title, content string) (NoteID, error) {
	b, ok := d.Board(boardID)
	if !ok {
		return "", boardNotFound(boardID)
	}
	n := &Note{ID: newNoteID(), Title: title, Content: content}
	b.Notes = append(b.Notes, n)
	d.emit(Change{Kind: NoteAdded, BoardID: boardID, NoteID: n.ID})
	return n.ID, nil
}

// RemoveNote deletes a note from its owning board.
func (d *Document) RemoveNote(id NoteID) error {
	b, i, ok := d.FindNote(id)
	if !ok {
		return noteNotFound(id)
	}
	b.Notes = slices.Delete(b.Notes, i, i+1)
	d.emit(Change{Kind: NoteRemoved, BoardID: b.ID, NoteID: id})
	return nil
}

// EditNote replaces a note's title and content.
func (d *Document) EditNote(id NoteID, title, content string) error {
	b, i, ok := d.FindNote(id)
	if !ok {
		return noteNotFound(id)
	}
	n := b.Notes[i]
	n.Title = title
	n.Content = content
	d.emit(Change{Kind: NoteUpdated, BoardID: b.ID, NoteID: id})
	return nil
}

// ToggleNote flips a note's expanded flag and returns the new value.
func (d *Document) ToggleNote(id NoteID) (bool, error) {
	b, i, ok := d.FindNote(id)
	if !ok {
		return false, noteNotFound(id)
	}
	n := b.Notes[i]
	n.Expanded = !n.Expanded
	d.emit(Change{Kind: NoteUpdated, BoardID: b.ID, NoteID: id})
	return n.Expanded, nil
}

// MoveNote removes a note from its board and inserts it into target at
// index, clamped to [0, len]. When source and target are the same board the
// index refers to the sequence after the note was taken out.
func (d *Document) MoveNote(id NoteID, target BoardID, index int) error {
	src, i, ok := d.FindNote(id)
	if !ok {
		return noteNotFound(id)
	}
	dst, ok := d.Board(target)
	if !ok {
		return boardNotFound(target)
	}

	n := src.Notes[i]
	src.Notes = slices.Delete(src.Notes, i, i+1)

	index = max(0, min(index, len(dst.Notes)))
	dst.Notes = slices.Insert(dst.Notes, index, n)

	d.emit(Change{Kind: NoteMoved, BoardID: target, NoteID: id})
	return nil
}
