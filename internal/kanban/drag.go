package kanban

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionBusy is returned by PointerDown while a drag is in progress.
	ErrSessionBusy = errors.New("drag session already active")
	// ErrNotDragging is returned by move and drop events outside a drag.
	ErrNotDragging = errors.New("no drag in progress")
)

// DragState is the state of a DragSession.
type DragState int

const (
	Idle DragState = iota
	Dragging
)

func (s DragState) String() string {
	if s == Dragging {
		return "dragging"
	}
	return "idle"
}

// Outcome is the result of a finished drag.
type Outcome struct {
	Committed bool    `json:"committed"`
	NoteID    NoteID  `json:"note_id"`
	BoardID   BoardID `json:"board_id"`
	Index     int     `json:"index"`
}

// DragSession turns one pointer gesture into at most one MoveNote. The
// zero value is an idle session. The session is owned by whatever started
// the gesture and carries the dragged note itself.
type DragSession struct {
	state         DragState
	noteID        NoteID
	sourceBoard   BoardID
	originalIndex int
}

// State reports the current state.
func (s *DragSession) State() DragState { return s.state }

// Note returns the dragged note's id, or "" when idle.
func (s *DragSession) Note() NoteID { return s.noteID }

// Source returns the board and position the dragged note started from.
func (s *DragSession) Source() (BoardID, int) { return s.sourceBoard, s.originalIndex }

// PointerDown starts dragging a note. The note stays in place until drop.
func (s *DragSession) PointerDown(d *Document, id NoteID) error {
	if s.state == Dragging {
		return ErrSessionBusy
	}
	b, i, ok := d.FindNote(id)
	if !ok {
		return noteNotFound(id)
	}
	*s = DragSession{state: Dragging, noteID: id, sourceBoard: b.ID, originalIndex: i}
	return nil
}

// PointerMove returns the candidate insertion index for hovering over board
// at y. It is advisory and never mutates the document.
func (s *DragSession) PointerMove(board BoardID, y float64, l Layout) (int, error) {
	if s.state != Dragging {
		return 0, ErrNotDragging
	}
	return s.index(board, y, l), nil
}

// Drop ends the gesture over board at y. An empty or unknown board cancels
// the drag. Otherwise the note is moved and the session returns to Idle
// whether or not the move succeeded.
func (s *DragSession) Drop(d *Document, board BoardID, y float64, l Layout) (Outcome, error) {
	if s.state != Dragging {
		return Outcome{}, ErrNotDragging
	}
	if _, ok := d.Board(board); !ok {
		return s.Cancel(), nil
	}
	idx := s.index(board, y, l)
	note := s.noteID
	*s = DragSession{}
	if err := d.MoveNote(note, board, idx); err != nil {
		return Outcome{NoteID: note}, fmt.Errorf("drop: %w", err)
	}
	return Outcome{Committed: true, NoteID: note, BoardID: board, Index: idx}, nil
}

// Cancel abandons the gesture. The note stays where it started.
func (s *DragSession) Cancel() Outcome {
	out := Outcome{NoteID: s.noteID, BoardID: s.sourceBoard, Index: s.originalIndex}
	*s = DragSession{}
	return out
}

func (s *DragSession) index(board BoardID, y float64, l Layout) int {
	var centers []float64
	if l != nil {
		for _, c := range l.Centers(board) {
			if c.NoteID == s.noteID {
				continue
			}
			centers = append(centers, c.Y)
		}
	}
	return InsertionIndex(centers, y)
}
