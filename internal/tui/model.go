// Package tui is a terminal board for a single document. Notes are dragged
// between boards with the mouse; everything else is on the keyboard.
package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/starford/kanboard/internal/editor"
	"github.com/starford/kanboard/internal/kanban"
)

// Model is the bubbletea model. Every mutation goes through the editor;
// the model only keeps the latest snapshot for rendering and hit tests.
type Model struct {
	ctx      context.Context
	editor   *editor.Editor
	path     string
	template kanban.Template

	doc   *kanban.Document
	dirty bool

	board int
	note  int

	drag  kanban.DragSession
	hover *kanban.Outcome

	width       int
	height      int
	status      string
	statusErr   bool
	confirmQuit bool
}

// New loads the document at path from ed.
func New(ctx context.Context, ed *editor.Editor, path string, t kanban.Template) (Model, error) {
	m := Model{ctx: ctx, editor: ed, path: path, template: t, status: "Ready"}
	if err := m.refresh(); err != nil {
		return Model{}, err
	}
	return m, nil
}

// Run shows the board until the user quits.
func Run(ctx context.Context, ed *editor.Editor, path string, t kanban.Template) error {
	m, err := New(ctx, ed, path, t)
	if err != nil {
		return err
	}
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	_, err = p.Run()
	return err
}

func (m *Model) refresh() error {
	st, err := m.editor.State(m.ctx, m.path)
	if err != nil {
		return err
	}
	m.doc, m.dirty = st.Doc, st.Dirty
	m.clampCursors()
	return nil
}

func (m *Model) clampCursors() {
	n := len(m.doc.Boards)
	if m.board >= n {
		m.board = n - 1
	}
	if m.board < 0 {
		m.board = 0
	}
	notes := 0
	if b := m.currentBoard(); b != nil {
		notes = len(b.Notes)
	}
	if m.note >= notes {
		m.note = notes - 1
	}
	if m.note < 0 {
		m.note = 0
	}
}

func (m *Model) currentBoard() *kanban.Board {
	if m.doc == nil || m.board >= len(m.doc.Boards) {
		return nil
	}
	return m.doc.Boards[m.board]
}

func (m *Model) currentNote() *kanban.Note {
	b := m.currentBoard()
	if b == nil || m.note >= len(b.Notes) {
		return nil
	}
	return b.Notes[m.note]
}

func (m *Model) setStatus(msg string) {
	m.status, m.statusErr = msg, false
}

func (m *Model) fail(err error) {
	m.status, m.statusErr = err.Error(), true
}

// apply runs fn through the editor and reloads the snapshot.
func (m *Model) apply(done string, fn func(*kanban.Document) error) {
	if err := m.editor.Do(m.ctx, m.path, fn); err != nil {
		m.fail(err)
		return
	}
	if err := m.refresh(); err != nil {
		m.fail(err)
		return
	}
	m.setStatus(done)
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tea.KeyMsg:
		return m.handleKeys(msg)
	case tea.MouseMsg:
		m.handleMouse(msg)
		return m, nil
	default:
		return m, nil
	}
}

func (m Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key != "q" {
		m.confirmQuit = false
	}

	switch key {
	case "ctrl+c":
		return m, tea.Quit
	case "q":
		if m.dirty && !m.confirmQuit {
			m.confirmQuit = true
			m.status, m.statusErr = "Unsaved changes: press q again to quit, s to save", true
			return m, nil
		}
		return m, tea.Quit
	case "esc":
		if m.drag.State() == kanban.Dragging {
			m.drag.Cancel()
			m.hover = nil
			m.setStatus("Drag cancelled")
		}
	case "left", "h":
		m.board--
		m.clampCursors()
	case "right", "l":
		m.board++
		m.clampCursors()
	case "up", "k":
		m.note--
		m.clampCursors()
	case "down", "j":
		m.note++
		m.clampCursors()
	case "a":
		m.addNote()
	case "b":
		m.apply("Board added", func(d *kanban.Document) error {
			d.AddBoard(m.template.BoardTitle, m.template.BoardStyle)
			return nil
		})
		m.board = len(m.doc.Boards) - 1
		m.clampCursors()
	case "x":
		m.removeNote()
	case "X":
		m.removeBoard()
	case "i":
		m.interchange()
	case "e":
		m.toggle()
	case "s":
		m.save()
	}
	return m, nil
}

func (m *Model) addNote() {
	b := m.currentBoard()
	if b == nil {
		m.status, m.statusErr = "Add a board first", true
		return
	}
	id := b.ID
	m.apply("Note added", func(d *kanban.Document) error {
		_, err := d.AddNote(id, m.template.NoteTitle, m.template.NoteContent)
		return err
	})
	if b := m.currentBoard(); b != nil {
		m.note = len(b.Notes) - 1
	}
	m.clampCursors()
}

func (m *Model) removeNote() {
	n := m.currentNote()
	if n == nil {
		m.status, m.statusErr = "No note selected", true
		return
	}
	id := n.ID
	m.apply("Note removed", func(d *kanban.Document) error { return d.RemoveNote(id) })
}

func (m *Model) removeBoard() {
	b := m.currentBoard()
	if b == nil {
		m.status, m.statusErr = "No board selected", true
		return
	}
	id := b.ID
	m.apply(fmt.Sprintf("Board %q removed", b.Title), func(d *kanban.Document) error { return d.RemoveBoard(id) })
}

func (m *Model) interchange() {
	b := m.currentBoard()
	if b == nil {
		return
	}
	id := b.ID
	m.apply("Board moved", func(d *kanban.Document) error { return d.InterchangeRight(id) })
	if i := m.doc.BoardIndex(id); i >= 0 {
		m.board = i
	}
	m.clampCursors()
}

func (m *Model) toggle() {
	n := m.currentNote()
	if n == nil {
		return
	}
	id := n.ID
	m.apply("Note toggled", func(d *kanban.Document) error {
		_, err := d.ToggleNote(id)
		return err
	})
}

func (m *Model) save() {
	if _, err := m.editor.Save(m.ctx, m.path, ""); err != nil {
		m.fail(fmt.Errorf("save failed: %w", err))
		return
	}
	if err := m.refresh(); err != nil {
		m.fail(err)
		return
	}
	m.confirmQuit = false
	m.setStatus("Saved " + m.path)
}

func (m *Model) handleMouse(msg tea.MouseMsg) {
	y := float64(msg.Y)

	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button != tea.MouseButtonLeft {
			return
		}
		bi, ni, ok := m.noteAt(msg.X, msg.Y)
		if !ok {
			return
		}
		m.board, m.note = bi, ni
		n := m.doc.Boards[bi].Notes[ni]
		if err := m.drag.PointerDown(m.doc, n.ID); err != nil {
			m.fail(err)
			return
		}
		m.hover = &kanban.Outcome{NoteID: n.ID, BoardID: m.doc.Boards[bi].ID, Index: ni}
		m.setStatus(fmt.Sprintf("Dragging %q", n.Title))

	case tea.MouseActionMotion:
		if m.drag.State() != kanban.Dragging {
			return
		}
		bi := m.boardAt(msg.X)
		if bi < 0 {
			m.hover = nil
			return
		}
		board := m.doc.Boards[bi].ID
		idx, err := m.drag.PointerMove(board, y, m.layout())
		if err != nil {
			m.fail(err)
			return
		}
		m.hover = &kanban.Outcome{NoteID: m.drag.Note(), BoardID: board, Index: idx}

	case tea.MouseActionRelease:
		if m.drag.State() != kanban.Dragging {
			return
		}
		m.hover = nil
		var board kanban.BoardID
		if bi := m.boardAt(msg.X); bi >= 0 {
			board = m.doc.Boards[bi].ID
		}
		layout := m.layout()
		var out kanban.Outcome
		err := m.editor.Do(m.ctx, m.path, func(d *kanban.Document) error {
			var err error
			out, err = m.drag.Drop(d, board, y, layout)
			return err
		})
		if err != nil {
			m.drag.Cancel()
			m.fail(err)
			return
		}
		if err := m.refresh(); err != nil {
			m.fail(err)
			return
		}
		if !out.Committed {
			m.setStatus("Drop cancelled")
			return
		}
		m.board = m.doc.BoardIndex(out.BoardID)
		m.note = out.Index
		m.clampCursors()
		m.setStatus("Note moved")
	}
}
