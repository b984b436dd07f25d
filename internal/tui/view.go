package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/starford/kanboard/internal/kanban"
)

// Screen geometry. Cards have fixed heights so hit tests and drop
// positions can be computed without measuring rendered output.
const (
	headerRows      = 2 // document title, blank
	boardHeaderRows = 2 // board title, rule
	cardsTop        = headerRows + boardHeaderRows
	cardWidth       = 26
	columnGap       = 1
	columnWidth     = cardWidth + columnGap
	maxContentLines = 3
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "25", Dark: "212"}).
			Bold(true)

	dirtyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "130", Dark: "214"})

	boardStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "236", Dark: "252"}).
			Bold(true)

	selectedBoardStyle = boardStyle.
				Foreground(lipgloss.AdaptiveColor{Light: "25", Dark: "212"})

	ruleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "243", Dark: "241"})

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.AdaptiveColor{Light: "243", Dark: "241"}).
			Width(cardWidth - 2)

	selectedCardStyle = cardStyle.
				BorderForeground(lipgloss.AdaptiveColor{Light: "25", Dark: "212"})

	draggedCardStyle = cardStyle.
				Border(lipgloss.NormalBorder()).
				BorderForeground(lipgloss.AdaptiveColor{Light: "97", Dark: "141"})

	contentStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "243", Dark: "245"})

	keyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "230", Dark: "230"}).
			Background(lipgloss.AdaptiveColor{Light: "25", Dark: "61"}).
			Bold(true).
			Padding(0, 1)

	descStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "243", Dark: "241"})

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "236", Dark: "252"})

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "160", Dark: "196"}).
			Bold(true)
)

// contentLines returns the lines shown for an expanded note.
func contentLines(n *kanban.Note) []string {
	if !n.Expanded || n.Content == "" {
		return nil
	}
	lines := strings.Split(n.Content, "\n")
	if len(lines) > maxContentLines {
		lines = lines[:maxContentLines]
	}
	return lines
}

// cardHeight is the number of rows a rendered note occupies.
func cardHeight(n *kanban.Note) int {
	return 3 + len(contentLines(n))
}

func (m *Model) layout() kanban.StaticLayout {
	return kanban.Stacked(m.doc, cardsTop, 0, func(n *kanban.Note) float64 {
		return float64(cardHeight(n))
	})
}

// boardAt returns the index of the board column under x, or -1.
func (m *Model) boardAt(x int) int {
	if x < 0 || x%columnWidth >= cardWidth {
		return -1
	}
	i := x / columnWidth
	if i >= len(m.doc.Boards) {
		return -1
	}
	return i
}

// noteAt returns the board and note under the cell (x, y).
func (m *Model) noteAt(x, y int) (int, int, bool) {
	bi := m.boardAt(x)
	if bi < 0 {
		return 0, 0, false
	}
	top := cardsTop
	for i, n := range m.doc.Boards[bi].Notes {
		h := cardHeight(n)
		if y >= top && y < top+h {
			return bi, i, true
		}
		top += h
	}
	return 0, 0, false
}

func truncate(s string, width int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	if width <= 1 {
		return string(r[:width])
	}
	return string(r[:width-1]) + "…"
}

func helpKey(key, desc string) string {
	return keyStyle.Render(key) + " " + descStyle.Render(desc)
}

func (m Model) renderCard(bi, ni int, n *kanban.Note) string {
	inner := cardWidth - 2
	lines := []string{truncate(n.Title, inner)}
	for _, l := range contentLines(n) {
		lines = append(lines, contentStyle.Render(truncate(l, inner)))
	}

	style := cardStyle
	switch {
	case m.drag.State() == kanban.Dragging && m.drag.Note() == n.ID:
		style = draggedCardStyle
	case bi == m.board && ni == m.note:
		style = selectedCardStyle
	}
	return style.Render(strings.Join(lines, "\n"))
}

func (m Model) renderBoard(bi int, b *kanban.Board) string {
	style := boardStyle
	if bi == m.board {
		style = selectedBoardStyle
	}
	title := truncate(fmt.Sprintf("%s (%d)", b.Title, len(b.Notes)), cardWidth)
	parts := []string{
		style.Width(cardWidth).Render(title),
		ruleStyle.Render(strings.Repeat("─", cardWidth)),
	}
	for ni, n := range b.Notes {
		parts = append(parts, m.renderCard(bi, ni, n))
	}
	return lipgloss.NewStyle().Width(columnWidth).Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

func (m Model) View() string {
	if m.doc == nil {
		return "Loading..."
	}

	var b strings.Builder

	title := m.doc.Title
	if title == "" {
		title = m.path
	}
	b.WriteString(titleStyle.Render(title))
	if m.dirty {
		b.WriteString(dirtyStyle.Render(" [modified]"))
	}
	b.WriteString("\n\n")

	columns := make([]string, 0, len(m.doc.Boards))
	for bi, board := range m.doc.Boards {
		columns = append(columns, m.renderBoard(bi, board))
	}
	if len(columns) == 0 {
		b.WriteString(descStyle.Render("No boards. Press b to add one."))
	} else {
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, columns...))
	}
	b.WriteString("\n\n")

	status := m.status
	if m.hover != nil {
		if board, ok := m.doc.Board(m.hover.BoardID); ok {
			status = fmt.Sprintf("Drop into %q at position %d", board.Title, m.hover.Index+1)
		}
	}
	if m.statusErr {
		b.WriteString(errorStyle.Render(status))
	} else {
		b.WriteString(statusStyle.Render(status))
	}
	b.WriteString("\n")

	help := []string{
		helpKey("a", "add note"),
		helpKey("b", "add board"),
		helpKey("x", "remove note"),
		helpKey("X", "remove board"),
		helpKey("i", "move board right"),
		helpKey("e", "expand"),
		helpKey("s", "save"),
		helpKey("q", "quit"),
	}
	b.WriteString(strings.Join(help, "  "))
	return b.String()
}
