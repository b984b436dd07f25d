package kanban

// NoteCenter is the rendered vertical center of a note.
type NoteCenter struct {
	NoteID NoteID  `json:"note_id"`
	Y      float64 `json:"y"`
}

// Layout reports where a renderer placed the notes of a board, top to
// bottom.
type Layout interface {
	Centers(board BoardID) []NoteCenter
}

// StaticLayout is a Layout backed by a precomputed map.
type StaticLayout map[BoardID][]NoteCenter

// Centers implements Layout.
func (l StaticLayout) Centers(board BoardID) []NoteCenter {
	return l[board]
}

// Stacked lays the notes of every board out as a vertical stack starting at
// top, with gap between consecutive notes. height reports each note's
// rendered height.
func Stacked(d *Document, top, gap float64, height func(*Note) float64) StaticLayout {
	out := make(StaticLayout, len(d.Boards))
	for _, b := range d.Boards {
		y := top
		centers := make([]NoteCenter, 0, len(b.Notes))
		for _, n := range b.Notes {
			h := height(n)
			centers = append(centers, NoteCenter{NoteID: n.ID, Y: y + h/2})
			y += h + gap
		}
		out[b.ID] = centers
	}
	return out
}

// InsertionIndex returns the index of the first center lying below y, or
// len(centers) when there is none. Dropping above a note's midline inserts
// before it.
func InsertionIndex(centers []float64, y float64) int {
	for i, c := range centers {
		if c > y {
			return i
		}
	}
	return len(centers)
}
