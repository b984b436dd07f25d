package kanban

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/kanboard/internal/apperr"
)

func titles(b *Board) []string {
	out := make([]string, len(b.Notes))
	for i, n := range b.Notes {
		out[i] = n.Title
	}
	return out
}

func boardTitles(d *Document) []string {
	out := make([]string, len(d.Boards))
	for i, b := range d.Boards {
		out[i] = b.Title
	}
	return out
}

func boardWith(t *testing.T, d *Document, names ...string) (BoardID, []NoteID) {
	t.Helper()
	id := d.AddBoard("col", nil)
	ids := make([]NoteID, len(names))
	for i, name := range names {
		nid, err := d.AddNote(id, name, "")
		require.NoError(t, err)
		ids[i] = nid
	}
	return id, ids
}

func TestNewHasDefaultBoards(t *testing.T) {
	d := New(DefaultTemplate())
	assert.Equal(t, []string{"To do", "Doing", "Done"}, boardTitles(d))
	for _, b := range d.Boards {
		assert.NotEmpty(t, b.ID)
		assert.Equal(t, "font-weight: bold; background-color: #ccffcc; color:#000000", b.Style["title"])
	}

	// Each board owns its own style map.
	d.Boards[0].Style["frame"] = "changed"
	assert.NotEqual(t, "changed", d.Boards[1].Style["frame"])
}

func TestAddAndRemoveBoard(t *testing.T) {
	d := &Document{}
	a := d.AddBoard("A", Style{"k": "v"})
	b := d.AddBoard("B", nil)
	assert.Equal(t, []string{"A", "B"}, boardTitles(d))

	require.NoError(t, d.RemoveBoard(a))
	assert.Equal(t, []string{"B"}, boardTitles(d))

	err := d.RemoveBoard(a)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Equal(t, 0, d.BoardIndex(b))
}

func TestRemoveBoardCascadesNotes(t *testing.T) {
	d := &Document{}
	id, notes := boardWith(t, d, "x", "y")
	other, _ := boardWith(t, d, "z")

	require.NoError(t, d.RemoveBoard(id))
	for _, n := range notes {
		_, _, ok := d.FindNote(n)
		assert.False(t, ok, "note %s should be unreachable", n)
		assert.ErrorIs(t, d.MoveNote(n, other, 0), apperr.ErrNotFound)
	}
	assert.Equal(t, 1, d.NoteCount())
}

func TestInterchangeRight(t *testing.T) {
	d := &Document{}
	a := d.AddBoard("A", nil)
	d.AddBoard("B", nil)
	c := d.AddBoard("C", nil)

	require.NoError(t, d.InterchangeRight(a))
	assert.Equal(t, []string{"B", "A", "C"}, boardTitles(d))

	require.NoError(t, d.InterchangeRight(c))
	assert.Equal(t, []string{"C", "B", "A"}, boardTitles(d))

	assert.ErrorIs(t, d.InterchangeRight("missing"), apperr.ErrNotFound)
}

func TestInterchangeRightIsCyclic(t *testing.T) {
	for n := 1; n <= 6; n++ {
		d := &Document{}
		var ids []BoardID
		for i := 0; i < n; i++ {
			ids = append(ids, d.AddBoard(string(rune('A'+i)), nil))
		}
		want := boardTitles(d)
		for _, start := range ids {
			for i := 0; i < n; i++ {
				require.NoError(t, d.InterchangeRight(start))
			}
			assert.Equal(t, want, boardTitles(d), "n=%d", n)
		}
	}
}

func TestInterchangeRightTwoBoardsSwaps(t *testing.T) {
	d := &Document{}
	d.AddBoard("A", nil)
	b := d.AddBoard("B", nil)
	require.NoError(t, d.InterchangeRight(b))
	assert.Equal(t, []string{"B", "A"}, boardTitles(d))
}

func TestAddNoteUnknownBoard(t *testing.T) {
	d := New(DefaultTemplate())
	_, err := d.AddNote("nope", "t", "c")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Equal(t, 0, d.NoteCount())
}

func TestRemoveNote(t *testing.T) {
	d := &Document{}
	id, notes := boardWith(t, d, "a", "b", "c")
	require.NoError(t, d.RemoveNote(notes[1]))

	b, _ := d.Board(id)
	assert.Equal(t, []string{"a", "c"}, titles(b))
	assert.ErrorIs(t, d.RemoveNote(notes[1]), apperr.ErrNotFound)
}

func TestMoveNoteWithinBoardDownward(t *testing.T) {
	d := &Document{}
	id, notes := boardWith(t, d, "a", "b", "c", "d")
	b, _ := d.Board(id)

	// Index 2 refers to [b c d] once "a" has been taken out.
	require.NoError(t, d.MoveNote(notes[0], id, 2))
	assert.Equal(t, []string{"b", "c", "a", "d"}, titles(b))
}

func TestMoveNoteClampsIndex(t *testing.T) {
	d := &Document{}
	id, notes := boardWith(t, d, "a", "b", "c")
	b, _ := d.Board(id)

	require.NoError(t, d.MoveNote(notes[0], id, 99))
	assert.Equal(t, []string{"b", "c", "a"}, titles(b))

	require.NoError(t, d.MoveNote(notes[0], id, -5))
	assert.Equal(t, []string{"a", "b", "c"}, titles(b))
}

func TestMoveNoteIsPermutation(t *testing.T) {
	names := []string{"a", "b", "c", "d", "e"}
	for i := range names {
		for j := 0; j <= len(names); j++ {
			d := &Document{}
			id, notes := boardWith(t, d, names...)
			b, _ := d.Board(id)

			require.NoError(t, d.MoveNote(notes[i], id, j))
			got := titles(b)
			require.Len(t, got, len(names))
			assert.ElementsMatch(t, names, got)

			// Everyone except the moved note keeps relative order.
			var rest []string
			for _, s := range got {
				if s != names[i] {
					rest = append(rest, s)
				}
			}
			var want []string
			for k, s := range names {
				if k != i {
					want = append(want, s)
				}
			}
			assert.Equal(t, want, rest, "move %d -> %d", i, j)
			assert.Equal(t, names[i], got[min(j, len(names)-1)])
		}
	}
}

func TestMoveNoteAcrossBoards(t *testing.T) {
	d := &Document{}
	from, notes := boardWith(t, d, "a", "b")
	to, _ := boardWith(t, d, "x", "y")

	require.NoError(t, d.MoveNote(notes[0], to, 1))
	fb, _ := d.Board(from)
	tb, _ := d.Board(to)
	assert.Equal(t, []string{"b"}, titles(fb))
	assert.Equal(t, []string{"x", "a", "y"}, titles(tb))
}

func TestMoveNoteUnknownTargetLeavesNoteInPlace(t *testing.T) {
	d := &Document{}
	from, notes := boardWith(t, d, "a")
	err := d.MoveNote(notes[0], "gone", 0)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	b, i, ok := d.FindNote(notes[0])
	require.True(t, ok)
	assert.Equal(t, from, b.ID)
	assert.Equal(t, 0, i)
}

func TestNoteIdentityDisambiguatesDuplicates(t *testing.T) {
	d := &Document{}
	from, notes := boardWith(t, d, "same", "same")
	to := d.AddBoard("to", nil)
	require.NoError(t, d.MoveNote(notes[1], to, 0))

	fb, _ := d.Board(from)
	require.Len(t, fb.Notes, 1)
	assert.Equal(t, notes[0], fb.Notes[0].ID)
}

func TestEditAndToggleNote(t *testing.T) {
	d := &Document{}
	_, notes := boardWith(t, d, "a")

	require.NoError(t, d.EditNote(notes[0], "title", "body"))
	b, i, _ := d.FindNote(notes[0])
	assert.Equal(t, "title", b.Notes[i].Title)
	assert.Equal(t, "body", b.Notes[i].Content)

	expanded, err := d.ToggleNote(notes[0])
	require.NoError(t, err)
	assert.True(t, expanded)

	_, err = d.ToggleNote("nope")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestObserverSeesEveryMutation(t *testing.T) {
	d := &Document{}
	var got []ChangeKind
	d.Observe(func(c Change) { got = append(got, c.Kind) })

	b := d.AddBoard("A", nil)
	d.AddBoard("B", nil)
	n, _ := d.AddNote(b, "n", "")
	_ = d.MoveNote(n, b, 0)
	_ = d.RenameBoard(b, "A2")
	_ = d.InterchangeRight(b)
	_ = d.RemoveNote(n)
	_ = d.RemoveBoard(b)
	_ = d.RemoveBoard(b) // not found, no change

	assert.Equal(t, []ChangeKind{
		BoardAdded, BoardAdded, NoteAdded, NoteMoved, BoardUpdated, BoardMoved, NoteRemoved, BoardRemoved,
	}, got)
}

func TestCloneIsDeep(t *testing.T) {
	d := New(DefaultTemplate())
	n, _ := d.AddNote(d.Boards[0].ID, "a", "b")
	cp := d.Clone()

	require.NoError(t, d.EditNote(n, "changed", ""))
	d.Boards[0].Style["frame"] = "changed"
	require.NoError(t, d.RemoveBoard(d.Boards[2].ID))

	b, i, ok := cp.FindNote(n)
	require.True(t, ok)
	assert.Equal(t, "a", b.Notes[i].Title)
	assert.NotEqual(t, "changed", cp.Boards[0].Style["frame"])
	assert.Len(t, cp.Boards, 3)
}
