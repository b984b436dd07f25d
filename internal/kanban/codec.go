package kanban

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/starford/kanboard/internal/apperr"
)

// Marshal encodes d in the persisted format: two-space indented JSON with a
// trailing newline. Board and note order, styles and unknown members read
// from the file are written back unchanged. Ids are not persisted.
//
// A document read from the legacy bare-array format is written back in
// that format unless it has since gained a title, description or extra
// top-level members.
func Marshal(d *Document) ([]byte, error) {
	var compact bytes.Buffer
	var err error
	if d.Format == FormatLegacy && d.Title == "" && d.Description == "" && d.extra.len() == 0 {
		err = writeBoards(&compact, d.Boards)
	} else {
		w := newObjectWriter(&compact)
		w.value("title", d.Title)
		w.value("description", d.Description)
		w.encoded("boards", func(buf *bytes.Buffer) error { return writeBoards(buf, d.Boards) })
		w.extra(d.extra)
		err = w.close()
	}
	if err != nil {
		return nil, fmt.Errorf("kanban: marshal: %w", err)
	}

	var out bytes.Buffer
	if err := json.Indent(&out, compact.Bytes(), "", "  "); err != nil {
		return nil, fmt.Errorf("kanban: indent: %w", err)
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}

func writeBoards(buf *bytes.Buffer, boards []*Board) error {
	buf.WriteByte('[')
	for i, b := range boards {
		if i > 0 {
			buf.WriteByte(',')
		}
		w := newObjectWriter(buf)
		w.value("title", b.Title)
		w.encoded("notes", func(buf *bytes.Buffer) error { return writeNotes(buf, b.Notes) })
		w.encoded("style", func(buf *bytes.Buffer) error { return writeStyle(buf, b) })
		w.extra(b.extra)
		if err := w.close(); err != nil {
			return fmt.Errorf("board %q: %w", b.Title, err)
		}
	}
	buf.WriteByte(']')
	return nil
}

func writeNotes(buf *bytes.Buffer, notes []*Note) error {
	buf.WriteByte('[')
	for i, n := range notes {
		if i > 0 {
			buf.WriteByte(',')
		}
		w := newObjectWriter(buf)
		w.value("title", n.Title)
		w.value("content", n.Content)
		if n.Expanded {
			w.value("expanded", true)
		}
		w.extra(n.extra)
		if err := w.close(); err != nil {
			return err
		}
	}
	buf.WriteByte(']')
	return nil
}

// writeStyle writes style members in the order they were read. Members
// added since then follow in key order.
func writeStyle(buf *bytes.Buffer, b *Board) error {
	if len(b.Style) == 0 && len(b.styleRaw) == 0 && b.rawStyle != nil {
		buf.Write(b.rawStyle)
		return nil
	}
	keys := make([]string, 0, len(b.Style)+len(b.styleRaw))
	seen := make(map[string]bool, cap(keys))
	for _, k := range b.styleOrder {
		_, str := b.Style[k]
		_, raw := b.styleRaw[k]
		if (str || raw) && !seen[k] {
			keys = append(keys, k)
			seen[k] = true
		}
	}
	var added []string
	for k := range b.Style {
		if !seen[k] {
			added = append(added, k)
		}
	}
	for k := range b.styleRaw {
		if !seen[k] {
			added = append(added, k)
		}
	}
	slices.Sort(added)
	keys = append(keys, added...)

	w := newObjectWriter(buf)
	for _, k := range keys {
		if v, ok := b.Style[k]; ok {
			w.value(k, v)
			continue
		}
		w.raw(k, b.styleRaw[k])
	}
	return w.close()
}

// objectWriter emits a compact JSON object member by member, keeping the
// order in which members are written.
type objectWriter struct {
	buf *bytes.Buffer
	n   int
	err error
}

func newObjectWriter(buf *bytes.Buffer) *objectWriter {
	buf.WriteByte('{')
	return &objectWriter{buf: buf}
}

func (w *objectWriter) key(k string) {
	if w.n > 0 {
		w.buf.WriteByte(',')
	}
	w.n++
	raw, _ := encode(k)
	w.buf.Write(raw)
	w.buf.WriteByte(':')
}

func (w *objectWriter) value(k string, v any) {
	if w.err != nil {
		return
	}
	raw, err := encode(v)
	if err != nil {
		w.err = err
		return
	}
	w.key(k)
	w.buf.Write(raw)
}

func (w *objectWriter) encoded(k string, fn func(*bytes.Buffer) error) {
	if w.err != nil {
		return
	}
	w.key(k)
	w.err = fn(w.buf)
}

func (w *objectWriter) raw(k string, v json.RawMessage) {
	if w.err != nil {
		return
	}
	w.key(k)
	w.buf.Write(v)
}

// extra writes the members of o in the order they were read.
func (w *objectWriter) extra(o *rawObject) {
	if o == nil {
		return
	}
	for _, k := range o.keys {
		w.raw(k, o.vals[k])
	}
}

func (w *objectWriter) close() error {
	w.buf.WriteByte('}')
	return w.err
}

func encode(v any) ([]byte, error) {
	var b bytes.Buffer
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(b.Bytes(), "\n"), nil
}

// Unmarshal decodes a persisted document. Missing titles, descriptions,
// notes and styles default to empty values. A bare array root is read as
// the legacy format. Syntax errors and any other root yield a
// *apperr.LoadError. Every board and note receives a fresh id; an "id"
// member in the input is ignored.
func Unmarshal(data []byte) (*Document, error) {
	d, err := decodeDocument(data)
	if err != nil {
		return nil, &apperr.LoadError{Err: err}
	}
	return d, nil
}

func decodeDocument(data []byte) (*Document, error) {
	var root json.RawMessage
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, err
	}
	root = bytes.TrimSpace(root)

	switch root[0] {
	case '[':
		boards, err := decodeBoards(root)
		if err != nil {
			return nil, err
		}
		return &Document{Boards: boards, Format: FormatLegacy}, nil
	case '{':
		members, err := object(root)
		if err != nil {
			return nil, err
		}
		d := &Document{Format: FormatDocument}
		if d.Title, err = takeString(members, "title"); err != nil {
			return nil, err
		}
		if d.Description, err = takeString(members, "description"); err != nil {
			return nil, err
		}
		if raw, ok := take(members, "boards"); ok {
			if d.Boards, err = decodeBoards(raw); err != nil {
				return nil, err
			}
		}
		d.extra = nonEmpty(members)
		return d, nil
	default:
		return nil, fmt.Errorf("top-level value must be an object or an array, got %s", kindOf(root))
	}
}

func decodeBoards(raw json.RawMessage) ([]*Board, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("boards: expected an array, got %s", kindOf(raw))
	}
	boards := make([]*Board, 0, len(items))
	for i, item := range items {
		b, err := decodeBoard(item)
		if err != nil {
			return nil, fmt.Errorf("boards[%d]: %w", i, err)
		}
		boards = append(boards, b)
	}
	return boards, nil
}

func decodeBoard(raw json.RawMessage) (*Board, error) {
	members, err := object(raw)
	if err != nil {
		return nil, err
	}
	b := &Board{ID: newBoardID()}
	members.delete("id")
	if b.Title, err = takeString(members, "title"); err != nil {
		return nil, err
	}
	if notesRaw, ok := take(members, "notes"); ok {
		var items []json.RawMessage
		if err := json.Unmarshal(notesRaw, &items); err != nil {
			return nil, fmt.Errorf("notes: expected an array, got %s", kindOf(notesRaw))
		}
		for i, item := range items {
			n, err := decodeNote(item)
			if err != nil {
				return nil, fmt.Errorf("notes[%d]: %w", i, err)
			}
			b.Notes = append(b.Notes, n)
		}
	}
	if styleRaw, ok := take(members, "style"); ok {
		decodeStyle(b, styleRaw)
	}
	b.extra = nonEmpty(members)
	return b, nil
}

func decodeStyle(b *Board, raw json.RawMessage) {
	members, err := object(raw)
	if err != nil {
		b.rawStyle = raw
		return
	}
	b.styleOrder = members.keys
	for _, k := range members.keys {
		v := members.vals[k]
		var s string
		if err := json.Unmarshal(v, &s); err == nil && !isNull(v) {
			if b.Style == nil {
				b.Style = Style{}
			}
			b.Style[k] = s
			continue
		}
		if b.styleRaw == nil {
			b.styleRaw = map[string]json.RawMessage{}
		}
		b.styleRaw[k] = v
	}
}

func decodeNote(raw json.RawMessage) (*Note, error) {
	members, err := object(raw)
	if err != nil {
		return nil, err
	}
	n := &Note{ID: newNoteID()}
	members.delete("id")
	if n.Title, err = takeString(members, "title"); err != nil {
		return nil, err
	}
	if n.Content, err = takeString(members, "content"); err != nil {
		return nil, err
	}
	if v, ok := take(members, "expanded"); ok {
		if err := json.Unmarshal(v, &n.Expanded); err != nil {
			return nil, fmt.Errorf("expanded: expected a boolean, got %s", kindOf(v))
		}
	}
	n.extra = nonEmpty(members)
	return n, nil
}

// rawObject holds the members of a JSON object in the order they appeared.
type rawObject struct {
	keys []string
	vals map[string]json.RawMessage
}

func (o *rawObject) len() int {
	if o == nil {
		return 0
	}
	return len(o.keys)
}

// set stores v under k. A repeated key keeps its first position and the
// last value, as encoding/json does for maps.
func (o *rawObject) set(k string, v json.RawMessage) {
	if _, ok := o.vals[k]; !ok {
		o.keys = append(o.keys, k)
	}
	o.vals[k] = v
}

func (o *rawObject) delete(k string) {
	if o == nil {
		return
	}
	if _, ok := o.vals[k]; !ok {
		return
	}
	delete(o.vals, k)
	o.keys = slices.DeleteFunc(o.keys, func(s string) bool { return s == k })
}

func (o *rawObject) clone() *rawObject {
	if o == nil {
		return nil
	}
	return &rawObject{keys: slices.Clone(o.keys), vals: cloneRaw(o.vals)}
}

// object decodes a JSON object, keeping member order.
func object(raw json.RawMessage) (*rawObject, error) {
	notObject := fmt.Errorf("expected an object, got %s", kindOf(raw))
	dec := json.NewDecoder(bytes.NewReader(raw))
	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return nil, notObject
	}
	o := &rawObject{vals: map[string]json.RawMessage{}}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, notObject
		}
		var v json.RawMessage
		if err := dec.Decode(&v); err != nil {
			return nil, err
		}
		o.set(key, v)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return o, nil
}

// take removes key from o and reports whether it held a non-null value.
func take(o *rawObject, key string) (json.RawMessage, bool) {
	raw, ok := o.vals[key]
	o.delete(key)
	if !ok || isNull(raw) {
		return nil, false
	}
	return raw, true
}

func takeString(o *rawObject, key string) (string, error) {
	raw, ok := take(o, key)
	if !ok {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("%s: expected a string, got %s", key, kindOf(raw))
	}
	return s, nil
}

func nonEmpty(o *rawObject) *rawObject {
	if o.len() == 0 {
		return nil
	}
	return o
}

// DropMembers forgets the named top-level members that were read from the
// input without being part of the document model.
func (d *Document) DropMembers(keys ...string) {
	for _, k := range keys {
		d.extra.delete(k)
	}
	d.extra = nonEmpty(d.extra)
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func kindOf(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "nothing"
	}
	switch raw[0] {
	case '{':
		return "an object"
	case '[':
		return "an array"
	case '"':
		return "a string"
	case 't', 'f':
		return "a boolean"
	case 'n':
		return "null"
	default:
		return "a number"
	}
}
