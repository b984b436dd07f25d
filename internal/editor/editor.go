// Package editor confines every open board document to a single goroutine.
// Callers submit work with Do; the editor loads documents on first use,
// rolls back failed work, and serializes saves through storage.
package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/starford/kanboard/internal/apperr"
	"github.com/starford/kanboard/internal/kanban"
	"github.com/starford/kanboard/internal/storage"
)

// Change kinds emitted by the editor itself, next to the ones from kanban.
const (
	DocumentReplaced kanban.ChangeKind = "document.replaced"
	DocumentReloaded kanban.ChangeKind = "document.reloaded"
)

// ErrClosed is returned once the editor loop has stopped.
var ErrClosed = errors.New("editor: closed")

// ChangeFunc receives every change committed to an open document.
type ChangeFunc func(path string, c kanban.Change)

// SavedFunc is called after a document is written; checksum is that of the
// bytes on disk.
type SavedFunc func(path, checksum string)

// Option configures an Editor.
type Option func(*Editor)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(e *Editor) { e.logger = l } }

// WithTemplate sets the defaults used by Create.
func WithTemplate(t kanban.Template) Option { return func(e *Editor) { e.template = t } }

// WithOnChange registers the change callback.
func WithOnChange(fn ChangeFunc) Option { return func(e *Editor) { e.onChange = fn } }

// WithOnSaved registers the save callback.
func WithOnSaved(fn SavedFunc) Option { return func(e *Editor) { e.onSaved = fn } }

type entry struct {
	doc     *kanban.Document
	dirty   bool
	pending []kanban.Change
}

type request struct {
	fn   func() error
	done chan error
}

// Editor owns open documents. All of its state is touched only by the loop
// goroutine started in New.
type Editor struct {
	store    storage.Provider
	logger   *slog.Logger
	template kanban.Template
	onChange ChangeFunc
	onSaved  SavedFunc

	open map[string]*entry

	reqCh   chan request
	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// New starts an editor over store.
func New(store storage.Provider, opts ...Option) *Editor {
	e := &Editor{
		store:    store,
		logger:   slog.Default(),
		template: kanban.DefaultTemplate(),
		open:     make(map[string]*entry),
		reqCh:    make(chan request),
		stopCh:   make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	for _, o := range opts {
		o(e)
	}
	go e.run()
	return e
}

func (e *Editor) run() {
	defer close(e.stopped)
	for {
		select {
		case <-e.stopCh:
			for path, ent := range e.open {
				if ent.dirty {
					e.logger.Warn("editor: discarding unsaved changes", slog.String("path", path))
				}
			}
			return
		case req := <-e.reqCh:
			req.done <- req.fn()
		}
	}
}

// Shutdown stops the loop. Unsaved changes are dropped.
func (e *Editor) Shutdown() {
	if e.closed.CompareAndSwap(false, true) {
		close(e.stopCh)
	}
	<-e.stopped
}

// exec runs fn on the loop goroutine and waits for its result. Once fn has
// been handed to the loop the call waits for it even if ctx ends, so the
// returned error always reflects what happened.
func (e *Editor) exec(ctx context.Context, fn func() error) error {
	if e.closed.Load() {
		return ErrClosed
	}
	req := request{fn: fn, done: make(chan error, 1)}
	select {
	case e.reqCh <- req:
	case <-ctx.Done():
		return ctx.Err()
	case <-e.stopped:
		return ErrClosed
	}
	return <-req.done
}

// load returns the open entry for path, reading it from storage on first use.
func (e *Editor) load(path string) (*entry, error) {
	if ent, ok := e.open[path]; ok {
		return ent, nil
	}
	doc, _, err := storage.LoadDocument(e.store, path)
	if err != nil {
		return nil, err
	}
	ent := &entry{doc: doc}
	e.attach(ent)
	e.open[path] = ent
	e.logger.Debug("editor: opened", slog.String("path", path))
	return ent, nil
}

func (e *Editor) attach(ent *entry) {
	ent.doc.Observe(func(c kanban.Change) {
		ent.pending = append(ent.pending, c)
	})
}

// flush forwards buffered changes after a successful unit of work.
func (e *Editor) flush(path string, ent *entry) {
	if len(ent.pending) == 0 {
		return
	}
	ent.dirty = true
	changes := ent.pending
	ent.pending = nil
	if e.onChange != nil {
		for _, c := range changes {
			e.onChange(path, c)
		}
	}
}

// Do runs fn against the document at path on the editor goroutine. If fn
// returns an error the document is restored to its state before the call
// and no change is reported. fn must not call back into the editor.
func (e *Editor) Do(ctx context.Context, path string, fn func(*kanban.Document) error) error {
	return e.exec(ctx, func() error {
		ent, err := e.load(path)
		if err != nil {
			return err
		}
		backup := ent.doc.Clone()
		if err := fn(ent.doc); err != nil {
			ent.doc = backup
			ent.pending = nil
			e.attach(ent)
			return err
		}
		e.flush(path, ent)
		return nil
	})
}

// Snapshot returns a deep copy of the document at path and its version, the
// checksum of its current serialization.
func (e *Editor) Snapshot(ctx context.Context, path string) (*kanban.Document, string, error) {
	var (
		doc     *kanban.Document
		version string
	)
	err := e.exec(ctx, func() error {
		ent, err := e.load(path)
		if err != nil {
			return err
		}
		version, err = versionOf(ent.doc)
		if err != nil {
			return err
		}
		doc = ent.doc.Clone()
		return nil
	})
	return doc, version, err
}

// State is a consistent view of an open document.
type State struct {
	Doc     *kanban.Document
	Version string
	Dirty   bool
}

// State returns a copy of the document at path together with its version
// and dirty flag, all read in one step.
func (e *Editor) State(ctx context.Context, path string) (State, error) {
	var st State
	err := e.exec(ctx, func() error {
		ent, err := e.load(path)
		if err != nil {
			return err
		}
		if st.Version, err = versionOf(ent.doc); err != nil {
			return err
		}
		st.Doc = ent.doc.Clone()
		st.Dirty = ent.dirty
		return nil
	})
	return st, err
}

// Dirty reports whether the document at path has unsaved changes. A
// document that is not open is never dirty.
func (e *Editor) Dirty(ctx context.Context, path string) (bool, error) {
	var dirty bool
	err := e.exec(ctx, func() error {
		if ent, ok := e.open[path]; ok {
			dirty = ent.dirty
		}
		return nil
	})
	return dirty, err
}

// Replace swaps the whole document at path for doc. A non-empty ifMatch
// must equal the current version, otherwise apperr.ErrConflict is returned.
func (e *Editor) Replace(ctx context.Context, path string, doc *kanban.Document, ifMatch string) (string, error) {
	var version string
	err := e.exec(ctx, func() error {
		ent, err := e.load(path)
		if err != nil {
			return err
		}
		if err := checkVersion(ent.doc, ifMatch); err != nil {
			return err
		}
		ent.doc = doc.Clone()
		ent.pending = append(ent.pending, kanban.Change{Kind: DocumentReplaced})
		e.attach(ent)
		e.flush(path, ent)
		version, err = versionOf(ent.doc)
		return err
	})
	return version, err
}

// Save writes the document at path in the shape it was loaded from. A
// non-empty ifMatch must equal the current version. Write failures are
// *apperr.WriteError and leave the in-memory document untouched.
func (e *Editor) Save(ctx context.Context, path, ifMatch string) (string, error) {
	var sum string
	err := e.exec(ctx, func() error {
		ent, err := e.load(path)
		if err != nil {
			return err
		}
		if err := checkVersion(ent.doc, ifMatch); err != nil {
			return err
		}
		sum, err = storage.SaveDocument(e.store, path, ent.doc)
		if err != nil {
			e.logger.Error("editor: save failed", slog.String("path", path), slog.String("error", err.Error()))
			return err
		}
		ent.dirty = false
		e.logger.Info("editor: saved", slog.String("path", path))
		if e.onSaved != nil {
			e.onSaved(path, sum)
		}
		return nil
	})
	return sum, err
}

// SaveAs writes the document at path to target and reopens it under the
// new name. target must not exist.
func (e *Editor) SaveAs(ctx context.Context, path, target string) (string, error) {
	var sum string
	err := e.exec(ctx, func() error {
		ent, err := e.load(path)
		if err != nil {
			return err
		}
		if err := e.ensureAbsent(target); err != nil {
			return err
		}
		sum, err = storage.SaveDocument(e.store, target, ent.doc)
		if err != nil {
			return err
		}
		delete(e.open, path)
		ent.dirty = false
		e.open[target] = ent
		if e.onSaved != nil {
			e.onSaved(target, sum)
		}
		return nil
	})
	return sum, err
}

// Create writes a new card document built from the editor's template and
// opens it. An existing file yields apperr.ErrAlreadyExists.
func (e *Editor) Create(ctx context.Context, path, title, description string) (string, error) {
	var sum string
	err := e.exec(ctx, func() error {
		if err := e.ensureAbsent(path); err != nil {
			return err
		}
		doc := kanban.NewCard(title, description, e.template)
		var err error
		sum, err = storage.SaveDocument(e.store, path, doc)
		if err != nil {
			return err
		}
		ent := &entry{doc: doc}
		e.attach(ent)
		e.open[path] = ent
		e.logger.Info("editor: created", slog.String("path", path))
		if e.onSaved != nil {
			e.onSaved(path, sum)
		}
		return nil
	})
	return sum, err
}

// Reload discards the in-memory document and reads it again from disk. A
// failed read keeps the current document.
func (e *Editor) Reload(ctx context.Context, path string) error {
	return e.exec(ctx, func() error {
		doc, _, err := storage.LoadDocument(e.store, path)
		if err != nil {
			return err
		}
		ent := &entry{doc: doc}
		e.attach(ent)
		e.open[path] = ent
		if e.onChange != nil {
			e.onChange(path, kanban.Change{Kind: DocumentReloaded})
		}
		return nil
	})
}

// Close forgets the document at path, dropping unsaved changes.
func (e *Editor) Close(ctx context.Context, path string) error {
	return e.exec(ctx, func() error {
		delete(e.open, path)
		return nil
	})
}

// Delete removes the document from disk and closes it.
func (e *Editor) Delete(ctx context.Context, path string) error {
	return e.exec(ctx, func() error {
		if _, err := e.store.Read(path); err != nil {
			return fmt.Errorf("editor: %s: %w", path, apperr.ErrNotFound)
		}
		if err := e.store.Delete(path); err != nil {
			return &apperr.WriteError{Path: path, Err: err}
		}
		delete(e.open, path)
		return nil
	})
}

func (e *Editor) ensureAbsent(path string) error {
	if _, ok := e.open[path]; ok {
		return fmt.Errorf("editor: %s: %w", path, apperr.ErrAlreadyExists)
	}
	if _, err := e.store.Read(path); err == nil {
		return fmt.Errorf("editor: %s: %w", path, apperr.ErrAlreadyExists)
	}
	return nil
}

func versionOf(d *kanban.Document) (string, error) {
	data, err := kanban.Marshal(d)
	if err != nil {
		return "", err
	}
	return storage.Checksum(data), nil
}

func checkVersion(d *kanban.Document, ifMatch string) error {
	if ifMatch == "" {
		return nil
	}
	v, err := versionOf(d)
	if err != nil {
		return err
	}
	if v != ifMatch {
		return apperr.ErrConflict
	}
	return nil
}
