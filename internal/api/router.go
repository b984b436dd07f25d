package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/kanboard/internal/editor"
	"github.com/starford/kanboard/internal/index"
	"github.com/starford/kanboard/internal/kanban"
)

// Deps holds what the router serves.
type Deps struct {
	Editor  *editor.Editor
	Catalog index.Catalog
	// Matches reports whether a path may hold a board document.
	Matches  func(path string) bool
	Template kanban.Template

	AuthEnabled bool
	Token       string

	// Events, if non-nil, is mounted at GET /events inside the auth group.
	Events http.Handler
	// Live, if non-nil, is mounted at GET /live inside the auth group.
	Live http.Handler
}

// NewRouter creates a chi router with all API routes mounted.
func NewRouter(d Deps) chi.Router {
	h := NewHandler(d)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(d.AuthEnabled, d.Token))

	r.Get("/documents", h.ListDocuments)
	r.Post("/documents", h.CreateDocument)

	r.Route("/documents/{doc}", func(r chi.Router) {
		r.Get("/", h.GetDocument)
		r.Put("/", h.ReplaceDocument)
		r.Delete("/", h.DeleteDocument)
		r.Post("/save", h.SaveDocument)
		r.Post("/reload", h.ReloadDocument)

		r.Post("/boards", h.AddBoard)
		r.Patch("/boards/{board}", h.UpdateBoard)
		r.Delete("/boards/{board}", h.RemoveBoard)
		r.Post("/boards/{board}/interchange", h.InterchangeBoard)
		r.Post("/boards/{board}/notes", h.AddNote)

		r.Patch("/notes/{note}", h.UpdateNote)
		r.Delete("/notes/{note}", h.RemoveNote)
		r.Post("/notes/{note}/move", h.MoveNote)

		r.Post("/drop", h.Drop)
	})

	r.Get("/search", h.Search)

	if d.Events != nil {
		r.Get("/events", d.Events.ServeHTTP)
	}
	if d.Live != nil {
		r.Get("/live", d.Live.ServeHTTP)
	}
	return r
}
