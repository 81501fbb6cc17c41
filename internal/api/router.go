package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/starford/dock/internal/auth"
	"github.com/starford/dock/internal/dock"
)

// NewRouter creates a chi router with all API routes mounted behind v.
func NewRouter(svc *dock.Service, v auth.Verifier) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(v))

	// Records.
	r.Get("/items", h.ListItems)
	r.Post("/items", h.CreateItem)
	r.Get("/items/{id}", h.GetItem)
	r.Patch("/items/{id}", h.UpdateItem)
	r.Delete("/items/{id}", h.DeleteItem)

	// Drafts.
	r.Post("/journal", h.NewJournal)
	r.Post("/notes/draft", h.NewNote)
	r.Delete("/drafts/{id}", h.DiscardDraft)

	// List entries.
	r.Post("/items/{id}/entries", h.AddEntry)
	r.Post("/items/{id}/entries/reorder", h.ReorderEntries)
	r.Post("/items/{id}/entries/{entryID}/toggle", h.ToggleEntry)
	r.Patch("/items/{id}/entries/{entryID}", h.EditEntry)
	r.Delete("/items/{id}/entries/{entryID}", h.DeleteEntry)

	// Derived views.
	r.Get("/workspace", h.Workspace)
	r.Get("/items/{id}/insight", h.Insight)

	// Snapshot stream.
	r.Get("/events", h.Events)

	return r
}
