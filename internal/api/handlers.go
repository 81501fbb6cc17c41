package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/dock/internal/auth"
	"github.com/starford/dock/internal/dock"
	"github.com/starford/dock/internal/models"
	"github.com/starford/dock/internal/sse"
	"github.com/starford/dock/internal/store"
)

// Handler holds API route handlers.
type Handler struct {
	svc *dock.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *dock.Service) *Handler {
	return &Handler{svc: svc}
}

func userID(r *http.Request) string {
	id, _ := auth.UserID(r.Context())
	return id
}

func listFilter(r *http.Request) models.Filter {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	f := models.Filter{
		Type:   models.ItemType(q.Get("type")),
		Status: models.StatusActive,
		Source: q.Get("source"),
		Limit:  min(max(limit, 0), store.MaxLimit),
		Offset: max(offset, 0),
	}
	if q.Has("status") {
		f.Status = models.Status(q.Get("status"))
	}
	return f
}

// ListItems handles GET /api/items.
//
//	@Summary		List records, most recently updated first
//	@Tags			items
//	@Produce		json
//	@Param			type	query		string	false	"Record type"	Enums(note, journal, brief, list)
//	@Param			status	query		string	false	"Status (default active)"	Enums(active, archived, deleted)
//	@Param			limit	query		int		false	"Page size (max 200)"
//	@Param			offset	query		int		false	"Page offset"
//	@Success		200		{object}	ItemsResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/items [get]
func (h *Handler) ListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.List(r.Context(), userID(r), listFilter(r))
	if err != nil {
		writeError(w, r, "list items", err)
		return
	}
	writeJSON(w, http.StatusOK, ItemsResponse{Items: items})
}

// CreateItem handles POST /api/items.
//
//	@Summary		Create a record
//	@Tags			items
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateItemRequest	true	"Record to create"
//	@Success		201		{object}	IDResponse
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/items [post]
func (h *Handler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req CreateItemRequest
	if !decodeBody(w, r, &req) {
		return
	}
	id, err := h.svc.Create(r.Context(), userID(r), req.record())
	if err != nil {
		writeError(w, r, "create item", err)
		return
	}
	writeJSON(w, http.StatusCreated, IDResponse{ID: id})
}

// GetItem handles GET /api/items/{id}.
//
//	@Summary		Get one record
//	@Tags			items
//	@Produce		json
//	@Param			id	path		string	true	"Record id"
//	@Success		200	{object}	models.Record
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/items/{id} [get]
func (h *Handler) GetItem(w http.ResponseWriter, r *http.Request) {
	rec, err := h.svc.Get(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, "get item", err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// UpdateItem handles PATCH /api/items/{id}.
//
//	@Summary		Partially update a record
//	@Tags			items
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Record id"
//	@Param			body	body		UpdateItemRequest	true	"Fields to change"
//	@Success		200		{object}	OKResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/items/{id} [patch]
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var req UpdateItemRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Type != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("type cannot be changed"))
		return
	}
	if err := h.svc.Update(r.Context(), userID(r), chi.URLParam(r, "id"), req.patch()); err != nil {
		writeError(w, r, "update item", err)
		return
	}
	writeJSON(w, http.StatusOK, OKResponse{OK: true})
}

// DeleteItem handles DELETE /api/items/{id}.
//
//	@Summary		Soft-delete a record
//	@Tags			items
//	@Produce		json
//	@Param			id	path		string	true	"Record id"
//	@Success		200	{object}	OKResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/items/{id} [delete]
func (h *Handler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.SoftDelete(r.Context(), userID(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, "delete item", err)
		return
	}
	writeJSON(w, http.StatusOK, OKResponse{OK: true})
}

// NewJournal handles POST /api/journal.
//
//	@Summary		Create today's journal draft
//	@Tags			drafts
//	@Produce		json
//	@Success		201	{object}	models.Record
//	@Security		BearerAuth
//	@Router			/journal [post]
func (h *Handler) NewJournal(w http.ResponseWriter, r *http.Request) {
	rec, err := h.svc.NewJournal(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, "new journal", err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// NewNote handles POST /api/notes/draft.
//
//	@Summary		Create an empty note draft
//	@Tags			drafts
//	@Produce		json
//	@Success		201	{object}	models.Record
//	@Security		BearerAuth
//	@Router			/notes/draft [post]
func (h *Handler) NewNote(w http.ResponseWriter, r *http.Request) {
	rec, err := h.svc.NewNote(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, "new note", err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// DiscardDraft handles DELETE /api/drafts/{id}.
//
//	@Summary		Discard an unpublished draft
//	@Tags			drafts
//	@Produce		json
//	@Param			id	path		string	true	"Record id"
//	@Success		200	{object}	OKResponse
//	@Failure		404	{object}	errResponse
//	@Failure		409	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/drafts/{id} [delete]
func (h *Handler) DiscardDraft(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DiscardDraft(r.Context(), userID(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, "discard draft", err)
		return
	}
	writeJSON(w, http.StatusOK, OKResponse{OK: true})
}

// AddEntry handles POST /api/items/{id}/entries.
//
//	@Summary		Add an entry to the top of a list
//	@Tags			entries
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"List id"
//	@Param			body	body		EntryRequest	true	"Entry text"
//	@Success		200		{object}	models.ListEntity
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/items/{id}/entries [post]
func (h *Handler) AddEntry(w http.ResponseWriter, r *http.Request) {
	var req EntryRequest
	if !decodeBody(w, r, &req) {
		return
	}
	list, err := h.svc.AddItem(r.Context(), userID(r), chi.URLParam(r, "id"), req.Text)
	if err != nil {
		writeError(w, r, "add entry", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// ToggleEntry handles POST /api/items/{id}/entries/{entryID}/toggle.
//
//	@Summary		Toggle completion of a list entry
//	@Tags			entries
//	@Produce		json
//	@Param			id		path		string	true	"List id"
//	@Param			entryID	path		string	true	"Entry id"
//	@Success		200		{object}	models.ListEntity
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/items/{id}/entries/{entryID}/toggle [post]
func (h *Handler) ToggleEntry(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ToggleItem(r.Context(), userID(r), chi.URLParam(r, "id"), chi.URLParam(r, "entryID"))
	if err != nil {
		writeError(w, r, "toggle entry", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// EditEntry handles PATCH /api/items/{id}/entries/{entryID}.
//
//	@Summary		Edit the text of a list entry
//	@Tags			entries
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"List id"
//	@Param			entryID	path		string			true	"Entry id"
//	@Param			body	body		EntryRequest	true	"New text"
//	@Success		200		{object}	models.ListEntity
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/items/{id}/entries/{entryID} [patch]
func (h *Handler) EditEntry(w http.ResponseWriter, r *http.Request) {
	var req EntryRequest
	if !decodeBody(w, r, &req) {
		return
	}
	list, err := h.svc.EditItem(r.Context(), userID(r), chi.URLParam(r, "id"), chi.URLParam(r, "entryID"), req.Text)
	if err != nil {
		writeError(w, r, "edit entry", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// DeleteEntry handles DELETE /api/items/{id}/entries/{entryID}.
//
//	@Summary		Remove a list entry
//	@Tags			entries
//	@Produce		json
//	@Param			id		path		string	true	"List id"
//	@Param			entryID	path		string	true	"Entry id"
//	@Success		200		{object}	models.ListEntity
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/items/{id}/entries/{entryID} [delete]
func (h *Handler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.DeleteItem(r.Context(), userID(r), chi.URLParam(r, "id"), chi.URLParam(r, "entryID"))
	if err != nil {
		writeError(w, r, "delete entry", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// ReorderEntries handles POST /api/items/{id}/entries/reorder.
//
//	@Summary		Move an incomplete entry
//	@Tags			entries
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"List id"
//	@Param			body	body		ReorderRequest	true	"Positions within the incomplete entries"
//	@Success		200		{object}	models.ListEntity
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/items/{id}/entries/reorder [post]
func (h *Handler) ReorderEntries(w http.ResponseWriter, r *http.Request) {
	var req ReorderRequest
	if !decodeBody(w, r, &req) {
		return
	}
	list, err := h.svc.ReorderItems(r.Context(), userID(r), chi.URLParam(r, "id"), req.From, req.To)
	if err != nil {
		writeError(w, r, "reorder entries", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// Workspace handles GET /api/workspace.
//
//	@Summary		Grouped and filtered documents and lists
//	@Tags			views
//	@Produce		json
//	@Param			q	query		string	false	"Case-insensitive search query"
//	@Success		200	{object}	dock.Workspace
//	@Security		BearerAuth
//	@Router			/workspace [get]
func (h *Handler) Workspace(w http.ResponseWriter, r *http.Request) {
	ws, err := h.svc.Workspace(r.Context(), userID(r), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, r, "workspace", err)
		return
	}
	writeJSON(w, http.StatusOK, ws)
}

// Insight handles GET /api/items/{id}/insight.
//
//	@Summary		Outline, stats, backlinks, related documents and brief comparison
//	@Tags			views
//	@Produce		json
//	@Param			id	path		string	true	"Record id"
//	@Success		200	{object}	dock.Insight
//	@Failure		400	{object}	errResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/items/{id}/insight [get]
func (h *Handler) Insight(w http.ResponseWriter, r *http.Request) {
	in, err := h.svc.Insight(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, "insight", err)
		return
	}
	writeJSON(w, http.StatusOK, in)
}

// Events handles GET /api/events, a stream of "snapshot" events each
// carrying the full current listing.
//
//	@Summary		Stream record snapshots (Server-Sent Events)
//	@Tags			items
//	@Produce		text/event-stream
//	@Param			type	query	string	false	"Record type"
//	@Param			status	query	string	false	"Status (default active)"
//	@Security		BearerAuth
//	@Router			/events [get]
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	snapshots, err := h.svc.Subscribe(r.Context(), userID(r), listFilter(r))
	if err != nil {
		writeError(w, r, "subscribe", err)
		return
	}
	items := make(chan ItemsResponse)
	go func() {
		defer close(items)
		for snap := range snapshots {
			select {
			case items <- ItemsResponse{Items: snap}:
			case <-r.Context().Done():
				return
			}
		}
	}()
	if err := sse.Serve(w, r, "snapshot", items, sse.DefaultHeartbeat); err != nil {
		slog.Debug("event stream ended", slog.String("error", err.Error()))
	}
}
