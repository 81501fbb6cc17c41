package api

import (
	"strings"

	"github.com/starford/dock/internal/models"
)

// CreateItemRequest is the request body for creating a record.
// Content is accepted as an alias of Body.
type CreateItemRequest struct {
	ID          string            `json:"id,omitempty" example:"groceries"`
	Type        models.ItemType   `json:"type" example:"note" validate:"required"`
	Title       string            `json:"title" example:"Hello"`
	Body        string            `json:"body" example:"# Hello\nWorld"`
	Content     string            `json:"content,omitempty"`
	ContentJSON map[string]any    `json:"contentJson,omitempty"`
	Items       []models.ListItem `json:"items,omitempty"`
	Tags        []string          `json:"tags"`
	Status      models.Status     `json:"status,omitempty" example:"active"`
	IsDraft     bool              `json:"isDraft,omitempty"`
	Meta        map[string]any    `json:"meta,omitempty"`
}

func (req CreateItemRequest) record() *models.Record {
	body := req.Body
	if body == "" {
		body = req.Content
	}
	return &models.Record{
		ID:          req.ID,
		Type:        req.Type,
		Title:       req.Title,
		Body:        body,
		ContentJSON: req.ContentJSON,
		Items:       req.Items,
		Tags:        compactTags(req.Tags),
		Status:      req.Status,
		IsDraft:     req.IsDraft,
		Meta:        req.Meta,
	}
}

// UpdateItemRequest is the request body for a partial update. Absent fields
// are left untouched. Type is rejected: record types are immutable.
type UpdateItemRequest struct {
	Type        *string            `json:"type,omitempty" swaggerignore:"true"`
	Title       *string            `json:"title,omitempty"`
	Body        *string            `json:"body,omitempty"`
	Content     *string            `json:"content,omitempty"`
	ContentJSON *map[string]any    `json:"contentJson,omitempty"`
	Items       *[]models.ListItem `json:"items,omitempty"`
	Tags        *[]string          `json:"tags,omitempty"`
	Status      *models.Status     `json:"status,omitempty"`
	IsDraft     *bool              `json:"isDraft,omitempty"`
	Meta        *map[string]any    `json:"meta,omitempty"`
}

func (req UpdateItemRequest) patch() models.Patch {
	body := req.Body
	if body == nil {
		body = req.Content
	}
	p := models.Patch{
		Title:       req.Title,
		Body:        body,
		ContentJSON: req.ContentJSON,
		Items:       req.Items,
		Status:      req.Status,
		IsDraft:     req.IsDraft,
		Meta:        req.Meta,
	}
	if req.Tags != nil {
		tags := compactTags(*req.Tags)
		p.Tags = &tags
	}
	return p
}

// compactTags drops blank tags.
func compactTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// EntryRequest is the request body for adding or editing a list entry.
type EntryRequest struct {
	Text string `json:"text" example:"milk" validate:"required"`
}

// ReorderRequest moves an incomplete entry between positions.
type ReorderRequest struct {
	From int `json:"from" example:"2"`
	To   int `json:"to" example:"0"`
}

// IDResponse carries the id of a created record.
type IDResponse struct {
	ID string `json:"id" example:"2b7e1516-28ae-4d2a-a6d2-abf7158809cf" validate:"required"`
}

// OKResponse acknowledges a mutation.
type OKResponse struct {
	OK bool `json:"ok" example:"true" validate:"required"`
}

// ItemsResponse wraps a record listing.
type ItemsResponse struct {
	Items []models.Record `json:"items" validate:"required"`
}
