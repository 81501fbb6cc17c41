// Package models defines the domain types for The Dock.
package models

import "time"

// ItemType classifies a stored record.
type ItemType string

// Record types.
const (
	TypeNote    ItemType = "note"
	TypeJournal ItemType = "journal"
	TypeBrief   ItemType = "brief"
	TypeList    ItemType = "list"
)

// ItemTypes lists every valid record type.
var ItemTypes = []ItemType{TypeNote, TypeJournal, TypeBrief, TypeList}

// Status is the lifecycle state of a record.
type Status string

// Record statuses. StatusDeleted is terminal.
const (
	StatusActive   Status = "active"
	StatusArchived Status = "archived"
	StatusDeleted  Status = "deleted"
)

// Statuses lists every valid status.
var Statuses = []Status{StatusActive, StatusArchived, StatusDeleted}

// Record sources.
const (
	SourceStore = "store"
	SourceVault = "vault"
)

// Record is the stored form of a note, journal entry, brief or list.
// Body and ContentJSON are used by document types; Items only by lists.
type Record struct {
	ID          string         `json:"id"`
	UserID      string         `json:"-"`
	Type        ItemType       `json:"type"`
	Title       string         `json:"title"`
	Body        string         `json:"body"`
	ContentJSON map[string]any `json:"contentJson,omitempty"`
	Items       []ListItem     `json:"items,omitempty"`
	Tags        []string       `json:"tags"`
	Status      Status         `json:"status"`
	IsDraft     bool           `json:"isDraft,omitempty"`
	Source      string         `json:"source"`
	Meta        map[string]any `json:"meta,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// Filter narrows a List call. Zero values mean "any".
type Filter struct {
	Type   ItemType
	Status Status
	Source string
	Limit  int
	Offset int
}

// Matches reports whether r satisfies the type, status and source constraints of f.
func (f Filter) Matches(r *Record) bool {
	if f.Type != "" && r.Type != f.Type {
		return false
	}
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if f.Source != "" && r.Source != f.Source {
		return false
	}
	return true
}

// Patch is a partial update. Nil fields are left untouched.
// The record type is immutable and therefore absent.
type Patch struct {
	Title       *string
	Body        *string
	ContentJSON *map[string]any
	Items       *[]ListItem
	Tags        *[]string
	Status      *Status
	IsDraft     *bool
	Meta        *map[string]any
}

// Apply merges p into r in place. Timestamps are the store's business.
func (p Patch) Apply(r *Record) {
	if p.Title != nil {
		r.Title = *p.Title
	}
	if p.Body != nil {
		r.Body = *p.Body
	}
	if p.ContentJSON != nil {
		r.ContentJSON = *p.ContentJSON
	}
	if p.Items != nil {
		r.Items = *p.Items
	}
	if p.Tags != nil {
		r.Tags = *p.Tags
	}
	if p.Status != nil {
		r.Status = *p.Status
	}
	if p.IsDraft != nil {
		r.IsDraft = *p.IsDraft
	}
	if p.Meta != nil {
		r.Meta = *p.Meta
	}
}

// ListItem is a single checklist entry.
type ListItem struct {
	ID        string `json:"id" bson:"id"`
	Text      string `json:"text" bson:"text"`
	Completed bool   `json:"completed" bson:"completed"`
	// CreatedAt is a unix millisecond timestamp.
	CreatedAt int64 `json:"createdAt" bson:"created_at"`
}
