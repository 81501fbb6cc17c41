package models

import "time"

// OutlineEntry references a level 2 or 3 heading in a rendered document.
type OutlineEntry struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
	ID    string `json:"id"`
}

// Doc is the canonical, render-ready view of a note, journal entry or brief.
// HTML, Outline and Tags are derived from the record and never stored.
type Doc struct {
	ID          string         `json:"id"`
	Path        string         `json:"path"`
	Slug        string         `json:"slug"`
	Title       string         `json:"title"`
	Type        ItemType       `json:"type"`
	Content     string         `json:"content"`
	ContentJSON map[string]any `json:"contentJson,omitempty"`
	HTML        string         `json:"html"`
	Outline     []OutlineEntry `json:"outline"`
	Tags        []string       `json:"tags"`
	FrontMatter map[string]any `json:"frontMatter,omitempty"`
	Meta        map[string]any `json:"meta,omitempty"`
	IsDraft     bool           `json:"isDraft"`
	CreatedAt   *time.Time     `json:"createdAt"`
	UpdatedAt   *time.Time     `json:"updatedAt"`
}

// Date returns UpdatedAt, falling back to CreatedAt.
func (d *Doc) Date() *time.Time {
	if d.UpdatedAt != nil {
		return d.UpdatedAt
	}
	return d.CreatedAt
}

// ListEntity is a checklist. Incomplete items always precede completed ones.
type ListEntity struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Items     []ListItem `json:"items"`
	Tags      []string   `json:"tags"`
	CreatedAt *time.Time `json:"createdAt"`
	UpdatedAt *time.Time `json:"updatedAt"`
}
