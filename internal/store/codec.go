package store

import (
	"encoding/json"
	"fmt"

	"github.com/starford/dock/internal/models"
)

// Columns holds the JSON-encoded record fields kept in text or jsonb
// columns by the SQL backends.
type Columns struct {
	ContentJSON string
	Items       string
	Tags        string
	Meta        string
}

// EncodeColumns serializes the structured fields of rec.
func EncodeColumns(rec *models.Record) (Columns, error) {
	var c Columns
	var err error
	if len(rec.ContentJSON) > 0 {
		if c.ContentJSON, err = encode(rec.ContentJSON); err != nil {
			return c, fmt.Errorf("encode content_json: %w", err)
		}
	}
	items := rec.Items
	if items == nil {
		items = []models.ListItem{}
	}
	if c.Items, err = encode(items); err != nil {
		return c, fmt.Errorf("encode items: %w", err)
	}
	tags := rec.Tags
	if tags == nil {
		tags = []string{}
	}
	if c.Tags, err = encode(tags); err != nil {
		return c, fmt.Errorf("encode tags: %w", err)
	}
	meta := rec.Meta
	if meta == nil {
		meta = map[string]any{}
	}
	if c.Meta, err = encode(meta); err != nil {
		return c, fmt.Errorf("encode meta: %w", err)
	}
	return c, nil
}

// DecodeColumns fills the structured fields of rec from c.
func DecodeColumns(c Columns, rec *models.Record) error {
	if c.ContentJSON != "" {
		if err := json.Unmarshal([]byte(c.ContentJSON), &rec.ContentJSON); err != nil {
			return fmt.Errorf("decode content_json: %w", err)
		}
	}
	if err := decode(c.Items, &rec.Items); err != nil {
		return fmt.Errorf("decode items: %w", err)
	}
	if err := decode(c.Tags, &rec.Tags); err != nil {
		return fmt.Errorf("decode tags: %w", err)
	}
	if err := decode(c.Meta, &rec.Meta); err != nil {
		return fmt.Errorf("decode meta: %w", err)
	}
	if rec.Tags == nil {
		rec.Tags = []string{}
	}
	if len(rec.Items) == 0 {
		rec.Items = nil
	}
	if len(rec.Meta) == 0 {
		rec.Meta = nil
	}
	return nil
}

func encode(v any) (string, error) {
	b, err := json.Marshal(v)
	return string(b), err
}

func decode(s string, v any) error {
	if s == "" {
		return nil
	}
	return json.Unmarshal([]byte(s), v)
}
