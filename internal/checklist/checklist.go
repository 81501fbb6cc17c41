// Package checklist implements the ordering policy for list items:
// incomplete items always come before completed ones.
//
// Every function returns a new slice and leaves its input untouched.
// Operations that cannot apply (unknown id, empty text, bad index) return an
// unchanged copy rather than an error.
package checklist

import (
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/starford/dock/internal/models"
	"github.com/starford/dock/internal/parser"
)

// NewItem builds an incomplete item with a fresh id.
func NewItem(text string, now time.Time) models.ListItem {
	return models.ListItem{
		ID:        uuid.NewString(),
		Text:      text,
		Completed: false,
		CreatedAt: now.UnixMilli(),
	}
}

// Normalize stably moves completed items behind incomplete ones.
func Normalize(items []models.ListItem) []models.ListItem {
	incomplete, completed := split(items)
	return append(incomplete, completed...)
}

// Add prepends a new incomplete item. Blank text is ignored.
func Add(items []models.ListItem, text string, now time.Time) []models.ListItem {
	text = strings.TrimSpace(text)
	if text == "" {
		return slices.Clone(items)
	}
	incomplete, completed := split(items)
	out := make([]models.ListItem, 0, len(items)+1)
	out = append(out, NewItem(text, now))
	out = append(out, incomplete...)
	return append(out, completed...)
}

// Toggle flips the item with id. A newly completed item goes to the back of
// the completed partition; a reopened item goes to the front of the
// incomplete partition.
func Toggle(items []models.ListItem, id string) []models.ListItem {
	idx := indexOf(items, id)
	if idx < 0 {
		return slices.Clone(items)
	}
	item := items[idx]
	item.Completed = !item.Completed

	rest := slices.Delete(slices.Clone(items), idx, idx+1)
	incomplete, completed := split(rest)

	out := make([]models.ListItem, 0, len(items))
	if item.Completed {
		out = append(out, incomplete...)
		out = append(out, completed...)
		return append(out, item)
	}
	out = append(out, item)
	out = append(out, incomplete...)
	return append(out, completed...)
}

// Edit replaces the text of the item with id in place. Blank text is ignored.
func Edit(items []models.ListItem, id, text string) []models.ListItem {
	out := slices.Clone(items)
	text = strings.TrimSpace(text)
	if text == "" {
		return out
	}
	if idx := indexOf(out, id); idx >= 0 {
		out[idx].Text = text
	}
	return out
}

// Delete removes the item with id.
func Delete(items []models.ListItem, id string) []models.ListItem {
	out := slices.Clone(items)
	if idx := indexOf(out, id); idx >= 0 {
		out = slices.Delete(out, idx, idx+1)
	}
	return out
}

// Reorder moves the item at from to position to. Both indices must address
// the incomplete partition; anything else leaves the order unchanged.
func Reorder(items []models.ListItem, from, to int) []models.ListItem {
	incomplete, completed := split(items)
	n := len(incomplete)
	if from < 0 || to < 0 || from >= n || to >= n || from == to {
		return append(incomplete, completed...)
	}
	moved := incomplete[from]
	incomplete = slices.Delete(incomplete, from, from+1)
	incomplete = slices.Insert(incomplete, to, moved)
	return append(incomplete, completed...)
}

// FromTexts builds incomplete items for texts, skipping blanks.
func FromTexts(texts []string, now time.Time) []models.ListItem {
	out := make([]models.ListItem, 0, len(texts))
	for _, t := range texts {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, NewItem(t, now))
		}
	}
	return out
}

// FromMarkdown seeds items from "- [ ]" and "- [x]" lines in content.
func FromMarkdown(content string, now time.Time) []models.ListItem {
	lines := parser.ParseChecklist(content)
	out := make([]models.ListItem, 0, len(lines))
	for _, l := range lines {
		it := NewItem(l.Text, now)
		it.Completed = l.Completed
		out = append(out, it)
	}
	return Normalize(out)
}

// Find returns the item with id.
func Find(items []models.ListItem, id string) (models.ListItem, bool) {
	if idx := indexOf(items, id); idx >= 0 {
		return items[idx], true
	}
	return models.ListItem{}, false
}

func split(items []models.ListItem) (incomplete, completed []models.ListItem) {
	incomplete = make([]models.ListItem, 0, len(items))
	completed = make([]models.ListItem, 0, len(items))
	for _, it := range items {
		if it.Completed {
			completed = append(completed, it)
		} else {
			incomplete = append(incomplete, it)
		}
	}
	return incomplete, completed
}

func indexOf(items []models.ListItem, id string) int {
	return slices.IndexFunc(items, func(it models.ListItem) bool { return it.ID == id })
}
