package docs

import (
	"math"
	"strings"

	"github.com/starford/dock/internal/models"
	"github.com/starford/dock/internal/parser"
)

// Filter keeps the docs whose title, slug label or content contains query,
// ignoring case. A blank query returns docs itself.
func Filter(docs []models.Doc, query string) []models.Doc {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return docs
	}
	out := make([]models.Doc, 0, len(docs))
	for _, d := range docs {
		haystack := strings.ToLower(d.Title + " " + d.Slug + " " + d.Content)
		if strings.Contains(haystack, q) {
			out = append(out, d)
		}
	}
	return out
}

// FilterLists keeps the lists whose title or item texts contain query,
// ignoring case. A blank query returns lists itself.
func FilterLists(lists []models.ListEntity, query string) []models.ListEntity {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return lists
	}
	out := make([]models.ListEntity, 0, len(lists))
	for _, l := range lists {
		var b strings.Builder
		b.WriteString(l.Title)
		for _, it := range l.Items {
			b.WriteByte(' ')
			b.WriteString(it.Text)
		}
		if strings.Contains(strings.ToLower(b.String()), q) {
			out = append(out, l)
		}
	}
	return out
}

// WordsPerMinute is the reading speed used by Stats.
const WordsPerMinute = 200

// DocStats summarizes the length of a document.
type DocStats struct {
	Words          int `json:"words"`
	ReadingMinutes int `json:"readingMinutes"`
}

// Stats counts whitespace-separated words in content, front matter
// excluded. Reading time is rounded and never below one minute.
func Stats(content string) DocStats {
	words := len(strings.Fields(parser.ParseFrontMatter(content).Content))
	minutes := int(math.Round(float64(words) / WordsPerMinute))
	return DocStats{Words: words, ReadingMinutes: max(1, minutes)}
}

// ListStats counts the entries of a checklist.
type ListStats struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
}

// CountItems returns totals for items.
func CountItems(items []models.ListItem) ListStats {
	s := ListStats{Total: len(items)}
	for _, it := range items {
		if it.Completed {
			s.Completed++
		}
	}
	return s
}
