// Package relations computes cross-document views for an active document:
// backlinks, tag-overlap related documents, brief comparisons and snippets.
package relations

import (
	"slices"
	"strings"

	"github.com/starford/dock/internal/models"
)

// DefaultRelatedLimit caps the related-documents ranking.
const DefaultRelatedLimit = 5

// Backlinks returns every other document whose content mentions the title of
// active exactly as written, ignoring case. An empty title has no backlinks.
func Backlinks(docs []models.Doc, active models.Doc) []models.Doc {
	needle := strings.ToLower(active.Title)
	out := []models.Doc{}
	if needle == "" {
		return out
	}
	for _, d := range docs {
		if d.Path == active.Path {
			continue
		}
		if strings.Contains(strings.ToLower(d.Content), needle) {
			out = append(out, d)
		}
	}
	return out
}

// Related is a document sharing tags with the active one.
// Overlap holds the shared tags as spelled by Doc.
type Related struct {
	Doc     models.Doc `json:"doc"`
	Overlap []string   `json:"overlap"`
}

// RelatedDocs ranks the other documents by the number of tags they share with
// active. Documents without shared tags are dropped, ties keep input order,
// and at most limit results are returned (DefaultRelatedLimit when limit <= 0).
func RelatedDocs(docs []models.Doc, active models.Doc, limit int) []Related {
	if limit <= 0 {
		limit = DefaultRelatedLimit
	}
	out := []Related{}
	if len(active.Tags) == 0 {
		return out
	}
	wanted := make(map[string]struct{}, len(active.Tags))
	for _, t := range active.Tags {
		wanted[strings.ToLower(t)] = struct{}{}
	}

	for _, d := range docs {
		if d.Path == active.Path {
			continue
		}
		var overlap []string
		for _, t := range d.Tags {
			if _, ok := wanted[strings.ToLower(t)]; ok {
				overlap = append(overlap, t)
			}
		}
		if len(overlap) > 0 {
			out = append(out, Related{Doc: d, Overlap: overlap})
		}
	}

	slices.SortStableFunc(out, func(a, b Related) int {
		return len(b.Overlap) - len(a.Overlap)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
