package docs

import (
	"slices"
	"strings"

	"github.com/starford/dock/internal/models"
)

// Sort returns docs ordered newest first by UpdatedAt (falling back to
// CreatedAt). Dated docs precede undated ones; undated docs are ordered by
// title. The sort is stable.
func Sort(docs []models.Doc) []models.Doc {
	out := slices.Clone(docs)
	slices.SortStableFunc(out, compareDocs)
	return out
}

func compareDocs(a, b models.Doc) int {
	da, db := a.Date(), b.Date()
	switch {
	case da != nil && db != nil:
		return db.Compare(*da)
	case da != nil:
		return -1
	case db != nil:
		return 1
	default:
		return strings.Compare(a.Title, b.Title)
	}
}

// SortLists orders lists newest first by UpdatedAt, then CreatedAt. Stable.
func SortLists(lists []models.ListEntity) []models.ListEntity {
	out := slices.Clone(lists)
	slices.SortStableFunc(out, func(a, b models.ListEntity) int {
		ta, tb := a.UpdatedAt, b.UpdatedAt
		if ta == nil {
			ta = a.CreatedAt
		}
		if tb == nil {
			tb = b.CreatedAt
		}
		switch {
		case ta != nil && tb != nil:
			return tb.Compare(*ta)
		case ta != nil:
			return -1
		case tb != nil:
			return 1
		}
		return strings.Compare(a.Title, b.Title)
	})
	return out
}

// Reserved names documents that are hidden from the notes bucket.
// Titles match case-insensitively; paths match exactly.
type Reserved struct {
	Titles []string
	Paths  []string
}

// DefaultReservedTitles are placeholder documents kept out of the notes bucket.
var DefaultReservedTitles = []string{"Brief Archive", "The Dock Docs"}

func (r Reserved) contains(d models.Doc) bool {
	for _, t := range r.Titles {
		if strings.EqualFold(t, d.Title) {
			return true
		}
	}
	return slices.Contains(r.Paths, d.Path)
}

// Groups partitions documents by type.
type Groups struct {
	Notes   []models.Doc `json:"notes"`
	Journal []models.Doc `json:"journal"`
	Briefs  []models.Doc `json:"briefs"`
}

// Group splits docs into notes, journal entries and briefs in a single pass,
// keeping input order. Reserved documents are left out of Notes only.
func Group(docs []models.Doc, reserved Reserved) Groups {
	g := Groups{Notes: []models.Doc{}, Journal: []models.Doc{}, Briefs: []models.Doc{}}
	for _, d := range docs {
		switch d.Type {
		case models.TypeJournal:
			g.Journal = append(g.Journal, d)
		case models.TypeBrief:
			g.Briefs = append(g.Briefs, d)
		default:
			if !reserved.contains(d) {
				g.Notes = append(g.Notes, d)
			}
		}
	}
	return g
}
