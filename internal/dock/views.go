package dock

import (
	"context"
	"fmt"

	"github.com/starford/dock/internal/apperr"
	"github.com/starford/dock/internal/docs"
	"github.com/starford/dock/internal/models"
	"github.com/starford/dock/internal/relations"
	"github.com/starford/dock/internal/store"
)

// Workspace is the navigation view: grouped documents and lists, filtered by a query.
type Workspace struct {
	docs.Groups
	Lists   []models.ListEntity `json:"lists"`
	Query   string              `json:"query,omitempty"`
	Total   int                 `json:"total"`
	Matched int                 `json:"matched"`
}

// Backlink is a document mentioning the active one, with the surrounding text.
type Backlink struct {
	Doc     models.Doc `json:"doc"`
	Snippet string     `json:"snippet"`
}

// Insight is everything derived for one active document.
type Insight struct {
	Doc       models.Doc                 `json:"doc"`
	Outline   []models.OutlineEntry      `json:"outline"`
	Stats     docs.DocStats              `json:"stats"`
	Backlinks []Backlink                 `json:"backlinks"`
	Related   []relations.Related        `json:"related"`
	Brief     *relations.BriefComparison `json:"brief"`
}

// Workspace builds the grouped, sorted and filtered view of the user's active records.
func (s *Service) Workspace(ctx context.Context, userID, query string) (*Workspace, error) {
	recs, err := s.snapshot(ctx, userID)
	if err != nil {
		return nil, err
	}
	all := docs.Sort(s.builder.BuildAll(recs))
	matched := docs.Filter(all, query)
	lists := docs.FilterLists(docs.SortLists(docs.BuildLists(recs)), query)

	return &Workspace{
		Groups:  docs.Group(matched, s.views.Reserved),
		Lists:   lists,
		Query:   query,
		Total:   len(all),
		Matched: len(matched),
	}, nil
}

// Insight derives outline, stats, backlinks, related documents and the brief
// comparison for the document id.
func (s *Service) Insight(ctx context.Context, userID, id string) (*Insight, error) {
	rec, err := s.store.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if rec.Status == models.StatusDeleted {
		return nil, apperr.ErrNotFound
	}
	if rec.Type == models.TypeList {
		return nil, apperr.Invalidf("dock: %s is a list", id)
	}

	recs, err := s.snapshot(ctx, userID)
	if err != nil {
		return nil, err
	}
	corpus := docs.Sort(s.builder.BuildAll(recs))
	active := s.builder.Build(*rec)

	linked := relations.Backlinks(corpus, active)
	backlinks := make([]Backlink, 0, len(linked))
	for _, d := range linked {
		backlinks = append(backlinks, Backlink{
			Doc:     d,
			Snippet: relations.BuildSnippet(d.Content, active.Title, relations.DefaultSnippetLen),
		})
	}

	return &Insight{
		Doc:       active,
		Outline:   active.Outline,
		Stats:     docs.Stats(active.Content),
		Backlinks: backlinks,
		Related:   relations.RelatedDocs(corpus, active, s.views.RelatedLimit),
		Brief:     relations.CompareBriefs(corpus, active, s.views.MarketLabels),
	}, nil
}

// Docs returns the sorted documents of the user's active records.
func (s *Service) Docs(ctx context.Context, userID string) ([]models.Doc, error) {
	recs, err := s.snapshot(ctx, userID)
	if err != nil {
		return nil, err
	}
	return docs.Sort(s.builder.BuildAll(recs)), nil
}

// Doc returns the document view of one record.
func (s *Service) Doc(ctx context.Context, userID, id string) (*models.Doc, error) {
	rec, err := s.store.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if rec.Type == models.TypeList || rec.Status == models.StatusDeleted {
		return nil, apperr.ErrNotFound
	}
	d := s.builder.Build(*rec)
	return &d, nil
}

// snapshot pages through every active record of the user.
func (s *Service) snapshot(ctx context.Context, userID string) ([]models.Record, error) {
	recs, err := store.ListAll(ctx, s.store, userID, models.Filter{Status: models.StatusActive})
	if err != nil {
		return nil, fmt.Errorf("dock: snapshot: %w", err)
	}
	return recs, nil
}
