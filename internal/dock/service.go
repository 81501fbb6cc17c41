// Package dock is the application service: it validates requests, persists
// records through a store.Store and derives views from the stored snapshot.
package dock

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/starford/dock/internal/apperr"
	"github.com/starford/dock/internal/checklist"
	"github.com/starford/dock/internal/docs"
	"github.com/starford/dock/internal/models"
	"github.com/starford/dock/internal/relations"
	"github.com/starford/dock/internal/store"
)

// Default titles.
const (
	DefaultListTitle   = "Untitled List"
	JournalTitlePrefix = "Daily Journal — "
	JournalTag         = "journal"
)

// ViewConfig tunes the derived views.
type ViewConfig struct {
	MarketLabels []string
	Reserved     docs.Reserved
	RelatedLimit int
}

// DefaultViewConfig returns the built-in market labels, reserved titles and related limit.
func DefaultViewConfig() ViewConfig {
	return ViewConfig{
		MarketLabels: relations.DefaultMarketLabels,
		Reserved:     docs.Reserved{Titles: docs.DefaultReservedTitles},
		RelatedLimit: relations.DefaultRelatedLimit,
	}
}

// Service coordinates the store and the view engine.
type Service struct {
	store   store.Store
	builder *docs.Builder
	views   ViewConfig
	now     func() time.Time
}

// NewService creates a service over st.
func NewService(st store.Store, builder *docs.Builder, views ViewConfig) *Service {
	return &Service{store: st, builder: builder, views: views, now: time.Now}
}

// Store returns the underlying store.
func (s *Service) Store() store.Store { return s.store }

// Create validates rec and stores it. List items without an id get one.
func (s *Service) Create(ctx context.Context, userID string, rec *models.Record) (string, error) {
	rec.Title = strings.TrimSpace(rec.Title)
	if rec.Type == models.TypeList {
		if rec.Title == "" {
			rec.Title = DefaultListTitle
		}
		rec.Items = s.prepareItems(rec.Items)
	}
	if err := validateRecord(rec); err != nil {
		return "", err
	}
	return s.store.Create(ctx, userID, rec)
}

// List returns the user's records matching f.
func (s *Service) List(ctx context.Context, userID string, f models.Filter) ([]models.Record, error) {
	if err := validateFilter(&f); err != nil {
		return nil, err
	}
	return s.store.List(ctx, userID, f)
}

// Get returns one record.
func (s *Service) Get(ctx context.Context, userID, id string) (*models.Record, error) {
	return s.store.Get(ctx, userID, id)
}

// Update applies p. Editing a draft publishes it unless p sets IsDraft.
// Setting Body without ContentJSON clears the stored rich text.
func (s *Service) Update(ctx context.Context, userID, id string, p models.Patch) error {
	if err := validatePatch(&p); err != nil {
		return err
	}
	if p.Title != nil {
		title := strings.TrimSpace(*p.Title)
		p.Title = &title
	}
	if p.Items != nil {
		items := s.prepareItems(*p.Items)
		p.Items = &items
	}
	// A plain body save replaces any rich-text source.
	if p.Body != nil && p.ContentJSON == nil {
		var cleared map[string]any
		p.ContentJSON = &cleared
	}
	if p.IsDraft == nil && (p.Title != nil || p.Body != nil || p.ContentJSON != nil) {
		published := false
		p.IsDraft = &published
	}
	return s.store.Update(ctx, userID, id, p)
}

// SoftDelete marks the record deleted.
func (s *Service) SoftDelete(ctx context.Context, userID, id string) error {
	return s.store.SoftDelete(ctx, userID, id)
}

// Delete removes the record.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	return s.store.Delete(ctx, userID, id)
}

// NewJournal creates today's journal draft.
func (s *Service) NewJournal(ctx context.Context, userID string) (*models.Record, error) {
	day := s.now().UTC().Format(time.DateOnly)
	return s.newDraft(ctx, userID, models.TypeJournal, JournalTitlePrefix+day, []string{JournalTag})
}

// NewNote creates an empty note draft.
func (s *Service) NewNote(ctx context.Context, userID string) (*models.Record, error) {
	return s.newDraft(ctx, userID, models.TypeNote, docs.DefaultTitle, nil)
}

func (s *Service) newDraft(ctx context.Context, userID string, typ models.ItemType, title string, tags []string) (*models.Record, error) {
	rec := &models.Record{
		Type:        typ,
		Title:       title,
		ContentJSON: emptyRichDoc(),
		Tags:        tags,
		IsDraft:     true,
	}
	if _, err := s.Create(ctx, userID, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// DiscardDraft removes a draft that was never published.
func (s *Service) DiscardDraft(ctx context.Context, userID, id string) error {
	rec, err := s.store.Get(ctx, userID, id)
	if err != nil {
		return err
	}
	if !rec.IsDraft {
		return apperr.Conflictf("dock: %s is not a draft", id)
	}
	return s.store.Delete(ctx, userID, id)
}

func (s *Service) prepareItems(items []models.ListItem) []models.ListItem {
	now := s.now()
	out := make([]models.ListItem, 0, len(items))
	for _, it := range items {
		it.Text = strings.TrimSpace(it.Text)
		if it.Text == "" {
			continue
		}
		if it.ID == "" {
			fresh := checklist.NewItem(it.Text, now)
			fresh.Completed = it.Completed
			it = fresh
		}
		if it.CreatedAt == 0 {
			it.CreatedAt = now.UnixMilli()
		}
		out = append(out, it)
	}
	return checklist.Normalize(out)
}

func emptyRichDoc() map[string]any {
	return map[string]any{
		"type":    "doc",
		"content": []any{map[string]any{"type": "paragraph"}},
	}
}

// Subscriber streams snapshots of a user's records.
type Subscriber interface {
	Subscribe(ctx context.Context, userID string, f models.Filter) (<-chan []models.Record, error)
}

// Subscribe streams snapshots of the records matching f. The store must
// support subscriptions.
func (s *Service) Subscribe(ctx context.Context, userID string, f models.Filter) (<-chan []models.Record, error) {
	sub, ok := s.store.(Subscriber)
	if !ok {
		return nil, errors.New("dock: store does not support live updates")
	}
	if err := validateFilter(&f); err != nil {
		return nil, err
	}
	return sub.Subscribe(ctx, userID, f)
}
