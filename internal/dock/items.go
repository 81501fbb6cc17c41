package dock

import (
	"context"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/dock/internal/apperr"
	"github.com/starford/dock/internal/checklist"
	"github.com/starford/dock/internal/docs"
	"github.com/starford/dock/internal/models"
)

// List item mutations read the current items, apply the ordering policy and
// write the whole slice back. Concurrent writers race; the last one wins.

// AddItem prepends an incomplete item to the list.
func (s *Service) AddItem(ctx context.Context, userID, listID, text string) (*models.ListEntity, error) {
	text = strings.TrimSpace(text)
	if err := validation.Validate(text, validation.Required, validation.Length(1, 1000)); err != nil {
		return nil, invalid(validation.Errors{"text": err})
	}
	return s.mutateItems(ctx, userID, listID, func(items []models.ListItem) ([]models.ListItem, error) {
		return checklist.Add(items, text, s.now()), nil
	})
}

// ToggleItem flips the completion of one item.
func (s *Service) ToggleItem(ctx context.Context, userID, listID, itemID string) (*models.ListEntity, error) {
	return s.mutateItems(ctx, userID, listID, func(items []models.ListItem) ([]models.ListItem, error) {
		if _, ok := checklist.Find(items, itemID); !ok {
			return nil, itemNotFound(itemID)
		}
		return checklist.Toggle(items, itemID), nil
	})
}

// EditItem replaces the text of one item.
func (s *Service) EditItem(ctx context.Context, userID, listID, itemID, text string) (*models.ListEntity, error) {
	text = strings.TrimSpace(text)
	if err := validation.Validate(text, validation.Required, validation.Length(1, 1000)); err != nil {
		return nil, invalid(validation.Errors{"text": err})
	}
	return s.mutateItems(ctx, userID, listID, func(items []models.ListItem) ([]models.ListItem, error) {
		if _, ok := checklist.Find(items, itemID); !ok {
			return nil, itemNotFound(itemID)
		}
		return checklist.Edit(items, itemID, text), nil
	})
}

// DeleteItem removes one item.
func (s *Service) DeleteItem(ctx context.Context, userID, listID, itemID string) (*models.ListEntity, error) {
	return s.mutateItems(ctx, userID, listID, func(items []models.ListItem) ([]models.ListItem, error) {
		if _, ok := checklist.Find(items, itemID); !ok {
			return nil, itemNotFound(itemID)
		}
		return checklist.Delete(items, itemID), nil
	})
}

// ReorderItems moves an incomplete item from one position to another.
// Positions outside the incomplete partition leave the list unchanged.
func (s *Service) ReorderItems(ctx context.Context, userID, listID string, from, to int) (*models.ListEntity, error) {
	return s.mutateItems(ctx, userID, listID, func(items []models.ListItem) ([]models.ListItem, error) {
		return checklist.Reorder(items, from, to), nil
	})
}

func (s *Service) mutateItems(ctx context.Context, userID, listID string, fn func([]models.ListItem) ([]models.ListItem, error)) (*models.ListEntity, error) {
	rec, err := s.store.Get(ctx, userID, listID)
	if err != nil {
		return nil, err
	}
	if rec.Type != models.TypeList {
		return nil, apperr.Invalidf("dock: %s is a %s, not a list", listID, rec.Type)
	}
	next, err := fn(checklist.Normalize(rec.Items))
	if err != nil {
		return nil, err
	}
	if err := s.store.Update(ctx, userID, listID, models.Patch{Items: &next}); err != nil {
		return nil, err
	}
	updated, err := s.store.Get(ctx, userID, listID)
	if err != nil {
		return nil, err
	}
	list := docs.BuildList(*updated)
	return &list, nil
}

func itemNotFound(id string) error {
	return fmt.Errorf("dock: item %s: %w", id, apperr.ErrNotFound)
}
