package live

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/starford/dock/internal/models"
	"github.com/starford/dock/internal/store"
)

// Store wraps a store.Store and publishes a Change after every successful mutation.
type Store struct {
	store.Store
	broker *Broker
}

var _ store.Store = (*Store)(nil)

// NewStore wraps inner. Changes go to broker.
func NewStore(inner store.Store, broker *Broker) *Store {
	return &Store{Store: inner, broker: broker}
}

// Broker returns the broker changes are published to.
func (s *Store) Broker() *Broker { return s.broker }

func (s *Store) Create(ctx context.Context, userID string, rec *models.Record) (string, error) {
	id, err := s.Store.Create(ctx, userID, rec)
	if err != nil {
		return "", err
	}
	s.broker.Publish(Change{UserID: userID, Kind: KindCreated, ID: id, Type: rec.Type})
	return id, nil
}

func (s *Store) Update(ctx context.Context, userID, id string, p models.Patch) error {
	if err := s.Store.Update(ctx, userID, id, p); err != nil {
		return err
	}
	s.broker.Publish(Change{UserID: userID, Kind: KindUpdated, ID: id})
	return nil
}

func (s *Store) SoftDelete(ctx context.Context, userID, id string) error {
	if err := s.Store.SoftDelete(ctx, userID, id); err != nil {
		return err
	}
	s.broker.Publish(Change{UserID: userID, Kind: KindUpdated, ID: id})
	return nil
}

func (s *Store) Delete(ctx context.Context, userID, id string) error {
	if err := s.Store.Delete(ctx, userID, id); err != nil {
		return err
	}
	s.broker.Publish(Change{UserID: userID, Kind: KindDeleted, ID: id})
	return nil
}

// Subscribe emits all of the user's records matching f now and again after
// every change of that user's records. A zero f.Limit means no limit. A slow
// reader only ever sees the latest snapshot. The channel closes when ctx is
// done or the broker stops.
func (s *Store) Subscribe(ctx context.Context, userID string, f models.Filter) (<-chan []models.Record, error) {
	sub := s.broker.Subscribe(userID)

	first, err := store.ListAll(ctx, s.Store, userID, f)
	if err != nil {
		sub.Unsubscribe()
		return nil, fmt.Errorf("live: initial snapshot: %w", err)
	}

	out := make(chan []models.Record, 1)
	out <- first

	go func() {
		defer close(out)
		defer sub.Unsubscribe()

		for {
			select {
			case <-ctx.Done():
				return
			case c, ok := <-sub.C():
				if !ok {
					return
				}
				if f.Type != "" && c.Type != "" && c.Type != f.Type {
					continue
				}
				drain(sub.C())

				snap, err := store.ListAll(ctx, s.Store, userID, f)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					slog.Warn("live: snapshot failed", slog.String("user", userID), slog.String("error", err.Error()))
					continue
				}
				replace(out, snap)
			}
		}
	}()
	return out, nil
}

// drain discards changes already queued; the next snapshot covers them.
func drain(ch <-chan Change) {
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		default:
			return
		}
	}
}

// replace puts snap into out, dropping an unread older snapshot.
func replace(out chan []models.Record, snap []models.Record) {
	for {
		select {
		case out <- snap:
			return
		default:
		}
		select {
		case <-out:
		default:
		}
	}
}
