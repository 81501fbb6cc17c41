// Package store defines the user-scoped persistence contract for records.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/starford/dock/internal/models"
)

// List limits.
const (
	DefaultLimit = 50
	MaxLimit     = 200
)

// Store persists records. Every operation is scoped to userID: records owned
// by another user behave as if they did not exist (apperr.ErrNotFound).
//
// Implementations assign CreatedAt and UpdatedAt; UpdatedAt never decreases.
type Store interface {
	// Create inserts rec and returns its id. A caller-provided rec.ID is kept.
	Create(ctx context.Context, userID string, rec *models.Record) (string, error)
	// List returns records matching f, most recently updated first.
	List(ctx context.Context, userID string, f models.Filter) ([]models.Record, error)
	// Get returns a single record.
	Get(ctx context.Context, userID, id string) (*models.Record, error)
	// Update merges p into the record and refreshes UpdatedAt.
	Update(ctx context.Context, userID, id string, p models.Patch) error
	// SoftDelete marks the record as deleted without removing it.
	SoftDelete(ctx context.Context, userID, id string) error
	// Delete physically removes the record.
	Delete(ctx context.Context, userID, id string) error
	Close() error
}

// NormalizeLimit applies the default and the upper bound to a requested limit.
func NormalizeLimit(n int) int {
	if n <= 0 {
		return DefaultLimit
	}
	return min(n, MaxLimit)
}

// ListAll returns every record matching f by paging through st. A positive
// f.Limit is honoured as a single List call instead.
func ListAll(ctx context.Context, st Store, userID string, f models.Filter) ([]models.Record, error) {
	if f.Limit > 0 {
		return st.List(ctx, userID, f)
	}
	var out []models.Record
	f.Limit = MaxLimit
	for {
		page, err := st.List(ctx, userID, f)
		if err != nil {
			return nil, err
		}
		out = append(out, page...)
		if len(page) < MaxLimit {
			return out, nil
		}
		f.Offset += MaxLimit
	}
}

// Prepare fills the store-assigned fields of rec before insertion.
func Prepare(userID string, rec *models.Record, now time.Time) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	rec.UserID = userID
	if rec.Status == "" {
		rec.Status = models.StatusActive
	}
	if rec.Source == "" {
		rec.Source = models.SourceStore
	}
	if rec.Tags == nil {
		rec.Tags = []string{}
	}
	rec.CreatedAt = now
	rec.UpdatedAt = now
}

// Now returns the current time in UTC, truncated to what every backend can
// round-trip.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}
