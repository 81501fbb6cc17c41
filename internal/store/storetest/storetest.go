// Package storetest provides a behavioural test suite shared by every
// store.Store implementation.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/starford/dock/internal/apperr"
	"github.com/starford/dock/internal/models"
	"github.com/starford/dock/internal/store"
)

// Factory returns an empty store. It should register its own cleanup.
type Factory func(t *testing.T) store.Store

// Run executes the suite against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("CreateGet", func(t *testing.T) { testCreateGet(t, newStore(t)) })
	t.Run("ListOrderAndFilter", func(t *testing.T) { testListOrderAndFilter(t, newStore(t)) })
	t.Run("ListLimit", func(t *testing.T) { testListLimit(t, newStore(t)) })
	t.Run("UpdateMerges", func(t *testing.T) { testUpdateMerges(t, newStore(t)) })
	t.Run("ClearContentJSON", func(t *testing.T) { testClearContentJSON(t, newStore(t)) })
	t.Run("SoftDeleteAndDelete", func(t *testing.T) { testDelete(t, newStore(t)) })
	t.Run("UserScoping", func(t *testing.T) { testUserScoping(t, newStore(t)) })
	t.Run("DuplicateID", func(t *testing.T) { testDuplicateID(t, newStore(t)) })
}

func mustCreate(t *testing.T, s store.Store, user string, rec models.Record) string {
	t.Helper()
	id, err := s.Create(context.Background(), user, &rec)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return id
}

// tick keeps successive writes on distinct millisecond timestamps.
func tick() { time.Sleep(3 * time.Millisecond) }

func testCreateGet(t *testing.T, s store.Store) {
	ctx := context.Background()
	id := mustCreate(t, s, "u1", models.Record{
		Type:        models.TypeNote,
		Title:       "Hello",
		Body:        "# Hello\n#tag",
		Tags:        []string{"a", "b"},
		ContentJSON: map[string]any{"type": "doc", "content": []any{map[string]any{"type": "paragraph"}}},
		Meta:        map[string]any{"origin": "test"},
	})
	if id == "" {
		t.Fatal("empty id")
	}

	rec, err := s.Get(ctx, "u1", id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.Title != "Hello" || rec.Type != models.TypeNote || rec.Body != "# Hello\n#tag" {
		t.Errorf("record = %+v", rec)
	}
	if rec.Status != models.StatusActive {
		t.Errorf("status = %q, want active", rec.Status)
	}
	if len(rec.Tags) != 2 || rec.Tags[1] != "b" {
		t.Errorf("tags = %v", rec.Tags)
	}
	if rec.Meta["origin"] != "test" {
		t.Errorf("meta = %v", rec.Meta)
	}
	if content, ok := rec.ContentJSON["content"].([]any); !ok || len(content) != 1 {
		t.Errorf("contentJson = %#v", rec.ContentJSON)
	}
	if rec.CreatedAt.IsZero() || rec.UpdatedAt.Before(rec.CreatedAt) {
		t.Errorf("timestamps = %v / %v", rec.CreatedAt, rec.UpdatedAt)
	}

	if _, err := s.Get(ctx, "u1", "missing"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Get missing: err = %v, want ErrNotFound", err)
	}
}

func testListOrderAndFilter(t *testing.T, s store.Store) {
	ctx := context.Background()
	first := mustCreate(t, s, "u1", models.Record{Type: models.TypeNote, Title: "first"})
	tick()
	second := mustCreate(t, s, "u1", models.Record{Type: models.TypeJournal, Title: "second"})
	tick()
	third := mustCreate(t, s, "u1", models.Record{
		Type:  models.TypeList,
		Title: "third",
		Items: []models.ListItem{{ID: "i1", Text: "milk", CreatedAt: 1}},
	})
	tick()

	title := "first again"
	if err := s.Update(ctx, "u1", first, models.Patch{Title: &title}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	all, err := s.List(ctx, "u1", models.Filter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []string{first, third, second}
	if len(all) != len(want) {
		t.Fatalf("len = %d, want %d", len(all), len(want))
	}
	for i, id := range want {
		if all[i].ID != id {
			t.Errorf("all[%d] = %s (%s), want %s", i, all[i].ID, all[i].Title, id)
		}
	}
	if len(all[1].Items) != 1 || all[1].Items[0].Text != "milk" {
		t.Errorf("list items = %+v", all[1].Items)
	}

	journals, err := s.List(ctx, "u1", models.Filter{Type: models.TypeJournal})
	if err != nil {
		t.Fatalf("List journal: %v", err)
	}
	if len(journals) != 1 || journals[0].ID != second {
		t.Errorf("journals = %+v", journals)
	}

	if err := s.SoftDelete(ctx, "u1", third); err != nil {
		t.Fatalf("SoftDelete: %v", err)
	}
	active, err := s.List(ctx, "u1", models.Filter{Status: models.StatusActive})
	if err != nil {
		t.Fatalf("List active: %v", err)
	}
	if len(active) != 2 {
		t.Errorf("active = %d records, want 2", len(active))
	}
}

func testListLimit(t *testing.T, s store.Store) {
	ctx := context.Background()
	for i := 0; i < store.DefaultLimit+3; i++ {
		mustCreate(t, s, "u1", models.Record{Type: models.TypeNote})
	}
	recs, err := s.List(ctx, "u1", models.Filter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(recs) != store.DefaultLimit {
		t.Errorf("default limit: got %d, want %d", len(recs), store.DefaultLimit)
	}
	recs, err = s.List(ctx, "u1", models.Filter{Limit: 5, Offset: store.DefaultLimit})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(recs) != 3 {
		t.Errorf("offset page: got %d, want 3", len(recs))
	}
}

func testUpdateMerges(t *testing.T, s store.Store) {
	ctx := context.Background()
	id := mustCreate(t, s, "u1", models.Record{Type: models.TypeBrief, Title: "t", Body: "b", Tags: []string{"x"}})
	before, err := s.Get(ctx, "u1", id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	tick()

	body := "new body"
	archived := models.StatusArchived
	if err := s.Update(ctx, "u1", id, models.Patch{Body: &body, Status: &archived}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	after, err := s.Get(ctx, "u1", id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if after.Title != "t" || after.Body != "new body" || after.Status != models.StatusArchived {
		t.Errorf("after = %+v", after)
	}
	if after.Type != models.TypeBrief || len(after.Tags) != 1 {
		t.Errorf("untouched fields changed: %+v", after)
	}
	if !after.UpdatedAt.After(before.UpdatedAt) {
		t.Errorf("updatedAt %v not after %v", after.UpdatedAt, before.UpdatedAt)
	}
	if !after.CreatedAt.Equal(before.CreatedAt) {
		t.Errorf("createdAt changed: %v -> %v", before.CreatedAt, after.CreatedAt)
	}

	if err := s.Update(ctx, "u1", "missing", models.Patch{Body: &body}); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Update missing: err = %v, want ErrNotFound", err)
	}
}

func testDelete(t *testing.T, s store.Store) {
	ctx := context.Background()
	id := mustCreate(t, s, "u1", models.Record{Type: models.TypeNote})

	if err := s.SoftDelete(ctx, "u1", id); err != nil {
		t.Fatalf("SoftDelete: %v", err)
	}
	rec, err := s.Get(ctx, "u1", id)
	if err != nil {
		t.Fatalf("Get after soft delete: %v", err)
	}
	if rec.Status != models.StatusDeleted {
		t.Errorf("status = %q, want deleted", rec.Status)
	}

	if err := s.Delete(ctx, "u1", id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, "u1", id); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Get after delete: err = %v, want ErrNotFound", err)
	}
	if err := s.Delete(ctx, "u1", id); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second Delete: err = %v, want ErrNotFound", err)
	}
	if err := s.SoftDelete(ctx, "u1", id); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("SoftDelete missing: err = %v, want ErrNotFound", err)
	}
}

func testUserScoping(t *testing.T, s store.Store) {
	ctx := context.Background()
	id := mustCreate(t, s, "alice", models.Record{Type: models.TypeNote, Title: "secret"})

	if _, err := s.Get(ctx, "bob", id); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("bob Get: err = %v, want ErrNotFound", err)
	}
	title := "stolen"
	if err := s.Update(ctx, "bob", id, models.Patch{Title: &title}); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("bob Update: err = %v, want ErrNotFound", err)
	}
	if err := s.Delete(ctx, "bob", id); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("bob Delete: err = %v, want ErrNotFound", err)
	}
	recs, err := s.List(ctx, "bob", models.Filter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(recs) != 0 {
		t.Errorf("bob sees %d records", len(recs))
	}
	rec, err := s.Get(ctx, "alice", id)
	if err != nil || rec.Title != "secret" {
		t.Errorf("alice record = %+v, %v", rec, err)
	}
}

func testDuplicateID(t *testing.T, s store.Store) {
	mustCreate(t, s, "u1", models.Record{ID: "fixed", Type: models.TypeNote})
	_, err := s.Create(context.Background(), "u1", &models.Record{ID: "fixed", Type: models.TypeNote})
	if !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("duplicate create: err = %v, want ErrAlreadyExists", err)
	}
	// Ids are per user.
	mustCreate(t, s, "u2", models.Record{ID: "fixed", Type: models.TypeNote})
}

func testClearContentJSON(t *testing.T, s store.Store) {
	ctx := context.Background()
	id := mustCreate(t, s, "u1", models.Record{
		Type:        models.TypeNote,
		ContentJSON: map[string]any{"type": "doc"},
	})
	var cleared map[string]any
	if err := s.Update(ctx, "u1", id, models.Patch{ContentJSON: &cleared}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	rec, err := s.Get(ctx, "u1", id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(rec.ContentJSON) != 0 {
		t.Errorf("contentJson = %#v, want empty", rec.ContentJSON)
	}
}
