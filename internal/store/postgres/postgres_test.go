package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/starford/dock/internal/store"
	"github.com/starford/dock/internal/store/storetest"
)

// TestStoreSuite runs against a real database when DOCK_TEST_POSTGRES_URL is set.
// The records table is truncated before each case.
func TestStoreSuite(t *testing.T) {
	url := os.Getenv("DOCK_TEST_POSTGRES_URL")
	if url == "" {
		t.Skip("DOCK_TEST_POSTGRES_URL not set")
	}
	storetest.Run(t, func(t *testing.T) store.Store {
		t.Helper()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		db, err := Open(ctx, url)
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		if _, err := db.pool.Exec(ctx, `TRUNCATE records`); err != nil {
			t.Fatalf("truncate: %v", err)
		}
		t.Cleanup(func() { db.Close() })
		return db
	})
}
