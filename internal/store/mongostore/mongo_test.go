package mongostore

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/starford/dock/internal/store"
	"github.com/starford/dock/internal/store/storetest"
)

// TestStoreSuite runs against a real server when DOCK_TEST_MONGO_URI is set.
func TestStoreSuite(t *testing.T) {
	uri := os.Getenv("DOCK_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("DOCK_TEST_MONGO_URI not set")
	}
	n := 0
	storetest.Run(t, func(t *testing.T) store.Store {
		t.Helper()
		n++
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		dbName := fmt.Sprintf("dock_test_%d_%d", time.Now().UnixNano(), n)
		repo, err := Connect(ctx, uri, dbName)
		if err != nil {
			t.Fatalf("Connect: %v", err)
		}
		t.Cleanup(func() {
			_ = repo.client.Database(dbName).Drop(context.Background())
			_ = repo.Close()
		})
		return repo
	})
}

func TestPlainMap(t *testing.T) {
	m, err := plainMap(map[string]any{"content": []any{map[string]any{"type": "text"}}})
	if err != nil {
		t.Fatalf("plainMap: %v", err)
	}
	content, ok := m["content"].([]any)
	if !ok || len(content) != 1 {
		t.Fatalf("content = %#v", m["content"])
	}
	if _, ok := content[0].(map[string]any); !ok {
		t.Errorf("nested = %#v", content[0])
	}
	if m, _ := plainMap(nil); m != nil {
		t.Errorf("nil input = %#v", m)
	}
}
