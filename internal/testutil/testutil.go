// Package testutil provides shared test helpers for setting up stores, services and vaults.
package testutil

import (
	"path/filepath"
	"testing"

	"github.com/starford/dock/internal/dock"
	"github.com/starford/dock/internal/docs"
	"github.com/starford/dock/internal/parser"
	"github.com/starford/dock/internal/store"
	"github.com/starford/dock/internal/store/sqlite"
	"github.com/starford/dock/internal/vault"
)

// TestDB creates a temporary SQLite store that is automatically closed.
func TestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "dock-test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestService builds a service over st with the default views.
func TestService(t *testing.T, st store.Store) *dock.Service {
	t.Helper()
	return dock.NewService(st, docs.NewBuilder(parser.NewRenderer()), dock.DefaultViewConfig())
}

// TestVault creates a temporary vault directory.
func TestVault(t *testing.T) (string, *vault.FS) {
	t.Helper()
	dir := t.TempDir()
	fs, err := vault.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, fs
}
