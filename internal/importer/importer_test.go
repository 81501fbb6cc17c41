package importer

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/starford/dock/internal/apperr"
	"github.com/starford/dock/internal/docs"
	"github.com/starford/dock/internal/models"
	"github.com/starford/dock/internal/store/sqlite"
	"github.com/starford/dock/internal/testutil"
	"github.com/starford/dock/internal/vault"
)

const user = "u1"

type testEnv struct {
	dir string
	fs  *vault.FS
	db  *sqlite.DB
	im  *Importer
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	_, fs := testutil.TestVault(t)
	db := testutil.TestDB(t)
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return &testEnv{dir: fs.Root(), fs: fs, db: db, im: New(fs, db, user, logger)}
}

func (e *testEnv) write(t *testing.T, rel, content string) {
	t.Helper()
	if err := e.fs.Write(rel, []byte(content)); err != nil {
		t.Fatal(err)
	}
}

func (e *testEnv) get(t *testing.T, rel string) (*models.Record, error) {
	t.Helper()
	return e.db.Get(context.Background(), user, RecordID(rel))
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func TestRecordFromFile(t *testing.T) {
	now := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	rec := RecordFromFile("journal/day.md", []byte("# Monday\nwrote code #dev"), now)
	if rec.Type != models.TypeJournal || rec.Title != "Monday" || rec.Source != models.SourceVault {
		t.Errorf("journal record = %+v", rec)
	}
	if rec.Meta[docs.MetaSourcePath] != "journal/day.md" || rec.Meta[docs.MetaChecksum] == "" {
		t.Errorf("meta = %v", rec.Meta)
	}
	if rec.ID != RecordID("journal/day.md") || !strings.HasPrefix(rec.ID, "vault-") {
		t.Errorf("id = %q", rec.ID)
	}

	rec = RecordFromFile("misc/untitled-thing.md", []byte("no heading"), now)
	if rec.Type != models.TypeNote || rec.Title != "untitled-thing" {
		t.Errorf("fallback title record = %+v", rec)
	}

	rec = RecordFromFile("x.md", []byte("---\ntype: brief\ntitle: Morning\n---\nBTC: 1"), now)
	if rec.Type != models.TypeBrief || rec.Title != "Morning" {
		t.Errorf("front-matter type record = %+v", rec)
	}

	rec = RecordFromFile("shopping.md", []byte("---\ntype: list\ntitle: Shopping\ntags: [home]\n---\n- [x] soap\n- [ ] milk\n"), now)
	if rec.Type != models.TypeList || rec.Body != "" || len(rec.Items) != 2 {
		t.Fatalf("list record = %+v", rec)
	}
	if rec.Items[0].Text != "milk" || !rec.Items[1].Completed || rec.Tags[0] != "home" {
		t.Errorf("list items = %+v tags = %v", rec.Items, rec.Tags)
	}
}

func TestSync(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.write(t, "a.md", "# A")
	e.write(t, "briefs/2024-03-01.md", "# Brief\nBTC: 1")

	res, err := e.im.Sync(ctx)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if res.Created != 2 || res.Updated != 0 || res.Deleted != 0 {
		t.Errorf("first sync = %+v", res)
	}
	rec, err := e.get(t, "briefs/2024-03-01.md")
	if err != nil || rec.Type != models.TypeBrief {
		t.Fatalf("brief record = %+v, %v", rec, err)
	}

	res, _ = e.im.Sync(ctx)
	if res.Unchanged != 2 || res.Created+res.Updated+res.Deleted != 0 {
		t.Errorf("idempotent sync = %+v", res)
	}

	e.write(t, "a.md", "# A2")
	if err := os.Remove(filepath.Join(e.dir, "briefs", "2024-03-01.md")); err != nil {
		t.Fatal(err)
	}
	res, _ = e.im.Sync(ctx)
	if res.Updated != 1 || res.Deleted != 1 {
		t.Errorf("third sync = %+v", res)
	}
	rec, _ = e.get(t, "a.md")
	if rec == nil || rec.Title != "A2" || rec.Body != "# A2" {
		t.Errorf("updated record = %+v", rec)
	}
	if _, err := e.get(t, "briefs/2024-03-01.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("deleted file still imported: %v", err)
	}
}

func TestSync_LeavesStoreRecordsAlone(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	id, err := e.db.Create(ctx, user, &models.Record{Type: models.TypeNote, Title: "app note"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.im.Sync(ctx); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if _, err := e.db.Get(ctx, user, id); err != nil {
		t.Errorf("store record removed: %v", err)
	}
}

func TestImportFile_TypeChangeReplaces(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	if kind, err := e.im.ImportFile(ctx, "n.md", []byte("# N")); err != nil || kind != KindCreated {
		t.Fatalf("ImportFile = %q, %v", kind, err)
	}
	if kind, _ := e.im.ImportFile(ctx, "n.md", []byte("# N")); kind != "" {
		t.Errorf("unchanged import kind = %q", kind)
	}
	kind, err := e.im.ImportFile(ctx, "n.md", []byte("---\ntype: list\n---\n- [ ] x\n"))
	if err != nil || kind != KindCreated {
		t.Fatalf("retyped import = %q, %v", kind, err)
	}
	rec, _ := e.get(t, "n.md")
	if rec == nil || rec.Type != models.TypeList {
		t.Errorf("record = %+v", rec)
	}
}

func TestExportRoundTrip(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	mustCreate := func(rec models.Record) {
		t.Helper()
		if _, err := e.db.Create(ctx, user, &rec); err != nil {
			t.Fatal(err)
		}
	}
	mustCreate(models.Record{ID: "j1", Type: models.TypeJournal, Title: "Daily Journal — 2024-03-09", Body: "went well", Tags: []string{"journal"}})
	mustCreate(models.Record{ID: "l1", Type: models.TypeList, Title: "Chores", Items: []models.ListItem{
		{ID: "i1", Text: "dishes"}, {ID: "i2", Text: "laundry", Completed: true},
	}})
	mustCreate(models.Record{ID: "r1", Type: models.TypeNote, Title: "Rich", ContentJSON: map[string]any{
		"type": "doc",
		"content": []any{map[string]any{
			"type": "paragraph", "content": []any{map[string]any{"type": "text", "text": "hello rich"}},
		}},
	}})
	deleted := models.StatusDeleted
	mustCreate(models.Record{ID: "d1", Type: models.TypeNote, Title: "Gone", Status: deleted})

	out, err := vault.NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	n, err := Export(ctx, e.db, user, out)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if n != 3 {
		t.Errorf("exported %d files, want 3", n)
	}

	files, _ := out.List("")
	byDir := map[string]string{}
	for _, f := range files {
		data, _ := out.Read(f.Path)
		byDir[strings.SplitN(f.Path, "/", 2)[0]] = string(data)
	}
	if !strings.Contains(byDir["journal"], "tags: [journal]") || !strings.Contains(byDir["journal"], "went well") {
		t.Errorf("journal export = %q", byDir["journal"])
	}
	if !strings.Contains(byDir["lists"], "- [ ] dishes\n- [x] laundry") {
		t.Errorf("list export = %q", byDir["lists"])
	}
	if !strings.Contains(byDir["notes"], "hello rich") {
		t.Errorf("rich export = %q", byDir["notes"])
	}

	// Importing the export reproduces types, titles and items.
	other, err := sqlite.Open(filepath.Join(t.TempDir(), "other.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer other.Close()
	res, err := New(out, other, user, nil).Sync(ctx)
	if err != nil || res.Created != 3 {
		t.Fatalf("re-import = %+v, %v", res, err)
	}
	recs, _ := other.List(ctx, user, models.Filter{})
	found := map[models.ItemType]models.Record{}
	for _, r := range recs {
		found[r.Type] = r
	}
	if found[models.TypeJournal].Title != "Daily Journal — 2024-03-09" {
		t.Errorf("journal title = %q", found[models.TypeJournal].Title)
	}
	if l := found[models.TypeList]; l.Title != "Chores" || len(l.Items) != 2 {
		t.Errorf("list = %+v", l)
	}
}

func TestWatcher_ImportsAndRemoves(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var events []string
	e.im.OnEvent(func(kind, p string) {
		mu.Lock()
		events = append(events, kind+":"+p)
		mu.Unlock()
	})
	go e.im.Watch(ctx, e.dir)
	time.Sleep(100 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(e.dir, "new.md"), []byte("# New"), 0o644)
	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		rec, err := e.get(t, "new.md")
		return err == nil && rec.Title == "New"
	}, "new file not imported by watcher")

	sub := filepath.Join(e.dir, "journal")
	_ = os.MkdirAll(sub, 0o755)
	time.Sleep(100 * time.Millisecond)
	_ = os.WriteFile(filepath.Join(sub, "deep.md"), []byte("# Deep"), 0o644)
	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		rec, err := e.get(t, "journal/deep.md")
		return err == nil && rec.Type == models.TypeJournal
	}, "file in new dir not imported")

	_ = os.Remove(filepath.Join(e.dir, "new.md"))
	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		_, err := e.get(t, "new.md")
		return errors.Is(err, apperr.ErrNotFound)
	}, "removed file still imported")

	eventually(t, 2*time.Second, 50*time.Millisecond, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, ev := range events {
			if ev == "deleted:new.md" {
				return true
			}
		}
		return false
	}, "expected deleted:new.md callback")
}
