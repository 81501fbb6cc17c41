package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/starford/dock/internal/auth"
	"github.com/starford/dock/internal/dock"
	"github.com/starford/dock/internal/live"
	"github.com/starford/dock/internal/models"
	"github.com/starford/dock/internal/testutil"
)

// testEnv wires a SQLite-backed live store, the service and the router.
func testEnv(t *testing.T, v auth.Verifier) http.Handler {
	t.Helper()
	broker := live.NewBroker()
	t.Cleanup(broker.Close)
	svc := testutil.TestService(t, live.NewStore(testutil.TestDB(t), broker))
	return NewRouter(svc, v)
}

func openEnv(t *testing.T) http.Handler {
	t.Helper()
	return testEnv(t, auth.Disabled{UserID: "u1"})
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
	return v
}

func create(t *testing.T, h http.Handler, body map[string]any) string {
	t.Helper()
	w := do(t, h, http.MethodPost, "/items", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	return decode[IDResponse](t, w).ID
}

func TestCreateAndGetItem(t *testing.T) {
	h := openEnv(t)

	id := create(t, h, map[string]any{"type": "note", "title": "  Hello ", "content": "# Hello\nWorld", "tags": []string{"a", " ", "b"}})

	w := do(t, h, http.MethodGet, "/items/"+id, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	rec := decode[models.Record](t, w)
	if rec.Title != "Hello" {
		t.Errorf("title = %q, want Hello", rec.Title)
	}
	if rec.Body != "# Hello\nWorld" {
		t.Errorf("body = %q (content alias not applied)", rec.Body)
	}
	if len(rec.Tags) != 2 {
		t.Errorf("tags = %v, blank tag not dropped", rec.Tags)
	}
	if rec.Status != models.StatusActive {
		t.Errorf("status = %q", rec.Status)
	}
}

func TestCreateValidation(t *testing.T) {
	h := openEnv(t)

	tests := []struct {
		name string
		body string
	}{
		{"bad json", `{"type":`},
		{"unknown type", `{"type":"memo"}`},
		{"missing type", `{"title":"x"}`},
		{"items on note", `{"type":"note","items":[{"text":"x"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/items", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400, body = %s", w.Code, w.Body.String())
			}
			if decode[errResponse](t, w).Error == "" {
				t.Error("empty error message")
			}
		})
	}
}

func TestCreateDuplicateID(t *testing.T) {
	h := openEnv(t)
	create(t, h, map[string]any{"id": "dup", "type": "note"})
	w := do(t, h, http.MethodPost, "/items", map[string]any{"id": "dup", "type": "note"})
	if w.Code != http.StatusConflict {
		t.Errorf("duplicate create = %d, want 409", w.Code)
	}
}

func TestListItems(t *testing.T) {
	h := openEnv(t)
	create(t, h, map[string]any{"type": "note", "title": "n"})
	listID := create(t, h, map[string]any{"type": "list", "title": "l"})
	gone := create(t, h, map[string]any{"type": "note", "title": "gone"})
	if w := do(t, h, http.MethodDelete, "/items/"+gone, nil); w.Code != http.StatusOK {
		t.Fatalf("delete = %d", w.Code)
	}

	items := decode[ItemsResponse](t, do(t, h, http.MethodGet, "/items", nil)).Items
	if len(items) != 2 {
		t.Fatalf("default list = %d items, want 2 active", len(items))
	}

	items = decode[ItemsResponse](t, do(t, h, http.MethodGet, "/items?type=list", nil)).Items
	if len(items) != 1 || items[0].ID != listID {
		t.Errorf("type=list = %+v", items)
	}

	items = decode[ItemsResponse](t, do(t, h, http.MethodGet, "/items?status=deleted", nil)).Items
	if len(items) != 1 || items[0].ID != gone {
		t.Errorf("status=deleted = %+v", items)
	}

	items = decode[ItemsResponse](t, do(t, h, http.MethodGet, "/items?limit=1&offset=1", nil)).Items
	if len(items) != 1 {
		t.Errorf("paged = %d items, want 1", len(items))
	}

	if w := do(t, h, http.MethodGet, "/items?limit=5000", nil); w.Code != http.StatusOK {
		t.Errorf("oversized limit = %d, want clamped 200", w.Code)
	}
	if w := do(t, h, http.MethodGet, "/items?type=memo", nil); w.Code != http.StatusBadRequest {
		t.Errorf("bad type = %d, want 400", w.Code)
	}
	if w := do(t, h, http.MethodGet, "/items?status=gone", nil); w.Code != http.StatusBadRequest {
		t.Errorf("bad status = %d, want 400", w.Code)
	}
}

func TestUpdateItem(t *testing.T) {
	h := openEnv(t)
	id := create(t, h, map[string]any{"type": "note", "title": "v1", "body": "one"})

	w := do(t, h, http.MethodPatch, "/items/"+id, map[string]any{"title": "v2"})
	if w.Code != http.StatusOK || !decode[OKResponse](t, w).OK {
		t.Fatalf("update = %d %s", w.Code, w.Body.String())
	}
	rec := decode[models.Record](t, do(t, h, http.MethodGet, "/items/"+id, nil))
	if rec.Title != "v2" || rec.Body != "one" {
		t.Errorf("after update = %q/%q", rec.Title, rec.Body)
	}

	if w := do(t, h, http.MethodPatch, "/items/"+id, map[string]any{"type": "brief"}); w.Code != http.StatusBadRequest {
		t.Errorf("type change = %d, want 400", w.Code)
	}
	if w := do(t, h, http.MethodPatch, "/items/missing", map[string]any{"title": "x"}); w.Code != http.StatusNotFound {
		t.Errorf("missing = %d, want 404", w.Code)
	}
}

func TestDeleteItemIsSoft(t *testing.T) {
	h := openEnv(t)
	id := create(t, h, map[string]any{"type": "note"})

	if w := do(t, h, http.MethodDelete, "/items/"+id, nil); w.Code != http.StatusOK {
		t.Fatalf("delete = %d", w.Code)
	}
	rec := decode[models.Record](t, do(t, h, http.MethodGet, "/items/"+id, nil))
	if rec.Status != models.StatusDeleted {
		t.Errorf("status = %q, want deleted", rec.Status)
	}
	if w := do(t, h, http.MethodDelete, "/items/missing", nil); w.Code != http.StatusNotFound {
		t.Errorf("missing = %d, want 404", w.Code)
	}
}

func TestDrafts(t *testing.T) {
	h := openEnv(t)

	w := do(t, h, http.MethodPost, "/journal", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("journal = %d %s", w.Code, w.Body.String())
	}
	journal := decode[models.Record](t, w)
	if journal.Type != models.TypeJournal || !journal.IsDraft {
		t.Errorf("journal = %+v", journal)
	}

	note := decode[models.Record](t, do(t, h, http.MethodPost, "/notes/draft", nil))
	if note.Type != models.TypeNote || !note.IsDraft {
		t.Errorf("note = %+v", note)
	}

	if w := do(t, h, http.MethodDelete, "/drafts/"+note.ID, nil); w.Code != http.StatusOK {
		t.Errorf("discard = %d", w.Code)
	}
	if w := do(t, h, http.MethodGet, "/items/"+note.ID, nil); w.Code != http.StatusNotFound {
		t.Errorf("discarded draft still readable: %d", w.Code)
	}

	published := create(t, h, map[string]any{"type": "note", "title": "kept"})
	if w := do(t, h, http.MethodDelete, "/drafts/"+published, nil); w.Code != http.StatusConflict {
		t.Errorf("discard published = %d, want 409", w.Code)
	}
}

func TestListEntries(t *testing.T) {
	h := openEnv(t)
	id := create(t, h, map[string]any{"type": "list", "title": "groceries"})
	base := "/items/" + id + "/entries"

	for _, text := range []string{"milk", "eggs", "bread"} {
		w := do(t, h, http.MethodPost, base, EntryRequest{Text: text})
		if w.Code != http.StatusOK {
			t.Fatalf("add %q = %d %s", text, w.Code, w.Body.String())
		}
	}
	list := decode[models.ListEntity](t, do(t, h, http.MethodPost, base+"/reorder", ReorderRequest{From: 2, To: 0}))
	if got := list.Items[0].Text; got != "milk" {
		t.Fatalf("after reorder first = %q, want milk", got)
	}

	milk := list.Items[0].ID
	list = decode[models.ListEntity](t, do(t, h, http.MethodPost, base+"/"+milk+"/toggle", nil))
	last := list.Items[len(list.Items)-1]
	if last.ID != milk || !last.Completed {
		t.Errorf("toggled entry not last and completed: %+v", list.Items)
	}

	list = decode[models.ListEntity](t, do(t, h, http.MethodPatch, base+"/"+milk, EntryRequest{Text: "oat milk"}))
	if list.Items[len(list.Items)-1].Text != "oat milk" {
		t.Errorf("edit not applied: %+v", list.Items)
	}

	list = decode[models.ListEntity](t, do(t, h, http.MethodDelete, base+"/"+milk, nil))
	if len(list.Items) != 2 {
		t.Errorf("after delete = %d items", len(list.Items))
	}

	if w := do(t, h, http.MethodPost, base, EntryRequest{Text: "  "}); w.Code != http.StatusBadRequest {
		t.Errorf("blank entry = %d, want 400", w.Code)
	}
	if w := do(t, h, http.MethodPost, base+"/nope/toggle", nil); w.Code != http.StatusNotFound {
		t.Errorf("unknown entry = %d, want 404", w.Code)
	}
	note := create(t, h, map[string]any{"type": "note"})
	if w := do(t, h, http.MethodPost, "/items/"+note+"/entries", EntryRequest{Text: "x"}); w.Code != http.StatusBadRequest {
		t.Errorf("entry on note = %d, want 400", w.Code)
	}
}

func TestWorkspaceAndInsight(t *testing.T) {
	h := openEnv(t)
	target := create(t, h, map[string]any{"type": "note", "title": "Rates", "body": "## Outlook\nrates #macro"})
	create(t, h, map[string]any{"type": "note", "title": "Weekly", "body": "see Rates for details #macro"})
	create(t, h, map[string]any{"type": "list", "title": "todo"})

	ws := decode[dock.Workspace](t, do(t, h, http.MethodGet, "/workspace", nil))
	if ws.Total != 2 || len(ws.Notes) != 2 || len(ws.Lists) != 1 {
		t.Fatalf("workspace = total %d notes %d lists %d", ws.Total, len(ws.Notes), len(ws.Lists))
	}

	ws = decode[dock.Workspace](t, do(t, h, http.MethodGet, "/workspace?q=weekly", nil))
	if ws.Matched != 1 || ws.Query != "weekly" {
		t.Errorf("filtered workspace = matched %d query %q", ws.Matched, ws.Query)
	}

	w := do(t, h, http.MethodGet, "/items/"+target+"/insight", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("insight = %d %s", w.Code, w.Body.String())
	}
	in := decode[dock.Insight](t, w)
	if len(in.Outline) != 1 || in.Outline[0].Text != "Outlook" {
		t.Errorf("outline = %+v", in.Outline)
	}
	if len(in.Backlinks) != 1 || in.Backlinks[0].Doc.Title != "Weekly" {
		t.Errorf("backlinks = %+v", in.Backlinks)
	}

	if w := do(t, h, http.MethodGet, "/items/missing/insight", nil); w.Code != http.StatusNotFound {
		t.Errorf("missing insight = %d, want 404", w.Code)
	}
}

func TestAuthToken(t *testing.T) {
	h := testEnv(t, auth.Static{Token: "secret", UserID: "u1"})

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong", "Bearer nope", http.StatusUnauthorized},
		{"not bearer", "Basic secret", http.StatusUnauthorized},
		{"ok", "Bearer secret", http.StatusOK},
		{"lowercase scheme", "bearer secret", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/items", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestUsersAreIsolated(t *testing.T) {
	svc := testutil.TestService(t, testutil.TestDB(t))
	alice := NewRouter(svc, auth.Disabled{UserID: "alice"})
	bob := NewRouter(svc, auth.Disabled{UserID: "bob"})

	id := create(t, alice, map[string]any{"type": "note", "title": "private"})
	if w := do(t, bob, http.MethodGet, "/items/"+id, nil); w.Code != http.StatusNotFound {
		t.Errorf("bob read alice's record: %d", w.Code)
	}
	if items := decode[ItemsResponse](t, do(t, bob, http.MethodGet, "/items", nil)).Items; len(items) != 0 {
		t.Errorf("bob listed %d records", len(items))
	}
}

func TestEventsStream(t *testing.T) {
	h := openEnv(t)
	srv := httptest.NewServer(h)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events?type=note", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /events: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}

	events := make(chan ItemsResponse)
	go func() {
		defer close(events)
		sc := bufio.NewScanner(resp.Body)
		for sc.Scan() {
			data, ok := strings.CutPrefix(sc.Text(), "data: ")
			if !ok {
				continue
			}
			var snap ItemsResponse
			if json.Unmarshal([]byte(data), &snap) == nil {
				select {
				case events <- snap:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	first := <-events
	if len(first.Items) != 0 {
		t.Fatalf("initial snapshot = %+v", first.Items)
	}

	create(t, h, map[string]any{"type": "note", "title": "streamed"})
	select {
	case snap, ok := <-events:
		if !ok {
			t.Fatal("stream closed")
		}
		if len(snap.Items) != 1 || snap.Items[0].Title != "streamed" {
			t.Errorf("snapshot = %+v", snap.Items)
		}
	case <-ctx.Done():
		t.Fatal("no snapshot after create")
	}

	if w := do(t, h, http.MethodGet, "/events?type=memo", nil); w.Code != http.StatusBadRequest {
		t.Errorf("bad filter = %d, want 400", w.Code)
	}
}
