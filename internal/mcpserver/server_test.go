package mcpserver

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/dock/internal/dock"
	"github.com/starford/dock/internal/models"
	"github.com/starford/dock/internal/testutil"
)

const testUser = "mcp"

func testServer(t *testing.T) (*Server, *dock.Service) {
	t.Helper()
	svc := testutil.TestService(t, testutil.TestDB(t))
	return New(svc, testUser), svc
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	handlers := map[string]func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error){
		"search_docs":      srv.searchDocs,
		"read_doc":         srv.readDoc,
		"create_doc":       srv.createDoc,
		"list_docs":        srv.listDocs,
		"get_backlinks":    srv.getBacklinks,
		"get_related":      srv.getRelated,
		"compare_brief":    srv.compareBrief,
		"get_doc_contract": srv.getDocContract,
	}
	h, ok := handlers[name]
	if !ok {
		t.Fatalf("unknown tool: %s", name)
	}
	result, err := h(ctx, req)
	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func createDoc(t *testing.T, srv *Server, args map[string]any) string {
	t.Helper()
	r := callTool(t, srv, "create_doc", args)
	if r.IsError {
		t.Fatalf("create_doc: %s", resultText(r))
	}
	id, ok := strings.CutPrefix(resultText(r), "created: ")
	if !ok {
		t.Fatalf("create result = %q", resultText(r))
	}
	return id
}

func TestCreateAndReadDoc(t *testing.T) {
	srv, _ := testServer(t)

	id := createDoc(t, srv, map[string]any{
		"type":    "note",
		"title":   "Test",
		"content": "# Test\nHello",
		"tags":    []any{"demo"},
	})

	r := callTool(t, srv, "read_doc", map[string]any{"id": id})
	if text := resultText(r); text != "# Test\nHello" {
		t.Errorf("read result = %q", text)
	}
}

func TestCreateDocRejectsLists(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "create_doc", map[string]any{"type": "list", "content": "- [ ] a"})
	if !r.IsError {
		t.Error("expected error for list type")
	}
	r = callTool(t, srv, "create_doc", map[string]any{"type": "note"})
	if !r.IsError {
		t.Error("expected error for missing content")
	}
}

func TestListDocs(t *testing.T) {
	srv, svc := testServer(t)
	createDoc(t, srv, map[string]any{"type": "note", "title": "a", "content": "a"})
	createDoc(t, srv, map[string]any{"type": "brief", "title": "b", "content": "b"})
	if _, err := svc.Create(context.Background(), testUser, &models.Record{Type: models.TypeList, Title: "c"}); err != nil {
		t.Fatal(err)
	}

	if lines := strings.Split(resultText(callTool(t, srv, "list_docs", map[string]any{})), "\n"); len(lines) != 3 {
		t.Errorf("list = %d lines, want 3", len(lines))
	}
	text := resultText(callTool(t, srv, "list_docs", map[string]any{"type": "brief"}))
	if !strings.Contains(text, "\tbrief\tb") || strings.Contains(text, "\tnote\t") {
		t.Errorf("brief list = %q", text)
	}
}

func TestReadDocMissing(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "read_doc", map[string]any{"id": "nope"})
	if !r.IsError {
		t.Error("expected error for missing doc")
	}
	if text := resultText(r); text != "not found: nope" {
		t.Errorf("error text = %q", text)
	}
}

func TestSearchDocs(t *testing.T) {
	srv, _ := testServer(t)
	createDoc(t, srv, map[string]any{"type": "note", "title": "Rates outlook", "content": "bonds"})
	createDoc(t, srv, map[string]any{"type": "note", "title": "Groceries", "content": "milk"})

	text := resultText(callTool(t, srv, "search_docs", map[string]any{"query": "BONDS"}))
	if !strings.Contains(text, "Rates outlook") || strings.Contains(text, "Groceries") {
		t.Errorf("search = %q", text)
	}
	if text := resultText(callTool(t, srv, "search_docs", map[string]any{"query": "zzz"})); text != "no documents found" {
		t.Errorf("empty search = %q", text)
	}
}

func TestGetBacklinksAndRelated(t *testing.T) {
	srv, _ := testServer(t)
	target := createDoc(t, srv, map[string]any{"type": "note", "title": "Rates", "content": "#macro"})
	linker := createDoc(t, srv, map[string]any{"type": "note", "title": "Weekly", "content": "see Rates #macro"})

	text := resultText(callTool(t, srv, "get_backlinks", map[string]any{"id": target}))
	if !strings.HasPrefix(text, linker+"\tWeekly\t") {
		t.Errorf("backlinks = %q", text)
	}
	if text := resultText(callTool(t, srv, "get_backlinks", map[string]any{"id": linker})); text != "no backlinks found" {
		t.Errorf("backlinks of linker = %q", text)
	}

	text = resultText(callTool(t, srv, "get_related", map[string]any{"id": target}))
	if !strings.Contains(text, `"title": "Weekly"`) || !strings.Contains(text, "macro") {
		t.Errorf("related = %q", text)
	}
}

func TestCompareBrief(t *testing.T) {
	srv, _ := testServer(t)
	first := createDoc(t, srv, map[string]any{"type": "brief", "content": "---\ntitle: Brief\ndate: 2024-03-08\n---\n- BTC: 60,000"})
	second := createDoc(t, srv, map[string]any{"type": "brief", "content": "---\ntitle: Brief\ndate: 2024-03-09\n---\n- BTC: 61,500"})

	if text := resultText(callTool(t, srv, "compare_brief", map[string]any{"id": first})); text != "no earlier brief to compare with" {
		t.Errorf("first brief = %q", text)
	}
	text := resultText(callTool(t, srv, "compare_brief", map[string]any{"id": second}))
	if !strings.Contains(text, `"label": "BTC"`) || !strings.Contains(text, `"delta": 1500`) {
		t.Errorf("comparison = %q", text)
	}
}

func TestDocContract(t *testing.T) {
	srv, _ := testServer(t)
	text := resultText(callTool(t, srv, "get_doc_contract", nil))
	if !strings.HasPrefix(text, "# The Dock Document Format Contract") {
		t.Errorf("contract = %q", text[:min(len(text), 40)])
	}

	contents, err := srv.readContractResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil || len(contents) != 1 {
		t.Fatalf("resource = %v, %v", contents, err)
	}
	if tc, ok := contents[0].(mcp.TextResourceContents); !ok || tc.URI != contractURI {
		t.Errorf("resource contents = %+v", contents[0])
	}
}
