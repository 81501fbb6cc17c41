// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes The Dock tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/dock/internal/apperr"
	"github.com/starford/dock/internal/dock"
	"github.com/starford/dock/internal/docs"
	"github.com/starford/dock/internal/models"
)

const (
	contractURI = "dock://doc-format"
	searchLimit = 20
)

// Server wraps the MCP server with The Dock tools. Every tool acts on the
// records of a single user.
type Server struct {
	mcp    *server.MCPServer
	svc    *dock.Service
	userID string
}

// New creates a new MCP server with all tools registered.
func New(svc *dock.Service, userID string) *Server {
	s := &Server{svc: svc, userID: userID}

	s.mcp = server.NewMCPServer(
		"The Dock",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_docs",
		mcp.WithDescription("Case-insensitive search through document titles and content."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchDocs)

	s.mcp.AddTool(mcp.NewTool("read_doc",
		mcp.WithDescription("Read the Markdown content of a note, journal entry or brief."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Document id")),
	), s.readDoc)

	s.mcp.AddTool(mcp.NewTool("create_doc",
		mcp.WithDescription("Create a note, journal entry or brief. "+
			"Content MUST follow the document format contract. Read it first via "+
			"the get_doc_contract tool or the "+contractURI+" resource."),
		mcp.WithString("type", mcp.Required(), mcp.Enum("note", "journal", "brief"), mcp.Description("Document type")),
		mcp.WithString("title", mcp.Description("Title; derived from front matter when empty")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Markdown content following the contract")),
		mcp.WithArray("tags", mcp.WithStringItems(), mcp.Description("Optional tags")),
	), s.createDoc)

	s.mcp.AddTool(mcp.NewTool("get_doc_contract",
		mcp.WithDescription("Returns the document format contract. "+
			"Call this before creating documents to ensure correct structure."),
	), s.getDocContract)

	s.mcp.AddTool(mcp.NewTool("list_docs",
		mcp.WithDescription("List active records, most recently updated first."),
		mcp.WithString("type", mcp.Enum("note", "journal", "brief", "list"), mcp.Description("Optional record type")),
	), s.listDocs)

	s.mcp.AddTool(mcp.NewTool("get_backlinks",
		mcp.WithDescription("Find documents whose content mentions the title of the given document."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Document id")),
	), s.getBacklinks)

	s.mcp.AddTool(mcp.NewTool("get_related",
		mcp.WithDescription("Find documents sharing tags with the given document, best matches first."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Document id")),
	), s.getRelated)

	s.mcp.AddTool(mcp.NewTool("compare_brief",
		mcp.WithDescription("Compare market lines of a brief with the previous brief."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Brief id")),
	), s.compareBrief)

	s.mcp.AddResource(
		mcp.NewResource(contractURI, "Document Format Contract",
			mcp.WithResourceDescription("Markdown format that documents must follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readContractResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// docSummary is the compact listing form of a record or document.
type docSummary struct {
	ID        string          `json:"id"`
	Type      models.ItemType `json:"type"`
	Title     string          `json:"title"`
	Path      string          `json:"path,omitempty"`
	Tags      []string        `json:"tags,omitempty"`
	UpdatedAt string          `json:"updatedAt,omitempty"`
}

func summarize(d models.Doc) docSummary {
	s := docSummary{ID: d.ID, Type: d.Type, Title: d.Title, Path: d.Path, Tags: d.Tags}
	if t := d.Date(); t != nil {
		s.UpdatedAt = t.Format("2006-01-02T15:04:05Z07:00")
	}
	return s
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func errorResult(id string, err error) *mcp.CallToolResult {
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id))
	}
	return mcp.NewToolResultError(err.Error())
}

func (s *Server) searchDocs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	all, err := s.svc.Docs(ctx, s.userID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var results []docSummary
	for _, d := range docs.Filter(all, query) {
		if len(results) == searchLimit {
			break
		}
		results = append(results, summarize(d))
	}
	if len(results) == 0 {
		return mcp.NewToolResultText("no documents found"), nil
	}
	return jsonResult(results)
}

func (s *Server) readDoc(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	d, err := s.svc.Doc(ctx, s.userID, id)
	if err != nil {
		return errorResult(id, err), nil
	}
	return mcp.NewToolResultText(d.Content), nil
}

func (s *Server) createDoc(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	typ, err := req.RequireString("type")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if models.ItemType(typ) == models.TypeList {
		return mcp.NewToolResultError("lists cannot be created from Markdown content"), nil
	}

	id, err := s.svc.Create(ctx, s.userID, &models.Record{
		Type:  models.ItemType(typ),
		Title: req.GetString("title", ""),
		Body:  content,
		Tags:  req.GetStringSlice("tags", nil),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", id)), nil
}

func (s *Server) listDocs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	recs, err := s.svc.List(ctx, s.userID, models.Filter{
		Type:   models.ItemType(req.GetString("type", "")),
		Status: models.StatusActive,
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	lines := make([]string, 0, len(recs))
	for _, r := range recs {
		lines = append(lines, fmt.Sprintf("%s\t%s\t%s", r.ID, r.Type, r.Title))
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) getDocContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(DocFormatContract), nil
}

func (s *Server) readContractResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      contractURI,
			MIMEType: "text/markdown",
			Text:     DocFormatContract,
		},
	}, nil
}

func (s *Server) insight(ctx context.Context, req mcp.CallToolRequest) (*dock.Insight, *mcp.CallToolResult) {
	id, err := req.RequireString("id")
	if err != nil {
		return nil, mcp.NewToolResultError(err.Error())
	}
	in, err := s.svc.Insight(ctx, s.userID, id)
	if err != nil {
		return nil, errorResult(id, err)
	}
	return in, nil
}

func (s *Server) getBacklinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	in, res := s.insight(ctx, req)
	if res != nil {
		return res, nil
	}
	if len(in.Backlinks) == 0 {
		return mcp.NewToolResultText("no backlinks found"), nil
	}
	lines := make([]string, 0, len(in.Backlinks))
	for _, bl := range in.Backlinks {
		lines = append(lines, fmt.Sprintf("%s\t%s\t%s", bl.Doc.ID, bl.Doc.Title, bl.Snippet))
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) getRelated(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	in, res := s.insight(ctx, req)
	if res != nil {
		return res, nil
	}
	if len(in.Related) == 0 {
		return mcp.NewToolResultText("no related documents found"), nil
	}
	type related struct {
		docSummary
		Overlap []string `json:"overlap"`
	}
	out := make([]related, 0, len(in.Related))
	for _, r := range in.Related {
		out = append(out, related{docSummary: summarize(r.Doc), Overlap: r.Overlap})
	}
	return jsonResult(out)
}

func (s *Server) compareBrief(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	in, res := s.insight(ctx, req)
	if res != nil {
		return res, nil
	}
	if in.Brief == nil {
		return mcp.NewToolResultText("no earlier brief to compare with"), nil
	}
	return jsonResult(in.Brief.Rows)
}
