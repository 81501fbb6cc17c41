// Package docs turns stored records into canonical documents and lists and
// derives sorted, grouped and filtered collections from them.
// Every function is pure: inputs are never mutated.
package docs

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/starford/dock/internal/checklist"
	"github.com/starford/dock/internal/models"
	"github.com/starford/dock/internal/parser"
)

// DefaultTitle is used when neither the record nor its front matter names a title.
const DefaultTitle = "Untitled"

// MarkdownRenderer renders Markdown bodies with a heading outline.
type MarkdownRenderer interface {
	RenderWithOutline(content string) parser.Rendered
}

// RichRenderer renders a structured rich-text document to HTML.
type RichRenderer func(doc map[string]any) string

// Builder normalizes records into Docs.
type Builder struct {
	Markdown MarkdownRenderer
	Rich     RichRenderer
}

// NewBuilder returns a Builder that renders both Markdown and rich text with r.
func NewBuilder(r *parser.Renderer) *Builder {
	return &Builder{Markdown: r, Rich: r.RenderRichDoc}
}

// Build produces the canonical Doc for rec.
//
// A non-empty ContentJSON takes precedence over Body as the rendering source:
// HTML comes from the rich renderer and the outline is empty.
func (b *Builder) Build(rec models.Record) models.Doc {
	fm := parser.ParseFrontMatter(rec.Body)

	title := strings.TrimSpace(rec.Title)
	if title == "" {
		title = parser.StringValue(fm.Data, "title")
	}
	if title == "" {
		title = DefaultTitle
	}

	var tags []string
	tags = append(tags, rec.Tags...)
	tags = append(tags, parser.TagsValue(fm.Data)...)
	tags = append(tags, parser.ExtractInlineTags(fm.Content)...)

	typ := Classify(rec)

	doc := models.Doc{
		ID:          rec.ID,
		Path:        fmt.Sprintf("%s:%s/%s", sourceOf(rec), typ, rec.ID),
		Slug:        fmt.Sprintf("%s / %s", typ, title),
		Title:       title,
		Type:        typ,
		Content:     rec.Body,
		Tags:        parser.UniqueTags(tags),
		FrontMatter: fm.Data,
		Meta:        rec.Meta,
		IsDraft:     rec.IsDraft,
		CreatedAt:   timePtr(rec.CreatedAt),
		UpdatedAt:   timePtr(rec.UpdatedAt),
	}

	if len(rec.ContentJSON) > 0 && b.Rich != nil {
		doc.ContentJSON = rec.ContentJSON
		doc.HTML = b.Rich(rec.ContentJSON)
		doc.Outline = []models.OutlineEntry{}
		return doc
	}

	rendered := b.Markdown.RenderWithOutline(rec.Body)
	doc.HTML = rendered.HTML
	doc.Outline = rendered.Outline
	return doc
}

// BuildAll normalizes every non-list record, preserving order.
func (b *Builder) BuildAll(recs []models.Record) []models.Doc {
	out := make([]models.Doc, 0, len(recs))
	for _, r := range recs {
		if r.Type == models.TypeList {
			continue
		}
		out = append(out, b.Build(r))
	}
	return out
}

// Classify returns the document type of rec. An explicit note, journal or
// brief type wins; otherwise the vault location decides.
func Classify(rec models.Record) models.ItemType {
	switch rec.Type {
	case models.TypeNote, models.TypeJournal, models.TypeBrief:
		return rec.Type
	}
	return ClassifyPath(SourcePath(rec))
}

// ClassifyPath maps a vault-relative file path to a document type.
func ClassifyPath(p string) models.ItemType {
	dir := strings.ToLower(strings.SplitN(path.Clean(strings.ReplaceAll(p, "\\", "/")), "/", 2)[0])
	switch dir {
	case "journal", "journals":
		return models.TypeJournal
	case "brief", "briefs":
		return models.TypeBrief
	}
	return models.TypeNote
}

// SourcePath returns the vault-relative path recorded in rec.Meta, if any.
func SourcePath(rec models.Record) string {
	p, _ := rec.Meta[MetaSourcePath].(string)
	return p
}

// Meta keys written by the vault importer.
const (
	MetaSourcePath = "source_path"
	MetaChecksum   = "checksum"
)

// BuildList produces the canonical ListEntity for rec.
func BuildList(rec models.Record) models.ListEntity {
	title := strings.TrimSpace(rec.Title)
	if title == "" {
		title = DefaultTitle
	}
	return models.ListEntity{
		ID:        rec.ID,
		Title:     title,
		Items:     checklist.Normalize(rec.Items),
		Tags:      parser.UniqueTags(rec.Tags),
		CreatedAt: timePtr(rec.CreatedAt),
		UpdatedAt: timePtr(rec.UpdatedAt),
	}
}

// BuildLists converts every list record, preserving order.
func BuildLists(recs []models.Record) []models.ListEntity {
	out := make([]models.ListEntity, 0)
	for _, r := range recs {
		if r.Type == models.TypeList {
			out = append(out, BuildList(r))
		}
	}
	return out
}

func sourceOf(rec models.Record) string {
	if rec.Source == "" {
		return models.SourceStore
	}
	return rec.Source
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
