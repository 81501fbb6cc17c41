package importer

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/dock/internal/docs"
	"github.com/starford/dock/internal/models"
	"github.com/starford/dock/internal/parser"
	"github.com/starford/dock/internal/store"
)

// Writer is the destination of an export.
type Writer interface {
	Write(path string, content []byte) error
}

type exportFrontMatter struct {
	ID    string          `yaml:"id"`
	Title string          `yaml:"title"`
	Type  models.ItemType `yaml:"type"`
	Tags  []string        `yaml:"tags,flow,omitempty"`
	Draft bool            `yaml:"draft,omitempty"`
}

// typeDirs names the export directory of each record type. The journal and
// brief directories classify back to the same type on import.
var typeDirs = map[models.ItemType]string{
	models.TypeNote:    "notes",
	models.TypeJournal: "journal",
	models.TypeBrief:   "briefs",
	models.TypeList:    "lists",
}

// Export writes every active record of userID to w as markdown and returns
// the number of files written. Vault-sourced records go back to their
// original path unchanged.
func Export(ctx context.Context, st store.Store, userID string, w Writer) (int, error) {
	n := 0
	for offset := 0; ; offset += store.MaxLimit {
		page, err := st.List(ctx, userID, models.Filter{Status: models.StatusActive, Limit: store.MaxLimit, Offset: offset})
		if err != nil {
			return n, fmt.Errorf("importer: export list: %w", err)
		}
		for _, rec := range page {
			p, content, err := Markdown(rec)
			if err != nil {
				return n, err
			}
			if err := w.Write(p, content); err != nil {
				return n, fmt.Errorf("importer: export %s: %w", p, err)
			}
			n++
		}
		if len(page) < store.MaxLimit {
			return n, nil
		}
	}
}

// Markdown renders rec as a markdown file and returns its vault path.
func Markdown(rec models.Record) (string, []byte, error) {
	if src := docs.SourcePath(rec); src != "" && rec.Source == models.SourceVault && rec.Type != models.TypeList {
		return src, []byte(rec.Body), nil
	}

	fm := exportFrontMatter{ID: rec.ID, Title: rec.Title, Type: rec.Type, Tags: rec.Tags, Draft: rec.IsDraft}
	var buf bytes.Buffer
	buf.WriteString("---\n")
	enc := yaml.NewEncoder(&buf)
	if err := enc.Encode(fm); err != nil {
		return "", nil, fmt.Errorf("importer: encode front matter: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", nil, fmt.Errorf("importer: encode front matter: %w", err)
	}
	buf.WriteString("---\n\n")

	switch {
	case rec.Type == models.TypeList:
		for _, it := range rec.Items {
			mark := " "
			if it.Completed {
				mark = "x"
			}
			fmt.Fprintf(&buf, "- [%s] %s\n", mark, it.Text)
		}
	case strings.TrimSpace(rec.Body) == "" && len(rec.ContentJSON) > 0:
		buf.WriteString(parser.RichDocToMarkdown(rec.ContentJSON))
	default:
		buf.WriteString(parser.ParseFrontMatter(rec.Body).Content)
	}

	dir := typeDirs[rec.Type]
	if dir == "" {
		dir = "notes"
	}
	name := parser.Slugify(rec.Title)
	if name == "" {
		name = "untitled"
	}
	return fmt.Sprintf("%s/%s-%s.md", dir, name, shortID(rec.ID)), buf.Bytes(), nil
}

func shortID(id string) string {
	id = strings.TrimPrefix(id, "vault-")
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
