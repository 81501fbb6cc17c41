package parser

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"

	"github.com/starford/dock/internal/models"
)

var (
	slugStripRe = regexp.MustCompile(`[^\w\s-]`)
	slugSpaceRe = regexp.MustCompile(`\s+`)
)

// Slugify lowercases s, drops characters other than word characters,
// whitespace and hyphens, and joins the remaining words with hyphens.
func Slugify(s string) string {
	s = strings.ToLower(s)
	s = slugStripRe.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	return slugSpaceRe.ReplaceAllString(s, "-")
}

// Rendered is the HTML output of a Markdown document plus its heading outline.
type Rendered struct {
	HTML    string
	Outline []models.OutlineEntry
}

// Renderer converts Markdown to HTML. It is safe for concurrent use.
type Renderer struct {
	md goldmark.Markdown
}

// NewRenderer returns a GFM renderer that highlights fenced code blocks.
func NewRenderer() *Renderer {
	return &Renderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(
				renderer.WithNodeRenderers(util.Prioritized(newCodeBlockRenderer(), 100)),
			),
		),
	}
}

// RenderWithOutline renders content (minus any front matter) and assigns ids
// to level 2 and 3 headings, which are also collected into the outline.
func (r *Renderer) RenderWithOutline(content string) Rendered {
	body := ParseFrontMatter(content).Content
	src := []byte(body)
	doc := r.md.Parser().Parse(text.NewReader(src))

	outline := []models.OutlineEntry{}
	ids := newSlugger()
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		h, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}
		if h.Level != 2 && h.Level != 3 {
			return ast.WalkSkipChildren, nil
		}
		label := plainText(h, src)
		id := ids.next(Slugify(label))
		h.SetAttribute([]byte("id"), []byte(id))
		outline = append(outline, models.OutlineEntry{Level: h.Level, Text: label, ID: id})
		return ast.WalkSkipChildren, nil
	})

	return Rendered{HTML: r.render(src, doc), Outline: outline}
}

// Render converts Markdown to HTML without touching headings.
func (r *Renderer) Render(markdown string) string {
	src := []byte(markdown)
	return r.render(src, r.md.Parser().Parse(text.NewReader(src)))
}

func (r *Renderer) render(src []byte, doc ast.Node) string {
	var buf bytes.Buffer
	if err := r.md.Renderer().Render(&buf, src, doc); err != nil {
		return string(util.EscapeHTML(src))
	}
	return buf.String()
}

// slugger hands out document-unique heading ids: the first use of a slug is
// bare, later ones get "-2", "-3" and so on.
type slugger struct {
	counts map[string]int
	used   map[string]bool
}

func newSlugger() *slugger {
	return &slugger{counts: map[string]int{}, used: map[string]bool{}}
}

func (s *slugger) next(base string) string {
	if base == "" {
		base = "section"
	}
	for {
		s.counts[base]++
		id := base
		if c := s.counts[base]; c > 1 {
			id = fmt.Sprintf("%s-%d", base, c)
		}
		if !s.used[id] {
			s.used[id] = true
			return id
		}
	}
}

func plainText(n ast.Node, src []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.CodeSpan:
			for gc := t.FirstChild(); gc != nil; gc = gc.NextSibling() {
				if txt, ok := gc.(*ast.Text); ok {
					b.Write(txt.Segment.Value(src))
				}
			}
			return ast.WalkSkipChildren, nil
		case *ast.AutoLink:
			b.Write(t.Label(src))
			return ast.WalkSkipChildren, nil
		case *ast.Text:
			b.Write(resolveText(t.Segment.Value(src)))
			if t.SoftLineBreak() || t.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(b.String())
}

// resolveText applies backslash escapes and character references the way
// the HTML renderer does.
func resolveText(v []byte) []byte {
	return util.ResolveEntityNames(util.ResolveNumericReferences(util.UnescapePunctuations(v)))
}

type codeBlockRenderer struct {
	formatter *chromahtml.Formatter
	style     *chroma.Style
}

func newCodeBlockRenderer() *codeBlockRenderer {
	return &codeBlockRenderer{
		formatter: chromahtml.New(chromahtml.TabWidth(4)),
		style:     styles.Get("github"),
	}
}

func (r *codeBlockRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(ast.KindFencedCodeBlock, r.renderFencedCode)
}

func (r *codeBlockRenderer) renderFencedCode(w util.BufWriter, src []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	n := node.(*ast.FencedCodeBlock)

	var code bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		code.Write(seg.Value(src))
	}

	lexer := lexers.Get(string(n.Language(src)))
	if lexer == nil {
		lexer = lexers.Fallback
	}
	tokens, err := chroma.Coalesce(lexer).Tokenise(nil, code.String())
	if err == nil {
		err = r.formatter.Format(w, r.style, tokens)
	}
	if err != nil {
		_, _ = w.WriteString("<pre><code>")
		_, _ = w.Write(util.EscapeHTML(code.Bytes()))
		_, _ = w.WriteString("</code></pre>\n")
	}
	return ast.WalkSkipChildren, nil
}
