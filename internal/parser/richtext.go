package parser

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	// Characters that start inline Markdown constructs.
	inlineEscaper = strings.NewReplacer(
		`\`, `\\`, "`", "\\`", "*", `\*`, "_", `\_`, "[", `\[`, "]", `\]`,
		"#", `\#`, "<", `\<`, ">", `\>`, "~", `\~`, "|", `\|`, "&", `\&`,
	)
	// An ordered list marker at the start of a line.
	blockStartRe = regexp.MustCompile(`^( *)(\d{1,9})([.)])`)
	hrefEscaper  = strings.NewReplacer(" ", "%20", "(", "%28", ")", "%29", "<", "%3C", ">", "%3E")
)

// RenderRichDoc renders a TipTap/ProseMirror JSON document to HTML.
// The tree is first converted to Markdown; unknown nodes contribute their children.
func (r *Renderer) RenderRichDoc(doc map[string]any) string {
	return r.Render(RichDocToMarkdown(doc))
}

// RichDocToMarkdown converts a TipTap/ProseMirror JSON document to Markdown.
func RichDocToMarkdown(doc map[string]any) string {
	if doc == nil {
		return ""
	}
	var b strings.Builder
	for _, child := range children(doc) {
		convertNode(&b, child, "")
	}
	return strings.TrimSpace(b.String())
}

func children(node map[string]any) []map[string]any {
	raw, _ := node["content"].([]any)
	out := make([]map[string]any, 0, len(raw))
	for _, c := range raw {
		if m, ok := c.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

func attr(node map[string]any, key string) any {
	attrs, _ := node["attrs"].(map[string]any)
	return attrs[key]
}

func convertNode(b *strings.Builder, node map[string]any, indent string) {
	nodeType, _ := node["type"].(string)

	switch nodeType {
	case "heading":
		level := 1
		if l, ok := attr(node, "level").(float64); ok && l >= 1 && l <= 6 {
			level = int(l)
		}
		b.WriteString(indent + strings.Repeat("#", level) + " ")
		inline(b, children(node))
		b.WriteString("\n\n")
	case "paragraph":
		b.WriteString(indent)
		b.WriteString(inlineBlock(children(node)))
		b.WriteString("\n\n")
	case "bulletList":
		for _, item := range children(node) {
			listItem(b, item, indent, "- ")
		}
		b.WriteString("\n")
	case "orderedList":
		start := 1
		if s, ok := attr(node, "start").(float64); ok && s > 0 {
			start = int(s)
		}
		for i, item := range children(node) {
			listItem(b, item, indent, fmt.Sprintf("%d. ", start+i))
		}
		b.WriteString("\n")
	case "taskList":
		for _, item := range children(node) {
			marker := "- [ ] "
			if checked, _ := attr(item, "checked").(bool); checked {
				marker = "- [x] "
			}
			listItem(b, item, indent, marker)
		}
		b.WriteString("\n")
	case "codeBlock":
		lang, _ := attr(node, "language").(string)
		b.WriteString(indent + "```" + lang + "\n")
		for _, c := range children(node) {
			if t, ok := c["text"].(string); ok {
				b.WriteString(t)
			}
		}
		b.WriteString("\n" + indent + "```\n\n")
	case "blockquote":
		var inner strings.Builder
		for _, c := range children(node) {
			convertNode(&inner, c, "")
		}
		for _, line := range strings.Split(strings.TrimRight(inner.String(), "\n"), "\n") {
			b.WriteString(indent + "> " + line + "\n")
		}
		b.WriteString("\n")
	case "horizontalRule":
		b.WriteString(indent + "---\n\n")
	case "hardBreak":
		b.WriteString("  \n")
	case "text":
		inline(b, []map[string]any{node})
	default:
		for _, c := range children(node) {
			convertNode(b, c, indent)
		}
	}
}

// listItem writes the first paragraph after marker and nests the rest.
func listItem(b *strings.Builder, item map[string]any, indent, marker string) {
	b.WriteString(indent + marker)
	nested := indent + strings.Repeat(" ", len(marker))
	first := true
	for _, c := range children(item) {
		t, _ := c["type"].(string)
		if first && t == "paragraph" {
			b.WriteString(inlineBlock(children(c)))
			b.WriteString("\n")
			first = false
			continue
		}
		if first {
			b.WriteString("\n")
			first = false
		}
		var sub strings.Builder
		convertNode(&sub, c, nested)
		b.WriteString(strings.TrimRight(sub.String(), "\n") + "\n")
	}
	if first {
		b.WriteString("\n")
	}
}

func inline(b *strings.Builder, nodes []map[string]any) {
	for _, n := range nodes {
		switch n["type"] {
		case "text":
			t, _ := n["text"].(string)
			marks, _ := n["marks"].([]any)
			b.WriteString(applyMarks(t, marks))
		case "hardBreak":
			b.WriteString("  \n")
		default:
			inline(b, children(n))
		}
	}
}

// inlineBlock renders nodes as the text of one block, escaping line starts
// that Markdown would read as block syntax.
func inlineBlock(nodes []map[string]any) string {
	var b strings.Builder
	inline(&b, nodes)
	lines := strings.Split(b.String(), "\n")
	for i, line := range lines {
		lines[i] = escapeLineStart(line)
	}
	return strings.Join(lines, "\n")
}

func escapeLineStart(line string) string {
	if m := blockStartRe.FindStringSubmatchIndex(line); m != nil {
		// Ordered list marker: escape the delimiter.
		return line[:m[6]] + `\` + line[m[6]:]
	}
	trimmed := strings.TrimLeft(line, " ")
	if trimmed == "" {
		return line
	}
	switch trimmed[0] {
	case '-', '+', '=':
		return line[:len(line)-len(trimmed)] + `\` + trimmed
	}
	return line
}

func applyMarks(text string, marks []any) string {
	code := false
	for _, m := range marks {
		if mark, ok := m.(map[string]any); ok && mark["type"] == "code" {
			code = true
		}
	}
	out := inlineEscaper.Replace(text)
	if code {
		out = codeSpan(text)
	}
	for _, m := range marks {
		mark, ok := m.(map[string]any)
		if !ok {
			continue
		}
		switch mark["type"] {
		case "bold":
			out = "**" + out + "**"
		case "italic":
			out = "*" + out + "*"
		case "strike":
			out = "~~" + out + "~~"
		case "link":
			if href, ok := attr(mark, "href").(string); ok && href != "" {
				out = "[" + out + "](" + hrefEscaper.Replace(href) + ")"
			}
		}
	}
	return out
}

// codeSpan wraps text in a backtick fence longer than any run inside it.
func codeSpan(text string) string {
	longest, run := 0, 0
	for _, r := range text {
		if r == '`' {
			run++
			longest = max(longest, run)
		} else {
			run = 0
		}
	}
	fence := strings.Repeat("`", longest+1)
	if strings.HasPrefix(text, "`") || strings.HasSuffix(text, "`") {
		text = " " + text + " "
	}
	return fence + text + fence
}
