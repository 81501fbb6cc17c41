// Package parser extracts front matter and tags from Markdown content and
// renders Markdown and rich-text documents to HTML.
package parser

import (
	"strings"
	"unicode"
)

const delim = "---"

// FrontMatter is the result of splitting a leading key/value block from a document.
// Data values are strings, except "tags" which is a []string.
type FrontMatter struct {
	Data    map[string]any
	Content string
}

// ParseFrontMatter separates a "---" delimited header from the body.
// Input without a complete header is returned unchanged with empty data.
func ParseFrontMatter(raw string) FrontMatter {
	passthrough := FrontMatter{Data: map[string]any{}, Content: raw}

	lines := strings.Split(raw, "\n")
	if len(lines) < 2 || strings.TrimRight(lines[0], "\r") != delim {
		return passthrough
	}

	for i := 1; i < len(lines); i++ {
		if strings.TrimRight(lines[i], "\r") != delim {
			continue
		}
		rest := strings.Join(lines[i+1:], "\n")
		return FrontMatter{
			Data:    parseBlock(lines[1:i]),
			Content: strings.TrimLeftFunc(rest, unicode.IsSpace),
		}
	}

	// No closing delimiter.
	return passthrough
}

func parseBlock(lines []string) map[string]any {
	data := make(map[string]any, len(lines))
	for _, line := range lines {
		line = strings.TrimRight(line, "\r")
		idx := strings.Index(line, ":")
		if idx <= 0 {
			continue
		}
		key := strings.TrimSpace(line[:idx])
		value := strings.TrimSpace(line[idx+1:])
		if key == "" {
			continue
		}
		if key == "tags" {
			data[key] = parseTagList(value)
			continue
		}
		data[key] = unquote(value)
	}
	return data
}

// parseTagList accepts "[a, b]" and "a, b".
func parseTagList(value string) []string {
	value = strings.TrimSpace(value)
	value = strings.TrimPrefix(value, "[")
	value = strings.TrimSuffix(value, "]")

	out := []string{}
	for _, part := range strings.Split(value, ",") {
		part = unquote(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func unquote(s string) string {
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if first == last && (first == '"' || first == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// StringValue returns data[key] when it holds a non-empty string.
func StringValue(data map[string]any, key string) string {
	s, _ := data[key].(string)
	return s
}

// TagsValue returns the parsed "tags" entry, or nil.
func TagsValue(data map[string]any) []string {
	tags, _ := data["tags"].([]string)
	return tags
}

// DeriveTitle returns the front-matter "title" if present, otherwise the first
// H1 heading of body, otherwise an empty string.
func DeriveTitle(data map[string]any, body string) string {
	if t := StringValue(data, "title"); t != "" {
		return t
	}
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}
