package relations

import "strings"

// Snippet window sizes, in characters.
const (
	DefaultSnippetLen = 120
	snippetBefore     = 40
	snippetAfter      = 60
	ellipsis          = "…"
)

// BuildSnippet returns a short excerpt of content around the first
// case-insensitive occurrence of needle. Without a match it returns the first
// maxLen characters. Ellipses mark the sides where content was cut.
func BuildSnippet(content, needle string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = DefaultSnippetLen
	}
	runes := []rune(content)

	idx, n := indexFold(runes, []rune(needle))
	if idx < 0 {
		if len(runes) > maxLen {
			runes = runes[:maxLen]
		}
		return strings.TrimSpace(string(runes))
	}

	start := max(0, idx-snippetBefore)
	end := min(len(runes), idx+n+snippetAfter)

	var b strings.Builder
	if start > 0 {
		b.WriteString(ellipsis)
	}
	b.WriteString(strings.TrimSpace(string(runes[start:end])))
	if end < len(runes) {
		b.WriteString(ellipsis)
	}
	return b.String()
}

// indexFold finds needle in haystack ignoring case, returning the rune offset
// and the matched length.
func indexFold(haystack, needle []rune) (int, int) {
	n := len(needle)
	if n == 0 {
		return -1, 0
	}
	for i := 0; i+n <= len(haystack); i++ {
		if strings.EqualFold(string(haystack[i:i+n]), string(needle)) {
			return i, n
		}
	}
	return -1, 0
}
