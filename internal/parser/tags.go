package parser

import (
	"regexp"
	"strings"
)

var (
	// A hash only starts a tag at the start of input or after whitespace,
	// so fragments inside URLs and words are skipped.
	tagRe       = regexp.MustCompile(`(?:^|\s)#([A-Za-z0-9_-]+)`)
	checklistRe = regexp.MustCompile(`^\s*[-*] \[( |x|X)\] (.+)$`)
)

// ExtractInlineTags returns the #tags found in content, without the leading hash.
func ExtractInlineTags(content string) []string {
	matches := tagRe.FindAllStringSubmatch(content, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m[1])
	}
	return out
}

// UniqueTags removes case-insensitive duplicates and empty entries,
// keeping the first-seen casing and the original order.
func UniqueTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		key := strings.ToLower(t)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	return out
}

// ChecklistLine is one "- [ ] text" or "- [x] text" line.
type ChecklistLine struct {
	Text      string
	Completed bool
}

// ParseChecklist returns the task-list lines of content in document order.
func ParseChecklist(content string) []ChecklistLine {
	var out []ChecklistLine
	for _, line := range strings.Split(content, "\n") {
		m := checklistRe.FindStringSubmatch(strings.TrimRight(line, "\r"))
		if m == nil {
			continue
		}
		text := strings.TrimSpace(m[2])
		if text == "" {
			continue
		}
		out = append(out, ChecklistLine{Text: text, Completed: m[1] != " "})
	}
	return out
}
