package main

import (
	"encoding/json"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/starford/dock/internal/models"
)

var itemSep = regexp.MustCompile(`;|\n`)

// parseType validates the record type argument.
func parseType(arg string) (models.ItemType, error) {
	t := models.ItemType(strings.ToLower(strings.TrimSpace(arg)))
	if t == "" {
		return "", fmt.Errorf("missing type: one of note, journal, brief, list")
	}
	if !slices.Contains(models.ItemTypes, t) {
		return "", fmt.Errorf("unknown type: %s", arg)
	}
	return t, nil
}

// parseTags splits a comma separated tag list, dropping blanks.
func parseTags(s string) []string {
	out := []string{}
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// parseItems reads list entries from a JSON array of strings or from text
// separated by semicolons or newlines.
func parseItems(s string) ([]models.ListItem, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return []models.ListItem{}, nil
	}
	var texts []string
	if strings.HasPrefix(s, "[") {
		var raw []any
		if err := json.Unmarshal([]byte(s), &raw); err != nil {
			return nil, fmt.Errorf("parse --items: %w", err)
		}
		for _, v := range raw {
			texts = append(texts, fmt.Sprint(v))
		}
	} else {
		texts = itemSep.Split(s, -1)
	}

	items := make([]models.ListItem, 0, len(texts))
	for _, t := range texts {
		if t = strings.TrimSpace(t); t != "" {
			items = append(items, models.ListItem{Text: t})
		}
	}
	return items, nil
}

// sameCollection reports whether a record of type got may be addressed as want.
// Lists and documents are kept apart; document types are interchangeable.
func sameCollection(want, got models.ItemType) bool {
	return (want == models.TypeList) == (got == models.TypeList)
}
