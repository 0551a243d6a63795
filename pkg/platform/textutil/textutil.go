// Package textutil holds small string helpers shared by parsers and services.
package textutil

import (
	"strings"
	"unicode"
)

// CollapseSpace trims s and folds every run of Unicode whitespace (including
// non-breaking spaces) into a single ASCII space.
func CollapseSpace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			space = true
			continue
		}
		if space && b.Len() > 0 {
			b.WriteByte(' ')
		}
		space = false
		b.WriteRune(r)
	}
	return b.String()
}

// DedupeFold trims values, drops empties and removes case-insensitive
// duplicates. The first spelling wins and order is preserved.
func DedupeFold(values []string) []string {
	if len(values) == 0 {
		return values
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		key := strings.ToLower(v)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	return out
}

// SplitList splits a comma separated list and applies DedupeFold.
func SplitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return DedupeFold(strings.Split(s, ","))
}
