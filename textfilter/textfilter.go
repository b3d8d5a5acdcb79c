// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package textfilter rejects user text containing words from a deny list,
// including common leetspeak spellings of those words.
package textfilter

import (
	_ "embed"
	"strings"
)

//go:embed words.txt
var defaultWords string

// Applied cumulatively, so "ass" also yields "@$$" and "4$5".
var leetSubstitutions = []struct {
	letter string
	subs   []string
}{
	{"a", []string{"@", "4"}},
	{"e", []string{"3"}},
	{"i", []string{"1", "!"}},
	{"o", []string{"0"}},
	{"s", []string{"$", "5"}},
	{"t", []string{"7"}},
}

// symbols that survive tokenization because they appear in leet spellings
const leetSymbols = "@$!"

// Filter is immutable after construction and safe for concurrent use.
type Filter struct {
	banned map[string]struct{}
}

// Field names a piece of text for FirstRejected.
type Field struct {
	Name string
	Text string
}

// New builds a filter from the given words and all their leet variations.
func New(words []string) *Filter {
	f := &Filter{banned: make(map[string]struct{})}
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" {
			continue
		}
		for _, v := range variations(w) {
			f.banned[v] = struct{}{}
		}
	}
	return f
}

// Default returns a filter over the embedded word list.
func Default() *Filter {
	var words []string
	for _, line := range strings.Split(defaultWords, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		words = append(words, line)
	}
	return New(words)
}

// Allowed reports whether text is non-blank and free of banned words.
func (f *Filter) Allowed(text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false
	}

	for _, token := range tokenize(strings.ToLower(trimmed)) {
		if f.isBanned(token) || f.isBanned(strings.Trim(token, leetSymbols)) {
			return false
		}
	}
	return true
}

// FirstRejected returns the name of the first field that is not allowed.
func (f *Filter) FirstRejected(fields ...Field) (string, bool) {
	for _, field := range fields {
		if !f.Allowed(field.Text) {
			return field.Name, true
		}
	}
	return "", false
}

func (f *Filter) isBanned(word string) bool {
	if word == "" {
		return false
	}
	_, ok := f.banned[word]
	return ok
}

func variations(word string) []string {
	seen := map[string]struct{}{word: {}}
	out := []string{word}

	for _, sub := range leetSubstitutions {
		var next []string
		for _, v := range out {
			if !strings.Contains(v, sub.letter) {
				continue
			}
			for _, s := range sub.subs {
				nv := strings.ReplaceAll(v, sub.letter, s)
				if _, ok := seen[nv]; !ok {
					seen[nv] = struct{}{}
					next = append(next, nv)
				}
			}
		}
		out = append(out, next...)
	}
	return out
}

// tokenize splits on everything except letters, digits, underscore and the
// leet symbols.
func tokenize(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			return false
		case strings.ContainsRune(leetSymbols, r):
			return false
		}
		return true
	})
}
