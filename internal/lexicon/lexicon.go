// Package lexicon holds the keyword tables the risk classifier matches
// against: category phrase lists, exclusion patterns for idiomatic false
// positives, and the merge step that folds in an optional externally
// generated extension dataset.
package lexicon

import (
	"fmt"
	"regexp"
	"sort"
)

// Lexicon is an immutable category->phrase table plus exclusion patterns.
// Construct once at startup via Merge (or use Base directly); safe for
// unbounded concurrent reads afterwards.
type Lexicon struct {
	order      []string
	categories map[string][]string
	exclusions []*regexp.Regexp
}

// Extension is an externally supplied addition to the base lexicon, e.g. a
// culturally expanded euphemism list. The zero value is a valid empty
// extension.
type Extension struct {
	Categories map[string][]string `yaml:"categories"`
	Exclusions []string            `yaml:"exclusions"`
}

// Base returns the built-in conservative lexicon.
func Base() *Lexicon {
	lex := &Lexicon{categories: make(map[string][]string)}
	for _, c := range baseCategories {
		lex.order = append(lex.order, c.name)
		lex.categories[c.name] = append([]string(nil), c.phrases...)
	}
	lex.exclusions = append(lex.exclusions, baseExclusions...)
	return lex
}

// Merge returns a lexicon whose phrase lists are base's lists with the
// extension's entries appended; exclusion lists are concatenated the same
// way. Duplicates are kept here and dropped at lookup time. A nil or empty
// extension yields a copy of base. Invalid exclusion patterns fail the
// merge: extension data is validated at this boundary, not trusted.
func Merge(base *Lexicon, ext *Extension) (*Lexicon, error) {
	merged := &Lexicon{
		order:      append([]string(nil), base.order...),
		categories: make(map[string][]string, len(base.categories)),
	}
	for name, phrases := range base.categories {
		merged.categories[name] = append([]string(nil), phrases...)
	}
	merged.exclusions = append(merged.exclusions, base.exclusions...)

	if ext == nil {
		return merged, nil
	}

	// Extension categories append in base order first, then any new
	// categories, keeping merge output deterministic.
	for _, name := range merged.order {
		merged.categories[name] = append(merged.categories[name], ext.Categories[name]...)
	}
	newNames := make([]string, 0, len(ext.Categories))
	for name := range ext.Categories {
		if _, known := merged.categories[name]; !known {
			newNames = append(newNames, name)
		}
	}
	sort.Strings(newNames)
	for _, name := range newNames {
		merged.order = append(merged.order, name)
		merged.categories[name] = append([]string(nil), ext.Categories[name]...)
	}

	for _, pattern := range ext.Exclusions {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("compile exclusion pattern %q: %w", pattern, err)
		}
		merged.exclusions = append(merged.exclusions, re)
	}

	return merged, nil
}

// Categories returns category names in deterministic order: base
// categories first, extension-only categories after, each in insertion
// order.
func (l *Lexicon) Categories() []string {
	return append([]string(nil), l.order...)
}

// Phrases returns the category's phrases with duplicates removed,
// preserving first-occurrence order.
func (l *Lexicon) Phrases(category string) []string {
	raw := l.categories[category]
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, p := range raw {
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

// PhraseCount returns the total number of phrases across all categories,
// duplicates included.
func (l *Lexicon) PhraseCount() int {
	n := 0
	for _, phrases := range l.categories {
		n += len(phrases)
	}
	return n
}

// ExcludedContext reports whether any exclusion pattern matches the text.
// The test runs against the original-case input so patterns can anchor on
// casing if they need to.
func (l *Lexicon) ExcludedContext(text string) bool {
	for _, re := range l.exclusions {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// ExclusionCount returns the number of exclusion patterns.
func (l *Lexicon) ExclusionCount() int {
	return len(l.exclusions)
}
