// Package detector implements the crisis risk classification pipeline:
// deterministic keyword matching, optional model-augmented refinement, and
// the final crisis assessment.
package detector

import (
	"math"
	"regexp"
	"strings"
	"unicode"

	ahocorasick "github.com/cloudflare/ahocorasick"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/havenmind/safeguard/internal/domain"
	"github.com/havenmind/safeguard/internal/lexicon"
)

// Each additional match in a category contributes weight*0.8, capped at
// the category weight. Diminishing returns keep repeated phrasing from
// inflating the score past the category ceiling.
const matchDiminishFactor = 0.8

// KeywordClassifier scans text against the lexicon. Pure and stateless per
// call: no I/O, same input always yields the same output. Safe for any
// number of concurrent callers.
type KeywordClassifier struct {
	lex      *lexicon.Lexicon
	matcher  *ahocorasick.Matcher
	keywords []string
	entries  []phraseEntry
	byKey    map[string][]int // normalized keyword -> entry indexes
}

type phraseEntry struct {
	category string
	phrase   string // normalized phrase, also the reported indicator
	boundary *regexp.Regexp
}

// NewKeywordClassifier builds the matcher state from the lexicon. Phrases
// containing whitespace match by substring containment; single tokens get
// a word-boundary pattern so "kill" cannot match inside "skilled".
func NewKeywordClassifier(lex *lexicon.Lexicon) *KeywordClassifier {
	c := &KeywordClassifier{
		lex:   lex,
		byKey: make(map[string][]int),
	}

	for _, category := range lex.Categories() {
		for _, phrase := range lex.Phrases(category) {
			normalized := normalizeText(phrase)
			if normalized == "" {
				continue
			}
			entry := phraseEntry{category: category, phrase: normalized}
			if !strings.ContainsAny(normalized, " \t") {
				entry.boundary = regexp.MustCompile(`\b` + regexp.QuoteMeta(normalized) + `\b`)
			}
			idx := len(c.entries)
			c.entries = append(c.entries, entry)
			if _, seen := c.byKey[normalized]; !seen {
				c.keywords = append(c.keywords, normalized)
			}
			c.byKey[normalized] = append(c.byKey[normalized], idx)
		}
	}

	if len(c.keywords) > 0 {
		c.matcher = ahocorasick.NewStringMatcher(c.keywords)
	}

	return c
}

// Classify scans the text and returns a bounded risk score with the
// matched indicator phrases. The automaton does a single O(n) pass as a
// prefilter; only phrases it hits get the exact containment or boundary
// check. Before a match is accepted, the original-case text is tested
// against the exclusion patterns; an excluded context suppresses the
// match entirely.
func (c *KeywordClassifier) Classify(text string) *domain.Detection {
	det := &domain.Detection{
		Indicators: []string{},
		Categories: make(map[string][]string),
	}
	if strings.TrimSpace(text) == "" || c.matcher == nil {
		return det
	}

	lowered := normalizeText(text)
	excluded := c.lex.ExcludedContext(text)

	hitSet := make(map[string]struct{})
	for _, hit := range c.matcher.Match([]byte(lowered)) {
		if hit < len(c.keywords) {
			hitSet[c.keywords[hit]] = struct{}{}
		}
	}
	if len(hitSet) == 0 {
		return det
	}

	counts := make(map[string]int)
	seen := make(map[string]struct{})

	// Entries are walked in lexicon order so indicator output is
	// deterministic regardless of automaton hit order.
	for _, entry := range c.entries {
		if _, hit := hitSet[entry.phrase]; !hit {
			continue
		}
		if entry.boundary != nil {
			if !entry.boundary.MatchString(lowered) {
				continue
			}
		} else if !strings.Contains(lowered, entry.phrase) {
			continue
		}
		if excluded {
			continue
		}

		counts[entry.category]++
		det.Categories[entry.category] = append(det.Categories[entry.category], entry.phrase)
		if _, dup := seen[entry.phrase]; !dup {
			seen[entry.phrase] = struct{}{}
			det.Indicators = append(det.Indicators, entry.phrase)
		}
	}

	// The score is the single most severe category's score, not a sum:
	// several mild categories co-occurring must not outrank one severe
	// match. This semantic is load-bearing for clinical safety.
	var maxScore float64
	for category, n := range counts {
		weight := domain.CategoryWeight(category)
		score := math.Min(float64(n)*weight*matchDiminishFactor, weight)
		if score > maxScore {
			maxScore = score
		}
	}
	det.Score = math.Min(maxScore, 1.0)

	return det
}

var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// normalizeText folds diacritics and lowercases, so accented variants of a
// phrase still match.
func normalizeText(text string) string {
	folded, _, err := transform.String(foldTransformer, text)
	if err != nil {
		folded = text
	}
	return strings.ToLower(strings.TrimSpace(folded))
}
