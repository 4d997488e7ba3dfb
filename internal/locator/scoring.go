// internal/locator/scoring.go
package locator

import (
	"strings"
	"unicode/utf8"

	"github.com/xkilldash9x/webpilot/internal/config"
)

// SourceKind names where a candidate text came from.
type SourceKind string

// Text sources, in the order they are read from a node. When two sources of a
// node score the same, the earlier one is reported as the match.
const (
	SourceInnerText   SourceKind = "innerText"
	SourceTextContent SourceKind = "textContent"
	SourceAriaLabel   SourceKind = "aria-label"
	SourceTitle       SourceKind = "title"
	SourceTooltip     SourceKind = "data-tooltip"
	SourceAlt         SourceKind = "alt"
	SourcePlaceholder SourceKind = "placeholder"
	SourceID          SourceKind = "id"
)

// Source is one lowercased, trimmed text of a node. Long texts arrive cut
// short; for those the page reports which query tokens the full text held.
type Source struct {
	Kind      SourceKind `json:"kind"`
	Text      string     `json:"text"`
	Length    int        `json:"length"`
	Truncated bool       `json:"truncated"`
	TokenHits []int      `json:"tokenHits"`
}

// Candidate is a node collected from the page, in document order.
type Candidate struct {
	Sources   []Source `json:"sources"`
	TestID    string   `json:"testId"`
	ID        string   `json:"id"`
	AriaLabel string   `json:"ariaLabel"`
	Path      string   `json:"path"`
}

// Query is a description normalized for matching.
type Query struct {
	Text   string
	Tokens []string
}

// NewQuery lowercases the description and keeps the words of at least
// minTokenLen characters as tokens.
func NewQuery(description string, minTokenLen int) Query {
	text := strings.ToLower(strings.TrimSpace(description))
	var tokens []string
	for _, w := range strings.Fields(text) {
		if utf8.RuneCountInString(w) >= minTokenLen {
			tokens = append(tokens, w)
		}
	}
	return Query{Text: text, Tokens: tokens}
}

// Scorer ranks candidates with the configured weights.
type Scorer struct {
	cfg config.LocatorConfig
}

func NewScorer(cfg config.LocatorConfig) Scorer {
	return Scorer{cfg: cfg}
}

// ScoreSource scores a single text source against the query.
func (s Scorer) ScoreSource(src Source, q Query) int {
	score := 0
	if !src.Truncated && src.Text == q.Text {
		score += s.cfg.ExactBonus
	}

	matched := 0
	if src.Truncated {
		matched = len(src.TokenHits)
	} else {
		for _, tok := range q.Tokens {
			if strings.Contains(src.Text, tok) {
				matched++
			}
		}
	}
	if len(q.Tokens) >= 2 && matched == len(q.Tokens) {
		score += s.cfg.AllTokensBonus
	}
	score += matched * s.cfg.TokenBonus

	length := src.Length
	if length == 0 {
		length = utf8.RuneCountInString(src.Text)
	}
	if length < s.cfg.ShortTextLength {
		score += s.cfg.ShortTextBonus
	}
	return score
}

// Score returns the candidate's best score and the source that produced it.
// The first source wins ties.
func (s Scorer) Score(c Candidate, q Query) (int, Source) {
	best, bestSrc := 0, Source{}
	for _, src := range c.Sources {
		if src.Text == "" && !src.Truncated {
			continue
		}
		if sc := s.ScoreSource(src, q); sc > best {
			best, bestSrc = sc, src
		}
	}
	return best, bestSrc
}

// Select picks the highest scoring candidate at or above the threshold.
// Candidates must be in document order: an equal score never displaces an
// earlier winner. The engine's traversal order is the only tie-break.
func (s Scorer) Select(cands []Candidate, q Query) (ElementCandidate, bool) {
	var (
		winner ElementCandidate
		found  bool
	)
	for _, c := range cands {
		score, src := s.Score(c, q)
		if score < s.cfg.Threshold {
			continue
		}
		if !found || score > winner.Score {
			winner = ElementCandidate{
				Selector:    BuildSelector(c, src),
				MatchedText: src.Text,
				Score:       score,
			}
			found = true
		}
	}
	return winner, found
}
