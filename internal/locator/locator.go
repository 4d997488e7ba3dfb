// internal/locator/locator.go
package locator

import (
	"context"
	"errors"
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/webpilot/api/schemas"
	"github.com/xkilldash9x/webpilot/internal/config"
)

// ErrNotFound is returned when no node clears the acceptance threshold.
var ErrNotFound = errors.New("no element matches the description")

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// maxSourceChars caps each text shipped back from the page. Longer texts are
// cut and carry precomputed token hits instead.
const maxSourceChars = 300

// collectScript gathers visible interactive or labelled nodes in document
// order. Only nodes with an exact match or at least one token hit are
// returned; any other node could score no more than the length bonus.
const collectScript = `(function(query, tokens, maxChars) {
	const selector = 'a, button, input, textarea, select, img[alt], div, span, ' +
		'[role="button"], [role="link"], [role="checkbox"], [data-tooltip], ' +
		'[aria-label], [title], [placeholder], [id^=":"]';
	const limit = Math.max(maxChars, query.length);
	const absolutePath = (node) => {
		const steps = [];
		for (; node && node.nodeType === Node.ELEMENT_NODE; node = node.parentNode) {
			let index = 1;
			for (let sib = node.previousElementSibling; sib; sib = sib.previousElementSibling) {
				if (sib.nodeName === node.nodeName) index++;
			}
			steps.unshift(node.nodeName.toLowerCase() + '[' + index + ']');
		}
		return '/' + steps.join('/');
	};
	const found = [];
	document.querySelectorAll(selector).forEach((el) => {
		if (!el.offsetParent && el.tagName !== 'INPUT') return;
		const raw = [
			['innerText', el.innerText],
			['textContent', el.textContent],
			['aria-label', el.getAttribute('aria-label')],
			['title', el.getAttribute('title')],
			['data-tooltip', el.getAttribute('data-tooltip')],
			['alt', el.getAttribute('alt')],
			['placeholder', el.getAttribute('placeholder')],
			['id', el.id],
		];
		const sources = [];
		let relevant = false;
		for (const [kind, value] of raw) {
			if (!value) continue;
			const text = String(value).toLowerCase().trim();
			if (!text) continue;
			const hits = [];
			tokens.forEach((t, i) => { if (text.includes(t)) hits.push(i); });
			if (text === query || hits.length > 0) relevant = true;
			const truncated = text.length > limit;
			sources.push({
				kind: kind,
				text: truncated ? text.slice(0, limit) : text,
				length: text.length,
				truncated: truncated,
				tokenHits: truncated ? hits : null,
			});
		}
		if (!relevant) return;
		found.push({
			sources: sources,
			testId: el.getAttribute('data-testid') || '',
			id: el.id || '',
			ariaLabel: el.getAttribute('aria-label') || '',
			path: absolutePath(el),
		});
	});
	return found;
})(%s, %s, %d)`

// Locator finds elements on the active page from a natural-language description.
type Locator struct {
	page   schemas.Page
	scorer Scorer
	cfg    config.LocatorConfig
	logger *zap.Logger
}

// New creates a Locator bound to a page.
func New(page schemas.Page, cfg config.LocatorConfig, logger *zap.Logger) *Locator {
	return &Locator{
		page:   page,
		scorer: NewScorer(cfg),
		cfg:    cfg,
		logger: logger.Named("locator"),
	}
}

// Find returns the best candidate for description, or ErrNotFound.
func (l *Locator) Find(ctx context.Context, description string) (ElementCandidate, error) {
	q := NewQuery(description, l.cfg.MinTokenLength)
	if q.Text == "" {
		return ElementCandidate{}, fmt.Errorf("empty element description")
	}

	script, err := buildCollectScript(q)
	if err != nil {
		return ElementCandidate{}, err
	}

	var cands []Candidate
	if err := l.page.Evaluate(ctx, script, &cands); err != nil {
		return ElementCandidate{}, fmt.Errorf("failed to collect element candidates: %w", err)
	}

	best, ok := l.scorer.Select(cands, q)
	l.logger.Debug("Scored element candidates.",
		zap.String("description", description),
		zap.Int("candidates", len(cands)),
		zap.Bool("found", ok),
		zap.Int("score", best.Score))
	if !ok {
		return ElementCandidate{}, ErrNotFound
	}
	return best, nil
}

func buildCollectScript(q Query) (string, error) {
	tokens := q.Tokens
	if tokens == nil {
		tokens = []string{}
	}
	query, err := json.Marshal(q.Text)
	if err != nil {
		return "", fmt.Errorf("failed to encode query: %w", err)
	}
	toks, err := json.Marshal(tokens)
	if err != nil {
		return "", fmt.Errorf("failed to encode tokens: %w", err)
	}
	return fmt.Sprintf(collectScript, query, toks, maxSourceChars), nil
}
