// internal/extraction/summary.go
package extraction

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/xkilldash9x/webpilot/internal/config"
	"github.com/xkilldash9x/webpilot/internal/llmutil"
)

// Section titles as they appear in the rendered page summary.
const (
	sectionHeadings    = "HEADINGS:"
	sectionInteractive = "INTERACTIVE ELEMENTS:"
	sectionBlocks      = "CONTENT BLOCKS:"
	sectionOther       = "OTHER TEXT:"
	sectionBreak       = "---"
)

// punctuationOnly matches texts made of digits, spacing and punctuation alone,
// such as "12:30 - 14:00" or "• • •".
var punctuationOnly = regexp.MustCompile(`^[\d\s.,;:!?()\[\]{}\\/|\-+•·×]+$`)

// RawHeading is an h1-h3 element as collected from the page.
type RawHeading struct {
	Tag  string `json:"tag"`
	Text string `json:"text"`
}

// RawControl is a visible button, link or form field.
type RawControl struct {
	Tag  string `json:"tag"`
	Type string `json:"type"`
	ID   string `json:"id"`
	Name string `json:"name"`
	Text string `json:"text"`
}

// RawPage is everything the collection script returns, in document order.
type RawPage struct {
	URL      string       `json:"url"`
	Title    string       `json:"title"`
	Headings []RawHeading `json:"headings"`
	Controls []RawControl `json:"controls"`
	Blocks   []string     `json:"blocks"`
	Other    []string     `json:"other"`
}

// Summary is the cleaned, capped, de-duplicated view of a page.
type Summary struct {
	URL           string
	Title         string
	Headings      []string
	Interactive   []string
	ContentBlocks []string
	OtherText     []string
}

// Empty reports whether no section produced any item.
func (s Summary) Empty() bool {
	return len(s.Headings) == 0 && len(s.Interactive) == 0 &&
		len(s.ContentBlocks) == 0 && len(s.OtherText) == 0
}

// Render serializes the summary, one item per line. Empty sections are omitted.
func (s Summary) Render() string {
	lines := []string{
		"URL: " + s.URL,
		"TITLE: " + s.Title,
		sectionBreak,
	}
	add := func(title string, items []string, closing bool) {
		if len(items) == 0 {
			return
		}
		lines = append(lines, title)
		lines = append(lines, items...)
		if closing {
			lines = append(lines, sectionBreak)
		}
	}
	add(sectionHeadings, s.Headings, true)
	add(sectionInteractive, s.Interactive, true)
	add(sectionBlocks, s.ContentBlocks, true)
	add(sectionOther, s.OtherText, false)
	return strings.Join(lines, "\n")
}

// cleaner normalizes item texts and owns the de-duplication set shared by
// every section. Only texts that end up in the summary are remembered, so an
// item rejected by one section's filter can still appear in a later one.
type cleaner struct {
	seen     map[string]struct{}
	min, max int
}

func newCleaner(cfg config.ExtractionConfig) *cleaner {
	return &cleaner{seen: make(map[string]struct{}), min: cfg.MinTextLength, max: cfg.MaxTextLength}
}

// clean returns the normalized text and whether it is worth reporting.
func (c *cleaner) clean(text string) (string, bool) {
	text = llmutil.CollapseWhitespace(text)
	n := llmutil.RuneLen(text)
	if n < c.min || n > c.max {
		return "", false
	}
	if punctuationOnly.MatchString(text) {
		return "", false
	}
	if _, dup := c.seen[text]; dup {
		return "", false
	}
	return text, true
}

func (c *cleaner) mark(text string) {
	c.seen[text] = struct{}{}
}

// Summarize applies cleaning, section filters, caps and de-duplication to raw.
// Sections are filled in order: headings, interactive elements, content
// blocks, other text.
func Summarize(raw RawPage, cfg config.ExtractionConfig) Summary {
	c := newCleaner(cfg)
	s := Summary{URL: raw.URL, Title: raw.Title}

	for _, h := range raw.Headings {
		if len(s.Headings) >= cfg.MaxHeadings {
			break
		}
		if text, ok := c.clean(h.Text); ok {
			c.mark(text)
			s.Headings = append(s.Headings, fmt.Sprintf("[%s] %s", strings.ToUpper(h.Tag), text))
		}
	}

	for _, ctl := range raw.Controls {
		if len(s.Interactive) >= cfg.MaxInteractive {
			break
		}
		if text, ok := c.clean(ctl.Text); ok {
			c.mark(text)
			s.Interactive = append(s.Interactive, describeControl(ctl)+" "+text)
		}
	}

	for _, block := range raw.Blocks {
		if len(s.ContentBlocks) >= cfg.MaxContentBlocks {
			break
		}
		text, ok := c.clean(block)
		if !ok {
			continue
		}
		if n := llmutil.RuneLen(text); n < cfg.ContentMinLength || n > cfg.ContentMaxLength {
			continue
		}
		c.mark(text)
		s.ContentBlocks = append(s.ContentBlocks, "• "+text)
	}

	for _, other := range raw.Other {
		if len(s.OtherText) >= cfg.MaxOtherText {
			break
		}
		text, ok := c.clean(other)
		if !ok || llmutil.RuneLen(text) < cfg.OtherMinLength {
			continue
		}
		c.mark(text)
		s.OtherText = append(s.OtherText, text)
	}

	return s
}

// describeControl renders the element annotation, e.g. <input type=email#login[name=user]>.
func describeControl(ctl RawControl) string {
	var b strings.Builder
	b.WriteString("<")
	b.WriteString(strings.ToLower(ctl.Tag))
	if ctl.Type != "" {
		b.WriteString(" type=")
		b.WriteString(ctl.Type)
	}
	if ctl.ID != "" {
		b.WriteString("#")
		b.WriteString(ctl.ID)
	}
	if ctl.Name != "" {
		b.WriteString("[name=")
		b.WriteString(ctl.Name)
		b.WriteString("]")
	}
	b.WriteString(">")
	return b.String()
}
