// internal/locator/selector.go
package locator

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	upperAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZАБВГДЕЁЖЗИЙКЛМНОПРСТУФХЦЧШЩЪЫЬЭЮЯ"
	lowerAlphabet = "abcdefghijklmnopqrstuvwxyzабвгдеёжзийклмнопрстуфхцчшщъыьэюя"

	// textSnippetLen bounds the text used in a text-based XPath.
	textSnippetLen = 50
)

// ElementCandidate is the located element as reported to the caller.
type ElementCandidate struct {
	Selector    string
	MatchedText string
	Score       int
}

// BuildSelector synthesizes a selector for the candidate. Preference order:
// data-testid, id, aria-label, a case-insensitive XPath on the matched text,
// and finally the node's absolute XPath.
func BuildSelector(c Candidate, matched Source) string {
	switch {
	case c.TestID != "":
		return fmt.Sprintf(`[data-testid="%s"]`, cssString(c.TestID))
	case c.ID != "":
		return "#" + cssIdent(c.ID)
	case c.AriaLabel != "":
		return fmt.Sprintf(`[aria-label*="%s"]`, cssString(c.AriaLabel))
	}

	// Attribute matches have no text node to anchor on.
	if matched.Kind == SourceInnerText || matched.Kind == SourceTextContent {
		if snippet := textSnippet(matched.Text); snippet != "" {
			return fmt.Sprintf("xpath=//*[text()[contains(translate(., '%s', '%s'), %s)]]",
				upperAlphabet, lowerAlphabet, XPathLiteral(snippet))
		}
	}
	if c.Path != "" {
		return "xpath=" + c.Path
	}
	return ""
}

// textSnippet takes the first non-empty line of text, whitespace-collapsed and
// cut to textSnippetLen characters.
func textSnippet(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			continue
		}
		if utf8.RuneCountInString(line) > textSnippetLen {
			line = string([]rune(line)[:textSnippetLen])
		}
		return line
	}
	return ""
}

// XPathLiteral quotes s for XPath 1.0, which has no escape sequences.
func XPathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	quoted := make([]string, 0, len(parts)*2)
	for i, p := range parts {
		if i > 0 {
			quoted = append(quoted, `"'"`)
		}
		if p != "" {
			quoted = append(quoted, "'"+p+"'")
		}
	}
	return "concat(" + strings.Join(quoted, ", ") + ")"
}

// cssIdent escapes s as a CSS identifier, following the CSSOM serialization rules.
func cssIdent(s string) string {
	var b strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		switch {
		case r == 0:
			b.WriteRune('\uFFFD')
		case (r >= 0x1 && r <= 0x1f) || r == 0x7f,
			i == 0 && r >= '0' && r <= '9',
			i == 1 && r >= '0' && r <= '9' && runes[0] == '-':
			fmt.Fprintf(&b, `\%x `, r)
		case i == 0 && r == '-' && len(runes) == 1:
			b.WriteString(`\-`)
		case r >= 0x80, r == '-', r == '_',
			r >= '0' && r <= '9', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			b.WriteRune(r)
		default:
			b.WriteRune('\\')
			b.WriteRune(r)
		}
	}
	return b.String()
}

// cssString escapes s for use inside a double-quoted CSS string.
func cssString(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '"', '\\':
			b.WriteRune('\\')
			b.WriteRune(r)
		case '\n':
			b.WriteString(`\a `)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
