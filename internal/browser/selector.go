// internal/browser/selector.go
package browser

import (
	"errors"
	"fmt"
	"strings"

	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"

	"github.com/xkilldash9x/webpilot/internal/locator"
)

// ErrUnknownKey is returned by PressKey for a name with no key mapping.
var ErrUnknownKey = errors.New("unknown key")

const (
	xpathPrefix = "xpath="
	textPrefix  = "text="
)

// querySpec is a selector resolved to the chromedp query it runs as.
type querySpec struct {
	Sel   string
	XPath bool
}

// parseSelector accepts CSS selectors, XPath expressions (explicit xpath=
// prefix, or starting with '/' or '('), and text= selectors, which match an
// element by its whitespace-normalized own text.
func parseSelector(raw string) querySpec {
	sel := strings.TrimSpace(raw)
	switch {
	case strings.HasPrefix(sel, xpathPrefix):
		return querySpec{Sel: strings.TrimSpace(sel[len(xpathPrefix):]), XPath: true}
	case strings.HasPrefix(sel, textPrefix):
		text := strings.Trim(strings.TrimSpace(sel[len(textPrefix):]), `"'`)
		return querySpec{
			Sel:   fmt.Sprintf("//*/text()[normalize-space()=%s]/parent::*", locator.XPathLiteral(text)),
			XPath: true,
		}
	case strings.HasPrefix(sel, "/"), strings.HasPrefix(sel, "("):
		return querySpec{Sel: sel, XPath: true}
	default:
		return querySpec{Sel: sel}
	}
}

// opts returns the query options for the selector plus any extra ones.
func (q querySpec) opts(extra ...chromedp.QueryOption) []chromedp.QueryOption {
	by := chromedp.ByQuery
	if q.XPath {
		by = chromedp.BySearch
	}
	return append([]chromedp.QueryOption{by}, extra...)
}

var namedKeys = map[string]string{
	"enter":      kb.Enter,
	"return":     kb.Enter,
	"tab":        kb.Tab,
	"escape":     kb.Escape,
	"esc":        kb.Escape,
	"backspace":  kb.Backspace,
	"delete":     kb.Delete,
	"arrowup":    kb.ArrowUp,
	"arrowdown":  kb.ArrowDown,
	"arrowleft":  kb.ArrowLeft,
	"arrowright": kb.ArrowRight,
	"home":       kb.Home,
	"end":        kb.End,
	"pageup":     kb.PageUp,
	"pagedown":   kb.PageDown,
	"space":      " ",
}

// keyFor maps a key name such as "Enter" or "ArrowDown" to the sequence
// chromedp.KeyEvent expects. A single character is sent as itself.
func keyFor(name string) (string, error) {
	if k, ok := namedKeys[strings.ToLower(strings.TrimSpace(name))]; ok {
		return k, nil
	}
	if len([]rune(name)) == 1 {
		return name, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKey, name)
}
