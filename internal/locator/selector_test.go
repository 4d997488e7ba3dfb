package locator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCSSIdent(t *testing.T) {
	tests := map[string]string{
		"main":      "main",
		"1abc":      `\31 abc`,
		"-1x":       `-\31 x`,
		"-":         `\-`,
		":r1:":      `\:r1\:`,
		"a b":       `a\ b`,
		"ü-_9":      "ü-_9",
		"a\x00b":    "a\uFFFDb",
		"tab\there": `tab\9 here`,
	}
	for in, want := range tests {
		assert.Equal(t, want, cssIdent(in), "input %q", in)
	}
}

func TestXPathLiteral(t *testing.T) {
	assert.Equal(t, "'sign in'", XPathLiteral("sign in"))
	assert.Equal(t, `"it's"`, XPathLiteral("it's"))
	assert.Equal(t, `concat('say "it', "'", 's"')`, XPathLiteral(`say "it's"`))
	assert.Equal(t, `concat("'", 'quoted', "'", ' "x"')`, XPathLiteral(`'quoted' "x"`))
}

func TestTextSnippet(t *testing.T) {
	assert.Equal(t, "sign in", textSnippet("\n   \n  sign   in \nsecond line"))
	assert.Equal(t, "", textSnippet(" \n\t"))
	assert.Equal(t, strings.Repeat("я", textSnippetLen), textSnippet(strings.Repeat("я", 80)))
}

func TestBuildSelector(t *testing.T) {
	text := Source{Kind: SourceInnerText, Text: "sign in"}

	tests := []struct {
		name    string
		cand    Candidate
		matched Source
		want    string
	}{
		{
			name:    "test id first",
			cand:    Candidate{TestID: "login-btn", ID: "login", AriaLabel: "Sign in"},
			matched: text,
			want:    `[data-testid="login-btn"]`,
		},
		{
			name:    "id before aria label",
			cand:    Candidate{ID: ":r5:", AriaLabel: "Sign in"},
			matched: text,
			want:    `#\:r5\:`,
		},
		{
			name:    "aria label is escaped",
			cand:    Candidate{AriaLabel: `Say "hi"`},
			matched: text,
			want:    `[aria-label*="Say \"hi\""]`,
		},
		{
			name:    "text xpath from inner text",
			cand:    Candidate{Path: "/html[1]/body[1]/div[3]"},
			matched: text,
			want:    "xpath=//*[text()[contains(translate(., '" + upperAlphabet + "', '" + lowerAlphabet + "'), 'sign in')]]",
		},
		{
			name:    "attribute match falls back to the absolute path",
			cand:    Candidate{Path: "/html[1]/body[1]/input[2]"},
			matched: Source{Kind: SourcePlaceholder, Text: "search mail"},
			want:    "xpath=/html[1]/body[1]/input[2]",
		},
		{
			name:    "nothing usable",
			cand:    Candidate{},
			matched: Source{Kind: SourceTitle, Text: "menu"},
			want:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildSelector(tt.cand, tt.matched))
		})
	}
}
