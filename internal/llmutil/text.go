// internal/llmutil/text.go
package llmutil

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Truncate cuts s to at most limit characters (runes, not bytes, so multi-byte
// text is never split mid-character). It returns the kept prefix and the number
// of characters dropped.
func Truncate(s string, limit int) (string, int) {
	if limit < 0 {
		limit = 0
	}
	total := utf8.RuneCountInString(s)
	if total <= limit {
		return s, 0
	}
	cut := 0
	for i := range s {
		if cut == limit {
			return s[:i], total - limit
		}
		cut++
	}
	return s, 0
}

// TruncateWithMarker truncates s to limit characters and, when anything was
// dropped, appends marker formatted with the omitted count.
// The marker must contain exactly one %d verb.
func TruncateWithMarker(s string, limit int, marker string) string {
	head, omitted := Truncate(s, limit)
	if omitted == 0 {
		return s
	}
	return head + fmt.Sprintf(marker, omitted)
}

// CollapseWhitespace trims s and folds every run of whitespace into one space.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// RuneLen is the length of s in characters.
func RuneLen(s string) int {
	return utf8.RuneCountInString(s)
}
