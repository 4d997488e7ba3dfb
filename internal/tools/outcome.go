// internal/tools/outcome.go
package tools

import (
	"github.com/xkilldash9x/webpilot/api/schemas"
	"github.com/xkilldash9x/webpilot/internal/llmutil"
)

const (
	// ScreenshotCaption accompanies every screenshot sent to the model.
	ScreenshotCaption = "Screenshot taken and analyzed visually."

	// ImageMarker prefixes an image outcome when it is rendered as a string.
	ImageMarker = "data:" + schemas.ImageMediaPNG + ";base64,"

	truncationMarker = "\n\n... [TRUNCATED: %d chars omitted to save tokens]"

	outcomeOK = "OK"
)

// Outcome is the result of one tool call: a text payload, an image payload,
// or a typed error.
type Outcome struct {
	Text  string
	Image *schemas.ImageData
	Err   *ToolError
}

// TextOutcome wraps a successful text result.
func TextOutcome(text string) Outcome {
	return Outcome{Text: text}
}

// ErrorOutcome wraps a tool failure.
func ErrorOutcome(err *ToolError) Outcome {
	return Outcome{Err: err}
}

// Kind is the error kind, or "OK" for a successful call.
func (o Outcome) Kind() string {
	if o.Err != nil {
		return string(o.Err.Kind)
	}
	return outcomeOK
}

// String renders the outcome as a single string. Image outcomes use the
// data-URL form so they can never be mistaken for text.
func (o Outcome) String() string {
	switch {
	case o.Err != nil:
		return o.Err.Message
	case o.Image != nil:
		return ImageMarker + o.Image.Data
	default:
		return o.Text
	}
}

// ToolResult encodes the outcome for the conversation. Text longer than
// maxChars is cut with an omitted-length marker; images are passed through
// whole next to their caption.
func (o Outcome) ToolResult(toolUseID string, maxChars int) schemas.ToolResult {
	result := schemas.ToolResult{ToolUseID: toolUseID}
	if o.Image != nil && o.Err == nil {
		caption := o.Text
		if caption == "" {
			caption = ScreenshotCaption
		}
		result.Parts = []schemas.ResultPart{
			{Text: caption},
			{Image: o.Image},
		}
		return result
	}

	text := o.String()
	if maxChars > 0 {
		text = llmutil.TruncateWithMarker(text, maxChars, truncationMarker)
	}
	result.Parts = []schemas.ResultPart{{Text: text}}
	result.IsError = o.Err != nil && o.Err.Flagged()
	return result
}
