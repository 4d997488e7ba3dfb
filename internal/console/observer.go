// internal/console/observer.go
package console

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/xkilldash9x/webpilot/api/schemas"
	"github.com/xkilldash9x/webpilot/internal/agent"
	"github.com/xkilldash9x/webpilot/internal/llmutil"
	"github.com/xkilldash9x/webpilot/internal/tools"
)

const (
	defaultPreviewChars = 500
	ruleWidth           = 60
)

// Observer prints the run to the operator's terminal as it happens.
type Observer struct {
	out          io.Writer
	previewChars int
}

var _ agent.Observer = (*Observer)(nil)

// NewObserver writes to out. Tool results are previewed up to previewChars
// characters; zero or less selects the default.
func NewObserver(out io.Writer, previewChars int) *Observer {
	if previewChars <= 0 {
		previewChars = defaultPreviewChars
	}
	return &Observer{out: out, previewChars: previewChars}
}

// Rule is the horizontal separator used around the run.
func Rule() string {
	return strings.Repeat("-", ruleWidth)
}

func (o *Observer) StepStarted(step, maxSteps int) {
	fmt.Fprintf(o.out, "\n== Step %d/%d: waiting for the model ==\n", step, maxSteps)
}

func (o *Observer) Reasoning(step int, text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	fmt.Fprintf(o.out, "[thinking] %s\n", strings.TrimSpace(text))
}

func (o *Observer) ToolCalled(step int, call schemas.ToolUse) {
	fmt.Fprintf(o.out, "[tool] %s %s\n", call.Name, formatArgs(call.Input))
}

func (o *Observer) ToolFinished(step int, call schemas.ToolUse, out tools.Outcome) {
	switch {
	case out.Err != nil:
		fmt.Fprintf(o.out, "[result] %s failed (%s): %s\n", call.Name, out.Err.Kind, o.preview(out.Err.Message))
	case out.Image != nil:
		fmt.Fprintln(o.out, "[result] Screenshot captured (vision analysis enabled)")
	default:
		fmt.Fprintf(o.out, "[result] %s\n", o.preview(out.Text))
	}
}

func (o *Observer) HistoryTrimmed(dropped, remaining int) {
	fmt.Fprintf(o.out, "(trimmed %d messages from history, %d remain, tool pairs preserved)\n", dropped, remaining)
}

func (o *Observer) Finished(res agent.Result) {
	switch res.Status {
	case agent.StateMaxSteps:
		fmt.Fprintf(o.out, "\n== Max steps reached after %d steps ==\n", res.Steps)
	case agent.StateAborted:
		fmt.Fprintf(o.out, "\n== Run aborted after %d steps: %v ==\n", res.Steps, res.Err)
	default:
		fmt.Fprintf(o.out, "\n== Task complete in %d steps ==\n", res.Steps)
	}
}

func (o *Observer) preview(text string) string {
	head, omitted := llmutil.Truncate(text, o.previewChars)
	if omitted > 0 {
		return head + "..."
	}
	return head
}

// formatArgs pretty-prints tool input, falling back to the raw bytes.
func formatArgs(input json.RawMessage) string {
	if len(bytes.TrimSpace(input)) == 0 {
		return "{}"
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, input, "", "  "); err != nil {
		return string(input)
	}
	return buf.String()
}
