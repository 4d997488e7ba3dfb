// internal/console/observer_test.go
package console

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xkilldash9x/webpilot/api/schemas"
	"github.com/xkilldash9x/webpilot/internal/agent"
	"github.com/xkilldash9x/webpilot/internal/tools"
)

func TestObserver_Events(t *testing.T) {
	var out bytes.Buffer
	o := NewObserver(&out, 10)
	call := schemas.ToolUse{ID: "t1", Name: "click", Input: []byte(`{"selector":"#go"}`)}

	o.StepStarted(3, 50)
	o.Reasoning(3, "  ")
	o.Reasoning(3, " Clicking search. ")
	o.ToolCalled(3, call)
	o.ToolFinished(3, call, tools.TextOutcome("Clicked successfully and the page navigated"))
	o.ToolFinished(3, call, tools.ErrorOutcome(&tools.ToolError{Kind: tools.KindTimeout, Message: "timed out"}))
	o.ToolFinished(3, schemas.ToolUse{Name: "take_screenshot"}, tools.Outcome{Image: &schemas.ImageData{Data: "iVBORw=="}})
	o.HistoryTrimmed(4, 12)

	got := out.String()
	assert.Contains(t, got, "== Step 3/50: waiting for the model ==")
	assert.Equal(t, 1, strings.Count(got, "[thinking]"), "blank reasoning is not printed")
	assert.Contains(t, got, "[thinking] Clicking search.\n")
	assert.Contains(t, got, "[tool] click {\n  \"selector\": \"#go\"\n}")
	assert.Contains(t, got, "[result] Clicked su...\n")
	assert.Contains(t, got, "[result] click failed (TIMEOUT_ERROR): timed out")
	assert.Contains(t, got, "Screenshot captured")
	assert.NotContains(t, got, "iVBORw==")
	assert.Contains(t, got, "trimmed 4 messages from history, 12 remain")
}

func TestObserver_Finished(t *testing.T) {
	tests := []struct {
		res  agent.Result
		want string
	}{
		{agent.Result{Status: agent.StateDone, Steps: 4}, "Task complete in 4 steps"},
		{agent.Result{Status: agent.StateMaxSteps, Steps: 50}, "Max steps reached after 50 steps"},
		{agent.Result{Status: agent.StateAborted, Steps: 2, Err: errors.New("model request failed")}, "Run aborted after 2 steps: model request failed"},
	}
	for _, tt := range tests {
		t.Run(string(tt.res.Status), func(t *testing.T) {
			var out bytes.Buffer
			NewObserver(&out, 0).Finished(tt.res)
			assert.Contains(t, out.String(), tt.want)
		})
	}
}

func TestFormatArgs(t *testing.T) {
	assert.Equal(t, "{}", formatArgs(nil))
	assert.Equal(t, "not-json", formatArgs([]byte("not-json")))
}

func TestRule(t *testing.T) {
	assert.Len(t, Rule(), ruleWidth)
}
