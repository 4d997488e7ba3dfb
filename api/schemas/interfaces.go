package schemas

import (
	"context"
	"time"
)

// -- Model Client Schemas & Interface --

// StopReason explains why the model ended its turn.
type StopReason string

const (
	StopEndTurn   StopReason = "end_turn"
	StopToolUse   StopReason = "tool_use"
	StopMaxTokens StopReason = "max_tokens"
	StopOther     StopReason = "other"
)

// ModelRequest is one round trip to the decision-making model: the full
// conversation plus the tool catalogue the model may call.
type ModelRequest struct {
	Messages    []Message  `json:"messages"`
	Tools       []ToolSpec `json:"tools"`
	Temperature float32    `json:"temperature"` // Always 0 for the agent loop.
	MaxTokens   int        `json:"max_tokens"`
}

// TokenUsage reports what the provider billed for a request.
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// ModelResponse is the assistant turn returned by the model.
type ModelResponse struct {
	Content    []ContentBlock `json:"content"`
	StopReason StopReason     `json:"stop_reason"`
	Usage      TokenUsage     `json:"usage"`
}

// ModelClient abstracts the model provider behind a single call.
//
//go:generate mockery --name ModelClient --output ../../internal/mocks --outpkg mocks
type ModelClient interface {
	// Complete sends the conversation and returns the assistant's next turn.
	// Any error is a transport failure and ends the run.
	Complete(ctx context.Context, req ModelRequest) (*ModelResponse, error)
}

// -- Browser Page Interface --

// Page is the single browser tab the agent acts on. Selectors accept CSS,
// "xpath=" prefixed or bare XPath, and "text=" forms. Deadlines come from ctx.
//
//go:generate mockery --name Page --output ../../internal/mocks --outpkg mocks
type Page interface {
	Navigate(ctx context.Context, url string) error                                 // Loads url and waits for the load event.
	GoBack(ctx context.Context) error                                               // Steps back in the tab history.
	URL(ctx context.Context) (string, error)                                        // Location of the active tab.
	Evaluate(ctx context.Context, script string, res interface{}) error             // Runs script, awaiting a returned promise.
	Screenshot(ctx context.Context) ([]byte, error)                                 // PNG of the visible viewport.
	ScrollIntoView(ctx context.Context, selector string) error                      // Scrolls the first match into view.
	WaitVisible(ctx context.Context, selector string) error                         // Waits until the first match is visible.
	WaitPresent(ctx context.Context, selector string) error                         // Waits until a match is attached to the DOM.
	Click(ctx context.Context, selector string, hold time.Duration) error           // Trusted mouse click, button held for hold.
	ForceClick(ctx context.Context, selector string) error                          // Mouse click at the node's box, skipping actionability checks.
	ScriptClick(ctx context.Context, selector string) error                         // Calls el.click() in the page.
	ClearInput(ctx context.Context, selector string) error                          // Empties an input or textarea.
	TypeText(ctx context.Context, selector, text string, delay time.Duration) error // Types text key by key.
	PressKey(ctx context.Context, key string) error                                 // Presses a named key on the focused element.
	InnerText(ctx context.Context, selector string) (string, error)                 // innerText of the first match.
	Tabs(ctx context.Context) ([]string, error)                                     // IDs of open page targets, in creation order.
	SwitchTab(ctx context.Context, id string) error                                 // Makes the given target the active tab.
	WaitLoad(ctx context.Context) error                                             // Waits for DOMContentLoaded on the active tab.
}

// -- Human in the Loop --

// ConfirmationProvider asks the operator to approve a risky action.
// It blocks until the operator answers; there is no timeout.
//
//go:generate mockery --name ConfirmationProvider --output ../../internal/mocks --outpkg mocks
type ConfirmationProvider interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// QuestionProvider relays a free-form question from the model to the operator.
//
//go:generate mockery --name QuestionProvider --output ../../internal/mocks --outpkg mocks
type QuestionProvider interface {
	Ask(ctx context.Context, question string) (string, error)
}
