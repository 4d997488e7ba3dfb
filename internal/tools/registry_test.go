package tools_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/webpilot/api/schemas"
	"github.com/xkilldash9x/webpilot/internal/config"
	"github.com/xkilldash9x/webpilot/internal/interaction"
	"github.com/xkilldash9x/webpilot/internal/locator"
	"github.com/xkilldash9x/webpilot/internal/mocks"
	"github.com/xkilldash9x/webpilot/internal/observability"
	"github.com/xkilldash9x/webpilot/internal/tools"
)

type harness struct {
	interactor *mockInteractor
	finder     *mockFinder
	extractor  *mockExtractor
	page       *mocks.MockPage
	questions  *mocks.MockQuestionProvider
	metrics    *observability.Metrics
	registry   *tools.Registry
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		interactor: new(mockInteractor),
		finder:     new(mockFinder),
		extractor:  new(mockExtractor),
		page:       new(mocks.MockPage),
		questions:  new(mocks.MockQuestionProvider),
		metrics:    observability.NewMetrics(),
	}
	reg, err := tools.NewRegistry(tools.Dependencies{
		Interactor: h.interactor,
		Finder:     h.finder,
		Extractor:  h.extractor,
		Screens:    h.page,
		Questions:  h.questions,
		Config:     config.NewDefaultConfig(),
		Metrics:    h.metrics,
		Logger:     zap.NewNop(),
	})
	require.NoError(t, err)
	h.registry = reg
	return h
}

func call(name, input string) schemas.ToolUse {
	return schemas.ToolUse{ID: "toolu_" + name, Name: name, Input: json.RawMessage(input)}
}

func TestRegistry_AdvertisesTheClosedCatalogue(t *testing.T) {
	h := newHarness(t)

	var names []string
	for _, spec := range h.registry.Specs() {
		names = append(names, spec.Name)
	}
	assert.Equal(t, []string{
		"goto_url", "get_page_content", "take_screenshot", "find_element", "click", "type_text",
		"press_key", "scroll", "wait_for_element", "get_element_text", "go_back", "ask_human",
	}, names)
}

func TestDispatch_UnknownTool(t *testing.T) {
	h := newHarness(t)

	out := h.registry.Dispatch(context.Background(), call("fly_to_moon", `{}`))

	require.NotNil(t, out.Err)
	assert.Equal(t, tools.KindUnknownTool, out.Err.Kind)
	assert.Equal(t, "Error: Unknown tool 'fly_to_moon'", out.String())
	assert.True(t, out.ToolResult("toolu_1", 8000).IsError)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.ToolCalls.WithLabelValues("unknown", "UNKNOWN_TOOL")))
}

func TestDispatch_InvalidInputs(t *testing.T) {
	tests := []struct {
		name  string
		call  schemas.ToolUse
		wants string
	}{
		{"missing required", call("click", `{}`), `missing required parameter "selector"`},
		{"null required", call("type_text", `{"selector":"#q","text":null}`), `missing required parameter "text"`},
		{"enum violation", call("scroll", `{"direction":"left"}`), `must be one of down, up, to_element`},
		{"wrong type", call("wait_for_element", `{"selector":"#x","timeout_ms":"soon"}`), "invalid input for wait_for_element"},
		{"not an object", call("goto_url", `["https://example.com"]`), "input must be a JSON object"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			out := h.registry.Dispatch(context.Background(), tt.call)
			require.NotNil(t, out.Err)
			assert.Equal(t, tools.KindInvalidInput, out.Err.Kind)
			assert.Contains(t, out.String(), tt.wants)
			h.interactor.AssertExpectations(t)
		})
	}
}

func TestDispatch_RecoversFromPanic(t *testing.T) {
	h := newHarness(t)
	h.interactor.On("PressKey", mock.Anything, "Enter").Run(func(mock.Arguments) {
		panic("keyboard unplugged")
	}).Return(nil)

	var out tools.Outcome
	require.NotPanics(t, func() {
		out = h.registry.Dispatch(context.Background(), call("press_key", `{"key":"Enter"}`))
	})
	require.NotNil(t, out.Err)
	assert.Equal(t, tools.KindExecution, out.Err.Kind)
	assert.Contains(t, out.String(), "keyboard unplugged")
}

func TestDispatch_NavigationTimeout(t *testing.T) {
	h := newHarness(t)
	h.interactor.On("Navigate", mock.Anything, "https://slow.example.com").
		Return(errors.Join(errors.New("navigate"), context.DeadlineExceeded))

	out := h.registry.Dispatch(context.Background(), call("goto_url", `{"url":"https://slow.example.com"}`))

	require.NotNil(t, out.Err)
	assert.Equal(t, tools.KindTimeout, out.Err.Kind)
	assert.Contains(t, out.String(), "Error navigating to https://slow.example.com")
}

func TestDispatch_GotoURL(t *testing.T) {
	h := newHarness(t)
	h.interactor.On("Navigate", mock.Anything, "https://example.com").Return(nil)

	out := h.registry.Dispatch(context.Background(), call("goto_url", `{"url":"https://example.com"}`))

	assert.Nil(t, out.Err)
	assert.Equal(t, "Successfully navigated to https://example.com", out.String())
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.ToolCalls.WithLabelValues("goto_url", "OK")))
}

func TestDispatch_ClickOutcomes(t *testing.T) {
	h := newHarness(t)
	h.interactor.On("Click", mock.Anything, "#send").Return(interaction.InteractionOutcome{
		Status: interaction.StatusCancelled, Selector: "#send",
	}).Once()
	h.interactor.On("Click", mock.Anything, "#gone").Return(interaction.InteractionOutcome{
		Status: interaction.StatusFailed, Selector: "#gone", Err: errors.New("node detached"),
	}).Once()
	h.interactor.On("Click", mock.Anything, "#ok").Return(interaction.InteractionOutcome{
		Status: interaction.StatusSuccess, Selector: "#ok", Strategy: interaction.StrategyPlain,
	}).Once()

	cancelled := h.registry.Dispatch(context.Background(), call("click", `{"selector":"#send"}`))
	require.NotNil(t, cancelled.Err)
	assert.Equal(t, tools.KindCancelled, cancelled.Err.Kind)
	assert.False(t, cancelled.ToolResult("id", 8000).IsError)
	assert.Contains(t, cancelled.String(), "Cancelled by user")

	failed := h.registry.Dispatch(context.Background(), call("click", `{"selector":"#gone"}`))
	require.NotNil(t, failed.Err)
	assert.Equal(t, tools.KindExecution, failed.Err.Kind)
	assert.Contains(t, failed.String(), "take_screenshot()")
	assert.True(t, failed.ToolResult("id", 8000).IsError)

	ok := h.registry.Dispatch(context.Background(), call("click", `{"selector":"#ok"}`))
	assert.Nil(t, ok.Err)
	assert.Equal(t, "Clicked #ok (page did not change)", ok.String())
}

func TestDispatch_FindElement(t *testing.T) {
	h := newHarness(t)
	h.finder.On("Find", mock.Anything, "compose button").
		Return(locator.ElementCandidate{Selector: `[aria-label*="Compose"]`, MatchedText: "compose", Score: 125}, nil).Once()
	h.finder.On("Find", mock.Anything, "unicorn").
		Return(locator.ElementCandidate{}, locator.ErrNotFound).Once()
	h.interactor.On("RememberMatch", `[aria-label*="Compose"]`, "compose").Once()

	found := h.registry.Dispatch(context.Background(), call("find_element", `{"description":"compose button"}`))
	assert.Nil(t, found.Err)
	assert.Equal(t, `Found: "compose" -> selector: [aria-label*="Compose"] (score 125)`, found.String())

	missing := h.registry.Dispatch(context.Background(), call("find_element", `{"description":"unicorn"}`))
	require.NotNil(t, missing.Err)
	assert.Equal(t, tools.KindElementNotFound, missing.Err.Kind)
	assert.Equal(t, "Element not found: 'unicorn'", missing.String())
	assert.False(t, missing.ToolResult("id", 8000).IsError)

	h.interactor.AssertExpectations(t)
}

func TestDispatch_Screenshot(t *testing.T) {
	h := newHarness(t)
	h.page.On("Screenshot", mock.Anything).Return([]byte{0x89, 'P', 'N', 'G'}, nil)

	out := h.registry.Dispatch(context.Background(), call("take_screenshot", ``))

	require.Nil(t, out.Err)
	require.NotNil(t, out.Image)
	assert.Equal(t, schemas.ImageMediaPNG, out.Image.MediaType)
	assert.Equal(t, "iVBORw==", out.Image.Data)
	assert.Equal(t, tools.ImageMarker+"iVBORw==", out.String())

	result := out.ToolResult("toolu_shot", 10)
	require.Len(t, result.Parts, 2)
	assert.Equal(t, tools.ScreenshotCaption, result.Parts[0].Text)
	assert.Equal(t, "iVBORw==", result.Parts[1].Image.Data)
	assert.False(t, result.IsError)
}

func TestDispatch_WaitForElementTimeouts(t *testing.T) {
	h := newHarness(t)
	h.interactor.On("WaitFor", mock.Anything, "#results", 10*time.Second).Return(nil).Once()
	h.interactor.On("WaitFor", mock.Anything, "#late", 2500*time.Millisecond).Return(context.DeadlineExceeded).Once()

	ok := h.registry.Dispatch(context.Background(), call("wait_for_element", `{"selector":"#results"}`))
	assert.Equal(t, "Element appeared: #results", ok.String())

	late := h.registry.Dispatch(context.Background(), call("wait_for_element", `{"selector":"#late","timeout_ms":2500}`))
	require.NotNil(t, late.Err)
	assert.Equal(t, tools.KindTimeout, late.Err.Kind)
	assert.Equal(t, "Element did not appear within 2500ms: #late", late.String())
}

func TestDispatch_WaitForElementClampsTimeout(t *testing.T) {
	h := newHarness(t)
	ceiling := config.NewDefaultConfig().Interaction().MaxWaitForTimeout
	h.interactor.On("WaitFor", mock.Anything, "#slow", ceiling).Return(context.DeadlineExceeded).Once()

	res := h.registry.Dispatch(context.Background(), call("wait_for_element", `{"selector":"#slow","timeout_ms":3600000000}`))
	require.NotNil(t, res.Err)
	assert.Equal(t, tools.KindTimeout, res.Err.Kind)
	assert.Equal(t, fmt.Sprintf("Element did not appear within %dms: #slow", ceiling.Milliseconds()), res.String())
	h.interactor.AssertExpectations(t)
}

func TestDispatch_PageContentScrollDefault(t *testing.T) {
	h := newHarness(t)
	h.extractor.On("Extract", mock.Anything, true).Return("=== PAGE CONTENT ===", nil).Once()
	h.extractor.On("Extract", mock.Anything, false).Return("static", nil).Once()

	assert.Equal(t, "=== PAGE CONTENT ===", h.registry.Dispatch(context.Background(), call("get_page_content", `{}`)).String())
	assert.Equal(t, "static", h.registry.Dispatch(context.Background(), call("get_page_content", `{"scroll_to_load":false}`)).String())
	h.extractor.AssertExpectations(t)
}

func TestDispatch_TextTools(t *testing.T) {
	h := newHarness(t)
	h.interactor.On("TypeText", mock.Anything, "#q", "go jobs").Return(nil)
	h.interactor.On("Scroll", mock.Anything, interaction.ScrollDown, "").Return("Scrolled down", nil)
	h.interactor.On("ElementText", mock.Anything, "h1").Return("Inbox", nil)
	h.interactor.On("GoBack", mock.Anything).Return(nil)
	h.questions.On("Ask", mock.Anything, "What is the 2FA code?").Return("123456", nil)

	ctx := context.Background()
	assert.Equal(t, "Typed 'go jobs' into #q", h.registry.Dispatch(ctx, call("type_text", `{"selector":"#q","text":"go jobs"}`)).String())
	assert.Equal(t, "Scrolled down", h.registry.Dispatch(ctx, call("scroll", `{"direction":"down"}`)).String())
	assert.Equal(t, "Text content: Inbox", h.registry.Dispatch(ctx, call("get_element_text", `{"selector":"h1"}`)).String())
	assert.Equal(t, "Navigated back to previous page", h.registry.Dispatch(ctx, call("go_back", `null`)).String())
	assert.Equal(t, "User responded: 123456", h.registry.Dispatch(ctx, call("ask_human", `{"question":"What is the 2FA code?"}`)).String())
}

func TestDispatch_ScrollToElementWithoutSelector(t *testing.T) {
	h := newHarness(t)
	h.interactor.On("Scroll", mock.Anything, interaction.ScrollToElement, "").
		Return("", interaction.ErrInvalidDirection)

	out := h.registry.Dispatch(context.Background(), call("scroll", `{"direction":"to_element"}`))
	require.NotNil(t, out.Err)
	assert.Equal(t, tools.KindInvalidInput, out.Err.Kind)
}

func TestOutcomeToolResult_Truncates(t *testing.T) {
	out := tools.TextOutcome("abcdefghij")

	result := out.ToolResult("toolu_9", 4)
	require.Len(t, result.Parts, 1)
	assert.Equal(t, "abcd\n\n... [TRUNCATED: 6 chars omitted to save tokens]", result.Parts[0].Text)
	assert.Equal(t, "toolu_9", result.ToolUseID)
	assert.False(t, result.IsError)

	assert.Equal(t, "abcdefghij", out.ToolResult("toolu_9", 10).Parts[0].Text)
}
