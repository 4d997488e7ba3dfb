// internal/tools/catalog.go
package tools

import "github.com/xkilldash9x/webpilot/api/schemas"

// ToolName is the closed set of tools the model may call.
type ToolName string

const (
	ToolGotoURL        ToolName = "goto_url"
	ToolGetPageContent ToolName = "get_page_content"
	ToolTakeScreenshot ToolName = "take_screenshot"
	ToolFindElement    ToolName = "find_element"
	ToolClick          ToolName = "click"
	ToolTypeText       ToolName = "type_text"
	ToolPressKey       ToolName = "press_key"
	ToolScroll         ToolName = "scroll"
	ToolWaitForElement ToolName = "wait_for_element"
	ToolGetElementText ToolName = "get_element_text"
	ToolGoBack         ToolName = "go_back"
	ToolAskHuman       ToolName = "ask_human"
)

// -- Typed Inputs --

type GotoURLInput struct {
	URL string `json:"url"`
}

type GetPageContentInput struct {
	ScrollToLoad *bool `json:"scroll_to_load"`
}

type TakeScreenshotInput struct{}

type FindElementInput struct {
	Description string `json:"description"`
}

type ClickInput struct {
	Selector string `json:"selector"`
}

type TypeTextInput struct {
	Selector string `json:"selector"`
	Text     string `json:"text"`
}

type PressKeyInput struct {
	Key string `json:"key"`
}

type ScrollInput struct {
	Direction string `json:"direction"`
	Selector  string `json:"selector"`
}

type WaitForElementInput struct {
	Selector  string `json:"selector"`
	TimeoutMS *int   `json:"timeout_ms"`
}

type GetElementTextInput struct {
	Selector string `json:"selector"`
}

type GoBackInput struct{}

type AskHumanInput struct {
	Question string `json:"question"`
}

// -- Catalogue --

// Catalog returns the tool descriptions advertised to the model, in a stable
// order.
func Catalog() []schemas.ToolSpec {
	return []schemas.ToolSpec{
		{
			Name:        string(ToolGotoURL),
			Description: "Navigate to a specific URL. Always pass a full URL including https://.",
			Parameters: []schemas.ParamSpec{
				{Name: "url", Type: schemas.ParamString, Description: "Full URL including the protocol (https://)", Required: true},
			},
		},
		{
			Name: string(ToolGetPageContent),
			Description: "PRIMARY TOOL: structured extraction of the whole page. Scrolls to trigger lazy loading, " +
				"then returns headings, interactive elements, content blocks and other visible text, de-duplicated " +
				"and size-limited. Call this first on every new page.",
			Parameters: []schemas.ParamSpec{
				{Name: "scroll_to_load", Type: schemas.ParamBoolean, Description: "Scroll the page first to trigger lazy loading. Set false only for static pages.", Default: true},
			},
		},
		{
			Name: string(ToolTakeScreenshot),
			Description: "Take a screenshot of the visible part of the page to understand its layout. " +
				"Use it when text tools are not enough or an action failed; screenshots are expensive.",
		},
		{
			Name: string(ToolFindElement),
			Description: "Find an element from a natural language description (e.g. 'search button', 'email input'). " +
				"Returns a selector to pass to click or type_text.",
			Parameters: []schemas.ParamSpec{
				{Name: "description", Type: schemas.ParamString, Description: "Natural language description of the element", Required: true},
			},
		},
		{
			Name: string(ToolClick),
			Description: "Click an element. Accepts CSS selectors (#id, .class), XPath (xpath=... or //...) " +
				"and text selectors (text=Login). Use find_element first when no selector is known.",
			Parameters: []schemas.ParamSpec{
				{Name: "selector", Type: schemas.ParamString, Description: "CSS selector, XPath, or text selector", Required: true},
			},
		},
		{
			Name:        string(ToolTypeText),
			Description: "Type text into an input field. Existing content is cleared first.",
			Parameters: []schemas.ParamSpec{
				{Name: "selector", Type: schemas.ParamString, Description: "CSS selector or XPath of the input field", Required: true},
				{Name: "text", Type: schemas.ParamString, Description: "Text to type", Required: true},
			},
		},
		{
			Name:        string(ToolPressKey),
			Description: "Press a keyboard key on the focused element, e.g. Enter, Tab, Escape, ArrowDown.",
			Parameters: []schemas.ParamSpec{
				{Name: "key", Type: schemas.ParamString, Description: "Key name", Required: true},
			},
		},
		{
			Name:        string(ToolScroll),
			Description: "Scroll the page up or down by most of a screen, or scroll an element into view.",
			Parameters: []schemas.ParamSpec{
				{Name: "direction", Type: schemas.ParamString, Description: "Scroll direction", Enum: []string{"down", "up", "to_element"}, Required: true},
				{Name: "selector", Type: schemas.ParamString, Description: "Element to scroll to (only with direction=to_element)"},
			},
		},
		{
			Name:        string(ToolWaitForElement),
			Description: "Wait for an element to appear on the page.",
			Parameters: []schemas.ParamSpec{
				{Name: "selector", Type: schemas.ParamString, Description: "CSS selector or XPath of the element", Required: true},
				{Name: "timeout_ms", Type: schemas.ParamInteger, Description: "Maximum wait in milliseconds", Default: 10000},
			},
		},
		{
			Name:        string(ToolGetElementText),
			Description: "Get the visible text of a specific element.",
			Parameters: []schemas.ParamSpec{
				{Name: "selector", Type: schemas.ParamString, Description: "CSS selector or XPath of the element", Required: true},
			},
		},
		{
			Name:        string(ToolGoBack),
			Description: "Go back to the previous page in the browser history.",
		},
		{
			Name: string(ToolAskHuman),
			Description: "Ask the human operator a question and wait for the answer. Use it for CAPTCHAs, " +
				"two-factor codes, credentials, or when the task is ambiguous.",
			Parameters: []schemas.ParamSpec{
				{Name: "question", Type: schemas.ParamString, Description: "Question for the operator", Required: true},
			},
		},
	}
}
