// internal/interaction/outcome.go
package interaction

import (
	"fmt"
	"strings"
)

// -- Structs and Types --

// Status is the terminal result of an interaction.
type Status string

const (
	StatusSuccess   Status = "success"
	StatusCancelled Status = "cancelled"
	StatusFailed    Status = "failed"
)

// Strategy is the click technique that finally went through.
type Strategy string

const (
	StrategyNone     Strategy = ""
	StrategyPlain    Strategy = "plain"
	StrategyForced   Strategy = "forced"
	StrategyScripted Strategy = "scripted"
)

// ClickState is a step of the click state machine, used for logging.
type ClickState string

const (
	StateScrollIntoView ClickState = "SCROLL_INTO_VIEW"
	StateWaitVisible    ClickState = "WAIT_VISIBLE"
	StatePlainClick     ClickState = "TRY_PLAIN_CLICK"
	StateForcedClick    ClickState = "TRY_FORCED_CLICK"
	StateScriptedClick  ClickState = "TRY_SCRIPTED_CLICK"
	StateDetectEffect   ClickState = "DETECT_EFFECT"
)

// InteractionOutcome reports what a click did.
type InteractionOutcome struct {
	Status       Status
	Navigated    bool
	NewTabOpened bool
	CurrentURL   string
	Strategy     Strategy
	Selector     string
	// Err is the last error seen when Status is StatusFailed.
	Err error
}

// Summary renders the outcome as the text shown to the model.
func (o InteractionOutcome) Summary() string {
	switch o.Status {
	case StatusCancelled:
		return fmt.Sprintf("Cancelled by user: click on %s was not performed", o.Selector)
	case StatusFailed:
		var b strings.Builder
		b.WriteString("All click attempts failed")
		if o.Err != nil {
			b.WriteString(": ")
			b.WriteString(o.Err.Error())
		}
		b.WriteString("\nTry take_screenshot() to inspect the page visually.")
		return b.String()
	}

	switch {
	case o.NewTabOpened:
		return fmt.Sprintf("Clicked %s\nA new tab opened and is now active: %s", o.Selector, o.CurrentURL)
	case o.Navigated:
		return fmt.Sprintf("Clicked %s\nNavigated to: %s", o.Selector, o.CurrentURL)
	default:
		return fmt.Sprintf("Clicked %s (page did not change)", o.Selector)
	}
}
