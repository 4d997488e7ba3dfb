// internal/tools/handlers.go
package tools

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/xkilldash9x/webpilot/api/schemas"
	"github.com/xkilldash9x/webpilot/internal/interaction"
	"github.com/xkilldash9x/webpilot/internal/locator"
)

// toolset holds the handlers. Each returns either an outcome or an error;
// Dispatch turns errors into error outcomes.
type toolset struct {
	deps Dependencies
}

// failf builds a ToolError whose kind is derived from err.
func failf(tool ToolName, err error, format string, args ...interface{}) *ToolError {
	return newToolError(classify(err), tool, fmt.Sprintf(format, args...), err)
}

func (t *toolset) gotoURL(ctx context.Context, in GotoURLInput) (Outcome, error) {
	if err := t.deps.Interactor.Navigate(ctx, in.URL); err != nil {
		return Outcome{}, failf(ToolGotoURL, err, "Error navigating to %s: %v", in.URL, err)
	}
	return TextOutcome("Successfully navigated to " + in.URL), nil
}

func (t *toolset) getPageContent(ctx context.Context, in GetPageContentInput) (Outcome, error) {
	scroll := true
	if t.deps.Config != nil {
		scroll = t.deps.Config.Extraction().ScrollToLoad
	}
	if in.ScrollToLoad != nil {
		scroll = *in.ScrollToLoad
	}
	content, err := t.deps.Extractor.Extract(ctx, scroll)
	if err != nil {
		return Outcome{}, failf(ToolGetPageContent, err, "Error in get_page_content: %v", err)
	}
	return TextOutcome(content), nil
}

func (t *toolset) takeScreenshot(ctx context.Context, _ TakeScreenshotInput) (Outcome, error) {
	png, err := t.deps.Screens.Screenshot(ctx)
	if err != nil {
		return Outcome{}, failf(ToolTakeScreenshot, err, "Error taking screenshot: %v", err)
	}
	return Outcome{
		Text: ScreenshotCaption,
		Image: &schemas.ImageData{
			MediaType: schemas.ImageMediaPNG,
			Data:      base64.StdEncoding.EncodeToString(png),
		},
	}, nil
}

func (t *toolset) findElement(ctx context.Context, in FindElementInput) (Outcome, error) {
	found, err := t.deps.Finder.Find(ctx, in.Description)
	if errors.Is(err, locator.ErrNotFound) {
		return Outcome{}, newToolError(KindElementNotFound, ToolFindElement,
			fmt.Sprintf("Element not found: '%s'", in.Description), err)
	}
	if err != nil {
		return Outcome{}, failf(ToolFindElement, err, "Error in find_element: %v", err)
	}
	t.deps.Interactor.RememberMatch(found.Selector, found.MatchedText)
	return TextOutcome(fmt.Sprintf("Found: \"%s\" -> selector: %s (score %d)",
		found.MatchedText, found.Selector, found.Score)), nil
}

func (t *toolset) click(ctx context.Context, in ClickInput) (Outcome, error) {
	out := t.deps.Interactor.Click(ctx, in.Selector)
	switch out.Status {
	case interaction.StatusSuccess:
		return TextOutcome(out.Summary()), nil
	case interaction.StatusCancelled:
		return Outcome{}, newToolError(KindCancelled, ToolClick, out.Summary(), nil)
	default:
		kind := KindExecution
		if out.Err != nil {
			kind = classify(out.Err)
		}
		return Outcome{}, newToolError(kind, ToolClick, out.Summary(), out.Err)
	}
}

func (t *toolset) typeText(ctx context.Context, in TypeTextInput) (Outcome, error) {
	if err := t.deps.Interactor.TypeText(ctx, in.Selector, in.Text); err != nil {
		return Outcome{}, failf(ToolTypeText, err, "Error typing into '%s': %v", in.Selector, err)
	}
	return TextOutcome(fmt.Sprintf("Typed '%s' into %s", in.Text, in.Selector)), nil
}

func (t *toolset) pressKey(ctx context.Context, in PressKeyInput) (Outcome, error) {
	if err := t.deps.Interactor.PressKey(ctx, in.Key); err != nil {
		return Outcome{}, failf(ToolPressKey, err, "Error pressing key '%s': %v", in.Key, err)
	}
	return TextOutcome("Pressed key: " + in.Key), nil
}

func (t *toolset) scroll(ctx context.Context, in ScrollInput) (Outcome, error) {
	msg, err := t.deps.Interactor.Scroll(ctx, interaction.ScrollDirection(in.Direction), in.Selector)
	if errors.Is(err, interaction.ErrInvalidDirection) {
		return Outcome{}, newToolError(KindInvalidInput, ToolScroll, fmt.Sprintf("Invalid scroll request: %v", err), err)
	}
	if err != nil {
		return Outcome{}, failf(ToolScroll, err, "Error scrolling: %v", err)
	}
	return TextOutcome(msg), nil
}

func (t *toolset) waitForElement(ctx context.Context, in WaitForElementInput) (Outcome, error) {
	timeout, ceiling := 10*time.Second, 2*time.Minute
	if t.deps.Config != nil {
		timeout = t.deps.Config.Interaction().WaitForTimeout
		ceiling = t.deps.Config.Interaction().MaxWaitForTimeout
	}
	if in.TimeoutMS != nil && *in.TimeoutMS > 0 {
		// Compared in milliseconds so an oversized value cannot overflow the Duration.
		if int64(*in.TimeoutMS) > ceiling.Milliseconds() {
			timeout = ceiling
		} else {
			timeout = time.Duration(*in.TimeoutMS) * time.Millisecond
		}
	}
	if err := t.deps.Interactor.WaitFor(ctx, in.Selector, timeout); err != nil {
		te := failf(ToolWaitForElement, err, "Element did not appear within %dms: %s", timeout.Milliseconds(), in.Selector)
		return Outcome{}, te
	}
	return TextOutcome("Element appeared: " + in.Selector), nil
}

func (t *toolset) getElementText(ctx context.Context, in GetElementTextInput) (Outcome, error) {
	text, err := t.deps.Interactor.ElementText(ctx, in.Selector)
	if err != nil {
		return Outcome{}, failf(ToolGetElementText, err, "Error getting text from '%s': %v", in.Selector, err)
	}
	return TextOutcome("Text content: " + text), nil
}

func (t *toolset) goBack(ctx context.Context, _ GoBackInput) (Outcome, error) {
	if err := t.deps.Interactor.GoBack(ctx); err != nil {
		return Outcome{}, failf(ToolGoBack, err, "Error going back: %v", err)
	}
	return TextOutcome("Navigated back to previous page"), nil
}

func (t *toolset) askHuman(ctx context.Context, in AskHumanInput) (Outcome, error) {
	if t.deps.Questions == nil {
		return Outcome{}, newToolError(KindExecution, ToolAskHuman, "Error: no operator is available to answer questions", nil)
	}
	answer, err := t.deps.Questions.Ask(ctx, in.Question)
	if err != nil {
		return Outcome{}, failf(ToolAskHuman, err, "Error asking the operator: %v", err)
	}
	return TextOutcome("User responded: " + answer), nil
}
