// internal/interaction/executor.go
package interaction

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/webpilot/api/schemas"
	"github.com/xkilldash9x/webpilot/internal/config"
	"github.com/xkilldash9x/webpilot/internal/llmutil"
	"github.com/xkilldash9x/webpilot/internal/observability"
)

// ScrollDirection selects how Scroll moves the page.
type ScrollDirection string

const (
	ScrollDown      ScrollDirection = "down"
	ScrollUp        ScrollDirection = "up"
	ScrollToElement ScrollDirection = "to_element"
)

// ErrInvalidDirection is returned for an unknown scroll direction.
var ErrInvalidDirection = errors.New("invalid scroll direction")

// Executor performs interactions against the active page. It is not safe
// for concurrent use; the agent drives it from a single goroutine.
type Executor struct {
	page     schemas.Page
	confirm  schemas.ConfirmationProvider
	cfg      config.InteractionConfig
	browser  config.BrowserConfig
	metrics  *observability.Metrics
	logger   *zap.Logger
	matched  map[string]string
	keywords []string
}

// New creates an Executor. confirm may be nil, in which case every
// destructive click is cancelled.
func New(page schemas.Page, confirm schemas.ConfirmationProvider, cfg config.Interface, metrics *observability.Metrics, logger *zap.Logger) *Executor {
	icfg := cfg.Interaction()
	keywords := make([]string, 0, len(icfg.DestructiveKeywords))
	for _, kw := range icfg.DestructiveKeywords {
		if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
			keywords = append(keywords, kw)
		}
	}
	return &Executor{
		page:     page,
		confirm:  confirm,
		cfg:      icfg,
		browser:  cfg.Browser(),
		metrics:  metrics,
		logger:   logger.Named("interaction"),
		matched:  make(map[string]string),
		keywords: keywords,
	}
}

// RememberMatch records the text the locator matched for selector, so the
// destructive-action gate also sees it when the selector alone is opaque.
func (e *Executor) RememberMatch(selector, matchedText string) {
	e.matched[selector] = matchedText
}

// DestructiveKeyword returns the first configured keyword found in the
// selector or in the text previously matched for it.
func (e *Executor) DestructiveKeyword(selector string) (string, bool) {
	if !e.cfg.ConfirmDestructive {
		return "", false
	}
	haystack := strings.ToLower(selector) + "\n" + strings.ToLower(e.matched[selector])
	for _, kw := range e.keywords {
		if strings.Contains(haystack, kw) {
			return kw, true
		}
	}
	return "", false
}

// -- Click State Machine --

// Click runs the click state machine. It never returns an error: failures are
// reported through the outcome so the model can pick another approach.
func (e *Executor) Click(ctx context.Context, selector string) InteractionOutcome {
	out := InteractionOutcome{Selector: selector}
	logger := e.logger.With(zap.String("selector", selector))

	if kw, risky := e.DestructiveKeyword(selector); risky {
		if !e.approve(ctx, selector, kw) {
			logger.Info("Destructive click declined.", zap.String("keyword", kw))
			out.Status = StatusCancelled
			e.metrics.ObserveClick("none", string(out.Status))
			return out
		}
	}

	tabsBefore, err := e.page.Tabs(ctx)
	if err != nil {
		// Without a baseline every open tab would look new.
		logger.Debug("Could not snapshot tabs before click, new-tab detection disabled.", zap.Error(err))
		tabsBefore = nil
	} else if tabsBefore == nil {
		tabsBefore = []string{}
	}
	urlBefore, err := e.page.URL(ctx)
	if err != nil {
		logger.Debug("Could not snapshot URL before click.", zap.Error(err))
	}

	if err := e.step(ctx, StateScrollIntoView, e.cfg.ScrollTimeout, func(c context.Context) error {
		return e.page.ScrollIntoView(c, selector)
	}); err != nil {
		return e.fail(out, err)
	}
	if err := e.step(ctx, StateWaitVisible, e.cfg.VisibleTimeout, func(c context.Context) error {
		return e.page.WaitVisible(c, selector)
	}); err != nil {
		return e.fail(out, err)
	}

	strategy, err := e.clickWithFallback(ctx, selector)
	if err != nil {
		return e.fail(out, err)
	}
	out.Strategy = strategy

	e.detectEffect(ctx, &out, tabsBefore, urlBefore)
	out.Status = StatusSuccess
	e.metrics.ObserveClick(string(strategy), string(out.Status))
	logger.Info("Click succeeded.",
		zap.String("strategy", string(strategy)),
		zap.Bool("navigated", out.Navigated),
		zap.Bool("new_tab", out.NewTabOpened),
		zap.String("url", out.CurrentURL))
	return out
}

func (e *Executor) approve(ctx context.Context, selector, keyword string) bool {
	if e.confirm == nil {
		return false
	}
	prompt := fmt.Sprintf("Destructive action (%q): click on %s. Proceed?", keyword, selector)
	if text := e.matched[selector]; text != "" {
		prompt = fmt.Sprintf("Destructive action (%q): click on %s (%q). Proceed?", keyword, selector, text)
	}
	ok, err := e.confirm.Confirm(ctx, prompt)
	if err != nil {
		e.logger.Warn("Confirmation failed, treating as declined.", zap.Error(err))
		return false
	}
	return ok
}

type clickAttempt struct {
	state    ClickState
	strategy Strategy
	timeout  time.Duration
	settle   time.Duration
	do       func(ctx context.Context) error
}

// clickWithFallback escalates plain, forced then scripted clicks, moving on
// only when the previous strategy failed.
func (e *Executor) clickWithFallback(ctx context.Context, selector string) (Strategy, error) {
	attempts := []clickAttempt{
		{StatePlainClick, StrategyPlain, e.cfg.ClickTimeout, e.cfg.ClickSettle, func(c context.Context) error {
			return e.page.Click(c, selector, e.cfg.ClickHold)
		}},
		{StateForcedClick, StrategyForced, e.cfg.ForceClickTimeout, e.cfg.ClickSettle, func(c context.Context) error {
			return e.page.ForceClick(c, selector)
		}},
		{StateScriptedClick, StrategyScripted, e.cfg.ActionTimeout, e.cfg.ScriptClickSettle, func(c context.Context) error {
			return e.page.ScriptClick(c, selector)
		}},
	}

	var lastErr error
	for _, a := range attempts {
		err := e.step(ctx, a.state, a.timeout, a.do)
		if err == nil {
			_ = pause(ctx, a.settle)
			return a.strategy, nil
		}
		if ctx.Err() != nil {
			return StrategyNone, ctx.Err()
		}
		lastErr = err
		e.logger.Debug("Click strategy failed.",
			zap.String("state", string(a.state)),
			zap.String("selector", selector),
			zap.Error(err))
	}
	return StrategyNone, lastErr
}

// detectEffect compares tabs and URL with the pre-click snapshots. A new tab
// becomes the active page. A nil tabsBefore means no snapshot was taken and
// only the URL is compared.
func (e *Executor) detectEffect(ctx context.Context, out *InteractionOutcome, tabsBefore []string, urlBefore string) {
	_ = pause(ctx, e.cfg.EffectWait)
	logger := e.logger.With(zap.String("state", string(StateDetectEffect)))

	var tabsAfter []string
	if tabsBefore != nil {
		var err error
		if tabsAfter, err = e.page.Tabs(ctx); err != nil {
			logger.Debug("Could not list tabs after click.", zap.Error(err))
		}
	}
	if tabsBefore != nil && len(tabsAfter) > len(tabsBefore) {
		newest := newestTab(tabsBefore, tabsAfter)
		if err := e.page.SwitchTab(ctx, newest); err != nil {
			logger.Warn("Failed to switch to the new tab.", zap.String("tab", newest), zap.Error(err))
		} else {
			out.NewTabOpened = true
			e.waitLoad(ctx, e.cfg.NewTabLoadTimeout)
			out.CurrentURL, _ = e.page.URL(ctx)
			return
		}
	}

	urlAfter, err := e.page.URL(ctx)
	if err != nil {
		logger.Debug("Could not read URL after click.", zap.Error(err))
		out.CurrentURL = urlBefore
		return
	}
	out.CurrentURL = urlAfter
	if urlAfter != urlBefore {
		out.Navigated = true
		e.waitLoad(ctx, e.cfg.NavigationLoadWait)
		if current, err := e.page.URL(ctx); err == nil {
			out.CurrentURL = current
		}
	}
}

// waitLoad waits for DOMContentLoaded. The click already happened, so a slow
// load is logged rather than reported as a failure.
func (e *Executor) waitLoad(ctx context.Context, timeout time.Duration) {
	if err := e.withTimeout(ctx, timeout, e.page.WaitLoad); err != nil {
		e.logger.Debug("Page did not finish loading in time.", zap.Duration("timeout", timeout), zap.Error(err))
	}
}

func (e *Executor) fail(out InteractionOutcome, err error) InteractionOutcome {
	out.Status = StatusFailed
	out.Err = err
	e.metrics.ObserveClick("none", string(out.Status))
	e.logger.Info("All click attempts failed.", zap.String("selector", out.Selector), zap.Error(err))
	return out
}

// -- Other Interactions --

// TypeText clears the field and types text key by key.
func (e *Executor) TypeText(ctx context.Context, selector, text string) error {
	if err := e.withTimeout(ctx, e.cfg.ActionTimeout, func(c context.Context) error {
		return e.page.ClearInput(c, selector)
	}); err != nil {
		return fmt.Errorf("failed to clear %s: %w", selector, err)
	}
	// Typing time grows with the text; the base timeout only covers lookup.
	budget := e.cfg.ActionTimeout + e.cfg.TypeDelay*time.Duration(llmutil.RuneLen(text))
	if err := e.withTimeout(ctx, budget, func(c context.Context) error {
		return e.page.TypeText(c, selector, text, e.cfg.TypeDelay)
	}); err != nil {
		return fmt.Errorf("failed to type into %s: %w", selector, err)
	}
	return nil
}

// PressKey presses a named key on the focused element.
func (e *Executor) PressKey(ctx context.Context, key string) error {
	return e.withTimeout(ctx, e.cfg.ActionTimeout, func(c context.Context) error {
		return e.page.PressKey(c, key)
	})
}

// Scroll moves the viewport by a fraction of its height, or brings selector
// into view. It returns a short description of what happened.
func (e *Executor) Scroll(ctx context.Context, direction ScrollDirection, selector string) (string, error) {
	switch direction {
	case ScrollDown, ScrollUp:
		ratio := e.cfg.ScrollRatio
		if direction == ScrollUp {
			ratio = -ratio
		}
		script := fmt.Sprintf("window.scrollBy(0, window.innerHeight * %g)", ratio)
		if err := e.withTimeout(ctx, e.cfg.ScrollTimeout, func(c context.Context) error {
			return e.page.Evaluate(c, script, nil)
		}); err != nil {
			return "", err
		}
		return "Scrolled " + string(direction), nil
	case ScrollToElement:
		if selector == "" {
			return "", fmt.Errorf("%w: to_element requires a selector", ErrInvalidDirection)
		}
		if err := e.withTimeout(ctx, e.cfg.ScrollTimeout, func(c context.Context) error {
			return e.page.ScrollIntoView(c, selector)
		}); err != nil {
			return "", err
		}
		return "Scrolled to element: " + selector, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidDirection, direction)
	}
}

// WaitFor blocks until selector is visible or timeout elapses. A zero
// timeout uses the configured default.
func (e *Executor) WaitFor(ctx context.Context, selector string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = e.cfg.WaitForTimeout
	}
	return e.withTimeout(ctx, timeout, func(c context.Context) error {
		return e.page.WaitVisible(c, selector)
	})
}

// ElementText returns the innerText of the first match.
func (e *Executor) ElementText(ctx context.Context, selector string) (string, error) {
	var text string
	err := e.withTimeout(ctx, e.cfg.ActionTimeout, func(c context.Context) error {
		if err := e.page.WaitPresent(c, selector); err != nil {
			return err
		}
		var err error
		text, err = e.page.InnerText(c, selector)
		return err
	})
	return text, err
}

// GoBack steps back in history and waits for the page to load.
func (e *Executor) GoBack(ctx context.Context) error {
	return e.withTimeout(ctx, e.browser.NavigationTimeout, func(c context.Context) error {
		if err := e.page.GoBack(c); err != nil {
			return err
		}
		return e.page.WaitLoad(c)
	})
}

// Navigate loads url, then gives dynamic content a moment to render.
func (e *Executor) Navigate(ctx context.Context, url string) error {
	if err := e.withTimeout(ctx, e.browser.NavigationTimeout, func(c context.Context) error {
		return e.page.Navigate(c, url)
	}); err != nil {
		return err
	}
	return pause(ctx, e.browser.PostLoadWait)
}

// -- Helpers --

// step runs one state of the click machine under its own timeout.
func (e *Executor) step(ctx context.Context, state ClickState, timeout time.Duration, fn func(context.Context) error) error {
	if err := e.withTimeout(ctx, timeout, fn); err != nil {
		return fmt.Errorf("%s: %w", strings.ToLower(string(state)), err)
	}
	return nil
}

// withTimeout runs fn with a derived deadline. A deadline hit is reported
// with context.DeadlineExceeded in the chain.
func (e *Executor) withTimeout(ctx context.Context, timeout time.Duration, fn func(context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}
	opCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := fn(opCtx)
	if err != nil && opCtx.Err() == context.DeadlineExceeded && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("timed out after %s: %w (%v)", timeout, context.DeadlineExceeded, err)
	}
	return err
}

// newestTab returns the last tab in after that was not open before.
func newestTab(before, after []string) string {
	known := make(map[string]struct{}, len(before))
	for _, id := range before {
		known[id] = struct{}{}
	}
	for i := len(after) - 1; i >= 0; i-- {
		if _, ok := known[after[i]]; !ok {
			return after[i]
		}
	}
	return after[len(after)-1]
}

func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
