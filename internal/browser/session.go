// internal/browser/session.go
package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/webpilot/api/schemas"
	"github.com/xkilldash9x/webpilot/internal/config"
)

const (
	pageTargetType    = "page"
	readyPollInterval = 100 * time.Millisecond
	shutdownTimeout   = 10 * time.Second
)

// ErrTabNotFound is returned by SwitchTab for an id that is not an open page.
var ErrTabNotFound = errors.New("tab not found")

// Session is a single Chrome instance on a persistent profile. One tab is
// active at a time; every Page method runs against it.
type Session struct {
	id     string
	cfg    config.BrowserConfig
	logger *zap.Logger

	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc

	mu        sync.Mutex
	active    context.Context
	activeID  target.ID
	tabs      map[target.ID]context.Context
	tabCancel map[target.ID]context.CancelFunc
	order     []target.ID

	closeOnce sync.Once
}

var _ schemas.Page = (*Session)(nil)

// NewSession launches Chrome on the configured profile and opens the start URL.
// The browser lives until Close or until ctx is cancelled.
func NewSession(ctx context.Context, cfg config.Interface, logger *zap.Logger) (*Session, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	bc := cfg.Browser()
	sessionID := uuid.New().String()
	log := logger.Named("browser").With(zap.String("session_id", sessionID))

	profileDir, err := ResolveProfileDir(bc.ProfileDir)
	if err != nil {
		return nil, err
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, AllocatorOptions(bc, profileDir)...)
	sugar := log.Sugar()
	browserCtx, browserCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(sugar.Debugf),
		chromedp.WithErrorf(sugar.Debugf),
	)

	// The first Run starts the browser and must not carry a deadline, or the
	// browser would die with it.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	s := &Session{
		id:            sessionID,
		cfg:           bc,
		logger:        log,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		active:        browserCtx,
		tabs:          make(map[target.ID]context.Context),
		tabCancel:     make(map[target.ID]context.CancelFunc),
	}
	if c := chromedp.FromContext(browserCtx); c != nil && c.Target != nil {
		s.activeID = c.Target.TargetID
		s.tabs[s.activeID] = browserCtx
		s.order = append(s.order, s.activeID)
	}
	log.Info("Browser session started.", zap.String("profile_dir", profileDir), zap.Bool("headless", bc.Headless))

	if bc.StartURL != "" {
		navCtx, cancel := ctx, context.CancelFunc(func() {})
		if bc.NavigationTimeout > 0 {
			navCtx, cancel = context.WithTimeout(ctx, bc.NavigationTimeout)
		}
		defer cancel()
		if err := s.Navigate(navCtx, bc.StartURL); err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to open start URL %s: %w", bc.StartURL, err)
		}
	}
	return s, nil
}

// ID returns the session identifier used in logs.
func (s *Session) ID() string { return s.id }

func (s *Session) activeContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// run executes actions on the active tab, bounded by ctx.
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := combineContext(s.activeContext(), ctx)
	defer cancel()

	err := chromedp.Run(runCtx, actions...)
	if err != nil {
		// chromedp reports the combined context's error; keep the caller's
		// cause visible to errors.Is.
		if cause := ctx.Err(); cause != nil && !errors.Is(err, cause) {
			err = fmt.Errorf("%w: %v", cause, err)
		}
		return err
	}
	if s.cfg.SlowMo > 0 {
		return pause(ctx, s.cfg.SlowMo)
	}
	return nil
}

// -- Navigation --

// Navigate loads url and waits for the load event.
func (s *Session) Navigate(ctx context.Context, url string) error {
	s.logger.Debug("Navigating.", zap.String("url", url))
	return s.run(ctx, chromedp.Navigate(url))
}

func (s *Session) GoBack(ctx context.Context) error {
	return s.run(ctx, chromedp.NavigateBack())
}

func (s *Session) URL(ctx context.Context) (string, error) {
	var location string
	if err := s.run(ctx, chromedp.Location(&location)); err != nil {
		return "", err
	}
	return location, nil
}

// WaitLoad polls until the active document has left the "loading" state.
func (s *Session) WaitLoad(ctx context.Context) error {
	for {
		var state string
		err := s.run(ctx, chromedp.Evaluate(`document.readyState`, &state))
		if err == nil && state != "loading" {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err := pause(ctx, readyPollInterval); err != nil {
			return err
		}
	}
}

// -- Scripting and capture --

// Evaluate runs script in the active tab. A returned promise is awaited.
// res may be nil to discard the result.
func (s *Session) Evaluate(ctx context.Context, script string, res interface{}) error {
	return s.run(ctx, chromedp.Evaluate(script, res, awaitPromise))
}

func awaitPromise(p *runtime.EvaluateParams) *runtime.EvaluateParams {
	return p.WithAwaitPromise(true)
}

// Screenshot captures the visible viewport as PNG.
func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := s.run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, err
	}
	return buf, nil
}

// -- Element queries --

func (s *Session) ScrollIntoView(ctx context.Context, selector string) error {
	q := parseSelector(selector)
	return s.run(ctx, chromedp.ScrollIntoView(q.Sel, q.opts()...))
}

func (s *Session) WaitVisible(ctx context.Context, selector string) error {
	q := parseSelector(selector)
	return s.run(ctx, chromedp.WaitVisible(q.Sel, q.opts()...))
}

func (s *Session) WaitPresent(ctx context.Context, selector string) error {
	q := parseSelector(selector)
	return s.run(ctx, chromedp.WaitReady(q.Sel, q.opts()...))
}

func (s *Session) InnerText(ctx context.Context, selector string) (string, error) {
	q := parseSelector(selector)
	var text string
	if err := s.run(ctx, chromedp.Text(q.Sel, &text, q.opts(chromedp.AtLeast(1))...)); err != nil {
		return "", err
	}
	return text, nil
}

// firstNode resolves the first node matching q once it satisfies the query option.
func firstNode(q querySpec, wait chromedp.QueryOption, out **cdp.Node) chromedp.Action {
	var nodes []*cdp.Node
	return chromedp.Tasks{
		chromedp.Nodes(q.Sel, &nodes, q.opts(wait, chromedp.AtLeast(1))...),
		chromedp.ActionFunc(func(ctx context.Context) error {
			if len(nodes) == 0 {
				return fmt.Errorf("no node matches %q", q.Sel)
			}
			*out = nodes[0]
			return nil
		}),
	}
}

// -- Clicking --

// Click waits for the first match to be visible, scrolls it into view and
// presses the left button at its center for hold.
func (s *Session) Click(ctx context.Context, selector string, hold time.Duration) error {
	q := parseSelector(selector)
	if hold <= 0 {
		return s.run(ctx, chromedp.Click(q.Sel, q.opts(chromedp.NodeVisible)...))
	}

	var node *cdp.Node
	return s.run(ctx,
		firstNode(q, chromedp.NodeVisible, &node),
		chromedp.ActionFunc(func(ctx context.Context) error {
			if err := dom.ScrollIntoViewIfNeeded().WithNodeID(node.NodeID).Do(ctx); err != nil {
				return fmt.Errorf("failed to scroll node into view: %w", err)
			}
			return clickAtCenter(ctx, node, hold)
		}),
	)
}

// ForceClick dispatches mouse events at the node's box without waiting for
// it to become visible or enabled.
func (s *Session) ForceClick(ctx context.Context, selector string) error {
	q := parseSelector(selector)
	var node *cdp.Node
	return s.run(ctx,
		firstNode(q, chromedp.NodeReady, &node),
		chromedp.ActionFunc(func(ctx context.Context) error {
			return clickAtCenter(ctx, node, 0)
		}),
	)
}

// ScriptClick calls el.click() on the first match.
func (s *Session) ScriptClick(ctx context.Context, selector string) error {
	q := parseSelector(selector)
	var node *cdp.Node
	return s.run(ctx,
		firstNode(q, chromedp.NodeReady, &node),
		chromedp.ActionFunc(func(ctx context.Context) error {
			return chromedp.CallFunctionOnNode(ctx, node, `function() { this.click(); }`, nil)
		}),
	)
}

func clickAtCenter(ctx context.Context, node *cdp.Node, hold time.Duration) error {
	box, err := dom.GetBoxModel().WithNodeID(node.NodeID).Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to get box model: %w", err)
	}
	x, y, ok := quadCenter(box.Content)
	if !ok {
		return errors.New("element has no layout box")
	}

	if err := input.DispatchMouseEvent(input.MouseMoved, x, y).Do(ctx); err != nil {
		return err
	}
	if err := input.DispatchMouseEvent(input.MousePressed, x, y).
		WithButton(input.Left).WithClickCount(1).Do(ctx); err != nil {
		return err
	}
	if hold > 0 {
		if err := pause(ctx, hold); err != nil {
			return err
		}
	}
	return input.DispatchMouseEvent(input.MouseReleased, x, y).
		WithButton(input.Left).WithClickCount(1).Do(ctx)
}

// quadCenter averages the four corners of a quad (x1,y1 ... x4,y4).
func quadCenter(q dom.Quad) (float64, float64, bool) {
	if len(q) != 8 {
		return 0, 0, false
	}
	var x, y float64
	for i := 0; i < 8; i += 2 {
		x += q[i]
		y += q[i+1]
	}
	return x / 4, y / 4, true
}

// -- Keyboard --

func (s *Session) ClearInput(ctx context.Context, selector string) error {
	q := parseSelector(selector)
	return s.run(ctx, chromedp.Clear(q.Sel, q.opts(chromedp.NodeVisible)...))
}

// TypeText focuses the first match and types text, pausing delay between keys.
func (s *Session) TypeText(ctx context.Context, selector, text string, delay time.Duration) error {
	q := parseSelector(selector)
	if delay <= 0 {
		return s.run(ctx, chromedp.SendKeys(q.Sel, text, q.opts(chromedp.NodeVisible)...))
	}

	actions := chromedp.Tasks{chromedp.Focus(q.Sel, q.opts(chromedp.NodeVisible)...)}
	for _, r := range text {
		actions = append(actions, chromedp.KeyEvent(string(r)), chromedp.Sleep(delay))
	}
	return s.run(ctx, actions)
}

func (s *Session) PressKey(ctx context.Context, key string) error {
	k, err := keyFor(key)
	if err != nil {
		return err
	}
	return s.run(ctx, chromedp.KeyEvent(k))
}

// -- Tabs --

// Tabs lists open page targets in the order this session first saw them.
func (s *Session) Tabs(ctx context.Context) ([]string, error) {
	runCtx, cancel := combineContext(s.browserCtx, ctx)
	defer cancel()

	infos, err := chromedp.Targets(runCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to list targets: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.order = mergeTabOrder(s.order, pageTargets(infos))

	ids := make([]string, len(s.order))
	for i, id := range s.order {
		ids[i] = string(id)
	}
	return ids, nil
}

func pageTargets(infos []*target.Info) []target.ID {
	ids := make([]target.ID, 0, len(infos))
	for _, info := range infos {
		if info != nil && info.Type == pageTargetType {
			ids = append(ids, info.TargetID)
		}
	}
	return ids
}

// mergeTabOrder drops closed targets from known and appends unseen ones.
func mergeTabOrder(known, open []target.ID) []target.ID {
	isOpen := make(map[target.ID]bool, len(open))
	for _, id := range open {
		isOpen[id] = true
	}
	seen := make(map[target.ID]bool, len(known))
	merged := make([]target.ID, 0, len(open))
	for _, id := range known {
		if isOpen[id] && !seen[id] {
			merged = append(merged, id)
			seen[id] = true
		}
	}
	for _, id := range open {
		if !seen[id] {
			merged = append(merged, id)
			seen[id] = true
		}
	}
	return merged
}

// SwitchTab attaches to the target and makes it the active tab.
func (s *Session) SwitchTab(ctx context.Context, id string) error {
	tid := target.ID(id)
	s.mu.Lock()
	if tid == s.activeID {
		s.mu.Unlock()
		return nil
	}
	tabCtx, attached := s.tabs[tid]
	s.mu.Unlock()

	ids, err := s.Tabs(ctx)
	if err != nil {
		return err
	}
	if !contains(ids, id) {
		return fmt.Errorf("%w: %s", ErrTabNotFound, id)
	}

	if !attached {
		var cancel context.CancelFunc
		tabCtx, cancel = chromedp.NewContext(s.browserCtx, chromedp.WithTargetID(tid))
		// Attaching happens on the first Run, which must not carry a deadline.
		if err := chromedp.Run(tabCtx); err != nil {
			cancel()
			return fmt.Errorf("failed to attach to tab %s: %w", id, err)
		}
		s.mu.Lock()
		s.tabs[tid] = tabCtx
		s.tabCancel[tid] = cancel
		s.mu.Unlock()
	}

	runCtx, cancel := combineContext(tabCtx, ctx)
	defer cancel()
	if err := chromedp.Run(runCtx, target.ActivateTarget(tid)); err != nil {
		s.logger.Debug("Could not bring tab to front.", zap.String("target_id", id), zap.Error(err))
	}

	s.mu.Lock()
	previous := s.activeID
	s.active = tabCtx
	s.activeID = tid
	s.mu.Unlock()

	s.logger.Debug("Active tab changed.", zap.String("from", string(previous)), zap.String("to", id))
	return nil
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// -- Profile and lifecycle --

// CookieCount reports how many cookies the profile holds across all sites.
func (s *Session) CookieCount(ctx context.Context) (int, error) {
	var count int
	err := s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		cookies, err := storage.GetCookies().Do(ctx)
		if err != nil {
			return err
		}
		count = len(cookies)
		return nil
	}))
	if err != nil {
		return 0, fmt.Errorf("failed to read cookies: %w", err)
	}
	return count, nil
}

// Close shuts the browser down gracefully so the profile is flushed to disk.
// It is safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		for id, cancel := range s.tabCancel {
			cancel()
			delete(s.tabCancel, id)
		}
		s.mu.Unlock()

		done := make(chan error, 1)
		go func() { done <- chromedp.Cancel(s.browserCtx) }()
		select {
		case err := <-done:
			if err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Warn("Browser did not shut down cleanly.", zap.Error(err))
			}
		case <-time.After(shutdownTimeout):
			s.logger.Warn("Timed out waiting for the browser to exit.")
		}
		s.browserCancel()
		s.allocCancel()
		s.logger.Info("Browser session closed.")
	})
}

func pause(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
