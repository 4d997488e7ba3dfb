// internal/extraction/extractor.go
package extraction

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/webpilot/api/schemas"
	"github.com/xkilldash9x/webpilot/internal/config"
	"github.com/xkilldash9x/webpilot/internal/llmutil"
)

const (
	// EmptyPageMessage is returned when no section yields any item.
	EmptyPageMessage = "No content found. Page may be empty or still loading."

	contentHeader   = "=== PAGE CONTENT (FULL PAGE, TOKEN-OPTIMIZED) ==="
	contentFooter   = "=== END ==="
	truncatedMarker = "\n\n... [TRUNCATED: %d chars omitted]"

	// rawItemLimit bounds how many raw items per section the page sends back.
	rawItemLimit = 2000
)

// Extractor produces the bounded page summary handed to the model.
type Extractor struct {
	page   schemas.Page
	cfg    config.ExtractionConfig
	logger *zap.Logger
}

// New creates an Extractor for the given page.
func New(page schemas.Page, cfg config.ExtractionConfig, logger *zap.Logger) *Extractor {
	return &Extractor{
		page:   page,
		cfg:    cfg,
		logger: logger.Named("extractor"),
	}
}

// Extract triggers lazy loading when scrollToLoad is set, then collects,
// cleans and serializes the page. The result never exceeds the configured
// character ceiling plus the header, footer and truncation marker.
func (e *Extractor) Extract(ctx context.Context, scrollToLoad bool) (string, error) {
	if scrollToLoad {
		if err := e.triggerLazyLoad(ctx); err != nil {
			return "", err
		}
	}

	var raw RawPage
	// JS string lengths count UTF-16 units, twice the rune count at worst.
	script := fmt.Sprintf(collectScript, 2*e.cfg.MaxTextLength, rawItemLimit)
	if err := e.page.Evaluate(ctx, script, &raw); err != nil {
		return "", fmt.Errorf("failed to collect page content: %w", err)
	}

	summary := Summarize(raw, e.cfg)
	e.logger.Debug("Page content extracted.",
		zap.String("url", summary.URL),
		zap.Int("headings", len(summary.Headings)),
		zap.Int("interactive", len(summary.Interactive)),
		zap.Int("blocks", len(summary.ContentBlocks)),
		zap.Int("other", len(summary.OtherText)))

	if summary.Empty() {
		return EmptyPageMessage, nil
	}
	return Frame(summary.Render(), e.cfg.MaxChars), nil
}

// Frame caps a rendered summary at maxChars and wraps it in the content header
// and footer.
func Frame(rendered string, maxChars int) string {
	var b strings.Builder
	b.WriteString(contentHeader)
	b.WriteString("\n")
	b.WriteString(llmutil.TruncateWithMarker(rendered, maxChars, truncatedMarker))
	b.WriteString("\n")
	b.WriteString(contentFooter)
	return b.String()
}

func (e *Extractor) triggerLazyLoad(ctx context.Context) error {
	script := fmt.Sprintf(lazyLoadScript,
		e.cfg.ScrollStepRatio, e.cfg.MaxScrollViewports, e.cfg.ScrollDelay.Milliseconds())

	var done bool
	if err := e.page.Evaluate(ctx, script, &done); err != nil {
		return fmt.Errorf("failed to scroll page for lazy loading: %w", err)
	}
	return pause(ctx, e.cfg.SettleDelay)
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
