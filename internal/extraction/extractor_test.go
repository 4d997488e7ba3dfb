package extraction_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/webpilot/internal/config"
	"github.com/xkilldash9x/webpilot/internal/extraction"
	"github.com/xkilldash9x/webpilot/internal/llmutil"
	"github.com/xkilldash9x/webpilot/internal/mocks"
)

func testConfig() config.ExtractionConfig {
	cfg := config.NewDefaultConfig().Extraction()
	cfg.SettleDelay = 0
	return cfg
}

func isCollectScript(script string) bool {
	return strings.Contains(script, "querySelectorAll('h1, h2, h3')")
}

func isScrollScript(script string) bool {
	return strings.Contains(script, "maxViewports")
}

func fillRawPage(raw extraction.RawPage) func(mock.Arguments) {
	return func(args mock.Arguments) {
		*args.Get(2).(*extraction.RawPage) = raw
	}
}

// largePage builds 30 headings, 150 interactive elements and a few dozen
// paragraphs, well over the character ceiling once rendered.
func largePage() extraction.RawPage {
	raw := extraction.RawPage{URL: "https://news.example.com/", Title: "Daily digest"}
	for i := 0; i < 30; i++ {
		raw.Headings = append(raw.Headings, extraction.RawHeading{
			Tag:  "H2",
			Text: fmt.Sprintf("Section heading number %02d about the quarterly report", i),
		})
	}
	for i := 0; i < 150; i++ {
		raw.Controls = append(raw.Controls, extraction.RawControl{
			Tag:  "a",
			ID:   fmt.Sprintf("doc-%03d", i),
			Text: fmt.Sprintf("Open document %03d in the shared workspace folder", i),
		})
	}
	for i := 0; i < 40; i++ {
		raw.Other = append(raw.Other, fmt.Sprintf("Paragraph %02d: %s", i, strings.Repeat("lorem ipsum ", 15)))
	}
	return raw
}

func TestExtract_LargePageIsCappedAndTruncated(t *testing.T) {
	cfg := testConfig()
	raw := largePage()
	page := new(mocks.MockPage)
	page.On("Evaluate", mock.Anything, mock.MatchedBy(isCollectScript), mock.Anything).
		Run(fillRawPage(raw)).Return(nil).Once()

	out, err := extraction.New(page, cfg, zap.NewNop()).Extract(context.Background(), false)
	require.NoError(t, err)

	summary := extraction.Summarize(raw, cfg)
	assert.Len(t, summary.Headings, cfg.MaxHeadings)
	assert.Len(t, summary.Interactive, cfg.MaxInteractive)
	assert.LessOrEqual(t, len(summary.OtherText), cfg.MaxOtherText)

	rendered := summary.Render()
	total := llmutil.RuneLen(rendered)
	require.Greater(t, total, 12500)

	assert.True(t, strings.HasPrefix(out, "=== PAGE CONTENT (FULL PAGE, TOKEN-OPTIMIZED) ===\n"))
	wantTail := fmt.Sprintf("\n\n... [TRUNCATED: %d chars omitted]\n=== END ===", total-cfg.MaxChars)
	assert.True(t, strings.HasSuffix(out, wantTail), "missing omitted-length marker")

	assert.LessOrEqual(t, strings.Count(out, "[H2] "), cfg.MaxHeadings)
	assert.LessOrEqual(t, strings.Count(out, "<a#doc-"), cfg.MaxInteractive)
	assert.NotContains(t, out, "Section heading number 25")
	page.AssertExpectations(t)
}

func TestExtract_ScrollsBeforeCollecting(t *testing.T) {
	var calls []string
	page := new(mocks.MockPage)
	page.On("Evaluate", mock.Anything, mock.MatchedBy(isScrollScript), mock.Anything).
		Run(func(args mock.Arguments) {
			calls = append(calls, "scroll")
			assert.Contains(t, args.String(1), "(0.8, 5, 300)")
		}).Return(nil).Once()
	page.On("Evaluate", mock.Anything, mock.MatchedBy(isCollectScript), mock.Anything).
		Run(func(args mock.Arguments) {
			calls = append(calls, "collect")
			*args.Get(2).(*extraction.RawPage) = extraction.RawPage{
				URL:      "https://example.com/",
				Title:    "Example",
				Headings: []extraction.RawHeading{{Tag: "H1", Text: "Example Domain"}},
			}
		}).Return(nil).Once()

	out, err := extraction.New(page, testConfig(), zap.NewNop()).Extract(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, []string{"scroll", "collect"}, calls)
	assert.Equal(t, strings.Join([]string{
		"=== PAGE CONTENT (FULL PAGE, TOKEN-OPTIMIZED) ===",
		"URL: https://example.com/",
		"TITLE: Example",
		"---",
		"HEADINGS:",
		"[H1] Example Domain",
		"---",
		"=== END ===",
	}, "\n"), out)
}

func TestExtract_EmptyPage(t *testing.T) {
	page := new(mocks.MockPage)
	page.On("Evaluate", mock.Anything, mock.MatchedBy(isCollectScript), mock.Anything).
		Run(fillRawPage(extraction.RawPage{URL: "about:blank"})).Return(nil)

	out, err := extraction.New(page, testConfig(), zap.NewNop()).Extract(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, extraction.EmptyPageMessage, out)
}

func TestExtract_EvaluateError(t *testing.T) {
	boom := errors.New("execution context was destroyed")
	page := new(mocks.MockPage)
	page.On("Evaluate", mock.Anything, mock.Anything, mock.Anything).Return(boom)

	_, err := extraction.New(page, testConfig(), zap.NewNop()).Extract(context.Background(), true)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "lazy loading")
}

func TestExtract_SettleRespectsCancellation(t *testing.T) {
	cfg := testConfig()
	cfg.SettleDelay = time.Hour
	page := new(mocks.MockPage)
	page.On("Evaluate", mock.Anything, mock.MatchedBy(isScrollScript), mock.Anything).Return(nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := extraction.New(page, cfg, zap.NewNop()).Extract(ctx, true)
	assert.ErrorIs(t, err, context.Canceled)
	page.AssertNotCalled(t, "Evaluate", mock.Anything, mock.MatchedBy(isCollectScript), mock.Anything)
}

func TestFrame(t *testing.T) {
	assert.Equal(t, "=== PAGE CONTENT (FULL PAGE, TOKEN-OPTIMIZED) ===\nshort\n=== END ===", extraction.Frame("short", 10))
	assert.Equal(t,
		"=== PAGE CONTENT (FULL PAGE, TOKEN-OPTIMIZED) ===\nabcde\n\n... [TRUNCATED: 3 chars omitted]\n=== END ===",
		extraction.Frame("abcdefgh", 5))
}
