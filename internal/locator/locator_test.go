package locator_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/webpilot/internal/config"
	"github.com/xkilldash9x/webpilot/internal/locator"
	"github.com/xkilldash9x/webpilot/internal/mocks"
)

func newLocator(page *mocks.MockPage) *locator.Locator {
	return locator.New(page, config.NewDefaultConfig().Locator(), zap.NewNop())
}

// fillCandidates makes the mocked Evaluate decode into the caller's slice.
func fillCandidates(cands []locator.Candidate) func(mock.Arguments) {
	return func(args mock.Arguments) {
		out := args.Get(2).(*[]locator.Candidate)
		*out = cands
	}
}

func TestFind(t *testing.T) {
	page := new(mocks.MockPage)
	cands := []locator.Candidate{
		{ID: "nav", Sources: []locator.Source{{Kind: locator.SourceInnerText, Text: "compose"}}},
		{TestID: "compose-btn", Sources: []locator.Source{{Kind: locator.SourceAriaLabel, Text: "compose new message"}}},
	}

	page.On("Evaluate", mock.Anything, mock.MatchedBy(func(script string) bool {
		return strings.Contains(script, `"compose new message"`) &&
			strings.Contains(script, `["compose","new","message"]`)
	}), mock.Anything).Run(fillCandidates(cands)).Return(nil).Once()

	got, err := newLocator(page).Find(context.Background(), "Compose New Message")
	require.NoError(t, err)
	assert.Equal(t, `[data-testid="compose-btn"]`, got.Selector)
	assert.Equal(t, "compose new message", got.MatchedText)
	assert.Equal(t, 100+50+3*15+10, got.Score)
	page.AssertExpectations(t)
}

func TestFind_NotFound(t *testing.T) {
	page := new(mocks.MockPage)
	cands := []locator.Candidate{
		{ID: "x", Sources: []locator.Source{{Kind: locator.SourceInnerText, Text: "inbox"}}},
	}
	page.On("Evaluate", mock.Anything, mock.Anything, mock.Anything).Run(fillCandidates(cands)).Return(nil)

	_, err := newLocator(page).Find(context.Background(), "archive folder")
	assert.ErrorIs(t, err, locator.ErrNotFound)
}

func TestFind_NoTokensStillSendsArray(t *testing.T) {
	page := new(mocks.MockPage)
	page.On("Evaluate", mock.Anything, mock.MatchedBy(func(script string) bool {
		return strings.Contains(script, `("ok", [], 300)`)
	}), mock.Anything).Run(fillCandidates(nil)).Return(nil).Once()

	_, err := newLocator(page).Find(context.Background(), "ok")
	assert.ErrorIs(t, err, locator.ErrNotFound)
	page.AssertExpectations(t)
}

func TestFind_EvaluateFails(t *testing.T) {
	page := new(mocks.MockPage)
	boom := errors.New("target closed")
	page.On("Evaluate", mock.Anything, mock.Anything, mock.Anything).Return(boom)

	_, err := newLocator(page).Find(context.Background(), "search")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, locator.ErrNotFound)
}

func TestFind_EmptyDescription(t *testing.T) {
	page := new(mocks.MockPage)

	_, err := newLocator(page).Find(context.Background(), "   ")
	require.Error(t, err)
	page.AssertNotCalled(t, "Evaluate", mock.Anything, mock.Anything, mock.Anything)
}
