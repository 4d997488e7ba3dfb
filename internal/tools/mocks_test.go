package tools_test

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/xkilldash9x/webpilot/internal/interaction"
	"github.com/xkilldash9x/webpilot/internal/locator"
	"github.com/xkilldash9x/webpilot/internal/tools"
)

type mockInteractor struct {
	mock.Mock
}

var _ tools.Interactor = (*mockInteractor)(nil)

func (m *mockInteractor) Navigate(ctx context.Context, url string) error {
	return m.Called(ctx, url).Error(0)
}

func (m *mockInteractor) GoBack(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockInteractor) Click(ctx context.Context, selector string) interaction.InteractionOutcome {
	return m.Called(ctx, selector).Get(0).(interaction.InteractionOutcome)
}

func (m *mockInteractor) TypeText(ctx context.Context, selector, text string) error {
	return m.Called(ctx, selector, text).Error(0)
}

func (m *mockInteractor) PressKey(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *mockInteractor) Scroll(ctx context.Context, direction interaction.ScrollDirection, selector string) (string, error) {
	args := m.Called(ctx, direction, selector)
	return args.String(0), args.Error(1)
}

func (m *mockInteractor) WaitFor(ctx context.Context, selector string, timeout time.Duration) error {
	return m.Called(ctx, selector, timeout).Error(0)
}

func (m *mockInteractor) ElementText(ctx context.Context, selector string) (string, error) {
	args := m.Called(ctx, selector)
	return args.String(0), args.Error(1)
}

func (m *mockInteractor) RememberMatch(selector, matchedText string) {
	m.Called(selector, matchedText)
}

type mockFinder struct {
	mock.Mock
}

func (m *mockFinder) Find(ctx context.Context, description string) (locator.ElementCandidate, error) {
	args := m.Called(ctx, description)
	return args.Get(0).(locator.ElementCandidate), args.Error(1)
}

type mockExtractor struct {
	mock.Mock
}

func (m *mockExtractor) Extract(ctx context.Context, scrollToLoad bool) (string, error) {
	args := m.Called(ctx, scrollToLoad)
	return args.String(0), args.Error(1)
}
