// File: internal/mocks/mocks.go
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/xkilldash9x/webpilot/api/schemas"
)

// -- Page Mock --

// MockPage mocks schemas.Page.
type MockPage struct {
	mock.Mock
}

var _ schemas.Page = (*MockPage)(nil)

func (m *MockPage) Navigate(ctx context.Context, url string) error {
	args := m.Called(ctx, url)
	return args.Error(0)
}

func (m *MockPage) GoBack(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockPage) URL(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

// Evaluate records the call; tests fill res through .Run on the expectation.
func (m *MockPage) Evaluate(ctx context.Context, script string, res interface{}) error {
	args := m.Called(ctx, script, res)
	return args.Error(0)
}

func (m *MockPage) Screenshot(ctx context.Context) ([]byte, error) {
	args := m.Called(ctx)
	var buf []byte
	if b := args.Get(0); b != nil {
		buf = b.([]byte)
	}
	return buf, args.Error(1)
}

func (m *MockPage) ScrollIntoView(ctx context.Context, selector string) error {
	args := m.Called(ctx, selector)
	return args.Error(0)
}

func (m *MockPage) WaitVisible(ctx context.Context, selector string) error {
	args := m.Called(ctx, selector)
	return args.Error(0)
}

func (m *MockPage) WaitPresent(ctx context.Context, selector string) error {
	args := m.Called(ctx, selector)
	return args.Error(0)
}

func (m *MockPage) Click(ctx context.Context, selector string, hold time.Duration) error {
	args := m.Called(ctx, selector, hold)
	return args.Error(0)
}

func (m *MockPage) ForceClick(ctx context.Context, selector string) error {
	args := m.Called(ctx, selector)
	return args.Error(0)
}

func (m *MockPage) ScriptClick(ctx context.Context, selector string) error {
	args := m.Called(ctx, selector)
	return args.Error(0)
}

func (m *MockPage) ClearInput(ctx context.Context, selector string) error {
	args := m.Called(ctx, selector)
	return args.Error(0)
}

func (m *MockPage) TypeText(ctx context.Context, selector, text string, delay time.Duration) error {
	args := m.Called(ctx, selector, text, delay)
	return args.Error(0)
}

func (m *MockPage) PressKey(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockPage) InnerText(ctx context.Context, selector string) (string, error) {
	args := m.Called(ctx, selector)
	return args.String(0), args.Error(1)
}

func (m *MockPage) Tabs(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	var ids []string
	if v := args.Get(0); v != nil {
		ids = v.([]string)
	}
	return ids, args.Error(1)
}

func (m *MockPage) SwitchTab(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockPage) WaitLoad(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// -- Model Client Mock --

// MockModelClient mocks schemas.ModelClient.
type MockModelClient struct {
	mock.Mock
}

var _ schemas.ModelClient = (*MockModelClient)(nil)

func (m *MockModelClient) Complete(ctx context.Context, req schemas.ModelRequest) (*schemas.ModelResponse, error) {
	args := m.Called(ctx, req)
	var resp *schemas.ModelResponse
	if r := args.Get(0); r != nil {
		resp = r.(*schemas.ModelResponse)
	}
	return resp, args.Error(1)
}

// -- Human in the Loop Mocks --

// MockConfirmationProvider mocks schemas.ConfirmationProvider.
type MockConfirmationProvider struct {
	mock.Mock
}

var _ schemas.ConfirmationProvider = (*MockConfirmationProvider)(nil)

func (m *MockConfirmationProvider) Confirm(ctx context.Context, prompt string) (bool, error) {
	args := m.Called(ctx, prompt)
	return args.Bool(0), args.Error(1)
}

// MockQuestionProvider mocks schemas.QuestionProvider.
type MockQuestionProvider struct {
	mock.Mock
}

var _ schemas.QuestionProvider = (*MockQuestionProvider)(nil)

func (m *MockQuestionProvider) Ask(ctx context.Context, question string) (string, error) {
	args := m.Called(ctx, question)
	return args.String(0), args.Error(1)
}
