// File: cmd/main_test.go
package cmd

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/xkilldash9x/webpilot/internal/mocks"
	"github.com/xkilldash9x/webpilot/internal/observability"
)

// resetForTest isolates a command test: no config file in the working
// directory, no credential from the host environment, pristine logger and
// the real factories restored afterwards.
func resetForTest(t *testing.T) {
	t.Helper()
	t.Chdir(t.TempDir())
	for _, key := range []string{"WEBPILOT_AGENT_LLM_API_KEY", "ANTHROPIC_API_KEY", "GEMINI_API_KEY"} {
		t.Setenv(key, "")
	}

	observability.ResetForTest()
	origSession, origModel, origChrome := openSession, newModelClient, findChrome
	t.Cleanup(func() {
		openSession, newModelClient, findChrome = origSession, origModel, origChrome
		observability.ResetForTest()
	})
}

// executeCommand runs a fresh command tree with stdin and returns everything
// written to stdout and stderr.
func executeCommand(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

// fakeSession is a browser session backed by a MockPage.
type fakeSession struct {
	*mocks.MockPage
	cookies int
	closed  bool
}

func newFakeSession() *fakeSession {
	return &fakeSession{MockPage: new(mocks.MockPage)}
}

func (f *fakeSession) CookieCount(ctx context.Context) (int, error) { return f.cookies, nil }
func (f *fakeSession) Close()                                      { f.closed = true }
