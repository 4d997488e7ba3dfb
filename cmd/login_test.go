// File: cmd/login_test.go
package cmd

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/webpilot/internal/config"
)

func TestNormalizeLoginURL(t *testing.T) {
	assert.Equal(t, "https://gmail.com", normalizeLoginURL(""))
	assert.Equal(t, "https://gmail.com", normalizeLoginURL("   "))
	assert.Equal(t, "https://github.com", normalizeLoginURL("github.com"))
	assert.Equal(t, "http://intranet.local", normalizeLoginURL("http://intranet.local"))
	assert.Equal(t, "https://example.com/login", normalizeLoginURL(" https://example.com/login "))
}

func TestLoginCmd(t *testing.T) {
	resetForTest(t)

	session := newFakeSession()
	session.cookies = 12
	session.On("URL", mock.Anything).Return("https://mail.google.com/mail/u/0/", nil)

	var gotCfg config.Interface
	openSession = func(ctx context.Context, cfg config.Interface, logger *zap.Logger) (browserSession, error) {
		gotCfg = cfg
		return session, nil
	}

	out, err := executeCommand(t, "example.com\n\n", "login", "--headless")
	require.NoError(t, err)

	require.NotNil(t, gotCfg)
	assert.Equal(t, "https://example.com", gotCfg.Browser().StartURL)
	assert.False(t, gotCfg.Browser().Headless, "login always opens a window")
	assert.Contains(t, out, "Opening browser to: https://example.com")
	assert.Contains(t, out, "Current URL: https://mail.google.com/mail/u/0/")
	assert.Contains(t, out, "Saved 12 cookies")
	assert.True(t, session.closed)
}

func TestLoginCmd_URLArgument(t *testing.T) {
	resetForTest(t)

	session := newFakeSession()
	session.On("URL", mock.Anything).Return("https://github.com/", nil)
	var startURL string
	openSession = func(ctx context.Context, cfg config.Interface, logger *zap.Logger) (browserSession, error) {
		startURL = cfg.Browser().StartURL
		return session, nil
	}

	_, err := executeCommand(t, "\n", "login", "github.com")
	require.NoError(t, err)
	assert.Equal(t, "https://github.com", startURL)
}
