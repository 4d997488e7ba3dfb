// File: cmd/doctor_test.go
package cmd

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/webpilot/internal/browser"
	"github.com/xkilldash9x/webpilot/internal/config"
)

func TestRunChecks(t *testing.T) {
	resetForTest(t)
	findChrome = func(config.BrowserConfig) (string, error) { return "/usr/bin/google-chrome", nil }

	cfg := config.NewDefaultConfig()
	cfg.BrowserCfg.ProfileDir = filepath.Join(t.TempDir(), "profile")

	t.Run("AllPass", func(t *testing.T) {
		cfg.AgentCfg.LLM.APIKey = "sk-ant-abc123"
		results := runChecks(cfg)
		require.Len(t, results, 3)
		for _, r := range results {
			assert.Equal(t, checkOK, r.Status, r.Name)
		}
		assert.Equal(t, "/usr/bin/google-chrome", results[1].Detail)
		assert.Equal(t, cfg.BrowserCfg.ProfileDir, results[2].Detail)
	})

	t.Run("MalformedKeyWarns", func(t *testing.T) {
		cfg.AgentCfg.LLM.APIKey = "not-a-real-key"
		assert.Equal(t, checkWarn, runChecks(cfg)[0].Status)
	})

	t.Run("MissingKeyFails", func(t *testing.T) {
		cfg.AgentCfg.LLM.APIKey = ""
		assert.Equal(t, checkFail, runChecks(cfg)[0].Status)
	})

	t.Run("ChromeMissingFails", func(t *testing.T) {
		findChrome = func(config.BrowserConfig) (string, error) { return "", browser.ErrChromeNotFound }
		res := runChecks(cfg)[1]
		assert.Equal(t, checkFail, res.Status)
		assert.Contains(t, res.Detail, "chrome executable not found")
	})
}

func TestDoctorCmd_FailureExitsNonZero(t *testing.T) {
	resetForTest(t)
	findChrome = func(config.BrowserConfig) (string, error) { return "", browser.ErrChromeNotFound }

	out, err := executeCommand(t, "", "doctor", "--profile-dir", filepath.Join(t.TempDir(), "p"))
	assert.ErrorIs(t, err, errDoctorFailed)
	assert.Contains(t, out, "[FAIL] API key:")
	assert.Contains(t, out, "[FAIL] Chrome:")
	assert.Contains(t, out, "[OK  ] Profile directory:")
}

func TestPrintChecks(t *testing.T) {
	var buf bytes.Buffer
	printChecks(&buf, []checkResult{{Name: "Chrome", Status: checkOK, Detail: "/bin/chrome"}})
	assert.Equal(t, "[OK  ] Chrome:            /bin/chrome\n", buf.String())
}
