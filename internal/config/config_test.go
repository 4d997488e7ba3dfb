// File: internal/config/config_test.go
package config

import (
	"bytes"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -- Constructor and Defaults Tests --

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, "info", cfg.Logger().Level)
	assert.Equal(t, ProviderAnthropic, cfg.Agent().LLM.Provider)
	assert.Equal(t, float32(0), cfg.Agent().LLM.Temperature)
	assert.Equal(t, 4096, cfg.Agent().LLM.MaxTokens)
	assert.Equal(t, 40, cfg.Agent().MaxSteps)
	assert.Equal(t, 80, cfg.Agent().MaxHistoryMessages)
	assert.Equal(t, 70, cfg.Agent().HistoryKeepMessages)
	assert.Equal(t, 8000, cfg.Agent().MaxToolResultChars)
	assert.Equal(t, 1400, cfg.Browser().ViewportWidth)
	assert.Equal(t, 700, cfg.Browser().ViewportHeight)
	assert.Equal(t, 300*time.Millisecond, cfg.Browser().SlowMo)
	assert.Equal(t, 8*time.Second, cfg.Interaction().ClickTimeout)
	assert.Equal(t, 6*time.Second, cfg.Interaction().ForceClickTimeout)
	assert.Contains(t, cfg.Interaction().DestructiveKeywords, "cancel subscription")
	assert.Equal(t, 30, cfg.Locator().Threshold)
	assert.Equal(t, 12000, cfg.Extraction().MaxChars)
	assert.True(t, cfg.Extraction().ScrollToLoad)
	assert.NoError(t, cfg.Validate(), "defaults must always validate")
}

func TestSetters(t *testing.T) {
	cfg := NewDefaultConfig()
	var iface Interface = cfg

	iface.SetBrowserHeadless(true)
	iface.SetBrowserProfileDir("/tmp/profile")
	iface.SetAgentMaxSteps(7)
	iface.SetLLMProvider(ProviderGemini)
	iface.SetLLMModel("gemini-2.5-flash")

	assert.True(t, cfg.Browser().Headless)
	assert.Equal(t, "/tmp/profile", cfg.Browser().ProfileDir)
	assert.Equal(t, 7, cfg.Agent().MaxSteps)
	assert.Equal(t, ProviderGemini, cfg.Agent().LLM.Provider)
	assert.Equal(t, "gemini-2.5-flash", cfg.Agent().LLM.Model)
}

// -- Validation Logic Tests --

func TestConfigValidation(t *testing.T) {
	t.Run("Core Validation", func(t *testing.T) {
		cfg := NewDefaultConfig()
		require.NoError(t, cfg.Validate())

		badViewport := *cfg
		badViewport.BrowserCfg.ViewportWidth = 0
		err := badViewport.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "browser.viewport_width and browser.viewport_height must be positive integers")

		noProfile := *cfg
		noProfile.BrowserCfg.ProfileDir = ""
		err = noProfile.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "browser.profile_dir is a required configuration field")

		badScroll := *cfg
		badScroll.InteractionCfg.ScrollRatio = 0
		err = badScroll.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "interaction.scroll_ratio must be greater than 0")

		lowCeiling := *cfg
		lowCeiling.InteractionCfg.MaxWaitForTimeout = lowCeiling.InteractionCfg.WaitForTimeout - time.Second
		err = lowCeiling.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "interaction.max_wait_for_timeout must not be lower than interaction.wait_for_timeout")
	})

	t.Run("Agent Validation", func(t *testing.T) {
		valid := NewDefaultConfig().Agent()
		assert.NoError(t, valid.Validate())

		badProvider := valid
		badProvider.LLM.Provider = "ollama"
		err := badProvider.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), `unsupported llm provider "ollama"`)

		noSteps := valid
		noSteps.MaxSteps = 0
		err = noSteps.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max_steps must be a positive integer")

		keepTooLarge := valid
		keepTooLarge.HistoryKeepMessages = keepTooLarge.MaxHistoryMessages
		err = keepTooLarge.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "history_keep_messages must be positive and smaller than max_history_messages")

		negativeRate := valid
		negativeRate.LLM.RequestsPerMinute = -1
		err = negativeRate.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "llm.requests_per_minute must not be negative")

		warm := valid
		warm.LLM.Temperature = 0.7
		err = warm.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "llm.temperature must be 0")
	})

	t.Run("Locator Validation", func(t *testing.T) {
		valid := NewDefaultConfig().Locator()
		assert.NoError(t, valid.Validate())

		lossy := valid
		lossy.ShortTextBonus = lossy.Threshold
		err := lossy.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "short_text_bonus must be lower than threshold")
	})

	t.Run("Extraction Validation", func(t *testing.T) {
		valid := NewDefaultConfig().Extraction()
		assert.NoError(t, valid.Validate())

		noScrollSteps := valid
		noScrollSteps.MaxScrollViewports = 0
		err := noScrollSteps.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max_scroll_viewports must be positive")

		noScrollSteps.ScrollToLoad = false
		assert.NoError(t, noScrollSteps.Validate(), "scroll settings are ignored when scrolling is off")

		inverted := valid
		inverted.MinTextLength = 500
		err = inverted.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "min_text_length must not exceed max_text_length")
	})
}

// -- Factory Function Tests --

func TestNewConfigFromViper(t *testing.T) {
	t.Run("Successful Load from YAML", func(t *testing.T) {
		yamlBytes := []byte(`
agent:
  max_steps: 12
  llm:
    model: claude-test
browser:
  headless: true
  viewport_width: 800
`)
		v := viper.New()
		SetDefaults(v)
		v.SetConfigType("yaml")
		require.NoError(t, v.ReadConfig(bytes.NewBuffer(yamlBytes)))

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)

		assert.Equal(t, 12, cfg.Agent().MaxSteps)
		assert.Equal(t, "claude-test", cfg.Agent().LLM.Model)
		assert.True(t, cfg.Browser().Headless)
		assert.Equal(t, 800, cfg.Browser().ViewportWidth)
		// Defaults still apply underneath.
		assert.Equal(t, 700, cfg.Browser().ViewportHeight)
		assert.Equal(t, "info", cfg.Logger().Level)
	})

	t.Run("Validation Failure", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)
		v.Set("agent.max_steps", 0)

		cfg, err := NewConfigFromViper(v)
		assert.Error(t, err)
		assert.Nil(t, cfg)
		assert.Contains(t, err.Error(), "invalid configuration")
		assert.Contains(t, err.Error(), "max_steps must be a positive integer")
	})

	t.Run("Anthropic Key From Environment", func(t *testing.T) {
		t.Setenv("WEBPILOT_AGENT_LLM_API_KEY", "")
		t.Setenv("ANTHROPIC_API_KEY", "sk-ant-from-env")
		v := viper.New()
		SetDefaults(v)

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)
		assert.Equal(t, "sk-ant-from-env", cfg.Agent().LLM.APIKey)
	})

	t.Run("Gemini Key From Environment", func(t *testing.T) {
		t.Setenv("WEBPILOT_AGENT_LLM_API_KEY", "")
		t.Setenv("ANTHROPIC_API_KEY", "")
		t.Setenv("GEMINI_API_KEY", "gemini-from-env")
		v := viper.New()
		SetDefaults(v)
		v.Set("agent.llm.provider", "gemini")

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)
		assert.Equal(t, "gemini-from-env", cfg.Agent().LLM.APIKey)
	})
}

// -- Struct and Mapping Tests --

func TestConfigStructureMapping(t *testing.T) {
	yamlInput := `
logger:
  level: debug
  log_file: /var/log/webpilot.log
interaction:
  click_timeout: 2s
  destructive_keywords: ["wipe"]
extraction:
  max_chars: 500
`
	v := viper.New()
	SetDefaults(v)
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(bytes.NewBufferString(yamlInput)))

	var cfg Config
	require.NoError(t, v.Unmarshal(&cfg))

	assert.Equal(t, "debug", cfg.Logger().Level)
	assert.Equal(t, "/var/log/webpilot.log", cfg.Logger().LogFile)
	assert.Equal(t, 2*time.Second, cfg.Interaction().ClickTimeout)
	assert.Equal(t, []string{"wipe"}, cfg.Interaction().DestructiveKeywords)
	assert.Equal(t, 500, cfg.Extraction().MaxChars)
}
