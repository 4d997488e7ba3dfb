// File: internal/config/config.go
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Interface defines the contract for accessing application configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	Agent() AgentConfig
	Browser() BrowserConfig
	Interaction() InteractionConfig
	Locator() LocatorConfig
	Extraction() ExtractionConfig
	Metrics() MetricsConfig

	// Browser Setters
	SetBrowserHeadless(bool)
	SetBrowserProfileDir(string)

	// Agent Setters
	SetAgentMaxSteps(int)
	SetLLMProvider(LLMProvider)
	SetLLMModel(string)
}

// Config holds the entire application configuration.
type Config struct {
	LoggerCfg      LoggerConfig      `mapstructure:"logger" yaml:"logger"`
	AgentCfg       AgentConfig       `mapstructure:"agent" yaml:"agent"`
	BrowserCfg     BrowserConfig     `mapstructure:"browser" yaml:"browser"`
	InteractionCfg InteractionConfig `mapstructure:"interaction" yaml:"interaction"`
	LocatorCfg     LocatorConfig     `mapstructure:"locator" yaml:"locator"`
	ExtractionCfg  ExtractionConfig  `mapstructure:"extraction" yaml:"extraction"`
	MetricsCfg     MetricsConfig     `mapstructure:"metrics" yaml:"metrics"`
}

var _ Interface = (*Config)(nil)

// --- Interface Method Implementations (Getters) ---

func (c *Config) Logger() LoggerConfig           { return c.LoggerCfg }
func (c *Config) Agent() AgentConfig             { return c.AgentCfg }
func (c *Config) Browser() BrowserConfig         { return c.BrowserCfg }
func (c *Config) Interaction() InteractionConfig { return c.InteractionCfg }
func (c *Config) Locator() LocatorConfig         { return c.LocatorCfg }
func (c *Config) Extraction() ExtractionConfig   { return c.ExtractionCfg }
func (c *Config) Metrics() MetricsConfig         { return c.MetricsCfg }

// --- Interface Method Implementations (Setters) ---

func (c *Config) SetBrowserHeadless(b bool)       { c.BrowserCfg.Headless = b }
func (c *Config) SetBrowserProfileDir(dir string) { c.BrowserCfg.ProfileDir = dir }
func (c *Config) SetAgentMaxSteps(n int)          { c.AgentCfg.MaxSteps = n }
func (c *Config) SetLLMProvider(p LLMProvider)    { c.AgentCfg.LLM.Provider = p }
func (c *Config) SetLLMModel(m string)            { c.AgentCfg.LLM.Model = m }

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color settings for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// LLMProvider defines the supported LLM providers.
type LLMProvider string

const (
	ProviderAnthropic LLMProvider = "anthropic"
	ProviderGemini    LLMProvider = "gemini"
)

// LLMModelConfig defines the configuration for the decision-making model.
type LLMModelConfig struct {
	Provider          LLMProvider   `mapstructure:"provider" yaml:"provider"`
	Model             string        `mapstructure:"model" yaml:"model"`
	APIKey            string        `mapstructure:"api_key" yaml:"api_key"`
	Endpoint          string        `mapstructure:"endpoint" yaml:"endpoint"`
	APIVersion        string        `mapstructure:"api_version" yaml:"api_version"`
	APITimeout        time.Duration `mapstructure:"api_timeout" yaml:"api_timeout"`
	Temperature       float32       `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens         int           `mapstructure:"max_tokens" yaml:"max_tokens"`
	RequestsPerMinute float64       `mapstructure:"requests_per_minute" yaml:"requests_per_minute"`
}

// AgentConfig holds the settings for the turn loop and its conversation.
type AgentConfig struct {
	LLM                 LLMModelConfig `mapstructure:"llm" yaml:"llm"`
	MaxSteps            int            `mapstructure:"max_steps" yaml:"max_steps"`
	MaxHistoryMessages  int            `mapstructure:"max_history_messages" yaml:"max_history_messages"`
	HistoryKeepMessages int            `mapstructure:"history_keep_messages" yaml:"history_keep_messages"`
	MaxToolResultChars  int            `mapstructure:"max_tool_result_chars" yaml:"max_tool_result_chars"`
	DefaultTask         string         `mapstructure:"default_task" yaml:"default_task"`
}

// BrowserConfig configures the Chrome instance driven by the agent.
type BrowserConfig struct {
	Headless          bool          `mapstructure:"headless" yaml:"headless"`
	ProfileDir        string        `mapstructure:"profile_dir" yaml:"profile_dir"`
	ExecPath          string        `mapstructure:"exec_path" yaml:"exec_path"`
	StartURL          string        `mapstructure:"start_url" yaml:"start_url"`
	ViewportWidth     int           `mapstructure:"viewport_width" yaml:"viewport_width"`
	ViewportHeight    int           `mapstructure:"viewport_height" yaml:"viewport_height"`
	SlowMo            time.Duration `mapstructure:"slow_mo" yaml:"slow_mo"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	PostLoadWait      time.Duration `mapstructure:"post_load_wait" yaml:"post_load_wait"`
	Args              []string      `mapstructure:"args" yaml:"args"`
}

// InteractionConfig holds the per-call-site timeouts and the destructive-action gate.
type InteractionConfig struct {
	ScrollTimeout       time.Duration `mapstructure:"scroll_timeout" yaml:"scroll_timeout"`
	VisibleTimeout      time.Duration `mapstructure:"visible_timeout" yaml:"visible_timeout"`
	ClickTimeout        time.Duration `mapstructure:"click_timeout" yaml:"click_timeout"`
	ForceClickTimeout   time.Duration `mapstructure:"force_click_timeout" yaml:"force_click_timeout"`
	ClickHold           time.Duration `mapstructure:"click_hold" yaml:"click_hold"`
	ClickSettle         time.Duration `mapstructure:"click_settle" yaml:"click_settle"`
	ScriptClickSettle   time.Duration `mapstructure:"script_click_settle" yaml:"script_click_settle"`
	EffectWait          time.Duration `mapstructure:"effect_wait" yaml:"effect_wait"`
	NewTabLoadTimeout   time.Duration `mapstructure:"new_tab_load_timeout" yaml:"new_tab_load_timeout"`
	NavigationLoadWait  time.Duration `mapstructure:"navigation_load_wait" yaml:"navigation_load_wait"`
	ActionTimeout       time.Duration `mapstructure:"action_timeout" yaml:"action_timeout"`
	TypeDelay           time.Duration `mapstructure:"type_delay" yaml:"type_delay"`
	WaitForTimeout      time.Duration `mapstructure:"wait_for_timeout" yaml:"wait_for_timeout"`
	MaxWaitForTimeout   time.Duration `mapstructure:"max_wait_for_timeout" yaml:"max_wait_for_timeout"`
	ScrollRatio         float64       `mapstructure:"scroll_ratio" yaml:"scroll_ratio"`
	ConfirmDestructive  bool          `mapstructure:"confirm_destructive" yaml:"confirm_destructive"`
	DestructiveKeywords []string      `mapstructure:"destructive_keywords" yaml:"destructive_keywords"`
}

// LocatorConfig holds the scoring weights used to rank element candidates.
type LocatorConfig struct {
	Threshold       int `mapstructure:"threshold" yaml:"threshold"`
	ExactBonus      int `mapstructure:"exact_bonus" yaml:"exact_bonus"`
	AllTokensBonus  int `mapstructure:"all_tokens_bonus" yaml:"all_tokens_bonus"`
	TokenBonus      int `mapstructure:"token_bonus" yaml:"token_bonus"`
	ShortTextBonus  int `mapstructure:"short_text_bonus" yaml:"short_text_bonus"`
	ShortTextLength int `mapstructure:"short_text_length" yaml:"short_text_length"`
	MinTokenLength  int `mapstructure:"min_token_length" yaml:"min_token_length"`
}

// ExtractionConfig bounds the page summary produced for the model.
type ExtractionConfig struct {
	ScrollToLoad       bool          `mapstructure:"scroll_to_load" yaml:"scroll_to_load"`
	ScrollStepRatio    float64       `mapstructure:"scroll_step_ratio" yaml:"scroll_step_ratio"`
	MaxScrollViewports int           `mapstructure:"max_scroll_viewports" yaml:"max_scroll_viewports"`
	ScrollDelay        time.Duration `mapstructure:"scroll_delay" yaml:"scroll_delay"`
	SettleDelay        time.Duration `mapstructure:"settle_delay" yaml:"settle_delay"`
	MaxHeadings        int           `mapstructure:"max_headings" yaml:"max_headings"`
	MaxInteractive     int           `mapstructure:"max_interactive" yaml:"max_interactive"`
	MaxContentBlocks   int           `mapstructure:"max_content_blocks" yaml:"max_content_blocks"`
	MaxOtherText       int           `mapstructure:"max_other_text" yaml:"max_other_text"`
	MaxChars           int           `mapstructure:"max_chars" yaml:"max_chars"`
	MinTextLength      int           `mapstructure:"min_text_length" yaml:"min_text_length"`
	MaxTextLength      int           `mapstructure:"max_text_length" yaml:"max_text_length"`
	ContentMinLength   int           `mapstructure:"content_min_length" yaml:"content_min_length"`
	ContentMaxLength   int           `mapstructure:"content_max_length" yaml:"content_max_length"`
	OtherMinLength     int           `mapstructure:"other_min_length" yaml:"other_min_length"`
}

// MetricsConfig controls where run metrics are written.
type MetricsConfig struct {
	Enabled      bool   `mapstructure:"enabled" yaml:"enabled"`
	TextfilePath string `mapstructure:"textfile_path" yaml:"textfile_path"`
}

// DefaultDestructiveKeywords is the list of action words that require a human
// confirmation before a click goes through.
var DefaultDestructiveKeywords = []string{
	"delete", "remove", "buy", "purchase", "pay", "order", "checkout",
	"confirm payment", "submit order", "place order", "send", "transfer",
	"cancel subscription", "unsubscribe", "logout", "sign out",
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "webpilot")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Agent --
	v.SetDefault("agent.llm.provider", string(ProviderAnthropic))
	v.SetDefault("agent.llm.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("agent.llm.endpoint", "")
	v.SetDefault("agent.llm.api_version", "2023-06-01")
	v.SetDefault("agent.llm.api_timeout", "120s")
	v.SetDefault("agent.llm.temperature", 0.0)
	v.SetDefault("agent.llm.max_tokens", 4096)
	v.SetDefault("agent.llm.requests_per_minute", 0)
	v.SetDefault("agent.max_steps", 40)
	v.SetDefault("agent.max_history_messages", 80)
	v.SetDefault("agent.history_keep_messages", 70)
	v.SetDefault("agent.max_tool_result_chars", 8000)
	v.SetDefault("agent.default_task", "Open google.com, search for the current weather in London and report the temperature.")

	// -- Browser --
	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.profile_dir", "~/.webpilot/profile")
	v.SetDefault("browser.exec_path", "")
	v.SetDefault("browser.start_url", "https://google.com")
	v.SetDefault("browser.viewport_width", 1400)
	v.SetDefault("browser.viewport_height", 700)
	v.SetDefault("browser.slow_mo", "300ms")
	v.SetDefault("browser.navigation_timeout", "30s")
	v.SetDefault("browser.post_load_wait", "1s")
	v.SetDefault("browser.args", []string{})

	// -- Interaction --
	v.SetDefault("interaction.scroll_timeout", "5s")
	v.SetDefault("interaction.visible_timeout", "10s")
	v.SetDefault("interaction.click_timeout", "8s")
	v.SetDefault("interaction.force_click_timeout", "6s")
	v.SetDefault("interaction.click_hold", "100ms")
	v.SetDefault("interaction.click_settle", "800ms")
	v.SetDefault("interaction.script_click_settle", "1s")
	v.SetDefault("interaction.effect_wait", "500ms")
	v.SetDefault("interaction.new_tab_load_timeout", "10s")
	v.SetDefault("interaction.navigation_load_wait", "5s")
	v.SetDefault("interaction.action_timeout", "15s")
	v.SetDefault("interaction.type_delay", "50ms")
	v.SetDefault("interaction.wait_for_timeout", "10s")
	v.SetDefault("interaction.max_wait_for_timeout", "2m")
	v.SetDefault("interaction.scroll_ratio", 0.8)
	v.SetDefault("interaction.confirm_destructive", true)
	v.SetDefault("interaction.destructive_keywords", DefaultDestructiveKeywords)

	// -- Locator --
	v.SetDefault("locator.threshold", 30)
	v.SetDefault("locator.exact_bonus", 100)
	v.SetDefault("locator.all_tokens_bonus", 50)
	v.SetDefault("locator.token_bonus", 15)
	v.SetDefault("locator.short_text_bonus", 10)
	v.SetDefault("locator.short_text_length", 60)
	v.SetDefault("locator.min_token_length", 3)

	// -- Extraction --
	v.SetDefault("extraction.scroll_to_load", true)
	v.SetDefault("extraction.scroll_step_ratio", 0.8)
	v.SetDefault("extraction.max_scroll_viewports", 5)
	v.SetDefault("extraction.scroll_delay", "300ms")
	v.SetDefault("extraction.settle_delay", "500ms")
	v.SetDefault("extraction.max_headings", 20)
	v.SetDefault("extraction.max_interactive", 100)
	v.SetDefault("extraction.max_content_blocks", 80)
	v.SetDefault("extraction.max_other_text", 50)
	v.SetDefault("extraction.max_chars", 12000)
	v.SetDefault("extraction.min_text_length", 3)
	v.SetDefault("extraction.max_text_length", 300)
	v.SetDefault("extraction.content_min_length", 16)
	v.SetDefault("extraction.content_max_length", 249)
	v.SetDefault("extraction.other_min_length", 11)

	// -- Metrics --
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.textfile_path", "webpilot.prom")
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// Bind environment variables for sensitive data
	_ = v.BindEnv("agent.llm.api_key", "WEBPILOT_AGENT_LLM_API_KEY", "ANTHROPIC_API_KEY")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// The Gemini provider reads its own well-known variable.
	if cfg.AgentCfg.LLM.Provider == ProviderGemini && cfg.AgentCfg.LLM.APIKey == "" {
		cfg.AgentCfg.LLM.APIKey = os.Getenv("GEMINI_API_KEY")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
// The model credential is checked by the client factory, so commands that
// never talk to a model still load.
func (c *Config) Validate() error {
	if err := c.AgentCfg.Validate(); err != nil {
		return fmt.Errorf("agent configuration invalid: %w", err)
	}
	if c.BrowserCfg.ViewportWidth <= 0 || c.BrowserCfg.ViewportHeight <= 0 {
		return fmt.Errorf("browser.viewport_width and browser.viewport_height must be positive integers")
	}
	if c.BrowserCfg.ProfileDir == "" {
		return fmt.Errorf("browser.profile_dir is a required configuration field")
	}
	if err := c.LocatorCfg.Validate(); err != nil {
		return fmt.Errorf("locator configuration invalid: %w", err)
	}
	if err := c.ExtractionCfg.Validate(); err != nil {
		return fmt.Errorf("extraction configuration invalid: %w", err)
	}
	if c.InteractionCfg.ScrollRatio <= 0 {
		return fmt.Errorf("interaction.scroll_ratio must be greater than 0")
	}
	if c.InteractionCfg.MaxWaitForTimeout < c.InteractionCfg.WaitForTimeout {
		return fmt.Errorf("interaction.max_wait_for_timeout must not be lower than interaction.wait_for_timeout")
	}
	return nil
}

// Validate checks the AgentConfig settings.
func (a *AgentConfig) Validate() error {
	switch a.LLM.Provider {
	case ProviderAnthropic, ProviderGemini:
	default:
		return fmt.Errorf("unsupported llm provider %q", a.LLM.Provider)
	}
	if a.LLM.Model == "" {
		return fmt.Errorf("llm.model is required")
	}
	if a.LLM.MaxTokens <= 0 {
		return fmt.Errorf("llm.max_tokens must be a positive integer")
	}
	if a.LLM.RequestsPerMinute < 0 {
		return fmt.Errorf("llm.requests_per_minute must not be negative")
	}
	if a.LLM.Temperature != 0 {
		return fmt.Errorf("llm.temperature must be 0: the agent loop always samples at temperature 0")
	}
	if a.MaxSteps <= 0 {
		return fmt.Errorf("max_steps must be a positive integer")
	}
	if a.MaxHistoryMessages < 2 {
		return fmt.Errorf("max_history_messages must be at least 2")
	}
	if a.HistoryKeepMessages <= 0 || a.HistoryKeepMessages >= a.MaxHistoryMessages {
		return fmt.Errorf("history_keep_messages must be positive and smaller than max_history_messages")
	}
	if a.MaxToolResultChars <= 0 {
		return fmt.Errorf("max_tool_result_chars must be a positive integer")
	}
	return nil
}

// Validate checks the LocatorConfig settings.
func (l *LocatorConfig) Validate() error {
	if l.Threshold <= 0 {
		return fmt.Errorf("threshold must be a positive integer")
	}
	// Candidates are pre-filtered in the page on token hits; that is only
	// lossless while a node with nothing but the length bonus stays below
	// the threshold.
	if l.ShortTextBonus >= l.Threshold {
		return fmt.Errorf("short_text_bonus must be lower than threshold")
	}
	if l.MinTokenLength <= 0 {
		return fmt.Errorf("min_token_length must be a positive integer")
	}
	return nil
}

// Validate checks the ExtractionConfig settings.
func (e *ExtractionConfig) Validate() error {
	if e.MaxChars <= 0 {
		return fmt.Errorf("max_chars must be a positive integer")
	}
	if e.MaxHeadings < 0 || e.MaxInteractive < 0 || e.MaxContentBlocks < 0 || e.MaxOtherText < 0 {
		return fmt.Errorf("section caps must not be negative")
	}
	if e.MinTextLength > e.MaxTextLength {
		return fmt.Errorf("min_text_length must not exceed max_text_length")
	}
	if e.ScrollToLoad && (e.ScrollStepRatio <= 0 || e.MaxScrollViewports <= 0) {
		return fmt.Errorf("scroll_step_ratio and max_scroll_viewports must be positive when scroll_to_load is enabled")
	}
	return nil
}
