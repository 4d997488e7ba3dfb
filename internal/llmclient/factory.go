// internal/llmclient/factory.go
package llmclient

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/webpilot/api/schemas"
	"github.com/xkilldash9x/webpilot/internal/config"
)

// ErrMalformedAPIKey flags a credential that cannot belong to the provider.
var ErrMalformedAPIKey = errors.New("model API key has an unexpected format")

const anthropicKeyPrefix = "sk-ant-"

// NewClient is a factory function that creates a ModelClient based on the
// configuration. A configured request rate wraps the client in a limiter.
func NewClient(ctx context.Context, cfg config.AgentConfig, logger *zap.Logger) (schemas.ModelClient, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := CheckAPIKey(cfg.LLM.Provider, cfg.LLM.APIKey); errors.Is(err, ErrMissingAPIKey) {
		return nil, err
	}

	var (
		client schemas.ModelClient
		err    error
	)
	switch cfg.LLM.Provider {
	case config.ProviderAnthropic:
		client, err = NewAnthropicClient(cfg.LLM, logger)
	case config.ProviderGemini:
		client, err = NewGeminiClient(ctx, cfg.LLM, logger)
	default:
		return nil, fmt.Errorf("unknown or unsupported LLM provider configured: '%s'. Supported: [%s, %s]",
			cfg.LLM.Provider, config.ProviderAnthropic, config.ProviderGemini)
	}
	if err != nil {
		return nil, err
	}

	if cfg.LLM.RequestsPerMinute > 0 {
		client = NewRateLimited(client, cfg.LLM.RequestsPerMinute, logger)
	}
	return client, nil
}

// CheckAPIKey reports whether key is usable for provider. A missing key is
// fatal; a malformed one is only a warning for the doctor command, since
// proxies may accept other formats.
func CheckAPIKey(provider config.LLMProvider, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("%s: %w", provider, ErrMissingAPIKey)
	}
	if provider == config.ProviderAnthropic && !strings.HasPrefix(key, anthropicKeyPrefix) {
		return fmt.Errorf("%s key should start with %q: %w", provider, anthropicKeyPrefix, ErrMalformedAPIKey)
	}
	return nil
}
