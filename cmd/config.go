// cmd/config.go
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/xkilldash9x/webpilot/internal/config"
)

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFromContext(cmd.Context())
			if err != nil {
				return err
			}
			out, err := renderConfig(cfg)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}

// renderConfig marshals a copy of cfg with the credential masked.
func renderConfig(cfg *config.Config) ([]byte, error) {
	masked := *cfg
	masked.AgentCfg.LLM.APIKey = maskSecret(masked.AgentCfg.LLM.APIKey)
	out, err := yaml.Marshal(&masked)
	if err != nil {
		return nil, fmt.Errorf("failed to render configuration: %w", err)
	}
	return out, nil
}

// maskSecret keeps the last four characters of s.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return "****"
	}
	return "****" + s[len(s)-4:]
}
