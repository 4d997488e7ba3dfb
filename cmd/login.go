// cmd/login.go
package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/webpilot/internal/console"
	"github.com/xkilldash9x/webpilot/internal/observability"
)

const defaultLoginURL = "https://gmail.com"

// newLoginCmd opens the shared profile so the operator can sign in by hand.
// The agent reuses whatever cookies the session leaves behind.
func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login [url]",
		Short: "Open the browser profile to log in to a site manually",
		Long: `Opens Chrome on the agent's persistent profile. Log in, complete any
2FA, then press Enter. Cookies and sessions stay in the profile and are
available to later agent runs.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := configFromContext(ctx)
			if err != nil {
				return err
			}
			logger := observability.GetLogger().Named("login")
			out := cmd.OutOrStdout()
			prompter := console.NewPrompter(cmd.InOrStdin(), out)

			var raw string
			if len(args) > 0 {
				raw = args[0]
			} else if raw, err = prompter.Prompt(ctx, "Enter website URL (or press Enter for gmail.com): "); err != nil && ctx.Err() != nil {
				return ctx.Err()
			}
			target := normalizeLoginURL(raw)

			// Login is always interactive.
			loginCfg := *cfg
			loginCfg.BrowserCfg.Headless = false
			loginCfg.BrowserCfg.StartURL = target

			fmt.Fprintf(out, "Opening browser to: %s\n", target)
			fmt.Fprintf(out, "Session data: %s\n", cfg.Browser().ProfileDir)
			session, err := openSession(ctx, &loginCfg, logger)
			if err != nil {
				return fmt.Errorf("failed to start browser: %w", err)
			}
			defer session.Close()

			fmt.Fprintln(out, "\nInstructions:")
			fmt.Fprintln(out, "1. Log in to your account manually")
			fmt.Fprintln(out, "2. Complete any 2FA or verification")
			fmt.Fprintln(out, "3. Check that you are logged in")
			fmt.Fprintln(out, "4. Press Enter here when done")
			if err := prompter.WaitForEnter(ctx, "Press Enter when you've finished logging in..."); err != nil {
				return err
			}

			if current, err := session.URL(ctx); err == nil {
				fmt.Fprintf(out, "\nSession saved. Current URL: %s\n", current)
			} else {
				logger.Debug("Could not read the current URL.", zap.Error(err))
			}
			count, err := session.CookieCount(ctx)
			if err != nil {
				fmt.Fprintf(out, "Note: %v\n", err)
				return nil
			}
			fmt.Fprintf(out, "Saved %d cookies. The agent will reuse this session on its next run.\n", count)
			return nil
		},
	}
}

// normalizeLoginURL applies the default and adds a scheme when missing.
func normalizeLoginURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return defaultLoginURL
	}
	if !strings.HasPrefix(raw, "http") {
		return "https://" + raw
	}
	return raw
}
