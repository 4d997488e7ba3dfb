// cmd/run.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/webpilot/api/schemas"
	"github.com/xkilldash9x/webpilot/internal/agent"
	"github.com/xkilldash9x/webpilot/internal/browser"
	"github.com/xkilldash9x/webpilot/internal/config"
	"github.com/xkilldash9x/webpilot/internal/console"
	"github.com/xkilldash9x/webpilot/internal/extraction"
	"github.com/xkilldash9x/webpilot/internal/interaction"
	"github.com/xkilldash9x/webpilot/internal/llmclient"
	"github.com/xkilldash9x/webpilot/internal/locator"
	"github.com/xkilldash9x/webpilot/internal/observability"
	"github.com/xkilldash9x/webpilot/internal/tools"
)

// browserSession is what the commands need from a live browser.
type browserSession interface {
	schemas.Page
	CookieCount(ctx context.Context) (int, error)
	Close()
}

var _ browserSession = (*browser.Session)(nil)

// Function variables for dependency injection in tests.
var (
	openSession = func(ctx context.Context, cfg config.Interface, logger *zap.Logger) (browserSession, error) {
		return browser.NewSession(ctx, cfg, logger)
	}
	newModelClient = llmclient.NewClient
)

// runAgent is the root command: read the task, open the browser, run the
// loop, report the answer and keep the browser up until the operator is done.
func runAgent(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, err := configFromContext(ctx)
	if err != nil {
		return err
	}
	logger := observability.GetLogger()
	out := cmd.OutOrStdout()
	prompter := console.NewPrompter(cmd.InOrStdin(), out)

	task := strings.TrimSpace(strings.Join(args, " "))
	if task == "" {
		if task, err = prompter.ReadTask(ctx, cfg.Agent().DefaultTask); err != nil {
			return err
		}
	}

	// Fail on a missing credential before a browser window appears.
	model, err := newModelClient(ctx, cfg.Agent(), logger)
	if err != nil {
		return fmt.Errorf("failed to create model client: %w", err)
	}

	profileDir := cfg.Browser().ProfileDir
	fmt.Fprintf(out, "Session data: %s (cookies and logins are preserved)\n", profileDir)
	session, err := openSession(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to start browser: %w", err)
	}
	defer session.Close()

	metrics := observability.NewMetrics()
	orch, err := assemble(session, model, prompter, cfg, metrics, logger, out)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "Browser opened (persistent session). Agent starting...")
	fmt.Fprintln(out, console.Rule())

	res := orch.Run(ctx, task)

	fmt.Fprintln(out, console.Rule())
	printResult(out, res)

	if mc := cfg.Metrics(); mc.Enabled && mc.TextfilePath != "" {
		if err := metrics.WriteTextfile(mc.TextfilePath); err != nil {
			logger.Warn("Failed to write metrics textfile.", zap.String("path", mc.TextfilePath), zap.Error(err))
		}
	}

	if errors.Is(res.Err, context.Canceled) || ctx.Err() != nil {
		return context.Canceled
	}

	if noWait, _ := cmd.Flags().GetBool("no-wait"); !noWait {
		if err := prompter.WaitForEnter(ctx, "Press Enter to close the browser..."); err != nil && ctx.Err() == nil {
			logger.Debug("Stopped waiting for Enter.", zap.Error(err))
		}
	}
	return nil
}

// assemble wires the page-facing components, the tool registry and the loop.
func assemble(
	page schemas.Page,
	model schemas.ModelClient,
	prompter *console.Prompter,
	cfg config.Interface,
	metrics *observability.Metrics,
	logger *zap.Logger,
	out io.Writer,
) (*agent.Orchestrator, error) {
	registry, err := tools.NewRegistry(tools.Dependencies{
		Interactor: interaction.New(page, prompter, cfg, metrics, logger),
		Finder:     locator.New(page, cfg.Locator(), logger),
		Extractor:  extraction.New(page, cfg.Extraction(), logger),
		Screens:    page,
		Questions:  prompter,
		Config:     cfg,
		Metrics:    metrics,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build tool registry: %w", err)
	}

	orch, err := agent.NewOrchestrator(model, registry, cfg, logger,
		agent.WithObserver(console.NewObserver(out, 0)),
		agent.WithMetrics(metrics),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create orchestrator: %w", err)
	}
	return orch, nil
}

func printResult(out io.Writer, res agent.Result) {
	switch res.Status {
	case agent.StateDone:
		fmt.Fprintln(out, "Task completed!")
	case agent.StateAborted:
		fmt.Fprintf(out, "Error: %v\n", res.Err)
	}
	fmt.Fprintf(out, "\nResult:\n%s\n", res.Text())
}
