// cmd/doctor.go
package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/webpilot/internal/browser"
	"github.com/xkilldash9x/webpilot/internal/config"
	"github.com/xkilldash9x/webpilot/internal/llmclient"
)

var errDoctorFailed = errors.New("one or more environment checks failed")

type checkStatus string

const (
	checkOK   checkStatus = "OK"
	checkWarn checkStatus = "WARN"
	checkFail checkStatus = "FAIL"
)

type checkResult struct {
	Name   string
	Status checkStatus
	Detail string
}

// findChrome is a variable so tests do not depend on the host's browsers.
var findChrome = browser.FindExecPath

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check the credential, Chrome and the profile directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFromContext(cmd.Context())
			if err != nil {
				return err
			}
			results := runChecks(cfg)
			printChecks(cmd.OutOrStdout(), results)
			for _, r := range results {
				if r.Status == checkFail {
					return errDoctorFailed
				}
			}
			return nil
		},
	}
}

func runChecks(cfg config.Interface) []checkResult {
	return []checkResult{
		checkCredential(cfg.Agent().LLM),
		checkChrome(cfg.Browser()),
		checkProfileDir(cfg.Browser().ProfileDir),
	}
}

func checkCredential(llm config.LLMModelConfig) checkResult {
	res := checkResult{Name: "API key"}
	err := llmclient.CheckAPIKey(llm.Provider, llm.APIKey)
	switch {
	case err == nil:
		res.Status, res.Detail = checkOK, fmt.Sprintf("%s key present", llm.Provider)
	case errors.Is(err, llmclient.ErrMalformedAPIKey):
		res.Status, res.Detail = checkWarn, err.Error()
	default:
		res.Status, res.Detail = checkFail, err.Error()
	}
	return res
}

func checkChrome(bc config.BrowserConfig) checkResult {
	path, err := findChrome(bc)
	if err != nil {
		return checkResult{Name: "Chrome", Status: checkFail, Detail: err.Error()}
	}
	return checkResult{Name: "Chrome", Status: checkOK, Detail: path}
}

func checkProfileDir(dir string) checkResult {
	res := checkResult{Name: "Profile directory"}
	resolved, err := browser.ResolveProfileDir(dir)
	if err != nil {
		res.Status, res.Detail = checkFail, err.Error()
		return res
	}
	probe, err := os.CreateTemp(resolved, ".doctor-*")
	if err != nil {
		res.Status, res.Detail = checkFail, fmt.Sprintf("%s is not writable: %v", resolved, err)
		return res
	}
	probe.Close()
	_ = os.Remove(probe.Name())
	res.Status, res.Detail = checkOK, resolved
	return res
}

func printChecks(w io.Writer, results []checkResult) {
	for _, r := range results {
		fmt.Fprintf(w, "[%-4s] %-18s %s\n", r.Status, r.Name+":", r.Detail)
	}
}
