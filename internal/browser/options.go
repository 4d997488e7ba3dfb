// internal/browser/options.go
package browser

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/chromedp/chromedp"
	"github.com/mitchellh/go-homedir"

	"github.com/xkilldash9x/webpilot/internal/config"
)

// ErrChromeNotFound is returned when no Chrome or Chromium executable can be located.
var ErrChromeNotFound = errors.New("chrome executable not found")

// ResolveProfileDir expands a leading ~ and makes sure the profile directory exists.
func ResolveProfileDir(dir string) (string, error) {
	if strings.TrimSpace(dir) == "" {
		return "", errors.New("browser profile directory is not configured")
	}
	expanded, err := homedir.Expand(dir)
	if err != nil {
		return "", fmt.Errorf("failed to expand profile directory %q: %w", dir, err)
	}
	if err := os.MkdirAll(expanded, 0o700); err != nil {
		return "", fmt.Errorf("failed to create profile directory %q: %w", expanded, err)
	}
	return expanded, nil
}

// allocatorFlags returns the command line switches for Chrome, keyed by name
// without the leading dashes. Extra args from the configuration win.
func allocatorFlags(cfg config.BrowserConfig, profileDir string) map[string]interface{} {
	flags := map[string]interface{}{
		"no-first-run":                  true,
		"no-default-browser-check":      true,
		"disable-blink-features":        "AutomationControlled",
		"disable-popup-blocking":        true,
		"disable-background-networking": true,
		"user-data-dir":                 profileDir,
	}
	if cfg.ViewportWidth > 0 && cfg.ViewportHeight > 0 {
		flags["window-size"] = fmt.Sprintf("%d,%d", cfg.ViewportWidth, cfg.ViewportHeight)
	}
	if cfg.Headless {
		flags["headless"] = "new"
		flags["hide-scrollbars"] = true
		flags["mute-audio"] = true
	}

	for _, arg := range cfg.Args {
		arg = strings.TrimLeft(strings.TrimSpace(arg), "-")
		if arg == "" {
			continue
		}
		// key=value switches carry a value; bare ones are booleans.
		if key, value, found := strings.Cut(arg, "="); found {
			flags[key] = value
		} else {
			flags[arg] = true
		}
	}
	return flags
}

// AllocatorOptions builds the exec allocator options for cfg. Automation
// infobars and the navigator.webdriver hint are suppressed.
func AllocatorOptions(cfg config.BrowserConfig, profileDir string) []chromedp.ExecAllocatorOption {
	flags := allocatorFlags(cfg, profileDir)
	names := make([]string, 0, len(flags))
	for name := range flags {
		names = append(names, name)
	}
	sort.Strings(names)

	opts := make([]chromedp.ExecAllocatorOption, 0, len(names)+1)
	for _, name := range names {
		opts = append(opts, chromedp.Flag(name, flags[name]))
	}
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	return opts
}

// FindExecPath reports the Chrome binary the session would launch: the
// configured path when set, otherwise the first well-known name on PATH.
func FindExecPath(cfg config.BrowserConfig) (string, error) {
	if cfg.ExecPath != "" {
		info, err := os.Stat(cfg.ExecPath)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrChromeNotFound, err)
		}
		if info.IsDir() {
			return "", fmt.Errorf("%w: %s is a directory", ErrChromeNotFound, cfg.ExecPath)
		}
		return cfg.ExecPath, nil
	}

	for _, candidate := range execCandidates() {
		if filepath.IsAbs(candidate) {
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
			continue
		}
		if path, err := exec.LookPath(candidate); err == nil {
			return path, nil
		}
	}
	return "", ErrChromeNotFound
}

func execCandidates() []string {
	switch runtime.GOOS {
	case "darwin":
		return []string{
			"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
			"/Applications/Chromium.app/Contents/MacOS/Chromium",
			"google-chrome",
			"chromium",
		}
	case "windows":
		return []string{
			"chrome",
			"chrome.exe",
			`C:\Program Files\Google\Chrome\Application\chrome.exe`,
			`C:\Program Files (x86)\Google\Chrome\Application\chrome.exe`,
		}
	default:
		return []string{
			"google-chrome",
			"google-chrome-stable",
			"chromium",
			"chromium-browser",
			"chrome",
			"headless-shell",
		}
	}
}
