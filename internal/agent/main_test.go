// File: internal/agent/main_test.go
package agent_test

import (
	"os"
	"testing"

	"go.uber.org/goleak"
	"go.uber.org/zap/zapcore"

	"github.com/xkilldash9x/webpilot/internal/config"
	"github.com/xkilldash9x/webpilot/internal/observability"
)

// TestMain installs a debug logger for the package and fails the run if any
// test leaves a goroutine behind.
func TestMain(m *testing.M) {
	logConfig := config.NewDefaultConfig().Logger()
	logConfig.Level = "debug"
	logConfig.ServiceName = "test-suite"
	observability.Initialize(logConfig, zapcore.Lock(os.Stderr))

	goleak.VerifyTestMain(m, goleak.Cleanup(func(int) {
		observability.Sync()
		observability.ResetForTest()
	}))
}
