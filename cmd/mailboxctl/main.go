// Command mailboxctl deploys MockClient contracts, enrolls them with each other and sends
// messages through the Hyperlane mailboxes of the configured networks.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap/zapcore"

	"github.com/smartcontractkit/mailbox-client-deployments/commands"
	"github.com/smartcontractkit/mailbox-client-deployments/pkg/logger"
)

// logLevelEnv selects the log level, info by default.
const logLevelEnv = "MAILBOXCTL_LOG_LEVEL"

func main() {
	level := zapcore.InfoLevel
	if s := os.Getenv(logLevelEnv); s != "" {
		parsed, err := zapcore.ParseLevel(s)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid %s: %v\n", logLevelEnv, err)
			os.Exit(2)
		}
		level = parsed
	}

	lggr, err := logger.NewCLI(level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	root := commands.NewCommand(commands.Config{Logger: lggr})
	err = root.ExecuteContext(ctx)
	stop()

	if err != nil {
		lggr.Errorw("Command failed", "error", err)
	}
	_ = lggr.Sync()

	if err != nil {
		os.Exit(1)
	}
}
