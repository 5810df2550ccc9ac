// Command engine applies a CSV file of transactions and prints the resulting
// account balances.
//
//	engine transactions.csv > accounts.csv
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/congo-pay/ledger-engine/internal/config"
	"github.com/congo-pay/ledger-engine/internal/csvio"
	"github.com/congo-pay/ledger-engine/internal/diagnostics"
	"github.com/congo-pay/ledger-engine/internal/engine"
	"github.com/congo-pay/ledger-engine/internal/logging"
)

const (
	exitOK    = 0
	exitFatal = 1
	exitUsage = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) != 1 {
		fmt.Fprintln(stderr, "usage: engine <transactions.csv>")
		return exitUsage
	}

	cfg := config.LoadCLI()
	logger := logging.New(stderr, cfg.LogLevel, cfg.LogFormat).With(slog.String("run_id", uuid.NewString()))

	f, err := os.Open(args[0])
	if err != nil {
		logger.Error("open input", "error", err)
		return exitFatal
	}
	defer f.Close()

	eng := engine.New(
		engine.WithReporter(diagnostics.NewLogReporter(logger)),
		engine.WithLogger(logger),
	)
	res, err := eng.Run(ctx, csvio.NewReader(bufio.NewReader(f)))
	if err != nil {
		logger.Error("processing aborted", "path", args[0], "error", err)
		return exitFatal
	}

	out := bufio.NewWriter(stdout)
	if err := csvio.WriteAccounts(out, res.Accounts); err != nil {
		logger.Error("write accounts", "error", err)
		return exitFatal
	}
	if err := out.Flush(); err != nil {
		logger.Error("write accounts", "error", err)
		return exitFatal
	}
	return exitOK
}
