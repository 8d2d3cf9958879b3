// Package cli holds the start-up and shutdown sequence shared by the
// workflow commands.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/scigo/workflows/internal/cfg"
	"github.com/scigo/workflows/performance"
	"github.com/scigo/workflows/pkg/errors"
	"github.com/scigo/workflows/pkg/log"
	"github.com/scigo/workflows/workflows"
)

// RunFunc executes one workflow with loaded settings.
type RunFunc func(ctx context.Context, s cfg.Settings, env workflows.Env) error

// Run loads the settings, sets up logging and metrics, runs fn and returns
// the process exit code. Errors are logged with their stack trace.
func Run(workflow string, fn RunFunc) int {
	return run(workflow, fn, os.Stdout)
}

func run(workflow string, fn RunFunc, out io.Writer) int {
	s, err := cfg.Load()
	if err != nil {
		logger, _ := log.SetupLogger("error")
		logger.Error("config load failed", err, log.ComponentKey, workflow)
		return 1
	}
	logger, err := log.SetupLogger(s.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", workflow, err)
		return 1
	}
	logger = logger.With(log.ComponentKey, workflow)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	env := workflows.Env{
		Out:     out,
		Logger:  logger,
		Metrics: performance.NewMemoryMetrics(reg),
	}
	if err := errors.SafeExecute(workflow, func() error { return fn(ctx, s, env) }); err != nil {
		logger.Error(workflow+" failed", err)
		return 1
	}

	if s.MetricsTextfile != "" {
		if err := performance.WriteTextfile(s.MetricsTextfile, reg); err != nil {
			logger.Error("metrics export failed", err)
			return 1
		}
	}
	return 0
}
