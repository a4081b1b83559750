// Command mediafetch-admin runs the download engine in-process for operators.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/target/mediafetch/config"
	"github.com/target/mediafetch/internal/bootstrap"
)

// app carries state shared by every subcommand.
type app struct {
	cfg       config.AppConfig
	cfgLoaded bool
	logger    *slog.Logger
	out       io.Writer
	errOut    io.Writer

	debug bool
	demo  bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := &app{out: os.Stdout, errOut: os.Stderr}
	if err := a.rootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1) //nolint:forbidigo // CLI must propagate command execution failure to callers
	}
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "mediafetch-admin",
		Short: "Inspect and run media downloads without the HTTP server",
		Long: `mediafetch-admin drives the download engine directly using the same
environment configuration as the server. Artifacts land in STORAGE_ROOT.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}
	root.SetOut(a.out)
	root.SetErr(a.errOut)

	root.PersistentFlags().BoolVarP(&a.debug, "debug", "x", false, "Debug logging to stderr")
	root.PersistentFlags().BoolVar(&a.demo, "demo", false, "Route demo/test URLs to the simulated extractor")

	root.AddCommand(a.classifyCmd())
	root.AddCommand(a.infoCmd())
	root.AddCommand(a.fetchCmd())
	root.AddCommand(a.platformsCmd())
	return root
}

// setup loads configuration once and builds the stderr logger.
func (a *app) setup(_ *cobra.Command, _ []string) error {
	if !a.cfgLoaded {
		cfg, err := bootstrap.LoadConfig()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		a.cfg = cfg
		a.cfgLoaded = true
	}
	if a.demo {
		a.cfg.Extractors.DemoMode = true
	}

	level := slog.LevelWarn
	if a.debug {
		level = slog.LevelDebug
	}
	a.logger = slog.New(slog.NewTextHandler(a.errOut, &slog.HandlerOptions{Level: level}))
	return nil
}

// engine wires the download service the same way the server does.
func (a *app) engine() (bootstrap.ServiceContainer, func(), error) {
	cfg := a.cfg
	cfg.Cache.RedisEnabled = false
	cfg.Observability.Metrics.Enabled = false

	svcs, err := bootstrap.NewServices(&bootstrap.ServiceDeps{Config: &cfg, Logger: a.logger})
	if err != nil {
		return bootstrap.ServiceContainer{}, nil, err
	}
	closeFn := func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := svcs.Downloads.Shutdown(ctx); err != nil {
			a.logger.Warn("engine shutdown", "error", err)
		}
		_ = svcs.Close()
	}
	return svcs, closeFn, nil
}
