package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/aviator-labs/flightdeck/internal/browser"
	"github.com/aviator-labs/flightdeck/internal/config"
	"github.com/aviator-labs/flightdeck/internal/health"
	"github.com/aviator-labs/flightdeck/internal/history"
	"github.com/aviator-labs/flightdeck/internal/launcher"
	"github.com/aviator-labs/flightdeck/internal/logger"
	"github.com/aviator-labs/flightdeck/internal/metrics"
	"github.com/aviator-labs/flightdeck/internal/preflight"
	"github.com/aviator-labs/flightdeck/internal/proc"
	"github.com/aviator-labs/flightdeck/internal/server"
	"github.com/aviator-labs/flightdeck/internal/supervisor"
)

// GlobalFlags holds persistent flags shared by all commands.
type GlobalFlags struct {
	ConfigPath string
	Verbose    bool
}

// UpFlags holds flags for the up command.
type UpFlags struct {
	SkipPreflight bool
	NoBrowser     bool
	StatusListen  string
}

func buildRoot() *cobra.Command {
	globalFlags := &GlobalFlags{}
	upFlags := &UpFlags{}

	root := &cobra.Command{
		Use:   "flightdeck",
		Short: "Launcher and supervisor for the Aviator service stack",
		Long: `Flightdeck starts the fixed set of Aviator services, verifies each
one reaches a healthy state, keeps watch over them, and tears everything
down in order on Ctrl+C or failure.

Examples:
  flightdeck up                       # launch with the built-in service table
  flightdeck up --config=stack.toml   # launch from a config file
  flightdeck validate --config=stack.toml`,
	}
	root.PersistentFlags().StringVar(&globalFlags.ConfigPath, "config", "", "path to TOML config file (optional)")
	root.PersistentFlags().BoolVar(&globalFlags.Verbose, "verbose", false, "enable debug logging")

	root.AddCommand(
		createUpCommand(globalFlags, upFlags),
		createValidateCommand(globalFlags),
	)
	return root
}

func createUpCommand(globalFlags *GlobalFlags, upFlags *UpFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "up",
		Short: "Launch and supervise all services",
		Long: `Launch every configured service, verify health, then monitor until
a termination signal arrives. Exit code is 0 on a clean run and 1 when
any service failed to launch, verify, or stay alive.

Examples:
  flightdeck up
  flightdeck up --no-browser --status-listen=127.0.0.1:8090`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUp(globalFlags, upFlags)
		},
	}
	cmd.Flags().BoolVar(&upFlags.SkipPreflight, "skip-preflight", false, "skip interpreter and script checks")
	cmd.Flags().BoolVar(&upFlags.NoBrowser, "no-browser", false, "do not open the dashboard in a browser")
	cmd.Flags().StringVar(&upFlags.StatusListen, "status-listen", "", "serve the local status API on this address (overrides [server].listen)")
	return cmd
}

func createValidateCommand(globalFlags *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the service configuration",
		Long: `Load the config file and run registry validation (unique names,
unique ports, known categories) without launching anything.

Examples:
  flightdeck validate --config=stack.toml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(globalFlags.ConfigPath)
			if err != nil {
				return err
			}
			fmt.Printf("configuration OK: %d service(s)\n", cfg.Registry.Len())
			return nil
		},
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func runUp(globalFlags *GlobalFlags, upFlags *UpFlags) error {
	level := slog.LevelInfo
	if globalFlags.Verbose {
		level = slog.LevelDebug
	}
	log := logger.Setup(level)

	cfg, err := loadConfig(globalFlags.ConfigPath)
	if err != nil {
		return err
	}

	log.Info("aviator system launcher starting",
		"services", cfg.Registry.Len(), "started_at", time.Now().Format(time.DateTime))

	if !upFlags.SkipPreflight {
		if err := preflight.Check(cfg.Registry, cfg.Python); err != nil {
			return fmt.Errorf("preflight failed: %w", err)
		}
	}

	if err := metrics.RegisterDefault(); err != nil {
		log.Warn("failed to register metrics", "error", err)
	}

	var sink history.Sink = history.Nop{}
	if cfg.HistoryDSN != "" {
		s, err := history.NewSQLite(cfg.HistoryDSN)
		if err != nil {
			return fmt.Errorf("open history sink: %w", err)
		}
		defer func() { _ = s.Close() }()
		sink = s
	}

	var onStable func()
	if cfg.OpenBrowser && !upFlags.NoBrowser {
		url := cfg.DashboardURL
		onStable = func() { browser.Open(url) }
	}

	sup := supervisor.New(cfg.Registry, supervisor.Options{
		Launcher: &launcher.Launcher{
			Python: cfg.Python,
			Settle: cfg.Settle,
			Log:    cfg.Log,
		},
		Checker:         &health.Checker{Interval: health.DefaultInterval},
		HealthTimeout:   cfg.HealthTimeout,
		MonitorInterval: cfg.MonitorInterval,
		Grace:           cfg.Grace,
		History:         sink,
		OnStable:        onStable,
		Logger:          log,
	})

	statusListen := upFlags.StatusListen
	basePath := "/api"
	if cfg.Server != nil {
		if statusListen == "" {
			statusListen = cfg.Server.Listen
		}
		if cfg.Server.BasePath != "" {
			basePath = cfg.Server.BasePath
		}
	}
	if statusListen != "" {
		srv := server.NewServer(statusListen, basePath, sup)
		defer func() { _ = srv.Close() }()
		log.Info("status API listening", "addr", statusListen, "base_path", basePath)
	}

	// Interrupt and terminate both map to the same shutdown request,
	// observed cooperatively by the supervisor.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runErr := sup.Run(ctx)
	printSummary(log, sup)
	return runErr
}

func printSummary(log *slog.Logger, sup *supervisor.Supervisor) {
	for _, res := range sup.Results() {
		switch {
		case res.Err != nil:
			log.Error("service failed", "service", res.Name, "error", res.Err)
		case res.Launched && res.Healthy:
			log.Info("service ran cleanly", "service", res.Name, "shutdown", string(orDash(res.Outcome)))
		case res.Launched && !res.Healthy:
			log.Warn("service never became healthy", "service", res.Name)
		}
	}
	log.Info("aviator system launcher finished")
}

func orDash(o proc.StopOutcome) proc.StopOutcome {
	if o == "" {
		return "-"
	}
	return o
}
