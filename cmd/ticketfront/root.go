package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/c360/ticketfront/config"
	"github.com/c360/ticketfront/health"
	"github.com/c360/ticketfront/metric"
)

// app is the state shared by every subcommand once flags are parsed.
type app struct {
	configPath string
	logLevel   string
	logFormat  string
	logFile    string

	cfg      *config.Config
	logger   *slog.Logger
	registry *metric.MetricsRegistry
	monitor  *health.Monitor

	closeLog func() error
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   appName,
		Short: "Console, one-shot client and websocket bridge for the ticket backend",
		Long: `ticketfront talks to the train ticket backend over a websocket.

  ticketfront console                 interactive console
  ticketfront send query_ticket -s Beijing -t Shanghai -d 06-01
  ticketfront bridge -- ./ticket-system   serve the backend over a websocket

Configuration comes from --config (JSON or YAML) and TICKETFRONT_* variables.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if a.closeLog != nil {
				return a.closeLog()
			}
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c",
		getEnv("TICKETFRONT_CONFIG", ""),
		"Path to configuration file, JSON or YAML (env: TICKETFRONT_CONFIG)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level",
		getEnv("TICKETFRONT_LOG_LEVEL", "info"),
		"Log level: debug, info, warn, error (env: TICKETFRONT_LOG_LEVEL)")
	root.PersistentFlags().StringVar(&a.logFormat, "log-format",
		getEnv("TICKETFRONT_LOG_FORMAT", "text"),
		"Log format: json, text (env: TICKETFRONT_LOG_FORMAT)")
	root.PersistentFlags().StringVar(&a.logFile, "log-file",
		getEnv("TICKETFRONT_LOG_FILE", ""),
		"Write logs to this file instead of stderr (env: TICKETFRONT_LOG_FILE)")

	root.AddCommand(
		newConsoleCmd(a),
		newSendCmd(a),
		newBridgeCmd(a),
		newConfigCmd(a),
		newVersionCmd(),
	)
	return root
}

// setup configures logging and loads configuration. The console logs only to
// --log-file.
func (a *app) setup(cmd *cobra.Command) error {
	if cmd.Name() == "version" {
		return nil
	}
	if err := validateLogFlags(a.logLevel, a.logFormat); err != nil {
		return err
	}

	var fallback io.Writer = cmd.ErrOrStderr()
	if cmd.Name() == "console" {
		fallback = io.Discard
	}
	out, closeLog, err := openLogOutput(a.logFile, fallback)
	if err != nil {
		return err
	}
	a.closeLog = closeLog
	a.logger = setupLogger(a.logLevel, a.logFormat, out)
	slog.SetDefault(a.logger)

	loader := config.NewLoader()
	if a.configPath != "" {
		loader.AddLayer(a.configPath)
	}
	cfg, err := loader.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	a.registry = metric.NewMetricsRegistry()
	a.registry.CoreMetrics().RecordBuild(Version, cmd.Name())
	a.monitor = health.NewMonitor()

	a.logger.Debug("configuration loaded", "config_path", a.configPath, "command", cmd.Name())
	return nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// startMetrics runs the metrics and health server in g when metrics.port is
// set.
func (a *app) startMetrics(ctx context.Context, g *errgroup.Group) {
	if a.cfg.Metrics.Port <= 0 {
		return
	}
	srv := metric.NewServer(a.cfg.Metrics.Port, a.cfg.Metrics.Path, a.registry, a.monitor.Handler(appName))
	a.logger.Info("metrics server enabled", "port", a.cfg.Metrics.Port, "path", a.cfg.Metrics.Path)
	g.Go(func() error {
		return srv.Run(ctx)
	})
}
