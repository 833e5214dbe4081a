package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/zap"

	"github.com/eugenenazirov/buildconf/internal/application"
	"github.com/eugenenazirov/buildconf/internal/buildconfig"
	"github.com/eugenenazirov/buildconf/internal/config"
	"github.com/eugenenazirov/buildconf/internal/logging"
)

const (
	exitOK       = 0
	exitInvalid  = 1
	exitUsage    = 2
	exitInternal = 3
)

var signalNotify = signal.Notify

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	kingpinApp := kingpin.New("buildconf", "Build configuration resolver - validates the build settings document and prints the resolved snapshot")
	kingpinApp.UsageWriter(stderr)
	kingpinApp.ErrorWriter(stderr)

	settingsFile := kingpinApp.Flag("settings", "Path to YAML settings file for buildconf itself").String()
	source := kingpinApp.Flag("config", "Path to the build configuration document").Short('c').String()
	format := kingpinApp.Flag("format", "Output format (json or yaml)").Short('f').String()
	var allowUnknownSet bool
	allowUnknown := kingpinApp.Flag("allow-unknown-plugins", "Accept PostCSS plugins missing from the registry").IsSetByUser(&allowUnknownSet).Bool()
	extraPlugins := kingpinApp.Flag("plugin", "Additional recognised PostCSS plugin (repeatable)").Strings()
	logLevel := kingpinApp.Flag("log-level", "Log level (debug, info, warn, error)").String()

	resolveCmd := kingpinApp.Command("resolve", "Resolve the build configuration once and print it").Default()
	watchCmd := kingpinApp.Command("watch", "Re-resolve the build configuration whenever it changes")
	var intervalSet bool
	interval := watchCmd.Flag("interval", "Polling interval for changes").IsSetByUser(&intervalSet).Duration()

	command, err := kingpinApp.Parse(args)
	if err != nil {
		fmt.Fprintf(stderr, "buildconf: %v\n", err)
		return exitUsage
	}

	overrides := &config.CLIOverrides{
		SettingsFile: *settingsFile,
		ExtraPlugins: *extraPlugins,
	}

	if *source != "" {
		overrides.Source = source
	}

	if *format != "" {
		overrides.Format = format
	}

	if allowUnknownSet {
		overrides.AllowUnknownPlugins = allowUnknown
	}

	if *logLevel != "" {
		overrides.LogLevel = logLevel
	}

	if intervalSet {
		overrides.WatchInterval = interval
	}

	cfg, err := config.Load(overrides)
	if err != nil {
		fmt.Fprintf(stderr, "buildconf: failed to load configuration: %v\n", err)
		return exitUsage
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(stderr, "buildconf: failed to initialize logger: %v\n", err)
		return exitInternal
	}
	defer func() {
		_ = logger.Sync()
	}()

	app, err := application.New(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize application", zap.Error(err))
		return exitUsage
	}

	switch command {
	case resolveCmd.FullCommand():
		return report(app.Run(stdout), stderr, logger)
	case watchCmd.FullCommand():
		ctx, stop := signalContext(context.Background(), logger)
		defer stop()
		return report(app.Watch(ctx, stdout), stderr, logger)
	default:
		fmt.Fprintf(stderr, "buildconf: unknown command %q\n", command)
		return exitUsage
	}
}

// report prints the outcome of a command and maps it to an exit code.
func report(err error, stderr io.Writer, logger *zap.Logger) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, buildconfig.ErrValidation):
		fmt.Fprintf(stderr, "buildconf: %v\n", err)
		return exitInvalid
	default:
		logger.Error("command failed", zap.Error(err))
		fmt.Fprintf(stderr, "buildconf: %v\n", err)
		return exitInternal
	}
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context, logger *zap.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	quit := make(chan os.Signal, 1)
	signalNotify(quit, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-quit:
			logger.Info("shutting down", zap.String("signal", sig.String()))
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(quit)
		cancel()
	}
}
