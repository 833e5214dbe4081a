package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/eugenenazirov/buildconf/internal/buildconfig"
	"github.com/eugenenazirov/buildconf/internal/config"
	"github.com/eugenenazirov/buildconf/internal/plugins"
)

// App encapsulates the plugin registry, resolver options and output settings.
type App struct {
	cfg      config.Config
	registry *plugins.MemoryRegistry
	options  []buildconfig.Option
	logger   *zap.Logger
	limiter  *rate.Limiter
}

// New initializes the application with all dependencies from the provided configuration.
func New(cfg config.Config, logger *zap.Logger) (*App, error) {
	registry := plugins.Default()
	if err := registry.Register(cfg.ExtraPlugins...); err != nil {
		return nil, fmt.Errorf("failed to register extra plugins: %w", err)
	}

	if cfg.WatchInterval <= 0 {
		return nil, fmt.Errorf("watch interval must be positive, got %s", cfg.WatchInterval)
	}

	return &App{
		cfg:      cfg,
		registry: registry,
		options: []buildconfig.Option{
			buildconfig.WithRegistry(registry),
			buildconfig.WithUnknownPlugins(cfg.AllowUnknownPlugins),
		},
		logger:  logger,
		limiter: rate.NewLimiter(rate.Every(cfg.WatchInterval), 1),
	}, nil
}

// SourcePath locates the build configuration document.
func (a *App) SourcePath() (string, error) {
	if filepath.IsAbs(a.cfg.Source) {
		if _, err := os.Stat(a.cfg.Source); err != nil {
			return "", fmt.Errorf("locate %s: %w", a.cfg.Source, err)
		}
		return a.cfg.Source, nil
	}
	return resolveProjectPath(a.cfg.Source)
}

// Resolve reads the source document and resolves it into a snapshot.
func (a *App) Resolve() (buildconfig.Configuration, error) {
	path, err := a.SourcePath()
	if err != nil {
		return buildconfig.Configuration{}, err
	}
	return a.resolveFile(path)
}

// Run resolves the source document once and writes the snapshot to w.
func (a *App) Run(w io.Writer) error {
	cfg, err := a.Resolve()
	if err != nil {
		return err
	}
	return a.emit(w, cfg)
}

// Watch resolves the source document, then re-resolves it every time its
// modification time, size or content changes until ctx is done. Snapshots that fail
// validation are logged and skipped; the last valid one stays in effect.
func (a *App) Watch(ctx context.Context, w io.Writer) error {
	path, err := a.SourcePath()
	if err != nil {
		return err
	}

	last, err := stampOf(path)
	if err != nil {
		return err
	}
	if err := a.resolveAndEmit(path, w); err != nil {
		return err
	}

	ticker := time.NewTicker(a.cfg.WatchInterval)
	defer ticker.Stop()

	a.logger.Info("watching build configuration", zap.String("path", path), zap.Duration("interval", a.cfg.WatchInterval))

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("stopped watching build configuration", zap.String("path", path))
			return nil
		case <-ticker.C:
		}

		stamp, err := stampOf(path)
		if err != nil {
			a.logger.Warn("cannot read build configuration", zap.String("path", path), zap.Error(err))
			continue
		}
		if stamp == last {
			continue
		}

		if err := a.limiter.Wait(ctx); err != nil {
			// only fails once ctx is done
			continue
		}
		last = stamp

		if err := a.resolveAndEmit(path, w); err != nil {
			return err
		}
	}
}

// resolveAndEmit writes a fresh snapshot. Only output failures are returned.
func (a *App) resolveAndEmit(path string, w io.Writer) error {
	cfg, err := a.resolveFile(path)
	if err != nil {
		a.logger.Error("build configuration rejected, keeping previous snapshot", zap.String("path", path), zap.Error(err))
		return nil
	}
	return a.emit(w, cfg)
}

func (a *App) resolveFile(path string) (buildconfig.Configuration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return buildconfig.Configuration{}, fmt.Errorf("read build configuration: %w", err)
	}

	in, err := buildconfig.Decode(data)
	if err != nil {
		return buildconfig.Configuration{}, fmt.Errorf("%s: %w", path, err)
	}

	cfg, err := buildconfig.Resolve(in, a.options...)
	if err != nil {
		var verr *buildconfig.ValidationError
		if errors.As(err, &verr) {
			a.logger.Debug("validation failed", zap.String("path", path), zap.Int("problems", len(verr.Problems)))
		}
		return buildconfig.Configuration{}, fmt.Errorf("%s: %w", path, err)
	}

	a.logger.Info("build configuration resolved",
		zap.String("path", path),
		zap.String("compatibility_date", cfg.CompatibilityDate()),
		zap.Int("stylesheets", len(cfg.StylesheetImports())),
		zap.Bool("devtools", cfg.DevtoolsEnabled()),
		zap.Strings("postcss_plugins", pluginNames(cfg)),
	)
	return cfg, nil
}

func (a *App) emit(w io.Writer, cfg buildconfig.Configuration) error {
	if err := buildconfig.Encode(w, cfg, a.cfg.OutputFormat()); err != nil {
		return fmt.Errorf("write resolved configuration: %w", err)
	}
	return nil
}

// Registry exposes the plugin registry used for resolution.
func (a *App) Registry() plugins.Registry {
	return a.registry
}

func pluginNames(cfg buildconfig.Configuration) []string {
	chain := cfg.PostCSSPlugins()
	names := make([]string, 0, len(chain))
	for _, p := range chain {
		names = append(names, p.Name)
	}
	return names
}

// fileStamp identifies one version of the source document. The digest
// catches same-size rewrites that land within the mtime granularity.
type fileStamp struct {
	modTime time.Time
	size    int64
	digest  uint64
}

func stampOf(path string) (fileStamp, error) {
	info, err := os.Stat(path)
	if err != nil {
		return fileStamp{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fileStamp{}, err
	}
	return fileStamp{modTime: info.ModTime(), size: info.Size(), digest: xxhash.Sum64(data)}, nil
}

// resolveProjectPath locates a file relative to the working directory by walking up the directory tree.
func resolveProjectPath(relative string) (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		candidate := filepath.Join(dir, relative)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("unable to locate %s", relative)
}
