// Package cli implements the flowcanvas command-line interface.
//
// The CLI wraps the same engine the HTTP server hosts: commands operate on a
// store (SQLite file or in-memory), drive the canvas session for rendering,
// and share the TOML configuration layer. All commands support --verbose (-v)
// for debug-level logging.
package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/flowcanvas/flowcanvas/internal/config"
	"github.com/flowcanvas/flowcanvas/pkg/buildinfo"
	"github.com/flowcanvas/flowcanvas/pkg/cache"
	"github.com/flowcanvas/flowcanvas/pkg/store"
	"github.com/flowcanvas/flowcanvas/pkg/store/sqlite"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "flowcanvas"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: log.NewWithOptions(w, log.Options{
			ReportTimestamp: true,
			TimeFormat:      "15:04:05.00",
			Level:           level,
		}),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "flowcanvas",
		Short:        "Flowcanvas serves and renders interactive graph diagrams",
		Long:         `Flowcanvas is a graph-diagram engine: it stores typed nodes, labeled relationships, positions, and replayable journeys, serves them over an HTTP API, and renders them as SVG or in the terminal.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "path to TOML config file (default: flowcanvas.toml if present)")

	// Register all subcommands
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.importCommand())
	root.AddCommand(c.exportCommand())
	root.AddCommand(c.layoutCommand())
	root.AddCommand(c.statsCommand())
	root.AddCommand(c.viewCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// loadConfig reads the configured TOML file. An explicitly passed --config
// that does not exist is an error; the implicit default may be absent.
func (c *CLI) loadConfig() (config.Config, error) {
	if c.configPath != "" {
		return config.Load(c.configPath, true)
	}
	return config.Load(appName+".toml", false)
}

// =============================================================================
// Store Factory
// =============================================================================

// openStore opens the SQLite store at path, or an in-memory store when path
// is empty.
func (c *CLI) openStore(path string) (store.Store, error) {
	if path == "" {
		c.Logger.Debug("using in-memory store")
		return store.NewMemory(), nil
	}
	c.Logger.Debug("opening store", "path", path)
	st, err := sqlite.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", path, err)
	}
	return st, nil
}

// =============================================================================
// Cache Factory
// =============================================================================

// newRenderCache builds the render cache configured in cfg.
func (c *CLI) newRenderCache(cmd *cobra.Command, cfg config.CacheConfig) (cache.Cache, error) {
	switch cfg.Backend {
	case "", "none":
		return cache.NewNull(), nil
	case "file":
		dir := cfg.Dir
		if dir == "" {
			var err error
			if dir, err = cacheDir(); err != nil {
				return nil, fmt.Errorf("resolve cache dir: %w", err)
			}
		}
		return cache.NewFile(dir)
	case "redis":
		return cache.NewRedis(cmd.Context(), cfg.RedisAddr, cfg.RedisPrefix)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/flowcanvas/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}
