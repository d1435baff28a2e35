package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/flowcanvas/flowcanvas/internal/config"
	"github.com/flowcanvas/flowcanvas/internal/server"
	"github.com/flowcanvas/flowcanvas/internal/watch"
	seedio "github.com/flowcanvas/flowcanvas/pkg/io"
	"github.com/flowcanvas/flowcanvas/pkg/store"
)

// shutdownTimeout bounds graceful drain of in-flight requests.
const shutdownTimeout = 10 * time.Second

// serveCommand creates the serve command for running the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		listen    string
		dbPath    string
		dataDir   string
		watchMode bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the flowcanvas HTTP API",
		Long: `Run the flowcanvas HTTP API.

The server exposes CRUD endpoints for nodes, relationships, positions, and
journeys, bulk import endpoints, and SVG/DOT export. An empty store is seeded
from the data directory's JSON files on startup. With --watch, changes to
those files are re-imported while the server runs.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.Server.Listen = listen
			}
			if dbPath != "" {
				cfg.Store.Path = dbPath
			}
			if dataDir != "" {
				cfg.Server.DataDir = dataDir
			}
			if watchMode {
				cfg.Server.Watch = true
			}
			return c.runServe(cmd, cfg)
		},
	}

	cmd.Flags().StringVarP(&listen, "listen", "l", "", "listen address (default from config)")
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database file (default: in-memory)")
	cmd.Flags().StringVarP(&dataDir, "data", "d", "", "directory with JSON seed files")
	cmd.Flags().BoolVarP(&watchMode, "watch", "w", false, "re-import seed files when they change")

	return cmd
}

// runServe opens the store, seeds it if empty, and serves until the context
// is cancelled.
func (c *CLI) runServe(cmd *cobra.Command, cfg config.Config) error {
	ctx := cmd.Context()

	st, err := c.openStore(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	if cfg.Server.DataDir != "" {
		if err := c.seedIfEmpty(ctx, st, cfg.Server.DataDir); err != nil {
			return err
		}
	}

	renderCache, err := c.newRenderCache(cmd, cfg.Cache)
	if err != nil {
		return fmt.Errorf("initialize cache: %w", err)
	}
	defer renderCache.Close()

	srv := server.New(st,
		server.WithLogger(c.Logger),
		server.WithCache(renderCache, cfg.Cache.TTLOrDefault(time.Hour)),
		server.WithDataDir(cfg.Server.DataDir),
	)

	httpSrv := &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	if cfg.Server.Watch && cfg.Server.DataDir != "" {
		stop, err := c.watchDataDir(ctx, st, cfg.Server.DataDir)
		if err != nil {
			return err
		}
		defer stop()
	}

	errs := make(chan error, 1)
	go func() {
		c.Logger.Info("listening", "addr", cfg.Server.Listen)
		errs <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errs:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	c.Logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return ctx.Err()
}

// seedIfEmpty imports the data directory when the store has no nodes yet. A
// populated store is left alone so edits survive restarts.
func (c *CLI) seedIfEmpty(ctx context.Context, st store.Store, dataDir string) error {
	nodes, err := st.Nodes(ctx)
	if err != nil {
		return fmt.Errorf("check store: %w", err)
	}
	if len(nodes) > 0 {
		c.Logger.Debug("store already populated", "nodes", len(nodes))
		return nil
	}

	snap, err := seedio.LoadDir(dataDir)
	if err != nil {
		return fmt.Errorf("load seed files from %s: %w", dataDir, err)
	}
	if err := st.Import(ctx, snap); err != nil {
		return fmt.Errorf("import seed data: %w", err)
	}
	c.Logger.Info("seeded store",
		"nodes", len(snap.Nodes),
		"relationships", len(snap.Edges),
		"journeys", len(snap.Scenarios))
	return nil
}

// watchDataDir re-imports the seed files whenever they change on disk.
func (c *CLI) watchDataDir(ctx context.Context, st store.Store, dataDir string) (func(), error) {
	w, err := watch.New(dataDir)
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", dataDir, err)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-w.Changes():
				if !ok {
					return
				}
				snap, err := seedio.LoadDir(dataDir)
				if err != nil {
					c.Logger.Error("reload after change failed", "err", err)
					continue
				}
				if err := st.Import(ctx, snap); err != nil {
					if errors.Is(err, context.Canceled) {
						return
					}
					c.Logger.Error("import after change failed", "err", err)
					continue
				}
				c.Logger.Info("data reloaded", "nodes", len(snap.Nodes))
			}
		}
	}()

	c.Logger.Info("watching data directory", "dir", dataDir)
	return func() { _ = w.Close() }, nil
}
