package cli

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/flowcanvas/flowcanvas/pkg/canvas"
	"github.com/flowcanvas/flowcanvas/pkg/store"
)

// viewCommand creates the view command for the interactive terminal viewer.
func (c *CLI) viewCommand() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "view",
		Short: "Explore the diagram interactively in the terminal",
		Long: `Explore the diagram interactively in the terminal.

The viewer hosts the same canvas engine as the HTTP server: pan with the
arrow keys, zoom with +/-, filter with / (search) and m (module), and replay
journeys with s (select), space (play/pause), and n (step).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if dbPath != "" {
				cfg.Store.Path = dbPath
			}
			return c.runView(cmd, cfg.Store.Path, cfg.TickInterval())
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database file")

	return cmd
}

func (c *CLI) runView(cmd *cobra.Command, dbPath string, tick time.Duration) error {
	st, err := c.openStore(dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	sess := canvas.NewSession(store.Service{Store: st},
		canvas.WithLogger(c.Logger),
		canvas.WithTickInterval(tick),
		canvas.WithScreenAnchor(canvas.Point{X: viewAnchorX, Y: viewAnchorY}),
		canvas.WithDefaultTransform(viewDefaultTransform),
	)
	defer sess.Close()

	if err := sess.Reload(cmd.Context()); err != nil {
		return fmt.Errorf("load diagram: %w", err)
	}

	model := newCanvasModel(sess)
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("viewer: %w", err)
	}
	return nil
}
