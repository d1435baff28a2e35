package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/flowcanvas/flowcanvas/pkg/model"
	"github.com/flowcanvas/flowcanvas/pkg/render"
)

// layoutCommand creates the layout command for auto-positioning nodes.
func (c *CLI) layoutCommand() *cobra.Command {
	var (
		dbPath string
		all    bool
	)

	cmd := &cobra.Command{
		Use:   "layout",
		Short: "Compute positions for unpositioned nodes with Graphviz",
		Long: `Compute positions for unpositioned nodes with Graphviz.

The graph is laid out left to right and the computed coordinates are stored
for every node that has no saved position. With --all, existing positions are
recomputed too.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if dbPath != "" {
				cfg.Store.Path = dbPath
			}
			if cfg.Store.Path == "" {
				return fmt.Errorf("layout requires a database file (--db or store.path in config)")
			}
			return c.runLayout(cmd, cfg.Store.Path, all)
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database file")
	cmd.Flags().BoolVar(&all, "all", false, "recompute positions for every node")

	return cmd
}

func (c *CLI) runLayout(cmd *cobra.Command, dbPath string, all bool) error {
	ctx := cmd.Context()

	st, err := c.openStore(dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	snap, err := st.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}
	if len(snap.Nodes) == 0 {
		printInfo("Nothing to lay out")
		return nil
	}

	spinner := newSpinnerWithContext(ctx, "Computing layout...")
	spinner.Start()
	positions, err := render.AutoLayout(ctx, snap)
	if err != nil {
		spinner.StopWithError("Layout failed")
		return fmt.Errorf("compute layout: %w", err)
	}
	spinner.Stop()

	if ctx.Err() != nil {
		return ctx.Err()
	}

	// Existing positions win unless --all was given.
	placed := map[string]model.Position{}
	for id, pos := range positions {
		if _, has := snap.Positions[id]; has && !all {
			continue
		}
		placed[id] = pos
	}
	if len(placed) == 0 {
		printInfo("All %d nodes already positioned", len(snap.Nodes))
		return nil
	}

	if err := st.SavePositions(ctx, placed); err != nil {
		return fmt.Errorf("save positions: %w", err)
	}

	printSuccess("Layout complete")
	printDetail("%d of %d nodes positioned", len(placed), len(snap.Nodes))
	printNewline()
	printNextStep("Render", "flowcanvas export -f svg --db "+dbPath)

	return nil
}
