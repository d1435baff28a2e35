package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	seedio "github.com/flowcanvas/flowcanvas/pkg/io"
)

// importCommand creates the import command for loading JSON seed files.
func (c *CLI) importCommand() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "import [dir]",
		Short: "Import JSON seed files into the store",
		Long: `Import JSON seed files into the store.

The directory may contain nodes.json, relationships.json, journeys.json, and
positions.json. Missing files are skipped. The import replaces the store's
previous contents.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if dbPath != "" {
				cfg.Store.Path = dbPath
			}
			if cfg.Store.Path == "" {
				return fmt.Errorf("import requires a database file (--db or store.path in config)")
			}
			return c.runImport(cmd, args[0], cfg.Store.Path)
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database file")

	return cmd
}

func (c *CLI) runImport(cmd *cobra.Command, dir, dbPath string) error {
	snap, err := seedio.LoadDir(dir)
	if err != nil {
		return fmt.Errorf("load seed files from %s: %w", dir, err)
	}

	st, err := c.openStore(dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.Import(cmd.Context(), snap); err != nil {
		return fmt.Errorf("import: %w", err)
	}

	printSuccess("Import complete")
	printFile(dbPath)
	printDetail("%d nodes, %d relationships, %d journeys, %d positions",
		len(snap.Nodes), len(snap.Edges), len(snap.Scenarios), len(snap.Positions))
	printNewline()
	printNextStep("Serve", "flowcanvas serve --db "+dbPath)

	return nil
}
