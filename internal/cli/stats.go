package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

// statsCommand creates the stats command for summarizing the store.
func (c *CLI) statsCommand() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize the stored graph",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if dbPath != "" {
				cfg.Store.Path = dbPath
			}
			return c.runStats(cmd, cfg.Store.Path)
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database file")

	return cmd
}

func (c *CLI) runStats(cmd *cobra.Command, dbPath string) error {
	st, err := c.openStore(dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	snap, err := st.Snapshot(cmd.Context())
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}

	fmt.Println(StyleTitle.Render("Graph"))
	printKeyValue("Nodes", fmt.Sprintf("%d", len(snap.Nodes)))
	printKeyValue("Edges", fmt.Sprintf("%d", len(snap.Edges)))
	printKeyValue("Journeys", fmt.Sprintf("%d", len(snap.Scenarios)))
	printKeyValue("Positioned", fmt.Sprintf("%d", len(snap.Positions)))

	modules := map[string]int{}
	for _, n := range snap.Nodes {
		modules[n.Module]++
	}
	if len(modules) > 0 {
		names := make([]string, 0, len(modules))
		for name := range modules {
			names = append(names, name)
		}
		sort.Strings(names)

		printNewline()
		fmt.Println(StyleTitle.Render("Modules"))
		for _, name := range names {
			label := name
			if label == "" {
				label = "(none)"
			}
			printKeyValue(label, fmt.Sprintf("%d nodes", modules[name]))
		}
	}

	unpositioned := 0
	for id := range snap.Nodes {
		if _, ok := snap.Positions[id]; !ok {
			unpositioned++
		}
	}
	if unpositioned > 0 {
		printNewline()
		printWarning("%d nodes have no position", unpositioned)
		if dbPath != "" {
			printNextStep("Lay out", "flowcanvas layout --db "+dbPath)
		}
	}

	return nil
}
