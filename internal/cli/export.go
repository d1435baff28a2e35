package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/flowcanvas/flowcanvas/pkg/canvas"
	seedio "github.com/flowcanvas/flowcanvas/pkg/io"
	"github.com/flowcanvas/flowcanvas/pkg/model"
	"github.com/flowcanvas/flowcanvas/pkg/render"
	"github.com/flowcanvas/flowcanvas/pkg/store"
)

// Export formats.
const (
	FormatSVG  = "svg"
	FormatDOT  = "dot"
	FormatJSON = "json"
)

// exportCommand creates the export command for static output.
func (c *CLI) exportCommand() *cobra.Command {
	var (
		dbPath  string
		format  string
		output  string
		module  string
		search  string
		noEdges bool
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the diagram as SVG, DOT, or JSON seed files",
		Long: `Export the diagram as SVG, DOT, or JSON seed files.

SVG renders the visible diagram through the same engine the server uses, so
module and search filters apply. DOT writes a Graphviz description of the
whole graph. JSON writes the seed-file set (nodes.json, relationships.json,
journeys.json, positions.json) into the output directory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if dbPath != "" {
				cfg.Store.Path = dbPath
			}
			return c.runExport(cmd, cfg.Store.Path, format, output, module, search, !noEdges)
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database file")
	cmd.Flags().StringVarP(&format, "format", "f", FormatSVG, "output format: svg, dot, json")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file, or directory for json (default: stdout)")
	cmd.Flags().StringVarP(&module, "module", "m", model.ModuleAll, "module filter for SVG")
	cmd.Flags().StringVarP(&search, "search", "s", "", "search filter for SVG")
	cmd.Flags().BoolVar(&noEdges, "no-relationships", false, "hide relationship edges in SVG")

	return cmd
}

func (c *CLI) runExport(cmd *cobra.Command, dbPath, format, output, module, search string, showEdges bool) error {
	st, err := c.openStore(dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	snap, err := st.Snapshot(cmd.Context())
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}

	switch format {
	case FormatSVG:
		sess := canvas.NewSession(store.Service{Store: store.NewMemoryFrom(snap)}, canvas.WithTickInterval(0))
		defer sess.Close()
		if err := sess.Reload(cmd.Context()); err != nil {
			return fmt.Errorf("load diagram: %w", err)
		}
		sess.SetFilter(module, search, showEdges)
		return writeOutput(output, render.RenderSVG(sess.Frame(), render.WithBackground("#ffffff")))
	case FormatDOT:
		return writeOutput(output, []byte(render.ToDOT(snap)))
	case FormatJSON:
		if output == "" {
			return fmt.Errorf("json export requires an output directory (-o)")
		}
		if err := seedio.WriteDir(output, snap); err != nil {
			return fmt.Errorf("write seed files: %w", err)
		}
		printSuccess("Export complete")
		printFile(output)
		return nil
	default:
		return fmt.Errorf("unknown format %q (want svg, dot, or json)", format)
	}
}

// writeOutput writes data to path, or stdout when path is empty.
func writeOutput(path string, data []byte) error {
	if path == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write output %s: %w", path, err)
	}
	printSuccess("Export complete")
	printFile(path)
	return nil
}
