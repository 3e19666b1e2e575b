package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teranos/typeglyph/cmd/typeglyph/commands"
	"github.com/teranos/typeglyph/errors"
	"github.com/teranos/typeglyph/logger"
)

var rootCmd = &cobra.Command{
	Use:   "typeglyph",
	Short: "typeglyph - identicon glyphs for the types in your source files",
	Long: `typeglyph - identicon glyphs for the types in your source files.

typeglyph asks a language server for the type at every declaration and
parameter, turns each type name into a small deterministic identicon and
groups the locations that share a type (and, optionally, its ancestry).

Available commands:
  annotate - Annotate files once and print the glyph table
  watch    - Re-annotate files whenever they change
  icon     - Print the identicon for one or more type names
  serve    - Publish glyph tables over websocket, or run the MCP server
  am       - Manage typeglyph configuration
  version  - Show build information

Examples:
  typeglyph annotate main.go          # Glyph table for main.go
  typeglyph icon Integer Number       # Composite SVG for a chain
  typeglyph serve src/app.ts          # Push tables to editor clients
  typeglyph serve --mcp               # MCP tools over stdio
  typeglyph am show --sources         # Where each setting comes from`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbosity, _ := cmd.Flags().GetCount("verbose")
		jsonLogs, _ := cmd.Flags().GetBool("log-json")
		if err := logger.Initialize(jsonLogs, verbosity); err != nil {
			return errors.Wrap(err, "failed to initialize logger")
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Cleanup()
	},
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase log verbosity (repeat for more detail: -v, -vv, -vvv)")
	rootCmd.PersistentFlags().Bool("json", false, "Print results as JSON")
	rootCmd.PersistentFlags().Bool("log-json", false, "Write logs to stderr as JSON")
	rootCmd.PersistentFlags().String("config", "", "Read configuration from this file only")

	rootCmd.AddCommand(commands.AnnotateCmd)
	rootCmd.AddCommand(commands.WatchCmd)
	rootCmd.AddCommand(commands.IconCmd)
	rootCmd.AddCommand(commands.ServeCmd)
	rootCmd.AddCommand(commands.AmCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		for _, hint := range errors.GetAllHints(err) {
			fmt.Fprintf(os.Stderr, "Hint: %s\n", hint)
		}
		os.Exit(1)
	}
}
