package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teranos/typeglyph/annotate"
	"github.com/teranos/typeglyph/display"
	"github.com/teranos/typeglyph/errors"
	"github.com/teranos/typeglyph/logger"
	"github.com/teranos/typeglyph/server"
)

// AnnotateCmd runs one pass per file and prints the glyph tables
var AnnotateCmd = &cobra.Command{
	Use:   "annotate <file>...",
	Short: "Annotate files once and print the glyph table",
	Long: `Start the configured language server for each file's language, run one
annotation pass and print every glyph group with its locations.

Positions print 1-based. With --json the full render table is printed,
including icon data URIs and tooltips.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAnnotate,
}

func init() {
	addGlyphFlags(AnnotateCmd)
}

func runAnnotate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session, err := NewSession(SessionConfig{Config: cfg})
	if err != nil {
		return err
	}
	defer shutdownSession(session)

	asJSON := display.ShouldOutputJSON(cmd)
	var tables []*annotate.Table
	for _, path := range args {
		table, err := session.Annotate(ctx, path)
		if err != nil {
			return errors.Wrapf(err, "annotate %s", path)
		}
		if asJSON {
			tables = append(tables, table)
			continue
		}
		if err := display.RenderTable(cmd.OutOrStdout(), table); err != nil {
			return err
		}
	}

	if asJSON {
		if len(tables) == 1 {
			return display.WriteJSON(cmd.OutOrStdout(), tables[0])
		}
		return display.WriteJSON(cmd.OutOrStdout(), tables)
	}
	return nil
}

// shutdownSession gives language servers ShutdownTimeout to exit
func shutdownSession(session *Session) {
	ctx, cancel := context.WithTimeout(context.Background(), server.ShutdownTimeout)
	defer cancel()
	if err := session.Close(ctx); err != nil {
		session.logger.Warnw("language server shutdown incomplete", logger.FieldError, err)
	}
}
