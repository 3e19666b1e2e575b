package commands

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/typeglyph/annotate"
	"github.com/teranos/typeglyph/display"
	"github.com/teranos/typeglyph/document"
)

// WatchCmd re-annotates files whenever they change
var WatchCmd = &cobra.Command{
	Use:   "watch <file>...",
	Short: "Re-annotate files whenever they change",
	Long: `Annotate files, then re-run a pass each time one is saved. Saves closer
together than glyphs.debounce_ms collapse into one pass, and a pass that a
newer save overtakes is discarded without printing.

Changes to the project typeglyph.toml are applied to the next pass.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runWatch,
}

func init() {
	addGlyphFlags(WatchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	asJSON := display.ShouldOutputJSON(cmd)
	out := cmd.OutOrStdout()
	var printMu sync.Mutex
	printer := annotate.RendererFunc(func(_ context.Context, _ *document.Document, table *annotate.Table) error {
		printMu.Lock()
		defer printMu.Unlock()
		if asJSON {
			return display.WriteJSON(out, table)
		}
		return display.RenderTable(out, table)
	})

	w, err := newFileWatcher(cfg, printer)
	if err != nil {
		return err
	}
	defer w.Close()

	for _, path := range args {
		if err := w.Add(path); err != nil {
			return err
		}
	}

	cw, err := w.WatchConfig(configPath(cmd), reloader(cmd))
	if err != nil {
		return err
	}
	if cw != nil {
		defer cw.Stop()
	}

	if !asJSON {
		pterm.Info.Printfln("Watching %d file(s), press Ctrl+C to stop", len(args))
	}
	return w.Run(ctx)
}
