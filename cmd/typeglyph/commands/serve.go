package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/typeglyph/am"
	"github.com/teranos/typeglyph/annotate"
	"github.com/teranos/typeglyph/logger"
	"github.com/teranos/typeglyph/server"
)

// ServeCmd publishes glyph tables to editor clients, or runs the MCP server
var ServeCmd = &cobra.Command{
	Use:   "serve [file]...",
	Short: "Publish glyph tables over websocket, or run the MCP server",
	Long: `Run the websocket hub on server.address. Each file given is annotated
and re-annotated on save; every table is pushed to connected clients on /ws
and replayed to clients that connect later.

Clients may send toggle, clear_cache and resend messages. Icons are also
served over HTTP at /icon?type=Integer&type=Number&size=14.

With --mcp, typeglyph instead speaks the Model Context Protocol on stdio,
offering the typeglyph_extract, typeglyph_icon and typeglyph_annotate tools.`,
	RunE: runServe,
}

var (
	serveMCP  bool
	serveAddr string
)

func init() {
	ServeCmd.Flags().BoolVar(&serveMCP, "mcp", false, "Serve MCP tools over stdio instead of the websocket hub")
	ServeCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides server.address)")
	addGlyphFlags(ServeCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Server.Address = serveAddr
	}

	if serveMCP {
		return runMCP(cfg)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w, err := newFileWatcher(cfg, nil)
	if err != nil {
		return err
	}
	defer w.Close()

	hub := server.NewHub(server.HubConfig{
		Icons:          w.session.Icons(),
		Controls:       rerunControls{w},
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Logger:         logger.ComponentLogger("server"),
	})
	w.SetRenderer(hub)

	addr, err := hub.Start(cfg.Server.Address)
	if err != nil {
		return err
	}
	pterm.Success.Printfln("typeglyph hub listening on ws://%s/ws", addr)

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

	runErr := w.Run(ctx)

	pterm.Info.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), server.ShutdownTimeout)
	defer cancel()
	if err := hub.Stop(shutdownCtx); err != nil {
		return err
	}
	return runErr
}

// runMCP serves the MCP tools until stdin closes. stdout carries the
// protocol, so nothing else may print to it.
func runMCP(cfg *am.Config) error {
	session, err := NewSession(SessionConfig{Config: cfg})
	if err != nil {
		return err
	}
	defer shutdownSession(session)

	mcp := server.NewMCPServer(server.MCPConfig{
		Icons:     session.Icons(),
		Chains:    session.Chains(),
		Annotator: session,
		Logger:    logger.ComponentLogger("mcp"),
	})
	return mcp.Serve()
}

// rerunControls re-runs every watched file after a toggle so clients see the
// glyphs appear or clear without waiting for the next save
type rerunControls struct {
	w *fileWatcher
}

func (c rerunControls) Toggle() bool {
	enabled := c.w.session.Toggle()
	c.w.triggerAll()
	return enabled
}

func (c rerunControls) ClearCache() {
	c.w.session.ClearCache()
}

func (c rerunControls) Settings() annotate.Settings {
	return c.w.session.Settings()
}
