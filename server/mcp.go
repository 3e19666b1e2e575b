package server

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/teranos/typeglyph/annotate"
	"github.com/teranos/typeglyph/hover"
	"github.com/teranos/typeglyph/iconcache"
	"github.com/teranos/typeglyph/inherit"
	"github.com/teranos/typeglyph/logger"
	"github.com/teranos/typeglyph/version"
)

// MCP tool names
const (
	ToolExtract  = "typeglyph_extract"
	ToolIcon     = "typeglyph_icon"
	ToolAnnotate = "typeglyph_annotate"
)

// Annotator runs one full pass over a file on disk
type Annotator interface {
	Annotate(ctx context.Context, path string) (*annotate.Table, error)
}

// MCPConfig holds the collaborators of an MCPServer
type MCPConfig struct {
	Icons     *iconcache.Cache
	Chains    *inherit.Resolver
	Annotator Annotator // optional; typeglyph_annotate is only offered with one
	Logger    *zap.SugaredLogger
}

// MCPServer exposes extraction, icons and annotation over Model Context Protocol
type MCPServer struct {
	icons     *iconcache.Cache
	chains    *inherit.Resolver
	annotator Annotator
	logger    *zap.SugaredLogger
	server    *mcpserver.MCPServer
}

// ExtractResult is the structured result of typeglyph_extract
type ExtractResult struct {
	Found   bool          `json:"found"`
	Type    string        `json:"type,omitempty"`
	Chain   inherit.Chain `json:"chain,omitempty"`
	Tooltip string        `json:"tooltip,omitempty"`
}

// NewMCPServer creates the server and registers its tools
func NewMCPServer(cfg MCPConfig) *MCPServer {
	if cfg.Icons == nil {
		cfg.Icons = iconcache.New()
	}
	if cfg.Chains == nil {
		cfg.Chains = inherit.Default()
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.ComponentLogger("mcp")
	}

	s := &MCPServer{
		icons:     cfg.Icons,
		chains:    cfg.Chains,
		annotator: cfg.Annotator,
		logger:    cfg.Logger,
	}
	s.server = mcpserver.NewMCPServer(
		"typeglyph",
		version.Get().Version,
		mcpserver.WithToolCapabilities(true),
	)
	s.registerTools()
	return s
}

// Serve speaks MCP over stdin and stdout until stdin closes
func (s *MCPServer) Serve() error {
	s.logger.Infow("MCP server starting on stdio", "tools", s.Tools())
	return mcpserver.ServeStdio(s.server)
}

// Tools returns the registered tool names, sorted
func (s *MCPServer) Tools() []string {
	tools := s.server.ListTools()
	names := make([]string, 0, len(tools))
	for name := range tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *MCPServer) registerTools() {
	familyNames := make([]string, 0, len(hover.Families()))
	for _, f := range hover.Families() {
		familyNames = append(familyNames, f.String())
	}

	extractTool := mcp.NewTool(ToolExtract,
		mcp.WithDescription("Extract the principal type name from language-server hover text"),
		mcp.WithString("hover",
			mcp.Required(),
			mcp.Description("Raw hover text, fenced code blocks allowed"),
		),
		mcp.WithString("language",
			mcp.Description("Language tag of the document (e.g. typescript, go). Families: "+strings.Join(familyNames, ", ")),
		),
	)
	s.server.AddTool(extractTool, s.handleExtract)

	iconTool := mcp.NewTool(ToolIcon,
		mcp.WithDescription("Render the identicon glyph for one or more type names as an embeddable SVG data URI"),
		mcp.WithArray("types",
			mcp.Required(),
			mcp.Description("Type names, drawn left to right"),
			mcp.WithStringItems(),
		),
		mcp.WithNumber("size",
			mcp.Description("Glyph side length in pixels (default 14)"),
			mcp.Min(5),
			mcp.Max(MaxIconSize),
		),
		mcp.WithBoolean("inherit",
			mcp.Description("Expand a single type into its inheritance chain before rendering"),
		),
	)
	s.server.AddTool(iconTool, s.handleIcon)

	if s.annotator == nil {
		return
	}
	annotateTool := mcp.NewTool(ToolAnnotate,
		mcp.WithDescription("Run a full annotation pass over a source file and return its render table"),
		mcp.WithString("file",
			mcp.Required(),
			mcp.Description("Path of the source file"),
		),
	)
	s.server.AddTool(annotateTool, s.handleAnnotate)
}

// handleExtract handles typeglyph_extract tool calls
func (s *MCPServer) handleExtract(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := request.RequireString("hover")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	language := request.GetString("language", "")

	name, ok := hover.Extract(text, language)
	if !ok {
		return mcp.NewToolResultStructured(ExtractResult{}, "No type found"), nil
	}

	chain := s.chains.ChainFor(string(name))
	result := ExtractResult{
		Found:   true,
		Type:    string(name),
		Chain:   chain,
		Tooltip: annotate.Tooltip(chain),
	}
	return mcp.NewToolResultStructured(result, result.Tooltip), nil
}

// handleIcon handles typeglyph_icon tool calls
func (s *MCPServer) handleIcon(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	names, err := request.RequireStringSlice("types")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(names) == 0 {
		return mcp.NewToolResultError("types must name at least one type"), nil
	}

	size := request.GetInt("size", DefaultIconSize)
	if size < 5 || size > MaxIconSize {
		return mcp.NewToolResultError(fmt.Sprintf("size must be in [5, %d], got %d", MaxIconSize, size)), nil
	}

	if request.GetBool("inherit", false) && len(names) == 1 {
		names = s.chains.ChainFor(names[0])
	}

	icon := s.icons.Composite(names, size)
	return mcp.NewToolResultStructured(icon, icon.URI), nil
}

// handleAnnotate handles typeglyph_annotate tool calls
func (s *MCPServer) handleAnnotate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	file, err := request.RequireString("file")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	path, err := filepath.Abs(file)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Invalid path %s: %v", file, err)), nil
	}

	table, err := s.annotator.Annotate(ctx, path)
	if err != nil {
		s.logger.Warnw("annotate tool failed", logger.FieldURI, path, logger.FieldError, err)
		return mcp.NewToolResultError(fmt.Sprintf("Failed to annotate %s: %v", file, err)), nil
	}
	return mcp.NewToolResultStructured(table, summarize(table)), nil
}

// summarize renders a table as one line per group
func summarize(table *annotate.Table) string {
	if len(table.Groups) == 0 {
		return "No typed locations found"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d locations in %d groups:\n", table.Len(), len(table.Groups))
	for _, key := range table.Keys() {
		g := table.Groups[key]
		positions := make([]string, len(g.Locations))
		for i, loc := range g.Locations {
			positions[i] = loc.Start.String()
		}
		fmt.Fprintf(&b, "%s: %s\n", g.Chain.Join(annotate.InheritsArrow), strings.Join(positions, ", "))
	}
	return b.String()
}
