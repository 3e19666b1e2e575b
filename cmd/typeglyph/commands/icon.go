package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teranos/typeglyph/am"
	"github.com/teranos/typeglyph/display"
	"github.com/teranos/typeglyph/errors"
	"github.com/teranos/typeglyph/iconcache"
)

// IconCmd prints the identicon for type names
var IconCmd = &cobra.Command{
	Use:   "icon <Type>...",
	Short: "Print the identicon for one or more type names",
	Long: `Print the SVG identicon for a type name. Several names produce one
composite image with the glyphs side by side, in the order given.

With --inherit a single name is expanded to its ancestry chain first.`,
	Example: `  typeglyph icon Integer
  typeglyph icon --inherit Integer      # Integer, Number, Object
  typeglyph icon --uri --size 28 Map    # data: URI for embedding`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIcon,
}

var (
	iconSize    int
	iconURI     bool
	iconInherit bool
)

func init() {
	IconCmd.Flags().IntVar(&iconSize, "size", am.DefaultIconSize, "Glyph side length in pixels")
	IconCmd.Flags().BoolVar(&iconURI, "uri", false, "Print an embeddable data: URI instead of SVG")
	IconCmd.Flags().BoolVar(&iconInherit, "inherit", false, "Expand a single type to its ancestry chain")
}

// iconResult is the --json shape of the icon command
type iconResult struct {
	Names []string `json:"names"`
	Size  int      `json:"size"`
	Width int      `json:"width"`
	URI   string   `json:"uri"`
	SVG   string   `json:"svg"`
}

func runIcon(cmd *cobra.Command, args []string) error {
	if iconSize < am.MinIconSize || iconSize > am.MaxIconSize {
		return errors.NewInvalidRequestError("--size must be in [%d, %d], got %d", am.MinIconSize, am.MaxIconSize, iconSize)
	}

	names := args
	if iconInherit {
		if len(args) != 1 {
			return errors.NewInvalidRequestError("--inherit takes exactly one type name, got %d", len(args))
		}
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		chains, err := loadChains(cfg)
		if err != nil {
			return err
		}
		names = chains.ChainFor(args[0])
	}

	icons := iconcache.New()
	icon := icons.Composite(names, iconSize)

	if display.ShouldOutputJSON(cmd) {
		return display.WriteJSON(cmd.OutOrStdout(), iconResult{
			Names: names,
			Size:  iconSize,
			Width: icon.Width,
			URI:   icon.URI,
			SVG:   icons.SVG(names, iconSize),
		})
	}

	if iconURI {
		fmt.Fprintln(cmd.OutOrStdout(), icon.URI)
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), icons.SVG(names, iconSize))
	return nil
}
