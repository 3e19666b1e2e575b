package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teranos/typeglyph/display"
	"github.com/teranos/typeglyph/version"
)

// VersionCmd represents the version command
var VersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show typeglyph version information",
	Long:  `Display version, build time, commit hash, and platform information for the typeglyph binary.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		info := version.Get()

		if display.ShouldOutputJSON(cmd) {
			return display.WriteJSON(cmd.OutOrStdout(), info)
		}
		fmt.Fprintln(cmd.OutOrStdout(), info.String())
		return nil
	},
}
