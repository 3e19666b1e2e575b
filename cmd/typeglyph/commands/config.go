package commands

import (
	"github.com/spf13/cobra"

	"github.com/teranos/typeglyph/am"
	"github.com/teranos/typeglyph/logger"
)

// loadConfig loads configuration for cmd: --config names a single file,
// otherwise every source visible from the working directory is merged.
// Glyph flags declared by the command win over both.
func loadConfig(cmd *cobra.Command) (*am.Config, error) {
	var (
		cfg *am.Config
		err error
	)
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		cfg, err = am.LoadFromFile(path)
	} else {
		cfg, err = am.Load()
	}
	if err != nil {
		return nil, err
	}

	// Load caches its result; flags must not leak into the cached value
	copied := *cfg
	cfg = &copied

	applyGlyphFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Log.JSON && !cmd.Flags().Changed("log-json") {
		verbosity, _ := cmd.Flags().GetCount("verbose")
		if err := logger.Initialize(true, verbosity); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// addGlyphFlags declares the per-run overrides shared by annotate, watch and serve
func addGlyphFlags(cmd *cobra.Command) {
	cmd.Flags().Int("icon-size", am.DefaultIconSize, "Glyph side length in pixels")
	cmd.Flags().Bool("inheritance", true, "Show ancestor glyphs after the type's own")
	cmd.Flags().Bool("declarations", true, "Annotate declarations")
	cmd.Flags().Bool("parameters", true, "Annotate parameters")
	cmd.Flags().Bool("usages", false, "Annotate every usage (one highlight request per declaration)")
}

func applyGlyphFlags(cmd *cobra.Command, cfg *am.Config) {
	flags := cmd.Flags()
	if flags.Lookup("icon-size") == nil {
		return
	}
	if flags.Changed("icon-size") {
		cfg.Glyphs.IconSize, _ = flags.GetInt("icon-size")
	}
	if flags.Changed("inheritance") {
		cfg.Glyphs.ShowInheritance, _ = flags.GetBool("inheritance")
	}
	if flags.Changed("declarations") {
		cfg.Glyphs.ShowOnDeclaration, _ = flags.GetBool("declarations")
	}
	if flags.Changed("parameters") {
		cfg.Glyphs.ShowOnParameters, _ = flags.GetBool("parameters")
	}
	if flags.Changed("usages") {
		cfg.Glyphs.ShowOnUsage, _ = flags.GetBool("usages")
	}
}

// configPath is the file a long-running command watches for changes
func configPath(cmd *cobra.Command) string {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		return path
	}
	return am.FindProjectConfig(".")
}

// reloader reloads configuration the way loadConfig first did, flags included
func reloader(cmd *cobra.Command) func() (*am.Config, error) {
	return func() (*am.Config, error) {
		am.Reset()
		return loadConfig(cmd)
	}
}
