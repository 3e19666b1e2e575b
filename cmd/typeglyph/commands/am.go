package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/teranos/typeglyph/am"
	"github.com/teranos/typeglyph/display"
	"github.com/teranos/typeglyph/errors"
)

// AmCmd represents the am (configuration) command
var AmCmd = &cobra.Command{
	Use:   "am",
	Short: "Manage typeglyph configuration",
	Long: `am - Manage typeglyph configuration ("I am")

Configuration sources (in order of precedence):
1. Command line flags
2. Environment variables (TYPEGLYPH_* prefix, e.g. TYPEGLYPH_GLYPHS_ICON_SIZE=20)
3. Project config (nearest typeglyph.toml, searching up from the working directory)
4. User config (~/.typeglyph/config.toml)
5. System config (/etc/typeglyph/config.toml)
6. Default values

Examples:
  typeglyph am show                       # Effective configuration as TOML
  typeglyph am show --sources             # Where each setting comes from
  typeglyph am init                       # Write ./typeglyph.toml with defaults
  typeglyph am set glyphs.icon_size 20    # Change one setting in ./typeglyph.toml
  typeglyph am validate                   # Check the effective configuration`,
}

var amShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  "Display the effective typeglyph configuration merged from all sources",
	RunE:  runAmShow,
}

var amGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a specific configuration value",
	Long:  "Get a configuration value using dot notation (e.g. glyphs.icon_size, language_servers.go)",
	Args:  cobra.ExactArgs(1),
	RunE:  runAmGet,
}

var amSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value in the project config",
	Long: `Set a value using dot notation in the project typeglyph.toml (or the
user config with --user). The value is parsed as a TOML literal, so 20 is a
number, true is a boolean and anything that does not parse is a string.
The previous file is kept as .back1.`,
	Args: cobra.ExactArgs(2),
	RunE: runAmSet,
}

var amInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with every default",
	RunE:  runAmInit,
}

var amValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate current configuration",
	RunE:  runAmValidate,
}

var (
	configFormat string
	showSources  bool
	initForce    bool
	useUserFile  bool
)

func init() {
	amShowCmd.Flags().StringVar(&configFormat, "format", "toml", "Output format: toml, json, yaml")
	amShowCmd.Flags().BoolVar(&showSources, "sources", false, "List every setting with the source that set it")
	amInitCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing file (kept as .back1)")
	amInitCmd.Flags().BoolVar(&useUserFile, "user", false, "Write ~/.typeglyph/config.toml instead of ./typeglyph.toml")
	amSetCmd.Flags().BoolVar(&useUserFile, "user", false, "Edit ~/.typeglyph/config.toml instead of the project file")

	AmCmd.AddCommand(amShowCmd)
	AmCmd.AddCommand(amGetCmd)
	AmCmd.AddCommand(amSetCmd)
	AmCmd.AddCommand(amInitCmd)
	AmCmd.AddCommand(amValidateCmd)
}

func runAmShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}

	if showSources {
		return showConfigSources(cmd)
	}

	format := configFormat
	if display.ShouldOutputJSON(cmd) {
		format = "json"
	}

	out := cmd.OutOrStdout()
	switch format {
	case "json":
		return display.WriteJSON(out, cfg)

	case "yaml":
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return errors.Wrap(err, "failed to marshal config to YAML")
		}
		fmt.Fprintf(out, "# typeglyph configuration\n%s", data)

	case "toml":
		data, err := toml.Marshal(cfg)
		if err != nil {
			return errors.Wrap(err, "failed to marshal config to TOML")
		}
		fmt.Fprintf(out, "# typeglyph configuration\n%s", data)

	default:
		return errors.NewInvalidRequestError("unsupported format: %s (supported: toml, json, yaml)", format)
	}
	return nil
}

func showConfigSources(cmd *cobra.Command) error {
	settings := am.Introspect(am.GetViper(), am.ConfigSources)

	if display.ShouldOutputJSON(cmd) {
		return display.WriteJSON(cmd.OutOrStdout(), settings)
	}

	data := pterm.TableData{{"Key", "Value", "Source", "From"}}
	for _, s := range settings {
		value := fmt.Sprintf("%v", s.Value)
		if len(value) > 50 {
			value = value[:47] + "..."
		}
		data = append(data, []string{s.Key, value, string(s.Source), s.SourcePath})
	}
	out, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return errors.Wrap(err, "failed to render table")
	}
	fmt.Fprintln(cmd.OutOrStdout(), out)

	counts := am.SourceCounts(settings)
	fmt.Fprintf(cmd.OutOrStdout(), "%d settings: %d default, %d system, %d user, %d project, %d environment\n",
		len(settings), counts[am.SourceDefault], counts[am.SourceSystem], counts[am.SourceUser],
		counts[am.SourceProject], counts[am.SourceEnvironment])
	return nil
}

func runAmGet(cmd *cobra.Command, args []string) error {
	if _, err := loadConfig(cmd); err != nil {
		return err
	}

	key := args[0]
	v := am.GetViper()
	if !v.IsSet(key) {
		return errors.Wrapf(errors.ErrNotFound, "configuration key %q", key)
	}

	value := v.Get(key)
	if display.ShouldOutputJSON(cmd) {
		return display.WriteJSON(cmd.OutOrStdout(), map[string]interface{}{"key": key, "value": value})
	}
	fmt.Fprintln(cmd.OutOrStdout(), value)
	return nil
}

func runAmSet(cmd *cobra.Command, args []string) error {
	path, err := targetConfigFile()
	if err != nil {
		return err
	}

	key, value := args[0], parseValue(args[1])
	if err := am.SetValue(path, key, value, nil); err != nil {
		return err
	}
	pterm.Success.Printfln("Set %s = %v in %s", key, value, path)
	return nil
}

// parseValue reads raw as a TOML literal, falling back to a plain string
func parseValue(raw string) interface{} {
	var doc struct {
		V interface{} `toml:"v"`
	}
	if err := toml.Unmarshal([]byte("v = "+raw), &doc); err == nil && doc.V != nil {
		return doc.V
	}
	return raw
}

func runAmInit(cmd *cobra.Command, args []string) error {
	path := am.ProjectConfigName
	if useUserFile {
		home, err := os.UserHomeDir()
		if err != nil {
			return errors.Wrap(err, "could not determine home directory")
		}
		path = filepath.Join(home, am.UserConfigDir, am.UserConfigName)
	}

	if err := am.WriteDefaults(path, initForce); err != nil {
		return err
	}
	pterm.Success.Printfln("Wrote %s", path)
	return nil
}

// targetConfigFile picks the file `am set` edits: the user file with --user,
// else the nearest project file, else a new one in the working directory
func targetConfigFile() (string, error) {
	if useUserFile {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", errors.Wrap(err, "could not determine home directory")
		}
		return filepath.Join(home, am.UserConfigDir, am.UserConfigName), nil
	}
	if path := am.FindProjectConfig("."); path != "" {
		return path, nil
	}
	return am.ProjectConfigName, nil
}

func runAmValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return errors.Wrap(err, "configuration validation failed")
	}

	for _, lang := range cfg.Languages() {
		if _, err := langserverCommand(lang, cfg); err != nil {
			return err
		}
	}
	if cfg.Inheritance.ExtraFile != "" {
		if _, err := loadChains(cfg); err != nil {
			return err
		}
	}

	pterm.Success.Printfln("Configuration is valid (%d language servers)", len(cfg.LanguageServers))
	return nil
}
