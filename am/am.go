// Package am loads typeglyph configuration.
//
// Sources, lowest precedence first:
//
//	built-in defaults
//	/etc/typeglyph/config.toml
//	~/.typeglyph/config.toml
//	the nearest typeglyph.toml walking up from the working directory
//	TYPEGLYPH_* environment variables (TYPEGLYPH_GLYPHS_ICON_SIZE=20)
//
// CLI flags are applied by the caller on top of the loaded Config.
package am

import (
	"fmt"
	"sort"
	"time"
)

// Config represents the complete typeglyph configuration
type Config struct {
	Glyphs          GlyphsConfig      `mapstructure:"glyphs" toml:"glyphs" json:"glyphs"`
	Collect         CollectConfig     `mapstructure:"collect" toml:"collect" json:"collect"`
	LanguageServers map[string]string `mapstructure:"language_servers" toml:"language_servers" json:"language_servers"`
	Inheritance     InheritanceConfig `mapstructure:"inheritance" toml:"inheritance" json:"inheritance"`
	Server          ServerConfig      `mapstructure:"server" toml:"server" json:"server"`
	Log             LogConfig         `mapstructure:"log" toml:"log" json:"log"`
}

// GlyphsConfig holds the user-facing annotation switches
type GlyphsConfig struct {
	Enabled           bool `mapstructure:"enabled" toml:"enabled" json:"enabled"`
	ShowInheritance   bool `mapstructure:"show_inheritance" toml:"show_inheritance" json:"show_inheritance"`
	ShowOnDeclaration bool `mapstructure:"show_on_declaration" toml:"show_on_declaration" json:"show_on_declaration"`
	ShowOnParameters  bool `mapstructure:"show_on_parameters" toml:"show_on_parameters" json:"show_on_parameters"`
	ShowOnUsage       bool `mapstructure:"show_on_usage" toml:"show_on_usage" json:"show_on_usage"`
	IconSize          int  `mapstructure:"icon_size" toml:"icon_size" json:"icon_size"`       // pixels per glyph side
	DebounceMS        int  `mapstructure:"debounce_ms" toml:"debounce_ms" json:"debounce_ms"` // quiet period before a re-run
}

// CollectConfig bounds the load one pass puts on a language server
type CollectConfig struct {
	BatchSize              int     `mapstructure:"batch_size" toml:"batch_size" json:"batch_size"`
	Concurrency            int     `mapstructure:"concurrency" toml:"concurrency" json:"concurrency"`
	HoverRequestsPerSecond float64 `mapstructure:"hover_requests_per_second" toml:"hover_requests_per_second" json:"hover_requests_per_second"` // 0 = unlimited
	RequestTimeoutMS       int     `mapstructure:"request_timeout_ms" toml:"request_timeout_ms" json:"request_timeout_ms"`                      // 0 = no timeout
}

// InheritanceConfig points at an ancestry table merged over the built-in one
type InheritanceConfig struct {
	ExtraFile string `mapstructure:"extra_file" toml:"extra_file" json:"extra_file"` // .yaml, .yml or .toml
}

// ServerConfig configures `typeglyph serve`
type ServerConfig struct {
	Address        string   `mapstructure:"address" toml:"address" json:"address"`
	AllowedOrigins []string `mapstructure:"allowed_origins" toml:"allowed_origins" json:"allowed_origins"`
}

// LogConfig selects the log encoding
type LogConfig struct {
	JSON bool `mapstructure:"json" toml:"json" json:"json"`
}

// Debounce returns the glyph re-run quiet period
func (g GlyphsConfig) Debounce() time.Duration {
	return time.Duration(g.DebounceMS) * time.Millisecond
}

// RequestTimeout returns the per-request language server timeout
func (c CollectConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMS) * time.Millisecond
}

// Languages returns the configured language tags, sorted
func (c *Config) Languages() []string {
	langs := make([]string, 0, len(c.LanguageServers))
	for lang := range c.LanguageServers {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

// String returns a short representation of the config
func (c *Config) String() string {
	return fmt.Sprintf("Config{Glyphs: {Enabled: %t, IconSize: %d}, Collect: {BatchSize: %d, Concurrency: %d}, LanguageServers: %d, Server: %s}",
		c.Glyphs.Enabled, c.Glyphs.IconSize, c.Collect.BatchSize, c.Collect.Concurrency, len(c.LanguageServers), c.Server.Address)
}

// File system constants
const (
	DefaultDirPermissions  = 0755
	DefaultFilePermissions = 0644
)

// Config file names
const (
	ProjectConfigName = "typeglyph.toml"
	UserConfigDir     = ".typeglyph"
	UserConfigName    = "config.toml"
	SystemConfigPath  = "/etc/typeglyph/config.toml"
	EnvPrefix         = "TYPEGLYPH"
)
