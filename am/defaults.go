package am

import (
	"github.com/spf13/viper"
)

// Default values shared by SetDefaults and WriteDefaults
const (
	DefaultIconSize               = 14
	DefaultDebounceMS             = 300
	DefaultBatchSize              = 20
	DefaultConcurrency            = 8
	DefaultRequestTimeoutMS       = 2000
	DefaultServerAddress          = "127.0.0.1:8791"
	MinIconSize                   = 5
	MaxIconSize                   = 256
	DefaultHoverRequestsPerSecond = 0
)

// DefaultLanguageServers maps language tags to the command started for them
var DefaultLanguageServers = map[string]string{
	"go":              "gopls serve",
	"typescript":      "typescript-language-server --stdio",
	"typescriptreact": "typescript-language-server --stdio",
	"javascript":      "typescript-language-server --stdio",
	"javascriptreact": "typescript-language-server --stdio",
	"python":          "pyright-langserver --stdio",
	"rust":            "rust-analyzer",
	"java":            "jdtls",
	"csharp":          "csharp-ls",
	"kotlin":          "kotlin-language-server",
	"c":               "clangd",
	"cpp":             "clangd",
}

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	// Glyph display
	v.SetDefault("glyphs.enabled", true)
	v.SetDefault("glyphs.show_inheritance", true)
	v.SetDefault("glyphs.show_on_declaration", true)
	v.SetDefault("glyphs.show_on_parameters", true)
	v.SetDefault("glyphs.show_on_usage", false) // highlight expansion costs one request per declaration
	v.SetDefault("glyphs.icon_size", DefaultIconSize)
	v.SetDefault("glyphs.debounce_ms", DefaultDebounceMS)

	// Collection
	v.SetDefault("collect.batch_size", DefaultBatchSize)
	v.SetDefault("collect.concurrency", DefaultConcurrency)
	v.SetDefault("collect.hover_requests_per_second", DefaultHoverRequestsPerSecond)
	v.SetDefault("collect.request_timeout_ms", DefaultRequestTimeoutMS)

	// Language servers, one key per tag so TYPEGLYPH_LANGUAGE_SERVERS_GO overrides a single entry
	for lang, command := range DefaultLanguageServers {
		v.SetDefault("language_servers."+lang, command)
	}

	v.SetDefault("inheritance.extra_file", "")

	v.SetDefault("server.address", DefaultServerAddress)
	v.SetDefault("server.allowed_origins", []string{})

	v.SetDefault("log.json", false)
}

// Defaults returns the built-in configuration
func Defaults() *Config {
	servers := make(map[string]string, len(DefaultLanguageServers))
	for lang, command := range DefaultLanguageServers {
		servers[lang] = command
	}
	return &Config{
		Glyphs: GlyphsConfig{
			Enabled:           true,
			ShowInheritance:   true,
			ShowOnDeclaration: true,
			ShowOnParameters:  true,
			IconSize:          DefaultIconSize,
			DebounceMS:        DefaultDebounceMS,
		},
		Collect: CollectConfig{
			BatchSize:        DefaultBatchSize,
			Concurrency:      DefaultConcurrency,
			RequestTimeoutMS: DefaultRequestTimeoutMS,
		},
		LanguageServers: servers,
		Server: ServerConfig{
			Address:        DefaultServerAddress,
			AllowedOrigins: []string{},
		},
	}
}
