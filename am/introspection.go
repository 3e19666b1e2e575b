package am

import (
	"os"
	"sort"
	"strings"

	"github.com/spf13/viper"
)

// ConfigSource represents where a configuration value came from
type ConfigSource string

const (
	SourceDefault     ConfigSource = "default"
	SourceSystem      ConfigSource = "system"      // /etc/typeglyph/config.toml
	SourceUser        ConfigSource = "user"        // ~/.typeglyph/config.toml
	SourceProject     ConfigSource = "project"     // nearest typeglyph.toml
	SourceEnvironment ConfigSource = "environment" // TYPEGLYPH_* env vars
)

// SourceInfo tracks where a configuration value originated
type SourceInfo struct {
	Source ConfigSource `json:"source"`
	Path   string       `json:"path,omitempty"` // file path or environment variable name
}

// SettingInfo is one effective setting and its origin
type SettingInfo struct {
	Key        string       `json:"key"`
	Value      interface{}  `json:"value"`
	Source     ConfigSource `json:"source"`
	SourcePath string       `json:"source_path,omitempty"`
}

// Introspect lists every effective setting of v, sorted by key, with the
// source that supplied it. Environment variables win over recorded file sources.
func Introspect(v *viper.Viper, sources map[string]SourceInfo) []SettingInfo {
	keys := v.AllKeys()
	sort.Strings(keys)

	settings := make([]SettingInfo, 0, len(keys))
	for _, key := range keys {
		info := SourceInfo{Source: SourceDefault, Path: "built-in default"}
		if si, ok := sources[key]; ok {
			info = si
		}
		if envKey := EnvKey(key); os.Getenv(envKey) != "" {
			info = SourceInfo{Source: SourceEnvironment, Path: envKey}
		}

		settings = append(settings, SettingInfo{
			Key:        key,
			Value:      v.Get(key),
			Source:     info.Source,
			SourcePath: info.Path,
		})
	}
	return settings
}

// EnvKey returns the environment variable that overrides key
func EnvKey(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// SourceCounts tallies settings by source
func SourceCounts(settings []SettingInfo) map[ConfigSource]int {
	counts := make(map[ConfigSource]int)
	for _, s := range settings {
		counts[s.Source]++
	}
	return counts
}
