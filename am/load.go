package am

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/viper"

	"github.com/teranos/typeglyph/errors"
)

var (
	globalConfig  *Config
	viperInstance *viper.Viper
	// ConfigSources records, per leaf key, the file that last set it
	ConfigSources = map[string]SourceInfo{}
	loadMu        sync.Mutex
)

// Load reads the merged configuration for the current working directory.
// The result is cached until Reset.
func Load() (*Config, error) {
	loadMu.Lock()
	defer loadMu.Unlock()

	if globalConfig != nil {
		return globalConfig, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, errors.Wrap(err, "failed to determine working directory")
	}

	v, sources := newViper(cwd)
	config, err := LoadWithViper(v)
	if err != nil {
		return nil, err
	}

	viperInstance = v
	ConfigSources = sources
	globalConfig = config
	return globalConfig, nil
}

// LoadFrom reads the merged configuration as seen from dir, without touching
// the cached global configuration
func LoadFrom(dir string) (*Config, map[string]SourceInfo, error) {
	v, sources := newViper(dir)
	config, err := LoadWithViper(v)
	if err != nil {
		return nil, nil, err
	}
	return config, sources, nil
}

// GetViper returns the Viper instance behind the cached configuration
func GetViper() *viper.Viper {
	if _, err := Load(); err != nil {
		v := viper.New()
		SetDefaults(v)
		return v
	}
	loadMu.Lock()
	defer loadMu.Unlock()
	return viperInstance
}

// LoadWithViper unmarshals and validates configuration from v
func LoadWithViper(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// LoadFromFile loads defaults plus a single file, ignoring every other source
func LoadFromFile(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("toml")
	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.WithHint(errors.Wrapf(err, "failed to read config file %s", configPath),
			"run `typeglyph am init` to write a starter file")
	}

	config, err := LoadWithViper(v)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid config in %s", configPath)
	}
	return config, nil
}

// Reset clears the cached configuration
func Reset() {
	loadMu.Lock()
	defer loadMu.Unlock()
	globalConfig = nil
	viperInstance = nil
	ConfigSources = map[string]SourceInfo{}
}

// newViper builds a viper instance with defaults, environment binding and
// every config file visible from dir merged in precedence order
func newViper(dir string) (*viper.Viper, map[string]SourceInfo) {
	v := viper.New()

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)
	sources := mergeConfigFiles(v, dir)
	return v, sources
}

// configPaths lists candidate files, lowest precedence first
func configPaths(dir string) []configFile {
	paths := []configFile{{SystemConfigPath, SourceSystem}}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, configFile{filepath.Join(home, UserConfigDir, UserConfigName), SourceUser})
	}
	if project := FindProjectConfig(dir); project != "" {
		paths = append(paths, configFile{project, SourceProject})
	}
	return paths
}

type configFile struct {
	path   string
	source ConfigSource
}

// FindProjectConfig walks up from dir looking for typeglyph.toml and returns
// its path, or "" when there is none
func FindProjectConfig(dir string) string {
	if dir == "" {
		return ""
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return ""
	}

	for {
		candidate := filepath.Join(dir, ProjectConfigName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// mergeConfigFiles merges each existing file into v's config layer, so
// environment variables keep precedence over every file. Unreadable files are
// skipped; `typeglyph am validate` reports them.
func mergeConfigFiles(v *viper.Viper, dir string) map[string]SourceInfo {
	sources := make(map[string]SourceInfo)

	for _, candidate := range configPaths(dir) {
		if _, err := os.Stat(candidate.path); err != nil {
			continue
		}

		fileViper := viper.New()
		fileViper.SetConfigFile(candidate.path)
		fileViper.SetConfigType("toml")
		if err := fileViper.ReadInConfig(); err != nil {
			continue
		}

		if err := v.MergeConfigMap(fileViper.AllSettings()); err != nil {
			continue
		}
		for _, key := range fileViper.AllKeys() {
			sources[key] = SourceInfo{Source: candidate.source, Path: candidate.path}
		}
	}
	return sources
}
