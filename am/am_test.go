package am

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/typeglyph/errors"
)

// isolate points HOME at an empty directory so user config does not leak in
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	Reset()
	t.Cleanup(Reset)
	return home
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestLoadFromDefaults(t *testing.T) {
	isolate(t)

	cfg, sources, err := LoadFrom(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, Defaults().Glyphs, cfg.Glyphs)
	assert.Equal(t, Defaults().Collect, cfg.Collect)
	assert.Equal(t, "gopls serve", cfg.LanguageServers["go"])
	assert.Equal(t, DefaultServerAddress, cfg.Server.Address)
	assert.Empty(t, sources)
}

func TestProjectConfigFoundWalkingUp(t *testing.T) {
	isolate(t)

	root := t.TempDir()
	writeFile(t, filepath.Join(root, ProjectConfigName), `
[glyphs]
icon_size = 20

[language_servers]
zig = "zls"
`)
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))

	assert.Equal(t, filepath.Join(root, ProjectConfigName), FindProjectConfig(nested))

	cfg, sources, err := LoadFrom(nested)
	require.NoError(t, err)
	assert.Equal(t, 20, cfg.Glyphs.IconSize)
	assert.Equal(t, "zls", cfg.LanguageServers["zig"])
	assert.Equal(t, "gopls serve", cfg.LanguageServers["go"], "defaults survive a partial table")
	assert.Equal(t, SourceProject, sources["glyphs.icon_size"].Source)
}

func TestProjectOverridesUser(t *testing.T) {
	home := isolate(t)
	writeFile(t, filepath.Join(home, UserConfigDir, UserConfigName), `
[glyphs]
icon_size = 18
debounce_ms = 50
`)
	project := t.TempDir()
	writeFile(t, filepath.Join(project, ProjectConfigName), `
[glyphs]
icon_size = 24
`)

	cfg, sources, err := LoadFrom(project)
	require.NoError(t, err)
	assert.Equal(t, 24, cfg.Glyphs.IconSize)
	assert.Equal(t, 50, cfg.Glyphs.DebounceMS)
	assert.Equal(t, SourceProject, sources["glyphs.icon_size"].Source)
	assert.Equal(t, SourceUser, sources["glyphs.debounce_ms"].Source)
}

func TestEnvironmentOverridesFiles(t *testing.T) {
	isolate(t)
	project := t.TempDir()
	writeFile(t, filepath.Join(project, ProjectConfigName), `
[glyphs]
icon_size = 24
`)
	t.Setenv("TYPEGLYPH_GLYPHS_ICON_SIZE", "30")
	t.Setenv("TYPEGLYPH_LANGUAGE_SERVERS_GO", "gopls -remote=auto")

	cfg, _, err := LoadFrom(project)
	require.NoError(t, err)
	assert.Equal(t, 30, cfg.Glyphs.IconSize)
	assert.Equal(t, "gopls -remote=auto", cfg.LanguageServers["go"])
}

func TestLoadCachesUntilReset(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	t.Chdir(dir)

	first, err := Load()
	require.NoError(t, err)
	second, err := Load()
	require.NoError(t, err)
	assert.Same(t, first, second)

	Reset()
	third, err := Load()
	require.NoError(t, err)
	assert.NotSame(t, first, third)
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	isolate(t)
	project := t.TempDir()
	writeFile(t, filepath.Join(project, ProjectConfigName), `
[glyphs]
icon_size = 2
`)

	_, _, err := LoadFrom(project)
	require.Error(t, err)
	assert.True(t, errors.IsInvalidRequestError(err))
	assert.Contains(t, err.Error(), "icon_size")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"icon too small", func(c *Config) { c.Glyphs.IconSize = 4 }, "icon_size"},
		{"icon too large", func(c *Config) { c.Glyphs.IconSize = 257 }, "icon_size"},
		{"icon at bounds", func(c *Config) { c.Glyphs.IconSize = MaxIconSize }, ""},
		{"negative debounce", func(c *Config) { c.Glyphs.DebounceMS = -1 }, "debounce_ms"},
		{"zero batch", func(c *Config) { c.Collect.BatchSize = 0 }, "batch_size"},
		{"zero concurrency", func(c *Config) { c.Collect.Concurrency = 0 }, "concurrency"},
		{"negative rate", func(c *Config) { c.Collect.HoverRequestsPerSecond = -1 }, "hover_requests_per_second"},
		{"zero timeout means none", func(c *Config) { c.Collect.RequestTimeoutMS = 0 }, ""},
		{"negative timeout", func(c *Config) { c.Collect.RequestTimeoutMS = -5 }, "request_timeout_ms"},
		{"empty server command", func(c *Config) { c.LanguageServers["go"] = "  " }, "language_servers.go"},
		{"unbalanced quote", func(c *Config) { c.LanguageServers["go"] = `gopls "serve` }, "language_servers.go"},
		{"quoted command", func(c *Config) { c.LanguageServers["go"] = `"/opt/my tools/gopls" serve` }, ""},
		{"bad extra file", func(c *Config) { c.Inheritance.ExtraFile = "chains.json" }, "extra_file"},
		{"yaml extra file", func(c *Config) { c.Inheritance.ExtraFile = "chains.yml" }, ""},
		{"address without port", func(c *Config) { c.Server.Address = "localhost" }, "server.address"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.IsInvalidRequestError(err))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestIntrospect(t *testing.T) {
	isolate(t)
	project := t.TempDir()
	path := filepath.Join(project, ProjectConfigName)
	writeFile(t, path, `
[collect]
batch_size = 5
`)
	t.Setenv("TYPEGLYPH_GLYPHS_ICON_SIZE", "16")

	v, sources := newViper(project)
	settings := Introspect(v, sources)

	byKey := make(map[string]SettingInfo, len(settings))
	for _, s := range settings {
		byKey[s.Key] = s
	}

	assert.Equal(t, SourceProject, byKey["collect.batch_size"].Source)
	assert.Equal(t, path, byKey["collect.batch_size"].SourcePath)
	assert.Equal(t, SourceEnvironment, byKey["glyphs.icon_size"].Source)
	assert.Equal(t, "TYPEGLYPH_GLYPHS_ICON_SIZE", byKey["glyphs.icon_size"].SourcePath)
	assert.Equal(t, SourceDefault, byKey["collect.concurrency"].Source)

	counts := SourceCounts(settings)
	assert.Equal(t, 1, counts[SourceProject])
	assert.Equal(t, 1, counts[SourceEnvironment])

	for i := 1; i < len(settings); i++ {
		assert.Less(t, settings[i-1].Key, settings[i].Key)
	}
}

func TestWriteDefaultsRoundTrip(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), ProjectConfigName)

	require.NoError(t, WriteDefaults(path, false))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	want := Defaults()
	assert.Equal(t, want.Glyphs, cfg.Glyphs)
	assert.Equal(t, want.Collect, cfg.Collect)
	assert.Equal(t, want.LanguageServers, cfg.LanguageServers)
	assert.Equal(t, want.Server.Address, cfg.Server.Address)
	assert.Empty(t, cfg.Server.AllowedOrigins)

	err = WriteDefaults(path, false)
	require.Error(t, err)
	assert.Contains(t, errors.GetAllHints(err), "pass --force to overwrite it; the old file is kept as .back1")

	require.NoError(t, WriteDefaults(path, true))
	assert.FileExists(t, path+".back1")
}

func TestLoadFromFileMissing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
	assert.NotEmpty(t, errors.GetAllHints(err))
}

func TestSetValue(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), ProjectConfigName)

	require.NoError(t, SetValue(path, "glyphs.icon_size", 22, nil))
	require.NoError(t, SetValue(path, "language_servers.zig", "zls", nil))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 22, cfg.Glyphs.IconSize)
	assert.Equal(t, "zls", cfg.LanguageServers["zig"])
	assert.FileExists(t, path+".back1")

	err = SetValue(path, "glyphs.icon_size", 1000, nil)
	require.Error(t, err)
	assert.True(t, errors.IsInvalidRequestError(err))

	cfg, err = LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 22, cfg.Glyphs.IconSize, "rejected value is not written")

	assert.Error(t, SetValue(path, "glyphs..icon_size", 1, nil))
}

func TestBackupRotation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	for i, content := range []string{"a", "b", "c", "d", "e"} {
		writeFile(t, path, content)
		require.NoError(t, createBackup(path), "round %d", i)
	}

	read := func(p string) string {
		data, err := os.ReadFile(p)
		require.NoError(t, err)
		return string(data)
	}
	assert.Equal(t, "e", read(path+".back1"))
	assert.Equal(t, "d", read(path+".back2"))
	assert.Equal(t, "c", read(path+".back3"))
	assert.NoFileExists(t, path+".back4")

	assert.NoError(t, createBackup(filepath.Join(t.TempDir(), "missing.toml")))
}

func TestIsBackupFile(t *testing.T) {
	assert.True(t, isBackupFile("/x/typeglyph.toml.back1"))
	assert.True(t, isBackupFile("config.toml.back3"))
	assert.False(t, isBackupFile("typeglyph.toml"))
	assert.False(t, isBackupFile("notes.backup"))
}

func TestConfigWatcherReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ProjectConfigName)
	writeFile(t, path, "[glyphs]\nicon_size = 14\n")

	loader := func() (*Config, error) { return LoadFromFile(path) }
	cw, err := NewConfigWatcher(path, loader)
	require.NoError(t, err)
	defer cw.Stop()

	reloaded := make(chan *Config, 4)
	cw.OnReload(func(c *Config) error {
		reloaded <- c
		return nil
	})
	cw.OnReload(func(*Config) error { return errors.New("ignored") })
	cw.Start()

	// Unrelated files in the same directory are filtered out
	writeFile(t, filepath.Join(dir, "other.toml"), "x = 1")
	writeFile(t, path+".back1", "junk")

	writeFile(t, path, "[glyphs]\nicon_size = 40\n")

	select {
	case c := <-reloaded:
		assert.Equal(t, 40, c.Glyphs.IconSize)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after config change")
	}
}

func TestConfigWatcherSkipsOwnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ProjectConfigName)
	writeFile(t, path, "")

	cw, err := NewConfigWatcher(path, func() (*Config, error) { return Defaults(), nil })
	require.NoError(t, err)
	defer cw.Stop()

	calls := make(chan struct{}, 4)
	cw.OnReload(func(*Config) error {
		calls <- struct{}{}
		return nil
	})
	cw.Start()

	cw.MarkOwnWrite()
	require.NoError(t, os.WriteFile(path, []byte("[glyphs]\n"), 0644))

	select {
	case <-calls:
		t.Fatal("own write triggered a reload")
	case <-time.After(2 * DefaultReloadDebounce):
	}

	assert.NoError(t, cw.Stop())
	assert.NoError(t, cw.Stop())
}
