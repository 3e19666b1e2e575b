package am

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/teranos/typeglyph/errors"
	"github.com/teranos/typeglyph/logger"
)

// WriteDefaults writes the built-in defaults as TOML to path. An existing file
// is kept unless force is set, in which case it is rotated into a backup first.
func WriteDefaults(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return errors.WithHint(errors.Newf("%s already exists", path),
			"pass --force to overwrite it; the old file is kept as .back1")
	}

	data, err := toml.Marshal(Defaults())
	if err != nil {
		return errors.Wrap(err, "failed to marshal default config")
	}
	return writeWithBackup(path, data, nil)
}

// SetValue sets a single dotted key (for example "glyphs.icon_size") in the
// TOML file at path, creating the file and any tables it needs. The result
// must still validate. watcher may be nil; when set the write is marked as
// our own so it does not trigger a reload.
func SetValue(path, key string, value interface{}, watcher *ConfigWatcher) error {
	parts := strings.Split(key, ".")
	for _, p := range parts {
		if p == "" {
			return errors.NewInvalidRequestError("invalid config key %q", key)
		}
	}

	doc := make(map[string]interface{})
	if data, err := os.ReadFile(path); err == nil {
		if err := toml.Unmarshal(data, &doc); err != nil {
			return errors.Wrapf(err, "failed to parse %s", path)
		}
	} else if !os.IsNotExist(err) {
		return errors.Wrapf(err, "failed to read %s", path)
	}

	table := doc
	for _, p := range parts[:len(parts)-1] {
		next, ok := table[p].(map[string]interface{})
		if !ok {
			next = make(map[string]interface{})
			table[p] = next
		}
		table = next
	}
	table[parts[len(parts)-1]] = value

	data, err := toml.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}

	// Validate before touching the file
	check := Defaults()
	if err := toml.Unmarshal(data, check); err != nil {
		return errors.Wrapf(err, "value for %s has the wrong type", key)
	}
	if err := check.Validate(); err != nil {
		return err
	}

	return writeWithBackup(path, data, watcher)
}

func writeWithBackup(path string, data []byte, watcher *ConfigWatcher) error {
	if err := os.MkdirAll(filepath.Dir(path), DefaultDirPermissions); err != nil {
		return errors.Wrapf(err, "failed to create directory for %s", path)
	}
	if err := createBackup(path); err != nil {
		return errors.Wrap(err, "failed to create backup")
	}
	if watcher != nil {
		watcher.MarkOwnWrite()
	}
	if err := os.WriteFile(path, data, DefaultFilePermissions); err != nil {
		return errors.Wrapf(err, "failed to write %s", path)
	}
	return nil
}

// createBackup rotates .back1 -> .back2 -> .back3 and copies the current file
// to .back1. A missing file needs no backup.
func createBackup(configPath string) error {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil
	}

	back3 := configPath + ".back3"
	back2 := configPath + ".back2"
	back1 := configPath + ".back1"

	if err := os.Remove(back3); err != nil && !os.IsNotExist(err) {
		logger.Warnw("Failed to delete old backup",
			"path", back3,
			logger.FieldError, err)
	}

	if _, err := os.Stat(back2); err == nil {
		if err := os.Rename(back2, back3); err != nil {
			return errors.Wrap(err, "failed to rotate .back2 to .back3")
		}
	}
	if _, err := os.Stat(back1); err == nil {
		if err := os.Rename(back1, back2); err != nil {
			return errors.Wrap(err, "failed to rotate .back1 to .back2")
		}
	}

	content, err := os.ReadFile(configPath)
	if err != nil {
		return errors.Wrap(err, "failed to read config for backup")
	}
	if err := os.WriteFile(back1, content, DefaultFilePermissions); err != nil {
		return errors.Wrap(err, "failed to create .back1")
	}
	return nil
}
