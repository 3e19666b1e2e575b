package am

import (
	"path/filepath"
	"strings"

	"github.com/kballard/go-shellquote"

	"github.com/teranos/typeglyph/errors"
)

// Validate checks that the configuration is usable. Zero means zero: a zero
// rate is unlimited and a zero timeout waits forever, negatives are invalid.
func (c *Config) Validate() error {
	if c.Glyphs.IconSize < MinIconSize || c.Glyphs.IconSize > MaxIconSize {
		return errors.NewInvalidRequestError("glyphs.icon_size must be in [%d, %d], got %d", MinIconSize, MaxIconSize, c.Glyphs.IconSize)
	}
	if c.Glyphs.DebounceMS < 0 {
		return errors.NewInvalidRequestError("glyphs.debounce_ms must be >= 0, got %d", c.Glyphs.DebounceMS)
	}

	if c.Collect.BatchSize < 1 {
		return errors.NewInvalidRequestError("collect.batch_size must be >= 1, got %d", c.Collect.BatchSize)
	}
	if c.Collect.Concurrency < 1 {
		return errors.NewInvalidRequestError("collect.concurrency must be >= 1, got %d", c.Collect.Concurrency)
	}
	if c.Collect.HoverRequestsPerSecond < 0 {
		return errors.NewInvalidRequestError("collect.hover_requests_per_second must be >= 0, got %g", c.Collect.HoverRequestsPerSecond)
	}
	if c.Collect.RequestTimeoutMS < 0 {
		return errors.NewInvalidRequestError("collect.request_timeout_ms must be >= 0, got %d", c.Collect.RequestTimeoutMS)
	}

	for _, lang := range c.Languages() {
		if err := validateCommand(lang, c.LanguageServers[lang]); err != nil {
			return err
		}
	}

	if f := c.Inheritance.ExtraFile; f != "" {
		switch strings.ToLower(filepath.Ext(f)) {
		case ".yaml", ".yml", ".toml":
		default:
			return errors.NewInvalidRequestError("inheritance.extra_file must be .yaml, .yml or .toml, got %q", f)
		}
	}

	if c.Server.Address != "" && !strings.Contains(c.Server.Address, ":") {
		return errors.WithHint(
			errors.NewInvalidRequestError("server.address must be host:port, got %q", c.Server.Address),
			"use 127.0.0.1:8791 or :0 for any free port")
	}
	return nil
}

// validateCommand checks that a language server command line splits into at
// least a program name
func validateCommand(lang, line string) error {
	args, err := shellquote.Split(line)
	if err != nil {
		return errors.NewInvalidRequestError("language_servers.%s: %s", lang, err.Error())
	}
	if len(args) == 0 {
		return errors.NewInvalidRequestError("language_servers.%s is empty", lang)
	}
	return nil
}
