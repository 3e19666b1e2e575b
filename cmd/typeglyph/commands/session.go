package commands

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/teranos/typeglyph/am"
	"github.com/teranos/typeglyph/annotate"
	"github.com/teranos/typeglyph/document"
	"github.com/teranos/typeglyph/errors"
	"github.com/teranos/typeglyph/iconcache"
	"github.com/teranos/typeglyph/inherit"
	"github.com/teranos/typeglyph/langserver"
	"github.com/teranos/typeglyph/logger"
)

// LaunchFunc starts and initializes a language server for language
type LaunchFunc func(ctx context.Context, language string) (langserver.Client, error)

// Session owns one language server and one pipeline per language, the shared
// icon cache and the ancestry resolver. It implements server.Annotator and
// server.Controls.
type Session struct {
	root     string
	icons    *iconcache.Cache
	chains   *inherit.Resolver
	renderer annotate.Renderer
	launch   LaunchFunc
	logger   *zap.SugaredLogger

	mu        sync.Mutex
	cfg       *am.Config
	settings  annotate.Settings
	clients   map[string]langserver.Client
	pipelines map[string]*annotate.Pipeline
	versions  map[string]int // uri -> last version read from disk
	texts     map[string]string
}

// SessionConfig holds the collaborators of a Session
type SessionConfig struct {
	Config   *am.Config
	Root     string            // workspace root handed to language servers
	Renderer annotate.Renderer // optional
	Launch   LaunchFunc        // optional; defaults to langserver.Launch
	Logger   *zap.SugaredLogger
}

// NewSession creates a session. No language server starts until a file of
// its language is annotated.
func NewSession(cfg SessionConfig) (*Session, error) {
	if cfg.Config == nil {
		return nil, errors.NewInvalidRequestError("session requires a config")
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.ComponentLogger("session")
	}
	if cfg.Root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, errors.Wrap(err, "failed to determine working directory")
		}
		cfg.Root = wd
	}

	chains, err := loadChains(cfg.Config)
	if err != nil {
		return nil, err
	}

	s := &Session{
		root:      cfg.Root,
		icons:     iconcache.New(),
		chains:    chains,
		renderer:  cfg.Renderer,
		launch:    cfg.Launch,
		logger:    cfg.Logger,
		cfg:       cfg.Config,
		settings:  settingsFrom(cfg.Config),
		clients:   make(map[string]langserver.Client),
		pipelines: make(map[string]*annotate.Pipeline),
		versions:  make(map[string]int),
		texts:     make(map[string]string),
	}
	if s.launch == nil {
		s.launch = s.launchStdio
	}
	return s, nil
}

// loadChains merges inheritance.extra_file over the built-in table
func loadChains(cfg *am.Config) (*inherit.Resolver, error) {
	chains := inherit.Default()
	if cfg.Inheritance.ExtraFile == "" {
		return chains, nil
	}
	extra, err := inherit.LoadFile(cfg.Inheritance.ExtraFile)
	if err != nil {
		return nil, errors.Wrap(err, "inheritance.extra_file")
	}
	return chains.Merge(extra), nil
}

// settingsFrom maps the glyphs and collect config sections onto pass settings
func settingsFrom(cfg *am.Config) annotate.Settings {
	return annotate.Settings{
		Enabled:           cfg.Glyphs.Enabled,
		ShowInheritance:   cfg.Glyphs.ShowInheritance,
		ShowOnDeclaration: cfg.Glyphs.ShowOnDeclaration,
		ShowOnParameters:  cfg.Glyphs.ShowOnParameters,
		ShowOnUsage:       cfg.Glyphs.ShowOnUsage,
		IconSize:          cfg.Glyphs.IconSize,
		BatchSize:         cfg.Collect.BatchSize,
		Concurrency:       cfg.Collect.Concurrency,
	}
}

func providerOptions(cfg *am.Config) langserver.ProviderOptions {
	return langserver.ProviderOptions{
		RequestsPerSecond: cfg.Collect.HoverRequestsPerSecond,
		Timeout:           cfg.Collect.RequestTimeout(),
	}
}

// launchStdio is called from pipelineFor with s.mu held
func (s *Session) launchStdio(ctx context.Context, language string) (langserver.Client, error) {
	return langserver.Launch(ctx, language, s.cfg.LanguageServers, s.root, logger.ComponentLogger("langserver"))
}

// Icons exposes the shared icon cache
func (s *Session) Icons() *iconcache.Cache {
	return s.icons
}

// Chains exposes the ancestry resolver
func (s *Session) Chains() *inherit.Resolver {
	return s.chains
}

// Annotate reads path from disk and runs one pass over it. A file whose
// content has not changed keeps its version.
func (s *Session) Annotate(ctx context.Context, path string) (*annotate.Table, error) {
	doc, err := s.load(path)
	if err != nil {
		return nil, err
	}
	pipeline, err := s.pipelineFor(ctx, doc.LanguageID)
	if err != nil {
		return nil, err
	}
	return pipeline.Run(ctx, doc)
}

func (s *Session) load(path string) (*document.Document, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to resolve %s", path)
	}
	language := langserver.LanguageForPath(abs)
	if language == "" {
		return nil, errors.WithHintf(errors.NewUnsupportedLanguageError(filepath.Ext(abs)),
			"typeglyph recognises files by extension; %s has none it knows", filepath.Base(abs))
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(errors.ErrNotFound, "file %s", path)
		}
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}

	uri := langserver.FileURI(abs)
	text := string(data)

	s.mu.Lock()
	version := s.versions[uri]
	if version == 0 || s.texts[uri] != text {
		version++
		s.versions[uri] = version
		s.texts[uri] = text
	}
	s.mu.Unlock()

	return document.New(uri, language, version, text), nil
}

// pipelineFor returns the pipeline for language, launching its server on first use
func (s *Session) pipelineFor(ctx context.Context, language string) (*annotate.Pipeline, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.pipelines[language]; ok {
		return p, nil
	}

	client, err := s.launch(ctx, language)
	if err != nil {
		return nil, err
	}

	log := s.logger.With(logger.FieldLanguage, language)
	pipeline, err := annotate.NewPipeline(annotate.PipelineConfig{
		Provider: langserver.NewProvider(client, providerOptions(s.cfg), log),
		Icons:    s.icons,
		Chains:   s.chains,
		Renderer: s.renderer,
		Settings: s.settings,
		Logger:   log,
	})
	if err != nil {
		_ = client.Shutdown(ctx)
		return nil, err
	}

	s.clients[language] = client
	s.pipelines[language] = pipeline
	return pipeline, nil
}

// Settings returns the settings shared by every pipeline
func (s *Session) Settings() annotate.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// Toggle flips the enabled switch on every pipeline and clears the icon cache
func (s *Session) Toggle() bool {
	s.mu.Lock()
	s.settings.Enabled = !s.settings.Enabled
	s.applyLocked()
	enabled := s.settings.Enabled
	s.mu.Unlock()

	s.ClearCache()
	return enabled
}

// ClearCache drops every cached icon
func (s *Session) ClearCache() {
	s.icons.Clear()
}

// Apply takes a reloaded config. Settings apply from the next pass; changed
// server commands only affect languages not yet started.
func (s *Session) Apply(cfg *am.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	enabled := s.settings.Enabled
	s.cfg = cfg
	s.settings = settingsFrom(cfg)
	s.settings.Enabled = enabled && cfg.Glyphs.Enabled
	s.applyLocked()

	s.logger.Infow("settings applied",
		logger.FieldIconSize, s.settings.IconSize,
		logger.FieldBatchSize, s.settings.BatchSize)
	return nil
}

func (s *Session) applyLocked() {
	for _, p := range s.pipelines {
		p.SetSettings(s.settings)
	}
}

// Languages returns the languages whose servers are running
func (s *Session) Languages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	langs := make([]string, 0, len(s.clients))
	for lang := range s.clients {
		langs = append(langs, lang)
	}
	return langs
}

// Close shuts every language server down
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	clients := s.clients
	s.clients = make(map[string]langserver.Client)
	s.pipelines = make(map[string]*annotate.Pipeline)
	s.mu.Unlock()

	var errs error
	for lang, client := range clients {
		if err := client.Shutdown(ctx); err != nil {
			errs = errors.CombineErrors(errs, errors.Wrapf(err, "shutdown %s server", lang))
		}
	}
	return errs
}

// langserverCommand resolves the command line configured for lang
func langserverCommand(lang string, cfg *am.Config) ([]string, error) {
	return langserver.CommandFor(lang, cfg.LanguageServers)
}
