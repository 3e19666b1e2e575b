package langserver

import (
	"context"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/kballard/go-shellquote"
	"go.uber.org/zap"

	"github.com/teranos/typeglyph/am"
	"github.com/teranos/typeglyph/errors"
	"github.com/teranos/typeglyph/logger"
)

// CommandFor resolves the server command line for language. overrides take
// precedence over am.DefaultLanguageServers and are split with shell quoting rules.
func CommandFor(language string, overrides map[string]string) ([]string, error) {
	line, ok := overrides[language]
	if !ok {
		line, ok = am.DefaultLanguageServers[language]
	}
	if !ok || strings.TrimSpace(line) == "" {
		return nil, errors.NewUnsupportedLanguageError(language)
	}

	args, err := shellquote.Split(line)
	if err != nil {
		return nil, errors.Wrapf(errors.NewInvalidRequestError("language_servers.%s: %s", language, err.Error()),
			"parse %q", line)
	}
	if len(args) == 0 {
		return nil, errors.NewUnsupportedLanguageError(language)
	}
	return args, nil
}

// LanguageForPath guesses a language tag from a file extension
func LanguageForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".go":
		return "go"
	case ".ts", ".mts", ".cts":
		return "typescript"
	case ".tsx":
		return "typescriptreact"
	case ".js", ".mjs", ".cjs":
		return "javascript"
	case ".jsx":
		return "javascriptreact"
	case ".py", ".pyi":
		return "python"
	case ".rs":
		return "rust"
	case ".java":
		return "java"
	case ".cs":
		return "csharp"
	case ".kt", ".kts":
		return "kotlin"
	case ".c", ".h":
		return "c"
	case ".cc", ".cpp", ".cxx", ".hpp", ".hh":
		return "cpp"
	default:
		return ""
	}
}

// FileURI converts an absolute path to a file:// URI
func FileURI(path string) string {
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(path)}
	return u.String()
}

// Launch starts and initializes the server for language, rooted at rootDir.
func Launch(ctx context.Context, language string, overrides map[string]string, rootDir string, log *zap.SugaredLogger) (*StdioClient, error) {
	command, err := CommandFor(language, overrides)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.ComponentLogger("langserver")
	}

	client, err := NewStdioClient(command, log)
	if err != nil {
		return nil, err
	}
	if err := client.Initialize(ctx, FileURI(rootDir)); err != nil {
		_ = client.Kill()
		return nil, err
	}

	log.Infow("language server ready",
		logger.FieldLanguage, language,
		logger.FieldServer, strings.Join(command, " "),
	)
	return client, nil
}
