package langserver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/typeglyph/errors"
)

func TestCommandFor(t *testing.T) {
	args, err := CommandFor("go", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"gopls", "serve"}, args)

	overrides := map[string]string{
		"go":     `"/opt/go tools/gopls" -remote=auto`,
		"zig":    "zls",
		"broken": `gopls "unterminated`,
		"blank":  "   ",
	}

	args, err = CommandFor("go", overrides)
	require.NoError(t, err)
	assert.Equal(t, []string{"/opt/go tools/gopls", "-remote=auto"}, args)

	args, err = CommandFor("zig", overrides)
	require.NoError(t, err)
	assert.Equal(t, []string{"zls"}, args)

	_, err = CommandFor("broken", overrides)
	require.Error(t, err)
	assert.True(t, errors.IsInvalidRequestError(err))

	_, err = CommandFor("blank", overrides)
	assert.True(t, errors.Is(err, errors.ErrUnsupportedLanguage))

	_, err = CommandFor("cobol", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrUnsupportedLanguage))
	assert.NotEmpty(t, errors.GetAllHints(err))
}

func TestLanguageForPath(t *testing.T) {
	tests := map[string]string{
		"main.go":          "go",
		"src/app.TS":       "typescript",
		"view.tsx":         "typescriptreact",
		"lib/util.mjs":     "javascript",
		"pkg/mod.py":       "python",
		"src/lib.rs":       "rust",
		"Main.java":        "java",
		"Program.cs":       "csharp",
		"build.gradle.kts": "kotlin",
		"vec.h":            "c",
		"engine.cpp":       "cpp",
		"README.md":        "",
		"Makefile":         "",
	}
	for path, want := range tests {
		assert.Equal(t, want, LanguageForPath(path), path)
	}
}

func TestFileURI(t *testing.T) {
	assert.Equal(t, "file:///home/dev/project", FileURI("/home/dev/project"))
	assert.Equal(t, "file:///tmp/a%20b/main.go", FileURI("/tmp/a b/main.go"))
}

func TestLaunchUnknownLanguage(t *testing.T) {
	_, err := Launch(t.Context(), "cobol", nil, "/tmp", nil)
	assert.True(t, errors.Is(err, errors.ErrUnsupportedLanguage))

	_, err = Launch(t.Context(), "go", map[string]string{"go": "typeglyph-missing-gopls"}, "/tmp", nil)
	assert.True(t, errors.IsNotFoundError(err))
}
