// Package errors provides error handling for typeglyph.
//
// This package re-exports github.com/cockroachdb/errors so every package wraps
// errors the same way and keeps stack traces for diagnostics:
//
//	if err := client.Initialize(ctx, root); err != nil {
//	    return errors.Wrapf(err, "initialize %s", serverName)
//	}
//
//	return errors.WithHint(err, "install gopls or set language_servers.go")
//
// Nothing in the annotation core is fatal: a failed hover or highlight lookup
// is logged and treated as "no type found". Errors from this package are only
// returned by the host surfaces (configuration, language-server transport, CLI).
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
	// CombineErrors keeps the first error and attaches the second as secondary
	CombineErrors = crdb.CombineErrors
)

// User-facing messages and details
var (
	WithHint    = crdb.WithHint
	WithHintf   = crdb.WithHintf
	WithDetail  = crdb.WithDetail
	WithDetailf = crdb.WithDetailf
)

// Error inspection
var (
	Is            = crdb.Is
	IsAny         = crdb.IsAny
	As            = crdb.As
	Unwrap        = crdb.Unwrap
	UnwrapAll     = crdb.UnwrapAll
	GetAllHints   = crdb.GetAllHints
	GetAllDetails = crdb.GetAllDetails
	FlattenHints  = crdb.FlattenHints
)

// Sentinel errors. Wrap these with errors.Wrap() to add context while keeping
// them matchable with errors.Is().
var (
	// ErrNotFound indicates the requested resource does not exist
	ErrNotFound = New("not found")

	// ErrInvalidRequest indicates malformed input (bad config value, bad tool argument)
	ErrInvalidRequest = New("invalid request")

	// ErrServiceUnavailable indicates the language server is not running or has shut down
	ErrServiceUnavailable = New("service unavailable")

	// ErrTimeout indicates a language-server request did not answer in time
	ErrTimeout = New("operation timed out")

	// ErrUnsupportedLanguage indicates no language server is configured for a language tag
	ErrUnsupportedLanguage = New("unsupported language")
)

// IsNotFoundError checks if an error is or wraps ErrNotFound
func IsNotFoundError(err error) bool {
	return err != nil && Is(err, ErrNotFound)
}

// IsInvalidRequestError checks if an error is or wraps ErrInvalidRequest
func IsInvalidRequestError(err error) bool {
	return err != nil && Is(err, ErrInvalidRequest)
}

// IsServiceUnavailableError checks if an error is or wraps ErrServiceUnavailable
func IsServiceUnavailableError(err error) bool {
	return err != nil && Is(err, ErrServiceUnavailable)
}

// NewInvalidRequestError creates an invalid-request error with a formatted message
func NewInvalidRequestError(format string, args ...interface{}) error {
	return Wrap(ErrInvalidRequest, Newf(format, args...).Error())
}

// NewUnsupportedLanguageError reports a language tag with no configured server
func NewUnsupportedLanguageError(language string) error {
	return WithHintf(Wrapf(ErrUnsupportedLanguage, "language %q", language),
		"set language_servers.%s in typeglyph.toml", language)
}
