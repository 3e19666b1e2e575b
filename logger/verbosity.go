package logger

import "go.uber.org/zap/zapcore"

// Verbosity level constants for CLI flag counts.
const (
	VerbosityUser  = 0 // No flags: results and errors only
	VerbosityInfo  = 1 // -v: + pass summaries, server startup
	VerbosityDebug = 2 // -vv: + per-location failures, cache stats
	VerbosityTrace = 3 // -vvv: + raw hover text
	VerbosityAll   = 4 // -vvvv: + full JSON-RPC payloads
)

// VerbosityToLevel maps verbosity flags (-v, -vv, etc.) to zap log levels
//
// Mapping:
//
//	0 (none)  -> WarnLevel
//	1 (-v)    -> InfoLevel
//	2+ (-vv)  -> DebugLevel
func VerbosityToLevel(verbosity int) zapcore.Level {
	switch {
	case verbosity <= VerbosityUser:
		return zapcore.WarnLevel
	case verbosity == VerbosityInfo:
		return zapcore.InfoLevel
	default:
		return zapcore.DebugLevel
	}
}

// OutputCategory defines a category of diagnostic output gated by verbosity
// rather than by severity.
type OutputCategory int

const (
	OutputResults     OutputCategory = iota // annotate tables, icons
	OutputPassSummary                       // per-pass counts and timing
	OutputFailures                          // per-location collaborator failures
	OutputHoverText                         // raw hover blobs fed to the extractor
	OutputWire                              // JSON-RPC request/response bodies
)

var categoryLevels = map[OutputCategory]int{
	OutputResults:     VerbosityUser,
	OutputPassSummary: VerbosityInfo,
	OutputFailures:    VerbosityDebug,
	OutputHoverText:   VerbosityTrace,
	OutputWire:        VerbosityAll,
}

// ShouldOutput reports whether category is visible at the given verbosity
func ShouldOutput(verbosity int, category OutputCategory) bool {
	min, ok := categoryLevels[category]
	if !ok {
		return false
	}
	return verbosity >= min
}
