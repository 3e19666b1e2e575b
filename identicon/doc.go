// Package identicon turns a type name into a small deterministic glyph.
//
// Pipeline for one name:
//
//	Hash(name) ──► PatternFor(hash)       5×5 grid, mirrored left-right
//	           ──► ColorFromHash(hash, 0)  foreground
//	           ──► ColorFromHash(hash, 16) background (drawn at 30% opacity)
//
// Render draws one glyph, RenderComposite lays several side by side on one
// canvas, and EmbeddableURI wraps the SVG source in a data URI so callers can
// reference it without touching a filesystem.
package identicon
