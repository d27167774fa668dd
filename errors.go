package glyphatlas

import (
	"errors"
	"fmt"
)

// Sentinel errors, for diagnostics and errors.Is checks. GlyphID reports
// these conditions as a false ok; LookupGlyph returns them.
var (
	// ErrAtlasExhausted means the packer could not place a glyph. The glyph
	// keeps its id and stays queued without a rectangle until Clear.
	ErrAtlasExhausted = errors.New("glyphatlas: atlas exhausted")

	// ErrGlyphUnresolvable means no face, placeholder or default character
	// provides the glyph.
	ErrGlyphUnresolvable = errors.New("glyphatlas: glyph unresolvable")

	// ErrNoLoader is returned by config-mode flushes without an SDFLoader.
	ErrNoLoader = errors.New("glyphatlas: no sdf loader configured")

	// ErrUnknownFace is returned when a face name was never registered.
	ErrUnknownFace = errors.New("glyphatlas: unknown font face")
)

// ConfigError reports an invalid option or FontCfg field.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return "glyphatlas: invalid config." + e.Field + ": " + e.Reason
}

// LoadError wraps a failed SDFLoader request.
type LoadError struct {
	Face  string
	Chars int
	Err   error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("glyphatlas: load %d sdf tiles for %q: %v", e.Chars, e.Face, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }
