package glyphatlas

import (
	"log/slog"

	"github.com/gogpu/glyphatlas/store"
)

// Options configures a FontManager. Use functional Option values with
// NewFontManager; the struct is exported for inspection and validation.
//
// Example:
//
//	m, err := glyphatlas.NewFontManager(
//	    glyphatlas.WithAtlasSize(2048, 2048),
//	    glyphatlas.WithMode(glyphatlas.ModeArcSDF),
//	    glyphatlas.WithStore(store.NewSQLite(path, logger)),
//	)
type Options struct {
	// AtlasWidth and AtlasHeight are the atlas size in pixels.
	// Default: 1024x1024
	AtlasWidth  int
	AtlasHeight int

	// Mode is the initial rendering mode. Default: ModeBitmap
	Mode Mode

	// Brush measures and rasterizes bitmap glyphs. Required for ModeBitmap.
	Brush Brush

	// Loader fetches config-mode tiles.
	Loader SDFLoader

	// Store persists computed arc data. Nil keeps the memo in-process.
	Store store.ByteStore

	// MemoSize is the number of arc entries kept in memory.
	// Default: store.DefaultMemoSize
	MemoSize int

	// Runtime runs arc computation. Nil starts a worker pool of Workers
	// goroutines that is stopped by FontManager.Close.
	Runtime Runtime

	// Workers sizes the default pool; 0 means GOMAXPROCS.
	Workers int

	// Logger overrides the package logger for this manager.
	Logger *slog.Logger
}

// Option configures Options.
type Option func(*Options)

// DefaultOptions returns the default configuration.
func DefaultOptions() Options {
	return Options{
		AtlasWidth:  1024,
		AtlasHeight: 1024,
		Mode:        ModeBitmap,
		MemoSize:    store.DefaultMemoSize,
	}
}

// Validate checks the configuration.
func (o *Options) Validate() error {
	if o.AtlasWidth < 64 || o.AtlasHeight < 64 {
		return &ConfigError{Field: "AtlasSize", Reason: "must be at least 64x64"}
	}
	if o.AtlasWidth > 16384 || o.AtlasHeight > 16384 {
		return &ConfigError{Field: "AtlasSize", Reason: "must be at most 16384x16384"}
	}
	if o.Mode > ModeArcSDF {
		return &ConfigError{Field: "Mode", Reason: "unknown mode " + o.Mode.String()}
	}
	if o.Mode == ModeBitmap && o.Brush == nil {
		return &ConfigError{Field: "Brush", Reason: "required for bitmap mode"}
	}
	if o.MemoSize < 0 {
		return &ConfigError{Field: "MemoSize", Reason: "must be non-negative"}
	}
	if o.Workers < 0 {
		return &ConfigError{Field: "Workers", Reason: "must be non-negative"}
	}
	return nil
}

// WithAtlasSize sets the atlas size.
func WithAtlasSize(width, height int) Option {
	return func(o *Options) {
		o.AtlasWidth = width
		o.AtlasHeight = height
	}
}

// WithMode sets the initial rendering mode.
func WithMode(m Mode) Option {
	return func(o *Options) {
		o.Mode = m
	}
}

// WithBrush sets the bitmap brush.
func WithBrush(b Brush) Option {
	return func(o *Options) {
		o.Brush = b
	}
}

// WithSDFLoader sets the config-mode tile loader.
func WithSDFLoader(l SDFLoader) Option {
	return func(o *Options) {
		o.Loader = l
	}
}

// WithStore sets the byte store behind the arc memo.
func WithStore(s store.ByteStore) Option {
	return func(o *Options) {
		o.Store = s
	}
}

// WithMemoSize sets the in-memory arc memo size.
func WithMemoSize(n int) Option {
	return func(o *Options) {
		o.MemoSize = n
	}
}

// WithRuntime sets the task runtime for arc computation.
func WithRuntime(r Runtime) Option {
	return func(o *Options) {
		o.Runtime = r
	}
}

// WithWorkers sizes the default worker pool.
func WithWorkers(n int) Option {
	return func(o *Options) {
		o.Workers = n
	}
}

// WithLogger sets the logger for one manager.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}
