package glyphatlas

// Brush measures and rasterizes bitmap glyphs with a platform font engine.
//
// Measurements are made at BaseFontSize; the manager scales them to the
// requested size, so implementations may cache per (face, rune).
type Brush interface {
	// MeasureBaseWidth returns the advance of r at BaseFontSize and the
	// index, in font.FaceNames, of the face that provides it.
	MeasureBaseWidth(font *FontInfo, r rune) (width float32, faceIndex int)

	// Height returns the line height and the maximum glyph height at
	// BaseFontSize.
	Height(font *FontInfo) (lineHeight, maxHeight float32)

	// Draw rasterizes every block and passes the pixels to update. Draw may
	// call update from any goroutine, but never concurrently.
	Draw(blocks []DrawBlock, update UpdateFunc)
}

// Runtime runs computation tasks off the caller's goroutine.
type Runtime interface {
	// Submit schedules fn. Every submitted function must eventually run.
	Submit(fn func())
}

// RuntimeFunc adapts a function to Runtime.
type RuntimeFunc func(fn func())

// Submit implements Runtime.
func (f RuntimeFunc) Submit(fn func()) { f(fn) }

// InlineRuntime runs tasks synchronously on the submitting goroutine.
var InlineRuntime Runtime = RuntimeFunc(func(fn func()) { fn() })
