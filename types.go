package glyphatlas

import (
	"fmt"
	"strconv"
	"strings"
)

// Mode selects how glyph pixels are produced.
type Mode uint8

const (
	// ModeBitmap rasterizes glyphs with a Brush.
	ModeBitmap Mode = iota

	// ModeConfigSDF uses pre-baked distance-field tiles and FontCfg metrics.
	ModeConfigSDF

	// ModeArcSDF computes distance fields from font outlines.
	ModeArcSDF
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeBitmap:
		return "bitmap"
	case ModeConfigSDF:
		return "config-sdf"
	case ModeArcSDF:
		return "arc-sdf"
	default:
		return "Mode(" + strconv.Itoa(int(m)) + ")"
	}
}

// IsSDF reports whether the mode produces single-channel distance fields.
func (m Mode) IsSDF() bool { return m == ModeConfigSDF || m == ModeArcSDF }

// ParseMode parses a mode name as returned by Mode.String.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bitmap", "":
		return ModeBitmap, nil
	case "config-sdf", "config", "sdf1":
		return ModeConfigSDF, nil
	case "arc-sdf", "arc", "sdf2":
		return ModeArcSDF, nil
	}
	return 0, fmt.Errorf("glyphatlas: unknown mode %q", s)
}

// Reference metrics shared by every source.
const (
	// BaseFontSize is the reference size, in pixels, at which base widths
	// are measured and distance fields are generated.
	BaseFontSize = 32

	// BoldWeight is the weight from which ASCII glyphs are widened.
	BoldWeight = 700

	// BoldFactor widens bold ASCII base widths.
	BoldFactor = 1.13

	// OffsetRange decodes the fixed-point plane offsets of FontCfg glyphs.
	OffsetRange = 1 << 15
)

// FixBox corrects the advance box of a distance-field glyph, whose tile is
// laid out from the regular outline. It removes the stroke and, for bold
// weights, the BoldFactor widening from width and returns the left offset
// that centers the narrower box. Bitmap glyphs are returned unchanged.
func FixBox(isSDF bool, width float32, weight int, stroke float32) (left, w float32) {
	if !isSDF {
		return 0, width
	}
	w = width - stroke
	if weight >= BoldWeight {
		w /= BoldFactor
	}
	return (width - w) / 2, w
}

// Placeholder runes used when a face lacks a character.
const (
	PlaceholderChar = '□'
	SpaceChar       = ' '
)

// FontDescriptor describes a requested font. Identical descriptors intern to
// the same FontID.
type FontDescriptor struct {
	// Families is the ordered fallback chain of face names.
	Families []string

	// Size is the pixel size.
	Size float32

	// Weight is the CSS-style weight (400 normal, 700 bold).
	Weight int

	// Stroke is the outline width in pixels.
	Stroke float32

	// Mode is filled in by the manager.
	Mode Mode
}

// NewFontDescriptor builds a descriptor from a comma separated family list.
func NewFontDescriptor(families string, size float32, weight int) FontDescriptor {
	var names []string
	for _, f := range strings.Split(families, ",") {
		names = append(names, strings.TrimSpace(f))
	}
	return FontDescriptor{Families: names, Size: size, Weight: weight}
}

// Key returns the interning key of d.
func (d FontDescriptor) Key() string {
	var sb strings.Builder
	sb.WriteString(strings.Join(d.Families, ","))
	fmt.Fprintf(&sb, "|%g|%d|%g|%d", d.Size, d.Weight, d.Stroke, d.Mode)
	return sb.String()
}

// IsBold reports whether Weight reaches BoldWeight.
func (d FontDescriptor) IsBold() bool { return d.Weight >= BoldWeight }

// Ids. The zero value of every id type is null.
type (
	// FontID identifies an interned FontDescriptor.
	FontID uint32

	// FontFaceID identifies one interned face name.
	FontFaceID uint32

	// FontFamilyID identifies one interned fallback chain.
	FontFamilyID uint32

	// GlyphID identifies a glyph record of the source that created it.
	GlyphID uint32
)

// IsNull reports whether id is the null id.
func (id FontID) IsNull() bool { return id == 0 }

// IsNull reports whether id is the null id.
func (id FontFaceID) IsNull() bool { return id == 0 }

// IsNull reports whether id is the null id.
func (id GlyphID) IsNull() bool { return id == 0 }

// Size is a width and height in pixels.
type Size struct {
	Width, Height int
}

// Rect is an axis-aligned rectangle.
type Rect struct {
	MinX, MinY, MaxX, MaxY float32
}

// FontInfo is the resolved state of a FontID.
type FontInfo struct {
	Descriptor FontDescriptor

	// Family is the interned fallback chain, including the default face.
	Family FontFamilyID

	// Faces and FaceNames list the chain in fallback order.
	Faces     []FontFaceID
	FaceNames []string

	// LineHeight and MaxHeight are resolved by the active source.
	LineHeight float32
	MaxHeight  float32

	await     []GlyphID
	awaitSize Size
}

// Pending returns the number of glyphs waiting to be drawn.
func (f *FontInfo) Pending() int { return len(f.await) }

// PendingSize returns the summed footprint of the waiting glyphs.
func (f *FontInfo) PendingSize() Size { return f.awaitSize }

func (f *FontInfo) enqueue(id GlyphID, w, h int) {
	f.await = append(f.await, id)
	f.awaitSize.Width += w
	f.awaitSize.Height += h
}

func (f *FontInfo) resetQueue() {
	f.await = f.await[:0]
	f.awaitSize = Size{}
}

// Glyph is the placement and metrics of one glyph.
type Glyph struct {
	// X and Y locate the glyph in the atlas, in pixels.
	X, Y float32

	// OX and OY are the plane-space origin offsets of config glyphs.
	OX, OY float32

	// Width and Height are the footprint in pixels.
	Width, Height float32

	// Advance is the layout advance. Bitmap glyphs use pixels at the font
	// size, config glyphs pixels at the FontCfg size and arc glyphs em
	// units.
	Advance float32

	// Plane is the outline bounding box in em units (arc glyphs).
	Plane Rect

	// Placed is false until atlas space was allocated.
	Placed bool
}

// GlyphDesc is a glyph record.
type GlyphDesc struct {
	Font FontID

	// Char is the character the glyph renders. It may differ from the
	// requested character when a placeholder was substituted.
	Char rune

	// Hash is the content hash keying memoized arc data (arc glyphs).
	Hash uint64

	// FaceIndex indexes the font's fallback chain, or is -1 when no face
	// provides the glyph. For config glyphs, len(chain) selects the
	// registered default character.
	FaceIndex int

	// GlyphIndex is the index in the face's glyph table (arc glyphs).
	GlyphIndex uint16

	Glyph Glyph

	// generation is the Clear cycle the glyph was placed in.
	generation uint64

	// allocW and allocH are the packer request, kept for re-placement.
	allocW, allocH int

	// insetX and insetY offset Glyph.X and Glyph.Y from the allocated
	// rectangle (the padding of arc tiles).
	insetX, insetY float32
}

// Block is a rectangle of atlas pixels.
type Block struct {
	X, Y          float32
	Width, Height float32
}

// Await is one glyph inside a DrawBlock.
type Await struct {
	// X is the glyph offset from the block origin.
	X             float32
	Char          rune
	Width, Height uint32
}

// DrawBlock is a run of glyphs sharing an atlas row and a face, rasterized
// with one brush call.
type DrawBlock struct {
	Font      FontID
	Families  []string
	Size      float32
	Stroke    float32
	Weight    int
	FaceIndex int
	Block     Block
	Chars     []Await
}

// UpdateFunc receives finished pixels for an atlas block.
type UpdateFunc func(b Block, img *FontImage)
