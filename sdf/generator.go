package sdf

import (
	"math"
)

// Tile is a single channel distance-field texture.
type Tile struct {
	// Data holds TexSize*TexSize bytes, row-major.
	Data []byte

	// Layout describes how the outline maps into the tile.
	Layout Layout
}

// Size returns the tile edge in pixels.
func (t *Tile) Size() int { return t.Layout.TexSize }

// At returns the byte at (x, y).
func (t *Tile) At(x, y int) byte {
	return t.Data[y*t.Layout.TexSize+x]
}

// Generate renders the signed distance field of ci into a tile.
//
// With outerGlow false, bytes encode 0.5 - d/(2*PxRange) where d is the
// signed distance in pixels (negative inside), so the outline sits at 127.5.
// With outerGlow true, only the outside distance is encoded as a falloff
// from 255 at the outline to 0 at Cutoff pixels away.
func Generate(ci *CellInfo, l Layout, outerGlow bool) *Tile {
	size := l.TexSize
	tile := &Tile{Data: make([]byte, size*size), Layout: l}
	if ci.IsEmpty() || l.Scale <= 0 {
		return tile
	}

	for y := 0; y < size; y++ {
		py := float64(y) + 0.5
		row := tile.Data[y*size : (y+1)*size]
		for x := range row {
			px := float64(x) + 0.5
			d := ci.SignedDistance(l.PixelToOutline(px, py)) * l.Scale

			if outerGlow {
				row[x] = glowToPixel(d, l.Cutoff)
			} else {
				row[x] = distanceToPixel(d, l.PxRange)
			}
		}
	}
	return tile
}

// distanceToPixel maps a signed pixel distance to a byte.
func distanceToPixel(distPx, pixelRange float64) byte {
	if pixelRange <= 0 {
		pixelRange = 1
	}
	normalized := 0.5 - distPx/(2*pixelRange)
	normalized = math.Max(0, math.Min(1, normalized))
	return byte(math.Round(normalized * 255))
}

// glowToPixel maps a signed pixel distance to an outer-glow falloff.
func glowToPixel(distPx, cutoff float64) byte {
	if distPx <= 0 {
		return 255
	}
	if cutoff <= 0 {
		return 0
	}
	v := 1 - distPx/cutoff
	v = math.Max(0, math.Min(1, v))
	return byte(math.Round(v * 255))
}
