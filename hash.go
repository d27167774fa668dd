package glyphatlas

import (
	"encoding/binary"
	"hash/fnv"
	"strconv"

	"golang.org/x/text/unicode/norm"
)

// GlyphHash returns the content hash of char in the named face. Face names
// are NFC-normalized so that differently composed spellings share entries.
func GlyphHash(char rune, face string) uint64 {
	h := fnv.New64a()
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(char))
	h.Write(buf[:])
	h.Write([]byte(norm.NFC.String(face)))
	return h.Sum64()
}

// memo key prefixes.
const (
	glyphKeyPrefix = "arc/"
	shapeKeyPrefix = "shape/"
)

func memoKey(prefix string, hash uint64) string {
	return prefix + strconv.FormatUint(hash, 16)
}
