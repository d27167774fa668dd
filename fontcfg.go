package glyphatlas

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"github.com/BurntSushi/toml"
	"github.com/fxamacker/cbor/v2"
)

// FontCfg describes a face whose distance-field tiles were baked ahead of
// time. Tiles themselves are fetched through an SDFLoader.
type FontCfg struct {
	Name    string             `cbor:"1,keyasint"`
	Metrics MetricsInfo        `cbor:"2,keyasint"`
	Glyphs  map[rune]GlyphInfo `cbor:"3,keyasint"`
}

// MetricsInfo holds face-wide metrics. Ascender and Descender are fractions
// of FontSize; the rest are pixels at FontSize.
type MetricsInfo struct {
	FontSize           float32 `toml:"font_size" cbor:"1,keyasint"`
	LineHeight         float32 `toml:"line_height" cbor:"2,keyasint"`
	MaxHeight          float32 `toml:"max_height" cbor:"3,keyasint"`
	Ascender           float32 `toml:"ascender" cbor:"4,keyasint"`
	Descender          float32 `toml:"descender" cbor:"5,keyasint"`
	UnderlineY         float32 `toml:"underline_y" cbor:"6,keyasint"`
	UnderlineThickness float32 `toml:"underline_thickness" cbor:"7,keyasint"`
	DistanceRange      float32 `toml:"distance_range" cbor:"8,keyasint"`
}

// GlyphInfo is the baked footprint of one character. OX and OY are
// fixed-point fractions of OffsetRange.
type GlyphInfo struct {
	OX      int16 `toml:"ox" cbor:"1,keyasint"`
	OY      int16 `toml:"oy" cbor:"2,keyasint"`
	Width   uint8 `toml:"width" cbor:"3,keyasint"`
	Height  uint8 `toml:"height" cbor:"4,keyasint"`
	Advance uint8 `toml:"advance" cbor:"5,keyasint"`
}

// Validate checks the fields the config source depends on.
func (c *FontCfg) Validate() error {
	if c.Name == "" {
		return &ConfigError{Field: "FontCfg.Name", Reason: "must not be empty"}
	}
	if c.Metrics.FontSize <= 0 {
		return &ConfigError{Field: "FontCfg.Metrics.FontSize", Reason: "must be positive"}
	}
	if c.Metrics.MaxHeight < 0 {
		return &ConfigError{Field: "FontCfg.Metrics.MaxHeight", Reason: "must be non-negative"}
	}
	return nil
}

// tomlFontCfg is the on-disk TOML shape. TOML keys are strings, so glyphs
// are keyed by the character itself.
type tomlFontCfg struct {
	Name    string               `toml:"name"`
	Metrics MetricsInfo          `toml:"metrics"`
	Glyphs  map[string]GlyphInfo `toml:"glyphs"`
}

// DecodeFontCfgTOML reads a FontCfg in TOML form:
//
//	name = "sans"
//
//	[metrics]
//	font_size = 32
//	ascender = 0.9
//	descender = -0.2
//
//	[glyphs]
//	"A" = { ox = 120, oy = -400, width = 22, height = 30, advance = 20 }
func DecodeFontCfgTOML(r io.Reader) (*FontCfg, error) {
	var raw tomlFontCfg
	if _, err := toml.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("glyphatlas: decode font cfg: %w", err)
	}

	cfg := &FontCfg{
		Name:    raw.Name,
		Metrics: raw.Metrics,
		Glyphs:  make(map[rune]GlyphInfo, len(raw.Glyphs)),
	}
	for key, g := range raw.Glyphs {
		r, size := utf8.DecodeRuneInString(key)
		if r == utf8.RuneError || size != len(key) {
			return nil, &ConfigError{Field: "FontCfg.Glyphs", Reason: fmt.Sprintf("key %q is not a single character", key)}
		}
		cfg.Glyphs[r] = g
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFontCfgTOML reads a TOML FontCfg file.
func LoadFontCfgTOML(path string) (*FontCfg, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("glyphatlas: open font cfg: %w", err)
	}
	defer f.Close()
	return DecodeFontCfgTOML(f)
}

// EncodeFontCfgTOML writes cfg in the form read by DecodeFontCfgTOML.
func EncodeFontCfgTOML(w io.Writer, cfg *FontCfg) error {
	raw := tomlFontCfg{
		Name:    cfg.Name,
		Metrics: cfg.Metrics,
		Glyphs:  make(map[string]GlyphInfo, len(cfg.Glyphs)),
	}
	for r, g := range cfg.Glyphs {
		raw.Glyphs[string(r)] = g
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(raw); err != nil {
		return fmt.Errorf("glyphatlas: encode font cfg: %w", err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

var (
	cfgEncMode cbor.EncMode
	cfgDecMode cbor.DecMode
)

func init() {
	var err error
	cfgEncMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	cfgDecMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic(err)
	}
}

// fontCfgWire drops FontCfg's methods for the codec.
type fontCfgWire FontCfg

// MarshalBinary encodes cfg as deterministic CBOR.
func (c *FontCfg) MarshalBinary() ([]byte, error) {
	return cfgEncMode.Marshal((*fontCfgWire)(c))
}

// UnmarshalFontCfg decodes and validates a CBOR FontCfg.
func UnmarshalFontCfg(data []byte) (*FontCfg, error) {
	var cfg FontCfg
	if err := cfgDecMode.Unmarshal(data, (*fontCfgWire)(&cfg)); err != nil {
		return nil, fmt.Errorf("glyphatlas: decode font cfg: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
