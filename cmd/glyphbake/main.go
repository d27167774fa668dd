// Command glyphbake lays out the glyphs of a text in a glyph atlas and
// writes the atlas texture as a PNG.
package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/gogpu/glyphatlas"
	"github.com/gogpu/glyphatlas/brush"
	"github.com/gogpu/glyphatlas/config"
	"github.com/gogpu/glyphatlas/sdf"
	"github.com/gogpu/glyphatlas/store"
)

type fontList []string

func (f *fontList) String() string     { return strings.Join(*f, ",") }
func (f *fontList) Set(v string) error { *f = append(*f, v); return nil }

func main() {
	var (
		cfgPath = flag.String("config", "", "YAML configuration file")
		text    = flag.String("text", "The quick brown fox jumps over the lazy dog", "text to lay out")
		mode    = flag.String("mode", "", "bitmap, config-sdf or arc-sdf (overrides config)")
		size    = flag.Float64("size", 0, "font size in pixels (overrides config)")
		output  = flag.String("out", "atlas.png", "output file")
		timeout = flag.Duration("timeout", 30*time.Second, "distance-field wait limit")
		fonts   fontList
	)
	flag.Var(&fonts, "font", "TrueType/OpenType file (repeatable)")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "glyphbake:", err)
		os.Exit(2)
	}
	if *mode != "" {
		cfg.Atlas.Mode = *mode
	}
	if *size > 0 {
		cfg.Atlas.FontSize = float32(*size)
	}
	cfg.Fonts = append(cfg.Fonts, fonts...)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "glyphbake:", err)
		os.Exit(2)
	}

	log, closer := cfg.Logging.NewLogger(os.Stderr)
	defer closer.Close()
	glyphatlas.SetLogger(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg, *text, *output, *timeout, log); err != nil {
		log.Error("bake failed", slog.Any("err", err))
		stop()
		closer.Close()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, text, output string, timeout time.Duration, log *slog.Logger) error {
	if len(cfg.Fonts) == 0 {
		return fmt.Errorf("no fonts given")
	}
	opts := append(cfg.Options(), glyphatlas.WithLogger(log))

	if cfg.Store.Path != "" {
		db := store.NewSQLite(cfg.Store.Path, log)
		defer db.Close()
		opts = append(opts, glyphatlas.WithStore(db))
	}

	sw := brush.NewSoftware(log)
	loader := brush.NewSDFLoader()
	opts = append(opts, glyphatlas.WithBrush(sw), glyphatlas.WithSDFLoader(loader))

	m, err := glyphatlas.NewFontManager(opts...)
	if err != nil {
		return err
	}
	defer m.Close()

	chars := []rune(text)
	names := make([]string, 0, len(cfg.Fonts))
	for _, path := range cfg.Fonts {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		name, err := addFont(m, sw, loader, cfg, path, data, chars)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		names = append(names, name)
	}

	font := m.FontID(glyphatlas.NewFontDescriptor(strings.Join(names, ","), cfg.Atlas.FontSize, 400))
	var missing int
	for _, r := range chars {
		if _, err := m.LookupGlyph(font, r); err != nil {
			missing++
			log.Debug("glyph skipped", slog.String("char", string(r)), slog.Any("err", err))
		}
	}

	sz := m.Size()
	atlas := image.NewNRGBA(image.Rect(0, 0, sz.Width, sz.Height))
	drawCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	start := time.Now()
	stats, err := m.DrawAwait(drawCtx, func(b glyphatlas.Block, img *glyphatlas.FontImage) {
		blit(atlas, b, img)
	})
	if err != nil {
		return err
	}
	log.Info("atlas drawn",
		slog.String("mode", m.Mode().String()),
		slog.Int("blocks", stats.Blocks),
		slog.Int("tasks", stats.Tasks),
		slog.Int("misses", stats.Misses),
		slog.Int("pending", stats.Pending),
		slog.Int("unresolved", missing),
		slog.Duration("elapsed", time.Since(start)))
	if memo := m.MemoStats(); memo.Hits+memo.Misses > 0 {
		log.Info("arc memo", slog.Int64("hits", memo.Hits), slog.Int64("misses", memo.Misses))
	}

	return writePNG(output, atlas)
}

// addFont registers data with whatever the active mode renders from and
// returns the face name.
func addFont(m *glyphatlas.FontManager, sw *brush.Software, loader *brush.SDFLoader,
	cfg config.Config, path string, data []byte, chars []rune) (string, error) {
	switch m.Mode() {
	case glyphatlas.ModeArcSDF:
		face, err := sdf.ParseFace("", data)
		if err != nil {
			return "", err
		}
		return face.Name(), m.AddFont(face.Name(), data)
	case glyphatlas.ModeConfigSDF:
		face, err := sdf.ParseFace("", data)
		if err != nil {
			return "", err
		}
		baked := append([]rune{glyphatlas.PlaceholderChar, ' '}, chars...)
		fc, err := brush.BakeFontCfg(face, baked, cfg.Atlas.FontSize, 4)
		if err != nil {
			return "", err
		}
		loader.AddFace(face, fc)
		if err := m.AddSDFConfig(fc); err != nil {
			return "", err
		}
		if err := m.AddSDFDefaultChar(fc.Name, ' '); err != nil {
			return "", err
		}
		return fc.Name, nil
	default:
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		return sw.AddFont(name, data)
	}
}

func blit(dst *image.NRGBA, b glyphatlas.Block, img *glyphatlas.FontImage) {
	x0, y0 := int(b.X), int(b.Y)
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			dst.Set(x0+x, y0+y, img.At(x, y))
		}
	}
}

func writePNG(path string, img image.Image) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return png.Encode(f, img)
}
