package render

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode"

	"readme-image/internal/features/cards"
	"readme-image/internal/infra/log"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"go.uber.org/zap"
	"golang.org/x/image/colornames"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"
)

const (
	defaultFontSize = 14.0
	smallScale      = 1 / 1.2 // one <small> level
	lineSpacing     = 1.25
	padX            = 4.0
	padTop          = 6.0
	blockGap        = 2.0
)

// NativeOptions configures the in-process rasterizer.
type NativeOptions struct {
	FontPath   string  // TTF used for every style; empty uses the embedded Go fonts
	FontSize   float64 // size of unshrunk text in pixels
	Background string  // composite fill colour
}

type fontStyle int

const (
	styleRegular fontStyle = iota
	styleBold
	styleItalic
	styleBoldItalic
)

type faceKey struct {
	style fontStyle
	size  float64
}

// Native draws cards with gg and composites with imaging.
type Native struct {
	fonts      [4]*truetype.Font
	fontSize   float64
	background color.Color

	mu    sync.Mutex
	faces map[faceKey]font.Face
}

// NewNative parses the fonts up front so a bad font fails at startup.
func NewNative(opts NativeOptions) (*Native, error) {
	if opts.FontSize <= 0 {
		opts.FontSize = defaultFontSize
	}
	if opts.Background == "" {
		opts.Background = cards.DefaultStyle.Background
	}

	bg, err := ParseColor(opts.Background)
	if err != nil {
		return nil, err
	}

	n := &Native{
		fontSize:   opts.FontSize,
		background: bg,
		faces:      make(map[faceKey]font.Face),
	}

	if opts.FontPath != "" {
		data, err := os.ReadFile(opts.FontPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read font: %w", err)
		}
		f, err := truetype.Parse(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse font %s: %w", opts.FontPath, err)
		}
		n.fonts = [4]*truetype.Font{f, f, f, f}
		log.LogInfo("Loaded card font", zap.String("path", opts.FontPath))
		return n, nil
	}

	for i, ttf := range [][]byte{goregular.TTF, gobold.TTF, goitalic.TTF, gobolditalic.TTF} {
		f, err := truetype.Parse(ttf)
		if err != nil {
			return nil, fmt.Errorf("failed to parse embedded font: %w", err)
		}
		n.fonts[i] = f
	}
	return n, nil
}

func (n *Native) Name() string { return "native" }

func (n *Native) face(style fontStyle, size float64) font.Face {
	n.mu.Lock()
	defer n.mu.Unlock()

	key := faceKey{style: style, size: size}
	if f, ok := n.faces[key]; ok {
		return f
	}
	f := truetype.NewFace(n.fonts[style], &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	n.faces[key] = f
	return f
}

// token is a run of text drawn with one face and colour.
type token struct {
	text  string
	face  font.Face
	size  float64
	color color.Color
	space bool
	width float64
	bar   bool // block element glyphs, drawn as rectangles
}

type line struct {
	tokens []token
	width  float64
	height float64
	ascent float64
}

// Rasterize lays out every block, wrapping at the card width, and saves a PNG.
func (n *Native) Rasterize(ctx context.Context, card cards.Card, out string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()

	bg, err := ParseColor(card.Style.Background)
	if err != nil {
		return err
	}
	fg, err := ParseColor(card.Style.Foreground)
	if err != nil {
		return err
	}

	dc := gg.NewContext(card.OuterWidth(), card.Height)
	dc.SetColor(bg)
	dc.Clear()

	maxWidth := float64(card.Width) - 2*padX
	x0 := float64(card.BorderX) + padX
	y := padTop

	for bi, block := range card.Blocks {
		tokens, err := n.tokenize(dc, block, fg)
		if err != nil {
			return fmt.Errorf("%s card block %d: %w", card.Name, bi, err)
		}
		lines := wrap(tokens, maxWidth)
		for li, ln := range lines {
			justify := card.Justify && li < len(lines)-1
			n.drawLine(dc, ln, x0, y+ln.ascent, maxWidth, justify)
			y += ln.height
		}
		y += blockGap
	}

	if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := dc.SavePNG(out); err != nil {
		return fmt.Errorf("failed to save %s card: %w", card.Name, err)
	}
	if err := verifyOutput(ctx, out); err != nil {
		return err
	}

	log.LogDebug("Rendered card",
		zap.String("card", card.Name),
		zap.String("file", out),
		zap.Int("width", card.OuterWidth()),
		zap.Int("height", card.Height),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()))
	return nil
}

func (n *Native) tokenize(dc *gg.Context, block cards.Block, fg color.Color) ([]token, error) {
	var tokens []token
	for _, span := range block.Spans {
		size := n.fontSize * math.Pow(smallScale, float64(block.Shrink+span.Shrink))
		style := styleRegular
		switch {
		case span.Bold && span.Italic:
			style = styleBoldItalic
		case span.Bold:
			style = styleBold
		case span.Italic:
			style = styleItalic
		}
		face := n.face(style, size)

		c := fg
		if span.Color != "" {
			var err error
			if c, err = ParseColor(span.Color); err != nil {
				return nil, err
			}
		}

		for _, run := range splitRuns(span.Text) {
			t := token{text: run, face: face, size: size, color: c}
			switch {
			case isSpace(run):
				t.space = true
			case isBar(run):
				t.bar = true
			}
			if t.bar {
				t.width = float64(len([]rune(run))) * barCellWidth(dc, face, size)
			} else {
				dc.SetFontFace(face)
				t.width, _ = dc.MeasureString(run)
			}
			tokens = append(tokens, t)
		}
	}
	return tokens, nil
}

// wrap breaks tokens into lines no wider than maxWidth. Leading spaces of a
// wrapped line are dropped; a single overlong word gets its own line.
func wrap(tokens []token, maxWidth float64) []line {
	var lines []line
	var cur line

	flush := func() {
		for len(cur.tokens) > 0 && cur.tokens[len(cur.tokens)-1].space {
			cur.width -= cur.tokens[len(cur.tokens)-1].width
			cur.tokens = cur.tokens[:len(cur.tokens)-1]
		}
		lines = append(lines, cur)
		cur = line{}
	}

	for _, t := range tokens {
		if t.space && len(cur.tokens) == 0 && len(lines) > 0 {
			continue
		}
		if !t.space && len(cur.tokens) > 0 && cur.width+t.width > maxWidth {
			flush()
		}
		cur.tokens = append(cur.tokens, t)
		cur.width += t.width

		m := t.face.Metrics()
		if h := float64(m.Height) / 64 * lineSpacing; h > cur.height {
			cur.height = h
		}
		if a := float64(m.Ascent) / 64; a > cur.ascent {
			cur.ascent = a
		}
	}
	if len(cur.tokens) > 0 || len(lines) == 0 {
		flush()
	}
	return lines
}

func (n *Native) drawLine(dc *gg.Context, ln line, x, baseline, maxWidth float64, justify bool) {
	extra := 0.0
	if justify {
		gaps := 0
		for _, t := range ln.tokens {
			if t.space {
				gaps++
			}
		}
		if gaps > 0 && ln.width < maxWidth {
			extra = (maxWidth - ln.width) / float64(gaps)
		}
	}

	for _, t := range ln.tokens {
		switch {
		case t.space:
			x += t.width + extra
			continue
		case t.bar:
			drawBar(dc, t, x, baseline)
		default:
			dc.SetFontFace(t.face)
			dc.SetColor(t.color)
			dc.DrawString(t.text, x, baseline)
		}
		x += t.width
	}
}

// barCellWidth is the advance of a full block, falling back to 0.6em.
func barCellWidth(dc *gg.Context, face font.Face, size float64) float64 {
	if adv, ok := face.GlyphAdvance('█'); ok && adv > 0 {
		return float64(adv) / 64
	}
	return size * 0.6
}

// drawBar draws block element glyphs as rectangles so partial eighths do not
// depend on font coverage.
func drawBar(dc *gg.Context, t token, x, baseline float64) {
	m := t.face.Metrics()
	top := baseline - float64(m.Ascent)/64*0.8
	height := float64(m.Ascent)/64*0.8 + float64(m.Descent)/64*0.5
	cell := t.width / float64(len([]rune(t.text)))

	r, g, b, _ := t.color.RGBA()
	shade := color.NRGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: 64}

	for _, ch := range t.text {
		eighths := blockEighths(ch)
		if eighths < 0 {
			dc.SetColor(shade)
			dc.DrawRectangle(x, top, cell, height)
			dc.Fill()
		} else if eighths > 0 {
			dc.SetColor(t.color)
			dc.DrawRectangle(x, top, cell*float64(eighths)/8, height)
			dc.Fill()
		}
		x += cell
	}
}

// blockEighths maps a block element to its left-fill in eighths; -1 for shades.
func blockEighths(r rune) int {
	switch r {
	case '█':
		return 8
	case '▉':
		return 7
	case '▊':
		return 6
	case '▋':
		return 5
	case '▌':
		return 4
	case '▍':
		return 3
	case '▎':
		return 2
	case '▏':
		return 1
	case '░', '▒', '▓':
		return -1
	}
	return 0
}

func isBar(s string) bool {
	for _, r := range s {
		if r < 0x2580 || r > 0x259F {
			return false
		}
	}
	return s != ""
}

func isSpace(s string) bool {
	return strings.TrimSpace(s) == ""
}

// splitRuns splits text into alternating whitespace, bar and word runs.
func splitRuns(s string) []string {
	var runs []string
	var cur []rune
	kind := -1
	for _, r := range s {
		k := 0
		switch {
		case unicode.IsSpace(r):
			k = 1
		case r >= 0x2580 && r <= 0x259F:
			k = 2
		}
		if k != kind && len(cur) > 0 {
			runs = append(runs, string(cur))
			cur = cur[:0]
		}
		kind = k
		cur = append(cur, r)
	}
	if len(cur) > 0 {
		runs = append(runs, string(cur))
	}
	return runs
}

// Append pastes inputs left to right, top aligned, on the background colour.
func (n *Native) Append(ctx context.Context, inputs []string, out string) error {
	if len(inputs) == 0 {
		return fmt.Errorf("nothing to append")
	}

	imgs := make([]image.Image, 0, len(inputs))
	width, height := 0, 0
	for _, path := range inputs {
		if err := ctx.Err(); err != nil {
			return err
		}
		img, err := imaging.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", path, err)
		}
		b := img.Bounds()
		width += b.Dx()
		if b.Dy() > height {
			height = b.Dy()
		}
		imgs = append(imgs, img)
	}

	canvas := imaging.New(width, height, n.background)
	x := 0
	for _, img := range imgs {
		canvas = imaging.Paste(canvas, img, image.Pt(x, 0))
		x += img.Bounds().Dx()
	}

	if err := imaging.Save(canvas, out); err != nil {
		return fmt.Errorf("failed to save composite: %w", err)
	}
	return verifyOutput(ctx, out)
}

// ParseColor accepts #rgb, #rgba, #rrggbb, #rrggbbaa and SVG colour names.
func ParseColor(s string) (color.Color, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return nil, fmt.Errorf("empty colour")
	}
	if s == "transparent" || s == "none" {
		return color.Transparent, nil
	}
	if !strings.HasPrefix(s, "#") {
		c, ok := colornames.Map[s]
		if !ok {
			return nil, fmt.Errorf("unknown colour %q", s)
		}
		return c, nil
	}

	hex := s[1:]
	if len(hex) == 3 || len(hex) == 4 {
		var b strings.Builder
		for _, r := range hex {
			b.WriteRune(r)
			b.WriteRune(r)
		}
		hex = b.String()
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	if len(hex) != 8 {
		return nil, fmt.Errorf("invalid colour %q", s)
	}

	var r, g, b, a uint8
	if _, err := fmt.Sscanf(hex, "%02x%02x%02x%02x", &r, &g, &b, &a); err != nil {
		return nil, fmt.Errorf("invalid colour %q: %w", s, err)
	}
	return color.NRGBA{R: r, G: g, B: b, A: a}, nil
}
