package bars

// Proportional text bars for the languages card
// Precision is one eighth of a character cell, not 1/width of the bar
// Percent is clamped to [0, 100] before rendering

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"
)

// Gradient holds 9 glyphs: index 0 is empty, 1..7 are partial fills, 8 is full.
type Gradient [9]string

var (
	// Blocks is the glyph set used on the published README images.
	// Any partial remainder above zero shows as a full block.
	Blocks = Gradient{"░", "█", "█", "█", "█", "█", "█", "█", "█"}

	// Eighths uses the left-aligned eighth blocks for smooth partial fills.
	Eighths = Gradient{"░", "▏", "▎", "▍", "▌", "▋", "▊", "▉", "█"}
)

// DefaultWidth is the number of cells used for each language bar.
const DefaultWidth = 12

var gradients = map[string]Gradient{
	"blocks":  Blocks,
	"eighths": Eighths,
}

// GradientByName resolves a gradient from config ("blocks" or "eighths").
func GradientByName(name string) (Gradient, error) {
	g, ok := gradients[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Gradient{}, fmt.Errorf("unknown bar gradient %q (want blocks or eighths)", name)
	}
	return g, nil
}

func (g Gradient) empty() string { return g[0] }
func (g Gradient) full() string  { return g[8] }

// Renderer renders bars with a fixed gradient. The zero value uses Blocks.
type Renderer struct {
	Gradient Gradient
}

func (r Renderer) gradient() Gradient {
	if r.Gradient[0] == "" {
		return Blocks
	}
	return r.Gradient
}

// Render returns exactly width glyphs approximating percent of fill.
func (r Renderer) Render(percent float64, width int) string {
	if width < 1 {
		return ""
	}
	g := r.gradient()
	percent = clampPercent(percent)

	frac := int(math.Floor(float64(width) * 8 * percent / 100))
	fullCells := frac / 8
	if fullCells >= width {
		return strings.Repeat(g.full(), width)
	}

	var b strings.Builder
	b.WriteString(strings.Repeat(g.full(), fullCells))
	b.WriteString(g[frac%8])
	b.WriteString(strings.Repeat(g.empty(), width-fullCells-1))
	return b.String()
}

// Render renders with the Blocks gradient.
func Render(percent float64, width int) string {
	return Renderer{}.Render(percent, width)
}

// FillLevel reports the fill of a rendered bar in eighths of a cell.
// Glyphs that are not part of the gradient count as empty.
func FillLevel(bar string, g Gradient) int {
	level := 0
	for _, r := range bar {
		s := string(r)
		for i := len(g) - 1; i > 0; i-- {
			if g[i] == s {
				level += i
				break
			}
		}
	}
	return level
}

// Len returns the number of cells in a rendered bar.
func Len(bar string) int {
	return utf8.RuneCountInString(bar)
}

func clampPercent(p float64) float64 {
	switch {
	case math.IsNaN(p), p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}
