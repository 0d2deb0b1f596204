package cards

// Card model shared by both rasterizer backends
// A card is a fixed canvas with blocks of styled spans laid out top to bottom
// Markup() serialises it to Pango markup for ImageMagick

import (
	"fmt"
	"html"
	"strings"
)

// Colours used on the cards.
const (
	ColorMuted  = "#999"
	ColorDate   = "#aaa"
	ColorAuthor = "#444"
	ColorQuote  = "#555"
	ColorMark   = "#005DC6"
)

// Style is the canvas styling shared by every card.
type Style struct {
	Background string
	Foreground string
	FontFamily string
	Height     int
}

// DefaultStyle matches the published README images.
var DefaultStyle = Style{
	Background: "white",
	Foreground: "#222",
	FontFamily: "sans-serif",
	Height:     140,
}

// Span is a run of text with one style.
type Span struct {
	Text   string
	Color  string // "" inherits the card foreground
	Bold   bool
	Italic bool
	Shrink int // nested <small> levels on top of the block's
}

// Block is a paragraph; its spans wrap together.
type Block struct {
	Rise   int // Pango rise in 1/1024 pt; negative lowers the text
	Shrink int
	Spans  []Span
}

// Card is one image.
type Card struct {
	Name    string
	Width   int
	Height  int
	BorderX int // horizontal border added on both sides
	Justify bool
	Style   Style
	Blocks  []Block
}

// OuterWidth is the final image width including the border.
func (c Card) OuterWidth() int {
	return c.Width + 2*c.BorderX
}

// Text returns the plain text of the card, one line per block.
func (c Card) Text() string {
	lines := make([]string, 0, len(c.Blocks))
	for _, b := range c.Blocks {
		var sb strings.Builder
		for _, s := range b.Spans {
			sb.WriteString(s.Text)
		}
		lines = append(lines, sb.String())
	}
	return strings.Join(lines, "\n")
}

// Markup renders the card as Pango markup. Text is escaped.
func (c Card) Markup() string {
	var sb strings.Builder
	sb.WriteString("\n")
	for i, b := range c.Blocks {
		if i > 0 {
			sb.WriteString("\n")
		}
		if b.Rise != 0 {
			fmt.Fprintf(&sb, `<span rise="%d">`, b.Rise)
		} else {
			sb.WriteString("<span>")
		}
		sb.WriteString(strings.Repeat("<small>", b.Shrink))
		for _, s := range b.Spans {
			writeSpan(&sb, s)
		}
		sb.WriteString(strings.Repeat("</small>", b.Shrink))
		sb.WriteString("</span>")
	}
	sb.WriteString("\n")
	return sb.String()
}

func writeSpan(sb *strings.Builder, s Span) {
	sb.WriteString(strings.Repeat("<small>", s.Shrink))
	if s.Color != "" {
		fmt.Fprintf(sb, `<span fgcolor="%s">`, s.Color)
	}
	if s.Bold {
		sb.WriteString("<b>")
	}
	if s.Italic {
		sb.WriteString("<i>")
	}
	sb.WriteString(Escape(s.Text))
	if s.Italic {
		sb.WriteString("</i>")
	}
	if s.Bold {
		sb.WriteString("</b>")
	}
	if s.Color != "" {
		sb.WriteString("</span>")
	}
	sb.WriteString(strings.Repeat("</small>", s.Shrink))
}

// Escape makes arbitrary text safe inside Pango markup.
func Escape(s string) string {
	return html.EscapeString(s)
}
