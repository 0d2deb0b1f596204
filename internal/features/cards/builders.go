package cards

import (
	"fmt"
	"strings"
	"time"

	"readme-image/internal/clients_api/twitter"
	"readme-image/internal/clients_api/wakatime"
	"readme-image/internal/features/bars"
	"readme-image/internal/features/quotes"
)

const (
	languagesWidth = 360
	quoteWidth     = 200
	postsWidth     = 200
	quoteBorderX   = 20

	titleRise = -4000
	linesRise = -10000
)

// DateLayout is the date shown on the quote card.
const DateLayout = "2006-01-02"

// LanguagesOptions controls the languages card.
type LanguagesOptions struct {
	Range        string // wakatime range selector
	MaxLanguages int
	BarWidth     int
	Bars         bars.Renderer
	Style        Style
}

// Languages builds the "Most used languages" card from the first MaxLanguages records.
func Languages(langs []wakatime.Language, opts LanguagesOptions) Card {
	if opts.MaxLanguages <= 0 {
		opts.MaxLanguages = 5
	}
	if opts.BarWidth <= 0 {
		opts.BarWidth = bars.DefaultWidth
	}
	style := withDefaults(opts.Style)
	label := wakatime.RangeLabel(opts.Range)

	card := Card{
		Name:   "languages",
		Width:  languagesWidth,
		Height: style.Height,
		Style:  style,
		Blocks: []Block{{
			Rise:   titleRise,
			Shrink: 1,
			Spans: []Span{
				{Text: "Most used languages  "},
				{Text: "(" + label + ")", Shrink: 1},
			},
		}},
	}

	n := len(langs)
	if n > opts.MaxLanguages {
		n = opts.MaxLanguages
	}

	if n == 0 {
		card.Blocks = append(card.Blocks, Block{
			Rise:   linesRise,
			Shrink: 1,
			Spans:  []Span{{Text: fmt.Sprintf("No data for the %s. :(", label)}},
		})
		return card
	}

	for _, lang := range langs[:n] {
		card.Blocks = append(card.Blocks, Block{
			Rise:   linesRise,
			Shrink: 1,
			Spans: []Span{
				{Text: opts.Bars.Render(lang.Percent, opts.BarWidth)},
				{Text: "  " + lang.Name + "   ", Shrink: 1},
				{Text: fmt.Sprintf("%.1f%%", lang.Percent) + "   ", Color: ColorMuted, Shrink: 1},
				{Text: lang.Text, Color: ColorMuted, Shrink: 2},
			},
		})
	}
	return card
}

// Quote builds the "Random Quote" card.
func Quote(q quotes.Quote, date time.Time, style Style) Card {
	style = withDefaults(style)
	mark := Span{Text: `"`, Color: ColorMark, Bold: true, Italic: true}

	return Card{
		Name:    "quote",
		Width:   quoteWidth,
		Height:  style.Height,
		BorderX: quoteBorderX,
		Justify: true,
		Style:   style,
		Blocks: []Block{
			{
				Rise:   titleRise,
				Shrink: 1,
				Spans: []Span{
					{Text: "Random Quote  "},
					{Text: date.Format(DateLayout), Color: ColorDate, Shrink: 2},
				},
			},
			{
				Rise:   8000,
				Shrink: 2,
				Spans: []Span{
					mark,
					{Text: q.Text, Color: ColorQuote, Italic: true},
					mark,
					{Text: "  " + q.Author, Color: ColorAuthor},
				},
			},
		},
	}
}

// PostsTitle is "Last tweet" for a single post, "Latest tweets" otherwise.
func PostsTitle(count int) string {
	if count == 1 {
		return "Last tweet"
	}
	return "Latest tweets"
}

// Posts builds the social posts card. count is the requested number of posts.
func Posts(posts []twitter.Post, count int, style Style) Card {
	style = withDefaults(style)

	card := Card{
		Name:    "posts",
		Width:   postsWidth,
		Height:  style.Height,
		Justify: true,
		Style:   style,
		Blocks: []Block{{
			Rise:   titleRise,
			Shrink: 1,
			Spans:  []Span{{Text: PostsTitle(count)}},
		}},
	}

	if len(posts) == 0 {
		card.Blocks = append(card.Blocks, Block{
			Shrink: 2,
			Spans:  []Span{{Text: "Nothing posted yet.", Color: ColorMuted}},
		})
		return card
	}

	for _, p := range posts {
		card.Blocks = append(card.Blocks, Block{
			Rise:   6000,
			Shrink: 2,
			Spans: []Span{
				{Text: "•", Color: ColorMark, Bold: true},
				{Text: " " + strings.Join(strings.Fields(p.Text), " "), Color: ColorAuthor},
			},
		})
	}
	return card
}

func withDefaults(s Style) Style {
	if s.Background == "" {
		s.Background = DefaultStyle.Background
	}
	if s.Foreground == "" {
		s.Foreground = DefaultStyle.Foreground
	}
	if s.FontFamily == "" {
		s.FontFamily = DefaultStyle.FontFamily
	}
	if s.Height <= 0 {
		s.Height = DefaultStyle.Height
	}
	return s
}
