package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"readme-image/internal/clients_api/twitter"
	"readme-image/internal/clients_api/wakatime"
	"readme-image/internal/features/bars"
	"readme-image/internal/features/cards"
	"readme-image/internal/features/quotes"
	"readme-image/internal/features/render"
)

// go run etc/tools/preview_cards.go [eighths]
// renders sample cards without any API into etc/preview/
func main() {
	gradient := bars.Blocks
	if len(os.Args) > 1 && os.Args[1] == "eighths" {
		gradient = bars.Eighths
	}

	raster, err := render.NewNative(render.NativeOptions{})
	if err != nil {
		fmt.Printf("Error creating renderer: %v\n", err)
		os.Exit(1)
	}

	corpus, err := quotes.Default()
	if err != nil {
		fmt.Printf("Error loading quotes: %v\n", err)
		os.Exit(1)
	}

	langs := []wakatime.Language{
		{Name: "Go", Percent: 46.2, Text: "12 hrs 3 mins"},
		{Name: "TypeScript", Percent: 27.9, Text: "7 hrs 16 mins"},
		{Name: "Python", Percent: 13.1, Text: "3 hrs 25 mins"},
		{Name: "Bash", Percent: 8.4, Text: "2 hrs 11 mins"},
		{Name: "YAML", Percent: 4.4, Text: "1 hr 9 mins"},
	}
	posts := []twitter.Post{{ID: "1", Text: "Rendering README cards from Go, no ImageMagick required."}}

	dir := filepath.Join("etc", "preview")
	ctx := context.Background()
	items := []struct {
		card cards.Card
		file string
	}{
		{cards.Languages(langs, cards.LanguagesOptions{Range: wakatime.RangeLast7Days, Bars: bars.Renderer{Gradient: gradient}}), "01.png"},
		{cards.Quote(corpus.Pick(nil), time.Now(), cards.DefaultStyle), "02.png"},
		{cards.Posts(posts, 1, cards.DefaultStyle), "03.png"},
	}

	var files []string
	for _, it := range items {
		out := filepath.Join(dir, it.file)
		if err := raster.Rasterize(ctx, it.card, out); err != nil {
			fmt.Printf("Error rendering %s: %v\n", it.card.Name, err)
			os.Exit(1)
		}
		files = append(files, out)
	}

	out := filepath.Join(dir, "readmeImage.png")
	if err := raster.Append(ctx, files, out); err != nil {
		fmt.Printf("Error compositing: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Preview generated: %s\n", out)
}
