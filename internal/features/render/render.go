package render

// Rasterizers turn cards into PNG files and join PNGs side by side
// native draws with gg and composites with imaging, magick shells out to ImageMagick
// Both are awaited and verify their output before returning

import (
	"context"
	"fmt"
	"time"

	"readme-image/internal/features/cards"
	"readme-image/internal/infra/config"
	"readme-image/internal/infra/fs"
)

// outputWait bounds how long we wait for a written file to show up non-empty.
var outputWait = 5 * time.Second

// Rasterizer renders cards and composites images.
type Rasterizer interface {
	// Rasterize writes card as a PNG at out.
	Rasterize(ctx context.Context, card cards.Card, out string) error
	// Append joins inputs left to right into out.
	Append(ctx context.Context, inputs []string, out string) error
	// Name identifies the backend in logs.
	Name() string
}

// New returns the backend selected by cfg.Backend.
func New(cfg config.RenderConfig) (Rasterizer, error) {
	timeout := time.Duration(cfg.Timeout) * time.Second
	switch cfg.Backend {
	case "", "native":
		return NewNative(NativeOptions{
			FontPath:   cfg.FontPath,
			FontSize:   cfg.FontSize,
			Background: cfg.Background,
		})
	case "magick":
		return NewMagick(cfg.MagickBinary, timeout)
	default:
		return nil, fmt.Errorf("unknown render backend %q", cfg.Backend)
	}
}

func verifyOutput(ctx context.Context, out string) error {
	if err := fs.WaitForFile(ctx, out, outputWait); err != nil {
		return fmt.Errorf("rasterizer produced no output: %w", err)
	}
	return nil
}
