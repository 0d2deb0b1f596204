package render

import (
	"context"
	"fmt"
	"time"

	"readme-image/internal/features/cards"
	"readme-image/internal/infra/exec"
	"readme-image/internal/infra/log"

	"go.uber.org/zap"
)

// Magick rasterizes Pango markup with ImageMagick's convert (or magick).
type Magick struct {
	binary  string
	timeout time.Duration
}

// NewMagick checks that binary is on PATH.
func NewMagick(binary string, timeout time.Duration) (*Magick, error) {
	if binary == "" {
		binary = "convert"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if _, err := exec.LookPath(binary); err != nil {
		return nil, err
	}
	return &Magick{binary: binary, timeout: timeout}, nil
}

func (m *Magick) Name() string { return "magick" }

// RasterizeArgs builds the ImageMagick argument list for a card.
func RasterizeArgs(card cards.Card, out string) []string {
	args := []string{
		"-size", fmt.Sprintf("%dx%d", card.Width, card.Height),
		"-background", card.Style.Background,
		"-fill", card.Style.Foreground,
		"-font", card.Style.FontFamily,
	}
	if card.Justify {
		args = append(args, "-define", "pango:justify=true")
	}
	args = append(args, "pango:"+card.Markup())
	if card.BorderX > 0 {
		args = append(args,
			"-bordercolor", card.Style.Background,
			"-border", fmt.Sprintf("%dx0", card.BorderX),
		)
	}
	return append(args, out)
}

// AppendArgs builds the ImageMagick argument list for a horizontal append.
func AppendArgs(inputs []string, out string) []string {
	args := append([]string{}, inputs...)
	return append(args, "+append", out)
}

func (m *Magick) Rasterize(ctx context.Context, card cards.Card, out string) error {
	start := time.Now()
	if _, err := exec.Run(ctx, m.timeout, m.binary, RasterizeArgs(card, out)...); err != nil {
		return fmt.Errorf("failed to rasterize %s card: %w", card.Name, err)
	}
	if err := verifyOutput(ctx, out); err != nil {
		return err
	}
	log.LogDebug("ImageMagick rasterized card",
		zap.String("card", card.Name),
		zap.String("file", out),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()))
	return nil
}

func (m *Magick) Append(ctx context.Context, inputs []string, out string) error {
	if len(inputs) == 0 {
		return fmt.Errorf("nothing to append")
	}
	if _, err := exec.Run(ctx, m.timeout, m.binary, AppendArgs(inputs, out)...); err != nil {
		return fmt.Errorf("failed to append images: %w", err)
	}
	return verifyOutput(ctx, out)
}
