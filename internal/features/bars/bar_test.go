package bars

import (
	"math"
	"strings"
	"testing"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name     string
		gradient Gradient
		percent  float64
		width    int
		want     string
	}{
		{"empty", Eighths, 0, 12, strings.Repeat("░", 12)},
		{"full", Eighths, 100, 12, strings.Repeat("█", 12)},
		{"half", Eighths, 50, 12, strings.Repeat("█", 6) + strings.Repeat("░", 6)},
		{"third eighths", Eighths, 33.3, 10, "███▎" + strings.Repeat("░", 6)},
		{"third blocks", Blocks, 33.3, 10, "████" + strings.Repeat("░", 6)},
		{"single cell", Eighths, 50, 1, "▌"},
		{"over range", Eighths, 150, 12, strings.Repeat("█", 12)},
		{"under range", Eighths, -20, 4, "░░░░"},
		{"nan", Eighths, math.NaN(), 3, "░░░"},
		{"zero width", Eighths, 50, 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Renderer{Gradient: tt.gradient}.Render(tt.percent, tt.width)
			if got != tt.want {
				t.Errorf("Render(%v, %d) = %q, want %q", tt.percent, tt.width, got, tt.want)
			}
		})
	}
}

func TestRenderLength(t *testing.T) {
	for _, g := range []Gradient{Blocks, Eighths} {
		for width := 1; width <= 40; width++ {
			for p := 0.0; p <= 100; p += 0.7 {
				got := Renderer{Gradient: g}.Render(p, width)
				if Len(got) != width {
					t.Fatalf("Render(%v, %d) has %d cells: %q", p, width, Len(got), got)
				}
			}
		}
	}
}

func TestRenderMonotonic(t *testing.T) {
	for _, g := range []Gradient{Blocks, Eighths} {
		for _, width := range []int{1, 5, 12, 30} {
			prev := -1
			for i := 0; i <= 1000; i++ {
				p := float64(i) / 10
				level := FillLevel(Renderer{Gradient: g}.Render(p, width), g)
				if level < prev {
					t.Fatalf("fill decreased at %v%% width %d: %d < %d", p, width, level, prev)
				}
				prev = level
			}
		}
	}
}

func TestRenderSaturation(t *testing.T) {
	full := strings.Repeat("█", 12)
	if got := Render(100, 12); got != full {
		t.Errorf("Render(100, 12) = %q", got)
	}
	if got := Render(150, 12); got != full {
		t.Errorf("Render(150, 12) = %q", got)
	}
}

func TestRenderZeroValueUsesBlocks(t *testing.T) {
	if got, want := (Renderer{}).Render(33.3, 10), Render(33.3, 10); got != want {
		t.Errorf("zero Renderer = %q, want %q", got, want)
	}
}

func TestGradientByName(t *testing.T) {
	g, err := GradientByName(" Eighths ")
	if err != nil {
		t.Fatalf("GradientByName: %v", err)
	}
	if g != Eighths {
		t.Errorf("got %v, want Eighths", g)
	}
	if _, err := GradientByName("dots"); err == nil {
		t.Error("expected error for unknown gradient")
	}
}

func TestFillLevel(t *testing.T) {
	if got := FillLevel("███▎░░", Eighths); got != 26 {
		t.Errorf("FillLevel = %d, want 26", got)
	}
	if got := FillLevel("░░", Eighths); got != 0 {
		t.Errorf("FillLevel(empty) = %d, want 0", got)
	}
}
