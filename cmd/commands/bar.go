package commands

import (
	"fmt"

	"readme-image/internal/features/bars"

	"github.com/spf13/cobra"
)

var (
	barPercent  float64
	barWidth    int
	barGradient string
)

var barCmd = &cobra.Command{
	Use:   "bar",
	Short: "Print one proportional bar",
	Example: `  readme-image bar --percent 33.3 --width 10
  readme-image bar --percent 72 --gradient eighths`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		name := barGradient
		if name == "" {
			name = cfg.Render.Gradient
		}
		g, err := bars.GradientByName(name)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), bars.Renderer{Gradient: g}.Render(barPercent, barWidth))
		return nil
	},
}

func init() {
	barCmd.Flags().Float64Var(&barPercent, "percent", 0, "Fill percentage, clamped to 0..100")
	barCmd.Flags().IntVar(&barWidth, "width", bars.DefaultWidth, "Bar width in glyphs")
	barCmd.Flags().StringVar(&barGradient, "gradient", "", "blocks or eighths (default: render.gradient)")
}
