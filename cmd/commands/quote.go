package commands

import (
	"fmt"

	"readme-image/internal/features/quotes"

	"github.com/spf13/cobra"
)

var quoteCmd = &cobra.Command{
	Use:   "quote",
	Short: "Print a random quote from the corpus",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		corpus, err := quotes.Load(cfg.App.QuotesFile)
		if err != nil {
			return err
		}
		q := corpus.Pick(nil)
		fmt.Fprintf(cmd.OutOrStdout(), "%q  %s\n", q.Text, q.Author)
		return nil
	},
}
