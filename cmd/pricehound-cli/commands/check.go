package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(checkCmd)
}

var checkCmd = &cobra.Command{
	Use:   "check <url>",
	Short: "Reads the current price of a single product page.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		scraping, _, err := newScraping()
		if err != nil {
			return err
		}
		defer scraping.Close()

		price, err := scraping.URLChecker.Check(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if price.Title != "" {
			fmt.Fprintln(out, price.Title)
		}
		fmt.Fprintf(out, "R$ %s (%s, %s)\n", price.Price.StringFixed(2), price.Mode, price.Locator)
		return nil
	},
}
