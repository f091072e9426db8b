package commands

import (
	"fmt"
	"strings"

	"pricehound/models"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	referencePrice string
	referenceURL   string
)

func init() {
	discoverCmd.Flags().StringVar(&referencePrice, "reference-price", "", "Price to compute savings against, e.g. 3500.00.")
	discoverCmd.Flags().StringVar(&referenceURL, "reference-url", "", "Product page used for the category and, without --reference-price, the reference price.")
	rootCmd.AddCommand(discoverCmd)
}

var discoverCmd = &cobra.Command{
	Use:   "discover <product name> [--reference-price <price>] [--reference-url <url>]",
	Short: "Searches every source selected for the product and ranks the prices found.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := models.SearchRequest{
			ProductName:  strings.Join(args, " "),
			ReferenceURL: referenceURL,
		}
		if referencePrice != "" {
			price, err := decimal.NewFromString(strings.ReplaceAll(referencePrice, ",", "."))
			if err != nil {
				return fmt.Errorf("invalid --reference-price: %w", err)
			}
			req.ReferencePrice = &price
		}
		if err := req.Validate(); err != nil {
			return err
		}

		scraping, _, err := newScraping()
		if err != nil {
			return err
		}
		defer scraping.Close()

		result := scraping.Discovery.DiscoverPrices(cmd.Context(), req)
		printResult(cmd, result)
		return nil
	},
}

func printResult(cmd *cobra.Command, result *models.AggregatedResult) {
	out := cmd.OutOrStdout()

	sources := table.NewWriter()
	sources.SetOutputMirror(out)
	sources.AppendHeader(table.Row{"Source", "Mode", "Outcome", "Blocks", "Accepted", "Rejected"})
	for _, s := range result.Sources {
		sources.AppendRow(table.Row{s.SourceName, s.Mode, s.Outcome, s.Blocks, len(s.Candidates), len(s.Rejected)})
	}
	sources.SetStyle(table.StyleRounded)
	sources.Render()

	if len(result.Candidates) > 0 {
		t := table.NewWriter()
		t.SetOutputMirror(out)
		t.AppendHeader(table.Row{"#", "Source", "Price", "Name", "URL"})
		for _, c := range result.Candidates {
			rank := fmt.Sprint(c.Rank)
			if c.IsBestPrice {
				rank += " *"
			}
			t.AppendRow(table.Row{rank, c.SourceName, "R$ " + c.Price.StringFixed(2), truncate(c.Name, 60), c.URL})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()
	}

	fmt.Fprintf(out, "%s [%s] %s\n", result.Status, result.Category.DisplayName(), result.Message)
	if result.Savings != nil && result.SavingsPercentage != nil {
		fmt.Fprintf(out, "Savings: R$ %s (%s%%)\n", result.Savings.StringFixed(2), result.SavingsPercentage.StringFixed(2))
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
