package commands

import (
	"fmt"
	"strings"

	"pricehound/config"
	"pricehound/logger"
	"pricehound/models"
	"pricehound/services"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(sourcesCmd)
}

var sourcesCmd = &cobra.Command{
	Use:   "sources [category | product name]",
	Short: "Shows the sources queried for a category, or for the category a product name is classified into.",
	RunE: func(cmd *cobra.Command, args []string) error {
		catalog, err := config.LoadCatalog()
		if err != nil {
			return err
		}
		categories := services.NewCategoryService(logger.NewTo(cmd.ErrOrStderr(), "pricehound-cli", logLevel))

		category := models.CategoryElectronics
		if len(args) > 0 {
			input := strings.Join(args, " ")
			if parsed, err := models.ParseCategory(input); err == nil {
				category = parsed
			} else {
				category = categories.Classify(input, "")
			}
		}

		t := table.NewWriter()
		t.SetOutputMirror(cmd.OutOrStdout())
		t.AppendHeader(table.Row{"Source", "Name", "Search URL"})
		for _, id := range categories.SelectSources(category) {
			source, ok := catalog.Source(id)
			if !ok {
				continue
			}
			t.AppendRow(table.Row{source.ID, source.Name, source.SearchURL})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()

		fmt.Fprintf(cmd.OutOrStdout(), "Category: %s (%s)\n", category, category.DisplayName())
		return nil
	},
}
