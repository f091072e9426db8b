package commands

import (
	"context"
	"fmt"
	"os"

	"pricehound/app"
	"pricehound/config"
	"pricehound/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	noBrowser bool
	logLevel  string
)

var rootCmd = &cobra.Command{
	Use:           "pricehound-cli",
	Short:         "pricehound-cli searches Brazilian retailers for the best price of a product.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&noBrowser, "no-browser", false, "Never fall back to the headless browser.")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level written to stderr.")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newScraping builds the pipeline from the environment and the global flags.
func newScraping() (*app.Scraping, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if noBrowser {
		cfg.BrowserEnabled = false
	}
	log := logger.NewTo(os.Stderr, "pricehound-cli", logLevel)
	scraping, err := app.NewScraping(cfg, log)
	if err != nil {
		return nil, nil, err
	}
	return scraping, log, nil
}
