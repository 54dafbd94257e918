package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmcruz/fiscaltone/internal/collect"
)

var (
	rawDir         string
	metadataPath   string
	listURLs       []string
	collectTimeout time.Duration
	userAgent      string
	prune          bool
)

// collectCmd represents the collect command
var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Download CF publications into the raw corpus",
	Long: `Collect scrapes the Consejo Fiscal publication listings, resolves the
PDF behind each listed document, and downloads anything not already in
the local corpus.

Metadata is persisted after every download, so an interrupted run
resumes where it left off.

Example:
  fiscaltone collect
  fiscaltone collect --raw-dir data/raw --prune
  fiscaltone collect --list-url https://cf.gob.pe/p/informes/`,
	Args: cobra.NoArgs,
	RunE: runCollect,
}

func init() {
	rootCmd.AddCommand(collectCmd)

	collectCmd.Flags().StringVar(&rawDir, "raw-dir", "data/raw", "directory for downloaded PDFs")
	collectCmd.Flags().StringVar(&metadataPath, "metadata", "data/fc_reports_meta.json", "metadata file path")
	collectCmd.Flags().StringSliceVar(&listURLs, "list-url", nil, "listing URLs to scrape (overrides configuration)")
	collectCmd.Flags().DurationVar(&collectTimeout, "timeout", 30*time.Minute, "overall collection timeout")
	collectCmd.Flags().StringVar(&userAgent, "ua", "", "HTTP User-Agent (overrides configuration)")
	collectCmd.Flags().BoolVar(&prune, "prune", false, "remove known-broken PDFs from the raw directory")
}

func runCollect(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if len(listURLs) > 0 {
		cfg.Collect.ListURLs = listURLs
	}
	if userAgent != "" {
		cfg.Collect.UserAgent = userAgent
	}

	ctx, cancel := context.WithTimeout(context.Background(), collectTimeout)
	defer cancel()

	c := collect.New(cfg.Collect, cfg.RateLimiting, rawDir, metadataPath, cfg.Output.Verbose)
	metas, err := c.Run(ctx)
	if err != nil {
		return fmt.Errorf("collect: %w", err)
	}

	if prune {
		if removed := collect.RemoveUnwanted(rawDir, nil); removed > 0 {
			fmt.Fprintf(os.Stderr, "✓ Pruned %d unwanted PDFs\n", removed)
		}
	}

	fmt.Fprintf(os.Stderr, "✓ Corpus holds %d documents (%s)\n", len(metas), rawDir)
	return nil
}
