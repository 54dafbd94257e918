package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmcruz/fiscaltone/internal/pipeline"
	"github.com/jmcruz/fiscaltone/internal/worker"
)

var (
	extractFromFile string
	extractOutDir   string
	extractWorkers  int
	extractTimeout  time.Duration
)

// extractCmd represents the extract command
var extractCmd = &cobra.Command{
	Use:   "extract [dir]",
	Short: "Extract and clean paragraph text from downloaded PDFs",
	Long: `Extract runs the text stages over a PDF corpus: each document is probed
for a native text layer, extracted through the word path or the OCR
path accordingly, reconstructed into paragraphs, and cleaned.

Per document it writes the raw extraction, the cleaned paragraphs, and
the removal audit trail under the output directory. Classification is a
separate stage; see 'fiscaltone classify'.

Example:
  fiscaltone extract data/raw
  fiscaltone extract data/raw --workers 8 --output-dir data
  fiscaltone extract --from-file paths.txt`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().StringVar(&extractFromFile, "from-file", "", "file listing PDF paths, one per line")
	extractCmd.Flags().StringVar(&extractOutDir, "output-dir", "", "artifact directory (overrides configuration)")
	extractCmd.Flags().IntVar(&extractWorkers, "workers", 0, "concurrent documents (overrides configuration)")
	extractCmd.Flags().DurationVar(&extractTimeout, "timeout", 2*time.Hour, "overall extraction timeout")
}

func runExtract(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && extractFromFile == "" {
		return fmt.Errorf("provide a PDF directory or --from-file")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if extractOutDir != "" {
		cfg.Output.Dir = extractOutDir
	}
	if extractWorkers > 0 {
		cfg.Concurrency.DocumentWorkers = extractWorkers
	}
	// Extraction never classifies; that is the classify stage.
	cfg.LLM.Provider = ""

	ctx, cancel := context.WithTimeout(context.Background(), extractTimeout)
	defer cancel()

	p, err := pipeline.New(cfg)
	if err != nil {
		return err
	}
	defer p.Close()

	batch := worker.NewBatchProcessor(p, cfg.Concurrency.DocumentWorkers)

	var results []*worker.DocumentResult
	if extractFromFile != "" {
		results, err = batch.ProcessFile(ctx, extractFromFile)
	} else {
		results, err = batch.ProcessDir(ctx, args[0])
	}
	if err != nil {
		return fmt.Errorf("extract: %w", err)
	}

	reportBatch(results, cfg.Output.Dir)
	return nil
}

// reportBatch prints the per-document failures and the batch totals.
func reportBatch(results []*worker.DocumentResult, outDir string) {
	success, failure := 0, 0
	for _, r := range results {
		if r.Error != nil {
			failure++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", r.Path, r.Error)
			continue
		}
		success++
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:     %d documents\n", len(results))
	fmt.Fprintf(os.Stderr, "  Success:   %d\n", success)
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", failure)
	fmt.Fprintf(os.Stderr, "  Artifacts: %s\n", outDir)
	fmt.Fprintf(os.Stderr, "\n")
}
