package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jmcruz/fiscaltone/internal/pipeline"
)

var cleanOutDir string

// cleanCmd represents the clean command
var cleanCmd = &cobra.Command{
	Use:   "clean [stem...]",
	Short: "Re-run the cleaning cascade over raw extraction artifacts",
	Long: `Clean replays the staged cleaning cascade over previously extracted
text, rewriting the cleaned paragraphs and the removal audit trail.
Without arguments every raw artifact is cleaned; stems restrict the run
to specific documents.

Use this after tuning cleaner thresholds; no PDF is re-opened.

Example:
  fiscaltone clean
  fiscaltone clean Informe-anual-2023`,
	RunE: runClean,
}

func init() {
	rootCmd.AddCommand(cleanCmd)

	cleanCmd.Flags().StringVar(&cleanOutDir, "output-dir", "", "artifact directory (overrides configuration)")
}

func runClean(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cleanOutDir != "" {
		cfg.Output.Dir = cleanOutDir
	}
	cfg.LLM.Provider = ""

	p, err := pipeline.New(cfg)
	if err != nil {
		return err
	}
	defer p.Close()

	stems := args
	if len(stems) == 0 {
		stems, err = p.Artifacts().ListRaw()
		if err != nil {
			return fmt.Errorf("list raw artifacts: %w", err)
		}
	}
	if len(stems) == 0 {
		return fmt.Errorf("no raw artifacts under %s; run 'fiscaltone extract' first", cfg.Output.Dir)
	}

	failures := 0
	for _, stem := range stems {
		cleanRecords, removals, err := p.CleanArtifact(stem)
		if err != nil {
			failures++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", stem, err)
			continue
		}
		fmt.Fprintf(os.Stderr, "✓ %s: %d paragraphs kept, %d removed\n", stem, len(cleanRecords), len(removals))
	}

	if failures > 0 {
		return fmt.Errorf("%d of %d documents failed", failures, len(stems))
	}
	return nil
}
