package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmcruz/fiscaltone/internal/pipeline"
	"github.com/jmcruz/fiscaltone/internal/score"
)

var (
	classifyOutDir   string
	classifyProvider string
	classifyModel    string
	classifyWorkers  int
	classifyTimeout  time.Duration
)

// classifyCmd represents the classify command
var classifyCmd = &cobra.Command{
	Use:   "classify [stem...]",
	Short: "Rate the fiscal alert tone of cleaned paragraphs",
	Long: `Classify sends every paragraph of the cleaned artifacts to the
configured LLM provider and records a 1-5 fiscal alert score per
paragraph. Without arguments all cleaned artifacts are classified;
stems restrict the run to specific documents.

API keys come from the environment (OPENAI_API_KEY, ANTHROPIC_API_KEY).

Example:
  fiscaltone classify
  fiscaltone classify --llm-provider anthropic
  fiscaltone classify Informe-anual-2023 --llm-model gpt-4o-mini`,
	RunE: runClassify,
}

func init() {
	rootCmd.AddCommand(classifyCmd)

	classifyCmd.Flags().StringVar(&classifyOutDir, "output-dir", "", "artifact directory (overrides configuration)")
	classifyCmd.Flags().StringVar(&classifyProvider, "llm-provider", "", "LLM provider (openai, anthropic, ollama; overrides configuration)")
	classifyCmd.Flags().StringVar(&classifyModel, "llm-model", "", "LLM model name (overrides configuration)")
	classifyCmd.Flags().IntVar(&classifyWorkers, "workers", 0, "concurrent classification requests (overrides configuration)")
	classifyCmd.Flags().DurationVar(&classifyTimeout, "timeout", 4*time.Hour, "overall classification timeout")
}

func runClassify(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if classifyOutDir != "" {
		cfg.Output.Dir = classifyOutDir
	}
	if classifyProvider != "" {
		cfg.LLM.Provider = classifyProvider
	}
	if classifyModel != "" {
		cfg.LLM.Model = classifyModel
	}
	if classifyWorkers > 0 {
		cfg.Concurrency.ClassifyWorkers = classifyWorkers
	}
	if cfg.LLM.Provider == "" {
		return fmt.Errorf("no LLM provider configured; set llm.provider or pass --llm-provider")
	}
	if err := resolveAPIKey(cfg); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), classifyTimeout)
	defer cancel()

	p, err := pipeline.New(cfg)
	if err != nil {
		return err
	}
	defer p.Close()
	if !p.Classifying() {
		return fmt.Errorf("LLM provider %q could not be initialized", cfg.LLM.Provider)
	}

	stems := args
	if len(stems) == 0 {
		stems, err = p.Artifacts().ListClean()
		if err != nil {
			return fmt.Errorf("list cleaned artifacts: %w", err)
		}
	}
	if len(stems) == 0 {
		return fmt.Errorf("no cleaned artifacts under %s; run 'fiscaltone extract' first", cfg.Output.Dir)
	}

	failures := 0
	for _, stem := range stems {
		scores, err := p.ClassifyArtifact(ctx, stem)
		if err != nil {
			failures++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", stem, err)
			continue
		}
		fmt.Fprintf(os.Stderr, "✓ %s: %d paragraphs, mean risk index %.2f",
			stem, len(scores), score.MeanRiskIndex(scores))
		if failed := score.Failed(scores); failed > 0 {
			fmt.Fprintf(os.Stderr, " (%d failed)", failed)
		}
		fmt.Fprintln(os.Stderr)
	}

	if failures > 0 {
		return fmt.Errorf("%d of %d documents failed", failures, len(stems))
	}
	return nil
}
