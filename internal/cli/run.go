package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmcruz/fiscaltone/internal/pipeline"
	"github.com/jmcruz/fiscaltone/internal/worker"
)

var (
	runOutDir   string
	runProvider string
	runModel    string
	runWorkers  int
	runNoLLM    bool
	runTimeout  time.Duration
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run <dir>",
	Short: "Run extraction, cleaning, and classification in one pass",
	Long: `Run pushes every PDF in the directory through the full pipeline:
extraction, paragraph reconstruction, cleaning, and classification,
writing all artifacts as it goes.

Classification requires an API key in the environment; pass --no-llm to
stop after cleaning.

Example:
  fiscaltone run data/raw
  fiscaltone run data/raw --workers 8 --llm-provider anthropic
  fiscaltone run data/raw --no-llm`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runOutDir, "output-dir", "", "artifact directory (overrides configuration)")
	runCmd.Flags().StringVar(&runProvider, "llm-provider", "", "LLM provider (openai, anthropic, ollama; overrides configuration)")
	runCmd.Flags().StringVar(&runModel, "llm-model", "", "LLM model name (overrides configuration)")
	runCmd.Flags().IntVar(&runWorkers, "workers", 0, "concurrent documents (overrides configuration)")
	runCmd.Flags().BoolVar(&runNoLLM, "no-llm", false, "skip classification")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 6*time.Hour, "overall pipeline timeout")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if runOutDir != "" {
		cfg.Output.Dir = runOutDir
	}
	if runProvider != "" {
		cfg.LLM.Provider = runProvider
	}
	if runModel != "" {
		cfg.LLM.Model = runModel
	}
	if runWorkers > 0 {
		cfg.Concurrency.DocumentWorkers = runWorkers
	}
	if runNoLLM {
		cfg.LLM.Provider = ""
	} else if cfg.LLM.Provider != "" {
		if err := resolveAPIKey(cfg); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	p, err := pipeline.New(cfg)
	if err != nil {
		return err
	}
	defer p.Close()

	batch := worker.NewBatchProcessor(p, cfg.Concurrency.DocumentWorkers)
	results, err := batch.ProcessDir(ctx, args[0])
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	reportBatch(results, cfg.Output.Dir)
	return nil
}
