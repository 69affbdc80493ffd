package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Fr3nn3r/deckung/internal/audit"
	"github.com/Fr3nn3r/deckung/internal/engine"
	"github.com/Fr3nn3r/deckung/internal/worker"
)

var (
	concurrency  int
	outputDir    string
	batchTimeout time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <dir>",
	Short: "Analyze all claim files in a directory in parallel",
	Long: `Batch analyzes every claim file (*.json, *.yaml) in a directory against
one shared policy, with a configurable number of concurrent workers. Each
claim gets its own report in the output directory.

Example:
  deckung batch ./claims --policy policy.yaml --vocab vocab.yaml
  deckung batch ./claims --policy policy.yaml --vocab vocab.yaml --workers 8 --output-dir ./reports`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().StringVar(&policyPath, "policy", "", "policy context file (required)")
	batchCmd.Flags().StringVar(&vocabPath, "vocab", "", "component vocabulary file")
	batchCmd.Flags().BoolVar(&emptyVocab, "empty-vocab", false, "run without a vocabulary")
	_ = batchCmd.MarkFlagRequired("policy")

	batchCmd.Flags().IntVar(&concurrency, "workers", 4, "number of concurrent claim workers")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./deckung-reports", "output directory for reports")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for batch processing")

	// LLM flags
	batchCmd.Flags().BoolVar(&llmEnabled, "llm", false, "enable the LLM fallback matcher")
	batchCmd.Flags().StringVar(&llmProvider, "llm-provider", "openai", "LLM provider (openai, ollama)")
	batchCmd.Flags().StringVar(&llmModel, "llm-model", "gpt-4o-mini", "LLM model name")
}

func runBatch(cmd *cobra.Command, args []string) error {
	dir := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	logger := newLogger()
	defer func() { _ = logger.Sync() }()

	policy, err := LoadPolicy(policyPath)
	if err != nil {
		return err
	}
	vocabulary, err := loadVocabulary()
	if err != nil {
		return err
	}
	cfg, err := buildConfig()
	if err != nil {
		return err
	}

	claims, err := collectClaims(dir)
	if err != nil {
		return err
	}
	if len(claims) == 0 {
		return fmt.Errorf("no claim files found in %s", dir)
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	recorder := audit.NewMemoryRecorder()
	eng, err := engine.New(cfg, vocabulary, recorder, logger)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Batch: %d claims, %d workers, output %s\n\n", len(claims), concurrency, outputDir)

	processor := worker.NewBatchProcessor(eng, concurrency)
	results := processor.Process(ctx, claims, policy)

	renderer := engine.NewRenderer(true)
	failed := 0
	for _, cr := range results {
		name := strings.TrimSuffix(filepath.Base(cr.Path), filepath.Ext(cr.Path))
		if cr.Err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", name, cr.Err)
			continue
		}
		reportPath := filepath.Join(outputDir, name+".json")
		if err := renderer.RenderJSON(cr.Result, reportPath); err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", name, err)
			continue
		}
		s := cr.Result.Summary
		fmt.Fprintf(os.Stderr, "✓ %s: %d covered / %d denied / %d review, payable %.2f\n",
			name, s.CoveredCount, s.NotCoveredCount, s.ReviewNeededCount, s.PayableAmount)
	}

	fmt.Fprintf(os.Stderr, "\nProcessed %d claims (%d failed), %d LLM calls\n",
		len(results), failed, recorder.CallCount())

	if failed > 0 {
		return fmt.Errorf("%d of %d claims failed", failed, len(results))
	}
	return nil
}

// collectClaims loads every claim file in the directory, sorted by name
func collectClaims(dir string) ([]worker.Claim, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read claims directory: %w", err)
	}

	var claims []worker.Claim
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch filepath.Ext(entry.Name()) {
		case ".json", ".yaml", ".yml":
		default:
			continue
		}
		path := filepath.Join(dir, entry.Name())
		items, err := LoadClaim(path)
		if err != nil {
			return nil, err
		}
		claims = append(claims, worker.Claim{Path: path, Items: items})
	}
	return claims, nil
}
