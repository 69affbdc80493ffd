package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Fr3nn3r/deckung/internal/audit"
	"github.com/Fr3nn3r/deckung/internal/engine"
	"github.com/Fr3nn3r/deckung/internal/model"
	"github.com/Fr3nn3r/deckung/internal/vocab"
)

var (
	policyPath  string
	vocabPath   string
	emptyVocab  bool
	outJSON     string
	outMD       string
	outAudit    string
	timeout     time.Duration
	noFooter    bool
	strictMode  bool
	llmEnabled  bool
	llmProvider string
	llmModel    string
	llmWorkers  int
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze <claim-file>",
	Short: "Analyze one claim's line items against a policy",
	Long: `Analyze classifies every line item of a repair estimate as COVERED,
NOT_COVERED or REVIEW_NEEDED, determines the claim's primary repair, and
computes the payable amount.

Example:
  deckung analyze claim.json --policy policy.yaml --vocab vocab.yaml
  deckung analyze claim.json --policy policy.yaml --vocab vocab.yaml --llm --llm-model gpt-4o-mini
  deckung analyze claim.json --policy policy.yaml --vocab vocab.yaml --json report.json --md report.md`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringVar(&policyPath, "policy", "", "policy context file (required)")
	analyzeCmd.Flags().StringVar(&vocabPath, "vocab", "", "component vocabulary file")
	analyzeCmd.Flags().BoolVar(&emptyVocab, "empty-vocab", false, "run without a vocabulary (everything unresolved routes to review)")
	_ = analyzeCmd.MarkFlagRequired("policy")

	// Output flags
	analyzeCmd.Flags().StringVar(&outJSON, "json", "report.json", "output JSON path")
	analyzeCmd.Flags().StringVar(&outMD, "md", "", "output Markdown path (optional)")
	analyzeCmd.Flags().StringVar(&outAudit, "audit", "", "output path for the LLM audit log (optional)")
	analyzeCmd.Flags().BoolVar(&noFooter, "no-footer", false, "disable footer in Markdown reports")

	analyzeCmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "overall analysis timeout")
	analyzeCmd.Flags().BoolVar(&strictMode, "strict", false, "fail on internal invariant violations instead of clamping")

	// LLM flags
	analyzeCmd.Flags().BoolVar(&llmEnabled, "llm", false, "enable the LLM fallback matcher")
	analyzeCmd.Flags().StringVar(&llmProvider, "llm-provider", "openai", "LLM provider (openai, ollama)")
	analyzeCmd.Flags().StringVar(&llmModel, "llm-model", "gpt-4o-mini", "LLM model name")
	analyzeCmd.Flags().IntVar(&llmWorkers, "concurrency", 4, "concurrent LLM calls per claim")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	claimPath := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	logger := newLogger()
	defer func() { _ = logger.Sync() }()

	items, err := LoadClaim(claimPath)
	if err != nil {
		return err
	}
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

	recorder := audit.NewMemoryRecorder()
	eng, err := engine.New(cfg, vocabulary, recorder, logger)
	if err != nil {
		return err
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "Analyzing: %s (%d items)\n", claimPath, len(items))
		if eng.LLMEnabled() {
			fmt.Fprintf(os.Stderr, "LLM fallback: %s/%s\n", llmProvider, llmModel)
		}
		fmt.Fprintln(os.Stderr)
	}

	result, err := eng.AnalyzeClaim(ctx, items, policy)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	renderer := engine.NewRenderer(!noFooter)
	if outJSON != "" {
		if err := renderer.RenderJSON(result, outJSON); err != nil {
			return fmt.Errorf("render JSON: %w", err)
		}
		if verbose {
			fmt.Printf("✓ Wrote JSON: %s\n", outJSON)
		}
	}
	if outMD != "" {
		if err := renderer.RenderMarkdown(result, outMD); err != nil {
			return fmt.Errorf("render markdown: %w", err)
		}
		if verbose {
			fmt.Printf("✓ Wrote Markdown: %s\n", outMD)
		}
	}
	if outAudit != "" {
		if err := writeAuditLog(recorder, outAudit); err != nil {
			return fmt.Errorf("write audit log: %w", err)
		}
	}

	renderer.RenderSummary(result)
	return nil
}

// loadVocabulary loads the vocabulary or, only on explicit request, the
// empty fail-open one. A missing --vocab without --empty-vocab is an error:
// silently running without terms would route every claim to review.
func loadVocabulary() (*vocab.Vocabulary, error) {
	if vocabPath != "" {
		return vocab.Load(vocabPath)
	}
	if emptyVocab {
		return vocab.Empty(), nil
	}
	return nil, fmt.Errorf("--vocab is required (or pass --empty-vocab explicitly)")
}

// buildConfig assembles the engine config from defaults, flags and env
func buildConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	cfg.StrictInvariants = strictMode
	cfg.Concurrency.LLMWorkers = llmWorkers
	cfg.Output.Verbose = verbose
	cfg.Output.IncludeFooter = !noFooter

	if llmEnabled {
		cfg.LLM.Provider = llmProvider
		cfg.LLM.Model = llmModel

		switch llmProvider {
		case "openai":
			cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
			if cfg.LLM.APIKey == "" {
				return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
			}
		case "ollama":
			// Ollama doesn't need an API key
			if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
				cfg.LLM.BaseURL = baseURL
			}
		}
	}
	return cfg, nil
}

// writeAuditLog dumps the recorded LLM invocations as JSON
func writeAuditLog(recorder *audit.MemoryRecorder, path string) error {
	data, err := json.MarshalIndent(recorder.Records(), "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
