package worker

import (
	"context"

	"github.com/Fr3nn3r/deckung/internal/model"
)

// Analyzer is the interface the batch processor needs from the engine
type Analyzer interface {
	AnalyzeClaim(ctx context.Context, items []model.LineItem, policy *model.PolicyContext) (*model.CoverageAnalysisResult, error)
}

// ClaimJob analyzes one claim file's items against a policy. Index is the
// claim's position in the submitted batch.
type ClaimJob struct {
	Index    int
	Path     string
	Items    []model.LineItem
	Policy   *model.PolicyContext
	Analyzer Analyzer
}

// Execute runs the analysis
func (j *ClaimJob) Execute(ctx context.Context) Result {
	result, err := j.Analyzer.AnalyzeClaim(ctx, j.Items, j.Policy)
	return &ClaimResult{
		Index:  j.Index,
		Path:   j.Path,
		Result: result,
		Err:    err,
	}
}

// ClaimResult is the outcome of one claim analysis
type ClaimResult struct {
	Index  int
	Path   string
	Result *model.CoverageAnalysisResult
	Err    error
}

// GetError returns the error from the claim analysis
func (r *ClaimResult) GetError() error {
	return r.Err
}

// BatchProcessor analyzes multiple claims concurrently
type BatchProcessor struct {
	analyzer    Analyzer
	concurrency int
}

// NewBatchProcessor creates a batch processor
func NewBatchProcessor(analyzer Analyzer, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		analyzer:    analyzer,
		concurrency: concurrency,
	}
}

// Claim couples one claim's items with its source path
type Claim struct {
	Path  string
	Items []model.LineItem
}

// Process analyzes all claims against the shared policy, preserving input
// order in the returned slice regardless of completion order.
func (b *BatchProcessor) Process(ctx context.Context, claims []Claim, policy *model.PolicyContext) []*ClaimResult {
	if len(claims) == 0 {
		return []*ClaimResult{}
	}

	pool := NewPool(b.concurrency)
	pool.Start()

	for i, claim := range claims {
		pool.Submit(&ClaimJob{
			Index:    i,
			Path:     claim.Path,
			Items:    claim.Items,
			Policy:   policy,
			Analyzer: b.analyzer,
		})
	}

	results := pool.Wait()

	// Pool results arrive in completion order; place each back at its
	// submission index. Keyed by index, not path, so two claims loaded
	// from the same path keep distinct results.
	ordered := make([]*ClaimResult, len(claims))
	for _, result := range results {
		cr := result.(*ClaimResult)
		ordered[cr.Index] = cr
	}
	return ordered
}
