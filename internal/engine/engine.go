// Package engine wires the cascade, the claim-level resolver and the payout
// calculator into the per-claim analysis entry point.
package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Fr3nn3r/deckung/internal/audit"
	"github.com/Fr3nn3r/deckung/internal/cache"
	"github.com/Fr3nn3r/deckung/internal/llm"
	"github.com/Fr3nn3r/deckung/internal/match"
	"github.com/Fr3nn3r/deckung/internal/model"
	"github.com/Fr3nn3r/deckung/internal/payout"
	"github.com/Fr3nn3r/deckung/internal/resolve"
	"github.com/Fr3nn3r/deckung/internal/vocab"
)

// conservationEpsilon is the rounding drift tolerated before an amount
// split counts as an invariant violation.
const conservationEpsilon = 0.01

// Engine analyzes one claim at a time. It holds no per-claim state: each
// AnalyzeClaim call is an independent, stateless invocation.
type Engine struct {
	config     *model.Config
	vocabulary *vocab.Vocabulary
	classifier *llm.Classifier
	cascade    *match.Cascade
	resolver   *resolve.Resolver
	logger     *zap.Logger
}

// New assembles an engine from configuration. A configuration problem
// (unknown provider, invalid vocabulary) is fatal here, at startup, not at
// claim time.
func New(cfg *model.Config, vocabulary *vocab.Vocabulary, recorder audit.Recorder, logger *zap.Logger) (*Engine, error) {
	if vocabulary == nil {
		return nil, fmt.Errorf("vocabulary is required (use vocab.Empty() to opt into fail-open review routing)")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	provider, err := llm.NewProvider(llm.ConfigFromModel(cfg.LLM))
	if err != nil {
		return nil, fmt.Errorf("init llm provider: %w", err)
	}
	classifier := llm.NewClassifier(provider, recorder, cfg.LLM, logger)

	var verdictCache cache.Cache
	if cfg.Cache.Enabled {
		verdictCache = cache.NewMemoryCache(cfg.Cache.TTL, cfg.Cache.TTL)
	}

	deterministic := []match.Matcher{
		match.NewRuleMatcher(vocabulary, logger),
		match.NewPartNumberMatcher(vocabulary, cfg.PartNumber, logger),
		match.NewKeywordMatcher(vocabulary, cfg.Thresholds, logger),
	}
	fallback := match.NewLLMMatcher(classifier, verdictCache, cfg.Cache, cfg.Thresholds, logger)

	return &Engine{
		config:     cfg,
		vocabulary: vocabulary,
		classifier: classifier,
		cascade:    match.NewCascade(deterministic, fallback, cfg.Concurrency.LLMWorkers, logger),
		resolver:   resolve.NewResolver(vocabulary, classifier, cfg.Thresholds, logger),
		logger:     logger,
	}, nil
}

// LLMEnabled reports whether the fallback matcher has a provider
func (e *Engine) LLMEnabled() bool {
	return e.classifier.Enabled()
}

// AnalyzeClaim produces the coverage analysis for one claim. The result is
// complete and immutable once returned; every input item receives exactly
// one terminal verdict.
func (e *Engine) AnalyzeClaim(ctx context.Context, items []model.LineItem, policy *model.PolicyContext) (*model.CoverageAnalysisResult, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("claim has no line items")
	}
	if policy == nil {
		return nil, fmt.Errorf("policy context is required")
	}

	// 1. Derive the repair context from labor descriptions
	repairContext := resolve.DeriveRepairContext(items, e.vocabulary, policy)

	// 2. Cascade: one terminal verdict per item
	coverages, err := e.cascade.Evaluate(ctx, items, policy, &repairContext)
	if err != nil {
		return nil, fmt.Errorf("cascade: %w", err)
	}

	// 3. Claim-level arbitration
	primary := e.resolver.Resolve(ctx, items, coverages, policy, repairContext)

	// 4. Conservation invariant: covered + not_covered == total per item
	if err := e.checkConservation(coverages); err != nil {
		return nil, err
	}

	// 5. Payout over the covered subtotal
	var coveredSubtotal float64
	for _, c := range coverages {
		coveredSubtotal += c.CoveredAmount
	}
	payoutResult := payout.Compute(coveredSubtotal, policy, e.config.Payout)

	// 6. Aggregate
	result := &model.CoverageAnalysisResult{
		Items:         coverages,
		RepairContext: repairContext,
		PrimaryRepair: primary,
		Payout:        payoutResult,
		Summary:       summarize(coverages, payoutResult),
	}

	e.logger.Info("claim analyzed",
		zap.Int("items", len(items)),
		zap.Int("covered", result.Summary.CoveredCount),
		zap.Int("not_covered", result.Summary.NotCoveredCount),
		zap.Int("review", result.Summary.ReviewNeededCount),
		zap.String("primary", primary.Component),
		zap.Float64("payable", payoutResult.Payable))

	return result, nil
}

// checkConservation verifies the amount-split invariant. In strict mode a
// violation raises; in production it clamps the split and logs.
func (e *Engine) checkConservation(coverages []model.LineItemCoverage) error {
	for i := range coverages {
		c := &coverages[i]
		if c.ConservationError() <= conservationEpsilon {
			continue
		}
		if e.config.StrictInvariants {
			return fmt.Errorf("conservation violated for %q: covered %.2f + not covered %.2f != total %.2f",
				c.Item.Description, c.CoveredAmount, c.NotCoveredAmount, c.Item.TotalPrice)
		}
		e.logger.Error("conservation violated, clamping",
			zap.String("description", c.Item.Description),
			zap.Float64("covered", c.CoveredAmount),
			zap.Float64("not_covered", c.NotCoveredAmount),
			zap.Float64("total", c.Item.TotalPrice))
		c.SetStatus(c.Status)
	}
	return nil
}

// summarize aggregates totals and counts by status
func summarize(coverages []model.LineItemCoverage, p model.PayoutResult) model.CoverageSummary {
	var s model.CoverageSummary
	for _, c := range coverages {
		s.TotalAmount += c.Item.TotalPrice
		switch c.Status {
		case model.StatusCovered:
			s.CoveredAmount += c.CoveredAmount
			s.CoveredCount++
		case model.StatusNotCovered:
			s.NotCoveredAmount += c.NotCoveredAmount
			s.NotCoveredCount++
		case model.StatusReviewNeeded:
			s.ReviewAmount += c.Item.TotalPrice
			s.ReviewNeededCount++
		}
	}
	s.TotalAmount = model.Round2(s.TotalAmount)
	s.CoveredAmount = model.Round2(s.CoveredAmount)
	s.NotCoveredAmount = model.Round2(s.NotCoveredAmount)
	s.ReviewAmount = model.Round2(s.ReviewAmount)
	s.PayableAmount = p.Payable
	return s
}
