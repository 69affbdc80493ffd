package match

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Fr3nn3r/deckung/internal/cache"
	"github.com/Fr3nn3r/deckung/internal/llm"
	"github.com/Fr3nn3r/deckung/internal/model"
)

// LLMMatcher is the last cascade stage: items no deterministic stage
// resolved go to the language model. It never returns an error to the
// cascade; any failure degrades the single item to REVIEW_NEEDED.
type LLMMatcher struct {
	classifier *llm.Classifier
	verdicts   cache.Cache
	cacheTTL   model.CacheConfig
	thresholds model.ThresholdConfig
	logger     *zap.Logger
}

// NewLLMMatcher creates the LLM fallback stage. verdictCache may be nil.
func NewLLMMatcher(classifier *llm.Classifier, verdictCache cache.Cache, cacheCfg model.CacheConfig, thresholds model.ThresholdConfig, logger *zap.Logger) *LLMMatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LLMMatcher{
		classifier: classifier,
		verdicts:   verdictCache,
		cacheTTL:   cacheCfg,
		thresholds: thresholds,
		logger:     logger,
	}
}

// Name returns the stage name
func (m *LLMMatcher) Name() string { return string(model.MethodLLM) }

// Enabled reports whether a provider is configured
func (m *LLMMatcher) Enabled() bool {
	return m.classifier.Enabled()
}

// Evaluate classifies one unresolved item. Always returns a verdict.
func (m *LLMMatcher) Evaluate(ctx context.Context, in *Input) (*model.LineItemCoverage, error) {
	if !m.Enabled() {
		return m.review(in, "no deterministic stage resolved the item and no LLM provider is configured"), nil
	}

	key := m.cacheKey(in)
	if cached, hit := m.cachedVerdict(key); hit {
		return m.applyThresholds(in, cached, true), nil
	}

	verdict, err := m.classifier.ClassifyItem(ctx, in.Item, in.Policy.CoveredComponents, in.CoveredSiblings)
	if err != nil {
		// Fail soft: the one item degrades, siblings keep going.
		m.logger.Warn("llm classification failed, degrading to review",
			zap.String("description", in.Item.Description),
			zap.Error(err))
		return m.review(in, fmt.Sprintf("llm classification failed: %v", err)), nil
	}

	m.storeVerdict(key, verdict)
	return m.applyThresholds(in, verdict, false), nil
}

// applyThresholds clamps the model's confidence and enforces the asymmetric
// acceptance thresholds: approving needs more confidence than denying, and
// anything below threshold becomes REVIEW_NEEDED regardless of the label.
func (m *LLMMatcher) applyThresholds(in *Input, verdict *llm.ItemVerdict, fromCache bool) *model.LineItemCoverage {
	v := newVerdict(in.Item, model.MethodLLM)
	v.MatchedComponent = verdict.Component
	v.Category = verdict.Category
	v.Reasoning = verdict.Reasoning
	if fromCache {
		v.Reasoning += " (cached verdict)"
	}

	conf := verdict.Confidence
	if conf < m.thresholds.LLMConfidenceFloor {
		conf = m.thresholds.LLMConfidenceFloor
	}
	if conf > m.thresholds.LLMConfidenceCap {
		conf = m.thresholds.LLMConfidenceCap
	}
	v.Confidence = conf

	switch model.CoverageStatus(verdict.Status) {
	case model.StatusCovered:
		// A COVERED claim for a category the policy does not list is a
		// hallucination, not a verdict.
		if verdict.Confidence >= m.thresholds.LLMCoveredAccept && m.categoryPlausible(in, verdict) {
			v.SetStatus(model.StatusCovered)
			return v
		}
	case model.StatusNotCovered:
		if verdict.Confidence >= m.thresholds.LLMNotCoveredAccept {
			v.SetStatus(model.StatusNotCovered)
			return v
		}
	}

	v.Reasoning = fmt.Sprintf("model said %s at %.2f, below acceptance threshold: %s", verdict.Status, verdict.Confidence, verdict.Reasoning)
	v.SetStatus(model.StatusReviewNeeded)
	return v
}

func (m *LLMMatcher) categoryPlausible(in *Input, verdict *llm.ItemVerdict) bool {
	if verdict.Category == "" {
		// Model matched a component without naming a category; leave the
		// claim-level resolver to anchor it.
		return true
	}
	return in.Policy.IsCategoryCovered(verdict.Category)
}

func (m *LLMMatcher) review(in *Input, reason string) *model.LineItemCoverage {
	v := newVerdict(in.Item, model.MethodLLM)
	v.Confidence = 0
	v.Reasoning = reason
	v.SetStatus(model.StatusReviewNeeded)
	return v
}

func (m *LLMMatcher) cacheKey(in *Input) string {
	fingerprint := cache.PolicyFingerprint(in.Policy.CoveredCategories, in.Policy.CoveredComponents, in.Policy.ExcludedComponents)
	return cache.VerdictKey(in.Normalized, string(in.Item.ItemType), fingerprint)
}

func (m *LLMMatcher) cachedVerdict(key string) (*llm.ItemVerdict, bool) {
	if m.verdicts == nil || !m.cacheTTL.Enabled {
		return nil, false
	}
	return m.verdicts.Get(key)
}

func (m *LLMMatcher) storeVerdict(key string, verdict *llm.ItemVerdict) {
	if m.verdicts == nil || !m.cacheTTL.Enabled {
		return
	}
	_ = m.verdicts.Set(key, verdict, m.cacheTTL.TTL)
}
