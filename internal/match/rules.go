package match

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Fr3nn3r/deckung/internal/model"
	"github.com/Fr3nn3r/deckung/internal/vocab"
)

// RuleMatcher is the first, zero-cost cascade stage: deterministic pattern
// rules for items that are always excluded. It only ever produces
// NOT_COVERED, always at confidence 1.0, and returns no verdict otherwise.
type RuleMatcher struct {
	vocabulary *vocab.Vocabulary
	logger     *zap.Logger
}

// NewRuleMatcher creates the rule stage
func NewRuleMatcher(v *vocab.Vocabulary, logger *zap.Logger) *RuleMatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RuleMatcher{vocabulary: v, logger: logger}
}

// Name returns the stage name
func (m *RuleMatcher) Name() string { return string(model.MethodRule) }

// Evaluate applies, in order: fee short-circuit, exclusion patterns,
// consumable patterns.
func (m *RuleMatcher) Evaluate(_ context.Context, in *Input) (*model.LineItemCoverage, error) {
	if in.Item.IsFee() {
		return m.deny(in, "administrative fees are never covered"), nil
	}

	for i := range m.vocabulary.ExclusionPatterns {
		rule := &m.vocabulary.ExclusionPatterns[i]
		if rule.Matches(in.Normalized) {
			m.logger.Debug("exclusion rule fired",
				zap.String("rule", rule.Label),
				zap.String("description", in.Item.Description))
			return m.deny(in, fmt.Sprintf("matches exclusion rule %q", rule.Label)), nil
		}
	}

	for i := range m.vocabulary.ConsumablePatterns {
		rule := &m.vocabulary.ConsumablePatterns[i]
		if rule.Matches(in.Normalized) {
			return m.deny(in, fmt.Sprintf("consumable (%s)", rule.Label)), nil
		}
	}

	return nil, nil
}

func (m *RuleMatcher) deny(in *Input, reason string) *model.LineItemCoverage {
	v := newVerdict(in.Item, model.MethodRule)
	v.Confidence = 1.0
	v.Reasoning = reason
	v.SetStatus(model.StatusNotCovered)
	return v
}
