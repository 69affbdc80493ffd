package match

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Fr3nn3r/deckung/internal/model"
	"github.com/Fr3nn3r/deckung/internal/normalize"
	"github.com/Fr3nn3r/deckung/internal/vocab"
)

const partNumberConfidence = 0.95

// PartNumberMatcher resolves items through the policy-independent
// part-number catalog. A catalog hit names the component exactly, but the
// verdict still depends on whether the policy covers that component.
type PartNumberMatcher struct {
	vocabulary *vocab.Vocabulary
	config     model.PartNumberConfig
	logger     *zap.Logger
}

// NewPartNumberMatcher creates the part-number stage
func NewPartNumberMatcher(v *vocab.Vocabulary, cfg model.PartNumberConfig, logger *zap.Logger) *PartNumberMatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PartNumberMatcher{vocabulary: v, config: cfg, logger: logger}
}

// Name returns the stage name
func (m *PartNumberMatcher) Name() string { return string(model.MethodPartNumber) }

// Evaluate looks the catalog code up by normalized form, then falls back to
// a catalog-keyword scan of the description before yielding.
func (m *PartNumberMatcher) Evaluate(_ context.Context, in *Input) (*model.LineItemCoverage, error) {
	if in.Item.PartCode != "" {
		code := normalize.Code(in.Item.PartCode)
		if ref, ok := m.vocabulary.Parts.ByPartNumber[code]; ok {
			return m.resolve(in, ref, fmt.Sprintf("catalog part number %s", code)), nil
		}
	}

	// Secondary lookup: catalog keywords inside the description. When
	// several keywords match, the most specific one wins; the tie-break is
	// fixed so the verdict never depends on map iteration order.
	var bestKeyword string
	for keyword := range m.vocabulary.Parts.ByKeyword {
		if !normalize.TermMatches(keyword, in.Item.Description) {
			continue
		}
		if bestKeyword == "" || normalize.MoreSpecific(keyword, bestKeyword) {
			bestKeyword = keyword
		}
	}
	if bestKeyword != "" {
		ref := m.vocabulary.Parts.ByKeyword[bestKeyword]
		return m.resolve(in, ref, fmt.Sprintf("catalog keyword %q", bestKeyword)), nil
	}

	return nil, nil
}

// resolve turns a catalog hit into a verdict against the policy lists
func (m *PartNumberMatcher) resolve(in *Input, ref vocab.ComponentRef, source string) *model.LineItemCoverage {
	v := newVerdict(in.Item, model.MethodPartNumber)
	v.MatchedComponent = ref.Component
	v.Confidence = partNumberConfidence

	category := m.vocabulary.CanonicalCategory(ref.Category)
	v.Category = category

	if in.Policy.IsCategoryCovered(category) && m.componentInList(ref.Component, in.Policy.ComponentsFor(category)) {
		v.Reasoning = fmt.Sprintf("%s resolves to covered component %q (%s)", source, ref.Component, category)
		v.SetStatus(model.StatusCovered)
		return v
	}

	v.Reasoning = fmt.Sprintf("%s resolves to %q, component not in policy list", source, ref.Component)
	if m.config.ExtensionMatching {
		// Lowered confidence keeps the door open for claim-level
		// association reasoning instead of a hard deterministic denial.
		v.Confidence = m.config.ExtensionConfidence
	}
	v.SetStatus(model.StatusNotCovered)
	return v
}

// componentInList checks policy membership directly or via synonym aliases
func (m *PartNumberMatcher) componentInList(component string, policyList []string) bool {
	for _, policyTerm := range policyList {
		if m.vocabulary.ComponentMatchesPolicyTerm(component, policyTerm) {
			return true
		}
	}
	return false
}
