package match

import (
	"context"
	"fmt"
	"strings"

	"github.com/agnivade/levenshtein"
	"go.uber.org/zap"

	"github.com/Fr3nn3r/deckung/internal/model"
	"github.com/Fr3nn3r/deckung/internal/normalize"
	"github.com/Fr3nn3r/deckung/internal/vocab"
)

const (
	keywordBaseConfidence  = 0.80
	keywordExactConfidence = 0.90
	keywordFuzzyConfidence = 0.72
	crossCategoryFactor    = 0.95

	// fuzzyMinTermLen keeps edit-distance matching away from short terms,
	// where a single edit can turn one component into another.
	fuzzyMinTermLen = 6
)

// KeywordMatcher scans normalized descriptions against the multilingual
// term dictionary. Confidence range 0.70-0.90; matches below the acceptance
// threshold escalate instead of producing a weak verdict.
type KeywordMatcher struct {
	vocabulary *vocab.Vocabulary
	thresholds model.ThresholdConfig
	logger     *zap.Logger
}

// NewKeywordMatcher creates the keyword stage
func NewKeywordMatcher(v *vocab.Vocabulary, thresholds model.ThresholdConfig, logger *zap.Logger) *KeywordMatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KeywordMatcher{vocabulary: v, thresholds: thresholds, logger: logger}
}

// Name returns the stage name
func (m *KeywordMatcher) Name() string { return string(model.MethodKeyword) }

// candidate is one dictionary hit before coverage resolution
type candidate struct {
	term       string
	component  string
	category   string
	confidence float64
	source     string
}

// Evaluate resolves one item against the term dictionary with contextual
// disambiguation from sibling items.
func (m *KeywordMatcher) Evaluate(_ context.Context, in *Input) (*model.LineItemCoverage, error) {
	best := m.bestCandidate(in)
	if best == nil {
		return nil, nil
	}

	m.applyContextHints(in, best)

	// Gasket/seal indicators mark items that are usually ancillary to the
	// real repair, not the repaired component itself.
	if m.matchesGasketIndicator(in.Normalized) && !m.isGasketTerm(best.term) {
		best.confidence *= m.thresholds.GasketDowngrade
	}

	if best.confidence < m.thresholds.KeywordAccept {
		m.logger.Debug("keyword match below acceptance, escalating",
			zap.String("description", in.Item.Description),
			zap.String("term", best.term),
			zap.Float64("confidence", best.confidence))
		return nil, nil
	}

	return m.resolveCoverage(in, best), nil
}

// bestCandidate scans the keyword map, component synonyms and the
// distribution catch-all; the longest matching term wins (most specific).
// Ties break on confidence, then lexicographically on the normalized term:
// the dictionaries are maps, and a tie must never resolve by iteration order.
func (m *KeywordMatcher) bestCandidate(in *Input) *candidate {
	var best *candidate

	consider := func(c candidate) {
		if best == nil {
			cc := c
			best = &cc
			return
		}
		nc := normalize.Normalize(c.term)
		nb := normalize.Normalize(best.term)
		switch {
		case len(nc) != len(nb):
			if len(nc) < len(nb) {
				return
			}
		case c.confidence != best.confidence:
			if c.confidence < best.confidence {
				return
			}
		default:
			if nc >= nb {
				return
			}
		}
		cc := c
		best = &cc
	}

	for term, ref := range m.vocabulary.KeywordMap {
		if conf, ok := m.termConfidence(term, in.Normalized); ok {
			consider(candidate{term: term, component: ref.Component, category: ref.Category, confidence: conf, source: "keyword map"})
		}
	}

	for component, terms := range m.vocabulary.ComponentSynonyms {
		for _, term := range terms {
			if conf, ok := m.termConfidence(term, in.Normalized); ok {
				consider(candidate{
					term:       term,
					component:  component,
					category:   m.categoryOfComponent(in.Policy, component),
					confidence: conf,
					source:     "component synonym",
				})
			}
		}
	}

	if m.vocabulary.Distribution.Enabled {
		for _, term := range m.vocabulary.Distribution.Terms {
			if conf, ok := m.termConfidence(term, in.Normalized); ok {
				consider(candidate{
					term:       term,
					component:  term,
					category:   m.vocabulary.Distribution.Category,
					confidence: conf,
					source:     "distribution catch-all",
				})
			}
		}
	}

	return best
}

// termConfidence reports whether the term matches the normalized description
// and at what confidence. Exact full-description equality scores highest;
// fuzzy token matches (edit distance 1, long terms only) score lowest.
func (m *KeywordMatcher) termConfidence(term, normalized string) (float64, bool) {
	nt := normalize.Normalize(term)
	if nt == "" {
		return 0, false
	}
	if nt == normalized {
		return keywordExactConfidence, true
	}
	if normalize.TermMatches(term, normalized) {
		return keywordBaseConfidence, true
	}
	// Fuzzy tolerance for vendor spelling variants, single-token long terms only
	if len(nt) >= fuzzyMinTermLen && !strings.Contains(nt, " ") {
		for _, tok := range strings.Fields(normalized) {
			if len(tok) >= fuzzyMinTermLen && levenshtein.ComputeDistance(nt, tok) <= 1 {
				return keywordFuzzyConfidence, true
			}
		}
	}
	return 0, false
}

// applyContextHints disambiguates polysemous terms using nearby line items
// of the same claim (e.g. "ventil" near "hydraulik" prefers chassis, near
// "motor" prefers engine).
func (m *KeywordMatcher) applyContextHints(in *Input, c *candidate) {
	for _, hint := range m.vocabulary.ContextHints {
		if normalize.Normalize(hint.Term) != normalize.Normalize(c.term) {
			continue
		}
		for _, near := range hint.Near {
			if normalize.TermMatches(near, in.Normalized) || m.siblingMatches(in, near) {
				c.component = hint.Component
				c.category = hint.Category
				return
			}
		}
	}
}

func (m *KeywordMatcher) siblingMatches(in *Input, term string) bool {
	for i, sibling := range in.Siblings {
		if i == in.Index {
			continue
		}
		if normalize.TermMatches(term, sibling.Description) {
			return true
		}
	}
	return false
}

func (m *KeywordMatcher) matchesGasketIndicator(normalized string) bool {
	for _, indicator := range m.vocabulary.GasketIndicators {
		if normalize.TermMatches(indicator, normalized) {
			return true
		}
	}
	return false
}

func (m *KeywordMatcher) isGasketTerm(term string) bool {
	for _, indicator := range m.vocabulary.GasketIndicators {
		if normalize.Normalize(indicator) == normalize.Normalize(term) {
			return true
		}
	}
	return false
}

// categoryOfComponent finds which covered category lists the component.
// Empty when no covered category carries it.
func (m *KeywordMatcher) categoryOfComponent(policy *model.PolicyContext, component string) string {
	for _, category := range policy.CoveredCategories {
		for _, policyTerm := range policy.ComponentsFor(category) {
			if m.vocabulary.ComponentMatchesPolicyTerm(component, policyTerm) {
				return category
			}
		}
	}
	return ""
}

// resolveCoverage turns the winning candidate into a verdict against the
// policy lists, with a guarded cross-category rescue search.
func (m *KeywordMatcher) resolveCoverage(in *Input, c *candidate) *model.LineItemCoverage {
	v := newVerdict(in.Item, model.MethodKeyword)
	v.MatchedComponent = c.component
	v.Confidence = c.confidence

	category := m.vocabulary.CanonicalCategory(c.category)
	v.Category = category

	if category != "" && in.Policy.IsCategoryCovered(category) {
		for _, policyTerm := range in.Policy.ComponentsFor(category) {
			if m.vocabulary.ComponentMatchesPolicyTerm(c.component, policyTerm) {
				v.Reasoning = fmt.Sprintf("term %q (%s) matches covered component %q in %s", c.term, c.source, policyTerm, category)
				v.SetStatus(model.StatusCovered)
				return v
			}
		}
	}

	// Cross-category search: the term dictionary's category may not be the
	// one this policy files the component under. The same short-token guard
	// applies on both sides; skipping it here is how a brake-system
	// three-letter code once approved an exhaust repair.
	for _, other := range in.Policy.CoveredCategories {
		if other == category {
			continue
		}
		for _, policyTerm := range in.Policy.ComponentsFor(other) {
			if m.vocabulary.ComponentMatchesPolicyTerm(c.component, policyTerm) {
				v.Category = other
				v.Confidence = c.confidence * crossCategoryFactor
				v.Reasoning = fmt.Sprintf("term %q matches covered component %q under category %s", c.term, policyTerm, other)
				v.SetStatus(model.StatusCovered)
				return v
			}
		}
	}

	v.Reasoning = fmt.Sprintf("term %q identifies %q, component not in policy list", c.term, c.component)
	v.SetStatus(model.StatusNotCovered)
	return v
}
