// Package resolve runs the claim-level arbitration that follows the
// per-item cascade: repair-context derivation, primary-repair
// determination, association review and labor promotion/demotion.
package resolve

import (
	"github.com/Fr3nn3r/deckung/internal/model"
	"github.com/Fr3nn3r/deckung/internal/normalize"
	"github.com/Fr3nn3r/deckung/internal/vocab"
)

// DeriveRepairContext infers the primary repaired component from labor
// descriptions. Labor lines name the repair being performed ("replace oil
// cooler") even when the associated parts carry opaque vendor names, so
// they are the best cheap signal for what the claim is about.
// Computed once per claim, before item-level resolution.
func DeriveRepairContext(items []model.LineItem, v *vocab.Vocabulary, policy *model.PolicyContext) model.RepairContext {
	var (
		best      model.RepairContext
		bestPrice float64
		found     bool
	)

	for _, item := range items {
		if !item.IsLabor() {
			continue
		}
		phrase := bestContextPhrase(v, item.Description)
		if phrase == "" {
			continue
		}
		// The most expensive matching labor position names the
		// main repair; small positions are ancillary.
		if found && item.TotalPrice <= bestPrice {
			continue
		}
		ref := v.RepairContextKeywords[phrase]
		category := v.CanonicalCategory(ref.Category)
		best = model.RepairContext{
			PrimaryComponent:  ref.Component,
			PrimaryCategory:   category,
			IsCovered:         componentCovered(v, policy, ref.Component, category),
			SourceDescription: item.Description,
		}
		bestPrice = item.TotalPrice
		found = true
	}

	return best
}

// bestContextPhrase picks the most specific matching context phrase for one
// labor description. The phrase table is a map; the tie-break is fixed so
// the derived context never depends on iteration order.
func bestContextPhrase(v *vocab.Vocabulary, description string) string {
	var best string
	for phrase := range v.RepairContextKeywords {
		if !normalize.TermMatches(phrase, description) {
			continue
		}
		if best == "" || normalize.MoreSpecific(phrase, best) {
			best = phrase
		}
	}
	return best
}

// componentCovered checks the component against the policy's covered list
// for the category, via synonym aliases and under the short-token guard.
func componentCovered(v *vocab.Vocabulary, policy *model.PolicyContext, component, category string) bool {
	if !policy.IsCategoryCovered(category) {
		return false
	}
	for _, policyTerm := range policy.ComponentsFor(category) {
		if v.ComponentMatchesPolicyTerm(component, policyTerm) {
			return true
		}
	}
	return false
}

// coveredAnywhere checks the component against every covered category
func coveredAnywhere(v *vocab.Vocabulary, policy *model.PolicyContext, component string) (string, bool) {
	for _, category := range policy.CoveredCategories {
		for _, policyTerm := range policy.ComponentsFor(category) {
			if v.ComponentMatchesPolicyTerm(component, policyTerm) {
				return category, true
			}
		}
	}
	return "", false
}
