// Package payout converts covered-item totals into the final payable
// amount: coverage tiers, VAT, deductible and caps, in a fixed step order.
package payout

import (
	"strings"

	"github.com/Fr3nn3r/deckung/internal/model"
)

// Compute runs the payout formula over the covered subtotal. Every
// intermediate lands in the result so the final figure is auditable.
//
// Step order is fixed: tier percent (with age override), cap, VAT,
// deductible, VAT reclaim, zero clamp.
func Compute(coveredSubtotal float64, policy *model.PolicyContext, cfg model.PayoutConfig) model.PayoutResult {
	result := model.PayoutResult{
		CoveredSubtotal: model.Round2(coveredSubtotal),
	}

	// 1-2. Coverage percent from the mileage scale, with the age override
	// when the selected tier defines an age rate.
	percent, ageApplied := effectivePercent(policy)
	result.TierPercent = percent
	result.AgeOverrideApplied = ageApplied

	gross := coveredSubtotal * percent / 100

	// 3-4. Cap at the policy maximum.
	if policy.MaxCoverage > 0 && gross > policy.MaxCoverage {
		gross = policy.MaxCoverage
		result.CapApplied = true
	}
	result.GrossCovered = model.Round2(gross)

	// 5. VAT on the capped gross amount.
	vat := gross * policy.VATRate
	vatInclusive := gross + vat
	result.VATAmount = model.Round2(vat)
	result.VATInclusive = model.Round2(vatInclusive)

	// 6. Deductible: percentage of the VAT-inclusive amount with a floor.
	deductible := policy.ExcessPercent * vatInclusive
	if deductible < policy.ExcessMinimum {
		deductible = policy.ExcessMinimum
	}
	result.Deductible = model.Round2(deductible)

	// 7. Subtract deductible.
	payable := vatInclusive - deductible

	// 8. Companies reclaim VAT, so the VAT share is removed again.
	company, uncertain := isCompany(policy.PolicyholderName, cfg.VATReclaim)
	result.VATReclaimUncertain = uncertain
	if company && payable > 0 {
		payable = payable / (1 + policy.VATRate)
		result.VATReclaimApplied = true
	}

	if payable < 0 {
		payable = 0
	}
	result.Payable = model.Round2(payable)
	return result
}

// effectivePercent selects the coverage tier whose km threshold is the
// highest one not above the vehicle's mileage. Below the first threshold
// coverage is 100%. When the vehicle is past the age threshold and the
// selected tier defines an age rate, the age rate replaces the mileage
// rate. A tier without an age rate keeps its mileage percent; there is no
// flat age fallback.
func effectivePercent(policy *model.PolicyContext) (float64, bool) {
	var selected *model.CoverageTier
	for i := range policy.CoverageScale {
		tier := &policy.CoverageScale[i]
		if policy.VehicleKM >= tier.KMThreshold {
			if selected == nil || tier.KMThreshold > selected.KMThreshold {
				selected = tier
			}
		}
	}
	if selected == nil {
		return 100, false
	}

	if policy.AgeThresholdYears != nil &&
		policy.VehicleAgeYears >= *policy.AgeThresholdYears &&
		selected.AgeCoveragePercent != nil {
		return *selected.AgeCoveragePercent, true
	}
	return selected.CoveragePercent, false
}

// legalEntitySuffixes are the Swiss/German/French company-form markers the
// heuristic looks for. Name-suffix matching is not authoritative; the
// auto mode flags close calls instead of guessing.
var legalEntitySuffixes = []string{
	"gmbh", "ag", "sa", "sarl", "sàrl", "snc", "klg", "kg",
	"gmbh & co kg", "se", "ltd", "llc", "inc",
}

// isCompany applies the configured VAT-reclaim mode. In auto mode the
// policyholder name is checked for a legal-entity suffix; an empty name is
// uncertain and treated as an individual (VAT stays in the payout).
func isCompany(policyholder string, mode model.VATReclaimMode) (company bool, uncertain bool) {
	switch mode {
	case model.VATReclaimAlways:
		return true, false
	case model.VATReclaimNever:
		return false, false
	}

	name := strings.ToLower(strings.TrimSpace(policyholder))
	if name == "" {
		return false, true
	}

	// Suffix check on the last tokens so "Garage Müller AG" hits but
	// "Agathe Muster" does not.
	name = strings.Trim(name, ".")
	for _, suffix := range legalEntitySuffixes {
		if name == suffix || strings.HasSuffix(name, " "+suffix) || strings.HasSuffix(name, " "+suffix+".") {
			return true, false
		}
	}
	return false, false
}
