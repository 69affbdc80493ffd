package model

// CoverageTier is one step of the mileage-based coverage scale.
// Tiers are ordered by ascending KMThreshold; the selected tier is the one
// with the highest threshold that does not exceed the vehicle's mileage.
type CoverageTier struct {
	KMThreshold        int      `json:"km_threshold" yaml:"km_threshold"`
	CoveragePercent    float64  `json:"coverage_percent" yaml:"coverage_percent"`
	AgeCoveragePercent *float64 `json:"age_coverage_percent,omitempty" yaml:"age_coverage_percent,omitempty"`
}

// PolicyContext holds the warranty/insurance terms a claim is evaluated
// against. Loaded once per claim, read-only during analysis.
type PolicyContext struct {
	CoveredCategories  []string            `json:"covered_categories" yaml:"covered_categories"`
	CoveredComponents  map[string][]string `json:"covered_components" yaml:"covered_components"` // category -> component list
	ExcludedComponents []string            `json:"excluded_components" yaml:"excluded_components"`

	CoverageScale     []CoverageTier `json:"coverage_scale" yaml:"coverage_scale"`
	AgeThresholdYears *float64       `json:"age_threshold_years,omitempty" yaml:"age_threshold_years,omitempty"`
	MaxCoverage       float64        `json:"max_coverage" yaml:"max_coverage"`
	ExcessPercent     float64        `json:"excess_percent" yaml:"excess_percent"` // e.g. 0.10
	ExcessMinimum     float64        `json:"excess_minimum" yaml:"excess_minimum"`
	VATRate           float64        `json:"vat_rate" yaml:"vat_rate"` // e.g. 0.081

	VehicleKM       int     `json:"vehicle_km" yaml:"vehicle_km"`
	VehicleAgeYears float64 `json:"vehicle_age_years" yaml:"vehicle_age_years"`

	PolicyholderName string `json:"policyholder_name,omitempty" yaml:"policyholder_name,omitempty"`
}

// IsCategoryCovered reports whether the category appears in the policy's
// covered list
func (p *PolicyContext) IsCategoryCovered(category string) bool {
	for _, c := range p.CoveredCategories {
		if c == category {
			return true
		}
	}
	return false
}

// ComponentsFor returns the covered component list for a category
func (p *PolicyContext) ComponentsFor(category string) []string {
	if p.CoveredComponents == nil {
		return nil
	}
	return p.CoveredComponents[category]
}

// IsComponentExcluded reports whether the component is explicitly excluded
func (p *PolicyContext) IsComponentExcluded(component string) bool {
	for _, c := range p.ExcludedComponents {
		if c == component {
			return true
		}
	}
	return false
}
