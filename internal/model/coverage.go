package model

import "math"

// CoverageStatus is the terminal verdict for a line item
type CoverageStatus string

const (
	StatusCovered      CoverageStatus = "COVERED"
	StatusNotCovered   CoverageStatus = "NOT_COVERED"
	StatusReviewNeeded CoverageStatus = "REVIEW_NEEDED" // Routed to human review, never resolved silently
)

// MatchMethod identifies the cascade stage that produced a verdict
type MatchMethod string

const (
	MethodRule       MatchMethod = "rule"
	MethodPartNumber MatchMethod = "part_number"
	MethodKeyword    MatchMethod = "keyword"
	MethodLLM        MatchMethod = "llm"
)

// LineItemCoverage is the engine's per-item output. Exactly one terminal
// matcher stage creates it; only the claim-level resolver may adjust the
// status afterwards, and it must record the original verdict when it does.
type LineItemCoverage struct {
	Item LineItem `json:"item"`

	Status           CoverageStatus `json:"coverage_status"`
	Category         string         `json:"coverage_category,omitempty"`
	MatchedComponent string         `json:"matched_component,omitempty"`
	MatchMethod      MatchMethod    `json:"match_method"`
	Confidence       float64        `json:"match_confidence"` // [0,1]
	Reasoning        string         `json:"match_reasoning"`

	CoveredAmount    float64 `json:"covered_amount"`
	NotCoveredAmount float64 `json:"not_covered_amount"`

	// Set by the claim-level resolver on promotion/demotion so the
	// original cascade verdict stays auditable.
	OriginalStatus   CoverageStatus `json:"original_status,omitempty"`
	AdjustmentReason string         `json:"adjustment_reason,omitempty"`
}

// SetStatus assigns the verdict and splits the item total accordingly.
// A COVERED item carries its full price as covered; anything else carries
// the full price as not covered, which keeps the conservation invariant
// covered + not_covered == total.
func (c *LineItemCoverage) SetStatus(status CoverageStatus) {
	c.Status = status
	if status == StatusCovered {
		c.CoveredAmount = c.Item.TotalPrice
		c.NotCoveredAmount = 0
	} else {
		c.CoveredAmount = 0
		c.NotCoveredAmount = c.Item.TotalPrice
	}
}

// ConservationError returns the absolute drift between the amount split and
// the item total. Anything above a rounding epsilon is an internal defect.
func (c *LineItemCoverage) ConservationError() float64 {
	return math.Abs(c.CoveredAmount + c.NotCoveredAmount - c.Item.TotalPrice)
}

// RepairContext is derived once per claim from labor descriptions and used
// as a disambiguation hint and fallback signal.
type RepairContext struct {
	PrimaryComponent  string `json:"primary_component,omitempty"`
	PrimaryCategory   string `json:"primary_category,omitempty"`
	IsCovered         bool   `json:"is_covered"`
	SourceDescription string `json:"source_description,omitempty"`
}

// DeterminationMethod identifies which tier resolved the primary repair
type DeterminationMethod string

const (
	DeterminedByCoveredItem   DeterminationMethod = "covered_item"
	DeterminedByRepairContext DeterminationMethod = "repair_context"
	DeterminedByLLM           DeterminationMethod = "llm"
	DeterminedByNone          DeterminationMethod = "none"
)

// PrimaryRepairResult is the claim-level singleton naming the main repaired
// component. DeterminedByNone with confidence 0 means "refer to human".
type PrimaryRepairResult struct {
	Component           string              `json:"component,omitempty"`
	Category            string              `json:"category,omitempty"`
	IsCovered           bool                `json:"is_covered"`
	Confidence          float64             `json:"confidence"`
	DeterminationMethod DeterminationMethod `json:"determination_method"`
}

// CoverageSummary aggregates the per-item verdicts and the payout
type CoverageSummary struct {
	TotalAmount      float64 `json:"total_amount"`
	CoveredAmount    float64 `json:"covered_amount"`
	NotCoveredAmount float64 `json:"not_covered_amount"`
	ReviewAmount     float64 `json:"review_amount"`

	CoveredCount      int `json:"covered_count"`
	NotCoveredCount   int `json:"not_covered_count"`
	ReviewNeededCount int `json:"review_needed_count"`

	PayableAmount float64 `json:"payable_amount"`
}

// CoverageAnalysisResult is the aggregate returned for one claim run.
// Immutable once returned.
type CoverageAnalysisResult struct {
	Items         []LineItemCoverage  `json:"items"`
	RepairContext RepairContext       `json:"repair_context"`
	PrimaryRepair PrimaryRepairResult `json:"primary_repair"`
	Payout        PayoutResult        `json:"payout"`
	Summary       CoverageSummary     `json:"summary"`
}

// PayoutResult retains every intermediate of the payout formula so the final
// figure is auditable without re-deriving it.
type PayoutResult struct {
	CoveredSubtotal     float64 `json:"covered_subtotal"`
	TierPercent         float64 `json:"tier_percent"`
	AgeOverrideApplied  bool    `json:"age_override_applied"`
	GrossCovered        float64 `json:"gross_covered"`
	CapApplied          bool    `json:"cap_applied"`
	VATAmount           float64 `json:"vat_amount"`
	VATInclusive        float64 `json:"vat_inclusive"`
	Deductible          float64 `json:"deductible"`
	VATReclaimApplied   bool    `json:"vat_reclaim_applied"`
	VATReclaimUncertain bool    `json:"vat_reclaim_uncertain,omitempty"`
	Payable             float64 `json:"payable"`
}

// Round2 rounds a monetary amount to two decimals
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
