package model

import "time"

// Config is the engine configuration. All tunables live here so per-tenant
// adjustments never require a code change.
type Config struct {
	Thresholds  ThresholdConfig   `json:"thresholds" yaml:"thresholds"`
	LLM         LLMConfig         `json:"llm" yaml:"llm"`
	Concurrency ConcurrencyConfig `json:"concurrency" yaml:"concurrency"`
	Cache       CacheConfig       `json:"cache" yaml:"cache"`
	PartNumber  PartNumberConfig  `json:"part_number" yaml:"part_number"`
	Payout      PayoutConfig      `json:"payout" yaml:"payout"`
	Output      OutputConfig      `json:"output" yaml:"output"`

	// StrictInvariants makes internal-defect checks (e.g. amount
	// conservation) fail loudly instead of clamping. On in tests and dev,
	// off in production.
	StrictInvariants bool `json:"strict_invariants" yaml:"strict_invariants"`
}

// ThresholdConfig holds the confidence acceptance thresholds
type ThresholdConfig struct {
	// KeywordAccept is the minimum keyword-match confidence accepted as a
	// verdict; weaker matches escalate to the next stage.
	KeywordAccept float64 `json:"keyword_accept" yaml:"keyword_accept"`

	// LLMCoveredAccept is the minimum model confidence for a COVERED
	// verdict to stand. Deliberately higher than the denial threshold:
	// auto-approval is the costlier mistake.
	LLMCoveredAccept float64 `json:"llm_covered_accept" yaml:"llm_covered_accept"`

	// LLMNotCoveredAccept is the minimum model confidence for a
	// NOT_COVERED verdict to stand; denials route to human review
	// downstream anyway.
	LLMNotCoveredAccept float64 `json:"llm_not_covered_accept" yaml:"llm_not_covered_accept"`

	// LLMConfidenceFloor / LLMConfidenceCap clamp whatever confidence the
	// model claims for itself.
	LLMConfidenceFloor float64 `json:"llm_confidence_floor" yaml:"llm_confidence_floor"`
	LLMConfidenceCap   float64 `json:"llm_confidence_cap" yaml:"llm_confidence_cap"`

	// GasketDowngrade multiplies keyword-match confidence when the
	// description also matches a gasket/seal indicator.
	GasketDowngrade float64 `json:"gasket_downgrade" yaml:"gasket_downgrade"`
}

// LLMConfig configures the fallback matcher's model client
type LLMConfig struct {
	Provider    string        `json:"provider" yaml:"provider"` // openai, ollama, "" = disabled
	Model       string        `json:"model" yaml:"model"`
	APIKey      string        `json:"-" yaml:"-"`
	BaseURL     string        `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Temperature float32       `json:"temperature" yaml:"temperature"`
	MaxTokens   int           `json:"max_tokens" yaml:"max_tokens"`
	Timeout     time.Duration `json:"timeout" yaml:"timeout"`
	MaxRetries  int           `json:"max_retries" yaml:"max_retries"`

	// RatePerSecond bounds outbound calls across workers
	RatePerSecond float64 `json:"rate_per_second" yaml:"rate_per_second"`
	RateBurst     int     `json:"rate_burst" yaml:"rate_burst"`
}

// ConcurrencyConfig bounds the per-claim LLM fan-out and batch processing
type ConcurrencyConfig struct {
	LLMWorkers   int `json:"llm_workers" yaml:"llm_workers"`
	BatchWorkers int `json:"batch_workers" yaml:"batch_workers"`
}

// CacheConfig controls the LLM verdict cache
type CacheConfig struct {
	Enabled bool          `json:"enabled" yaml:"enabled"`
	TTL     time.Duration `json:"ttl" yaml:"ttl"`
}

// PartNumberConfig controls how catalog hits outside the policy's covered
// list are treated. Strict mode denies at full confidence; extension mode
// lowers the confidence so claim-level reasoning can still rescue the item.
type PartNumberConfig struct {
	ExtensionMatching   bool    `json:"extension_matching" yaml:"extension_matching"`
	ExtensionConfidence float64 `json:"extension_confidence" yaml:"extension_confidence"`
}

// VATReclaimMode selects how company policyholders are detected for the
// VAT-reclaim deduction
type VATReclaimMode string

const (
	VATReclaimAuto   VATReclaimMode = "auto"   // Legal-entity suffix heuristic
	VATReclaimAlways VATReclaimMode = "always" // Treat holder as a company
	VATReclaimNever  VATReclaimMode = "never"  // Treat holder as an individual
)

// PayoutConfig holds payout-step options
type PayoutConfig struct {
	VATReclaim VATReclaimMode `json:"vat_reclaim" yaml:"vat_reclaim"`
}

// OutputConfig controls report rendering
type OutputConfig struct {
	Verbose       bool `json:"verbose" yaml:"verbose"`
	IncludeFooter bool `json:"include_footer" yaml:"include_footer"`
}

// DefaultConfig returns the engine defaults
func DefaultConfig() *Config {
	return &Config{
		Thresholds: ThresholdConfig{
			KeywordAccept:       0.70,
			LLMCoveredAccept:    0.60,
			LLMNotCoveredAccept: 0.40,
			LLMConfidenceFloor:  0.40,
			LLMConfidenceCap:    0.85,
			GasketDowngrade:     0.85,
		},
		LLM: LLMConfig{
			Provider:      "", // Disabled by default
			Model:         "",
			Temperature:   0.1,
			MaxTokens:     600,
			Timeout:       30 * time.Second,
			MaxRetries:    3,
			RatePerSecond: 5,
			RateBurst:     5,
		},
		Concurrency: ConcurrencyConfig{
			LLMWorkers:   4,
			BatchWorkers: 4,
		},
		Cache: CacheConfig{
			Enabled: true,
			TTL:     1 * time.Hour,
		},
		PartNumber: PartNumberConfig{
			ExtensionMatching:   false,
			ExtensionConfidence: 0.55,
		},
		Payout: PayoutConfig{
			VATReclaim: VATReclaimAuto,
		},
		Output: OutputConfig{
			Verbose:       false,
			IncludeFooter: true,
		},
	}
}
