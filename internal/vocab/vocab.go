// Package vocab loads the customer-specific component vocabulary: synonym
// tables, exclusion patterns, keyword mappings and part-number catalogs.
// All of it is data, not code: per-tenant vocabulary changes must never
// require a deployment.
package vocab

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/Fr3nn3r/deckung/internal/normalize"
)

// PatternRule is one deterministic exclusion or consumable rule. Each rule
// carries its regular expressions per language; a rule missing one of the
// supported languages is rejected at load time, because an asymmetric rule
// set silently stops firing on half the estimates.
type PatternRule struct {
	Label    string            `yaml:"label"`
	Patterns map[string]string `yaml:"patterns"` // language code -> regex

	compiled []*regexp.Regexp
}

// Matches reports whether any language variant of the rule matches the
// normalized description
func (r *PatternRule) Matches(normalized string) bool {
	for _, re := range r.compiled {
		if re.MatchString(normalized) {
			return true
		}
	}
	return false
}

// ContextHint disambiguates a polysemous term: when Term appears near any of
// the Near terms (in the same or a sibling line item), it maps to the given
// component and category.
type ContextHint struct {
	Term      string   `yaml:"term"`
	Near      []string `yaml:"near"`
	Component string   `yaml:"component"`
	Category  string   `yaml:"category"`
}

// ComponentRef names a component and the category it belongs to
type ComponentRef struct {
	Component string `yaml:"component"`
	Category  string `yaml:"category"`
}

// PartCatalog maps vendor part numbers and catalog keywords to components
type PartCatalog struct {
	ByPartNumber map[string]ComponentRef `yaml:"by_part_number"`
	ByKeyword    map[string]ComponentRef `yaml:"by_keyword"`
}

// DistributionCatchAll optionally routes generic distribution terms
// (timing chains, belts, tensioners) into one configured category.
type DistributionCatchAll struct {
	Enabled  bool     `yaml:"enabled"`
	Category string   `yaml:"category"`
	Terms    []string `yaml:"terms"`
}

// Vocabulary is the full per-tenant matching vocabulary
type Vocabulary struct {
	ComponentSynonyms     map[string][]string     `yaml:"component_synonyms"` // component -> multilingual terms
	CategoryAliases       map[string]string       `yaml:"category_aliases"`   // alias -> canonical category
	KeywordMap            map[string]ComponentRef `yaml:"keyword_map"`        // term -> component/category
	RepairContextKeywords map[string]ComponentRef `yaml:"repair_context_keywords"`
	ContextHints          []ContextHint           `yaml:"context_hints"`
	GasketIndicators      []string                `yaml:"gasket_indicators"`
	ExclusionPatterns     []PatternRule           `yaml:"exclusion_patterns"`
	ConsumablePatterns    []PatternRule           `yaml:"consumable_patterns"`
	Parts                 PartCatalog             `yaml:"part_numbers"`
	Distribution          DistributionCatchAll    `yaml:"distribution_catch_all"`
}

// languages that every pattern rule must cover
var requiredLanguages = []string{"de", "fr"}

// Load reads and validates a vocabulary file. Any problem is fatal to the
// caller: a silently empty vocabulary would push every item to review.
func Load(path string) (*Vocabulary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read vocabulary: %w", err)
	}

	var v Vocabulary
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("parse vocabulary: %w", err)
	}

	if err := v.Validate(); err != nil {
		return nil, fmt.Errorf("validate vocabulary %s: %w", path, err)
	}
	return &v, nil
}

// Empty returns a vocabulary with no entries. It is an explicit opt-in for
// tenants without a curated vocabulary: with it the deterministic stages
// resolve nothing and every non-fee item escalates to the LLM stage or
// REVIEW_NEEDED. It must never be the silent fallback for a failed load.
func Empty() *Vocabulary {
	return &Vocabulary{
		ComponentSynonyms:     map[string][]string{},
		CategoryAliases:       map[string]string{},
		KeywordMap:            map[string]ComponentRef{},
		RepairContextKeywords: map[string]ComponentRef{},
		Parts: PartCatalog{
			ByPartNumber: map[string]ComponentRef{},
			ByKeyword:    map[string]ComponentRef{},
		},
	}
}

// Validate compiles all patterns and checks structural rules
func (v *Vocabulary) Validate() error {
	for i := range v.ExclusionPatterns {
		if err := compileRule(&v.ExclusionPatterns[i]); err != nil {
			return fmt.Errorf("exclusion rule %q: %w", v.ExclusionPatterns[i].Label, err)
		}
	}
	for i := range v.ConsumablePatterns {
		if err := compileRule(&v.ConsumablePatterns[i]); err != nil {
			return fmt.Errorf("consumable rule %q: %w", v.ConsumablePatterns[i].Label, err)
		}
	}

	// A synonym term pointing at two components would make matches
	// order-dependent.
	seen := make(map[string]string)
	for component, terms := range v.ComponentSynonyms {
		for _, term := range terms {
			n := normalize.Normalize(term)
			if prev, dup := seen[n]; dup && prev != component {
				return fmt.Errorf("synonym %q maps to both %q and %q", term, prev, component)
			}
			seen[n] = component
		}
	}

	if v.Distribution.Enabled && v.Distribution.Category == "" {
		return fmt.Errorf("distribution_catch_all enabled without a category")
	}
	return nil
}

func compileRule(r *PatternRule) error {
	if r.Label == "" {
		return fmt.Errorf("rule without label")
	}
	for _, lang := range requiredLanguages {
		if _, ok := r.Patterns[lang]; !ok {
			return fmt.Errorf("missing %q pattern (rules must cover all supported languages)", lang)
		}
	}
	r.compiled = r.compiled[:0]
	for lang, pattern := range r.Patterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return fmt.Errorf("compile %s pattern: %w", lang, err)
		}
		r.compiled = append(r.compiled, re)
	}
	return nil
}

// CanonicalCategory resolves a category alias to its canonical name
func (v *Vocabulary) CanonicalCategory(category string) string {
	if canonical, ok := v.CategoryAliases[normalize.Normalize(category)]; ok {
		return canonical
	}
	return category
}

// SynonymsOf returns the component's term list including the component name
// itself
func (v *Vocabulary) SynonymsOf(component string) []string {
	terms := []string{component}
	terms = append(terms, v.ComponentSynonyms[component]...)
	return terms
}

// ComponentMatchesPolicyTerm reports whether a matched component corresponds
// to a policy-list term, directly or through a synonym alias. Both sides go
// through the short-token guard.
func (v *Vocabulary) ComponentMatchesPolicyTerm(component, policyTerm string) bool {
	if normalize.Normalize(component) == normalize.Normalize(policyTerm) {
		return true
	}
	for _, syn := range v.SynonymsOf(component) {
		if normalize.Normalize(syn) == normalize.Normalize(policyTerm) {
			return true
		}
		if normalize.TermMatches(syn, policyTerm) || normalize.TermMatches(policyTerm, syn) {
			return true
		}
	}
	return false
}
