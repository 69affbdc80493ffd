// Package cache memoizes LLM verdicts. Estimates from the same garage repeat
// the same line wordings; re-asking the model for an identical description
// under an identical policy wastes tokens and latency.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/Fr3nn3r/deckung/internal/llm"
)

// Cache defines the interface for verdict caching
type Cache interface {
	Get(key string) (*llm.ItemVerdict, bool)
	Set(key string, verdict *llm.ItemVerdict, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// VerdictKey derives a cache key from the normalized item description, item
// type and the policy fingerprint. Two tenants with different policies never
// share entries.
func VerdictKey(normalizedDescription, itemType, policyFingerprint string) string {
	h := sha256.Sum256([]byte(normalizedDescription + "\x00" + itemType + "\x00" + policyFingerprint))
	return "deckung:v1:" + hex.EncodeToString(h[:])
}

// PolicyFingerprint hashes the coverage-relevant parts of a policy so cache
// keys change whenever the covered lists change.
func PolicyFingerprint(coveredCategories []string, coveredComponents map[string][]string, excluded []string) string {
	cats := append([]string(nil), coveredCategories...)
	sort.Strings(cats)

	comps := make([]string, 0, len(coveredComponents))
	for category, list := range coveredComponents {
		sorted := append([]string(nil), list...)
		sort.Strings(sorted)
		comps = append(comps, category+"="+strings.Join(sorted, ","))
	}
	sort.Strings(comps)

	excl := append([]string(nil), excluded...)
	sort.Strings(excl)

	payload, _ := json.Marshal([][]string{cats, comps, excl})
	h := sha256.Sum256(payload)
	return hex.EncodeToString(h[:8])
}
