package cache

import (
	"testing"
	"time"

	"github.com/Fr3nn3r/deckung/internal/llm"
)

func TestVerdictKey_Deterministic(t *testing.T) {
	a := VerdictKey("olkuhler ersetzen", "parts", "fp1")
	b := VerdictKey("olkuhler ersetzen", "parts", "fp1")
	if a != b {
		t.Error("same inputs must produce the same key")
	}

	if VerdictKey("olkuhler ersetzen", "labor", "fp1") == a {
		t.Error("item type must be part of the key")
	}
	if VerdictKey("olkuhler ersetzen", "parts", "fp2") == a {
		t.Error("policy fingerprint must be part of the key")
	}
}

// Field boundaries must be unambiguous: concatenation without separators
// would collide "ab"+"c" with "a"+"bc"
func TestVerdictKey_FieldBoundaries(t *testing.T) {
	a := VerdictKey("ab", "c", "fp")
	b := VerdictKey("a", "bc", "fp")
	if a == b {
		t.Error("shifted field boundaries must not collide")
	}
}

func TestPolicyFingerprint_OrderIndependent(t *testing.T) {
	a := PolicyFingerprint(
		[]string{"engine", "cooling"},
		map[string][]string{"engine": {"Ölkühler", "Turbolader"}},
		[]string{"Zylinderkopfdichtung"},
	)
	b := PolicyFingerprint(
		[]string{"cooling", "engine"},
		map[string][]string{"engine": {"Turbolader", "Ölkühler"}},
		[]string{"Zylinderkopfdichtung"},
	)
	if a != b {
		t.Error("fingerprint must not depend on list ordering")
	}
}

func TestPolicyFingerprint_ContentSensitive(t *testing.T) {
	a := PolicyFingerprint([]string{"engine"}, map[string][]string{"engine": {"Ölkühler"}}, nil)
	b := PolicyFingerprint([]string{"engine"}, map[string][]string{"engine": {"Turbolader"}}, nil)
	if a == b {
		t.Error("different component lists must produce different fingerprints")
	}

	c := PolicyFingerprint([]string{"engine"}, map[string][]string{"engine": {"Ölkühler"}}, []string{"Turbolader"})
	if a == c {
		t.Error("exclusions must be part of the fingerprint")
	}
}

func testVerdict() *llm.ItemVerdict {
	return &llm.ItemVerdict{
		Status:     "COVERED",
		Component:  "oil_cooler",
		Category:   "engine",
		Confidence: 0.9,
		Reasoning:  "same repair",
	}
}

func TestMemoryCache_RoundTrip(t *testing.T) {
	c := NewMemoryCache(time.Hour, time.Hour)

	if _, found := c.Get("missing"); found {
		t.Error("expected miss for unknown key")
	}

	if err := c.Set("k", testVerdict(), time.Hour); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	got, found := c.Get("k")
	if !found {
		t.Fatal("expected hit")
	}
	if got.Component != "oil_cooler" || got.Confidence != 0.9 {
		t.Errorf("unexpected verdict: %+v", got)
	}

	if err := c.Delete("k"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, found := c.Get("k"); found {
		t.Error("expected miss after delete")
	}
}

// Hits must come back as copies: a caller annotating its verdict must not
// change what later hits see
func TestMemoryCache_GetReturnsCopy(t *testing.T) {
	c := NewMemoryCache(time.Hour, time.Hour)
	if err := c.Set("k", testVerdict(), time.Hour); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	first, _ := c.Get("k")
	first.Reasoning = "mutated"

	second, found := c.Get("k")
	if !found {
		t.Fatal("expected hit")
	}
	if second.Reasoning != "same repair" {
		t.Errorf("cached verdict was mutated through a hit: %q", second.Reasoning)
	}
}

func TestMemoryCache_TTLExpiry(t *testing.T) {
	c := NewMemoryCache(time.Hour, time.Hour)

	if err := c.Set("k", testVerdict(), 10*time.Millisecond); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	time.Sleep(30 * time.Millisecond)

	if _, found := c.Get("k"); found {
		t.Error("expected entry to expire")
	}
}

func TestMemoryCache_Clear(t *testing.T) {
	c := NewMemoryCache(time.Hour, time.Hour)
	_ = c.Set("a", testVerdict(), time.Hour)
	_ = c.Set("b", testVerdict(), time.Hour)

	if err := c.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if _, found := c.Get("a"); found {
		t.Error("expected cache to be empty after clear")
	}
}
