package match

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Fr3nn3r/deckung/internal/llm"
	"github.com/Fr3nn3r/deckung/internal/model"
	"github.com/Fr3nn3r/deckung/internal/normalize"
	"github.com/Fr3nn3r/deckung/internal/vocab"
)

// testVocabulary builds the shared fixture vocabulary. Validate compiles the
// pattern rules, so a broken fixture fails fast instead of silently not firing.
func testVocabulary(t *testing.T) *vocab.Vocabulary {
	t.Helper()
	v := &vocab.Vocabulary{
		ComponentSynonyms: map[string][]string{
			"oil_cooler":   {"ölkühler", "radiateur d'huile", "echangeur thermique"},
			"turbocharger": {"turbolader", "turbocompresseur"},
			"water_pump":   {"wasserpumpe", "pompe à eau"},
			"abs_sensor":   {"asr"},
		},
		CategoryAliases: map[string]string{
			"motor": "engine",
		},
		KeywordMap: map[string]vocab.ComponentRef{
			"ölkühler":             {Component: "oil_cooler", Category: "engine"},
			"zylinderkopfdichtung": {Component: "cylinder_head_gasket", Category: "engine"},
			"kuhlmittelpumpe":      {Component: "water_pump", Category: "engine"},
			"ventil":               {Component: "engine_valve", Category: "engine"},
		},
		ContextHints: []vocab.ContextHint{
			{Term: "ventil", Near: []string{"hydraulik"}, Component: "hydraulic_valve", Category: "chassis"},
			{Term: "ventil", Near: []string{"motor", "zylinder"}, Component: "engine_valve", Category: "engine"},
		},
		GasketIndicators: []string{"dichtung", "joint", "dichtsatz"},
		ExclusionPatterns: []vocab.PatternRule{
			{Label: "diagnostics", Patterns: map[string]string{
				"de": "diagnose|fehlersuche",
				"fr": "diagnostic|recherche de panne",
			}},
		},
		// Patterns match the normalized form: umlauts already folded to
		// bare vowels.
		ConsumablePatterns: []vocab.PatternRule{
			{Label: "fluids", Patterns: map[string]string{
				"de": "motorol|motorenol|kuhlmittel",
				"fr": "huile moteur|liquide de refroidissement",
			}},
		},
		Parts: vocab.PartCatalog{
			ByPartNumber: map[string]vocab.ComponentRef{
				"11427807990": {Component: "oil_cooler", Category: "engine"},
				"A6511800110": {Component: "turbocharger", Category: "motor"},
				"X900000001":  {Component: "tow_hook", Category: "accessories"},
			},
			ByKeyword: map[string]vocab.ComponentRef{
				"mahle clc": {Component: "oil_cooler", Category: "engine"},
			},
		},
		Distribution: vocab.DistributionCatchAll{
			Enabled:  true,
			Category: "engine",
			Terms:    []string{"steuerkette", "chaîne de distribution"},
		},
	}
	require.NoError(t, v.Validate())
	return v
}

func testPolicy() *model.PolicyContext {
	return &model.PolicyContext{
		CoveredCategories: []string{"engine", "cooling"},
		CoveredComponents: map[string][]string{
			"engine":  {"Ölkühler", "Turbolader", "Steuerkette"},
			"cooling": {"Wasserpumpe"},
		},
		ExcludedComponents: []string{"Zylinderkopfdichtung"},
		VATRate:            0.081,
	}
}

func testInput(item model.LineItem, policy *model.PolicyContext) *Input {
	return &Input{
		Item:       item,
		Normalized: normalize.Normalize(item.Description),
		Policy:     policy,
		Siblings:   []model.LineItem{item},
	}
}

func partsItem(desc string, price float64) model.LineItem {
	return model.LineItem{Description: desc, ItemType: model.ItemTypeParts, TotalPrice: price}
}

// stubProvider returns canned responses in order and records every prompt.
// Safe for concurrent use; the cascade fans classification out to workers.
type stubProvider struct {
	mu        sync.Mutex
	responses []string
	errs      []error
	calls     int
	prompts   []string
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) IsAvailable(context.Context) bool { return true }

func (p *stubProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func (p *stubProvider) Complete(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	i := p.calls
	p.calls++
	p.prompts = append(p.prompts, req.Prompt)
	if i < len(p.errs) && p.errs[i] != nil {
		return nil, p.errs[i]
	}
	content := ""
	if i < len(p.responses) {
		content = p.responses[i]
	} else if len(p.responses) > 0 {
		content = p.responses[len(p.responses)-1]
	}
	return &llm.CompletionResponse{Content: content, Model: "stub-model", TotalTokens: 42}, nil
}
