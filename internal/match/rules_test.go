package match

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Fr3nn3r/deckung/internal/model"
)

func TestRuleMatcher_FeeAlwaysDenied(t *testing.T) {
	m := NewRuleMatcher(testVocabulary(t), nil)
	in := testInput(model.LineItem{
		Description: "Kleinersatzteile pauschal",
		ItemType:    model.ItemTypeFee,
		TotalPrice:  25,
	}, testPolicy())

	v, err := m.Evaluate(context.Background(), in)
	require.NoError(t, err)
	require.NotNil(t, v)

	assert.Equal(t, model.StatusNotCovered, v.Status)
	assert.Equal(t, model.MethodRule, v.MatchMethod)
	assert.Equal(t, 1.0, v.Confidence)
	assert.Equal(t, 0.0, v.CoveredAmount)
	assert.Equal(t, 25.0, v.NotCoveredAmount)
}

func TestRuleMatcher_ExclusionPattern(t *testing.T) {
	m := NewRuleMatcher(testVocabulary(t), nil)

	tests := []struct {
		desc string
	}{
		{"Fehlersuche elektrisch"},
		{"Diagnose Motorsteuerung"},
		{"Recherche de panne système"},
	}
	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			in := testInput(partsItem(tt.desc, 120), testPolicy())
			v, err := m.Evaluate(context.Background(), in)
			require.NoError(t, err)
			require.NotNil(t, v)
			assert.Equal(t, model.StatusNotCovered, v.Status)
			assert.Equal(t, 1.0, v.Confidence)
			assert.Contains(t, v.Reasoning, "diagnostics")
		})
	}
}

func TestRuleMatcher_ConsumablePattern(t *testing.T) {
	m := NewRuleMatcher(testVocabulary(t), nil)
	in := testInput(partsItem("Motorenöl 5W-30 4L", 89.50), testPolicy())

	v, err := m.Evaluate(context.Background(), in)
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, model.StatusNotCovered, v.Status)
	assert.Contains(t, v.Reasoning, "consumable")
}

// Items no rule fires on pass through with no verdict
func TestRuleMatcher_NoMatchEscalates(t *testing.T) {
	m := NewRuleMatcher(testVocabulary(t), nil)
	in := testInput(partsItem("Ölkühler ersetzen", 450), testPolicy())

	v, err := m.Evaluate(context.Background(), in)
	require.NoError(t, err)
	assert.Nil(t, v)
}

// A covered component whose description happens to mention a fluid must still
// hit the consumable rule check against the normalized form only once; the
// rule stage never produces COVERED.
func TestRuleMatcher_NeverCovers(t *testing.T) {
	m := NewRuleMatcher(testVocabulary(t), nil)
	in := testInput(partsItem("Kühlmittel nachfüllen", 30), testPolicy())

	v, err := m.Evaluate(context.Background(), in)
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, model.StatusNotCovered, v.Status)
}
