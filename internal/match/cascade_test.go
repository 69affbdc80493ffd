package match

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Fr3nn3r/deckung/internal/model"
)

// countingMatcher resolves descriptions in its verdicts map and counts calls
type countingMatcher struct {
	name     string
	verdicts map[string]model.CoverageStatus
	calls    int32
}

func (m *countingMatcher) Name() string { return m.name }

func (m *countingMatcher) Evaluate(_ context.Context, in *Input) (*model.LineItemCoverage, error) {
	atomic.AddInt32(&m.calls, 1)
	status, ok := m.verdicts[in.Item.Description]
	if !ok {
		return nil, nil
	}
	v := newVerdict(in.Item, model.MatchMethod(m.name))
	v.Confidence = 1.0
	v.SetStatus(status)
	return v, nil
}

func newTestCascade(stages []Matcher, provider *stubProvider, workers int) *Cascade {
	fallback := llmMatcherWith(provider, nil)
	return NewCascade(stages, fallback, workers, nil)
}

// An earlier stage's verdict must stop the cascade for that item
func TestCascade_ShortCircuit(t *testing.T) {
	first := &countingMatcher{name: "first", verdicts: map[string]model.CoverageStatus{
		"A": model.StatusNotCovered,
	}}
	second := &countingMatcher{name: "second", verdicts: map[string]model.CoverageStatus{
		"B": model.StatusCovered,
	}}

	provider := &stubProvider{responses: []string{
		`{"status": "NOT_COVERED", "component": "", "category": "", "confidence": 0.8, "reasoning": "unknown"}`,
	}}
	cascade := newTestCascade([]Matcher{first, second}, provider, 2)

	items := []model.LineItem{
		partsItem("A", 10),
		partsItem("B", 20),
		partsItem("C", 30),
	}
	results, err := cascade.Evaluate(context.Background(), items, testPolicy(), nil)
	require.NoError(t, err)
	require.Len(t, results, 3)

	// A resolved by the first stage, so the second stage saw only B and C
	assert.Equal(t, int32(3), atomic.LoadInt32(&first.calls))
	assert.Equal(t, int32(2), atomic.LoadInt32(&second.calls))
	// Only C reached the fallback
	assert.Equal(t, 1, provider.callCount())

	assert.Equal(t, model.StatusNotCovered, results[0].Status)
	assert.Equal(t, model.StatusCovered, results[1].Status)
	assert.Equal(t, model.StatusNotCovered, results[2].Status)
}

// Output order equals input order no matter which LLM call finishes first
func TestCascade_OrderPreserved(t *testing.T) {
	provider := &stubProvider{responses: []string{
		`{"status": "NOT_COVERED", "component": "", "category": "", "confidence": 0.8, "reasoning": "unknown"}`,
	}}
	cascade := newTestCascade([]Matcher{&countingMatcher{name: "noop"}}, provider, 4)

	var items []model.LineItem
	for i := 0; i < 12; i++ {
		items = append(items, partsItem(fmt.Sprintf("item-%02d", i), float64(i+1)))
	}

	results, err := cascade.Evaluate(context.Background(), items, testPolicy(), nil)
	require.NoError(t, err)
	require.Len(t, results, len(items))

	for i, r := range results {
		assert.Equal(t, items[i].Description, r.Item.Description)
		assert.NotEmpty(t, r.Status, "every item must receive a terminal verdict")
	}
}

// Descriptions resolved COVERED by deterministic stages are offered to the
// fallback as repair context
func TestCascade_CoveredSiblingsForwarded(t *testing.T) {
	deterministic := &countingMatcher{name: "det", verdicts: map[string]model.CoverageStatus{
		"Ölkühler": model.StatusCovered,
	}}
	provider := &stubProvider{responses: []string{
		`{"status": "COVERED", "component": "oil_cooler", "category": "engine", "confidence": 0.9, "reasoning": "same repair"}`,
	}}
	cascade := newTestCascade([]Matcher{deterministic}, provider, 1)

	items := []model.LineItem{
		partsItem("Ölkühler", 450),
		partsItem("Wärmetauscher AGR", 380),
	}
	results, err := cascade.Evaluate(context.Background(), items, testPolicy(), nil)
	require.NoError(t, err)

	require.Equal(t, 1, provider.callCount())
	assert.Contains(t, provider.prompts[0], "Ölkühler")
	assert.Equal(t, model.StatusCovered, results[1].Status)
}

// A cancelled context degrades unclassified items to review instead of
// blocking or dropping them
func TestCascade_CancelledContext(t *testing.T) {
	provider := &stubProvider{responses: []string{
		`{"status": "COVERED", "component": "oil_cooler", "category": "engine", "confidence": 0.9, "reasoning": "x"}`,
	}}
	cascade := newTestCascade([]Matcher{&countingMatcher{name: "noop"}}, provider, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	items := []model.LineItem{partsItem("A", 10), partsItem("B", 20)}
	done := make(chan struct{})
	var results []model.LineItemCoverage
	var err error
	go func() {
		results, err = cascade.Evaluate(ctx, items, testPolicy(), nil)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("cascade did not return after cancellation")
	}

	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, model.StatusReviewNeeded, r.Status)
	}
}

// Conservation invariant: every verdict splits the full item amount
func TestCascade_AmountConservation(t *testing.T) {
	deterministic := &countingMatcher{name: "det", verdicts: map[string]model.CoverageStatus{
		"A": model.StatusCovered,
		"B": model.StatusNotCovered,
	}}
	provider := &stubProvider{responses: []string{
		`{"status": "NOT_COVERED", "component": "", "category": "", "confidence": 0.8, "reasoning": "unknown"}`,
	}}
	cascade := newTestCascade([]Matcher{deterministic}, provider, 2)

	items := []model.LineItem{
		partsItem("A", 123.45),
		partsItem("B", 67.89),
		partsItem("C", 10.01),
	}
	results, err := cascade.Evaluate(context.Background(), items, testPolicy(), nil)
	require.NoError(t, err)

	for _, r := range results {
		assert.LessOrEqual(t, r.ConservationError(), 0.01,
			"covered + not covered must equal the item total for %q", r.Item.Description)
	}
}
