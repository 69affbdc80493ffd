package worker

import (
	"context"
	"fmt"
	"math/rand"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Fr3nn3r/deckung/internal/model"
)

// fakeAnalyzer returns a minimal result after a small random delay, so
// completion order differs from submission order
type fakeAnalyzer struct {
	calls   int32
	failFor string
}

func (a *fakeAnalyzer) AnalyzeClaim(ctx context.Context, items []model.LineItem, policy *model.PolicyContext) (*model.CoverageAnalysisResult, error) {
	atomic.AddInt32(&a.calls, 1)
	time.Sleep(time.Duration(rand.Intn(10)) * time.Millisecond)

	if len(items) > 0 && items[0].Description == a.failFor {
		return nil, fmt.Errorf("analysis failed for %s", a.failFor)
	}

	return &model.CoverageAnalysisResult{
		Summary: model.CoverageSummary{TotalAmount: items[0].TotalPrice},
	}, nil
}

func testClaims(n int) []Claim {
	claims := make([]Claim, 0, n)
	for i := 0; i < n; i++ {
		claims = append(claims, Claim{
			Path: fmt.Sprintf("claims/claim-%02d.json", i),
			Items: []model.LineItem{
				{Description: fmt.Sprintf("item-%02d", i), ItemType: model.ItemTypeParts, TotalPrice: float64(i + 1)},
			},
		})
	}
	return claims
}

func TestBatchProcessor_Process(t *testing.T) {
	analyzer := &fakeAnalyzer{}
	processor := NewBatchProcessor(analyzer, 4)

	claims := testClaims(12)
	results := processor.Process(context.Background(), claims, &model.PolicyContext{})

	if len(results) != len(claims) {
		t.Fatalf("expected %d results, got %d", len(claims), len(results))
	}
	if atomic.LoadInt32(&analyzer.calls) != int32(len(claims)) {
		t.Errorf("expected %d analyzer calls, got %d", len(claims), analyzer.calls)
	}

	// Results come back in input order regardless of completion order
	for i, r := range results {
		if r.Path != claims[i].Path {
			t.Errorf("result %d: expected path %s, got %s", i, claims[i].Path, r.Path)
		}
		if r.Err != nil {
			t.Errorf("result %d: unexpected error %v", i, r.Err)
		}
		if r.Result.Summary.TotalAmount != float64(i+1) {
			t.Errorf("result %d: wrong result attached", i)
		}
	}
}

// One failing claim must not affect its siblings
func TestBatchProcessor_PartialFailure(t *testing.T) {
	analyzer := &fakeAnalyzer{failFor: "item-02"}
	processor := NewBatchProcessor(analyzer, 2)

	claims := testClaims(5)
	results := processor.Process(context.Background(), claims, &model.PolicyContext{})

	if len(results) != 5 {
		t.Fatalf("expected 5 results, got %d", len(results))
	}

	failures := 0
	for i, r := range results {
		if r.Err != nil {
			failures++
			if i != 2 {
				t.Errorf("expected only claim 2 to fail, but %d failed", i)
			}
			if r.GetError() == nil {
				t.Error("GetError must surface the failure")
			}
		}
	}
	if failures != 1 {
		t.Errorf("expected 1 failure, got %d", failures)
	}
}

// Two claims loaded from the same path must keep distinct results; results
// are placed back by submission index, not path
func TestBatchProcessor_DuplicatePaths(t *testing.T) {
	analyzer := &fakeAnalyzer{}
	processor := NewBatchProcessor(analyzer, 2)

	claims := []Claim{
		{Path: "claims/same.json", Items: []model.LineItem{{Description: "item-a", ItemType: model.ItemTypeParts, TotalPrice: 10}}},
		{Path: "claims/same.json", Items: []model.LineItem{{Description: "item-b", ItemType: model.ItemTypeParts, TotalPrice: 20}}},
	}
	results := processor.Process(context.Background(), claims, &model.PolicyContext{})

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Result.Summary.TotalAmount != 10 || results[1].Result.Summary.TotalAmount != 20 {
		t.Errorf("results collapsed or swapped: %.0f, %.0f",
			results[0].Result.Summary.TotalAmount, results[1].Result.Summary.TotalAmount)
	}
}

func TestBatchProcessor_Empty(t *testing.T) {
	processor := NewBatchProcessor(&fakeAnalyzer{}, 2)
	results := processor.Process(context.Background(), nil, &model.PolicyContext{})
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}
