// Package match implements the cascading coverage matcher: an ordered list
// of strategies of increasing cost and decreasing determinism. Each stage
// either produces a terminal verdict or passes the item to the next one.
package match

import (
	"context"

	"github.com/Fr3nn3r/deckung/internal/model"
)

// Matcher is one cascade stage. Evaluate returns nil (no verdict) when the
// stage cannot resolve the item, letting the cascade continue.
type Matcher interface {
	Name() string
	Evaluate(ctx context.Context, in *Input) (*model.LineItemCoverage, error)
}

// Input carries one line item plus the claim-wide context a stage may need
type Input struct {
	Index      int
	Item       model.LineItem
	Normalized string // Normalized description, computed once

	Policy        *model.PolicyContext
	Siblings      []model.LineItem // All items of the claim, for context hints
	RepairContext *model.RepairContext

	// CoveredSiblings holds descriptions already resolved COVERED by the
	// deterministic stages; the LLM stage sends them as repair context.
	CoveredSiblings []string
}

// newVerdict builds a LineItemCoverage shell for the given stage
func newVerdict(item model.LineItem, method model.MatchMethod) *model.LineItemCoverage {
	return &model.LineItemCoverage{
		Item:        item,
		MatchMethod: method,
	}
}
