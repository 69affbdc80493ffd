package match

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/Fr3nn3r/deckung/internal/model"
	"github.com/Fr3nn3r/deckung/internal/normalize"
)

// Cascade sequences the matcher stages per item: deterministic stages run
// in fixed order with short-circuit on the first verdict; items nobody
// resolves fan out to the LLM stage under bounded concurrency.
type Cascade struct {
	deterministic []Matcher
	fallback      *LLMMatcher
	llmWorkers    int
	logger        *zap.Logger
}

// NewCascade builds the cascade. The deterministic list order is the
// cost/determinism trade-off and must stay rules -> part number -> keyword.
func NewCascade(deterministic []Matcher, fallback *LLMMatcher, llmWorkers int, logger *zap.Logger) *Cascade {
	if llmWorkers <= 0 {
		llmWorkers = 4
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cascade{
		deterministic: deterministic,
		fallback:      fallback,
		llmWorkers:    llmWorkers,
		logger:        logger,
	}
}

// Evaluate produces exactly one verdict per input item, in input order.
func (c *Cascade) Evaluate(ctx context.Context, items []model.LineItem, policy *model.PolicyContext, repairContext *model.RepairContext) ([]model.LineItemCoverage, error) {
	results := make([]*model.LineItemCoverage, len(items))
	inputs := make([]*Input, len(items))

	// Pass 1: deterministic stages, sequential and short-circuiting.
	for i, item := range items {
		in := &Input{
			Index:         i,
			Item:          item,
			Normalized:    normalize.Normalize(item.Description),
			Policy:        policy,
			Siblings:      items,
			RepairContext: repairContext,
		}
		inputs[i] = in

		for _, stage := range c.deterministic {
			verdict, err := stage.Evaluate(ctx, in)
			if err != nil {
				return nil, err
			}
			if verdict != nil {
				c.logger.Debug("stage resolved item",
					zap.String("stage", stage.Name()),
					zap.Int("index", i),
					zap.String("status", string(verdict.Status)),
					zap.Float64("confidence", verdict.Confidence))
				results[i] = verdict
				break
			}
		}
	}

	// Covered siblings give the LLM stage repair context.
	var coveredSiblings []string
	for _, r := range results {
		if r != nil && r.Status == model.StatusCovered {
			coveredSiblings = append(coveredSiblings, r.Item.Description)
		}
	}

	// Pass 2: unresolved items fan out to the LLM stage. A semaphore bounds
	// concurrency; results land at their input index so output ordering
	// never depends on completion order.
	var unresolved []int
	for i, r := range results {
		if r == nil {
			unresolved = append(unresolved, i)
		}
	}

	if len(unresolved) > 0 {
		var wg sync.WaitGroup
		semaphore := make(chan struct{}, c.llmWorkers)

		for _, idx := range unresolved {
			in := inputs[idx]
			in.CoveredSiblings = coveredSiblings

			wg.Add(1)
			go func(idx int, in *Input) {
				defer wg.Done()

				select {
				case <-ctx.Done():
					v := newVerdict(in.Item, model.MethodLLM)
					v.Reasoning = "analysis cancelled before the item was classified"
					v.SetStatus(model.StatusReviewNeeded)
					results[idx] = v
					return
				case semaphore <- struct{}{}:
				}
				defer func() { <-semaphore }()

				verdict, _ := c.fallback.Evaluate(ctx, in) // fail-soft, never errors
				results[idx] = verdict
			}(idx, in)
		}
		wg.Wait()
	}

	out := make([]model.LineItemCoverage, len(items))
	for i, r := range results {
		out[i] = *r
	}
	return out, nil
}
