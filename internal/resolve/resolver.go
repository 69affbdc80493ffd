package resolve

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Fr3nn3r/deckung/internal/llm"
	"github.com/Fr3nn3r/deckung/internal/model"
	"github.com/Fr3nn3r/deckung/internal/normalize"
	"github.com/Fr3nn3r/deckung/internal/vocab"
)

const repairContextConfidence = 0.70

// Resolver arbitrates the claim after every item has its cascade verdict.
// It is an explicit decision sequence: primary-repair determination,
// excluded-component veto, association review, labor anchoring.
type Resolver struct {
	vocabulary *vocab.Vocabulary
	classifier *llm.Classifier
	thresholds model.ThresholdConfig
	logger     *zap.Logger
}

// NewResolver creates the claim-level resolver
func NewResolver(v *vocab.Vocabulary, classifier *llm.Classifier, thresholds model.ThresholdConfig, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		vocabulary: v,
		classifier: classifier,
		thresholds: thresholds,
		logger:     logger,
	}
}

// Resolve runs the full arbitration. coverages is adjusted in place;
// every adjustment records the original verdict.
func (r *Resolver) Resolve(ctx context.Context, items []model.LineItem, coverages []model.LineItemCoverage, policy *model.PolicyContext, repairContext model.RepairContext) model.PrimaryRepairResult {
	// 1. Primary-repair determination, three tiers.
	primary := r.determinePrimary(ctx, items, coverages, policy, repairContext)

	// 2. Excluded-component veto: a large excluded repair must not ride in
	// on a small covered ancillary item.
	if r.excludedVeto(coverages, policy) {
		primary.IsCovered = false
		r.logger.Info("excluded-component veto applied",
			zap.String("primary_component", primary.Component))
	}

	// 3. Association review: re-evaluate LLM-denied parts against the
	// covered primary repair. Rule-denied items are never reconsidered.
	if primary.IsCovered {
		r.reviewAssociations(ctx, items, coverages, primary)
	}

	// 4. Labor promotion/demotion against anchoring parts.
	r.adjustLabor(coverages)

	return primary
}

// determinePrimary tries, in order: highest-value covered item, repair
// context, LLM arbitration. DeterminedByNone with confidence 0 means
// "refer to human" downstream, never silent approval or denial.
func (r *Resolver) determinePrimary(ctx context.Context, items []model.LineItem, coverages []model.LineItemCoverage, policy *model.PolicyContext, repairContext model.RepairContext) model.PrimaryRepairResult {
	// Tier (a): highest-value COVERED parts item, else any covered item
	if c := highestCovered(coverages, true); c != nil {
		return primaryFromCoverage(c)
	}
	if c := highestCovered(coverages, false); c != nil {
		return primaryFromCoverage(c)
	}

	// Tier (b): repair context from labor descriptions
	if repairContext.PrimaryComponent != "" {
		return model.PrimaryRepairResult{
			Component:           repairContext.PrimaryComponent,
			Category:            repairContext.PrimaryCategory,
			IsCovered:           repairContext.IsCovered,
			Confidence:          repairContextConfidence,
			DeterminationMethod: model.DeterminedByRepairContext,
		}
	}

	// Tier (c): one LLM call over the whole estimate
	if r.classifier.Enabled() {
		if verdict, err := r.classifier.IdentifyPrimaryRepair(ctx, items, policy.CoveredComponents); err == nil {
			category, covered := coveredAnywhere(r.vocabulary, policy, verdict.Component)
			if category == "" {
				category = verdict.Category
			}
			conf := verdict.Confidence
			if conf > r.thresholds.LLMConfidenceCap {
				conf = r.thresholds.LLMConfidenceCap
			}
			return model.PrimaryRepairResult{
				Component:           verdict.Component,
				Category:            category,
				IsCovered:           covered,
				Confidence:          conf,
				DeterminationMethod: model.DeterminedByLLM,
			}
		} else {
			r.logger.Warn("primary-repair arbitration failed", zap.Error(err))
		}
	}

	return model.PrimaryRepairResult{
		Confidence:          0,
		DeterminationMethod: model.DeterminedByNone,
	}
}

// highestCovered returns the highest-value COVERED item, optionally
// restricted to parts
func highestCovered(coverages []model.LineItemCoverage, partsOnly bool) *model.LineItemCoverage {
	var best *model.LineItemCoverage
	for i := range coverages {
		c := &coverages[i]
		if c.Status != model.StatusCovered {
			continue
		}
		if partsOnly && c.Item.ItemType != model.ItemTypeParts {
			continue
		}
		if best == nil || c.Item.TotalPrice > best.Item.TotalPrice {
			best = c
		}
	}
	return best
}

func primaryFromCoverage(c *model.LineItemCoverage) model.PrimaryRepairResult {
	component := c.MatchedComponent
	if component == "" {
		component = c.Item.Description
	}
	return model.PrimaryRepairResult{
		Component:           component,
		Category:            c.Category,
		IsCovered:           true,
		Confidence:          c.Confidence,
		DeterminationMethod: model.DeterminedByCoveredItem,
	}
}

// excludedVeto reports whether the highest-value line item overall is an
// explicitly excluded component.
func (r *Resolver) excludedVeto(coverages []model.LineItemCoverage, policy *model.PolicyContext) bool {
	var top *model.LineItemCoverage
	for i := range coverages {
		c := &coverages[i]
		if top == nil || c.Item.TotalPrice > top.Item.TotalPrice {
			top = c
		}
	}
	if top == nil {
		return false
	}

	for _, excluded := range policy.ExcludedComponents {
		if top.MatchedComponent != "" && r.vocabulary.ComponentMatchesPolicyTerm(top.MatchedComponent, excluded) {
			return true
		}
		for _, syn := range r.vocabulary.SynonymsOf(excluded) {
			if normalize.TermMatches(syn, top.Item.Description) {
				return true
			}
		}
	}
	return false
}

// reviewAssociations runs the single claim-scoped LLM call that can flip
// NOT_COVERED parts to COVERED when they are plausibly the primary repair's
// component under a different catalog name.
func (r *Resolver) reviewAssociations(ctx context.Context, items []model.LineItem, coverages []model.LineItemCoverage, primary model.PrimaryRepairResult) {
	if !r.classifier.Enabled() {
		return
	}

	// Only parts the LLM stage denied qualify; deterministic rule denials
	// (fees, consumables, exclusions) are final.
	var (
		denied        []model.LineItem
		deniedIndices []int
	)
	for i := range coverages {
		c := &coverages[i]
		if c.Status == model.StatusNotCovered &&
			c.MatchMethod == model.MethodLLM &&
			c.Item.ItemType == model.ItemTypeParts {
			denied = append(denied, c.Item)
			deniedIndices = append(deniedIndices, i)
		}
	}
	if len(denied) == 0 {
		return
	}

	verdicts, err := r.classifier.ReviewAssociations(ctx, denied, primary, items)
	if err != nil {
		r.logger.Warn("association review failed, denials stand", zap.Error(err))
		return
	}

	for _, verdict := range verdicts {
		if !verdict.Covered || verdict.Confidence < r.thresholds.LLMCoveredAccept {
			continue
		}
		c := &coverages[deniedIndices[verdict.Index]]
		c.OriginalStatus = c.Status
		c.AdjustmentReason = fmt.Sprintf("association review: %s", verdict.Reasoning)
		if c.MatchedComponent == "" {
			c.MatchedComponent = primary.Component
		}
		if c.Category == "" {
			c.Category = primary.Category
		}
		c.SetStatus(model.StatusCovered)
		r.logger.Info("association review rescued part",
			zap.String("description", c.Item.Description),
			zap.Float64("confidence", verdict.Confidence))
	}
}

// adjustLabor demotes covered labor with no anchoring covered part (no
// covered repair justifies standalone labor) and promotes denied labor
// whose component gained an anchor during association review.
func (r *Resolver) adjustLabor(coverages []model.LineItemCoverage) {
	for i := range coverages {
		c := &coverages[i]
		if c.Item.ItemType != model.ItemTypeLabor || c.MatchedComponent == "" {
			continue
		}

		anchored := r.hasAnchor(c, coverages)

		switch {
		case c.Status == model.StatusCovered && !anchored:
			c.OriginalStatus = c.Status
			c.AdjustmentReason = "no covered part anchors this labor position"
			c.SetStatus(model.StatusNotCovered)

		case c.Status == model.StatusNotCovered && anchored && c.MatchMethod != model.MethodRule:
			c.OriginalStatus = c.Status
			c.AdjustmentReason = "anchoring part is covered, labor follows the repair"
			c.SetStatus(model.StatusCovered)
		}
	}
}

// hasAnchor reports whether a covered parts item backs the labor item's
// component. Matching prefers the same component or category; a labor item
// without a category accepts any covered part.
func (r *Resolver) hasAnchor(labor *model.LineItemCoverage, coverages []model.LineItemCoverage) bool {
	for i := range coverages {
		p := &coverages[i]
		if p.Status != model.StatusCovered || p.Item.ItemType != model.ItemTypeParts {
			continue
		}
		if labor.Category == "" || p.Category == "" {
			return true
		}
		if p.Category == labor.Category {
			return true
		}
		if p.MatchedComponent != "" && r.vocabulary.ComponentMatchesPolicyTerm(p.MatchedComponent, labor.MatchedComponent) {
			return true
		}
	}
	return false
}
