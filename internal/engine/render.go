package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/Fr3nn3r/deckung/internal/model"
)

// Renderer writes analysis results to files and the terminal
type Renderer struct {
	includeFooter bool
}

// NewRenderer creates a renderer
func NewRenderer(includeFooter bool) *Renderer {
	return &Renderer{includeFooter: includeFooter}
}

// RenderJSON writes the full result as indented JSON
func (r *Renderer) RenderJSON(result *model.CoverageAnalysisResult, path string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// RenderMarkdown writes a human-readable report
func (r *Renderer) RenderMarkdown(result *model.CoverageAnalysisResult, path string) error {
	var b strings.Builder

	b.WriteString("# Coverage Analysis\n\n")

	fmt.Fprintf(&b, "**Primary repair:** %s", orDash(result.PrimaryRepair.Component))
	if result.PrimaryRepair.Category != "" {
		fmt.Fprintf(&b, " (%s)", result.PrimaryRepair.Category)
	}
	fmt.Fprintf(&b, " | covered: %v, confidence %.2f, via %s\n\n",
		result.PrimaryRepair.IsCovered, result.PrimaryRepair.Confidence, result.PrimaryRepair.DeterminationMethod)

	if result.RepairContext.PrimaryComponent != "" {
		fmt.Fprintf(&b, "**Repair context:** %s (from %q)\n\n",
			result.RepairContext.PrimaryComponent, result.RepairContext.SourceDescription)
	}

	b.WriteString("## Line items\n\n")
	b.WriteString("| Item | Type | Price | Verdict | Method | Conf. | Reasoning |\n")
	b.WriteString("|------|------|-------|---------|--------|-------|-----------|\n")
	for _, c := range result.Items {
		reasoning := c.Reasoning
		if c.AdjustmentReason != "" {
			reasoning = fmt.Sprintf("%s (was %s: %s)", c.AdjustmentReason, c.OriginalStatus, reasoning)
		}
		fmt.Fprintf(&b, "| %s | %s | %.2f | %s | %s | %.2f | %s |\n",
			c.Item.Description, c.Item.ItemType, c.Item.TotalPrice,
			c.Status, c.MatchMethod, c.Confidence, strings.ReplaceAll(reasoning, "|", "\\|"))
	}

	b.WriteString("\n## Payout\n\n")
	p := result.Payout
	fmt.Fprintf(&b, "- Covered subtotal: %.2f\n", p.CoveredSubtotal)
	fmt.Fprintf(&b, "- Coverage percent: %.0f%%", p.TierPercent)
	if p.AgeOverrideApplied {
		b.WriteString(" (age override)")
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "- Gross covered: %.2f", p.GrossCovered)
	if p.CapApplied {
		b.WriteString(" (capped)")
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "- VAT-inclusive: %.2f\n", p.VATInclusive)
	fmt.Fprintf(&b, "- Deductible: %.2f\n", p.Deductible)
	if p.VATReclaimApplied {
		b.WriteString("- VAT removed (company policyholder)\n")
	}
	if p.VATReclaimUncertain {
		b.WriteString("- VAT reclaim status uncertain, left in place\n")
	}
	fmt.Fprintf(&b, "- **Payable: %.2f**\n", p.Payable)

	if r.includeFooter {
		b.WriteString("\n---\nGenerated by deckung. Verdicts marked REVIEW_NEEDED require human review.\n")
	}

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write markdown: %w", err)
	}
	return nil
}

// RenderSummary prints a short status line per item plus totals to stdout
func (r *Renderer) RenderSummary(result *model.CoverageAnalysisResult) {
	for _, c := range result.Items {
		fmt.Printf("  %-12s %-11s %8.2f  %s\n", c.Status, c.MatchMethod, c.Item.TotalPrice, c.Item.Description)
	}
	s := result.Summary
	fmt.Printf("\n  covered %.2f / not covered %.2f / review %.2f / payable %.2f\n",
		s.CoveredAmount, s.NotCoveredAmount, s.ReviewAmount, s.PayableAmount)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
