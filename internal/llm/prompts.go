package llm

import (
	"fmt"
	"strings"

	"github.com/Fr3nn3r/deckung/internal/model"
)

const classifySystem = "You are a vehicle warranty coverage analyst. You decide whether repair " +
	"estimate line items are covered by a policy's component list. Estimates are in German or " +
	"French. Answer with strict JSON only."

// BuildClassifyPrompt constructs the per-item classification prompt.
// The covered-items context lets the model associate a differently-named
// part with the repair already recognized as covered.
func BuildClassifyPrompt(item model.LineItem, coveredComponents map[string][]string, coveredSiblings []string) string {
	var b strings.Builder

	b.WriteString("Decide whether this repair estimate line item is covered.\n\n")
	fmt.Fprintf(&b, "Line item:\n- description: %q\n- type: %s\n- price: %.2f\n", item.Description, item.ItemType, item.TotalPrice)
	if item.PartCode != "" {
		fmt.Fprintf(&b, "- part code: %s\n", item.PartCode)
	}

	b.WriteString("\nPolicy covered components by category:\n")
	for category, components := range coveredComponents {
		fmt.Fprintf(&b, "- %s: %s\n", category, strings.Join(components, ", "))
	}

	if len(coveredSiblings) > 0 {
		b.WriteString("\nItems on the same estimate already determined COVERED (repair context):\n")
		for _, s := range coveredSiblings {
			fmt.Fprintf(&b, "- %s\n", s)
		}
	}

	b.WriteString(`
Rules:
- COVERED only if the item is one of the listed components or clearly part of that repair.
- NOT_COVERED if it is a consumable, fee, or a component outside the list.
- If genuinely uncertain, say NOT_COVERED with low confidence.

Respond with JSON only:
{"status": "COVERED" | "NOT_COVERED", "component": "<matched component or empty>", "category": "<category or empty>", "confidence": <0.0-1.0>, "reasoning": "<one sentence>"}`)

	return b.String()
}

// BuildPrimaryRepairPrompt asks the model to name the single primary
// repaired component across the whole estimate.
func BuildPrimaryRepairPrompt(items []model.LineItem, coveredComponents map[string][]string) string {
	var b strings.Builder

	b.WriteString("Identify the single primary repair on this vehicle repair estimate.\n\nLine items:\n")
	for _, item := range items {
		fmt.Fprintf(&b, "- [%s] %s (%.2f)\n", item.ItemType, item.Description, item.TotalPrice)
	}

	b.WriteString("\nPolicy covered components by category:\n")
	for category, components := range coveredComponents {
		fmt.Fprintf(&b, "- %s: %s\n", category, strings.Join(components, ", "))
	}

	b.WriteString(`
Name the one component that is the main reason for this repair. Prefer a component from the
policy list if the repair matches one; otherwise name the actual component.

Respond with JSON only:
{"component": "<component>", "category": "<category or empty>", "confidence": <0.0-1.0>, "reasoning": "<one sentence>"}`)

	return b.String()
}

// BuildAssociationPrompt asks the model to re-evaluate denied parts against
// the identified primary repair. Rule-denied items are never offered here.
func BuildAssociationPrompt(denied []model.LineItem, primary model.PrimaryRepairResult, all []model.LineItem) string {
	var b strings.Builder

	fmt.Fprintf(&b, "The primary repair on this estimate is: %s", primary.Component)
	if primary.Category != "" {
		fmt.Fprintf(&b, " (category %s)", primary.Category)
	}
	b.WriteString(", and it is covered by the policy.\n\nFull estimate:\n")
	for _, item := range all {
		fmt.Fprintf(&b, "- [%s] %s (%.2f)\n", item.ItemType, item.Description, item.TotalPrice)
	}

	b.WriteString("\nThese parts were denied because their names did not match the policy list:\n")
	for i, item := range denied {
		fmt.Fprintf(&b, "%d. %s (%.2f)\n", i, item.Description, item.TotalPrice)
	}

	b.WriteString(`
For each denied part, decide whether it is in fact the same component as the primary repair
under a different vendor or catalog name, or an integral part of that repair. Parts that are
unrelated to the primary repair stay denied.

Respond with JSON only:
{"items": [{"index": <n>, "covered": true|false, "confidence": <0.0-1.0>, "reasoning": "<one sentence>"}]}`)

	return b.String()
}
