package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadClaim_JSON(t *testing.T) {
	path := writeFile(t, "claim.json", `{
		"claim_id": "CLM-001",
		"items": [
			{"description": "Ölkühler", "item_type": "parts", "total_price": 450.0},
			{"description": "Ölkühler ersetzen", "item_type": "labor", "total_price": 320.0}
		]
	}`)

	items, err := LoadClaim(path)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Ölkühler", items[0].Description)
	assert.Equal(t, 320.0, items[1].TotalPrice)
}

func TestLoadClaim_YAML(t *testing.T) {
	path := writeFile(t, "claim.yaml", `
claim_id: CLM-002
items:
  - description: Turbolader
    item_type: parts
    total_price: 1890.5
`)

	items, err := LoadClaim(path)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Turbolader", items[0].Description)
}

func TestLoadClaim_Errors(t *testing.T) {
	_, err := LoadClaim(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	empty := writeFile(t, "empty.json", `{"claim_id": "CLM-003", "items": []}`)
	_, err = LoadClaim(empty)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no line items")

	bad := writeFile(t, "bad.json", `{not json`)
	_, err = LoadClaim(bad)
	assert.Error(t, err)
}

func TestLoadPolicy_YAML(t *testing.T) {
	path := writeFile(t, "policy.yaml", `
covered_categories: [engine, cooling]
covered_components:
  engine: [Ölkühler, Turbolader]
excluded_components: [Zylinderkopfdichtung]
`)

	policy, err := LoadPolicy(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"engine", "cooling"}, policy.CoveredCategories)
	assert.Equal(t, []string{"Zylinderkopfdichtung"}, policy.ExcludedComponents)
}

func TestLoadPolicy_NoCategories(t *testing.T) {
	path := writeFile(t, "policy.json", `{"covered_categories": []}`)
	_, err := LoadPolicy(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no covered categories")
}
