package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/Fr3nn3r/deckung/internal/model"
)

// claimFile is the on-disk claim format produced by the extraction stage
type claimFile struct {
	ClaimID string           `json:"claim_id" yaml:"claim_id"`
	Items   []model.LineItem `json:"items" yaml:"items"`
}

// LoadClaim reads a claim file (JSON or YAML) and returns its line items
func LoadClaim(path string) ([]model.LineItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read claim: %w", err)
	}

	var claim claimFile
	if err := unmarshalByExt(path, data, &claim); err != nil {
		return nil, fmt.Errorf("parse claim %s: %w", path, err)
	}
	if len(claim.Items) == 0 {
		return nil, fmt.Errorf("claim %s has no line items", path)
	}
	return claim.Items, nil
}

// LoadPolicy reads a policy context file (JSON or YAML)
func LoadPolicy(path string) (*model.PolicyContext, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy: %w", err)
	}

	var policy model.PolicyContext
	if err := unmarshalByExt(path, data, &policy); err != nil {
		return nil, fmt.Errorf("parse policy %s: %w", path, err)
	}
	if len(policy.CoveredCategories) == 0 {
		return nil, fmt.Errorf("policy %s lists no covered categories", path)
	}
	return &policy, nil
}

func unmarshalByExt(path string, data []byte, out interface{}) error {
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, out)
	default:
		return json.Unmarshal(data, out)
	}
}
