package model

// ItemType categorizes a line item on a repair estimate
type ItemType string

const (
	ItemTypeParts ItemType = "parts" // Physical part or material
	ItemTypeLabor ItemType = "labor" // Work position (hours or flat rate)
	ItemTypeFee   ItemType = "fee"   // Administrative or auxiliary fee
)

// LineItem is one row of a repair cost estimate.
// It is produced by the upstream extraction stage and never mutated here.
type LineItem struct {
	Description string   `json:"description" yaml:"description"`                 // Raw text as it appears on the estimate
	ItemType    ItemType `json:"item_type" yaml:"item_type"`                     // parts, labor or fee
	TotalPrice  float64  `json:"total_price" yaml:"total_price"`                 // Gross line total in policy currency
	PartCode    string   `json:"part_code,omitempty" yaml:"part_code,omitempty"` // Vendor catalog identifier, if present
}

// IsLabor reports whether the item is a work position
func (i LineItem) IsLabor() bool {
	return i.ItemType == ItemTypeLabor
}

// IsFee reports whether the item is an administrative fee
func (i LineItem) IsFee() bool {
	return i.ItemType == ItemTypeFee
}
