package types

import "github.com/shopspring/decimal"

// Item is a sellable catalog entry as the remote backend describes it.
// StockID plus Description identify a line; the same stock id can appear
// under different descriptions (kit components, repack units).
type Item struct {
	StockID     string          `json:"stock_id"`
	Description string          `json:"description"`
	Rate        decimal.Decimal `json:"rate"`
	Kit         string          `json:"kit,omitempty"`
	Units       string          `json:"units,omitempty"`
	MBFlag      string          `json:"mb_flag,omitempty"`
}

// Key returns the identity used for cart line merging.
func (i Item) Key() ItemKey {
	return ItemKey{StockID: i.StockID, Description: i.Description}
}

// ItemKey is the (stock_id, description) uniqueness key for cart lines.
type ItemKey struct {
	StockID     string
	Description string
}
