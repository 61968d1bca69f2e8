package cart

import (
	"github.com/tillworks/posedge/pkg/types"
)

// Line is one cart entry. Identity is (stock_id, description); quantity is
// always clamped to MaxQuantity by the aggregate.
type Line struct {
	Item        types.Item `json:"item"`
	Quantity    int        `json:"quantity"`
	Discount    string     `json:"discount,omitempty"`
	MaxQuantity int        `json:"max_quantity"`
}

// Cart is the working cart. The id is generated once on first add and never
// changes; the durable copy is keyed by it.
type Cart struct {
	CartID string `json:"cart_id"`
	Items  []Line `json:"items"`
}

func (c *Cart) clone() *Cart {
	if c == nil {
		return nil
	}
	copied := &Cart{CartID: c.CartID, Items: make([]Line, len(c.Items))}
	copy(copied.Items, c.Items)
	return copied
}

func (c *Cart) findLine(key types.ItemKey) int {
	for i, line := range c.Items {
		if line.Item.Key() == key {
			return i
		}
	}
	return -1
}

// WarningKind classifies non-fatal outcomes surfaced to the UI.
type WarningKind string

const (
	// WarnCapacityClamped means a quantity was capped at max_quantity.
	WarnCapacityClamped WarningKind = "capacity_clamped"
	// WarnPersistFailed means the in-memory update landed but the durable
	// write did not. Memory stays authoritative for the session.
	WarnPersistFailed WarningKind = "persist_failed"
)

type Warning struct {
	Kind    WarningKind `json:"kind"`
	Message string      `json:"message"`
}

// Result carries the post-mutation snapshot plus any warnings.
type Result struct {
	Cart     *Cart     `json:"cart"`
	Warnings []Warning `json:"warnings,omitempty"`
}
