// README: Customer cart; one document per customer, cleared after payment.
package cart

import "skyeats/internal/types"

type Line struct {
	ItemID   types.ID `json:"item_id"`
	Quantity int      `json:"quantity"`
	Price    int64    `json:"price"`
	Subtotal int64    `json:"subtotal"`
	Note     string   `json:"note,omitempty"`
}

type Cart struct {
	CustomerID  types.ID
	Lines       []Line
	TotalAmount int64
}

// RecomputeTotals applies the same numeric rule as the order ledger.
func (c *Cart) RecomputeTotals() {
	var total int64
	for i := range c.Lines {
		c.Lines[i].Subtotal = c.Lines[i].Price * int64(c.Lines[i].Quantity)
		total += c.Lines[i].Subtotal
	}
	c.TotalAmount = total
}
