package cart

// Pricing is the storefront pricing policy applied when deriving totals.
type Pricing struct {
	FreeShippingThreshold float64
	FlatShippingFee       float64
	TaxRate               float64
}

// DefaultPricing matches the storefront defaults: free shipping from 50,
// otherwise a 5.99 flat fee, and an 8% tax rate.
var DefaultPricing = Pricing{
	FreeShippingThreshold: 50,
	FlatShippingFee:       5.99,
	TaxRate:               0.08,
}

// Totals are derived values. They are recomputed from the items on every
// call and never stored.
type Totals struct {
	TotalItems int32   `json:"total_items"`
	Subtotal   float64 `json:"subtotal"`
	Shipping   float64 `json:"shipping"`
	Tax        float64 `json:"tax"`
	Total      float64 `json:"total"`
}

// Totals derives the cart totals under the given pricing policy. Pure over
// the current items: same items, same result.
func (c *Cart) Totals(p Pricing) Totals {
	var t Totals
	for _, li := range c.items {
		t.TotalItems += li.Quantity
		t.Subtotal += li.UnitPrice() * float64(li.Quantity)
	}

	if t.Subtotal < p.FreeShippingThreshold {
		t.Shipping = p.FlatShippingFee
	}
	t.Tax = t.Subtotal * p.TaxRate
	t.Total = t.Subtotal + t.Shipping + t.Tax
	return t
}
