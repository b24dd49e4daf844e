package types

// PriceBreakdown is the result of pricing a product configuration.
// Amounts are integer cents. Stored as JSONB on the order row.
type PriceBreakdown struct {
	SubtotalCents int    `json:"subtotal_cents"`
	DiscountCents int    `json:"discount_cents"`
	ShippingCents int    `json:"shipping_cents"`
	TotalCents    int    `json:"total_cents"`
	SKU           string `json:"sku"`
}

// Consistent reports whether the breakdown satisfies
// total = subtotal - discount + shipping with a non-negative total.
func (p PriceBreakdown) Consistent() bool {
	return p.TotalCents == p.SubtotalCents-p.DiscountCents+p.ShippingCents &&
		p.TotalCents >= 0 &&
		p.DiscountCents >= 0 &&
		p.ShippingCents >= 0
}
