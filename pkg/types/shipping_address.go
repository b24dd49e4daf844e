package types

import "strings"

// ShippingAddress is the destination for a print order. Stored as JSONB
// on the order row. Line2 is the only optional field.
type ShippingAddress struct {
	Name       string  `json:"name"`
	Line1      string  `json:"line1"`
	Line2      *string `json:"line2,omitempty"`
	City       string  `json:"city"`
	State      string  `json:"state"`
	PostalCode string  `json:"postal_code"`
	Country    string  `json:"country"`
}

// MissingFields returns the names of mandatory fields that are still
// empty, in a stable order.
func (a ShippingAddress) MissingFields() []string {
	var missing []string
	checks := []struct {
		name  string
		value string
	}{
		{"name", a.Name},
		{"line1", a.Line1},
		{"city", a.City},
		{"state", a.State},
		{"postal_code", a.PostalCode},
		{"country", a.Country},
	}
	for _, check := range checks {
		if strings.TrimSpace(check.value) == "" {
			missing = append(missing, check.name)
		}
	}
	return missing
}

// Complete reports whether every mandatory field is filled in.
func (a ShippingAddress) Complete() bool {
	return len(a.MissingFields()) == 0
}

// Normalized trims surrounding whitespace from every field.
func (a ShippingAddress) Normalized() ShippingAddress {
	out := ShippingAddress{
		Name:       strings.TrimSpace(a.Name),
		Line1:      strings.TrimSpace(a.Line1),
		City:       strings.TrimSpace(a.City),
		State:      strings.TrimSpace(a.State),
		PostalCode: strings.TrimSpace(a.PostalCode),
		Country:    strings.TrimSpace(a.Country),
	}
	if a.Line2 != nil {
		line2 := strings.TrimSpace(*a.Line2)
		if line2 != "" {
			out.Line2 = &line2
		}
	}
	return out
}
