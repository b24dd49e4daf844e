package enums

import "fmt"

// ProductType identifies the physical product a print order produces.
type ProductType string

const (
	ProductTypePoster ProductType = "poster"
	ProductTypeCanvas ProductType = "canvas"
)

var validProductTypes = []ProductType{
	ProductTypePoster,
	ProductTypeCanvas,
}

// String implements fmt.Stringer.
func (p ProductType) String() string {
	return string(p)
}

// IsValid reports whether the value is a known ProductType.
func (p ProductType) IsValid() bool {
	for _, candidate := range validProductTypes {
		if candidate == p {
			return true
		}
	}
	return false
}

// HasFinish reports whether the product type carries a surface finish.
// Canvas prints have none; any finish supplied for them is ignored.
func (p ProductType) HasFinish() bool {
	return p == ProductTypePoster
}

// ProductTypes returns the catalog's product types.
func ProductTypes() []ProductType {
	out := make([]ProductType, len(validProductTypes))
	copy(out, validProductTypes)
	return out
}

// ParseProductType converts raw input into a ProductType.
func ParseProductType(value string) (ProductType, error) {
	for _, candidate := range validProductTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid product type %q", value)
}
