package enums

import "fmt"

// PrintSize is a fixed physical print dimension in inches, written as
// "WxH" (e.g. "18x24").
type PrintSize string

const (
	PrintSize12x18 PrintSize = "12x18"
	PrintSize18x24 PrintSize = "18x24"
	PrintSize24x36 PrintSize = "24x36"
)

var validPrintSizes = []PrintSize{
	PrintSize12x18,
	PrintSize18x24,
	PrintSize24x36,
}

var printSizeDimensions = map[PrintSize][2]int{
	PrintSize12x18: {12, 18},
	PrintSize18x24: {18, 24},
	PrintSize24x36: {24, 36},
}

// String implements fmt.Stringer.
func (s PrintSize) String() string {
	return string(s)
}

// IsValid reports whether the value is a known PrintSize.
func (s PrintSize) IsValid() bool {
	_, ok := printSizeDimensions[s]
	return ok
}

// Inches returns the physical width and height of the print in inches.
func (s PrintSize) Inches() (width, height int, err error) {
	dims, ok := printSizeDimensions[s]
	if !ok {
		return 0, 0, fmt.Errorf("invalid print size %q", string(s))
	}
	return dims[0], dims[1], nil
}

// PrintSizes returns every selectable size, smallest first.
func PrintSizes() []PrintSize {
	out := make([]PrintSize, len(validPrintSizes))
	copy(out, validPrintSizes)
	return out
}

// ParsePrintSize converts raw input into a PrintSize.
func ParsePrintSize(value string) (PrintSize, error) {
	for _, candidate := range validPrintSizes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid print size %q", value)
}
