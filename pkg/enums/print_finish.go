package enums

import "fmt"

// PrintFinish is the surface finish of a poster print.
type PrintFinish string

const (
	PrintFinishMatte PrintFinish = "matte"
	PrintFinishGloss PrintFinish = "gloss"
	// PrintFinishNone is the normalized finish for products without one.
	PrintFinishNone PrintFinish = ""
)

var validPrintFinishes = []PrintFinish{
	PrintFinishMatte,
	PrintFinishGloss,
}

// String implements fmt.Stringer.
func (f PrintFinish) String() string {
	return string(f)
}

// IsValid reports whether the value is a known selectable PrintFinish.
func (f PrintFinish) IsValid() bool {
	for _, candidate := range validPrintFinishes {
		if candidate == f {
			return true
		}
	}
	return false
}

// ParsePrintFinish converts raw input into a PrintFinish. The empty
// string parses to PrintFinishNone.
func ParsePrintFinish(value string) (PrintFinish, error) {
	if value == "" {
		return PrintFinishNone, nil
	}
	for _, candidate := range validPrintFinishes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid print finish %q", value)
}
