package pricing

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/visionari-app/visionari-backend/pkg/enums"
)

type rateKey struct {
	productType enums.ProductType
	size        enums.PrintSize
}

// RateTable maps (productType, size) to a base price in cents.
type RateTable map[rateKey]int

// defaultRates is the launch catalog. Operators override it with
// VISIONARI_PRICING_RATE_TABLE_JSON without touching pricing logic.
var defaultRates = RateTable{
	{enums.ProductTypePoster, enums.PrintSize12x18}: 1400,
	{enums.ProductTypePoster, enums.PrintSize18x24}: 2400,
	{enums.ProductTypePoster, enums.PrintSize24x36}: 3600,
	{enums.ProductTypeCanvas, enums.PrintSize12x18}: 4900,
	{enums.ProductTypeCanvas, enums.PrintSize18x24}: 5900,
	{enums.ProductTypeCanvas, enums.PrintSize24x36}: 7900,
}

// BasePriceCents looks up the base price for a catalog entry.
func (t RateTable) BasePriceCents(productType enums.ProductType, size enums.PrintSize) (int, bool) {
	cents, ok := t[rateKey{productType, size}]
	return cents, ok
}

// ParseRateTable decodes an operator-supplied rate table of the form
// {"poster": {"18x24": 2400}, "canvas": {"24x36": 7900}}.
func ParseRateTable(raw string) (RateTable, error) {
	var decoded map[string]map[string]int
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return nil, fmt.Errorf("parsing rate table json: %w", err)
	}
	table := make(RateTable, len(decoded)*3)
	for productRaw, sizes := range decoded {
		productType, err := enums.ParseProductType(strings.TrimSpace(productRaw))
		if err != nil {
			return nil, fmt.Errorf("rate table: %w", err)
		}
		for sizeRaw, cents := range sizes {
			size, err := enums.ParsePrintSize(strings.TrimSpace(sizeRaw))
			if err != nil {
				return nil, fmt.Errorf("rate table: %w", err)
			}
			if cents < 0 {
				return nil, fmt.Errorf("rate table: negative price for %s/%s", productRaw, sizeRaw)
			}
			table[rateKey{productType, size}] = cents
		}
	}
	if len(table) == 0 {
		return nil, fmt.Errorf("rate table is empty")
	}
	return table, nil
}

var skuProductCodes = map[enums.ProductType]string{
	enums.ProductTypePoster: "PSTR",
	enums.ProductTypeCanvas: "CNVS",
}

var skuFinishCodes = map[enums.PrintFinish]string{
	enums.PrintFinishMatte: "M",
	enums.PrintFinishGloss: "G",
}

// DeriveSKU builds the fulfillment SKU, e.g. PSTR-18X24-M or CNVS-24X36.
// Finish is omitted for products without one.
func DeriveSKU(productType enums.ProductType, size enums.PrintSize, finish enums.PrintFinish) string {
	parts := []string{skuProductCodes[productType], strings.ToUpper(size.String())}
	if productType.HasFinish() {
		if code, ok := skuFinishCodes[finish]; ok {
			parts = append(parts, code)
		}
	}
	return strings.Join(parts, "-")
}
