package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/visionari-app/visionari-backend/pkg/config"
	"github.com/visionari-app/visionari-backend/pkg/enums"
	"github.com/visionari-app/visionari-backend/pkg/errors"
	"github.com/visionari-app/visionari-backend/pkg/types"
)

// Engine prices a product configuration. Pure computation, no I/O.
type Engine interface {
	Price(cfg types.ProductConfig, discountEligible bool) (types.PriceBreakdown, error)
}

type engine struct {
	rates             RateTable
	glossSurcharge    int
	discountRate      decimal.Decimal
	flatShippingCents int
}

// NewEngine builds an engine from config. An operator-supplied rate
// table JSON replaces the default catalog entirely.
func NewEngine(cfg config.PricingConfig) (Engine, error) {
	rates := defaultRates
	if cfg.RateTableJSON != "" {
		parsed, err := ParseRateTable(cfg.RateTableJSON)
		if err != nil {
			return nil, errors.Wrap(errors.CodeConfiguration, err, "invalid pricing rate table")
		}
		rates = parsed
	}
	if cfg.DiscountRate < 0 || cfg.DiscountRate >= 1 {
		return nil, errors.New(errors.CodeConfiguration, "discount rate must be in [0, 1)")
	}
	return &engine{
		rates:             rates,
		glossSurcharge:    cfg.GlossSurchargeCents,
		discountRate:      decimal.NewFromFloat(cfg.DiscountRate),
		flatShippingCents: cfg.FlatShippingCents,
	}, nil
}

func (e *engine) Price(cfg types.ProductConfig, discountEligible bool) (types.PriceBreakdown, error) {
	cfg = cfg.Normalized()
	if err := cfg.Validate(); err != nil {
		return types.PriceBreakdown{}, err
	}

	base, ok := e.rates.BasePriceCents(cfg.ProductType, cfg.Size)
	if !ok {
		// A combination the catalog never sold is a deployment bug,
		// not user input to report back as a validation failure.
		return types.PriceBreakdown{}, errors.New(
			errors.CodeConfiguration,
			fmt.Sprintf("no rate for %s/%s", cfg.ProductType, cfg.Size),
		)
	}

	unit := base
	if cfg.ProductType.HasFinish() && cfg.Finish == enums.PrintFinishGloss {
		unit += e.glossSurcharge
	}
	subtotal := unit * cfg.Quantity

	discount := 0
	if discountEligible {
		discount = int(decimal.NewFromInt(int64(subtotal)).
			Mul(e.discountRate).
			Round(0).
			IntPart())
	}

	breakdown := types.PriceBreakdown{
		SubtotalCents: subtotal,
		DiscountCents: discount,
		ShippingCents: e.flatShippingCents,
		TotalCents:    subtotal - discount + e.flatShippingCents,
		SKU:           DeriveSKU(cfg.ProductType, cfg.Size, cfg.Finish),
	}
	if !breakdown.Consistent() {
		return types.PriceBreakdown{}, errors.New(errors.CodeInternal, "price breakdown inconsistent")
	}
	return breakdown, nil
}
