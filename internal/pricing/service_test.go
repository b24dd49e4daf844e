package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/visionari-app/visionari-backend/pkg/config"
	"github.com/visionari-app/visionari-backend/pkg/enums"
	apperrors "github.com/visionari-app/visionari-backend/pkg/errors"
	"github.com/visionari-app/visionari-backend/pkg/types"
)

func defaultPricingConfig() config.PricingConfig {
	return config.PricingConfig{
		GlossSurchargeCents: 500,
		DiscountRate:        0.30,
		FlatShippingCents:   0,
	}
}

func newTestEngine(t *testing.T) Engine {
	t.Helper()
	engine, err := NewEngine(defaultPricingConfig())
	require.NoError(t, err)
	return engine
}

func TestPriceFirstOrderPosterDiscount(t *testing.T) {
	engine := newTestEngine(t)

	breakdown, err := engine.Price(types.ProductConfig{
		ProductType: enums.ProductTypePoster,
		Size:        enums.PrintSize18x24,
		Finish:      enums.PrintFinishMatte,
		Quantity:    1,
	}, true)
	require.NoError(t, err)

	assert.Equal(t, 2400, breakdown.SubtotalCents)
	assert.Equal(t, 720, breakdown.DiscountCents)
	assert.Equal(t, 0, breakdown.ShippingCents)
	assert.Equal(t, 1680, breakdown.TotalCents)
	assert.Equal(t, "PSTR-18X24-M", breakdown.SKU)
	assert.True(t, breakdown.Consistent())
}

func TestPriceCanvasIgnoresFinish(t *testing.T) {
	engine := newTestEngine(t)

	breakdown, err := engine.Price(types.ProductConfig{
		ProductType: enums.ProductTypeCanvas,
		Size:        enums.PrintSize24x36,
		Finish:      enums.PrintFinishGloss,
		Quantity:    1,
	}, false)
	require.NoError(t, err)

	assert.Equal(t, 7900, breakdown.SubtotalCents)
	assert.Equal(t, 0, breakdown.DiscountCents)
	assert.Equal(t, 7900, breakdown.TotalCents)
	assert.Equal(t, "CNVS-24X36", breakdown.SKU)
}

func TestPriceGlossSurchargePerUnit(t *testing.T) {
	engine := newTestEngine(t)

	breakdown, err := engine.Price(types.ProductConfig{
		ProductType: enums.ProductTypePoster,
		Size:        enums.PrintSize12x18,
		Finish:      enums.PrintFinishGloss,
		Quantity:    3,
	}, false)
	require.NoError(t, err)

	// (1400 + 500) * 3
	assert.Equal(t, 5700, breakdown.SubtotalCents)
	assert.Equal(t, 5700, breakdown.TotalCents)
	assert.Equal(t, "PSTR-12X18-G", breakdown.SKU)
}

func TestPriceDiscountNeverStacks(t *testing.T) {
	engine := newTestEngine(t)
	cfg := types.ProductConfig{
		ProductType: enums.ProductTypePoster,
		Size:        enums.PrintSize18x24,
		Finish:      enums.PrintFinishMatte,
		Quantity:    1,
	}

	first, err := engine.Price(cfg, true)
	require.NoError(t, err)
	second, err := engine.Price(cfg, true)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 720, second.DiscountCents)
}

func TestPriceIneligibleHasZeroDiscount(t *testing.T) {
	engine := newTestEngine(t)

	for _, productType := range enums.ProductTypes() {
		for _, size := range enums.PrintSizes() {
			breakdown, err := engine.Price(types.ProductConfig{
				ProductType: productType,
				Size:        size,
				Quantity:    2,
			}, false)
			require.NoError(t, err)
			assert.Zero(t, breakdown.DiscountCents)
			assert.True(t, breakdown.Consistent(), "breakdown for %s/%s", productType, size)
			assert.GreaterOrEqual(t, breakdown.TotalCents, 0)
		}
	}
}

func TestPriceValidatesConfig(t *testing.T) {
	engine := newTestEngine(t)

	_, err := engine.Price(types.ProductConfig{
		ProductType: "mug",
		Size:        enums.PrintSize18x24,
		Quantity:    1,
	}, false)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeValidation, apperrors.As(err).Code())

	_, err = engine.Price(types.ProductConfig{
		ProductType: enums.ProductTypePoster,
		Size:        enums.PrintSize18x24,
		Quantity:    0,
	}, false)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeValidation, apperrors.As(err).Code())
}

func TestPriceUnknownRateIsConfigurationError(t *testing.T) {
	cfg := defaultPricingConfig()
	cfg.RateTableJSON = `{"poster": {"18x24": 2400}}`
	engine, err := NewEngine(cfg)
	require.NoError(t, err)

	_, err = engine.Price(types.ProductConfig{
		ProductType: enums.ProductTypeCanvas,
		Size:        enums.PrintSize24x36,
		Quantity:    1,
	}, false)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeConfiguration, apperrors.As(err).Code())
}

func TestParseRateTableRejectsGarbage(t *testing.T) {
	cases := []string{
		`not json`,
		`{"mug": {"18x24": 100}}`,
		`{"poster": {"19x25": 100}}`,
		`{"poster": {"18x24": -5}}`,
		`{}`,
	}
	for _, raw := range cases {
		_, err := ParseRateTable(raw)
		assert.Error(t, err, "raw=%s", raw)
	}
}

func TestNewEngineRejectsBadDiscountRate(t *testing.T) {
	cfg := defaultPricingConfig()
	cfg.DiscountRate = 1.5
	_, err := NewEngine(cfg)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeConfiguration, apperrors.As(err).Code())
}
