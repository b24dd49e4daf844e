package types

import (
	"github.com/visionari-app/visionari-backend/pkg/enums"
	pkgerrors "github.com/visionari-app/visionari-backend/pkg/errors"
)

// ProductConfig captures the user's print selections. Stored as JSONB
// on the order row.
type ProductConfig struct {
	ProductType enums.ProductType `json:"product_type"`
	Size        enums.PrintSize   `json:"size"`
	Finish      enums.PrintFinish `json:"finish,omitempty"`
	Quantity    int               `json:"quantity"`
}

// Normalized clears the finish for products that have none. A canvas
// with finish "gloss" is the same product as a canvas without one, so
// the finish must never reach pricing or SKU derivation.
func (c ProductConfig) Normalized() ProductConfig {
	if !c.ProductType.HasFinish() {
		c.Finish = enums.PrintFinishNone
	}
	return c
}

// Validate checks the selections against the product catalog rules.
func (c ProductConfig) Validate() error {
	if !c.ProductType.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown product type")
	}
	if !c.Size.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown print size")
	}
	if c.Quantity <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if c.ProductType.HasFinish() && c.Finish != enums.PrintFinishNone && !c.Finish.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown print finish")
	}
	return nil
}
