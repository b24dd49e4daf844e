package imagequality

import (
	"fmt"

	"github.com/visionari-app/visionari-backend/pkg/config"
	"github.com/visionari-app/visionari-backend/pkg/enums"
	"github.com/visionari-app/visionari-backend/pkg/errors"
)

// Result classifies an image against the resolution a print size needs.
type Result struct {
	ImageWidthPx     int                `json:"image_width_px"`
	ImageHeightPx    int                `json:"image_height_px"`
	RequiredWidthPx  int                `json:"required_width_px"`
	RequiredHeightPx int                `json:"required_height_px"`
	CoverageRatio    float64            `json:"coverage_ratio"`
	QualityLevel     enums.QualityLevel `json:"quality_level"`
	IsValid          bool               `json:"is_valid"`
	Warnings         []string           `json:"warnings"`
	Message          string             `json:"message"`
}

// Validator grades image resolution for print sizes. Pure computation;
// resolving pixel dimensions from a URL belongs to the imagemeta client.
type Validator interface {
	Validate(widthPx, heightPx int, size enums.PrintSize, productType enums.ProductType) (Result, error)
}

type validator struct {
	dpi        int
	excellent  float64
	good       float64
	acceptable float64
	poor       float64
}

func NewValidator(cfg config.PrintQualityConfig) (Validator, error) {
	if cfg.DPI <= 0 {
		return nil, errors.New(errors.CodeConfiguration, "print dpi must be positive")
	}
	// Thresholds must be strictly ordered or grading is ambiguous.
	if !(cfg.ExcellentThreshold > cfg.GoodThreshold &&
		cfg.GoodThreshold > cfg.AcceptableThreshold &&
		cfg.AcceptableThreshold > cfg.PoorThreshold &&
		cfg.PoorThreshold > 0) {
		return nil, errors.New(errors.CodeConfiguration, "quality thresholds must be strictly descending and positive")
	}
	return &validator{
		dpi:        cfg.DPI,
		excellent:  cfg.ExcellentThreshold,
		good:       cfg.GoodThreshold,
		acceptable: cfg.AcceptableThreshold,
		poor:       cfg.PoorThreshold,
	}, nil
}

func (v *validator) Validate(widthPx, heightPx int, size enums.PrintSize, productType enums.ProductType) (Result, error) {
	if widthPx <= 0 || heightPx <= 0 {
		return Result{}, errors.New(errors.CodeValidation, "image dimensions must be positive")
	}
	if !productType.IsValid() {
		return Result{}, errors.New(errors.CodeValidation, "unknown product type")
	}
	widthIn, heightIn, err := size.Inches()
	if err != nil {
		return Result{}, errors.Wrap(errors.CodeValidation, err, "unknown print size")
	}

	requiredW := widthIn * v.dpi
	requiredH := heightIn * v.dpi

	ratio := min(
		float64(widthPx)/float64(requiredW),
		float64(heightPx)/float64(requiredH),
	)

	level := v.grade(ratio)
	result := Result{
		ImageWidthPx:     widthPx,
		ImageHeightPx:    heightPx,
		RequiredWidthPx:  requiredW,
		RequiredHeightPx: requiredH,
		CoverageRatio:    ratio,
		QualityLevel:     level,
		IsValid:          level.Printable(),
		Warnings:         v.warnings(ratio, level, size, productType),
		Message:          summaryFor(level, size),
	}
	return result, nil
}

func (v *validator) grade(ratio float64) enums.QualityLevel {
	switch {
	case ratio >= v.excellent:
		return enums.QualityLevelExcellent
	case ratio >= v.good:
		return enums.QualityLevelGood
	case ratio >= v.acceptable:
		return enums.QualityLevelAcceptable
	case ratio >= v.poor:
		return enums.QualityLevelPoor
	default:
		return enums.QualityLevelUnacceptable
	}
}

func (v *validator) warnings(ratio float64, level enums.QualityLevel, size enums.PrintSize, productType enums.ProductType) []string {
	warnings := []string{}
	switch level {
	case enums.QualityLevelGood:
		warnings = append(warnings, fmt.Sprintf("image is slightly below full resolution for %s; fine detail may soften", size))
	case enums.QualityLevelAcceptable:
		warnings = append(warnings, fmt.Sprintf("image will appear soft when printed at %s", size))
	}
	if productType == enums.ProductTypeCanvas && level == enums.QualityLevelAcceptable {
		warnings = append(warnings, "canvas texture hides some softness, but a smaller size would print sharper")
	}
	return warnings
}

func summaryFor(level enums.QualityLevel, size enums.PrintSize) string {
	switch level {
	case enums.QualityLevelExcellent:
		return fmt.Sprintf("excellent quality at %s", size)
	case enums.QualityLevelGood:
		return fmt.Sprintf("good quality at %s", size)
	case enums.QualityLevelAcceptable:
		return fmt.Sprintf("acceptable quality at %s", size)
	case enums.QualityLevelPoor:
		return fmt.Sprintf("resolution too low for a sharp print at %s", size)
	default:
		return fmt.Sprintf("image resolution is insufficient for printing at %s", size)
	}
}
