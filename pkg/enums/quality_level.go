package enums

import "fmt"

// QualityLevel classifies how well an image's resolution covers the
// pixel dimensions required for a given print size.
type QualityLevel string

const (
	QualityLevelExcellent    QualityLevel = "excellent"
	QualityLevelGood         QualityLevel = "good"
	QualityLevelAcceptable   QualityLevel = "acceptable"
	QualityLevelPoor         QualityLevel = "poor"
	QualityLevelUnacceptable QualityLevel = "unacceptable"
)

var validQualityLevels = []QualityLevel{
	QualityLevelExcellent,
	QualityLevelGood,
	QualityLevelAcceptable,
	QualityLevelPoor,
	QualityLevelUnacceptable,
}

// qualityLevelRank orders levels best-first for monotonicity checks.
var qualityLevelRank = map[QualityLevel]int{
	QualityLevelExcellent:    4,
	QualityLevelGood:         3,
	QualityLevelAcceptable:   2,
	QualityLevelPoor:         1,
	QualityLevelUnacceptable: 0,
}

// String implements fmt.Stringer.
func (q QualityLevel) String() string {
	return string(q)
}

// IsValid reports whether the value is a known QualityLevel.
func (q QualityLevel) IsValid() bool {
	_, ok := qualityLevelRank[q]
	return ok
}

// Printable reports whether the level allows the order to proceed.
// Poor and Unacceptable block progression past configuration.
func (q QualityLevel) Printable() bool {
	return qualityLevelRank[q] >= qualityLevelRank[QualityLevelAcceptable]
}

// Rank returns the level's position with Unacceptable lowest. Unknown
// levels rank below Unacceptable.
func (q QualityLevel) Rank() int {
	if rank, ok := qualityLevelRank[q]; ok {
		return rank
	}
	return -1
}

// ParseQualityLevel converts raw input into a QualityLevel.
func ParseQualityLevel(value string) (QualityLevel, error) {
	for _, candidate := range validQualityLevels {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid quality level %q", value)
}
