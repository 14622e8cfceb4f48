package coinfolio

import (
	"fmt"
	"math"
)

// Percent is a percentage like 2.5 for 2.5%.
type Percent float64

func (p Percent) Equal(q Percent) bool {
	// it has to be compared with some precision
	const precision = 0.0001
	return math.Abs(float64(p-q)) < precision
}

func (p Percent) String() string {
	return fmt.Sprintf("%.2f%%", float64(p))
}

// SignedString prints positive and zero values with a leading '+'.
func (p Percent) SignedString() string {
	if p >= 0 {
		return fmt.Sprintf("+%.2f%%", float64(p))
	}
	return fmt.Sprintf("%.2f%%", float64(p))
}

// IsNegative is true for strictly negative percentages.
func (p Percent) IsNegative() bool { return p < 0 }

// finite replaces NaN and infinities by 0.
func finite(f float64) Percent {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return Percent(f)
}
