package scoring

// RiskLevel is the categorical risk label for one record.
type RiskLevel string

const (
	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"
)

// Thresholds are the fixed cutoffs applied to the inverted, signed score,
// not the min-max display score, which exists only for UI consumption.
type Thresholds struct {
	High   float64
	Medium float64
}

// DefaultThresholds matches the fitted decision cutoff: any positive
// inverted score is past the model's outlier boundary.
func DefaultThresholds() Thresholds {
	return Thresholds{High: 0.05, Medium: 0}
}

// Classify maps an inverted score to a risk tier. Monotonic: a higher
// score never yields a lower tier.
func Classify(score float64, th Thresholds) RiskLevel {
	switch {
	case score > th.High:
		return RiskHigh
	case score > th.Medium:
		return RiskMedium
	default:
		return RiskLow
	}
}
