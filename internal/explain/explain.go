// Package explain renders the human-readable reason attached to each
// scored record. Two interchangeable strategies: attribution-based when
// per-feature contributions are available, rule-based inspection of the
// feature values otherwise. Neither ever fails for a well-formed vector;
// the absence of a clear signal degrades to a generic message.
package explain

import (
	"fmt"
	"sort"
	"strings"

	"github.com/payguard-ai/payguard/internal/feature"
)

const (
	// NormalMessage is attached to every non-flagged record.
	NormalMessage = "Normal behavior detected."
	// genericMessage is the fallback when no single feature stands out.
	genericMessage = "Anomalous pattern detected across multiple features."

	// materiality is the cutoff below which a contribution counts as
	// meaningfully pushing the score toward anomaly (contributions are
	// negative in the anomalous direction).
	materiality = -0.01
)

// Generator renders explanations for scored records.
type Generator struct {
	// VarianceCutoff is the department-salary-variance level above which
	// the rule-based strategy calls out the salary deviation.
	VarianceCutoff float64
}

// New returns a Generator with the given rule cutoff.
func New(varianceCutoff float64) Generator {
	return Generator{VarianceCutoff: varianceCutoff}
}

// Explain produces the message for one record. contribs may be nil, in
// which case the rule-based strategy inspects the feature values directly;
// daysPresent is the merged attendance figure, nil when absent.
func (g Generator) Explain(flagged bool, vec feature.Vector, daysPresent *float64, contribs []float64) string {
	if !flagged {
		return NormalMessage
	}
	if contribs != nil {
		return fromContributions(contribs)
	}
	return g.fromRules(vec, daysPresent)
}

// fromContributions selects the features contributing most toward the
// anomalous direction: the 2 most negative contributions that clear the
// materiality cutoff.
func fromContributions(contribs []float64) string {
	names := feature.Names()
	idx := make([]int, 0, len(contribs))
	for i := range contribs {
		if i < len(names) {
			idx = append(idx, i)
		}
	}
	sort.Slice(idx, func(a, b int) bool { return contribs[idx[a]] < contribs[idx[b]] })

	var top []string
	for _, i := range idx {
		if len(top) == 2 {
			break
		}
		if contribs[i] < materiality {
			top = append(top, humanize(names[i]))
		}
	}
	if len(top) == 0 {
		return genericMessage
	}
	return "Flagged mainly due to: " + strings.Join(top, " and ") + "."
}

func (g Generator) fromRules(vec feature.Vector, daysPresent *float64) string {
	var reasons []string
	if daysPresent != nil && *daysPresent == 0 && vec.Salary > 0 {
		reasons = append(reasons, "Zero attendance recorded despite positive salary.")
	}
	if vec.EmailCollisions > 1 {
		reasons = append(reasons, fmt.Sprintf("Email address shared across %d records.", int(vec.EmailCollisions)))
	}
	if vec.PhoneCollisions > 1 {
		reasons = append(reasons, fmt.Sprintf("Phone number shared across %d records.", int(vec.PhoneCollisions)))
	}
	if vec.Completeness < 100 {
		reasons = append(reasons, fmt.Sprintf("Profile only %.0f%% complete.", vec.Completeness))
	}
	if vec.SalaryVariance > g.VarianceCutoff {
		reasons = append(reasons, fmt.Sprintf("Salary deviates %.0f%% from the department average.", vec.SalaryVariance*100))
	}
	if len(reasons) == 0 {
		return genericMessage
	}
	return strings.Join(reasons, " ")
}

func humanize(featureName string) string {
	return strings.ReplaceAll(featureName, "_", " ")
}
