package theorem

import (
	"math"

	"github.com/Kinrokin/kings-theorem-sub001/pkg/evidence"
)

// Result statuses for theorems and the overall evaluation.
const (
	StatusPass = "PASS"
	StatusFail = "FAIL"
)

// AntecedentResult is one constraint evaluated inside a theorem, with the
// observed value alongside the requirement so failures are always reported
// as observed-vs-required, never a bare boolean.
type AntecedentResult struct {
	ID         string  `json:"id"`
	Metric     string  `json:"metric"`
	Comparator string  `json:"comparator"`
	Threshold  float64 `json:"threshold"`
	Observed   float64 `json:"observed"`
	Passed     bool    `json:"passed"`
}

// TheoremResult is a theorem's verdict: PASS iff every antecedent passed.
type TheoremResult struct {
	ID          string             `json:"id"`
	Status      string             `json:"status"`
	Antecedents []AntecedentResult `json:"antecedents"`
	Consequent  string             `json:"consequent"`
}

// BoundResult is a bound's verdict, reported separately from theorems for
// risk aggregation.
type BoundResult struct {
	ID         string  `json:"id"`
	Metric     string  `json:"metric"`
	Comparator string  `json:"comparator"`
	Threshold  float64 `json:"threshold"`
	Observed   float64 `json:"observed"`
	Passed     bool    `json:"passed"`
}

// Outcome is a full evaluation of a program against one evidence map.
type Outcome struct {
	Theorems []TheoremResult `json:"theorems"`
	Bounds   []BoundResult   `json:"bounds"`

	// AllPass aggregates the theorems alone; OverallStatus additionally
	// requires every bound to hold.
	AllPass              bool    `json:"all_pass"`
	OverallStatus        string  `json:"overall_status"`
	ViolationProbability float64 `json:"violation_probability"`
}

// Evaluate runs the program against evidence. It is pure and deterministic:
// no I/O, no clock, identical inputs yield identical outcomes. Results
// follow declaration order.
func (p *Program) Evaluate(ev evidence.Map) *Outcome {
	out := &Outcome{
		Theorems: make([]TheoremResult, 0, len(p.theoremOrder)),
		Bounds:   make([]BoundResult, 0, len(p.boundOrder)),
	}

	allTheorems := true
	for _, id := range p.theoremOrder {
		th := p.Theorems[id]
		result := TheoremResult{
			ID:          th.ID,
			Status:      StatusPass,
			Antecedents: make([]AntecedentResult, 0, len(th.Antecedents)),
			Consequent:  th.Consequent,
		}
		for _, ref := range th.Antecedents {
			c := p.Constraints[ref]
			observed := ev.Value(c.Metric)
			passed := compare(observed, c.Comparator, c.Threshold)
			if !passed {
				result.Status = StatusFail
			}
			result.Antecedents = append(result.Antecedents, AntecedentResult{
				ID:         c.ID,
				Metric:     c.Metric,
				Comparator: c.Comparator,
				Threshold:  c.Threshold,
				Observed:   observed,
				Passed:     passed,
			})
		}
		if result.Status == StatusFail {
			allTheorems = false
		}
		out.Theorems = append(out.Theorems, result)
	}

	allBounds := true
	worst := 0.0
	for _, id := range p.boundOrder {
		b := p.Bounds[id]
		observed := ev.Value(b.Metric)
		passed := compare(observed, b.Comparator, b.Threshold)
		if !passed {
			allBounds = false
			if v := violationMagnitude(observed, b.Threshold); v > worst {
				worst = v
			}
		}
		out.Bounds = append(out.Bounds, BoundResult{
			ID:         b.ID,
			Metric:     b.Metric,
			Comparator: b.Comparator,
			Threshold:  b.Threshold,
			Observed:   observed,
			Passed:     passed,
		})
	}

	out.AllPass = allTheorems
	out.ViolationProbability = worst
	if allTheorems && allBounds {
		out.OverallStatus = StatusPass
	} else {
		out.OverallStatus = StatusFail
	}
	return out
}

// FailedTheorems returns the theorem results that did not pass.
func (o *Outcome) FailedTheorems() []TheoremResult {
	var failed []TheoremResult
	for _, t := range o.Theorems {
		if t.Status != StatusPass {
			failed = append(failed, t)
		}
	}
	return failed
}

// FailedBounds returns the bound results that did not pass.
func (o *Outcome) FailedBounds() []BoundResult {
	var failed []BoundResult
	for _, b := range o.Bounds {
		if !b.Passed {
			failed = append(failed, b)
		}
	}
	return failed
}

func compare(observed float64, comparator string, threshold float64) bool {
	switch comparator {
	case ">=":
		return observed >= threshold
	case "<=":
		return observed <= threshold
	case ">":
		return observed > threshold
	case "<":
		return observed < threshold
	case "==":
		return math.Abs(observed-threshold) <= Epsilon
	default:
		return false
	}
}

// violationMagnitude scores how far past its threshold a bound landed,
// relative to the threshold's own scale and clamped to [0,1] so it reads as
// a probability. A threshold near zero falls back to absolute distance.
func violationMagnitude(observed, threshold float64) float64 {
	scale := math.Abs(threshold)
	if scale < 1 {
		scale = 1
	}
	v := math.Abs(observed-threshold) / scale
	if v > 1 {
		return 1
	}
	return v
}
