package theorem

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/Masterminds/semver/v3"
)

// formatCompat is the range of certificate format versions this build can
// verify.
const formatCompat = ">=1.0.0, <2.0.0"

// CheckResult is one verification check's outcome.
type CheckResult struct {
	Name   string `json:"name"`
	Pass   bool   `json:"pass"`
	Detail string `json:"detail,omitempty"`
}

// VerifyReport is the structured result of offline certificate
// verification.
type VerifyReport struct {
	Verified   bool          `json:"verified"`
	Checks     []CheckResult `json:"checks"`
	IssueCount int           `json:"issue_count"`
	Summary    string        `json:"summary"`
}

// VerifyCertificate re-checks a serialized certificate without the rule
// source or evidence that produced it: format compatibility, seal
// recomputation, and internal consistency of the aggregated fields. A
// non-JSON payload is an error; a failing check is a report, not an error.
func VerifyCertificate(data []byte) (*VerifyReport, error) {
	var cert Certificate
	if err := json.Unmarshal(data, &cert); err != nil {
		return nil, fmt.Errorf("theorem: certificate payload is not valid JSON: %w", err)
	}

	report := &VerifyReport{}
	report.add("format_version", checkFormatVersion(cert.FormatVersion))
	report.add("seal", checkSeal(&cert))
	report.add("aggregates", checkAggregates(&cert))

	report.Verified = report.IssueCount == 0
	verdict := "PASS"
	if !report.Verified {
		verdict = "FAIL"
	}
	report.Summary = fmt.Sprintf("%s: %d/%d checks passed", verdict, len(report.Checks)-report.IssueCount, len(report.Checks))
	return report, nil
}

func (r *VerifyReport) add(name string, detail string) {
	pass := detail == ""
	if !pass {
		r.IssueCount++
	}
	r.Checks = append(r.Checks, CheckResult{Name: name, Pass: pass, Detail: detail})
}

// checkFormatVersion returns "" when the version is parseable and inside the
// compatibility range.
func checkFormatVersion(version string) string {
	v, err := semver.NewVersion(version)
	if err != nil {
		return fmt.Sprintf("format_version %q is not a semantic version", version)
	}
	compat, err := semver.NewConstraint(formatCompat)
	if err != nil {
		return fmt.Sprintf("internal: bad compatibility range: %v", err)
	}
	if !compat.Check(v) {
		return fmt.Sprintf("format_version %s outside supported range %s", version, formatCompat)
	}
	return ""
}

// checkSeal recomputes the hash over the non-seal fields.
func checkSeal(cert *Certificate) string {
	if cert.Seal == "" {
		return "certificate is unsealed"
	}
	expected, err := cert.ComputeSeal()
	if err != nil {
		return fmt.Sprintf("seal recomputation failed: %v", err)
	}
	if expected != cert.Seal {
		return fmt.Sprintf("seal mismatch: embedded %s, recomputed %s", cert.Seal, expected)
	}
	return ""
}

// checkAggregates re-derives all_pass, overall_status and
// violation_probability from the per-result fields.
func checkAggregates(cert *Certificate) string {
	allTheorems := true
	for _, t := range cert.Theorems {
		pass := true
		for _, a := range t.Antecedents {
			if compare(a.Observed, a.Comparator, a.Threshold) != a.Passed {
				return fmt.Sprintf("theorem %s antecedent %s: passed=%t disagrees with %g %s %g",
					t.ID, a.ID, a.Passed, a.Observed, a.Comparator, a.Threshold)
			}
			if !a.Passed {
				pass = false
			}
		}
		if pass != (t.Status == StatusPass) {
			return fmt.Sprintf("theorem %s status %s disagrees with its antecedents", t.ID, t.Status)
		}
		if !pass {
			allTheorems = false
		}
	}
	if cert.AllPass != allTheorems {
		return fmt.Sprintf("all_pass=%t disagrees with theorem results", cert.AllPass)
	}

	allBounds := true
	worst := 0.0
	for _, b := range cert.Bounds {
		if compare(b.Observed, b.Comparator, b.Threshold) != b.Passed {
			return fmt.Sprintf("bound %s: passed=%t disagrees with %g %s %g",
				b.ID, b.Passed, b.Observed, b.Comparator, b.Threshold)
		}
		if !b.Passed {
			allBounds = false
			if v := violationMagnitude(b.Observed, b.Threshold); v > worst {
				worst = v
			}
		}
	}
	wantStatus := StatusFail
	if allTheorems && allBounds {
		wantStatus = StatusPass
	}
	if cert.OverallStatus != wantStatus {
		return fmt.Sprintf("overall_status=%s disagrees with results (want %s)", cert.OverallStatus, wantStatus)
	}
	if cert.ViolationProbability < 0 || cert.ViolationProbability > 1 {
		return fmt.Sprintf("violation_probability %g outside [0,1]", cert.ViolationProbability)
	}
	if math.Abs(cert.ViolationProbability-worst) > Epsilon {
		return fmt.Sprintf("violation_probability %g disagrees with bounds (want %g)", cert.ViolationProbability, worst)
	}
	return ""
}
