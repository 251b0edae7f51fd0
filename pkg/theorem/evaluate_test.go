package theorem

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Kinrokin/kings-theorem-sub001/pkg/evidence"
)

const gateRules = `
constraint C1: fairness >= 0.7
constraint C2: traditions >= 2
theorem T1: C1 & C2 -> COMPOSITION_SAFE
`

func TestEvaluateTheoremPasses(t *testing.T) {
	prog, err := Compile(gateRules)
	require.NoError(t, err)

	out := prog.Evaluate(evidence.Map{"fairness": 0.75, "traditions": 3})
	require.True(t, out.AllPass)
	require.Equal(t, StatusPass, out.OverallStatus)
	require.Len(t, out.Theorems, 1)
	require.Equal(t, StatusPass, out.Theorems[0].Status)
	require.Equal(t, "COMPOSITION_SAFE", out.Theorems[0].Consequent)
	require.Empty(t, out.FailedTheorems())
}

func TestEvaluateTheoremFailsOnOneAntecedent(t *testing.T) {
	prog, err := Compile(gateRules)
	require.NoError(t, err)

	out := prog.Evaluate(evidence.Map{"fairness": 0.5, "traditions": 3})
	require.False(t, out.AllPass)
	require.Equal(t, StatusFail, out.OverallStatus)

	failed := out.FailedTheorems()
	require.Len(t, failed, 1)
	require.Equal(t, "T1", failed[0].ID)

	// The failing antecedent reports observed vs required, never a bare
	// boolean.
	var c1 AntecedentResult
	for _, a := range failed[0].Antecedents {
		if a.ID == "C1" {
			c1 = a
		}
	}
	require.False(t, c1.Passed)
	require.Equal(t, 0.5, c1.Observed)
	require.Equal(t, 0.7, c1.Threshold)
	require.Equal(t, ">=", c1.Comparator)
}

func TestEvaluateMissingMetricFailsClosed(t *testing.T) {
	prog, err := Compile("constraint C: x >= 0.1\ntheorem T: C -> OK")
	require.NoError(t, err)

	out := prog.Evaluate(evidence.Map{})
	require.False(t, out.AllPass)
	require.Equal(t, 0.0, out.Theorems[0].Antecedents[0].Observed)
	require.False(t, out.Theorems[0].Antecedents[0].Passed)
}

func TestEvaluateComparators(t *testing.T) {
	cases := []struct {
		name     string
		rule     string
		evidence evidence.Map
		pass     bool
	}{
		{"ge boundary", "constraint C: x >= 1.0", evidence.Map{"x": 1.0}, true},
		{"le boundary", "constraint C: x <= 1.0", evidence.Map{"x": 1.0}, true},
		{"gt boundary", "constraint C: x > 1.0", evidence.Map{"x": 1.0}, false},
		{"lt boundary", "constraint C: x < 1.0", evidence.Map{"x": 1.0}, false},
		{"eq exact", "constraint C: x == 0.3", evidence.Map{"x": 0.3}, true},
		{"eq within epsilon", "constraint C: x == 0.3", evidence.Map{"x": 0.3 + 5e-10}, true},
		{"eq outside epsilon", "constraint C: x == 0.3", evidence.Map{"x": 0.3001}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			prog, err := Compile(tc.rule + "\ntheorem T: C -> OK")
			require.NoError(t, err)
			out := prog.Evaluate(tc.evidence)
			require.Equal(t, tc.pass, out.AllPass)
		})
	}
}

func TestEvaluateBoundsReportedSeparately(t *testing.T) {
	src := `
constraint C1: fairness >= 0.7
bound B1: drift <= 0.2
bound B2: loss <= 1.0
theorem T1: C1 -> SAFE
`
	prog, err := Compile(src)
	require.NoError(t, err)

	out := prog.Evaluate(evidence.Map{"fairness": 0.9, "drift": 0.35, "loss": 0.4})

	// Theorems all pass, yet the violated bound fails the overall gate.
	require.True(t, out.AllPass)
	require.Equal(t, StatusFail, out.OverallStatus)

	failed := out.FailedBounds()
	require.Len(t, failed, 1)
	require.Equal(t, "B1", failed[0].ID)
	require.Equal(t, 0.35, failed[0].Observed)
	require.Equal(t, 0.2, failed[0].Threshold)
}

func TestEvaluateViolationProbability(t *testing.T) {
	src := `
bound B1: drift <= 0.2
bound B2: loss <= 2.0
`
	prog, err := Compile(src)
	require.NoError(t, err)

	// No violations: probability 0.
	out := prog.Evaluate(evidence.Map{"drift": 0.1, "loss": 1.0})
	require.Equal(t, 0.0, out.ViolationProbability)

	// drift overshoots by 0.15 against scale 1 (threshold below 1), loss by
	// 1.0 against scale 2: worst is 0.5.
	out = prog.Evaluate(evidence.Map{"drift": 0.35, "loss": 3.0})
	require.InDelta(t, 0.5, out.ViolationProbability, 1e-12)

	// Overshoot beyond the scale clamps to 1.
	out = prog.Evaluate(evidence.Map{"drift": 5.0, "loss": 1.0})
	require.Equal(t, 1.0, out.ViolationProbability)
}

func TestEvaluateDeterministicOrder(t *testing.T) {
	src := `
constraint C2: b >= 1
constraint C1: a >= 1
theorem T2: C2 -> X
theorem T1: C1 -> Y
`
	prog, err := Compile(src)
	require.NoError(t, err)
	out := prog.Evaluate(evidence.Map{"a": 1, "b": 1})

	// Declaration order, not lexical order.
	require.Equal(t, "T2", out.Theorems[0].ID)
	require.Equal(t, "T1", out.Theorems[1].ID)
}

func TestEvaluateNilEvidence(t *testing.T) {
	prog, err := Compile("constraint C: x >= 0.5\ntheorem T: C -> OK")
	require.NoError(t, err)
	out := prog.Evaluate(nil)
	require.False(t, out.AllPass)
}
