package theorem

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleRules = `
# governance rules for composition gating
constraint C1: fairness >= 0.7
constraint C2: traditions >= 2

bound B1: drift <= 0.2   # trailing comments are fine

theorem T1: C1 & C2 -> COMPOSITION_SAFE
`

func TestCompile(t *testing.T) {
	prog, err := Compile(sampleRules)
	require.NoError(t, err)

	require.Equal(t, []string{"C1", "C2"}, prog.ConstraintIDs())
	require.Equal(t, []string{"B1"}, prog.BoundIDs())
	require.Equal(t, []string{"T1"}, prog.TheoremIDs())

	c1 := prog.Constraints["C1"]
	require.Equal(t, "fairness", c1.Metric)
	require.Equal(t, ">=", c1.Comparator)
	require.Equal(t, 0.7, c1.Threshold)

	b1 := prog.Bounds["B1"]
	require.Equal(t, "drift", b1.Metric)
	require.Equal(t, "<=", b1.Comparator)

	t1 := prog.Theorems["T1"]
	require.Equal(t, []string{"C1", "C2"}, t1.Antecedents)
	require.Equal(t, "COMPOSITION_SAFE", t1.Consequent)

	require.NotEmpty(t, prog.RulesHash)
}

func TestCompileTheoremBeforeConstraint(t *testing.T) {
	src := `theorem T1: C1 -> SAFE
constraint C1: fairness >= 0.7`
	_, err := Compile(src)
	require.NoError(t, err)
}

func TestCompileSingleAntecedent(t *testing.T) {
	prog, err := Compile("constraint C1: x > 0\ntheorem T1: C1 -> OK")
	require.NoError(t, err)
	require.Equal(t, []string{"C1"}, prog.Theorems["T1"].Antecedents)
}

func TestCompileNegativeAndScientificThresholds(t *testing.T) {
	prog, err := Compile("constraint C1: delta >= -0.5\nbound B1: err <= 1e-3")
	require.NoError(t, err)
	require.Equal(t, -0.5, prog.Constraints["C1"].Threshold)
	require.Equal(t, 0.001, prog.Bounds["B1"].Threshold)
}

func TestCompileErrors(t *testing.T) {
	cases := []struct {
		name string
		src  string
		line int
	}{
		{"unknown declaration", "axiom A1: x >= 1", 1},
		{"missing colon", "constraint C1 x >= 1", 1},
		{"missing value", "constraint C1: x >=", 1},
		{"extra tokens", "constraint C1: x >= 1 2", 1},
		{"bad comparator", "constraint C1: x != 1", 1},
		{"bad threshold", "constraint C1: x >= fast", 1},
		{"nan threshold", "constraint C1: x >= NaN", 1},
		{"inf threshold", "bound B1: x <= +Inf", 1},
		{"multi-token id", "constraint C 1: x >= 1", 1},
		{"duplicate id", "constraint C1: x >= 1\nbound C1: y <= 2", 2},
		{"theorem missing arrow", "constraint C1: x >= 1\ntheorem T1: C1 SAFE", 2},
		{"theorem multi-word label", "constraint C1: x >= 1\ntheorem T1: C1 -> VERY SAFE", 2},
		{"theorem empty antecedent", "constraint C1: x >= 1\ntheorem T1: C1 & -> SAFE", 2},
		{"unknown antecedent", "constraint C1: x >= 1\ntheorem T1: C1 & GHOST -> SAFE", 2},
		{"bare keyword", "constraint", 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Compile(tc.src)
			require.Error(t, err)
			var cerr *CompileError
			require.ErrorAs(t, err, &cerr)
			require.Equal(t, tc.line, cerr.Line)
		})
	}
}

func TestCompileTheoremReferencingBound(t *testing.T) {
	src := `constraint C1: x >= 1
bound B1: y <= 2
theorem T1: C1 & B1 -> SAFE`
	_, err := Compile(src)
	require.Error(t, err)
	var cerr *CompileError
	require.ErrorAs(t, err, &cerr)
	require.Contains(t, cerr.Msg, "bound")
}

func TestCompileEmptySource(t *testing.T) {
	prog, err := Compile("")
	require.NoError(t, err)
	require.Empty(t, prog.ConstraintIDs())
	require.Empty(t, prog.BoundIDs())
	require.Empty(t, prog.TheoremIDs())
}

func TestCompileRulesHashTracksSource(t *testing.T) {
	a, err := Compile("constraint C1: x >= 1")
	require.NoError(t, err)
	b, err := Compile("constraint C1: x >= 1")
	require.NoError(t, err)
	c, err := Compile("constraint C1: x >= 2")
	require.NoError(t, err)

	require.Equal(t, a.RulesHash, b.RulesHash)
	require.NotEqual(t, a.RulesHash, c.RulesHash)
}
