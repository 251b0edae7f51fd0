package theorem

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Kinrokin/kings-theorem-sub001/pkg/evidence"
)

func TestCertificateDeterministic(t *testing.T) {
	prog, err := Compile(gateRules)
	require.NoError(t, err)
	ev := evidence.Map{"fairness": 0.75, "traditions": 3}

	cert1, data1, err := prog.EvaluateToJSON(ev)
	require.NoError(t, err)
	cert2, data2, err := prog.EvaluateToJSON(ev)
	require.NoError(t, err)

	require.Equal(t, cert1.Seal, cert2.Seal)
	require.Equal(t, data1, data2)
}

func TestCertificateHashChangesWithEvidence(t *testing.T) {
	prog, err := Compile(gateRules)
	require.NoError(t, err)

	cert1, _, err := prog.EvaluateToJSON(evidence.Map{"fairness": 0.75, "traditions": 3})
	require.NoError(t, err)
	cert2, _, err := prog.EvaluateToJSON(evidence.Map{"fairness": 0.76, "traditions": 3})
	require.NoError(t, err)

	require.NotEqual(t, cert1.Seal, cert2.Seal)
}

func TestCertificateHashChangesWithRules(t *testing.T) {
	ev := evidence.Map{"x": 1}

	progA, err := Compile("constraint C: x >= 1\ntheorem T: C -> OK")
	require.NoError(t, err)
	progB, err := Compile("constraint C: x >= 1.0\ntheorem T: C -> OK")
	require.NoError(t, err)

	certA, _, err := progA.EvaluateToJSON(ev)
	require.NoError(t, err)
	certB, _, err := progB.EvaluateToJSON(ev)
	require.NoError(t, err)

	// Same semantics, different source text: a changed rule set is a new
	// certificate identity.
	require.NotEqual(t, certA.Seal, certB.Seal)
}

func TestCertificateContents(t *testing.T) {
	prog, err := Compile(gateRules)
	require.NoError(t, err)

	cert, data, err := prog.EvaluateToJSON(evidence.Map{"fairness": 0.75, "traditions": 3})
	require.NoError(t, err)

	require.Equal(t, FormatVersion, cert.FormatVersion)
	require.Equal(t, prog.RulesHash, cert.RulesHash)
	require.True(t, cert.AllPass)
	require.Equal(t, StatusPass, cert.OverallStatus)
	require.Equal(t, 0.0, cert.ViolationProbability)
	require.Equal(t, evidence.Map{"fairness": 0.75, "traditions": 3}, cert.Evidence)

	// The artifact is canonical JSON: parseable, with the seal embedded
	// under the "certificate" key.
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, cert.Seal, decoded["certificate"])
}

func TestCertificateSealRoundTrip(t *testing.T) {
	prog, err := Compile(gateRules)
	require.NoError(t, err)

	_, data, err := prog.EvaluateToJSON(evidence.Map{"fairness": 0.75, "traditions": 3})
	require.NoError(t, err)

	var back Certificate
	require.NoError(t, json.Unmarshal(data, &back))
	recomputed, err := back.ComputeSeal()
	require.NoError(t, err)
	require.Equal(t, back.Seal, recomputed)
}
