package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Kinrokin/kings-theorem-sub001/pkg/config"
	"github.com/Kinrokin/kings-theorem-sub001/pkg/proof"
)

func writeProfile(t *testing.T, dir, name, body string) {
	t.Helper()
	path := filepath.Join(dir, "profile_"+name+".yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
}

func TestDefaultGateProfile(t *testing.T) {
	p := config.DefaultGateProfile()

	require.Equal(t, "default", p.Name)
	require.Equal(t, proof.DefaultMaxDepth, p.MaxProofDepth)
	require.Equal(t, 0.0, p.MaxViolationProbability)
	require.False(t, p.AdvisoryBounds)
	require.NoError(t, p.Validate())

	policy := p.ConflictPolicy()
	require.Contains(t, policy.ExclusiveNamespaces, "SENSITIVE")
	require.Equal(t, proof.DefaultMaxDepth, p.CheckerConfig().MaxDepth)
}

func TestLoadGateProfile(t *testing.T) {
	dir := t.TempDir()
	writeProfile(t, dir, "ci", `
name: ci
max_proof_depth: 8
max_violation_probability: 0.05
exclusive_namespaces:
  - SENSITIVE
  - REGION
`)

	p, err := config.LoadGateProfile(dir, "CI")
	require.NoError(t, err)
	require.Equal(t, "ci", p.Name)
	require.Equal(t, 8, p.MaxProofDepth)
	require.Equal(t, 0.05, p.MaxViolationProbability)
	require.Equal(t, []string{"SENSITIVE", "REGION"}, p.ExclusiveNamespaces)
	require.Equal(t, 8, p.CheckerConfig().MaxDepth)
}

func TestLoadGateProfile_FillsDefaults(t *testing.T) {
	dir := t.TempDir()
	writeProfile(t, dir, "sparse", "max_violation_probability: 0.5\n")

	p, err := config.LoadGateProfile(dir, "sparse")
	require.NoError(t, err)
	require.Equal(t, "sparse", p.Name)
	require.Equal(t, proof.DefaultMaxDepth, p.MaxProofDepth)
	require.Equal(t, 0.5, p.MaxViolationProbability)
	require.NotEmpty(t, p.ExclusiveNamespaces)
}

func TestLoadGateProfile_Rejections(t *testing.T) {
	dir := t.TempDir()
	writeProfile(t, dir, "badprob", "max_violation_probability: 1.5\n")
	writeProfile(t, dir, "baddepth", "max_proof_depth: -2\n")
	writeProfile(t, dir, "notyaml", "{{nope\n")

	_, err := config.LoadGateProfile(dir, "badprob")
	require.ErrorContains(t, err, "max_violation_probability")

	_, err = config.LoadGateProfile(dir, "baddepth")
	require.ErrorContains(t, err, "max_proof_depth")

	_, err = config.LoadGateProfile(dir, "notyaml")
	require.ErrorContains(t, err, "parse profile")

	_, err = config.LoadGateProfile(dir, "missing")
	require.Error(t, err)
}

func TestLoadAllGateProfiles(t *testing.T) {
	dir := t.TempDir()
	writeProfile(t, dir, "a", "max_proof_depth: 4\n")
	writeProfile(t, dir, "b", "name: b\nmax_proof_depth: 12\n")

	profiles, err := config.LoadAllGateProfiles(dir)
	require.NoError(t, err)
	require.Len(t, profiles, 2)
	require.Equal(t, 4, profiles["a"].MaxProofDepth)
	require.Equal(t, 12, profiles["b"].MaxProofDepth)
}

// TestShippedProfiles exercises the profiles bundled with the repo.
func TestShippedProfiles(t *testing.T) {
	if _, err := os.Stat("profiles"); err != nil {
		t.Skip("profiles directory not found")
	}

	strict, err := config.LoadGateProfile("profiles", "strict")
	require.NoError(t, err)
	require.Equal(t, 16, strict.MaxProofDepth)
	require.Equal(t, 0.0, strict.MaxViolationProbability)
	require.Contains(t, strict.ExclusiveNamespaces, "REGION")

	permissive, err := config.LoadGateProfile("profiles", "permissive")
	require.NoError(t, err)
	require.True(t, permissive.AdvisoryBounds)
	require.Equal(t, 0.25, permissive.MaxViolationProbability)
}
