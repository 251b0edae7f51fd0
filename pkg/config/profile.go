package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Kinrokin/kings-theorem-sub001/pkg/constraint"
	"github.com/Kinrokin/kings-theorem-sub001/pkg/proof"
)

// GateProfile tunes gate strictness per deployment: how deep proofs may
// derive, how much bound violation the run tolerates, and which atom
// namespaces are mutually exclusive during composition.
type GateProfile struct {
	Name                    string   `yaml:"name" json:"name"`
	MaxProofDepth           int      `yaml:"max_proof_depth" json:"max_proof_depth"`
	MaxViolationProbability float64  `yaml:"max_violation_probability" json:"max_violation_probability"`
	ExclusiveNamespaces     []string `yaml:"exclusive_namespaces" json:"exclusive_namespaces"`

	// AdvisoryBounds reports violated bounds without failing the run.
	AdvisoryBounds bool `yaml:"advisory_bounds,omitempty" json:"advisory_bounds,omitempty"`
}

// DefaultGateProfile is the profile used when no profile file is named.
func DefaultGateProfile() *GateProfile {
	return &GateProfile{
		Name:                    "default",
		MaxProofDepth:           proof.DefaultMaxDepth,
		MaxViolationProbability: 0,
		ExclusiveNamespaces:     constraint.DefaultConflictPolicy().ExclusiveNamespaces,
	}
}

// ConflictPolicy maps the profile onto the composition conflict policy.
func (p *GateProfile) ConflictPolicy() constraint.ConflictPolicy {
	if len(p.ExclusiveNamespaces) == 0 {
		return constraint.DefaultConflictPolicy()
	}
	return constraint.ConflictPolicy{ExclusiveNamespaces: p.ExclusiveNamespaces}
}

// CheckerConfig maps the profile onto the proof checker configuration.
func (p *GateProfile) CheckerConfig() proof.CheckerConfig {
	return proof.CheckerConfig{MaxDepth: p.MaxProofDepth}
}

// Validate rejects profiles the gate cannot run with.
func (p *GateProfile) Validate() error {
	if p.MaxProofDepth < 1 {
		return fmt.Errorf("config: profile %q: max_proof_depth must be >= 1, got %d", p.Name, p.MaxProofDepth)
	}
	if p.MaxViolationProbability < 0 || p.MaxViolationProbability > 1 {
		return fmt.Errorf("config: profile %q: max_violation_probability must be in [0,1], got %g", p.Name, p.MaxViolationProbability)
	}
	return nil
}

// LoadGateProfile loads a gate profile YAML by name. It searches the
// profiles directory for profile_<name>.yaml. Absent fields fall back to
// the default profile's values.
func LoadGateProfile(profilesDir, name string) (*GateProfile, error) {
	name = strings.ToLower(name)
	path := filepath.Join(profilesDir, fmt.Sprintf("profile_%s.yaml", name))

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load profile %q: %w", name, err)
	}

	var profile GateProfile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("parse profile %q: %w", name, err)
	}

	defaults := DefaultGateProfile()
	if profile.Name == "" {
		profile.Name = name
	}
	if profile.MaxProofDepth == 0 {
		profile.MaxProofDepth = defaults.MaxProofDepth
	}
	if profile.ExclusiveNamespaces == nil {
		profile.ExclusiveNamespaces = defaults.ExclusiveNamespaces
	}

	if err := profile.Validate(); err != nil {
		return nil, err
	}
	return &profile, nil
}

// LoadAllGateProfiles loads all profile_*.yaml files from the profiles
// directory, keyed by profile name.
func LoadAllGateProfiles(profilesDir string) (map[string]*GateProfile, error) {
	matches, err := filepath.Glob(filepath.Join(profilesDir, "profile_*.yaml"))
	if err != nil {
		return nil, err
	}

	profiles := make(map[string]*GateProfile, len(matches))
	for _, path := range matches {
		base := filepath.Base(path)
		name := strings.TrimSuffix(strings.TrimPrefix(base, "profile_"), ".yaml")

		profile, err := LoadGateProfile(profilesDir, name)
		if err != nil {
			return nil, err
		}
		profiles[profile.Name] = profile
	}
	return profiles, nil
}
