package theorem

import (
	"fmt"

	"github.com/Kinrokin/kings-theorem-sub001/pkg/canonical"
	"github.com/Kinrokin/kings-theorem-sub001/pkg/evidence"
)

// FormatVersion is the certificate format this package emits. Consumers
// accept any 1.x certificate.
const FormatVersion = "1.0.0"

// Certificate is a hash-sealed, self-verifying record of one evaluation.
// The seal is a pure function of every other field; recomputing it either
// matches or proves tampering. The sealed payload carries no timestamps or
// random identity, so identical (rules, evidence) runs produce
// byte-identical certificates. Run-scoped identity belongs to the ledger
// record wrapping the certificate, not the certificate itself.
type Certificate struct {
	FormatVersion        string          `json:"format_version"`
	RulesHash            string          `json:"rules_hash"`
	Theorems             []TheoremResult `json:"theorems"`
	Bounds               []BoundResult   `json:"bounds"`
	Evidence             evidence.Map    `json:"evidence"`
	AllPass              bool            `json:"all_pass"`
	OverallStatus        string          `json:"overall_status"`
	ViolationProbability float64         `json:"violation_probability"`
	Seal                 string          `json:"certificate"`
}

// ComputeSeal hashes the certificate's canonical form with the seal field
// cleared.
func (c *Certificate) ComputeSeal() (string, error) {
	unsealed := *c
	unsealed.Seal = ""
	return canonical.Hash(unsealed)
}

// EvaluateToJSON evaluates the program and emits the sealed certificate
// along with its canonical JSON encoding, which is the artifact format
// handed to ledgers and CI.
func (p *Program) EvaluateToJSON(ev evidence.Map) (*Certificate, []byte, error) {
	outcome := p.Evaluate(ev)
	cert := &Certificate{
		FormatVersion:        FormatVersion,
		RulesHash:            p.RulesHash,
		Theorems:             outcome.Theorems,
		Bounds:               outcome.Bounds,
		Evidence:             ev.Snapshot(),
		AllPass:              outcome.AllPass,
		OverallStatus:        outcome.OverallStatus,
		ViolationProbability: outcome.ViolationProbability,
	}

	seal, err := cert.ComputeSeal()
	if err != nil {
		return nil, nil, fmt.Errorf("theorem: certificate seal: %w", err)
	}
	cert.Seal = seal

	data, err := canonical.Marshal(cert)
	if err != nil {
		return nil, nil, fmt.Errorf("theorem: certificate encoding: %w", err)
	}
	return cert, data, nil
}
