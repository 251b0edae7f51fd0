// Package proof implements proof objects and their structural checker:
// claimed derivations of a target proposition from assumptions and prior
// steps, independently verified for premise resolution, cycles, circular
// endorsement, derivation depth, and invariant satisfaction.
//
// Steps reference each other by string id inside a flat collection, so the
// graph walk stays index-based and no pointer cycles can form. Objects are
// produced once at authoring time and never mutated; their status is a pure
// function of their fields plus the injected verifier.
package proof

import (
	"context"

	"github.com/Kinrokin/kings-theorem-sub001/pkg/canonical"
)

// Status is a proof verification outcome. PENDING is the only non-terminal
// status: the proof is structurally sound but awaits satisfaction claims.
type Status string

const (
	StatusPending       Status = "PENDING"
	StatusProven        Status = "PROVEN"
	StatusRefuted       Status = "REFUTED"
	StatusContradictory Status = "CONTRADICTORY"
)

// Terminal reports whether s is a final verdict.
func (s Status) Terminal() bool {
	return s == StatusProven || s == StatusRefuted || s == StatusContradictory
}

// ConstraintRef names an external constraint a proof is required to satisfy.
// Source carries the constraint's serialized expression text for audit.
type ConstraintRef struct {
	ID     string `json:"id"`
	Source string `json:"source"`
}

// Step is a single derivation step. Premises reference assumption ids or
// other step ids within the same object.
type Step struct {
	ID         string   `json:"id"`
	Rule       string   `json:"rule"`
	Premises   []string `json:"premises"`
	Conclusion string   `json:"conclusion"`
}

// Object is a claimed derivation of Target from Assumptions via Steps,
// subject to the Required invariants. Claims records which invariants the
// author asserts are satisfied; the checker trusts none of them without the
// injected verifier's confirmation.
type Object struct {
	ID          string          `json:"id"`
	Target      string          `json:"target"`
	Assumptions []string        `json:"assumptions"`
	Steps       []Step          `json:"steps"`
	Required    []ConstraintRef `json:"required"`
	Claims      map[string]bool `json:"claims"`
	Status      Status          `json:"status"`
}

// Fingerprint returns the canonical hash of the object's authored content.
// Status is excluded: it is derived, not authored. A changed derivation
// produces a new fingerprint, never an in-place update.
func (o *Object) Fingerprint() (string, error) {
	return canonical.Hash(struct {
		ID          string          `json:"id"`
		Target      string          `json:"target"`
		Assumptions []string        `json:"assumptions"`
		Steps       []Step          `json:"steps"`
		Required    []ConstraintRef `json:"required"`
		Claims      map[string]bool `json:"claims"`
	}{o.ID, o.Target, o.Assumptions, o.Steps, o.Required, o.Claims})
}

// Verifier independently confirms that a required constraint holds. It is
// supplied by the surrounding governance runtime and may perform signature
// checks, ledger lookups, or live telemetry reads.
//
// A false return is a governance determination; a returned error is an
// infrastructure fault and propagates to the checker's caller untouched.
type Verifier interface {
	Verify(ctx context.Context, ref ConstraintRef) (bool, error)
}

// VerifierFunc adapts a function to the Verifier interface.
type VerifierFunc func(ctx context.Context, ref ConstraintRef) (bool, error)

// Verify implements Verifier.
func (f VerifierFunc) Verify(ctx context.Context, ref ConstraintRef) (bool, error) {
	return f(ctx, ref)
}
