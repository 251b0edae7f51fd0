// Package verify provides the invariant verifier implementations wired into
// the structural checker: a CEL-backed verifier for rule-driven confirmation
// and a static table for tests and air-gapped runs.
package verify

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/decls"
	"github.com/google/cel-go/common/types"

	"github.com/Kinrokin/kings-theorem-sub001/pkg/constraint"
	"github.com/Kinrokin/kings-theorem-sub001/pkg/proof"
)

// CELVerifier confirms invariants by evaluating per-constraint CEL rules.
// Rules see three variables: the constraint id, its serialized source, and
// the list of atom names referenced by the source (empty when the source is
// not rehydratable). A constraint with no loaded rule is never confirmed;
// the verifier fails closed rather than guessing.
type CELVerifier struct {
	mu          sync.RWMutex
	env         *cel.Env
	rules       map[string]cel.Program
	sources     map[string]string
	defaultRule cel.Program
}

// NewCELVerifier initializes the CEL environment.
func NewCELVerifier() (*CELVerifier, error) {
	env, err := cel.NewEnv(
		cel.VariableDecls(
			decls.NewVariable("id", types.StringType),
			decls.NewVariable("source", types.StringType),
			decls.NewVariable("atoms", types.NewListType(types.StringType)),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("verify: failed to create CEL env: %w", err)
	}
	return &CELVerifier{
		env:     env,
		rules:   make(map[string]cel.Program),
		sources: make(map[string]string),
	}, nil
}

// LoadRule compiles and registers the rule confirming constraint id.
func (v *CELVerifier) LoadRule(id, source string) error {
	prg, err := v.compile(source)
	if err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.rules[id] = prg
	v.sources[id] = source
	return nil
}

// LoadDefaultRule registers the rule applied to constraints without a
// dedicated rule of their own.
func (v *CELVerifier) LoadDefaultRule(source string) error {
	prg, err := v.compile(source)
	if err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.defaultRule = prg
	return nil
}

// ListRules returns a copy of all loaded rule sources keyed by constraint id.
func (v *CELVerifier) ListRules() map[string]string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make(map[string]string, len(v.sources))
	for k, s := range v.sources {
		out[k] = s
	}
	return out
}

func (v *CELVerifier) compile(source string) (cel.Program, error) {
	ast, issues := v.env.Compile(source)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("verify: rule compilation failed: %w", issues.Err())
	}
	prg, err := v.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("verify: program construction failed: %w", err)
	}
	return prg, nil
}

// Verify implements proof.Verifier. A missing rule yields (false, nil): a
// governance non-confirmation, not a fault. Evaluation errors and non-bool
// results are infrastructure faults and are returned as errors.
func (v *CELVerifier) Verify(ctx context.Context, ref proof.ConstraintRef) (bool, error) {
	v.mu.RLock()
	prg, ok := v.rules[ref.ID]
	if !ok {
		prg = v.defaultRule
	}
	v.mu.RUnlock()

	if prg == nil {
		return false, nil
	}

	input := map[string]interface{}{
		"id":     ref.ID,
		"source": ref.Source,
		"atoms":  sourceAtoms(ref.Source),
	}
	out, _, err := prg.Eval(input)
	if err != nil {
		return false, fmt.Errorf("verify: rule evaluation failed for %s: %w", ref.ID, err)
	}
	confirmed, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("verify: rule for %s returned %T, want bool", ref.ID, out.Value())
	}
	return confirmed, nil
}

// sourceAtoms extracts atom names from a serialized constraint, trying the
// structured form first and the text grammar second.
func sourceAtoms(source string) []string {
	if source == "" {
		return []string{}
	}
	if expr, err := constraint.Decode([]byte(source)); err == nil {
		return constraint.Atoms(expr)
	}
	if expr, err := constraint.Parse(source); err == nil {
		return constraint.Atoms(expr)
	}
	return []string{}
}

// StaticVerifier confirms exactly the constraint ids present with value true
// in its table. Missing ids are not confirmed; it never faults.
type StaticVerifier struct {
	confirmed map[string]bool
}

// NewStaticVerifier copies the given table.
func NewStaticVerifier(confirmed map[string]bool) *StaticVerifier {
	table := make(map[string]bool, len(confirmed))
	for id, ok := range confirmed {
		table[id] = ok
	}
	return &StaticVerifier{confirmed: table}
}

// Verify implements proof.Verifier.
func (v *StaticVerifier) Verify(ctx context.Context, ref proof.ConstraintRef) (bool, error) {
	return v.confirmed[ref.ID], nil
}
