package proof

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// DefaultMaxDepth bounds derivation depth when CheckerConfig leaves it unset.
const DefaultMaxDepth = 64

// ErrNilVerifier is returned when a proof claims invariant satisfaction but
// no verifier was injected to confirm it.
var ErrNilVerifier = errors.New("proof: nil verifier")

// CheckerConfig configures the structural checker.
type CheckerConfig struct {
	// MaxDepth is the derivation depth ceiling. Proofs deeper than this are
	// refuted outright, which bounds worst-case verification cost and blocks
	// resource exhaustion via arbitrarily long chains. Zero or negative
	// selects DefaultMaxDepth.
	MaxDepth int
}

// Checker verifies the structural soundness of proof objects. It holds no
// mutable state and is safe for unbounded concurrent use.
type Checker struct {
	maxDepth int
}

// NewChecker builds a Checker from cfg.
func NewChecker(cfg CheckerConfig) *Checker {
	depth := cfg.MaxDepth
	if depth <= 0 {
		depth = DefaultMaxDepth
	}
	return &Checker{maxDepth: depth}
}

// Check runs the ordered verification pipeline and returns the resulting
// status. The first failing check wins:
//
//  1. premise existence (unresolvable premise: REFUTED)
//  2. cycle detection over the step-premise graph (CONTRADICTORY)
//  3. one-directional self-endorsement of the target (CONTRADICTORY)
//  4. derivation depth ceiling (REFUTED)
//  5. invariant satisfaction via the injected verifier (claimed but
//     unconfirmed: REFUTED; not yet claimed: PENDING, returned immediately)
//  6. otherwise PROVEN
//
// Malformed input never panics; it resolves to REFUTED or CONTRADICTORY.
// Identical inputs with the same verifier always yield the same status; the
// only non-nil error Check can return is a fault from the verifier itself,
// which propagates wrapped and must not be read as a governance verdict.
func (c *Checker) Check(ctx context.Context, obj *Object, verifier Verifier) (Status, error) {
	if obj == nil {
		return StatusRefuted, nil
	}

	steps := make(map[string]*Step, len(obj.Steps))
	assumed := make(map[string]struct{}, len(obj.Assumptions))
	for _, id := range obj.Assumptions {
		assumed[id] = struct{}{}
	}
	for i := range obj.Steps {
		step := &obj.Steps[i]
		if step.ID == "" {
			return StatusRefuted, nil
		}
		if _, dup := steps[step.ID]; dup {
			return StatusRefuted, nil
		}
		if _, shadows := assumed[step.ID]; shadows {
			// A step id colliding with an assumption id makes premise
			// resolution ambiguous.
			return StatusRefuted, nil
		}
		steps[step.ID] = step
	}

	for _, step := range obj.Steps {
		for _, premise := range step.Premises {
			if _, ok := assumed[premise]; ok {
				continue
			}
			if _, ok := steps[premise]; ok {
				continue
			}
			return StatusRefuted, nil
		}
	}

	if hasCycle(obj.Steps, steps) {
		return StatusContradictory, nil
	}

	if selfEndorses(obj, steps) {
		return StatusContradictory, nil
	}

	if maxDerivationDepth(obj.Steps, steps) > c.maxDepth {
		return StatusRefuted, nil
	}

	for _, ref := range sortedRequired(obj.Required) {
		claimed, present := obj.Claims[ref.ID]
		if !present {
			return StatusPending, nil
		}
		if !claimed {
			return StatusRefuted, nil
		}
		if verifier == nil {
			return "", ErrNilVerifier
		}
		confirmed, err := verifier.Verify(ctx, ref)
		if err != nil {
			return "", fmt.Errorf("proof: verifier fault on %s: %w", ref.ID, err)
		}
		if !confirmed {
			return StatusRefuted, nil
		}
	}

	return StatusProven, nil
}

// hasCycle runs a DFS over the step-premise graph with an active-stack set.
// A premise edge back onto the active stack is a cycle. Steps are visited in
// declaration order so the walk is deterministic.
func hasCycle(ordered []Step, steps map[string]*Step) bool {
	const (
		unvisited = 0
		active    = 1
		done      = 2
	)
	state := make(map[string]int, len(ordered))

	var visit func(id string) bool
	visit = func(id string) bool {
		step, ok := steps[id]
		if !ok {
			return false // assumption leaf
		}
		switch state[id] {
		case active:
			return true
		case done:
			return false
		}
		state[id] = active
		for _, premise := range step.Premises {
			if visit(premise) {
				return true
			}
		}
		state[id] = done
		return false
	}

	for _, step := range ordered {
		if visit(step.ID) {
			return true
		}
	}
	return false
}

// selfEndorses detects one-directional circular endorsement the cycle check
// alone misses: a step concluding the target with no non-trivial premises
// (none, or only itself), cited as a premise by some other step.
func selfEndorses(obj *Object, steps map[string]*Step) bool {
	for _, step := range obj.Steps {
		if step.Conclusion != obj.Target {
			continue
		}
		trivial := true
		for _, premise := range step.Premises {
			if premise != step.ID {
				trivial = false
				break
			}
		}
		if !trivial {
			continue
		}
		for _, other := range obj.Steps {
			if other.ID == step.ID {
				continue
			}
			for _, premise := range other.Premises {
				if premise == step.ID {
					return true
				}
			}
		}
	}
	return false
}

// maxDerivationDepth computes the longest derivation chain via memoized
// longest-path recursion. Assumptions contribute depth 0, so a linear chain
// of N steps has depth N. Cycles were eliminated before this runs.
func maxDerivationDepth(ordered []Step, steps map[string]*Step) int {
	memo := make(map[string]int, len(ordered))

	var depth func(id string) int
	depth = func(id string) int {
		step, ok := steps[id]
		if !ok {
			return 0
		}
		if d, ok := memo[id]; ok {
			return d
		}
		longest := 0
		for _, premise := range step.Premises {
			if d := depth(premise); d > longest {
				longest = d
			}
		}
		memo[id] = longest + 1
		return longest + 1
	}

	overall := 0
	for _, step := range ordered {
		if d := depth(step.ID); d > overall {
			overall = d
		}
	}
	return overall
}

// sortedRequired returns the required refs deduplicated by id and sorted, so
// invariant evaluation order (and with it the PENDING short-circuit) is
// deterministic.
func sortedRequired(refs []ConstraintRef) []ConstraintRef {
	byID := make(map[string]ConstraintRef, len(refs))
	for _, ref := range refs {
		if _, ok := byID[ref.ID]; !ok {
			byID[ref.ID] = ref
		}
	}
	out := make([]ConstraintRef, 0, len(byID))
	for _, ref := range byID {
		out = append(out, ref)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
