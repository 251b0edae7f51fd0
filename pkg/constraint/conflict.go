package constraint

import (
	"fmt"
	"sort"
	"strings"
)

// ConflictPolicy configures the conflict heuristic. It is an explicit value
// passed to whoever composes constraints; there is no package-level registry.
type ConflictPolicy struct {
	// ExclusiveNamespaces lists namespace prefixes (the part of an atom name
	// before the first ':') whose values are mutually exclusive: two distinct
	// atoms under one such prefix cannot hold at the same time.
	ExclusiveNamespaces []string
}

// DefaultConflictPolicy treats SENSITIVE and DOMAIN as exclusive namespaces.
func DefaultConflictPolicy() ConflictPolicy {
	return ConflictPolicy{ExclusiveNamespaces: []string{"SENSITIVE", "DOMAIN"}}
}

// Check scans a set of expressions for direct contradictions. It is a
// conservative heuristic, not a satisfiability decision: it flags
//
//  1. an atom required by one expression and forbidden (top-level negation)
//     by another, and
//  2. two distinct atoms under one exclusive namespace prefix.
//
// Only top-level conjunct literals are scanned; disjunctions contribute
// nothing because neither branch is committed to. The heuristic may
// false-positive on legitimate multi-domain policies; that trade-off is
// accepted rather than papered over.
//
// It returns composable=true with an empty reason when no conflict is found,
// or composable=false with a deterministic human-readable reason.
func (p ConflictPolicy) Check(exprs []Expr) (bool, string) {
	positive := map[string]struct{}{}
	negative := map[string]struct{}{}
	for _, e := range exprs {
		topLiterals(e, positive, negative)
	}

	for _, name := range sortedKeys(positive) {
		if _, forbidden := negative[name]; forbidden {
			return false, fmt.Sprintf("atom %s is both required and forbidden", name)
		}
	}

	for _, ns := range p.ExclusiveNamespaces {
		prefix := ns + ":"
		var members []string
		for name := range positive {
			if strings.HasPrefix(name, prefix) {
				members = append(members, name)
			}
		}
		if len(members) > 1 {
			sort.Strings(members)
			return false, fmt.Sprintf("namespace %s admits one value, found %s", ns, strings.Join(members, ", "))
		}
	}

	return true, ""
}

// topLiterals collects the atoms an expression commits to at the top level:
// a bare atom, a top-level negated atom, and every conjunct thereof. Or
// branches and negations of compound expressions commit to nothing.
func topLiterals(e Expr, positive, negative map[string]struct{}) {
	switch n := e.(type) {
	case Atom:
		positive[n.Name] = struct{}{}
	case Not:
		if atom, ok := n.Operand.(Atom); ok {
			negative[atom.Name] = struct{}{}
		}
	case And:
		for _, op := range n.Operands {
			topLiterals(op, positive, negative)
		}
	}
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
