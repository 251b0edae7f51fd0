// Package constraint implements the boolean constraint expression algebra:
// immutable expression trees over named atoms, two accepted surface forms
// (a parenthesized text grammar and a tagged JSON object form), canonical
// serialization for hashing, and a conservative conflict heuristic used by
// the composition engine.
//
// Expression trees are built fresh per parse and never mutated afterwards,
// so they are finite and acyclic by construction and safe to share across
// goroutines.
package constraint

import (
	"bytes"
	"encoding/json"
	"sort"

	"github.com/Kinrokin/kings-theorem-sub001/pkg/canonical"
)

// Expr is a boolean constraint expression over named atoms. The concrete
// variants are Atom, And, Or and Not; the set is closed.
type Expr interface {
	exprNode()
}

// Atom is an indivisible named proposition. Names may carry a
// "NAMESPACE:value" convention for domain grouping, e.g. "SENSITIVE:HEALTH".
type Atom struct {
	Name string
}

// And is an n-ary conjunction. The two-operand form of the text grammar is
// the common case; constructors flatten directly nested conjunctions, which
// is what makes re-parenthesized sources canonically equal.
type And struct {
	Operands []Expr
}

// Or is an n-ary disjunction, flattened like And.
type Or struct {
	Operands []Expr
}

// Not negates a single operand.
type Not struct {
	Operand Expr
}

func (Atom) exprNode() {}
func (And) exprNode()  {}
func (Or) exprNode()   {}
func (Not) exprNode()  {}

// NewAtom builds an atom with the name in Unicode NFC, so byte-different
// spellings of the same identifier collapse to one canonical atom.
func NewAtom(name string) Atom {
	return Atom{Name: canonical.NFC(name)}
}

// NewAnd conjoins operands, flattening directly nested conjunctions.
// A single operand is returned unchanged.
func NewAnd(operands ...Expr) Expr {
	return flatten(operands, true)
}

// NewOr disjoins operands, flattening directly nested disjunctions.
// A single operand is returned unchanged.
func NewOr(operands ...Expr) Expr {
	return flatten(operands, false)
}

// NewNot negates e. Double negation is preserved, not collapsed: the algebra
// records what was written, it does not rewrite logic.
func NewNot(e Expr) Not {
	return Not{Operand: e}
}

func flatten(operands []Expr, conjunction bool) Expr {
	flat := make([]Expr, 0, len(operands))
	for _, op := range operands {
		switch n := op.(type) {
		case And:
			if conjunction {
				flat = append(flat, n.Operands...)
				continue
			}
		case Or:
			if !conjunction {
				flat = append(flat, n.Operands...)
				continue
			}
		}
		flat = append(flat, op)
	}
	if len(flat) == 1 {
		return flat[0]
	}
	if conjunction {
		return And{Operands: flat}
	}
	return Or{Operands: flat}
}

// Atoms returns the distinct atom names referenced by e, sorted.
func Atoms(e Expr) []string {
	seen := map[string]struct{}{}
	collectAtoms(e, seen)
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func collectAtoms(e Expr, into map[string]struct{}) {
	switch n := e.(type) {
	case Atom:
		into[n.Name] = struct{}{}
	case And:
		for _, op := range n.Operands {
			collectAtoms(op, into)
		}
	case Or:
		for _, op := range n.Operands {
			collectAtoms(op, into)
		}
	case Not:
		collectAtoms(n.Operand, into)
	}
}

// ValidateClosure reports whether every atom referenced by e is a member of
// allowed. It sandboxes which propositions an authoring context may use.
func ValidateClosure(e Expr, allowed map[string]struct{}) bool {
	for _, name := range Atoms(e) {
		if _, ok := allowed[name]; !ok {
			return false
		}
	}
	return true
}

// Canonical returns the deterministic serialized form of e: key-sorted,
// whitespace-free JSON in the tagged object shape, with HTML escaping
// disabled. Structurally equal trees serialize identically regardless of
// construction order; the result is the hash pre-image for certificates
// and manifests.
func Canonical(e Expr) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(encodeExpr(e)); err != nil {
		// Unreachable: the encoded shape is maps, slices and strings.
		return ""
	}
	return string(bytes.TrimSpace(buf.Bytes()))
}

// Equal reports structural equality of two expressions.
func Equal(a, b Expr) bool {
	return Canonical(a) == Canonical(b)
}

func encodeExpr(e Expr) interface{} {
	switch n := e.(type) {
	case Atom:
		return map[string]interface{}{"atom": n.Name}
	case And:
		ops := make([]interface{}, 0, len(n.Operands))
		for _, op := range n.Operands {
			ops = append(ops, encodeExpr(op))
		}
		return map[string]interface{}{"and": ops}
	case Or:
		ops := make([]interface{}, 0, len(n.Operands))
		for _, op := range n.Operands {
			ops = append(ops, encodeExpr(op))
		}
		return map[string]interface{}{"or": ops}
	case Not:
		return map[string]interface{}{"not": encodeExpr(n.Operand)}
	default:
		return nil
	}
}
