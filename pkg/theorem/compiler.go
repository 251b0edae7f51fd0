// Package theorem implements the declarative rules DSL: a line-oriented
// compiler for constraints, bounds and theorems, a pure evaluator over
// numeric evidence, and hash-sealed certificates with offline verification.
//
// The DSL:
//
//	# governance rules
//	constraint C1: fairness >= 0.7
//	bound B1: drift <= 0.2
//	theorem T1: C1 & C2 -> COMPOSITION_SAFE
//
// Comparators are >=, <=, >, < and == (epsilon 1e-9). Metrics missing from
// the evidence map read as 0.0, so rules fail closed on incomplete evidence
// instead of crashing.
package theorem

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/Kinrokin/kings-theorem-sub001/pkg/canonical"
)

// Epsilon is the tolerance applied by the == comparator.
const Epsilon = 1e-9

// CompileError reports a defect in DSL source: a malformed line, a duplicate
// id, or a theorem referencing an unknown constraint id. Authoring-time
// errors surface immediately and are never silently recovered.
type CompileError struct {
	Line int
	Msg  string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("theorem: compile error at line %d: %s", e.Line, e.Msg)
}

// Constraint is a single comparison of a metric against a threshold.
type Constraint struct {
	ID         string  `json:"id"`
	Metric     string  `json:"metric"`
	Comparator string  `json:"comparator"`
	Threshold  float64 `json:"threshold"`
}

// Bound shares the constraint shape but is reported and aggregated
// separately for risk gating.
type Bound struct {
	ID         string  `json:"id"`
	Metric     string  `json:"metric"`
	Comparator string  `json:"comparator"`
	Threshold  float64 `json:"threshold"`
}

// Theorem passes iff every antecedent constraint holds; the consequent is
// the label certified when it does.
type Theorem struct {
	ID          string   `json:"id"`
	Antecedents []string `json:"antecedents"`
	Consequent  string   `json:"consequent"`
}

// Program is a compiled rule set. Declaration order is retained so
// evaluation reports are deterministic and read like the source.
type Program struct {
	Constraints map[string]Constraint
	Bounds      map[string]Bound
	Theorems    map[string]Theorem

	// RulesHash is the SHA-256 of the compiled source text, carried into
	// certificates so a rule-set change is visible as a new identity.
	RulesHash string

	constraintOrder []string
	boundOrder      []string
	theoremOrder    []string
}

var comparators = map[string]struct{}{
	">=": {}, "<=": {}, ">": {}, "<": {}, "==": {},
}

// Compile parses DSL source into a Program. Blank lines and '#' comments
// (full-line or trailing) are ignored. Ids share one namespace across
// constraints, bounds and theorems; theorems may reference constraints
// declared later in the source, but never bounds and never unknown ids.
func Compile(src string) (*Program, error) {
	prog := &Program{
		Constraints: make(map[string]Constraint),
		Bounds:      make(map[string]Bound),
		Theorems:    make(map[string]Theorem),
		RulesHash:   canonical.HashBytes([]byte(src)),
	}

	type pendingTheorem struct {
		line    int
		theorem Theorem
	}
	var pending []pendingTheorem

	for i, raw := range strings.Split(src, "\n") {
		lineNo := i + 1
		line := raw
		if idx := strings.Index(line, "#"); idx >= 0 {
			line = line[:idx]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		sep := strings.IndexFunc(line, unicode.IsSpace)
		if sep < 0 {
			return nil, &CompileError{Line: lineNo, Msg: fmt.Sprintf("malformed line %q", line)}
		}
		keyword, rest := line[:sep], line[sep+1:]
		switch keyword {
		case "constraint", "bound":
			id, c, cerr := parseComparison(lineNo, rest)
			if cerr != nil {
				return nil, cerr
			}
			if err := prog.registerID(lineNo, id); err != nil {
				return nil, err
			}
			if keyword == "constraint" {
				prog.Constraints[id] = Constraint{ID: id, Metric: c.Metric, Comparator: c.Comparator, Threshold: c.Threshold}
				prog.constraintOrder = append(prog.constraintOrder, id)
			} else {
				prog.Bounds[id] = Bound{ID: id, Metric: c.Metric, Comparator: c.Comparator, Threshold: c.Threshold}
				prog.boundOrder = append(prog.boundOrder, id)
			}
		case "theorem":
			id, th, terr := parseTheorem(lineNo, rest)
			if terr != nil {
				return nil, terr
			}
			if err := prog.registerID(lineNo, id); err != nil {
				return nil, err
			}
			prog.Theorems[id] = th
			prog.theoremOrder = append(prog.theoremOrder, id)
			pending = append(pending, pendingTheorem{line: lineNo, theorem: th})
		default:
			return nil, &CompileError{Line: lineNo, Msg: fmt.Sprintf("unknown declaration %q", keyword)}
		}
	}

	// Antecedents resolve after the whole source is read, so declaration
	// order between theorems and their constraints does not matter.
	for _, p := range pending {
		for _, ref := range p.theorem.Antecedents {
			if _, ok := prog.Constraints[ref]; ok {
				continue
			}
			if _, ok := prog.Bounds[ref]; ok {
				return nil, &CompileError{Line: p.line, Msg: fmt.Sprintf("theorem %s references bound %s; bounds are gates, not antecedents", p.theorem.ID, ref)}
			}
			return nil, &CompileError{Line: p.line, Msg: fmt.Sprintf("theorem %s references unknown constraint %s", p.theorem.ID, ref)}
		}
	}

	return prog, nil
}

func (p *Program) registerID(line int, id string) *CompileError {
	if _, ok := p.Constraints[id]; ok {
		return &CompileError{Line: line, Msg: fmt.Sprintf("duplicate id %s", id)}
	}
	if _, ok := p.Bounds[id]; ok {
		return &CompileError{Line: line, Msg: fmt.Sprintf("duplicate id %s", id)}
	}
	if _, ok := p.Theorems[id]; ok {
		return &CompileError{Line: line, Msg: fmt.Sprintf("duplicate id %s", id)}
	}
	return nil
}

// parseComparison parses "<ID>: <metric> <op> <value>".
func parseComparison(line int, rest string) (string, Constraint, *CompileError) {
	id, body, ok := cutID(rest)
	if !ok {
		return "", Constraint{}, &CompileError{Line: line, Msg: "expected '<ID>: <metric> <op> <value>'"}
	}
	fields := strings.Fields(body)
	if len(fields) != 3 {
		return "", Constraint{}, &CompileError{Line: line, Msg: fmt.Sprintf("expected '<metric> <op> <value>', got %q", strings.TrimSpace(body))}
	}
	metric, op, rawValue := fields[0], fields[1], fields[2]
	if _, ok := comparators[op]; !ok {
		return "", Constraint{}, &CompileError{Line: line, Msg: fmt.Sprintf("unknown comparator %q", op)}
	}
	value, err := strconv.ParseFloat(rawValue, 64)
	if err != nil {
		return "", Constraint{}, &CompileError{Line: line, Msg: fmt.Sprintf("invalid threshold %q", rawValue)}
	}
	// ParseFloat accepts NaN and Inf, neither of which survives the
	// certificate's JSON encoding.
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return "", Constraint{}, &CompileError{Line: line, Msg: fmt.Sprintf("threshold %q is not a finite number", rawValue)}
	}
	return id, Constraint{ID: id, Metric: metric, Comparator: op, Threshold: value}, nil
}

// parseTheorem parses "<ID>: <ID> (& <ID>)* -> <LABEL>".
func parseTheorem(line int, rest string) (string, Theorem, *CompileError) {
	id, body, ok := cutID(rest)
	if !ok {
		return "", Theorem{}, &CompileError{Line: line, Msg: "expected '<ID>: <ID> (& <ID>)* -> <LABEL>'"}
	}
	lhs, label, ok := strings.Cut(body, "->")
	if !ok {
		return "", Theorem{}, &CompileError{Line: line, Msg: "missing '->' consequent"}
	}
	label = strings.TrimSpace(label)
	if label == "" || len(strings.Fields(label)) != 1 {
		return "", Theorem{}, &CompileError{Line: line, Msg: fmt.Sprintf("consequent must be a single label, got %q", label)}
	}

	var antecedents []string
	for _, part := range strings.Split(lhs, "&") {
		ref := strings.TrimSpace(part)
		if ref == "" || len(strings.Fields(ref)) != 1 {
			return "", Theorem{}, &CompileError{Line: line, Msg: fmt.Sprintf("malformed antecedent list %q", strings.TrimSpace(lhs))}
		}
		antecedents = append(antecedents, ref)
	}

	return id, Theorem{ID: id, Antecedents: antecedents, Consequent: label}, nil
}

// cutID splits "<ID>: rest" and rejects empty or multi-token ids.
func cutID(s string) (id, rest string, ok bool) {
	id, rest, found := strings.Cut(s, ":")
	if !found {
		return "", "", false
	}
	id = strings.TrimSpace(id)
	if id == "" || len(strings.Fields(id)) != 1 {
		return "", "", false
	}
	return id, rest, true
}

// ConstraintIDs returns constraint ids in declaration order.
func (p *Program) ConstraintIDs() []string { return append([]string(nil), p.constraintOrder...) }

// BoundIDs returns bound ids in declaration order.
func (p *Program) BoundIDs() []string { return append([]string(nil), p.boundOrder...) }

// TheoremIDs returns theorem ids in declaration order.
func (p *Program) TheoremIDs() []string { return append([]string(nil), p.theoremOrder...) }
