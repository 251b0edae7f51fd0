package constraint

import (
	"encoding/json"
	"fmt"
)

// DecodeError reports a serialized constraint whose shape is not one of the
// recognized tagged variants. Unrecognized shapes are rejected outright,
// never guessed at or stringified.
type DecodeError struct {
	Msg string
}

func (e *DecodeError) Error() string {
	return "constraint: decode error: " + e.Msg
}

// Decode parses the structured surface form: a JSON object with exactly one
// of the tags "atom", "and", "or" or "not".
//
//	{"atom":"NO_EXFIL"}
//	{"and":[{"atom":"A"},{"atom":"B"}]}
//	{"or":[...]}
//	{"not":{"atom":"A"}}
//
// Atom names must match the same charset the text grammar accepts. And/or
// operand lists need at least two entries; nested lists flatten exactly as
// the constructors do, so Decode(Canonical(e)) reproduces e.
func Decode(data []byte) (Expr, error) {
	expr, derr := decode(data)
	if derr != nil {
		return nil, derr
	}
	return expr, nil
}

func decode(data []byte) (Expr, *DecodeError) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &DecodeError{Msg: fmt.Sprintf("not a JSON object: %v", err)}
	}
	if len(raw) != 1 {
		return nil, &DecodeError{Msg: fmt.Sprintf("expected exactly one of atom|and|or|not, got %d keys", len(raw))}
	}
	for tag, body := range raw {
		switch tag {
		case "atom":
			var name string
			if err := json.Unmarshal(body, &name); err != nil {
				return nil, &DecodeError{Msg: "atom name must be a string"}
			}
			if !validAtomName(name) {
				return nil, &DecodeError{Msg: fmt.Sprintf("invalid atom name %q", name)}
			}
			return NewAtom(name), nil
		case "and", "or":
			var items []json.RawMessage
			if err := json.Unmarshal(body, &items); err != nil {
				return nil, &DecodeError{Msg: tag + " operands must be an array"}
			}
			if len(items) < 2 {
				return nil, &DecodeError{Msg: fmt.Sprintf("%s requires at least two operands, got %d", tag, len(items))}
			}
			operands := make([]Expr, 0, len(items))
			for _, item := range items {
				op, derr := decode(item)
				if derr != nil {
					return nil, derr
				}
				operands = append(operands, op)
			}
			if tag == "and" {
				return NewAnd(operands...), nil
			}
			return NewOr(operands...), nil
		case "not":
			operand, derr := decode(body)
			if derr != nil {
				return nil, derr
			}
			return NewNot(operand), nil
		default:
			return nil, &DecodeError{Msg: fmt.Sprintf("unrecognized constraint shape %q", tag)}
		}
	}
	return nil, &DecodeError{Msg: "empty constraint object"}
}

func validAtomName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		if !isAtomChar(r) {
			return false
		}
	}
	return true
}
