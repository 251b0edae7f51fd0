package constraint

import (
	"fmt"
	"strings"
	"unicode"
)

// ParseError reports a defect in constraint expression text. Authoring-time
// errors are surfaced immediately, never silently recovered.
type ParseError struct {
	Offset int    // byte offset into the source text
	Msg    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("constraint: parse error at offset %d: %s", e.Offset, e.Msg)
}

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokLParen
	tokRParen
	tokAnd
	tokOr
	tokNot
	tokAtom
)

type token struct {
	kind   tokenKind
	value  string
	offset int
}

func isAtomChar(r rune) bool {
	switch {
	case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9':
		return true
	}
	switch r {
	case '_', ':', '.', '<', '>', '+', '-':
		return true
	}
	return false
}

func tokenize(text string) ([]token, *ParseError) {
	var tokens []token
	i := 0
	for i < len(text) {
		r := rune(text[i])
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '(':
			tokens = append(tokens, token{kind: tokLParen, value: "(", offset: i})
			i++
		case r == ')':
			tokens = append(tokens, token{kind: tokRParen, value: ")", offset: i})
			i++
		case isAtomChar(r):
			start := i
			for i < len(text) && isAtomChar(rune(text[i])) {
				i++
			}
			word := text[start:i]
			// Keywords win over atoms: AND/OR/NOT in any case are never
			// atom names.
			switch strings.ToUpper(word) {
			case "AND":
				tokens = append(tokens, token{kind: tokAnd, value: word, offset: start})
			case "OR":
				tokens = append(tokens, token{kind: tokOr, value: word, offset: start})
			case "NOT":
				tokens = append(tokens, token{kind: tokNot, value: word, offset: start})
			default:
				tokens = append(tokens, token{kind: tokAtom, value: word, offset: start})
			}
		default:
			return nil, &ParseError{Offset: i, Msg: fmt.Sprintf("unknown token %q", r)}
		}
	}
	tokens = append(tokens, token{kind: tokEOF, offset: len(text)})
	return tokens, nil
}

type parser struct {
	tokens []token
	pos    int
}

func (p *parser) peek() token { return p.tokens[p.pos] }

func (p *parser) next() token {
	t := p.tokens[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

// Parse parses the text surface form:
//
//	Expr := Atom | '(' Expr ('AND'|'OR') Expr ')' | '(' 'NOT' Expr ')'
//
// Keywords are case-insensitive; atoms match [A-Za-z0-9_:.<>+-]+. It fails
// with *ParseError on unexpected EOF, unmatched parentheses, unknown tokens,
// or trailing input after a complete expression.
func Parse(text string) (Expr, error) {
	tokens, terr := tokenize(text)
	if terr != nil {
		return nil, terr
	}
	p := &parser{tokens: tokens}
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if tail := p.peek(); tail.kind != tokEOF {
		return nil, &ParseError{Offset: tail.offset, Msg: fmt.Sprintf("trailing input %q after expression", tail.value)}
	}
	return expr, nil
}

func (p *parser) parseExpr() (Expr, *ParseError) {
	switch t := p.next(); t.kind {
	case tokAtom:
		return NewAtom(t.value), nil
	case tokLParen:
		if p.peek().kind == tokNot {
			p.next()
			operand, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if err := p.expect(tokRParen, ")"); err != nil {
				return nil, err
			}
			return NewNot(operand), nil
		}
		left, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		op := p.next()
		if op.kind != tokAnd && op.kind != tokOr {
			return nil, p.unexpected(op, "AND or OR")
		}
		right, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(tokRParen, ")"); err != nil {
			return nil, err
		}
		if op.kind == tokAnd {
			return NewAnd(left, right), nil
		}
		return NewOr(left, right), nil
	case tokEOF:
		return nil, &ParseError{Offset: t.offset, Msg: "unexpected end of input"}
	default:
		return nil, p.unexpected(t, "atom or '('")
	}
}

func (p *parser) expect(kind tokenKind, want string) *ParseError {
	t := p.next()
	if t.kind != kind {
		return p.unexpected(t, want)
	}
	return nil
}

func (p *parser) unexpected(t token, want string) *ParseError {
	got := fmt.Sprintf("%q", t.value)
	if t.kind == tokEOF {
		got = "end of input"
	}
	return &ParseError{Offset: t.offset, Msg: fmt.Sprintf("expected %s, got %s", want, got)}
}
