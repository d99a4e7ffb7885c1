/*
formula.go - Restricted arithmetic formula evaluation

PURPOSE:
  BOM lines and pricing rules carry free-text formulas like
  "width-10" or "(width/12)*basePrice*quantity". This file evaluates
  them against a named variable set.

GRAMMAR (all of it):
  expr    := term (('+' | '-') term)*
  term    := unary (('*' | '/') unary)*
  unary   := ('-' | '+') unary | primary
  primary := NUMBER | IDENT | '(' expr ')'

  Identifiers resolve against the variable map at parse time,
  case-insensitively. There is no text substitution step: "width" can
  never corrupt "widthFactor" because names are matched as whole tokens,
  not substrings. Function calls, string literals, and any character
  outside the grammar are evaluation failures.

FAIL-SOFT CONTRACT:
  Evaluation never panics and never aborts a price run. Every failure
  (unknown variable, malformed syntax, division by zero) yields a zero
  value plus an EvalError describing why, so the caller can attach the
  reason to the line's breakdown. Results are clamped to >= 0: negative
  prices are not representable.

DETERMINISM:
  Same formula + same variables => same result, always. No clocks, no
  randomness, no iteration-order dependence.

SEE ALSO:
  - line.go: Feeds dimension/rule variables into Evaluate
  - errors.go: EvalError definition
*/
package pricing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Variables is the named value set a formula may reference.
// Lookup is case-insensitive.
type Variables map[string]decimal.Decimal

// maxFormulaDepth bounds paren/unary nesting so a pathological formula
// cannot blow the stack.
const maxFormulaDepth = 64

// =============================================================================
// PUBLIC ENTRY POINTS
// =============================================================================

// Evaluate computes a formula over the given variables. The returned value
// is always usable: zero when the formula is blank or evaluation fails,
// clamped to >= 0 otherwise. The error (an *EvalError) reports why a
// failure produced zero; callers pricing a line attach it to the
// breakdown details rather than propagating it.
func Evaluate(formula string, vars Variables) (decimal.Decimal, error) {
	if strings.TrimSpace(formula) == "" {
		return decimal.Zero, nil
	}

	p := &parser{
		input: formula,
		vars:  foldVariables(vars),
	}
	if err := p.tokenize(); err != nil {
		return decimal.Zero, err
	}
	if len(p.tokens) == 0 {
		return decimal.Zero, nil
	}

	result, err := p.parseExpr()
	if err != nil {
		return decimal.Zero, err
	}
	if !p.atEnd() {
		return decimal.Zero, p.errorAt(p.peek().pos, "unexpected token "+p.peek().text)
	}
	return ClampNonNegative(result), nil
}

// EvaluateOrZero is Evaluate for callers that don't need the reason.
func EvaluateOrZero(formula string, vars Variables) decimal.Decimal {
	v, _ := Evaluate(formula, vars)
	return v
}

// foldVariables lowercases keys once so identifier lookup is
// case-insensitive without per-token folding of the whole map.
func foldVariables(vars Variables) map[string]decimal.Decimal {
	folded := make(map[string]decimal.Decimal, len(vars))
	for name, value := range vars {
		folded[strings.ToLower(name)] = value
	}
	return folded
}

// =============================================================================
// TOKENIZER
// =============================================================================

type tokenKind int

const (
	tokNumber tokenKind = iota
	tokIdent
	tokPlus
	tokMinus
	tokStar
	tokSlash
	tokLParen
	tokRParen
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

type parser struct {
	input  string
	tokens []token
	cursor int
	depth  int
	vars   map[string]decimal.Decimal
}

func (p *parser) tokenize() error {
	i := 0
	for i < len(p.input) {
		c := p.input[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '+':
			p.push(tokPlus, "+", i)
			i++
		case c == '-':
			p.push(tokMinus, "-", i)
			i++
		case c == '*':
			p.push(tokStar, "*", i)
			i++
		case c == '/':
			p.push(tokSlash, "/", i)
			i++
		case c == '(':
			p.push(tokLParen, "(", i)
			i++
		case c == ')':
			p.push(tokRParen, ")", i)
			i++
		case isDigit(c) || c == '.':
			start := i
			sawDot := false
			for i < len(p.input) && (isDigit(p.input[i]) || p.input[i] == '.') {
				if p.input[i] == '.' {
					if sawDot {
						return p.errorAt(i, "malformed number")
					}
					sawDot = true
				}
				i++
			}
			text := p.input[start:i]
			if text == "." {
				return p.errorAt(start, "malformed number")
			}
			p.push(tokNumber, text, start)
		case isIdentStart(c):
			start := i
			for i < len(p.input) && isIdentPart(p.input[i]) {
				i++
			}
			p.push(tokIdent, p.input[start:i], start)
		default:
			return p.errorAt(i, "unexpected character "+string(c))
		}
	}
	return nil
}

func (p *parser) push(kind tokenKind, text string, pos int) {
	p.tokens = append(p.tokens, token{kind: kind, text: text, pos: pos})
}

func isDigit(c byte) bool      { return c >= '0' && c <= '9' }
func isIdentStart(c byte) bool { return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }
func isIdentPart(c byte) bool  { return isIdentStart(c) || isDigit(c) }

// =============================================================================
// RECURSIVE-DESCENT PARSER (evaluates as it parses)
// =============================================================================

func (p *parser) parseExpr() (decimal.Decimal, error) {
	left, err := p.parseTerm()
	if err != nil {
		return decimal.Zero, err
	}
	for !p.atEnd() {
		switch p.peek().kind {
		case tokPlus:
			p.advance()
			right, err := p.parseTerm()
			if err != nil {
				return decimal.Zero, err
			}
			left = left.Add(right)
		case tokMinus:
			p.advance()
			right, err := p.parseTerm()
			if err != nil {
				return decimal.Zero, err
			}
			left = left.Sub(right)
		default:
			return left, nil
		}
	}
	return left, nil
}

func (p *parser) parseTerm() (decimal.Decimal, error) {
	left, err := p.parseUnary()
	if err != nil {
		return decimal.Zero, err
	}
	for !p.atEnd() {
		switch p.peek().kind {
		case tokStar:
			p.advance()
			right, err := p.parseUnary()
			if err != nil {
				return decimal.Zero, err
			}
			left = left.Mul(right)
		case tokSlash:
			op := p.advance()
			right, err := p.parseUnary()
			if err != nil {
				return decimal.Zero, err
			}
			if right.IsZero() {
				return decimal.Zero, p.errorAt(op.pos, "division by zero")
			}
			left = left.Div(right)
		default:
			return left, nil
		}
	}
	return left, nil
}

func (p *parser) parseUnary() (decimal.Decimal, error) {
	if p.depth >= maxFormulaDepth {
		return decimal.Zero, p.errorAt(p.peekPos(), "expression nested too deeply")
	}
	p.depth++
	defer func() { p.depth-- }()

	if p.atEnd() {
		return decimal.Zero, p.errorAt(len(p.input), "unexpected end of formula")
	}
	switch p.peek().kind {
	case tokMinus:
		p.advance()
		v, err := p.parseUnary()
		if err != nil {
			return decimal.Zero, err
		}
		return v.Neg(), nil
	case tokPlus:
		p.advance()
		return p.parseUnary()
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (decimal.Decimal, error) {
	if p.atEnd() {
		return decimal.Zero, p.errorAt(len(p.input), "unexpected end of formula")
	}
	tok := p.advance()
	switch tok.kind {
	case tokNumber:
		d, err := decimal.NewFromString(tok.text)
		if err != nil {
			return decimal.Zero, p.errorAt(tok.pos, "malformed number "+tok.text)
		}
		return d, nil

	case tokIdent:
		// Whole-token match: "width" here can never be the prefix of
		// "widthFactor" - the tokenizer already consumed the full name.
		value, ok := p.vars[strings.ToLower(tok.text)]
		if !ok {
			return decimal.Zero, p.errorAt(tok.pos, "unknown variable "+tok.text)
		}
		// A variable directly followed by '(' would be a function call,
		// which the grammar does not have.
		if !p.atEnd() && p.peek().kind == tokLParen {
			return decimal.Zero, p.errorAt(p.peek().pos, "function calls are not supported")
		}
		return value, nil

	case tokLParen:
		v, err := p.parseExpr()
		if err != nil {
			return decimal.Zero, err
		}
		if p.atEnd() || p.peek().kind != tokRParen {
			return decimal.Zero, p.errorAt(tok.pos, "unbalanced parenthesis")
		}
		p.advance()
		return v, nil

	default:
		return decimal.Zero, p.errorAt(tok.pos, "unexpected token "+tok.text)
	}
}

// =============================================================================
// PARSER PLUMBING
// =============================================================================

func (p *parser) atEnd() bool  { return p.cursor >= len(p.tokens) }
func (p *parser) peek() token  { return p.tokens[p.cursor] }
func (p *parser) advance() token {
	t := p.tokens[p.cursor]
	p.cursor++
	return t
}

func (p *parser) peekPos() int {
	if p.atEnd() {
		return len(p.input)
	}
	return p.peek().pos
}

func (p *parser) errorAt(pos int, reason string) *EvalError {
	return &EvalError{Formula: p.input, Pos: pos, Reason: reason}
}
