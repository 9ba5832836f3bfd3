// ABOUTME: Recursive-descent arithmetic evaluator behind the calculate tool.
// ABOUTME: Supports + - * / %, parentheses, unary minus, and decimal numbers.

package toolserver

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/francescoreconditi/openai-mcp/internal/tools"
)

// exprCharset is everything the evaluator accepts; anything else is
// rejected before parsing so arbitrary text never reaches the parser.
const exprCharset = "0123456789.+-*/%() \t"

// evaluate parses and computes an arithmetic expression. Syntax problems
// return *tools.ValidationError; division by zero is an execution error.
//
// Grammar:
//
//	expr    = term (('+' | '-') term)*
//	term    = unary (('*' | '/' | '%') unary)*
//	unary   = '-' unary | primary
//	primary = number | '(' expr ')'
func evaluate(expression string) (float64, error) {
	for _, r := range expression {
		if !strings.ContainsRune(exprCharset, r) {
			return 0, tools.Validationf("expression contains invalid characters")
		}
	}

	p := &exprParser{input: expression}
	v, err := p.expr()
	if err != nil {
		return 0, err
	}
	p.skipSpace()
	if p.pos != len(p.input) {
		return 0, tools.Validationf("unexpected %q at offset %d", p.input[p.pos], p.pos)
	}
	return v, nil
}

type exprParser struct {
	input string
	pos   int
}

func (p *exprParser) expr() (float64, error) {
	v, err := p.term()
	if err != nil {
		return 0, err
	}
	for {
		switch {
		case p.accept('+'):
			rhs, err := p.term()
			if err != nil {
				return 0, err
			}
			v += rhs
		case p.accept('-'):
			rhs, err := p.term()
			if err != nil {
				return 0, err
			}
			v -= rhs
		default:
			return v, nil
		}
	}
}

func (p *exprParser) term() (float64, error) {
	v, err := p.unary()
	if err != nil {
		return 0, err
	}
	for {
		switch {
		case p.accept('*'):
			rhs, err := p.unary()
			if err != nil {
				return 0, err
			}
			v *= rhs
		case p.accept('/'):
			rhs, err := p.unary()
			if err != nil {
				return 0, err
			}
			if rhs == 0 {
				return 0, errors.New("division by zero")
			}
			v /= rhs
		case p.accept('%'):
			rhs, err := p.unary()
			if err != nil {
				return 0, err
			}
			if rhs == 0 {
				return 0, errors.New("modulo by zero")
			}
			v = math.Mod(v, rhs)
		default:
			return v, nil
		}
	}
}

func (p *exprParser) unary() (float64, error) {
	if p.accept('-') {
		v, err := p.unary()
		return -v, err
	}
	return p.primary()
}

func (p *exprParser) primary() (float64, error) {
	if p.accept('(') {
		v, err := p.expr()
		if err != nil {
			return 0, err
		}
		if !p.accept(')') {
			return 0, tools.Validationf("missing closing parenthesis")
		}
		return v, nil
	}
	return p.number()
}

func (p *exprParser) number() (float64, error) {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.input) && (isDigit(p.input[p.pos]) || p.input[p.pos] == '.') {
		p.pos++
	}
	if p.pos == start {
		if p.pos >= len(p.input) {
			return 0, tools.Validationf("expression ends unexpectedly")
		}
		return 0, tools.Validationf("unexpected %q at offset %d", p.input[p.pos], p.pos)
	}
	v, err := strconv.ParseFloat(p.input[start:p.pos], 64)
	if err != nil {
		return 0, tools.Validationf("invalid number %q", p.input[start:p.pos])
	}
	return v, nil
}

// accept consumes the next non-space byte when it matches c.
func (p *exprParser) accept(c byte) bool {
	p.skipSpace()
	if p.pos < len(p.input) && p.input[p.pos] == c {
		p.pos++
		return true
	}
	return false
}

func (p *exprParser) skipSpace() {
	for p.pos < len(p.input) && (p.input[p.pos] == ' ' || p.input[p.pos] == '\t') {
		p.pos++
	}
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
