package chat

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Calculator evaluates arithmetic expressions with +, -, *, /, ** and
// parentheses. Input passes an allow-list gate before parsing, so arbitrary
// text never reaches the evaluator.
type Calculator struct{}

var (
	exprAllowed = regexp.MustCompile(`^[\d\s+\-*/.()]+$`)

	errDivisionByZero = errors.New("division by zero")
	errBadSyntax      = errors.New("invalid syntax")
)

// Run evaluates an expression and renders a conversational reply. Failures
// come back as user-facing messages because the result goes straight to the
// chat surface.
func (Calculator) Run(query string) string {
	query = strings.TrimSpace(query)
	if query == "" {
		return "Error: Please provide a mathematical expression to calculate. For example: 'Calculate 5 + 3'"
	}
	if !exprAllowed.MatchString(query) {
		return "Error: Invalid characters in expression. Only numbers and operators (+, -, *, /, **) are allowed."
	}
	if strings.Count(query, "(") != strings.Count(query, ")") {
		return "Error: Mismatched parentheses in expression."
	}

	result, err := evaluate(query)
	switch {
	case errors.Is(err, errDivisionByZero):
		return "Error: Division by zero is not allowed."
	case err != nil:
		return "Error: Invalid mathematical expression. Please check your syntax."
	case math.IsInf(result, 0):
		return "Error: Result is infinity (number too large)."
	case math.IsNaN(result):
		return "Error: Result is not a number (invalid operation)."
	}

	return fmt.Sprintf("The result of %s is %s", query, formatNumber(result))
}

// formatNumber renders whole results without a decimal part.
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// evaluate runs a recursive descent parser over the expression.
//
//	expr   = term (('+' | '-') term)*
//	term   = factor (('*' | '/') factor)*
//	factor = ('+' | '-') factor | power
//	power  = primary ('**' factor)?
func evaluate(input string) (float64, error) {
	p := &exprParser{input: input}
	v, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	p.skipSpaces()
	if p.pos != len(p.input) {
		return 0, errBadSyntax
	}
	return v, nil
}

type exprParser struct {
	input string
	pos   int
}

func (p *exprParser) skipSpaces() {
	for p.pos < len(p.input) && (p.input[p.pos] == ' ' || p.input[p.pos] == '\t') {
		p.pos++
	}
}

// peek returns the next significant byte without consuming it, or 0 at the
// end of input.
func (p *exprParser) peek() byte {
	p.skipSpaces()
	if p.pos >= len(p.input) {
		return 0
	}
	return p.input[p.pos]
}

func (p *exprParser) parseExpr() (float64, error) {
	left, err := p.parseTerm()
	if err != nil {
		return 0, err
	}

	for {
		switch p.peek() {
		case '+':
			p.pos++
			right, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			left += right
		case '-':
			p.pos++
			right, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			left -= right
		default:
			return left, nil
		}
	}
}

func (p *exprParser) parseTerm() (float64, error) {
	left, err := p.parseFactor()
	if err != nil {
		return 0, err
	}

	for {
		switch p.peek() {
		case '*':
			// '**' belongs to power and is consumed inside parseFactor.
			if p.pos+1 < len(p.input) && p.input[p.pos+1] == '*' {
				return 0, errBadSyntax
			}
			p.pos++
			right, err := p.parseFactor()
			if err != nil {
				return 0, err
			}
			left *= right
		case '/':
			p.pos++
			right, err := p.parseFactor()
			if err != nil {
				return 0, err
			}
			if right == 0 {
				return 0, errDivisionByZero
			}
			left /= right
		default:
			return left, nil
		}
	}
}

func (p *exprParser) parseFactor() (float64, error) {
	switch p.peek() {
	case '+':
		p.pos++
		return p.parseFactor()
	case '-':
		p.pos++
		v, err := p.parseFactor()
		return -v, err
	}
	return p.parsePower()
}

func (p *exprParser) parsePower() (float64, error) {
	base, err := p.parsePrimary()
	if err != nil {
		return 0, err
	}

	p.skipSpaces()
	if p.pos+1 < len(p.input) && p.input[p.pos] == '*' && p.input[p.pos+1] == '*' {
		p.pos += 2
		exp, err := p.parseFactor()
		if err != nil {
			return 0, err
		}
		return math.Pow(base, exp), nil
	}
	return base, nil
}

func (p *exprParser) parsePrimary() (float64, error) {
	if p.peek() == '(' {
		p.pos++
		v, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		if p.peek() != ')' {
			return 0, errBadSyntax
		}
		p.pos++
		return v, nil
	}
	return p.parseNumber()
}

func (p *exprParser) parseNumber() (float64, error) {
	p.skipSpaces()

	start := p.pos
	for p.pos < len(p.input) && (isDigit(p.input[p.pos]) || p.input[p.pos] == '.') {
		p.pos++
	}
	if p.pos == start {
		return 0, errBadSyntax
	}

	v, err := strconv.ParseFloat(p.input[start:p.pos], 64)
	if err != nil {
		return 0, errBadSyntax
	}
	return v, nil
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
