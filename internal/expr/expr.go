// Package expr evaluates the constant expressions of #if and #elif.
package expr

import (
	"strconv"

	"github.com/fwessels/cpp/internal/macro"
	"github.com/fwessels/cpp/internal/token"
)

// Value is a preprocessor arithmetic value: 64 bits with a signedness.
type Value struct {
	N        int64
	Unsigned bool
}

func (v Value) String() string {
	if v.Unsigned {
		return strconv.FormatUint(uint64(v.N), 10) + "u"
	}
	return strconv.FormatInt(v.N, 10)
}

func (v Value) isTrue() bool { return v.N != 0 }

func boolValue(b bool) Value {
	if b {
		return Value{N: 1}
	}
	return Value{}
}

// Eval reports whether the condition line of a #if or #elif holds. at is
// the position of the directive and locates errors found at end of line.
func Eval(line []token.Token, table *macro.Table, at token.Pos) (bool, error) {
	v, err := Evaluate(line, table, at)
	return v.isTrue(), err
}

// Evaluate resolves defined, macro-expands the line and computes its value.
func Evaluate(line []token.Token, table *macro.Table, at token.Pos) (Value, error) {
	resolved, err := resolveDefined(line, table)
	if err != nil {
		return Value{}, err
	}
	expanded, err := macro.ExpandCondition(resolved, table)
	if err != nil {
		return Value{}, err
	}
	p := &parser{table: table, end: at}
	for _, tok := range expanded {
		if tok.Kind != token.Whitespace {
			p.toks = append(p.toks, tok)
		}
	}
	if len(p.toks) == 0 {
		return Value{}, token.Errorf(token.EvaluationError, at, "missing expression")
	}
	p.end = p.toks[len(p.toks)-1].Pos
	v, err := p.comma(true)
	if err != nil {
		return Value{}, err
	}
	if tok, ok := p.peek(); ok {
		return Value{}, p.errorf(tok.Pos, "missing binary operator before %q", tok.Text)
	}
	return v, nil
}

// resolveDefined replaces every defined operator on the raw line by 1 or 0
// so that its operand is never macro-expanded.
func resolveDefined(line []token.Token, table *macro.Table) ([]token.Token, error) {
	out := make([]token.Token, 0, len(line))
	for i := 0; i < len(line); i++ {
		tok := line[i]
		if !tok.IsIdent("defined") {
			out = append(out, tok)
			continue
		}
		v, n, err := definedOperand(line[i+1:], table, tok.Pos)
		if err != nil {
			return nil, err
		}
		out = append(out, token.Token{Kind: token.Number, Text: v, Pos: tok.Pos})
		i += n
	}
	return out, nil
}

// definedOperand parses "NAME" or "( NAME )" at the start of rest and
// returns the operator's value and the number of tokens it used.
func definedOperand(rest []token.Token, table *macro.Table, at token.Pos) (string, int, error) {
	skip := func(j int) int {
		for j < len(rest) && rest[j].Kind == token.Whitespace {
			j++
		}
		return j
	}
	j := skip(0)
	paren := j < len(rest) && rest[j].IsPunct("(")
	if paren {
		j = skip(j + 1)
	}
	if j == len(rest) || rest[j].Kind != token.Identifier {
		return "", 0, token.Errorf(token.EvaluationError, at, `operator "defined" requires an identifier`)
	}
	v := "0"
	if table.Defined(rest[j].Text) {
		v = "1"
	}
	j++
	if paren {
		j = skip(j)
		if j == len(rest) || !rest[j].IsPunct(")") {
			return "", 0, token.Errorf(token.EvaluationError, at, `missing ')' after "defined"`)
		}
		j++
	}
	return v, j, nil
}

// Binary operator precedences, loosest first. Alternative spellings are
// mapped to their punctuators by canonical.
var precedence = map[string]int{
	"||": 1,
	"&&": 2,
	"|":  3,
	"^":  4,
	"&":  5,
	"==": 6, "!=": 6,
	"<": 7, ">": 7, "<=": 7, ">=": 7,
	"<<": 8, ">>": 8,
	"+": 9, "-": 9,
	"*": 10, "/": 10, "%": 10,
}

var alternatives = map[string]string{
	"and":    "&&",
	"or":     "||",
	"bitand": "&",
	"bitor":  "|",
	"xor":    "^",
	"not_eq": "!=",
	"not":    "!",
	"compl":  "~",
}

func canonical(tok token.Token) string {
	switch tok.Kind {
	case token.Punctuator:
		return tok.Text
	case token.Identifier:
		return alternatives[tok.Text]
	}
	return ""
}

type parser struct {
	toks  []token.Token
	i     int
	table *macro.Table
	end   token.Pos
}

func (p *parser) errorf(pos token.Pos, format string, args ...any) error {
	return token.Errorf(token.EvaluationError, pos, format, args...)
}

func (p *parser) peek() (token.Token, bool) {
	if p.i >= len(p.toks) {
		return token.Token{}, false
	}
	return p.toks[p.i], true
}

func (p *parser) peekOp() string {
	tok, ok := p.peek()
	if !ok {
		return ""
	}
	return canonical(tok)
}

func (p *parser) expect(op, context string) error {
	tok, ok := p.peek()
	if !ok {
		return p.errorf(p.end, "expected '%s' %s", op, context)
	}
	if canonical(tok) != op {
		return p.errorf(tok.Pos, "expected '%s' %s, found %q", op, context, tok.Text)
	}
	p.i++
	return nil
}

// comma parses expr { "," expr }; its value is the last operand.
func (p *parser) comma(eval bool) (Value, error) {
	v, err := p.conditional(eval)
	for err == nil && p.peekOp() == "," {
		p.i++
		v, err = p.conditional(eval)
	}
	return v, err
}

func (p *parser) conditional(eval bool) (Value, error) {
	c, err := p.binary(1, eval)
	if err != nil || p.peekOp() != "?" {
		return c, err
	}
	p.i++
	t, err := p.comma(eval && c.isTrue())
	if err != nil {
		return Value{}, err
	}
	if err := p.expect(":", "in conditional expression"); err != nil {
		return Value{}, err
	}
	f, err := p.conditional(eval && !c.isTrue())
	if err != nil {
		return Value{}, err
	}
	v := f
	if c.isTrue() {
		v = t
	}
	v.Unsigned = t.Unsigned || f.Unsigned
	return v, nil
}

// binary is a precedence climber over the operators in precedence. Only
// operands that are evaluated may fail with arithmetic errors.
func (p *parser) binary(minPrec int, eval bool) (Value, error) {
	left, err := p.unary(eval)
	if err != nil {
		return Value{}, err
	}
	for {
		tok, _ := p.peek()
		op := p.peekOp()
		prec, ok := precedence[op]
		if !ok || prec < minPrec {
			return left, nil
		}
		p.i++
		switch op {
		case "&&":
			right, err := p.binary(prec+1, eval && left.isTrue())
			if err != nil {
				return Value{}, err
			}
			left = boolValue(left.isTrue() && right.isTrue())
		case "||":
			right, err := p.binary(prec+1, eval && !left.isTrue())
			if err != nil {
				return Value{}, err
			}
			left = boolValue(left.isTrue() || right.isTrue())
		default:
			right, err := p.binary(prec+1, eval)
			if err != nil {
				return Value{}, err
			}
			if left, err = p.apply(op, tok.Pos, left, right, eval); err != nil {
				return Value{}, err
			}
		}
	}
}

func (p *parser) apply(op string, pos token.Pos, l, r Value, eval bool) (Value, error) {
	unsigned := l.Unsigned || r.Unsigned
	switch op {
	case "*":
		return Value{N: l.N * r.N, Unsigned: unsigned}, nil
	case "/", "%":
		if r.N == 0 {
			if !eval {
				return Value{Unsigned: unsigned}, nil
			}
			return Value{}, p.errorf(pos, "division by zero in expression")
		}
		if unsigned {
			a, b := uint64(l.N), uint64(r.N)
			if op == "/" {
				return Value{N: int64(a / b), Unsigned: true}, nil
			}
			return Value{N: int64(a % b), Unsigned: true}, nil
		}
		if op == "/" {
			return Value{N: l.N / r.N}, nil
		}
		return Value{N: l.N % r.N}, nil
	case "+":
		return Value{N: l.N + r.N, Unsigned: unsigned}, nil
	case "-":
		return Value{N: l.N - r.N, Unsigned: unsigned}, nil
	case "<<", ">>":
		return p.shift(op, pos, l, r, eval)
	case "<", ">", "<=", ">=":
		var less, equal bool
		if unsigned {
			less, equal = uint64(l.N) < uint64(r.N), l.N == r.N
		} else {
			less, equal = l.N < r.N, l.N == r.N
		}
		switch op {
		case "<":
			return boolValue(less), nil
		case ">":
			return boolValue(!less && !equal), nil
		case "<=":
			return boolValue(less || equal), nil
		}
		return boolValue(!less), nil
	case "==":
		return boolValue(l.N == r.N), nil
	case "!=":
		return boolValue(l.N != r.N), nil
	case "&":
		return Value{N: l.N & r.N, Unsigned: unsigned}, nil
	case "^":
		return Value{N: l.N ^ r.N, Unsigned: unsigned}, nil
	case "|":
		return Value{N: l.N | r.N, Unsigned: unsigned}, nil
	}
	return Value{}, p.errorf(pos, "unsupported operator %q", op)
}

// shift keeps the signedness of the left operand.
func (p *parser) shift(op string, pos token.Pos, l, r Value, eval bool) (Value, error) {
	if !r.Unsigned && r.N < 0 {
		if !eval {
			return Value{Unsigned: l.Unsigned}, nil
		}
		return Value{}, p.errorf(pos, "negative shift count %d", r.N)
	}
	n := uint64(r.N)
	v := Value{Unsigned: l.Unsigned}
	switch {
	case op == "<<" && n < 64:
		v.N = int64(uint64(l.N) << n)
	case op == ">>" && l.Unsigned && n < 64:
		v.N = int64(uint64(l.N) >> n)
	case op == ">>":
		v.N = l.N >> min(n, 63)
	}
	return v, nil
}

func (p *parser) unary(eval bool) (Value, error) {
	tok, ok := p.peek()
	if !ok {
		return Value{}, p.errorf(p.end, "expected value in expression")
	}
	switch canonical(tok) {
	case "+", "-", "~", "!":
		p.i++
		v, err := p.unary(eval)
		if err != nil {
			return Value{}, err
		}
		switch canonical(tok) {
		case "-":
			v.N = -v.N
		case "~":
			v.N = ^v.N
		case "!":
			v = boolValue(!v.isTrue())
		}
		return v, nil
	}
	return p.primary(eval)
}

func (p *parser) primary(eval bool) (Value, error) {
	tok, _ := p.peek()
	p.i++
	switch tok.Kind {
	case token.Number:
		return parseNumber(tok)
	case token.Character:
		return parseChar(tok)
	case token.Identifier:
		if canonical(tok) != "" {
			break
		}
		switch tok.Text {
		case "true":
			return Value{N: 1}, nil
		case "defined":
			v, n, err := definedOperand(p.toks[p.i:], p.table, tok.Pos)
			if err != nil {
				return Value{}, err
			}
			p.i += n
			return Value{N: int64(v[0] - '0')}, nil
		}
		return Value{}, nil
	case token.Punctuator:
		if tok.Text == "(" {
			v, err := p.comma(eval)
			if err != nil {
				return Value{}, err
			}
			return v, p.expect(")", "in expression")
		}
	}
	return Value{}, p.errorf(tok.Pos, "token %q is not valid in preprocessor expressions", tok.Text)
}
