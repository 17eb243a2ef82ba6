package macro

import (
	"io"
	"strings"

	"github.com/fwessels/cpp/internal/lexer"
	"github.com/fwessels/cpp/internal/token"
)

// MaxDepth bounds nested expansions, counting argument pre-expansion.
const MaxDepth = 256

// Expander replaces macro invocations read from an upstream stream with
// their fully rescanned expansions.
//
// A replacement list is rescanned by a nested Expander reading only the
// substituted body, with the expanding macro added to its Context. The
// nested Expander is drained before anything more is read from upstream.
type Expander struct {
	*token.Reader
	in    token.Stream
	table *Table
	ctx   *Context
	depth int
	sub   *Expander

	// keepDefined leaves the operand of defined unexpanded.
	keepDefined bool
}

// NewExpander returns an Expander reading from in. The table is consulted
// on every lookup so definitions changed upstream take effect at once.
func NewExpander(in token.Stream, table *Table) *Expander {
	return newExpander(in, table, nil, 0)
}

func newExpander(in token.Stream, table *Table, ctx *Context, depth int) *Expander {
	e := &Expander{in: in, table: table, ctx: ctx, depth: depth}
	e.Reader = token.NewReader(e.produce)
	return e
}

// Expand fully macro-expands toks.
func Expand(toks []token.Token, table *Table) ([]token.Token, error) {
	return token.Drain(NewExpander(token.NewSliceStream(toks), table))
}

// ExpandCondition expands the line of a #if or #elif. An identifier
// following defined, alone or in parentheses, is not expanded even when
// defined itself comes out of a macro.
func ExpandCondition(toks []token.Token, table *Table) ([]token.Token, error) {
	e := NewExpander(token.NewSliceStream(toks), table)
	e.keepDefined = true
	return token.Drain(e)
}

func (e *Expander) nested(in token.Stream, ctx *Context) *Expander {
	x := newExpander(in, e.table, ctx, e.depth+1)
	x.keepDefined = e.keepDefined
	return x
}

func (e *Expander) produce() (token.Token, error) {
	for {
		if e.sub != nil {
			tok, err := e.sub.Next()
			if err != io.EOF {
				return tok, err
			}
			e.sub = nil
		}
		tok, err := e.in.Next()
		if err != nil || tok.Kind != token.Identifier {
			return tok, err
		}
		if tok.Text == token.VAArgs {
			return token.Token{}, token.Errorf(token.MacroInvocationError, tok.Pos,
				"__VA_ARGS__ can only appear in the expansion of a variadic macro")
		}
		if e.keepDefined && tok.Text == "defined" {
			op, err := e.definedOperand()
			if err != nil {
				return token.Token{}, err
			}
			e.Unread(op...)
			return tok, nil
		}
		m, ok := e.table.Lookup(tok.Text)
		if !ok || e.ctx.Has(tok.Text) {
			return tok, nil
		}
		expanded, err := e.expand(tok, m)
		if err != nil {
			return token.Token{}, err
		}
		if !expanded {
			return tok, nil
		}
	}
}

// expand starts the expansion of m invoked by name. It reports false when
// a function-like macro is not followed by an argument list.
func (e *Expander) expand(name token.Token, m *Macro) (bool, error) {
	if e.depth >= MaxDepth {
		return false, token.Errorf(token.MacroInvocationError, name.Pos,
			"macro expansion nested too deeply (%d levels) expanding %q", MaxDepth, name.Text)
	}
	var args []argument
	if m.FunctionLike {
		ws, err := token.SkipSpace(e.in, true)
		if err != nil {
			return false, err
		}
		_, ok, err := token.MatchPunct(e.in, "(")
		if err != nil {
			return false, err
		}
		if !ok {
			e.in.Unread(ws...)
			return false, nil
		}
		raw, err := e.collectArgs(name)
		if err != nil {
			return false, err
		}
		if args, err = e.bindArgs(m, raw, name); err != nil {
			return false, err
		}
	}
	body, err := substitute(m, args)
	if err != nil {
		return false, err
	}
	e.sub = e.nested(token.NewSliceStream(body), e.ctx.With(m.Name))
	return true, nil
}

// definedOperand reads the tokens after defined up to and including the
// operand name, stopping early at anything else.
func (e *Expander) definedOperand() ([]token.Token, error) {
	var toks []token.Token
	for {
		tok, err := e.in.Next()
		if err == io.EOF {
			return toks, nil
		}
		if err != nil {
			return nil, err
		}
		switch {
		case tok.Kind == token.Identifier:
			return append(toks, tok), nil
		case tok.Kind == token.Whitespace || tok.IsPunct("("):
			toks = append(toks, tok)
		default:
			e.in.Unread(tok)
			return toks, nil
		}
	}
}

// collectArgs reads the comma separated arguments after the opening
// parenthesis. Commas nested in parentheses do not separate arguments.
func (e *Expander) collectArgs(name token.Token) ([][]token.Token, error) {
	var (
		args  [][]token.Token
		cur   []token.Token
		depth int
	)
	for {
		tok, err := e.in.Next()
		if err == io.EOF {
			return nil, token.Errorf(token.MacroInvocationError, name.Pos,
				"unterminated argument list invoking macro %q", name.Text)
		}
		if err != nil {
			return nil, err
		}
		switch {
		case tok.IsPunct("("):
			depth++
		case tok.IsPunct(")"):
			if depth == 0 {
				return append(args, token.TrimSpace(cur)), nil
			}
			depth--
		case tok.IsPunct(",") && depth == 0:
			args = append(args, token.TrimSpace(cur))
			cur = nil
			continue
		}
		cur = append(cur, tok)
	}
}

type argument struct {
	raw      []token.Token
	expanded []token.Token
}

func (e *Expander) bindArgs(m *Macro, raw [][]token.Token, name token.Token) ([]argument, error) {
	n := len(m.Params)
	switch {
	case n == 0:
		if len(raw) != 1 || len(raw[0]) != 0 {
			return nil, token.Errorf(token.MacroInvocationError, name.Pos,
				"macro %q passed %d arguments, but takes just 0", m.Name, len(raw))
		}
		return nil, nil
	case m.Variadic():
		if len(raw) < n-1 {
			return nil, token.Errorf(token.MacroInvocationError, name.Pos,
				"macro %q requires at least %d arguments, but only %d given", m.Name, n-1, len(raw))
		}
		if len(raw) < n {
			raw = append(raw, nil)
		}
		va := append([]token.Token(nil), raw[n-1]...)
		for _, a := range raw[n:] {
			comma := token.Token{Kind: token.Punctuator, Text: ",", Pos: name.Pos}
			va = append(append(va, comma), a...)
		}
		raw = append(raw[:n-1], va)
	case len(raw) < n:
		return nil, token.Errorf(token.MacroInvocationError, name.Pos,
			"macro %q requires %d arguments, but only %d given", m.Name, n, len(raw))
	case len(raw) > n:
		return nil, token.Errorf(token.MacroInvocationError, name.Pos,
			"macro %q passed %d arguments, but takes just %d", m.Name, len(raw), n)
	}

	args := make([]argument, n)
	for i, r := range raw {
		// Arguments are expanded in isolation: the names currently being
		// expanded are not suppressed inside them.
		exp, err := token.Drain(e.nested(token.NewSliceStream(r), nil))
		if err != nil {
			return nil, err
		}
		args[i] = argument{raw: r, expanded: exp}
	}
	return args, nil
}

// piece is one element of a replacement list after parameter substitution.
type piece struct {
	toks  []token.Token
	space bool
	paste bool
}

// substitute builds the replacement for one invocation of m: parameters
// are replaced by their arguments, # and ## are applied, and whitespace is
// normalized to single spaces.
func substitute(m *Macro, args []argument) ([]token.Token, error) {
	body := m.Body
	var (
		pieces []piece
		space  bool
	)
	for i := 0; i < len(body); i++ {
		tok := body[i]
		if tok.Kind == token.Whitespace {
			space = true
			continue
		}
		k := -1
		if tok.Kind == token.Identifier {
			k = m.param(tok.Text)
		}
		switch {
		case isPaste(tok):
			pieces = append(pieces, piece{paste: true})
		case m.FunctionLike && isStringize(tok):
			j := nextNonSpace(body, i+1)
			str := stringify(args[m.param(body[j].Text)].raw, tok.Pos)
			pieces = append(pieces, piece{toks: []token.Token{str}, space: space})
			i = j
		case k >= 0:
			toks := args[k].expanded
			if p := prevNonSpace(body, i-1); p >= 0 && isPaste(body[p]) {
				toks = args[k].raw
			}
			if n := nextNonSpace(body, i+1); n < len(body) && isPaste(body[n]) {
				toks = args[k].raw
			}
			pieces = append(pieces, piece{toks: toks, space: space})
		default:
			pieces = append(pieces, piece{toks: []token.Token{tok}, space: space})
		}
		space = false
	}

	var (
		out       []token.Token
		pending   bool
		lastEmpty = true
	)
	emit := func(toks []token.Token, space bool) bool {
		pending = pending || space
		empty := true
		for _, t := range toks {
			if t.Kind == token.Whitespace {
				pending = true
				continue
			}
			if pending && len(out) > 0 {
				out = append(out, token.Space(t.Pos))
			}
			pending = false
			out = append(out, t)
			empty = false
		}
		return empty
	}
	for i := 0; i < len(pieces); i++ {
		p := pieces[i]
		if !p.paste {
			lastEmpty = emit(p.toks, p.space)
			continue
		}
		i++
		right := pieces[i].toks
		switch {
		case lastEmpty:
			lastEmpty = emit(right, false)
		case len(right) == 0:
		default:
			pending = false
			left := out[len(out)-1]
			pasted, err := paste(left, right[0])
			if err != nil {
				return nil, err
			}
			out[len(out)-1] = pasted
			emit(right[1:], false)
		}
	}
	return out, nil
}

// paste concatenates the spellings of left and right, which must form a
// single preprocessing token.
func paste(left, right token.Token) (token.Token, error) {
	text := left.Text + right.Text
	toks, err := lexer.Tokenize(text)
	if err != nil || len(toks) != 1 || toks[0].Kind == token.Whitespace || toks[0].Kind == token.Invalid {
		return token.Token{}, token.Errorf(token.MacroInvocationError, left.Pos,
			"pasting %q and %q does not give a valid preprocessing token", left.Text, right.Text)
	}
	tok := toks[0]
	tok.Pos = left.Pos
	tok.Len = 0
	return tok, nil
}

// stringify spells toks as a string literal. Whitespace between tokens
// becomes one space; quotes and backslashes inside string and character
// literals are escaped.
func stringify(toks []token.Token, pos token.Pos) token.Token {
	var b strings.Builder
	b.WriteByte('"')
	space := false
	for _, t := range toks {
		if t.Kind == token.Whitespace {
			space = true
			continue
		}
		if space && b.Len() > 1 {
			b.WriteByte(' ')
		}
		space = false
		if t.Kind == token.String || t.Kind == token.Character {
			for i := 0; i < len(t.Text); i++ {
				if c := t.Text[i]; c == '"' || c == '\\' {
					b.WriteByte('\\')
				}
				b.WriteByte(t.Text[i])
			}
			continue
		}
		b.WriteString(t.Text)
	}
	b.WriteByte('"')
	return token.Token{Kind: token.String, Text: b.String(), Pos: pos}
}
