// Package directive executes #define, #undef and the conditional
// directives, passing the tokens of active groups downstream.
package directive

import (
	"io"
	"strings"

	"github.com/fwessels/cpp/internal/expr"
	"github.com/fwessels/cpp/internal/macro"
	"github.com/fwessels/cpp/internal/token"
)

// Executor is the directive stage. It implements token.Stream.
type Executor struct {
	*token.Reader
	in          token.Stream
	table       *macro.Table
	cond        *condStack
	atLineStart bool

	// KeepUnknown passes directives other than the ones executed here
	// through unchanged instead of dropping them.
	KeepUnknown bool
	// OnDirective, if set, is called for every directive executed.
	OnDirective func(name string, pos token.Pos)
}

// New returns an Executor reading from in and recording definitions in
// table.
func New(in token.Stream, table *macro.Table) *Executor {
	x := &Executor{in: in, table: table, cond: newCondStack(), atLineStart: true}
	x.Reader = token.NewReader(x.produce)
	return x
}

// Depth returns the number of open conditional groups.
func (x *Executor) Depth() int { return x.cond.Depth() }

func (x *Executor) produce() (token.Token, error) {
	for {
		tok, err := x.in.Next()
		if err == io.EOF {
			if err := x.cond.Unclosed(); err != nil {
				return token.Token{}, err
			}
			return token.Token{}, io.EOF
		}
		if err != nil {
			return token.Token{}, err
		}
		lineStart := x.atLineStart
		switch {
		case tok.IsLineEnd():
			x.atLineStart = true
		case tok.Kind != token.Whitespace:
			x.atLineStart = false
		}
		if lineStart && (tok.IsPunct("#") || tok.IsPunct("%:")) {
			out, ok, err := x.directive(tok)
			if err != nil {
				return token.Token{}, err
			}
			x.atLineStart = true
			x.setLenient(!x.cond.Active())
			if ok {
				return out, nil
			}
			continue
		}
		if x.cond.Active() {
			return tok, nil
		}
	}
}

// setLenient asks a tokenizer upstream to tolerate broken literals while
// inactive groups are skipped.
func (x *Executor) setLenient(on bool) {
	if l, ok := x.in.(interface{ SetLenient(bool) }); ok {
		l.SetLenient(on)
	}
}

// directive executes the line opened by hash. The returned token, when ok,
// replaces the whole line downstream.
func (x *Executor) directive(hash token.Token) (token.Token, bool, error) {
	before := x.cond.Active()
	lead, err := token.SkipSpace(x.in, false)
	if err != nil {
		return token.Token{}, false, err
	}
	name, err := x.in.Next()
	if err == io.EOF {
		return token.Token{}, false, nil
	}
	if err != nil {
		return token.Token{}, false, err
	}
	if name.IsLineEnd() {
		return lineEnd(name, before)
	}

	var (
		end         token.Token
		conditional = true
	)
	switch name.Text {
	case "if", "ifdef", "ifndef":
		end, err = x.ifGroup(name)
	case "elif":
		end, err = x.elif(name)
	case "else", "endif":
		if end, err = x.closing(); err == nil {
			if name.Text == "else" {
				err = x.cond.Else(name.Pos)
			} else {
				err = x.cond.Pop(name.Pos)
			}
		}
	case "define", "undef":
		conditional = false
		switch {
		case !before:
			end, err = x.restOfLine()
		case name.Text == "define":
			end, err = x.define()
		default:
			end, err = x.undef()
		}
	default:
		return x.unknown(hash, lead, name, before)
	}
	if err != nil {
		return token.Token{}, false, err
	}
	if x.OnDirective != nil && (before || conditional) {
		x.OnDirective(name.Text, name.Pos)
	}
	return lineEnd(end, before || x.cond.Active())
}

// lineEnd keeps the newline part of the whitespace ending a directive so
// that the line structure of the output survives.
func lineEnd(ws token.Token, emit bool) (token.Token, bool, error) {
	i := strings.IndexAny(ws.Text, "\r\n")
	if !emit || i < 0 {
		return token.Token{}, false, nil
	}
	ws.Text = ws.Text[i:]
	return ws, true, nil
}

func (x *Executor) unknown(hash token.Token, lead []token.Token, name token.Token, active bool) (token.Token, bool, error) {
	if !active || !x.KeepUnknown {
		end, err := x.restOfLine()
		if err != nil {
			return token.Token{}, false, err
		}
		return lineEnd(end, active)
	}
	rest, end, err := x.line()
	if err != nil {
		return token.Token{}, false, err
	}
	if x.OnDirective != nil {
		x.OnDirective(name.Text, name.Pos)
	}
	line := append(append(lead, name), rest...)
	if end.Kind == token.Whitespace {
		line = append(line, end)
	}
	x.Unread(line...)
	return hash, true, nil
}

func (x *Executor) ifGroup(name token.Token) (token.Token, error) {
	if !x.cond.Active() {
		x.cond.Push(name.Text, false, name.Pos)
		return x.restOfLine()
	}
	var (
		cond bool
		end  token.Token
		err  error
	)
	if name.Text == "if" {
		var line []token.Token
		if line, end, err = x.line(); err != nil {
			return token.Token{}, err
		}
		if cond, err = expr.Eval(line, x.table, name.Pos); err != nil {
			return token.Token{}, err
		}
	} else {
		if _, err := token.SkipSpace(x.in, false); err != nil {
			return token.Token{}, err
		}
		id, err := token.ExpectIdent(x.in)
		if err != nil {
			return token.Token{}, atLine(err, name.Pos)
		}
		if end, err = token.ExpectLineEnd(x.in); err != nil {
			return token.Token{}, err
		}
		cond = x.table.Defined(id.Text) == (name.Text == "ifdef")
	}
	x.cond.Push(name.Text, cond, name.Pos)
	return end, nil
}

func (x *Executor) elif(name token.Token) (token.Token, error) {
	line, end, err := x.line()
	if err != nil {
		return token.Token{}, err
	}
	cond := false
	if x.cond.NeedsElif() {
		if cond, err = expr.Eval(line, x.table, name.Pos); err != nil {
			return token.Token{}, err
		}
	}
	return end, x.cond.Elif(cond, name.Pos)
}

// closing reads the rest of an #else or #endif line, which must be empty
// unless the group is nested in skipped code.
func (x *Executor) closing() (token.Token, error) {
	if !x.cond.Live() {
		return x.restOfLine()
	}
	return token.ExpectLineEnd(x.in)
}

// line reads the tokens up to the end of the directive line. It returns
// them together with the whitespace token holding the newline, which is
// the zero Token at end of input.
func (x *Executor) line() ([]token.Token, token.Token, error) {
	var toks []token.Token
	for {
		tok, err := x.in.Next()
		if err == io.EOF {
			return toks, token.Token{}, nil
		}
		if err != nil {
			return nil, token.Token{}, err
		}
		if tok.IsLineEnd() {
			return toks, tok, nil
		}
		toks = append(toks, tok)
	}
}

func (x *Executor) restOfLine() (token.Token, error) {
	_, end, err := x.line()
	return end, err
}

// atLine gives a position to errors raised at end of input.
func atLine(err error, pos token.Pos) error {
	if e, ok := err.(*token.Error); ok && !e.Pos.IsValid() {
		e.Pos = pos
	}
	return err
}
