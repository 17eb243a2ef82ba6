package directive

import (
	"io"

	"github.com/fwessels/cpp/internal/macro"
	"github.com/fwessels/cpp/internal/token"
)

func syntaxErrorf(pos token.Pos, format string, args ...any) error {
	return token.Errorf(token.DirectiveSyntaxError, pos, format, args...)
}

// macroName reads the name operand of #define or #undef.
func (x *Executor) macroName() (token.Token, error) {
	if _, err := token.SkipSpace(x.in, false); err != nil {
		return token.Token{}, err
	}
	name, err := token.ExpectIdent(x.in)
	if err != nil {
		return token.Token{}, err
	}
	if token.IsReserved(name.Text) {
		return token.Token{}, syntaxErrorf(name.Pos, "%q cannot be used as a macro name", name.Text)
	}
	return name, nil
}

func (x *Executor) define() (token.Token, error) {
	name, err := x.macroName()
	if err != nil {
		return token.Token{}, err
	}
	m := &macro.Macro{Name: name.Text, Pos: name.Pos}

	// A parenthesis directly after the name makes the macro function-like;
	// otherwise whitespace must separate the name from the body.
	next, err := x.in.Peek()
	switch {
	case err == io.EOF:
	case err != nil:
		return token.Token{}, err
	case next.IsPunct("("):
		x.in.Next()
		m.FunctionLike = true
		if m.Params, err = x.params(name); err != nil {
			return token.Token{}, err
		}
	case next.Kind != token.Whitespace:
		return token.Token{}, syntaxErrorf(next.Pos, "missing whitespace after the macro name %q", name.Text)
	}

	body, end, err := x.line()
	if err != nil {
		return token.Token{}, err
	}
	m.Body = body
	if err := x.table.Define(m); err != nil {
		return token.Token{}, err
	}
	return end, nil
}

// params parses a parameter list after its opening parenthesis.
func (x *Executor) params(name token.Token) ([]string, error) {
	var params []string
	for {
		tok, err := x.paramToken(name)
		if err != nil {
			return nil, err
		}
		switch {
		case tok.IsPunct(")") && len(params) == 0:
			return nil, nil
		case tok.IsPunct("..."):
			if tok, err = x.paramToken(name); err != nil {
				return nil, err
			}
			if !tok.IsPunct(")") {
				return nil, syntaxErrorf(tok.Pos, `missing ')' after "..." in parameter list of %q`, name.Text)
			}
			return append(params, token.VAArgs), nil
		case tok.Kind == token.Identifier:
			if tok.Text == token.VAArgs {
				return nil, syntaxErrorf(tok.Pos, "%q cannot be used as a macro parameter", tok.Text)
			}
			params = append(params, tok.Text)
		default:
			return nil, syntaxErrorf(tok.Pos, "expected parameter name, found %q", tok.Text)
		}

		if tok, err = x.paramToken(name); err != nil {
			return nil, err
		}
		switch {
		case tok.IsPunct(")"):
			return params, nil
		case !tok.IsPunct(","):
			return nil, syntaxErrorf(tok.Pos, "expected ',' or ')' in parameter list of %q, found %q", name.Text, tok.Text)
		}
	}
}

// paramToken returns the next token of a parameter list, which may not
// reach past the end of the line.
func (x *Executor) paramToken(name token.Token) (token.Token, error) {
	if _, err := token.SkipSpace(x.in, false); err != nil {
		return token.Token{}, err
	}
	tok, err := x.in.Next()
	if err == io.EOF || err == nil && tok.IsLineEnd() {
		return token.Token{}, syntaxErrorf(name.Pos, "missing ')' in parameter list of %q", name.Text)
	}
	return tok, err
}

func (x *Executor) undef() (token.Token, error) {
	name, err := x.macroName()
	if err != nil {
		return token.Token{}, err
	}
	end, err := token.ExpectLineEnd(x.in)
	if err != nil {
		return token.Token{}, err
	}
	x.table.Undef(name.Text)
	return end, nil
}
