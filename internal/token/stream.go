package token

import (
	"fmt"
	"io"
)

// Stream is the pull contract every stage implements. Next and Peek
// return io.EOF once the stream is exhausted; any other error is fatal and
// is returned again by every later call.
type Stream interface {
	Next() (Token, error)
	Peek() (Token, error)
	// Unread returns tokens to the front of the stream; toks[0] becomes
	// the next token. Any number of tokens may be pushed back.
	Unread(toks ...Token)
	Finished() bool
}

// Reader implements Stream over a produce function. Stages embed a
// *Reader and supply their own produce method.
type Reader struct {
	produce func() (Token, error)
	// ahead holds pushed back tokens; the last element is returned first.
	ahead []Token
	err   error
}

// NewReader returns a Reader pulling new tokens from produce.
func NewReader(produce func() (Token, error)) *Reader {
	return &Reader{produce: produce}
}

// NewSliceStream returns a Stream replaying toks.
func NewSliceStream(toks []Token) *Reader {
	r := &Reader{err: io.EOF}
	r.Unread(toks...)
	return r
}

func (r *Reader) Next() (Token, error) {
	if n := len(r.ahead); n > 0 {
		tok := r.ahead[n-1]
		r.ahead = r.ahead[:n-1]
		return tok, nil
	}
	if r.err != nil {
		return Token{}, r.err
	}
	tok, err := r.produce()
	if err != nil {
		r.err = err
		return Token{}, err
	}
	return tok, nil
}

func (r *Reader) Peek() (Token, error) {
	tok, err := r.Next()
	if err != nil {
		return Token{}, err
	}
	r.ahead = append(r.ahead, tok)
	return tok, nil
}

func (r *Reader) Unread(toks ...Token) {
	for i := len(toks) - 1; i >= 0; i-- {
		r.ahead = append(r.ahead, toks[i])
	}
}

// Finished reports whether the stream is exhausted. A pending error is
// not reported as finished so that the next call to Next surfaces it.
func (r *Reader) Finished() bool {
	_, err := r.Peek()
	return err == io.EOF
}

// Drain reads s to the end.
func Drain(s Stream) ([]Token, error) {
	var toks []Token
	for {
		tok, err := s.Next()
		if err == io.EOF {
			return toks, nil
		}
		if err != nil {
			return toks, err
		}
		toks = append(toks, tok)
	}
}

// SkipSpace consumes consecutive whitespace tokens and returns them. When
// newline is false it stops in front of whitespace that ends a line.
func SkipSpace(s Stream, newline bool) ([]Token, error) {
	var ws []Token
	for {
		tok, err := s.Next()
		if err == io.EOF {
			return ws, nil
		}
		if err != nil {
			return ws, err
		}
		if tok.Kind != Whitespace || (!newline && tok.HasNewline) {
			s.Unread(tok)
			return ws, nil
		}
		ws = append(ws, tok)
	}
}

// MatchPunct consumes the next token if it is the punctuator text.
func MatchPunct(s Stream, text string) (Token, bool, error) {
	return match(s, func(t Token) bool { return t.IsPunct(text) })
}

// MatchIdent consumes the next token if it is the identifier name.
func MatchIdent(s Stream, name string) (Token, bool, error) {
	return match(s, func(t Token) bool { return t.IsIdent(name) })
}

func match(s Stream, ok func(Token) bool) (Token, bool, error) {
	tok, err := s.Next()
	if err == io.EOF {
		return Token{}, false, nil
	}
	if err != nil {
		return Token{}, false, err
	}
	if !ok(tok) {
		s.Unread(tok)
		return Token{}, false, nil
	}
	return tok, true, nil
}

// ExpectIdent consumes an identifier or fails with a DirectiveSyntaxError.
func ExpectIdent(s Stream) (Token, error) {
	tok, err := s.Next()
	if err == io.EOF {
		return Token{}, Errorf(DirectiveSyntaxError, Pos{}, "expected identifier, found end of input")
	}
	if err != nil {
		return Token{}, err
	}
	if tok.Kind != Identifier {
		return Token{}, Errorf(DirectiveSyntaxError, tok.Pos, "expected identifier, found %s", describe(tok))
	}
	return tok, nil
}

// ExpectLineEnd consumes the rest of a directive line, which must be blank.
// It returns the whitespace token holding the newline, or a zero Token if
// the input ended first.
func ExpectLineEnd(s Stream) (Token, error) {
	for {
		tok, err := s.Next()
		if err == io.EOF {
			return Token{}, nil
		}
		if err != nil {
			return Token{}, err
		}
		if tok.IsLineEnd() {
			return tok, nil
		}
		if tok.Kind != Whitespace {
			return Token{}, Errorf(DirectiveSyntaxError, tok.Pos, "unexpected %s at end of directive", describe(tok))
		}
	}
}

// TrimSpace drops leading and trailing whitespace tokens.
func TrimSpace(toks []Token) []Token {
	for len(toks) > 0 && toks[0].Kind == Whitespace {
		toks = toks[1:]
	}
	for len(toks) > 0 && toks[len(toks)-1].Kind == Whitespace {
		toks = toks[:len(toks)-1]
	}
	return toks
}

func describe(t Token) string {
	if t.IsLineEnd() {
		return "newline"
	}
	if t.Kind == Whitespace {
		return "whitespace"
	}
	return fmt.Sprintf("%q", t.Text)
}
