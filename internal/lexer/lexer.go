// Package lexer turns resident source text into preprocessing tokens.
package lexer

import (
	"io"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/fwessels/cpp/internal/token"
)

// maxRawDelimiter is the longest d-char-sequence a raw string may use.
const maxRawDelimiter = 16

// Tokenizer is a single forward pass over src. It implements token.Stream
// and cannot be restarted.
type Tokenizer struct {
	*token.Reader
	src     string
	pos     int
	lines   []int
	buf     []byte
	lenient bool
}

// New returns a Tokenizer over src.
func New(src string) *Tokenizer {
	t := &Tokenizer{src: src, lines: lineStarts(src)}
	t.Reader = token.NewReader(t.produce)
	t.splice()
	return t
}

// Tokenize lexes all of src.
func Tokenize(src string) ([]token.Token, error) {
	return token.Drain(New(src))
}

// SetLenient switches unterminated character and string literals from
// fatal errors to Invalid tokens. The directive executor turns it on while
// it skips inactive groups.
func (t *Tokenizer) SetLenient(on bool) {
	t.lenient = on
}

func lineStarts(src string) []int {
	starts := []int{0}
	for i := 0; i < len(src); i++ {
		switch src[i] {
		case '\n':
			starts = append(starts, i+1)
		case '\r':
			if i+1 < len(src) && src[i+1] == '\n' {
				continue
			}
			starts = append(starts, i+1)
		}
	}
	return starts
}

func (t *Tokenizer) position(off int) token.Pos {
	i := sort.Search(len(t.lines), func(i int) bool { return t.lines[i] > off }) - 1
	return token.Pos{Offset: off, Line: i + 1, Col: off - t.lines[i] + 1}
}

func (t *Tokenizer) errorf(off int, format string, args ...any) error {
	return token.Errorf(token.LexicalError, t.position(off), format, args...)
}

// splice skips backslash-newline pairs at the current position.
func (t *Tokenizer) splice() {
	for t.pos+1 < len(t.src) && t.src[t.pos] == '\\' {
		switch {
		case strings.HasPrefix(t.src[t.pos+1:], "\r\n"):
			t.pos += 3
		case t.src[t.pos+1] == '\n' || t.src[t.pos+1] == '\r':
			t.pos += 2
		default:
			return
		}
	}
}

func (t *Tokenizer) eof() bool { return t.pos >= len(t.src) }

func (t *Tokenizer) cur() byte {
	if t.eof() {
		return 0
	}
	return t.src[t.pos]
}

// advance is the character-advance primitive; line splices are consumed
// here so they may occur anywhere, even inside an identifier.
func (t *Tokenizer) advance() {
	t.pos++
	t.splice()
}

// peekNext returns the character after the current one.
func (t *Tokenizer) peekNext() byte {
	p := t.pos
	t.advance()
	c := t.cur()
	t.pos = p
	return c
}

// take appends the current character to the token text and advances.
func (t *Tokenizer) take() {
	t.buf = append(t.buf, t.src[t.pos])
	t.advance()
}

// match consumes s if the input continues with it.
func (t *Tokenizer) match(s string) bool {
	p := t.pos
	for i := 0; i < len(s); i++ {
		if t.eof() || t.src[t.pos] != s[i] {
			t.pos = p
			return false
		}
		t.advance()
	}
	return true
}

func (t *Tokenizer) token(kind token.Kind, start int, text string) token.Token {
	return token.Token{Kind: kind, Text: text, Pos: t.position(start), Len: t.pos - start}
}

func (t *Tokenizer) produce() (token.Token, error) {
	if t.eof() {
		return token.Token{}, io.EOF
	}
	start := t.pos
	t.buf = t.buf[:0]
	if tok, ok, err := t.space(start); ok || err != nil {
		return tok, err
	}

	c := t.src[t.pos]
	switch {
	case isDigit(c) || c == '.' && isDigit(t.peekNext()):
		return t.number(start)
	case c == 'u' || c == 'U' || c == 'L' || c == 'R':
		return t.prefixed(start)
	case c == '"':
		return t.quoted(start, '"', token.String)
	case c == '\'':
		return t.quoted(start, '\'', token.Character)
	case isIdentStart(c):
		return t.ident(start), nil
	case c >= utf8.RuneSelf:
		return t.nonASCII(start), nil
	}
	return t.punct(start), nil
}

func (t *Tokenizer) space(start int) (token.Token, bool, error) {
	newline := false
loop:
	for !t.eof() {
		c := t.src[t.pos]
		switch {
		case c == '/' && t.match("/*"):
			t.buf = append(t.buf, ' ')
			for !t.match("*/") {
				if t.eof() {
					return token.Token{}, false, t.errorf(start, "unterminated comment")
				}
				t.advance()
			}
		case c == '/' && t.match("//"):
			t.buf = append(t.buf, ' ')
			for !t.eof() && t.src[t.pos] != '\n' && t.src[t.pos] != '\r' {
				t.advance()
			}
		case c == '\n' || c == '\r':
			newline = true
			t.take()
		case c == ' ' || c == '\t' || c == '\v' || c == '\f':
			t.take()
		default:
			break loop
		}
	}
	if len(t.buf) == 0 {
		return token.Token{}, false, nil
	}
	tok := t.token(token.Whitespace, start, string(t.buf))
	tok.HasNewline = newline
	return tok, true, nil
}

func (t *Tokenizer) ident(start int) token.Token {
	for !t.eof() && isIdentChar(t.src[t.pos]) {
		t.take()
	}
	return t.token(token.Identifier, start, string(t.buf))
}

func (t *Tokenizer) number(start int) (token.Token, error) {
	if t.cur() == '.' {
		t.take()
	}
	t.take()
	for !t.eof() {
		switch c := t.src[t.pos]; {
		case c == 'e' || c == 'E' || c == 'p' || c == 'P':
			t.take()
			if c := t.cur(); c == '+' || c == '-' {
				t.take()
			}
		case isIdentChar(c) || c == '.':
			t.take()
		case c == '\'':
			t.take()
			if t.eof() || !isIdentChar(t.src[t.pos]) {
				return token.Token{}, t.errorf(t.pos, "expected digit or letter after digit separator")
			}
			t.take()
		default:
			return t.token(token.Number, start, string(t.buf)), nil
		}
	}
	return t.token(token.Number, start, string(t.buf)), nil
}

// prefixed resolves the longest encoding prefix before deciding between
// a literal and a plain identifier.
func (t *Tokenizer) prefixed(start int) (token.Token, error) {
	raw := t.cur() == 'R'
	utf8Prefix := t.cur() == 'u' && t.peekNext() == '8'
	t.take()
	if utf8Prefix {
		t.take()
	}
	if !raw && t.cur() == 'R' {
		t.take()
		raw = true
	}
	switch q := t.cur(); {
	case q == '"' && raw:
		return t.rawString(start)
	case q == '"':
		return t.quoted(start, '"', token.String)
	case q == '\'' && !raw:
		return t.quoted(start, '\'', token.Character)
	}
	t.pos = start
	t.buf = t.buf[:0]
	return t.ident(start), nil
}

func (t *Tokenizer) quoted(start int, quote byte, kind token.Kind) (token.Token, error) {
	t.take()
	for {
		if t.eof() {
			return t.unterminated(start, quote)
		}
		switch c := t.src[t.pos]; c {
		case quote:
			t.take()
			return t.token(kind, start, string(t.buf)), nil
		case '\n', '\r':
			return t.unterminated(start, quote)
		case '\\':
			t.take()
			if err := t.escape(); err != nil && !t.lenient {
				return token.Token{}, err
			}
		default:
			t.take()
		}
	}
}

func (t *Tokenizer) unterminated(start int, quote byte) (token.Token, error) {
	if t.lenient {
		return t.token(token.Invalid, start, string(t.buf)), nil
	}
	return token.Token{}, t.errorf(start, "missing terminating %c character", quote)
}

func (t *Tokenizer) escape() error {
	if t.eof() {
		return nil
	}
	switch c := t.src[t.pos]; {
	case strings.IndexByte(`'"?\abfnrtv`, c) >= 0:
		t.take()
	case c == 'x':
		t.take()
		if !isHexDigit(t.cur()) {
			return t.errorf(t.pos, `\x used with no following hex digits`)
		}
		for !t.eof() && isHexDigit(t.src[t.pos]) {
			t.take()
		}
	case c == 'u':
		t.take()
		return t.hex(4, c)
	case c == 'U':
		t.take()
		return t.hex(8, c)
	case isOctDigit(c):
		for i := 0; i < 3 && !t.eof() && isOctDigit(t.src[t.pos]); i++ {
			t.take()
		}
	default:
		return t.errorf(t.pos, "unknown escape sequence '\\%c'", c)
	}
	return nil
}

func (t *Tokenizer) hex(n int, esc byte) error {
	for i := 0; i < n; i++ {
		if !isHexDigit(t.cur()) {
			return t.errorf(t.pos, "incomplete universal character name \\%c", esc)
		}
		t.take()
	}
	return nil
}

// rawString scans a raw string literal verbatim; neither escapes nor line
// splices apply between the quotes.
func (t *Tokenizer) rawString(start int) (token.Token, error) {
	open := t.pos
	t.pos++
	for {
		if t.eof() {
			return token.Token{}, t.errorf(start, "unterminated raw string")
		}
		c := t.src[t.pos]
		if c == '(' {
			break
		}
		if strings.IndexByte(" )\\\t\v\f\r\n", c) >= 0 {
			return token.Token{}, t.errorf(t.pos, "invalid character %q in raw string delimiter", c)
		}
		t.pos++
		if t.pos-open-1 > maxRawDelimiter {
			return token.Token{}, t.errorf(start, "raw string delimiter longer than %d characters", maxRawDelimiter)
		}
	}
	closer := ")" + t.src[open+1:t.pos] + `"`
	end := strings.Index(t.src[t.pos+1:], closer)
	if end < 0 {
		return token.Token{}, t.errorf(start, "unterminated raw string")
	}
	t.pos += 1 + end + len(closer)
	text := string(t.buf) + t.src[open:t.pos]
	t.splice()
	return t.token(token.String, start, text), nil
}

func (t *Tokenizer) nonASCII(start int) token.Token {
	r, size := utf8.DecodeRuneInString(t.src[t.pos:])
	t.pos += size
	t.splice()
	if r == utf8.RuneError && size == 1 {
		return t.token(token.Invalid, start, t.src[start:start+1])
	}
	return t.token(token.Punctuator, start, string(r))
}

func (t *Tokenizer) punct(start int) token.Token {
	for _, p := range token.Punctuators {
		if t.match(p) {
			return t.token(token.Punctuator, start, p)
		}
	}
	t.take()
	return t.token(token.Punctuator, start, string(t.buf))
}

func isDigit(c byte) bool    { return c >= '0' && c <= '9' }
func isOctDigit(c byte) bool { return c >= '0' && c <= '7' }

func isHexDigit(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}
