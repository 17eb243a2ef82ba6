// Package printer writes a token stream back out as source text.
package printer

import (
	"bufio"
	"io"
	"strings"

	"github.com/fwessels/cpp/internal/token"
)

// Print writes the spelling of every token of s to w. A single space is
// inserted between adjacent tokens that would otherwise lex differently,
// so the output tokenizes to the same sequence.
func Print(w io.Writer, s token.Stream) error {
	bw := bufio.NewWriter(w)
	var prev token.Token
	for {
		tok, err := s.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			bw.Flush()
			return err
		}
		if NeedsSpace(prev, tok) {
			bw.WriteByte(' ')
		}
		if _, err := bw.WriteString(tok.Text); err != nil {
			return err
		}
		prev = tok
	}
	return bw.Flush()
}

// String prints s into a string.
func String(s token.Stream) (string, error) {
	var b strings.Builder
	err := Print(&b, s)
	return b.String(), err
}

// NeedsSpace reports whether prev and next, printed back to back, would
// fuse into different tokens.
func NeedsSpace(prev, next token.Token) bool {
	if prev.Text == "" || next.Text == "" || prev.Kind == token.Whitespace || next.Kind == token.Whitespace {
		return false
	}
	c := next.Text[0]
	switch prev.Kind {
	case token.Number:
		switch {
		case isIdentChar(c) || c == '.' || c == '\'':
			return true
		case c == '+' || c == '-':
			return strings.ContainsRune("eEpP", rune(prev.Text[len(prev.Text)-1]))
		}
	case token.Identifier:
		if isIdentChar(c) {
			return true
		}
		return (next.Kind == token.String || next.Kind == token.Character) && token.IsLiteralPrefix(prev.Text)
	case token.Punctuator:
		switch {
		case prev.Text == "/" && (c == '/' || c == '*'):
			return true
		case prev.Text == "." && (c == '.' || c >= '0' && c <= '9'):
			return true
		}
		if token.IsPunctuator(prev.Text + next.Text[:1]) {
			return true
		}
		return len(next.Text) >= 2 && token.IsPunctuator(prev.Text+next.Text[:2])
	}
	return false
}

func isIdentChar(c byte) bool {
	return c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}
