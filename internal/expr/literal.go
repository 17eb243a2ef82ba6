package expr

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/fwessels/cpp/internal/token"
)

var intSuffixes = map[string]bool{
	"": true, "u": true, "l": true, "ul": true, "lu": true,
	"ll": true, "ull": true, "llu": true,
}

// parseNumber converts an integer pp-number to a Value. Constants with a u
// suffix or too large for int64 are unsigned.
func parseNumber(tok token.Token) (Value, error) {
	s := strings.ReplaceAll(tok.Text, "'", "")
	end := len(s)
	for end > 0 && strings.IndexByte("uUlL", s[end-1]) >= 0 {
		end--
	}
	digits, suffix := s[:end], strings.ToLower(s[end:])

	base := 10
	switch {
	case len(digits) > 1 && (digits[:2] == "0x" || digits[:2] == "0X"):
		base, digits = 16, digits[2:]
		if strings.ContainsAny(digits, ".pP") {
			return Value{}, floating(tok)
		}
	case len(digits) > 1 && (digits[:2] == "0b" || digits[:2] == "0B"):
		base, digits = 2, digits[2:]
	case strings.ContainsAny(digits, ".eE"):
		return Value{}, floating(tok)
	case len(digits) > 1 && digits[0] == '0':
		base, digits = 8, digits[1:]
	}
	if !intSuffixes[suffix] {
		return Value{}, token.Errorf(token.EvaluationError, tok.Pos, "invalid suffix %q on integer constant", s[end:])
	}
	n, err := strconv.ParseUint(digits, base, 64)
	if errors.Is(err, strconv.ErrRange) {
		return Value{}, token.Errorf(token.EvaluationError, tok.Pos, "integer constant %s is too large", tok.Text)
	}
	if err != nil {
		return Value{}, token.Errorf(token.EvaluationError, tok.Pos, "invalid integer constant %s", tok.Text)
	}
	return Value{N: int64(n), Unsigned: n > math.MaxInt64 || strings.Contains(suffix, "u")}, nil
}

func floating(tok token.Token) error {
	return token.Errorf(token.EvaluationError, tok.Pos, "floating constant %s in preprocessor expression", tok.Text)
}

// parseChar computes the value of a character constant. A plain constant
// has type signed char, several characters pack into an int eight bits at
// a time; u, U and L constants are 16, 32 and 32 bits wide.
func parseChar(tok token.Token) (Value, error) {
	s := tok.Text
	bits := 8
	switch {
	case strings.HasPrefix(s, "u8"):
		s = s[2:]
	case s[0] == 'u':
		bits, s = 16, s[1:]
	case s[0] == 'U' || s[0] == 'L':
		bits, s = 32, s[1:]
	}
	body := s[1 : len(s)-1]
	if body == "" {
		return Value{}, token.Errorf(token.EvaluationError, tok.Pos, "empty character constant")
	}

	var (
		x     uint64
		count int
	)
	limit := uint64(1)<<bits - 1
	for len(body) > 0 {
		var (
			c   uint64
			err error
		)
		if body[0] == '\\' {
			c, body, err = unescape(body[1:])
			if err == nil && c > limit {
				err = errors.New("escape sequence out of range")
			}
			if err != nil {
				return Value{}, token.Errorf(token.EvaluationError, tok.Pos, "%v in character constant %s", err, tok.Text)
			}
		} else if bits == 8 {
			c, body = uint64(body[0]), body[1:]
		} else {
			r, size := utf8.DecodeRuneInString(body)
			c, body = uint64(r)&limit, body[size:]
		}
		x = x<<bits | c
		count++
	}

	switch {
	case bits == 8 && count == 1:
		return Value{N: int64(int8(x))}, nil
	case bits == 8:
		return Value{N: int64(int32(x))}, nil
	case bits == 16:
		return Value{N: int64(uint16(x))}, nil
	case tok.Text[0] == 'L':
		return Value{N: int64(int32(x))}, nil
	}
	return Value{N: int64(uint32(x))}, nil
}

var simpleEscapes = map[byte]uint64{
	'\'': '\'', '"': '"', '?': '?', '\\': '\\',
	'a': '\a', 'b': '\b', 'f': '\f', 'n': '\n', 'r': '\r', 't': '\t', 'v': '\v',
}

// unescape decodes the escape sequence at the start of s, which follows a
// backslash, and returns its value and the rest of s.
func unescape(s string) (uint64, string, error) {
	if s == "" {
		return 0, s, errors.New("incomplete escape sequence")
	}
	if v, ok := simpleEscapes[s[0]]; ok {
		return v, s[1:], nil
	}
	switch c := s[0]; {
	case c == 'x':
		n := 1
		for n < len(s) && isHex(s[n]) {
			n++
		}
		v, err := strconv.ParseUint(s[1:n], 16, 64)
		if err != nil {
			return 0, s, errors.New("invalid hex escape sequence")
		}
		return v, s[n:], nil
	case c == 'u' || c == 'U':
		n := 5
		if c == 'U' {
			n = 9
		}
		if len(s) < n {
			return 0, s, errors.New("incomplete universal character name")
		}
		v, err := strconv.ParseUint(s[1:n], 16, 32)
		if err != nil {
			return 0, s, errors.New("incomplete universal character name")
		}
		return v, s[n:], nil
	case c >= '0' && c <= '7':
		n := 1
		for n < len(s) && n < 3 && s[n] >= '0' && s[n] <= '7' {
			n++
		}
		v, _ := strconv.ParseUint(s[:n], 8, 64)
		return v, s[n:], nil
	}
	return 0, s, errors.New("unknown escape sequence")
}

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
