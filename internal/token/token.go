// Package token defines preprocessing tokens and the pull-based stream
// contract shared by every stage of the preprocessor.
package token

import "fmt"

// Kind is the category of a preprocessing token.
type Kind int

const (
	// Whitespace aggregates spaces, tabs, comments (folded to one space)
	// and newlines into a single token.
	Whitespace Kind = iota + 1
	Identifier
	// Number is a pp-number; it is never checked for being a valid literal.
	Number
	Character
	String
	Punctuator
	// Invalid holds source text the tokenizer could not classify: a byte
	// that does not start a valid UTF-8 sequence, or an unterminated
	// literal met while skipping an inactive group.
	Invalid
)

var kindNames = [...]string{
	Whitespace: "whitespace",
	Identifier: "identifier",
	Number:     "number",
	Character:  "character",
	String:     "string",
	Punctuator: "punctuator",
	Invalid:    "error",
}

func (k Kind) String() string {
	if k > 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// MarshalText makes kinds readable in JSON token dumps.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Pos is a source position. Line and Col are 1-based; Col counts bytes.
type Pos struct {
	Offset int `json:"offset"`
	Line   int `json:"line"`
	Col    int `json:"col"`
}

// IsValid reports whether the position refers to real source text.
func (p Pos) IsValid() bool { return p.Line > 0 }

func (p Pos) String() string {
	if !p.IsValid() {
		return "-"
	}
	return fmt.Sprintf("%d:%d", p.Line, p.Col)
}

// Token is a single preprocessing token.
type Token struct {
	Kind Kind   `json:"kind"`
	Text string `json:"text"`
	Pos  Pos    `json:"pos"`
	// Len is the number of source bytes the token spans, splices included.
	Len int `json:"len"`
	// HasNewline is set on Whitespace tokens containing a raw newline.
	HasNewline bool `json:"newline,omitempty"`
}

func (t Token) String() string {
	return fmt.Sprintf("%s %q", t.Kind, t.Text)
}

// IsPunct reports whether t is the punctuator spelled text.
func (t Token) IsPunct(text string) bool {
	return t.Kind == Punctuator && t.Text == text
}

// IsIdent reports whether t is the identifier name.
func (t Token) IsIdent(name string) bool {
	return t.Kind == Identifier && t.Text == name
}

// IsLineEnd reports whether t is whitespace that ends a logical line.
func (t Token) IsLineEnd() bool {
	return t.Kind == Whitespace && t.HasNewline
}

// Space returns a synthetic single-space whitespace token located at pos.
func Space(pos Pos) Token {
	return Token{Kind: Whitespace, Text: " ", Pos: pos}
}

// Punctuators lists the multi-character punctuators, longest first. The
// tokenizer takes the first entry that matches.
var Punctuators = [...]string{
	"%:%:", "->*", "...", ">>=", "<<=",
	"##", "<:", ":>", "<%", "%>", "%:", "::", ".*",
	"+=", "-=", "*=", "/=", "%=", "^=", "&=", "|=",
	"<<", ">>", "==", "!=", "<=", ">=", "&&", "||",
	"++", "--", "->",
}

var punctuatorSet = func() map[string]bool {
	m := make(map[string]bool, len(Punctuators))
	for _, p := range Punctuators {
		m[p] = true
	}
	return m
}()

// IsPunctuator reports whether s is one of the multi-character punctuators.
func IsPunctuator(s string) bool {
	return punctuatorSet[s]
}

// VAArgs is the parameter name bound to the variadic arguments.
const VAArgs = "__VA_ARGS__"

var reserved = map[string]bool{
	"defined": true,
	VAArgs:    true,
	"and":     true,
	"and_eq":  true,
	"bitand":  true,
	"bitor":   true,
	"compl":   true,
	"not":     true,
	"not_eq":  true,
	"or":      true,
	"or_eq":   true,
	"xor":     true,
	"xor_eq":  true,
}

// IsReserved reports whether name may not be used as a macro name.
func IsReserved(name string) bool {
	return reserved[name]
}

// LiteralPrefixes are the encoding prefixes that may precede a quote.
var LiteralPrefixes = [...]string{"u8", "u", "U", "L", "R", "u8R", "uR", "UR", "LR"}

// IsLiteralPrefix reports whether s may prefix a string or character literal.
func IsLiteralPrefix(s string) bool {
	for _, p := range LiteralPrefixes {
		if s == p {
			return true
		}
	}
	return false
}
