/*
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package cpp is a C/C++ preprocessing engine: it tokenizes source text,
// executes #define, #undef and conditional directives, expands macros and
// prints the result back out as text.
//
// The stages are pull-based token streams wired by the Preprocessor:
//
//	p := cpp.New()
//	p.Define("DEBUG=1")
//	err := p.Process("main.c", r, w)
package cpp

import (
	"io"
	"strings"

	"github.com/fwessels/cpp/internal/lexer"
	"github.com/fwessels/cpp/internal/macro"
	"github.com/fwessels/cpp/internal/preprocessor"
	"github.com/fwessels/cpp/internal/token"
)

type (
	Token     = token.Token
	Kind      = token.Kind
	Pos       = token.Pos
	Stream    = token.Stream
	Error     = token.Error
	ErrorKind = token.ErrorKind

	Macro        = macro.Macro
	Table        = macro.Table
	Preprocessor = preprocessor.Preprocessor
)

const (
	Whitespace = token.Whitespace
	Identifier = token.Identifier
	Number     = token.Number
	Character  = token.Character
	String     = token.String
	Punctuator = token.Punctuator
	Invalid    = token.Invalid
)

const (
	LexicalError            = token.LexicalError
	DirectiveSyntaxError    = token.DirectiveSyntaxError
	ConditionalNestingError = token.ConditionalNestingError
	MacroInvocationError    = token.MacroInvocationError
	EvaluationError         = token.EvaluationError
)

var (
	ErrLexical            = token.ErrLexical
	ErrDirectiveSyntax    = token.ErrDirectiveSyntax
	ErrConditionalNesting = token.ErrConditionalNesting
	ErrMacroInvocation    = token.ErrMacroInvocation
	ErrEvaluation         = token.ErrEvaluation
)

// New returns a Preprocessor with an empty macro table.
func New() *Preprocessor {
	return preprocessor.New()
}

// Preprocess runs src through a fresh Preprocessor and writes the output
// to w.
func Preprocess(name, src string, w io.Writer) error {
	return New().Process(name, strings.NewReader(src), w)
}

// Text preprocesses src and returns the output.
func Text(src string) (string, error) {
	return New().String("", src)
}

// Tokenize splits src into preprocessing tokens without executing
// directives or expanding macros.
func Tokenize(src string) ([]Token, error) {
	return lexer.Tokenize(src)
}
