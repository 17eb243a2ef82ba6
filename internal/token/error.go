package token

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a fatal preprocessing error.
type ErrorKind int

const (
	LexicalError ErrorKind = iota + 1
	DirectiveSyntaxError
	ConditionalNestingError
	MacroInvocationError
	EvaluationError
)

// Sentinels matched by errors.Is against an *Error of the same kind.
var (
	ErrLexical            = errors.New("lexical error")
	ErrDirectiveSyntax    = errors.New("directive syntax error")
	ErrConditionalNesting = errors.New("conditional nesting error")
	ErrMacroInvocation    = errors.New("macro invocation error")
	ErrEvaluation         = errors.New("evaluation error")
)

func (k ErrorKind) sentinel() error {
	switch k {
	case LexicalError:
		return ErrLexical
	case DirectiveSyntaxError:
		return ErrDirectiveSyntax
	case ConditionalNestingError:
		return ErrConditionalNesting
	case MacroInvocationError:
		return ErrMacroInvocation
	case EvaluationError:
		return ErrEvaluation
	}
	return nil
}

func (k ErrorKind) String() string {
	if s := k.sentinel(); s != nil {
		return s.Error()
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Error is a fatal preprocessing error. No stage resynchronizes after
// one is returned.
type Error struct {
	Kind ErrorKind
	File string
	Pos  Pos
	Msg  string
}

// Errorf returns an *Error of the given kind.
func Errorf(kind ErrorKind, pos Pos, format string, args ...any) *Error {
	return &Error{Kind: kind, Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	switch {
	case e.File != "" && e.Pos.IsValid():
		return fmt.Sprintf("%s:%d:%d: %s", e.File, e.Pos.Line, e.Pos.Col, e.Msg)
	case e.File != "":
		return fmt.Sprintf("%s: %s", e.File, e.Msg)
	case e.Pos.IsValid():
		return fmt.Sprintf("%d:%d: %s", e.Pos.Line, e.Pos.Col, e.Msg)
	}
	return e.Msg
}

// Unwrap exposes the kind sentinel so errors.Is(err, ErrEvaluation) works.
func (e *Error) Unwrap() error {
	return e.Kind.sentinel()
}

// WithFile sets the file name on err if it is an *Error without one.
func WithFile(err error, file string) error {
	var e *Error
	if errors.As(err, &e) && e.File == "" {
		e.File = file
	}
	return err
}
