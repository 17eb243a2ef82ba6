// Package preprocessor chains the tokenizer, directive executor and macro
// expander into a single pipeline over a shared macro table.
package preprocessor

import (
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/fwessels/cpp/internal/directive"
	"github.com/fwessels/cpp/internal/lexer"
	"github.com/fwessels/cpp/internal/macro"
	"github.com/fwessels/cpp/internal/printer"
	"github.com/fwessels/cpp/internal/token"
)

// CommandLine is the file name given to errors in predefined macros.
const CommandLine = "<command line>"

type Preprocessor struct {
	Table *macro.Table
	// KeepUnknown passes unrecognized directives through to the output.
	KeepUnknown bool
	Logger      logrus.FieldLogger
}

func New() *Preprocessor {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return &Preprocessor{Table: macro.NewTable(), Logger: log}
}

// Clone returns a Preprocessor with the same settings and a private copy
// of the macro table.
func (p *Preprocessor) Clone() *Preprocessor {
	c := *p
	c.Table = p.Table.Clone()
	return &c
}

// ParseDefine splits a -D argument into the macro head and its value. The
// value defaults to 1.
func ParseDefine(s string) (name, value string) {
	if i := strings.IndexByte(s, '='); i >= 0 {
		return s[:i], s[i+1:]
	}
	return s, "1"
}

// Define predefines a macro given as NAME, NAME=VALUE or NAME(params)=VALUE.
func (p *Preprocessor) Define(def string) error {
	name, value := ParseDefine(def)
	return p.run(fmt.Sprintf("#define %s %s\n", name, value))
}

// Undef removes a predefined macro.
func (p *Preprocessor) Undef(name string) error {
	return p.run(fmt.Sprintf("#undef %s\n", name))
}

// run executes directive source against the table, discarding its output.
func (p *Preprocessor) run(src string) error {
	x := directive.New(lexer.New(src), p.Table)
	if _, err := token.Drain(x); err != nil {
		return token.WithFile(err, CommandLine)
	}
	return nil
}

// Stream returns the fully preprocessed tokens of src. Errors carry name
// as their file.
func (p *Preprocessor) Stream(name, src string) token.Stream {
	x := directive.New(lexer.New(src), p.Table)
	x.KeepUnknown = p.KeepUnknown
	x.OnDirective = func(dir string, pos token.Pos) {
		p.Logger.WithFields(logrus.Fields{
			"file": name,
			"pos":  pos.String(),
		}).Debugf("#%s", dir)
	}
	e := macro.NewExpander(x, p.Table)
	return token.NewReader(func() (token.Token, error) {
		tok, err := e.Next()
		return tok, token.WithFile(err, name)
	})
}

// Tokens preprocesses src and returns every output token.
func (p *Preprocessor) Tokens(name, src string) ([]token.Token, error) {
	return token.Drain(p.Stream(name, src))
}

// Process preprocesses file content and writes expanded output.
func (p *Preprocessor) Process(name string, r io.Reader, w io.Writer) error {
	src, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	return printer.Print(w, p.Stream(name, string(src)))
}

// String preprocesses src and returns the output text.
func (p *Preprocessor) String(name, src string) (string, error) {
	return printer.String(p.Stream(name, src))
}
