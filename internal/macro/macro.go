// Package macro holds the macro table and the recursive macro expander.
package macro

import (
	"slices"
	"sort"

	"github.com/fwessels/cpp/internal/token"
)

// Macro is one #define.
type Macro struct {
	Name         string
	FunctionLike bool
	// Params are unique; a variadic macro ends with token.VAArgs.
	Params []string
	// Body is the replacement list without leading or trailing whitespace.
	Body []token.Token
	Pos  token.Pos
}

// Variadic reports whether the macro takes a variable argument list.
func (m *Macro) Variadic() bool {
	return len(m.Params) > 0 && m.Params[len(m.Params)-1] == token.VAArgs
}

func (m *Macro) param(name string) int {
	return slices.Index(m.Params, name)
}

func isStringize(t token.Token) bool { return t.IsPunct("#") || t.IsPunct("%:") }
func isPaste(t token.Token) bool     { return t.IsPunct("##") || t.IsPunct("%:%:") }

func (m *Macro) check() error {
	if token.IsReserved(m.Name) {
		return token.Errorf(token.DirectiveSyntaxError, m.Pos, "%q cannot be used as a macro name", m.Name)
	}
	for i, p := range m.Params {
		if token.IsReserved(p) && !(p == token.VAArgs && i == len(m.Params)-1) {
			return token.Errorf(token.DirectiveSyntaxError, m.Pos, "%q cannot be used as a macro parameter", p)
		}
		if slices.Index(m.Params[:i], p) >= 0 {
			return token.Errorf(token.DirectiveSyntaxError, m.Pos, "duplicate macro parameter %q", p)
		}
	}
	body := m.Body
	if len(body) == 0 {
		return nil
	}
	if isPaste(body[0]) || isPaste(body[len(body)-1]) {
		return token.Errorf(token.DirectiveSyntaxError, m.Pos, "'##' cannot appear at either end of a macro expansion")
	}
	for i, tok := range body {
		if tok.IsIdent(token.VAArgs) && !m.Variadic() {
			return token.Errorf(token.DirectiveSyntaxError, tok.Pos, "__VA_ARGS__ can only appear in the expansion of a variadic macro")
		}
		if m.FunctionLike && isStringize(tok) {
			j := nextNonSpace(body, i+1)
			if j == len(body) || body[j].Kind != token.Identifier || m.param(body[j].Text) < 0 {
				return token.Errorf(token.DirectiveSyntaxError, tok.Pos, "'#' is not followed by a macro parameter")
			}
		}
	}
	return nil
}

func nextNonSpace(toks []token.Token, i int) int {
	for i < len(toks) && toks[i].Kind == token.Whitespace {
		i++
	}
	return i
}

func prevNonSpace(toks []token.Token, i int) int {
	for i >= 0 && toks[i].Kind == token.Whitespace {
		i--
	}
	return i
}

// Table maps macro names to definitions. It is owned by one preprocessing
// run; use Clone to give concurrent runs their own copy.
type Table struct {
	macros map[string]*Macro
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{macros: map[string]*Macro{}}
}

// Define validates m and inserts it, replacing any earlier definition.
func (t *Table) Define(m *Macro) error {
	m.Body = token.TrimSpace(m.Body)
	if err := m.check(); err != nil {
		return err
	}
	t.macros[m.Name] = m
	return nil
}

// Undef removes name if it is defined.
func (t *Table) Undef(name string) {
	delete(t.macros, name)
}

func (t *Table) Lookup(name string) (*Macro, bool) {
	m, ok := t.macros[name]
	return m, ok
}

func (t *Table) Defined(name string) bool {
	_, ok := t.macros[name]
	return ok
}

func (t *Table) Len() int { return len(t.macros) }

// Names returns the defined macro names in sorted order.
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.macros))
	for name := range t.macros {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	c := &Table{macros: make(map[string]*Macro, len(t.macros))}
	for name, m := range t.macros {
		cp := *m
		cp.Params = slices.Clone(m.Params)
		cp.Body = slices.Clone(m.Body)
		c.macros[name] = &cp
	}
	return c
}

// Context is the set of macro names being expanded on the current path.
// It is immutable; the nil Context is empty.
type Context struct {
	name   string
	parent *Context
}

// With returns c extended by name.
func (c *Context) With(name string) *Context {
	return &Context{name: name, parent: c}
}

func (c *Context) Has(name string) bool {
	for ; c != nil; c = c.parent {
		if c.name == name {
			return true
		}
	}
	return false
}

// Names lists the context, outermost expansion first.
func (c *Context) Names() []string {
	var names []string
	for ; c != nil; c = c.parent {
		names = append(names, c.name)
	}
	slices.Reverse(names)
	return names
}
