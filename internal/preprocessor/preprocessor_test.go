package preprocessor

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/fwessels/cpp/internal/token"
)

// lexDrain preprocesses input and returns the dot-separated spellings of
// the output tokens, with one "\n" token per output newline.
func lexDrain(input string) (string, error) {
	toks, err := New().Tokens("t.c", input)
	if err != nil {
		return "", err
	}
	var buf strings.Builder
	for _, tok := range toks {
		if tok.Kind != token.Whitespace {
			appendToken(&buf, tok.Text)
			continue
		}
		for i := strings.Count(tok.Text, "\n"); i > 0; i-- {
			appendToken(&buf, "\n")
		}
	}
	return buf.String(), nil
}

func appendToken(buf *strings.Builder, tok string) {
	if buf.Len() > 0 {
		buf.WriteByte('.')
	}
	buf.WriteString(tok)
}

func TestLex(t *testing.T) {
	for _, tt := range lexTests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := lexDrain(tt.input)
			if err != nil {
				t.Fatalf("lex error: %v", err)
			}
			if diff := cmp.Diff(tt.output, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestBadLex(t *testing.T) {
	for _, tt := range badLexTests {
		t.Run(tt.error, func(t *testing.T) {
			_, err := lexDrain(tt.input)
			if err == nil {
				t.Fatalf("expected error %q", tt.error)
			}
			if diff := cmp.Diff(tt.error, err.Error()); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
			if !errors.Is(err, tt.kind) {
				t.Errorf("error %v is not a %v", err, tt.kind)
			}
		})
	}
}

func lines(a ...string) string {
	return strings.Join(a, "\n") + "\n"
}

type lexTest struct {
	name   string
	input  string
	output string
}

var lexTests = []lexTest{
	{
		"empty",
		"",
		"",
	},
	{
		"simple",
		"1 (a)",
		"1.(.a.)",
	},
	{
		"simple define",
		lines(
			"#define A 1234",
			"A",
		),
		"\n.1234.\n",
	},
	{
		"define without value",
		"#define A",
		"",
	},
	{
		"macro without arguments",
		"#define A() 1234\n" + "A()\n",
		"\n.1234.\n",
	},
	{
		"macro with just parens as body",
		"#define A () \n" + "A\n",
		"\n.(.).\n",
	},
	{
		"macro with parens but no arguments",
		"#define A (x) \n" + "A\n",
		"\n.(.x.).\n",
	},
	{
		"macro with arguments",
		"#define A(x, y, z) x+z+y\n" + "A(1, 2, 3)\n",
		"\n.1.+.3.+.2.\n",
	},
	{
		"argumented macro invoked without arguments",
		lines(
			"#define X() foo ",
			"X()",
			"X",
		),
		"\n.foo.\n.X.\n",
	},
	{
		"multiline macro without arguments",
		lines(
			"#define A 1\\",
			"\t2\\",
			"\t3",
			"before",
			"A",
			"after",
		),
		"\n.before.\n.1.2.3.\n.after.\n",
	},
	{
		"multiline macro with arguments",
		lines(
			"#define A(a, b, c) a\\",
			"\tb\\",
			"\tc",
			"before",
			"A(1, 2, 3)",
			"after",
		),
		"\n.before.\n.1.2.3.\n.after.\n",
	},
	{
		"taken #ifdef",
		lines(
			"#define A",
			"#ifdef A",
			"#define B 1234",
			"#endif",
			"B",
		),
		"\n.\n.\n.\n.1234.\n",
	},
	{
		"not taken #ifdef",
		lines(
			"#ifdef A",
			"#define B 1234",
			"#endif",
			"B",
		),
		"\n.\n.B.\n",
	},
	{
		"not taken #ifdef with else",
		lines(
			"#ifdef A",
			"#define B 1234",
			"#else",
			"#define B 5678",
			"#endif",
			"B",
		),
		"\n.\n.\n.\n.5678.\n",
	},
	{
		"self-referential macro",
		lines(
			"#define A A",
			"A",
		),
		"\n.A.\n",
	},
	{
		"nested function-like macros",
		lines(
			"#define a(x) b(x)+1",
			"#define b(x) x+2",
			"a(0)",
		),
		"\n.\n.0.+.2.+.1.\n",
	},
	{
		"variadic macro",
		lines(
			"#define m(a,...) a+__VA_ARGS__",
			"m(1,2,3)",
		),
		"\n.1.+.2.,.3.\n",
	},
	{
		"elif",
		lines(
			"#if 0",
			"a",
			"#elif 1",
			"b",
			"#endif",
		),
		"\n.\n.b.\n.\n",
	},
	{
		"argument split on rescan",
		lines(
			"#define i(x) k(x)",
			"#define j 1,2",
			"#define k(a,b) a foo b",
			"i(j)",
		),
		"\n.\n.\n.1.foo.2.\n",
	},
	{
		"condition with macros",
		lines(
			"#define V 3",
			"#define HAVE defined(V)",
			"#if HAVE && V >= 2",
			"yes",
			"#else",
			"no",
			"#endif",
		),
		"\n.\n.\n.yes.\n.\n.\n",
	},
	{
		"stringify",
		lines(
			`#define s(x) #x`,
			`s(a "b")`,
		),
		"\n." + `"a \"b\""` + ".\n",
	},
	{
		"paste",
		lines(
			"#define cat(a, b) a ## b",
			"cat(x, 1)",
		),
		"\n.x1.\n",
	},
	{
		"undef",
		lines(
			"#define A 1",
			"#undef A",
			"A",
		),
		"\n.\n.A.\n",
	},
}

type badLexTest struct {
	input string
	error string
	kind  error
}

var badLexTests = []badLexTest{
	{
		"#endif",
		"t.c:1:2: #endif without #if",
		token.ErrConditionalNesting,
	},
	{
		lines("#if 1", "x"),
		"t.c:1:2: unterminated #if",
		token.ErrConditionalNesting,
	},
	{
		lines("#define f(x) x", "f(1"),
		`t.c:2:1: unterminated argument list invoking macro "f"`,
		token.ErrMacroInvocation,
	},
	{
		lines("#if 1/0", "#endif"),
		"t.c:1:6: division by zero in expression",
		token.ErrEvaluation,
	},
	{
		"#define 1",
		`t.c:1:9: expected identifier, found "1"`,
		token.ErrDirectiveSyntax,
	},
	{
		"\"abc",
		"t.c:1:1: missing terminating \" character",
		token.ErrLexical,
	},
}

func TestProcess(t *testing.T) {
	var out bytes.Buffer
	err := New().Process("sq.c", strings.NewReader(lines("#define SQ(x) ((x)*(x))", "int a = SQ(2);")), &out)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff("\nint a = ((2)*(2));\n", out.String()); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestPredefined(t *testing.T) {
	p := New()
	for _, def := range []string{"X", "Y=2", "F(a)=a*Y", "GONE"} {
		if err := p.Define(def); err != nil {
			t.Fatalf("define %s: %v", def, err)
		}
	}
	if err := p.Undef("GONE"); err != nil {
		t.Fatal(err)
	}
	got, err := p.String("t.c", "X F(3) GONE")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff("1 3*2 GONE", got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	err = p.Define("1=2")
	if diff := cmp.Diff(`<command line>:1:9: expected identifier, found "1"`, errString(err)); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func TestParseDefine(t *testing.T) {
	tests := []struct{ in, name, value string }{
		{"A", "A", "1"},
		{"A=", "A", ""},
		{"A=b=c", "A", "b=c"},
		{"F(x)=x+1", "F(x)", "x+1"},
	}
	for _, tt := range tests {
		name, value := ParseDefine(tt.in)
		if name != tt.name || value != tt.value {
			t.Errorf("ParseDefine(%q) = %q, %q; want %q, %q", tt.in, name, value, tt.name, tt.value)
		}
	}
}

func TestClone(t *testing.T) {
	p := New()
	if err := p.Define("A=1"); err != nil {
		t.Fatal(err)
	}
	c := p.Clone()
	if _, err := c.String("t.c", "#define B 2\n#undef A\n"); err != nil {
		t.Fatal(err)
	}
	if !p.Table.Defined("A") || p.Table.Defined("B") {
		t.Errorf("clone changed the original table: %v", p.Table.Names())
	}
	if diff := cmp.Diff([]string{"B"}, c.Table.Names()); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestKeepUnknown(t *testing.T) {
	p := New()
	p.KeepUnknown = true
	got, err := p.String("t.c", lines("#pragma once", "x"))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(lines("#pragma once", "x"), got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestDirectiveLogging(t *testing.T) {
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	p := New()
	p.Logger = log
	if _, err := p.Tokens("t.c", lines("#define A", "#ifdef A", "#endif")); err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, e := range hook.AllEntries() {
		got = append(got, e.Message+" "+e.Data["file"].(string)+":"+e.Data["pos"].(string))
	}
	want := []string{"#define t.c:1:2", "#ifdef t.c:2:2", "#endif t.c:3:2"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}
