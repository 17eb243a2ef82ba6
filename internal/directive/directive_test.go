package directive

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/fwessels/cpp/internal/lexer"
	"github.com/fwessels/cpp/internal/macro"
	"github.com/fwessels/cpp/internal/token"
)

func lines(a ...string) string {
	return strings.Join(a, "\n") + "\n"
}

func run(input string, keepUnknown bool) (string, *macro.Table, error) {
	tab := macro.NewTable()
	x := New(lexer.New(input), tab)
	x.KeepUnknown = keepUnknown
	toks, err := token.Drain(x)
	var b strings.Builder
	for _, tok := range toks {
		b.WriteString(tok.Text)
	}
	return b.String(), tab, err
}

type directiveTest struct {
	name   string
	input  string
	output string
}

var directiveTests = []directiveTest{
	{
		"plain text",
		"a + b\n",
		"a + b\n",
	},
	{
		"define is not expanded here",
		lines("a", "#define X 1", "X"),
		"a\n\nX\n",
	},
	{
		"if else",
		lines("#if 0", "a", "#else", "b", "#endif"),
		"\n\nb\n\n",
	},
	{
		"elif",
		lines("#if 0", "a", "#elif 1", "b", "#endif"),
		"\n\nb\n\n",
	},
	{
		"elif after taken branch is not evaluated",
		lines("#if 1", "a", "#elif 1/0", "b", "#else", "c", "#endif"),
		"\na\n\n\n",
	},
	{
		"nested in skipped group",
		lines("#if 0", "#if 1", "x", "#endif", "y", "#endif", "z"),
		"\n\nz\n",
	},
	{
		"nested active",
		lines("#if 1", "#if 0", "x", "#else", "y", "#endif", "#endif"),
		"\n\n\ny\n\n\n",
	},
	{
		"ifdef and ifndef",
		lines("#define A", "#ifdef A", "1", "#endif", "#ifndef A", "2", "#endif"),
		"\n\n1\n\n\n\n",
	},
	{
		"defined in condition",
		lines("#define B", "#if defined A", "a", "#elif defined(B) && !defined C", "b", "#endif"),
		"\n\n\nb\n\n",
	},
	{
		"condition uses macros",
		lines("#define N 3", "#if N > 2", "big", "#endif"),
		"\n\nbig\n\n",
	},
	{
		"unknown directive dropped",
		"#pragma once\nx",
		"\nx",
	},
	{
		"null directive",
		"#\nx",
		"\nx",
	},
	{
		"indented directive",
		"  # define X\nX",
		"  \nX",
	},
	{
		"digraph hash",
		"%:define X\nX",
		"\nX",
	},
	{
		"hash in mid line",
		"a # define X\n",
		"a # define X\n",
	},
	{
		"hash after comment on same line",
		"/* c */ #define X\nX",
		"  \nX",
	},
	{
		"skipped group is lexed leniently",
		lines("#if 0", "'unterminated", `"also`, "#endif", "ok"),
		"\n\nok\n",
	},
	{
		"skipped group ignores other directives",
		lines("#if 0", "#define", "#undef 1", "#foo", "#if 1", "#else junk", "#endif", "#endif"),
		"\n\n",
	},
	{
		"directive at end of input",
		"x\n#define Y",
		"x\n",
	},
	{
		"crlf line ends",
		"#define X\r\nX\r\n",
		"\r\nX\r\n",
	},
}

func TestDirectives(t *testing.T) {
	for _, tt := range directiveTests {
		t.Run(tt.name, func(t *testing.T) {
			got, _, err := run(tt.input, false)
			if err != nil {
				t.Fatalf("directive error: %v", err)
			}
			if diff := cmp.Diff(tt.output, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestKeepUnknown(t *testing.T) {
	got, _, err := run(lines("#pragma once", "  # include <x.h>", "#if 0", "#error no", "#endif"), true)
	if err != nil {
		t.Fatal(err)
	}
	want := "#pragma once\n  # include <x.h>\n\n\n"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestDefinitions(t *testing.T) {
	_, tab, err := run(lines(
		"#define EMPTY",
		"#define OBJ  a  +  b  ",
		"#define F(a, b, ...) a b __VA_ARGS__",
		"#define G() 1",
		"#define H(x)x",
		"#define V(...) __VA_ARGS__",
		"#define GONE 1",
		"#undef GONE",
		"#undef NEVER",
		"#define R 1",
		"#define R 2",
	), false)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"EMPTY", "F", "G", "H", "OBJ", "R", "V"}, tab.Names()); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}

	type shape struct {
		FunctionLike bool
		Params       []string
		Body         string
	}
	want := map[string]shape{
		"EMPTY": {Body: ""},
		"OBJ":   {Body: "a  +  b"},
		"F":     {FunctionLike: true, Params: []string{"a", "b", token.VAArgs}, Body: "a b __VA_ARGS__"},
		"G":     {FunctionLike: true, Body: "1"},
		"H":     {FunctionLike: true, Params: []string{"x"}, Body: "x"},
		"V":     {FunctionLike: true, Params: []string{token.VAArgs}, Body: "__VA_ARGS__"},
		"R":     {Body: "2"},
	}
	for name, w := range want {
		m, ok := tab.Lookup(name)
		if !ok {
			t.Errorf("%s not defined", name)
			continue
		}
		var body strings.Builder
		for _, tok := range m.Body {
			body.WriteString(tok.Text)
		}
		got := shape{FunctionLike: m.FunctionLike, Params: m.Params, Body: body.String()}
		if diff := cmp.Diff(w, got); diff != "" {
			t.Errorf("%s mismatch (-want +got):\n%s", name, diff)
		}
	}
}

func TestOnDirective(t *testing.T) {
	var seen []string
	x := New(lexer.New(lines("#define X", "#if 0", "#undef X", "#endif", "#pragma x")), macro.NewTable())
	x.OnDirective = func(name string, pos token.Pos) {
		seen = append(seen, name+"@"+pos.String())
	}
	if _, err := token.Drain(x); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"define@1:2", "if@2:2", "endif@4:2"}, seen); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

type badDirectiveTest struct {
	input string
	error string
	kind  error
}

var badDirectiveTests = []badDirectiveTest{
	{"#endif", "1:2: #endif without #if", token.ErrConditionalNesting},
	{"x\n#else\n", "2:2: #else without #if", token.ErrConditionalNesting},
	{"#elif 1", "1:2: #elif without #if", token.ErrConditionalNesting},
	{lines("#if 1", "#else", "#else", "#endif"), "3:2: #else after #else", token.ErrConditionalNesting},
	{lines("#if 1", "#else", "#elif 1", "#endif"), "3:2: #elif after #else", token.ErrConditionalNesting},
	{lines("#if 0", "#else", "#elif 1", "#endif"), "3:2: #elif after #else", token.ErrConditionalNesting},
	{"#if 1\nx", "1:2: unterminated #if", token.ErrConditionalNesting},
	{lines("#if 0", "#ifdef X"), "2:2: unterminated #ifdef", token.ErrConditionalNesting},
	{"#define defined 1", `1:9: "defined" cannot be used as a macro name`, token.ErrDirectiveSyntax},
	{"#define 1", `1:9: expected identifier, found "1"`, token.ErrDirectiveSyntax},
	{"#define A+1", `1:10: missing whitespace after the macro name "A"`, token.ErrDirectiveSyntax},
	{"#define f(a,) a", `1:13: expected parameter name, found ")"`, token.ErrDirectiveSyntax},
	{"#define f(a a) a", `1:13: expected ',' or ')' in parameter list of "f", found "a"`, token.ErrDirectiveSyntax},
	{"#define f(a", `1:9: missing ')' in parameter list of "f"`, token.ErrDirectiveSyntax},
	{"#define f(a\n) a", `1:9: missing ')' in parameter list of "f"`, token.ErrDirectiveSyntax},
	{"#define f(a,a) a", `1:9: duplicate macro parameter "a"`, token.ErrDirectiveSyntax},
	{"#define f(__VA_ARGS__) 1", `1:11: "__VA_ARGS__" cannot be used as a macro parameter`, token.ErrDirectiveSyntax},
	{"#define f(a) __VA_ARGS__", `1:14: __VA_ARGS__ can only appear in the expansion of a variadic macro`, token.ErrDirectiveSyntax},
	{"#define f(... x) 1", `1:15: missing ')' after "..." in parameter list of "f"`, token.ErrDirectiveSyntax},
	{"#define s(x) #y", `1:14: '#' is not followed by a macro parameter`, token.ErrDirectiveSyntax},
	{"#undef 1", `1:8: expected identifier, found "1"`, token.ErrDirectiveSyntax},
	{"#undef X Y", `1:10: unexpected "Y" at end of directive`, token.ErrDirectiveSyntax},
	{"#ifdef\n#endif", "1:7: expected identifier, found newline", token.ErrDirectiveSyntax},
	{lines("#if 1", "#endif X"), `2:8: unexpected "X" at end of directive`, token.ErrDirectiveSyntax},
	{"#if 1/0\n#endif", "1:6: division by zero in expression", token.ErrEvaluation},
	{"#if\n#endif", "1:2: missing expression", token.ErrEvaluation},
	{"#if 0\n#elif\n#endif", "2:2: missing expression", token.ErrEvaluation},
	{"'x", "1:1: missing terminating ' character", token.ErrLexical},
}

func TestBadDirectives(t *testing.T) {
	for _, tt := range badDirectiveTests {
		t.Run(tt.error, func(t *testing.T) {
			_, _, err := run(tt.input, false)
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
