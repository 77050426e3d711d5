package compiler

import (
	"errors"
	"reflect"
	"testing"
)

// types extracts just the token types for compact comparisons.
func types(toks []Token) []TokenType {
	out := make([]TokenType, len(toks))
	for i, t := range toks {
		out[i] = t.Type
	}
	return out
}

func lexemes(toks []Token) []string {
	out := make([]string, len(toks))
	for i, t := range toks {
		out[i] = t.Lexeme
	}
	return out
}

func mustLex(t *testing.T, src string) []Token {
	t.Helper()
	toks, err := Lex(src)
	if err != nil {
		t.Fatalf("Lex(%q): %v", src, err)
	}
	return toks
}

func TestLexStatement(t *testing.T) {
	toks := mustLex(t, `let x = 5;`)
	wantTypes := []TokenType{KEYWORD, IDENTIFIER, SYMBOL, INT_CONST, SYMBOL}
	if got := types(toks); !reflect.DeepEqual(got, wantTypes) {
		t.Fatalf("types = %v; want %v", got, wantTypes)
	}
	wantLex := []string{"let", "x", "=", "5", ";"}
	if got := lexemes(toks); !reflect.DeepEqual(got, wantLex) {
		t.Fatalf("lexemes = %v; want %v", got, wantLex)
	}
}

func TestLexSymbolAlphabet(t *testing.T) {
	src := "{}()[].,;+-*/&|<>=~"
	toks := mustLex(t, src)
	if len(toks) != len(src) {
		t.Fatalf("got %d tokens; want %d: %v", len(toks), len(src), toks)
	}
	for i, tok := range toks {
		if tok.Type != SYMBOL || tok.Lexeme != string(src[i]) {
			t.Errorf("token %d = %v; want SYMBOL %q", i, tok, src[i])
		}
		if tok.Column != i {
			t.Errorf("token %d column = %d; want %d", i, tok.Column, i)
		}
	}
}

func TestLexCommentsOnly(t *testing.T) {
	src := `// line comment
/* block on one line */
/** doc
 * comment spanning
 * several lines
 */
   // indented
`
	toks := mustLex(t, src)
	if len(toks) != 0 {
		t.Fatalf("expected no tokens, got %v", toks)
	}
}

func TestLexUnterminatedBlockComment(t *testing.T) {
	toks, err := Lex("/* unterminated")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(toks) != 0 {
		t.Fatalf("expected no tokens, got %v", toks)
	}

	toks = mustLex(t, "do f();\n/* never closed\nlet x = 1;\n")
	if got := lexemes(toks); !reflect.DeepEqual(got, []string{"do", "f", "(", ")", ";"}) {
		t.Fatalf("lexemes = %v", got)
	}
}

func TestLexCommentsAroundCode(t *testing.T) {
	tests := []struct {
		src  string
		want []string
	}{
		{"let /* inline */ x", []string{"let", "x"}},
		{"/* a */ /* b */ y", []string{"y"}},
		{"a // rest ignored ; }", []string{"a"}},
		{"/* open\n still comment\n close */ z", []string{"z"}},
		{"x /* */ / 2", []string{"x", "/", "2"}},
		{"/**/q", []string{"q"}},
	}
	for _, tc := range tests {
		toks := mustLex(t, tc.src)
		if got := lexemes(toks); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("Lex(%q) = %v; want %v", tc.src, got, tc.want)
		}
	}
}

func TestLexKeywordsWholeWord(t *testing.T) {
	toks := mustLex(t, "do double classy class _let let2 this")
	want := []Token{
		{Type: KEYWORD, Lexeme: "do"},
		{Type: IDENTIFIER, Lexeme: "double"},
		{Type: IDENTIFIER, Lexeme: "classy"},
		{Type: KEYWORD, Lexeme: "class"},
		{Type: IDENTIFIER, Lexeme: "_let"},
		{Type: IDENTIFIER, Lexeme: "let2"},
		{Type: KEYWORD, Lexeme: "this"},
	}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens; want %d", len(toks), len(want))
	}
	for i := range want {
		if toks[i].Type != want[i].Type || toks[i].Lexeme != want[i].Lexeme {
			t.Errorf("token %d = %s %q; want %s %q", i, toks[i].Type, toks[i].Lexeme, want[i].Type, want[i].Lexeme)
		}
	}
}

func TestLexStringConstant(t *testing.T) {
	toks := mustLex(t, `do Output.printString("a < b & c");`)
	str := toks[5]
	if str.Type != STRING_CONST || str.Lexeme != "a < b & c" {
		t.Fatalf("string token = %v", str)
	}
	if got := str.XMLText(); got != "a &lt; b &amp; c" {
		t.Errorf("XMLText() = %q", got)
	}
	if got := str.XML(); got != "<stringConstant> a &lt; b &amp; c </stringConstant>" {
		t.Errorf("XML() = %q", got)
	}
}

func TestLexEscapedSymbols(t *testing.T) {
	tests := map[string]string{
		"<": "<symbol> &lt; </symbol>",
		">": "<symbol> &gt; </symbol>",
		"&": "<symbol> &amp; </symbol>",
		"+": "<symbol> + </symbol>",
	}
	for src, want := range tests {
		toks := mustLex(t, src)
		if got := toks[0].XML(); got != want {
			t.Errorf("XML(%q) = %q; want %q", src, got, want)
		}
		if toks[0].Lexeme != src {
			t.Errorf("Lexeme(%q) = %q; lexemes stay raw", src, toks[0].Lexeme)
		}
	}
}

func TestLexPositions(t *testing.T) {
	src := "class Main {\n  field int x;\n\n}\n"
	toks := mustLex(t, src)
	want := []struct {
		lexeme string
		line   int
		col    int
	}{
		{"class", 1, 0}, {"Main", 1, 1}, {"{", 1, 2},
		{"field", 2, 0}, {"int", 2, 1}, {"x", 2, 2}, {";", 2, 3},
		{"}", 4, 0},
	}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens; want %d", len(toks), len(want))
	}
	for i, w := range want {
		if toks[i].Lexeme != w.lexeme || toks[i].Line != w.line || toks[i].Column != w.col {
			t.Errorf("token %d = %q %d:%d; want %q %d:%d",
				i, toks[i].Lexeme, toks[i].Line, toks[i].Column, w.lexeme, w.line, w.col)
		}
	}
}

func TestLexCRLF(t *testing.T) {
	toks := mustLex(t, "let x = 1;\r\nlet y = 2;\r\n")
	if len(toks) != 10 {
		t.Fatalf("got %d tokens: %v", len(toks), toks)
	}
	if toks[5].Line != 2 {
		t.Errorf("second statement on line %d; want 2", toks[5].Line)
	}
}

func TestLexErrors(t *testing.T) {
	tests := []struct {
		src  string
		want error
		line int
	}{
		{"let x = 12ab;", ErrInvalidInteger, 1},
		{"let x = 12_;", ErrInvalidInteger, 1},
		{"\nlet s = \"a\U0001F600\";", ErrStringChar, 2},
		{"\n\nlet s = \"abc;", ErrUnterminatedString, 3},
		{"let x = 1 # 2;", ErrUnexpectedChar, 1},
		{"let x = $;", ErrUnexpectedChar, 1},
		{"\nlet x = 32768;", ErrIntegerRange, 2},
		{"let x = 99999999999999999999;", ErrIntegerRange, 1},
	}
	for _, tc := range tests {
		_, err := Lex(tc.src)
		if !errors.Is(err, tc.want) {
			t.Errorf("Lex(%q) error = %v; want %v", tc.src, err, tc.want)
			continue
		}
		var lexErr *LexError
		if !errors.As(err, &lexErr) {
			t.Errorf("Lex(%q) error is %T; want *LexError", tc.src, err)
			continue
		}
		if lexErr.Line != tc.line {
			t.Errorf("Lex(%q) line = %d; want %d", tc.src, lexErr.Line, tc.line)
		}
	}
}

func TestLexMaxInteger(t *testing.T) {
	toks := mustLex(t, "32767 0")
	if toks[0].Lexeme != "32767" || toks[1].Lexeme != "0" {
		t.Fatalf("lexemes = %v", lexemes(toks))
	}
}

func TestTokenString(t *testing.T) {
	tok := Token{Type: IDENTIFIER, Lexeme: "x", Line: 3, Column: 1}
	want := `IDENTIFIER   "x"             line 3:1`
	if got := tok.String(); got != want {
		t.Errorf("String() = %q; want %q", got, want)
	}
	if KEYWORD.XMLTag() != "keyword" || INT_CONST.XMLTag() != "integerConstant" {
		t.Errorf("unexpected xml tags")
	}
}
