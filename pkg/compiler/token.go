package compiler

import (
	"fmt"
	"strings"
)

// TokenType identifies the category of a lexed token.
type TokenType int

const (
	EOF TokenType = iota // sentinel: end of input

	KEYWORD      // reserved word: class, let, while, ...
	SYMBOL       // one character from the symbol alphabet
	IDENTIFIER   // class / subroutine / variable name
	INT_CONST    // decimal integer 0..32767
	STRING_CONST // "..." without the quotes
)

var tokenNames = [...]string{
	EOF:          "EOF",
	KEYWORD:      "KEYWORD",
	SYMBOL:       "SYMBOL",
	IDENTIFIER:   "IDENTIFIER",
	INT_CONST:    "INT_CONST",
	STRING_CONST: "STRING_CONST",
}

// xmlTags holds the element name each token type renders as.
var xmlTags = [...]string{
	EOF:          "eof",
	KEYWORD:      "keyword",
	SYMBOL:       "symbol",
	IDENTIFIER:   "identifier",
	INT_CONST:    "integerConstant",
	STRING_CONST: "stringConstant",
}

func (t TokenType) String() string {
	if int(t) < len(tokenNames) {
		return tokenNames[t]
	}
	return fmt.Sprintf("TokenType(%d)", int(t))
}

// XMLTag returns the element name used in the structural rendering.
func (t TokenType) XMLTag() string {
	if int(t) < len(xmlTags) {
		return xmlTags[t]
	}
	return "unknown"
}

// symbols is the fixed symbol alphabet; each character is a token on its own.
const symbols = "{}()[].,;+-*/&|<>=~"

var keywords = map[string]bool{
	"class":       true,
	"constructor": true,
	"function":    true,
	"method":      true,
	"field":       true,
	"static":      true,
	"var":         true,
	"int":         true,
	"char":        true,
	"boolean":     true,
	"void":        true,
	"true":        true,
	"false":       true,
	"null":        true,
	"this":        true,
	"let":         true,
	"do":          true,
	"if":          true,
	"else":        true,
	"while":       true,
	"return":      true,
}

// IsKeyword reports whether word is reserved.
func IsKeyword(word string) bool {
	return keywords[word]
}

// Token is a single lexical unit with its source position. Lexeme holds the
// raw text; string constants exclude the surrounding quotes.
type Token struct {
	Type   TokenType
	Lexeme string
	Line   int // 1-based
	Column int // 0-based token counter within the line
}

func (t Token) String() string {
	return fmt.Sprintf("%-12s %-14q  line %d:%d", t.Type, t.Lexeme, t.Line, t.Column)
}

// Is reports whether the token has type tt and the given lexeme.
func (t Token) Is(tt TokenType, lexeme string) bool {
	return t.Type == tt && t.Lexeme == lexeme
}

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
)

// XMLText returns the lexeme escaped for embedding in XML text.
func (t Token) XMLText() string {
	return xmlEscaper.Replace(t.Lexeme)
}

// XML renders the token as a single leaf element.
func (t Token) XML() string {
	tag := t.Type.XMLTag()
	return fmt.Sprintf("<%s> %s </%s>", tag, t.XMLText(), tag)
}
