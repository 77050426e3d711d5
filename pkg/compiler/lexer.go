package compiler

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Lexer scans source text line by line. The only state carried across
// lines is whether a block comment is still open.
type Lexer struct {
	lines     []string
	line      int // current 1-based source line
	column    int // tokens produced so far on the current line
	inComment bool
	tokens    []Token
}

func newLexer(src string) *Lexer {
	return &Lexer{lines: strings.Split(src, "\n")}
}

// Lex converts source text into an ordered token slice. Comments and
// whitespace produce no tokens. A block comment left open at end of input
// is accepted.
func Lex(src string) ([]Token, error) {
	l := newLexer(src)
	for i, text := range l.lines {
		l.line = i + 1
		l.column = 0
		if err := l.scanLine([]rune(text)); err != nil {
			return nil, err
		}
	}
	return l.tokens, nil
}

func (l *Lexer) emit(tt TokenType, lexeme string) {
	l.tokens = append(l.tokens, Token{Type: tt, Lexeme: lexeme, Line: l.line, Column: l.column})
	l.column++
}

func (l *Lexer) fail(err error, detail string) error {
	return &LexError{Line: l.line, Detail: detail, Err: err}
}

func (l *Lexer) scanLine(src []rune) error {
	pos := 0
	for pos < len(src) {
		if l.inComment {
			end := indexRunes(src[pos:], "*/")
			if end < 0 {
				return nil
			}
			pos += end + 2
			l.inComment = false
			continue
		}

		r := src[pos]
		if unicode.IsSpace(r) {
			pos++
			continue
		}

		if hasPrefix(src[pos:], "//") {
			return nil
		}
		if hasPrefix(src[pos:], "/*") {
			l.inComment = true
			pos += 2
			continue
		}

		var err error
		switch {
		case isDigit(r):
			pos, err = l.scanInt(src, pos)
		case r == '"':
			pos, err = l.scanString(src, pos)
		case strings.ContainsRune(symbols, r):
			l.emit(SYMBOL, string(r))
			pos++
		case isIdentStart(r):
			pos = l.scanWord(src, pos)
		default:
			err = l.fail(ErrUnexpectedChar, fmt.Sprintf("%q", r))
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// scanInt consumes a maximal digit run starting at pos.
func (l *Lexer) scanInt(src []rune, pos int) (int, error) {
	start := pos
	for pos < len(src) && isDigit(src[pos]) {
		pos++
	}
	if pos < len(src) && isIdentStart(src[pos]) {
		return pos, l.fail(ErrInvalidInteger, fmt.Sprintf("%q", src[pos]))
	}
	lexeme := string(src[start:pos])
	n, err := strconv.Atoi(lexeme)
	if err != nil || n > 32767 {
		return pos, l.fail(ErrIntegerRange, lexeme)
	}
	l.emit(INT_CONST, lexeme)
	return pos, nil
}

// scanString consumes a quoted string; src[pos] is the opening quote.
func (l *Lexer) scanString(src []rune, pos int) (int, error) {
	end := indexRunes(src[pos+1:], `"`)
	if end < 0 {
		return pos, l.fail(ErrUnterminatedString, "")
	}
	// each character becomes a push constant, so it must fit in 15 bits
	for _, r := range src[pos+1 : pos+1+end] {
		if r > 32767 {
			return pos, l.fail(ErrStringChar, fmt.Sprintf("%q", r))
		}
	}
	l.emit(STRING_CONST, string(src[pos+1:pos+1+end]))
	return pos + end + 2, nil
}

// scanWord consumes a keyword or identifier. A keyword only matches when it
// spans the whole letter/digit/underscore run.
func (l *Lexer) scanWord(src []rune, pos int) int {
	start := pos
	for pos < len(src) && isIdentPart(src[pos]) {
		pos++
	}
	word := string(src[start:pos])
	if keywords[word] {
		l.emit(KEYWORD, word)
	} else {
		l.emit(IDENTIFIER, word)
	}
	return pos
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

func isIdentStart(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isIdentPart(r rune) bool { return isIdentStart(r) || isDigit(r) }

func hasPrefix(src []rune, prefix string) bool {
	p := []rune(prefix)
	if len(src) < len(p) {
		return false
	}
	for i := range p {
		if src[i] != p[i] {
			return false
		}
	}
	return true
}

// indexRunes returns the rune offset of the first occurrence of sub, or -1.
func indexRunes(src []rune, sub string) int {
	for i := range src {
		if hasPrefix(src[i:], sub) {
			return i
		}
	}
	return -1
}
