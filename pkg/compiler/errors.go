package compiler

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInteger     = errors.New("invalid character in integer constant")
	ErrIntegerRange       = errors.New("integer constant out of range")
	ErrUnterminatedString = errors.New("unterminated string constant")
	ErrStringChar         = errors.New("character not representable in string constant")
	ErrUnexpectedChar     = errors.New("unexpected character")

	ErrSymbolAlreadyExists = errors.New("symbol already exists")
	ErrSymbolNotFound      = errors.New("symbol not found")
	ErrUndefinedVariable   = errors.New("undefined variable")
	ErrClassNameMismatch   = errors.New("class name does not match file name")
)

// LexError is a fatal tokenizer failure on a given source line.
type LexError struct {
	Line   int
	Detail string // offending text, may be empty
	Err    error
}

func (e *LexError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%v on line %d", e.Err, e.Line)
	}
	return fmt.Sprintf("%v %s on line %d", e.Err, e.Detail, e.Line)
}

func (e *LexError) Unwrap() error { return e.Err }

// ParseError is a fatal grammar mismatch. Expected is empty for failures that
// are not about a specific token, such as a redeclared name.
type ParseError struct {
	Line     int
	Column   int
	Expected string
	Found    Token
	Msg      string
	Snippet  string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d:%d: %s\n  |> %s", e.Line, e.Column, e.Msg, e.Snippet)
}

func (e *ParseError) Unwrap() error { return e.Err }
