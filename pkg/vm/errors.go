package vm

import (
	"errors"
	"fmt"
)

var (
	ErrNoEntryPoint    = errors.New("program defines neither Sys.init nor Main.main")
	ErrStepLimit       = errors.New("step limit exceeded")
	ErrStackOverflow   = errors.New("stack overflow")
	ErrStackUnderflow  = errors.New("stack underflow")
	ErrDivideByZero    = errors.New("division by zero")
	ErrHeapExhausted   = errors.New("heap exhausted")
	ErrBadFree         = errors.New("deAlloc of an unallocated block")
	ErrMemoryRange     = errors.New("memory address out of range")
	ErrUnknownFunction = errors.New("unknown function")
	ErrArgCount        = errors.New("wrong number of arguments")
	ErrBadPC           = errors.New("program counter out of range")
	ErrSysError        = errors.New("Sys.error")
	ErrIllegalArgument = errors.New("illegal argument")
)

// RuntimeError reports a failure while executing the instruction at PC.
type RuntimeError struct {
	PC       int
	Function string
	Pos      SourcePos
	Err      error
}

func (e *RuntimeError) Error() string {
	loc := e.Function
	if e.Pos.File != "" {
		loc = fmt.Sprintf("%s (%s)", e.Function, e.Pos)
	}
	return fmt.Sprintf("runtime error at pc %d in %s: %v", e.PC, loc, e.Err)
}

func (e *RuntimeError) Unwrap() error { return e.Err }
