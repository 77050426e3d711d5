// Package asm links VM text files into an executable vm.Program.
package asm

import (
	"errors"
	"fmt"
	"strings"

	"gojack/pkg/vm"
	"gojack/pkg/vmcode"
)

var (
	ErrDuplicateFunction = errors.New("duplicate function")
	ErrDuplicateLabel    = errors.New("duplicate label")
	ErrUndefinedLabel    = errors.New("undefined label")
	ErrUndefinedFunction = errors.New("undefined function")
	ErrArgCount          = errors.New("wrong number of arguments")
	ErrSegmentRange      = errors.New("segment index out of range")
	ErrStaticsExhausted  = errors.New("static segment exhausted")
	ErrProgramTooLarge   = errors.New("program too large")
)

// File is one VM source, usually the output for a single class.
type File struct {
	Name   string
	Source string
}

// Error locates a link failure in its input file.
type Error struct {
	File string
	Line int
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s:%d: %v", e.File, e.Line, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

type parsedLine struct {
	file   int
	lineNo int
	fn     string // enclosing function
	in     vmcode.Instruction
}

type Assembler struct {
	functions   map[string]int
	labels      map[string]int
	staticBases []int
	statics     int
	lines       []parsedLine
}

func NewAssembler() *Assembler {
	return &Assembler{
		functions: make(map[string]int),
		labels:    make(map[string]int),
	}
}

func Assemble(files ...File) (*vm.Program, error) {
	return NewAssembler().Assemble(files...)
}

func (a *Assembler) Assemble(files ...File) (*vm.Program, error) {
	if err := a.pass1(files); err != nil {
		return nil, err
	}
	return a.pass2(files)
}

func labelKey(fn, label string) string {
	return fn + "$" + label
}

// pass1 decodes every line, records function and label addresses, and
// assigns each file its block of static words.
func (a *Assembler) pass1(files []File) error {
	for fi, f := range files {
		fn := ""
		fileStatics := 0
		for i, raw := range strings.Split(f.Source, "\n") {
			lineNo := i + 1
			in, ok, err := vmcode.Parse(raw)
			if err != nil {
				return &Error{File: f.Name, Line: lineNo, Err: err}
			}
			if !ok {
				continue
			}
			addr := len(a.lines)
			if addr >= vm.MaxProgramSize {
				return &Error{File: f.Name, Line: lineNo, Err: ErrProgramTooLarge}
			}

			switch in.Op {
			case vmcode.OpFunction:
				if _, exists := a.functions[in.Name]; exists {
					return &Error{File: f.Name, Line: lineNo, Err: fmt.Errorf("%w '%s'", ErrDuplicateFunction, in.Name)}
				}
				a.functions[in.Name] = addr
				fn = in.Name
			case vmcode.OpLabel:
				key := labelKey(fn, in.Name)
				if _, exists := a.labels[key]; exists {
					return &Error{File: f.Name, Line: lineNo, Err: fmt.Errorf("%w '%s'", ErrDuplicateLabel, in.Name)}
				}
				a.labels[key] = addr
			case vmcode.OpPush, vmcode.OpPop:
				if err := checkIndex(in); err != nil {
					return &Error{File: f.Name, Line: lineNo, Err: err}
				}
				if in.Segment == vmcode.Static && in.Arg >= fileStatics {
					fileStatics = in.Arg + 1
				}
			}
			a.lines = append(a.lines, parsedLine{file: fi, lineNo: lineNo, fn: fn, in: in})
		}

		base := vm.StaticBase + a.statics
		if base+fileStatics > vm.StaticLimit {
			return &Error{File: f.Name, Line: 0, Err: fmt.Errorf("%w: %d words needed", ErrStaticsExhausted, a.statics+fileStatics)}
		}
		a.staticBases = append(a.staticBases, base)
		a.statics += fileStatics
	}
	return nil
}

func checkIndex(in vmcode.Instruction) error {
	limit := 0
	switch in.Segment {
	case vmcode.Temp:
		limit = vm.TempSize
	case vmcode.Pointer:
		limit = 2
	default:
		return nil
	}
	if in.Arg >= limit {
		return fmt.Errorf("%w: %s %d", ErrSegmentRange, in.Segment, in.Arg)
	}
	return nil
}

// pass2 resolves jump and call targets.
func (a *Assembler) pass2(files []File) (*vm.Program, error) {
	code := make([]vm.Instruction, len(a.lines))
	sourceMap := make([]vm.SourcePos, len(a.lines))

	for addr, p := range a.lines {
		name := files[p.file].Name
		sourceMap[addr] = vm.SourcePos{File: name, Line: p.lineNo}
		out := vm.Instruction{Instruction: p.in, StaticBase: a.staticBases[p.file]}

		switch p.in.Op {
		case vmcode.OpGoto, vmcode.OpIfGoto:
			target, ok := a.labels[labelKey(p.fn, p.in.Name)]
			if !ok {
				return nil, &Error{File: name, Line: p.lineNo, Err: fmt.Errorf("%w '%s'", ErrUndefinedLabel, p.in.Name)}
			}
			out.Target = target
		case vmcode.OpCall:
			target, err := a.resolveCall(p.in)
			if err != nil {
				return nil, &Error{File: name, Line: p.lineNo, Err: err}
			}
			out.Target = target
		}
		code[addr] = out
	}

	return vm.NewProgram(code, sourceMap, a.functions, a.statics), nil
}

// resolveCall prefers a function defined by the program over a built-in.
func (a *Assembler) resolveCall(in vmcode.Instruction) (int, error) {
	if target, ok := a.functions[in.Name]; ok {
		return target, nil
	}
	nArgs, ok := vm.NativeArgs(in.Name)
	if !ok {
		return 0, fmt.Errorf("%w '%s'", ErrUndefinedFunction, in.Name)
	}
	if nArgs != in.Arg {
		return 0, fmt.Errorf("%w: %s takes %d, called with %d", ErrArgCount, in.Name, nArgs, in.Arg)
	}
	return vm.NativeTarget, nil
}
