package vm

import (
	"fmt"
	"sort"

	"gojack/pkg/vmcode"
)

// NativeTarget marks a call served by the built-in OS instead of program code.
const NativeTarget = -1

// Instruction is a decoded, linked VM instruction.
type Instruction struct {
	vmcode.Instruction

	// Target is the resolved address of a goto, if-goto or call; NativeTarget
	// for calls into the built-in OS.
	Target int
	// StaticBase is the RAM address of static 0 for the file the
	// instruction came from.
	StaticBase int
}

// SourcePos locates an instruction in its input file.
type SourcePos struct {
	File string
	Line int
}

func (s SourcePos) String() string {
	return fmt.Sprintf("%s:%d", s.File, s.Line)
}

// Program is a linked set of VM files ready to execute.
type Program struct {
	Code      []Instruction
	SourceMap []SourcePos // parallel to Code
	Functions map[string]int

	// StaticsUsed is the number of static words allocated across all files.
	StaticsUsed int

	starts []funcStart
}

type funcStart struct {
	addr int
	name string
}

// NewProgram builds the function index for code. Functions maps each
// function name to the address of its function instruction.
func NewProgram(code []Instruction, sourceMap []SourcePos, functions map[string]int, statics int) *Program {
	p := &Program{
		Code:        code,
		SourceMap:   sourceMap,
		Functions:   functions,
		StaticsUsed: statics,
	}
	for name, addr := range functions {
		p.starts = append(p.starts, funcStart{addr: addr, name: name})
	}
	sort.Slice(p.starts, func(i, j int) bool { return p.starts[i].addr < p.starts[j].addr })
	return p
}

// HasFunction reports whether the program itself defines name.
func (p *Program) HasFunction(name string) bool {
	_, ok := p.Functions[name]
	return ok
}

// FunctionAt returns the name of the function containing address pc.
func (p *Program) FunctionAt(pc int) string {
	i := sort.Search(len(p.starts), func(i int) bool { return p.starts[i].addr > pc })
	if i == 0 {
		return ""
	}
	return p.starts[i-1].name
}

// PosAt returns the source position of address pc, if known.
func (p *Program) PosAt(pc int) (SourcePos, bool) {
	if pc < 0 || pc >= len(p.SourceMap) {
		return SourcePos{}, false
	}
	return p.SourceMap[pc], true
}
