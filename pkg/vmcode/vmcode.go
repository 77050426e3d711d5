// Package vmcode formats and parses the textual instruction lines of the
// Jack stack machine.
package vmcode

import (
	"fmt"
	"strconv"
	"strings"
)

// Segment is a named virtual memory region addressed by a non-negative index.
type Segment string

const (
	Constant Segment = "constant"
	Argument Segment = "argument"
	Local    Segment = "local"
	Static   Segment = "static"
	This     Segment = "this"
	That     Segment = "that"
	Pointer  Segment = "pointer"
	Temp     Segment = "temp"
)

// Command is one of the fixed arithmetic/logical operations.
type Command string

const (
	Add Command = "add"
	Sub Command = "sub"
	Neg Command = "neg"
	Eq  Command = "eq"
	Gt  Command = "gt"
	Lt  Command = "lt"
	And Command = "and"
	Or  Command = "or"
	Not Command = "not"
)

var segments = map[string]Segment{
	"constant": Constant,
	"argument": Argument,
	"local":    Local,
	"static":   Static,
	"this":     This,
	"that":     That,
	"pointer":  Pointer,
	"temp":     Temp,
}

var commands = map[string]Command{
	"add": Add,
	"sub": Sub,
	"neg": Neg,
	"eq":  Eq,
	"gt":  Gt,
	"lt":  Lt,
	"and": And,
	"or":  Or,
	"not": Not,
}

func Push(seg Segment, index int) string {
	return fmt.Sprintf("push %s %d", seg, index)
}

func Pop(seg Segment, index int) string {
	return fmt.Sprintf("pop %s %d", seg, index)
}

func Arithmetic(cmd Command) string {
	return string(cmd)
}

func Label(label string) string {
	return "label " + label
}

func Goto(label string) string {
	return "goto " + label
}

func IfGoto(label string) string {
	return "if-goto " + label
}

func Call(name string, nArgs int) string {
	return fmt.Sprintf("call %s %d", name, nArgs)
}

func Function(name string, nLocals int) string {
	return fmt.Sprintf("function %s %d", name, nLocals)
}

func Return() string {
	return "return"
}

// Writer collects instruction lines in emission order.
type Writer struct {
	lines []string
}

func NewWriter() *Writer {
	return &Writer{}
}

func (w *Writer) WritePush(seg Segment, index int) { w.emit(Push(seg, index)) }
func (w *Writer) WritePop(seg Segment, index int) { w.emit(Pop(seg, index)) }
func (w *Writer) WriteArithmetic(cmd Command) { w.emit(Arithmetic(cmd)) }
func (w *Writer) WriteLabel(label string) { w.emit(Label(label)) }
func (w *Writer) WriteGoto(label string) { w.emit(Goto(label)) }
func (w *Writer) WriteIf(label string) { w.emit(IfGoto(label)) }
func (w *Writer) WriteCall(name string, nArgs int) { w.emit(Call(name, nArgs)) }
func (w *Writer) WriteFunction(name string, nLocals int) { w.emit(Function(name, nLocals)) }
func (w *Writer) WriteReturn() { w.emit(Return()) }

func (w *Writer) emit(line string) {
	w.lines = append(w.lines, line)
}

// Lines returns a copy of everything written so far.
func (w *Writer) Lines() []string {
	out := make([]string, len(w.lines))
	copy(out, w.lines)
	return out
}

func (w *Writer) Len() int { return len(w.lines) }

// String joins the lines with a trailing newline, ready to be written as a .vm file.
func (w *Writer) String() string {
	if len(w.lines) == 0 {
		return ""
	}
	return strings.Join(w.lines, "\n") + "\n"
}

// Op identifies the shape of a parsed instruction.
type Op int

const (
	OpPush Op = iota
	OpPop
	OpArithmetic
	OpLabel
	OpGoto
	OpIfGoto
	OpFunction
	OpCall
	OpReturn
)

var opNames = [...]string{
	OpPush:       "push",
	OpPop:        "pop",
	OpArithmetic: "arithmetic",
	OpLabel:      "label",
	OpGoto:       "goto",
	OpIfGoto:     "if-goto",
	OpFunction:   "function",
	OpCall:       "call",
	OpReturn:     "return",
}

func (o Op) String() string {
	if int(o) < len(opNames) {
		return opNames[o]
	}
	return fmt.Sprintf("Op(%d)", int(o))
}

// Instruction is the decoded form of one instruction line.
type Instruction struct {
	Op      Op
	Segment Segment // push, pop
	Command Command // arithmetic
	Name    string  // label, goto, if-goto, function, call
	Arg     int     // push/pop index, function local count, call argument count
}

// String re-encodes the instruction in its textual form.
func (in Instruction) String() string {
	switch in.Op {
	case OpPush:
		return Push(in.Segment, in.Arg)
	case OpPop:
		return Pop(in.Segment, in.Arg)
	case OpArithmetic:
		return Arithmetic(in.Command)
	case OpLabel:
		return Label(in.Name)
	case OpGoto:
		return Goto(in.Name)
	case OpIfGoto:
		return IfGoto(in.Name)
	case OpFunction:
		return Function(in.Name, in.Arg)
	case OpCall:
		return Call(in.Name, in.Arg)
	case OpReturn:
		return Return()
	}
	return fmt.Sprintf("<invalid op %d>", int(in.Op))
}

// Parse decodes a single instruction line. Trailing "//" comments are
// stripped; ok is false for blank and comment-only lines.
func Parse(line string) (in Instruction, ok bool, err error) {
	if idx := strings.Index(line, "//"); idx >= 0 {
		line = line[:idx]
	}
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Instruction{}, false, nil
	}

	word := fields[0]
	args := fields[1:]

	if cmd, isCmd := commands[word]; isCmd {
		if len(args) != 0 {
			return Instruction{}, false, fmt.Errorf("%s expects 0 operands", word)
		}
		return Instruction{Op: OpArithmetic, Command: cmd}, true, nil
	}

	switch word {
	case "push", "pop":
		if len(args) != 2 {
			return Instruction{}, false, fmt.Errorf("%s expects 2 operands", word)
		}
		seg, known := segments[args[0]]
		if !known {
			return Instruction{}, false, fmt.Errorf("unknown segment %q", args[0])
		}
		n, err := parseIndex(args[1])
		if err != nil {
			return Instruction{}, false, err
		}
		op := OpPush
		if word == "pop" {
			op = OpPop
			if seg == Constant {
				return Instruction{}, false, fmt.Errorf("cannot pop to constant segment")
			}
		}
		return Instruction{Op: op, Segment: seg, Arg: n}, true, nil

	case "label", "goto", "if-goto":
		if len(args) != 1 {
			return Instruction{}, false, fmt.Errorf("%s expects 1 operand", word)
		}
		op := map[string]Op{"label": OpLabel, "goto": OpGoto, "if-goto": OpIfGoto}[word]
		return Instruction{Op: op, Name: args[0]}, true, nil

	case "function", "call":
		if len(args) != 2 {
			return Instruction{}, false, fmt.Errorf("%s expects 2 operands", word)
		}
		n, err := parseIndex(args[1])
		if err != nil {
			return Instruction{}, false, err
		}
		op := OpFunction
		if word == "call" {
			op = OpCall
		}
		return Instruction{Op: op, Name: args[0], Arg: n}, true, nil

	case "return":
		if len(args) != 0 {
			return Instruction{}, false, fmt.Errorf("return expects 0 operands")
		}
		return Instruction{Op: OpReturn}, true, nil
	}

	return Instruction{}, false, fmt.Errorf("unknown instruction %q", word)
}

func parseIndex(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid index %q", s)
	}
	if n > 0x7FFF {
		return 0, fmt.Errorf("index %q out of range", s)
	}
	return n, nil
}
