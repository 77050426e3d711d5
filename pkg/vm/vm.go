// Package vm executes linked Jack VM programs with a built-in OS.
package vm

import (
	"fmt"
	"io"
	"os"

	"gojack/pkg/vmcode"
)

// RAM layout.
const (
	RegSP   = 0
	RegLCL  = 1
	RegARG  = 2
	RegTHIS = 3
	RegTHAT = 4

	TempBase     = 5
	TempSize     = 8
	StaticBase   = 16
	StaticLimit  = 256
	StackBase    = 256
	HeapBase     = 2048
	HeapLimit    = 16384
	ScreenBase   = 16384
	KeyboardAddr = 24576
	MemorySize   = 32768

	ScreenWidth  = 512
	ScreenHeight = 256
	ScreenWords  = ScreenWidth / 16

	// MaxProgramSize bounds the code so return addresses fit in a word.
	MaxProgramSize = 32767
)

// returnToHost is the return address of the entry function's frame.
const returnToHost = -1

type VM struct {
	RAM [MemorySize]int16
	PC  int

	Halted bool
	Steps  int

	// Output receives bytes printed through the Output class. If nil,
	// os.Stdout is used.
	Output io.Writer

	// Wait, if set, is called by Sys.wait with the requested milliseconds.
	Wait func(ms int)

	prog  *Program
	heap  *heap
	text  *textGrid
	color bool // true draws black
}

// New prepares prog for execution starting at Sys.init, or Main.main when
// the program has no Sys.init.
func New(prog *Program) (*VM, error) {
	entry := "Sys.init"
	if !prog.HasFunction(entry) {
		entry = "Main.main"
	}
	if !prog.HasFunction(entry) {
		return nil, ErrNoEntryPoint
	}
	v := &VM{
		prog:  prog,
		heap:  newHeap(HeapBase, HeapLimit),
		text:  newTextGrid(),
		color: true,
	}
	v.bootstrap(prog.Functions[entry])
	return v, nil
}

// bootstrap sets up a frame as if the host had called the entry function.
func (v *VM) bootstrap(entry int) {
	v.RAM[RegSP] = StackBase
	v.RAM[RegLCL] = StackBase
	v.RAM[RegARG] = StackBase
	v.mustPush(returnToHost)
	for r := RegLCL; r <= RegTHAT; r++ {
		v.mustPush(v.RAM[r])
	}
	v.RAM[RegARG] = v.RAM[RegSP] - 5
	v.RAM[RegLCL] = v.RAM[RegSP]
	v.PC = entry
}

func (v *VM) Program() *Program { return v.prog }

func (v *VM) outputSink() io.Writer {
	if v.Output != nil {
		return v.Output
	}
	return os.Stdout
}

func (v *VM) fail(err error) error {
	re := &RuntimeError{PC: v.PC, Function: v.prog.FunctionAt(v.PC), Err: err}
	if pos, ok := v.prog.PosAt(v.PC); ok {
		re.Pos = pos
	}
	return re
}

// Read returns the word at addr.
func (v *VM) Read(addr int) (int16, error) {
	if addr < 0 || addr >= MemorySize {
		return 0, fmt.Errorf("%w: %d", ErrMemoryRange, addr)
	}
	return v.RAM[addr], nil
}

// Write stores val at addr.
func (v *VM) Write(addr int, val int16) error {
	if addr < 0 || addr >= MemorySize {
		return fmt.Errorf("%w: %d", ErrMemoryRange, addr)
	}
	v.RAM[addr] = val
	return nil
}

func (v *VM) push(val int16) error {
	sp := int(v.RAM[RegSP])
	if sp >= HeapBase {
		return ErrStackOverflow
	}
	v.RAM[sp] = val
	v.RAM[RegSP]++
	return nil
}

func (v *VM) mustPush(val int16) {
	sp := v.RAM[RegSP]
	v.RAM[sp] = val
	v.RAM[RegSP]++
}

func (v *VM) pop() (int16, error) {
	sp := int(v.RAM[RegSP])
	if sp <= StackBase {
		return 0, ErrStackUnderflow
	}
	v.RAM[RegSP]--
	return v.RAM[sp-1], nil
}

// address resolves a segment reference to a RAM address.
func (v *VM) address(in *Instruction) (int, error) {
	i := in.Arg
	switch in.Segment {
	case vmcode.Argument:
		return int(v.RAM[RegARG]) + i, nil
	case vmcode.Local:
		return int(v.RAM[RegLCL]) + i, nil
	case vmcode.This:
		return int(v.RAM[RegTHIS]) + i, nil
	case vmcode.That:
		return int(v.RAM[RegTHAT]) + i, nil
	case vmcode.Pointer:
		return RegTHIS + i, nil
	case vmcode.Temp:
		return TempBase + i, nil
	case vmcode.Static:
		return in.StaticBase + i, nil
	}
	return 0, fmt.Errorf("segment %s has no address", in.Segment)
}

// Step executes one instruction.
func (v *VM) Step() error {
	if v.Halted {
		return nil
	}
	if v.PC < 0 || v.PC >= len(v.prog.Code) {
		return v.fail(ErrBadPC)
	}
	if err := v.exec(&v.prog.Code[v.PC]); err != nil {
		return v.fail(err)
	}
	v.Steps++
	return nil
}

func (v *VM) exec(in *Instruction) error {
	switch in.Op {
	case vmcode.OpPush:
		if in.Segment == vmcode.Constant {
			if err := v.push(int16(in.Arg)); err != nil {
				return err
			}
			v.PC++
			return nil
		}
		addr, err := v.address(in)
		if err != nil {
			return err
		}
		val, err := v.Read(addr)
		if err != nil {
			return err
		}
		if err := v.push(val); err != nil {
			return err
		}
		v.PC++

	case vmcode.OpPop:
		addr, err := v.address(in)
		if err != nil {
			return err
		}
		val, err := v.pop()
		if err != nil {
			return err
		}
		if err := v.Write(addr, val); err != nil {
			return err
		}
		v.PC++

	case vmcode.OpArithmetic:
		if err := v.arithmetic(in.Command); err != nil {
			return err
		}
		v.PC++

	case vmcode.OpLabel:
		v.PC++

	case vmcode.OpGoto:
		v.PC = in.Target

	case vmcode.OpIfGoto:
		cond, err := v.pop()
		if err != nil {
			return err
		}
		if cond != 0 {
			v.PC = in.Target
		} else {
			v.PC++
		}

	case vmcode.OpFunction:
		for i := 0; i < in.Arg; i++ {
			if err := v.push(0); err != nil {
				return err
			}
		}
		v.PC++

	case vmcode.OpCall:
		if in.Target == NativeTarget {
			return v.callNative(in.Name, in.Arg)
		}
		return v.call(in.Target, in.Arg)

	case vmcode.OpReturn:
		return v.ret()

	default:
		return fmt.Errorf("unknown op %s", in.Op)
	}
	return nil
}

func boolWord(b bool) int16 {
	if b {
		return -1
	}
	return 0
}

func (v *VM) arithmetic(cmd vmcode.Command) error {
	if cmd == vmcode.Neg || cmd == vmcode.Not {
		x, err := v.pop()
		if err != nil {
			return err
		}
		if cmd == vmcode.Neg {
			return v.push(-x)
		}
		return v.push(^x)
	}

	y, err := v.pop()
	if err != nil {
		return err
	}
	x, err := v.pop()
	if err != nil {
		return err
	}
	var r int16
	switch cmd {
	case vmcode.Add:
		r = x + y
	case vmcode.Sub:
		r = x - y
	case vmcode.And:
		r = x & y
	case vmcode.Or:
		r = x | y
	case vmcode.Eq:
		r = boolWord(x == y)
	case vmcode.Gt:
		r = boolWord(x > y)
	case vmcode.Lt:
		r = boolWord(x < y)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
	return v.push(r)
}

// call pushes a frame for a program function at target.
func (v *VM) call(target, nArgs int) error {
	if err := v.push(int16(v.PC + 1)); err != nil {
		return err
	}
	for r := RegLCL; r <= RegTHAT; r++ {
		if err := v.push(v.RAM[r]); err != nil {
			return err
		}
	}
	v.RAM[RegARG] = v.RAM[RegSP] - int16(nArgs) - 5
	v.RAM[RegLCL] = v.RAM[RegSP]
	v.PC = target
	return nil
}

func (v *VM) ret() error {
	frame := int(v.RAM[RegLCL])
	if frame-5 < StackBase {
		return ErrStackUnderflow
	}
	retAddr := int(v.RAM[frame-5])
	result, err := v.pop()
	if err != nil {
		return err
	}
	arg := int(v.RAM[RegARG])
	v.RAM[arg] = result
	v.RAM[RegSP] = int16(arg + 1)
	v.RAM[RegTHAT] = v.RAM[frame-1]
	v.RAM[RegTHIS] = v.RAM[frame-2]
	v.RAM[RegARG] = v.RAM[frame-3]
	v.RAM[RegLCL] = v.RAM[frame-4]

	if retAddr == returnToHost {
		v.Halted = true
		return nil
	}
	v.PC = retAddr
	return nil
}

// callNative runs a built-in OS function on the top nArgs stack words.
func (v *VM) callNative(name string, nArgs int) error {
	n, ok := lookupNative(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownFunction, name)
	}
	if n.Args != nArgs {
		return fmt.Errorf("%w: %s takes %d, called with %d", ErrArgCount, name, n.Args, nArgs)
	}
	sp := int(v.RAM[RegSP])
	if sp-nArgs < StackBase {
		return ErrStackUnderflow
	}
	args := make([]int16, nArgs)
	copy(args, v.RAM[sp-nArgs:sp])
	v.RAM[RegSP] = int16(sp - nArgs)

	result, err := n.Fn(v, args)
	if err != nil {
		return err
	}
	if err := v.push(result); err != nil {
		return err
	}
	if !v.Halted {
		v.PC++
	}
	return nil
}

// Run executes until the program halts. maxSteps of 0 means no limit.
func (v *VM) Run(maxSteps int) error {
	for !v.Halted {
		if maxSteps > 0 && v.Steps >= maxSteps {
			return ErrStepLimit
		}
		if err := v.Step(); err != nil {
			return err
		}
	}
	return nil
}

// RunFor executes at most n instructions and reports whether the program
// is still running. Used by frame-driven front ends.
func (v *VM) RunFor(n int) (bool, error) {
	for i := 0; i < n && !v.Halted; i++ {
		if err := v.Step(); err != nil {
			return false, err
		}
	}
	return !v.Halted, nil
}

// Result returns the value the entry function returned once halted.
func (v *VM) Result() int16 {
	return v.RAM[StackBase]
}

// SetKey publishes the currently pressed key; 0 means none.
func (v *VM) SetKey(code int16) {
	v.RAM[KeyboardAddr] = code
}
