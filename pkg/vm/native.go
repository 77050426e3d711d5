package vm

import (
	"fmt"
	"sort"
)

// NativeFunc implements a built-in OS subroutine. args holds the call's
// arguments in order; the returned word is pushed as the call's result.
type NativeFunc func(v *VM, args []int16) (int16, error)

// Native describes a registered OS subroutine.
type Native struct {
	Args int
	Fn   NativeFunc
}

// nativeRegistry holds every OS subroutine by qualified name.
var nativeRegistry = make(map[string]Native)

// RegisterNative makes fn callable as name with exactly nArgs arguments.
// Programs that define a function with the same name take precedence.
func RegisterNative(name string, nArgs int, fn NativeFunc) {
	nativeRegistry[name] = Native{Args: nArgs, Fn: fn}
}

func lookupNative(name string) (Native, bool) {
	n, ok := nativeRegistry[name]
	return n, ok
}

// NativeArgs returns the argument count of a registered OS subroutine.
func NativeArgs(name string) (int, bool) {
	n, ok := nativeRegistry[name]
	return n.Args, ok
}

// Natives lists the registered OS subroutines in sorted order.
func Natives() []string {
	names := make([]string, 0, len(nativeRegistry))
	for name := range nativeRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func init() {
	RegisterNative("Memory.alloc", 1, memoryAlloc)
	RegisterNative("Memory.deAlloc", 1, memoryDeAlloc)
	RegisterNative("Memory.peek", 1, memoryPeek)
	RegisterNative("Memory.poke", 2, memoryPoke)
	RegisterNative("Array.new", 1, memoryAlloc)
	RegisterNative("Array.dispose", 1, memoryDeAlloc)

	RegisterNative("Keyboard.keyPressed", 0, func(v *VM, _ []int16) (int16, error) {
		return v.RAM[KeyboardAddr], nil
	})

	RegisterNative("Sys.halt", 0, func(v *VM, _ []int16) (int16, error) {
		v.Halted = true
		return 0, nil
	})
	RegisterNative("Sys.error", 1, func(v *VM, args []int16) (int16, error) {
		return 0, fmt.Errorf("%w %d", ErrSysError, args[0])
	})
	RegisterNative("Sys.wait", 1, func(v *VM, args []int16) (int16, error) {
		if args[0] < 0 {
			return 0, fmt.Errorf("%w: Sys.wait(%d)", ErrIllegalArgument, args[0])
		}
		if v.Wait != nil {
			v.Wait(int(args[0]))
		}
		return 0, nil
	})
}

func memoryAlloc(v *VM, args []int16) (int16, error) {
	addr, err := v.heap.alloc(int(args[0]))
	if err != nil {
		return 0, err
	}
	for i := 0; i < int(args[0]); i++ {
		v.RAM[addr+i] = 0
	}
	return int16(addr), nil
}

func memoryDeAlloc(v *VM, args []int16) (int16, error) {
	return 0, v.heap.dealloc(int(args[0]))
}

func memoryPeek(v *VM, args []int16) (int16, error) {
	return v.Read(int(args[0]))
}

func memoryPoke(v *VM, args []int16) (int16, error) {
	return 0, v.Write(int(args[0]), args[1])
}
