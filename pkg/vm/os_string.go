package vm

import (
	"fmt"
	"strconv"
)

// Jack character codes outside ASCII.
const (
	CharNewLine     = 128
	CharBackSpace   = 129
	CharDoubleQuote = 34
)

// String objects are heap blocks laid out as [maxLength, length, chars...].
const (
	strMaxLen = 0
	strLen    = 1
	strChars  = 2
)

func init() {
	RegisterNative("String.new", 1, stringNew)
	RegisterNative("String.dispose", 1, memoryDeAlloc)
	RegisterNative("String.length", 1, func(v *VM, a []int16) (int16, error) {
		return v.Read(int(a[0]) + strLen)
	})
	RegisterNative("String.charAt", 2, func(v *VM, a []int16) (int16, error) {
		addr, err := v.charAddr(a[0], a[1])
		if err != nil {
			return 0, err
		}
		return v.RAM[addr], nil
	})
	RegisterNative("String.setCharAt", 3, func(v *VM, a []int16) (int16, error) {
		addr, err := v.charAddr(a[0], a[1])
		if err != nil {
			return 0, err
		}
		v.RAM[addr] = a[2]
		return 0, nil
	})
	RegisterNative("String.appendChar", 2, stringAppendChar)
	RegisterNative("String.eraseLastChar", 1, func(v *VM, a []int16) (int16, error) {
		base := int(a[0])
		n, err := v.Read(base + strLen)
		if err != nil {
			return 0, err
		}
		if n == 0 {
			return 0, fmt.Errorf("%w: eraseLastChar on empty string", ErrIllegalArgument)
		}
		v.RAM[base+strLen] = n - 1
		return 0, nil
	})
	RegisterNative("String.intValue", 1, func(v *VM, a []int16) (int16, error) {
		s, err := v.ReadString(int(a[0]))
		if err != nil {
			return 0, err
		}
		return parseIntPrefix(s), nil
	})
	RegisterNative("String.setInt", 2, func(v *VM, a []int16) (int16, error) {
		return 0, v.setString(int(a[0]), strconv.Itoa(int(a[1])))
	})
	RegisterNative("String.newLine", 0, constChar(CharNewLine))
	RegisterNative("String.backSpace", 0, constChar(CharBackSpace))
	RegisterNative("String.doubleQuote", 0, constChar(CharDoubleQuote))
}

func constChar(c int16) NativeFunc {
	return func(*VM, []int16) (int16, error) { return c, nil }
}

func stringNew(v *VM, a []int16) (int16, error) {
	maxLen := int(a[0])
	if maxLen < 0 {
		return 0, fmt.Errorf("%w: String.new(%d)", ErrIllegalArgument, maxLen)
	}
	addr, err := v.heap.alloc(maxLen + 2)
	if err != nil {
		return 0, err
	}
	v.RAM[addr+strMaxLen] = int16(maxLen)
	v.RAM[addr+strLen] = 0
	return int16(addr), nil
}

func stringAppendChar(v *VM, a []int16) (int16, error) {
	base := int(a[0])
	if _, ok := v.heap.sizeOf(base); !ok {
		return 0, fmt.Errorf("%w: %d is not a string", ErrIllegalArgument, base)
	}
	maxLen, n := v.RAM[base+strMaxLen], v.RAM[base+strLen]
	if n >= maxLen {
		return 0, fmt.Errorf("%w: string is full", ErrIllegalArgument)
	}
	v.RAM[base+strChars+int(n)] = a[1]
	v.RAM[base+strLen] = n + 1
	return a[0], nil
}

func (v *VM) charAddr(str, idx int16) (int, error) {
	base := int(str)
	n, err := v.Read(base + strLen)
	if err != nil {
		return 0, err
	}
	if idx < 0 || idx >= n {
		return 0, fmt.Errorf("%w: index %d of string length %d", ErrIllegalArgument, idx, n)
	}
	return base + strChars + int(idx), nil
}

// ReadString decodes the String object at addr.
func (v *VM) ReadString(addr int) (string, error) {
	n, err := v.Read(addr + strLen)
	if err != nil {
		return "", err
	}
	if n < 0 || addr+strChars+int(n) > MemorySize {
		return "", fmt.Errorf("%w: string at %d", ErrMemoryRange, addr)
	}
	runes := make([]rune, n)
	for i := range runes {
		runes[i] = rune(v.RAM[addr+strChars+i])
	}
	return string(runes), nil
}

func (v *VM) setString(addr int, s string) error {
	maxLen, err := v.Read(addr + strMaxLen)
	if err != nil {
		return err
	}
	if len(s) > int(maxLen) {
		return fmt.Errorf("%w: %q does not fit in %d characters", ErrIllegalArgument, s, maxLen)
	}
	for i, c := range []byte(s) {
		v.RAM[addr+strChars+i] = int16(c)
	}
	v.RAM[addr+strLen] = int16(len(s))
	return nil
}

// parseIntPrefix reads an optional '-' and leading digits, stopping at the
// first other character.
func parseIntPrefix(s string) int16 {
	neg := false
	if len(s) > 0 && s[0] == '-' {
		neg = true
		s = s[1:]
	}
	var n int16
	for _, c := range s {
		if c < '0' || c > '9' {
			break
		}
		n = n*10 + int16(c-'0')
	}
	if neg {
		return -n
	}
	return n
}
