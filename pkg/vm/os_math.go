package vm

import "fmt"

func init() {
	RegisterNative("Math.multiply", 2, func(_ *VM, a []int16) (int16, error) {
		return a[0] * a[1], nil
	})
	RegisterNative("Math.divide", 2, func(_ *VM, a []int16) (int16, error) {
		if a[1] == 0 {
			return 0, ErrDivideByZero
		}
		return a[0] / a[1], nil
	})
	RegisterNative("Math.min", 2, func(_ *VM, a []int16) (int16, error) {
		return min(a[0], a[1]), nil
	})
	RegisterNative("Math.max", 2, func(_ *VM, a []int16) (int16, error) {
		return max(a[0], a[1]), nil
	})
	RegisterNative("Math.abs", 1, func(_ *VM, a []int16) (int16, error) {
		if a[0] < 0 {
			return -a[0], nil
		}
		return a[0], nil
	})
	RegisterNative("Math.sqrt", 1, mathSqrt)
}

// mathSqrt is the integer square root by binary search over the result bits.
func mathSqrt(_ *VM, a []int16) (int16, error) {
	x := int32(a[0])
	if x < 0 {
		return 0, fmt.Errorf("%w: Math.sqrt(%d)", ErrIllegalArgument, x)
	}
	var y int32
	for bit := int32(7); bit >= 0; bit-- {
		t := y + 1<<bit
		if t*t <= x {
			y = t
		}
	}
	return int16(y), nil
}
