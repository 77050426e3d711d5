package vm

import (
	"fmt"

	"gojack/pkg/grid"
)

func init() {
	RegisterNative("Screen.clearScreen", 0, func(v *VM, _ []int16) (int16, error) {
		v.ClearScreen()
		return 0, nil
	})
	RegisterNative("Screen.setColor", 1, func(v *VM, a []int16) (int16, error) {
		v.color = a[0] != 0
		return 0, nil
	})
	RegisterNative("Screen.drawPixel", 2, func(v *VM, a []int16) (int16, error) {
		x, y := int(a[0]), int(a[1])
		if !onScreen(x, y) {
			return 0, fmt.Errorf("%w: drawPixel(%d, %d)", ErrIllegalArgument, x, y)
		}
		v.setPixel(x, y)
		return 0, nil
	})
	RegisterNative("Screen.drawLine", 4, func(v *VM, a []int16) (int16, error) {
		x1, y1, x2, y2 := int(a[0]), int(a[1]), int(a[2]), int(a[3])
		if !onScreen(x1, y1) || !onScreen(x2, y2) {
			return 0, fmt.Errorf("%w: drawLine(%d, %d, %d, %d)", ErrIllegalArgument, x1, y1, x2, y2)
		}
		v.drawLine(x1, y1, x2, y2)
		return 0, nil
	})
	RegisterNative("Screen.drawRectangle", 4, func(v *VM, a []int16) (int16, error) {
		x1, y1, x2, y2 := int(a[0]), int(a[1]), int(a[2]), int(a[3])
		if !onScreen(x1, y1) || !onScreen(x2, y2) || x1 > x2 || y1 > y2 {
			return 0, fmt.Errorf("%w: drawRectangle(%d, %d, %d, %d)", ErrIllegalArgument, x1, y1, x2, y2)
		}
		for y := y1; y <= y2; y++ {
			for x := x1; x <= x2; x++ {
				v.setPixel(x, y)
			}
		}
		return 0, nil
	})
	RegisterNative("Screen.drawCircle", 3, func(v *VM, a []int16) (int16, error) {
		cx, cy, r := int(a[0]), int(a[1]), int(a[2])
		if r < 0 || r > 181 || !onScreen(cx, cy) {
			return 0, fmt.Errorf("%w: drawCircle(%d, %d, %d)", ErrIllegalArgument, cx, cy, r)
		}
		for dy := -r; dy <= r; dy++ {
			for dx := -r; dx <= r; dx++ {
				if dx*dx+dy*dy <= r*r && onScreen(cx+dx, cy+dy) {
					v.setPixel(cx+dx, cy+dy)
				}
			}
		}
		return 0, nil
	})
}

func onScreen(x, y int) bool {
	return grid.InBounds(x, y, ScreenWidth, ScreenHeight)
}

// pixelWord returns the RAM address holding pixel (x, y) and its bit mask.
func pixelWord(x, y int) (int, int16) {
	return ScreenBase + grid.Index(x/16, y, ScreenWords), int16(1) << (x % 16)
}

func (v *VM) setPixel(x, y int) {
	addr, mask := pixelWord(x, y)
	if v.color {
		v.RAM[addr] |= mask
	} else {
		v.RAM[addr] &^= mask
	}
}

// Pixel reports whether (x, y) is black. Off-screen pixels are white.
func (v *VM) Pixel(x, y int) bool {
	if !onScreen(x, y) {
		return false
	}
	addr, mask := pixelWord(x, y)
	return v.RAM[addr]&mask != 0
}

// ClearScreen whitens the screen memory and empties the text grid.
func (v *VM) ClearScreen() {
	for i := ScreenBase; i < KeyboardAddr; i++ {
		v.RAM[i] = 0
	}
	v.text.clear()
}

func (v *VM) drawLine(x1, y1, x2, y2 int) {
	dx, sx := abs(x2-x1), 1
	if x1 > x2 {
		sx = -1
	}
	dy, sy := -abs(y2-y1), 1
	if y1 > y2 {
		sy = -1
	}
	e := dx + dy
	for {
		v.setPixel(x1, y1)
		if x1 == x2 && y1 == y2 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x1 += sx
		}
		if e2 <= dx {
			e += dx
			y1 += sy
		}
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
