package vm

import (
	"fmt"
	"strconv"

	"gojack/pkg/grid"
)

// Text screen dimensions used by the Output class.
const (
	TextRows = 23
	TextCols = 64
)

// textGrid mirrors everything printed through Output as a character grid.
type textGrid struct {
	cells  [TextRows * TextCols]rune
	cursor int
}

func newTextGrid() *textGrid {
	return &textGrid{}
}

func (g *textGrid) put(c rune) {
	g.cells[g.cursor] = c
	g.advance()
}

func (g *textGrid) advance() {
	g.cursor++
	if g.cursor >= len(g.cells) {
		g.cursor = 0
	}
}

func (g *textGrid) newline() {
	_, row := grid.GetGridCoords(g.cursor, TextCols)
	row++
	if row >= TextRows {
		row = 0
	}
	g.cursor = grid.Index(0, row, TextCols)
}

func (g *textGrid) backspace() {
	if g.cursor > 0 {
		g.cursor--
	}
	g.cells[g.cursor] = 0
}

func (g *textGrid) move(row, col int) error {
	if !grid.InBounds(col, row, TextCols, TextRows) {
		return fmt.Errorf("%w: moveCursor(%d, %d)", ErrIllegalArgument, row, col)
	}
	g.cursor = grid.Index(col, row, TextCols)
	return nil
}

func (g *textGrid) clear() {
	g.cells = [TextRows * TextCols]rune{}
	g.cursor = 0
}

// TextCells returns a copy of the character grid in row-major order;
// unused cells are 0.
func (v *VM) TextCells() []rune {
	out := make([]rune, len(v.text.cells))
	copy(out, v.text.cells[:])
	return out
}

// Cursor returns the Output cursor as (row, col).
func (v *VM) Cursor() (int, int) {
	col, row := grid.GetGridCoords(v.text.cursor, TextCols)
	return row, col
}

func init() {
	RegisterNative("Output.printChar", 1, func(v *VM, a []int16) (int16, error) {
		v.printChar(a[0])
		return 0, nil
	})
	RegisterNative("Output.printString", 1, func(v *VM, a []int16) (int16, error) {
		s, err := v.ReadString(int(a[0]))
		if err != nil {
			return 0, err
		}
		for _, c := range s {
			v.printChar(int16(c))
		}
		return 0, nil
	})
	RegisterNative("Output.printInt", 1, func(v *VM, a []int16) (int16, error) {
		for _, c := range strconv.Itoa(int(a[0])) {
			v.printChar(int16(c))
		}
		return 0, nil
	})
	RegisterNative("Output.println", 0, func(v *VM, _ []int16) (int16, error) {
		v.printChar(CharNewLine)
		return 0, nil
	})
	RegisterNative("Output.backSpace", 0, func(v *VM, _ []int16) (int16, error) {
		v.printChar(CharBackSpace)
		return 0, nil
	})
	RegisterNative("Output.moveCursor", 2, func(v *VM, a []int16) (int16, error) {
		return 0, v.text.move(int(a[0]), int(a[1]))
	})
}

func (v *VM) printChar(c int16) {
	w := v.outputSink()
	switch c {
	case CharNewLine:
		v.text.newline()
		fmt.Fprint(w, "\n")
	case CharBackSpace:
		v.text.backspace()
		fmt.Fprint(w, "\b")
	default:
		v.text.put(rune(c))
		fmt.Fprintf(w, "%c", rune(c))
	}
}
