package main

import (
	"bytes"
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gojack/pkg/asm"
	"gojack/pkg/build"
	"gojack/pkg/compiler"
	"gojack/pkg/vm"
)

// runJack compiles the classes (name → source), links them and runs the
// program to completion, returning the machine and everything printed.
func runJack(t *testing.T, classes map[string]string) (*vm.VM, string) {
	t.Helper()

	names := make([]string, 0, len(classes))
	for name := range classes {
		names = append(names, name)
	}
	sort.Strings(names)

	sources := make([]compiler.Source, 0, len(names))
	for _, name := range names {
		sources = append(sources, compiler.Source{Name: name + ".jack", FileID: name, Text: classes[name]})
	}
	results, err := compiler.CompileAll(context.Background(), sources, 4)
	require.NoError(t, err)
	require.NoError(t, build.Failures(results))

	files := make([]asm.File, 0, len(results))
	for _, r := range results {
		files = append(files, asm.File{Name: r.Result.Class + ".vm", Source: r.Result.VM()})
	}
	prog, err := asm.Assemble(files...)
	require.NoError(t, err)

	m, err := vm.New(prog)
	require.NoError(t, err)
	var out bytes.Buffer
	m.Output = &out
	require.NoError(t, m.Run(1_000_000))
	require.True(t, m.Halted)
	return m, out.String()
}

func TestArithmeticProgram(t *testing.T) {
	_, out := runJack(t, map[string]string{"Main": `
class Main {
    function void main() {
        do Output.printInt(2 + 3 * 4);
        do Output.printChar(32);
        do Output.printInt(-7 / 2);
        do Output.printChar(32);
        do Output.printInt((100 - 1) & 15);
        do Output.printChar(32);
        do Output.printInt(Math.max(3, Math.abs(-9)));
        return;
    }
}
`})
	// operators apply left to right without precedence
	assert.Equal(t, "20 -3 3 9", out)
}

func TestStringProgram(t *testing.T) {
	_, out := runJack(t, map[string]string{"Main": `
class Main {
    function void main() {
        var String s;
        let s = "Hello";
        do Output.printString(s);
        do Output.printChar(32);
        do Output.printInt(s.length());
        do Output.printChar(s.charAt(1));
        do Output.println();
        do Output.printString("<&>");
        do s.dispose();
        return;
    }
}
`})
	assert.Equal(t, "Hello 5e\n<&>", out)
}

func TestArrayProgram(t *testing.T) {
	_, out := runJack(t, map[string]string{"Main": `
class Main {
    function void main() {
        var Array a;
        var int i, sum;
        let a = Array.new(5);
        let i = 0;
        while (i < 5) {
            let a[i] = i * i;
            let i = i + 1;
        }
        let i = 0;
        while (i < 5) {
            let sum = sum + a[i];
            let i = i + 1;
        }
        do Output.printInt(sum);
        do a.dispose();
        return;
    }
}
`})
	assert.Equal(t, "30", out)
}

const pointClass = `
class Point {
    field int x, y;
    static int count;

    constructor Point new(int ax, int ay) {
        let x = ax;
        let y = ay;
        let count = count + 1;
        return this;
    }

    method int getX() { return x; }
    method int getY() { return y; }

    method Point plus(Point other) {
        return Point.new(x + other.getX(), y + other.getY());
    }

    method void print() {
        do Output.printInt(x);
        do Output.printChar(44);
        do Output.printInt(y);
        return;
    }

    function int getCount() { return count; }
}
`

func TestObjectProgram(t *testing.T) {
	_, out := runJack(t, map[string]string{
		"Point": pointClass,
		"Main": `
class Main {
    function void main() {
        var Point p, q;
        let p = Point.new(1, 2);
        let q = p.plus(Point.new(10, 20));
        do q.print();
        do Output.printChar(32);
        do Output.printInt(Point.getCount());
        return;
    }
}
`})
	assert.Equal(t, "11,22 3", out)
}

func TestRecursionProgram(t *testing.T) {
	m, out := runJack(t, map[string]string{"Main": `
class Main {
    function int fact(int n) {
        if (n < 2) {
            return 1;
        }
        return n * Main.fact(n - 1);
    }

    function int main() {
        do Output.printInt(Main.fact(7));
        return Main.fact(5);
    }
}
`})
	assert.Equal(t, "5040", out)
	assert.Equal(t, int16(120), m.Result())
}

func TestControlFlowProgram(t *testing.T) {
	_, out := runJack(t, map[string]string{"Main": `
class Main {
    function void main() {
        var int i, evens, odds, mid;
        var boolean flag;
        let i = 1;
        while (i < 11) {
            if ((i - ((i / 2) * 2)) = 0) {
                let evens = evens + 1;
            } else {
                let odds = odds + 1;
            }
            if (~(i > 5) & (i > 2)) {
                let mid = mid + 1;
            }
            let i = i + 1;
        }
        do Output.printInt(evens);
        do Output.printChar(47);
        do Output.printInt(odds);
        do Output.printChar(32);
        do Output.printInt(mid);

        let flag = true;
        if (flag) {
            do Output.printString(" yes");
        }
        let flag = ~flag;
        if (flag) {
            do Output.printString(" no");
        }
        if (null = false) {
            do Output.printString(" null");
        }
        return;
    }
}
`})
	assert.Equal(t, "5/5 3 yes null", out)
}

func TestStaticsAcrossClasses(t *testing.T) {
	m, out := runJack(t, map[string]string{
		"Counter": `
class Counter {
    static int total;

    function void add(int n) {
        let total = total + n;
        return;
    }

    function int get() { return total; }
}
`,
		"Main": `
class Main {
    static int total;

    function void main() {
        let total = 100;
        do Counter.add(5);
        do Counter.add(6);
        do Output.printInt(total);
        do Output.printChar(32);
        do Output.printInt(Counter.get());
        return;
    }
}
`})
	assert.Equal(t, "100 11", out)
	// classes link in name order, so Counter's static comes first
	assert.Equal(t, int16(11), m.RAM[vm.StaticBase])
	assert.Equal(t, int16(100), m.RAM[vm.StaticBase+1])
}

func TestScreenProgram(t *testing.T) {
	m, _ := runJack(t, map[string]string{"Main": `
class Main {
    function void main() {
        do Screen.drawPixel(0, 0);
        do Screen.drawRectangle(10, 10, 20, 20);
        do Screen.setColor(false);
        do Screen.drawPixel(15, 15);
        do Screen.setColor(true);
        do Screen.drawLine(100, 0, 100, 50);
        return;
    }
}
`})
	assert.True(t, m.Pixel(0, 0))
	assert.True(t, m.Pixel(10, 10))
	assert.True(t, m.Pixel(20, 20))
	assert.False(t, m.Pixel(15, 15))
	assert.False(t, m.Pixel(21, 20))
	assert.True(t, m.Pixel(100, 25))
	assert.Equal(t, int16(1), m.RAM[vm.ScreenBase])
}

func TestRuntimeErrorPointsAtClass(t *testing.T) {
	res, err := compiler.Compile(`
class Main {
    function void main() {
        do Output.printInt(1 / 0);
        return;
    }
}
`, "Main")
	require.NoError(t, err)
	prog, err := asm.Assemble(asm.File{Name: "Main.vm", Source: res.VM()})
	require.NoError(t, err)
	m, err := vm.New(prog)
	require.NoError(t, err)

	err = m.Run(1000)
	require.ErrorIs(t, err, vm.ErrDivideByZero)
	var re *vm.RuntimeError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "Main.main", re.Function)
	assert.Equal(t, "Main.vm", re.Pos.File)
}
