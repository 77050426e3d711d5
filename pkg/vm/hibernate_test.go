package vm_test

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gojack/pkg/asm"
	"gojack/pkg/vm"
)

// sumLoop allocates a block, prints a marker and sums 1..100 into local 0.
const sumLoop = `function Main.main 2
push constant 3
call Memory.alloc 1
pop local 1
push constant 42
call Output.printChar 1
pop temp 0
push constant 100
pop temp 1
label LOOP
push temp 1
if-goto BODY
goto END
label BODY
push local 0
push temp 1
add
pop local 0
push temp 1
push constant 1
sub
pop temp 1
goto LOOP
label END
push constant 5
call Memory.alloc 1
pop temp 0
push local 0
return
`

func TestHibernateRoundTrip(t *testing.T) {
	prog, err := asm.Assemble(asm.File{Name: "Main.vm", Source: sumLoop})
	require.NoError(t, err)

	first, err := vm.New(prog)
	require.NoError(t, err)
	first.Output = &bytes.Buffer{}
	_, err = first.RunFor(200)
	require.NoError(t, err)
	require.False(t, first.Halted)

	data, err := first.HibernateToBytes()
	require.NoError(t, err)

	second, err := vm.New(prog)
	require.NoError(t, err)
	second.Output = &bytes.Buffer{}
	require.NoError(t, second.RestoreFromBytes(data))
	assert.Equal(t, first.RAM, second.RAM)
	assert.Equal(t, first.PC, second.PC)
	assert.Equal(t, first.TextCells(), second.TextCells())

	require.NoError(t, first.Run(0))
	require.NoError(t, second.Run(0))
	assert.Equal(t, int16(5050), second.Result())
	assert.Equal(t, first.Steps, second.Steps)
	// the heap continues from where it was, so both allocations agree
	assert.Equal(t, first.RAM, second.RAM)
}

func TestHibernateFile(t *testing.T) {
	prog, err := asm.Assemble(asm.File{Name: "Main.vm", Source: sumLoop})
	require.NoError(t, err)
	m, err := vm.New(prog)
	require.NoError(t, err)
	m.Output = &bytes.Buffer{}
	_, err = m.RunFor(50)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "state.zip")
	require.NoError(t, m.HibernateToFile(path))

	restored, err := vm.New(prog)
	require.NoError(t, err)
	require.NoError(t, restored.RestoreFromFile(path))
	assert.Equal(t, m.Steps, restored.Steps)
}

func TestRestoreRejectsOtherProgram(t *testing.T) {
	prog, err := asm.Assemble(asm.File{Name: "Main.vm", Source: sumLoop})
	require.NoError(t, err)
	m, err := vm.New(prog)
	require.NoError(t, err)
	data, err := m.HibernateToBytes()
	require.NoError(t, err)

	other, err := asm.Assemble(asm.File{Name: "Main.vm", Source: "function Main.main 0\npush constant 0\nreturn\n"})
	require.NoError(t, err)
	o, err := vm.New(other)
	require.NoError(t, err)
	assert.ErrorIs(t, o.RestoreFromBytes(data), vm.ErrSnapshotMismatch)

	assert.Error(t, o.RestoreFromBytes([]byte("not a zip")))
}
