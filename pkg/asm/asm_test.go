package asm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gojack/pkg/vm"
	"gojack/pkg/vmcode"
)

const mainFile = `// counts down from 3
function Main.main 1
push constant 3
pop local 0
label LOOP
push local 0
if-goto BODY
goto END
label BODY
push local 0
push constant 1
sub
pop local 0
goto LOOP
label END
push constant 0
return
`

func TestAssembleResolvesLabels(t *testing.T) {
	prog, err := Assemble(File{Name: "Main.vm", Source: mainFile})
	require.NoError(t, err)

	require.Len(t, prog.Code, 16)
	assert.Equal(t, 0, prog.Functions["Main.main"])

	// goto END sits at address 6, label END at 13
	assert.Equal(t, vmcode.OpGoto, prog.Code[6].Op)
	assert.Equal(t, 13, prog.Code[6].Target)
	// if-goto BODY at 5 jumps to label BODY at 7
	assert.Equal(t, 7, prog.Code[5].Target)
	// goto LOOP at 12 jumps to 3
	assert.Equal(t, 3, prog.Code[12].Target)
}

func TestAssembleSourceMap(t *testing.T) {
	prog, err := Assemble(File{Name: "Main.vm", Source: mainFile})
	require.NoError(t, err)

	// the comment on line 1 is skipped; the function line is line 2
	assert.Equal(t, vm.SourcePos{File: "Main.vm", Line: 2}, prog.SourceMap[0])
	assert.Equal(t, vm.SourcePos{File: "Main.vm", Line: 17}, prog.SourceMap[15])
	assert.Equal(t, "Main.main", prog.FunctionAt(9))
}

func TestLabelsAreFunctionScoped(t *testing.T) {
	src := `function A.f 0
label TOP
goto TOP
function A.g 0
label TOP
goto TOP
`
	prog, err := Assemble(File{Name: "A.vm", Source: src})
	require.NoError(t, err)
	assert.Equal(t, 1, prog.Code[2].Target)
	assert.Equal(t, 4, prog.Code[5].Target)
}

func TestCallResolution(t *testing.T) {
	src := `function Main.main 0
call Main.helper 0
call Math.multiply 2
return
function Main.helper 0
push constant 1
return
`
	prog, err := Assemble(File{Name: "Main.vm", Source: src})
	require.NoError(t, err)
	assert.Equal(t, 4, prog.Code[1].Target)
	assert.Equal(t, vm.NativeTarget, prog.Code[2].Target)
}

func TestProgramFunctionShadowsNative(t *testing.T) {
	src := `function Math.abs 0
push argument 0
return
function Main.main 0
push constant 5
call Math.abs 1
return
`
	prog, err := Assemble(File{Name: "Main.vm", Source: src})
	require.NoError(t, err)
	assert.Equal(t, 0, prog.Code[5].Target)
}

func TestStaticsArePerFile(t *testing.T) {
	a := File{Name: "A.vm", Source: "function A.f 0\npush static 2\npop static 0\nreturn\n"}
	b := File{Name: "B.vm", Source: "function B.f 0\npush static 0\nreturn\n"}

	prog, err := Assemble(a, b)
	require.NoError(t, err)
	assert.Equal(t, vm.StaticBase, prog.Code[1].StaticBase)
	assert.Equal(t, vm.StaticBase+3, prog.Code[5].StaticBase)
	assert.Equal(t, 4, prog.StaticsUsed)
}

func TestAssembleErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		line int
		err  error
	}{
		{"duplicate function", "function A.f 0\nreturn\nfunction A.f 0\nreturn\n", 3, ErrDuplicateFunction},
		{"duplicate label", "function A.f 0\nlabel X\nlabel X\n", 3, ErrDuplicateLabel},
		{"undefined label", "function A.f 0\ngoto NOWHERE\n", 2, ErrUndefinedLabel},
		{"label in other function", "function A.f 0\nlabel X\nfunction A.g 0\ngoto X\n", 4, ErrUndefinedLabel},
		{"undefined function", "function A.f 0\ncall B.g 0\n", 2, ErrUndefinedFunction},
		{"native arg count", "function A.f 0\ncall Math.abs 2\n", 2, ErrArgCount},
		{"temp range", "function A.f 0\npop temp 8\n", 2, ErrSegmentRange},
		{"pointer range", "function A.f 0\npush pointer 2\n", 2, ErrSegmentRange},
		{"statics exhausted", "function A.f 0\npush static 240\n", 0, ErrStaticsExhausted},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Assemble(File{Name: "A.vm", Source: tc.src})
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.err)

			var ae *Error
			require.ErrorAs(t, err, &ae)
			assert.Equal(t, "A.vm", ae.File)
			assert.Equal(t, tc.line, ae.Line)
		})
	}
}

func TestSyntaxErrorHasLine(t *testing.T) {
	_, err := Assemble(File{Name: "A.vm", Source: "function A.f 0\npop constant 1\n"})
	var ae *Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, 2, ae.Line)
	assert.Contains(t, err.Error(), "A.vm:2:")
}

func TestStaticLimitBoundary(t *testing.T) {
	// 240 statics exactly fill RAM[16..255]
	_, err := Assemble(File{Name: "A.vm", Source: "function A.f 0\npush static 239\nreturn\n"})
	assert.NoError(t, err)
}
