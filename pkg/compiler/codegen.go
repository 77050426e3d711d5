package compiler

import (
	"strconv"

	"gojack/pkg/vmcode"
)

// binaryOpSymbols lists the infix operators; "*" and "/" compile to calls.
const binaryOpSymbols = "+-*/&|<>="

var binaryOps = map[string]vmcode.Command{
	"+": vmcode.Add,
	"-": vmcode.Sub,
	"&": vmcode.And,
	"|": vmcode.Or,
	"<": vmcode.Lt,
	">": vmcode.Gt,
	"=": vmcode.Eq,
}

// nextLabel returns the next label number of the current subroutine.
func (p *Parser) nextLabel() int {
	n := p.labelCount
	p.labelCount++
	return n
}

// emitSubroutineEntry writes the function header once the local
// declarations are known, followed by the constructor or method prelude.
func (p *Parser) emitSubroutineEntry() {
	p.out.WriteFunction(p.className+"."+p.subName, p.subSyms.Count(KindLocal))
	switch p.subKind {
	case "constructor":
		p.out.WritePush(vmcode.Constant, p.classSyms.Count(KindField))
		p.out.WriteCall("Memory.alloc", 1)
		p.out.WritePop(vmcode.Pointer, 0)
	case "method":
		p.out.WritePush(vmcode.Argument, 0)
		p.out.WritePop(vmcode.Pointer, 0)
	}
}

func (p *Parser) pushVariable(e Entry) {
	p.out.WritePush(e.Kind.Segment(), e.Index)
}

func (p *Parser) popVariable(e Entry) {
	p.out.WritePop(e.Kind.Segment(), e.Index)
}

// storeIndirect pops the value on top of the stack into the address below it.
func (p *Parser) storeIndirect() {
	p.out.WritePop(vmcode.Temp, 0)
	p.out.WritePop(vmcode.Pointer, 1)
	p.out.WritePush(vmcode.Temp, 0)
	p.out.WritePop(vmcode.That, 0)
}

// loadIndirect replaces the address on top of the stack with the word it
// points at.
func (p *Parser) loadIndirect() {
	p.out.WritePop(vmcode.Pointer, 1)
	p.out.WritePush(vmcode.That, 0)
}

func (p *Parser) emitBinaryOp(op string) {
	switch op {
	case "*":
		p.out.WriteCall("Math.multiply", 2)
	case "/":
		p.out.WriteCall("Math.divide", 2)
	default:
		p.out.WriteArithmetic(binaryOps[op])
	}
}

func (p *Parser) emitUnaryOp(op string) {
	if op == "-" {
		p.out.WriteArithmetic(vmcode.Neg)
		return
	}
	p.out.WriteArithmetic(vmcode.Not)
}

func (p *Parser) emitInteger(tok Token) {
	// the lexer guarantees 0..32767
	n, _ := strconv.Atoi(tok.Lexeme)
	p.out.WritePush(vmcode.Constant, n)
}

// emitString builds a String object one character at a time.
func (p *Parser) emitString(s string) {
	chars := []rune(s)
	p.out.WritePush(vmcode.Constant, len(chars))
	p.out.WriteCall("String.new", 1)
	for _, c := range chars {
		p.out.WritePush(vmcode.Constant, int(c))
		p.out.WriteCall("String.appendChar", 2)
	}
}

func (p *Parser) emitKeywordConstant(word string) {
	switch word {
	case "true":
		p.out.WritePush(vmcode.Constant, 0)
		p.out.WriteArithmetic(vmcode.Not)
	case "this":
		p.out.WritePush(vmcode.Pointer, 0)
	default: // false, null
		p.out.WritePush(vmcode.Constant, 0)
	}
}
