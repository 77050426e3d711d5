package compiler

import (
	"fmt"
	"strings"

	"gojack/pkg/vmcode"
)

// Parser consumes the token slice produced by Lex, builds the parse tree and
// emits VM code in a single pass.
//
// Grammar:
//
//	class          = "class" className "{" classVarDec* subroutineDec* "}"
//	classVarDec    = ("static" | "field") type varName ("," varName)* ";"
//	subroutineDec  = ("constructor" | "function" | "method") ("void" | type)
//	                 subroutineName "(" parameterList ")" subroutineBody
//	parameterList  = (type varName ("," type varName)*)?
//	subroutineBody = "{" varDec* statements "}"
//	varDec         = "var" type varName ("," varName)* ";"
//	statements     = (let | if | while | do | return)*
//	let            = "let" varName ("[" expression "]")? "=" expression ";"
//	if             = "if" "(" expression ")" "{" statements "}" ("else" "{" statements "}")?
//	while          = "while" "(" expression ")" "{" statements "}"
//	do             = "do" subroutineCall ";"
//	return         = "return" expression? ";"
//	subroutineCall = subroutineName "(" expressionList ")"
//	               | (className | varName) "." subroutineName "(" expressionList ")"
//	expressionList = (expression ("," expression)*)?
//	expression     = term (op term)*
//	term           = INT_CONST | STRING_CONST | keywordConstant | "(" expression ")"
//	               | unaryOp term | subroutineCall | varName ("[" expression "]")?
type Parser struct {
	tokens      []Token
	pos         int
	sourceLines []string

	className string
	classSyms *SymbolTable
	subSyms   *SymbolTable

	// current subroutine
	subKind    string
	subName    string
	labelCount int

	out *vmcode.Writer
}

func NewParser(tokens []Token, rawSource string) *Parser {
	return &Parser{
		tokens:      tokens,
		sourceLines: strings.Split(rawSource, "\n"),
		classSyms:   NewSymbolTable(),
		subSyms:     NewSymbolTable(),
		out:         vmcode.NewWriter(),
	}
}

// Parse runs a fresh parser over tokens and returns the class tree and the
// emitted instructions.
func Parse(tokens []Token, rawSource string) (*Node, []string, error) {
	p := NewParser(tokens, rawSource)
	root, err := p.ParseClass()
	if err != nil {
		return nil, nil, err
	}
	return root, p.Instructions(), nil
}

func (p *Parser) ClassName() string { return p.className }

// ClassSymbols is the class-scope table after parsing.
func (p *Parser) ClassSymbols() *SymbolTable { return p.classSyms }

func (p *Parser) Instructions() []string { return p.out.Lines() }

// fmtError builds a ParseError pointing at tok, with the source line attached.
func (p *Parser) fmtError(tok Token, cause error, expected string, format string, args ...any) error {
	lineIdx := tok.Line - 1

	snippet := "<source unavailable>"
	if lineIdx >= 0 && lineIdx < len(p.sourceLines) {
		snippet = strings.TrimSpace(p.sourceLines[lineIdx])
	}

	return &ParseError{
		Line:     tok.Line,
		Column:   tok.Column,
		Expected: expected,
		Found:    tok,
		Msg:      fmt.Sprintf(format, args...),
		Snippet:  snippet,
		Err:      cause,
	}
}

func (p *Parser) expectedLiteral(tok Token, lit string) error {
	return p.fmtError(tok, nil, lit, "expected %q, got %s %q", lit, tok.Type, tok.Lexeme)
}

func (p *Parser) expectedKind(tok Token, what string) error {
	return p.fmtError(tok, nil, what, "expected %s, got %s %q", what, tok.Type, tok.Lexeme)
}

// peek returns the current token without consuming it.
func (p *Parser) peek() Token {
	return p.peekAt(0)
}

// peekNext returns the token immediately after the current one.
func (p *Parser) peekNext() Token {
	return p.peekAt(1)
}

// peekAt returns the token at the given offset from the current position.
// Past the end it returns an EOF token placed on the last line.
func (p *Parser) peekAt(offset int) Token {
	if p.pos+offset >= len(p.tokens) {
		eof := Token{Type: EOF}
		if n := len(p.tokens); n > 0 {
			eof.Line = p.tokens[n-1].Line
			eof.Column = p.tokens[n-1].Column + 1
		}
		return eof
	}
	return p.tokens[p.pos+offset]
}

// advance consumes and returns the current token.
func (p *Parser) advance() Token {
	tok := p.peek()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

func (p *Parser) atSymbol(sym string) bool {
	return p.peek().Is(SYMBOL, sym)
}

func (p *Parser) atKeyword(words ...string) bool {
	tok := p.peek()
	if tok.Type != KEYWORD {
		return false
	}
	for _, w := range words {
		if tok.Lexeme == w {
			return true
		}
	}
	return false
}

// expectSymbol consumes sym into node.
func (p *Parser) expectSymbol(node *Node, sym string) error {
	tok := p.peek()
	if !tok.Is(SYMBOL, sym) {
		return p.expectedLiteral(tok, sym)
	}
	node.addToken(p.advance())
	return nil
}

// expectKeyword consumes keyword kw into node.
func (p *Parser) expectKeyword(node *Node, kw string) error {
	tok := p.peek()
	if !tok.Is(KEYWORD, kw) {
		return p.expectedLiteral(tok, kw)
	}
	node.addToken(p.advance())
	return nil
}

func (p *Parser) expectIdentifier() (Token, error) {
	tok := p.peek()
	if tok.Type != IDENTIFIER {
		return tok, p.expectedKind(tok, "identifier")
	}
	return p.advance(), nil
}

// lookup searches the subroutine scope, then the class scope.
func (p *Parser) lookup(name string) (Entry, bool) {
	if e, ok := p.subSyms.Lookup(name); ok {
		return e, true
	}
	return p.classSyms.Lookup(name)
}

// resolve annotates a consumed identifier. Names that are not declared
// variables take the contextual category at index 0.
func (p *Parser) resolve(tok Token, hint Category) IdentifierToken {
	if e, ok := p.lookup(tok.Lexeme); ok {
		return IdentifierToken{Token: tok, Category: categoryOf(e.Kind), Index: e.Index}
	}
	return IdentifierToken{Token: tok, Category: hint}
}

// useIdentifier consumes an identifier reference into node.
func (p *Parser) useIdentifier(node *Node, hint Category) (IdentifierToken, error) {
	tok, err := p.expectIdentifier()
	if err != nil {
		return IdentifierToken{}, err
	}
	id := p.resolve(tok, hint)
	node.addIdent(id)
	return id, nil
}

// useVariable consumes an identifier that must name a declared variable.
func (p *Parser) useVariable(node *Node) (Entry, error) {
	tok, err := p.expectIdentifier()
	if err != nil {
		return Entry{}, err
	}
	e, ok := p.lookup(tok.Lexeme)
	if !ok {
		return Entry{}, p.fmtError(tok, ErrUndefinedVariable, "", "undefined variable %q", tok.Lexeme)
	}
	node.addIdent(IdentifierToken{Token: tok, Category: categoryOf(e.Kind), Index: e.Index})
	return e, nil
}

// declare consumes a variable name at its definition site and registers it
// in the table that owns kind.
func (p *Parser) declare(node *Node, typ string, kind Kind) error {
	tok, err := p.expectIdentifier()
	if err != nil {
		return err
	}
	table := p.subSyms
	if kind == KindStatic || kind == KindField {
		table = p.classSyms
	}
	e, err := table.Add(tok.Lexeme, typ, kind)
	if err != nil {
		return p.fmtError(tok, err, "", "%s %q already declared in this scope", kind, tok.Lexeme)
	}
	node.addIdent(IdentifierToken{Token: tok, Category: categoryOf(kind), IsDefinition: true, Index: e.Index})
	return nil
}

// ParseClass parses the whole token slice as one class declaration.
func (p *Parser) ParseClass() (*Node, error) {
	node := newNode(NodeClass)
	if err := p.expectKeyword(node, "class"); err != nil {
		return nil, err
	}
	tok, err := p.expectIdentifier()
	if err != nil {
		return nil, err
	}
	node.addIdent(IdentifierToken{Token: tok, Category: CategoryClass, IsDefinition: true})
	p.className = tok.Lexeme

	if err := p.expectSymbol(node, "{"); err != nil {
		return nil, err
	}
	for p.atKeyword("static", "field") {
		child, err := p.parseClassVarDec()
		if err != nil {
			return nil, err
		}
		node.addNode(child)
	}
	for p.atKeyword("constructor", "function", "method") {
		child, err := p.parseSubroutineDec()
		if err != nil {
			return nil, err
		}
		node.addNode(child)
	}
	if err := p.expectSymbol(node, "}"); err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.Type != EOF {
		return nil, p.expectedKind(tok, "end of input")
	}
	return node, nil
}

// parseType consumes int, char, boolean or a class name, plus void when
// allowed, and returns the type's name.
func (p *Parser) parseType(node *Node, allowVoid bool) (string, error) {
	tok := p.peek()
	switch {
	case tok.Type == KEYWORD && (tok.Lexeme == "int" || tok.Lexeme == "char" || tok.Lexeme == "boolean"):
		node.addToken(p.advance())
		return tok.Lexeme, nil
	case allowVoid && tok.Is(KEYWORD, "void"):
		node.addToken(p.advance())
		return tok.Lexeme, nil
	case tok.Type == IDENTIFIER:
		id, err := p.useIdentifier(node, CategoryClass)
		return id.Lexeme, err
	}
	return "", p.expectedKind(tok, "type")
}

func (p *Parser) parseClassVarDec() (*Node, error) {
	node := newNode(NodeClassVarDec)
	kwTok := p.advance()
	node.addToken(kwTok)
	kind := KindField
	if kwTok.Lexeme == "static" {
		kind = KindStatic
	}

	typ, err := p.parseType(node, false)
	if err != nil {
		return nil, err
	}
	if err := p.declareList(node, typ, kind); err != nil {
		return nil, err
	}
	return node, nil
}

// declareList consumes varName ("," varName)* ";".
func (p *Parser) declareList(node *Node, typ string, kind Kind) error {
	if err := p.declare(node, typ, kind); err != nil {
		return err
	}
	for p.atSymbol(",") {
		node.addToken(p.advance())
		if err := p.declare(node, typ, kind); err != nil {
			return err
		}
	}
	return p.expectSymbol(node, ";")
}

func (p *Parser) parseSubroutineDec() (*Node, error) {
	node := newNode(NodeSubroutineDec)
	kwTok := p.advance()
	node.addToken(kwTok)

	p.subSyms.Reset()
	p.labelCount = 0
	p.subKind = kwTok.Lexeme
	if p.subKind == "method" {
		// the receiver occupies argument 0
		if _, err := p.subSyms.Add("this", p.className, KindArgument); err != nil {
			return nil, err
		}
	}

	if _, err := p.parseType(node, true); err != nil {
		return nil, err
	}
	tok, err := p.expectIdentifier()
	if err != nil {
		return nil, err
	}
	node.addIdent(IdentifierToken{Token: tok, Category: CategorySubroutine, IsDefinition: true})
	p.subName = tok.Lexeme

	if err := p.expectSymbol(node, "("); err != nil {
		return nil, err
	}
	params, err := p.parseParameterList()
	if err != nil {
		return nil, err
	}
	node.addNode(params)
	if err := p.expectSymbol(node, ")"); err != nil {
		return nil, err
	}

	body, err := p.parseSubroutineBody()
	if err != nil {
		return nil, err
	}
	node.addNode(body)
	return node, nil
}

func (p *Parser) parseParameterList() (*Node, error) {
	node := newNode(NodeParameterList)
	if p.atSymbol(")") {
		return node, nil
	}
	for {
		typ, err := p.parseType(node, false)
		if err != nil {
			return nil, err
		}
		if err := p.declare(node, typ, KindArgument); err != nil {
			return nil, err
		}
		if !p.atSymbol(",") {
			return node, nil
		}
		node.addToken(p.advance())
	}
}

func (p *Parser) parseSubroutineBody() (*Node, error) {
	node := newNode(NodeSubroutineBody)
	if err := p.expectSymbol(node, "{"); err != nil {
		return nil, err
	}
	for p.atKeyword("var") {
		child, err := p.parseVarDec()
		if err != nil {
			return nil, err
		}
		node.addNode(child)
	}

	p.emitSubroutineEntry()

	stmts, err := p.parseStatements()
	if err != nil {
		return nil, err
	}
	node.addNode(stmts)
	if err := p.expectSymbol(node, "}"); err != nil {
		return nil, err
	}
	return node, nil
}

func (p *Parser) parseVarDec() (*Node, error) {
	node := newNode(NodeVarDec)
	node.addToken(p.advance())
	typ, err := p.parseType(node, false)
	if err != nil {
		return nil, err
	}
	if err := p.declareList(node, typ, KindLocal); err != nil {
		return nil, err
	}
	return node, nil
}

func (p *Parser) parseStatements() (*Node, error) {
	node := newNode(NodeStatements)
	for {
		var (
			child *Node
			err   error
		)
		switch {
		case p.atKeyword("let"):
			child, err = p.parseLet()
		case p.atKeyword("if"):
			child, err = p.parseIf()
		case p.atKeyword("while"):
			child, err = p.parseWhile()
		case p.atKeyword("do"):
			child, err = p.parseDo()
		case p.atKeyword("return"):
			child, err = p.parseReturn()
		default:
			return node, nil
		}
		if err != nil {
			return nil, err
		}
		node.addNode(child)
	}
}

func (p *Parser) parseLet() (*Node, error) {
	node := newNode(NodeLetStatement)
	node.addToken(p.advance())

	target, err := p.useVariable(node)
	if err != nil {
		return nil, err
	}

	indexed := p.atSymbol("[")
	if indexed {
		node.addToken(p.advance())
		p.pushVariable(target)
		if err := p.expressionInto(node); err != nil {
			return nil, err
		}
		if err := p.expectSymbol(node, "]"); err != nil {
			return nil, err
		}
		p.out.WriteArithmetic(vmcode.Add)
	}

	if err := p.expectSymbol(node, "="); err != nil {
		return nil, err
	}
	if err := p.expressionInto(node); err != nil {
		return nil, err
	}
	if err := p.expectSymbol(node, ";"); err != nil {
		return nil, err
	}

	if indexed {
		p.storeIndirect()
	} else {
		p.popVariable(target)
	}
	return node, nil
}

func (p *Parser) parseIf() (*Node, error) {
	node := newNode(NodeIfStatement)
	node.addToken(p.advance())

	if err := p.condition(node); err != nil {
		return nil, err
	}

	n := p.nextLabel()
	trueLabel := fmt.Sprintf("IF_TRUE%d", n)
	falseLabel := fmt.Sprintf("IF_FALSE%d", n)
	endLabel := fmt.Sprintf("IF_END%d", n)

	p.out.WriteIf(trueLabel)
	p.out.WriteGoto(falseLabel)
	p.out.WriteLabel(trueLabel)

	if err := p.block(node); err != nil {
		return nil, err
	}

	if !p.atKeyword("else") {
		p.out.WriteLabel(falseLabel)
		return node, nil
	}

	p.out.WriteGoto(endLabel)
	p.out.WriteLabel(falseLabel)
	node.addToken(p.advance())
	if err := p.block(node); err != nil {
		return nil, err
	}
	p.out.WriteLabel(endLabel)
	return node, nil
}

func (p *Parser) parseWhile() (*Node, error) {
	node := newNode(NodeWhileStatement)
	node.addToken(p.advance())

	n := p.nextLabel()
	expLabel := fmt.Sprintf("WHILE_EXP%d", n)
	endLabel := fmt.Sprintf("WHILE_END%d", n)

	p.out.WriteLabel(expLabel)
	if err := p.condition(node); err != nil {
		return nil, err
	}
	p.out.WriteArithmetic(vmcode.Not)
	p.out.WriteIf(endLabel)

	if err := p.block(node); err != nil {
		return nil, err
	}
	p.out.WriteGoto(expLabel)
	p.out.WriteLabel(endLabel)
	return node, nil
}

// condition consumes "(" expression ")".
func (p *Parser) condition(node *Node) error {
	if err := p.expectSymbol(node, "("); err != nil {
		return err
	}
	if err := p.expressionInto(node); err != nil {
		return err
	}
	return p.expectSymbol(node, ")")
}

// block consumes "{" statements "}".
func (p *Parser) block(node *Node) error {
	if err := p.expectSymbol(node, "{"); err != nil {
		return err
	}
	stmts, err := p.parseStatements()
	if err != nil {
		return err
	}
	node.addNode(stmts)
	return p.expectSymbol(node, "}")
}

func (p *Parser) parseDo() (*Node, error) {
	node := newNode(NodeDoStatement)
	node.addToken(p.advance())
	if err := p.parseSubroutineCall(node); err != nil {
		return nil, err
	}
	if err := p.expectSymbol(node, ";"); err != nil {
		return nil, err
	}
	// discard the returned value
	p.out.WritePop(vmcode.Temp, 0)
	return node, nil
}

func (p *Parser) parseReturn() (*Node, error) {
	node := newNode(NodeReturnStatement)
	node.addToken(p.advance())
	if p.atSymbol(";") {
		p.out.WritePush(vmcode.Constant, 0)
	} else if err := p.expressionInto(node); err != nil {
		return nil, err
	}
	if err := p.expectSymbol(node, ";"); err != nil {
		return nil, err
	}
	p.out.WriteReturn()
	return node, nil
}

// parseSubroutineCall consumes a call into node; the call's tokens are
// direct children of the enclosing statement or term.
func (p *Parser) parseSubroutineCall(node *Node) error {
	first, err := p.expectIdentifier()
	if err != nil {
		return err
	}

	var (
		callee string
		nArgs  int
	)
	switch {
	case p.atSymbol("("):
		node.addIdent(p.resolve(first, CategorySubroutine))
		p.out.WritePush(vmcode.Pointer, 0)
		callee = p.className + "." + first.Lexeme
		nArgs = 1

	case p.atSymbol("."):
		node.addIdent(p.resolve(first, CategoryClass))
		node.addToken(p.advance())
		sub, err := p.useIdentifier(node, CategorySubroutine)
		if err != nil {
			return err
		}
		if e, isVar := p.lookup(first.Lexeme); isVar {
			p.pushVariable(e)
			callee = e.Type + "." + sub.Lexeme
			nArgs = 1
		} else {
			callee = first.Lexeme + "." + sub.Lexeme
		}

	default:
		return p.fmtError(p.peek(), nil, "( or .", "expected \"(\" or \".\" after %q, got %s %q",
			first.Lexeme, p.peek().Type, p.peek().Lexeme)
	}

	if err := p.expectSymbol(node, "("); err != nil {
		return err
	}
	n, err := p.parseExpressionList(node)
	if err != nil {
		return err
	}
	if err := p.expectSymbol(node, ")"); err != nil {
		return err
	}
	p.out.WriteCall(callee, nArgs+n)
	return nil
}

// parseExpressionList appends an expressionList node to parent and returns
// the number of expressions in it.
func (p *Parser) parseExpressionList(parent *Node) (int, error) {
	node := newNode(NodeExpressionList)
	parent.addNode(node)
	if p.atSymbol(")") {
		return 0, nil
	}
	count := 0
	for {
		if err := p.expressionInto(node); err != nil {
			return 0, err
		}
		count++
		if !p.atSymbol(",") {
			return count, nil
		}
		node.addToken(p.advance())
	}
}

func (p *Parser) expressionInto(parent *Node) error {
	expr, err := p.parseExpression()
	if err != nil {
		return err
	}
	parent.addNode(expr)
	return nil
}

// parseExpression evaluates strictly left to right; the language has no
// operator precedence.
func (p *Parser) parseExpression() (*Node, error) {
	node := newNode(NodeExpression)
	if err := p.termInto(node); err != nil {
		return nil, err
	}
	for isBinaryOp(p.peek()) {
		op := p.advance()
		node.addToken(op)
		if err := p.termInto(node); err != nil {
			return nil, err
		}
		p.emitBinaryOp(op.Lexeme)
	}
	return node, nil
}

func (p *Parser) termInto(parent *Node) error {
	term, err := p.parseTerm()
	if err != nil {
		return err
	}
	parent.addNode(term)
	return nil
}

func (p *Parser) parseTerm() (*Node, error) {
	node := newNode(NodeTerm)
	tok := p.peek()

	switch {
	case tok.Type == INT_CONST:
		node.addToken(p.advance())
		p.emitInteger(tok)

	case tok.Type == STRING_CONST:
		node.addToken(p.advance())
		p.emitString(tok.Lexeme)

	case tok.Type == KEYWORD && isKeywordConstant(tok.Lexeme):
		node.addToken(p.advance())
		p.emitKeywordConstant(tok.Lexeme)

	case tok.Is(SYMBOL, "("):
		node.addToken(p.advance())
		if err := p.expressionInto(node); err != nil {
			return nil, err
		}
		if err := p.expectSymbol(node, ")"); err != nil {
			return nil, err
		}

	case tok.Is(SYMBOL, "-") || tok.Is(SYMBOL, "~"):
		node.addToken(p.advance())
		if err := p.termInto(node); err != nil {
			return nil, err
		}
		p.emitUnaryOp(tok.Lexeme)

	case tok.Type == IDENTIFIER:
		next := p.peekNext()
		if next.Is(SYMBOL, "(") || next.Is(SYMBOL, ".") {
			if err := p.parseSubroutineCall(node); err != nil {
				return nil, err
			}
			break
		}
		v, err := p.useVariable(node)
		if err != nil {
			return nil, err
		}
		p.pushVariable(v)
		if p.atSymbol("[") {
			node.addToken(p.advance())
			if err := p.expressionInto(node); err != nil {
				return nil, err
			}
			if err := p.expectSymbol(node, "]"); err != nil {
				return nil, err
			}
			p.out.WriteArithmetic(vmcode.Add)
			p.loadIndirect()
		}

	default:
		return nil, p.expectedKind(tok, "term")
	}
	return node, nil
}

func isBinaryOp(tok Token) bool {
	return tok.Type == SYMBOL && len(tok.Lexeme) == 1 && strings.Contains(binaryOpSymbols, tok.Lexeme)
}

func isKeywordConstant(word string) bool {
	switch word {
	case "true", "false", "null", "this":
		return true
	}
	return false
}
