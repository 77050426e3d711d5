package compiler

import (
	"fmt"
	"strings"
)

// NodeKind names a grammar nonterminal.
type NodeKind int

const (
	NodeClass NodeKind = iota
	NodeClassVarDec
	NodeSubroutineDec
	NodeParameterList
	NodeSubroutineBody
	NodeVarDec
	NodeStatements
	NodeLetStatement
	NodeIfStatement
	NodeWhileStatement
	NodeDoStatement
	NodeReturnStatement
	NodeExpression
	NodeTerm
	NodeExpressionList
)

var nodeTags = [...]string{
	NodeClass:           "class",
	NodeClassVarDec:     "classVarDec",
	NodeSubroutineDec:   "subroutineDec",
	NodeParameterList:   "parameterList",
	NodeSubroutineBody:  "subroutineBody",
	NodeVarDec:          "varDec",
	NodeStatements:      "statements",
	NodeLetStatement:    "letStatement",
	NodeIfStatement:     "ifStatement",
	NodeWhileStatement:  "whileStatement",
	NodeDoStatement:     "doStatement",
	NodeReturnStatement: "returnStatement",
	NodeExpression:      "expression",
	NodeTerm:            "term",
	NodeExpressionList:  "expressionList",
}

func (k NodeKind) String() string {
	if int(k) < len(nodeTags) {
		return nodeTags[k]
	}
	return fmt.Sprintf("NodeKind(%d)", int(k))
}

// Category is the resolved role of an identifier occurrence.
type Category int

const (
	CategoryLocal Category = iota
	CategoryArgument
	CategoryStatic
	CategoryField
	CategoryClass
	CategorySubroutine
)

var categoryNames = [...]string{
	CategoryLocal:      "local",
	CategoryArgument:   "argument",
	CategoryStatic:     "static",
	CategoryField:      "field",
	CategoryClass:      "class",
	CategorySubroutine: "subroutine",
}

func (c Category) String() string {
	if int(c) < len(categoryNames) {
		return categoryNames[c]
	}
	return fmt.Sprintf("Category(%d)", int(c))
}

func categoryOf(k Kind) Category {
	switch k {
	case KindStatic:
		return CategoryStatic
	case KindField:
		return CategoryField
	case KindArgument:
		return CategoryArgument
	default:
		return CategoryLocal
	}
}

// IdentifierToken is an identifier annotated at the point it was consumed.
// It holds its own copy of the token.
type IdentifierToken struct {
	Token
	Category     Category
	IsDefinition bool
	Index        int
}

// Element is a child of a Node: either a *Leaf or a *Node.
type Element interface {
	element()
}

// Leaf is a consumed token. Ident is set for identifiers.
type Leaf struct {
	Token Token
	Ident *IdentifierToken
}

// Node is one nonterminal with its children in source order.
type Node struct {
	Kind     NodeKind
	Children []Element
}

func (*Leaf) element() {}
func (*Node) element() {}

func newNode(kind NodeKind) *Node {
	return &Node{Kind: kind}
}

func (n *Node) addToken(tok Token) {
	n.Children = append(n.Children, &Leaf{Token: tok})
}

func (n *Node) addIdent(id IdentifierToken) {
	n.Children = append(n.Children, &Leaf{Token: id.Token, Ident: &id})
}

func (n *Node) addNode(child *Node) {
	n.Children = append(n.Children, child)
}

// Tokens returns every leaf token beneath n in source order.
func (n *Node) Tokens() []Token {
	var out []Token
	n.Walk(func(e Element) {
		if leaf, ok := e.(*Leaf); ok {
			out = append(out, leaf.Token)
		}
	})
	return out
}

// Identifiers returns every annotated identifier beneath n in source order.
func (n *Node) Identifiers() []IdentifierToken {
	var out []IdentifierToken
	n.Walk(func(e Element) {
		if leaf, ok := e.(*Leaf); ok && leaf.Ident != nil {
			out = append(out, *leaf.Ident)
		}
	})
	return out
}

// Find returns all nodes of the given kind beneath n, n included, in
// pre-order.
func (n *Node) Find(kind NodeKind) []*Node {
	var out []*Node
	n.Walk(func(e Element) {
		if child, ok := e.(*Node); ok && child.Kind == kind {
			out = append(out, child)
		}
	})
	return out
}

// Walk visits n and every element beneath it in pre-order.
func (n *Node) Walk(fn func(Element)) {
	fn(n)
	for _, child := range n.Children {
		switch c := child.(type) {
		case *Node:
			c.Walk(fn)
		case *Leaf:
			fn(c)
		}
	}
}

// RenderOptions controls the XML rendering.
type RenderOptions struct {
	// Resolution adds category, definition and index attributes to
	// identifier elements.
	Resolution bool
}

const indentWidth = 2

// XML renders the tree: one element per line, two spaces of indent per
// nesting level.
func (n *Node) XML(opts RenderOptions) string {
	var sb strings.Builder
	n.writeXML(&sb, 0, opts)
	return sb.String()
}

func (n *Node) writeXML(sb *strings.Builder, depth int, opts RenderOptions) {
	pad := strings.Repeat(" ", depth*indentWidth)
	fmt.Fprintf(sb, "%s<%s>\n", pad, n.Kind)
	for _, child := range n.Children {
		switch c := child.(type) {
		case *Node:
			c.writeXML(sb, depth+1, opts)
		case *Leaf:
			sb.WriteString(pad)
			sb.WriteString(strings.Repeat(" ", indentWidth))
			sb.WriteString(c.xml(opts))
			sb.WriteByte('\n')
		}
	}
	fmt.Fprintf(sb, "%s</%s>\n", pad, n.Kind)
}

func (l *Leaf) xml(opts RenderOptions) string {
	if !opts.Resolution || l.Ident == nil {
		return l.Token.XML()
	}
	id := l.Ident
	tag := id.Type.XMLTag()
	return fmt.Sprintf(`<%s category="%s" definition="%t" index="%d"> %s </%s>`,
		tag, id.Category, id.IsDefinition, id.Index, id.XMLText(), tag)
}
