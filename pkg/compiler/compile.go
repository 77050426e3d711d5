package compiler

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Result is everything one file's compilation produces.
type Result struct {
	Class        string
	Tokens       []Token
	Tree         *Node
	Instructions []string
	ClassSymbols *SymbolTable
}

// XML renders the parse tree.
func (r *Result) XML(opts RenderOptions) string {
	return r.Tree.XML(opts)
}

// VM returns the instructions as the contents of a .vm file.
func (r *Result) VM() string {
	if len(r.Instructions) == 0 {
		return ""
	}
	return strings.Join(r.Instructions, "\n") + "\n"
}

// Compile lexes, parses and generates code for one source file. fileID is
// the class name the file is expected to declare; an empty fileID skips the
// check.
func Compile(src string, fileID string) (*Result, error) {
	tokens, err := Lex(src)
	if err != nil {
		return nil, err
	}

	p := NewParser(tokens, src)
	tree, err := p.ParseClass()
	if err != nil {
		return nil, err
	}

	if fileID != "" && p.ClassName() != fileID {
		nameTok := tokens[1]
		return nil, p.fmtError(nameTok, ErrClassNameMismatch, fileID,
			"class %q must be declared in %s.jack", p.ClassName(), p.ClassName())
	}

	return &Result{
		Class:        p.ClassName(),
		Tokens:       tokens,
		Tree:         tree,
		Instructions: p.Instructions(),
		ClassSymbols: p.ClassSymbols(),
	}, nil
}

// Source is one input file for CompileAll.
type Source struct {
	Name   string // used in error messages, usually the path
	FileID string
	Text   string
}

// FileResult pairs a Source with its outcome. Exactly one of Result and
// Err is set.
type FileResult struct {
	Source Source
	Result *Result
	Err    error
}

// CompileAll compiles each source in its own goroutine, at most jobs at a
// time, and returns the outcomes in input order. A failing file does not
// stop the others; a cancelled context stops files that have not started.
func CompileAll(ctx context.Context, sources []Source, jobs int) ([]FileResult, error) {
	results := make([]FileResult, len(sources))

	g, ctx := errgroup.WithContext(ctx)
	if jobs > 0 {
		g.SetLimit(jobs)
	}

	for i, src := range sources {
		results[i].Source = src
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				return err
			}
			res, err := Compile(src.Text, src.FileID)
			if err != nil {
				results[i].Err = fmt.Errorf("%s: %w", src.Name, err)
				return nil
			}
			results[i].Result = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}
