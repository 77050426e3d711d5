// Package build turns command-line paths into compiled classes and linked
// programs.
package build

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gojack/pkg/asm"
	"gojack/pkg/compiler"
	"gojack/pkg/utils"
	"gojack/pkg/vm"
)

// JackSources reads every .jack file named by paths (files or directories).
// Each source must declare the class its file is named after.
func JackSources(paths ...string) ([]compiler.Source, error) {
	var sources []compiler.Source
	for _, p := range paths {
		files, err := utils.CollectSources(p, ".jack")
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			text, err := os.ReadFile(f)
			if err != nil {
				return nil, err
			}
			sources = append(sources, compiler.Source{Name: f, FileID: utils.ClassName(f), Text: string(text)})
		}
	}
	return sources, nil
}

// Failures collects the per-file errors of a CompileAll run.
func Failures(results []compiler.FileResult) error {
	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, r.Err)
		}
	}
	return errors.Join(errs...)
}

// Program compiles and links paths. A path may be a .jack file, a .vm file,
// or a directory; directories holding .jack files are compiled, otherwise
// their .vm files are loaded as they are.
func Program(ctx context.Context, jobs int, paths ...string) (*vm.Program, error) {
	var jackPaths []string
	var files []asm.File

	for _, p := range paths {
		vmFiles, err := vmInputs(p)
		if err != nil {
			return nil, err
		}
		if vmFiles == nil {
			jackPaths = append(jackPaths, p)
			continue
		}
		for _, f := range vmFiles {
			text, err := os.ReadFile(f)
			if err != nil {
				return nil, err
			}
			files = append(files, asm.File{Name: filepath.Base(f), Source: string(text)})
		}
	}

	if len(jackPaths) > 0 {
		sources, err := JackSources(jackPaths...)
		if err != nil {
			return nil, err
		}
		results, err := compiler.CompileAll(ctx, sources, jobs)
		if err != nil {
			return nil, err
		}
		if err := Failures(results); err != nil {
			return nil, err
		}
		for _, r := range results {
			files = append(files, asm.File{Name: r.Result.Class + ".vm", Source: r.Result.VM()})
		}
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("nothing to run")
	}
	return asm.Assemble(files...)
}

// vmInputs returns the .vm files p stands for, or nil when p should be
// compiled from Jack.
func vmInputs(p string) ([]string, error) {
	info, err := os.Stat(p)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		if filepath.Ext(p) == ".vm" {
			return []string{p}, nil
		}
		return nil, nil
	}
	if _, err := utils.CollectSources(p, ".jack"); err == nil {
		return nil, nil
	}
	return utils.CollectSources(p, ".vm")
}
