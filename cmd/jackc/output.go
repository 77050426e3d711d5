package main

import (
	"fmt"
	"io"
	"os"

	"gojack/pkg/compiler"
	"gojack/pkg/config"
	"gojack/pkg/utils"
)

// writeOutputs writes the files cfg asks for and returns their paths.
func writeOutputs(r compiler.FileResult, cfg *config.Config) ([]string, error) {
	if cfg.OutDir != "" {
		if err := os.MkdirAll(cfg.OutDir, 0o755); err != nil {
			return nil, err
		}
	}

	var written []string
	emit := func(ext, body string) error {
		path := utils.OutputPath(r.Source.Name, cfg.OutDir, ext)
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			return fmt.Errorf("%s: %w", r.Source.Name, err)
		}
		written = append(written, path)
		return nil
	}

	if cfg.EmitVM {
		if err := emit(".vm", r.Result.VM()); err != nil {
			return written, err
		}
	}
	if cfg.EmitXML {
		if err := emit(".xml", r.Result.XML(compiler.RenderOptions{Resolution: cfg.Resolution})); err != nil {
			return written, err
		}
	}
	return written, nil
}

func dump(w io.Writer, res *compiler.Result, opts compiler.RenderOptions) {
	fmt.Fprintf(w, "Tokens (%d)\n", len(res.Tokens))
	for _, tok := range res.Tokens {
		fmt.Fprintln(w, " ", tok)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Parse Tree")
	fmt.Fprint(w, res.XML(opts))
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Generated VM Code")
	fmt.Fprint(w, res.VM())
	fmt.Fprintln(w)

	fmt.Fprint(w, res.ClassSymbols)
}
