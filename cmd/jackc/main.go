package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"gojack/pkg/build"
	"gojack/pkg/compiler"
	"gojack/pkg/config"
	"gojack/pkg/vm"
)

var (
	configPath string
	verbose    bool

	outDir     string
	emitXML    bool
	noVM       bool
	jobs       int
	resolution bool

	maxSteps   int
	screenshot string
	hibernate  string
	resume     string
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")

	compileCmd.Flags().StringVarP(&outDir, "out", "o", "", "Directory for generated files (default: next to each source)")
	compileCmd.Flags().BoolVar(&emitXML, "xml", false, "Write the parse tree as Class.xml")
	compileCmd.Flags().BoolVar(&noVM, "no-vm", false, "Do not write Class.vm")
	compileCmd.Flags().IntVarP(&jobs, "jobs", "j", 0, "Files compiled in parallel")
	compileCmd.Flags().BoolVar(&resolution, "resolution", false, "Annotate identifiers in the XML with their resolution")

	dumpCmd.Flags().BoolVar(&resolution, "resolution", false, "Annotate identifiers with their resolution")

	runCmd.Flags().IntVar(&maxSteps, "max-steps", 0, "Stop after this many VM instructions (0: unlimited)")
	runCmd.Flags().StringVar(&screenshot, "screenshot", "", "Save the screen to this .bmp or .png file on exit")
	runCmd.Flags().IntVarP(&jobs, "jobs", "j", 0, "Files compiled in parallel")
	runCmd.Flags().StringVar(&hibernate, "hibernate", "", "Save the machine state to this file when the run stops")
	runCmd.Flags().StringVar(&resume, "resume", "", "Continue from a state saved with --hibernate")

	rootCmd.AddCommand(compileCmd)
	rootCmd.AddCommand(dumpCmd)
	rootCmd.AddCommand(runCmd)
}

var rootCmd = &cobra.Command{
	Use:   "jackc",
	Short: "jackc compiles and runs Jack programs",
	Long:  `jackc compiles Jack classes to VM code, dumps compiler internals, and runs programs on the built-in VM.`,
}

// loadConfig merges the config file and environment with any flags given
// on the command line.
func loadConfig(cmd *cobra.Command) *config.Config {
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	flags := cmd.Flags()
	if flags.Changed("verbose") {
		cfg.Verbose = verbose
	}
	if flags.Changed("out") {
		cfg.OutDir = outDir
	}
	if flags.Changed("xml") {
		cfg.EmitXML = emitXML
	}
	if flags.Changed("no-vm") {
		cfg.EmitVM = !noVM
	}
	if flags.Changed("jobs") {
		cfg.Jobs = jobs
	}
	if flags.Changed("resolution") {
		cfg.Resolution = resolution
	}
	if flags.Changed("max-steps") {
		cfg.MaxSteps = maxSteps
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	return cfg
}

var compileCmd = &cobra.Command{
	Use:   "compile [file.jack|dir]...",
	Short: "Compile Jack classes",
	Long:  `Compile each .jack file (or every .jack file in a directory) to Class.vm and optionally Class.xml.`,
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig(cmd)

		sources, err := build.JackSources(args...)
		if err != nil {
			log.Fatalf("Failed to read sources: %v", err)
		}
		if cfg.Verbose {
			log.Printf("compiling %d files with %d jobs", len(sources), cfg.Jobs)
		}

		results, err := compiler.CompileAll(context.Background(), sources, cfg.Jobs)
		if err != nil {
			log.Fatalf("Compilation aborted: %v", err)
		}

		failed := 0
		for _, r := range results {
			if r.Err != nil {
				fmt.Fprintln(os.Stderr, r.Err)
				failed++
				continue
			}
			written, err := writeOutputs(r, cfg)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				failed++
				continue
			}
			for _, path := range written {
				fmt.Println(path)
			}
		}
		if failed > 0 {
			fmt.Fprintf(os.Stderr, "%d of %d files failed\n", failed, len(results))
			os.Exit(1)
		}
	},
}

var dumpCmd = &cobra.Command{
	Use:   "dump [file.jack]",
	Short: "Print tokens, parse tree, VM code and symbols for one class",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig(cmd)

		src, err := os.ReadFile(args[0])
		if err != nil {
			log.Fatalf("Failed to read file: %v", err)
		}
		res, err := compiler.Compile(string(src), "")
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		dump(os.Stdout, res, compiler.RenderOptions{Resolution: cfg.Resolution})
	},
}

var runCmd = &cobra.Command{
	Use:   "run [file.jack|file.vm|dir]...",
	Short: "Compile if needed and execute a program on the VM",
	Long:  `Link the given classes and run them from Sys.init or Main.main, printing Output to stdout.`,
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig(cmd)

		prog, err := build.Program(context.Background(), cfg.Jobs, args...)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		if cfg.Verbose {
			log.Printf("loaded %d instructions, %d functions, %d statics", len(prog.Code), len(prog.Functions), prog.StaticsUsed)
		}

		m, err := execute(prog, cfg.MaxSteps, os.Stdout, resume)
		if screenshot != "" && m != nil {
			if serr := m.SaveScreenshot(screenshot); serr != nil {
				log.Printf("Failed to save screenshot: %v", serr)
			}
		}
		if hibernate != "" && m != nil {
			if herr := m.HibernateToFile(hibernate); herr != nil {
				log.Printf("Failed to hibernate: %v", herr)
			} else if cfg.Verbose {
				log.Printf("state saved to %s", hibernate)
			}
		}
		if err != nil {
			fmt.Fprintln(os.Stderr)
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		if cfg.Verbose {
			log.Printf("halted after %d steps, result %d", m.Steps, m.Result())
		}
	},
}

// execute runs prog, first restoring the state in resumeFrom when it is
// set. maxSteps counts from the start of the first run.
func execute(prog *vm.Program, maxSteps int, out io.Writer, resumeFrom string) (*vm.VM, error) {
	m, err := vm.New(prog)
	if err != nil {
		return nil, err
	}
	if resumeFrom != "" {
		if err := m.RestoreFromFile(resumeFrom); err != nil {
			return nil, err
		}
	}
	m.Output = out
	m.Wait = func(ms int) { time.Sleep(time.Duration(ms) * time.Millisecond) }
	return m, m.Run(maxSteps)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
