package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/codeassociates/caiman/compiler"
	"github.com/codeassociates/caiman/diag"
	"github.com/codeassociates/caiman/interp"
	"github.com/codeassociates/caiman/lexer"
	"github.com/codeassociates/caiman/linker"
	"github.com/codeassociates/caiman/parser"
)

const version = "0.1.0"

func main() {
	showVersion := flag.Bool("version", false, "Print version and exit")
	optLevel := flag.Int("O", 0, "Optimization level (0-3)")
	emitAsm := flag.Bool("S", false, "Emit an assembly listing")
	emitObject := flag.Bool("c", false, "Emit an object file")
	emitLLVM := flag.Bool("emit-llvm", false, "Emit LLVM IR")
	outputFile := flag.String("o", "", "Output path")
	verbose := flag.Bool("verbose", false, "Print the toolchain invocations")
	noLLVMChecks := flag.Bool("no-llvm-checks", false, "Disable the LLVM verifier")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "caimanc - The caiman compiler\n\n")
		fmt.Fprintf(os.Stderr, "Usage: %s [options] [input%s]\n\n", os.Args[0], interp.SourceExt)
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}

	// accept the compact -O2 spelling beside -O 2
	args := make([]string, 0, len(os.Args)-1)
	for _, arg := range os.Args[1:] {
		if len(arg) == 3 && strings.HasPrefix(arg, "-O") && arg[2] >= '0' && arg[2] <= '9' {
			arg = "-O=" + arg[2:]
		}
		args = append(args, arg)
	}
	flag.CommandLine.Parse(args)

	if *showVersion {
		fmt.Printf("caimanc version %s\n", version)
		os.Exit(0)
	}

	emissions := 0
	for _, enabled := range []bool{*emitAsm, *emitObject, *emitLLVM} {
		if enabled {
			emissions++
		}
	}
	if emissions > 1 {
		fmt.Fprintln(os.Stderr, "-S, -c and -emit-llvm are mutually exclusive")
		os.Exit(1)
	}
	if *optLevel < 0 || *optLevel > 3 {
		fmt.Fprintln(os.Stderr, "the optimization level must be between 0 and 3")
		os.Exit(1)
	}

	inputFile := "main" + interp.SourceExt
	if flag.NArg() >= 1 {
		inputFile = flag.Arg(0)
	}

	if err := build(inputFile, buildOptions{
		optLevel:     *optLevel,
		emitAsm:      *emitAsm,
		emitObject:   *emitObject,
		emitLLVM:     *emitLLVM,
		output:       *outputFile,
		verbose:      *verbose,
		noLLVMChecks: *noLLVMChecks,
	}); err != nil {
		fmt.Fprint(os.Stderr, err.Render())
		os.Exit(1)
	}
}

type buildOptions struct {
	optLevel     int
	emitAsm      bool
	emitObject   bool
	emitLLVM     bool
	output       string
	verbose      bool
	noLLVMChecks bool
}

// build runs the front end, lowers to LLVM IR and drives the linker to
// the requested artifact.
func build(path string, opts buildOptions) *diag.Error {
	contents, readErr := os.ReadFile(path)
	if readErr != nil {
		return diag.FromKind(fmt.Sprintf("cannot open the file %s", path), diag.Io)
	}

	l := lexer.New()
	l.SetFile(path)
	tokens, err := l.Process(string(contents))
	if err != nil {
		return err
	}

	p := parser.New()
	block, err := p.Process(tokens)
	if err != nil {
		return err
	}

	module, err := compiler.New().Compile(block)
	if err != nil {
		return err
	}

	stem := strings.TrimSuffix(path, interp.SourceExt)

	// intermediate artifacts sit next to the source unless -o overrides
	target := func(ext string) string {
		if opts.output != "" {
			return opts.output
		}
		return stem + ext
	}

	if opts.emitLLVM {
		out := target(".ll")
		if writeErr := os.WriteFile(out, []byte(module.String()), 0o644); writeErr != nil {
			return diag.FromKind("cannot write "+out, diag.Io)
		}
		fmt.Printf("Wrote %s\n", out)
		return nil
	}

	driver, err := linker.Find()
	if err != nil {
		return err
	}
	driver.Verbose = opts.verbose
	driver.NoLLVMChecks = opts.noLLVMChecks

	llPath := filepath.Join(filepath.Dir(path), "caiman_"+filepath.Base(stem)+".ll")
	if writeErr := os.WriteFile(llPath, []byte(module.String()), 0o644); writeErr != nil {
		return diag.FromKind("cannot write "+llPath, diag.Io)
	}
	defer os.Remove(llPath)

	switch {
	case opts.emitAsm:
		out := target(".asm")
		if err := driver.EmitAsm(llPath, out, opts.optLevel); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", out)

	case opts.emitObject:
		out := target(".o")
		if err := driver.EmitObject(llPath, out, opts.optLevel); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", out)

	default:
		out := opts.output
		if out == "" {
			out = linker.ExecutableName(stem)
		}
		if err := driver.Link(llPath, out, opts.optLevel); err != nil {
			return err
		}
		fmt.Printf("Built %s\n", out)
	}
	return nil
}
