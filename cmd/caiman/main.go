package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/codeassociates/caiman/builtin"
	"github.com/codeassociates/caiman/diag"
	"github.com/codeassociates/caiman/interp"
	"github.com/codeassociates/caiman/lexer"
	"github.com/codeassociates/caiman/parser"
)

const version = "0.1.0"

func main() {
	showVersion := flag.Bool("version", false, "Print version and exit")
	watch := flag.Bool("watch", false, "Re-run the program when the source file changes")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "caiman - The caiman interpreter\n\n")
		fmt.Fprintf(os.Stderr, "Usage: %s [options] [input%s]\n\n", os.Args[0], interp.SourceExt)
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	if *showVersion {
		fmt.Printf("caiman version %s\n", version)
		os.Exit(0)
	}

	inputFile := "main" + interp.SourceExt
	if flag.NArg() >= 1 {
		inputFile = flag.Arg(0)
	}

	if *watch {
		watchLoop(inputFile)
		return
	}

	if err := runFile(inputFile); err != nil {
		fmt.Fprint(os.Stderr, err.Render())
		os.Exit(1)
	}
}

// runFile pushes a source file through the whole pipeline.
func runFile(path string) *diag.Error {
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

	i := interp.New(builtin.GetModule)
	i.SetImportBase(filepath.Dir(path))
	return i.Run(block)
}

// watchLoop re-runs the program on every write to the source file.
func watchLoop(path string) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot start the watcher: %s\n", err)
		os.Exit(1)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		fmt.Fprintf(os.Stderr, "cannot watch %s: %s\n", path, err)
		os.Exit(1)
	}

	runOnce := func() {
		if err := runFile(path); err != nil {
			fmt.Fprint(os.Stderr, err.Render())
		}
	}
	runOnce()

	target := filepath.Clean(path)
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op.Has(fsnotify.Write) || event.Op.Has(fsnotify.Create) {
				fmt.Printf("-- %s changed, re-running\n", path)
				runOnce()
			}
		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return
			}
			fmt.Fprintf(os.Stderr, "watch error: %s\n", watchErr)
		}
	}
}
