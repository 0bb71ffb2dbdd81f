package interp

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/codeassociates/caiman/ast"
	"github.com/codeassociates/caiman/diag"
	"github.com/codeassociates/caiman/lexer"
	"github.com/codeassociates/caiman/parser"
)

// SourceExt is the file extension of caiman sources.
const SourceExt = ".cmn"

func (i *Interpreter) evalImport(n *ast.Import) (Result, *diag.Error) {
	// relative import: re-enter the pipeline on the file
	if strings.HasPrefix(n.Name, ".") {
		return i.importFile(n)
	}

	// builtin module
	if i.GetModule != nil {
		if module, ok := i.GetModule(n.Name); ok {
			i.registerModule(module, n.Name)
			return VoidResult{}, nil
		}
	}
	return nil, diag.Newf(n.Pos(), "%s module not found in the builtin library", n.Name)
}

// importFile lexes and parses the imported file with the import's last
// path segment as namespace, then evaluates it into the enclosing scope.
func (i *Interpreter) importFile(n *ast.Import) (Result, *diag.Error) {
	path := filepath.Join(i.importBase, n.Name+SourceExt)

	contents, readErr := os.ReadFile(path)
	if readErr != nil {
		err := diag.Newf(n.Pos(), "cannot find the file %s", n.Name+SourceExt)
		err.SetKind(diag.Io)
		return nil, err
	}

	namespace := filepath.Base(n.Name)

	l := lexer.New()
	l.SetFile(path)
	l.SetNamespace(namespace)
	tokens, err := l.Process(string(contents))
	if err != nil {
		return nil, err
	}

	// Keep discipline: the imported declarations land in our scope
	p := parser.New()
	p.SetScope(ast.ScopeKeep)
	block, err := p.Process(tokens)
	if err != nil {
		return nil, err
	}

	// nested relative imports resolve against the imported file
	savedBase := i.importBase
	i.importBase = filepath.Dir(path)
	defer func() { i.importBase = savedBase }()

	return i.eval(block)
}

// registerModule binds a builtin module's functions and variables into
// the global scope, prefixed with the namespace unless it is the global
// module.
func (i *Interpreter) registerModule(module *Module, namespace string) {
	if namespace == "global" {
		namespace = ""
	}

	for _, fn := range module.Functions {
		name := fn.Decl.Name
		if namespace != "" {
			name = namespace + "." + name
		}
		value := &FunctionValue{Decl: fn.Decl, Builtin: fn.Fn}
		i.Table.RegisterBuiltinFunction(fn.Decl, namespace, NewCell(Value(value)))
		i.functions[name] = value
	}

	for _, v := range module.Vars {
		name := v.Name
		if namespace != "" {
			name = namespace + "." + name
		}
		i.Table.InsertGlobalSymbol(name, NewCell(v.Value))
	}
}
