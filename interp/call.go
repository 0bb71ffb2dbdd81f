package interp

import (
	"github.com/codeassociates/caiman/ast"
	"github.com/codeassociates/caiman/diag"
	"github.com/codeassociates/caiman/symbol"
)

func (i *Interpreter) evalFunctionCall(n *ast.FunctionCall) (Result, *diag.Error) {
	args := make([]Value, 0, len(n.Args)+1)
	for _, arg := range n.Args {
		value, err := i.evalValue(arg)
		if err != nil {
			return nil, err
		}
		if value == nil {
			return nil, diag.New(arg.Pos(), "cannot pass a void value as an argument")
		}
		args = append(args, value)
	}

	var fn *FunctionValue
	declHasSelf := false
	prepended := false

	if n.Method != nil {
		resolved, err := i.resolveMethod(n)
		if err != nil {
			return nil, err
		}
		fn = resolved.fn
		declHasSelf = resolved.declHasSelf
		if resolved.receiver != nil {
			args = append([]Value{resolved.receiver}, args...)
			prepended = true
		}
	} else {
		resolved, err := i.lookupFunction(n.Name, n.Namespace)
		if err != nil {
			return nil, diag.New(n.Pos(), err.Error())
		}
		fn = resolved
	}

	if err := i.checkCallArgs(fn, args, prepended, declHasSelf, n.Pos()); err != nil {
		return nil, err
	}

	if fn.Builtin != nil {
		value, err := fn.Builtin(args)
		if err != nil {
			return nil, err
		}
		if value == nil {
			return VoidResult{}, nil
		}
		return ValueResult{value}, nil
	}
	return i.callUserFunction(fn, args, n.Pos())
}

type resolvedMethod struct {
	fn *FunctionValue
	// receiver is prepended to the call's arguments; nil for the
	// module-qualified fallback, which is a plain function in disguise.
	receiver Value
	// declHasSelf marks declarations whose argument list already counts
	// the receiver (user struct methods). Builtin method declarations
	// leave the receiver out.
	declHasSelf bool
}

// resolveMethod resolves a .name(args) call: the receiver is
// auto-dereferenced and its type name mangled into the function lookup.
// When the receiver chain is a bare unbound identifier, the call falls
// back to a module-qualified function, which is how fs.read_file(..)
// resolves.
func (i *Interpreter) resolveMethod(n *ast.FunctionCall) (resolvedMethod, *diag.Error) {
	res, evalErr := i.eval(n.Method)

	if evalErr != nil {
		// module-qualified fallback: fs.read_file("..") parses as a
		// method on the unbound variable fs
		if varCall, ok := n.Method.(*ast.VarCall); ok {
			qualified := varCall.Name + "." + n.Name
			if fn, err := i.lookupFunction(qualified, ""); err == nil {
				return resolvedMethod{fn: fn}, nil
			}
		}
		return resolvedMethod{}, evalErr
	}

	// normalize the receiver to at most one reference level, so a &Point
	// receiver and a Point variable both arrive as &Point
	var receiver Value
	switch r := res.(type) {
	case VariableResult:
		receiver = RefValue{Cell: autoDerefCell(r.Cell)}
	case ValueResult:
		if ref, ok := r.Value.(RefValue); ok {
			receiver = RefValue{Cell: autoDerefCell(ref.Cell)}
		} else {
			receiver = r.Value
		}
	default:
		return resolvedMethod{}, diag.New(n.Pos(), "cannot call a method on this expression")
	}

	concrete := autoDeref(receiver)

	var mangled string
	switch v := concrete.(type) {
	case *StructValue:
		mangled = symbol.MangleMethod(v.TypeName, n.Name)
	case *ArrayValue:
		mangled = symbol.MangleMethod("array", n.Name)
	case Primitive:
		switch v.Literal.Kind {
		case symbol.Str:
			mangled = symbol.MangleMethod("str", n.Name)
		case symbol.Num:
			mangled = symbol.MangleMethod("num", n.Name)
		case symbol.Fnum:
			mangled = symbol.MangleMethod("fnum", n.Name)
		case symbol.Bool:
			mangled = symbol.MangleMethod("bool", n.Name)
		}
	}
	if mangled == "" {
		return resolvedMethod{}, diag.Newf(n.Pos(), "no method called %s", n.Name)
	}

	fn, err := i.lookupFunction(mangled, "")
	if err != nil {
		return resolvedMethod{}, diag.Newf(n.Pos(), "no method called %s", n.Name)
	}

	// builtin receivers are passed by value; struct methods get the
	// reference so they can mutate self
	if fn.Builtin != nil {
		if _, isStruct := concrete.(*StructValue); !isStruct {
			receiver = concrete
		}
		return resolvedMethod{fn: fn, receiver: receiver}, nil
	}

	// a temporary receiver still needs a cell for the self reference
	if _, isRef := receiver.(RefValue); !isRef {
		receiver = RefValue{Cell: NewCell(receiver)}
	}
	return resolvedMethod{fn: fn, receiver: receiver, declHasSelf: true}, nil
}

// lookupFunction finds a callable by name, preferring the namespaced
// form.
func (i *Interpreter) lookupFunction(name, namespace string) (*FunctionValue, error) {
	if namespace != "" {
		if fn, ok := i.functions[namespace+"."+name]; ok {
			return fn, nil
		}
	}
	if fn, ok := i.functions[name]; ok {
		return fn, nil
	}
	// produce the declaration error for a consistent message
	if _, err := i.Table.GetFunctionDecl(name); err != nil {
		return nil, err
	}
	return nil, diag.FromKind("no function called "+name, diag.Runtime)
}

// checkCallArgs validates arity and argument types against the
// declaration. Builtin method declarations leave the receiver out of the
// declared arguments, so a prepended receiver is skipped for them.
func (i *Interpreter) checkCallArgs(fn *FunctionValue, args []Value, prepended, declHasSelf bool, pos diag.Pos) *diag.Error {
	declared := fn.Decl.Args
	offset := 0
	if prepended && !declHasSelf {
		offset = 1
	}

	if len(args)-offset != len(declared) {
		plural := "s"
		if len(declared) < 2 {
			plural = ""
		}
		return diag.Newf(pos,
			"mismatched number of arguments in function call\nExpected %d parameter%s but got %d",
			len(declared), plural, len(args)-offset)
	}

	for index, decl := range declared {
		arg := args[index+offset]
		if !arg.Type().Equals(decl.Type) {
			// don't count self as a user-facing parameter
			shown := index + 1
			if declHasSelf {
				shown = index
			}
			return diag.Newf(pos, "parameter %d doesn't match function definition", shown)
		}
	}
	return nil
}

// callUserFunction runs a declared function body. The caller's scope
// stack is swapped out so the callee only sees globals plus its own
// arguments.
func (i *Interpreter) callUserFunction(fn *FunctionValue, args []Value, pos diag.Pos) (Result, *diag.Error) {
	saved := i.Table.PopSymbols()
	defer i.Table.PushSymbols(saved)

	i.Table.PushScope()
	defer i.Table.PopScope()

	for index, decl := range fn.Decl.Args {
		if err := i.Table.InsertSymbol(decl.Name, NewCell(args[index])); err != nil {
			return nil, diag.New(pos, err.Error())
		}
	}

	// the body's own scope push is subsumed by the argument scope
	var returned Value
	for _, child := range fn.Body.Children {
		res, err := i.eval(child)
		if err != nil {
			return nil, err
		}
		switch r := res.(type) {
		case ReturnResult:
			returned = r.Value
		case BreakResult:
			return nil, diag.New(pos, "cannot exit a function with a break")
		case ContinueResult:
			return nil, diag.New(pos, "cannot use continue in a function")
		default:
			continue
		}
		break
	}

	if fn.Decl.Return == nil {
		if returned != nil {
			return nil, diag.New(pos, "function shouldn't return a value")
		}
		return VoidResult{}, nil
	}
	if returned == nil {
		return nil, diag.New(pos, "function didn't return a value")
	}
	if !returned.Type().Equals(*fn.Decl.Return) {
		return nil, diag.New(pos, "function returned a value of the wrong type")
	}
	return ValueResult{returned}, nil
}
