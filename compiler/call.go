package compiler

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/codeassociates/caiman/ast"
	"github.com/codeassociates/caiman/diag"
	"github.com/codeassociates/caiman/symbol"
)

// declareFunction lowers a signature. Aggregate parameters become
// pointer parameters; an aggregate return becomes a leading sret pointer
// parameter and the function returns void.
func (c *Codegen) declareFunction(n *ast.FunctionDecl) *diag.Error {
	if err := c.Table.RegisterDecl(n.Name, n.Decl); err != nil {
		return diag.New(n.Pos(), err.Error())
	}

	var params []*ir.Param
	sret := n.Decl.Return != nil && isAggregate(*n.Decl.Return)

	retType := types.Type(types.Void)
	if n.Decl.Return != nil && !sret {
		retType = c.lowerType(*n.Decl.Return)
	}

	if sret {
		param := ir.NewParam("sret", types.NewPointer(c.lowerType(*n.Decl.Return)))
		param.Attrs = append(param.Attrs, ir.SRet{Typ: c.lowerType(*n.Decl.Return)})
		params = append(params, param)
	}

	for _, arg := range n.Decl.Args {
		lowered := c.lowerType(arg.Type)
		if isAggregate(arg.Type) {
			params = append(params, ir.NewParam(arg.Name, types.NewPointer(lowered)))
		} else {
			params = append(params, ir.NewParam(arg.Name, lowered))
		}
	}

	fn := c.Module.NewFunc(n.Name, retType, params...)
	c.functions[n.Name] = &fnInfo{decl: n.Decl, fn: fn, sret: sret}
	return nil
}

// emitFunctionBody fills a declared function. Every parameter gets a
// local alloca; aggregates are memcpy'd so callee mutation cannot alias
// the caller.
func (c *Codegen) emitFunctionBody(n *ast.FunctionDecl) *diag.Error {
	info := c.functions[n.Name]

	savedFn, savedEntry, savedCur, savedSret := c.fn, c.entry, c.cur, c.sretPtr
	savedCond, savedEnd := c.loopCond, c.loopEnd
	defer func() {
		c.fn, c.entry, c.cur, c.sretPtr = savedFn, savedEntry, savedCur, savedSret
		c.loopCond, c.loopEnd = savedCond, savedEnd
	}()

	c.fn = info.fn
	c.entry = info.fn.NewBlock("entry")
	c.cur = c.entry
	c.sretPtr = nil
	c.loopCond, c.loopEnd = nil, nil

	params := info.fn.Params
	if info.sret {
		c.sretPtr = params[0]
		params = params[1:]
	}

	saved := c.Table.PopSymbols()
	defer c.Table.PushSymbols(saved)
	c.Table.PushScope()
	defer c.Table.PopScope()

	for index, arg := range n.Decl.Args {
		param := params[index]
		lowered := c.lowerType(arg.Type)
		slot := c.alloca(lowered)

		if isAggregate(arg.Type) {
			c.cur.NewCall(c.runtime["memcpy"],
				c.cur.NewBitCast(slot, types.I8Ptr),
				c.cur.NewBitCast(param, types.I8Ptr),
				c.sizeOf(lowered))
		} else {
			c.cur.NewStore(param, slot)
		}

		if err := c.Table.InsertSymbol(arg.Name, Value{V: slot, T: arg.Type}); err != nil {
			return diag.New(n.Pos(), err.Error())
		}
	}

	terminated := false
	for _, child := range n.Body.Children {
		res, err := c.emit(child)
		if err != nil {
			return err
		}
		switch res.(type) {
		case ReturnResult:
			terminated = true
		case BreakResult:
			return diag.New(child.Pos(), "cannot exit a function with a break")
		case ContinueResult:
			return diag.New(child.Pos(), "cannot use continue in a function")
		default:
			continue
		}
		break
	}

	// falling off the end of a void function
	if !terminated {
		if n.Decl.Return != nil {
			return diag.Newf(n.Pos(), "function %s doesn't always return a value", n.Name)
		}
		c.cur.NewRet(nil)
	}
	return nil
}

func (c *Codegen) emitReturn(n *ast.Return) (Result, *diag.Error) {
	info, inFunction := c.functions[c.fn.Name()]
	if !inFunction {
		return nil, diag.New(n.Pos(), "can't return a value outside of a function")
	}

	if info.decl.Return == nil {
		if n.Expr != nil {
			return nil, diag.New(n.Pos(), "function shouldn't return a value")
		}
		c.cur.NewRet(nil)
		return ReturnResult{}, nil
	}

	if n.Expr == nil {
		return nil, diag.New(n.Pos(), "function didn't return a value")
	}

	res, err := c.emit(n.Expr)
	if err != nil {
		return nil, err
	}
	v, err := c.asValue(res, n.Pos())
	if err != nil {
		return nil, err
	}
	if !v.T.Equals(*info.decl.Return) {
		return nil, diag.New(n.Pos(), "function returned a value of the wrong type")
	}

	if info.sret {
		c.storeInto(c.sretPtr, v)
		c.cur.NewRet(nil)
	} else {
		c.cur.NewRet(v.V)
	}
	return ReturnResult{}, nil
}

func (c *Codegen) emitFunctionCall(n *ast.FunctionCall) (Result, *diag.Error) {
	// method calls resolve through the receiver's type name
	var receiver *Value
	name := n.Name
	if n.Method != nil {
		res, err := c.emit(n.Method)
		if err != nil {
			return nil, err
		}
		ptr, t, err := c.asPtr(res, n.Pos())
		if err != nil {
			return nil, err
		}
		// auto-deref down to the concrete receiver
		for t.Kind == symbol.Ref {
			ptr = c.cur.NewLoad(c.lowerType(t), ptr)
			t = *t.Elem
		}

		switch t.Kind {
		case symbol.Struct:
			name = symbol.MangleMethod(t.Name, n.Name)
			receiver = &Value{V: ptr, T: symbol.RefTo(t)}
		case symbol.Str:
			return c.emitStrMethod(n, ptr)
		case symbol.Array:
			return c.emitArrayMethod(n, ptr)
		default:
			return nil, diag.Newf(n.Pos(), "no method called %s", n.Name)
		}
	}

	info, ok := c.functions[name]
	if !ok {
		if builtin, found := c.builtinCall(name); found {
			return c.emitBuiltinCall(n, builtin)
		}
		return nil, diag.Newf(n.Pos(), "no function called %s", name)
	}

	declared := info.decl.Args
	supplied := len(n.Args)
	if receiver != nil {
		supplied++
	}
	if supplied != len(declared) {
		plural := "s"
		if len(declared) < 2 {
			plural = ""
		}
		return nil, diag.Newf(n.Pos(),
			"mismatched number of arguments in function call\nExpected %d parameter%s but got %d",
			len(declared), plural, supplied)
	}

	var args []value.Value
	var sretSlot value.Value

	if info.sret {
		sretSlot = c.alloca(c.lowerType(*info.decl.Return))
		args = append(args, sretSlot)
	}

	argIndex := 0
	appendArg := func(v Value, pos diag.Pos) *diag.Error {
		if !v.T.Equals(declared[argIndex].Type) {
			return diag.Newf(pos, "parameter %d doesn't match function definition", argIndex+1)
		}
		args = append(args, v.V)
		argIndex++
		return nil
	}

	if receiver != nil {
		if err := appendArg(*receiver, n.Pos()); err != nil {
			return nil, err
		}
	}
	for _, argNode := range n.Args {
		res, err := c.emit(argNode)
		if err != nil {
			return nil, err
		}
		v, err := c.asValue(res, argNode.Pos())
		if err != nil {
			return nil, err
		}
		// aggregates travel behind a pointer
		if isAggregate(v.T) {
			ptr, _, perr := c.asPtr(res, argNode.Pos())
			if perr != nil {
				return nil, perr
			}
			v.V = ptr
		}
		if err := appendArg(v, argNode.Pos()); err != nil {
			return nil, err
		}
	}

	call := c.cur.NewCall(info.fn, args...)

	switch {
	case info.sret:
		return ValueResult{Value{V: sretSlot, T: *info.decl.Return}}, nil
	case info.decl.Return != nil:
		return ValueResult{Value{V: call, T: *info.decl.Return}}, nil
	default:
		return VoidResult{}, nil
	}
}

// builtinCall maps the compile-target subset of the global module onto
// runtime helpers.
func (c *Codegen) builtinCall(name string) (*ir.Func, bool) {
	switch name {
	case "print":
		return c.runtime["_caiman_print"], true
	case "println":
		return c.runtime["_caiman_println"], true
	case "eprint":
		return c.runtime["_caiman_eprint"], true
	case "eprintln":
		return c.runtime["_caiman_eprintln"], true
	case "assert":
		return c.runtime["_caiman_assert"], true
	}
	return nil, false
}

func (c *Codegen) emitBuiltinCall(n *ast.FunctionCall, fn *ir.Func) (Result, *diag.Error) {
	if len(n.Args) != 1 {
		return nil, diag.Newf(n.Pos(),
			"mismatched number of arguments in function call\nExpected 1 parameter but got %d", len(n.Args))
	}

	res, err := c.emit(n.Args[0])
	if err != nil {
		return nil, err
	}

	if n.Name == "assert" {
		v, err := c.asValue(res, n.Pos())
		if err != nil {
			return nil, err
		}
		if v.T.Kind != symbol.Bool {
			return nil, diag.New(n.Pos(), "parameter 1 doesn't match function definition")
		}
		c.cur.NewCall(fn, v.V)
		return VoidResult{}, nil
	}

	ptr, t, err := c.asPtr(res, n.Pos())
	if err != nil {
		return nil, err
	}
	if t.Kind != symbol.Str {
		return nil, diag.New(n.Pos(), "parameter 1 doesn't match function definition")
	}
	c.cur.NewCall(fn, ptr)
	return VoidResult{}, nil
}

// emitStrMethod lowers the str methods the compile target supports.
func (c *Codegen) emitStrMethod(n *ast.FunctionCall, record value.Value) (Result, *diag.Error) {
	switch n.Name {
	case "len":
		if len(n.Args) != 0 {
			return nil, diag.New(n.Pos(), "mismatched number of arguments in function call\nExpected 0 parameter but got 1")
		}
		length := c.strField(record, 1)
		trunc := c.cur.NewTrunc(length, types.I32)
		return ValueResult{Value{V: trunc, T: symbol.NumType()}}, nil
	}
	err := diag.Newf(n.Pos(), "the %s method is not available on this compile target", n.Name)
	err.SetKind(diag.CompileTarget)
	return nil, err
}

// emitArrayMethod lowers the array methods the compile target supports.
func (c *Codegen) emitArrayMethod(n *ast.FunctionCall, record value.Value) (Result, *diag.Error) {
	switch n.Name {
	case "len":
		length := c.strField(record, 1)
		trunc := c.cur.NewTrunc(length, types.I32)
		return ValueResult{Value{V: trunc, T: symbol.NumType()}}, nil
	}
	err := diag.Newf(n.Pos(), "the %s method is not available on this compile target", n.Name)
	err.SetKind(diag.CompileTarget)
	return nil, err
}

// emitImport handles top-level imports: the builtin surface above is
// always available, so global imports are no-ops; other modules and
// relative imports are not part of the compile target.
func (c *Codegen) emitImport(n *ast.Import) *diag.Error {
	if n.Name == "global" {
		return nil
	}
	err := diag.Newf(n.Pos(), "cannot import %s on this compile target", n.Name)
	err.SetKind(diag.CompileTarget)
	return err
}
