package compiler

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"

	"github.com/codeassociates/caiman/ast"
	"github.com/codeassociates/caiman/diag"
	"github.com/codeassociates/caiman/symbol"
)

// emit dispatches one node, mirroring the interpreter's visit table.
func (c *Codegen) emit(node ast.Node) (Result, *diag.Error) {
	switch n := node.(type) {
	case *ast.Block:
		return c.emitBlock(n)
	case *ast.Constant:
		return c.emitConstant(n)
	case *ast.Void:
		return VoidResult{}, nil
	case *ast.VarCall:
		return c.emitVarCall(n)
	case *ast.VarCopy:
		return c.emitVarCopy(n)
	case *ast.VarDecl:
		return c.emitVarDecl(n)
	case *ast.Assignment:
		return c.emitAssignment(n)
	case *ast.Ref:
		return c.emitRef(n)
	case *ast.Deref:
		return c.emitDeref(n)
	case *ast.DotField:
		return c.emitDotField(n)
	case *ast.ArrayCreate:
		return c.emitArrayCreate(n)
	case *ast.ArrayIndex:
		return c.emitArrayIndex(n)
	case *ast.StructCreate:
		return c.emitStructCreate(n)
	case *ast.FunctionCall:
		return c.emitFunctionCall(n)
	case *ast.Return:
		return c.emitReturn(n)
	case *ast.If:
		return c.emitIf(n)
	case *ast.While:
		return c.emitWhile(n)
	case *ast.Break:
		if c.loopEnd == nil {
			return nil, diag.New(n.Pos(), "cannot break outside a loop")
		}
		c.cur.NewBr(c.loopEnd)
		return BreakResult{}, nil
	case *ast.Continue:
		if c.loopCond == nil {
			return nil, diag.New(n.Pos(), "cannot continue outside a loop")
		}
		c.cur.NewBr(c.loopCond)
		return ContinueResult{}, nil
	case *ast.As:
		return c.emitAs(n)
	case *ast.Not:
		return c.emitNot(n)
	case *ast.UnaryMinus:
		return c.emitUnaryMinus(n)
	case *ast.Plus, *ast.Minus, *ast.Multiplicate, *ast.Divide, *ast.Power:
		return c.emitArithmetic(node)
	case *ast.Compare:
		return c.emitCompare(n)
	case *ast.And:
		return c.emitLogic(n.Left, n.Right, true, n.Pos())
	case *ast.Or:
		return c.emitLogic(n.Left, n.Right, false, n.Pos())
	case *ast.Type:
		return ValueResult{Value{T: symbol.MetaType()}}, nil
	case *ast.StructDecl, *ast.FunctionDecl, *ast.Import:
		// handled by the declaration passes
		return VoidResult{}, nil
	}
	return nil, diag.New(node.Pos(), "unknown node kind")
}

func (c *Codegen) emitBlock(block *ast.Block) (Result, *diag.Error) {
	if block.Scope != ast.ScopeKeep {
		c.Table.PushScope()
		defer c.Table.PopScope()
	}

	for _, child := range block.Children {
		res, err := c.emit(child)
		if err != nil {
			return nil, err
		}
		switch res.(type) {
		case ReturnResult, BreakResult, ContinueResult:
			return res, nil
		}
	}
	return VoidResult{}, nil
}

func (c *Codegen) emitConstant(n *ast.Constant) (Result, *diag.Error) {
	switch n.Value.Kind {
	case symbol.Bool:
		return ValueResult{Value{V: constant.NewBool(n.Value.Bool), T: symbol.BoolType()}}, nil
	case symbol.Num:
		return ValueResult{Value{V: constant.NewInt(types.I32, int64(n.Value.Num)), T: symbol.NumType()}}, nil
	case symbol.Fnum:
		return ValueResult{Value{V: constant.NewFloat(types.Float, float64(n.Value.Fnum)), T: symbol.FnumType()}}, nil
	case symbol.Str:
		record := c.stringLiteral(n.Value.Str)
		return ValueResult{Value{V: record, T: symbol.StrType()}}, nil
	}
	return nil, diag.New(n.Pos(), "unknown literal kind")
}

func (c *Codegen) resolveVariable(name, namespace string, pos diag.Pos) (Value, *diag.Error) {
	if namespace != "" {
		if v, err := c.Table.GetSymbol(namespace + "." + name); err == nil {
			return v, nil
		}
	}
	v, err := c.Table.GetSymbol(name)
	if err != nil {
		return Value{}, diag.Newf(pos, "variable %s has not been declared", name)
	}
	return v, nil
}

func (c *Codegen) emitVarCall(n *ast.VarCall) (Result, *diag.Error) {
	v, err := c.resolveVariable(n.Name, n.Namespace, n.Pos())
	if err != nil {
		return nil, err
	}
	return VariableResult{Ptr: v.V, T: v.T}, nil
}

func (c *Codegen) emitVarCopy(n *ast.VarCopy) (Result, *diag.Error) {
	v, err := c.resolveVariable(n.Name, n.Namespace, n.Pos())
	if err != nil {
		return nil, err
	}
	return c.copyOf(VariableResult{Ptr: v.V, T: v.T}, n.Pos())
}

// copyOf clones a variable's storage into a fresh temporary.
func (c *Codegen) copyOf(res VariableResult, pos diag.Pos) (Result, *diag.Error) {
	if !isAggregate(res.T) {
		load := c.cur.NewLoad(c.lowerType(res.T), res.Ptr)
		return ValueResult{Value{V: load, T: res.T}}, nil
	}
	lowered := c.lowerType(res.T)
	slot := c.alloca(lowered)
	c.cur.NewCall(c.runtime["memcpy"],
		c.cur.NewBitCast(slot, types.I8Ptr),
		c.cur.NewBitCast(res.Ptr, types.I8Ptr),
		c.sizeOf(lowered))
	return ValueResult{Value{V: slot, T: res.T}}, nil
}

func (c *Codegen) emitVarDecl(n *ast.VarDecl) (Result, *diag.Error) {
	var declType symbol.Type

	if n.Init != nil {
		res, err := c.emit(n.Init)
		if err != nil {
			return nil, err
		}
		v, err := c.asValue(res, n.Pos())
		if err != nil {
			return nil, err
		}
		if n.DeclType != nil && !v.T.Equals(*n.DeclType) {
			return nil, diag.Newf(n.Pos(),
				"the annotation of %s doesn't match the type of its value", n.Name)
		}
		declType = v.T

		slot := c.alloca(c.lowerType(declType))
		c.storeInto(slot, v)
		if err := c.Table.InsertSymbol(n.Name, Value{V: slot, T: declType}); err != nil {
			return nil, diag.New(n.Pos(), err.Error())
		}
		return VoidResult{}, nil
	}

	declType = *n.DeclType
	slot := c.alloca(c.lowerType(declType))
	if err := c.defaultInto(slot, declType, n.Pos()); err != nil {
		return nil, err
	}
	if err := c.Table.InsertSymbol(n.Name, Value{V: slot, T: declType}); err != nil {
		return nil, diag.New(n.Pos(), err.Error())
	}
	return VoidResult{}, nil
}

func (c *Codegen) emitAssignment(n *ast.Assignment) (Result, *diag.Error) {
	lres, err := c.emit(n.Lvalue)
	if err != nil {
		return nil, err
	}
	variable, ok := lres.(VariableResult)
	if !ok {
		return nil, diag.New(n.Pos(), "cannot assign to this expression")
	}

	rres, err := c.emit(n.Expr)
	if err != nil {
		return nil, err
	}
	v, err := c.asValue(rres, n.Pos())
	if err != nil {
		return nil, err
	}

	if !v.T.Equals(variable.T) {
		return nil, diag.New(n.Pos(), "cannot change the type of a variable")
	}

	c.storeInto(variable.Ptr, v)
	return VoidResult{}, nil
}

func (c *Codegen) emitRef(n *ast.Ref) (Result, *diag.Error) {
	res, err := c.emit(n.Child)
	if err != nil {
		return nil, err
	}
	variable, ok := res.(VariableResult)
	if !ok {
		return nil, diag.New(n.Pos(), "cannot borrow a temporary value")
	}
	return ValueResult{Value{V: variable.Ptr, T: symbol.RefTo(variable.T)}}, nil
}

func (c *Codegen) emitDeref(n *ast.Deref) (Result, *diag.Error) {
	res, err := c.emit(n.Child)
	if err != nil {
		return nil, err
	}
	v, err := c.asValue(res, n.Pos())
	if err != nil {
		return nil, err
	}
	pointee, ok := v.T.Deref()
	if !ok {
		return nil, diag.New(n.Pos(), "cannot dereference this variable")
	}
	return VariableResult{Ptr: v.V, T: pointee}, nil
}

func (c *Codegen) emitDotField(n *ast.DotField) (Result, *diag.Error) {
	res, err := c.emit(n.Child)
	if err != nil {
		return nil, err
	}
	ptr, t, err := c.asPtr(res, n.Pos())
	if err != nil {
		return nil, err
	}

	// auto-deref down to the struct
	for t.Kind == symbol.Ref {
		ptr = c.cur.NewLoad(c.lowerType(t), ptr)
		t = *t.Elem
	}

	if t.Kind != symbol.Struct {
		return nil, diag.New(n.Pos(), "field access on a non-struct value")
	}
	decl, declErr := c.Table.GetStructDecl(t.Name)
	if declErr != nil {
		return nil, diag.New(n.Pos(), declErr.Error())
	}

	index := decl.FieldIndex(n.Field)
	fieldType, hasType := decl.FieldType(n.Field)
	if index < 0 || !hasType {
		return nil, diag.Newf(n.Pos(), "no field named %s on this struct", n.Field)
	}

	field := c.cur.NewGetElementPtr(c.structs[t.Name], ptr,
		constant.NewInt(types.I32, 0), constant.NewInt(types.I32, int64(index)))
	return VariableResult{Ptr: field, T: fieldType}, nil
}

func (c *Codegen) emitIf(n *ast.If) (Result, *diag.Error) {
	end := c.fn.NewBlock(c.blockName("endif"))
	hasElse := len(n.Bodies) > len(n.Conditions)

	// when every branch returns and an else exists, the end block is
	// unreachable and the construct itself terminates
	allReturned := hasElse

	for index, cond := range n.Conditions {
		condRes, err := c.emit(cond)
		if err != nil {
			return nil, err
		}
		condValue, err := c.asValue(condRes, cond.Pos())
		if err != nil {
			return nil, err
		}
		if condValue.T.Kind != symbol.Bool {
			return nil, diag.New(cond.Pos(), "expected a bool for the condition")
		}

		then := c.fn.NewBlock(c.blockName(fmt.Sprintf("then_%d", index)))

		var next *ir.Block
		if index < len(n.Conditions)-1 {
			next = c.fn.NewBlock(c.blockName(fmt.Sprintf("if_%d", index+1)))
		} else if hasElse {
			next = c.fn.NewBlock(c.blockName("else"))
		} else {
			next = end
		}

		c.cur.NewCondBr(condValue.V, then, next)

		c.cur = then
		res, err := c.emit(n.Bodies[index])
		if err != nil {
			return nil, err
		}
		if _, returned := res.(ReturnResult); !returned {
			allReturned = false
		}
		if !isTerminated(res) {
			c.cur.NewBr(end)
		}

		c.cur = next
	}

	if hasElse {
		res, err := c.emit(n.Bodies[len(n.Bodies)-1])
		if err != nil {
			return nil, err
		}
		if _, returned := res.(ReturnResult); !returned {
			allReturned = false
		}
		if !isTerminated(res) {
			c.cur.NewBr(end)
		}
	} else if c.cur != end {
		c.cur.NewBr(end)
	}

	c.cur = end
	if allReturned {
		c.cur.NewUnreachable()
		return ReturnResult{}, nil
	}
	return VoidResult{}, nil
}

func (c *Codegen) emitWhile(n *ast.While) (Result, *diag.Error) {
	cond := c.fn.NewBlock(c.blockName("while_cond"))
	body := c.fn.NewBlock(c.blockName("while_body"))
	end := c.fn.NewBlock(c.blockName("while_end"))

	savedCond, savedEnd := c.loopCond, c.loopEnd
	c.loopCond, c.loopEnd = cond, end
	defer func() { c.loopCond, c.loopEnd = savedCond, savedEnd }()

	c.cur.NewBr(cond)

	c.cur = cond
	condRes, err := c.emit(n.Cond)
	if err != nil {
		return nil, err
	}
	condValue, err := c.asValue(condRes, n.Cond.Pos())
	if err != nil {
		return nil, err
	}
	if condValue.T.Kind != symbol.Bool {
		return nil, diag.New(n.Cond.Pos(), "expected a bool for the condition")
	}
	c.cur.NewCondBr(condValue.V, body, end)

	c.cur = body
	res, err := c.emit(n.Body)
	if err != nil {
		return nil, err
	}
	if !isTerminated(res) {
		c.cur.NewBr(cond)
	}

	c.cur = end
	return VoidResult{}, nil
}

func isTerminated(res Result) bool {
	switch res.(type) {
	case ReturnResult, BreakResult, ContinueResult:
		return true
	}
	return false
}

func (c *Codegen) blockName(base string) string {
	c.strCounter++
	return fmt.Sprintf("%s_%d", base, c.strCounter)
}
