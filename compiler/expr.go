package compiler

import (
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/codeassociates/caiman/ast"
	"github.com/codeassociates/caiman/diag"
	"github.com/codeassociates/caiman/lexer"
	"github.com/codeassociates/caiman/symbol"
)

// emitArithmetic lowers the five binary arithmetic nodes. The compiler
// never inserts conversions: operand kinds must match exactly.
func (c *Codegen) emitArithmetic(node ast.Node) (Result, *diag.Error) {
	var left, right ast.Node
	pos := node.Pos()

	switch n := node.(type) {
	case *ast.Plus:
		left, right = n.Left, n.Right
	case *ast.Minus:
		left, right = n.Left, n.Right
	case *ast.Multiplicate:
		left, right = n.Left, n.Right
	case *ast.Divide:
		left, right = n.Left, n.Right
	case *ast.Power:
		left, right = n.Left, n.Right
	}

	lres, err := c.emit(left)
	if err != nil {
		return nil, err
	}
	lv, err := c.asValue(lres, pos)
	if err != nil {
		return nil, err
	}
	rres, err := c.emit(right)
	if err != nil {
		return nil, err
	}
	rv, err := c.asValue(rres, pos)
	if err != nil {
		return nil, err
	}

	fail := func(verb string) *diag.Error {
		return diag.Newf(pos, "cannot %s these two types together", verb)
	}

	switch node.(type) {
	case *ast.Plus:
		switch {
		case lv.T.Kind == symbol.Num && rv.T.Kind == symbol.Num:
			return numValueOf(c.cur.NewAdd(lv.V, rv.V)), nil
		case lv.T.Kind == symbol.Fnum && rv.T.Kind == symbol.Fnum:
			return fnumValueOf(c.cur.NewFAdd(lv.V, rv.V)), nil
		case lv.T.Kind == symbol.Str && rv.T.Kind == symbol.Str:
			return c.emitStrConcat(lv, rv), nil
		}
		return nil, fail("add")

	case *ast.Minus:
		switch {
		case lv.T.Kind == symbol.Num && rv.T.Kind == symbol.Num:
			return numValueOf(c.cur.NewSub(lv.V, rv.V)), nil
		case lv.T.Kind == symbol.Fnum && rv.T.Kind == symbol.Fnum:
			return fnumValueOf(c.cur.NewFSub(lv.V, rv.V)), nil
		}
		return nil, fail("subtract")

	case *ast.Multiplicate:
		switch {
		case lv.T.Kind == symbol.Num && rv.T.Kind == symbol.Num:
			return numValueOf(c.cur.NewMul(lv.V, rv.V)), nil
		case lv.T.Kind == symbol.Fnum && rv.T.Kind == symbol.Fnum:
			return fnumValueOf(c.cur.NewFMul(lv.V, rv.V)), nil
		}
		return nil, fail("multiply")

	case *ast.Divide:
		switch {
		case lv.T.Kind == symbol.Num && rv.T.Kind == symbol.Num:
			return numValueOf(c.cur.NewSDiv(lv.V, rv.V)), nil
		case lv.T.Kind == symbol.Fnum && rv.T.Kind == symbol.Fnum:
			return fnumValueOf(c.cur.NewFDiv(lv.V, rv.V)), nil
		}
		return nil, fail("divide")

	case *ast.Power:
		switch {
		case lv.T.Kind == symbol.Num && rv.T.Kind == symbol.Num:
			return c.emitNumPower(lv, rv), nil
		case lv.T.Kind == symbol.Fnum && rv.T.Kind == symbol.Fnum:
			powf := c.powfIntrinsic()
			return fnumValueOf(c.cur.NewCall(powf, lv.V, rv.V)), nil
		}
		return nil, fail("raise")
	}

	return nil, diag.New(pos, "unknown arithmetic node")
}

func (c *Codegen) emitCompare(n *ast.Compare) (Result, *diag.Error) {
	lres, err := c.emit(n.Left)
	if err != nil {
		return nil, err
	}
	lv, err := c.asValue(lres, n.Pos())
	if err != nil {
		return nil, err
	}
	rres, err := c.emit(n.Right)
	if err != nil {
		return nil, err
	}
	rv, err := c.asValue(rres, n.Pos())
	if err != nil {
		return nil, err
	}

	if !lv.T.Equals(rv.T) {
		return nil, diag.New(n.Pos(), "cannot compare different types")
	}
	if !lv.T.IsPrimitive() {
		return nil, diag.New(n.Pos(), "can only compare primitives")
	}

	isEquality := n.Op == lexer.EQ || n.Op == lexer.NEQ
	if !isEquality && !lv.T.IsNumeric() {
		return nil, diag.New(n.Pos(), "can compare only numbers")
	}

	// string equality goes through the runtime
	if lv.T.Kind == symbol.Str {
		eq := c.cur.NewCall(c.runtime["_caiman_str_eq"], lv.V, rv.V)
		if n.Op == lexer.NEQ {
			return boolValue(c.cur.NewXor(eq, oneBit())), nil
		}
		return boolValue(eq), nil
	}

	if lv.T.Kind == symbol.Fnum {
		var pred enum.FPred
		switch n.Op {
		case lexer.EQ:
			pred = enum.FPredOEQ
		case lexer.NEQ:
			pred = enum.FPredONE
		case lexer.GT:
			pred = enum.FPredOGT
		case lexer.GE:
			pred = enum.FPredOGE
		case lexer.LT:
			pred = enum.FPredOLT
		case lexer.LE:
			pred = enum.FPredOLE
		}
		return boolValue(c.cur.NewFCmp(pred, lv.V, rv.V)), nil
	}

	var pred enum.IPred
	switch n.Op {
	case lexer.EQ:
		pred = enum.IPredEQ
	case lexer.NEQ:
		pred = enum.IPredNE
	case lexer.GT:
		pred = enum.IPredSGT
	case lexer.GE:
		pred = enum.IPredSGE
	case lexer.LT:
		pred = enum.IPredSLT
	case lexer.LE:
		pred = enum.IPredSLE
	}
	return boolValue(c.cur.NewICmp(pred, lv.V, rv.V)), nil
}

func (c *Codegen) emitLogic(left, right ast.Node, isAnd bool, pos diag.Pos) (Result, *diag.Error) {
	lv, err := c.emitBoolOperand(left)
	if err != nil {
		return nil, err
	}
	rv, err := c.emitBoolOperand(right)
	if err != nil {
		return nil, err
	}
	if isAnd {
		return boolValue(c.cur.NewAnd(lv, rv)), nil
	}
	return boolValue(c.cur.NewOr(lv, rv)), nil
}

func (c *Codegen) emitBoolOperand(node ast.Node) (value.Value, *diag.Error) {
	res, err := c.emit(node)
	if err != nil {
		return nil, err
	}
	v, err := c.asValue(res, node.Pos())
	if err != nil {
		return nil, err
	}
	if v.T.Kind != symbol.Bool {
		return nil, diag.New(node.Pos(), "expected a bool for the condition")
	}
	return v.V, nil
}

func (c *Codegen) emitNot(n *ast.Not) (Result, *diag.Error) {
	v, err := c.emitBoolOperand(n.Child)
	if err != nil {
		return nil, err
	}
	return boolValue(c.cur.NewXor(v, oneBit())), nil
}

func (c *Codegen) emitUnaryMinus(n *ast.UnaryMinus) (Result, *diag.Error) {
	res, err := c.emit(n.Child)
	if err != nil {
		return nil, err
	}
	v, err := c.asValue(res, n.Pos())
	if err != nil {
		return nil, err
	}
	switch v.T.Kind {
	case symbol.Num:
		return numValueOf(c.cur.NewSub(zeroI32(), v.V)), nil
	case symbol.Fnum:
		return fnumValueOf(c.cur.NewFNeg(v.V)), nil
	}
	return nil, diag.New(n.Pos(), "cannot negate a value that isn't a number")
}

// emitAs lowers the primitive cast table with LLVM coercions; the str
// conversions call into the runtime.
func (c *Codegen) emitAs(n *ast.As) (Result, *diag.Error) {
	typeNode, ok := n.Target.(*ast.Type)
	if !ok {
		return nil, diag.New(n.Pos(), "expected a type after the as operator")
	}
	target := typeNode.T

	res, err := c.emit(n.Child)
	if err != nil {
		return nil, err
	}
	v, err := c.asValue(res, n.Pos())
	if err != nil {
		return nil, err
	}

	if !v.T.IsPrimitive() || !target.IsPrimitive() {
		return nil, diag.New(n.Pos(), "can only cast primitives together")
	}
	if v.T.Equals(target) {
		return nil, diag.New(n.Pos(), "redundant cast")
	}

	switch {
	case v.T.Kind == symbol.Bool && target.Kind == symbol.Num:
		return numValueOf(c.cur.NewZExt(v.V, types.I32)), nil

	case v.T.Kind == symbol.Num && target.Kind == symbol.Bool:
		return boolValue(c.cur.NewICmp(enum.IPredNE, v.V, zeroI32())), nil

	case v.T.Kind == symbol.Num && target.Kind == symbol.Fnum:
		return fnumValueOf(c.cur.NewSIToFP(v.V, types.Float)), nil

	case v.T.Kind == symbol.Fnum && target.Kind == symbol.Num:
		return numValueOf(c.cur.NewFPToSI(v.V, types.I32)), nil

	case target.Kind == symbol.Str:
		out := c.alloca(c.strType)
		switch v.T.Kind {
		case symbol.Num:
			c.cur.NewCall(c.runtime["_caiman_str_from_num"], v.V, out)
		case symbol.Fnum:
			c.cur.NewCall(c.runtime["_caiman_str_from_fnum"], v.V, out)
		case symbol.Bool:
			c.cur.NewCall(c.runtime["_caiman_str_from_bool"], v.V, out)
		}
		return ValueResult{Value{V: out, T: symbol.StrType()}}, nil

	case v.T.Kind == symbol.Str && target.Kind == symbol.Num:
		return numValueOf(c.cur.NewCall(c.runtime["_caiman_num_from_str"], v.V)), nil

	case v.T.Kind == symbol.Str && target.Kind == symbol.Fnum:
		return fnumValueOf(c.cur.NewCall(c.runtime["_caiman_fnum_from_str"], v.V)), nil

	case v.T.Kind == symbol.Str && target.Kind == symbol.Bool:
		length := c.strField(v.V, 1)
		return boolValue(c.cur.NewICmp(enum.IPredNE, length, zeroI64())), nil
	}

	return nil, diag.New(n.Pos(), "can only cast primitives together")
}
