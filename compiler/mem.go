package compiler

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/codeassociates/caiman/ast"
	"github.com/codeassociates/caiman/diag"
	"github.com/codeassociates/caiman/symbol"
)

func numValueOf(v value.Value) Result {
	return ValueResult{Value{V: v, T: symbol.NumType()}}
}

func fnumValueOf(v value.Value) Result {
	return ValueResult{Value{V: v, T: symbol.FnumType()}}
}

func boolValue(v value.Value) Result {
	return ValueResult{Value{V: v, T: symbol.BoolType()}}
}

func zeroI32() constant.Constant {
	return constant.NewInt(types.I32, 0)
}

func zeroI64() constant.Constant {
	return constant.NewInt(types.I64, 0)
}

func oneBit() constant.Constant {
	return constant.NewInt(types.I1, 1)
}

// emitStrConcat allocates a combined buffer and copies both sides into
// it through the runtime helper.
func (c *Codegen) emitStrConcat(a, b Value) Result {
	out := c.alloca(c.strType)
	c.cur.NewCall(c.runtime["_caiman_str_concat"], a.V, b.V, out)
	return ValueResult{Value{V: out, T: symbol.StrType()}}
}

// emitNumPower lowers num ^ num through the runtime, which rejects
// negative exponents.
func (c *Codegen) emitNumPower(a, b Value) Result {
	return numValueOf(c.cur.NewCall(c.runtime["_caiman_num_pow"], a.V, b.V))
}

// powfIntrinsic lazily declares llvm.pow.f32.
func (c *Codegen) powfIntrinsic() *ir.Func {
	if fn, ok := c.runtime["llvm.pow.f32"]; ok {
		return fn
	}
	fn := c.Module.NewFunc("llvm.pow.f32", types.Float,
		ir.NewParam("a", types.Float), ir.NewParam("b", types.Float))
	c.runtime["llvm.pow.f32"] = fn
	return fn
}

// defaultInto zero-initializes storage: zero scalars, empty records,
// recursively defaulted struct fields.
func (c *Codegen) defaultInto(dst value.Value, t symbol.Type, pos diag.Pos) *diag.Error {
	switch t.Kind {
	case symbol.Bool:
		c.cur.NewStore(constant.NewInt(types.I1, 0), dst)
	case symbol.Num:
		c.cur.NewStore(zeroI32(), dst)
	case symbol.Fnum:
		c.cur.NewStore(constant.NewFloat(types.Float, 0), dst)
	case symbol.Str, symbol.Array:
		c.storeStrRecord(dst, constant.NewNull(types.I8Ptr), zeroI64(), zeroI64())
	case symbol.Struct:
		decl, err := c.Table.GetStructDecl(t.Name)
		if err != nil {
			return diag.Newf(pos, "no struct called %s", t.Name)
		}
		structType := c.structs[t.Name]
		for index, field := range decl.Fields() {
			fieldPtr := c.cur.NewGetElementPtr(structType, dst,
				constant.NewInt(types.I32, 0), constant.NewInt(types.I32, int64(index)))
			if err := c.defaultInto(fieldPtr, field.Type, pos); err != nil {
				return err
			}
		}
	case symbol.Ref:
		return diag.New(pos, "dangling reference")
	default:
		return diag.Newf(pos, "cannot default-initialize a %s", t)
	}
	return nil
}

func (c *Codegen) emitArrayCreate(n *ast.ArrayCreate) (Result, *diag.Error) {
	if len(n.Elems) == 0 {
		return nil, diag.New(n.Pos(), "do not use this syntax to declare empty arrays").
			WithHint("use type annotations to declare empty arrays")
	}

	values := make([]Value, 0, len(n.Elems))
	var elemType symbol.Type
	for index, elem := range n.Elems {
		res, err := c.emit(elem)
		if err != nil {
			return nil, err
		}
		v, err := c.asValue(res, elem.Pos())
		if err != nil {
			return nil, err
		}
		if index == 0 {
			elemType = v.T
		} else if !v.T.Equals(elemType) {
			return nil, diag.New(elem.Pos(), "array elements must have the same type")
		}
		values = append(values, v)
	}

	lowered := c.lowerType(elemType)
	length := constant.NewInt(types.I64, int64(len(values)))
	byteSize := c.cur.NewMul(c.sizeOf(lowered), length)
	heap := c.cur.NewCall(c.runtime["malloc"], byteSize)
	data := c.cur.NewBitCast(heap, types.NewPointer(lowered))

	for index, v := range values {
		slot := c.cur.NewGetElementPtr(lowered, data, constant.NewInt(types.I64, int64(index)))
		c.storeInto(slot, v)
	}

	record := c.alloca(c.strType)
	c.storeStrRecord(record, heap, length, length)
	return ValueResult{Value{V: record, T: symbol.ArrayOf(elemType)}}, nil
}

// emitArrayIndex bounds-checks the index with two branches, each landing
// in an aborting failure block, before computing the element pointer.
func (c *Codegen) emitArrayIndex(n *ast.ArrayIndex) (Result, *diag.Error) {
	res, err := c.emit(n.Child)
	if err != nil {
		return nil, err
	}
	ptr, t, err := c.asPtr(res, n.Pos())
	if err != nil {
		return nil, err
	}
	for t.Kind == symbol.Ref {
		ptr = c.cur.NewLoad(c.lowerType(t), ptr)
		t = *t.Elem
	}
	if t.Kind != symbol.Array {
		return nil, diag.New(n.Pos(), "cannot index a value that isn't an array")
	}
	elemType := *t.Elem

	indexRes, err := c.emit(n.Index)
	if err != nil {
		return nil, err
	}
	indexValue, err := c.asValue(indexRes, n.Index.Pos())
	if err != nil {
		return nil, err
	}
	if indexValue.T.Kind != symbol.Num {
		return nil, diag.New(n.Index.Pos(), "expected a num to index the array")
	}

	fail := c.fn.NewBlock(c.blockName("bounds_fail"))
	fail.NewCall(c.runtime["_caiman_bounds_fail"])
	fail.NewUnreachable()

	// negative index
	okNeg := c.fn.NewBlock(c.blockName("bounds_neg_ok"))
	isNeg := c.cur.NewICmp(enum.IPredSLT, indexValue.V, zeroI32())
	c.cur.NewCondBr(isNeg, fail, okNeg)
	c.cur = okNeg

	// out of range
	length := c.strField(ptr, 1)
	index64 := c.cur.NewSExt(indexValue.V, types.I64)
	okRange := c.fn.NewBlock(c.blockName("bounds_range_ok"))
	isOut := c.cur.NewICmp(enum.IPredSGE, index64, length)
	c.cur.NewCondBr(isOut, fail, okRange)
	c.cur = okRange

	lowered := c.lowerType(elemType)
	heap := c.strField(ptr, 0)
	data := c.cur.NewBitCast(heap, types.NewPointer(lowered))
	elem := c.cur.NewGetElementPtr(lowered, data, index64)

	return VariableResult{Ptr: elem, T: elemType}, nil
}

func (c *Codegen) emitStructCreate(n *ast.StructCreate) (Result, *diag.Error) {
	name := n.Name
	if n.Namespace != "" {
		if _, err := c.Table.GetStructDecl(n.Namespace + "." + name); err == nil {
			name = n.Namespace + "." + name
		}
	}
	decl, declErr := c.Table.GetStructDecl(name)
	if declErr != nil {
		return nil, diag.Newf(n.Pos(), "no struct called %s", n.Name)
	}
	structType := c.structs[name]

	slot := c.alloca(structType)

	for index, field := range decl.Fields() {
		fieldPtr := c.cur.NewGetElementPtr(structType, slot,
			constant.NewInt(types.I32, 0), constant.NewInt(types.I32, int64(index)))

		if expr, supplied := n.Fields[field.Name]; supplied {
			res, err := c.emit(expr)
			if err != nil {
				return nil, err
			}
			v, err := c.asValue(res, expr.Pos())
			if err != nil {
				return nil, err
			}
			if !v.T.Equals(field.Type) {
				return nil, diag.Newf(n.Pos(), "field %s is not of the right type", field.Name)
			}
			c.storeInto(fieldPtr, v)
		} else {
			if err := c.defaultInto(fieldPtr, field.Type, n.Pos()); err != nil {
				return nil, err
			}
		}
	}

	for fieldName := range n.Fields {
		if !decl.Has(fieldName) || decl.FieldIndex(fieldName) < 0 {
			return nil, diag.Newf(n.Pos(), "field %s doesn't exist in the struct %s", fieldName, name)
		}
	}

	return ValueResult{Value{V: slot, T: symbol.StructOf(name)}}, nil
}
