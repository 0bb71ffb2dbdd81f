// Package compiler lowers the AST to LLVM IR. It mirrors the
// interpreter's dispatch shape, but every result carries an LLVM value:
// a variable is a pointer to stack storage, a temporary is either a
// register value (primitives) or a pointer to a local (aggregates).
package compiler

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/codeassociates/caiman/ast"
	"github.com/codeassociates/caiman/diag"
	"github.com/codeassociates/caiman/symbol"
)

// Value is an LLVM value annotated with its language type. For aggregate
// types (str, arrays, structs) V is always a pointer to the storage.
type Value struct {
	V value.Value
	T symbol.Type
}

// Result is the closed set of emission outcomes, mirroring the
// interpreter's.
type Result interface {
	emitResult()
}

// ValueResult is a temporary.
type ValueResult struct {
	Value Value
}

// VariableResult is an assignable location: a pointer plus the pointee's
// language type.
type VariableResult struct {
	Ptr value.Value
	T   symbol.Type
}

// ReturnResult, BreakResult and ContinueResult mark that the current
// block was terminated by control flow.
type ReturnResult struct{}
type BreakResult struct{}
type ContinueResult struct{}
type VoidResult struct{}

func (ValueResult) emitResult()    {}
func (VariableResult) emitResult() {}
func (ReturnResult) emitResult()   {}
func (BreakResult) emitResult()    {}
func (ContinueResult) emitResult() {}
func (VoidResult) emitResult()     {}

// fnInfo records a declared function and its lowering.
type fnInfo struct {
	decl *symbol.FunctionDecl
	fn   *ir.Func
	sret bool
}

// Codegen owns the module under construction and the cursor state of the
// walk: the current function, its entry block for allocas, the insertion
// block, and the enclosing loop's condition and end blocks.
type Codegen struct {
	Module *ir.Module
	Table  *symbol.Table[Value]

	strType   *types.StructType
	structs   map[string]*types.StructType
	functions map[string]*fnInfo
	runtime   map[string]*ir.Func

	fn      *ir.Func
	entry   *ir.Block
	cur     *ir.Block
	sretPtr value.Value

	loopCond *ir.Block
	loopEnd  *ir.Block

	strCounter int
}

func New() *Codegen {
	module := ir.NewModule()

	c := &Codegen{
		Module:    module,
		Table:     symbol.NewTable[Value](),
		structs:   make(map[string]*types.StructType),
		functions: make(map[string]*fnInfo),
		runtime:   make(map[string]*ir.Func),
	}

	// strings and arrays share one record layout: heap pointer, length,
	// capacity
	c.strType = types.NewStruct(types.I8Ptr, types.I64, types.I64)
	module.NewTypeDef("str", c.strType)

	c.declareRuntime()
	return c
}

// declareRuntime declares the C runtime surface the emitted module calls
// into; the linker driver satisfies the _caiman_ helpers from its
// embedded stub.
func (c *Codegen) declareRuntime() {
	strPtr := types.NewPointer(c.strType)

	decl := func(name string, ret types.Type, params ...*ir.Param) {
		fn := c.Module.NewFunc(name, ret, params...)
		c.runtime[name] = fn
	}

	decl("malloc", types.I8Ptr, ir.NewParam("size", types.I64))
	decl("memcpy", types.I8Ptr,
		ir.NewParam("dst", types.I8Ptr), ir.NewParam("src", types.I8Ptr), ir.NewParam("n", types.I64))
	decl("memmove", types.I8Ptr,
		ir.NewParam("dst", types.I8Ptr), ir.NewParam("src", types.I8Ptr), ir.NewParam("n", types.I64))

	decl("_caiman_print", types.Void, ir.NewParam("s", strPtr))
	decl("_caiman_println", types.Void, ir.NewParam("s", strPtr))
	decl("_caiman_eprint", types.Void, ir.NewParam("s", strPtr))
	decl("_caiman_eprintln", types.Void, ir.NewParam("s", strPtr))
	decl("_caiman_assert", types.Void, ir.NewParam("ok", types.I1))
	decl("_caiman_bounds_fail", types.Void)
	decl("_caiman_str_eq", types.I1, ir.NewParam("a", strPtr), ir.NewParam("b", strPtr))
	decl("_caiman_str_concat", types.Void,
		ir.NewParam("a", strPtr), ir.NewParam("b", strPtr), ir.NewParam("out", strPtr))
	decl("_caiman_str_from_num", types.Void, ir.NewParam("n", types.I32), ir.NewParam("out", strPtr))
	decl("_caiman_str_from_fnum", types.Void, ir.NewParam("f", types.Float), ir.NewParam("out", strPtr))
	decl("_caiman_str_from_bool", types.Void, ir.NewParam("b", types.I1), ir.NewParam("out", strPtr))
	decl("_caiman_num_from_str", types.I32, ir.NewParam("s", strPtr))
	decl("_caiman_fnum_from_str", types.Float, ir.NewParam("s", strPtr))
	decl("_caiman_num_pow", types.I32, ir.NewParam("base", types.I32), ir.NewParam("exp", types.I32))
}

// Compile lowers a whole program: declarations first, then every
// function body, then the top-level statements into main.
func (c *Codegen) Compile(block *ast.Block) (*ir.Module, *diag.Error) {
	module, err := c.compile(block)
	if err != nil {
		err.SetKindIfUnknown(diag.Compilation)
		return nil, err
	}
	return module, nil
}

func (c *Codegen) compile(block *ast.Block) (*ir.Module, *diag.Error) {
	// pass 1a: name every struct first so fields may reference each other
	for _, child := range block.Children {
		if n, ok := child.(*ast.StructDecl); ok {
			if err := c.Table.RegisterDecl(n.Decl.Name, n.Decl); err != nil {
				return nil, diag.New(n.Pos(), err.Error())
			}
			structType := types.NewStruct()
			c.structs[n.Decl.Name] = structType
			c.Module.NewTypeDef(n.Decl.Name, structType)
		}
	}

	// pass 1b: struct layouts and function signatures
	for _, child := range block.Children {
		switch n := child.(type) {
		case *ast.StructDecl:
			if err := c.layoutStruct(n); err != nil {
				return nil, err
			}
		case *ast.FunctionDecl:
			if err := c.declareFunction(n); err != nil {
				return nil, err
			}
		case *ast.Import:
			if err := c.emitImport(n); err != nil {
				return nil, err
			}
		}
	}

	// pass 2: function bodies (struct methods included)
	for _, child := range block.Children {
		switch n := child.(type) {
		case *ast.FunctionDecl:
			if err := c.emitFunctionBody(n); err != nil {
				return nil, err
			}
		case *ast.StructDecl:
			for _, method := range n.Methods {
				if err := c.emitFunctionBody(method); err != nil {
					return nil, err
				}
			}
		}
	}

	// pass 3: the top-level statements become main
	mainFn := c.Module.NewFunc("main", types.I32)
	c.fn = mainFn
	c.entry = mainFn.NewBlock("entry")
	c.cur = c.entry
	c.sretPtr = nil

	c.Table.PushScope()
	for _, child := range block.Children {
		switch child.(type) {
		case *ast.StructDecl, *ast.FunctionDecl, *ast.Import:
			continue
		}
		res, err := c.emit(child)
		if err != nil {
			return nil, err
		}
		switch res.(type) {
		case ReturnResult, BreakResult, ContinueResult:
			return nil, diag.New(child.Pos(), "unexpected control flow at top level")
		}
	}
	c.Table.PopScope()

	c.cur.NewRet(constant.NewInt(types.I32, 0))
	return c.Module, nil
}

// layoutStruct fills a struct's field layout in declaration order and
// declares its methods' signatures.
func (c *Codegen) layoutStruct(n *ast.StructDecl) *diag.Error {
	structType := c.structs[n.Decl.Name]
	for _, field := range n.Decl.Fields() {
		structType.Fields = append(structType.Fields, c.lowerType(field.Type))
	}

	for _, method := range n.Methods {
		if err := c.declareFunction(method); err != nil {
			return err
		}
	}
	return nil
}

// lowerType maps a language type onto its LLVM layout.
func (c *Codegen) lowerType(t symbol.Type) types.Type {
	switch t.Kind {
	case symbol.Bool:
		return types.I1
	case symbol.Num:
		return types.I32
	case symbol.Fnum:
		return types.Float
	case symbol.Str, symbol.Array:
		return c.strType
	case symbol.Struct:
		if structType, ok := c.structs[t.Name]; ok {
			return structType
		}
		// forward reference; resolved when the struct is registered
		opaque := types.NewStruct()
		c.structs[t.Name] = opaque
		return opaque
	case symbol.Ref:
		return types.NewPointer(c.lowerType(*t.Elem))
	}
	return types.I8Ptr
}

// isAggregate reports whether the type is carried behind a pointer.
func isAggregate(t symbol.Type) bool {
	switch t.Kind {
	case symbol.Str, symbol.Array, symbol.Struct:
		return true
	}
	return false
}

// sizeOf builds the usual constant-GEP size computation for a lowered
// type.
func (c *Codegen) sizeOf(t types.Type) value.Value {
	gep := constant.NewGetElementPtr(t,
		constant.NewNull(types.NewPointer(t)), constant.NewInt(types.I32, 1))
	return constant.NewPtrToInt(gep, types.I64)
}

// alloca reserves stack storage in the entry block, keeping allocas out
// of loops.
func (c *Codegen) alloca(t types.Type) *ir.InstAlloca {
	inst := ir.NewAlloca(t)
	c.entry.Insts = append([]ir.Instruction{inst}, c.entry.Insts...)
	return inst
}

// asValue converts a result to a temporary: primitives load, aggregates
// stay behind their pointer.
func (c *Codegen) asValue(res Result, pos diag.Pos) (Value, *diag.Error) {
	switch r := res.(type) {
	case ValueResult:
		return r.Value, nil
	case VariableResult:
		if isAggregate(r.T) {
			return Value{V: r.Ptr, T: r.T}, nil
		}
		load := c.cur.NewLoad(c.lowerType(r.T), r.Ptr)
		return Value{V: load, T: r.T}, nil
	}
	return Value{}, diag.New(pos, "expected a value in this expression")
}

// asPtr converts a result to a pointer to its storage, spilling
// register-valued temporaries into a local.
func (c *Codegen) asPtr(res Result, pos diag.Pos) (value.Value, symbol.Type, *diag.Error) {
	switch r := res.(type) {
	case VariableResult:
		return r.Ptr, r.T, nil
	case ValueResult:
		if isAggregate(r.Value.T) {
			return r.Value.V, r.Value.T, nil
		}
		slot := c.alloca(c.lowerType(r.Value.T))
		c.cur.NewStore(r.Value.V, slot)
		return slot, r.Value.T, nil
	}
	return nil, symbol.Type{}, diag.New(pos, "expected a value in this expression")
}

// storeInto writes a value into a destination pointer: primitives store,
// aggregates memcpy their record.
func (c *Codegen) storeInto(dst value.Value, v Value) {
	if !isAggregate(v.T) {
		c.cur.NewStore(v.V, dst)
		return
	}
	lowered := c.lowerType(v.T)
	c.cur.NewCall(c.runtime["memcpy"],
		c.cur.NewBitCast(dst, types.I8Ptr),
		c.cur.NewBitCast(v.V, types.I8Ptr),
		c.sizeOf(lowered))
}

// stringLiteral builds a str record from a literal: the bytes live in a
// private global, the record's heap pointer is a fresh malloc'd copy so
// every string is uniformly heap-backed.
func (c *Codegen) stringLiteral(s string) value.Value {
	data := constant.NewCharArrayFromString(s)
	global := c.Module.NewGlobalDef(fmt.Sprintf(".str.%d", c.strCounter), data)
	global.Linkage = enum.LinkagePrivate
	global.Immutable = true
	c.strCounter++

	length := constant.NewInt(types.I64, int64(len(s)))
	heap := c.cur.NewCall(c.runtime["malloc"], length)
	src := c.cur.NewGetElementPtr(data.Typ, global,
		constant.NewInt(types.I32, 0), constant.NewInt(types.I32, 0))
	c.cur.NewCall(c.runtime["memcpy"], heap, src, length)

	record := c.alloca(c.strType)
	c.storeStrRecord(record, heap, length, length)
	return record
}

// storeStrRecord populates the three record fields.
func (c *Codegen) storeStrRecord(record, ptr value.Value, length, capacity value.Value) {
	ptrField := c.cur.NewGetElementPtr(c.strType, record,
		constant.NewInt(types.I32, 0), constant.NewInt(types.I32, 0))
	c.cur.NewStore(ptr, ptrField)
	lenField := c.cur.NewGetElementPtr(c.strType, record,
		constant.NewInt(types.I32, 0), constant.NewInt(types.I32, 1))
	c.cur.NewStore(length, lenField)
	capField := c.cur.NewGetElementPtr(c.strType, record,
		constant.NewInt(types.I32, 0), constant.NewInt(types.I32, 2))
	c.cur.NewStore(capacity, capField)
}

// strField loads one field of a str/array record.
func (c *Codegen) strField(record value.Value, index int64) value.Value {
	field := c.cur.NewGetElementPtr(c.strType, record,
		constant.NewInt(types.I32, 0), constant.NewInt(types.I32, index))
	fieldType := types.Type(types.I64)
	if index == 0 {
		fieldType = types.I8Ptr
	}
	return c.cur.NewLoad(fieldType, field)
}
