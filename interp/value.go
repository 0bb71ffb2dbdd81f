package interp

import (
	"github.com/codeassociates/caiman/ast"
	"github.com/codeassociates/caiman/diag"
	"github.com/codeassociates/caiman/symbol"
)

// Cell is a shared mutable box around one value. Several names, struct
// fields, array slots and references may hold the same cell; writing
// through any of them is visible through all. Go pointers provide the
// shared-ownership semantics.
type Cell struct {
	V Value
}

func NewCell(v Value) *Cell {
	return &Cell{V: v}
}

// Value is the closed set of interpreter values.
type Value interface {
	// Type returns the value's point in the type lattice.
	Type() symbol.Type
	// Clone deep-copies the value: aggregates copy their cells' contents
	// into fresh cells, references stay aliased.
	Clone() Value
}

// Primitive wraps a literal.
type Primitive struct {
	Literal symbol.Literal
}

func (p Primitive) Type() symbol.Type {
	return p.Literal.Type()
}

func (p Primitive) Clone() Value {
	return p
}

// ArrayValue holds same-typed elements behind cells.
type ArrayValue struct {
	ElemType symbol.Type
	Contents []*Cell
}

func (a *ArrayValue) Type() symbol.Type {
	return symbol.ArrayOf(a.ElemType)
}

func (a *ArrayValue) Clone() Value {
	contents := make([]*Cell, len(a.Contents))
	for i, cell := range a.Contents {
		contents[i] = NewCell(cell.V.Clone())
	}
	return &ArrayValue{ElemType: a.ElemType, Contents: contents}
}

// StructValue holds a struct's fields behind cells.
type StructValue struct {
	TypeName string
	Fields   map[string]*Cell
}

func (s *StructValue) Type() symbol.Type {
	return symbol.StructOf(s.TypeName)
}

func (s *StructValue) Clone() Value {
	fields := make(map[string]*Cell, len(s.Fields))
	for name, cell := range s.Fields {
		fields[name] = NewCell(cell.V.Clone())
	}
	return &StructValue{TypeName: s.TypeName, Fields: fields}
}

// RefValue aliases a cell. Cloning a ref clones the alias, not the
// pointee.
type RefValue struct {
	Cell *Cell
}

func (r RefValue) Type() symbol.Type {
	return symbol.RefTo(r.Cell.V.Type())
}

func (r RefValue) Clone() Value {
	return r
}

// FunctionValue is a callable bound in the symbol table: a user function
// body or a builtin callback.
type FunctionValue struct {
	Decl    *symbol.FunctionDecl
	Body    *ast.Block
	Builtin Callback
}

func (f *FunctionValue) Type() symbol.Type {
	args := make([]symbol.Type, len(f.Decl.Args))
	for i, arg := range f.Decl.Args {
		args[i] = arg.Type
	}
	return symbol.FunctionOf(args, f.Decl.Return)
}

func (f *FunctionValue) Clone() Value {
	return f
}

// TypeValue is a first-class type.
type TypeValue struct {
	T symbol.Type
}

func (t TypeValue) Type() symbol.Type {
	return symbol.MetaType()
}

func (t TypeValue) Clone() Value {
	return t
}

// Callback is the implementation of a builtin function. The receiver of a
// builtin method call is prepended to args. A nil result is void.
type Callback func(args []Value) (Value, *diag.Error)

// BuiltinFunction pairs a declaration with its implementation. Method
// declarations (mangled names) leave the receiver out of Args.
type BuiltinFunction struct {
	Decl *symbol.FunctionDecl
	Fn   Callback
}

// BuiltinVar is a module-level builtin value.
type BuiltinVar struct {
	Name  string
	Value Value
}

// Module is one builtin module's surface.
type Module struct {
	Functions []*BuiltinFunction
	Vars      []BuiltinVar
}

// ModuleGetter resolves a builtin module name at import time.
type ModuleGetter func(name string) (*Module, bool)

// autoDeref unwraps reference layers down to the concrete value.
func autoDeref(v Value) Value {
	for {
		ref, ok := v.(RefValue)
		if !ok {
			return v
		}
		v = ref.Cell.V
	}
}

// autoDerefCell unwraps reference layers at the cell level, so field and
// index lookups through a ref still yield assignable cells.
func autoDerefCell(cell *Cell) *Cell {
	for {
		ref, ok := cell.V.(RefValue)
		if !ok {
			return cell
		}
		cell = ref.Cell
	}
}

// Result is the closed set of evaluation outcomes.
type Result interface {
	resultNode()
}

// ValueResult is a temporary.
type ValueResult struct {
	Value Value
}

// VariableResult is an assignable location.
type VariableResult struct {
	Cell *Cell
}

// ReturnResult propagates an early return; a nil value is a void return.
type ReturnResult struct {
	Value Value
}

// BreakResult propagates a break up to the enclosing loop.
type BreakResult struct{}

// ContinueResult propagates a continue up to the enclosing loop.
type ContinueResult struct{}

// VoidResult is the outcome of statements.
type VoidResult struct{}

func (ValueResult) resultNode()    {}
func (VariableResult) resultNode() {}
func (ReturnResult) resultNode()   {}
func (BreakResult) resultNode()    {}
func (ContinueResult) resultNode() {}
func (VoidResult) resultNode()     {}
