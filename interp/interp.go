package interp

import (
	"github.com/codeassociates/caiman/ast"
	"github.com/codeassociates/caiman/diag"
	"github.com/codeassociates/caiman/lexer"
	"github.com/codeassociates/caiman/symbol"
)

// Interpreter is the tree-walking backend. One instance owns the whole
// value graph: a scoped table of cells, the function implementations, and
// the builtin module registry used by imports.
type Interpreter struct {
	Table     *symbol.Table[*Cell]
	functions map[string]*FunctionValue

	// GetModule resolves builtin module names; usually builtin.GetModule.
	GetModule ModuleGetter

	// importBase is the directory relative imports resolve against.
	importBase string
}

// New builds an interpreter and pre-imports the global module when a
// module getter is supplied.
func New(getModule ModuleGetter) *Interpreter {
	i := &Interpreter{
		Table:     symbol.NewTable[*Cell](),
		functions: make(map[string]*FunctionValue),
		GetModule: getModule,
	}
	if getModule != nil {
		if module, ok := getModule("global"); ok {
			i.registerModule(module, "")
		}
	}
	return i
}

// SetImportBase sets the directory relative imports resolve against,
// normally the directory of the main source file.
func (i *Interpreter) SetImportBase(dir string) {
	i.importBase = dir
}

// Run evaluates a root block and reports the first runtime error. The
// program's top-level scope is left in place afterwards, so an embedder
// can inspect the final bindings.
func (i *Interpreter) Run(block *ast.Block) *diag.Error {
	if block.Scope != ast.ScopeKeep {
		i.Table.PushScope()
	}

	for _, child := range block.Children {
		res, err := i.eval(child)
		if err != nil {
			err.SetKindIfUnknown(diag.Runtime)
			return err
		}
		switch res.(type) {
		case ReturnResult, BreakResult, ContinueResult:
			return diag.New(child.Pos(), "unexpected control flow at top level")
		}
	}
	return nil
}

// eval dispatches one node. The node set is closed; an unknown node is a
// bug in the parser.
func (i *Interpreter) eval(node ast.Node) (Result, *diag.Error) {
	switch n := node.(type) {
	case *ast.Block:
		return i.evalBlock(n)
	case *ast.Constant:
		return ValueResult{Primitive{Literal: n.Value}}, nil
	case *ast.Type:
		return ValueResult{TypeValue{T: n.T}}, nil
	case *ast.Void:
		return VoidResult{}, nil
	case *ast.VarCall:
		return i.evalVarCall(n)
	case *ast.VarCopy:
		return i.evalVarCopy(n)
	case *ast.VarDecl:
		return i.evalVarDecl(n)
	case *ast.Assignment:
		return i.evalAssignment(n)
	case *ast.Ref:
		return i.evalRef(n)
	case *ast.Deref:
		return i.evalDeref(n)
	case *ast.DotField:
		return i.evalDotField(n)
	case *ast.ArrayCreate:
		return i.evalArrayCreate(n)
	case *ast.ArrayIndex:
		return i.evalArrayIndex(n)
	case *ast.StructCreate:
		return i.evalStructCreate(n)
	case *ast.StructDecl:
		return i.evalStructDecl(n)
	case *ast.FunctionDecl:
		return i.evalFunctionDecl(n)
	case *ast.FunctionCall:
		return i.evalFunctionCall(n)
	case *ast.Return:
		return i.evalReturn(n)
	case *ast.If:
		return i.evalIf(n)
	case *ast.While:
		return i.evalWhile(n)
	case *ast.Break:
		return BreakResult{}, nil
	case *ast.Continue:
		return ContinueResult{}, nil
	case *ast.Import:
		return i.evalImport(n)
	case *ast.As:
		return i.evalAs(n)
	case *ast.Not:
		return i.evalNot(n)
	case *ast.UnaryMinus:
		return i.evalUnaryMinus(n)
	case *ast.Plus, *ast.Minus, *ast.Multiplicate, *ast.Divide, *ast.Power:
		return i.evalArithmetic(node)
	case *ast.Compare:
		return i.evalCompare(n)
	case *ast.And:
		return i.evalAnd(n)
	case *ast.Or:
		return i.evalOr(n)
	}
	return nil, diag.New(node.Pos(), "unknown node kind")
}

// evalValue evaluates a node into a temporary, cloning the contents of an
// lvalue result.
func (i *Interpreter) evalValue(node ast.Node) (Value, *diag.Error) {
	res, err := i.eval(node)
	if err != nil {
		return nil, err
	}
	switch r := res.(type) {
	case ValueResult:
		return r.Value, nil
	case VariableResult:
		return r.Cell.V.Clone(), nil
	case ReturnResult:
		return nil, diag.New(node.Pos(), "expected a value but got an early-return keyword")
	}
	return nil, diag.New(node.Pos(), "expected a value in this expression")
}

// evalBool evaluates a condition.
func (i *Interpreter) evalBool(node ast.Node) (bool, *diag.Error) {
	v, err := i.evalValue(node)
	if err != nil {
		return false, err
	}
	prim, ok := v.(Primitive)
	if !ok || prim.Literal.Kind != symbol.Bool {
		return false, diag.New(node.Pos(), "expected a bool for the condition")
	}
	return prim.Literal.Bool, nil
}

func (i *Interpreter) evalBlock(block *ast.Block) (Result, *diag.Error) {
	if block.Scope != ast.ScopeKeep {
		i.Table.PushScope()
		defer i.Table.PopScope()
	}

	for _, child := range block.Children {
		res, err := i.eval(child)
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

// resolveCell resolves a possibly namespaced variable name: the namespaced
// form first, then the bare one.
func (i *Interpreter) resolveCell(name, namespace string, pos diag.Pos) (*Cell, *diag.Error) {
	if namespace != "" {
		if cell, err := i.Table.GetSymbol(namespace + "." + name); err == nil {
			return cell, nil
		}
	}
	cell, err := i.Table.GetSymbol(name)
	if err != nil {
		return nil, diag.Newf(pos, "variable %s has not been declared", name)
	}
	return cell, nil
}

func (i *Interpreter) evalVarCall(n *ast.VarCall) (Result, *diag.Error) {
	cell, err := i.resolveCell(n.Name, n.Namespace, n.Pos())
	if err != nil {
		return nil, err
	}
	return VariableResult{Cell: cell}, nil
}

func (i *Interpreter) evalVarCopy(n *ast.VarCopy) (Result, *diag.Error) {
	cell, err := i.resolveCell(n.Name, n.Namespace, n.Pos())
	if err != nil {
		return nil, err
	}
	return ValueResult{cell.V.Clone()}, nil
}

func (i *Interpreter) evalVarDecl(n *ast.VarDecl) (Result, *diag.Error) {
	var value Value

	if n.Init != nil {
		init, err := i.evalValue(n.Init)
		if err != nil {
			return nil, err
		}
		if init == nil {
			return nil, diag.Newf(n.Pos(), "cannot infer the variable type of %s", n.Name)
		}
		if n.DeclType != nil && !init.Type().Equals(*n.DeclType) {
			return nil, diag.Newf(n.Pos(),
				"the annotation of %s doesn't match the type of its value", n.Name)
		}
		value = init
	} else {
		def, err := i.defaultValue(*n.DeclType, n.Pos())
		if err != nil {
			return nil, err
		}
		value = def
	}

	if err := i.Table.InsertSymbol(n.Name, NewCell(value)); err != nil {
		return nil, diag.New(n.Pos(), err.Error())
	}
	return VoidResult{}, nil
}

func (i *Interpreter) evalAssignment(n *ast.Assignment) (Result, *diag.Error) {
	res, err := i.eval(n.Lvalue)
	if err != nil {
		return nil, err
	}
	variable, ok := res.(VariableResult)
	if !ok {
		return nil, diag.New(n.Pos(), "cannot assign to this expression")
	}

	value, err := i.evalValue(n.Expr)
	if err != nil {
		return nil, err
	}
	if value == nil {
		return nil, diag.New(n.Pos(), "cannot assign a void value")
	}

	if !variable.Cell.V.Type().Equals(value.Type()) {
		return nil, diag.New(n.Pos(), "cannot change the type of a variable")
	}

	variable.Cell.V = value
	return VoidResult{}, nil
}

func (i *Interpreter) evalRef(n *ast.Ref) (Result, *diag.Error) {
	res, err := i.eval(n.Child)
	if err != nil {
		return nil, err
	}
	variable, ok := res.(VariableResult)
	if !ok {
		return nil, diag.New(n.Pos(), "cannot borrow a temporary value")
	}
	return ValueResult{RefValue{Cell: variable.Cell}}, nil
}

func (i *Interpreter) evalDeref(n *ast.Deref) (Result, *diag.Error) {
	res, err := i.eval(n.Child)
	if err != nil {
		return nil, err
	}

	var v Value
	switch r := res.(type) {
	case VariableResult:
		v = r.Cell.V
	case ValueResult:
		v = r.Value
	default:
		return nil, diag.New(n.Pos(), "cannot dereference this variable")
	}

	ref, ok := v.(RefValue)
	if !ok {
		return nil, diag.New(n.Pos(), "cannot dereference this variable")
	}
	return VariableResult{Cell: ref.Cell}, nil
}

func (i *Interpreter) evalDotField(n *ast.DotField) (Result, *diag.Error) {
	res, err := i.eval(n.Child)
	if err != nil {
		// module-qualified fallback: math.pi parses as a field access on
		// the unbound variable math
		if varCall, ok := n.Child.(*ast.VarCall); ok {
			if cell, lookupErr := i.Table.GetSymbol(varCall.Name + "." + n.Field); lookupErr == nil {
				return VariableResult{Cell: cell}, nil
			}
		}
		return nil, err
	}

	switch r := res.(type) {
	case VariableResult:
		cell := autoDerefCell(r.Cell)
		structValue, ok := cell.V.(*StructValue)
		if !ok {
			return nil, diag.New(n.Pos(), "field access on a non-struct value")
		}
		field, ok := structValue.Fields[n.Field]
		if !ok {
			return nil, diag.Newf(n.Pos(), "no field named %s on this struct", n.Field)
		}
		return VariableResult{Cell: field}, nil

	case ValueResult:
		structValue, ok := autoDeref(r.Value).(*StructValue)
		if !ok {
			return nil, diag.New(n.Pos(), "field access on a non-struct value")
		}
		field, ok := structValue.Fields[n.Field]
		if !ok {
			return nil, diag.Newf(n.Pos(), "no field named %s on this struct", n.Field)
		}
		return ValueResult{field.V.Clone()}, nil
	}
	return nil, diag.New(n.Pos(), "field access on a non-struct value")
}

func (i *Interpreter) evalArrayCreate(n *ast.ArrayCreate) (Result, *diag.Error) {
	if len(n.Elems) == 0 {
		return nil, diag.New(n.Pos(), "do not use this syntax to declare empty arrays").
			WithHint("use type annotations to declare empty arrays")
	}

	contents := make([]*Cell, 0, len(n.Elems))
	var elemType symbol.Type

	for index, elem := range n.Elems {
		value, err := i.evalValue(elem)
		if err != nil {
			return nil, err
		}
		if index == 0 {
			elemType = value.Type()
		} else if !value.Type().Equals(elemType) {
			return nil, diag.New(elem.Pos(), "array elements must have the same type")
		}
		contents = append(contents, NewCell(value))
	}

	return ValueResult{&ArrayValue{ElemType: elemType, Contents: contents}}, nil
}

func (i *Interpreter) evalArrayIndex(n *ast.ArrayIndex) (Result, *diag.Error) {
	indexValue, err := i.evalValue(n.Index)
	if err != nil {
		return nil, err
	}
	prim, ok := indexValue.(Primitive)
	if !ok || prim.Literal.Kind != symbol.Num {
		return nil, diag.New(n.Pos(), "expected a num to index the array")
	}
	index := prim.Literal.Num

	res, err := i.eval(n.Child)
	if err != nil {
		return nil, err
	}

	switch r := res.(type) {
	case VariableResult:
		cell := autoDerefCell(r.Cell)
		array, ok := cell.V.(*ArrayValue)
		if !ok {
			return nil, diag.New(n.Pos(), "cannot index a value that isn't an array")
		}
		if index < 0 || int(index) >= len(array.Contents) {
			return nil, diag.New(n.Pos(), "index out of bounds")
		}
		return VariableResult{Cell: array.Contents[index]}, nil

	case ValueResult:
		array, ok := autoDeref(r.Value).(*ArrayValue)
		if !ok {
			return nil, diag.New(n.Pos(), "cannot index a value that isn't an array")
		}
		if index < 0 || int(index) >= len(array.Contents) {
			return nil, diag.New(n.Pos(), "index out of bounds")
		}
		return ValueResult{array.Contents[index].V.Clone()}, nil
	}
	return nil, diag.New(n.Pos(), "cannot index a value that isn't an array")
}

// lookupStructDecl resolves a struct name, trying the namespaced form
// first and falling back to the bare suffix for imported annotations.
func (i *Interpreter) lookupStructDecl(name, namespace string) (*symbol.StructDecl, string, bool) {
	if namespace != "" {
		if decl, err := i.Table.GetStructDecl(namespace + "." + name); err == nil {
			return decl, namespace + "." + name, true
		}
	}
	if decl, err := i.Table.GetStructDecl(name); err == nil {
		return decl, name, true
	}
	return nil, "", false
}

func (i *Interpreter) evalStructCreate(n *ast.StructCreate) (Result, *diag.Error) {
	decl, typeName, ok := i.lookupStructDecl(n.Name, n.Namespace)
	if !ok {
		return nil, diag.Newf(n.Pos(), "no struct called %s", n.Name)
	}

	fields := make(map[string]*Cell, len(decl.Fields()))
	for _, field := range decl.Fields() {
		if expr, supplied := n.Fields[field.Name]; supplied {
			value, err := i.evalValue(expr)
			if err != nil {
				return nil, err
			}
			if !value.Type().Equals(field.Type) {
				return nil, diag.Newf(n.Pos(), "field %s is not of the right type", field.Name)
			}
			fields[field.Name] = NewCell(value)
		} else {
			def, err := i.defaultValue(field.Type, n.Pos())
			if err != nil {
				return nil, err
			}
			fields[field.Name] = NewCell(def)
		}
	}

	// reject initializers that name no declared field
	for name := range n.Fields {
		if _, declared := fields[name]; !declared {
			return nil, diag.Newf(n.Pos(), "field %s doesn't exist in the struct %s", name, typeName)
		}
	}

	return ValueResult{&StructValue{TypeName: typeName, Fields: fields}}, nil
}

func (i *Interpreter) evalStructDecl(n *ast.StructDecl) (Result, *diag.Error) {
	if err := i.Table.RegisterDecl(n.Decl.Name, n.Decl); err != nil {
		return nil, diag.New(n.Pos(), err.Error())
	}
	for _, method := range n.Methods {
		if _, err := i.evalFunctionDecl(method); err != nil {
			return nil, err
		}
	}
	return VoidResult{}, nil
}

func (i *Interpreter) evalFunctionDecl(n *ast.FunctionDecl) (Result, *diag.Error) {
	if err := i.Table.RegisterDecl(n.Name, n.Decl); err != nil {
		return nil, diag.New(n.Pos(), err.Error())
	}
	i.functions[n.Name] = &FunctionValue{Decl: n.Decl, Body: n.Body}
	return VoidResult{}, nil
}

func (i *Interpreter) evalReturn(n *ast.Return) (Result, *diag.Error) {
	if n.Expr == nil {
		return ReturnResult{}, nil
	}
	value, err := i.evalValue(n.Expr)
	if err != nil {
		return nil, err
	}
	return ReturnResult{Value: value}, nil
}

func (i *Interpreter) evalIf(n *ast.If) (Result, *diag.Error) {
	for index, cond := range n.Conditions {
		truthy, err := i.evalBool(cond)
		if err != nil {
			return nil, err
		}
		if truthy {
			return i.eval(n.Bodies[index])
		}
	}

	// a trailing extra body is the else branch
	if len(n.Bodies) > len(n.Conditions) {
		return i.eval(n.Bodies[len(n.Bodies)-1])
	}
	return VoidResult{}, nil
}

func (i *Interpreter) evalWhile(n *ast.While) (Result, *diag.Error) {
	for {
		truthy, err := i.evalBool(n.Cond)
		if err != nil {
			return nil, err
		}
		if !truthy {
			return VoidResult{}, nil
		}

		res, err := i.eval(n.Body)
		if err != nil {
			return nil, err
		}
		switch res.(type) {
		case BreakResult:
			return VoidResult{}, nil
		case ContinueResult:
			continue
		case ReturnResult:
			return res, nil
		}
	}
}

func (i *Interpreter) evalNot(n *ast.Not) (Result, *diag.Error) {
	value, err := i.evalValue(n.Child)
	if err != nil {
		return nil, err
	}
	prim, ok := value.(Primitive)
	if !ok || prim.Literal.Kind != symbol.Bool {
		return nil, diag.New(n.Pos(), "cannot negate a value that isn't a bool")
	}
	return ValueResult{Primitive{symbol.BoolLiteral(!prim.Literal.Bool)}}, nil
}

func (i *Interpreter) evalUnaryMinus(n *ast.UnaryMinus) (Result, *diag.Error) {
	value, err := i.evalValue(n.Child)
	if err != nil {
		return nil, err
	}
	prim, ok := value.(Primitive)
	if !ok {
		return nil, diag.New(n.Pos(), "cannot negate a value that isn't a number")
	}
	switch prim.Literal.Kind {
	case symbol.Num:
		return ValueResult{Primitive{symbol.NumLiteral(-prim.Literal.Num)}}, nil
	case symbol.Fnum:
		return ValueResult{Primitive{symbol.FnumLiteral(-prim.Literal.Fnum)}}, nil
	}
	return nil, diag.New(n.Pos(), "cannot negate a value that isn't a number")
}

func (i *Interpreter) evalAnd(n *ast.And) (Result, *diag.Error) {
	left, err := i.evalBool(n.Left)
	if err != nil {
		return nil, err
	}
	if !left {
		return ValueResult{Primitive{symbol.BoolLiteral(false)}}, nil
	}
	right, err := i.evalBool(n.Right)
	if err != nil {
		return nil, err
	}
	return ValueResult{Primitive{symbol.BoolLiteral(right)}}, nil
}

func (i *Interpreter) evalOr(n *ast.Or) (Result, *diag.Error) {
	left, err := i.evalBool(n.Left)
	if err != nil {
		return nil, err
	}
	if left {
		return ValueResult{Primitive{symbol.BoolLiteral(true)}}, nil
	}
	right, err := i.evalBool(n.Right)
	if err != nil {
		return nil, err
	}
	return ValueResult{Primitive{symbol.BoolLiteral(right)}}, nil
}

func (i *Interpreter) evalCompare(n *ast.Compare) (Result, *diag.Error) {
	left, err := i.evalValue(n.Left)
	if err != nil {
		return nil, err
	}
	right, err := i.evalValue(n.Right)
	if err != nil {
		return nil, err
	}

	leftPrim, leftOk := left.(Primitive)
	rightPrim, rightOk := right.(Primitive)
	if !leftOk || !rightOk {
		return nil, diag.New(n.Pos(), "can only compare primitives")
	}
	if leftPrim.Literal.Kind != rightPrim.Literal.Kind {
		return nil, diag.New(n.Pos(), "cannot compare different types")
	}

	var result bool
	switch n.Op {
	case lexer.EQ:
		result = leftPrim.Literal.Equals(rightPrim.Literal)
	case lexer.NEQ:
		result = !leftPrim.Literal.Equals(rightPrim.Literal)
	default:
		if !leftPrim.Literal.Type().IsNumeric() {
			return nil, diag.New(n.Pos(), "can compare only numbers")
		}
		var leftF, rightF float64
		if leftPrim.Literal.Kind == symbol.Num {
			leftF, rightF = float64(leftPrim.Literal.Num), float64(rightPrim.Literal.Num)
		} else {
			leftF, rightF = float64(leftPrim.Literal.Fnum), float64(rightPrim.Literal.Fnum)
		}
		switch n.Op {
		case lexer.GT:
			result = leftF > rightF
		case lexer.GE:
			result = leftF >= rightF
		case lexer.LT:
			result = leftF < rightF
		case lexer.LE:
			result = leftF <= rightF
		}
	}

	return ValueResult{Primitive{symbol.BoolLiteral(result)}}, nil
}

// defaultValue builds the zero value of a type: false, 0, 0.0, "", an
// empty array, or a struct with every field defaulted.
func (i *Interpreter) defaultValue(t symbol.Type, pos diag.Pos) (Value, *diag.Error) {
	switch t.Kind {
	case symbol.Bool:
		return Primitive{symbol.BoolLiteral(false)}, nil
	case symbol.Num:
		return Primitive{symbol.NumLiteral(0)}, nil
	case symbol.Fnum:
		return Primitive{symbol.FnumLiteral(0)}, nil
	case symbol.Str:
		return Primitive{symbol.StrLiteral("")}, nil
	case symbol.Array:
		return &ArrayValue{ElemType: *t.Elem}, nil
	case symbol.Ref:
		return nil, diag.New(pos, "dangling reference")
	case symbol.Struct:
		decl, typeName, ok := i.lookupStructDecl(t.Name, "")
		if !ok {
			return nil, diag.Newf(pos, "no struct called %s", t.Name)
		}
		fields := make(map[string]*Cell, len(decl.Fields()))
		for _, field := range decl.Fields() {
			def, err := i.defaultValue(field.Type, pos)
			if err != nil {
				return nil, err
			}
			fields[field.Name] = NewCell(def)
		}
		return &StructValue{TypeName: typeName, Fields: fields}, nil
	}
	return nil, diag.Newf(pos, "cannot default-initialize a %s", t)
}
