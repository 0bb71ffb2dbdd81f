package ast

import (
	"github.com/codeassociates/caiman/diag"
	"github.com/codeassociates/caiman/lexer"
	"github.com/codeassociates/caiman/symbol"
)

// Node is the interface of every AST node. The node set is closed: both
// backends dispatch with a type switch and treat an unknown node as a bug.
type Node interface {
	Pos() diag.Pos
}

// Base carries the source position every node records.
type Base struct {
	Position diag.Pos
}

func At(pos diag.Pos) Base {
	return Base{Position: pos}
}

func (b Base) Pos() diag.Pos {
	return b.Position
}

// BlockScope is the scope discipline of a block: push a fresh lexical
// scope (New), push one as a function body (Function), or reuse the
// enclosing scope (Keep, used by imports).
type BlockScope int

const (
	ScopeNew BlockScope = iota
	ScopeFunction
	ScopeKeep
)

// Constant is a literal value.
type Constant struct {
	Base
	Value symbol.Literal
}

// Type is a bare type expression, producing a first-class type value.
type Type struct {
	Base
	T symbol.Type
}

// Void is the empty expression.
type Void struct {
	Base
}

// VarCall resolves a variable to its assignable location.
type VarCall struct {
	Base
	Name      string
	Namespace string
}

// ResolvedName returns the candidate names VarCall resolution tries, most
// specific first: the namespaced name, then the bare one.
func (v *VarCall) ResolvedName() []string {
	if v.Namespace == "" {
		return []string{v.Name}
	}
	return []string{v.Namespace + "." + v.Name, v.Name}
}

// VarCopy resolves a variable and clones its contents into a temporary.
type VarCopy struct {
	Base
	Name      string
	Namespace string
}

// VarDecl declares a variable, with at least one of a type annotation and
// an initializer.
type VarDecl struct {
	Base
	Name     string
	DeclType *symbol.Type // nil when inferred from Init
	Init     Node         // nil when defaulted from DeclType
}

// Assignment writes the value of Expr into the location denoted by Lvalue.
type Assignment struct {
	Base
	Lvalue Node
	Expr   Node
}

// Ref takes the address of an lvalue.
type Ref struct {
	Base
	Child Node
}

// Deref unwraps one reference level, yielding an lvalue.
type Deref struct {
	Base
	Child Node
}

// DotField accesses a struct field, auto-dereferencing the receiver.
type DotField struct {
	Base
	Child Node
	Field string
}

// ArrayCreate builds an array from a non-empty literal.
type ArrayCreate struct {
	Base
	Elems []Node
}

// ArrayIndex accesses one array element as an lvalue.
type ArrayIndex struct {
	Base
	Child Node
	Index Node
}

// StructCreate instantiates a struct, defaulting unsupplied fields.
type StructCreate struct {
	Base
	Name      string
	Namespace string
	Fields    map[string]Node
}

// StructDecl registers a struct declaration and its methods.
type StructDecl struct {
	Base
	Decl    *symbol.StructDecl
	Methods []*FunctionDecl
}

// FunctionDecl registers a function declaration together with its body.
type FunctionDecl struct {
	Base
	Name string
	Decl *symbol.FunctionDecl
	Body *Block
}

// FunctionCall invokes a function, or a method when Method is set: the
// receiver is auto-dereferenced, its type name mangled into the lookup,
// and the receiver prepended to the arguments.
type FunctionCall struct {
	Base
	Name      string
	Namespace string
	Method    Node // receiver; nil for plain calls
	Args      []Node
}

// Return exits the enclosing function, optionally with a value.
type Return struct {
	Base
	Expr Node // nil for a bare return
}

// Block is a node list evaluated in order under a scope discipline.
type Block struct {
	Base
	Scope    BlockScope
	Children []Node
}

// If holds parallel condition and body lists; a trailing body without a
// condition is the else branch.
type If struct {
	Base
	Conditions []Node
	Bodies     []*Block
}

// While loops over Body while Cond holds.
type While struct {
	Base
	Cond Node
	Body *Block
}

// Break exits the innermost loop.
type Break struct {
	Base
}

// Continue re-evaluates the innermost loop's condition.
type Continue struct {
	Base
}

// Import brings a module into scope: a relative file when the name starts
// with a dot, a builtin module otherwise.
type Import struct {
	Base
	Name string
}

// As casts between primitives. Target is an expression that must evaluate
// to a first-class type value.
type As struct {
	Base
	Child  Node
	Target Node
}

// Not negates a bool.
type Not struct {
	Base
	Child Node
}

// UnaryMinus negates a numeric.
type UnaryMinus struct {
	Base
	Child Node
}

// Plus adds numerics and concatenates strings.
type Plus struct {
	Base
	Left  Node
	Right Node
}

type Minus struct {
	Base
	Left  Node
	Right Node
}

type Multiplicate struct {
	Base
	Left  Node
	Right Node
}

type Divide struct {
	Base
	Left  Node
	Right Node
}

type Power struct {
	Base
	Left  Node
	Right Node
}

// And is boolean conjunction. The interpreter short-circuits it; the
// compiler evaluates both operands.
type And struct {
	Base
	Left  Node
	Right Node
}

// Or is boolean disjunction. The interpreter short-circuits it; the
// compiler evaluates both operands.
type Or struct {
	Base
	Left  Node
	Right Node
}

// Compare applies one of == != > >= < <= to same-typed operands.
type Compare struct {
	Base
	Left  Node
	Right Node
	Op    lexer.TokenType
}
