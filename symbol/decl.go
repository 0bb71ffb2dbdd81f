package symbol

// TypedArg is one declared function parameter.
type TypedArg struct {
	Name string
	Type Type
}

// FunctionDecl is the signature of a declared function. Methods are
// registered under their mangled name (_StructName_method) with the
// receiver prepended as a &Struct self argument.
type FunctionDecl struct {
	Name   string
	Args   []TypedArg
	Return *Type // nil for void
}

// MangleMethod builds the declaration-table key of a method.
func MangleMethod(typeName, method string) string {
	return "_" + typeName + "_" + method
}

// StructDecl is a declared struct. Field order is significant: the compiler
// lays fields out in declaration order. Field and method names share one
// namespace.
type StructDecl struct {
	Name    string
	fields  []TypedArg
	index   map[string]int
	Methods []string
}

func NewStructDecl(name string) *StructDecl {
	return &StructDecl{Name: name, index: make(map[string]int)}
}

// AddField appends a field, reporting whether the name was free.
func (s *StructDecl) AddField(name string, fieldType Type) bool {
	if s.Has(name) {
		return false
	}
	s.index[name] = len(s.fields)
	s.fields = append(s.fields, TypedArg{Name: name, Type: fieldType})
	return true
}

// AddMethod records a method name, reporting whether the name was free.
// The method body itself lives in the function declaration table.
func (s *StructDecl) AddMethod(name string) bool {
	if s.Has(name) {
		return false
	}
	s.index[name] = -1
	s.Methods = append(s.Methods, name)
	return true
}

// Has reports whether the name is taken by a field or a method.
func (s *StructDecl) Has(name string) bool {
	_, ok := s.index[name]
	return ok
}

// FieldType returns the declared type of a field.
func (s *StructDecl) FieldType(name string) (Type, bool) {
	i, ok := s.index[name]
	if !ok || i < 0 {
		return Type{}, false
	}
	return s.fields[i].Type, true
}

// FieldIndex returns a field's position in declaration order, or -1.
func (s *StructDecl) FieldIndex(name string) int {
	i, ok := s.index[name]
	if !ok {
		return -1
	}
	return i
}

// Fields returns the fields in declaration order.
func (s *StructDecl) Fields() []TypedArg {
	return s.fields
}
