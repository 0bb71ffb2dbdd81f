package interp

import (
	"math"
	"strconv"
	"strings"

	"github.com/codeassociates/caiman/ast"
	"github.com/codeassociates/caiman/diag"
	"github.com/codeassociates/caiman/symbol"
)

// evalArithmetic handles the five binary arithmetic nodes. Operands must
// share a numeric kind; Plus also concatenates strings.
func (i *Interpreter) evalArithmetic(node ast.Node) (Result, *diag.Error) {
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

	leftValue, err := i.evalValue(left)
	if err != nil {
		return nil, err
	}
	rightValue, err := i.evalValue(right)
	if err != nil {
		return nil, err
	}

	leftPrim, leftOk := leftValue.(Primitive)
	rightPrim, rightOk := rightValue.(Primitive)

	fail := func(verb string) *diag.Error {
		return diag.Newf(pos, "cannot %s these two types together", verb)
	}

	switch node.(type) {
	case *ast.Plus:
		if !leftOk || !rightOk {
			return nil, fail("add")
		}
		a, b := leftPrim.Literal, rightPrim.Literal
		switch {
		case a.Kind == symbol.Num && b.Kind == symbol.Num:
			return numResult(a.Num + b.Num), nil
		case a.Kind == symbol.Fnum && b.Kind == symbol.Fnum:
			return fnumResult(a.Fnum + b.Fnum), nil
		case a.Kind == symbol.Str && b.Kind == symbol.Str:
			return ValueResult{Primitive{symbol.StrLiteral(a.Str + b.Str)}}, nil
		}
		return nil, fail("add")

	case *ast.Minus:
		a, b, ok := numericPair(leftOk, rightOk, leftPrim, rightPrim)
		if !ok {
			return nil, fail("subtract")
		}
		if a.Kind == symbol.Num {
			return numResult(a.Num - b.Num), nil
		}
		return fnumResult(a.Fnum - b.Fnum), nil

	case *ast.Multiplicate:
		a, b, ok := numericPair(leftOk, rightOk, leftPrim, rightPrim)
		if !ok {
			return nil, fail("multiply")
		}
		if a.Kind == symbol.Num {
			return numResult(a.Num * b.Num), nil
		}
		return fnumResult(a.Fnum * b.Fnum), nil

	case *ast.Divide:
		a, b, ok := numericPair(leftOk, rightOk, leftPrim, rightPrim)
		if !ok {
			return nil, fail("divide")
		}
		if a.Kind == symbol.Num {
			if b.Num == 0 {
				return nil, diag.New(pos, "division by zero")
			}
			return numResult(a.Num / b.Num), nil
		}
		return fnumResult(a.Fnum / b.Fnum), nil

	case *ast.Power:
		a, b, ok := numericPair(leftOk, rightOk, leftPrim, rightPrim)
		if !ok {
			return nil, fail("raise")
		}
		if a.Kind == symbol.Num {
			if b.Num < 0 {
				return nil, diag.New(pos, "cannot use a negative exponent on a num")
			}
			result := int32(1)
			for n := int32(0); n < b.Num; n++ {
				result *= a.Num
			}
			return numResult(result), nil
		}
		return fnumResult(float32(math.Pow(float64(a.Fnum), float64(b.Fnum)))), nil
	}

	return nil, diag.New(pos, "unknown arithmetic node")
}

// numericPair checks that both operands are primitives of the same
// numeric kind.
func numericPair(leftOk, rightOk bool, left, right Primitive) (symbol.Literal, symbol.Literal, bool) {
	if !leftOk || !rightOk {
		return symbol.Literal{}, symbol.Literal{}, false
	}
	a, b := left.Literal, right.Literal
	if a.Kind != b.Kind || (a.Kind != symbol.Num && a.Kind != symbol.Fnum) {
		return symbol.Literal{}, symbol.Literal{}, false
	}
	return a, b, true
}

func numResult(n int32) ValueResult {
	return ValueResult{Primitive{symbol.NumLiteral(n)}}
}

func fnumResult(f float32) ValueResult {
	return ValueResult{Primitive{symbol.FnumLiteral(f)}}
}

// evalAs casts between primitives. Same-type casts are redundant and
// rejected; str to num parsing fails on malformed input.
func (i *Interpreter) evalAs(n *ast.As) (Result, *diag.Error) {
	value, err := i.evalValue(n.Child)
	if err != nil {
		return nil, err
	}

	targetValue, err := i.evalValue(n.Target)
	if err != nil {
		return nil, err
	}
	target, ok := targetValue.(TypeValue)
	if !ok {
		return nil, diag.New(n.Pos(), "expected a type after the as operator")
	}

	prim, ok := value.(Primitive)
	if !ok {
		return nil, diag.New(n.Pos(), "can only cast primitives together")
	}
	lit := prim.Literal

	if lit.Type().Equals(target.T) {
		return nil, diag.New(n.Pos(), "redundant cast")
	}

	casted, castErr := castLiteral(lit, target.T, n.Pos())
	if castErr != nil {
		return nil, castErr
	}
	return ValueResult{Primitive{casted}}, nil
}

func castLiteral(lit symbol.Literal, target symbol.Type, pos diag.Pos) (symbol.Literal, *diag.Error) {
	switch {
	case lit.Kind == symbol.Bool && target.Kind == symbol.Num:
		if lit.Bool {
			return symbol.NumLiteral(1), nil
		}
		return symbol.NumLiteral(0), nil

	case lit.Kind == symbol.Bool && target.Kind == symbol.Str:
		return symbol.StrLiteral(lit.Display()), nil

	case lit.Kind == symbol.Num && target.Kind == symbol.Bool:
		return symbol.BoolLiteral(lit.Num != 0), nil

	case lit.Kind == symbol.Num && target.Kind == symbol.Str:
		return symbol.StrLiteral(strconv.FormatInt(int64(lit.Num), 10)), nil

	case lit.Kind == symbol.Num && target.Kind == symbol.Fnum:
		return symbol.FnumLiteral(float32(lit.Num)), nil

	case lit.Kind == symbol.Fnum && target.Kind == symbol.Num:
		return symbol.NumLiteral(int32(lit.Fnum)), nil

	case lit.Kind == symbol.Fnum && target.Kind == symbol.Str:
		return symbol.StrLiteral(lit.Display()), nil

	case lit.Kind == symbol.Str && target.Kind == symbol.Num:
		n, err := strconv.ParseInt(strings.TrimSpace(lit.Str), 10, 32)
		if err != nil {
			return symbol.Literal{}, diag.New(pos, "could not parse the str into a num")
		}
		return symbol.NumLiteral(int32(n)), nil

	case lit.Kind == symbol.Str && target.Kind == symbol.Fnum:
		f, err := strconv.ParseFloat(strings.TrimSpace(lit.Str), 32)
		if err != nil {
			return symbol.Literal{}, diag.New(pos, "could not parse the str into a fnum")
		}
		return symbol.FnumLiteral(float32(f)), nil

	case lit.Kind == symbol.Str && target.Kind == symbol.Bool:
		return symbol.BoolLiteral(lit.Str != ""), nil
	}

	return symbol.Literal{}, diag.New(pos, "can only cast primitives together")
}
