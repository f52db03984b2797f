package ireval

import (
	"fmt"
	"math"
	"math/big"
	"strings"

	"ember/internal/ast"
)

// TypeError is raised for operations the language rejects at runtime.
type TypeError struct{ Msg string }

func (e *TypeError) Error() string { return "TypeError: " + e.Msg }

func typeErrorf(format string, args ...any) error {
	return &TypeError{Msg: fmt.Sprintf(format, args...)}
}

func bigint(b *big.Int) Value { return Value{Kind: KindBigInt, Big: b} }

// Binary applies a binary operator with the language's coercions.
func Binary(op string, l, r Value) (Value, error) {
	switch op {
	case "==":
		return Bool(looseEqual(l, r)), nil
	case "!=":
		return Bool(!looseEqual(l, r)), nil
	case "===":
		return Bool(strictEqual(l, r)), nil
	case "!==":
		return Bool(!strictEqual(l, r)), nil
	case "<", ">", "<=", ">=":
		return Bool(compare(op, l, r)), nil
	case "in":
		if r.Kind != KindObject {
			return Undefined, typeErrorf("cannot use 'in' on %s", typeOf(r))
		}
		_, ok := r.Obj.lookup(propertyKey(l))
		return Bool(ok), nil
	case "instanceof":
		return instanceOf(l, r)
	case "+":
		lp, rp := toPrimitive(l), toPrimitive(r)
		if lp.Kind == KindString || rp.Kind == KindString {
			return String(toString(lp) + toString(rp)), nil
		}
		return arith(op, lp, rp)
	}
	return arith(op, l, r)
}

func arith(op string, l, r Value) (Value, error) {
	if l.Kind == KindBigInt || r.Kind == KindBigInt {
		if l.Kind != r.Kind {
			return Undefined, typeErrorf("cannot mix bigint and other types")
		}
		return bigArith(op, l.Big, r.Big)
	}
	a, b := toNumber(l), toNumber(r)
	return Number(NumberOp(op, a, b)), nil
}

// NumberOp evaluates an arithmetic or bitwise operator on two numbers.
func NumberOp(op string, a, b float64) float64 {
	switch op {
	case "+":
		return a + b
	case "-":
		return a - b
	case "*":
		return a * b
	case "/":
		return a / b
	case "%":
		if b == 0 || math.IsInf(a, 0) || math.IsNaN(a) || math.IsNaN(b) {
			return math.NaN()
		}
		if math.IsInf(b, 0) {
			return a
		}
		return math.Mod(a, b)
	case "**":
		if math.IsNaN(b) || (math.Abs(a) == 1 && math.IsInf(b, 0)) {
			return math.NaN()
		}
		return math.Pow(a, b)
	case "|":
		return float64(ast.ToInt32(a) | ast.ToInt32(b))
	case "&":
		return float64(ast.ToInt32(a) & ast.ToInt32(b))
	case "^":
		return float64(ast.ToInt32(a) ^ ast.ToInt32(b))
	case "<<":
		return float64(ast.ToInt32(a) << (ast.ToUint32(b) & 31))
	case ">>":
		return float64(ast.ToInt32(a) >> (ast.ToUint32(b) & 31))
	case ">>>":
		return float64(ast.ToUint32(a) >> (ast.ToUint32(b) & 31))
	}
	return math.NaN()
}

func bigArith(op string, a, b *big.Int) (Value, error) {
	z := new(big.Int)
	switch op {
	case "+":
		return bigint(z.Add(a, b)), nil
	case "-":
		return bigint(z.Sub(a, b)), nil
	case "*":
		return bigint(z.Mul(a, b)), nil
	case "/", "%":
		if b.Sign() == 0 {
			return Undefined, &RangeError{Msg: "division by zero"}
		}
		if op == "/" {
			return bigint(z.Quo(a, b)), nil
		}
		return bigint(z.Rem(a, b)), nil
	case "&":
		return bigint(z.And(a, b)), nil
	case "|":
		return bigint(z.Or(a, b)), nil
	case "^":
		return bigint(z.Xor(a, b)), nil
	}
	return Undefined, typeErrorf("operator %s is not supported on bigint", op)
}

// RangeError is raised for out-of-range arithmetic.
type RangeError struct{ Msg string }

func (e *RangeError) Error() string { return "RangeError: " + e.Msg }

func strictEqual(l, r Value) bool {
	if l.Kind != r.Kind {
		return false
	}
	switch l.Kind {
	case KindUndefined, KindNull, KindEmpty:
		return true
	case KindBoolean:
		return l.Bool == r.Bool
	case KindNumber:
		return l.Num == r.Num
	case KindString:
		return l.Str == r.Str
	case KindBigInt:
		return l.Big.Cmp(r.Big) == 0
	}
	return l.Obj == r.Obj
}

func nullish(v Value) bool {
	return v.Kind == KindUndefined || v.Kind == KindNull || v.Kind == KindEmpty
}

func looseEqual(l, r Value) bool {
	switch {
	case l.Kind == r.Kind:
		return strictEqual(l, r)
	case nullish(l) || nullish(r):
		return nullish(l) && nullish(r)
	case l.Kind == KindObject && r.Kind == KindObject:
		return l.Obj == r.Obj
	case l.Kind == KindBigInt || r.Kind == KindBigInt:
		a, b := l, r
		if a.Kind != KindBigInt {
			a, b = b, a
		}
		f := toNumber(toPrimitive(b))
		if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
			return false
		}
		bf, _ := new(big.Float).SetInt(a.Big).Float64()
		return bf == f
	}
	lp, rp := toPrimitive(l), toPrimitive(r)
	if lp.Kind == KindString && rp.Kind == KindString {
		return lp.Str == rp.Str
	}
	return toNumber(lp) == toNumber(rp)
}

func compare(op string, l, r Value) bool {
	lp, rp := toPrimitive(l), toPrimitive(r)
	if lp.Kind == KindString && rp.Kind == KindString {
		c := strings.Compare(lp.Str, rp.Str)
		switch op {
		case "<":
			return c < 0
		case ">":
			return c > 0
		case "<=":
			return c <= 0
		}
		return c >= 0
	}
	if lp.Kind == KindBigInt && rp.Kind == KindBigInt {
		c := lp.Big.Cmp(rp.Big)
		switch op {
		case "<":
			return c < 0
		case ">":
			return c > 0
		case "<=":
			return c <= 0
		}
		return c >= 0
	}
	a, b := toNumber(lp), toNumber(rp)
	switch op {
	case "<":
		return a < b
	case ">":
		return a > b
	case "<=":
		return a <= b
	}
	return a >= b
}

func instanceOf(l, r Value) (Value, error) {
	if r.Kind != KindObject || r.Obj.Closure == nil {
		return Undefined, typeErrorf("right-hand side of 'instanceof' is not callable")
	}
	if l.Kind != KindObject {
		return Bool(false), nil
	}
	p, ok := r.Obj.lookup("prototype")
	if !ok || p.Accessor || p.Value.Kind != KindObject {
		return Bool(false), nil
	}
	for cur := l.Obj.Proto; cur != nil; cur = cur.Proto {
		if cur == p.Value.Obj {
			return Bool(true), nil
		}
	}
	return Bool(false), nil
}

// Unary applies a prefix or update operator.
func Unary(op string, v Value) (Value, error) {
	switch op {
	case "!":
		return Bool(!truthy(v)), nil
	case "typeof":
		return String(typeOf(v)), nil
	}
	if v.Kind == KindBigInt {
		z := new(big.Int)
		switch op {
		case "-":
			return bigint(z.Neg(v.Big)), nil
		case "~":
			return bigint(z.Not(v.Big)), nil
		case "++":
			return bigint(z.Add(v.Big, big.NewInt(1))), nil
		case "--":
			return bigint(z.Sub(v.Big, big.NewInt(1))), nil
		}
		return Undefined, typeErrorf("operator %s is not supported on bigint", op)
	}
	n := toNumber(v)
	switch op {
	case "-":
		return Number(-n), nil
	case "~":
		return Number(float64(^ast.ToInt32(n))), nil
	case "++":
		return Number(n + 1), nil
	case "--":
		return Number(n - 1), nil
	}
	return Undefined, fmt.Errorf("unknown unary operator %q", op)
}

// AsNumber is the numeric conversion of unary plus; bigint passes through.
func AsNumber(v Value) (Value, error) {
	if v.Kind == KindBigInt {
		return v, nil
	}
	return Number(toNumber(v)), nil
}
