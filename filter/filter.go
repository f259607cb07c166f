package filter

import (
	"errors"
	"fmt"
)

// ErrUnsupportedOperator signals an expression node whose operator the
// translator does not understand.
var ErrUnsupportedOperator = errors.New("filter: unsupported operator")

// Operator enumerates the filter operators.
type Operator string

const (
	OpEQ    Operator = "EQ"
	OpNE    Operator = "NE"
	OpGT    Operator = "GT"
	OpGTE   Operator = "GTE"
	OpLT    Operator = "LT"
	OpLTE   Operator = "LTE"
	OpIn    Operator = "IN"
	OpNotIn Operator = "NOT_IN"
	OpAnd   Operator = "AND"
	OpOr    Operator = "OR"
	OpNot   Operator = "NOT"
)

// Expression is an immutable boolean filter tree over metadata keys.
// Comparison nodes carry Key and Value; composite nodes carry Left (and Right
// for AND/OR). Expressions are produced by the constructors below and
// consumed by the SQL translator; they are never stored.
type Expression struct {
	Op    Operator
	Key   string
	Value any
	Left  *Expression
	Right *Expression
}

// Eq matches documents whose metadata key equals value.
func Eq(key string, value any) *Expression {
	return &Expression{Op: OpEQ, Key: key, Value: value}
}

// Ne matches documents whose metadata key differs from value.
func Ne(key string, value any) *Expression {
	return &Expression{Op: OpNE, Key: key, Value: value}
}

// Gt matches documents whose metadata key is strictly greater than value.
func Gt(key string, value any) *Expression {
	return &Expression{Op: OpGT, Key: key, Value: value}
}

// Gte matches documents whose metadata key is greater than or equal to value.
func Gte(key string, value any) *Expression {
	return &Expression{Op: OpGTE, Key: key, Value: value}
}

// Lt matches documents whose metadata key is strictly less than value.
func Lt(key string, value any) *Expression {
	return &Expression{Op: OpLT, Key: key, Value: value}
}

// Lte matches documents whose metadata key is less than or equal to value.
func Lte(key string, value any) *Expression {
	return &Expression{Op: OpLTE, Key: key, Value: value}
}

// In matches documents whose metadata key equals any of the values.
func In(key string, values ...any) *Expression {
	return &Expression{Op: OpIn, Key: key, Value: values}
}

// NotIn matches documents whose metadata key equals none of the values.
func NotIn(key string, values ...any) *Expression {
	return &Expression{Op: OpNotIn, Key: key, Value: values}
}

// And matches documents satisfying both sub-expressions.
func And(left, right *Expression) *Expression {
	return &Expression{Op: OpAnd, Left: left, Right: right}
}

// Or matches documents satisfying either sub-expression.
func Or(left, right *Expression) *Expression {
	return &Expression{Op: OpOr, Left: left, Right: right}
}

// Not negates a sub-expression.
func Not(inner *Expression) *Expression {
	return &Expression{Op: OpNot, Left: inner}
}

func (e *Expression) String() string {
	if e == nil {
		return "<nil>"
	}
	switch e.Op {
	case OpAnd, OpOr:
		return fmt.Sprintf("(%s %s %s)", e.Left, e.Op, e.Right)
	case OpNot:
		return fmt.Sprintf("NOT (%s)", e.Left)
	default:
		return fmt.Sprintf("%s %s %v", e.Key, e.Op, e.Value)
	}
}
