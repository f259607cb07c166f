package filter

import (
	"fmt"
	"strings"
)

// SQL renders the expression as a parameterized predicate over a JSON
// metadata column. Leaf values bind as parameters, never by string
// interpolation; composite nodes are parenthesized explicitly so operator
// precedence is never left to the engine's defaults.
func SQL(e *Expression, metadataColumn string) (string, []any, error) {
	if e == nil {
		return "", nil, fmt.Errorf("filter: nil expression")
	}
	var b strings.Builder
	var args []any
	if err := render(&b, &args, e, metadataColumn); err != nil {
		return "", nil, err
	}
	return b.String(), args, nil
}

func render(b *strings.Builder, args *[]any, e *Expression, col string) error {
	switch e.Op {
	case OpAnd, OpOr:
		if e.Left == nil || e.Right == nil {
			return fmt.Errorf("filter: %s requires two operands", e.Op)
		}
		b.WriteString("(")
		if err := render(b, args, e.Left, col); err != nil {
			return err
		}
		if e.Op == OpAnd {
			b.WriteString(" AND ")
		} else {
			b.WriteString(" OR ")
		}
		if err := render(b, args, e.Right, col); err != nil {
			return err
		}
		b.WriteString(")")
		return nil
	case OpNot:
		if e.Left == nil {
			return fmt.Errorf("filter: NOT requires an operand")
		}
		b.WriteString("NOT (")
		if err := render(b, args, e.Left, col); err != nil {
			return err
		}
		b.WriteString(")")
		return nil
	case OpEQ, OpNE, OpGT, OpGTE, OpLT, OpLTE:
		path, err := jsonPath(e.Key)
		if err != nil {
			return err
		}
		v, err := bindable(e.Key, e.Value)
		if err != nil {
			return err
		}
		fmt.Fprintf(b, "json_extract(%s, %s) %s ?", col, path, comparison(e.Op))
		*args = append(*args, v)
		return nil
	case OpIn, OpNotIn:
		values, ok := e.Value.([]any)
		if !ok || len(values) == 0 {
			return fmt.Errorf("filter: %s on key %q requires at least one value", e.Op, e.Key)
		}
		path, err := jsonPath(e.Key)
		if err != nil {
			return err
		}
		keyword := "IN"
		if e.Op == OpNotIn {
			keyword = "NOT IN"
		}
		fmt.Fprintf(b, "json_extract(%s, %s) %s (", col, path, keyword)
		for i, raw := range values {
			v, err := bindable(e.Key, raw)
			if err != nil {
				return err
			}
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString("?")
			*args = append(*args, v)
		}
		b.WriteString(")")
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedOperator, e.Op)
	}
}

func comparison(op Operator) string {
	switch op {
	case OpEQ:
		return "="
	case OpNE:
		return "!="
	case OpGT:
		return ">"
	case OpGTE:
		return ">="
	case OpLT:
		return "<"
	case OpLTE:
		return "<="
	}
	return ""
}

// jsonPath builds the quoted SQL string literal '$."key"' addressing a
// metadata key. Keys travel inside a SQL string literal, so single quotes are
// doubled per SQL literal rules; double quotes would break out of the JSON
// path member quoting and are rejected outright.
func jsonPath(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("filter: empty metadata key")
	}
	if strings.ContainsAny(key, "\"\x00") {
		return "", fmt.Errorf("filter: metadata key %q contains unsupported characters", key)
	}
	escaped := strings.ReplaceAll(key, "'", "''")
	return `'$."` + escaped + `"'`, nil
}

// bindable coerces a leaf literal into a driver-friendly value. Booleans map
// to 0/1 because json_extract surfaces JSON booleans as INTEGER.
func bindable(key string, value any) (any, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case bool:
		if v {
			return int64(1), nil
		}
		return int64(0), nil
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case float32:
		return float64(v), nil
	case float64:
		return v, nil
	default:
		return nil, fmt.Errorf("filter: value for key %q has unsupported type %T", key, value)
	}
}
