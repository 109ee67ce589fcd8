package stdlib

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	perrors "github.com/sambeau/magic/pkg/magic/errors"
	"github.com/sambeau/magic/pkg/magic/lambda"
	"github.com/sambeau/magic/pkg/magic/signals"
)

type mathOp int

const (
	opAdd mathOp = iota
	opSubtract
	opMultiply
	opDivide
	opModulo
)

// fold combines the node's value and its children's values left to right.
// Every operand after the first is converted to the first operand's type.
func fold(o mathOp) leafFunc {
	return func(exec executor, _ *signals.Signaler, n *lambda.Node) error {
		if err := exec(n); err != nil {
			return err
		}
		operands, err := operandsOf(n)
		if err != nil {
			return err
		}
		if len(operands) == 0 {
			return perrors.New("LAMBDA-0011", map[string]any{"Slot": n.Name, "Expected": 1, "Got": 0})
		}
		result := operands[0]
		for _, v := range operands[1:] {
			if result, err = apply(o, result, v); err != nil {
				return err
			}
		}
		setResult(n, result)
		return nil
	}
}

func operandsOf(n *lambda.Node) ([]any, error) {
	var operands []any
	if n.Value != nil {
		v, err := lambda.Evaluate(n)
		if err != nil {
			return nil, err
		}
		if v != nil {
			operands = append(operands, v)
		}
	}
	for _, c := range n.Children() {
		v, err := lambda.Evaluate(c)
		if err != nil {
			return nil, err
		}
		operands = append(operands, v)
	}
	return operands, nil
}

// step adds or subtracts the step child (default 1) from every destination.
func step(o mathOp) leafFunc {
	return func(exec executor, _ *signals.Signaler, n *lambda.Node) error {
		x, ok := n.Value.(*lambda.Expression)
		if !ok {
			return perrors.New("LAMBDA-0009", map[string]any{"Slot": n.Name})
		}
		if err := exec(n); err != nil {
			return err
		}
		var by any = int32(1)
		if n.Count() > 0 {
			v, err := lambda.Evaluate(n.First())
			if err != nil {
				return err
			}
			by = v
		}
		dest, err := x.Nodes(n)
		if err != nil {
			return err
		}
		for _, d := range dest {
			v, err := apply(o, d.Value, by)
			if err != nil {
				return err
			}
			d.Value = v
		}
		return nil
	}
}

// apply computes a op b in a's type.
func apply(o mathOp, a, b any) (any, error) {
	if a == nil || b == nil {
		return nil, perrors.New("TYPE-0001", map[string]any{"Expected": "number", "Actual": "null"})
	}
	tag, _ := lambda.TypeOf(a)
	if d, ok := a.(time.Duration); ok {
		// durations only add and subtract other durations
		if o != opAdd && o != opSubtract {
			return nil, notNumeric(a)
		}
		other, err := lambda.Convert(b, tag)
		if err != nil {
			return nil, err
		}
		return integer(o, d, other.(time.Duration))
	}
	if !numeric(a) {
		return nil, notNumeric(a)
	}
	other, err := lambda.Convert(b, tag)
	if err != nil {
		return nil, err
	}

	switch x := a.(type) {
	case int32:
		return integer(o, x, other.(int32))
	case int64:
		return integer(o, x, other.(int64))
	case uint32:
		return integer(o, x, other.(uint32))
	case uint64:
		return integer(o, x, other.(uint64))
	case byte:
		return integer(o, x, other.(byte))
	case float64:
		return float(o, x, other.(float64))
	case float32:
		return float(o, x, other.(float32))
	case decimal.Decimal:
		return decimalOp(o, x, other.(decimal.Decimal))
	}
	return nil, notNumeric(a)
}

func numeric(v any) bool {
	switch v.(type) {
	case int32, int64, uint32, uint64, byte, float64, float32, decimal.Decimal:
		return true
	}
	return false
}

func notNumeric(v any) error {
	return perrors.New("TYPE-0001", map[string]any{"Expected": "number", "Actual": lambda.TypeName(v)})
}

func divisionByZero() error {
	return perrors.New("VALID-0001", map[string]any{"Message": "division by zero"})
}

func integer[T ~int32 | ~int64 | ~uint32 | ~uint64 | ~uint8](o mathOp, a, b T) (any, error) {
	switch o {
	case opAdd:
		return a + b, nil
	case opSubtract:
		return a - b, nil
	case opMultiply:
		return a * b, nil
	}
	if b == 0 {
		return nil, divisionByZero()
	}
	if o == opDivide {
		return a / b, nil
	}
	return a % b, nil
}

func float[T float32 | float64](o mathOp, a, b T) (any, error) {
	switch o {
	case opAdd:
		return a + b, nil
	case opSubtract:
		return a - b, nil
	case opMultiply:
		return a * b, nil
	}
	if b == 0 {
		return nil, divisionByZero()
	}
	if o == opDivide {
		return a / b, nil
	}
	return T(math.Mod(float64(a), float64(b))), nil
}

func decimalOp(o mathOp, a, b decimal.Decimal) (any, error) {
	switch o {
	case opAdd:
		return a.Add(b), nil
	case opSubtract:
		return a.Sub(b), nil
	case opMultiply:
		return a.Mul(b), nil
	}
	if b.IsZero() {
		return nil, divisionByZero()
	}
	if o == opDivide {
		return a.Div(b), nil
	}
	return a.Mod(b), nil
}
