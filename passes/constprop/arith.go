package constprop

import (
	"strconv"

	"github.com/dataflow-go/goflow/ir"
)

// foldArith evaluates a binary arithmetic op over two numeric literals,
// preserving int vs float per the operands' declared Type. Division by a
// literal zero is left unfolded rather than panicking or fabricating a
// result — the pass has no way to report a fold failure except "unknown".
func foldArith(op ir.Op, ops []ir.Literal) (ir.Literal, bool) {
	if len(ops) != 2 {
		return ir.Literal{}, false
	}
	a, b := ops[0], ops[1]
	if a.Type == ir.Float || b.Type == ir.Float {
		af, aok := parseFloat(a)
		bf, bok := parseFloat(b)
		if !aok || !bok {
			return ir.Literal{}, false
		}
		switch op {
		case ir.OpAdd:
			return floatLit(af + bf), true
		case ir.OpSub:
			return floatLit(af - bf), true
		case ir.OpMul:
			return floatLit(af * bf), true
		case ir.OpDiv:
			if bf == 0 {
				return ir.Literal{}, false
			}
			return floatLit(af / bf), true
		}
		return ir.Literal{}, false
	}

	ai, aok := parseInt(a)
	bi, bok := parseInt(b)
	if !aok || !bok {
		return ir.Literal{}, false
	}
	switch op {
	case ir.OpAdd:
		return intLit(ai + bi), true
	case ir.OpSub:
		return intLit(ai - bi), true
	case ir.OpMul:
		return intLit(ai * bi), true
	case ir.OpDiv:
		if bi == 0 {
			return ir.Literal{}, false
		}
		return intLit(ai / bi), true
	}
	return ir.Literal{}, false
}

func foldCompare(op ir.Op, ops []ir.Literal) (ir.Literal, bool) {
	if len(ops) != 2 {
		return ir.Literal{}, false
	}
	a, b := ops[0], ops[1]
	af, aok := parseFloat(a)
	bf, bok := parseFloat(b)
	if !aok || !bok {
		return ir.Literal{}, false
	}
	switch op {
	case ir.OpEq:
		return boolLit(af == bf), true
	case ir.OpLt:
		return boolLit(af < bf), true
	case ir.OpGt:
		return boolLit(af > bf), true
	case ir.OpLe:
		return boolLit(af <= bf), true
	case ir.OpGe:
		return boolLit(af >= bf), true
	}
	return ir.Literal{}, false
}

func foldLogic(op ir.Op, ops []ir.Literal) (ir.Literal, bool) {
	if len(ops) != 2 || ops[0].Type != ir.Bool || ops[1].Type != ir.Bool {
		return ir.Literal{}, false
	}
	a := ops[0].Value == "true"
	b := ops[1].Value == "true"
	switch op {
	case ir.OpAnd:
		return boolLit(a && b), true
	case ir.OpOr:
		return boolLit(a || b), true
	}
	return ir.Literal{}, false
}

func parseInt(l ir.Literal) (int64, bool) {
	v, err := strconv.ParseInt(l.Value, 10, 64)
	return v, err == nil
}

func parseFloat(l ir.Literal) (float64, bool) {
	v, err := strconv.ParseFloat(l.Value, 64)
	return v, err == nil
}

func intLit(v int64) ir.Literal {
	return ir.Literal{Type: ir.Int, Value: strconv.FormatInt(v, 10)}
}

func floatLit(v float64) ir.Literal {
	return ir.Literal{Type: ir.Float, Value: strconv.FormatFloat(v, 'g', -1, 64)}
}

func boolLit(v bool) ir.Literal {
	return ir.Literal{Type: ir.Bool, Value: strconv.FormatBool(v)}
}
