// Package constprop implements sparse constant propagation over the flat
// IR: at each program point, which names are known to hold one fixed
// literal value on every path, and which have collapsed to unknown (⊤).
package constprop

import "github.com/dataflow-go/goflow/ir"

// Binding is one name's constant-propagation lattice value: either a known
// literal, or Top (the name's value varies across incoming paths, or was
// produced by something the pass can't fold).
type Binding struct {
	Lit     ir.Literal
	IsConst bool // false means Top
}

// Const builds a known-literal Binding.
func Const(lit ir.Literal) Binding { return Binding{Lit: lit, IsConst: true} }

// Top is the unknown-value Binding.
var Top = Binding{}

// Env maps a name to its current Binding. A name absent from Env has no
// binding yet (the lattice's bottom): Meet ignores an input that leaves it
// absent, and Transfer treats an absent operand like Top when folding.
type Env map[string]Binding

// NewEnv builds an Env from name/literal pairs; mainly useful to tests.
func NewEnv(pairs map[string]ir.Literal) Env {
	e := make(Env, len(pairs))
	for n, lit := range pairs {
		e[n] = Const(lit)
	}
	return e
}

// Pass implements dataflow.Pass[Env]. Constant propagation walks forward:
// a block's in-environment is the meet (agreement) of its predecessors'
// out-environments, and its transfer folds pure instructions through that
// environment where every operand resolves to a known literal.
type Pass struct{}

func (Pass) Reversed() bool { return false }

func (Pass) Init(*ir.Function) Env { return Env{} }

func (p Pass) Entry(fn *ir.Function) Env { return p.Init(fn) }

// Meet binds every name that any input binds: to the shared literal when
// all inputs that bind the name agree on it, and to Top when two of them
// disagree or one of them is Top. An input that leaves the name absent
// contributes nothing to it.
func (Pass) Meet(vals []Env) Env {
	if len(vals) == 0 {
		return Env{}
	}
	out := Env{}
	seen := map[string]bool{}
	for _, env := range vals {
		for n := range env {
			seen[n] = true
		}
	}
	for n := range seen {
		var agreed Binding
		first := true
		consistent := true
		for _, env := range vals {
			b, ok := env[n]
			if !ok {
				continue
			}
			if first {
				agreed = b
				first = false
				continue
			}
			if !bindingsEqual(agreed, b) {
				consistent = false
				break
			}
		}
		if consistent && agreed.IsConst {
			out[n] = agreed
		} else {
			out[n] = Top
		}
	}
	return out
}

// Transfer folds each instruction's operands through in, producing the
// block's out-environment. A Value instruction binds to a known literal
// only when it is pure and every operand is itself a known literal;
// anything else — an impure op, a call, an unresolvable operand — binds
// the destination (if any) to Top, matching the usual conservative rule
// that once a value could vary, propagation stops tracking it precisely.
func (Pass) Transfer(b *ir.BasicBlock, in Env) Env {
	out := make(Env, len(in))
	for n, v := range in {
		out[n] = v
	}
	for _, instr := range b.Instrs {
		switch instr.Kind {
		case ir.KindConstant:
			out[instr.Dest] = Const(instr.Lit)
		case ir.KindValue:
			if instr.HasDest() {
				if folded, ok := fold(instr, out); ok {
					out[instr.Dest] = Const(folded)
				} else {
					out[instr.Dest] = Top
				}
			}
		}
	}
	return out
}

// fold attempts to evaluate a pure Value instruction given the current
// environment. It recognizes identity and the unary/binary operators the IR
// defines; an operator it doesn't know how to fold (or operand types it
// can't make sense of) reports ok=false, which Transfer treats as Top.
func fold(instr *ir.Instruction, env Env) (ir.Literal, bool) {
	if !instr.IsPure() {
		return ir.Literal{}, false
	}
	ops := make([]ir.Literal, len(instr.Uses))
	for i, use := range instr.Uses {
		b, ok := env[use]
		if !ok || !b.IsConst {
			return ir.Literal{}, false
		}
		ops[i] = b.Lit
	}
	switch instr.Op {
	case ir.OpId:
		if len(ops) != 1 {
			return ir.Literal{}, false
		}
		return ops[0], true
	case ir.OpAdd, ir.OpSub, ir.OpMul, ir.OpDiv:
		return foldArith(instr.Op, ops)
	case ir.OpEq, ir.OpLt, ir.OpGt, ir.OpLe, ir.OpGe:
		return foldCompare(instr.Op, ops)
	case ir.OpNot:
		if len(ops) != 1 || ops[0].Type != ir.Bool {
			return ir.Literal{}, false
		}
		return boolLit(ops[0].Value != "true"), true
	case ir.OpAnd, ir.OpOr:
		return foldLogic(instr.Op, ops)
	default:
		return ir.Literal{}, false
	}
}

func (Pass) Finish(_ *ir.Function, exit Env) Env { return exit }

// Equal compares two Envs binding by binding.
func (Pass) Equal(a, b Env) bool {
	if len(a) != len(b) {
		return false
	}
	for n, av := range a {
		bv, ok := b[n]
		if !ok || !bindingsEqual(av, bv) {
			return false
		}
	}
	return true
}

func bindingsEqual(a, b Binding) bool {
	if a.IsConst != b.IsConst {
		return false
	}
	if !a.IsConst {
		return true
	}
	return a.Lit == b.Lit
}
