// Package availexpr implements available-expressions analysis: at each
// program point, which pure computations are guaranteed to have already
// been evaluated, with no operand redefinition since, on every path
// reaching that point.
package availexpr

import (
	"strings"

	"github.com/dataflow-go/goflow/ir"
)

// Expr is a comparable, hashable rendering of one pure computation: an
// opcode applied to an ordered list of operand names (or, for constants,
// the literal's canonical text standing in for the "operand list"). Two
// instructions with the same Op and the same operand names in the same
// order are the same Expr, regardless of which destination holds the
// result.
type Expr struct {
	Op   ir.Op
	Args string // operand names, joined by a separator no name can contain
}

const argSep = "\x00"

func exprOf(instr *ir.Instruction) (Expr, bool) {
	if !instr.IsPure() {
		return Expr{}, false
	}
	if instr.Kind == ir.KindConstant {
		return Expr{Op: ir.OpConst, Args: string(instr.Lit.Type) + argSep + instr.Lit.Value}, true
	}
	return Expr{Op: instr.Op, Args: strings.Join(instr.Uses, argSep)}, true
}

// Set is the available-expressions lattice value: either every possible
// expression is available (Full, the identity element for ∩, used as the
// bottom/most-optimistic value before any real information narrows it) or
// a finite, explicit set of available Exprs.
type Set struct {
	Full  bool
	Exprs map[Expr]struct{}
}

// FullSet is the lattice's bottom element.
func FullSet() Set { return Set{Full: true} }

// NewSet builds a finite Set from a list of Exprs; mainly useful to tests.
func NewSet(exprs ...Expr) Set {
	s := Set{Exprs: make(map[Expr]struct{}, len(exprs))}
	for _, e := range exprs {
		s.Exprs[e] = struct{}{}
	}
	return s
}

// Pass implements dataflow.Pass[Set]. Available expressions walks forward;
// Init is Full (not ∅) because meet is intersection and Full must be the
// identity that a single real predecessor's Set can narrow.
type Pass struct{}

func (Pass) Reversed() bool { return false }

func (Pass) Init(*ir.Function) Set { return FullSet() }

// Entry is the empty set: nothing has been computed yet at function entry.
func (Pass) Entry(*ir.Function) Set { return NewSet() }

// Meet is set intersection, with Full acting as the identity (Full ∩ x = x)
// so a block with only one real predecessor just inherits that
// predecessor's set rather than being vacuously narrowed to ∅.
func (Pass) Meet(vals []Set) Set {
	if len(vals) == 0 {
		return FullSet()
	}
	result := FullSet()
	for _, v := range vals {
		result = intersect(result, v)
	}
	return result
}

func intersect(a, b Set) Set {
	if a.Full {
		return b
	}
	if b.Full {
		return a
	}
	out := NewSet()
	for e := range a.Exprs {
		if _, ok := b.Exprs[e]; ok {
			out.Exprs[e] = struct{}{}
		}
	}
	return out
}

// Transfer processes the block's instructions in forward order: if an
// instruction is a pure computation, its own Expr is added as newly
// available first, then every available expression that mentions the
// instruction's destination as an operand is killed (a later
// recomputation of that expression would not match the earlier result
// anymore). Adding before killing is what makes a self-referential
// rewrite like `x := x + 1` come out right: the instruction's own Expr
// names its destination as one of its operands, so once the kill step
// runs it is immediately removed again along with every older entry that
// mentioned the now-redefined name — `x + 1` is not left claiming to be
// available past the assignment that invalidated it.
func (Pass) Transfer(b *ir.BasicBlock, in Set) Set {
	out := cloneSet(in)
	for _, instr := range b.Instrs {
		if e, ok := exprOf(instr); ok {
			out = add(out, e)
		}
		if instr.HasDest() {
			out = killUsesOf(out, instr.Dest)
		}
	}
	return out
}

func cloneSet(s Set) Set {
	if s.Full {
		return FullSet()
	}
	out := NewSet()
	for e := range s.Exprs {
		out.Exprs[e] = struct{}{}
	}
	return out
}

// killUsesOf drops every Expr in s that mentions name as one of its
// operands. Full is returned unchanged: it only ever appears as Init's
// starting value, and Meet's intersection with any real predecessor's
// Set immediately narrows it away, so a reachable block's in-value is
// never still Full by the time a real kill would matter.
func killUsesOf(s Set, name string) Set {
	if s.Full {
		return s
	}
	out := NewSet()
	for e := range s.Exprs {
		if !mentions(e, name) {
			out.Exprs[e] = struct{}{}
		}
	}
	return out
}

func mentions(e Expr, name string) bool {
	for _, arg := range strings.Split(e.Args, argSep) {
		if arg == name {
			return true
		}
	}
	return false
}

func add(s Set, e Expr) Set {
	if s.Full {
		return s
	}
	out := cloneSet(s)
	out.Exprs[e] = struct{}{}
	return out
}

func (Pass) Finish(_ *ir.Function, exit Set) Set { return exit }

// Equal compares two Sets for membership equality; Full only equals Full.
func (Pass) Equal(a, b Set) bool {
	if a.Full != b.Full {
		return false
	}
	if a.Full {
		return true
	}
	if len(a.Exprs) != len(b.Exprs) {
		return false
	}
	for e := range a.Exprs {
		if _, ok := b.Exprs[e]; !ok {
			return false
		}
	}
	return true
}

