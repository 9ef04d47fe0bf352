// Package livevars implements live-variable analysis: at each program
// point, which names might be read on some path before being overwritten.
package livevars

import "github.com/dataflow-go/goflow/ir"

// Set is the live-variables lattice value, ordered under ⊆ with ∪ as meet.
type Set map[string]struct{}

// NewSet builds a Set from a list of names; mainly useful to tests.
func NewSet(names ...string) Set {
	s := make(Set, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

// Pass implements dataflow.Pass[Set]. Live variables walks the CFG
// backward: a name is live at a block's entry if it is live at exit and not
// redefined within the block, or used before being redefined within it.
type Pass struct{}

func (Pass) Reversed() bool { return true }

func (Pass) Init(*ir.Function) Set { return Set{} }

func (p Pass) Entry(fn *ir.Function) Set { return p.Init(fn) }

// Meet is set union.
func (Pass) Meet(vals []Set) Set {
	out := Set{}
	for _, v := range vals {
		for n := range v {
			out[n] = struct{}{}
		}
	}
	return out
}

// Transfer walks the block's instructions in reverse: a destination kills
// liveness of that name, then the instruction's uses make their names
// live, reflecting that an instruction reads its operands before it writes
// its destination (this is the out-to-in direction of one block).
func (Pass) Transfer(b *ir.BasicBlock, in Set) Set {
	out := make(Set, len(in))
	for n := range in {
		out[n] = struct{}{}
	}
	for i := len(b.Instrs) - 1; i >= 0; i-- {
		instr := b.Instrs[i]
		if instr.HasDest() {
			delete(out, instr.Dest)
		}
		for _, u := range instr.Uses {
			out[u] = struct{}{}
		}
	}
	return out
}

func (Pass) Finish(_ *ir.Function, exit Set) Set { return exit }

// Equal compares two Sets for membership equality.
func (Pass) Equal(a, b Set) bool {
	if len(a) != len(b) {
		return false
	}
	for n := range a {
		if _, ok := b[n]; !ok {
			return false
		}
	}
	return true
}
