// Package reachingdefs implements reaching-definitions analysis: at each
// program point, which (variable, defining block) pairs might be the last
// write to that variable on some path reaching the point.
//
// This is block-granularity reaching definitions: a block's transfer
// conflates multiple writes to the same name within the block into a
// single "the name was (re)defined in this block" fact, rather than
// tracking the specific instruction that wrote it. Callers wanting
// per-instruction granularity need a different Def representation.
package reachingdefs

import "github.com/dataflow-go/goflow/ir"

// Def is a reaching definition: a write to Name that occurred in Block.
type Def struct {
	Name  string
	Block int
}

// Set is the reaching-definitions lattice value: a set of Defs, ordered
// under ⊆, with ∪ as meet.
type Set map[Def]struct{}

// NewSet builds a Set from a list of Defs; mainly useful to tests building
// expected fixed-point values.
func NewSet(defs ...Def) Set {
	s := make(Set, len(defs))
	for _, d := range defs {
		s[d] = struct{}{}
	}
	return s
}

// Pass implements dataflow.Pass[Set].
type Pass struct{}

func (Pass) Reversed() bool { return false }

// Init treats every function argument as reaching at block 0 — the
// function's parameters are definitions that hold as of entry.
func (Pass) Init(fn *ir.Function) Set {
	s := make(Set, len(fn.Params))
	for _, p := range fn.Params {
		s[Def{Name: p.Name, Block: 0}] = struct{}{}
	}
	return s
}

func (p Pass) Entry(fn *ir.Function) Set { return p.Init(fn) }

// Meet is set union.
func (Pass) Meet(vals []Set) Set {
	out := Set{}
	for _, v := range vals {
		for d := range v {
			out[d] = struct{}{}
		}
	}
	return out
}

// Transfer kills every incoming Def whose Name is (re)written anywhere in
// the block and replaces it with a single Def at this block's index; names
// not written in the block pass through untouched.
func (Pass) Transfer(b *ir.BasicBlock, in Set) Set {
	defined := map[string]bool{}
	for _, instr := range b.Instrs {
		if instr.HasDest() {
			defined[instr.Dest] = true
		}
	}

	out := Set{}
	for d := range in {
		if !defined[d.Name] {
			out[d] = struct{}{}
		}
	}
	for name := range defined {
		out[Def{Name: name, Block: b.Index}] = struct{}{}
	}
	return out
}

func (Pass) Finish(_ *ir.Function, exit Set) Set { return exit }

// Equal compares two Sets for membership equality.
func (Pass) Equal(a, b Set) bool {
	if len(a) != len(b) {
		return false
	}
	for d := range a {
		if _, ok := b[d]; !ok {
			return false
		}
	}
	return true
}
