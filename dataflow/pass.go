// Package dataflow implements the generic monotone dataflow worklist engine:
// a Pass contract (component B of the design) and three executor strategies
// that drive any Pass over any cfg.CFG to a fixed point (component C).
//
// The engine assumes the pair (Meet, Transfer) a Pass supplies is monotone
// on a lattice with finite ascending chains under Init as bottom;
// termination follows from that assumption. A non-monotone pass is a
// contract violation, not a handled error: the engine does not detect it
// and will simply fail to converge.
package dataflow

import (
	"github.com/dataflow-go/goflow/cfg"
	"github.com/dataflow-go/goflow/ir"
)

// Pass is a dataflow pass specification: the pure contract the executors
// consume. V is the pass's lattice value type (a set of definitions, a set
// of names, a constant-propagation environment, ...). Implementations must
// be safe to share across goroutines — the parallel executor calls
// Transfer/Meet/Entry concurrently for distinct blocks within one phase.
type Pass[V any] interface {
	// Reversed reports whether this pass walks the CFG backward (e.g. live
	// variables). The executors reverse the CFG once, up front, when it
	// disagrees with the pass's own orientation.
	Reversed() bool

	// Init is the bottom value placed in every block's in/out slot before
	// the worklist runs.
	Init(fn *ir.Function) V

	// Entry is the in-value forced at the syntactic entry block (block 0).
	Entry(fn *ir.Function) V

	// Meet is confluence over a block's predecessor (or, reversed,
	// successor) out-values. Must be commutative, associative, and
	// idempotent.
	Meet(vals []V) V

	// Transfer computes a block's out-value from its in-value. Must be
	// monotone with respect to the lattice order Meet/Init induce.
	Transfer(b *ir.BasicBlock, in V) V

	// Finish post-processes the meet of all exit blocks' out-values into
	// the aggregated result for the whole function.
	Finish(fn *ir.Function, exit V) V

	// Equal reports whether two lattice values are identical. Lattice
	// values are frequently maps or sets, which Go cannot compare with ==,
	// so the contract asks each Pass for an explicit equality — the same
	// role go/types.Identical plays for comparing types structurally.
	Equal(a, b V) bool
}

// Executor drives a Pass over a single function's CFG to a fixed point.
// Sequential, Parallel, and Hybrid all implement it; they differ only in
// scheduling, never in the fixed point they compute.
type Executor[V any] interface {
	Run(pass Pass[V], c *cfg.CFG) (*Result[V], error)
}

// Result is the outcome of running a Pass over one function's CFG: the CFG
// actually walked (which may be a reversed copy of the one passed in) and
// the in/out value at every block plus the aggregated exit value.
type Result[V any] struct {
	CFG     *cfg.CFG
	In      []V
	Out     []V
	ExitVal V
}

// orient returns c, or a reversed copy of c, so that its orientation
// matches pass's. This is the "common preamble" shared by all three
// executors: if cfg.Reversed() != pass.Reversed(), produce a reversed copy
// and use it throughout.
func orient[V any](pass Pass[V], c *cfg.CFG) *cfg.CFG {
	if c.Reversed() != pass.Reversed() {
		return c.Reverse()
	}
	return c
}

// seedWorklist returns a worklist containing every block index of c. Order
// is unspecified, but the initial pass visits every block at least once.
func seedWorklist(n int) []int {
	w := make([]int, n)
	for i := range w {
		w[i] = i
	}
	return w
}

// exitValue computes pass.Finish(fn, pass.Meet(out[e] for e in cfg.Exits())).
func exitValue[V any](pass Pass[V], c *cfg.CFG, out []V) V {
	exits := c.Exits()
	vals := make([]V, len(exits))
	for k, e := range exits {
		vals[k] = out[e]
	}
	return pass.Finish(c.Func(), pass.Meet(vals))
}

// inValueFor computes pass.Entry(fn) at the syntactic entry block, else
// pass.Meet over the out values of i's predecessors. The values are passed
// as they are, not deep-copied: for map-valued lattices Meet sees the same
// maps that out holds.
func inValueFor[V any](pass Pass[V], c *cfg.CFG, out []V, i int) V {
	if c.Get(i).IsEntry() {
		return pass.Entry(c.Func())
	}
	preds := c.Preds(i)
	ins := make([]V, len(preds))
	for k, j := range preds {
		ins[k] = out[j]
	}
	return pass.Meet(ins)
}
