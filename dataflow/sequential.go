package dataflow

import (
	"container/list"

	"github.com/dataflow-go/goflow/cfg"
)

// Sequential is the single-threaded worklist executor. It is the baseline
// every other executor must agree with.
type Sequential[V any] struct{}

// Run drives pass over c to a fixed point with a FIFO worklist, in the
// style of go/ssa's single-threaded analyses: pop a block, recompute its
// in-value, transfer, and re-enqueue successors only if the out-value
// actually changed. It never fails; the error return exists so Sequential
// satisfies the same Executor interface as Parallel and Hybrid.
func (Sequential[V]) Run(pass Pass[V], c *cfg.CFG) (*Result[V], error) {
	c = orient(pass, c)
	n := c.Len()

	in := make([]V, n)
	out := make([]V, n)
	fn := c.Func()
	for i := 0; i < n; i++ {
		in[i] = pass.Init(fn)
		out[i] = pass.Init(fn)
	}

	worklist := list.New()
	for _, i := range seedWorklist(n) {
		worklist.PushBack(i)
	}

	for worklist.Len() > 0 {
		front := worklist.Front()
		worklist.Remove(front)
		i := front.Value.(int)

		in[i] = inValueFor(pass, c, out, i)
		newOut := pass.Transfer(c.Get(i), in[i])

		if !pass.Equal(newOut, out[i]) {
			out[i] = newOut
			for _, j := range c.Succs(i) {
				worklist.PushBack(j)
			}
		}
	}

	return &Result[V]{CFG: c, In: in, Out: out, ExitVal: exitValue(pass, c, out)}, nil
}
