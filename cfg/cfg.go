// Package cfg provides the graph view of an ir.Function: predecessor and
// successor edges derived from each block's terminator, plus a reversal
// operation used by backward dataflow passes. It never mutates the
// underlying Function; Reverse produces a new CFG with transposed edge
// tables and the same block list.
//
// Edge construction follows the standard rules from an already-formed
// function: an explicit jump/branch terminator names its successor labels;
// an unterminated block falls through to the next block by position;
// returns have no successor. A branch or jump to an unknown label is a
// fatal, internal invariant break — callers are expected to pass in a
// well-formed Function, as grouping flat instructions into labelled blocks
// and validating those labels is the job of an external CFG builder that
// this package does not implement.
package cfg

import (
	"fmt"

	"github.com/dataflow-go/goflow/ir"
)

// CFG is an ir.Function plus predecessor/successor edge tables.
type CFG struct {
	fn       *ir.Function
	preds    [][]int
	succs    [][]int
	reversed bool
}

// New builds the forward CFG for fn by resolving each block's terminator.
func New(fn *ir.Function) *CFG {
	n := fn.Len()
	succs := make([][]int, n)
	preds := make([][]int, n)

	labelIndex := make(map[string]int, n)
	for i, b := range fn.Blocks {
		labelIndex[b.Name] = i
	}

	for i, b := range fn.Blocks {
		term := b.Terminator()
		switch {
		case term != nil && term.IsJump():
			for _, lbl := range term.Labels {
				j, ok := labelIndex[lbl]
				if !ok {
					panic(fmt.Sprintf("cfg: block %q jumps to undefined label %q", b.Name, lbl))
				}
				succs[i] = append(succs[i], j)
			}
		case term != nil && term.IsRet():
			// no successors
		default:
			// falls through to the textually next block, if any
			if i+1 < n {
				succs[i] = append(succs[i], i+1)
			}
		}
	}
	for i, js := range succs {
		for _, j := range js {
			preds[j] = append(preds[j], i)
		}
	}

	return &CFG{fn: fn, preds: preds, succs: succs}
}

// Len reports the number of blocks in the underlying function.
func (c *CFG) Len() int { return c.fn.Len() }

// Name returns the underlying function's name.
func (c *CFG) Name() string { return c.fn.Name }

// Func returns the underlying function.
func (c *CFG) Func() *ir.Function { return c.fn }

// Get returns the i-th block.
func (c *CFG) Get(i int) *ir.BasicBlock { return c.fn.Get(i) }

// Reversed reports whether Preds/Succs have been swapped relative to the
// function's natural (forward) control flow.
func (c *CFG) Reversed() bool { return c.reversed }

// Preds returns the predecessor block indices of block i. The caller must
// not mutate the returned slice.
func (c *CFG) Preds(i int) []int { return c.preds[i] }

// Succs returns the successor block indices of block i. The caller must
// not mutate the returned slice.
func (c *CFG) Succs(i int) []int { return c.succs[i] }

// Entries returns the indices of blocks with no predecessors in the current
// orientation.
func (c *CFG) Entries() []int { return emptyRows(c.preds) }

// Exits returns the indices of blocks with no successors in the current
// orientation.
func (c *CFG) Exits() []int { return emptyRows(c.succs) }

func emptyRows(rows [][]int) []int {
	var out []int
	for i, r := range rows {
		if len(r) == 0 {
			out = append(out, i)
		}
	}
	return out
}

// Reverse returns a new CFG with preds/succs transposed and Reversed
// toggled. Reverse is idempotent: c.Reverse().Reverse() has the same
// preds/succs and Reversed flag as c. The underlying function (and hence
// block indices, which a dataflow pass uses to detect the syntactic entry
// block) is unchanged.
func (c *CFG) Reverse() *CFG {
	return &CFG{
		fn:       c.fn,
		preds:    c.succs,
		succs:    c.preds,
		reversed: !c.reversed,
	}
}
