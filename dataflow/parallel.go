package dataflow

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/dataflow-go/goflow/cfg"
)

// Parallel is the bulk-synchronous data-parallel worklist executor. Each
// round swaps out the current worklist set, computes every member's new
// in/out value concurrently against a read-only snapshot of the previous
// round's out-values, then applies all results in a single-threaded
// reduction step. No worker ever writes shared state during the parallel
// phase, so there is no per-block locking; this is the same race-free
// "immutable snapshot, serial merge" shape gopls uses for fanning out
// per-package analysis work (gopls/internal/cache/analysis.go).
type Parallel[V any] struct{}

type blockResult[V any] struct {
	index   int
	inVal   V
	changed bool
	succs   []int
	outVal  V
}

// Run drives pass over c to a fixed point using bulk-synchronous rounds.
// It returns the identical fixed point Sequential would: the only
// difference is that each round computes the whole current frontier
// concurrently instead of one block at a time.
func (Parallel[V]) Run(pass Pass[V], c *cfg.CFG) (*Result[V], error) {
	c = orient(pass, c)
	n := c.Len()

	in := make([]V, n)
	out := make([]V, n)
	fn := c.Func()
	for i := 0; i < n; i++ {
		in[i] = pass.Init(fn)
		out[i] = pass.Init(fn)
	}

	frontier := seedWorklist(n)
	for len(frontier) > 0 {
		// Snapshot: this round's workers only ever read `out` as it stood
		// at the start of the round. Writes land in `results` and are
		// applied after every worker in the round has finished.
		snapshot := out

		g, ctx := errgroup.WithContext(context.Background())
		g.SetLimit(runtime.GOMAXPROCS(0))

		results := make([]blockResult[V], len(frontier))
		for k, i := range frontier {
			k, i := k, i
			g.Go(func() error {
				select {
				case <-ctx.Done():
					return ctx.Err()
				default:
				}
				inVal := inValueFor(pass, c, snapshot, i)
				outVal := pass.Transfer(c.Get(i), inVal)
				changed := !pass.Equal(outVal, snapshot[i])
				results[k] = blockResult[V]{index: i, inVal: inVal, changed: changed, succs: c.Succs(i), outVal: outVal}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		var next []int
		for _, r := range results {
			in[r.index] = r.inVal
			if r.changed {
				out[r.index] = r.outVal
				next = append(next, r.succs...)
			}
		}
		frontier = dedup(next)
	}

	return &Result[V]{CFG: c, In: in, Out: out, ExitVal: exitValue(pass, c, out)}, nil
}

// dedup removes duplicate indices while discarding ordering guarantees
// beyond "every element appears once" — the next round's order has no
// semantic meaning, only its membership does.
func dedup(xs []int) []int {
	if len(xs) == 0 {
		return nil
	}
	seen := make(map[int]bool, len(xs))
	out := xs[:0:0]
	for _, x := range xs {
		if !seen[x] {
			seen[x] = true
			out = append(out, x)
		}
	}
	return out
}
