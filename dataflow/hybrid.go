package dataflow

import "github.com/dataflow-go/goflow/cfg"

// Thresholds is the menu of block-count cutoffs a Hybrid executor is
// configured with in practice; cmd/goflow rejects a -threshold outside it.
// Small CFGs gain nothing from the parallel executor's per-round fan-out,
// so the useful cutoffs cluster in the tens of blocks.
var Thresholds = []int{15, 20, 25, 30}

// Hybrid dispatches per function: CFGs with more than Threshold blocks run
// on Large (expected Parallel), smaller ones run on Small (expected
// Sequential). It holds its two delegates as owned values, mirroring the
// donor implementation's MixedExecutor<Ex1, Ex2>.
type Hybrid[V any] struct {
	Threshold int
	Small     Executor[V]
	Large     Executor[V]
}

// NewHybrid returns a Hybrid with the conventional delegate choice:
// Sequential for CFGs at or below threshold, Parallel above it.
func NewHybrid[V any](threshold int) Hybrid[V] {
	return Hybrid[V]{Threshold: threshold, Small: Sequential[V]{}, Large: Parallel[V]{}}
}

// Run chooses Small or Large by c.Len() and delegates to it.
func (h Hybrid[V]) Run(pass Pass[V], c *cfg.CFG) (*Result[V], error) {
	if c.Len() > h.Threshold {
		return h.Large.Run(pass, c)
	}
	return h.Small.Run(pass, c)
}
