package dataflow

import (
	"github.com/dataflow-go/goflow/cfg"
	"github.com/dataflow-go/goflow/ir"
)

// RunProgram runs pass over every function in prog using ex, building each
// function's CFG fresh with cfg.New. It is the whole-program convenience
// wrapper cmd/goflow and the executor-agreement tests use; the engine
// itself only ever needs to operate one function at a time.
func RunProgram[V any](pass Pass[V], ex Executor[V], prog *ir.Program) ([]*Result[V], error) {
	results := make([]*Result[V], len(prog.Functions))
	for i, fn := range prog.Functions {
		r, err := ex.Run(pass, cfg.New(fn))
		if err != nil {
			return nil, err
		}
		results[i] = r
	}
	return results, nil
}
