// Command goflow runs one of goflow's dataflow analyses, and optionally
// the function inliner, over a JSON-encoded program and prints the
// resulting in/out values for every block.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/dataflow-go/goflow/dataflow"
	"github.com/dataflow-go/goflow/inline"
	"github.com/dataflow-go/goflow/internal/irjson"
	"github.com/dataflow-go/goflow/ir"
	"github.com/dataflow-go/goflow/passes/availexpr"
	"github.com/dataflow-go/goflow/passes/constprop"
	"github.com/dataflow-go/goflow/passes/livevars"
	"github.com/dataflow-go/goflow/passes/reachingdefs"
)

func main() {
	passName := flag.String("pass", "reachingdefs", "analysis to run: reachingdefs, livevars, constprop, availexpr")
	execName := flag.String("exec", "sequential", "executor: sequential, parallel, hybrid")
	threshold := flag.Int("threshold", dataflow.Thresholds[1], "hybrid dispatch threshold, in CFG block count; one of 15, 20, 25, 30")
	doInline := flag.Bool("inline", false, "run the function inliner before analysis")
	flag.Parse()

	if flag.NArg() != 1 {
		log.Fatal("usage: goflow [flags] <program.json>")
	}

	f, err := os.Open(flag.Arg(0))
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()

	loadStart := time.Now()
	prog, err := irjson.Decode(f)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("loaded %d functions in %s", len(prog.Functions), time.Since(loadStart))

	if *doInline {
		inlineStart := time.Now()
		inline.Run(prog)
		log.Printf("inlining done in %s", time.Since(inlineStart))
	}

	runStart := time.Now()
	if err := runPass(*passName, *execName, *threshold, prog); err != nil {
		log.Fatal(err)
	}
	log.Printf("analysis done in %s", time.Since(runStart))
}

func runPass(passName, execName string, threshold int, prog *ir.Program) error {
	switch passName {
	case "reachingdefs":
		return runAndPrint(reachingdefs.Pass{}, execName, threshold, prog)
	case "livevars":
		return runAndPrint(livevars.Pass{}, execName, threshold, prog)
	case "constprop":
		return runAndPrint(constprop.Pass{}, execName, threshold, prog)
	case "availexpr":
		return runAndPrint(availexpr.Pass{}, execName, threshold, prog)
	default:
		return fmt.Errorf("unknown -pass %q", passName)
	}
}

func runAndPrint[V any](pass dataflow.Pass[V], execName string, threshold int, prog *ir.Program) error {
	ex, err := executorFor[V](execName, threshold)
	if err != nil {
		return err
	}
	results, err := dataflow.RunProgram(pass, ex, prog)
	if err != nil {
		return err
	}
	for i, fn := range prog.Functions {
		res := results[i]
		fmt.Printf("function %s:\n", fn.Name)
		for b := 0; b < res.CFG.Len(); b++ {
			fmt.Printf("  block %d (%s): in=%v out=%v\n", b, res.CFG.Get(b).Name, res.In[b], res.Out[b])
		}
		fmt.Printf("  exit: %v\n", res.ExitVal)
	}
	return nil
}

func executorFor[V any](name string, threshold int) (dataflow.Executor[V], error) {
	switch name {
	case "sequential":
		return dataflow.Sequential[V]{}, nil
	case "parallel":
		return dataflow.Parallel[V]{}, nil
	case "hybrid":
		for _, t := range dataflow.Thresholds {
			if threshold == t {
				return dataflow.NewHybrid[V](threshold), nil
			}
		}
		return nil, fmt.Errorf("-threshold %d is not one of %v", threshold, dataflow.Thresholds)
	default:
		return nil, fmt.Errorf("unknown -exec %q", name)
	}
}
