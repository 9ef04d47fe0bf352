package inline_test

import (
	"testing"

	"github.com/dataflow-go/goflow/cfg"
	"github.com/dataflow-go/goflow/inline"
	"github.com/dataflow-go/goflow/ir"
)

func addOneProgram() *ir.Program {
	add1 := &ir.Function{
		Name:    "add1",
		Params:  []ir.Param{{Name: "a", Type: ir.Int}},
		RetType: ir.Int,
		HasRet:  true,
		Blocks: []*ir.BasicBlock{
			{Index: 0, Name: "b0", Instrs: []*ir.Instruction{
				ir.NewConstant("one", ir.Int, ir.Literal{Type: ir.Int, Value: "1"}),
				ir.NewValue("r", ir.Int, ir.OpAdd, "a", "one"),
				ir.NewRet("r"),
			}},
		},
	}
	main := &ir.Function{
		Name: "main",
		Blocks: []*ir.BasicBlock{
			{Index: 0, Name: "b0", Instrs: []*ir.Instruction{
				ir.NewConstant("x", ir.Int, ir.Literal{Type: ir.Int, Value: "5"}),
				ir.NewCall("y", ir.Int, "add1", "x"),
				ir.NewEffect(ir.OpPrint, "y"),
				ir.NewRet(""),
			}},
		},
	}
	return &ir.Program{Functions: []*ir.Function{add1, main}}
}

func TestInlineSplicesCallSite(t *testing.T) {
	prog := addOneProgram()
	inline.Run(prog)

	main, _, ok := prog.FuncByName("main")
	if !ok {
		t.Fatal("main disappeared")
	}
	if main.Len() != 4 {
		t.Fatalf("main has %d blocks, want 4 (caller head, prelude, cloned body, continuation)", main.Len())
	}

	// The caller's original block must now end in a jump, not the call.
	b0 := main.Get(0)
	last := b0.Instrs[len(b0.Instrs)-1]
	if !last.IsJump() {
		t.Fatalf("caller block should end in a jump after splicing, got %v", last)
	}
	for _, instr := range b0.Instrs {
		if instr.IsCall() {
			t.Fatalf("caller block still contains a call: %v", instr)
		}
	}

	// Every cloned/prelude block must be reachable and resolve cleanly —
	// cfg.New panics on any dangling jump target.
	c := cfg.New(main)
	if c.Len() != 4 {
		t.Fatalf("cfg has %d blocks, want 4", c.Len())
	}

	// Somewhere in the function, the call's destination "y" must now be
	// bound from the inlined return value rather than a call.
	foundAssign := false
	for _, b := range main.Blocks {
		for _, instr := range b.Instrs {
			if instr.Dest == "y" && instr.Op == ir.OpId {
				foundAssign = true
			}
		}
	}
	if !foundAssign {
		t.Fatalf("no id-assignment to y found after inlining")
	}
}

func TestInlineAllIndependentCallSites(t *testing.T) {
	// main calls the same non-recursive callee at three separate sites;
	// each site's own root-to-leaf path contains "double" only once, so
	// the per-path cap never applies and all three must be inlined.
	double := &ir.Function{
		Name:    "double",
		Params:  []ir.Param{{Name: "a", Type: ir.Int}},
		RetType: ir.Int,
		HasRet:  true,
		Blocks: []*ir.BasicBlock{
			{Index: 0, Name: "b0", Instrs: []*ir.Instruction{
				ir.NewValue("r", ir.Int, ir.OpAdd, "a", "a"),
				ir.NewRet("r"),
			}},
		},
	}
	main := &ir.Function{
		Name: "main",
		Blocks: []*ir.BasicBlock{
			{Index: 0, Name: "b0", Instrs: []*ir.Instruction{
				ir.NewConstant("x", ir.Int, ir.Literal{Type: ir.Int, Value: "1"}),
				ir.NewCall("a", ir.Int, "double", "x"),
				ir.NewCall("b", ir.Int, "double", "x"),
				ir.NewCall("c", ir.Int, "double", "x"),
				ir.NewRet(""),
			}},
		},
	}
	prog := &ir.Program{Functions: []*ir.Function{double, main}}
	inline.Run(prog)

	mainFn, _, ok := prog.FuncByName("main")
	if !ok {
		t.Fatal("main disappeared")
	}
	for _, b := range mainFn.Blocks {
		for _, instr := range b.Instrs {
			if instr.IsCall() {
				t.Fatalf("call to %v survived: all three independent call sites should be inlined", instr.Funcs)
			}
		}
	}
}

func TestInlineSharedMultiHopCallee(t *testing.T) {
	// main calls outer twice, and outer itself calls leaf. Inlining the
	// first outer site resolves leaf inside outer for good, so by the time
	// the second site is reached its remaining call path is one hop
	// shorter — it must still be found and inlined rather than dropped.
	leaf := &ir.Function{
		Name:    "leaf",
		Params:  []ir.Param{{Name: "p", Type: ir.Int}},
		RetType: ir.Int,
		HasRet:  true,
		Blocks: []*ir.BasicBlock{
			{Index: 0, Name: "b0", Instrs: []*ir.Instruction{
				ir.NewRet("p"),
			}},
		},
	}
	outer := &ir.Function{
		Name:    "outer",
		Params:  []ir.Param{{Name: "n", Type: ir.Int}},
		RetType: ir.Int,
		HasRet:  true,
		Blocks: []*ir.BasicBlock{
			{Index: 0, Name: "b0", Instrs: []*ir.Instruction{
				ir.NewCall("r", ir.Int, "leaf", "n"),
				ir.NewRet("r"),
			}},
		},
	}
	main := &ir.Function{
		Name: "main",
		Blocks: []*ir.BasicBlock{
			{Index: 0, Name: "b0", Instrs: []*ir.Instruction{
				ir.NewConstant("x", ir.Int, ir.Literal{Type: ir.Int, Value: "1"}),
				ir.NewCall("r1", ir.Int, "outer", "x"),
				ir.NewCall("r2", ir.Int, "outer", "x"),
				ir.NewRet(""),
			}},
		},
	}
	prog := &ir.Program{Functions: []*ir.Function{leaf, outer, main}}
	inline.Run(prog)

	if locs := inline.GetCalls(prog); len(locs) != 0 {
		t.Fatalf("%d calls survived; both outer sites (and leaf's site inside outer) should be inlined", len(locs))
	}
	mainFn, _, _ := prog.FuncByName("main")
	for _, dest := range []string{"r1", "r2"} {
		found := false
		for _, b := range mainFn.Blocks {
			for _, instr := range b.Instrs {
				if instr.Dest == dest && instr.Op == ir.OpId {
					found = true
				}
			}
		}
		if !found {
			t.Errorf("no id-assignment to %s: that call site was not spliced", dest)
		}
	}
}

func TestInlineRequiresMain(t *testing.T) {
	prog := &ir.Program{Functions: []*ir.Function{{Name: "helper", Blocks: []*ir.BasicBlock{
		{Index: 0, Name: "b0", Instrs: []*ir.Instruction{ir.NewRet("")}},
	}}}}

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for program with no main")
		}
	}()
	inline.Run(prog)
}

func TestInlineRecursionStopsAtDepthCap(t *testing.T) {
	// countdown(n) calls itself; after two inlinings the third occurrence
	// of the recursive call must survive as a real call instruction.
	countdown := &ir.Function{
		Name:   "countdown",
		Params: []ir.Param{{Name: "n", Type: ir.Int}},
		Blocks: []*ir.BasicBlock{
			{Index: 0, Name: "b0", Instrs: []*ir.Instruction{
				ir.NewCall("r", ir.Int, "countdown", "n"),
				ir.NewRet("r"),
			}},
		},
	}
	main := &ir.Function{
		Name: "main",
		Blocks: []*ir.BasicBlock{
			{Index: 0, Name: "b0", Instrs: []*ir.Instruction{
				ir.NewConstant("x", ir.Int, ir.Literal{Type: ir.Int, Value: "3"}),
				ir.NewCall("y", ir.Int, "countdown", "x"),
				ir.NewRet(""),
			}},
		},
	}
	prog := &ir.Program{Functions: []*ir.Function{countdown, main}}
	inline.Run(prog) // must terminate: the per-callee cap bounds the unrolling

	remaining := 0
	for _, fn := range prog.Functions {
		for _, b := range fn.Blocks {
			for _, instr := range b.Instrs {
				if instr.IsCall() && instr.Funcs[0] == "countdown" {
					remaining++
				}
			}
		}
	}
	if remaining == 0 {
		t.Fatal("expected at least one residual call to countdown: the cap should stop full unrolling")
	}
}
