package reachingdefs_test

import (
	"testing"

	"github.com/dataflow-go/goflow/cfg"
	"github.com/dataflow-go/goflow/dataflow"
	"github.com/dataflow-go/goflow/ir"
	"github.com/dataflow-go/goflow/passes/reachingdefs"
)

func TestStraightLine(t *testing.T) {
	// f(x:int) { b0: y := x + 1; z := y }
	fn := &ir.Function{
		Name:   "f",
		Params: []ir.Param{{Name: "x", Type: ir.Int}},
		Blocks: []*ir.BasicBlock{
			{Index: 0, Name: "b0", Instrs: []*ir.Instruction{
				ir.NewValue("y", ir.Int, ir.OpAdd, "x", "1"),
				ir.NewValue("z", ir.Int, ir.OpId, "y"),
			}},
		},
	}

	pass := reachingdefs.Pass{}
	res, err := (dataflow.Sequential[reachingdefs.Set]{}).Run(pass, cfg.New(fn))
	if err != nil {
		t.Fatal(err)
	}

	wantIn := reachingdefs.NewSet(reachingdefs.Def{Name: "x", Block: 0})
	if !pass.Equal(res.In[0], wantIn) {
		t.Fatalf("in[0] = %v, want %v", res.In[0], wantIn)
	}
	wantOut := reachingdefs.NewSet(
		reachingdefs.Def{Name: "x", Block: 0},
		reachingdefs.Def{Name: "y", Block: 0},
		reachingdefs.Def{Name: "z", Block: 0},
	)
	if !pass.Equal(res.Out[0], wantOut) {
		t.Fatalf("out[0] = %v, want %v", res.Out[0], wantOut)
	}
}

func TestDiamondKillsAndMerges(t *testing.T) {
	// B0 -> B1, B2 -> B3; B1: a := 1; B2: a := 2
	fn := &ir.Function{
		Name: "f",
		Blocks: []*ir.BasicBlock{
			{Index: 0, Name: "b0", Instrs: []*ir.Instruction{
				ir.NewConstant("a", ir.Int, ir.Literal{Type: ir.Int, Value: "0"}),
				ir.NewBranch("a", "b1", "b2"),
			}},
			{Index: 1, Name: "b1", Instrs: []*ir.Instruction{
				ir.NewConstant("a", ir.Int, ir.Literal{Type: ir.Int, Value: "1"}),
				ir.NewJump("b3"),
			}},
			{Index: 2, Name: "b2", Instrs: []*ir.Instruction{
				ir.NewConstant("a", ir.Int, ir.Literal{Type: ir.Int, Value: "2"}),
				ir.NewJump("b3"),
			}},
			{Index: 3, Name: "b3", Instrs: []*ir.Instruction{ir.NewRet("")}},
		},
	}

	pass := reachingdefs.Pass{}
	res, err := (dataflow.Sequential[reachingdefs.Set]{}).Run(pass, cfg.New(fn))
	if err != nil {
		t.Fatal(err)
	}

	want := reachingdefs.NewSet(
		reachingdefs.Def{Name: "a", Block: 1},
		reachingdefs.Def{Name: "a", Block: 2},
	)
	if !pass.Equal(res.In[3], want) {
		t.Fatalf("in[3] = %v, want %v (b0's definition of a must be killed)", res.In[3], want)
	}
}

func TestArgsReachEntry(t *testing.T) {
	fn := &ir.Function{
		Name:   "f",
		Params: []ir.Param{{Name: "x", Type: ir.Int}, {Name: "y", Type: ir.Int}},
		Blocks: []*ir.BasicBlock{
			{Index: 0, Name: "b0", Instrs: []*ir.Instruction{ir.NewRet("")}},
		},
	}
	pass := reachingdefs.Pass{}
	init := pass.Init(fn)
	want := reachingdefs.NewSet(
		reachingdefs.Def{Name: "x", Block: 0},
		reachingdefs.Def{Name: "y", Block: 0},
	)
	if !pass.Equal(init, want) {
		t.Fatalf("init = %v, want %v", init, want)
	}
}
