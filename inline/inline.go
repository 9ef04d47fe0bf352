// Package inline implements function inlining over the flat IR: replacing
// call instructions with a copy of the callee's body, spliced into the
// caller's control flow. It performs no interprocedural dataflow — it is a
// purely structural rewrite driven by the program's static call graph.
package inline

import (
	"fmt"

	"github.com/dataflow-go/goflow/ir"
)

// maxCalleeInlines bounds how many times a given callee name may occur
// along a single root-to-leaf call path before further calls to it, on
// that same path, are left alone. The bound is per path, not global: three
// independent call sites to the same function, none of them on each
// other's path, are each inlined in full. This is what keeps a recursive
// function from being unrolled forever while still letting unrelated
// repeated callees through untouched.
const maxCalleeInlines = 2

// GetCalls returns the location of every call instruction in prog, in
// function-then-block-then-instruction order.
func GetCalls(prog *ir.Program) []ir.InstructionLocation {
	var locs []ir.InstructionLocation
	for fi, fn := range prog.Functions {
		for bi, b := range fn.Blocks {
			for ii, instr := range b.Instrs {
				if instr.IsCall() {
					locs = append(locs, ir.InstructionLocation{Func: fi, Block: bi, Instr: ii})
				}
			}
		}
	}
	return locs
}

// Run inlines call sites reachable from "main" until none remain that are
// both resolvable (the callee exists in prog) and within the per-path
// inline budget. It mutates prog in place.
//
// Run panics if prog has no function named "main", or if a reachable call
// site names a callee the program doesn't define — both are malformed-
// input conditions, not something a caller can sensibly recover from, in
// the same spirit as cfg.New panicking on a jump to an undefined label.
//
// Each round derives its work from the program as it stands: scan main's
// current instructions for the first call whose inline budget is not yet
// exhausted, expand it into the root-to-leaf call paths reachable from it
// (see expand), and inline the first such path leaf-first. Identifying
// work by live instruction location rather than by anything precomputed
// is what keeps sibling call sites alive: when main calls the same
// multi-hop callee twice, the first splice permanently resolves the
// callee's own inner calls, and the second site — whose remaining path is
// now shorter — is simply found again by the next scan. Termination comes
// from the ancestry ledger: every call instruction a splice clones into
// existence records how many times each callee name was already expanded
// on the chain of splices that produced it, so a recursive residual call
// re-embedded into main arrives with its own name at the cap and is
// skipped, while the finitely many programmer-written calls are each
// consumed exactly once.
func Run(prog *ir.Program) {
	if _, _, ok := prog.FuncByName("main"); !ok {
		panic("inline: program has no function named \"main\"")
	}

	inl := &inliner{prog: prog, ancestry: map[*ir.Instruction]map[string]int{}}
	for {
		root, ok := inl.nextCall()
		if !ok {
			return
		}
		seed := inl.inheritedAncestry(root)
		seed[root.Resolve(prog).Funcs[0]]++
		paths := inl.expand(root, callPath{root}, seed)
		inl.inlinePath(paths[0])
	}
}

type inliner struct {
	prog *ir.Program
	gen  int

	// ancestry records, per call instruction a splice cloned into
	// existence, how many times each callee name was already expanded on
	// the chain of splices that produced it. Programmer-written calls
	// have no entry and inherit the empty multiset.
	ancestry map[*ir.Instruction]map[string]int
}

// callPath is a root-to-leaf sequence of call-instruction locations: the
// first entry is a direct call in main, and each subsequent entry is a
// call found inside the previous entry's callee.
type callPath []ir.InstructionLocation

// nextCall scans main, in block-then-instruction order, for the first
// call whose callee's ancestry count still admits another splice.
func (inl *inliner) nextCall() (ir.InstructionLocation, bool) {
	_, mainIdx, _ := inl.prog.FuncByName("main")
	for _, loc := range GetCalls(inl.prog) {
		if loc.Func != mainIdx {
			continue
		}
		instr := loc.Resolve(inl.prog)
		callee := instr.Funcs[0]
		if _, _, ok := inl.prog.FuncByName(callee); !ok {
			panic(fmt.Sprintf("inline: call to undefined function %q", callee))
		}
		if inl.ancestry[instr][callee] >= maxCalleeInlines {
			continue
		}
		return loc, true
	}
	return ir.InstructionLocation{}, false
}

// inheritedAncestry returns a private copy of the ancestry multiset of
// the call at loc.
func (inl *inliner) inheritedAncestry(loc ir.InstructionLocation) map[string]int {
	out := map[string]int{}
	for k, v := range inl.ancestry[loc.Resolve(inl.prog)] {
		out[k] = v
	}
	return out
}

// expand extends path — whose last entry calls into a callee already
// accounted for in visited — by recursing into that callee's own calls.
// A call is only followed if visited doesn't already count its name
// maxCalleeInlines times; a path that cannot be extended (the callee has
// no calls of its own, or every one of them is at the cap) is a finished
// root-to-leaf path in its own right.
func (inl *inliner) expand(loc ir.InstructionLocation, path callPath, visited map[string]int) []callPath {
	callee, calleeIdx, ok := inl.prog.FuncByName(loc.Resolve(inl.prog).Funcs[0])
	if !ok {
		panic(fmt.Sprintf("inline: call to undefined function %q", loc.Resolve(inl.prog).Funcs[0]))
	}

	var out []callPath
	extended := false
	for bi, b := range callee.Blocks {
		for ii, instr := range b.Instrs {
			if !instr.IsCall() {
				continue
			}
			childName := instr.Funcs[0]
			if _, _, ok := inl.prog.FuncByName(childName); !ok {
				panic(fmt.Sprintf("inline: call to undefined function %q", childName))
			}
			if visited[childName] >= maxCalleeInlines {
				continue
			}
			extended = true
			child := ir.InstructionLocation{Func: calleeIdx, Block: bi, Instr: ii}
			nextVisited := make(map[string]int, len(visited)+1)
			for k, v := range visited {
				nextVisited[k] = v
			}
			nextVisited[childName]++
			nextPath := append(append(callPath{}, path...), child)
			out = append(out, inl.expand(child, nextPath, nextVisited)...)
		}
	}
	if !extended {
		out = append(out, append(callPath{}, path...))
	}
	return out
}

// inlinePath splices path's call sites from leaf to root. Leaf-first
// order keeps the outer entries' location triples valid, since a splice
// only ever appends blocks to the function it mutates. The callee names
// are captured before any splicing: the leaf's splice rewrites its call
// instruction to a jump, and under mutual recursion the same location can
// appear twice in one path — the second occurrence is already resolved by
// the first's splice and is skipped.
func (inl *inliner) inlinePath(path callPath) {
	names := make([]string, len(path))
	for i, loc := range path {
		names[i] = loc.Resolve(inl.prog).Funcs[0]
	}
	for i := len(path) - 1; i >= 0; i-- {
		if !path[i].Resolve(inl.prog).IsCall() {
			continue
		}
		anc := inl.inheritedAncestry(path[0])
		for k := 0; k < i; k++ {
			anc[names[k]]++
		}
		inl.spliceCall(path[i], anc)
	}
}

// spliceCall inlines the single call instruction at loc: the caller's
// block is split at the call, the callee's body is cloned with every name
// given a fresh "_inlined_<gen>" suffix, a prelog_<callee>_<gen> block
// binds the callee's parameters to the call's arguments, and the callee's
// returns are rewritten into an assignment (when the call produces a
// value) plus a jump to inline_ret_<callee>_<gen>, the block holding the
// remainder of the caller's original block. anc is the ancestry multiset
// of the call being spliced; cloned calls extend it by the callee's name.
func (inl *inliner) spliceCall(loc ir.InstructionLocation, anc map[string]int) {
	inl.gen++
	suffix := fmt.Sprintf("_inlined_%d", inl.gen)

	fn := inl.prog.Functions[loc.Func]
	callerBlock := fn.Blocks[loc.Block]
	call := callerBlock.Instrs[loc.Instr]
	calleeName := call.Funcs[0]
	callee, _, _ := inl.prog.FuncByName(calleeName)

	head := append([]*ir.Instruction{}, callerBlock.Instrs[:loc.Instr]...)
	tail := append([]*ir.Instruction{}, callerBlock.Instrs[loc.Instr+1:]...)
	if callerBlock.Terminator() == nil {
		if loc.Block+1 < len(fn.Blocks) {
			tail = append(tail, ir.NewJump(fn.Blocks[loc.Block+1].Name))
		} else {
			// The caller's block fell through to the end of the function.
			// The continuation block is appended at the end of the block
			// list, where a later splice may append more blocks after it,
			// so its return has to be explicit.
			tail = append(tail, ir.NewRet(""))
		}
	}

	contName := fmt.Sprintf("inline_ret_%s_%d", calleeName, inl.gen)
	preludeName := fmt.Sprintf("prelog_%s_%d", calleeName, inl.gen)

	prelude := make([]*ir.Instruction, 0, len(callee.Params)+1)
	for i, p := range callee.Params {
		prelude = append(prelude, ir.NewValue(p.Name+suffix, p.Type, ir.OpId, call.Uses[i]))
	}
	if len(callee.Blocks) > 0 {
		prelude = append(prelude, ir.NewJump(callee.Blocks[0].Name+suffix))
	} else {
		prelude = append(prelude, ir.NewJump(contName))
	}

	clonedBlocks := make([]*ir.BasicBlock, 0, len(callee.Blocks))
	for _, b := range callee.Blocks {
		clonedBlocks = append(clonedBlocks, inl.cloneCalleeBlock(b, suffix, call, contName, anc))
	}

	callerBlock.Instrs = append(head, ir.NewJump(preludeName))

	newBlocks := make([]*ir.BasicBlock, 0, len(clonedBlocks)+2)
	newBlocks = append(newBlocks, &ir.BasicBlock{Name: preludeName, Instrs: prelude})
	newBlocks = append(newBlocks, clonedBlocks...)
	newBlocks = append(newBlocks, &ir.BasicBlock{Name: contName, Instrs: tail})

	base := len(fn.Blocks)
	for i, b := range newBlocks {
		b.Index = base + i
	}
	fn.Blocks = append(fn.Blocks, newBlocks...)
}

// cloneCalleeBlock copies b's instructions into a fresh block named
// b.Name+suffix, renaming every dest/use by the same suffix so the cloned
// body can never collide with the caller's own names. A return becomes an
// id-assignment of the (suffixed) return operand into the call's
// destination, when the call has one and the return carries an operand,
// followed by a jump to contName; a return with no operand in a
// value-producing context is left unassigned rather than treated as an
// error, since it reflects a path the caller's result is simply not
// defined on. A cloned call is entered into the ancestry ledger: its
// multiset is the source instruction's own ancestry plus anc plus one
// occurrence of the callee being spliced, so the budget a residual call
// was produced under survives any number of further re-embeddings.
func (inl *inliner) cloneCalleeBlock(b *ir.BasicBlock, suffix string, call *ir.Instruction, contName string, anc map[string]int) *ir.BasicBlock {
	out := &ir.BasicBlock{Name: b.Name + suffix}
	for _, instr := range b.Instrs {
		if instr.IsRet() {
			if call.HasDest() && len(instr.Uses) > 0 {
				out.Instrs = append(out.Instrs, ir.NewValue(call.Dest, call.Type, ir.OpId, instr.Uses[0]+suffix))
			}
			out.Instrs = append(out.Instrs, ir.NewJump(contName))
			continue
		}
		clone := renameInstr(instr, suffix)
		if clone.IsCall() {
			a := map[string]int{}
			for k, v := range inl.ancestry[instr] {
				a[k] = v
			}
			for k, v := range anc {
				a[k] += v
			}
			a[call.Funcs[0]]++
			inl.ancestry[clone] = a
		}
		out.Instrs = append(out.Instrs, clone)
	}
	return out
}

// renameInstr clones instr with every name it defines or uses suffixed,
// and every jump/branch label retargeted to the corresponding cloned
// block's suffixed name.
func renameInstr(instr *ir.Instruction, suffix string) *ir.Instruction {
	clone := *instr
	if clone.Dest != "" {
		clone.Dest = clone.Dest + suffix
	}
	if len(instr.Uses) > 0 {
		clone.Uses = make([]string, len(instr.Uses))
		for i, u := range instr.Uses {
			clone.Uses[i] = u + suffix
		}
	}
	if len(instr.Labels) > 0 {
		clone.Labels = make([]string, len(instr.Labels))
		for i, l := range instr.Labels {
			clone.Labels[i] = l + suffix
		}
	}
	if len(instr.Funcs) > 0 {
		clone.Funcs = append([]string{}, instr.Funcs...)
	}
	return &clone
}
