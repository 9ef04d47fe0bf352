// Package irjson decodes a Program from its JSON wire form. This is the
// one place in goflow that talks to the outside world, so it's also the
// one place that wraps errors with frame information — everywhere else a
// malformed in-memory IR is a programmer error (cfg.New, inline.Run), but
// a malformed JSON file is ordinary user input and deserves a real error
// chain a caller can unwrap and report.
package irjson

import (
	"encoding/json"
	"io"

	"golang.org/x/xerrors"

	"github.com/dataflow-go/goflow/ir"
)

// instruction is the wire shape of ir.Instruction. Kind is carried as a
// string tag rather than ir.Kind's int so the format stays stable if the
// Kind iota order ever changes.
type instruction struct {
	Kind     string   `json:"kind"`
	Dest     string   `json:"dest,omitempty"`
	Type     string   `json:"type,omitempty"`
	Op       string   `json:"op,omitempty"`
	LitType  string   `json:"lit_type,omitempty"`
	LitValue string   `json:"lit_value,omitempty"`
	Uses     []string `json:"uses,omitempty"`
	ArgTypes []string `json:"arg_types,omitempty"`
	Funcs    []string `json:"funcs,omitempty"`
	Labels   []string `json:"labels,omitempty"`
}

type block struct {
	Name   string        `json:"name"`
	Instrs []instruction `json:"instrs"`
}

type param struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type function struct {
	Name    string  `json:"name"`
	Params  []param `json:"params,omitempty"`
	RetType string  `json:"ret_type,omitempty"`
	HasRet  bool    `json:"has_ret,omitempty"`
	Blocks  []block `json:"blocks"`
}

type program struct {
	Functions []function `json:"functions"`
}

// Decode reads a JSON-encoded Program from r.
func Decode(r io.Reader) (*ir.Program, error) {
	var p program
	if err := json.NewDecoder(r).Decode(&p); err != nil {
		return nil, xerrors.Errorf("irjson: decode: %w", err)
	}
	return toIR(&p)
}

func toIR(p *program) (*ir.Program, error) {
	out := &ir.Program{Functions: make([]*ir.Function, len(p.Functions))}
	for fi, f := range p.Functions {
		fn, err := toIRFunction(f)
		if err != nil {
			return nil, xerrors.Errorf("irjson: function %d (%q): %w", fi, f.Name, err)
		}
		out.Functions[fi] = fn
	}
	return out, nil
}

func toIRFunction(f function) (*ir.Function, error) {
	fn := &ir.Function{
		Name:    f.Name,
		RetType: ir.Type(f.RetType),
		HasRet:  f.HasRet,
		Blocks:  make([]*ir.BasicBlock, len(f.Blocks)),
	}
	for _, p := range f.Params {
		fn.Params = append(fn.Params, ir.Param{Name: p.Name, Type: ir.Type(p.Type)})
	}
	for bi, b := range f.Blocks {
		instrs := make([]*ir.Instruction, len(b.Instrs))
		for ii, w := range b.Instrs {
			instr, err := toIRInstruction(w)
			if err != nil {
				return nil, xerrors.Errorf("block %d (%q) instr %d: %w", bi, b.Name, ii, err)
			}
			instrs[ii] = instr
		}
		fn.Blocks[bi] = &ir.BasicBlock{Index: bi, Name: b.Name, Instrs: instrs}
	}
	return fn, nil
}

func toIRInstruction(w instruction) (*ir.Instruction, error) {
	instr := &ir.Instruction{
		Dest:   w.Dest,
		Type:   ir.Type(w.Type),
		Op:     ir.Op(w.Op),
		Uses:   w.Uses,
		Funcs:  w.Funcs,
		Labels: w.Labels,
	}
	for _, t := range w.ArgTypes {
		instr.ArgTypes = append(instr.ArgTypes, ir.Type(t))
	}
	switch w.Kind {
	case "constant":
		instr.Kind = ir.KindConstant
		instr.Lit = ir.Literal{Type: ir.Type(w.LitType), Value: w.LitValue}
	case "value":
		instr.Kind = ir.KindValue
	case "effect":
		instr.Kind = ir.KindEffect
	default:
		return nil, xerrors.Errorf("irjson: unknown instruction kind %q", w.Kind)
	}
	return instr, nil
}

// Encode writes prog as JSON to w — mainly useful for round-tripping in
// tests.
func Encode(w io.Writer, prog *ir.Program) error {
	p := fromIR(prog)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(p); err != nil {
		return xerrors.Errorf("irjson: encode: %w", err)
	}
	return nil
}

func fromIR(prog *ir.Program) program {
	p := program{Functions: make([]function, len(prog.Functions))}
	for fi, fn := range prog.Functions {
		wf := function{
			Name:    fn.Name,
			RetType: string(fn.RetType),
			HasRet:  fn.HasRet,
			Blocks:  make([]block, fn.Len()),
		}
		for _, pr := range fn.Params {
			wf.Params = append(wf.Params, param{Name: pr.Name, Type: string(pr.Type)})
		}
		for bi, b := range fn.Blocks {
			wb := block{Name: b.Name, Instrs: make([]instruction, len(b.Instrs))}
			for ii, instr := range b.Instrs {
				wb.Instrs[ii] = fromIRInstruction(instr)
			}
			wf.Blocks[bi] = wb
		}
		p.Functions[fi] = wf
	}
	return p
}

func fromIRInstruction(instr *ir.Instruction) instruction {
	w := instruction{
		Dest:   instr.Dest,
		Type:   string(instr.Type),
		Op:     string(instr.Op),
		Uses:   instr.Uses,
		Funcs:  instr.Funcs,
		Labels: instr.Labels,
	}
	for _, t := range instr.ArgTypes {
		w.ArgTypes = append(w.ArgTypes, string(t))
	}
	switch instr.Kind {
	case ir.KindConstant:
		w.Kind = "constant"
		w.LitType = string(instr.Lit.Type)
		w.LitValue = instr.Lit.Value
	case ir.KindValue:
		w.Kind = "value"
	case ir.KindEffect:
		w.Kind = "effect"
	}
	return w
}
