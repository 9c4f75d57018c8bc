// Package optimize holds IR-to-IR passes.
package optimize

import (
	"github.com/gul-lang/gul-lang/internal/ir"
)

// EliminateDeadCode removes unreachable blocks and pure instructions whose
// results are never used. Calls, stores and control flow are always kept.
// The input module is not modified, and running the pass on its own output
// changes nothing.
func EliminateDeadCode(module *ir.Module) *ir.Module {
	optimized := &ir.Module{
		Functions: make([]*ir.Function, 0, len(module.Functions)),
		Globals:   module.Globals,
		Imports:   module.Imports,
		Externs:   module.Externs,
	}
	for _, fn := range module.Functions {
		optimized.Functions = append(optimized.Functions, eliminateDeadCodeInFunction(fn))
	}
	return optimized
}

func eliminateDeadCodeInFunction(fn *ir.Function) *ir.Function {
	live := liveInstrs(fn)

	// A single backward pass suffices: a slot is always defined before any
	// of its uses in instruction order.
	used := make(map[ir.Slot]bool)
	keep := make([]bool, len(live))
	for i := len(live) - 1; i >= 0; i-- {
		in := live[i]
		if in.Op.IsPure() && !used[in.Result] {
			continue
		}
		keep[i] = true
		for _, a := range in.Args {
			used[a] = true
		}
	}

	instrs := make([]ir.Instr, 0, len(live))
	for i, in := range live {
		if keep[i] {
			instrs = append(instrs, in)
		}
	}
	return &ir.Function{
		Name:   fn.Name,
		Params: fn.Params,
		Return: fn.Return,
		Async:  fn.Async,
		Instrs: instrs,
	}
}

// liveInstrs returns the instructions of the reachable blocks in order.
func liveInstrs(fn *ir.Function) []ir.Instr {
	g := ir.BuildCFG(fn)
	reachable := g.Reachable()

	var out []ir.Instr
	for i, b := range g.Blocks {
		if !reachable[i] {
			continue
		}
		if i > 0 || fn.Instrs[b.Start].Op == ir.OpLabel {
			out = append(out, ir.Instr{Op: ir.OpLabel, Name: b.Label})
		}
		out = append(out, b.Instrs...)
	}
	return out
}
