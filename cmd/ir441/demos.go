package main

import "ir441/ir"

// The demo programs below build a handful of end-to-end scenarios directly
// as ir.Program struct literals, since this repository carries no IR text
// parser and treats parsing as an external concern.

// demoArithmetic computes %x = 2+3; %y = %x*4; ret %y.
func demoArithmetic() *ir.Program {
	return &ir.Program{
		Blocks: map[string]*ir.BasicBlock{
			"main": {
				Name:    "main",
				Formals: nil,
				Instrs: []ir.Instr{
					ir.Op{Lhs: "x", Arg1: ir.IntLit{Val: 2}, Op: ir.OpAdd, Arg2: ir.IntLit{Val: 3}},
					ir.Op{Lhs: "y", Arg1: ir.Var{Name: "x"}, Op: ir.OpMul, Arg2: ir.IntLit{Val: 4}},
				},
				Next: ir.Ret{E: ir.Var{Name: "y"}},
			},
		},
	}
}

// demoStoreLoad round-trips a store and load: %p = alloc 1; store %p 7; %v = load %p; ret %v.
func demoStoreLoad() *ir.Program {
	return &ir.Program{
		Blocks: map[string]*ir.BasicBlock{
			"main": {
				Name: "main",
				Instrs: []ir.Instr{
					ir.Alloc{Lhs: "p", N: 1},
					ir.Store{Base: ir.Var{Name: "p"}, Val: ir.IntLit{Val: 7}},
					ir.Load{Lhs: "v", Base: ir.Var{Name: "p"}},
				},
				Next: ir.Ret{E: ir.Var{Name: "v"}},
			},
		},
	}
}

// demoMissingMain is a program with no block named "main".
func demoMissingMain() *ir.Program {
	return &ir.Program{
		Blocks: map[string]*ir.BasicBlock{
			"foo": {
				Name: "foo",
				Next: ir.Ret{E: ir.IntLit{Val: 0}},
			},
		},
	}
}

// demoPhi branches on %c=1 to t or f; both join at `join`, which phis the
// incoming value and returns it.
func demoPhi() *ir.Program {
	return &ir.Program{
		Blocks: map[string]*ir.BasicBlock{
			"main": {
				Name: "main",
				Instrs: []ir.Instr{
					ir.VarAssign{Lhs: "c", Rhs: ir.IntLit{Val: 1}},
				},
				Next: ir.If{Cond: ir.Var{Name: "c"}, TBlock: "t", FBlock: "f"},
			},
			"t": {Name: "t", Next: ir.Jump{Block: "join"}},
			"f": {Name: "f", Next: ir.Jump{Block: "join"}},
			"join": {
				Name: "join",
				Instrs: []ir.Instr{
					ir.Phi{Lhs: "r", Opts: []ir.PhiOpt{
						{BlockName: "t", Src: ir.IntLit{Val: 1}},
						{BlockName: "f", Src: ir.IntLit{Val: 2}},
					}},
				},
				Next: ir.Ret{E: ir.Var{Name: "r"}},
			},
		},
	}
}

// demoGC allocates a throwaway object, then a 4-slot root object
// (3 header slots + 1 reference payload slot) pointing at a 4-slot leaf
// object (3 header + 1 scalar payload). Orphaning the throwaway object is
// what gives a forced GC something to reclaim; the cap is sized so the
// final allocation only fits once that garbage is gone. The leaf's scalar
// is read back out through the (possibly relocated) root afterward.
func demoGC() *ir.Program {
	// Object references in this IR point at the first PAYLOAD slot; the
	// three header slots (alloc-size, forwarding pointer, slot map) sit
	// immediately below at offsets -3, -2, -1. alloc(n) itself returns the
	// start of the n raw slots (the header base) — the program is
	// responsible for advancing past the header to get the reference it
	// actually stores.
	neg := func(n int64) ir.Expr { return ir.IntLit{Val: uint64(n)} }

	return &ir.Program{
		Blocks: map[string]*ir.BasicBlock{
			"main": {
				Name: "main",
				Instrs: []ir.Instr{
					// garbage: reachable only until "temp" is reassigned below
					ir.Alloc{Lhs: "temp", N: 4},

					// leaf: 4 slots (3 header + 1 scalar payload), slot map = 0 (no refs)
					ir.Alloc{Lhs: "leaf", N: 4},
					ir.Op{Lhs: "leaf", Arg1: ir.Var{Name: "leaf"}, Op: ir.OpAdd, Arg2: ir.IntLit{Val: 24}},
					ir.SetElt{Base: ir.Var{Name: "leaf"}, Offset: neg(-3), Val: ir.IntLit{Val: 4}}, // alloc-size
					ir.SetElt{Base: ir.Var{Name: "leaf"}, Offset: neg(-2), Val: ir.IntLit{Val: 0}}, // fwd
					ir.SetElt{Base: ir.Var{Name: "leaf"}, Offset: neg(-1), Val: ir.IntLit{Val: 0}}, // slot map
					ir.SetElt{Base: ir.Var{Name: "leaf"}, Offset: ir.IntLit{Val: 0}, Val: ir.IntLit{Val: 42}}, // payload

					// orphans the original "temp" object
					ir.VarAssign{Lhs: "temp", Rhs: ir.Var{Name: "leaf"}},

					// root: 4 slots (3 header + 1 reference payload), slot map = 1 (bit 0 is a ref)
					ir.Alloc{Lhs: "root", N: 4},
					ir.Op{Lhs: "root", Arg1: ir.Var{Name: "root"}, Op: ir.OpAdd, Arg2: ir.IntLit{Val: 24}},
					ir.SetElt{Base: ir.Var{Name: "root"}, Offset: neg(-3), Val: ir.IntLit{Val: 4}},
					ir.SetElt{Base: ir.Var{Name: "root"}, Offset: neg(-2), Val: ir.IntLit{Val: 0}},
					ir.SetElt{Base: ir.Var{Name: "root"}, Offset: neg(-1), Val: ir.IntLit{Val: 1}},
					ir.SetElt{Base: ir.Var{Name: "root"}, Offset: ir.IntLit{Val: 0}, Val: ir.Var{Name: "leaf"}},

					// exceeds the cap while temp's garbage is still counted; forces
					// a GC that reclaims it, then retries and succeeds
					ir.Alloc{Lhs: "filler", N: 4},

					// read the leaf's scalar payload back through the (possibly relocated) root
					ir.GetElt{Lhs: "leafref", Base: ir.Var{Name: "root"}, Offset: ir.IntLit{Val: 0}},
					ir.Load{Lhs: "result", Base: ir.Var{Name: "leafref"}},
				},
				Next: ir.Ret{E: ir.Var{Name: "result"}},
			},
		},
	}
}

// demoBadArity calls a block with the wrong number of arguments.
func demoBadArity() *ir.Program {
	return &ir.Program{
		Blocks: map[string]*ir.BasicBlock{
			"main": {
				Name: "main",
				Instrs: []ir.Instr{
					ir.Call{
						Lhs:      "r",
						Code:     ir.BlockRef{Name: "bb"},
						Receiver: ir.IntLit{Val: 0},
						Args:     []ir.Expr{ir.IntLit{Val: 1}, ir.IntLit{Val: 2}},
					},
				},
				Next: ir.Ret{E: ir.Var{Name: "r"}},
			},
			"bb": {
				Name:    "bb",
				Formals: []string{"self", "x"},
				Next:    ir.Ret{E: ir.Var{Name: "x"}},
			},
		},
	}
}

var demos = map[string]func() *ir.Program{
	"arith":       demoArithmetic,
	"storeload":   demoStoreLoad,
	"missingmain": demoMissingMain,
	"phi":         demoPhi,
	"gc":          demoGC,
	"badarity":    demoBadArity,
}

// demoCaps gives the memory slot cap each demo expects, when it cares.
// "gc" needs a cap that lets temp(4), leaf(4) and root(4) all allocate but
// rejects the filler until temp's garbage is reclaimed, so the filler is
// what actually triggers a collection; the rest run uncapped.
var demoCaps = map[string]uint64{
	"gc": 13,
}
