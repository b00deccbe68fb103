package vm

import (
	"testing"

	"ir441/ir"
)

// neg builds the IntLit for a negative header offset (wraps around as an
// unsigned 64-bit value, since addressing is modular 64-bit: addr + 8*offset).
func neg(n int64) ir.Expr { return ir.IntLit{Val: uint64(n)} }

// GC relocation: a root object with a traced reference to a leaf
// object survives a collection forced by an allocation that exceeds the
// slot cap, and the leaf's scalar payload reads back unchanged through the
// relocated root. That old addresses read as ReadFromGCedData is checked
// separately in TestOldAddressesReadAsReadFromGCedDataAfterGC.
func TestScenarioGCRelocatesReachableObjects(t *testing.T) {
	prog := &ir.Program{
		Blocks: map[string]*ir.BasicBlock{
			"main": {
				Name: "main",
				Instrs: []ir.Instr{
					// A throwaway 4-slot object, reachable only until "temp" is
					// reassigned below — this is the garbage a GC actually has
					// something to reclaim.
					ir.Alloc{Lhs: "temp", N: 4},

					ir.Alloc{Lhs: "leaf", N: 4},
					ir.Op{Lhs: "leaf", Arg1: ir.Var{Name: "leaf"}, Op: ir.OpAdd, Arg2: ir.IntLit{Val: 24}},
					ir.SetElt{Base: ir.Var{Name: "leaf"}, Offset: neg(-3), Val: ir.IntLit{Val: 4}},
					ir.SetElt{Base: ir.Var{Name: "leaf"}, Offset: neg(-2), Val: ir.IntLit{Val: 0}},
					ir.SetElt{Base: ir.Var{Name: "leaf"}, Offset: neg(-1), Val: ir.IntLit{Val: 0}},
					ir.SetElt{Base: ir.Var{Name: "leaf"}, Offset: ir.IntLit{Val: 0}, Val: ir.IntLit{Val: 42}},

					// Orphans the original "temp" object: no local points at it
					// anymore once this assignment lands.
					ir.VarAssign{Lhs: "temp", Rhs: ir.Var{Name: "leaf"}},

					ir.Alloc{Lhs: "root", N: 4},
					ir.Op{Lhs: "root", Arg1: ir.Var{Name: "root"}, Op: ir.OpAdd, Arg2: ir.IntLit{Val: 24}},
					ir.SetElt{Base: ir.Var{Name: "root"}, Offset: neg(-3), Val: ir.IntLit{Val: 4}},
					ir.SetElt{Base: ir.Var{Name: "root"}, Offset: neg(-2), Val: ir.IntLit{Val: 0}},
					ir.SetElt{Base: ir.Var{Name: "root"}, Offset: neg(-1), Val: ir.IntLit{Val: 1}},
					ir.SetElt{Base: ir.Var{Name: "root"}, Offset: ir.IntLit{Val: 0}, Val: ir.Var{Name: "leaf"}},

					ir.VarAssign{Lhs: "oldleaf", Rhs: ir.Var{Name: "leaf"}},
					ir.VarAssign{Lhs: "oldroot", Rhs: ir.Var{Name: "root"}},

					// Exceeds the cap while "temp"'s garbage is still counted;
					// forces a GC that reclaims it, then retries and succeeds.
					ir.Alloc{Lhs: "filler", N: 4},

					ir.GetElt{Lhs: "leafref", Base: ir.Var{Name: "root"}, Offset: ir.IntLit{Val: 0}},
					ir.Load{Lhs: "result", Base: ir.Var{Name: "leafref"}},
				},
				Next: ir.Ret{E: ir.Var{Name: "result"}},
			},
		},
	}

	cap := uint64(13) // temp(4)+leaf(4)+root(4)+1 = 13: the filler only fits after GC drops temp's 4
	stats := &Stats{}
	result, err := RunProg(prog, false, stats, &cap)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != ir.DataVal(42) {
		t.Fatalf("result = %v, want Data(42) (leaf payload unchanged after relocation)", result)
	}
	if stats.Allocs != 4 {
		t.Fatalf("stats.Allocs = %d, want 4 (temp, leaf, root, filler)", stats.Allocs)
	}
}

func TestOldAddressesReadAsReadFromGCedDataAfterGC(t *testing.T) {
	mem, _ := NewMemory(emptyProgram(), uint64Ptr(5)) // alloc(4) needs 4 slots plus 1 for the gap word

	leafMeta, err := mem.alloc(4)
	if err != nil {
		t.Fatalf("alloc leaf: %v", err)
	}
	leaf := leafMeta + 24
	mustStoreHeader(t, mem, leaf, 4, 0, 0)
	if _, err := mem.memStore(leaf, ir.DataVal(99)); err != nil {
		t.Fatalf("store leaf payload: %v", err)
	}

	locals := map[string]ir.Value{"leaf": ir.DataVal(leaf)}

	// Force a GC directly: allocate past the cap.
	if _, err := mem.alloc(4); !isGCRequired(err) {
		t.Fatalf("expected alloc past cap to require GC, got %v", err)
	}
	if err := mem.gc(locals); err != nil {
		t.Fatalf("gc: %v", err)
	}

	if _, err := mem.memLookup(leafMeta); err == nil || err.Kind != ReadFromGCedData {
		t.Fatalf("memLookup(old leaf header) = %v, want ReadFromGCedData", err)
	}
	if _, err := mem.memLookup(leaf); err == nil || err.Kind != ReadFromGCedData {
		t.Fatalf("memLookup(old leaf payload) = %v, want ReadFromGCedData", err)
	}

	newLeaf := locals["leaf"]
	if newLeaf.Kind != ir.ValData || newLeaf.Num < mem.base {
		t.Fatalf("relocated leaf local = %v, want Data(addr >= base=%d)", newLeaf, mem.base)
	}
	v, err := mem.memLookup(newLeaf.Num)
	if err != nil || v != ir.DataVal(99) {
		t.Fatalf("memLookup(relocated leaf) = %v, %v; want Data(99), nil", v, err)
	}
}

func TestGCAbortsOnTombstoneInLocals(t *testing.T) {
	mem, _ := NewMemory(emptyProgram(), nil)
	locals := map[string]ir.Value{"x": ir.Tombstone}

	err := mem.gc(locals)
	if err == nil || err.Kind != CorruptGCMetadata {
		t.Fatalf("gc with tombstone local = %v, want CorruptGCMetadata", err)
	}
}

func TestGCLeavesCodePtrLocalsUntouched(t *testing.T) {
	mem, _ := NewMemory(emptyProgram(), nil)
	locals := map[string]ir.Value{"f": ir.CodePtrVal("somewhere")}

	if err := mem.gc(locals); err != nil {
		t.Fatalf("gc: %v", err)
	}
	if locals["f"] != ir.CodePtrVal("somewhere") {
		t.Fatalf("CodePtr local mutated by gc: %v", locals["f"])
	}
}

func TestTraceOnCyclicObjectTerminates(t *testing.T) {
	mem, _ := NewMemory(emptyProgram(), nil)

	meta, err := mem.alloc(4)
	if err != nil {
		t.Fatalf("alloc: %v", err)
	}
	obj := meta + 24
	mustStoreHeader(t, mem, obj, 4, 0, 1) // slot 0 is a self-reference
	if _, err := mem.memStore(obj, ir.DataVal(obj)); err != nil {
		t.Fatalf("store self-reference: %v", err)
	}

	locals := map[string]ir.Value{"x": ir.DataVal(obj)}
	if err := mem.gc(locals); err != nil {
		t.Fatalf("gc on cyclic object: %v", err)
	}

	newObj := locals["x"]
	v, err := mem.memLookup(newObj.Num)
	if err != nil {
		t.Fatalf("memLookup(relocated cyclic object): %v", err)
	}
	if v != newObj {
		t.Fatalf("self-reference slot = %v, want it to also point at the relocated object %v", v, newObj)
	}
}

func uint64Ptr(n uint64) *uint64 { return &n }

// mustStoreHeader writes the three-slot object header (alloc-size, fwd=0,
// slot map) at addr-24, addr-16, addr-8.
func mustStoreHeader(t *testing.T, mem *Memory, addr uint64, allocSize, fwd, slotMap uint64) {
	t.Helper()
	if _, err := mem.memStore(addr-24, ir.DataVal(allocSize)); err != nil {
		t.Fatalf("store alloc-size: %v", err)
	}
	if _, err := mem.memStore(addr-16, ir.DataVal(fwd)); err != nil {
		t.Fatalf("store fwd: %v", err)
	}
	if _, err := mem.memStore(addr-8, ir.DataVal(slotMap)); err != nil {
		t.Fatalf("store slot map: %v", err)
	}
}
