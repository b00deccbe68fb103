package vm

import "ir441/ir"

// RunProg is the top-level driver: it locates the entry block named "main",
// constructs Memory and Globals, and invokes the block executor with an
// empty local environment. On error it dumps memory to standard output for
// diagnostics before returning.
func RunProg(prog *ir.Program, tracing bool, stats *Stats, cap *uint64) (ir.Value, *RuntimeError) {
	main, ok := prog.Blocks["main"]
	if !ok {
		return ir.Value{}, errKind(MissingMain)
	}

	mem, globals := NewMemory(prog, cap)

	result, err := Run(prog, main, map[string]ir.Value{}, globals, mem, tracing, stats)
	if err != nil {
		mem.Dump(globals)
		return ir.Value{}, err
	}
	return result, nil
}
