package vm

import "ir441/ir"

// Eval converts an IR expression to a Value given the current locals,
// globals, and program. It is pure: it never mutates its arguments or
// touches Memory.
func Eval(locals map[string]ir.Value, globals map[string]uint64, prog *ir.Program, e ir.Expr) (ir.Value, *RuntimeError) {
	switch x := e.(type) {
	case ir.IntLit:
		return ir.DataVal(x.Val), nil

	case ir.Var:
		v, ok := locals[x.Name]
		if !ok {
			return ir.Value{}, errName(UninitializedVariable, x.Name)
		}
		return v, nil

	case ir.BlockRef:
		if _, ok := prog.Blocks[x.Name]; !ok {
			return ir.Value{}, errName(InvalidBlock, x.Name)
		}
		return ir.CodePtrVal(x.Name), nil

	case ir.GlobalRef:
		addr, ok := globals[x.Name]
		if !ok {
			return ir.Value{}, errName(UndefinedGlobal, x.Name)
		}
		return ir.DataVal(addr), nil

	default:
		return ir.Value{}, errKind(NYI)
	}
}
