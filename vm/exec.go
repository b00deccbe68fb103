package vm

import (
	"fmt"
	"os"

	"ir441/ir"
)

// Run executes block to its terminator, then tail-transitions to the next
// block or returns to its caller — the recursive interpreter entry point.
// The host call stack models the simulated call stack one-to-one: a Call
// instruction recurses into Run for the callee block.
func Run(prog *ir.Program, block *ir.BasicBlock, locals map[string]ir.Value, globals map[string]uint64, mem *Memory, tracing bool, stats *Stats) (ir.Value, *RuntimeError) {
	curBlock := block
	var prevBlockName string
	havePrev := false

	for {
		for _, inst := range curBlock.Instrs {
			if tracing {
				fmt.Fprintf(os.Stdout, "Executing: %#v\n", inst)
			}
			if err := execInstr(prog, curBlock, &locals, globals, mem, tracing, stats, prevBlockName, havePrev, inst); err != nil {
				return ir.Value{}, err
			}
		}

		if tracing {
			fmt.Fprintf(os.Stdout, "Transferring via: %#v\n", curBlock.Next)
		}

		switch xfer := curBlock.Next.(type) {
		case ir.Fail:
			panic(fmt.Sprintf("Failure: %s", xfer.Reason))

		case ir.Ret:
			v, err := Eval(locals, globals, prog, xfer.E)
			if err != nil {
				return ir.Value{}, err
			}
			stats.ret()
			return v, nil

		case ir.Jump:
			target, ok := prog.Blocks[xfer.Block]
			if !ok {
				return ir.Value{}, errName(InvalidBlockInControl, xfer.Block)
			}
			stats.uncond()
			prevBlockName = curBlock.Name
			havePrev = true
			curBlock = target

		case ir.If:
			cond, err := Eval(locals, globals, prog, xfer.Cond)
			if err != nil {
				return ir.Value{}, err
			}
			targetName := xfer.TBlock
			if cond.Kind == ir.ValData && cond.Num == 0 {
				targetName = xfer.FBlock
			}
			target, ok := prog.Blocks[targetName]
			if !ok {
				return ir.Value{}, errName(InvalidBlockInControl, targetName)
			}
			stats.cond()
			prevBlockName = curBlock.Name
			havePrev = true
			curBlock = target

		default:
			return ir.Value{}, errKind(NYI)
		}
	}
}

// execInstr executes a single instruction, mutating locals and mem in place.
func execInstr(prog *ir.Program, curBlock *ir.BasicBlock, locals *map[string]ir.Value, globals map[string]uint64, mem *Memory, tracing bool, stats *Stats, prevBlockName string, havePrev bool, inst ir.Instr) *RuntimeError {
	switch i := inst.(type) {
	case ir.Print:
		v, err := Eval(*locals, globals, prog, i.E)
		if err != nil {
			return err
		}
		fmt.Println(v.String())
		stats.print()
		return nil

	case ir.Alloc:
		addr, err := mem.alloc(i.N)
		if err == nil {
			stats.alloc()
			(*locals)[i.Lhs] = ir.DataVal(addr)
			return nil
		}
		if !isGCRequired(err) {
			return err
		}
		if gcErr := mem.gc(*locals); gcErr != nil {
			return gcErr
		}
		addr, err = mem.alloc(i.N)
		if err != nil {
			if isGCRequired(err) {
				return errKind(OutOfMemory)
			}
			return err
		}
		stats.alloc()
		(*locals)[i.Lhs] = ir.DataVal(addr)
		return nil

	case ir.VarAssign:
		v, err := Eval(*locals, globals, prog, i.Rhs)
		if err != nil {
			return err
		}
		stats.fastOp()
		(*locals)[i.Lhs] = v
		return nil

	case ir.Phi:
		if !havePrev {
			return errName(PhiInFirstBlock, i.Lhs)
		}
		for _, opt := range i.Opts {
			if opt.BlockName == prevBlockName {
				v, err := Eval(*locals, globals, prog, opt.Src)
				if err != nil {
					return err
				}
				stats.phi()
				(*locals)[i.Lhs] = v
				return nil
			}
		}
		stats.phi()
		return &RuntimeError{Kind: BadPhiPredecessor, Name: i.Lhs, Expected: prevBlockName}

	case ir.Call:
		vcode, err := Eval(*locals, globals, prog, i.Code)
		if err != nil {
			return err
		}
		if vcode.Kind != ir.ValCodePtr {
			return errKind(CallingNonCode)
		}
		target, ok := prog.Blocks[vcode.Block]
		if !ok {
			return errName(InvalidBlock, vcode.Block)
		}
		if len(i.Args)+1 != len(target.Formals) {
			return errKind(BadCallArity)
		}

		vrec, err := Eval(*locals, globals, prog, i.Receiver)
		if err != nil {
			return err
		}
		callee := make(map[string]ir.Value, len(target.Formals))
		callee[target.Formals[0]] = vrec
		for idx, arg := range i.Args {
			v, err := Eval(*locals, globals, prog, arg)
			if err != nil {
				return err
			}
			callee[target.Formals[idx+1]] = v
		}

		stats.call()
		result, err := Run(prog, target, callee, globals, mem, tracing, stats)
		if err != nil {
			return err
		}
		(*locals)[i.Lhs] = result
		return nil

	case ir.SetElt:
		vbase, err := Eval(*locals, globals, prog, i.Base)
		if err != nil {
			return err
		}
		voff, err := Eval(*locals, globals, prog, i.Offset)
		if err != nil {
			return err
		}
		vval, err := Eval(*locals, globals, prog, i.Val)
		if err != nil {
			return err
		}
		switch vbase.Kind {
		case ir.ValCodePtr:
			return errName(AccessingCodeInMemory, vbase.Block)
		case ir.ValTombstone:
			return errKind(WriteToGCedData)
		}
		switch voff.Kind {
		case ir.ValCodePtr:
			return errName(AccessingCodeInMemory, voff.Block)
		case ir.ValTombstone:
			return errKind(ReadFromGCedData)
		}
		stats.slowOp() // multiplication
		stats.fastOp() // addition
		stats.write()
		_, err = mem.memStore(vbase.Num+8*voff.Num, vval)
		return err

	case ir.GetElt:
		vbase, err := Eval(*locals, globals, prog, i.Base)
		if err != nil {
			return err
		}
		voff, err := Eval(*locals, globals, prog, i.Offset)
		if err != nil {
			return err
		}
		switch vbase.Kind {
		case ir.ValCodePtr:
			return errName(AccessingCodeInMemory, vbase.Block)
		case ir.ValTombstone:
			return errKind(ReadFromGCedData)
		}
		switch voff.Kind {
		case ir.ValCodePtr:
			return errName(AccessingCodeInMemory, voff.Block)
		case ir.ValTombstone:
			return errKind(ReadFromGCedData)
		}
		stats.slowOp()
		stats.fastOp()
		stats.read()
		mval, err := mem.memLookup(vbase.Num + 8*voff.Num)
		if err != nil {
			return err
		}
		(*locals)[i.Lhs] = mval
		return nil

	case ir.Load:
		v, err := Eval(*locals, globals, prog, i.Base)
		if err != nil {
			return err
		}
		switch v.Kind {
		case ir.ValCodePtr:
			return errName(AccessingCodeInMemory, v.Block)
		case ir.ValTombstone:
			return errKind(ReadFromGCedData)
		}
		stats.read()
		mval, err := mem.memLookup(v.Num)
		if err != nil {
			return err
		}
		(*locals)[i.Lhs] = mval
		return nil

	case ir.Store:
		vbase, err := Eval(*locals, globals, prog, i.Base)
		if err != nil {
			return err
		}
		vval, err := Eval(*locals, globals, prog, i.Val)
		if err != nil {
			return err
		}
		switch vbase.Kind {
		case ir.ValCodePtr:
			return errName(AccessingCodeInMemory, vbase.Block)
		case ir.ValTombstone:
			return errKind(WriteToGCedData)
		}
		stats.write()
		_, err = mem.memStore(vbase.Num, vval)
		return err

	case ir.Op:
		v1, err := Eval(*locals, globals, prog, i.Arg1)
		if err != nil {
			return err
		}
		v2, err := Eval(*locals, globals, prog, i.Arg2)
		if err != nil {
			return err
		}
		if v1.Kind == ir.ValCodePtr {
			return errName(CodeAddressArithmetic, v1.Block)
		}
		if v2.Kind == ir.ValCodePtr {
			return errName(CodeAddressArithmetic, v2.Block)
		}
		if v1.Kind == ir.ValTombstone || v2.Kind == ir.ValTombstone {
			return errKind(ReadFromGCedData)
		}
		n1, n2 := v1.Num, v2.Num
		var result uint64
		slow := false
		switch i.Op {
		case ir.OpAdd:
			result = n1 + n2
		case ir.OpSub:
			result = n1 - n2
		case ir.OpMul:
			result = n1 * n2
			slow = true
		case ir.OpDiv:
			result = n1 / n2 // division by zero is host-level UB, not separately reported
			slow = true
		case ir.OpShl:
			result = n1 << n2
		case ir.OpShr:
			result = n1 >> n2
		case ir.OpAnd:
			result = n1 & n2
		case ir.OpOr:
			result = n1 | n2
		case ir.OpXor:
			result = n1 ^ n2
		case ir.OpLt:
			result = boolWord(n1 < n2)
		case ir.OpGt:
			result = boolWord(n1 > n2)
		case ir.OpEq:
			result = boolWord(n1 == n2)
		default:
			return errKind(NYI)
		}
		if slow {
			stats.slowOp()
		} else {
			stats.fastOp()
		}
		(*locals)[i.Lhs] = ir.DataVal(result)
		return nil

	default:
		return errKind(NYI)
	}
}

func boolWord(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}
