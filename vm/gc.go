package vm

import "ir441/ir"

// Object header layout, relative to an object's payload address (the first
// slot after the header; a program gets it by adding 24 to the address its
// Alloc returns):
//
//	addr - 24: alloc-size (slot count including the three metadata slots)
//	addr - 16: forwarding pointer (0 = not yet evacuated)
//	addr -  8: slot map (bit i set => payload slot i is a traced reference)
const (
	headerAllocSizeOff = 3 * wordSize
	headerFwdOff       = 2 * wordSize
	headerSlotMapOff   = 1 * wordSize
)

// gc runs a full copying collection, relocating every object reachable from
// locals and flipping the semispace. Only the current activation's locals
// are scanned — ancestor frames are not roots. Fixing that would require
// threading a root stack across activations, which this implementation
// deliberately does not do, to preserve bug-parity with the reference
// interpreter this design is ported from.
func (m *Memory) gc(locals map[string]ir.Value) *RuntimeError {
	newBase := m.nextAlloc
	m.slotsAlloced = 0

	for name, v := range locals {
		switch v.Kind {
		case ir.ValCodePtr:
			// not a heap reference, left alone
		case ir.ValData:
			newAddr, err := m.trace(v.Num)
			if err != nil {
				return err
			}
			locals[name] = ir.DataVal(newAddr)
		case ir.ValTombstone:
			return errName(CorruptGCMetadata, name)
		}
	}

	// Written directly into cells, side-stepping mem_store's checks, the same
	// way alloc and reserve insert their zeroed slots directly: the evacuated
	// region includes the one-word gaps alloc leaves between objects, and
	// those addresses were never themselves inserted as cells.
	for a := m.base; a < newBase; a += wordSize {
		m.cells[a] = ir.Tombstone
	}

	m.base = newBase
	return nil
}

// trace relocates the object whose payload starts at addr (if not already
// evacuated) and returns its new payload address. The forwarding pointer is
// installed in the OLD header before recursing into payload fields, so that
// a cycle back to addr short-circuits instead of looping forever.
func (m *Memory) trace(addr uint64) (uint64, *RuntimeError) {
	fwdAddr := addr - headerFwdOff
	fwd, ok := m.cells[fwdAddr]
	if !ok {
		return 0, errAddr(UnallocatedAddressRead, addr)
	}
	if fwd.Kind != ir.ValData {
		return 0, errAddr(CorruptGCMetadata, addr)
	}
	if fwd.Num != 0 {
		// Already evacuated; the stored address must be a live key.
		return fwd.Num, nil
	}

	allocSizeAddr := addr - headerAllocSizeOff
	allocSizeV, ok := m.cells[allocSizeAddr]
	if !ok {
		return 0, errAddr(UnallocatedAddressRead, addr)
	}
	if allocSizeV.Kind != ir.ValData {
		return 0, errAddr(CorruptGCMetadata, addr)
	}
	allocSize := allocSizeV.Num

	slotMapAddr := addr - headerSlotMapOff
	slotMapV, ok := m.cells[slotMapAddr]
	if !ok {
		return 0, errAddr(UnallocatedAddressRead, addr)
	}
	if slotMapV.Kind != ir.ValData {
		return 0, errAddr(CorruptGCMetadata, addr)
	}
	slotMap := slotMapV.Num

	newMeta, err := m.reserve(allocSize)
	if err != nil {
		return 0, err
	}
	m.cells[newMeta] = allocSizeV
	m.cells[newMeta+wordSize] = ir.DataVal(0)
	m.cells[newMeta+2*wordSize] = slotMapV
	newPayload := newMeta + 3*wordSize

	// Install the forwarding pointer at the OLD header before recursing, so
	// a cycle through this object terminates on the second visit.
	m.cells[fwdAddr] = ir.DataVal(newPayload)

	numPayloadSlots := allocSize - 3
	var i uint64
	for i = 0; i < numPayloadSlots; i++ {
		old, err := m.memLookup(addr + i*wordSize)
		if err != nil {
			return 0, err
		}
		if slotMap&0x1 == 1 {
			switch old.Kind {
			case ir.ValData:
				movedTo, err := m.trace(old.Num)
				if err != nil {
					return 0, err
				}
				m.cells[newPayload+i*wordSize] = ir.DataVal(movedTo)
			case ir.ValTombstone:
				return 0, errAddr(CorruptGCMetadata, addr+i*wordSize)
			case ir.ValCodePtr:
				return 0, errName(BadGCField, old.Block)
			}
		} else {
			m.cells[newPayload+i*wordSize] = old
		}
		slotMap >>= 1
	}

	return newPayload, nil
}
