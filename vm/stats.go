package vm

// Stats accumulates cycle-class counts for one run. Every counter is
// monotone non-decreasing for the lifetime of the run.
type Stats struct {
	FastALUOps            uint64 // + - & | ^ << >> < > == and variable assignment
	SlowALUOps            uint64 // * /
	ConditionalBranches   uint64
	UnconditionalBranches uint64
	Calls                 uint64
	Rets                  uint64
	MemReads              uint64
	MemWrites             uint64
	Allocs                uint64
	Prints                uint64
	Phis                  uint64
}

func (s *Stats) fastOp() { s.FastALUOps++ }
func (s *Stats) slowOp() { s.SlowALUOps++ }
func (s *Stats) cond()   { s.ConditionalBranches++ }
func (s *Stats) uncond() { s.UnconditionalBranches++ }
func (s *Stats) call()   { s.Calls++ }
func (s *Stats) ret()    { s.Rets++ }
func (s *Stats) read()   { s.MemReads++ }
func (s *Stats) write()  { s.MemWrites++ }
func (s *Stats) alloc()  { s.Allocs++ }
func (s *Stats) print()  { s.Prints++ }
func (s *Stats) phi()    { s.Phis++ }
