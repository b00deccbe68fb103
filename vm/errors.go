package vm

import "fmt"

// RuntimeErrorKind tags the category of a RuntimeError.
type RuntimeErrorKind int

const (
	// Addressing errors.
	NullPointer RuntimeErrorKind = iota
	UnalignedAccess
	UnallocatedAddressRead
	UnallocatedAddressWrite
	AccessingDeallocatedAddress
	AccessingCodeInMemory
	CodeAddressArithmetic

	// Permission errors.
	WriteToImmutableData
	ReadFromGCedData
	WriteToGCedData

	// GC errors.
	OutOfMemory
	CorruptGCMetadata
	BadGCField

	// Program integrity errors.
	MissingMain
	InvalidBlock
	InvalidBlockInControl
	UndefinedGlobal
	UninitializedVariable
	PhiInFirstBlock
	BadPhiPredecessor
	BadCallArity
	CallingNonCode
	NYI
)

var kindNames = map[RuntimeErrorKind]string{
	NullPointer:                 "NullPointer",
	UnalignedAccess:             "UnalignedAccess",
	UnallocatedAddressRead:      "UnallocatedAddressRead",
	UnallocatedAddressWrite:     "UnallocatedAddressWrite",
	AccessingDeallocatedAddress: "AccessingDeallocatedAddress",
	AccessingCodeInMemory:       "AccessingCodeInMemory",
	CodeAddressArithmetic:       "CodeAddressArithmetic",
	WriteToImmutableData:        "WriteToImmutableData",
	ReadFromGCedData:            "ReadFromGCedData",
	WriteToGCedData:             "WriteToGCedData",
	OutOfMemory:                 "OutOfMemory",
	CorruptGCMetadata:           "CorruptGCMetadata",
	BadGCField:                  "BadGCField",
	MissingMain:                 "MissingMain",
	InvalidBlock:                "InvalidBlock",
	InvalidBlockInControl:       "InvalidBlockInControl",
	UndefinedGlobal:             "UndefinedGlobal",
	UninitializedVariable:       "UninitializedVariable",
	PhiInFirstBlock:             "PhiInFirstBlock",
	BadPhiPredecessor:           "BadPhiPredecessor",
	BadCallArity:                "BadCallArity",
	CallingNonCode:              "CallingNonCode",
	NYI:                         "NYI",
}

func (k RuntimeErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "UnknownRuntimeError"
}

// RuntimeError is the single error type every fatal interpreter condition
// surfaces as. Context fields are populated only where relevant to Kind.
type RuntimeError struct {
	Kind RuntimeErrorKind

	Addr     uint64 // address involved, for addressing/permission errors
	Name     string // variable, global, or block name involved
	Expected string // extra context, e.g. the actual predecessor block
}

func (e *RuntimeError) Error() string {
	switch e.Kind {
	case NullPointer, UnalignedAccess, UnallocatedAddressRead, UnallocatedAddressWrite, AccessingDeallocatedAddress:
		return fmt.Sprintf("%s at address %d", e.Kind, e.Addr)
	case AccessingCodeInMemory, CodeAddressArithmetic, InvalidBlock, InvalidBlockInControl:
		return fmt.Sprintf("%s: %s", e.Kind, e.Name)
	case UndefinedGlobal, UninitializedVariable:
		return fmt.Sprintf("%s: %s", e.Kind, e.Name)
	case BadPhiPredecessor:
		return fmt.Sprintf("%s: no option for predecessor %q in phi for %s", e.Kind, e.Expected, e.Name)
	default:
		return e.Kind.String()
	}
}

func errAddr(kind RuntimeErrorKind, addr uint64) *RuntimeError {
	return &RuntimeError{Kind: kind, Addr: addr}
}

func errName(kind RuntimeErrorKind, name string) *RuntimeError {
	return &RuntimeError{Kind: kind, Name: name}
}

func errKind(kind RuntimeErrorKind) *RuntimeError {
	return &RuntimeError{Kind: kind}
}

// errGCRequired is the internal signal alloc uses to ask its caller to run
// the collector and retry. It must never escape to a caller outside this
// package — the executor's Alloc handling is the sole place that observes it.
var errGCRequired = &RuntimeError{Kind: gcRequiredKind}

// gcRequiredKind is intentionally unexported: GCRequired must never be
// observable outside alloc's immediate caller, so it is not a member of the
// exported RuntimeErrorKind enum.
const gcRequiredKind RuntimeErrorKind = -1

func isGCRequired(err *RuntimeError) bool {
	return err != nil && err.Kind == gcRequiredKind
}
