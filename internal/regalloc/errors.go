package regalloc

import (
	"errors"
	"fmt"
)

// Sentinel failure kinds for a compilation attempt. Allocate currently
// returns only ErrAllocatorRetryExhausted; the other four name failure
// conditions but no code path in this package detects or returns them.
var (
	// ErrNonSpillableOperand names the case of a register class with no
	// spill mask (flags, condition codes, and similar) needing a spill.
	ErrNonSpillableOperand = errors.New("regalloc: operand class has no spill mask")

	// ErrNodeLimitExceeded names the case of live-range splitting growing
	// the LRG table past a node limit; the allocator has no such limit.
	ErrNodeLimitExceeded = errors.New("regalloc: node limit exceeded during split")

	// ErrIllegalOopmapRegister names the case of a live oop at a safepoint
	// being assigned a register the target's oopmap encoding cannot
	// represent.
	ErrIllegalOopmapRegister = errors.New("regalloc: oop assigned an unencodable oopmap register")

	// ErrDerivedWithoutBase names the case of a derived pointer whose base
	// cannot be resolved to any live range (a malformed or cyclic derivation
	// chain).
	ErrDerivedWithoutBase = errors.New("regalloc: derived pointer has no resolvable base")

	// ErrAllocatorRetryExhausted is returned when the split/recycle loop
	// exceeds its retry limit without reaching a fixed point, or when a
	// split round changes nothing.
	ErrAllocatorRetryExhausted = errors.New("regalloc: spill-split-recycle retry limit exceeded")
)

// FailureSink receives a structured record of why an allocation attempt
// failed, in addition to the returned error, so a caller that wants more
// than an error string (a test harness, a diagnostics command) can inspect
// which LRG or safepoint triggered the failure.
type FailureSink interface {
	OnFailure(kind error, detail string)
}

// noopFailureSink is used when the driver is not given a FailureSink.
type noopFailureSink struct{}

func (noopFailureSink) OnFailure(error, string) {}

// wrapFailure formats a sentinel failure kind together with a detail string
// into a single error, and reports it to sink.
func wrapFailure(sink FailureSink, kind error, detail string) error {
	sink.OnFailure(kind, detail)
	return fmt.Errorf("%w: %s", kind, detail)
}
