// Package rlog is the allocator's logging idiom: a guarded fmt.Printf behind
// a compile-time debugapi boolean, generalized from one function per phase
// rather than duplicating the "if someDebugConst { fmt.Printf(...) }" line
// at every call site.
package rlog

import (
	"fmt"
	"os"

	"github.com/regalloc/chaitin/internal/debugapi"
)

// Liveness logs a liveness-analysis trace line when debugapi.LivenessLoggingEnabled.
func Liveness(format string, args ...any) { logIf(debugapi.LivenessLoggingEnabled, "liveness", format, args) }

// Coalesce logs a coalescing trace line when debugapi.CoalesceLoggingEnabled.
func Coalesce(format string, args ...any) { logIf(debugapi.CoalesceLoggingEnabled, "coalesce", format, args) }

// Simplify logs a Simplify trace line when debugapi.SimplifyLoggingEnabled.
func Simplify(format string, args ...any) { logIf(debugapi.SimplifyLoggingEnabled, "simplify", format, args) }

// Select logs a Select trace line when debugapi.SelectLoggingEnabled.
func Select(format string, args ...any) { logIf(debugapi.SelectLoggingEnabled, "select", format, args) }

// Split logs a Split trace line when debugapi.SplitLoggingEnabled.
func Split(format string, args ...any) { logIf(debugapi.SplitLoggingEnabled, "split", format, args) }

// PostAlloc logs a post-allocation trace line when debugapi.PostAllocLoggingEnabled.
func PostAlloc(format string, args ...any) { logIf(debugapi.PostAllocLoggingEnabled, "postalloc", format, args) }

func logIf(enabled bool, phase, format string, args []any) {
	if !enabled {
		return
	}
	fmt.Fprintf(os.Stderr, "[regalloc:%s] "+format+"\n", append([]any{phase}, args...)...)
}
