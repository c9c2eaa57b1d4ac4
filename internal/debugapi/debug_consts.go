package debugapi

// These consts gate debug logging and validation across the allocator.
// Defining them here, rather than scattering ad hoc flags through each
// phase's file, keeps "where do we turn on tracing for this phase?" a single
// lookup.

// ----- Debug logging -----
// Disabled by default; flip on only when debugging a specific phase.

const (
	LivenessLoggingEnabled  = false
	CoalesceLoggingEnabled  = false
	SimplifyLoggingEnabled  = false
	SelectLoggingEnabled    = false
	SplitLoggingEnabled     = false
	PostAllocLoggingEnabled = false
)

// ----- Output prints -----

const (
	PrintLiveness          = false
	PrintInterferenceGraph = false
	PrintColoring          = false
)

// ----- Validations -----
// Enabled by default until a target's allocator has had multiple days of
// fuzzing passes without tripping one.

const (
	IFGValidationEnabled       = true
	UnionFindValidationEnabled = true
)
