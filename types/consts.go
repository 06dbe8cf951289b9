package types

// floatCmpEpsilon is the tolerance used when comparing lengths against zero
// or one (normalization edge cases).
const floatCmpEpsilon = 1e-6
