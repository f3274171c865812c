package stage

import "errors"

// ErrInvalidParam indicates a builder-time parameter validation failure.
// Kernel constructors wrap it with fmt.Errorf("%w: <stable message>") so
// a stable, documented message string survives for callers doing
// errors.Is/string matching.
var ErrInvalidParam = errors.New("invalid parameter")

// ErrWindowMismatch indicates a loaded state's window size doesn't match
// the kernel instance it's being restored into, or carries more buffered
// samples than the instance's window allows.
var ErrWindowMismatch = errors.New("window size mismatch")

// ErrRunningSumInvalid indicates a loaded state's running-sum bookkeeping
// doesn't reconcile with the buffered samples it was saved alongside.
var ErrRunningSumInvalid = errors.New("running sum validation failed")

// ErrStateShapeMismatch indicates a loaded state's delay-line or
// weight-vector lengths don't match what the kernel instance expects,
// typically because it was saved against a different parameter set.
var ErrStateShapeMismatch = errors.New("state shape mismatch")
