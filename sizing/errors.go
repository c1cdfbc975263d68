package sizing

import "github.com/pkg/errors"

var (
	// ErrErfDegenerate marks a self-loaded inverter whose slow edge stopped
	// improving before the edges crossed. The current upper bound is kept.
	ErrErfDegenerate = errors.New("sizing: inverter is self-loaded")

	// ErrBoundaryHit marks a range search whose winner kept landing on a
	// range boundary until the round limit.
	ErrBoundaryHit = errors.New("sizing: winner on range boundary")

	// ErrConvergenceNotReached means the outer loop hit its iteration
	// limit. The best iteration seen is still installed.
	ErrConvergenceNotReached = errors.New("sizing: iteration limit reached")

	// ErrParameterMismatch means a testbench needs a parameter the store
	// cannot provide. It aborts the run.
	ErrParameterMismatch = errors.New("sizing: testbench parameter mismatch")
)
