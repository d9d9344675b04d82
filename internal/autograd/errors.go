package autograd

import "github.com/pkg/errors"

var (
	// ErrArity is returned when an Op receives the wrong number of forward inputs or backward gradients.
	ErrArity = errors.New("arity error")

	// ErrStale is returned when a Variable, Op or Checkpoint refers to arena slots reclaimed by Rewind.
	ErrStale = errors.New("stale handle")

	// ErrNotDifferentiable is returned when a gradient is requested through an Op that has none to give,
	// such as an Op that was never applied.
	ErrNotDifferentiable = errors.New("not differentiable")
)
