package tensor

import "github.com/pkg/errors"

// Error taxonomy. Every failure returned by this package wraps one of these,
// so callers can test with errors.Is while the message names the offending shapes or types.
var (
	ErrShape = errors.New("shape error")
	ErrType  = errors.New("type error")
	ErrIndex = errors.New("index error")
)
