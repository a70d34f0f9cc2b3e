package dfsengine

import "errors"

// §7's two config-error sentinels, returned synchronously from operator
// setters; operator state is left unchanged on either.
var (
	ErrInvalidIntermediateChannel = errors.New("precac: intermediate channel must not be DFS")
	ErrInvalidBandwidth           = errors.New("precac: unsupported bandwidth")
)
