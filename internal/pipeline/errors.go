package pipeline

import "errors"

// Sentinel errors returned by the run manager. Handlers map these to HTTP
// status codes.
var (
	ErrRunNotFound    = errors.New("run not found")
	ErrInvalidRequest = errors.New("invalid request")
)
