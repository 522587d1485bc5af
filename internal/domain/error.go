package domain

import "errors"

var (
	// Common domain errors
	ErrConfiguration     = errors.New("invalid configuration")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrCompletionFailure = errors.New("completion failed")
	ErrMembershipLookup  = errors.New("membership lookup failed")
	ErrQueueFull         = errors.New("worker queue full")
)
