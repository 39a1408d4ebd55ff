package models

import "fmt"

// InvalidInputError reports a request the core cannot work with, such as a non-positive price.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input %s: %s", e.Field, e.Reason)
}

// ValidationError reports a malformed enum or percentage coming out of composition.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// InconsistentDirectionError reports price levels that violate the direction's ordering
// and cannot be corrected by clamping.
type InconsistentDirectionError struct {
	Direction Direction
	Detail    string
}

func (e *InconsistentDirectionError) Error() string {
	return fmt.Sprintf("inconsistent %s levels: %s", e.Direction, e.Detail)
}

// UpstreamError wraps a failure of an external collaborator: market feed, news or reasoning.
type UpstreamError struct {
	Service string
	Err     error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Service, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }
