package domain

import "errors"

// Fatal error categories. Configuration errors are raised before any request
// is issued; parse errors abort the whole invocation.
var (
	// ErrMalformedResponse marks a payload whose root structure is not a
	// recognizable observation collection.
	ErrMalformedResponse = errors.New("malformed observation response")
	// ErrCRSMismatch marks a response whose members declare more than one
	// source CRS.
	ErrCRSMismatch = errors.New("CRS mismatch between procedures in one response")
	// ErrMissingData marks a response with no data for any requested
	// procedure or observed property. The operator should adjust the time
	// range, offering, procedure or observed-property filters.
	ErrMissingData = errors.New("no data for the requested procedures or observed properties")
	// ErrUnsupportedMethod marks an aggregation method other than average
	// or sum.
	ErrUnsupportedMethod = errors.New("unsupported aggregation method")
	// ErrUnprojectedTarget marks a target CRS that is geographic or
	// undeclared; grid-resolution and bounding-box arithmetic require a
	// projected frame.
	ErrUnprojectedTarget = errors.New("target CRS must be projected")
)
