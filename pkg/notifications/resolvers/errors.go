package resolvers

import "errors"

var (
	// ErrMissingScopeParam is returned when the scope context lacks a key the
	// resolver needs to build its query.
	ErrMissingScopeParam = errors.New("resolvers: missing scope context parameter")

	// ErrQuery wraps backend failures raised while starting a query.
	ErrQuery = errors.New("resolvers: query failed")
)
