package app

import "errors"

var (
	ErrInvalidConfig     = errors.New("app: invalid configuration")
	ErrMissingDependency = errors.New("app: missing dependency")
	ErrFailedToLoadPlans = errors.New("app: failed to load plans")
)
