package exchange

import "errors"

// ErrEmptyTargets is returned by Start when either target list is empty,
// per spec.md §4.1's validation requirement.
var ErrEmptyTargets = errors.New("exchange: blue and pink target lists must both be non-empty")
