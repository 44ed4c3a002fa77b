package repository

import "errors"

// ErrNotFound is returned by mutations that target a missing row where the
// absence is meaningful to the caller (e.g. removing a role assignment that
// does not exist). Lookups signal absence with a nil result instead.
var ErrNotFound = errors.New("not found")
