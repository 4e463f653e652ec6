package stream

import "errors"

// ErrCitationMismatch indicates the numbered prompt context diverged
// from the result list about to be returned to the caller.
var ErrCitationMismatch = errors.New("citation numbering does not match result list")
