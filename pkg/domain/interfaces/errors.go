package interfaces

import "github.com/m-mizutani/goerr/v2"

// ErrNotFound is returned by repositories when a record does not
// exist. Both backends wrap this sentinel so callers can detect
// absence with errors.Is regardless of the backend.
var ErrNotFound = goerr.New("record not found")
