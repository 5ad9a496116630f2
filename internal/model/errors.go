package model

import "errors"

// ErrNotConfigured is returned by collaborators whose backing service is not configured.
var ErrNotConfigured = errors.New("dependency not configured")
