package backend

import "errors"

// Error definitions for the backend package.
var (
	ErrNotFound          = errors.New("backend not found in registry")
	ErrAlreadyRegistered = errors.New("backend is already registered in the registry")
	ErrNoImage           = errors.New("no image set on inference state")
	ErrInference         = errors.New("inference failed")
)
