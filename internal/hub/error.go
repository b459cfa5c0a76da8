package hub

import "errors"

// Error definitions for the hub package.
var (
	ErrNoToken      = errors.New("hub: no access token available")
	ErrUnauthorized = errors.New("hub: token rejected")
	ErrGated        = errors.New("hub: repository access not granted")
	ErrRepoNotFound = errors.New("hub: repository not found")
	ErrFetchFailed  = errors.New("hub: fetch failed")
	ErrInvalidRepo  = errors.New("hub: invalid repository id")
)
