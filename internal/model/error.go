package model

import "errors"

// Error definitions for the model package.
var (
	ErrCheckpointMissing = errors.New("checkpoint file does not exist")
	ErrBuildFailed       = errors.New("model build failed")
	ErrNoFetcher         = errors.New("remote checkpoint requires a fetcher")
)
