package segment

import "errors"

// Error definitions for the segment package.
var (
	ErrMisaligned  = errors.New("masks, boxes and scores have different lengths")
	ErrInvalidMask = errors.New("invalid mask encoding")
	ErrInvalidBox  = errors.New("normalized box components must be within [0, 1]")
)
