// Package apperr holds the sentinel errors shared across layers.
package apperr

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidInput   = errors.New("invalid input")
	ErrNothingToCopy  = errors.New("nothing to copy")
	ErrNothingToShare = errors.New("nothing to share")
)
