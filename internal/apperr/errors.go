package apperr

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrMissingMetadata = errors.New("missing metadata")
	ErrUnsafeOutput    = errors.New("unsafe output directory")
)
