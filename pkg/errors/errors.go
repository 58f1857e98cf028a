package errors

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrEmptyID          = errors.New("empty id")
	ErrInvalidData      = errors.New("invalid data type")
	ErrMalformedPayload = errors.New("malformed payload")
	ErrViewNotActive    = errors.New("view not active")
	ErrUnknownEvent     = errors.New("unknown event")
)
