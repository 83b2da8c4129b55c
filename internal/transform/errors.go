package transform

import "errors"

var (
	ErrInvalidImage    = errors.New("invalid image")
	ErrUnsupportedMode = errors.New("unsupported image mode")
)
