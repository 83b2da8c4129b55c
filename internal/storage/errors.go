package storage

import "errors"

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrImageNotFound   = errors.New("image not found")
	ErrInvalidPath     = errors.New("invalid image path")
	ErrFileOperation   = errors.New("file operation failed")
)
