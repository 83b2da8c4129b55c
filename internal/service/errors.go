package service

import "errors"

var (
	ErrNoImageProvided = errors.New("no image provided")
	ErrExternalService = errors.New("language model request failed")
)
