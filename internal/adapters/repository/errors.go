package repository

import "errors"

// Sentinel kinds for artifact store errors.
var (
	ErrNotFound      = errors.New("artifact not found")
	ErrAlreadyExists = errors.New("artifact already exists")
	ErrInvalidKey    = errors.New("invalid artifact key")
	ErrClosed        = errors.New("artifact writer closed")

	ErrUnknownCompression = errors.New("unknown compression")
)
