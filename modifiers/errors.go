package modifiers

import "errors"

// Sentinel errors for the modifiers registry.
var (
	ErrNotFound      = errors.New("modifier type not found")
	ErrAlreadyExists = errors.New("modifier type already registered")
	ErrEmptyName     = errors.New("modifier type name is empty")
	ErrInvalidConfig = errors.New("invalid modifier config")
	ErrInvalidValue  = errors.New("value not supported by modifier")
)
