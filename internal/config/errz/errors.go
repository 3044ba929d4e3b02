// Package errz provides shared error definitions for the config package.
package errz

import "errors"

// Top-level error categories
var (
	ErrFailedToLoadConfig = errors.New("failed to load config")
	ErrParseToml          = errors.New("failed to parse TOML")
)

// Validation specific errors
var (
	ErrInvalidValue         = errors.New("invalid value")
	ErrMissingRequiredField = errors.New("missing required field")
)
