package gcode

import (
	"errors"
	"fmt"
)

// Top-level error categories
var (
	ErrEmptyInput   = errors.New("no toolpath scripts supplied")
	ErrInvalidValue = errors.New("invalid value")
)

// StructureError reports a toolpath script whose print boundaries could not
// be located. Excerpt carries the first lines of the script so the caller
// can render a useful diagnostic instead of guessing a split point.
type StructureError struct {
	Source  string
	Missing string // "body-start marker" or "body-end marker"
	Excerpt string
}

func (e *StructureError) Error() string {
	return fmt.Sprintf("toolpath structure not recognized in %s: %s not found", e.Source, e.Missing)
}

// TooShortError reports a print body below the minimum viable size, which
// usually means a marker false-positive produced a mis-segmentation.
type TooShortError struct {
	Source    string
	BodyBytes int
	MinBytes  int
}

func (e *TooShortError) Error() string {
	return fmt.Sprintf(
		"print body in %s is too short: %d bytes, minimum %d",
		e.Source, e.BodyBytes, e.MinBytes,
	)
}

// InvalidOrderError reports a file ordering that is not a permutation of
// the supplied scripts.
type InvalidOrderError struct {
	Index     int
	FileCount int
	Duplicate bool
}

func (e *InvalidOrderError) Error() string {
	if e.Duplicate {
		return fmt.Sprintf("invalid file order: index %d appears more than once", e.Index+1)
	}
	return fmt.Sprintf(
		"invalid file order: index %d out of range for %d files",
		e.Index+1, e.FileCount,
	)
}

// CustomSweepTooLargeError reports a custom sweep pattern above the
// configured byte ceiling.
type CustomSweepTooLargeError struct {
	Bytes int
	Max   int
}

func (e *CustomSweepTooLargeError) Error() string {
	return fmt.Sprintf("custom sweep is %d bytes, maximum %d", e.Bytes, e.Max)
}

// LimitExceededError reports a violated safety ceiling. Limit names the
// specific ceiling so the caller can render a precise message; the engine
// never clamps or silently rejects.
type LimitExceededError struct {
	Limit  string
	Max    int64
	Actual int64
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("%s limit exceeded: %d, maximum %d", e.Limit, e.Actual, e.Max)
}
