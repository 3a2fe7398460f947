package ibt

import (
	"errors"
	"fmt"
)

var (
	// ErrTruncated is returned when a fixed-size region is shorter than its layout requires.
	ErrTruncated = errors.New("ibt: truncated region")

	// ErrOutOfBounds is returned when an offset taken from the header points outside the file.
	ErrOutOfBounds = errors.New("ibt: region out of bounds")
)

// Stage names the step of a capture decode that failed.
type Stage string

const (
	StageRead     Stage = "read"
	StageHeader   Stage = "header"
	StageMetadata Stage = "metadata"
	StageSession  Stage = "session"
	StageVars     Stage = "variables"
	StageSampler  Stage = "sampler"
)

// DecodeError is the single failure surfaced for a capture that could not be decoded.
// Stage is kept for diagnostics only; callers are not expected to branch on it.
type DecodeError struct {
	Stage Stage
	Path  string
	Err   error
}

func (e *DecodeError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("ibt: decode %s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("ibt: decode %s (%s): %v", e.Path, e.Stage, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
