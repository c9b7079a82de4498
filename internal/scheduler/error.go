package scheduler

import (
	"errors"
	"fmt"
)

// Common errors
var (
	// ErrSchedulerNotAvailable indicates submission is not possible from here
	ErrSchedulerNotAvailable = errors.New("scheduler is not available")

	// ErrSchedulerNotFound indicates the scheduler binary was not found
	ErrSchedulerNotFound = errors.New("scheduler binary not found in PATH")

	// ErrScriptNotFound indicates the batch script does not exist
	ErrScriptNotFound = errors.New("script file not found")

	// ErrJobIDParseFailed indicates the submit command printed no job id
	ErrJobIDParseFailed = errors.New("failed to parse job ID from scheduler output")

	// ErrUnknownKind indicates a scheduler name that is neither SLURM nor LSF
	ErrUnknownKind = errors.New("unknown scheduler kind")
)

// ParseError means a batch script could not be read. Runs stop here, before
// anything is submitted.
type ParseError struct {
	Kind Kind
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot read %s script %s: %v", e.Kind, e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// SubmissionError means the submit command failed or printed no job id.
type SubmissionError struct {
	Kind   Kind
	Script string // base name of the submitted script
	Output string // what the submit command printed
	Err    error
}

func (e *SubmissionError) Error() string {
	if e.Output != "" {
		return fmt.Sprintf("%s submission of %s failed: %v\nOutput: %s", e.Kind, e.Script, e.Err, e.Output)
	}
	return fmt.Sprintf("%s submission of %s failed: %v", e.Kind, e.Script, e.Err)
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}

// ScriptCreationError means a wrapped or monitor script could not be written.
type ScriptCreationError struct {
	Source string // script or job the file was generated for
	Path   string
	Err    error
}

func (e *ScriptCreationError) Error() string {
	return fmt.Sprintf("failed to write %s (for %s): %v", e.Path, e.Source, e.Err)
}

func (e *ScriptCreationError) Unwrap() error {
	return e.Err
}

// NewParseError creates a new ParseError
func NewParseError(kind Kind, path string, err error) *ParseError {
	return &ParseError{Kind: kind, Path: path, Err: err}
}

// NewSubmissionError creates a new SubmissionError
func NewSubmissionError(kind Kind, script, output string, err error) *SubmissionError {
	return &SubmissionError{Kind: kind, Script: script, Output: output, Err: err}
}

// NewScriptCreationError creates a new ScriptCreationError
func NewScriptCreationError(source, path string, err error) *ScriptCreationError {
	return &ScriptCreationError{Source: source, Path: path, Err: err}
}

// IsParseError checks if an error is a ParseError
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// IsSubmissionError checks if an error is a SubmissionError
func IsSubmissionError(err error) bool {
	var se *SubmissionError
	return errors.As(err, &se)
}

// IsScriptCreationError checks if an error is a ScriptCreationError
func IsScriptCreationError(err error) bool {
	var sce *ScriptCreationError
	return errors.As(err, &sce)
}
