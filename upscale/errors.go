package upscale

import (
	"fmt"
)

// FailureReason classifies why the external upscaler produced no result.
type FailureReason int

const (
	FailureSpawn FailureReason = iota
	FailureTimeout
	FailureNonZeroExit
	FailureMissingOutput
)

func (r FailureReason) String() string {
	switch r {
	case FailureSpawn:
		return "spawn_error"
	case FailureTimeout:
		return "timeout"
	case FailureNonZeroExit:
		return "non_zero_exit"
	case FailureMissingOutput:
		return "missing_output"
	default:
		return "unknown"
	}
}

// ExternalFailure is returned by ExternalProcessor when the external
// invocation did not yield a usable output image. The caller decides
// what to substitute, the processor never does.
type ExternalFailure struct {
	Reason FailureReason
	Output string
	Err    error
}

func (e *ExternalFailure) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("external upscaler failed (%s): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("external upscaler failed (%s)", e.Reason)
}

func (e *ExternalFailure) Unwrap() error {
	return e.Err
}

// DecodeError signals a frame that violates the 3-plane contract.
type DecodeError struct {
	Reason string
}

func (e *DecodeError) Error() string {
	return "decode frame: " + e.Reason
}

// FormatMismatchError signals an encode target whose plane count
// cannot hold an RGB buffer.
type FormatMismatchError struct {
	NumPlanes int
}

func (e *FormatMismatchError) Error() string {
	return fmt.Sprintf("encode frame: target format has %d planes, need 3", e.NumPlanes)
}
