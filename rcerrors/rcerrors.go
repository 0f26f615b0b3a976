// Package rcerrors defines the error kinds the transcode pipeline and LLR
// codec raise. Every failure in this codebase is fatal to the process (there
// is no local recovery), but callers still need to tell an argument mistake
// apart from a corrupt sidecar file, so errors carry a kind alongside their
// message.
package rcerrors

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// Kind distinguishes the broad categories of failure the pipeline can raise.
type Kind int

const (
	// KindArgument covers invalid CLI input: bad flag values, missing
	// required arguments, extension mismatches.
	KindArgument Kind = iota
	// KindAdapter covers failures reported by the underlying media library.
	KindAdapter
	// KindInvariant covers violations of the data-model invariants:
	// overlapping reference ranges, stream-count mismatches, reverse-index
	// misses, decoded-size mismatches, premature EOF.
	KindInvariant
	// KindCorruption covers LLR-format and hash-verification failures.
	KindCorruption
)

func (k Kind) String() string {
	switch k {
	case KindArgument:
		return "argument error"
	case KindAdapter:
		return "adapter error"
	case KindInvariant:
		return "invariant violation"
	case KindCorruption:
		return "corruption"
	default:
		return "error"
	}
}

// Error is a wrapper around a Kind with a customizable message and, where
// applicable, an underlying cause.
type Error interface {
	error
	Kind() Kind
	WithMessage(message string) Error
	Wrap(err error) Error
	Unwrap() error
}

type baseError struct {
	kind    Kind
	message string
}

// New creates a root Error of the given kind with no message. Call
// WithMessage or Wrap on the result to attach detail.
func New(kind Kind) Error {
	return baseError{kind: kind}
}

func (e baseError) Error() string {
	if e.message != "" {
		return e.message
	}
	return e.kind.String()
}

func (e baseError) Kind() Kind {
	return e.kind
}

func (e baseError) Unwrap() error {
	return nil
}

func (e baseError) WithMessage(message string) Error {
	return customError{
		kind:          e.kind,
		message:       message,
		originalError: e,
	}
}

func (e baseError) Wrap(err error) Error {
	return customError{
		kind:          e.kind,
		message:       fmt.Sprintf("%s: %s", e.Error(), err.Error()),
		originalError: multierror.Append(e, err),
	}
}

// -----------------------------------------------------------------------------

type customError struct {
	kind          Kind
	message       string
	originalError error
}

func (e customError) Error() string {
	return e.message
}

func (e customError) Kind() Kind {
	return e.kind
}

func (e customError) Unwrap() error {
	return e.originalError
}

func (e customError) WithMessage(message string) Error {
	return customError{
		kind:          e.kind,
		message:       fmt.Sprintf("%s: %s", e.message, message),
		originalError: e,
	}
}

func (e customError) Wrap(err error) Error {
	return customError{
		kind:          e.kind,
		message:       fmt.Sprintf("%s: %s", e.Error(), err.Error()),
		originalError: multierror.Append(e, err),
	}
}

// Root sentinels. Callers build on these with WithMessage/Wrap rather than
// constructing bare baseError values, so every fatal error carries context
// (a path, a range, an algorithm name) alongside its stable root.
var (
	ErrInvalidArgument   = New(KindArgument).WithMessage("invalid argument")
	ErrExtensionMismatch = New(KindArgument).WithMessage("unexpected file extension")

	ErrAdapterFailed = New(KindAdapter).WithMessage("media adapter call failed")

	ErrOverlappingRange     = New(KindInvariant).WithMessage("overlapping range")
	ErrStreamCountMismatch  = New(KindInvariant).WithMessage("stream count mismatch")
	ErrDestinationNotFound  = New(KindInvariant).WithMessage("failed to find destination block")
	ErrMissingSourcePackets = New(KindInvariant).WithMessage("one or more source packets are missing")
	ErrDecodedSizeMismatch  = New(KindInvariant).WithMessage("decoded size does not match recorded size")
	ErrPrematureEOF         = New(KindInvariant).WithMessage("premature end of stream")
	ErrEncoderDrainStalled  = New(KindInvariant).WithMessage("encoder did not drain within the expected number of iterations")
	ErrResidualPackets      = New(KindInvariant).WithMessage("encoder flushed residual packets with no source byte range")
	ErrCoverageGap          = New(KindInvariant).WithMessage("gap and reference ranges do not fully cover the original file")

	ErrBadMagic            = New(KindCorruption).WithMessage("invalid LLR file signature")
	ErrUnsupportedHash     = New(KindCorruption).WithMessage("unsupported hash algorithm")
	ErrHashMismatch        = New(KindCorruption).WithMessage("reconstructed file hash does not match stored hash")
)

// Join combines zero or more non-nil errors into one. A single error is
// returned unwrapped; zero errors yields nil. Used by cleanup paths that
// close several resources and want to report every failure, not just the
// first, the same way an orchestrator's defers must release file handles,
// codec contexts, and hash contexts on every exit path.
func Join(errs ...error) error {
	var result *multierror.Error
	for _, err := range errs {
		if err != nil {
			result = multierror.Append(result, err)
		}
	}
	if result == nil {
		return nil
	}
	if len(result.Errors) == 1 {
		return result.Errors[0]
	}
	return result
}
