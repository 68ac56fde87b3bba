package csgv

import "github.com/pkg/errors"

// ErrorKind classifies a CSGVError, mirroring the failure-policy table a
// caller needs to decide whether a volume's state is still usable.
type ErrorKind int

const (
	// ConfigInvalid: Options failed validation. The target volume, if
	// any, is left untouched.
	ConfigInvalid ErrorKind = iota
	// InputShape: a supplied volume or brick buffer didn't match the
	// shape the operation expected. Compress clears the target; every
	// other operation leaves it untouched.
	InputShape
	// CapacityExceeded: a split vector could not hold what was asked of
	// it. The target is cleared.
	CapacityExceeded
	// IoError: reading or writing a container file failed. The target
	// is left untouched.
	IoError
	// FormatMismatch: a container's magic, version, or option mask
	// could not be honored by this build. The target is left untouched.
	FormatMismatch
	// VerificationFailed: a round-trip self-check did not reproduce the
	// source volume. The target is cleared and the failure reported.
	VerificationFailed
)

func (k ErrorKind) String() string {
	switch k {
	case ConfigInvalid:
		return "config invalid"
	case InputShape:
		return "input shape"
	case CapacityExceeded:
		return "capacity exceeded"
	case IoError:
		return "io error"
	case FormatMismatch:
		return "format mismatch"
	case VerificationFailed:
		return "verification failed"
	default:
		return "unknown"
	}
}

// Sentinel base errors, matched with errors.Is against whatever cause
// chain a CSGVError carries.
var (
	ErrConfigInvalid       = errors.New("csgv: config invalid")
	ErrInputShape          = errors.New("csgv: input shape")
	ErrCapacityExceeded    = errors.New("csgv: capacity exceeded")
	ErrIoError             = errors.New("csgv: io error")
	ErrFormatMismatch      = errors.New("csgv: format mismatch")
	ErrVerificationFailed  = errors.New("csgv: verification failed")
)

func sentinelFor(k ErrorKind) error {
	switch k {
	case ConfigInvalid:
		return ErrConfigInvalid
	case InputShape:
		return ErrInputShape
	case CapacityExceeded:
		return ErrCapacityExceeded
	case IoError:
		return ErrIoError
	case FormatMismatch:
		return ErrFormatMismatch
	case VerificationFailed:
		return ErrVerificationFailed
	default:
		return ErrConfigInvalid
	}
}

// CSGVError is the concrete error type every exported operation returns
// on failure. Cause, when present, is wrapped in with github.com/pkg/errors
// so the original syscall or bounds check stays reachable.
type CSGVError struct {
	Kind    ErrorKind
	Message string
	cause   error
}

func newError(kind ErrorKind, message string) *CSGVError {
	return &CSGVError{Kind: kind, Message: message, cause: sentinelFor(kind)}
}

func wrapError(kind ErrorKind, message string, cause error) *CSGVError {
	return &CSGVError{Kind: kind, Message: message, cause: errors.Wrap(cause, message)}
}

func (e *CSGVError) Error() string {
	return e.Message + ": " + e.cause.Error()
}

func (e *CSGVError) Unwrap() error { return e.cause }

// Is lets errors.Is(err, ErrInputShape) match regardless of how deep the
// wrap chain runs, by comparing against this error's declared Kind.
func (e *CSGVError) Is(target error) bool {
	return target == sentinelFor(e.Kind)
}
