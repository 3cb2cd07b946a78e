// Package relay implements the chunked transfer protocol core: the chunk
// sender, the session reassembler, and the staleness sweep that reclaims
// abandoned transfers.
package relay

import "errors"

// ErrorKind classifies relay errors for caller-side handling.
type ErrorKind int

const (
	// ErrorTransport indicates the outbound call itself failed.
	ErrorTransport ErrorKind = iota
	// ErrorProtocol indicates a protocol violation: out-of-order chunk,
	// missing session on a non-zero index, or a send loop that exhausted
	// all chunks without a completion signal.
	ErrorProtocol
	// ErrorForward indicates the downstream forward of a completed
	// artifact failed.
	ErrorForward
)

// Error is the tagged failure type returned by all relay operations.
type Error struct {
	// Kind classifies the failure.
	Kind ErrorKind
	// Err is the underlying error.
	Err error
}

func (e *Error) Error() string {
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsTransportError returns true if the error is a transport failure.
func IsTransportError(err error) bool {
	return kindOf(err) == ErrorTransport
}

// IsProtocolError returns true if the error is a protocol violation.
func IsProtocolError(err error) bool {
	return kindOf(err) == ErrorProtocol
}

// IsForwardError returns true if the error is a downstream forward failure.
func IsForwardError(err error) bool {
	return kindOf(err) == ErrorForward
}

func kindOf(err error) ErrorKind {
	var relayErr *Error
	if errors.As(err, &relayErr) {
		return relayErr.Kind
	}
	return ErrorKind(-1)
}
