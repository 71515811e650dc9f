package icl

import (
	"errors"
	"fmt"
)

// Transport-level failure taxonomy (spec §4.1, §7). Each is a distinct
// sentinel or typed error so callers can discriminate with errors.Is/As.
var (
	// ErrAlreadyOpen is returned by Open when the transport is already
	// connected.
	ErrAlreadyOpen = errors.New("icl: transport already open")

	// ErrNotOpen is returned by operations that require an open
	// connection when none exists.
	ErrNotOpen = errors.New("icl: transport not open")

	// ErrSendFailed is returned when writing a command to the socket
	// fails.
	ErrSendFailed = errors.New("icl: send failed")

	// ErrTimeout is returned by RequestWithResponse when no matching
	// response arrives within the requested timeout.
	ErrTimeout = errors.New("icl: request timed out")

	// ErrCancelled is returned by RequestWithResponse when the caller's
	// context is cancelled before a response arrives.
	ErrCancelled = errors.New("icl: request cancelled")

	// ErrClosed is returned to every pending waiter when the peer closes
	// the connection while requests are in flight.
	ErrClosed = errors.New("icl: connection closed with requests pending")

	// ErrCallbackAlreadyRegistered is returned by RegisterBinaryCallback
	// when a callback is already installed.
	ErrCallbackAlreadyRegistered = errors.New("icl: binary callback already registered")
)

// ConnectFailedError wraps the underlying dial failure when Open cannot
// establish the WebSocket connection.
type ConnectFailedError struct {
	URI   string
	Cause error
}

func (e *ConnectFailedError) Error() string {
	return fmt.Sprintf("icl: connect to %s failed: %v", e.URI, e.Cause)
}

func (e *ConnectFailedError) Unwrap() error {
	return e.Cause
}
