// Package fwderr defines the error taxonomy of a tunnel endpoint (spec §7).
package fwderr

import (
	"errors"
	"fmt"
)

// Sentinel categories. Use errors.Is against these, or errors.As against the
// wrapping types below for the ones that carry a payload.
var (
	// Protocol is an unexpected message kind or sequence for the current role/state.
	Protocol = errors.New("protocol error")

	// ProtocolVersion is returned when a peer advertises an unsupported version.
	ProtocolVersion = errors.New("unsupported protocol version")

	// MessageIncomplete means the transport closed mid-frame.
	MessageIncomplete = errors.New("message incomplete")

	// MessageUnknown means an unrecognized frame tag.
	MessageUnknown = errors.New("unknown message tag")

	// MessageCorrupt means a malformed length prefix or body.
	MessageCorrupt = errors.New("corrupt message")

	// ConnectionReset means the peer transport closed cleanly mid-session.
	ConnectionReset = errors.New("connection reset by peer")
)

// ProtoErr wraps Protocol with context identifying what triggered it.
type ProtoErr struct {
	Role   string
	Detail string
}

func (e *ProtoErr) Error() string {
	return fmt.Sprintf("protocol error (%s): %s", e.Role, e.Detail)
}

func (e *ProtoErr) Unwrap() error { return Protocol }

// NewProtocol builds a ProtoErr for the given role ("client"/"server") and detail.
func NewProtocol(role, detail string) error {
	return &ProtoErr{Role: role, Detail: detail}
}

// IOErr wraps an underlying transport/TCP error.
type IOErr struct {
	Op  string
	Err error
}

func (e *IOErr) Error() string { return fmt.Sprintf("io error during %s: %s", e.Op, e.Err) }
func (e *IOErr) Unwrap() error { return e.Err }

// NewIO wraps err with the operation that produced it.
func NewIO(op string, err error) error {
	if err == nil {
		return nil
	}
	return &IOErr{Op: op, Err: err}
}

// RefreshSourceErr carries a diagnostic string from a failed refresh collaborator.
type RefreshSourceErr struct {
	Diagnostic string
}

func (e *RefreshSourceErr) Error() string {
	return fmt.Sprintf("refresh source failed: %s", e.Diagnostic)
}

// NewRefreshSource builds a RefreshSourceErr.
func NewRefreshSource(diagnostic string) error {
	return &RefreshSourceErr{Diagnostic: diagnostic}
}
