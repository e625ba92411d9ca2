package session

import (
	"errors"
	"fmt"
)

var (
	ErrNoSession    = errors.New("no active session")
	ErrClosed       = errors.New("session closed")
	ErrBadSDP       = errors.New("malformed session description")
	ErrBadCandidate = errors.New("malformed ice candidate")
)

// SessionError wraps a failure with the operation that produced it.
type SessionError struct {
	Op   string
	Peer string
	Err  error
}

func (e *SessionError) Error() string {
	if e.Peer != "" {
		return fmt.Sprintf("%s (%s): %v", e.Op, e.Peer, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *SessionError) Unwrap() error {
	return e.Err
}

func newError(op string, err error) *SessionError {
	return &SessionError{Op: op, Err: err}
}

func newPeerError(op, peer string, err error) *SessionError {
	return &SessionError{Op: op, Peer: peer, Err: err}
}
