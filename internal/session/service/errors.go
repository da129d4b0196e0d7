package service

import (
	"errors"
	"fmt"

	"scheduling-platform/identity/internal/authority"
)

var (
	// ErrNoActiveSession is returned when an operation needs a stored session and there is none.
	ErrNoActiveSession = errors.New("session: no active session")
	// ErrSessionCreation means login succeeded but the managed session could not be established.
	ErrSessionCreation = errors.New("session: could not establish session")
	// ErrTerminal means the authority rejected the session for good; local state has been cleared.
	ErrTerminal = errors.New("session: terminated by authority")
	// ErrTransient means the authority could not be reached or answered with a retryable failure;
	// local state is untouched.
	ErrTransient = errors.New("session: authority unavailable")
)

// RemoteError wraps a failed authority call. It unwraps to ErrTerminal or ErrTransient only; Err
// keeps the transport cause for logging and is not part of the error chain.
type RemoteError struct {
	Op string
	// SessionID is the session the call was about, empty for account-wide calls.
	SessionID string
	Kind      authority.Kind
	Reason    string
	Err       error
}

func newRemoteError(op, sessionID string, err error) *RemoteError {
	kind, reason := authority.Classify(err)
	return &RemoteError{Op: op, SessionID: sessionID, Kind: kind, Reason: reason, Err: err}
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("session: %s: %s failure (%s)", e.Op, e.Kind, e.Reason)
}

func (e *RemoteError) Unwrap() error {
	if e.Kind == authority.Terminal {
		return ErrTerminal
	}
	return ErrTransient
}

// IsTerminal reports whether err is a terminal session failure.
func IsTerminal(err error) bool {
	return errors.Is(err, ErrTerminal)
}
