package authority

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Failure reasons reported by the authority in unsuccessful responses.
const (
	ReasonSessionRevoked       = "session_revoked"
	ReasonSessionNotFound      = "session_not_found"
	ReasonSessionExpired       = "session_expired"
	ReasonRefreshTokenMismatch = "refresh_token_mismatch"
	ReasonInvalidRequest       = "invalid_request"
	ReasonUnavailable          = "unavailable"
)

// Failure is an unsuccessful authority response (success=false on the wire).
type Failure struct {
	Op     string
	Reason string
}

func (f *Failure) Error() string {
	return fmt.Sprintf("authority: %s failed: %s", f.Op, f.Reason)
}

// Kind classifies an authority failure.
type Kind int

const (
	// Transient failures (network, timeout, overload) may succeed on retry; local state is kept.
	Transient Kind = iota
	// Terminal failures (revoked, unknown session, rejected refresh token) never succeed on retry.
	Terminal
)

func (k Kind) String() string {
	if k == Terminal {
		return "terminal"
	}
	return "transient"
}

// IsTerminalReason reports whether reason means the session can never be used again.
func IsTerminalReason(reason string) bool {
	switch reason {
	case ReasonSessionRevoked, ReasonSessionNotFound, ReasonSessionExpired, ReasonRefreshTokenMismatch:
		return true
	}
	return false
}

// Classify maps any error returned by a Client to a Kind and a reason string.
// Unknown errors are transient: local state is only discarded on positive evidence.
func Classify(err error) (Kind, string) {
	var f *Failure
	if errors.As(err, &f) {
		if IsTerminalReason(f.Reason) {
			return Terminal, f.Reason
		}
		return Transient, f.Reason
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return Transient, "timeout"
	}
	if st, ok := status.FromError(err); ok {
		switch st.Code() {
		case codes.NotFound:
			return Terminal, ReasonSessionNotFound
		case codes.Unauthenticated, codes.PermissionDenied, codes.FailedPrecondition:
			return Terminal, ReasonSessionRevoked
		}
		return Transient, st.Code().String()
	}
	return Transient, ReasonUnavailable
}
