package ldap

import (
	"errors"
	"fmt"
	"strings"

	ldapv3 "github.com/go-ldap/ldap/v3"
)

// Kind classifies a failed directory login.
type Kind int

const (
	KindConnection Kind = iota + 1
	KindNotFound
	KindAmbiguous
	KindIncompleteEntry
	KindVerification
)

func (k Kind) String() string {
	switch k {
	case KindConnection:
		return "ConnectionError"
	case KindNotFound:
		return "NotFound"
	case KindAmbiguous:
		return "Ambiguous"
	case KindIncompleteEntry:
		return "IncompleteEntry"
	case KindVerification:
		return "VerificationError"
	default:
		return "Unknown"
	}
}

// Resolution reports whether the kind comes out of the search stage.
func (k Kind) Resolution() bool {
	return k == KindNotFound || k == KindAmbiguous || k == KindIncompleteEntry
}

// PublicMessage is the only text shown to an unauthenticated caller for
// search and bind failures.
const PublicMessage = "Invalid credentials"

// Error is a directory-stage failure. Detail is safe to log; it is never
// returned to the caller as is, see Public.
type Error struct {
	Kind     Kind
	Endpoint string
	Detail   string
	LDAPCode uint16
	Cause    error
}

func (e *Error) Error() string {
	var parts []string
	parts = append(parts, e.Detail)
	if e.Cause != nil && !strings.Contains(e.Detail, e.Cause.Error()) {
		parts = append(parts, e.Cause.Error())
	}
	if e.Endpoint != "" {
		parts = append(parts, fmt.Sprintf("server: %s", e.Endpoint))
	}
	return strings.Join(parts, " - ")
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Public returns the message for the host boundary. Not-found, ambiguous,
// incomplete and bad-password outcomes are indistinguishable there.
func (e *Error) Public() string {
	if e.Kind == KindConnection {
		return "Directory service unavailable"
	}
	return PublicMessage
}

func newError(kind Kind, endpoint string, cause error, format string, args ...any) *Error {
	e := &Error{
		Kind:     kind,
		Endpoint: endpoint,
		Detail:   fmt.Sprintf(format, args...),
		Cause:    cause,
	}
	var ldapErr *ldapv3.Error
	if errors.As(cause, &ldapErr) {
		e.LDAPCode = ldapErr.ResultCode
	}
	return e
}

// KindOf extracts the Kind of a directory error anywhere in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

func IsConnectionError(err error) bool {
	kind, ok := KindOf(err)
	return ok && kind == KindConnection
}

// isTransportFailure reports whether a search error means the server could
// not answer at all, as opposed to rejecting the request.
func isTransportFailure(err error) bool {
	var ldapErr *ldapv3.Error
	if errors.As(err, &ldapErr) {
		switch ldapErr.ResultCode {
		case ldapv3.ErrorNetwork,
			ldapv3.LDAPResultTimeout,
			ldapv3.LDAPResultServerDown,
			ldapv3.LDAPResultUnavailable,
			ldapv3.LDAPResultBusy,
			ldapv3.LDAPResultTimeLimitExceeded,
			ldapv3.LDAPResultConnectError,
			ldapv3.LDAPResultProtocolError:
			return true
		}
		return false
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection") ||
		strings.Contains(msg, "network") ||
		strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "timed out") ||
		strings.Contains(msg, "broken pipe")
}
