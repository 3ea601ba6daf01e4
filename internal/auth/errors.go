package auth

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/cpp-cyber/ldapauth/internal/ldap"
)

var (
	// ErrInvalidCredentials is returned when a local login does not match
	ErrInvalidCredentials = errors.New("username or password does not match")

	// ErrMissingCredentials is returned when login or password is empty
	ErrMissingCredentials = errors.New("login and password are required")

	// ErrUnknownStrategy is returned for an unregistered fallback name
	ErrUnknownStrategy = errors.New("unknown authentication strategy")
)

// FallbackError is returned when both the directory and the fallback
// strategy rejected the login. Detail is keyed by strategy name.
type FallbackError struct {
	Detail map[string]string
	causes []error
}

func newFallbackError(errs map[string]error) *FallbackError {
	e := &FallbackError{Detail: make(map[string]string, len(errs))}
	for _, name := range sortedKeys(errs) {
		e.Detail[name] = errs[name].Error()
		e.causes = append(e.causes, errs[name])
	}
	return e
}

func (e *FallbackError) Error() string {
	parts := make([]string, 0, len(e.Detail))
	for _, name := range sortedKeys(e.Detail) {
		parts = append(parts, fmt.Sprintf("%s: %s", name, e.Detail[name]))
	}
	return "all authentication strategies failed: " + strings.Join(parts, "; ")
}

func (e *FallbackError) Unwrap() []error {
	return e.causes
}

// Public returns the per-strategy messages safe to show to the caller.
func (e *FallbackError) Public() map[string]string {
	public := make(map[string]string, len(e.Detail))
	for name := range e.Detail {
		public[name] = ldap.PublicMessage
	}
	return public
}

// ReconcileError is a failure to create or update the local user after the
// directory accepted the login.
type ReconcileError struct {
	Username string
	Cause    error
}

func (e *ReconcileError) Error() string {
	return fmt.Sprintf("failed to reconcile user %s: %v", e.Username, e.Cause)
}

func (e *ReconcileError) Unwrap() error {
	return e.Cause
}

// KindOf names the failure class of err for logs and metrics.
func KindOf(err error) string {
	var fallbackErr *FallbackError
	var reconcileErr *ReconcileError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &fallbackErr):
		return "FallbackFailure"
	case errors.As(err, &reconcileErr):
		return "ReconciliationError"
	}
	if kind, ok := ldap.KindOf(err); ok {
		return kind.String()
	}
	if errors.Is(err, ErrInvalidCredentials) {
		return "InvalidCredentials"
	}
	return "Error"
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
