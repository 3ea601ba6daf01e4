package auth

import (
	"context"

	"github.com/cpp-cyber/ldapauth/internal/ldap"
	"github.com/cpp-cyber/ldapauth/internal/models"
)

// =================================================
// Strategies
// =================================================

// Strategy is a named login mechanism.
type Strategy interface {
	Name() string
	Login(ctx context.Context, login, password string) (*Result, error)
}

// Result is a successful login.
type Result struct {
	User     *models.User
	Strategy string
	Created  bool

	// Identity is set only when the directory verified the password.
	Identity *ldap.Identity
}

// Directory is the directory side of a login.
type Directory interface {
	Authenticate(ctx context.Context, login, password string) (*ldap.Identity, error)
	IsMemberOf(ctx context.Context, username, groupDN string) (bool, error)
}

// Recorder receives login and reconciliation events.
type Recorder interface {
	LoginAttempt(strategy, outcome string)
	UserRegistered()
	UserUpdated()
}

type nopRecorder struct{}

func (nopRecorder) LoginAttempt(string, string) {}
func (nopRecorder) UserRegistered()             {}
func (nopRecorder) UserUpdated()                {}

// =================================================
// Auth Service
// =================================================

const StrategyLDAP = "ldap"

type AuthService struct {
	directory    Directory
	reconciler   *Reconciler
	fallback     Strategy
	adminGroupDN string
	recorder     Recorder
}
