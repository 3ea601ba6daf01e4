package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/cpp-cyber/ldapauth/internal/store"
)

const StrategyNormal = "normal"

// LocalStrategy checks the password against the hash kept in the local
// user store. It is the "normal" fallback.
type LocalStrategy struct {
	store *store.Store
}

func NewLocalStrategy(s *store.Store) *LocalStrategy {
	return &LocalStrategy{store: s}
}

func (p *LocalStrategy) Name() string {
	return StrategyNormal
}

// Login accepts the username or email of a user with a usable local password.
func (p *LocalStrategy) Login(ctx context.Context, login, password string) (*Result, error) {
	user, err := p.store.GetUserByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if !user.HasUsablePassword() || !CheckPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	return &Result{User: user, Strategy: StrategyNormal}, nil
}

// IsKnownStrategy reports whether name can be used as a fallback. The empty
// name means no fallback.
func IsKnownStrategy(name string) bool {
	switch name {
	case "", StrategyNormal, StrategyLDAP:
		return true
	}
	return false
}

// NewStrategy builds the named fallback strategy. It returns nil for "".
func NewStrategy(name string, s *store.Store) (Strategy, error) {
	switch name {
	case "":
		return nil, nil
	case StrategyNormal:
		return NewLocalStrategy(s), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownStrategy, name)
}
