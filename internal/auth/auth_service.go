package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/cpp-cyber/ldapauth/internal/ldap"
	"github.com/cpp-cyber/ldapauth/internal/logger"
)

// Login outcomes reported to the Recorder.
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

func NewAuthService(directory Directory, reconciler *Reconciler, fallback Strategy) *AuthService {
	return &AuthService{
		directory:  directory,
		reconciler: reconciler,
		fallback:   fallback,
		recorder:   nopRecorder{},
	}
}

func (s *AuthService) WithRecorder(recorder Recorder) *AuthService {
	if recorder != nil {
		s.recorder = recorder
	}
	return s
}

// WithAdminGroup makes members of groupDN administrators.
func (s *AuthService) WithAdminGroup(groupDN string) *AuthService {
	s.adminGroupDN = groupDN
	return s
}

func (s *AuthService) Name() string {
	return StrategyLDAP
}

// Fallback returns the configured fallback strategy, or nil.
func (s *AuthService) Fallback() Strategy {
	return s.fallback
}

// Login authenticates against the directory and reconciles the local user.
// When the directory cannot resolve or verify the login and a fallback is
// configured, the fallback decides. A directory that cannot be reached is
// never masked by the fallback.
func (s *AuthService) Login(ctx context.Context, login, password string) (*Result, error) {
	if login == "" || password == "" {
		return nil, ErrMissingCredentials
	}
	log := logger.Ctx(ctx).With().Str("login", login).Logger()

	identity, dirErr := s.directory.Authenticate(ctx, login, password)
	if dirErr == nil {
		user, created, err := s.reconciler.Reconcile(ctx, *identity, password)
		if err != nil {
			s.recorder.LoginAttempt(StrategyLDAP, OutcomeError)
			log.Error().Err(err).Msg("directory login succeeded but user reconciliation failed")
			return nil, err
		}

		s.recorder.LoginAttempt(StrategyLDAP, OutcomeSuccess)
		log.Info().Str("user_id", user.ID).Bool("created", created).Msg("directory login succeeded")
		return &Result{User: user, Strategy: StrategyLDAP, Created: created, Identity: identity}, nil
	}

	kind, ok := ldap.KindOf(dirErr)
	if !ok || kind == ldap.KindConnection {
		s.recorder.LoginAttempt(StrategyLDAP, OutcomeError)
		log.Warn().Err(dirErr).Msg("directory unavailable")
		return nil, dirErr
	}
	s.recorder.LoginAttempt(StrategyLDAP, OutcomeRejected)

	if s.fallback == nil {
		log.Debug().Err(dirErr).Msg("directory rejected login")
		return nil, dirErr
	}

	result, fbErr := s.fallback.Login(ctx, login, password)
	if fbErr == nil {
		s.recorder.LoginAttempt(s.fallback.Name(), OutcomeSuccess)
		log.Info().Str("strategy", s.fallback.Name()).Str("user_id", result.User.ID).Msg("fallback login succeeded")
		return result, nil
	}

	outcome := OutcomeRejected
	if !errors.Is(fbErr, ErrInvalidCredentials) {
		outcome = OutcomeError
	}
	s.recorder.LoginAttempt(s.fallback.Name(), outcome)
	log.Debug().Err(dirErr).AnErr("fallback_error", fbErr).Msg("all strategies rejected login")

	return nil, newFallbackError(map[string]error{
		StrategyLDAP:      dirErr,
		s.fallback.Name(): fbErr,
	})
}

// IsAdmin reports whether the logged-in user gets administrative rights:
// superusers always do, directory users when they belong to the admin group.
func (s *AuthService) IsAdmin(ctx context.Context, result *Result) (bool, error) {
	if result == nil || result.User == nil {
		return false, nil
	}
	if result.User.IsSuperuser {
		return true, nil
	}
	if s.adminGroupDN == "" || result.Strategy != StrategyLDAP || result.Identity == nil {
		return false, nil
	}

	isMember, err := s.directory.IsMemberOf(ctx, result.Identity.Username, s.adminGroupDN)
	if err != nil {
		return false, fmt.Errorf("failed to check admin group membership: %w", err)
	}
	return isMember, nil
}
