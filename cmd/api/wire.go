package main

import (
	"fmt"

	"github.com/cpp-cyber/ldapauth/internal/api/handlers"
	"github.com/cpp-cyber/ldapauth/internal/auth"
	"github.com/cpp-cyber/ldapauth/internal/config"
	"github.com/cpp-cyber/ldapauth/internal/ldap"
	"github.com/cpp-cyber/ldapauth/internal/lock"
	"github.com/cpp-cyber/ldapauth/internal/logger"
	"github.com/cpp-cyber/ldapauth/internal/metrics"
	"github.com/cpp-cyber/ldapauth/internal/store"
)

// services holds the wired application components
type services struct {
	ldap    *ldap.LDAPService
	store   *store.Store
	auth    *auth.AuthService
	metrics *metrics.Metrics
	locker  *lock.RedisLocker
}

func newServices(cfg *config.Config) (*services, error) {
	m := metrics.New()

	ldapService, err := ldap.NewLDAPService(cfg.LDAP)
	if err != nil {
		return nil, fmt.Errorf("failed to create LDAP service: %w", err)
	}
	ldapService.WithObserver(m)

	db, err := store.New(cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("failed to open user store: %w", err)
	}

	mappers, err := cfg.Auth.Mappers()
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	notifiers := []auth.Notifier{auth.LogNotifier{}}
	if cfg.Mail.Enabled {
		notifiers = append(notifiers, auth.NewMailNotifier(cfg.Mail))
	}

	reconciler := auth.NewReconciler(db, mappers, cfg.Auth.SavePassword).
		WithUniqueUsernames(cfg.Auth.UniqueUsernames).
		WithNotifiers(notifiers...).
		WithRecorder(m)

	var locker *lock.RedisLocker
	if cfg.Lock.Enabled() {
		locker = lock.NewRedisLocker(cfg.Lock)
		reconciler.WithLocker(locker)
	}

	fallback, err := auth.NewStrategy(cfg.Auth.Fallback, db)
	if err != nil {
		_ = db.Close()
		if locker != nil {
			_ = locker.Close()
		}
		return nil, err
	}

	authService := auth.NewAuthService(ldapService, reconciler, fallback).
		WithRecorder(m).
		WithAdminGroup(cfg.LDAP.AdminGroupDN)

	logger.Info().
		Int("endpoints", len(ldapService.Endpoints())).
		Str("db_driver", cfg.Store.Driver).
		Str("fallback", cfg.Auth.Fallback).
		Bool("registration_email", cfg.Mail.Enabled).
		Bool("redis_lock", locker != nil).
		Msg("services initialized")

	return &services{
		ldap:    ldapService,
		store:   db,
		auth:    authService,
		metrics: m,
		locker:  locker,
	}, nil
}

// healthChecks lists the dependencies reported by /api/v1/health.
func (s *services) healthChecks() []handlers.ServiceCheck {
	checks := []handlers.ServiceCheck{
		{Name: "ldap", Check: s.ldap.HealthCheck},
		{Name: "database", Check: s.store.Health},
	}
	if s.locker != nil {
		checks = append(checks, handlers.ServiceCheck{Name: "redis", Check: s.locker.Ping})
	}
	return checks
}

func (s *services) Close() error {
	if s.locker != nil {
		_ = s.locker.Close()
	}
	return s.store.Close()
}
