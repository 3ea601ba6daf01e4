package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/cpp-cyber/ldapauth/internal/api/handlers"
	"github.com/cpp-cyber/ldapauth/internal/api/middleware"
	"github.com/cpp-cyber/ldapauth/internal/api/routes"
	"github.com/cpp-cyber/ldapauth/internal/logger"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.InsecureSessionSecret() {
		logger.Warn().Msg("SESSION_SECRET is not set, using the development default")
	}

	svc, err := newServices(cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(svc.metrics.HTTPMetricsMiddleware())
	if cfg.App.CORSOrigin != "" {
		r.Use(middleware.CORSMiddleware(cfg.App.CORSOrigin))
	}

	// Setup session middleware
	store := cookie.NewStore([]byte(cfg.App.SessionSecret))
	store.Options(sessions.Options{Path: "/", HttpOnly: true, SameSite: http.SameSiteLaxMode})
	r.Use(sessions.Sessions("session", store))

	routes.RegisterRoutes(r, routes.Handlers{
		Auth:      handlers.NewAuthHandler(svc.auth, cfg.App.LoginTimeout),
		Directory: handlers.NewDirectoryHandler(svc.ldap),
		Health:    handlers.HealthCheckHandler(cfg.App.LoginTimeout, svc.healthChecks()...),
		Metrics:   svc.metrics.Handler(),
	})

	srv := &http.Server{
		Addr:              cfg.App.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.App.Port).Msg("starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
