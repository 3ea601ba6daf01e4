package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cpp-cyber/ldapauth/internal/ldap"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistersIndependently(t *testing.T) {
	// Two instances must not collide on registration
	m1 := New()
	m2 := New()

	m1.UserRegistered()
	assert.Equal(t, 1.0, testutil.ToFloat64(m1.UsersRegisteredTotal))
	assert.Equal(t, 0.0, testutil.ToFloat64(m2.UsersRegisteredTotal))
}

func TestLoginMetrics(t *testing.T) {
	m := New()

	m.LoginAttempt("ldap", "success")
	m.LoginAttempt("ldap", "rejected")
	m.LoginAttempt("ldap", "rejected")
	m.LoginAttempt("normal", "success")
	m.UserUpdated()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.LoginAttemptsTotal.WithLabelValues("ldap", "success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.LoginAttemptsTotal.WithLabelValues("ldap", "rejected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LoginAttemptsTotal.WithLabelValues("normal", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.UsersUpdatedTotal))
}

func TestDirectoryMetrics(t *testing.T) {
	m := New()

	m.ObserveError(ldap.KindConnection)
	m.ObserveError(ldap.KindNotFound)
	m.ObserveError(ldap.KindConnection)
	m.ObserveStage("connect", 20*time.Millisecond)
	m.ObserveStage("resolve", 5*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.DirectoryErrorsTotal.WithLabelValues("ConnectionError")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DirectoryErrorsTotal.WithLabelValues("NotFound")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.DirectoryStageSeconds))
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.LoginAttempt("ldap", "success")

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `ldapauth_login_attempts_total{outcome="success",strategy="ldap"} 1`)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestHTTPMetricsMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New()

	r := gin.New()
	r.Use(m.HTTPMetricsMiddleware())
	r.GET("/api/v1/users/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for _, path := range []string{"/api/v1/users/1", "/api/v1/users/2", "/missing"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/api/v1/users/:id", "204")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "unmatched", "404")))
}
