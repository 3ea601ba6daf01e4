package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/cpp-cyber/ldapauth/internal/api/handlers"
	"github.com/cpp-cyber/ldapauth/internal/api/middleware"
	"github.com/cpp-cyber/ldapauth/internal/auth"
	"github.com/cpp-cyber/ldapauth/internal/ldap"
	"github.com/cpp-cyber/ldapauth/internal/metrics"
	"github.com/cpp-cyber/ldapauth/internal/store"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const adminGroup = "cn=admins,ou=groups,dc=example,dc=com"

type fakeDirectory struct {
	users  map[string]ldap.Identity
	admins map[string]bool
	err    error
}

func (d *fakeDirectory) Authenticate(_ context.Context, login, password string) (*ldap.Identity, error) {
	if d.err != nil {
		return nil, d.err
	}
	identity, ok := d.users[login+":"+password]
	if !ok {
		return nil, &ldap.Error{Kind: ldap.KindVerification, Detail: "LDAP bind failed: invalid credentials"}
	}
	return &identity, nil
}

func (d *fakeDirectory) IsMemberOf(_ context.Context, username, groupDN string) (bool, error) {
	return groupDN == adminGroup && d.admins[username], nil
}

type fakeChecker struct{}

func (fakeChecker) Check(context.Context) []ldap.EndpointStatus {
	return []ldap.EndpointStatus{
		{Address: "ldap://ldap1.example.com:389", Latency: 3 * time.Millisecond},
		{Address: "ldap://ldap2.example.com:389", Err: errors.New("connection refused")},
	}
}

type testServer struct {
	router    *gin.Engine
	directory *fakeDirectory
	store     *store.Store
	metrics   *metrics.Metrics
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s, err := store.Open("sqlite", filepath.Join(t.TempDir(), "api.db")+"?_pragma=busy_timeout(5000)")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	dir := &fakeDirectory{
		users: map[string]ldap.Identity{
			"alice:pw1": {Username: "alice", Email: "alice@example.com", FullName: "Alice A."},
			"carol:pw3": {Username: "carol", Email: "carol@example.com", FullName: "Carol C."},
		},
		admins: map[string]bool{"alice": true},
	}
	m := metrics.New()

	reconciler := auth.NewReconciler(s, auth.Mappers{}, true).WithRecorder(m)
	authService := auth.NewAuthService(dir, reconciler, auth.NewLocalStrategy(s)).
		WithRecorder(m).
		WithAdminGroup(adminGroup)

	r := gin.New()
	r.Use(sessions.Sessions("session", cookie.NewStore([]byte("test-secret"))))
	r.Use(middleware.RequestLogger())
	RegisterRoutes(r, Handlers{
		Auth:      handlers.NewAuthHandler(authService, 5*time.Second),
		Directory: handlers.NewDirectoryHandler(fakeChecker{}),
		Health: handlers.HealthCheckHandler(time.Second,
			handlers.ServiceCheck{Name: "database", Check: s.Health},
		),
		Metrics: m.Handler(),
	})

	return &testServer{router: r, directory: dir, store: s, metrics: m}
}

func (ts *testServer) do(t *testing.T, method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}

	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func (ts *testServer) login(t *testing.T, username, password string) (*httptest.ResponseRecorder, []*http.Cookie) {
	t.Helper()
	w := ts.do(t, http.MethodPost, "/api/v1/login", gin.H{"username": username, "password": password})
	return w, w.Result().Cookies()
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestLoginCreatesSession(t *testing.T) {
	ts := newTestServer(t)

	w, cookies := ts.login(t, "alice", "pw1")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "alice", body["username"])
	assert.Equal(t, "Alice A.", body["full_name"])
	assert.Equal(t, true, body["isAdmin"])
	assert.Equal(t, "ldap", body["strategy"])
	assert.Equal(t, true, body["created"])
	require.NotEmpty(t, cookies)

	w = ts.do(t, http.MethodGet, "/api/v1/session", nil, cookies...)
	require.Equal(t, http.StatusOK, w.Code)
	body = decode(t, w)
	assert.Equal(t, "alice", body["username"])
	assert.Equal(t, true, body["isAdmin"])

	w = ts.do(t, http.MethodGet, "/api/v1/admin/directory/endpoints", nil, cookies...)
	require.Equal(t, http.StatusOK, w.Code)
	body = decode(t, w)
	assert.Equal(t, float64(2), body["count"])
	assert.Equal(t, float64(1), body["healthy_count"])

	w = ts.do(t, http.MethodPost, "/api/v1/logout", nil, cookies...)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAdminRouteRequiresAdmin(t *testing.T) {
	ts := newTestServer(t)

	w, cookies := ts.login(t, "carol", "pw3")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode(t, w)["isAdmin"])

	w = ts.do(t, http.MethodGet, "/api/v1/admin/directory/endpoints", nil, cookies...)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestPrivateRoutesRequireSession(t *testing.T) {
	ts := newTestServer(t)

	assert.Equal(t, http.StatusUnauthorized, ts.do(t, http.MethodGet, "/api/v1/session", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, ts.do(t, http.MethodPost, "/api/v1/logout", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, ts.do(t, http.MethodGet, "/api/v1/admin/directory/endpoints", nil).Code)
}

func TestLoginFailures(t *testing.T) {
	tests := []struct {
		name     string
		dirErr   error
		username string
		password string
		want     int
		wantMsg  string
	}{
		{
			name:     "wrong password",
			username: "alice",
			password: "nope",
			want:     http.StatusUnauthorized,
			wantMsg:  ldap.PublicMessage,
		},
		{
			name:     "missing password",
			username: "alice",
			want:     http.StatusBadRequest,
			wantMsg:  "Invalid request",
		},
		{
			name:     "directory unavailable",
			dirErr:   &ldap.Error{Kind: ldap.KindConnection, Detail: "all LDAP servers failed"},
			username: "alice",
			password: "pw1",
			want:     http.StatusServiceUnavailable,
			wantMsg:  "Directory service unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)
			ts.directory.err = tt.dirErr

			w, cookies := ts.login(t, tt.username, tt.password)
			assert.Equal(t, tt.want, w.Code)
			assert.Equal(t, tt.wantMsg, decode(t, w)["error"])
			assert.Empty(t, cookies)
		})
	}
}

func TestLoginRejectedByAllStrategiesHidesDetail(t *testing.T) {
	ts := newTestServer(t)

	w, _ := ts.login(t, "mallory", "guess")
	require.Equal(t, http.StatusUnauthorized, w.Code)

	body := decode(t, w)
	assert.Equal(t, ldap.PublicMessage, body["error"])
	assert.Equal(t, map[string]any{
		"ldap":   ldap.PublicMessage,
		"normal": ldap.PublicMessage,
	}, body["details"])
	assert.NotContains(t, w.Body.String(), "bind failed")
}

func TestHealthAndMetrics(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/api/v1/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "healthy", body["services"].(map[string]any)["database"])

	ts.login(t, "alice", "pw1")

	w = ts.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `ldapauth_login_attempts_total{outcome="success",strategy="ldap"} 1`)
	assert.Contains(t, w.Body.String(), "ldapauth_users_registered_total 1")
}
