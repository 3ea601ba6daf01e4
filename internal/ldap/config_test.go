package ldap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("LDAP_SEARCH_BASE", testBase)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, []string{"localhost"}, cfg.Servers)
	assert.Zero(t, cfg.Port)
	assert.Equal(t, uint32(5), cfg.PageSize)
	assert.Equal(t, "uid", cfg.UsernameAttribute)
	assert.Equal(t, "mail", cfg.EmailAttribute)
	assert.Equal(t, "displayName", cfg.FullNameAttribute)
	assert.Equal(t, "posixGroup", cfg.GroupObjectClass)
	assert.Equal(t, "memberUid", cfg.GroupMemberAttribute)
	assert.Nil(t, cfg.Credential())
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigServerList(t *testing.T) {
	t.Setenv("LDAP_SERVER", "ldap1.example.com,ldaps://ldap2.example.com:636")
	t.Setenv("LDAP_SEARCH_BASE", testBase)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	endpoints, err := cfg.Endpoints()
	require.NoError(t, err)
	require.Len(t, endpoints, 2)
	assert.Equal(t, "ldap://ldap1.example.com:389", endpoints[0].Address)
	assert.Equal(t, "ldaps://ldap2.example.com:636", endpoints[1].Address)
	assert.Equal(t, "ldap2.example.com", endpoints[1].TLS.ServerName)
}

func TestLoadConfigLDAPSDefaultPort(t *testing.T) {
	t.Setenv("LDAP_SERVER", "ldaps://ldap.example.com")
	t.Setenv("LDAP_SEARCH_BASE", testBase)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	endpoints, err := cfg.Endpoints()
	require.NoError(t, err)
	assert.Equal(t, "ldaps://ldap.example.com:636", endpoints[0].Address)

	t.Setenv("LDAP_PORT", "3269")
	cfg, err = LoadConfig()
	require.NoError(t, err)
	endpoints, err = cfg.Endpoints()
	require.NoError(t, err)
	assert.Equal(t, "ldaps://ldap.example.com:3269", endpoints[0].Address)
}

func TestEndpointURL(t *testing.T) {
	tests := []struct {
		server  string
		port    int
		want    string
		wantErr bool
	}{
		{server: "localhost", want: "ldap://localhost:389"},
		{server: "ldap.example.com:1389", want: "ldap://ldap.example.com:1389"},
		{server: "ldap://ldap.example.com", want: "ldap://ldap.example.com:389"},
		{server: "LDAPS://ldap.example.com:636", want: "ldaps://ldap.example.com:636"},
		{server: "ldaps://ldap.example.com", want: "ldaps://ldap.example.com:636"},
		{server: "ldaps://ldap.example.com", port: 3269, want: "ldaps://ldap.example.com:3269"},
		{server: "ldap.example.com", port: 1389, want: "ldap://ldap.example.com:1389"},
		{server: "http://ldap.example.com", wantErr: true},
		{server: "ldap://", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.server, func(t *testing.T) {
			got, _, err := endpointURL(tt.server, tt.port)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{
			name:   "missing search base",
			mutate: func(c *Config) { c.SearchBase = " " },
			errMsg: "LDAP_SEARCH_BASE",
		},
		{
			name:   "no servers",
			mutate: func(c *Config) { c.Servers = []string{"", " "} },
			errMsg: "at least one server",
		},
		{
			name: "ldaps with STARTTLS",
			mutate: func(c *Config) {
				c.Servers = []string{"ldaps://ldap.example.com"}
				c.StartTLS = true
			},
			errMsg: "choose one",
		},
		{
			name: "password without bind DN",
			mutate: func(c *Config) {
				c.BindDN = ""
				c.BindPassword = "secret"
			},
			errMsg: "LDAP_BIND_DN",
		},
		{
			name:   "empty attribute",
			mutate: func(c *Config) { c.EmailAttribute = "" },
			errMsg: "attributes",
		},
		{
			name:   "zero page size",
			mutate: func(c *Config) { c.PageSize = 0 },
			errMsg: "LDAP_PAGE_SIZE",
		},
		{
			name:   "port out of range",
			mutate: func(c *Config) { c.Port = 70000 },
			errMsg: "LDAP_PORT",
		},
		{
			name:   "missing CA file",
			mutate: func(c *Config) { c.CAFile = "/nonexistent/ca.pem" },
			errMsg: "CA file",
		},
	}

	require.NoError(t, testConfig().Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestCredential(t *testing.T) {
	cfg := testConfig()
	assert.Equal(t, &ServiceCredential{BindDN: testServiceDN, Password: testServicePW}, cfg.Credential())

	cfg.BindDN = ""
	assert.Nil(t, cfg.Credential())
}
