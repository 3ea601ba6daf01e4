package ldap

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

func LoadConfig() (*Config, error) {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return nil, fmt.Errorf("failed to process LDAP configuration: %w", err)
	}
	return &config, nil
}

// Validate fails fast on settings that would otherwise only surface on the
// first login attempt.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.SearchBase) == "" {
		return errors.New("LDAP_SEARCH_BASE is required")
	}
	if len(c.servers()) == 0 {
		return errors.New("LDAP_SERVER must name at least one server")
	}
	if c.BindDN == "" && c.BindPassword != "" {
		return errors.New("LDAP_BIND_PASSWORD is set but LDAP_BIND_DN is empty")
	}
	if c.UsernameAttribute == "" || c.EmailAttribute == "" || c.FullNameAttribute == "" {
		return errors.New("LDAP username, email and full name attributes must not be empty")
	}
	if c.PageSize == 0 {
		return errors.New("LDAP_PAGE_SIZE must be greater than zero")
	}
	if c.Timeout <= 0 {
		return errors.New("LDAP_TIMEOUT must be positive")
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("LDAP_PORT %d is out of range", c.Port)
	}
	if _, err := c.Endpoints(); err != nil {
		return err
	}
	return nil
}

// Endpoints expands LDAP_SERVER into one endpoint per server, in configured order.
func (c *Config) Endpoints() ([]Endpoint, error) {
	base, err := c.tlsConfig()
	if err != nil {
		return nil, err
	}

	var endpoints []Endpoint
	for _, server := range c.servers() {
		address, host, err := endpointURL(server, c.Port)
		if err != nil {
			return nil, err
		}
		if strings.HasPrefix(address, "ldaps://") && c.StartTLS {
			return nil, fmt.Errorf("server %s uses ldaps:// and LDAP_START_TLS is set; choose one", server)
		}

		tlsConfig := base.Clone()
		tlsConfig.ServerName = host
		endpoints = append(endpoints, Endpoint{
			Address:  address,
			StartTLS: c.StartTLS,
			TLS:      tlsConfig,
		})
	}
	return endpoints, nil
}

func (c *Config) Credential() *ServiceCredential {
	if c.BindDN == "" {
		return nil
	}
	return &ServiceCredential{BindDN: c.BindDN, Password: c.BindPassword}
}

func (c *Config) AttributeMap() AttributeMap {
	return AttributeMap{
		Username: c.UsernameAttribute,
		Email:    c.EmailAttribute,
		FullName: c.FullNameAttribute,
	}
}

func (c *Config) SearchSpec() SearchSpec {
	return SearchSpec{
		Base:     c.SearchBase,
		Filter:   c.SearchFilter,
		PageSize: c.PageSize,
	}
}

func (c *Config) GroupSpec() GroupSpec {
	return GroupSpec{
		ObjectClass:     c.GroupObjectClass,
		MemberAttribute: c.GroupMemberAttribute,
	}
}

func (c *Config) servers() []string {
	var servers []string
	for _, s := range c.Servers {
		if s = strings.TrimSpace(s); s != "" {
			servers = append(servers, s)
		}
	}
	return servers
}

func (c *Config) tlsConfig() (*tls.Config, error) {
	tlsConfig := &tls.Config{
		InsecureSkipVerify: c.SkipTLSVerify,
		MinVersion:         tls.VersionTLS12,
	}
	if c.CAFile == "" {
		return tlsConfig, nil
	}

	pem, err := os.ReadFile(c.CAFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read LDAP CA file: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("no certificates found in LDAP CA file %s", c.CAFile)
	}
	tlsConfig.RootCAs = pool
	return tlsConfig, nil
}

const (
	defaultLDAPPort  = 389
	defaultLDAPSPort = 636
)

// endpointURL normalizes "host", "host:port" and "ldap[s]://host[:port]" into
// a dialable URL. A server without a port gets the configured port, or the
// scheme's well-known port when port is zero.
func endpointURL(server string, port int) (string, string, error) {
	if !strings.Contains(server, "://") {
		server = "ldap://" + server
	}
	u, err := url.Parse(server)
	if err != nil {
		return "", "", fmt.Errorf("invalid LDAP server %q: %w", server, err)
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "ldap" && scheme != "ldaps" {
		return "", "", fmt.Errorf("unsupported LDAP URL scheme: %s", u.Scheme)
	}
	host := u.Hostname()
	if host == "" {
		return "", "", fmt.Errorf("invalid LDAP server %q: missing host", server)
	}

	hostPort := u.Host
	if u.Port() == "" {
		if port == 0 {
			port = defaultLDAPPort
			if scheme == "ldaps" {
				port = defaultLDAPSPort
			}
		}
		hostPort = net.JoinHostPort(host, strconv.Itoa(port))
	}
	return scheme + "://" + hostPort, host, nil
}
